package main

import (
	"os"

	"bindsig/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:], os.Stdout, os.Stderr))
}
