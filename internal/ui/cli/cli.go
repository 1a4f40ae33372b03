// Package cli implements the bindsig command line.
package cli

import (
	"flag"
	"io"
)

const versionString = "1.0.0"
const defaultConfigPath = "./bindsig.toml"

type cliOptions struct {
	configPath   string
	backend      string
	watch        bool
	history      bool
	historyLimit int
	run          string
	canonical    bool
	verbose      bool
	version      bool
	args         []string
}

func parseOptions(args []string, output io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("bindsig", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.StringVar(&opts.backend, "backend", "", "Override the expression oracle backend (builtin or tree-sitter)")
	fs.BoolVar(&opts.watch, "watch", false, "Watch directories and re-check declaration files when they change")
	fs.BoolVar(&opts.history, "history", false, "List recorded check runs and exit (requires db.enabled)")
	fs.IntVar(&opts.historyLimit, "history-limit", 20, "Maximum number of runs listed by --history")
	fs.StringVar(&opts.run, "run", "", "Print the recorded results of a run id and exit (requires db.enabled)")
	fs.BoolVar(&opts.canonical, "canonical", false, "Print the canonical form of every valid declaration")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
