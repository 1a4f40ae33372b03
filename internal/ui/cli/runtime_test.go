package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-watch", "-backend", "tree-sitter", "decls"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, opts.watch)
	assert.Equal(t, "tree-sitter", opts.backend)
	assert.Equal(t, defaultConfigPath, opts.configPath)
	assert.Equal(t, 20, opts.historyLimit)
	assert.Equal(t, []string{"decls"}, opts.args)

	_, err = parseOptions([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestValidateModeOptions(t *testing.T) {
	tests := []struct {
		name string
		opts cliOptions
		want string
	}{
		{"watch and history", cliOptions{watch: true, history: true}, "cannot be combined"},
		{"history with args", cliOptions{history: true, args: []string{"x"}}, "no positional arguments"},
		{"nothing to do", cliOptions{}, "usage"},
		{"negative limit", cliOptions{history: true, historyLimit: -1}, "history-limit"},
		{"inline", cliOptions{args: []string{"foo()"}}, ""},
		{"watch without roots", cliOptions{watch: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateModeOptions(tt.opts)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "bindsig v"+versionString+"\n", out)
}

func TestRun_UsageErrors(t *testing.T) {
	code, _, _ := runCLI(t, "-unknown-flag")
	assert.Equal(t, exitUsage, code)

	cfg := writeTemp(t, t.TempDir(), "bindsig.toml", "version = 1\n")
	code, _, stderr := runCLI(t, "-config", cfg)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "usage")
}

func TestRun_InlineDeclarations(t *testing.T) {
	cfg := writeTemp(t, t.TempDir(), "bindsig.toml", "version = 1\n")

	code, out, _ := runCLI(t, "-config", cfg, "-canonical", "Get < int >(ref x)", "inherit: IFoo,IBar where T:new()")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Get<int>(ref x)")
	assert.Contains(t, out, "IFoo, IBar where T : new()")
	assert.Contains(t, out, "2 declarations, all valid")

	code, out, _ = runCLI(t, "-config", cfg, "inherit: IFoo, IFoo")
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, out, "'IFoo' cannot be inherited more than once (index 6)")
	assert.Contains(t, out, "1 declarations, 1 invalid")
}

func TestRun_DeclarationFileAndHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTemp(t, dir, "bindsig.toml", "[db]\nenabled = true\npath = \""+filepath.ToSlash(filepath.Join(dir, "history.db"))+"\"\n")
	decls := writeTemp(t, dir, "api.bind", "# api\ncall: Make<T>(new T())\ncall: broken(\n")

	code, out, _ := runCLI(t, "-config", cfg, decls)
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, out, "api.bind")
	assert.Contains(t, out, "signature incomplete")

	code, out, _ = runCLI(t, "-config", cfg, "-history")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "1/2 invalid")
	assert.Contains(t, out, "1 runs, 2 declarations")

	code, _, _ = runCLI(t, "-config", cfg, "-run", "no-such-run")
	assert.Equal(t, exitInvalid, code)
}

func TestRun_HistoryDisabled(t *testing.T) {
	cfg := writeTemp(t, t.TempDir(), "bindsig.toml", "version = 1\n")
	code, _, stderr := runCLI(t, "-config", cfg, "-history")
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stderr, "history is disabled")
}

func TestRun_BadConfig(t *testing.T) {
	cfg := writeTemp(t, t.TempDir(), "bindsig.toml", "[oracle]\nbackend = \"roslyn\"\n")
	code, _, stderr := runCLI(t, "-config", cfg, "foo()")
	assert.Equal(t, exitInvalid, code)
	assert.Contains(t, stderr, "oracle.backend")

	good := writeTemp(t, t.TempDir(), "bindsig.toml", "version = 1\n")
	code, _, _ = runCLI(t, "-config", good, "-backend", "nope", "foo()")
	assert.Equal(t, exitInvalid, code)
}

func TestCaretLine(t *testing.T) {
	tests := []struct {
		text  string
		index int
		want  string
	}{
		{"IFoo, IFoo", 6, "      ^"},
		{"foo(", 3, "   ^"},
		{"", 0, "^"},
		{"ab", 9, "  ^"},
		{"\tx", 1, "\t^"},
		{"f(\"日本\", y!)", 6, "        ^"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, stripANSI(caretLine(tt.text, tt.index)))
		})
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape && (r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z'):
			inEscape = false
		case !inEscape:
			b.WriteRune(r)
		}
	}
	return b.String()
}
