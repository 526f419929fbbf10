// Gosh is an interactive command shell with job control: pipelines,
// background jobs, stop/continue and foreground hand-over of the terminal.
//
// Configuration is layered: built-in defaults, then an optional YAML config
// file, then flags. Flags can also be set via environment variables:
//
//   - GOSH_CONFIG: the path of the YAML config file.
//   - GOSH_HISTORY_FILE: the path of the history file.
//   - GOSH_PROMPT: the prompt prefix.
//   - GOSH_LOG_LEVEL: debug, info, warn or error.
//
// Sample usage:
//
//	gosh --prompt mysh --history-file /tmp/hist
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/gosh-shell/gosh/pkg/config"
	"github.com/gosh-shell/gosh/pkg/shell"
)

const description = "Gosh is an interactive command shell with job control."

type app struct {
	Config       string `short:"c" help:"Config file, YAML." env:"GOSH_CONFIG"`
	HistoryFile  string `help:"History file." env:"GOSH_HISTORY_FILE"`
	HistoryLimit int    `help:"Maximum history entries kept." env:"GOSH_HISTORY_LIMIT"`
	Prompt       string `help:"Prompt prefix." env:"GOSH_PROMPT"`
	LogLevel     string `help:"Log level: debug, info, warn, error." default:"warn" env:"GOSH_LOG_LEVEL"`
}

func main() {
	a := &app{}
	kctx := kong.Parse(a, kong.Description(description))
	code, err := a.run()
	kctx.FatalIfErrorf(err)
	os.Exit(code)
}

// run builds the configuration, starts the shell and returns its exit code.
// An error here is a startup failure; once the interactive loop is running
// the shell never fails fatally.
func (a *app) run() (int, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return 1, fmt.Errorf("invalid log level %q: %w", a.LogLevel, err)
	}
	slog.SetLogLoggerLevel(level)

	cfg, err := config.Load(a.configPath())
	if err != nil {
		return 1, err
	}
	if a.HistoryFile != "" {
		cfg.HistoryFile = a.HistoryFile
	}
	if a.HistoryLimit != 0 {
		cfg.HistoryLimit = a.HistoryLimit
	}
	if a.Prompt != "" {
		cfg.Prompt = a.Prompt
	}
	return shell.New(cfg).Run()
}

// configPath resolves the config file: the flag if given, ~/.gosh.yaml
// otherwise. An empty path means defaults only.
func (a *app) configPath() string {
	if a.Config != "" {
		return a.Config
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".gosh.yaml")
}
