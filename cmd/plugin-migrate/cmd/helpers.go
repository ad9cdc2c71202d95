package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bianoble/plugin-migrate/pkg/pluginmigrate"
)

// newClient builds a library client from the global flags. The log level
// follows the config file unless --verbose or --quiet say otherwise.
func newClient() (*pluginmigrate.Client, error) {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var out io.Writer = os.Stdout
	if quiet {
		out = io.Discard
	}
	client, err := pluginmigrate.New(pluginmigrate.Options{
		ProjectRoot: rootDir,
		ConfigPath:  configPath,
		NoInherit:   noInherit,
		Out:         out,
		Logger:      logger,
		Diffs:       verbose,
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	level.Set(logLevel(client.Config().LogLevel, verbose, quiet))
	return client, nil
}

// logLevel maps a config log_level and the output flags to a slog level.
func logLevel(configured string, verbose, quiet bool) slog.Level {
	switch {
	case verbose:
		return slog.LevelDebug
	case quiet:
		return slog.LevelError
	}
	switch strings.ToLower(configured) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
