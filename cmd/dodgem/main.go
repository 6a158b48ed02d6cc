// Command dodgem keeps Rocket League Garage trades near the top of the
// listings by bumping them on a timer.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/coopco/dodgem/internal/config"
	"github.com/coopco/dodgem/internal/console"
)

var version = "dev"

// shownError wraps an error the console has already reported.
type shownError struct{ error }

func (e shownError) Unwrap() error { return e.error }

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		var shown shownError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app holds what every subcommand shares.
type app struct {
	configPath  string
	verbose     bool
	nonHeadless bool

	in      io.Reader
	out     io.Writer
	printer *console.Printer
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out, printer: console.New(out)}

	root := &cobra.Command{
		Use:           "dodgem",
		Short:         "🎪 Dodgem - bump Rocket League Garage trades on an interval",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(a.verbose)
		},
	}
	root.SetIn(in)
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigPath(), "path to the config file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log browser and engine details to stderr")
	flags.BoolVar(&a.nonHeadless, "non-headless", false, "show the browser window")

	root.AddCommand(
		newLoginCmd(a),
		newStartCmd(a),
		newBumpCmd(a),
		newHistoryCmd(a),
	)
	return root
}

func defaultConfigPath() string {
	path, err := config.DefaultPath()
	if err != nil {
		return filepath.Join(".dodgem", "config.json")
	}
	return path
}

// setupLogging keeps the console output clean unless verbose is set.
func setupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads the config file and applies command line overrides.
func (a *app) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return nil, err
	}
	if a.nonHeadless {
		cfg.Browser.Headless = false
	}
	return cfg, nil
}
