package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Makepad-fr/tada/internal/cli"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("todo", pflag.ContinueOnError)
	flags.Usage = cli.PrintHelp

	// Root flags (apply to every subcommand)
	groupPending := flags.Bool("group", false, "group ls output by pending/done")
	configPath := flags.String("config", "", "config file (yaml, json or jsonc); default $"+config.EnvConfig)
	storage := flags.String("storage", "", "storage backend: file, sqlite or memory")
	dataDir := flags.String("data-dir", "", "where the list is stored")
	delay := flags.Duration("delay", 0, "how long finished entries stay before removal")
	theme := flags.String("theme", "", "classic, neon or mono")
	logLevel := flags.String("log-level", "", "debug, info, warn or error")
	logFile := flags.String("log-file", "", "write logs to this file")
	noColor := flags.Bool("no-color", false, "disable colors")
	forceColor := flags.Bool("color", false, "force colors even when not a terminal")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		ui.Fail(err.Error())
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.Fail(err.Error())
		return 2
	}
	if flags.Changed("storage") {
		cfg.Storage.Backend = *storage
	}
	if flags.Changed("data-dir") {
		cfg.Storage.Path = *dataDir
	}
	if flags.Changed("delay") {
		cfg.RemovalDelay = config.Duration(*delay)
	}
	if flags.Changed("theme") {
		cfg.Theme = *theme
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = *logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = *logFile
	}
	if err := cfg.Validate(); err != nil {
		ui.Fail(err.Error())
		return 2
	}

	ui.SetColorForcing(*forceColor, *noColor)
	if err := ui.SetTheme(cfg.Theme); err != nil {
		ui.Fail(err.Error())
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Hand the remaining args to the CLI runner.
	code := cli.Run(ctx, flags.Args(), cli.Options{
		Group:  *groupPending,
		Config: cfg,
	})
	if code != 0 {
		fmt.Fprintln(ui.Stderr)
	}
	return code
}
