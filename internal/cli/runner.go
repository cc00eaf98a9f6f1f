package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Makepad-fr/tada/internal/clock"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/listsync"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/store/backend"
	"github.com/Makepad-fr/tada/internal/tui"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Options tune behavior from root flags and configuration.
type Options struct {
	Group  bool // list grouped by pending/done
	Config config.Config

	// Slot and Clock replace the configured storage and the wall clock.
	Slot  store.Slot
	Clock clock.Clock
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp()
		return 0

	case "ls":
		return withList(ctx, opt, false, func(s *listsync.Synchronizer, _ *slog.Logger) int {
			return doList(s, opt)
		})

	case "add":
		if len(a) == 0 {
			ui.Fail("usage: todo add <text...>")
			return 2
		}
		return withList(ctx, opt, false, func(s *listsync.Synchronizer, _ *slog.Logger) int {
			return doAdd(ctx, s, strings.Join(a, " "))
		})

	case "done":
		if len(a) != 1 {
			ui.Fail("usage: todo done <index>")
			return 2
		}
		n, err := strconv.Atoi(a[0])
		if err != nil {
			ui.Fail("done: not a number: " + a[0])
			return 2
		}
		return withList(ctx, opt, false, func(s *listsync.Synchronizer, _ *slog.Logger) int {
			return doDone(ctx, s, n)
		})

	case "ui":
		return withList(ctx, opt, true, func(s *listsync.Synchronizer, logger *slog.Logger) int {
			return doUI(ctx, s, logger)
		})
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprintf(ui.Stdout, `todo - a tiny list manager

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  add <text...>      Add a new entry (text can be multiple words)
  ls                 List entries
  done <index>       Mark the entry at 1-based index done; it is removed
                     once the removal delay has passed
  ui                 Interactive list (add, click to finish)

Examples:
  todo add "Buy milk"
  todo ls --group
  todo done 2
  todo ui
`)
}

// withList opens the slot, restores the list and hands it to fn. Any
// failure here aborts before fn runs. Interactive sessions keep logs off
// the terminal unless a log file is configured.
func withList(ctx context.Context, opt Options, interactive bool, fn func(*listsync.Synchronizer, *slog.Logger) int) int {
	cfg := opt.Config
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}
	fallback := ui.Stderr
	if interactive {
		fallback = nil
	}
	logger, closeLog, err := logging.Open(cfg.Log.File, fallback, level)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	defer closeLog()

	slot := opt.Slot
	if slot == nil {
		slot, err = backend.Open(cfg.Storage.Backend, cfg.Storage.Path)
		if err != nil {
			logger.Error("storage unavailable", "backend", cfg.Storage.Backend, "error", err)
			ui.Fail("open storage: " + err.Error())
			return 1
		}
		defer slot.Close()
	}

	s, err := listsync.New(slot,
		listsync.WithKey(cfg.Storage.Key),
		listsync.WithRemovalDelay(cfg.RemovalDelay.Std()),
		listsync.WithClock(opt.Clock),
		listsync.WithLogger(logger),
	)
	if err != nil {
		logger.Error("initialization aborted", "error", err)
		ui.Fail(err.Error())
		return 1
	}
	defer s.Close()

	if err := s.Restore(ctx); err != nil {
		logger.Error("initialization aborted", "error", err)
		ui.Fail("load: " + err.Error())
		return 1
	}
	return fn(s, logger)
}

// -------------- subcommand impls ----------------

func doList(s *listsync.Synchronizer, opt Options) int {
	entries := values(s.Entries())
	d, p := model.Stats(entries)

	var lines []string
	lines = append(lines, ui.Header(entries))
	lines = append(lines, ui.C(ui.Current().Muted, ui.ProgressBar(d, d+p, 28)))
	lines = append(lines, "")

	if opt.Group {
		lines = append(lines, ui.GroupLines(entries)...)
	} else {
		lines = append(lines, ui.EntryLines(entries)...)
	}
	lines = append(lines, "")
	lines = append(lines, ui.C(ui.Current().Muted, "Tip: add with `todo add \"Buy milk\"`"))
	ui.Panel(lines)
	return 0
}

func doAdd(ctx context.Context, s *listsync.Synchronizer, text string) int {
	_, added, err := s.Submit(ctx, text)
	if err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	if !added {
		ui.Fail("add: empty text")
		return 2
	}
	ui.OK("added")
	return 0
}

// doDone marks the entry, then stays around until its removal has been
// written, so the command behaves like a click followed by the delay.
func doDone(ctx context.Context, s *listsync.Synchronizer, userIndex int) int {
	items := s.Entries()
	if userIndex < 1 || userIndex > len(items) {
		ui.Fail(fmt.Sprintf("index out of range: have %d, got %d", len(items), userIndex))
		ui.Hint("Hint: run `todo ls` to see valid indexes")
		return 2
	}
	target := items[userIndex-1]

	removed := make(chan struct{})
	closed := false
	s.Observe(func(items []listsync.Item) {
		if closed {
			return
		}
		for _, it := range items {
			if it.ID == target.ID {
				return
			}
		}
		closed = true
		close(removed)
	})

	if err := s.Complete(ctx, target.ID); err != nil {
		ui.Fail("save: " + err.Error())
		return 1
	}
	ui.OK(fmt.Sprintf("done: %s (removing in %s)", target.Text, s.RemovalDelay()))

	select {
	case <-removed:
		ui.OK("removed")
		return 0
	case <-ctx.Done():
		// The completed flag is already saved; removal simply never happens.
		ui.Fail("interrupted before removal")
		return 1
	}
}

func doUI(ctx context.Context, s *listsync.Synchronizer, logger *slog.Logger) int {
	if err := tui.Run(ctx, s, logger); err != nil {
		if errors.Is(err, tui.ErrMissingAnchor) {
			logger.Error("initialization aborted", "error", err)
		}
		ui.Fail("tui: " + err.Error())
		return 1
	}
	return 0
}

func values(items []listsync.Item) []model.Entry {
	out := make([]model.Entry, len(items))
	for i, it := range items {
		out[i] = it.Entry
	}
	return out
}
