package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/ui"
)

func capture(t *testing.T) (stdout, stderr *bytes.Buffer) {
	t.Helper()
	for _, env := range []string{config.EnvConfig, config.EnvDataDir, config.EnvStorage} {
		t.Setenv(env, "")
	}
	stdout, stderr = &bytes.Buffer{}, &bytes.Buffer{}
	ui.Stdout, ui.Stderr = stdout, stderr
	ui.SetColorForcing(false, true)
	t.Cleanup(func() {
		ui.Stdout, ui.Stderr = os.Stdout, os.Stderr
		ui.SetColorForcing(false, false)
	})
	return stdout, stderr
}

func TestHelpFlagExitsZero(t *testing.T) {
	for _, arg := range []string{"--help", "-h"} {
		stdout, _ := capture(t)
		if code := run([]string{arg}); code != 0 {
			t.Errorf("%s: exit = %d, want 0", arg, code)
		}
		if !strings.Contains(stdout.String(), "Usage:") {
			t.Errorf("%s: help not printed: %q", arg, stdout.String())
		}
	}
}

func TestUsageErrors(t *testing.T) {
	tests := map[string][]string{
		"unknown flag":    {"--frobnicate", "ls"},
		"unknown backend": {"--storage", "redis", "ls"},
		"bad delay":       {"--delay", "-1s", "ls"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			capture(t)
			if code := run(args); code != 2 {
				t.Errorf("exit = %d, want 2", code)
			}
		})
	}
}

func TestMemoryBackendAdd(t *testing.T) {
	stdout, stderr := capture(t)
	if code := run([]string{"--storage", "memory", "--log-level", "error", "add", "buy", "milk"}); code != 0 {
		t.Fatalf("exit = %d, stderr %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "added") {
		t.Errorf("stdout = %q", stdout.String())
	}
}
