package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	reset = "\033[0m"
	bold  = "\033[1m"
	dim   = "\033[2m"

	fgGray   = "\033[90m"
	fgGreen  = "\033[32m"
	fgYellow = "\033[33m"
	fgBlue   = "\033[34m"
	fgRed    = "\033[31m"

	symCheck = "✔"
	symCross = "✖"
)

// Destinations for OK / Fail / Panel. Tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	forceColor   bool
	disableColor = termenv.EnvNoColor()
)

// SetColorForcing overrides terminal detection. NO_COLOR in the
// environment disables color unless force is set.
func SetColorForcing(force, disable bool) {
	forceColor = force
	disableColor = disable || (!force && termenv.EnvNoColor())
}

func isTTY() bool {
	f, ok := Stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// C wraps s in color when the output is a color-capable terminal.
func C(color, s string) string {
	if disableColor || color == "" {
		return s
	}
	if forceColor || isTTY() {
		return color + s + reset
	}
	return s
}

func Dim(s string) string { return C(dim, s) }

func OK(msg string)   { fmt.Fprintln(Stdout, C(fgGreen, symCheck+" "+msg)) }
func Fail(msg string) { fmt.Fprintln(Stderr, C(fgRed, symCross+" "+msg)) }

// Hint prints a muted follow-up line under a Fail.
func Hint(msg string) { fmt.Fprintln(Stderr, C(fgGray, msg)) }
