package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Makepad-fr/tada/internal/model"
)

const maxTextWidth = 80

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel draws a framed box using the current theme.
func Panel(lines []string) {
	t := Current()
	maxw := 0
	for _, ln := range lines {
		if w := lipgloss.Width(ln); w > maxw {
			maxw = w
		}
	}
	pad := func(s string) string {
		if vis := lipgloss.Width(s); vis < maxw {
			s += strings.Repeat(" ", maxw-vis)
		}
		return s
	}
	fmt.Fprintln(Stdout, t.CornerTL+strings.Repeat(t.H, maxw+2)+t.CornerTR)
	for _, ln := range lines {
		fmt.Fprintln(Stdout, t.V+" "+pad(ln)+" "+t.V)
	}
	fmt.Fprintln(Stdout, t.CornerBL+strings.Repeat(t.H, maxw+2)+t.CornerBR)
}

// Header is the "Todos ✔ n • n Total n" line.
func Header(entries []model.Entry) string {
	t := Current()
	d, p := model.Stats(entries)
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Todos"),
		C(t.Success, "✔"), d,
		C(t.Pending, "•"), p,
		C(t.Accent, "Total"), len(entries),
	)
}

// EntryLines renders entries with their 1-based position.
func EntryLines(entries []model.Entry) []string {
	if len(entries) == 0 {
		return []string{C(Current().Muted, "no entries")}
	}
	return numbered(entries, func(i int) int { return i + 1 })
}

// GroupLines splits entries into Pending and Done sections. Positions
// still refer to the flat list so they can be passed to `todo done`.
func GroupLines(entries []model.Entry) []string {
	var pend, done []int
	for i, e := range entries {
		if e.Completed {
			done = append(done, i)
		} else {
			pend = append(pend, i)
		}
	}
	section := func(title string, idx []int) []string {
		lines := []string{C(Current().Accent, title)}
		if len(idx) == 0 {
			return append(lines, C(Current().Muted, "(none)"))
		}
		sub := make([]model.Entry, len(idx))
		for k, i := range idx {
			sub[k] = entries[i]
		}
		return append(lines, numbered(sub, func(k int) int { return idx[k] + 1 })...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

func numbered(entries []model.Entry, pos func(int) int) []string {
	t := Current()
	out := make([]string, 0, len(entries))
	for i, e := range entries {
		box, color := t.BoxUnchecked, t.Muted
		if e.Completed {
			box, color = t.BoxChecked, t.Success
		}
		text := e.Text
		if r := []rune(text); len(r) > maxTextWidth {
			text = string(r[:maxTextWidth-3]) + "..."
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			Dim(fmt.Sprintf("%2d.", pos(i))), C(color, box), text))
	}
	return out
}
