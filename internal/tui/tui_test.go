package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/clock"
	"github.com/Makepad-fr/tada/internal/listsync"
	"github.com/Makepad-fr/tada/internal/store/memstore"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	sync  *listsync.Synchronizer
	slot  *memstore.Store
	clock *clock.FakeClock
	model Model
}

func newFixture(t *testing.T, seed string) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	slot := memstore.New()
	if seed != "" {
		slot.Set(ctx, "todos", []byte(seed))
	}
	fc := clock.Fake(epoch)
	logger := slog.New(slog.DiscardHandler)
	s, err := listsync.New(slot, listsync.WithClock(fc), listsync.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	if err := s.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	m, err := New(ctx, s, logger)
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{sync: s, slot: slot, clock: fc, model: m}
	f.send(tea.WindowSizeMsg{Width: 80, Height: 24})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	next, cmd := f.model.Update(msg)
	f.model = next.(Model)
	return cmd
}

func (f *fixture) typeText(s string) {
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (f *fixture) key(t tea.KeyType) tea.Cmd {
	return f.send(tea.KeyMsg{Type: t})
}

func (f *fixture) texts() []string {
	var out []string
	for _, it := range f.sync.Entries() {
		out = append(out, it.Text)
	}
	return out
}

func TestNewRequiresSynchronizer(t *testing.T) {
	if _, err := New(context.Background(), nil, nil); !errors.Is(err, ErrMissingAnchor) {
		t.Fatalf("err = %v, want ErrMissingAnchor", err)
	}
}

func TestRestoredEntriesRendered(t *testing.T) {
	f := newFixture(t, `[{"text":"buy milk","completed":false},{"text":"call bob","completed":true}]`)
	items := f.model.list.Items()
	if len(items) != 2 {
		t.Fatalf("rendered %d items, want 2", len(items))
	}
	first, second := items[0].(listItem), items[1].(listItem)
	if first.Text != "buy milk" || first.Completed {
		t.Errorf("first = %+v", first.Item)
	}
	if second.Text != "call bob" || !second.Completed {
		t.Errorf("second = %+v", second.Item)
	}
	view := f.model.View()
	if !strings.Contains(view, "buy milk") || !strings.Contains(view, "call bob") {
		t.Errorf("view missing entries:\n%s", view)
	}
}

func TestEnterInInputSubmits(t *testing.T) {
	f := newFixture(t, "")
	f.typeText("test")
	f.key(tea.KeyEnter)

	if got := f.texts(); len(got) != 1 || got[0] != "test" {
		t.Fatalf("entries = %v, want [test]", got)
	}
	if f.model.input.Value() != "" {
		t.Errorf("input not cleared: %q", f.model.input.Value())
	}
	if len(f.model.list.Items()) != 1 {
		t.Errorf("list shows %d items, want 1", len(f.model.list.Items()))
	}
}

func TestEnterMatchesButton(t *testing.T) {
	viaEnter := newFixture(t, "")
	viaEnter.typeText("test")
	viaEnter.key(tea.KeyEnter)

	viaButton := newFixture(t, "")
	viaButton.typeText("test")
	viaButton.key(tea.KeyTab)
	if viaButton.model.focus != focusButton {
		t.Fatalf("focus = %v, want button", viaButton.model.focus)
	}
	viaButton.key(tea.KeyEnter)

	a, _ := viaEnter.slot.Get(context.Background(), "todos")
	b, _ := viaButton.slot.Get(context.Background(), "todos")
	if string(a) != string(b) {
		t.Errorf("enter stored %s, button stored %s", a, b)
	}
	if string(a) != `[{"text":"test","completed":false}]` {
		t.Errorf("stored %s", a)
	}
}

func TestBlankSubmitIgnored(t *testing.T) {
	f := newFixture(t, "")
	f.typeText("   ")
	f.key(tea.KeyEnter)
	if len(f.sync.Entries()) != 0 {
		t.Fatalf("blank text added an entry")
	}
	if f.slot.Writes() != 0 {
		t.Errorf("slot written %d times", f.slot.Writes())
	}
	if f.model.err != "" {
		t.Errorf("blank submit surfaced an error: %q", f.model.err)
	}
}

func TestQTypedIntoInput(t *testing.T) {
	f := newFixture(t, "")
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if f.model.input.Value() != "q" {
		t.Errorf("input = %q, want q", f.model.input.Value())
	}
}

func TestCompleteFromListThenRemoval(t *testing.T) {
	f := newFixture(t, `[{"text":"a","completed":false},{"text":"b","completed":false}]`)
	f.key(tea.KeyShiftTab) // input -> list
	if f.model.focus != focusList {
		t.Fatalf("focus = %v, want list", f.model.focus)
	}
	f.key(tea.KeyEnter)

	items := f.sync.Entries()
	if !items[0].Completed || !items[0].RemovalPending {
		t.Fatalf("first entry not completed: %+v", items[0])
	}
	raw, _ := f.slot.Get(context.Background(), "todos")
	if string(raw) != `[{"text":"a","completed":true},{"text":"b","completed":false}]` {
		t.Errorf("stored right after click: %s", raw)
	}

	f.clock.Advance(time.Second)
	f.send(changedMsg{})
	if got := f.texts(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("entries after delay = %v, want [b]", got)
	}
	if len(f.model.list.Items()) != 1 {
		t.Errorf("list shows %d items after removal", len(f.model.list.Items()))
	}
}

func TestReopenKey(t *testing.T) {
	f := newFixture(t, `[{"text":"a","completed":false}]`)
	f.key(tea.KeyShiftTab)
	f.key(tea.KeySpace)
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	f.clock.Advance(time.Minute)

	items := f.sync.Entries()
	if len(items) != 1 || items[0].Completed {
		t.Fatalf("entries = %+v, want one open entry", items)
	}
}

func TestQuitFromList(t *testing.T) {
	f := newFixture(t, "")
	f.key(tea.KeyShiftTab)
	cmd := f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("no command returned")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q on list did not quit")
	}
}

func TestMouseClickCompletesRow(t *testing.T) {
	f := newFixture(t, `[{"text":"a","completed":false},{"text":"b","completed":false}]`)
	_, _, _, listTop := f.model.layout()
	f.send(tea.MouseMsg{X: 6, Y: listTop + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	items := f.sync.Entries()
	if items[0].Completed || !items[1].Completed {
		t.Fatalf("click on second row completed wrong entry: %+v", items)
	}
}

func TestMouseClickOnButtonSubmits(t *testing.T) {
	f := newFixture(t, "")
	f.typeText("clicked")
	inputTop, _, buttonLeft, _ := f.model.layout()
	f.send(tea.MouseMsg{X: buttonLeft + 1, Y: inputTop + 1, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	if got := f.texts(); len(got) != 1 || got[0] != "clicked" {
		t.Fatalf("entries = %v, want [clicked]", got)
	}
}

func TestHeaderCounts(t *testing.T) {
	f := newFixture(t, `[{"text":"a","completed":true},{"text":"b","completed":false}]`)
	h := f.model.header()
	for _, want := range []string{"Todos", "1", "2"} {
		if !strings.Contains(h, want) {
			t.Errorf("header %q missing %q", h, want)
		}
	}
}

func TestProgressBarShown(t *testing.T) {
	f := newFixture(t, `[{"text":"a","completed":true},{"text":"b","completed":false}]`)
	if view := f.model.View(); !strings.Contains(view, " 50%") {
		t.Errorf("view missing progress percentage:\n%s", view)
	}
}

func TestFilterKeysGoToFilter(t *testing.T) {
	f := newFixture(t, `[{"text":"buy milk","completed":false},{"text":"call bob","completed":false}]`)
	f.key(tea.KeyShiftTab)
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !f.model.list.SettingFilter() {
		t.Fatal("/ on list did not start filtering")
	}

	// q and r are filter text here, not quit and reopen.
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if got := f.model.list.FilterValue(); got != "qr" {
		t.Errorf("filter = %q, want qr", got)
	}
	if !strings.Contains(f.model.View(), "/ qr") {
		t.Errorf("filter prompt not drawn:\n%s", f.model.View())
	}

	f.key(tea.KeyEsc)
	if f.model.list.FilterState() != list.Unfiltered {
		t.Errorf("filter state = %v after esc, want unfiltered", f.model.list.FilterState())
	}
	if f.model.focus != focusList {
		t.Errorf("focus = %v, want list", f.model.focus)
	}
}

func TestCompleteInFilteredList(t *testing.T) {
	f := newFixture(t, `[{"text":"buy milk","completed":false},{"text":"call bob","completed":false}]`)
	f.key(tea.KeyShiftTab)
	f.model.list.SetFilterText("bob")
	if n := len(f.model.list.VisibleItems()); n != 1 {
		t.Fatalf("visible = %d, want 1", n)
	}
	if !strings.Contains(f.model.View(), "filter: bob") {
		t.Errorf("applied filter not shown:\n%s", f.model.View())
	}

	f.key(tea.KeyEnter)
	items := f.sync.Entries()
	if items[0].Completed || !items[1].Completed {
		t.Fatalf("enter on filtered row completed wrong entry: %+v", items)
	}
	if !f.model.list.IsFiltered() {
		t.Error("filter dropped by refresh")
	}

	// esc clears the filter instead of quitting.
	f.key(tea.KeyEsc)
	if f.model.list.IsFiltered() {
		t.Error("esc did not clear the filter")
	}
	if n := len(f.model.list.VisibleItems()); n != 2 {
		t.Errorf("visible = %d after clearing, want 2", n)
	}
}
