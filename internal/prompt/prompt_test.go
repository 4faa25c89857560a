package prompt

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"vaspsweep/internal/layout"
)

func press(m model, keys ...tea.KeyMsg) model {
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelAnswers(t *testing.T) {
	tests := []struct {
		typed    string
		key      tea.KeyType
		answered bool
		yes      bool
	}{
		{"y", tea.KeyEnter, true, true},
		{"YES", tea.KeyEnter, true, true},
		{"n", tea.KeyEnter, true, false},
		{"", tea.KeyEnter, true, false},
		{"y", tea.KeyEsc, false, false},
		{"y", tea.KeyCtrlC, false, false},
	}
	for _, tc := range tests {
		m := newModel("overwrite?", "")
		if tc.typed != "" {
			m = press(m, runes(tc.typed))
		}
		m = press(m, tea.KeyMsg{Type: tc.key})
		if m.answered != tc.answered || m.yes != tc.yes {
			t.Errorf("typed %q then %v: answered=%v yes=%v", tc.typed, tc.key, m.answered, m.yes)
		}
	}
}

func TestModelView(t *testing.T) {
	m := newModel("run/a exists. Do you want to continue? (y/n):", "--- a/INCAR\n+++ b/INCAR\n@@ -1 +1 @@\n-ENCUT = 300\n+ENCUT = 400\n")
	v := m.View()
	for _, want := range []string{"run/a exists", "ENCUT = 300", "ENCUT = 400", "a/INCAR"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q:\n%s", want, v)
		}
	}
	m = press(m, runes("y"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.View() != "" {
		t.Errorf("view after answer = %q", m.View())
	}
}

func TestConfirmReadsInput(t *testing.T) {
	c := Confirmer{In: strings.NewReader("y\r"), Out: io.Discard, Timeout: 5 * time.Second}
	ok, err := c.Confirm(context.Background(), layout.Destination{Name: "a", Path: "run/a"}, "")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !ok {
		t.Error("expected confirmation")
	}
}

func TestConfirmTimeout(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { w.Close() })
	c := Confirmer{In: r, Out: io.Discard, Timeout: 50 * time.Millisecond}
	ok, err := c.Confirm(context.Background(), layout.Destination{Name: "a", Path: "run/a"}, "")
	if ok {
		t.Error("a timed out prompt must not confirm")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
