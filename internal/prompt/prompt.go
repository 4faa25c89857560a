// Package prompt asks on the terminal whether an existing bundle may be
// overwritten.
package prompt

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vaspsweep/internal/layout"
)

var (
	questionStyle = lipgloss.NewStyle().Bold(true)
	addStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hunkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// model asks one yes/no question below an optional diff preview.
type model struct {
	question string
	preview  string
	input    textinput.Model
	answered bool
	yes      bool
}

func newModel(question, preview string) model {
	ti := textinput.New()
	ti.Placeholder = "y/n"
	ti.CharLimit = 8
	ti.Focus()
	return model{question: question, preview: preview, input: ti}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			m.answered = true
			m.yes = accepts(m.input.Value())
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.answered {
		return ""
	}
	var b strings.Builder
	if m.preview != "" {
		b.WriteString(colorDiff(m.preview))
	}
	fmt.Fprintf(&b, "%s %s\n", questionStyle.Render(m.question), m.input.View())
	return b.String()
}

func accepts(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func colorDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")
	for i, l := range lines {
		switch {
		case strings.HasPrefix(l, "+++"), strings.HasPrefix(l, "---"):
		case strings.HasPrefix(l, "@@"):
			lines[i] = hunkStyle.Render(strings.TrimSuffix(l, "\n")) + "\n"
		case strings.HasPrefix(l, "+"):
			lines[i] = addStyle.Render(strings.TrimSuffix(l, "\n")) + "\n"
		case strings.HasPrefix(l, "-"):
			lines[i] = delStyle.Render(strings.TrimSuffix(l, "\n")) + "\n"
		}
	}
	return strings.Join(lines, "")
}

// Confirmer asks on a terminal. Leaving the prompt with Esc or Ctrl+C is a
// refusal; so is anything but y or yes.
type Confirmer struct {
	In  io.Reader
	Out io.Writer
	// Timeout bounds each question; zero waits indefinitely.
	Timeout time.Duration
}

// Confirm implements layout.Confirmer. An expired timeout is returned as the
// context error.
func (c Confirmer) Confirm(ctx context.Context, dest layout.Destination, preview string) (bool, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	m := newModel(fmt.Sprintf("%s exists. Do you want to continue? (y/n):", dest.Path), preview)
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.In != nil {
		opts = append(opts, tea.WithInput(c.In))
	}
	if c.Out != nil {
		opts = append(opts, tea.WithOutput(c.Out))
	}
	result, err := tea.NewProgram(m, opts...).Run()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	final, ok := result.(model)
	if !ok || !final.answered {
		return false, nil
	}
	return final.yes, nil
}
