package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-scripts/transcript/internal/session"
)

type promptKind int

const (
	promptContinue promptKind = iota
	promptYesNo
)

// promptModel is a single question answered with one key press.
type promptModel struct {
	kind     promptKind
	lines    []string
	hint     string
	answered bool
	yes      bool
	aborted  bool
}

func (m promptModel) Init() tea.Cmd {
	return nil
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}

	switch m.kind {
	case promptContinue:
		if key.String() == "enter" {
			m.answered = true
			return m, tea.Quit
		}
	case promptYesNo:
		switch strings.ToLower(key.String()) {
		case "y":
			m.answered, m.yes = true, true
			return m, tea.Quit
		case "n", "enter":
			m.answered = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m promptModel) View() string {
	if m.answered || m.aborted {
		return ""
	}
	var b strings.Builder
	for i, line := range m.lines {
		if i == 0 {
			b.WriteString(titleStyle.Render(line))
		} else {
			b.WriteString(" " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString(infoStyle.Render(" "+m.hint) + "\n")
	return borderStyle.Render(b.String()) + "\n"
}

// Prompt asks the user to confirm the manual login in the terminal. It
// implements session.Acknowledger. Nil In and Out mean the terminal.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

func (p Prompt) ask(ctx context.Context, m promptModel) (promptModel, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		return m, err
	}
	res, ok := final.(promptModel)
	if !ok {
		return m, fmt.Errorf("unexpected prompt model %T", final)
	}
	if res.aborted {
		return res, session.ErrLoginAborted
	}
	return res, nil
}

func (p Prompt) AwaitLogin(ctx context.Context, loginURL string) error {
	_, err := p.ask(ctx, promptModel{
		kind: promptContinue,
		lines: []string{
			"Log in with your Google account in the browser window",
			loginURL,
			"Finish every OAuth step until the course page is visible.",
		},
		hint: "Press Enter when you are logged in (Esc to cancel)",
	})
	return err
}

func (p Prompt) ConfirmRetry(ctx context.Context) (bool, error) {
	res, err := p.ask(ctx, promptModel{
		kind: promptYesNo,
		lines: []string{
			"Login was not detected",
			"The page still looks signed out. You can keep going in the browser.",
		},
		hint: "Wait a little longer and check again? [y/N]",
	})
	if err != nil {
		return false, err
	}
	return res.yes, nil
}

var _ session.Acknowledger = Prompt{}
