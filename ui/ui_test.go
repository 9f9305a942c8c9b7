package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/transcript/internal/types"
)

func press(m promptModel, key tea.KeyMsg) (promptModel, tea.Cmd) {
	next, cmd := m.Update(key)
	return next.(promptModel), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPromptContinue(t *testing.T) {
	m := promptModel{kind: promptContinue, lines: []string{"Log in"}, hint: "Press Enter"}
	assert.Contains(t, m.View(), "Press Enter")

	m, cmd := press(m, runes("y"))
	assert.False(t, m.answered, "only enter continues")
	assert.Nil(t, cmd)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.answered)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		name    string
		key     tea.KeyMsg
		yes     bool
		aborted bool
	}{
		{name: "yes", key: runes("y"), yes: true},
		{name: "upper yes", key: runes("Y"), yes: true},
		{name: "no", key: runes("n")},
		{name: "enter defaults to no", key: tea.KeyMsg{Type: tea.KeyEnter}},
		{name: "ctrl+c aborts", key: tea.KeyMsg{Type: tea.KeyCtrlC}, aborted: true},
		{name: "esc aborts", key: tea.KeyMsg{Type: tea.KeyEsc}, aborted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(promptModel{kind: promptYesNo}, tt.key)
			assert.Equal(t, tt.yes, m.yes)
			assert.Equal(t, tt.aborted, m.aborted)
			assert.NotNil(t, cmd)
		})
	}
}

func TestResultsTable(t *testing.T) {
	table := NewResultsTable(100)
	assert.Contains(t, table.View(), "No lectures scraped")

	table.AddResult(LectureResult{URL: "https://cokac.com/lecture/1", Cues: 120, Chars: 5400, Reason: types.ReasonOK})
	table.AddResult(LectureResult{URL: "https://cokac.com/lecture/2", Reason: types.ReasonNoTranscript})
	table.AddResult(LectureResult{URL: "https://cokac.com/lecture/3", Error: "access to lecture denied"})

	view := table.View()
	assert.Contains(t, view, "https://cokac.com/lecture/1")
	assert.Contains(t, view, "5400")
	assert.Contains(t, view, "no_transcript")
	assert.Contains(t, view, "access to lecture denied")
	assert.Contains(t, view, "Lectures: 3 | Saved: 1 | Empty: 1 | Errors: 1")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "강의 자...", truncate("강의 자막 수집기", 7))
}
