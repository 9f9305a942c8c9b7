package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/transcript/internal/types"
)

// LectureResult is one row of the batch summary.
type LectureResult struct {
	URL    string
	Cues   int
	Chars  int
	Reason types.Reason
	File   string
	Error  string
}

// ResultsTable renders the outcome of a batch of scrapes.
type ResultsTable struct {
	results     []LectureResult
	width       int
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	style       lipgloss.Style
}

// NewResultsTable creates a new results table
func NewResultsTable(width int) *ResultsTable {
	return &ResultsTable{
		results: make([]LectureResult, 0),
		width:   width,
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		cellStyle: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		style: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")),
	}
}

// AddResult adds a new lecture result
func (t *ResultsTable) AddResult(result LectureResult) {
	t.results = append(t.results, result)
}

// View renders the table
func (t *ResultsTable) View() string {
	if len(t.results) == 0 {
		return t.style.Render(infoStyle.Render("No lectures scraped"))
	}

	urlWidth := min(48, max(20, t.width/2))

	header := t.headerStyle.Render(fmt.Sprintf(
		"%-*s %6s %8s %-16s",
		urlWidth, "Lecture",
		"Cues",
		"Chars",
		"Status",
	))

	var rows []string
	for _, result := range t.results {
		status := string(result.Reason)
		if result.Error != "" {
			status = truncate(result.Error, 40)
		}

		row := t.cellStyle.Render(fmt.Sprintf(
			"%-*s %6d %8d %-16s",
			urlWidth, truncate(result.URL, urlWidth),
			result.Cues,
			result.Chars,
			status,
		))

		switch {
		case result.Error != "":
			row = errorStyle.Render(row)
		case result.Reason != types.ReasonOK:
			row = warningStyle.Render(row)
		default:
			row = okStyle.Render(row)
		}
		rows = append(rows, row)
	}

	stats := fmt.Sprintf(
		"Lectures: %d | Saved: %d | Empty: %d | Errors: %d",
		len(t.results),
		t.count(func(r LectureResult) bool { return r.Error == "" && r.Reason == types.ReasonOK }),
		t.count(func(r LectureResult) bool { return r.Error == "" && r.Reason != types.ReasonOK }),
		t.count(func(r LectureResult) bool { return r.Error != "" }),
	)

	return t.style.Render(
		header + "\n" + strings.Join(rows, "\n") + "\n\n" + infoStyle.Render(stats),
	)
}

func (t *ResultsTable) count(match func(LectureResult) bool) int {
	n := 0
	for _, r := range t.results {
		if match(r) {
			n++
		}
	}
	return n
}

func truncate(s string, w int) string {
	if len([]rune(s)) <= w {
		return s
	}
	return string([]rune(s)[:w-3]) + "..."
}
