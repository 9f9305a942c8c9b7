package extract

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/go-scripts/transcript/internal/types"
)

// RangeMarker separates start and end time on a subtitle timing line.
const RangeMarker = "-->"

var blockSep = regexp.MustCompile(`\n\s*\n`)

// LooksLikeSubtitles reports whether a text payload is an SRT or VTT file.
func LooksLikeSubtitles(s string) bool {
	return strings.Contains(s, RangeMarker)
}

// ParseSubtitles splits an SRT/VTT body into blank-line separated blocks and
// emits one cue per block that has a timing line and at least one text line.
// Numeric cue identifiers are skipped and the remaining lines are joined
// with a space. The timestamp is the start of the timing line's range.
func ParseSubtitles(body string) []types.RawCue {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	body = strings.TrimSpace(body)
	if body == "" {
		return nil
	}

	var cues []types.RawCue
	for _, block := range blockSep.Split(body, -1) {
		var (
			timing string
			text   []string
		)
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case strings.Contains(line, RangeMarker):
				timing = line
			case isDigits(line):
			default:
				if t := stripMarkup(line); t != "" {
					text = append(text, t)
				}
			}
		}
		if timing == "" || len(text) == 0 {
			continue
		}

		start, _, _ := strings.Cut(timing, RangeMarker)
		cues = append(cues, types.RawCue{
			Index:      len(cues),
			Text:       strings.Join(text, " "),
			Timestamp:  strings.TrimSpace(start),
			SourceKind: types.SourceSubtitleFile,
		})
	}
	return cues
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// stripMarkup drops VTT voice/class tags and inline HTML such as <b>, keeping
// only the text content.
func stripMarkup(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
