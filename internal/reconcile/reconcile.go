// Package reconcile merges DOM and API cue lists into one clean transcript.
package reconcile

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/types"
)

// Options tune the merge. The defaults come from config.Defaults.
type Options struct {
	// PrimaryRatio is how many times larger the API list must be than the
	// DOM list before the API list is used as primary.
	PrimaryRatio float64
	// NoiseFloor is the length, in characters, a cue must exceed to be kept.
	NoiseFloor int
}

// Primary names the list the merged output was built from.
type Primary string

const (
	PrimaryDOM Primary = "dom"
	PrimaryAPI Primary = "api"
)

// Outcome is the result of Merge.
type Outcome struct {
	Cues    []types.Cue
	Primary Primary
	// Sources is every source kind that fed the merge, sorted.
	Sources []string
}

// SelectPrimary reports which list wins for the given sizes. The API list
// wins only when it is strictly larger than dom*ratio.
func SelectPrimary(dom, api int, ratio float64) Primary {
	if float64(api) > float64(dom)*ratio {
		return PrimaryAPI
	}
	return PrimaryDOM
}

// Merge picks a primary list, copies missing timestamps onto it from the
// other list, drops duplicates and short fragments, and re-indexes.
// The inputs are not modified.
func Merge(dom, api []types.RawCue, opts Options) Outcome {
	primary := SelectPrimary(len(dom), len(api), opts.PrimaryRatio)

	base, secondary := dom, api
	if primary == PrimaryAPI {
		base, secondary = api, dom
	}
	merged := make([]types.RawCue, len(base))
	copy(merged, base)

	enriched := enrich(merged, secondary)
	cues := clean(merged, opts.NoiseFloor)

	sources := make([]string, 0, len(dom)+len(api))
	for _, c := range dom {
		sources = append(sources, sourceOf(c))
	}
	for _, c := range api {
		sources = append(sources, sourceOf(c))
	}

	log.Debug("transcript reconciled",
		"primary", primary,
		"dom", len(dom),
		"api", len(api),
		"enriched", enriched,
		"kept", len(cues),
		"dropped", len(merged)-len(cues),
	)

	return Outcome{Cues: cues, Primary: primary, Sources: types.SortedSet(sources)}
}

// enrich gives each secondary cue with a timestamp one chance to fill in the
// first similar primary cue. It returns how many timestamps were copied.
func enrich(primary, secondary []types.RawCue) int {
	n := 0
	for _, s := range secondary {
		for i := range primary {
			if !Similar(s.Text, primary[i].Text) {
				continue
			}
			if primary[i].Timestamp == "" && s.Timestamp != "" {
				primary[i].Timestamp = s.Timestamp
				n++
			}
			break
		}
	}
	return n
}

func clean(merged []types.RawCue, noiseFloor int) []types.Cue {
	seen := make(map[string]bool, len(merged))
	out := make([]types.Cue, 0, len(merged))
	for _, c := range merged {
		text := strings.TrimSpace(c.Text)
		if text == "" || seen[text] || utf8.RuneCountInString(text) <= noiseFloor {
			continue
		}
		seen[text] = true
		out = append(out, types.Cue{
			Index:      len(out),
			Text:       text,
			Timestamp:  NormalizeTimestamp(c.Timestamp),
			Source:     sourceOf(c),
			CharLength: utf8.RuneCountInString(text),
			WordCount:  len(strings.Fields(text)),
		})
	}
	return out
}

func sourceOf(c types.RawCue) string {
	if c.SourceKind == "" {
		return types.SourceDOM
	}
	return c.SourceKind
}

// Similar reports whether a and b are the same sentence once punctuation and
// case are ignored, or one contains the other. Text that is empty after
// cleaning never matches.
func Similar(a, b string) bool {
	ca, cb := simplify(a), simplify(b)
	if ca == "" || cb == "" {
		return false
	}
	if ca == cb {
		return true
	}
	if len(ca) > len(cb) {
		return strings.Contains(ca, cb)
	}
	return strings.Contains(cb, ca)
}

func simplify(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

var (
	clockFormat = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	rawSeconds  = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// NormalizeTimestamp leaves M:SS, MM:SS and H:MM:SS untouched, turns a bare
// number of seconds into MM:SS and passes anything else through trimmed.
func NormalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" || clockFormat.MatchString(ts) || !rawSeconds.MatchString(ts) {
		return ts
	}
	secs, err := strconv.ParseFloat(ts, 64)
	if err != nil || math.IsInf(secs, 0) || secs > math.MaxInt32 {
		return ts
	}
	whole := int(secs)
	return fmt.Sprintf("%02d:%02d", whole/60, whole%60)
}
