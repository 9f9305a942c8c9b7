package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/types"
)

// Shape is a recognised transcript payload layout.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeCues
	ShapeItems
	ShapeTranscript
)

func (s Shape) String() string {
	switch s {
	case ShapeCues:
		return "cues"
	case ShapeItems:
		return "items"
	case ShapeTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

type shapeSpec struct {
	key        string
	source     string
	timeFields []string
}

var shapes = map[Shape]shapeSpec{
	ShapeCues:       {key: "cues", source: types.SourceAPICues, timeFields: []string{"start", "time"}},
	ShapeItems:      {key: "items", source: types.SourceAPIItems, timeFields: []string{"timestamp", "time"}},
	ShapeTranscript: {key: "transcript", source: types.SourceAPITranscript, timeFields: []string{"timestamp", "time"}},
}

// DetectShape checks for the cues, items and transcript keys in that order.
// A key only counts when it holds an array.
func DetectShape(obj map[string]interface{}) (Shape, []interface{}) {
	for _, s := range []Shape{ShapeCues, ShapeItems, ShapeTranscript} {
		if arr, ok := obj[shapes[s].key].([]interface{}); ok {
			return s, arr
		}
	}
	return ShapeUnknown, nil
}

// FromShape turns the entries of a recognised array into raw cues.
// Entries without text are dropped.
func FromShape(s Shape, entries []interface{}) []types.RawCue {
	spec, ok := shapes[s]
	if !ok {
		return nil
	}

	var cues []types.RawCue
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		text := strings.TrimSpace(scalar(entry["text"]))
		if text == "" {
			continue
		}

		var ts string
		for _, field := range spec.timeFields {
			if ts = strings.TrimSpace(scalar(entry[field])); ts != "" {
				break
			}
		}

		cues = append(cues, types.RawCue{
			Index:      len(cues),
			Text:       text,
			Timestamp:  ts,
			SourceKind: spec.source,
		})
	}
	return cues
}

// FromResponses extracts raw cues from every captured response: JSON objects
// by shape, text bodies as subtitle files. Indexes run across all responses.
func FromResponses(responses []types.CapturedResponse) []types.RawCue {
	var all []types.RawCue
	for _, r := range responses {
		var cues []types.RawCue
		switch p := r.Payload.(type) {
		case map[string]interface{}:
			shape, entries := DetectShape(p)
			if shape == ShapeUnknown {
				log.Debug("captured payload has no known shape", "url", r.URL)
				continue
			}
			cues = FromShape(shape, entries)
			log.Debug("payload decoded", "url", r.URL, "shape", shape, "cues", len(cues))
		case string:
			if !LooksLikeSubtitles(p) {
				continue
			}
			cues = ParseSubtitles(p)
			log.Debug("subtitle file decoded", "url", r.URL, "cues", len(cues))
		}

		for _, c := range cues {
			c.Index = len(all)
			all = append(all, c)
		}
	}
	return all
}

func scalar(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
