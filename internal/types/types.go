package types

import (
	"sort"
	"time"
)

// Source kinds a cue can originate from.
const (
	SourceDOM           = "dom"
	SourceAPICues       = "api_cues"
	SourceAPIItems      = "api_items"
	SourceAPITranscript = "api_transcript"
	SourceSubtitleFile  = "subtitle_file"
)

// Reason explains why a scrape produced the cues it did.
type Reason string

const (
	ReasonOK              Reason = "ok"
	ReasonNoTranscript    Reason = "no_transcript"
	ReasonExtractionEmpty Reason = "extraction_empty"
)

// CapturedResponse is one network payload picked up while a lecture page loads.
// Payload holds the decoded JSON value for JSON responses and a string otherwise.
type CapturedResponse struct {
	URL         string      `json:"url"`
	ContentType string      `json:"content_type"`
	Payload     interface{} `json:"payload"`
	CapturedAt  time.Time   `json:"captured_at"`
}

// RawCue is an extracted, not yet reconciled unit of transcript text.
type RawCue struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp,omitempty"`
	SourceKind   string `json:"source"`
	ElementClass string `json:"element_class,omitempty"`
	ParentClass  string `json:"parent_class,omitempty"`
}

// Cue is a reconciled transcript line.
type Cue struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp"`
	Source     string `json:"source"`
	CharLength int    `json:"char_length"`
	WordCount  int    `json:"word_count"`
}

// ScrapeResult is the outcome of scraping a single lecture page.
type ScrapeResult struct {
	LectureURL          string    `json:"lecture_url"`
	LectureID           string    `json:"lecture_id"`
	ScrapedAt           time.Time `json:"scraped_at"`
	Cues                []Cue     `json:"cues"`
	TotalChars          int       `json:"total_chars"`
	TotalWords          int       `json:"total_words"`
	SourcesUsed         []string  `json:"sources_used"`
	RawAPIResponseCount int       `json:"raw_api_response_count"`
	Reason              Reason    `json:"-"`
}

// NewScrapeResult fills in the aggregate counters for cues.
func NewScrapeResult(lectureURL, lectureID string, cues []Cue, sources []string, rawAPI int) ScrapeResult {
	r := ScrapeResult{
		LectureURL:          lectureURL,
		LectureID:           lectureID,
		ScrapedAt:           time.Now(),
		Cues:                cues,
		SourcesUsed:         SortedSet(sources),
		RawAPIResponseCount: rawAPI,
		Reason:              ReasonOK,
	}
	for _, c := range cues {
		r.TotalChars += c.CharLength
		r.TotalWords += c.WordCount
	}
	if len(cues) == 0 {
		r.Reason = ReasonExtractionEmpty
	}
	return r
}

// SortedSet returns the distinct non-empty values of in, sorted.
func SortedSet(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
