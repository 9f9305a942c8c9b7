package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/go-scripts/transcript/internal/types"
)

// longCue is the length after which the text artifact adds a blank line.
const longCue = 100

// Paths are the two files written for one scrape.
type Paths struct {
	Structured string
	Text       string
}

// FileWriter writes scrape results to an output directory. Files are never
// overwritten: every call creates a new pair.
type FileWriter struct {
	outputDir string
}

// New creates a new FileWriter instance
func New(outputDir string) (*FileWriter, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &FileWriter{outputDir: outputDir}, nil
}

// document is the structured artifact.
type document struct {
	LectureURL          string                 `json:"lecture_url"`
	LectureID           string                 `json:"lecture_id"`
	ScrapedAt           time.Time              `json:"scraped_at"`
	CueCount            int                    `json:"cue_count"`
	TotalChars          int                    `json:"total_chars"`
	TotalWords          int                    `json:"total_words"`
	SourcesUsed         []string               `json:"sources_used"`
	Cues                []types.Cue            `json:"cues"`
	RawAPIResponseCount int                    `json:"raw_api_response_count"`
	ConfigSnapshot      map[string]interface{} `json:"config_snapshot"`
	RunID               string                 `json:"run_id"`
	Language            string                 `json:"language,omitempty"`
}

// Persist writes the structured and text artifacts for result.
func (w *FileWriter) Persist(result types.ScrapeResult, snapshot map[string]interface{}) (Paths, error) {
	doc := document{
		LectureURL:          result.LectureURL,
		LectureID:           result.LectureID,
		ScrapedAt:           result.ScrapedAt,
		CueCount:            len(result.Cues),
		TotalChars:          result.TotalChars,
		TotalWords:          result.TotalWords,
		SourcesUsed:         result.SourcesUsed,
		Cues:                result.Cues,
		RawAPIResponseCount: result.RawAPIResponseCount,
		ConfigSnapshot:      snapshot,
		RunID:               uuid.NewString(),
		Language:            detectLanguage(result.Cues),
	}
	if doc.Cues == nil {
		doc.Cues = []types.Cue{}
	}

	structured, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("failed to encode result: %w", err)
	}
	text := renderText(result)

	stem := fmt.Sprintf("transcript_%s_%s", sanitizeFilename(result.LectureID), result.ScrapedAt.Format("20060102_150405"))
	for attempt := 1; ; attempt++ {
		name := stem
		if attempt > 1 {
			name = fmt.Sprintf("%s_%d", stem, attempt)
		}
		paths := Paths{
			Structured: filepath.Join(w.outputDir, name+".json"),
			Text:       filepath.Join(w.outputDir, name+".txt"),
		}

		err := writeNew(paths.Structured, structured)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return Paths{}, err
		}
		if err := writeNew(paths.Text, text); err != nil {
			os.Remove(paths.Structured)
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			return Paths{}, err
		}

		log.Info("transcript saved", "json", paths.Structured, "txt", paths.Text, "cues", doc.CueCount, "chars", doc.TotalChars, "run", doc.RunID)
		return paths, nil
	}
}

// writeNew creates path exclusively and writes data to it.
func writeNew(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func renderText(r types.ScrapeResult) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "Lecture URL: %s\n", r.LectureURL)
	fmt.Fprintf(&b, "Lecture ID: %s\n", r.LectureID)
	fmt.Fprintf(&b, "Scraped at: %s\n", r.ScrapedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Cues: %d\n", len(r.Cues))
	fmt.Fprintf(&b, "Characters: %d\n", r.TotalChars)
	fmt.Fprintf(&b, "Words: %d\n", r.TotalWords)
	b.WriteString(strings.Repeat("=", 80) + "\n\n")

	for i, c := range r.Cues {
		ts := ""
		if c.Timestamp != "" {
			ts = "[" + c.Timestamp + "] "
		}
		fmt.Fprintf(&b, "%3d. %s%s\n", i+1, ts, c.Text)
		if c.CharLength > longCue {
			b.WriteString("\n")
		}
	}
	return []byte(b.String())
}

func detectLanguage(cues []types.Cue) string {
	if len(cues) == 0 {
		return ""
	}
	var b strings.Builder
	for _, c := range cues {
		if b.Len() > 4096 {
			break
		}
		b.WriteString(c.Text)
		b.WriteByte(' ')
	}
	return whatlanggo.DetectLang(b.String()).Iso6391()
}

var lectureIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/lec[^/\d]*(\d+)`),
	regexp.MustCompile(`/lecture[/_](\d+)`),
	regexp.MustCompile(`/course[/_](\d+)`),
	regexp.MustCompile(`[/_](\d+)/?$`),
}

var trailingID = regexp.MustCompile(`/(\w+/)?(\d+)/?$`)

// LectureID derives a stable id from a lecture URL: a trailing numeric path
// segment, then lecture/course style segments, then the last path segment.
func LectureID(rawURL string) string {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}

	if m := trailingID.FindStringSubmatch(u); m != nil {
		return m[2]
	}
	for _, re := range lectureIDPatterns {
		if m := re.FindStringSubmatch(u); m != nil {
			return m[1]
		}
	}

	last := u[strings.LastIndex(u, "/")+1:]
	if last == "" {
		return "unknown"
	}
	return sanitizeFilename(last)
}

// sanitizeFilename replaces characters that are unsafe in file names.
func sanitizeFilename(s string) string {
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", " "}
	for _, char := range unsafe {
		s = strings.ReplaceAll(s, char, "_")
	}
	return s
}
