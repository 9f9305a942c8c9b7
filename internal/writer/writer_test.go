package writer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/transcript/internal/types"
)

func TestLectureID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cokac.com/lecture/123", "123"},
		{"https://cokac.com/courses/python/456/", "456"},
		{"https://cokac.com/789?autoplay=1", "789"},
		{"https://cokac.com/lec12/intro", "12"},
		{"https://cokac.com/lecture_45/play", "45"},
		{"https://cokac.com/course_7/overview", "7"},
		{"https://cokac.com/watch_99", "99"},
		{"https://cokac.com/courses/abc/lessons/intro", "intro"},
		{"https://cokac.com/", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, LectureID(tt.url))
		})
	}
}

func sampleResult() types.ScrapeResult {
	long := strings.Repeat("긴 문장입니다 ", 20)
	cues := []types.Cue{
		{Index: 0, Text: "오늘은 트랜스크립트 수집에 대해 이야기합니다", Timestamp: "00:05", Source: types.SourceDOM, CharLength: 24, WordCount: 4},
		{Index: 1, Text: strings.TrimSpace(long), Source: types.SourceAPICues, CharLength: 139, WordCount: 40},
		{Index: 2, Text: "마지막으로 결과를 파일로 저장합니다", Timestamp: "01:10", Source: types.SourceDOM, CharLength: 19, WordCount: 4},
	}
	r := types.NewScrapeResult("https://cokac.com/lecture/123", "123", cues, []string{"dom", "api_cues"}, 2)
	r.ScrapedAt = time.Date(2026, 10, 19, 9, 30, 15, 0, time.UTC)
	return r
}

func TestPersist(t *testing.T) {
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "out"))
	require.NoError(t, err)

	paths, err := w.Persist(sampleResult(), map[string]interface{}{"headless": true})
	require.NoError(t, err)

	assert.Equal(t, "transcript_123_20261019_093015.json", filepath.Base(paths.Structured))
	assert.Equal(t, "transcript_123_20261019_093015.txt", filepath.Base(paths.Text))

	raw, err := os.ReadFile(paths.Structured)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "https://cokac.com/lecture/123", doc["lecture_url"])
	assert.Equal(t, "123", doc["lecture_id"])
	assert.EqualValues(t, 3, doc["cue_count"])
	assert.EqualValues(t, 182, doc["total_chars"])
	assert.EqualValues(t, 2, doc["raw_api_response_count"])
	assert.Equal(t, []interface{}{"api_cues", "dom"}, doc["sources_used"])
	assert.Equal(t, map[string]interface{}{"headless": true}, doc["config_snapshot"])
	assert.Equal(t, "ko", doc["language"])
	_, err = uuid.Parse(doc["run_id"].(string))
	assert.NoError(t, err)

	text, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	lines := strings.Split(string(text), "\n")
	assert.Equal(t, "Lecture URL: https://cokac.com/lecture/123", lines[0])
	assert.Equal(t, strings.Repeat("=", 80), lines[6])
	assert.Equal(t, "  1. [00:05] 오늘은 트랜스크립트 수집에 대해 이야기합니다", lines[8])
	assert.True(t, strings.HasPrefix(lines[9], "  2. 긴 문장입니다"))
	assert.Equal(t, "", lines[10], "long cues are followed by a blank line")
	assert.Equal(t, "  3. [01:10] 마지막으로 결과를 파일로 저장합니다", lines[11])
}

func TestPersistNeverOverwrites(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	first, err := w.Persist(sampleResult(), nil)
	require.NoError(t, err)
	second, err := w.Persist(sampleResult(), nil)
	require.NoError(t, err)

	assert.NotEqual(t, first.Structured, second.Structured)
	assert.Equal(t, "transcript_123_20261019_093015_2.txt", filepath.Base(second.Text))
	assert.FileExists(t, first.Text)
}

func TestPersistEmpty(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)

	r := types.NewScrapeResult("https://cokac.com/lecture/9", "9", nil, nil, 0)
	paths, err := w.Persist(r, nil)
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.Structured)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"cues": []`)
	assert.NotContains(t, string(raw), `"language"`)
}
