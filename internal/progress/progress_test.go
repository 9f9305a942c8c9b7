package progress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-scripts/transcript/internal/scroll"
)

func TestScrollLine(t *testing.T) {
	p := New(&bytes.Buffer{}, 50)

	line := p.scrollLine(10, 42)
	assert.Contains(t, line, "10/50")
	assert.Contains(t, line, "42 cues")
	assert.Contains(t, p.scrollLine(80, 1), "80/50", "bar is clamped but the count is not")
}

func TestTrackerBatch(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 50)
	p.SetTotal(2)

	p.StartLecture("https://cokac.com/lecture/1")
	p.OnScroll(1, scroll.Signals{Height: 900, CueCount: 12})
	p.FinishLecture()
	p.StartLecture("https://cokac.com/lecture/2")
	p.FinishLecture()

	assert.Equal(t, 2, p.Processed())
	assert.Contains(t, out.String(), "1/2 lectures")
	assert.Contains(t, out.String(), "2/2 lectures")
}
