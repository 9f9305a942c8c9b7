package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"

	"github.com/go-scripts/transcript/internal/scroll"
)

// Tracker shows a spinner while a lecture is scraped, with a bar for the
// scroll budget, and a batch counter between lectures.
type Tracker struct {
	out        io.Writer
	bar        progress.Model
	spin       *spinner.Spinner
	maxScrolls int
	total      int
	processed  int
	mu         sync.Mutex
}

// New creates a Tracker writing to out. maxScrolls scales the scroll bar.
func New(out io.Writer, maxScrolls int) *Tracker {
	return &Tracker{
		out:        out,
		bar:        progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		spin:       spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out)),
		maxScrolls: maxScrolls,
	}
}

// SetTotal sets the number of lectures in the batch.
func (p *Tracker) SetTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
}

// StartLecture starts the spinner for url.
func (p *Tracker) StartLecture(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin.Lock()
	p.spin.Suffix = " " + url
	p.spin.Unlock()
	p.spin.Start()
}

// OnScroll matches scroll.Config.OnStep.
func (p *Tracker) OnScroll(attempt int, s scroll.Signals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin.Lock()
	p.spin.Suffix = " " + p.scrollLine(attempt, s.CueCount)
	p.spin.Unlock()
}

func (p *Tracker) scrollLine(attempt, cues int) string {
	frac := 0.0
	if p.maxScrolls > 0 {
		frac = float64(attempt) / float64(p.maxScrolls)
	}
	if frac > 1 {
		frac = 1
	}
	return fmt.Sprintf("scrolling %s %d/%d, %d cues", p.bar.ViewAs(frac), attempt, p.maxScrolls, cues)
}

// FinishLecture stops the spinner and advances the batch counter.
func (p *Tracker) FinishLecture() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin.Stop()
	p.processed++
	if p.total > 1 {
		fmt.Fprintf(p.out, "Progress: %s %d/%d lectures\n",
			p.bar.ViewAs(float64(p.processed)/float64(p.total)),
			p.processed,
			p.total)
	}
}

// Processed returns how many lectures have finished.
func (p *Tracker) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}
