package scroll

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/browser"
)

// Signals is one observation of the scroll container.
type Signals struct {
	Height   int  `json:"height"`
	CueCount int  `json:"cues"`
	AtBottom bool `json:"at_bottom"`
}

// Target is a scrollable region of a page.
type Target interface {
	ScrollBy(ctx context.Context, px int) error
	Sample(ctx context.Context) (Signals, error)
}

// Config bounds the loader. OnStep, if set, is called after every sample.
type Config struct {
	MaxAttempts   int
	Step          int
	Delay         time.Duration
	IdleThreshold int
	OnStep        func(attempt int, s Signals)
}

// Result summarizes a run.
type Result struct {
	ScrollCount   int
	FinalCueCount int
	Converged     bool
	ReachedBottom bool
}

// UntilStable scrolls t until its height and cue count have both stayed the
// same for IdleThreshold consecutive samples, the container reports its
// bottom, or MaxAttempts scrolls have been made. Running out of attempts is
// not an error; whatever has loaded is used.
func UntilStable(ctx context.Context, t Target, cfg Config) (Result, error) {
	var (
		res       Result
		baseline  Signals
		unchanged int
	)

	for res.ScrollCount < cfg.MaxAttempts && unchanged < cfg.IdleThreshold {
		if err := t.ScrollBy(ctx, cfg.Step); err != nil {
			return res, fmt.Errorf("scroll: %w", err)
		}
		if err := browser.Sleep(ctx, cfg.Delay); err != nil {
			return res, err
		}

		s, err := t.Sample(ctx)
		if err != nil {
			return res, fmt.Errorf("sample scroll container: %w", err)
		}
		res.ScrollCount++
		res.FinalCueCount = s.CueCount

		if s.Height == baseline.Height && s.CueCount == baseline.CueCount {
			unchanged++
		} else {
			unchanged = 0
			baseline = s
		}

		log.Debug("scroll", "attempt", res.ScrollCount, "height", s.Height, "cues", s.CueCount, "unchanged", unchanged)
		if cfg.OnStep != nil {
			cfg.OnStep(res.ScrollCount, s)
		}

		if s.AtBottom {
			res.ReachedBottom = true
			break
		}
	}

	res.Converged = unchanged >= cfg.IdleThreshold
	if !res.Converged && !res.ReachedBottom {
		log.Warn("scroll budget exhausted before content settled", "attempts", res.ScrollCount, "cues", res.FinalCueCount)
	}
	return res, nil
}
