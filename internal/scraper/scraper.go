// Package scraper drives one authenticated browser session per lecture and
// turns the page into a reconciled transcript.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/transcript/internal/browser"
	"github.com/go-scripts/transcript/internal/capture"
	"github.com/go-scripts/transcript/internal/config"
	"github.com/go-scripts/transcript/internal/extract"
	"github.com/go-scripts/transcript/internal/reconcile"
	"github.com/go-scripts/transcript/internal/scroll"
	"github.com/go-scripts/transcript/internal/session"
	"github.com/go-scripts/transcript/internal/types"
	"github.com/go-scripts/transcript/internal/writer"
)

var (
	ErrInvalidURL   = errors.New("lecture url is not on the configured site")
	ErrAccessDenied = errors.New("access to lecture denied")
	ErrBrowser      = errors.New("browser failure")
)

// Report is what a scrape call produced. Files is empty unless cues were
// written.
type Report struct {
	types.ScrapeResult
	Files  writer.Paths
	Scroll scroll.Result
}

// Scraper scrapes lecture pages with a stored session.
type Scraper struct {
	cfg    *config.Configuration
	store  *session.Store
	writer *writer.FileWriter
	filter capture.Filter

	// OnScroll, if set, receives every scroll sample.
	OnScroll func(attempt int, s scroll.Signals)
}

// New creates a Scraper writing into cfg.OutputPath.
func New(cfg *config.Configuration, store *session.Store) (*Scraper, error) {
	w, err := writer.New(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	return &Scraper{
		cfg:    cfg,
		store:  store,
		writer: w,
		filter: capture.NewFilter(capture.DefaultKeywords),
	}, nil
}

// ValidateURL rejects URLs that are not on the configured base site.
func ValidateURL(baseURL, lectureURL string) error {
	base, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	u, err := url.Parse(lectureURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s", ErrInvalidURL, lectureURL)
	}
	if !strings.EqualFold(u.Hostname(), base.Hostname()) {
		return fmt.Errorf("%w: %s (expected host %s)", ErrInvalidURL, lectureURL, base.Hostname())
	}
	return nil
}

// ScrapeLecture restores the stored session in a fresh browser, opens
// lectureURL and extracts its transcript. Pages without a transcript and
// pages that yield no usable cues return a Report with an empty cue list and
// a Reason instead of an error.
func (s *Scraper) ScrapeLecture(ctx context.Context, lectureURL string) (Report, error) {
	if err := ValidateURL(s.cfg.BaseURL, lectureURL); err != nil {
		return Report{}, err
	}

	st, err := s.store.Load()
	if err != nil {
		return Report{}, err
	}

	log.Info("starting scrape", "url", lectureURL, "session", st)

	tabCtx, closeBrowser := browser.Launch(ctx, browser.OptionsFrom(s.cfg, s.cfg.Headless))
	defer closeBrowser()

	if err := chromedp.Run(tabCtx, session.Restore(st)); err != nil {
		return Report{}, fmt.Errorf("%w: restore session: %w", ErrBrowser, err)
	}

	var buf capture.Buffer
	if err := capture.Attach(tabCtx, s.filter, &buf); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrBrowser, err)
	}

	return s.run(tabCtx, browser.Tab{}, lectureURL, &buf)
}

// run is everything after the browser and interceptor are in place.
func (s *Scraper) run(ctx context.Context, page browser.Page, lectureURL string, buf *capture.Buffer) (Report, error) {
	cfg := s.cfg
	lectureID := writer.LectureID(lectureURL)

	navCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	err := page.Navigate(navCtx, lectureURL)
	cancel()
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrBrowser, err)
	}
	if err := page.Sleep(ctx, cfg.PostLoadWait); err != nil {
		return Report{}, err
	}

	if denied, phrase := accessDenied(ctx, page); denied {
		log.Error("access denied", "url", lectureURL, "phrase", phrase)
		return Report{}, fmt.Errorf("%w: %s (matched %q)", ErrAccessDenied, lectureURL, phrase)
	}

	if !transcriptAvailable(ctx, page, transcriptSelectors(cfg.TranscriptSelector, cfg.TranscriptContainer)) {
		log.Warn("no transcript on page", "url", lectureURL)
		return empty(lectureURL, lectureID, types.ReasonNoTranscript), nil
	}

	log.Info("loading transcript", "url", lectureURL)
	target := scroll.PageTarget{
		Page:        page,
		Containers:  []string{cfg.TranscriptContainer, cfg.PlayerContainer},
		CueSelector: cfg.TranscriptSelector,
	}
	scrolled, err := scroll.UntilStable(ctx, target, scroll.Config{
		MaxAttempts:   cfg.MaxScrollAttempts,
		Step:          cfg.ScrollStep,
		Delay:         cfg.ScrollDelay,
		IdleThreshold: cfg.IdleThreshold,
		OnStep:        s.OnScroll,
	})
	if err != nil {
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		return Report{}, fmt.Errorf("%w: %w", ErrBrowser, err)
	}
	log.Info("transcript loaded", "scrolls", scrolled.ScrollCount, "cues", scrolled.FinalCueCount, "converged", scrolled.Converged)

	if err := page.Sleep(ctx, cfg.SettleWait); err != nil {
		return Report{}, err
	}

	dom, domErr := extract.DOM(ctx, page, extract.Selectors{Cue: cfg.TranscriptSelector, Timestamp: cfg.TimestampSelector})
	if domErr != nil && !errors.Is(domErr, extract.ErrMalformedDOM) {
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		return Report{}, fmt.Errorf("%w: %w", ErrBrowser, domErr)
	}

	responses := buf.Drain(cfg.NetworkTimeout)
	api := extract.FromResponses(responses)
	if domErr != nil {
		if len(api) == 0 {
			return Report{}, fmt.Errorf("%w: %w", ErrBrowser, domErr)
		}
		log.Warn("dom extraction unreadable, using api cues", "err", domErr)
	}
	log.Info("cues extracted", "dom", len(dom), "api", len(api), "responses", len(responses))

	merged := reconcile.Merge(dom, api, reconcile.Options{PrimaryRatio: cfg.PrimaryRatio, NoiseFloor: cfg.NoiseFloor})
	result := types.NewScrapeResult(lectureURL, lectureID, merged.Cues, merged.Sources, len(responses))
	report := Report{ScrapeResult: result, Scroll: scrolled}

	if result.Reason == types.ReasonExtractionEmpty {
		log.Warn("no usable cues", "url", lectureURL, "dom", len(dom), "api", len(api))
		return report, nil
	}

	files, err := s.writer.Persist(result, cfg.Snapshot())
	if err != nil {
		return report, fmt.Errorf("save transcript: %w", err)
	}
	report.Files = files
	return report, nil
}

func empty(lectureURL, lectureID string, reason types.Reason) Report {
	r := types.NewScrapeResult(lectureURL, lectureID, nil, nil, 0)
	r.Reason = reason
	return Report{ScrapeResult: r}
}
