package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/config"
	"github.com/go-scripts/transcript/internal/progress"
	"github.com/go-scripts/transcript/internal/queue"
	"github.com/go-scripts/transcript/internal/scraper"
	"github.com/go-scripts/transcript/internal/session"
	"github.com/go-scripts/transcript/ui"
)

// Globals are flags shared by every command. Zero values leave the
// environment or default setting in place.
type Globals struct {
	EnvFile      string        `help:"Optional .env file read before the environment" default:".env" type:"path"`
	LogLevel     string        `help:"Log level (debug, info, warn, error)" short:"l"`
	StorageState string        `help:"Path to the saved browser session" type:"path"`
	Output       string        `help:"Directory for transcript files" short:"o" type:"path"`
	BaseURL      string        `help:"Site root; lecture URLs must be on this host"`
	Headed       bool          `help:"Show the browser window while scraping"`
	Timeout      time.Duration `help:"Navigation timeout"`
	ScrollDelay  time.Duration `help:"Wait after each scroll step"`
	MaxScrolls   int           `help:"Scroll attempt budget per lecture"`
	IdleRounds   int           `help:"Unchanged samples needed before the transcript counts as loaded"`
	PrimaryRatio float64       `help:"How much larger the API cue list must be to win over the DOM list"`
}

// CLI flags structure
type CLI struct {
	Globals

	Login  LoginCmd  `cmd:"" help:"Log in interactively and save the browser session."`
	Verify VerifyCmd `cmd:"" help:"Check whether the saved session still looks logged in."`
	Scrape ScrapeCmd `cmd:"" help:"Scrape transcripts for one or more lecture URLs."`
}

func (g *Globals) configuration() (*config.Configuration, error) {
	cfg, err := config.Load(g.EnvFile)
	if err != nil {
		return nil, err
	}

	if g.LogLevel != "" {
		cfg.LogLevel = g.LogLevel
	}
	if g.StorageState != "" {
		cfg.StorageStatePath = g.StorageState
	}
	if g.Output != "" {
		cfg.OutputPath = g.Output
	}
	if g.BaseURL != "" {
		cfg.BaseURL = g.BaseURL
	}
	if g.Headed {
		cfg.Headless = false
	}
	if g.Timeout != 0 {
		cfg.Timeout = g.Timeout
	}
	if g.ScrollDelay != 0 {
		cfg.ScrollDelay = g.ScrollDelay
	}
	if g.MaxScrolls != 0 {
		cfg.MaxScrollAttempts = g.MaxScrolls
	}
	if g.IdleRounds != 0 {
		cfg.IdleThreshold = g.IdleRounds
	}
	if g.PrimaryRatio != 0 {
		cfg.PrimaryRatio = g.PrimaryRatio
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LogConfig()
	return cfg, nil
}

type LoginCmd struct{}

func (c *LoginCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.configuration()
	if err != nil {
		return err
	}

	flow := session.NewLoginFlow(cfg, session.NewStore(cfg.StorageStatePath), ui.Prompt{})
	if _, err := flow.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Println("Session saved to", cfg.StorageStatePath)
	return nil
}

type VerifyCmd struct{}

func (c *VerifyCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.configuration()
	if err != nil {
		return err
	}

	st, err := session.NewStore(cfg.StorageStatePath).Load()
	if err != nil {
		return withLoginHint(err)
	}
	ok, err := session.NewVerifier(cfg).Verify(ctx, st)
	if err != nil {
		return fmt.Errorf("verify session: %w", err)
	}
	if !ok {
		return withLoginHint(fmt.Errorf("%w: site does not look logged in", session.ErrSessionInvalid))
	}
	fmt.Println("Session looks valid")
	return nil
}

type ScrapeCmd struct {
	URLs []string `arg:"" name:"url" help:"Lecture URLs to scrape."`
}

func (c *ScrapeCmd) Run(g *Globals, ctx context.Context) error {
	cfg, err := g.configuration()
	if err != nil {
		return err
	}

	q := queue.New()
	for _, u := range c.URLs {
		if !q.Add(u) {
			log.Warn("skipping duplicate url", "url", u)
		}
	}

	s, err := scraper.New(cfg, session.NewStore(cfg.StorageStatePath))
	if err != nil {
		return err
	}
	tracker := progress.New(os.Stderr, cfg.MaxScrollAttempts)
	tracker.SetTotal(q.Total())
	s.OnScroll = tracker.OnScroll

	table := ui.NewResultsTable(100)
	failed := 0
	for url, ok := q.Next(); ok; url, ok = q.Next() {
		tracker.StartLecture(url)
		report, err := s.ScrapeLecture(ctx, url)
		tracker.FinishLecture()

		row := ui.LectureResult{
			URL:    url,
			Cues:   len(report.Cues),
			Chars:  report.TotalChars,
			Reason: report.Reason,
			File:   report.Files.Structured,
		}
		if err != nil {
			failed++
			row.Error = err.Error()
			log.Error("scrape failed", "url", url, "err", err)
		}
		table.AddResult(row)

		if errors.Is(err, session.ErrSessionMissing) || errors.Is(err, session.ErrSessionInvalid) {
			fmt.Println(table.View())
			return withLoginHint(err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	fmt.Println(table.View())
	if failed > 0 {
		return fmt.Errorf("%d of %d lectures failed", failed, q.Total())
	}
	return ctx.Err()
}

func withLoginHint(err error) error {
	return fmt.Errorf("%w (run the login command to create a new session)", err)
}

func main() {
	log.SetReportTimestamp(true)

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("transcript"),
		kong.Description("Scrape lecture transcripts from an authenticated course site."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(&cli.Globals); err != nil {
		log.Error("command failed", "err", err)
		stop()
		os.Exit(1)
	}
}
