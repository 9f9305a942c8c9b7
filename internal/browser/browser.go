package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/go-scripts/transcript/internal/config"
)

// Options controls how Chrome is launched.
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
}

// OptionsFrom builds launch options from the configuration. The login flow
// passes headless=false so the user can see the window.
func OptionsFrom(cfg *config.Configuration, headless bool) Options {
	return Options{
		Headless:  headless,
		UserAgent: cfg.UserAgent,
		Width:     cfg.ViewportWidth,
		Height:    cfg.ViewportHeight,
	}
}

// Launch starts a browser process with a single tab. The returned context
// drives that tab; cancel closes the tab and terminates the process.
func Launch(parent context.Context, o Options) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
	)
	if o.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(o.UserAgent))
	}
	if o.Width > 0 && o.Height > 0 {
		opts = append(opts, chromedp.WindowSize(o.Width, o.Height))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	return tabCtx, func() {
		tabCancel()
		allocCancel()
	}
}

// Page is the part of a browser tab the scraper drives. Scripts passed to
// Eval must evaluate to a string, usually JSON.stringify(...).
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	Eval(ctx context.Context, script string) (string, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Tab implements Page on top of chromedp. Every ctx passed to its methods
// must descend from the context returned by Launch.
type Tab struct{}

// Navigate loads url and waits for the body element.
func (Tab) Navigate(ctx context.Context, url string) error {
	if err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (Tab) Location(ctx context.Context) (string, error) {
	var loc string
	if err := chromedp.Run(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("read location: %w", err)
	}
	return loc, nil
}

func (Tab) Eval(ctx context.Context, script string) (string, error) {
	var out string
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &out)); err != nil {
		return "", fmt.Errorf("evaluate script: %w", err)
	}
	return out, nil
}

func (Tab) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
