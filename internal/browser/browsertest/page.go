// Package browsertest provides a scripted browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type rule struct {
	contains string
	fn       func(script string) (string, error)
}

// Page answers Eval calls from rules matched by substring, in registration
// order. Sleep returns immediately and is only recorded.
type Page struct {
	mu sync.Mutex

	URL         string
	Redirect    string
	NavigateErr error

	Navigated []string
	Slept     []time.Duration
	Scripts   []string

	rules []rule
}

func New() *Page {
	return &Page{}
}

// On answers scripts containing substr with out.
func (p *Page) On(substr, out string) *Page {
	return p.OnFunc(substr, func(string) (string, error) { return out, nil })
}

// OnFunc answers scripts containing substr with fn.
func (p *Page) OnFunc(substr string, fn func(script string) (string, error)) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, rule{contains: substr, fn: fn})
	return p
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Navigated = append(p.Navigated, url)
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.URL = url
	if p.Redirect != "" {
		p.URL = p.Redirect
	}
	return nil
}

func (p *Page) Location(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URL, nil
}

func (p *Page) Eval(ctx context.Context, script string) (string, error) {
	p.mu.Lock()
	p.Scripts = append(p.Scripts, script)
	var fn func(string) (string, error)
	for _, r := range p.rules {
		if strings.Contains(script, r.contains) {
			fn = r.fn
			break
		}
	}
	p.mu.Unlock()

	if fn == nil {
		return "", fmt.Errorf("browsertest: no rule for script %.60q", script)
	}
	return fn(script)
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Slept = append(p.Slept, d)
	return ctx.Err()
}
