package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/transcript/internal/browser"
	"github.com/go-scripts/transcript/internal/config"
)

// Heuristics decide whether a page looks logged in. The site exposes no
// session introspection, so this is a guess and can be wrong either way.
type Heuristics struct {
	LoginURLPatterns    []string
	SignInPhrases       []string
	AffordanceSelectors []string
	MinTextLength       int
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		LoginURLPatterns: []string{"login", "signin", "auth"},
		SignInPhrases:    []string{"로그인", "구글로", "Sign in", "Login"},
		AffordanceSelectors: []string{
			`a[href*="logout"]`,
			`a[href*="profile"]`,
			`a[href*="mypage"]`,
			`[class*="user"]`,
			`[class*="member"]`,
		},
		MinTextLength: 1000,
	}
}

// Snapshot is what the classifier looks at.
type Snapshot struct {
	URL           string
	Text          string
	HasAffordance bool
}

// LooksLoggedIn classifies a page snapshot. A login URL or a sign-in prompt
// means logged out; otherwise a logged-in-only element or a page with a
// plausible amount of text means logged in.
func (h Heuristics) LooksLoggedIn(s Snapshot) bool {
	u := strings.ToLower(s.URL)
	for _, p := range h.LoginURLPatterns {
		if strings.Contains(u, p) {
			return false
		}
	}
	for _, phrase := range h.SignInPhrases {
		if strings.Contains(s.Text, phrase) {
			return false
		}
	}
	if s.HasAffordance {
		return true
	}
	return len([]rune(s.Text)) >= h.MinTextLength
}

// Probe takes a Snapshot of the page currently loaded in p.
func Probe(ctx context.Context, p browser.Page, h Heuristics) (Snapshot, error) {
	loc, err := p.Location(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	text, err := browser.BodyText(ctx, p)
	if err != nil {
		return Snapshot{}, err
	}
	has, err := browser.AnyExists(ctx, p, h.AffordanceSelectors)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{URL: loc, Text: text, HasAffordance: has}, nil
}

// Check probes p and classifies the result.
func Check(ctx context.Context, p browser.Page, h Heuristics) (bool, error) {
	snap, err := Probe(ctx, p, h)
	if err != nil {
		return false, fmt.Errorf("probe login state: %w", err)
	}
	ok := h.LooksLoggedIn(snap)
	log.Debug("login state", "url", snap.URL, "text_length", len(snap.Text), "affordance", snap.HasAffordance, "logged_in", ok)
	return ok, nil
}

// Verifier checks a stored session against the live site.
type Verifier struct {
	cfg        *config.Configuration
	heuristics Heuristics
}

func NewVerifier(cfg *config.Configuration) *Verifier {
	return &Verifier{cfg: cfg, heuristics: DefaultHeuristics()}
}

// Verify restores st into a fresh headless browser, opens the site root and
// reports whether the page looks logged in.
func (v *Verifier) Verify(ctx context.Context, st *State) (bool, error) {
	tabCtx, closeBrowser := browser.Launch(ctx, browser.OptionsFrom(v.cfg, true))
	defer closeBrowser()

	tabCtx, cancel := context.WithTimeout(tabCtx, v.cfg.Timeout+v.cfg.SettleWait)
	defer cancel()

	if err := chromedp.Run(tabCtx, Restore(st)); err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}

	var tab browser.Tab
	if err := tab.Navigate(tabCtx, v.cfg.BaseURL); err != nil {
		return false, err
	}
	if err := tab.Sleep(tabCtx, v.cfg.SettleWait); err != nil {
		return false, err
	}
	return Check(tabCtx, tab, v.heuristics)
}

// summarize is used for log lines after a session is saved.
func summarize(st *State) []interface{} {
	return []interface{}{
		"cookies", len(st.Cookies),
		"origins", len(st.Origins),
		"saved_at", time.Now().Format("2006-01-02 15:04:05"),
	}
}

// String renders the state without secrets for debugging.
func (st *State) String() string {
	names := make([]string, 0, len(st.Cookies))
	for _, c := range st.Cookies {
		names = append(names, c.Domain+":"+c.Name)
	}
	b, _ := json.Marshal(names)
	return fmt.Sprintf("State{cookies=%s origins=%d}", b, len(st.Origins))
}
