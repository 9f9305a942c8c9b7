package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
)

// Restore loads st into the current browser context. It must run before the
// first navigation so local storage is seeded on document creation.
func Restore(st *State) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network: %w", err)
		}

		params := make([]*network.CookieParam, 0, len(st.Cookies))
		for _, c := range st.Cookies {
			p := &network.CookieParam{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Secure:   c.Secure,
				HTTPOnly: c.HTTPOnly,
			}
			if c.SameSite != "" {
				p.SameSite = network.CookieSameSite(c.SameSite)
			}
			if c.Expires > 0 {
				t := cdp.TimeSinceEpoch(time.Unix(int64(c.Expires), 0))
				p.Expires = &t
			}
			params = append(params, p)
		}
		if len(params) > 0 {
			if err := network.SetCookies(params).Do(ctx); err != nil {
				return fmt.Errorf("set cookies: %w", err)
			}
		}

		script, err := seedStorageScript(st.Origins)
		if err != nil {
			return err
		}
		if script != "" {
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				return fmt.Errorf("seed local storage: %w", err)
			}
		}
		return nil
	})
}

// Capture serializes the current browser context: every cookie in the
// browser and the local storage of the page's current origin.
func Capture(ctx context.Context) (*State, error) {
	var (
		cookies []*network.Cookie
		origin  string
		raw     string
	)
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = storage.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`location.origin`, &origin),
		chromedp.Evaluate(`JSON.stringify(Object.keys(localStorage).map(k => ({name: k, value: localStorage.getItem(k)})))`, &raw),
	)
	if err != nil {
		return nil, fmt.Errorf("capture browser state: %w", err)
	}

	st := &State{Cookies: make([]Cookie, 0, len(cookies))}
	for _, c := range cookies {
		st.Cookies = append(st.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}

	var entries []StorageEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode local storage: %w", err)
	}
	if len(entries) > 0 {
		st.Origins = append(st.Origins, OriginState{Origin: origin, LocalStorage: entries})
	}
	return st, nil
}

// seedStorageScript builds a script that, on each new document, writes the
// stored entries of the document's own origin into local storage.
func seedStorageScript(origins []OriginState) (string, error) {
	byOrigin := make(map[string][]StorageEntry, len(origins))
	for _, o := range origins {
		if len(o.LocalStorage) > 0 {
			byOrigin[o.Origin] = o.LocalStorage
		}
	}
	if len(byOrigin) == 0 {
		return "", nil
	}

	data, err := json.Marshal(byOrigin)
	if err != nil {
		return "", fmt.Errorf("encode local storage: %w", err)
	}
	return fmt.Sprintf(`
	(() => {
		const data = %s;
		const items = data[location.origin];
		if (!items) return;
		for (const it of items) {
			try { localStorage.setItem(it.name, it.value); } catch (e) {}
		}
	})();`, data), nil
}
