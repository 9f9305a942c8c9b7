package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/go-scripts/transcript/internal/types"
)

// DefaultKeywords select responses that may carry transcript data.
var DefaultKeywords = []string{
	"transcript", "caption", "subtitle", "cue", "srt", "vtt",
	"text", "script", "자막", "스크립트",
}

// Filter decides which responses are worth keeping.
type Filter struct {
	keywords []string
}

func NewFilter(keywords []string) Filter {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return Filter{keywords: lower}
}

// Match reports whether a response with the given URL, content type and HTTP
// status should be captured.
func (f Filter) Match(rawURL, contentType string, status int64) bool {
	if status < 200 || status >= 300 {
		return false
	}
	if !isTextual(contentType) {
		return false
	}
	u := rawURL
	if dec, err := url.PathUnescape(rawURL); err == nil {
		u = dec
	}
	u = strings.ToLower(u)
	for _, k := range f.keywords {
		if strings.Contains(u, k) {
			return true
		}
	}
	return false
}

func isTextual(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.Contains(ct, "json") || strings.HasPrefix(ct, "text/")
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// Decode turns a response body into a CapturedResponse. JSON bodies are
// decoded with numbers kept as json.Number; anything else is kept as text.
func Decode(rawURL, contentType string, body []byte, at time.Time) (types.CapturedResponse, error) {
	resp := types.CapturedResponse{URL: rawURL, ContentType: contentType, CapturedAt: at}
	if !isJSON(contentType) {
		resp.Payload = string(body)
		return resp, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return resp, fmt.Errorf("decode %s: %w", rawURL, err)
	}
	resp.Payload = v
	return resp, nil
}

// Buffer collects captured responses for a single scrape call.
type Buffer struct {
	mu       sync.Mutex
	items    []types.CapturedResponse
	inflight int
	idle     chan struct{}
}

func (b *Buffer) Add(r types.CapturedResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, r)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// idleSignal must be called with mu held.
func (b *Buffer) idleSignal() chan struct{} {
	if b.idle == nil {
		b.idle = make(chan struct{}, 1)
	}
	return b.idle
}

func (b *Buffer) begin() {
	b.mu.Lock()
	b.inflight++
	b.mu.Unlock()
}

func (b *Buffer) end() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
	if b.inflight == 0 {
		select {
		case b.idleSignal() <- struct{}{}:
		default:
		}
	}
}

// take must be called with mu held.
func (b *Buffer) take() []types.CapturedResponse {
	out := b.items
	b.items = nil
	return out
}

// Drain waits up to timeout for in-flight body fetches, then returns and
// clears everything captured so far.
func (b *Buffer) Drain(timeout time.Duration) []types.CapturedResponse {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		b.mu.Lock()
		if b.inflight == 0 {
			out := b.take()
			b.mu.Unlock()
			return out
		}
		idle := b.idleSignal()
		b.mu.Unlock()

		select {
		case <-idle:
		case <-timer.C:
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.inflight > 0 {
				log.Warn("response capture still in flight", "pending", b.inflight, "timeout", timeout)
			}
			return b.take()
		}
	}
}

// Attach starts passive capture on the tab in ctx. Matching responses are
// fetched once loading finishes and appended to buf. It must be called
// before navigation.
func Attach(ctx context.Context, f Filter, buf *Buffer) error {
	var (
		mu      sync.Mutex
		matched = make(map[network.RequestID]*network.Response)
	)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			resp := ev.Response
			if resp == nil || !f.Match(resp.URL, contentType(resp), resp.Status) {
				return
			}
			mu.Lock()
			matched[ev.RequestID] = resp
			mu.Unlock()

		case *network.EventLoadingFailed:
			mu.Lock()
			delete(matched, ev.RequestID)
			mu.Unlock()

		case *network.EventLoadingFinished:
			mu.Lock()
			resp, ok := matched[ev.RequestID]
			delete(matched, ev.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			buf.begin()
			go func(id network.RequestID, resp *network.Response) {
				defer buf.end()
				fetch(ctx, id, resp, buf)
			}(ev.RequestID, resp)
		}
	})

	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		return fmt.Errorf("enable network events: %w", err)
	}
	return nil
}

func fetch(ctx context.Context, id network.RequestID, resp *network.Response, buf *Buffer) {
	var body []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(id).Do(ctx)
		return err
	}))
	if err != nil {
		warnUnlessClosed(ctx, "could not read captured response", resp.URL, err)
		return
	}

	captured, err := Decode(resp.URL, contentType(resp), body, time.Now())
	if err != nil {
		log.Warn("could not decode captured response", "url", resp.URL, "err", err)
		return
	}
	log.Debug("captured response", "url", resp.URL, "bytes", len(body))
	buf.Add(captured)
}

// warnUnlessClosed drops failures caused by the tab going away after the
// scrape has finished with it.
func warnUnlessClosed(ctx context.Context, msg, rawURL string, err error) {
	if ctx.Err() != nil {
		log.Debug(msg, "url", rawURL, "err", err)
		return
	}
	log.Warn(msg, "url", rawURL, "err", err)
}

func contentType(resp *network.Response) string {
	for k, v := range resp.Headers {
		if strings.EqualFold(k, "content-type") {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return resp.MimeType
}
