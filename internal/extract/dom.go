// Package extract turns page content and captured network payloads into raw
// transcript cues.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-scripts/transcript/internal/browser"
	"github.com/go-scripts/transcript/internal/types"
)

// ErrMalformedDOM means the page answered the DOM script with output that is
// not a cue list.
var ErrMalformedDOM = errors.New("malformed dom cue output")

// Selectors used by the DOM extractor.
type Selectors struct {
	Cue       string
	Timestamp string
}

// fallbackTimestamp and attrTimestamp are tried after Selectors.Timestamp.
const (
	fallbackTimestamp = `[class*="time"], [class*="stamp"], [class*="duration"]`
	attrTimestamp     = `[data-time], [data-timestamp], [data-start]`
)

type domEntry struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp"`
	ElementClass string `json:"element_class"`
	ParentClass  string `json:"parent_class"`
}

// DOMScript builds the page script that collects every cue element along
// with the nearest timestamp it can find in the element's structural parent.
func DOMScript(sel Selectors) (string, error) {
	lookups, err := json.Marshal([]string{sel.Timestamp, fallbackTimestamp, attrTimestamp})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
	(() => {
		const lookups = %s.filter(Boolean);
		const find = (root) => {
			for (const sel of lookups) {
				try {
					const el = root.querySelector(sel);
					if (el) return el;
				} catch (e) {}
			}
			return null;
		};
		const out = [];
		document.querySelectorAll(%q).forEach((el, index) => {
			const text = (el.textContent || "").trim();
			if (!text) return;
			const parent = el.parentElement ? el.parentElement.closest("div, li, span, article, section") : null;
			let timestamp = "";
			const tsEl = parent ? find(parent) : null;
			if (tsEl && tsEl !== el) {
				timestamp = (tsEl.textContent || "").trim() ||
					tsEl.getAttribute("data-time") ||
					tsEl.getAttribute("data-timestamp") ||
					tsEl.getAttribute("data-start") || "";
			}
			out.push({
				index: index,
				text: text,
				timestamp: timestamp,
				element_class: el.getAttribute("class") || "",
				parent_class: parent ? (parent.getAttribute("class") || "") : ""
			});
		});
		return JSON.stringify(out);
	})()`, lookups, sel.Cue), nil
}

// DecodeDOM parses the DOM script output. Entries with blank text are
// dropped and the remaining cues are re-indexed.
func DecodeDOM(out string) ([]types.RawCue, error) {
	var entries []domEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedDOM, err)
	}

	cues := make([]types.RawCue, 0, len(entries))
	for _, e := range entries {
		text := strings.TrimSpace(e.Text)
		if text == "" {
			continue
		}
		cues = append(cues, types.RawCue{
			Index:        len(cues),
			Text:         text,
			Timestamp:    strings.TrimSpace(e.Timestamp),
			SourceKind:   types.SourceDOM,
			ElementClass: e.ElementClass,
			ParentClass:  e.ParentClass,
		})
	}
	return cues, nil
}

// DOM runs the extractor against a page.
func DOM(ctx context.Context, p browser.Page, sel Selectors) ([]types.RawCue, error) {
	script, err := DOMScript(sel)
	if err != nil {
		return nil, err
	}
	out, err := p.Eval(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("extract dom cues: %w", err)
	}
	return DecodeDOM(out)
}
