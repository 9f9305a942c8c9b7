package scroll

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-scripts/transcript/internal/browser"
)

// bottomSlack is how close to the end of the container counts as the bottom.
const bottomSlack = 100

// PageTarget scrolls the first container on the page matching one of
// Containers, falling back to the document's scrolling root, and counts
// elements matching CueSelector.
type PageTarget struct {
	Page        browser.Page
	Containers  []string
	CueSelector string
}

func (p PageTarget) prelude() (string, error) {
	sels, err := json.Marshal(p.Containers)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`
		const pickContainer = () => {
			for (const sel of %s) {
				try {
					const el = document.querySelector(sel);
					if (el) return el;
				} catch (e) {}
			}
			return document.scrollingElement || document.body;
		};
		const container = pickContainer();`, sels), nil
}

func (p PageTarget) ScrollBy(ctx context.Context, px int) error {
	prelude, err := p.prelude()
	if err != nil {
		return err
	}
	_, err = p.Page.Eval(ctx, fmt.Sprintf(`(() => {%s
		container.scrollBy(0, %d);
		return "ok";
	})()`, prelude, px))
	return err
}

func (p PageTarget) Sample(ctx context.Context) (Signals, error) {
	prelude, err := p.prelude()
	if err != nil {
		return Signals{}, err
	}
	out, err := p.Page.Eval(ctx, fmt.Sprintf(`(() => {%s
		const height = container.scrollHeight || document.body.scrollHeight;
		return JSON.stringify({
			height: height,
			cues: document.querySelectorAll(%q).length,
			at_bottom: container.scrollTop + container.clientHeight >= height - %d
		});
	})()`, prelude, p.CueSelector, bottomSlack))
	if err != nil {
		return Signals{}, err
	}

	var s Signals
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		return Signals{}, fmt.Errorf("decode scroll sample: %w", err)
	}
	return s, nil
}
