package browser

import (
	"context"
	"encoding/json"
	"fmt"
)

// BodyText returns document.body.innerText.
func BodyText(ctx context.Context, p Page) (string, error) {
	return p.Eval(ctx, `(() => document.body ? document.body.innerText : "")()`)
}

// AnyExists reports whether any selector matches an element on the page.
func AnyExists(ctx context.Context, p Page, selectors []string) (bool, error) {
	sels, err := json.Marshal(selectors)
	if err != nil {
		return false, err
	}
	script := fmt.Sprintf(`
	(() => {
		const sels = %s;
		for (const sel of sels) {
			try {
				if (document.querySelector(sel)) return "true";
			} catch (e) {}
		}
		return "false";
	})()`, sels)

	out, err := p.Eval(ctx, script)
	if err != nil {
		return false, err
	}
	return out == "true", nil
}
