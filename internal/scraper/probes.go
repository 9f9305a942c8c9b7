package scraper

import (
	"context"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/transcript/internal/browser"
)

// deniedPhrases mark a page the session may not view.
var deniedPhrases = []string{
	"로그인이 필요합니다",
	"접근 권한이 없습니다",
	"권한이 없습니다",
	"Access Denied",
	"Unauthorized",
}

// deniedStatus matches 401 and 403 only when they read as an HTTP status,
// so lecture numbers and transcript text do not trip it.
var deniedStatus = regexp.MustCompile(`(?i)\b40[13]\b[\s:-]*(forbidden|unauthorized)\b|\b(error|http|status)[\s:]*40[13]\b`)

var transcriptKeywords = []string{"transcript", "자막", "스크립트", "대본"}

// accessDenied reports whether the page text carries a denial phrase.
// A failed probe counts as allowed.
func accessDenied(ctx context.Context, p browser.Page) (bool, string) {
	text, err := browser.BodyText(ctx, p)
	if err != nil {
		log.Warn("access check failed, continuing", "err", err)
		return false, ""
	}
	for _, phrase := range deniedPhrases {
		if strings.Contains(text, phrase) {
			return true, phrase
		}
	}
	if m := deniedStatus.FindString(text); m != "" {
		return true, m
	}
	return false, ""
}

// transcriptSelectors lists elements that suggest a transcript panel exists.
func transcriptSelectors(cue, container string) []string {
	return []string{
		cue,
		container,
		`[class*="transcript"]`,
		`[class*="caption"]`,
		`[class*="subtitle"]`,
		`[data-testid*="transcript"]`,
	}
}

// transcriptAvailable looks for transcript elements, then for transcript
// keywords in the page text. Probe errors count as available.
func transcriptAvailable(ctx context.Context, p browser.Page, selectors []string) bool {
	found, err := browser.AnyExists(ctx, p, selectors)
	if err != nil {
		log.Warn("transcript probe failed, trying anyway", "err", err)
		return true
	}
	if found {
		return true
	}

	text, err := browser.BodyText(ctx, p)
	if err != nil {
		log.Warn("transcript probe failed, trying anyway", "err", err)
		return true
	}
	text = strings.ToLower(text)
	for _, k := range transcriptKeywords {
		if strings.Contains(text, k) {
			log.Debug("transcript keyword found", "keyword", k)
			return true
		}
	}
	return false
}
