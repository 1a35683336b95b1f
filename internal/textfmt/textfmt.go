// Package textfmt cleans model replies before they reach API clients.
package textfmt

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	boldStars        = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderscores  = regexp.MustCompile(`__(.*?)__`)
	italicStar       = regexp.MustCompile(`\*(.*?)\*`)
	italicUnderscore = regexp.MustCompile(`_(.*?)_`)
	codeBlock        = regexp.MustCompile("(?s)```(.*?)```")
	inlineCode       = regexp.MustCompile("`(.*?)`")
	heading          = regexp.MustCompile(`(?m)^#+\s*`)
	horizontalRule   = regexp.MustCompile(`(?m)^[-*]{3,}\s*$`)
	blankRuns        = regexp.MustCompile(`\n\s*\n\s*\n`)
	sentenceJoin     = regexp.MustCompile(`\.([A-Z])`)
	sentenceSplit    = regexp.MustCompile(`[.!?]+`)
)

// maxCleanPasses bounds the fixpoint loop in CleanMarkdown. Every pass only
// removes characters, so the loop ends long before this in practice.
const maxCleanPasses = 16

// CleanMarkdown strips emphasis, code, heading and rule syntax and collapses
// runs of blank lines. It is idempotent: CleanMarkdown(CleanMarkdown(s)) == CleanMarkdown(s).
func CleanMarkdown(text string) string {
	if text == "" {
		return text
	}
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanOnce(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func cleanOnce(text string) string {
	text = boldStars.ReplaceAllString(text, "$1")
	text = boldUnderscores.ReplaceAllString(text, "$1")
	text = italicStar.ReplaceAllString(text, "$1")
	text = italicUnderscore.ReplaceAllString(text, "$1")
	text = codeBlock.ReplaceAllString(text, "$1")
	text = inlineCode.ReplaceAllString(text, "$1")
	text = heading.ReplaceAllString(text, "")
	text = horizontalRule.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// FormatForDisplay cleans text, restores the space after sentence stops and,
// when maxLength > 0, truncates at the last word boundary before the limit.
func FormatForDisplay(text string, maxLength int) string {
	if text == "" {
		return text
	}
	text = CleanMarkdown(text)
	text = sentenceJoin.ReplaceAllString(text, ". $1")

	if maxLength > 0 && utf8.RuneCountInString(text) > maxLength {
		cut := string([]rune(text)[:maxLength])
		if idx := strings.LastIndex(cut, " "); idx > 0 {
			cut = cut[:idx]
		}
		text = cut + "..."
	}
	return text
}

// Humanize prepares an LLM answer for display and makes sure it ends like a sentence.
func Humanize(text string) string {
	if text == "" {
		return text
	}
	text = FormatForDisplay(text, 0)
	if text != "" && !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") && !strings.HasSuffix(text, "?") {
		text += "."
	}
	return text
}

// KeyPoints returns up to maxPoints sentences of the cleaned text.
func KeyPoints(text string, maxPoints int) []string {
	if text == "" || maxPoints <= 0 {
		return nil
	}
	var points []string
	for _, s := range sentenceSplit.Split(CleanMarkdown(text), -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		points = append(points, s)
		if len(points) == maxPoints {
			break
		}
	}
	return points
}

// Excerpt returns the first n runes of text followed by "...".
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) > n {
		text = string([]rune(text)[:n])
	}
	return text + "..."
}
