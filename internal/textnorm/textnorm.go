// Package textnorm cleans strings pulled out of scraped markup.
package textnorm

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b-\x1f\x7f]`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	// Block boundaries become spaces so adjacent paragraphs don't fuse.
	strictPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)
)

// Clean applies NFKC normalization, drops control characters, and collapses
// every run of whitespace into a single space. Clean(Clean(s)) == Clean(s).
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = controlChars.ReplaceAllString(text, "")
	text = strings.Join(strings.Fields(text), " ")
	// Joining tokens can leave a non-normalized boundary (e.g. a lone combining mark).
	if !norm.NFKC.IsNormalString(text) {
		return Clean(text)
	}
	return text
}

// FirstEmail returns the first address-shaped substring of text.
func FirstEmail(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	match := emailPattern.FindString(text)
	return match, match != ""
}

// FromHTML returns the readable text of a raw HTML fragment, such as the
// inner HTML of a description node: tags go away, script and style bodies are
// dropped, entities are decoded exactly once, and the result is cleaned. The
// input must be markup as served, never text that was already decoded, or
// literal "<" and "&" in it would be read as markup a second time.
func FromHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return Clean(fragment)
	}
	return Clean(html.UnescapeString(strictPolicy.Sanitize(fragment)))
}
