// Package uiutil holds small formatting helpers shared by templates.
package uiutil

import (
	"strings"
	"time"
	"unicode"
)

// DateLayout is the display format for record dates.
const DateLayout = "Jan 2, 2006"

// FormatDate renders an ISO date ("2024-01-15") as "Jan 15, 2024". Values that
// do not parse are returned unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format(DateLayout)
}

// Initials returns up to two upper-case initials for the avatar badge.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		out = append(out, unicode.ToUpper(r))
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// TruncateWithEllipsis shortens text to the provided rune limit and appends an ellipsis when truncated.
func TruncateWithEllipsis(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 1 {
		return "…"
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}
