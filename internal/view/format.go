// Package view renders the chat session in a terminal.
package view

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/unicode/norm"
)

// FormatTime renders a message time relative to now: "just now" under a
// minute, the clock time on the same day, a humanized distance otherwise.
func FormatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d >= 0 && d < time.Minute {
		return "just now"
	}
	local := t.In(now.Location())
	if y, m, day := local.Date(); y == now.Year() && m == now.Month() && day == now.Day() {
		return local.Format("15:04")
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Normalize prepares typed text for sending: NFC normalization and no
// trailing line break.
func Normalize(content string) string {
	return strings.TrimRight(norm.NFC.String(content), "\r\n")
}
