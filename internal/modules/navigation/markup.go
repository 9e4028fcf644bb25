package navigation

import (
	"html"
	"regexp"
	"strings"
)

var (
	blockTagRe = regexp.MustCompile(`(?i)<div[^>]*>`)
	tagRe      = regexp.MustCompile(`</?[^>]+(>|$)`)
)

// StripMarkup turns a provider instruction such as
// "Turn <b>left</b> onto Main St<div>Destination on the right</div>"
// into plain text suitable for display and speech.
func StripMarkup(s string) string {
	s = blockTagRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}
