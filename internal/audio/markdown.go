package audio

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe  = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe = regexp.MustCompile("`([^`]*)`")
	imageRe      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	emphasisRe   = regexp.MustCompile(`(\*\*|__|\*|_)([^*_]+)(\*\*|__|\*|_)`)
	headingRe    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	listMarkerRe = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	blockquoteRe = regexp.MustCompile(`(?m)^>\s?`)
	ruleRe       = regexp.MustCompile(`(?m)^(\*{3,}|-{3,}|_{3,})\s*$`)
)

// StripMarkdown removes formatting before the text is sent to the speech
// synthesizer, so markers are not read aloud.
func StripMarkdown(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	text = inlineCodeRe.ReplaceAllString(text, "$1")
	text = imageRe.ReplaceAllString(text, "$1")
	text = linkRe.ReplaceAllString(text, "$1")
	text = emphasisRe.ReplaceAllString(text, "$2")
	text = headingRe.ReplaceAllString(text, "")
	text = listMarkerRe.ReplaceAllString(text, "")
	text = blockquoteRe.ReplaceAllString(text, "")
	text = ruleRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
