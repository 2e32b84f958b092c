package previews

import (
	"html"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const maxSanitizePasses = 16

var (
	repeatedSpaceRegex   = regexp.MustCompile(` {2,}`)
	spaceAroundLineRegex = regexp.MustCompile(` *\n *`)
	repeatedLineRegex    = regexp.MustCompile(`\n{3,}`)

	// Closing tags, line breaks and script or style blocks. A lone "<A>" in
	// prose is not treated as markup.
	markupRegex = regexp.MustCompile(`(?i)</[a-z][a-z0-9]*\s*>|<br\s*/?>|<(script|style)[\s>]`)
)

// bluemonday policies are not safe for concurrent use.
var policyPool = sync.Pool{
	New: func() interface{} {
		return bluemonday.StrictPolicy()
	},
}

// SanitizeValue returns the cleaned text for string inputs and "" for anything else.
func SanitizeValue(raw any) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}

	return SanitizeText(s)
}

// SanitizeText turns scraped text into plain display text. Only letters,
// numbers, punctuation, space separators and newlines are kept, whitespace is
// collapsed and lines without any letter or digit are dropped. It returns ""
// when nothing is left.
func SanitizeText(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	for i := 0; i < maxSanitizePasses; i++ {
		next := sanitizePass(s)
		if next == s {
			break
		}

		s = next
	}

	return s
}

func sanitizePass(s string) string {
	s = strings.Map(keepRune, norm.NFC.String(s))
	s = collapseWhitespace(s)
	s = dropNoiseLines(s)

	return strings.TrimSpace(collapseWhitespace(s))
}

// StripMarkup removes HTML tags from rich-text fragments such as store
// descriptions. Text without markup is returned unchanged.
func StripMarkup(s string) string {
	if !markupRegex.MatchString(s) {
		return s
	}

	policy := policyPool.Get().(*bluemonday.Policy)
	defer policyPool.Put(policy)

	// The policy escapes the text it keeps; undo that once.
	return html.UnescapeString(policy.Sanitize(s))
}

func keepRune(r rune) rune {
	switch {
	case r == '\n':
		return r
	case unicode.Is(unicode.Zs, r):
		return ' '
	case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsPunct(r):
		return r
	default:
		return -1
	}
}

func collapseWhitespace(s string) string {
	s = repeatedSpaceRegex.ReplaceAllString(s, " ")
	s = spaceAroundLineRegex.ReplaceAllString(s, "\n")

	return repeatedLineRegex.ReplaceAllString(s, "\n\n")
}

// dropNoiseLines removes non-empty lines made only of punctuation.
func dropNoiseLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]

	for _, line := range lines {
		if line != "" && strings.IndexFunc(line, isAlphanumeric) < 0 {
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
