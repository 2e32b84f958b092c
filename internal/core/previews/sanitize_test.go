package previews

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/require"
)

var sanitizeInputs = []string{
	"",
	"   ",
	"Plain text",
	"Line one\r\nLine two\rLine three",
	"tabs\t\tand   spaces",
	"a\n\n\n\n\nb",
	"----\nReal content\n====",
	"<p>Fun &amp; games</p><script>alert(1)</script>",
	"&lt;b&gt;escaped markup&lt;/b&gt;",
	"Precio: $20 🎮",
	"Cafe\u0301 con leche",
	"non\u00a0breaking",
	"  \n  leading and trailing  \n  ",
	"¡Juego #1! — «el mejor»",
	"<div>\n  <span>nested</span>\n\n\n\n<em>tags</em>\n</div>",
	"~~~ ### ~~~",
	"Press <A> to jump and <Grip> to climb",
	"Score a<b and c>d",
	"Fun &lt;b&gt; games\tnow\r",
	"5 ★★★★★ reviews",
	"Ünïcödé ΑΒΓ 日本語 ١٢٣",
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace only", in: " \t\n ", want: ""},
		{name: "plain text unchanged", in: "Beat Saber", want: "Beat Saber"},
		{name: "tabs dropped", in: "a\tb", want: "ab"},
		{name: "tabs dropped next to spaces", in: "a\t\t b", want: "a b"},
		{name: "blank lines collapse to two newlines", in: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "carriage returns dropped", in: "a\r\nb\rc", want: "a\nbc"},
		{name: "punctuation-only line dropped", in: "Title\n----\nBody", want: "Title\nBody"},
		{name: "angle brackets dropped, words kept", in: "Press <A> to jump and <Grip> to climb", want: "Press A to jump and Grip to climb"},
		{name: "comparison signs dropped", in: "Score a<b and c>d", want: "Score ab and cd"},
		{name: "entities not decoded", in: "Fun &lt;b&gt; games", want: "Fun &lt;b&gt; games"},
		{name: "symbols and emoji removed", in: "Precio: $20 🎮", want: "Precio: 20"},
		{name: "decomposed accents composed", in: "Cafe\u0301", want: "Caf\u00e9"},
		{name: "non-breaking space becomes space", in: "a\u00a0b", want: "a b"},
		{name: "spaces around newlines trimmed", in: "a  \n  b", want: "a\nb"},
		{name: "only symbols", in: "🎮 $ +", want: ""},
		{name: "only noise lines", in: "---\n***", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeText(tt.in))
		})
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text unchanged", in: "Beat Saber", want: "Beat Saber"},
		{name: "bracketed words are not markup", in: "Press <A> to jump", want: "Press <A> to jump"},
		{name: "comparison is not markup", in: "a<b and c>d", want: "a<b and c>d"},
		{name: "tags and script removed", in: "<p>Fun &amp; games</p><script>alert(1)</script>", want: "Fun & games"},
		{name: "line breaks removed", in: "one<br/>two", want: "onetwo"},
		{name: "text entities decoded once", in: "<p>&amp;lt;b&amp;gt;</p>", want: "&lt;b&gt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, StripMarkup(tt.in))
		})
	}
}

func TestSanitizeValue_NonString(t *testing.T) {
	for _, v := range []any{nil, 42, 3.5, true, []any{"a"}, map[string]any{"a": "b"}} {
		require.Empty(t, SanitizeValue(v), "value %v", v)
	}

	require.Equal(t, "hola", SanitizeValue(" hola "))
}

func TestSanitizeText_Idempotent(t *testing.T) {
	for _, in := range sanitizeInputs {
		once := SanitizeText(in)
		require.Equal(t, once, SanitizeText(once), "input %q", in)
	}
}

func TestSanitizeText_CharacterClass(t *testing.T) {
	for _, in := range sanitizeInputs {
		out := SanitizeText(in)

		require.False(t, strings.Contains(out, "\n\n\n"), "input %q produced triple newline", in)
		require.False(t, strings.Contains(out, "  "), "input %q produced double space", in)
		require.Equal(t, strings.TrimSpace(out), out, "input %q produced untrimmed output", in)

		for _, r := range out {
			allowed := r == '\n' || r == ' ' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsPunct(r)
			require.True(t, allowed, "input %q produced disallowed rune %q", in, r)
		}

		for _, line := range strings.Split(out, "\n") {
			if line == "" {
				continue
			}

			require.GreaterOrEqual(t, strings.IndexFunc(line, isAlphanumeric), 0, "input %q kept noise line %q", in, line)
		}
	}
}
