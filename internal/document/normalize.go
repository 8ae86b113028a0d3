package document

import (
	"regexp"
	"strings"
	"unicode"
)

// Ligature glyphs that PDF extractors commonly leak through.
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"’", "'",
	"‘", "'",
	"“", "\"",
	"”", "\"",
)

// Bracketed citation markers: [12], [3,7], [1-4].
var referenceMarker = regexp.MustCompile(`\[\d+(?:\s*[,-]\s*\d+)*\]`)

var multiSpace = regexp.MustCompile(`[ \t]+`)

// Normalize cleans raw extracted text: control characters stripped, ligature
// artifacts fixed, bracketed reference markers removed, whitespace collapsed.
func Normalize(raw string) string {
	s := ligatures.Replace(raw)
	s = referenceMarker.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
