package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/latticelabs/lattice/internal/core/model"
)

// Excerpt is verified text extracted from a paragraph range. Text is always a
// join of original paragraphs, never synthesized.
type Excerpt struct {
	Text       string
	Range      model.Range
	Paragraphs int
}

var blankLineSplit = regexp.MustCompile(`\n\s*\n+`)

// SplitParagraphs turns raw document text into an ordered, indexable sequence
// of normalized paragraphs. Empty paragraphs are dropped; order is preserved.
func SplitParagraphs(raw string) []string {
	parts := blankLineSplit.Split(raw, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		clean := Normalize(p)
		if clean != "" {
			paragraphs = append(paragraphs, clean)
		}
	}
	return paragraphs
}

// Extract resolves oracle-reported paragraph ranges into verified text spans.
// Ranges must already be valid for the paragraph sequence (see ValidateRanges).
func Extract(ranges []model.Range, paragraphs []string) ([]Excerpt, error) {
	if err := ValidateRanges(ranges, len(paragraphs)); err != nil {
		return nil, err
	}
	excerpts := make([]Excerpt, 0, len(ranges))
	for _, r := range ranges {
		text := strings.Join(paragraphs[r.Start:r.End+1], "\n\n")
		excerpts = append(excerpts, Excerpt{
			Text:       text,
			Range:      r,
			Paragraphs: r.End - r.Start + 1,
		})
	}
	return excerpts, nil
}

// ToAbsolute converts ranges relative to a parent's content window into
// document-absolute ranges. Pure arithmetic: offset by the parent's start.
func ToAbsolute(relative []model.Range, parent model.Range) []model.Range {
	absolute := make([]model.Range, len(relative))
	for i, r := range relative {
		absolute[i] = model.Range{
			Start: r.Start + parent.Start,
			End:   r.End + parent.Start,
		}
	}
	return absolute
}

// ValidateRanges rejects an empty range set and any inverted or out-of-range
// pair, naming each offender.
func ValidateRanges(ranges []model.Range, paragraphCount int) error {
	if len(ranges) == 0 {
		return fmt.Errorf("no position ranges given")
	}
	var bad []string
	for _, r := range ranges {
		switch {
		case r.Start > r.End:
			bad = append(bad, fmt.Sprintf("[%d,%d] inverted", r.Start, r.End))
		case r.Start < 0 || r.End >= paragraphCount:
			bad = append(bad, fmt.Sprintf("[%d,%d] outside 0..%d", r.Start, r.End, paragraphCount-1))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("invalid position ranges: %s", strings.Join(bad, "; "))
	}
	return nil
}

// ClampRanges corrects each range into the valid paragraph window instead of
// dropping it. Inverted pairs are swapped, then both ends are clamped.
func ClampRanges(ranges []model.Range, paragraphCount int) []model.Range {
	out := make([]model.Range, len(ranges))
	for i, r := range ranges {
		if r.Start > r.End {
			r.Start, r.End = r.End, r.Start
		}
		if r.Start < 0 {
			r.Start = 0
		}
		if r.End >= paragraphCount {
			r.End = paragraphCount - 1
		}
		if r.End < 0 {
			r.End = 0
		}
		if r.Start > r.End {
			r.Start = r.End
		}
		out[i] = r
	}
	return out
}

// WindowText joins the paragraphs covered by a range into one content window,
// used as the context for expanding a child candidate.
func WindowText(r model.Range, paragraphs []string) string {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End >= len(paragraphs) {
		r.End = len(paragraphs) - 1
	}
	if r.Start > r.End {
		return ""
	}
	return strings.Join(paragraphs[r.Start:r.End+1], "\n\n")
}
