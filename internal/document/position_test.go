package document

import (
	"strings"
	"testing"

	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/stretchr/testify/assert"
)

func TestSplitParagraphs(t *testing.T) {
	raw := "First paragraph\nspanning two lines.\n\nSecond paragraph.\n\n   \n\nThird paragraph."

	paragraphs := SplitParagraphs(raw)

	assert.Len(t, paragraphs, 3)
	assert.Equal(t, "First paragraph spanning two lines.", paragraphs[0])
	assert.Equal(t, "Second paragraph.", paragraphs[1])
	assert.Equal(t, "Third paragraph.", paragraphs[2])
}

func TestExtractReproducesOriginalText(t *testing.T) {
	paragraphs := []string{"alpha", "beta", "gamma", "delta"}
	ranges := []model.Range{{Start: 1, End: 2}, {Start: 3, End: 3}}

	excerpts, err := Extract(ranges, paragraphs)

	assert.NoError(t, err)
	assert.Len(t, excerpts, 2)
	assert.Equal(t, "beta\n\ngamma", excerpts[0].Text)
	assert.Equal(t, 2, excerpts[0].Paragraphs)
	assert.Equal(t, "delta", excerpts[1].Text)

	// Extracted text is always a substring of the joined document, never
	// synthesized.
	joined := strings.Join(paragraphs, "\n\n")
	for _, ex := range excerpts {
		assert.Contains(t, joined, ex.Text)
	}
}

func TestExtractRejectsInvalidRanges(t *testing.T) {
	paragraphs := []string{"alpha", "beta"}

	_, err := Extract(nil, paragraphs)
	assert.Error(t, err)

	_, err = Extract([]model.Range{{Start: 1, End: 0}}, paragraphs)
	assert.Error(t, err)

	_, err = Extract([]model.Range{{Start: 0, End: 5}}, paragraphs)
	assert.Error(t, err)
}

func TestToAbsolute(t *testing.T) {
	parent := model.Range{Start: 10, End: 20}
	relative := []model.Range{{Start: 0, End: 2}, {Start: 5, End: 5}}

	absolute := ToAbsolute(relative, parent)

	assert.Equal(t, []model.Range{{Start: 10, End: 12}, {Start: 15, End: 15}}, absolute)
}

func TestClampRanges(t *testing.T) {
	ranges := []model.Range{
		{Start: 3, End: 1},   // inverted
		{Start: -2, End: 2},  // underflow
		{Start: 2, End: 100}, // overflow
	}

	clamped := ClampRanges(ranges, 5)

	assert.Equal(t, model.Range{Start: 1, End: 3}, clamped[0])
	assert.Equal(t, model.Range{Start: 0, End: 2}, clamped[1])
	assert.Equal(t, model.Range{Start: 2, End: 4}, clamped[2])
}

func TestWindowText(t *testing.T) {
	paragraphs := []string{"alpha", "beta", "gamma"}

	assert.Equal(t, "beta\n\ngamma", WindowText(model.Range{Start: 1, End: 2}, paragraphs))
	assert.Equal(t, "alpha\n\nbeta\n\ngamma", WindowText(model.Range{Start: -1, End: 9}, paragraphs))
}

func TestNormalize(t *testing.T) {
	raw := "The  eﬃcient  transformer [12] uses “attention” [3, 7]\nacross layers."

	clean := Normalize(raw)

	assert.Equal(t, `The efficient transformer uses "attention" across layers.`, clean)
}
