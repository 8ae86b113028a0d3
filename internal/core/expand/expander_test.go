package expand

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/logger"
)

func testConfig() config.ExpansionConfig {
	return config.ExpansionConfig{
		MaxDepth:           3,
		MaxChildren:        3,
		MinContentChars:    10,
		SiblingParallelism: 1,
		BaseConfidence:     0.5,
	}
}

func testDocument() Document {
	return Document{
		FileID:   "file-1",
		FileName: "attention.pdf",
		Paragraphs: []string{
			"Attention mechanisms let every token attend to every other token.",
			"Scaled dot product attention divides scores before the softmax.",
			"Multi head attention runs several projections in parallel.",
			"Recurrent networks process sequences one step at a time.",
			"Long short term memory cells gate the flow of information.",
			"Gated recurrent units simplify the LSTM cell structure.",
		},
	}
}

const validDomain = `{
	"name": "Neural Sequence Modeling",
	"synthesis": "A survey of modern neural architectures for sequence modeling, covering attention and recurrence.",
	"confidence": 0.9,
	"key_claims": ["Attention based models dominate sequence tasks."],
	"open_questions": ["How far does attention scale with sequence length?"]
}`

const childAttention = `{
	"name": "Attention Mechanisms",
	"synthesis": "Attention computes weighted combinations of token representations so every position can condition on every other position in the sequence.",
	"confidence": 0.8,
	"positions": [[0, 2]],
	"key_claims": ["Attention weights are computed from query and key projections."],
	"open_questions": ["Which attention variants stay stable at depth?"]
}`

const childRecurrence = `{
	"name": "Recurrent Architectures",
	"synthesis": "Recurrent networks carry a hidden state across time steps, with gated variants controlling what the state keeps and what it forgets between steps.",
	"confidence": 0.7,
	"positions": [[3, 5]],
	"key_claims": ["Gating mitigates vanishing gradients in long sequences."],
	"open_questions": ["When does recurrence still beat attention?"]
}`

const grandchildScaled = `{
	"name": "Scaled Dot Product",
	"synthesis": "Scores are divided by the square root of the key dimension before softmax.",
	"confidence": 0,
	"positions": [[0, 1]],
	"key_claims": ["Scaling keeps softmax gradients in a usable range."],
	"open_questions": ["Is the sqrt scaling optimal for all head sizes?"]
}`

const noChildren = `{"children": []}`

func TestExpandBuildsTree(t *testing.T) {
	mockLLM := &MockLLM{
		ResponseQueue: []string{
			`{"domain": ` + validDomain + `, "children": [` + childAttention + `, ` + childRecurrence + `]}`,
			`{"children": [` + grandchildScaled + `]}`, // expanding Attention Mechanisms
			noChildren, // expanding Scaled Dot Product
			noChildren, // expanding Recurrent Architectures
		},
	}

	expander := New(mockLLM, testConfig(), logger.NewNop())
	doc := testDocument()

	root, metrics, err := expander.Expand(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, "Neural Sequence Modeling", root.Name)
	assert.Equal(t, model.TypeDomain, root.Type)
	assert.Equal(t, 0, root.Level)
	assert.Equal(t, model.Range{Start: 0, End: 5}, root.Positions[0])

	require.Len(t, root.Children, 2)
	attention := root.Children[0]
	assert.Equal(t, "Attention Mechanisms", attention.Name)
	assert.Equal(t, model.TypeCategory, attention.Type)
	assert.Equal(t, 0.8, attention.Confidence)

	require.Len(t, attention.Children, 1)
	scaled := attention.Children[0]
	assert.Equal(t, model.TypeConcept, scaled.Type)
	assert.Equal(t, 2, scaled.Level)
	// Grandchild positions were relative to the parent window [0,2].
	assert.Equal(t, model.Range{Start: 0, End: 1}, scaled.Positions[0])
	// Confidence outside (0,1] falls back to the configured base.
	assert.Equal(t, 0.5, scaled.Confidence)

	assert.Equal(t, 4, metrics.LLMCalls)
	assert.Equal(t, 4, metrics.NodesGenerated)
	assert.Equal(t, 4, metrics.NodesKept)
	assert.Equal(t, 0, metrics.NodesFiltered)
	assert.Equal(t, 2, metrics.MaxDepthAchieved)
	assert.Equal(t, 1.0, metrics.QualityPassRate)
}

func TestExpandEvidenceIsVerbatim(t *testing.T) {
	mockLLM := &MockLLM{
		ResponseQueue: []string{
			`{"domain": ` + validDomain + `, "children": [` + childAttention + `]}`,
			noChildren,
		},
	}

	expander := New(mockLLM, testConfig(), logger.NewNop())
	doc := testDocument()

	root, _, err := expander.Expand(context.Background(), doc)

	require.NoError(t, err)
	joined := strings.Join(doc.Paragraphs, "\n\n")
	root.Walk(func(_, node *model.CandidateNode) {
		require.Len(t, node.Evidence, 1)
		ev := node.Evidence[0]
		assert.Equal(t, "file-1", ev.FileID)
		// Evidence text is a contiguous span of the source document.
		assert.Contains(t, joined, ev.Text)
	})
}

func TestExpandAbortsOnInvalidDomain(t *testing.T) {
	// Domain synthesis is below the level-0 floor; the whole document fails.
	mockLLM := &MockLLM{
		Response: `{"domain": {"name": "Thin", "synthesis": "too short", "key_claims": ["A real claim about something."], "open_questions": ["A real question about something?"]}, "children": []}`,
	}

	expander := New(mockLLM, testConfig(), logger.NewNop())

	root, metrics, err := expander.Expand(context.Background(), testDocument())

	assert.Nil(t, root)
	assert.ErrorIs(t, err, ErrDomainInvalid)
	assert.Equal(t, 1, metrics.LLMCalls)
	assert.Equal(t, 0, metrics.NodesKept)
}

func TestExpandAbortsOnMalformedDomainResponse(t *testing.T) {
	mockLLM := &MockLLM{Response: "I could not find a domain here."}

	expander := New(mockLLM, testConfig(), logger.NewNop())

	_, _, err := expander.Expand(context.Background(), testDocument())

	assert.ErrorIs(t, err, ErrDomainInvalid)
}

func TestExpandFiltersLowQualityChildren(t *testing.T) {
	generic := `{
		"name": "Section 2",
		"synthesis": "A generically named proposal whose synthesis is otherwise long enough to pass the category floor for level one nodes.",
		"positions": [[0, 1]],
		"key_claims": ["Some claim long enough to count."],
		"open_questions": ["Some question long enough to count?"]
	}`
	thin := `{
		"name": "Optimization Tricks",
		"synthesis": "too short for a category",
		"positions": [[2, 3]],
		"key_claims": ["Some claim long enough to count."],
		"open_questions": ["Some question long enough to count?"]
	}`

	mockLLM := &MockLLM{
		Response: `{"domain": ` + validDomain + `, "children": [` + generic + `, ` + thin + `, ` + childAttention + `]}`,
	}

	cfg := testConfig()
	cfg.MinContentChars = 100000 // stop recursion so only the domain call runs

	expander := New(mockLLM, cfg, logger.NewNop())

	root, metrics, err := expander.Expand(context.Background(), testDocument())

	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Equal(t, "Attention Mechanisms", root.Children[0].Name)

	assert.Equal(t, 1, metrics.LLMCalls)
	assert.Equal(t, 4, metrics.NodesGenerated)
	assert.Equal(t, 2, metrics.NodesKept)
	assert.Equal(t, 2, metrics.NodesFiltered)
	assert.Equal(t, 1, metrics.ExpansionsStopped)
	assert.Equal(t, 0.5, metrics.QualityPassRate)
}

func TestExpandRespectsMaxDepth(t *testing.T) {
	mockLLM := &MockLLM{
		Response: `{"domain": ` + validDomain + `, "children": [` + childAttention + `]}`,
	}

	cfg := testConfig()
	cfg.MaxDepth = 1

	expander := New(mockLLM, cfg, logger.NewNop())

	root, metrics, err := expander.Expand(context.Background(), testDocument())

	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Empty(t, root.Children[0].Children)
	assert.Equal(t, 1, metrics.LLMCalls)
	assert.Equal(t, 1, metrics.MaxDepthAchieved)
}

func TestExpandCapsFanout(t *testing.T) {
	extra := strings.Replace(childRecurrence, "Recurrent Architectures", "Sequence Training", 1)
	extra2 := strings.Replace(childRecurrence, "Recurrent Architectures", "Sequence Decoding", 1)

	mockLLM := &MockLLM{
		Response: `{"domain": ` + validDomain + `, "children": [` +
			childAttention + `, ` + childRecurrence + `, ` + extra + `, ` + extra2 + `]}`,
	}

	cfg := testConfig()
	cfg.MinContentChars = 100000

	expander := New(mockLLM, cfg, logger.NewNop())

	root, _, err := expander.Expand(context.Background(), testDocument())

	require.NoError(t, err)
	assert.Len(t, root.Children, 3)
}

func TestExpandDiscardsBranchOnOracleFailure(t *testing.T) {
	mockLLM := &MockLLM{
		ResponseQueue: []string{
			`{"domain": ` + validDomain + `, "children": [` + childAttention + `]}`,
			"garbage that is not json",
		},
	}

	expander := New(mockLLM, testConfig(), logger.NewNop())

	root, metrics, err := expander.Expand(context.Background(), testDocument())

	// The failed branch keeps its node and evidence but gains no children;
	// the document itself still succeeds.
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	assert.Empty(t, root.Children[0].Children)
	assert.Equal(t, 2, metrics.LLMCalls)
	assert.Equal(t, 2, metrics.NodesKept)
	assert.Equal(t, 1, metrics.NodesFiltered)
}

func TestValidateProposalSeverity(t *testing.T) {
	bad := proposal{Name: "x", Synthesis: "short"}

	assert.Equal(t, VerdictFatal, validateProposal(bad, 0, 10).Verdict)
	assert.Equal(t, VerdictRejected, validateProposal(bad, 2, 10).Verdict)
}

func TestValidateProposalRequiresRealEntries(t *testing.T) {
	p := proposal{
		Name:      "Attention Mechanisms",
		Synthesis: strings.Repeat("Attention computes weighted sums. ", 4),
		Positions: [][]int{{0, 1}},
		KeyClaims: []string{"N/A", "...", "short"},
		OpenQuestions: []string{
			"Which attention variants stay stable at depth?",
		},
	}

	out := validateProposal(p, 2, 10)

	assert.Equal(t, VerdictRejected, out.Verdict)
	assert.Contains(t, out.Reason, "key claims")
}
