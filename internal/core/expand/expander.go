package expand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/latticelabs/lattice/internal/config"
	"github.com/latticelabs/lattice/internal/core/model"
	"github.com/latticelabs/lattice/internal/document"
	"github.com/latticelabs/lattice/internal/llm"
	"github.com/latticelabs/lattice/internal/logger"
)

// ErrDomainInvalid marks a fatal failure of the domain call: the whole
// document aborts and no node of any level is persisted for it.
var ErrDomainInvalid = errors.New("domain proposal invalid")

const (
	maxKeyClaims     = 5
	maxOpenQuestions = 3
	maxEvidenceChars = 1500
)

// Document is the expansion engine's input: an already split and normalized
// paragraph sequence for one source file.
type Document struct {
	FileID     string
	FileName   string
	Paragraphs []string
}

// Expander drives the oracle through the bounded recursive protocol: one call
// proposes the domain plus its top-level children, then each kept child is
// expanded against its own content window until depth, fan-out, or content
// guards stop the recursion.
type Expander struct {
	oracle *oracle
	cfg    config.ExpansionConfig
	log    *logger.Logger
}

func New(client llm.LLMClient, cfg config.ExpansionConfig, log *logger.Logger) *Expander {
	return &Expander{
		oracle: &oracle{llm: client, timeout: cfg.OracleTimeout()},
		cfg:    cfg,
		log:    log.With("component", "expander"),
	}
}

// tally accumulates quality metrics across concurrently expanded branches.
type tally struct {
	mu        sync.Mutex
	llmCalls  int
	generated int
	kept      int
	filtered  int
	stopped   int
	maxDepth  int
}

func (t *tally) call()     { t.mu.Lock(); t.llmCalls++; t.mu.Unlock() }
func (t *tally) propose()  { t.mu.Lock(); t.generated++; t.mu.Unlock() }
func (t *tally) keep()     { t.mu.Lock(); t.kept++; t.mu.Unlock() }
func (t *tally) filter()   { t.mu.Lock(); t.filtered++; t.mu.Unlock() }
func (t *tally) stop()     { t.mu.Lock(); t.stopped++; t.mu.Unlock() }
func (t *tally) depth(d int) {
	t.mu.Lock()
	if d > t.maxDepth {
		t.maxDepth = d
	}
	t.mu.Unlock()
}

func (t *tally) metrics() model.QualityMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	rate := 0.0
	if t.generated > 0 {
		rate = float64(t.kept) / float64(t.generated)
	}
	return model.QualityMetrics{
		LLMCalls:          t.llmCalls,
		NodesGenerated:    t.generated,
		NodesKept:         t.kept,
		NodesFiltered:     t.filtered,
		MaxDepthAchieved:  t.maxDepth,
		ExpansionsStopped: t.stopped,
		QualityPassRate:   rate,
	}
}

// Expand runs the full protocol for one document and returns the candidate
// tree rooted at the domain node. A domain-level failure returns an error
// wrapping ErrDomainInvalid; deeper failures only prune branches.
func (e *Expander) Expand(ctx context.Context, doc Document) (*model.CandidateNode, model.QualityMetrics, error) {
	t := &tally{}

	t.call()
	resp, err := e.oracle.proposeDomain(ctx, domainPrompt(doc.Paragraphs, e.cfg.MaxChildren))
	if err != nil {
		return nil, t.metrics(), fmt.Errorf("%w: %v", ErrDomainInvalid, err)
	}

	t.propose()
	if out := validateProposal(resp.Domain, 0, len(doc.Paragraphs)); out.Verdict != VerdictValid {
		return nil, t.metrics(), fmt.Errorf("%w: %s", ErrDomainInvalid, out.Reason)
	}
	t.keep()
	t.depth(0)

	docRange := model.Range{Start: 0, End: len(doc.Paragraphs) - 1}
	root := e.buildCandidate(resp.Domain, 0, []model.Range{docRange}, doc)

	children := e.acceptChildren(resp.Children, 1, docRange, doc, t)
	root.Children = children

	if err := e.expandSiblings(ctx, children, 1, doc, t); err != nil {
		return nil, t.metrics(), err
	}

	m := t.metrics()
	e.log.Info("expansion complete",
		"file_id", doc.FileID,
		"llm_calls", m.LLMCalls,
		"kept", m.NodesKept,
		"filtered", m.NodesFiltered,
		"max_depth", m.MaxDepthAchieved,
	)
	return root, m, nil
}

// acceptChildren validates a batch of sibling proposals, converts their
// positions from window-relative to document-absolute, and builds candidates
// with evidence. Rejected proposals are counted and dropped; siblings are
// unaffected.
func (e *Expander) acceptChildren(proposals []proposal, level int, window model.Range, doc Document, t *tally) []*model.CandidateNode {
	windowLen := window.End - window.Start + 1
	var out []*model.CandidateNode
	for _, p := range proposals {
		if len(out) == e.cfg.MaxChildren {
			break
		}
		t.propose()
		if outcome := validateProposal(p, level, windowLen); outcome.Verdict != VerdictValid {
			t.filter()
			e.log.Debug("proposal rejected", "name", p.Name, "level", level, "reason", outcome.Reason)
			continue
		}

		relative := make([]model.Range, 0, len(p.Positions))
		for _, pos := range p.Positions {
			relative = append(relative, model.Range{Start: pos[0], End: pos[1]})
		}
		// Out-of-window ranges are corrected, not dropped.
		relative = document.ClampRanges(relative, windowLen)
		absolute := document.ToAbsolute(relative, window)
		absolute = document.ClampRanges(absolute, len(doc.Paragraphs))

		c := e.buildCandidate(p, level, absolute, doc)
		t.keep()
		t.depth(level)
		out = append(out, c)
	}
	return out
}

// expandSiblings recurses into each kept sibling concurrently. Siblings share
// no mutable state until resolution, so their oracle calls may run in
// parallel.
func (e *Expander) expandSiblings(ctx context.Context, siblings []*model.CandidateNode, depth int, doc Document, t *tally) error {
	if len(siblings) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.SiblingParallelism)
	for _, c := range siblings {
		c := c
		g.Go(func() error {
			return e.expandNode(gctx, c, depth, doc, t)
		})
	}
	return g.Wait()
}

func (e *Expander) expandNode(ctx context.Context, c *model.CandidateNode, depth int, doc Document, t *tally) error {
	if depth >= e.cfg.MaxDepth {
		return nil
	}

	window := span(c.Positions)
	windowParagraphs := doc.Paragraphs[window.Start : window.End+1]
	if contentLen(windowParagraphs) < e.cfg.MinContentChars {
		t.stop()
		return nil
	}

	t.call()
	prompt := childPrompt(c.Name, c.Synthesis, windowParagraphs, e.cfg.MaxChildren, synthesisMin(depth+1))
	resp, err := e.oracle.proposeChildren(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Branch discarded: the node keeps its evidence but gains no
		// children. Its siblings proceed untouched.
		t.filter()
		e.log.Warn("branch expansion discarded", "name", c.Name, "depth", depth, "error", err)
		return nil
	}

	c.Children = e.acceptChildren(resp.Children, depth+1, window, doc, t)
	return e.expandSiblings(ctx, c.Children, depth+1, doc, t)
}

func (e *Expander) buildCandidate(p proposal, level int, positions []model.Range, doc Document) *model.CandidateNode {
	confidence := p.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = e.cfg.BaseConfidence
	}

	c := &model.CandidateNode{
		Name:          p.Name,
		Synthesis:     p.Synthesis,
		Type:          model.TypeForLevel(level),
		Level:         level,
		Confidence:    confidence,
		Positions:     positions,
		KeyClaims:     realEntries(p.KeyClaims, maxKeyClaims),
		OpenQuestions: realEntries(p.OpenQuestions, maxOpenQuestions),
		Language:      p.Language,
	}
	c.Evidence = []model.Evidence{e.buildEvidence(c, doc)}
	return c
}

// buildEvidence derives the verbatim evidence record for a candidate from its
// absolute position ranges. Text is a prefix of the covered paragraphs, so it
// stays traceable to the recorded range.
func (e *Expander) buildEvidence(c *model.CandidateNode, doc Document) model.Evidence {
	sp := span(c.Positions)
	text := document.WindowText(sp, doc.Paragraphs)
	if len(text) > maxEvidenceChars {
		text = text[:maxEvidenceChars]
	}
	return model.Evidence{
		UUID:          uuid.New().String(),
		FileID:        doc.FileID,
		FileName:      doc.FileName,
		ChunkIndex:    sp.Start,
		Text:          text,
		Position:      sp,
		Confidence:    c.Confidence,
		Concepts:      []string{c.Name},
		KeyClaims:     c.KeyClaims,
		OpenQuestions: c.OpenQuestions,
		Language:      c.Language,
		CreatedAt:     time.Now().UTC(),
	}
}

// span collapses a set of ranges into the single window covering all of them.
func span(ranges []model.Range) model.Range {
	if len(ranges) == 0 {
		return model.Range{}
	}
	out := ranges[0]
	for _, r := range ranges[1:] {
		if r.Start < out.Start {
			out.Start = r.Start
		}
		if r.End > out.End {
			out.End = r.End
		}
	}
	return out
}

func contentLen(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		n += len(p)
	}
	return n
}
