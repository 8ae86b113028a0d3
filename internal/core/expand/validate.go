package expand

import (
	"fmt"
	"regexp"
	"strings"
)

// Minimum synthesis length per hierarchy level. Categories carry the richer
// floor so the second tier of the graph stays descriptive.
var minSynthesis = map[int]int{
	0: 50, // domain
	1: 80, // category
	2: 30, // concept
	3: 20, // subconcept
}

// Names the oracle falls back to when it has nothing to say. Any of these,
// optionally numbered, fails validation.
var genericName = regexp.MustCompile(`(?i)^(child|node|item|unknown|concept|section|topic|subtopic|untitled|placeholder)\s*\d*$`)

var placeholderEntry = regexp.MustCompile(`(?i)^(n/?a|none|unknown|todo|tbd|claim|question|\.+|-+)$`)

// synthesisMin returns the minimum synthesis length for a level; levels past
// the map's depth use the subconcept floor.
func synthesisMin(level int) int {
	if m, ok := minSynthesis[level]; ok {
		return m
	}
	return minSynthesis[3]
}

// validateProposal applies the quality gates to one oracle proposal. The
// level decides both the synthesis floor and the severity: a failing domain
// proposal is fatal for the document, a failing deeper proposal only prunes
// its branch.
func validateProposal(p proposal, level, windowParagraphs int) Outcome {
	fail := Rejected
	if level == 0 {
		fail = Fatal
	}

	name := strings.TrimSpace(p.Name)
	if len(name) < 3 {
		return fail(fmt.Sprintf("name %q too short", name))
	}
	if genericName.MatchString(name) {
		return fail(fmt.Sprintf("name %q is a generic placeholder", name))
	}

	synthesis := strings.TrimSpace(p.Synthesis)
	if min := synthesisMin(level); len(synthesis) < min {
		return fail(fmt.Sprintf("synthesis for %q is %d chars, level %d requires %d", name, len(synthesis), level, min))
	}

	// The domain call covers the whole document; its evidence window is
	// implicit. Every other proposal must name where its evidence lives.
	if level > 0 {
		if len(p.Positions) == 0 {
			return fail(fmt.Sprintf("no evidence positions for %q", name))
		}
		for _, pos := range p.Positions {
			if len(pos) != 2 {
				return fail(fmt.Sprintf("malformed position %v for %q", pos, name))
			}
		}
		if windowParagraphs == 0 {
			return fail(fmt.Sprintf("empty content window for %q", name))
		}
	}

	if countReal(p.KeyClaims) == 0 {
		return fail(fmt.Sprintf("no key claims extracted for %q", name))
	}
	if countReal(p.OpenQuestions) == 0 {
		return fail(fmt.Sprintf("no open questions extracted for %q", name))
	}

	return Valid()
}

// countReal counts entries that are actual extracted text rather than
// placeholders.
func countReal(entries []string) int {
	n := 0
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if len(e) < 10 {
			continue
		}
		if placeholderEntry.MatchString(e) {
			continue
		}
		n++
	}
	return n
}

// realEntries filters a claim/question list down to its genuine entries,
// capped at limit.
func realEntries(entries []string, limit int) []string {
	var out []string
	for _, e := range entries {
		t := strings.TrimSpace(e)
		if len(t) < 10 || placeholderEntry.MatchString(t) {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}
