package model

// CandidateNode is the oracle's transient proposal for one hierarchy node.
// It is never persisted directly: every candidate passes validation and the
// deduplication resolver before it becomes (or merges into) a KnowledgeNode.
type CandidateNode struct {
	Name          string   `json:"name"`
	Synthesis     string   `json:"synthesis"`
	Type          NodeType `json:"type"`
	Level         int      `json:"level"`
	Confidence    float64  `json:"confidence"`
	// Positions are document-absolute by the time a candidate enters the
	// resolver; during recursion the oracle reports them relative to the
	// parent's content window.
	Positions     []Range  `json:"positions"`
	KeyClaims     []string `json:"key_claims"`
	OpenQuestions []string `json:"open_questions"`
	Language      string   `json:"language,omitempty"`

	Children []*CandidateNode `json:"children,omitempty"`
	Evidence []Evidence       `json:"-"`
}

// Walk visits the candidate tree breadth-first, parents before children.
// The visit callback receives the parent (nil for the root).
func (c *CandidateNode) Walk(visit func(parent, node *CandidateNode)) {
	type item struct{ parent, node *CandidateNode }
	queue := []item{{nil, c}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		visit(it.parent, it.node)
		for _, child := range it.node.Children {
			queue = append(queue, item{it.node, child})
		}
	}
}

// Count returns the number of nodes in the tree rooted at c.
func (c *CandidateNode) Count() int {
	n := 0
	c.Walk(func(_, _ *CandidateNode) { n++ })
	return n
}

// Leaves returns all leaf candidates in breadth-first order.
func (c *CandidateNode) Leaves() []*CandidateNode {
	var leaves []*CandidateNode
	c.Walk(func(_, node *CandidateNode) {
		if len(node.Children) == 0 {
			leaves = append(leaves, node)
		}
	})
	return leaves
}
