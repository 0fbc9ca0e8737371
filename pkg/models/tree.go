package models

import "time"

// NodeType discriminates the recursive tree's node roles (§3, §9 Design
// Notes: "Recursive tree with mixed-role nodes -> sum type").
type NodeType string

const (
	NodeRoot NodeType = "root"
	NodeCat  NodeType = "cat"
	NodeLeaf NodeType = "leaf"
)

// Visibility is public (content is directly renderable) or private (content
// contains one or more secret placeholders, §4.5 Secret Scanner).
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Conflict is a mirrored pairwise conflict entry recorded on both
// participating leaves (§4.5 Conflict Detector).
type Conflict struct {
	With        string `json:"with_node"`
	Description string `json:"description"`
	Severity    string `json:"severity"` // low | medium | high
}

// Redundancy is the per-leaf redundancy summary (§4.5 Redundancy Detector).
type Redundancy struct {
	Score       int      `json:"score"`
	OverlapsWith []string `json:"overlaps_with"`
	Detail      string   `json:"detail,omitempty"`
}

// Analysis bundles the redundancy/conflict/suggestion outputs attached to
// every leaf (§3 Tree node).
type Analysis struct {
	Redundancy  Redundancy  `json:"redundancy"`
	Conflicts   []Conflict  `json:"conflicts"`
	Suggestions []string    `json:"suggestions,omitempty"`
}

// Secret is one placeholder/credential record attached to a category node
// (§4.5 Secret Scanner).
type Secret struct {
	Key   string `json:"key"`
	Scope string `json:"scope"` // enclosing category name
	Type  string `json:"type"`
}

// Node is the recursive tree node. All fields are present on the wire (some
// zero-valued depending on Type) so the JSON shape matches §3's "Tree node
// (embedded JSON)" exactly; exhaustive behavior is enforced in code via the
// Type switch, not via separate Go types, since the persistence boundary
// needs one JSON shape round-trippable without a discriminated union
// marshaller.
type Node struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       NodeType   `json:"type"`
	Health     int        `json:"health"`
	Visibility Visibility `json:"visibility"`

	// Leaf-only fields.
	Desc       string   `json:"desc,omitempty"`
	Source     string   `json:"source,omitempty"`
	SourceDocKey string `json:"source_doc_key,omitempty"`
	SecretRefs []string `json:"secretRefs,omitempty"`
	Analysis   *Analysis `json:"analysis,omitempty"`

	// Category-only fields.
	Secrets  []Secret `json:"secrets,omitempty"`
	Children []*Node  `json:"children,omitempty"`
}

// Walk exhaustively visits n and its descendants, calling visit(node, parent)
// pre-order. This is the "exhaustive match" pattern §9 calls for applied to
// Go's embedded-JSON representation.
func (n *Node) Walk(visit func(node, parent *Node)) {
	n.walk(nil, visit)
}

func (n *Node) walk(parent *Node, visit func(node, parent *Node)) {
	visit(n, parent)
	for _, c := range n.Children {
		c.walk(n, visit)
	}
}

// Leaves returns every leaf-type node in the tree, pre-order.
func (n *Node) Leaves() []*Node {
	var out []*Node
	n.Walk(func(node, _ *Node) {
		if node.Type == NodeLeaf {
			out = append(out, node)
		}
	})
	return out
}

// Categories returns every category-type node in the tree, pre-order.
func (n *Node) Categories() []*Node {
	var out []*Node
	n.Walk(func(node, _ *Node) {
		if node.Type == NodeCat {
			out = append(out, node)
		}
	})
	return out
}

// FindByID returns the node with the given id, or nil.
func (n *Node) FindByID(id string) *Node {
	var found *Node
	n.Walk(func(node, _ *Node) {
		if found == nil && node.ID == id {
			found = node
		}
	})
	return found
}

// ParentOf returns the parent of the node with the given id, or nil if id is
// the root or not found.
func (n *Node) ParentOf(id string) *Node {
	var found *Node
	n.Walk(func(node, parent *Node) {
		if found == nil && node.ID == id {
			found = parent
		}
	})
	return found
}

// Clone deep-copies the subtree rooted at n (used by the Restructure
// Proposer, §4.5, which must mutate a scratch copy before committing).
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := *n
	if n.Analysis != nil {
		a := *n.Analysis
		a.Redundancy.OverlapsWith = append([]string(nil), n.Analysis.Redundancy.OverlapsWith...)
		a.Conflicts = append([]Conflict(nil), n.Analysis.Conflicts...)
		a.Suggestions = append([]string(nil), n.Analysis.Suggestions...)
		cp.Analysis = &a
	}
	cp.SecretRefs = append([]string(nil), n.SecretRefs...)
	cp.Secrets = append([]Secret(nil), n.Secrets...)
	cp.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		cp.Children[i] = c.Clone()
	}
	return &cp
}

// ProgressEntry is one append-only log line in ContextTreeRun.ProgressData
// (§3 ContextTreeRun).
type ProgressEntry struct {
	Phase     string    `json:"phase"`
	Detail    string    `json:"detail"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ContextTreeRun is one tree invocation (§3 ContextTreeRun).
type ContextTreeRun struct {
	ID           string          `json:"id"`
	OrgID        string          `json:"org_id"`
	InputSummary string          `json:"input_source_summary"`
	Tree         *Node           `json:"tree_data"`
	Model        string          `json:"model"`
	TokenUsage   int             `json:"token_usage"`
	Progress     []ProgressEntry `json:"progress_data"`
	Status       RunStatus       `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RestructureProposal is the Restructure Proposer's output (§4.5).
type RestructureProposal struct {
	HealthBefore int     `json:"health_before"`
	HealthAfter  int     `json:"health_after"`
	HealthDelta  int     `json:"health_delta"`
	Before       *Node   `json:"before"`
	After        *Node   `json:"after"`
	Nodes        []*Node `json:"nodes"`
}
