package contexttree

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

const treeContextCharLimit = 5000

// restructureResponse is the LLM's requested shape for a restructure.
type restructureResponse struct {
	Before string        `json:"before"`
	After  string        `json:"after"`
	Nodes  []rawNode     `json:"nodes"`
}

// Propose computes the tree's current health, asks the LLM to restructure
// the selected nodes per instruction, and returns a scratch proposal
// without mutating root — the caller must explicitly apply it (§4.5
// Restructure Proposer).
func Propose(ctx context.Context, gw *llmgw.Gateway, provider, model string, root *models.Node, nodeIDs []string, instruction string) (*models.RestructureProposal, error) {
	healthBefore := ScoreHealth(root.Clone())

	p, err := gw.Provider(provider)
	if err != nil {
		return nil, err
	}

	var selected []*models.Node
	for _, id := range nodeIDs {
		if n := root.FindByID(id); n != nil {
			selected = append(selected, n)
		}
	}

	abbrev, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("restructure: marshal tree context: %w", err)
	}
	abbrevStr := string(abbrev)
	if len(abbrevStr) > treeContextCharLimit {
		abbrevStr = abbrevStr[:treeContextCharLimit]
	}

	selectedJSON, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("restructure: marshal selected nodes: %w", err)
	}

	prompt := fmt.Sprintf(
		"Instruction: %s\n\nSelected nodes (restructure these):\n%s\n\nAbbreviated tree context:\n%s\n\n"+
			`Respond with JSON: {"before": "...", "after": "...", "nodes": [<replacement node(s), same shape as tree nodes>]}`,
		instruction, string(selectedJSON), abbrevStr)

	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: prompt}},
		Model:    model,
	})
	if err != nil {
		return nil, fmt.Errorf("restructure: call LLM: %w", err)
	}

	var rr restructureResponse
	if err := parseRecoveringJSON(resp.Text, false, &rr); err != nil {
		return nil, fmt.Errorf("restructure: parse proposal JSON: %w", err)
	}

	newNodes := make([]*models.Node, 0, len(rr.Nodes))
	for i := range rr.Nodes {
		newNodes = append(newNodes, validateAndConvert(&rr.Nodes[i], false))
	}

	scratch := root.Clone()
	applyRestructure(scratch, nodeIDs, newNodes)
	healthAfter := ScoreHealth(scratch)

	return &models.RestructureProposal{
		HealthBefore: healthBefore,
		HealthAfter:  healthAfter,
		HealthDelta:  healthAfter - healthBefore,
		Before:       root,
		After:        scratch,
		Nodes:        newNodes,
	}, nil
}

// applyRestructure removes the selected node ids from scratch and inserts
// newNodes under the parent of the first selected node (or under root if
// the first selected node has no parent, i.e. is root or wasn't found).
func applyRestructure(scratch *models.Node, nodeIDs []string, newNodes []*models.Node) {
	var insertParent *models.Node
	if len(nodeIDs) > 0 {
		insertParent = scratch.ParentOf(nodeIDs[0])
	}
	if insertParent == nil {
		insertParent = scratch
	}

	removeSet := map[string]bool{}
	for _, id := range nodeIDs {
		removeSet[id] = true
	}
	scratch.Walk(func(node, _ *models.Node) {
		if len(node.Children) == 0 {
			return
		}
		kept := node.Children[:0:0]
		for _, c := range node.Children {
			if !removeSet[c.ID] {
				kept = append(kept, c)
			}
		}
		node.Children = kept
	})

	insertParent.Children = append(insertParent.Children, newNodes...)
}
