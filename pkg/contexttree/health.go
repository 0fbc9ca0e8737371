package contexttree

import (
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// severityPenalty is the conflicts-score deduction per reported conflict
// severity (§4.5 Health Scorer).
var severityPenalty = map[string]int{"high": 15, "medium": 8, "low": 3}

// ScoreHealth computes the weighted composite health score for every node,
// bottom-up: leaves from content/redundancy/conflicts/completeness,
// categories and root as the arithmetic mean of their children. Returns the
// root's health. Deterministic given the tree's current contents.
func ScoreHealth(root *models.Node) int {
	return scoreNode(root)
}

func scoreNode(n *models.Node) int {
	for _, c := range n.Children {
		scoreNode(c)
	}

	switch n.Type {
	case models.NodeLeaf:
		n.Health = scoreLeaf(n)
	default:
		n.Health = meanChildHealth(n)
	}
	return n.Health
}

func meanChildHealth(n *models.Node) int {
	if len(n.Children) == 0 {
		return 100
	}
	sum := 0
	for _, c := range n.Children {
		sum += c.Health
	}
	return sum / len(n.Children)
}

func scoreLeaf(n *models.Node) int {
	content := float64(contentScore(n.Desc))
	redundancy := float64(redundancyScore(n))
	conflicts := float64(conflictsScore(n))
	completeness := float64(completenessScore(n))

	total := content*0.30 + redundancy*0.25 + conflicts*0.25 + completeness*0.20
	return int(total + 0.5)
}

func contentScore(desc string) int {
	n := len(desc)
	switch {
	case n == 0:
		return 30
	case n > 500:
		return 100
	case n > 200:
		return 85
	case n > 100:
		return 70
	case n > 30:
		return 50
	default:
		return 30
	}
}

func redundancyScore(n *models.Node) int {
	if n.Analysis == nil {
		return 100
	}
	score := 100 - n.Analysis.Redundancy.Score
	if score < 0 {
		score = 0
	}
	return score
}

func conflictsScore(n *models.Node) int {
	if n.Analysis == nil {
		return 100
	}
	penalty := 0
	for _, c := range n.Analysis.Conflicts {
		penalty += severityPenalty[c.Severity]
	}
	score := 100 - penalty
	if score < 0 {
		score = 0
	}
	return score
}

func completenessScore(n *models.Node) int {
	required := 5
	present := 0
	if n.Name != "" {
		present++
	}
	if n.ID != "" {
		present++
	}
	if n.Type == models.NodeLeaf || n.Type == models.NodeCat || n.Type == models.NodeRoot {
		present++
	}
	if n.Visibility == models.VisibilityPublic || n.Visibility == models.VisibilityPrivate {
		present++
	}
	if n.Desc != "" || len(n.Children) > 0 {
		present++
	}
	return (present * 100) / required
}
