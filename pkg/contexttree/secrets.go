package contexttree

import (
	"fmt"
	"regexp"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// secretPattern is one of the seven fixed regexes the Secret Scanner applies
// (§4.5 Secret Scanner; Basic and Bearer auth headers are separate
// patterns), and the snake-case type name used to build its placeholder key.
type secretPattern struct {
	typeName string
	re       *regexp.Regexp
}

var secretPatterns = []secretPattern{
	{"basic_auth", regexp.MustCompile(`(?i)\bBasic\s+[A-Za-z0-9+/=]{8,}\b`)},
	{"bearer_token", regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-_.~+/=]{8,}\b`)},
	{"api_key", regexp.MustCompile(`(?i)\b(?:api[_-]?key)\s*[:=]\s*['"]?([A-Za-z0-9\-_]{12,})['"]?`)},
	{"token", regexp.MustCompile(`(?i)\btoken\s*[:=]\s*['"]?([A-Za-z0-9\-_.]{12,})['"]?`)},
	{"password", regexp.MustCompile(`(?i)\bpassword\s*[:=]\s*['"]?(\S{4,})['"]?`)},
	{"client_secret", regexp.MustCompile(`(?i)\bclient[_-]?secret\s*[:=]\s*['"]?([A-Za-z0-9\-_.]{8,})['"]?`)},
	{"jwt", regexp.MustCompile(`\beyJ[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\b`)},
}

// ScanSecrets runs the two-pass Secret Scanner over the tree: pass one walks
// every leaf applying the seven regex patterns, redacting matches behind
// {{key}} placeholders, flipping visibility to private, and recording a
// per-category secret bucket; pass two attaches each bucket to its category
// node, deduplicated by key.
func ScanSecrets(root *models.Node) {
	buckets := map[string][]models.Secret{} // category node id -> secrets
	seen := map[string]map[string]bool{}    // category node id -> key -> seen

	root.Walk(func(node, parent *models.Node) {
		if node.Type != models.NodeLeaf {
			return
		}
		category := nearestCategory(root, node)
		scope := "Organization Context"
		catID := "root"
		if category != nil {
			scope = category.Name
			catID = category.ID
		}

		counts := map[string]int{}
		redacted := node.Desc
		for _, pat := range secretPatterns {
			redacted = pat.re.ReplaceAllStringFunc(redacted, func(match string) string {
				counts[pat.typeName]++
				idx := counts[pat.typeName]
				key := pat.typeName
				if idx > 1 {
					key = fmt.Sprintf("%s_%d", pat.typeName, idx)
				}

				node.Visibility = models.VisibilityPrivate
				node.SecretRefs = append(node.SecretRefs, key)

				if seen[catID] == nil {
					seen[catID] = map[string]bool{}
				}
				if !seen[catID][key] {
					seen[catID][key] = true
					buckets[catID] = append(buckets[catID], models.Secret{Key: key, Scope: scope, Type: pat.typeName})
				}
				return "{{" + key + "}}"
			})
		}
		node.Desc = redacted
	})

	root.Walk(func(node, _ *models.Node) {
		if node.Type != models.NodeCat {
			return
		}
		if secrets, ok := buckets[node.ID]; ok {
			node.Secrets = dedupSecrets(append(node.Secrets, secrets...))
		}
	})
	if secrets, ok := buckets["root"]; ok {
		root.Secrets = dedupSecrets(append(root.Secrets, secrets...))
	}
}

func nearestCategory(root, target *models.Node) *models.Node {
	parent := root.ParentOf(target.ID)
	for parent != nil {
		if parent.Type == models.NodeCat {
			return parent
		}
		parent = root.ParentOf(parent.ID)
	}
	return nil
}

func dedupSecrets(secrets []models.Secret) []models.Secret {
	seen := map[string]bool{}
	var out []models.Secret
	for _, s := range secrets {
		if seen[s.Key] {
			continue
		}
		seen[s.Key] = true
		out = append(out, s)
	}
	return out
}
