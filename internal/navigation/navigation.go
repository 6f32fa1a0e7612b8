package navigation

import "github.com/mkarran/accessgate/internal/access"

// Item is a single navigation entry. Requirement lists use ANY-of semantics
// within each list; an item with no requirements is visible to every
// authenticated user.
type Item struct {
	Key         string   `json:"key"`
	Title       string   `json:"title"`
	Path        string   `json:"path,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Permissions []string `json:"-"`
	Roles       []string `json:"-"`
	Guards      []string `json:"-"`
	Children    []Item   `json:"children,omitempty"`
}

// Tree returns the full navigation tree before access filtering.
func Tree() []Item {
	return cloneItems(tree)
}

// Filter returns the subset of items the evaluator's user may see. Group
// items without a path of their own are dropped when none of their children
// survive filtering.
func Filter(items []Item, evaluator *access.Evaluator) []Item {
	if evaluator == nil || !evaluator.IsAuthenticated() {
		return nil
	}

	var out []Item
	for _, item := range items {
		if !visible(item, evaluator) {
			continue
		}

		kept := item
		kept.Children = Filter(item.Children, evaluator)
		if kept.Path == "" && len(item.Children) > 0 && len(kept.Children) == 0 {
			continue
		}
		out = append(out, kept)
	}
	return out
}

func visible(item Item, evaluator *access.Evaluator) bool {
	result := evaluator.Evaluate(access.Query{
		Permissions: item.Permissions,
		Roles:       item.Roles,
		Guards:      item.Guards,
	})
	return result.Granted
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Permissions = append([]string(nil), item.Permissions...)
		out[i].Roles = append([]string(nil), item.Roles...)
		out[i].Guards = append([]string(nil), item.Guards...)
		out[i].Children = cloneItems(item.Children)
	}
	return out
}
