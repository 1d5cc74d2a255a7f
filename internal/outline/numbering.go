package outline

import (
	"strconv"
	"strings"

	"wbs-cli/internal/model"
)

// Number assigns every node its WBS code: the dot-joined, 1-based sibling positions from
// the root down to the node ("2.1.3"). Codes depend only on shape, never on ids or payload.
func Number(roots []*model.Node) map[string]string {
	out := map[string]string{}
	var walk func(nodes []*model.Node, prefix string)
	walk = func(nodes []*model.Node, prefix string) {
		for i, n := range nodes {
			code := strconv.Itoa(i + 1)
			if prefix != "" {
				code = prefix + "." + code
			}
			out[n.ID] = code
			walk(n.Children, code)
		}
	}
	walk(roots, "")
	return out
}

// Code renders a 0-based sibling-index path as a WBS code.
func Code(path []int) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p + 1)
	}
	return strings.Join(parts, ".")
}

// ParseCode is the inverse of Code. It returns false for malformed codes.
func ParseCode(code string) ([]int, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, false
	}
	parts := strings.Split(code, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return nil, false
		}
		out[i] = n - 1
	}
	return out, true
}

// Resolve finds the node addressed by a WBS code.
func Resolve(roots []*model.Node, code string) (*model.Node, bool) {
	path, ok := ParseCode(code)
	if !ok {
		return nil, false
	}
	nodes := roots
	var cur *model.Node
	for _, i := range path {
		if i >= len(nodes) {
			return nil, false
		}
		cur = nodes[i]
		nodes = cur.Children
	}
	return cur, cur != nil
}
