package outline

import (
	"strings"
	"testing"

	"wbs-cli/internal/model"
	"wbs-cli/internal/store"
)

func n(id string, children ...*model.Node) *model.Node {
	return &model.Node{ID: id, Task: model.Task{Name: id}, Children: children}
}

func mustTree(t *testing.T, roots ...*model.Node) *store.Tree {
	t.Helper()
	tr, err := store.NewTree(roots)
	if err != nil {
		t.Fatalf("NewTree: %v", err)
	}
	return tr
}

func rowIDs(rows []Row) string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}
