package model

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Label returns the human-facing label shown in status badges.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// Task is the payload carried by every node. Extra holds arbitrary application data
// and is carried through moves untouched.
type Task struct {
	Name     string         `json:"name" yaml:"name" validate:"max=200"`
	Status   Status         `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=not-started in-progress completed"`
	Progress int            `json:"progress" yaml:"progress" validate:"min=0,max=100"`
	Extra    map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Node is one entry of the work breakdown forest.
//
// Nodes reachable from a store.Tree are shared between tree values and must be treated
// as read-only; use Clone to get a private copy.
type Node struct {
	ID        string  `json:"id" yaml:"id" validate:"required"`
	Task      `yaml:",inline"`
	Children  []*Node `json:"children,omitempty" yaml:"children,omitempty" validate:"omitempty,dive,required"`
	Collapsed bool    `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
}

func (n *Node) IsLeaf() bool { return n == nil || len(n.Children) == 0 }

// Clone returns a deep copy of n and its subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{
		ID:        n.ID,
		Task:      n.Task.clone(),
		Collapsed: n.Collapsed,
	}
	if len(n.Children) > 0 {
		out.Children = CloneForest(n.Children)
	}
	return out
}

func (t Task) clone() Task {
	out := t
	if t.Extra != nil {
		out.Extra = cloneMap(t.Extra)
	}
	return out
}

// cloneValue deep-copies the nested maps and slices that JSON and YAML decoding produce.
// Scalars are returned as is.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case map[any]any:
		out := make(map[any]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		if x == nil {
			return x
		}
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case map[string]string:
		out := make(map[string]string, len(x))
		for k, e := range x {
			out[k] = e
		}
		return out
	default:
		return v
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneForest deep-copies an ordered forest.
func CloneForest(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		out = append(out, n.Clone())
	}
	return out
}

// Snapshot is the on-disk shape of an initial forest (JSON or YAML).
type Snapshot struct {
	Version int     `json:"version" yaml:"version"`
	Title   string  `json:"title,omitempty" yaml:"title,omitempty"`
	Nodes   []*Node `json:"nodes" yaml:"nodes" validate:"dive,required"`
}
