package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wbs-cli/internal/model"

	"gopkg.in/yaml.v3"
)

const snapshotVersion = 1

// LoadSnapshot reads an initial forest from a .json, .yaml or .yml file.
func LoadSnapshot(path string) (*model.Snapshot, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return SampleSnapshot(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := ParseSnapshot(b, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return snap, nil
}

// ParseSnapshot decodes b according to ext (".json", ".yaml", ".yml"). An empty ext
// sniffs the content: a leading '{' or '[' is read as JSON.
//
// A bare list of nodes is accepted as shorthand for {"version":1,"nodes":[...]}.
func ParseSnapshot(b []byte, ext string) (*model.Snapshot, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	trimmed := bytes.TrimSpace(b)
	if ext == "" {
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	var snap model.Snapshot
	switch ext {
	case ".json":
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &snap.Nodes); err != nil {
				return nil, err
			}
		} else if err := json.Unmarshal(trimmed, &snap); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		var probe any
		if err := yaml.Unmarshal(trimmed, &probe); err != nil {
			return nil, err
		}
		if _, isList := probe.([]any); isList {
			if err := yaml.Unmarshal(trimmed, &snap.Nodes); err != nil {
				return nil, err
			}
		} else if err := yaml.Unmarshal(trimmed, &snap); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q (expected .json, .yaml or .yml)", ext)
	}
	if snap.Version == 0 {
		snap.Version = snapshotVersion
	}
	if err := ValidateSnapshot(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ValidateSnapshot checks field constraints and that ids are unique across the forest.
func ValidateSnapshot(snap *model.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("missing snapshot")
	}
	if err := ValidateStruct(snap); err != nil {
		return err
	}
	if _, err := newTree(snap.Nodes); err != nil {
		return err
	}
	return nil
}

// SaveSnapshot writes snap to path, as YAML for .yaml/.yml and indented JSON otherwise.
func SaveSnapshot(path string, snap *model.Snapshot) error {
	if err := ValidateSnapshot(snap); err != nil {
		return err
	}
	var (
		b   []byte
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err = yaml.Marshal(snap)
	default:
		b, err = json.MarshalIndent(snap, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}
	return writeFileAtomic(path, b, 0o644)
}

func task(name string, status model.Status, progress int) model.Task {
	return model.Task{Name: name, Status: status, Progress: progress}
}

// SampleSnapshot returns the built-in project plan used when no snapshot file is given.
func SampleSnapshot() *model.Snapshot {
	done, doing, todo := model.StatusCompleted, model.StatusInProgress, model.StatusNotStarted
	return &model.Snapshot{
		Version: snapshotVersion,
		Title:   "Sample project",
		Nodes: []*model.Node{
			{ID: "wbs-1", Task: task("Project Planning", done, 100), Children: []*model.Node{
				{ID: "wbs-1-1", Task: task("Requirements Gathering", done, 100), Children: []*model.Node{
					{ID: "wbs-1-1-1", Task: task("Stakeholder Interviews", done, 100)},
					{ID: "wbs-1-1-2", Task: task("Document Requirements", done, 100)},
				}},
				{ID: "wbs-1-2", Task: task("Technical Design", done, 100)},
			}},
			{ID: "wbs-2", Task: task("Development", doing, 60), Children: []*model.Node{
				{ID: "wbs-2-1", Task: task("Frontend Implementation", done, 100)},
				{ID: "wbs-2-2", Task: task("Backend Implementation", doing, 70)},
				{ID: "wbs-2-3", Task: task("Integration", todo, 0)},
			}},
			{ID: "wbs-3", Task: task("Testing & Deployment", todo, 0), Children: []*model.Node{
				{ID: "wbs-3-1", Task: task("QA Testing", todo, 0)},
				{ID: "wbs-3-2", Task: task("Deployment", todo, 0)},
			}},
		},
	}
}
