package engine

import (
	"fmt"

	"wbs-cli/internal/mutate"
	"wbs-cli/internal/store"

	"gopkg.in/yaml.v3"
)

// Script is an ordered list of events, read from YAML or JSON.
type Script struct {
	Events []Step `yaml:"events" json:"events" validate:"required,dive"`
}

// Step holds exactly one event.
type Step struct {
	Drop      *DropStep `yaml:"drop,omitempty" json:"drop,omitempty"`
	Move      *MoveStep `yaml:"move,omitempty" json:"move,omitempty"`
	Toggle    string    `yaml:"toggle,omitempty" json:"toggle,omitempty"`
	ToggleAll *bool     `yaml:"toggle-all,omitempty" json:"toggle-all,omitempty"`
	FlipAll   bool      `yaml:"flip-all,omitempty" json:"flip-all,omitempty"`
	Reset     bool      `yaml:"reset,omitempty" json:"reset,omitempty"`
}

type DropStep struct {
	Source string  `yaml:"source" json:"source" validate:"required"`
	Over   string  `yaml:"over" json:"over"`
	Offset float64 `yaml:"offset,omitempty" json:"offset,omitempty"`
	Half   string  `yaml:"half,omitempty" json:"half,omitempty" validate:"omitempty,oneof=auto upper lower before after top bottom"`
}

type MoveStep struct {
	Source string `yaml:"source" json:"source" validate:"required"`
	Parent string `yaml:"parent" json:"parent"`
	Index  int    `yaml:"index" json:"index"`
}

// StepResult is the outcome of one replayed event. Outcome is set for drop and move,
// Changed for toggle and Collapsed for the collapse-all events.
type StepResult struct {
	Step      int      `json:"step"`
	Type      string   `json:"type"`
	Outcome   *Outcome `json:"outcome,omitempty"`
	Changed   *bool    `json:"changed,omitempty"`
	Collapsed *bool    `json:"collapsed,omitempty"`
}

// ParseScript decodes a replay script. JSON is read through the YAML decoder.
func ParseScript(b []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("replay script: %w", err)
	}
	if err := store.ValidateStruct(&s); err != nil {
		return nil, fmt.Errorf("replay script: %w", err)
	}
	for i, st := range s.Events {
		if n := st.count(); n != 1 {
			return nil, fmt.Errorf("replay script: event %d has %d actions (want exactly one)", i+1, n)
		}
	}
	return &s, nil
}

func (s Step) count() int {
	n := 0
	for _, set := range []bool{s.Drop != nil, s.Move != nil, s.Toggle != "", s.ToggleAll != nil, s.FlipAll, s.Reset} {
		if set {
			n++
		}
	}
	return n
}

// Replay applies every step in order. Rejections are reported per step and never stop
// the script.
func (e *Engine) Replay(s *Script) []StepResult {
	if s == nil {
		return nil
	}
	out := make([]StepResult, 0, len(s.Events))
	for i, st := range s.Events {
		res := StepResult{Step: i + 1}
		switch {
		case st.Drop != nil:
			res.Type = "drop"
			half, _ := mutate.ParseHalf(st.Drop.Half)
			o := e.Drop(mutate.Drop{
				SourceID: e.resolveOr(st.Drop.Source),
				OverID:   e.resolveOr(st.Drop.Over),
				OffsetX:  st.Drop.Offset,
				Half:     half,
			})
			res.Outcome = &o
		case st.Move != nil:
			res.Type = "move"
			parent, ok := e.ResolveParent(st.Move.Parent)
			if !ok {
				parent = st.Move.Parent
			}
			o := e.Move(e.resolveOr(st.Move.Source), parent, st.Move.Index)
			res.Outcome = &o
		case st.Toggle != "":
			res.Type = "toggle"
			changed := e.ToggleCollapse(e.resolveOr(st.Toggle))
			res.Changed = &changed
		case st.ToggleAll != nil:
			res.Type = "toggle-all"
			e.ToggleCollapseAll(*st.ToggleAll)
			collapsed := *st.ToggleAll
			res.Collapsed = &collapsed
		case st.FlipAll:
			res.Type = "flip-all"
			collapsed := e.FlipCollapseAll()
			res.Collapsed = &collapsed
		case st.Reset:
			res.Type = "reset"
			e.Reset()
		}
		out = append(out, res)
	}
	return out
}
