package data

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownState is returned when a table names a state it never defines.
var ErrUnknownState = errors.New("unknown fsm state")

// RawTable is one FSM as written in YAML, before its action and condition
// names are resolved.
type RawTable struct {
	Initial string              `yaml:"initial"`
	States  map[string]RawState `yaml:"states"`
}

// RawState lists actions as single-key maps: {name: arg}.
type RawState struct {
	OnEnter     []map[string]any `yaml:"on_enter"`
	While       []map[string]any `yaml:"while"`
	OnExit      []map[string]any `yaml:"on_exit"`
	Transitions []RawTransition  `yaml:"transitions"`
}

// RawTransition fires when every condition in When holds.
type RawTransition struct {
	To   string         `yaml:"to"`
	When map[string]any `yaml:"when"`
}

type fsmFile struct {
	Tables map[string]RawTable `yaml:"fsm"`
}

// Validate checks that the initial state and every transition target exist.
func (r RawTable) Validate() error {
	if r.Initial == "" {
		return fmt.Errorf("missing initial state")
	}
	if _, ok := r.States[r.Initial]; !ok {
		return fmt.Errorf("initial %q: %w", r.Initial, ErrUnknownState)
	}
	for name, s := range r.States {
		for i, tr := range s.Transitions {
			if _, ok := r.States[tr.To]; !ok {
				return fmt.Errorf("state %s transition %d to %q: %w", name, i, tr.To, ErrUnknownState)
			}
		}
	}
	return nil
}

// LoadFSMTable 從 YAML 檔依名稱載入原始狀態機表。
func LoadFSMTable(path string) (map[string]RawTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fsm: %w", err)
	}
	var f fsmFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fsm: %w", err)
	}
	for name, t := range f.Tables {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("fsm %s: %w", name, err)
		}
	}
	return f.Tables, nil
}
