package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EffectKind names a tile-triggered side effect.
type EffectKind string

const (
	EffectHazard     EffectKind = "hazard"
	EffectHeal       EffectKind = "heal"
	EffectSwitch     EffectKind = "switch"
	EffectCheckpoint EffectKind = "checkpoint"
	EffectAlarm      EffectKind = "alarm"
	EffectPickup     EffectKind = "pickup"
	EffectExit       EffectKind = "exit"
	EffectMarker     EffectKind = "marker"
)

func (k EffectKind) valid() bool {
	switch k {
	case EffectHazard, EffectHeal, EffectSwitch, EffectCheckpoint,
		EffectAlarm, EffectPickup, EffectExit, EffectMarker:
		return true
	}
	return false
}

// Effect is what happens when an actor occupies a tile with Code.
type Effect struct {
	Code   int        `yaml:"code"`
	Kind   EffectKind `yaml:"kind"`
	Amount int        `yaml:"amount"` // hazard damage, heal amount
	Item   string     `yaml:"item"`   // pickup name

	// switch: replace From with To inside Rows x Cols, and turn the switch
	// tile itself into Toggled
	From    int     `yaml:"from"`
	To      int     `yaml:"to"`
	Rows    *[2]int `yaml:"rows"`
	Cols    *[2]int `yaml:"cols"`
	Toggled int     `yaml:"toggled"`

	PlayerOnly bool `yaml:"player_only"`
}

type effectListFile struct {
	Effects []Effect `yaml:"effects"`
}

// EffectTable maps tile codes to effects.
type EffectTable struct {
	byCode map[int]*Effect
}

// Get 回傳代碼對應的效果，沒有則回傳 nil。
func (t *EffectTable) Get(code int) *Effect {
	if t == nil {
		return nil
	}
	return t.byCode[code]
}

// Count 回傳效果條目數量。
func (t *EffectTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.byCode)
}

// LoadEffectTable 從 YAML 檔載入磚塊效果。
func LoadEffectTable(path string) (*EffectTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read effects: %w", err)
	}
	var f effectListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse effects: %w", err)
	}
	t := &EffectTable{byCode: make(map[int]*Effect, len(f.Effects))}
	for i := range f.Effects {
		e := &f.Effects[i]
		if !e.Kind.valid() {
			return nil, fmt.Errorf("effect code %d: unknown kind %q", e.Code, e.Kind)
		}
		t.byCode[e.Code] = e
	}
	return t, nil
}
