package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a [x, y] cell pair in YAML.
type Point [2]int

func (p Point) X() int { return p[0] }
func (p Point) Y() int { return p[1] }

// Size is a footprint in cells.
type Size struct {
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Species holds the per-species strategy data, loaded from species.yaml.
type Species struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"` // "enemy" (default) or "player"
	FSM    string `yaml:"fsm"`
	Marker int    `yaml:"marker"`
	HP     int    `yaml:"hp"`

	Obstruction int     `yaml:"obstruction"`
	Magnitude   int     `yaml:"magnitude"`
	Footprint   Size    `yaml:"footprint"`
	Gravity     bool    `yaml:"gravity"`
	JumpSpeed   float64 `yaml:"jump_speed"`

	SenseRadius        float64 `yaml:"sense_radius"`
	AlarmedSenseRadius float64 `yaml:"alarmed_sense_radius"`
	AttackDamage       int     `yaml:"attack_damage"`
	AttackCooldown     int     `yaml:"attack_cooldown"` // ticks
	FireCooldown       int     `yaml:"fire_cooldown"`   // ticks
	BurstSize          int     `yaml:"burst_size"`
	ProjectileDamage   int     `yaml:"projectile_damage"`

	Heuristic  string  `yaml:"heuristic"`
	Weight     float64 `yaml:"weight"`
	Diagonal   bool    `yaml:"diagonal"`
	Waypoints  []Point `yaml:"waypoints"`
	PatrolSpan int     `yaml:"patrol_span"` // generated waypoints +/- span columns around spawn

	Drops []Drop `yaml:"drops"`
}

type speciesListFile struct {
	Species []Species `yaml:"species"`
}

// SpeciesTable holds all species indexed by name.
type SpeciesTable struct {
	byName map[string]*Species
	order  []string
}

// Get 依名稱取得物種，找不到時回傳 nil。
func (t *SpeciesTable) Get(name string) *Species {
	return t.byName[name]
}

// Names 依檔案順序回傳物種名稱。
func (t *SpeciesTable) Names() []string {
	return t.order
}

// Count 回傳已載入的物種數量。
func (t *SpeciesTable) Count() int {
	return len(t.byName)
}

// LoadSpeciesTable 從 YAML 檔載入物種定義。
func LoadSpeciesTable(path string) (*SpeciesTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read species: %w", err)
	}
	var f speciesListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse species: %w", err)
	}
	t := &SpeciesTable{byName: make(map[string]*Species, len(f.Species))}
	for i := range f.Species {
		s := &f.Species[i]
		if s.Name == "" {
			return nil, fmt.Errorf("species #%d: missing name", i)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, fmt.Errorf("species %s: duplicate name", s.Name)
		}
		if s.Magnitude <= 0 {
			s.Magnitude = 1
		}
		if s.Weight <= 0 {
			s.Weight = 1
		}
		if s.HP <= 0 {
			s.HP = 1
		}
		t.byName[s.Name] = s
		t.order = append(t.order, s.Name)
	}
	return t, nil
}
