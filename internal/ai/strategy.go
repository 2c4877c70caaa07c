// Package ai runs data-described finite state machines. One compiled Table
// serves every actor of the species that names it; per-actor state lives in
// component.Brain and per-species tuning in Strategy.
package ai

import (
	"fmt"

	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/pathfind"
)

// Strategy is the per-species tuning an FSM table reads.
type Strategy struct {
	Species string
	Table   string

	SenseRadius        float64
	AlarmedSenseRadius float64
	AttackDamage       int
	AttackCooldown     int
	FireCooldown       int
	BurstSize          int
	ProjectileDamage   int

	Heuristic   pathfind.Heuristic
	Weight      float64
	Magnitude   int
	Obstruction grid.Code
	Diagonal    bool
	Footprint   motion.Footprint
	Gravity     bool
	JumpSpeed   float64

	Waypoints  []grid.Cell
	PatrolSpan int
}

// NewStrategy 將物種資料轉成 Strategy。
func NewStrategy(s *data.Species) (*Strategy, error) {
	h, err := pathfind.ParseHeuristic(s.Heuristic)
	if err != nil {
		return nil, fmt.Errorf("species %s: %w", s.Name, err)
	}
	st := &Strategy{
		Species:            s.Name,
		Table:              s.FSM,
		SenseRadius:        s.SenseRadius,
		AlarmedSenseRadius: s.AlarmedSenseRadius,
		AttackDamage:       s.AttackDamage,
		AttackCooldown:     s.AttackCooldown,
		FireCooldown:       s.FireCooldown,
		BurstSize:          s.BurstSize,
		ProjectileDamage:   s.ProjectileDamage,
		Heuristic:          h,
		Weight:             s.Weight,
		Magnitude:          s.Magnitude,
		Obstruction:        s.Obstruction,
		Diagonal:           s.Diagonal,
		Footprint:          motion.Footprint{W: s.Footprint.W, H: s.Footprint.H},
		Gravity:            s.Gravity,
		JumpSpeed:          s.JumpSpeed,
		PatrolSpan:         s.PatrolSpan,
	}
	if st.Magnitude <= 0 {
		st.Magnitude = 1
	}
	if st.Obstruction <= 0 {
		st.Obstruction = grid.DefaultObstruction
	}
	for _, p := range s.Waypoints {
		st.Waypoints = append(st.Waypoints, grid.Cell{X: p.X(), Y: p.Y()})
	}
	return st, nil
}

// Route returns the waypoint cycle for an actor spawned at home. Fixed
// waypoints win; otherwise PatrolSpan generates the two ends of a
// horizontal walk clamped to the grid.
func (s *Strategy) Route(home grid.Cell, cols int) []grid.Cell {
	if len(s.Waypoints) > 0 {
		return append([]grid.Cell(nil), s.Waypoints...)
	}
	if s.PatrolSpan <= 0 {
		return nil
	}
	lo := max(0, home.X-s.PatrolSpan)
	hi := min(cols-1, home.X+s.PatrolSpan)
	return []grid.Cell{{X: lo, Y: home.Y}, {X: hi, Y: home.Y}}
}

// PathOptions 回傳此物種的尋路參數。
func (s *Strategy) PathOptions() pathfind.Options {
	return pathfind.Options{
		Obstruction: s.Obstruction,
		Diagonal:    s.Diagonal,
		FootprintW:  s.Footprint.W,
		FootprintH:  s.Footprint.H,
	}
}

// Radius 回傳感知半徑，警報中會擴大。
func (s *Strategy) Radius(alarmed bool) float64 {
	if alarmed && s.AlarmedSenseRadius > 0 {
		return s.AlarmedSenseRadius
	}
	return s.SenseRadius
}
