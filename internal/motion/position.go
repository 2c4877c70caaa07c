// Package motion implements fractional-tile movement: positions are a cell
// plus a bounded micro-step offset per axis, and every step is checked
// against the tile grid before it is committed.
package motion

import (
	"fmt"
	"math"
	"strings"

	"github.com/l1jgo/tilesim/internal/grid"
)

// Metrics fixes how many micro-steps make up one cell on each axis.
type Metrics struct {
	StepsX int
	StepsY int
}

func (m Metrics) valid() bool { return m.StepsX > 0 && m.StepsY > 0 }

// Position is a cell plus micro-step offsets. After every Step,
// 0 <= SubX < StepsX and 0 <= SubY < StepsY.
type Position struct {
	CellX, CellY int
	SubX, SubY   int
}

// At 回傳對齊在格子 c 上的位置。
func At(c grid.Cell) Position { return Position{CellX: c.X, CellY: c.Y} }

func (p Position) Cell() grid.Cell { return grid.Cell{X: p.CellX, Y: p.CellY} }

// Aligned 回傳兩軸微步是否皆為零。
func (p Position) Aligned() bool { return p.SubX == 0 && p.SubY == 0 }

func (p Position) String() string {
	return fmt.Sprintf("(%d+%d, %d+%d)", p.CellX, p.SubX, p.CellY, p.SubY)
}

// Fraction 以小數格子回傳位置。
func (p Position) Fraction(m Metrics) (x, y float64) {
	return float64(p.CellX) + float64(p.SubX)/float64(m.StepsX),
		float64(p.CellY) + float64(p.SubY)/float64(m.StepsY)
}

// World 轉換成世界座標供渲染使用。
func (p Position) World(m Metrics, tileSize float64) (x, y float64) {
	fx, fy := p.Fraction(m)
	return fx * tileSize, fy * tileSize
}

// Footprint is an entity's size in whole cells, anchored at its position.
type Footprint struct {
	W, H int
}

func (f Footprint) norm() Footprint {
	// 未設定時視為 1x1
	if f.W <= 0 {
		f.W = 1
	}
	if f.H <= 0 {
		f.H = 1
	}
	return f
}

// Distance is the Euclidean distance between the cells of a and b. Sensing
// uses this rather than path length.
func Distance(a, b Position) float64 {
	return math.Hypot(float64(a.CellX-b.CellX), float64(a.CellY-b.CellY))
}

// Contact reports whether the cell-space boxes of two entities overlap.
// Each occupied cell contributes a box of its centre +/- 0.5 cell; touching
// edges do not count.
func Contact(a, b Position, fa, fb Footprint, m Metrics) bool {
	fa, fb = fa.norm(), fb.norm()
	ax, ay := a.Fraction(m)
	bx, by := b.Fraction(m)
	const eps = 1e-9
	overlapX := ax < bx+float64(fb.W)-eps && bx < ax+float64(fa.W)-eps
	overlapY := ay < by+float64(fb.H)-eps && by < ay+float64(fa.H)-eps
	return overlapX && overlapY
}

// Direction is one of the four axis directions. Up is decreasing row.
type Direction int

const (
	None Direction = iota
	Left
	Right
	Up
	Down
)

var directionNames = [...]string{"none", "left", "right", "up", "down"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// Valid reports whether d is a known direction other than None.
func (d Direction) Valid() bool { return d >= Left && d <= Down }

// Delta returns the unit cell offset for d.
func (d Direction) Delta() (dx, dy int) {
	switch d {
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	}
	return 0, 0
}

// Opposite returns the reverse direction; None for unknown values.
func (d Direction) Opposite() Direction {
	switch d {
	case Left:
		return Right
	case Right:
		return Left
	case Up:
		return Down
	case Down:
		return Up
	}
	return None
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection maps a name to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return None, fmt.Errorf("unknown direction %q", s)
}

// Horizontal returns Left, Right or None for the sign of dx.
func Horizontal(dx int) Direction {
	switch {
	case dx < 0:
		return Left
	case dx > 0:
		return Right
	}
	return None
}

// Vertical returns Up, Down or None for the sign of dy.
func Vertical(dy int) Direction {
	switch {
	case dy < 0:
		return Up
	case dy > 0:
		return Down
	}
	return None
}
