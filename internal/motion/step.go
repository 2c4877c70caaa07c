package motion

import (
	"github.com/l1jgo/tilesim/internal/grid"
	"go.uber.org/zap"
)

// TileReader is the grid surface used by the collision predicate.
type TileReader interface {
	Rows() int
	Cols() int
	Blocked(row, col int, threshold grid.Code) bool
}

// Stepper advances positions one step at a time against a tile grid.
type Stepper struct {
	grid TileReader
	m    Metrics
	log  *zap.Logger
}

func NewStepper(g TileReader, m Metrics, log *zap.Logger) *Stepper {
	if !m.valid() {
		m = Metrics{StepsX: 8, StepsY: 8}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Stepper{grid: g, m: m, log: log}
}

func (s *Stepper) Metrics() Metrics { return s.m }

// Blocked is the collision predicate. It inspects the tiles the footprint
// would newly enter when moving mag micro-steps in dir: the leading column
// (or row) across every row (or column) the footprint currently straddles.
// A footprint with a zero orthogonal sub-step straddles one tile per cell of
// size, otherwise one more. Tiles outside the grid are not blocking; Step
// clamps those moves instead.
func (s *Stepper) Blocked(p Position, dir Direction, mag int, fp Footprint, threshold grid.Code) bool {
	if mag <= 0 {
		return false
	}
	fp = fp.norm()
	left := p.CellX*s.m.StepsX + p.SubX
	top := p.CellY*s.m.StepsY + p.SubY
	width := fp.W * s.m.StepsX
	height := fp.H * s.m.StepsY

	// 只檢查移動後新進入的那一排格子
	switch dir {
	case Left, Right:
		r0 := floorDiv(top, s.m.StepsY)
		r1 := floorDiv(top+height-1, s.m.StepsY)
		var c0, c1 int
		if dir == Right {
			c0 = floorDiv(left+width-1, s.m.StepsX) + 1
			c1 = floorDiv(left+mag+width-1, s.m.StepsX)
		} else {
			c0 = floorDiv(left-mag, s.m.StepsX)
			c1 = floorDiv(left, s.m.StepsX) - 1
		}
		return s.anyBlocked(r0, r1, c0, c1, threshold)
	case Up, Down:
		c0 := floorDiv(left, s.m.StepsX)
		c1 := floorDiv(left+width-1, s.m.StepsX)
		var r0, r1 int
		if dir == Down {
			r0 = floorDiv(top+height-1, s.m.StepsY) + 1
			r1 = floorDiv(top+mag+height-1, s.m.StepsY)
		} else {
			r0 = floorDiv(top-mag, s.m.StepsY)
			r1 = floorDiv(top, s.m.StepsY) - 1
		}
		return s.anyBlocked(r0, r1, c0, c1, threshold)
	}
	return false
}

func (s *Stepper) anyBlocked(r0, r1, c0, c1 int, threshold grid.Code) bool {
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			if s.grid.Blocked(r, c, threshold) {
				return true
			}
		}
	}
	return false
}

// Step moves p by mag micro-steps in dir. Sub-step overflow carries into
// the cell index. A move the collision predicate rejects leaves p
// unchanged. At the grid edge the cell is clamped to the last index the
// footprint fits in and the sub-step is zeroed. moved reports whether the
// position changed. Unknown directions are logged and ignored.
func (s *Stepper) Step(p Position, dir Direction, mag int, fp Footprint, threshold grid.Code) (Position, bool) {
	if dir == None || mag <= 0 {
		return p, false
	}
	if !dir.Valid() {
		s.log.Warn("未知移動方向", zap.Int("direction", int(dir)), zap.Stringer("pos", p))
		return p, false
	}
	if s.Blocked(p, dir, mag, fp, threshold) {
		return p, false
	}
	fp = fp.norm()
	next := p
	switch dir {
	case Left, Right:
		micro := p.CellX*s.m.StepsX + p.SubX
		if dir == Left {
			micro -= mag
		} else {
			micro += mag
		}
		next.CellX, next.SubX = clampAxis(micro, s.m.StepsX, s.grid.Cols()-fp.W)
	case Up, Down:
		micro := p.CellY*s.m.StepsY + p.SubY
		if dir == Up {
			micro -= mag
		} else {
			micro += mag
		}
		next.CellY, next.SubY = clampAxis(micro, s.m.StepsY, s.grid.Rows()-fp.H)
	}
	return next, next != p
}

// Advance steps the horizontal axis and then the vertical axis. Either
// component may be zero. Returns which axes were stopped by a tile.
func (s *Stepper) Advance(p Position, dx, dy, mag int, fp Footprint, threshold grid.Code) (next Position, blockedX, blockedY bool) {
	next = p
	if h := Horizontal(dx); h != None {
		blockedX = s.Blocked(next, h, mag, fp, threshold)
		next, _ = s.Step(next, h, mag, fp, threshold)
	}
	if v := Vertical(dy); v != None {
		blockedY = s.Blocked(next, v, mag, fp, threshold)
		next, _ = s.Step(next, v, mag, fp, threshold)
	}
	return next, blockedX, blockedY
}

// clampAxis normalises a micro coordinate into (cell, sub) and clamps it to
// [0, maxCell] with a zero sub-step at either edge.
func clampAxis(micro, steps, maxCell int) (cell, sub int) {
	if maxCell < 0 {
		maxCell = 0
	}
	cell = floorDiv(micro, steps)
	sub = micro - cell*steps
	// 超出邊界時貼齊邊緣格
	if cell < 0 {
		return 0, 0
	}
	if cell > maxCell || (cell == maxCell && sub > 0) {
		return maxCell, 0
	}
	return cell, sub
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
