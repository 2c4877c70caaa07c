package grid

import (
	"errors"
	"fmt"
)

// Code is a tile code. 0 is empty, 1..CosmeticMax are cosmetic tiles and
// markers, codes at or above an obstruction threshold block movement, and
// selected codes in between carry gameplay effects.
type Code = int

const (
	Empty       Code = 0
	CosmeticMax Code = 99

	// DefaultObstruction is the threshold used when a species does not
	// specify its own.
	DefaultObstruction Code = 100

	// NoGround is returned by FindGround when the column has no solid tile
	// below the starting row.
	NoGround = -1
)

var (
	ErrDimensionMismatch = errors.New("grid: level dimensions differ")
	ErrEmptyLevel        = errors.New("grid: empty level")
	ErrLevelRange        = errors.New("grid: level out of range")
)

// Cell addresses one grid square. X is the column, Y is the row.
type Cell struct {
	X, Y int
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Span is an inclusive index range.
type Span struct {
	Lo, Hi int
}

// Grid stores one tile array per level. All levels share the same
// dimensions and exactly one level is current at a time.
type Grid struct {
	rows, cols  int
	levels      [][]Code // flat [row*cols+col]
	current     int
	obstruction Code
}

// New builds a grid from per-level row slices. Rows must not be ragged and
// every level must match the first one's dimensions. The input is copied.
func New(levels [][][]Code, obstruction Code) (*Grid, error) {
	if len(levels) == 0 || len(levels[0]) == 0 || len(levels[0][0]) == 0 {
		return nil, ErrEmptyLevel
	}
	if obstruction <= 0 {
		obstruction = DefaultObstruction
	}
	rows, cols := len(levels[0]), len(levels[0][0])
	g := &Grid{
		rows:        rows,
		cols:        cols,
		levels:      make([][]Code, len(levels)),
		obstruction: obstruction,
	}
	for i, lv := range levels {
		if len(lv) != rows {
			return nil, fmt.Errorf("level %d has %d rows, want %d: %w", i, len(lv), rows, ErrDimensionMismatch)
		}
		flat := make([]Code, rows*cols)
		for r, line := range lv {
			if len(line) != cols {
				return nil, fmt.Errorf("level %d row %d has %d cols, want %d: %w", i, r, len(line), cols, ErrDimensionMismatch)
			}
			copy(flat[r*cols:], line)
		}
		g.levels[i] = flat
	}
	return g, nil
}

func (g *Grid) Rows() int         { return g.rows }
func (g *Grid) Cols() int         { return g.cols }
func (g *Grid) Levels() int       { return len(g.levels) }
func (g *Grid) Current() int      { return g.current }
func (g *Grid) Obstruction() Code { return g.obstruction }

func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// SetCurrentLevel switches the level used by all current-level operations.
func (g *Grid) SetCurrentLevel(i int) error {
	if i < 0 || i >= len(g.levels) {
		return fmt.Errorf("set level %d of %d: %w", i, len(g.levels), ErrLevelRange)
	}
	g.current = i
	return nil
}

// Get returns the code at (level,row,col), or Empty when out of range.
func (g *Grid) Get(level, row, col int) Code {
	if level < 0 || level >= len(g.levels) || !g.InBounds(row, col) {
		return Empty
	}
	return g.levels[level][row*g.cols+col]
}

// Set writes v at (level,row,col). Returns false when out of range.
func (g *Grid) Set(level, row, col int, v Code) bool {
	if level < 0 || level >= len(g.levels) || !g.InBounds(row, col) {
		return false
	}
	g.levels[level][row*g.cols+col] = v
	return true
}

// At reads the current level.
func (g *Grid) At(row, col int) Code { return g.Get(g.current, row, col) }

// Put writes the current level.
func (g *Grid) Put(row, col int, v Code) bool { return g.Set(g.current, row, col, v) }

// Blocked reports whether the tile at (row,col) on the current level is at
// or above threshold. Out-of-range cells are not blocked; callers clamp.
func (g *Grid) Blocked(row, col int, threshold Code) bool {
	if !g.InBounds(row, col) {
		return false
	}
	return g.levels[g.current][row*g.cols+col] >= threshold
}

// FindFirst returns the first cell holding code in row-major order.
func (g *Grid) FindFirst(code Code) (Cell, bool) {
	tiles := g.levels[g.current]
	for i, v := range tiles {
		if v == code {
			return Cell{X: i % g.cols, Y: i / g.cols}, true
		}
	}
	return Cell{}, false
}

// FindAll returns every cell holding code in row-major order.
func (g *Grid) FindAll(code Code) []Cell {
	var out []Cell
	for i, v := range g.levels[g.current] {
		if v == code {
			out = append(out, Cell{X: i % g.cols, Y: i / g.cols})
		}
	}
	return out
}

// ReplaceRange rewrites every from tile inside the optional row and column
// spans to to. A nil span covers the whole axis. Returns the count replaced.
func (g *Grid) ReplaceRange(from, to Code, rows, cols *Span) int {
	r0, r1 := g.clampSpan(rows, g.rows)
	c0, c1 := g.clampSpan(cols, g.cols)
	tiles := g.levels[g.current]
	n := 0
	for r := r0; r <= r1; r++ {
		base := r * g.cols
		for c := c0; c <= c1; c++ {
			if tiles[base+c] == from {
				tiles[base+c] = to
				n++
			}
		}
	}
	return n
}

func (g *Grid) clampSpan(s *Span, n int) (int, int) {
	if s == nil {
		return 0, n - 1
	}
	lo, hi := s.Lo, s.Hi
	if lo > hi {
		lo, hi = hi, lo // 允許反向範圍
	}
	return max(lo, 0), min(hi, n-1)
}

// FindGround scans downward from row at col for the first tile at or above
// the grid's obstruction threshold. Returns NoGround when none exists.
func (g *Grid) FindGround(row, col int) int {
	return g.FindGroundFor(row, col, g.obstruction)
}

// FindGroundFor is FindGround with a species-specific threshold.
func (g *Grid) FindGroundFor(row, col int, threshold Code) int {
	if col < 0 || col >= g.cols {
		return NoGround
	}
	tiles := g.levels[g.current]
	for r := max(row, 0); r < g.rows; r++ {
		if tiles[r*g.cols+col] >= threshold {
			return r
		}
	}
	return NoGround
}

// Snapshot returns a deep copy of a level as rows.
func (g *Grid) Snapshot(level int) [][]Code {
	if level < 0 || level >= len(g.levels) {
		return nil
	}
	out := make([][]Code, g.rows)
	src := g.levels[level]
	for r := range out {
		out[r] = make([]Code, g.cols)
		copy(out[r], src[r*g.cols:(r+1)*g.cols])
	}
	return out
}

// Restore overwrites a level from rows of matching dimensions.
func (g *Grid) Restore(level int, rows [][]Code) error {
	if level < 0 || level >= len(g.levels) {
		return fmt.Errorf("restore level %d: %w", level, ErrLevelRange)
	}
	if len(rows) != g.rows {
		return fmt.Errorf("restore level %d: %d rows, want %d: %w", level, len(rows), g.rows, ErrDimensionMismatch)
	}
	dst := g.levels[level]
	for r, line := range rows {
		if len(line) != g.cols {
			return fmt.Errorf("restore level %d row %d: %w", level, r, ErrDimensionMismatch)
		}
		copy(dst[r*g.cols:], line)
	}
	return nil
}
