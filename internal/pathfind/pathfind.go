// Package pathfind plans routes across the tile grid. Searches are A* via
// go-astar; every call is a fresh search and nothing is cached between
// calls, so callers replan each tick.
package pathfind

import (
	"fmt"
	"math"
	"strings"

	astar "github.com/beefsack/go-astar"

	"github.com/l1jgo/tilesim/internal/grid"
)

// Heuristic selects the distance estimate guiding expansion order.
type Heuristic int

const (
	Euclidean Heuristic = iota
	Manhattan
)

func (h Heuristic) String() string {
	switch h {
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	}
	return fmt.Sprintf("heuristic(%d)", int(h))
}

// ParseHeuristic accepts "euclidean" or "manhattan" (case-insensitive).
// Empty selects Euclidean.
func ParseHeuristic(s string) (Heuristic, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean":
		return Euclidean, nil
	case "manhattan":
		return Manhattan, nil
	}
	return Euclidean, fmt.Errorf("unknown heuristic %q", s)
}

func (h *Heuristic) UnmarshalText(b []byte) error {
	v, err := ParseHeuristic(string(b))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// GridReader is the slice of the tile grid the search needs.
type GridReader interface {
	Rows() int
	Cols() int
	Blocked(row, col int, threshold grid.Code) bool
}

// Options describe the moving entity: its obstruction threshold, whether it
// may move diagonally, and its footprint in cells anchored at the top-left.
type Options struct {
	Obstruction grid.Code
	Diagonal    bool
	FootprintW  int
	FootprintH  int
}

// Pathfinder is an explicitly owned search service bound to one grid.
type Pathfinder struct {
	grid GridReader
	opts Options
}

func New(g GridReader, opts Options) *Pathfinder {
	if opts.Obstruction <= 0 {
		opts.Obstruction = grid.DefaultObstruction
	}
	if opts.FootprintW <= 0 {
		opts.FootprintW = 1
	}
	if opts.FootprintH <= 0 {
		opts.FootprintH = 1
	}
	return &Pathfinder{grid: g, opts: opts}
}

// With returns a pathfinder on the same grid with different entity options.
func (p *Pathfinder) With(opts Options) *Pathfinder {
	return New(p.grid, opts)
}

// FindPath returns the cells from start to goal inclusive. start == goal
// yields a single cell; an unreachable goal yields nil. The open set is
// ordered by g + weight*h. A weight of 1 gives shortest paths; larger
// weights approach greedy best-first and lose that guarantee.
func (p *Pathfinder) FindPath(start, goal grid.Cell, h Heuristic, weight float64) []grid.Cell {
	if weight <= 0 {
		weight = 1
	}
	if !p.inBounds(start) || !p.inBounds(goal) {
		return nil
	}
	if start != goal && !p.passable(goal) {
		return nil
	}
	s := &search{pf: p, heuristic: h, weight: weight, nodes: make(map[grid.Cell]*node, 64)}
	raw, _, found := astar.Path(s.node(start), s.node(goal))
	if !found {
		return nil
	}
	// go-astar 回傳的路徑是終點在前
	out := make([]grid.Cell, len(raw))
	for i, pth := range raw {
		out[len(raw)-1-i] = pth.(*node).cell
	}
	return out
}

func (p *Pathfinder) inBounds(c grid.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < p.grid.Cols() && c.Y < p.grid.Rows()
}

// passable checks every cell of the footprint anchored at c.
func (p *Pathfinder) passable(c grid.Cell) bool {
	if c.X < 0 || c.Y < 0 || c.X+p.opts.FootprintW > p.grid.Cols() || c.Y+p.opts.FootprintH > p.grid.Rows() {
		return false
	}
	for dy := 0; dy < p.opts.FootprintH; dy++ {
		for dx := 0; dx < p.opts.FootprintW; dx++ {
			if p.grid.Blocked(c.Y+dy, c.X+dx, p.opts.Obstruction) {
				return false
			}
		}
	}
	return true
}

var (
	orthogonal = [4]grid.Cell{{X: 0, Y: -1}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: -1, Y: 0}}
	diagonal   = [4]grid.Cell{{X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1}}
)

// search holds the per-call node cache. go-astar keys its bookkeeping on
// Pather identity, so each cell must map to exactly one *node.
type search struct {
	pf        *Pathfinder
	heuristic Heuristic
	weight    float64
	nodes     map[grid.Cell]*node
}

func (s *search) node(c grid.Cell) *node {
	if n, ok := s.nodes[c]; ok {
		return n
	}
	n := &node{cell: c, s: s}
	s.nodes[c] = n
	return n
}

type node struct {
	cell grid.Cell
	s    *search
}

func (n *node) PathNeighbors() []astar.Pather {
	pf := n.s.pf
	out := make([]astar.Pather, 0, 8)
	for _, d := range orthogonal {
		c := grid.Cell{X: n.cell.X + d.X, Y: n.cell.Y + d.Y}
		if pf.passable(c) {
			out = append(out, n.s.node(c))
		}
	}
	if !pf.opts.Diagonal {
		return out
	}
	for _, d := range diagonal {
		c := grid.Cell{X: n.cell.X + d.X, Y: n.cell.Y + d.Y}
		// 不允許斜穿牆角
		if !pf.passable(c) ||
			!pf.passable(grid.Cell{X: n.cell.X + d.X, Y: n.cell.Y}) ||
			!pf.passable(grid.Cell{X: n.cell.X, Y: n.cell.Y + d.Y}) {
			continue
		}
		out = append(out, n.s.node(c))
	}
	return out
}

func (n *node) PathNeighborCost(to astar.Pather) float64 {
	t := to.(*node)
	if t.cell.X != n.cell.X && t.cell.Y != n.cell.Y {
		return math.Sqrt2
	}
	return 1
}

func (n *node) PathEstimatedCost(to astar.Pather) float64 {
	return n.s.weight * Estimate(n.s.heuristic, n.cell, to.(*node).cell)
}

// Estimate evaluates heuristic h between two cells.
func Estimate(h Heuristic, a, b grid.Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	if h == Manhattan {
		return dx + dy
	}
	return math.Hypot(dx, dy)
}
