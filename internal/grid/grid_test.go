package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(rows ...[]Code) [][]Code { return rows }

func testGrid(t *testing.T) *Grid {
	t.Helper()
	g, err := New([][][]Code{
		level(
			[]Code{0, 0, 0, 7},
			[]Code{0, 50, 0, 0},
			[]Code{0, 0, 0, 50},
			[]Code{100, 100, 600, 0},
		),
		level(
			[]Code{1, 1, 1, 1},
			[]Code{0, 0, 0, 0},
			[]Code{0, 0, 0, 0},
			[]Code{0, 0, 0, 0},
		),
	}, DefaultObstruction)
	require.NoError(t, err)
	return g
}

func TestNewRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		levels [][][]Code
		want   error
	}{
		{"no levels", nil, ErrEmptyLevel},
		{"empty rows", [][][]Code{{}}, ErrEmptyLevel},
		{"ragged row", [][][]Code{level([]Code{0, 0}, []Code{0})}, ErrDimensionMismatch},
		{"level rows differ", [][][]Code{
			level([]Code{0, 0}, []Code{0, 0}),
			level([]Code{0, 0}),
		}, ErrDimensionMismatch},
		{"level cols differ", [][][]Code{
			level([]Code{0, 0}),
			level([]Code{0, 0, 0}),
		}, ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.levels, 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetSetAcrossLevels(t *testing.T) {
	g := testGrid(t)
	assert.Equal(t, 4, g.Rows())
	assert.Equal(t, 4, g.Cols())
	assert.Equal(t, 2, g.Levels())

	assert.Equal(t, 7, g.Get(0, 0, 3))
	assert.Equal(t, 1, g.Get(1, 0, 3))
	assert.Equal(t, Empty, g.Get(0, -1, 0))
	assert.Equal(t, Empty, g.Get(5, 0, 0))

	assert.True(t, g.Set(1, 2, 2, 42))
	assert.Equal(t, 42, g.Get(1, 2, 2))
	assert.Equal(t, Empty, g.Get(0, 2, 2), "levels are independent")
	assert.False(t, g.Set(0, 4, 0, 1))
}

func TestFindFirstAndAll(t *testing.T) {
	g := testGrid(t)

	c, ok := g.FindFirst(50)
	require.True(t, ok)
	assert.Equal(t, Cell{X: 1, Y: 1}, c)
	assert.Equal(t, []Cell{{X: 1, Y: 1}, {X: 3, Y: 2}}, g.FindAll(50))

	_, ok = g.FindFirst(77)
	assert.False(t, ok)
	assert.Empty(t, g.FindAll(77))

	require.NoError(t, g.SetCurrentLevel(1))
	_, ok = g.FindFirst(50)
	assert.False(t, ok, "search follows the current level")
	assert.Len(t, g.FindAll(1), 4)
	assert.Error(t, g.SetCurrentLevel(2))
	assert.Equal(t, 1, g.Current())
}

func TestReplaceRange(t *testing.T) {
	g := testGrid(t)
	assert.Equal(t, 1, g.ReplaceRange(50, 51, &Span{Lo: 0, Hi: 1}, nil))
	assert.Equal(t, 51, g.At(1, 1))
	assert.Equal(t, 50, g.At(2, 3))

	assert.Equal(t, 2, g.ReplaceRange(100, 0, nil, &Span{Lo: 5, Hi: -3}))
	assert.Equal(t, 600, g.At(3, 2))

	assert.Equal(t, 0, g.ReplaceRange(9, 10, nil, nil))
}

func TestFindGround(t *testing.T) {
	g := testGrid(t)
	assert.Equal(t, 3, g.FindGround(0, 0))
	assert.Equal(t, 3, g.FindGround(0, 2))
	assert.Equal(t, NoGround, g.FindGround(0, 3))
	assert.Equal(t, NoGround, g.FindGround(0, 9))
	assert.Equal(t, 3, g.FindGroundFor(0, 2, 600))
	assert.Equal(t, NoGround, g.FindGroundFor(0, 0, 600), "100 is passable for a 600 species")
}

func TestBlockedAndSnapshotRestore(t *testing.T) {
	g := testGrid(t)
	assert.True(t, g.Blocked(3, 0, 100))
	assert.False(t, g.Blocked(3, 0, 600))
	assert.False(t, g.Blocked(-1, 0, 100))

	snap := g.Snapshot(0)
	snap[0][0] = 999
	assert.Equal(t, Empty, g.At(0, 0), "snapshot is a copy")

	require.NoError(t, g.Restore(0, snap))
	assert.Equal(t, 999, g.At(0, 0))
	assert.ErrorIs(t, g.Restore(0, snap[:2]), ErrDimensionMismatch)
	assert.ErrorIs(t, g.Restore(3, snap), ErrLevelRange)
}
