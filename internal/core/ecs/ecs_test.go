package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pos struct{ X, Y int }
type hp struct{ V int }

func TestEntityPoolGenerations(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero(), "first entity must not collide with Nil")
	assert.True(t, p.Alive(a))

	p.Destroy(a)
	assert.False(t, p.Alive(a))

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index(), "index is reused")
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.False(t, p.Alive(a), "stale handle stays dead")
	assert.True(t, p.Alive(b))
	assert.Equal(t, 1, p.Live())
}

func TestStoreInsertionOrder(t *testing.T) {
	w := NewWorld()
	s := NewStore[pos](w.Registry())

	var ids []EntityID
	for i := 0; i < 5; i++ {
		id := w.CreateEntity()
		ids = append(ids, id)
		s.Set(id, &pos{X: i})
	}
	// replacing keeps position
	s.Set(ids[1], &pos{X: 100})

	var seen []EntityID
	s.Each(func(id EntityID, _ *pos) { seen = append(seen, id) })
	assert.Equal(t, ids, seen)

	s.Remove(ids[2])
	seen = seen[:0]
	s.Each(func(id EntityID, _ *pos) { seen = append(seen, id) })
	assert.Equal(t, []EntityID{ids[0], ids[1], ids[3], ids[4]}, seen)
	assert.Equal(t, 4, s.Len())
}

func TestStoreRemoveDuringEach(t *testing.T) {
	s := NewPtrComponentStore[pos]()
	for i := uint32(0); i < 4; i++ {
		s.Set(NewEntityID(i, 1), &pos{X: int(i)})
	}
	var visited []int
	s.Each(func(id EntityID, p *pos) {
		visited = append(visited, p.X)
		if p.X == 0 {
			s.Remove(NewEntityID(1, 1))
		}
	})
	assert.Equal(t, []int{0, 2, 3}, visited)
}

func TestDeferredDestruction(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos](w.Registry())
	hs := NewStore[hp](w.Registry())

	a := w.CreateEntity()
	b := w.CreateEntity()
	ps.Set(a, &pos{})
	hs.Set(a, &hp{V: 3})
	ps.Set(b, &pos{})

	w.MarkForDestruction(a)
	w.MarkForDestruction(a)
	assert.True(t, w.Alive(a), "destruction waits for flush")
	assert.True(t, w.Pending(a))

	done := w.FlushDestroyQueue()
	assert.Equal(t, []EntityID{a}, done)
	assert.False(t, w.Alive(a))
	assert.False(t, ps.Has(a))
	assert.False(t, hs.Has(a))
	assert.True(t, ps.Has(b))
	assert.Nil(t, w.FlushDestroyQueue())
}

func TestEach2(t *testing.T) {
	w := NewWorld()
	ps := NewStore[pos](w.Registry())
	hs := NewStore[hp](w.Registry())

	a, b, c := w.CreateEntity(), w.CreateEntity(), w.CreateEntity()
	ps.Set(a, &pos{X: 1})
	ps.Set(b, &pos{X: 2})
	ps.Set(c, &pos{X: 3})
	hs.Set(c, &hp{V: 30})
	hs.Set(a, &hp{V: 10})

	var got []int
	Each2(ps, hs, func(_ EntityID, p *pos, h *hp) { got = append(got, p.X*100+h.V) })
	assert.Equal(t, []int{110, 330}, got)
}
