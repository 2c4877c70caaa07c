package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Remove(id EntityID)
}

// PtrComponentStore is a generic typed store for ECS components.
// Iteration follows insertion order so that a tick's entity order is stable
// and reproducible between runs.
type PtrComponentStore[T any] struct {
	data  map[EntityID]*T
	order []EntityID
	dirty bool // order contains removed ids
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data:  make(map[EntityID]*T, 256),
		order: make([]EntityID, 0, 256),
	}
}

// Set stores c for id. Replacing an existing component keeps its position.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if _, ok := s.data[id]; !ok {
		s.order = append(s.order, id)
	}
	s.data[id] = c
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	c, ok := s.data[id]
	return c, ok
}

func (s *PtrComponentStore[T]) Remove(id EntityID) {
	if _, ok := s.data[id]; !ok {
		return
	}
	delete(s.data, id)
	s.dirty = true
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.data[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits components in insertion order. Components added during the
// walk are not visited; components removed during the walk are skipped.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	s.compact()
	n := len(s.order)
	for i := 0; i < n; i++ {
		id := s.order[i]
		if c, ok := s.data[id]; ok {
			fn(id, c)
		}
	}
}

// IDs returns a copy of the live ids in insertion order.
func (s *PtrComponentStore[T]) IDs() []EntityID {
	s.compact()
	out := make([]EntityID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *PtrComponentStore[T]) compact() {
	if !s.dirty {
		return
	}
	live := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.data[id]; ok {
			live = append(live, id)
		}
	}
	s.order = live
	s.dirty = false
}
