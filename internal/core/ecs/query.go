package ecs

// Each2 iterates over entities that have both component A and B, in the
// insertion order of store A.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	sa.Each(func(id EntityID, a *A) {
		if b, ok := sb.data[id]; ok {
			fn(id, a, b)
		}
	})
}

// Each3 iterates over entities that have components A, B, and C, in the
// insertion order of store A.
func Each3[A, B, C any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], sc *PtrComponentStore[C], fn func(EntityID, *A, *B, *C)) {
	sa.Each(func(id EntityID, a *A) {
		b, ok := sb.data[id]
		if !ok {
			return
		}
		if c, ok := sc.data[id]; ok {
			fn(id, a, b, c)
		}
	})
}
