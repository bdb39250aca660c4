package compute

// ring is a fixed-capacity FIFO store. Pushing evicts the oldest element.
// Logical index 0 is the oldest element and Len()-1 the newest; physical
// order is hidden behind the write cursor.
type ring[T any] struct {
	vals []T
	next int // physical slot of the oldest element, overwritten by the next push
}

// newRing returns a ring of the given capacity with every slot set to fill.
func newRing[T any](capacity int, fill T) *ring[T] {
	vals := make([]T, capacity)
	for i := range vals {
		vals[i] = fill
	}
	return &ring[T]{vals: vals}
}

func (r *ring[T]) Len() int { return len(r.vals) }

func (r *ring[T]) push(v T) {
	r.vals[r.next] = v
	r.next = (r.next + 1) % len(r.vals)
}

// at returns the element at logical index i (0 = oldest).
func (r *ring[T]) at(i int) T {
	return r.vals[(r.next+i)%len(r.vals)]
}

// last returns the newest element.
func (r *ring[T]) last() T {
	return r.at(len(r.vals) - 1)
}

// slice copies the logical range [start, stop) out of the ring.
func (r *ring[T]) slice(start, stop int) []T {
	out := make([]T, 0, stop-start)
	for i := start; i < stop; i++ {
		out = append(out, r.at(i))
	}
	return out
}

// window copies the n newest elements, oldest first. n is clamped to
// [0, Len()].
func (r *ring[T]) window(n int) []T {
	n = max(0, min(n, len(r.vals)))
	return r.slice(len(r.vals)-n, len(r.vals))
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}
