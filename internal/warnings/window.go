package warnings

// window is a bounded FIFO of recent readings. The capacity is passed on
// every push rather than fixed at construction because it derives from the
// live threshold profile (usage_sustain_sec / poll interval), which the user
// can change at runtime; the window shrinks or grows to follow.
type window struct {
	vals []float64
}

// push appends v and evicts from the front until at most capacity values remain.
func (w *window) push(v float64, capacity int) {
	if capacity < 1 {
		capacity = 1
	}
	w.vals = append(w.vals, v)
	if excess := len(w.vals) - capacity; excess > 0 {
		w.vals = w.vals[excess:]
		// Reallocate occasionally so the backing array doesn't pin evicted
		// prefixes forever.
		if cap(w.vals) > 4*capacity {
			w.vals = append(make([]float64, 0, capacity), w.vals...)
		}
	}
}

func (w *window) len() int { return len(w.vals) }

// mean averages all retained values. Returns 0 on an empty window.
func (w *window) mean() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.vals {
		sum += v
	}
	return sum / float64(len(w.vals))
}

// meanLast averages the most recent n values (or all, if fewer are held).
func (w *window) meanLast(n int) float64 {
	if n <= 0 || len(w.vals) == 0 {
		return 0
	}
	if n > len(w.vals) {
		n = len(w.vals)
	}
	var sum float64
	for _, v := range w.vals[len(w.vals)-n:] {
		sum += v
	}
	return sum / float64(n)
}
