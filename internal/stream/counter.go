package stream

// Counter tallies event occurrences by type. It exists for progress
// reporting only and carries no correctness weight.
type Counter map[EventType]int

func NewCounter() Counter {
	return make(Counter)
}

func (c Counter) Add(t EventType) {
	c[t]++
}

func (c Counter) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Clone copies the counter so callers can hand it out after the
// operation finishes.
func (c Counter) Clone() Counter {
	out := make(Counter, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
