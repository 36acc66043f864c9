package lending

// Sequence hands out increasing ids for one entity type.
// It is owned by a Ledger; it is not safe for concurrent use.
type Sequence struct {
	next int64
}

func NewSequence() *Sequence {
	return &Sequence{next: 1}
}

// Next returns the current value and advances the counter.
func (s *Sequence) Next() int64 {
	id := s.next
	s.next++
	return id
}

// Peek returns the id the next call to Next will hand out.
func (s *Sequence) Peek() int64 { return s.next }

// Restore makes the next call to Next return v. Values below 1 reset to 1.
func (s *Sequence) Restore(v int64) {
	if v < 1 {
		v = 1
	}
	s.next = v
}
