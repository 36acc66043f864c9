package lending

import "testing"

func TestSequence(t *testing.T) {
	s := NewSequence()
	if s.Peek() != 1 {
		t.Fatalf("fresh sequence should start at 1, got %d", s.Peek())
	}
	for want := int64(1); want <= 3; want++ {
		if got := s.Next(); got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if s.Peek() != 4 {
		t.Fatalf("Peek() = %d, want 4", s.Peek())
	}
}

func TestSequenceRestore(t *testing.T) {
	cases := []struct {
		restore int64
		want    int64
	}{
		{10, 10},
		{1, 1},
		{0, 1},
		{-5, 1},
	}
	for _, c := range cases {
		s := NewSequence()
		s.Next()
		s.Restore(c.restore)
		if got := s.Next(); got != c.want {
			t.Errorf("Restore(%d) then Next() = %d, want %d", c.restore, got, c.want)
		}
	}
}
