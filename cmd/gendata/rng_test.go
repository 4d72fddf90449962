package main

import (
	"strings"
	"testing"
)

func Test_Rng_reproducible(t *testing.T) {
	a := NewRng("hello")
	b := NewRng("hello")
	for i := 0; i < 100; i++ {
		if wa, wb := a.WordPair(), b.WordPair(); wa != wb {
			t.Fatalf("same seed diverged at draw %d: %q vs %q", i, wa, wb)
		}
	}

	c := NewRng("goodbye")
	same := 0
	d := NewRng("hello")
	for i := 0; i < 100; i++ {
		if c.WordPair() == d.WordPair() {
			same++
		}
	}
	if same == 100 {
		t.Error("different seeds produced an identical sequence")
	}
}

func Test_Rng_Words(t *testing.T) {
	r := NewRng("hello")
	for _, n := range []int{1, 3, 10} {
		got := r.Words(n)
		if len(strings.Fields(got)) != n {
			t.Errorf("Words(%d) returned %q", n, got)
		}
	}
}
