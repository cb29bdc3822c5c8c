package resource

import "testing"

func TestArenaInsertGet(t *testing.T) {
	a := NewArena[string](4)
	v := "albedo"
	h := a.Insert(&v)

	if h.IsZero() {
		t.Fatal("Insert returned the zero handle")
	}
	got, ok := a.Get(h)
	if !ok {
		t.Fatal("Get did not resolve a freshly inserted handle")
	}
	if got != &v {
		t.Errorf("Get returned %p, want %p", got, &v)
	}
	if a.Len() != 1 {
		t.Errorf("Len() = %d, want 1", a.Len())
	}
}

func TestArenaStaleHandle(t *testing.T) {
	a := NewArena[int](1)
	first, second := 1, 2

	h1 := a.Insert(&first)
	if _, ok := a.Remove(h1); !ok {
		t.Fatal("Remove failed for a live handle")
	}
	h2 := a.Insert(&second)

	if h1.Index != h2.Index {
		t.Fatalf("slot was not recycled: h1=%v h2=%v", h1, h2)
	}
	if h1.Generation == h2.Generation {
		t.Errorf("generation not bumped on reuse: %v", h2)
	}
	if _, ok := a.Get(h1); ok {
		t.Error("stale handle resolved after its slot was reused")
	}
	if got, ok := a.Get(h2); !ok || *got != 2 {
		t.Errorf("Get(h2) = %v, %v; want 2, true", got, ok)
	}
}

func TestArenaZeroAndUnknownHandles(t *testing.T) {
	a := NewArena[int](0)

	tests := []struct {
		name string
		h    Handle
	}{
		{"zero", Handle{}},
		{"out of range", Handle{Index: 7, Generation: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := a.Get(tt.h); ok {
				t.Errorf("Get(%v) resolved, want miss", tt.h)
			}
			if _, ok := a.Remove(tt.h); ok {
				t.Errorf("Remove(%v) succeeded, want miss", tt.h)
			}
		})
	}
}

func TestArenaEach(t *testing.T) {
	a := NewArena[int](3)
	vals := []int{10, 20, 30}
	handles := make([]Handle, len(vals))
	for i := range vals {
		handles[i] = a.Insert(&vals[i])
	}
	a.Remove(handles[1])

	sum := 0
	a.Each(func(_ Handle, v *int) { sum += *v })
	if sum != 40 {
		t.Errorf("sum of live values = %d, want 40", sum)
	}
}
