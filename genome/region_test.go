package genome

import "testing"

func TestRegionLess(t *testing.T) {
	a := New("chr1", 100, 200)
	b := New("chr1", 100, 150)
	c := New("chr1", 150, 200)
	if !b.Less(c) {
		t.Fatalf("expected %v < %v", b, c)
	}
	if !b.Less(a) {
		t.Fatalf("expected %v < %v (same begin, b ends earlier)", b, a)
	}
	if !a.Less(c) {
		t.Fatalf("expected %v < %v by begin", a, c)
	}
}

func TestRegionLessDifferentContigs(t *testing.T) {
	a := New("chr1", 0, 10)
	b := New("chr2", 0, 10)
	if !a.Less(b) {
		t.Fatalf("expected chr1 < chr2")
	}
	if b.Less(a) {
		t.Fatalf("did not expect chr2 < chr1")
	}
}

func TestRegionOverlaps(t *testing.T) {
	a := New("chr1", 10, 20)
	b := New("chr1", 15, 25)
	c := New("chr1", 20, 30)
	if !a.Overlaps(b) {
		t.Fatalf("expected overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("touching regions should not overlap")
	}
}

func TestRegionExpandClamps(t *testing.T) {
	r := New("chr1", 5, 10)
	expanded := r.Expand(10, 100)
	if expanded.Begin != 0 || expanded.End != 20 {
		t.Fatalf("expected clamp to [0,20), got %v", expanded)
	}
}
