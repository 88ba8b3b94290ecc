package opt

import (
	"testing"
)

func asgFromArcs(arcs ...ArcKey) Assignment {
	asg := Assignment{}
	for _, a := range arcs {
		asg[a] = true
	}
	return asg
}

func TestFindSubtoursNone(t *testing.T) {
	// depot -> 1 -> 2 -> depot
	asg := asgFromArcs(ArcKey{0, 0, 1}, ArcKey{0, 1, 2}, ArcKey{0, 2, 0})
	if cycles := findSubtours(3, asg); len(cycles) != 0 {
		t.Fatalf("got cycles %v, want none", cycles)
	}
}

func TestFindSubtoursDetached(t *testing.T) {
	// depot -> 1 -> depot, plus detached 2 <-> 3
	asg := asgFromArcs(
		ArcKey{0, 0, 1}, ArcKey{0, 1, 0},
		ArcKey{0, 2, 3}, ArcKey{0, 3, 2},
	)
	cycles := findSubtours(4, asg)
	if len(cycles) != 1 {
		t.Fatalf("got %d cycles, want 1: %v", len(cycles), cycles)
	}
	got := map[int]bool{}
	for _, i := range cycles[0] {
		got[i] = true
	}
	if len(got) != 2 || !got[2] || !got[3] {
		t.Fatalf("cycle members %v, want {2,3}", cycles[0])
	}
}

func TestFindSubtoursMultiple(t *testing.T) {
	// two detached cycles on different vehicles, no depot arcs at all
	asg := asgFromArcs(
		ArcKey{0, 1, 2}, ArcKey{0, 2, 1},
		ArcKey{1, 3, 4}, ArcKey{1, 4, 3},
	)
	cycles := findSubtours(5, asg)
	if len(cycles) != 2 {
		t.Fatalf("got %d cycles, want 2: %v", len(cycles), cycles)
	}
}

func TestFindSubtoursCrossVehicleChain(t *testing.T) {
	// Aggregation is per-arc regardless of vehicle: a cycle split across
	// vehicles still counts.
	asg := asgFromArcs(ArcKey{0, 1, 2}, ArcKey{1, 2, 1})
	cycles := findSubtours(3, asg)
	if len(cycles) != 1 || len(cycles[0]) != 2 {
		t.Fatalf("got %v, want one 2-cycle", cycles)
	}
}
