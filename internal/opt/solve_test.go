package opt

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

func testConfig() Config {
	return Config{TimeBudget: 30 * time.Second}
}

// checkInvariants asserts coverage, closure, and capacity for a solution
// that claims to carry routes.
func checkInvariants(t *testing.T, in model.Instance, sol model.Solution) {
	t.Helper()
	if !sol.Outcome.HasRoutes() {
		t.Fatalf("outcome %s carries no routes", sol.Outcome)
	}
	seen := map[int]int{}
	for _, r := range sol.Routes {
		if !r.Used() {
			continue
		}
		if r.Stops[0] != model.Depot || r.Stops[len(r.Stops)-1] != model.Depot {
			t.Fatalf("route %v not depot-bookended", r.Stops)
		}
		load := 0
		for _, s := range r.Stops[1 : len(r.Stops)-1] {
			seen[s]++
			load += in.Demands[s]
		}
		var cap int
		for _, v := range in.Vehicles {
			if v.ID == r.VehicleID {
				cap = v.Capacity
			}
		}
		if load > cap {
			t.Fatalf("vehicle %d load %d over capacity %d", r.VehicleID, load, cap)
		}
		if r.Load != load {
			t.Fatalf("vehicle %d reported load %d, recomputed %d", r.VehicleID, r.Load, load)
		}
	}
	for _, id := range in.Customers() {
		if seen[id] != 1 {
			t.Fatalf("customer %d visited %d times", id, seen[id])
		}
	}
}

func TestSolveTwoVehiclesThreeCustomers(t *testing.T) {
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{1, 0}},
			{ID: 2, Coord: orb.Point{2, 0}},
			{ID: 3, Coord: orb.Point{0, 2}},
		},
		Demands:  map[int]int{1: 2, 2: 2, 3: 3},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 5}, {ID: 1, Capacity: 5}},
	}
	sol, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcome %s, want optimal", sol.Outcome)
	}
	checkInvariants(t, in, sol)
	// Optimum: one vehicle does 0->1->2->0 (or reversed), the other
	// 0->3->0, for 4 + 4 = 8 total.
	if math.Abs(sol.TotalDistance-8) > 1e-6 {
		t.Fatalf("total distance %v, want 8", sol.TotalDistance)
	}
	if math.Abs(sol.TotalDistance-sol.Objective) > 1e-3 {
		t.Fatalf("objective %v disagrees with distance %v", sol.Objective, sol.TotalDistance)
	}
}

func TestSolveObjectiveDeterminism(t *testing.T) {
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{3, 1}},
			{ID: 2, Coord: orb.Point{1, 4}},
			{ID: 3, Coord: orb.Point{4, 4}},
		},
		Demands:  map[int]int{1: 1, 2: 1, 3: 1},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 2}, {ID: 1, Capacity: 2}},
	}
	first, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	second, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if first.Outcome != model.OutcomeOptimal || second.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcomes %s / %s, want optimal", first.Outcome, second.Outcome)
	}
	// Route identity may differ between equal-cost optima; the objective
	// value may not.
	if math.Abs(first.Objective-second.Objective) > 1e-9 {
		t.Fatalf("objectives differ: %v vs %v", first.Objective, second.Objective)
	}
}

func TestSolveRequireAllVehicles(t *testing.T) {
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{1, 0}},
			{ID: 2, Coord: orb.Point{2, 0}},
		},
		Demands:            map[int]int{1: 1, 2: 1},
		Vehicles:           []model.Vehicle{{ID: 0, Capacity: 5}, {ID: 1, Capacity: 5}},
		RequireAllVehicles: true,
	}
	sol, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcome %s, want optimal", sol.Outcome)
	}
	checkInvariants(t, in, sol)
	for _, r := range sol.Routes {
		if !r.Used() {
			t.Fatalf("vehicle %d unused despite requireAllVehicles", r.VehicleID)
		}
	}
}

func TestSolveInfeasibleFleetCapacity(t *testing.T) {
	// Each demand fits some vehicle, so the builder precheck passes, but
	// the pair cannot share the single vehicle: the backend must prove
	// infeasibility.
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{1, 0}},
			{ID: 2, Coord: orb.Point{0, 1}},
		},
		Demands:  map[int]int{1: 4, 2: 4},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 5}},
	}
	sol, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeInfeasible {
		t.Fatalf("outcome %s, want infeasible", sol.Outcome)
	}
	if len(sol.Routes) != 0 {
		t.Fatalf("infeasible solve returned routes: %v", sol.Routes)
	}
}

func TestSolveInfeasibleInstancePrecheck(t *testing.T) {
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{1, 0}},
		},
		Demands:  map[int]int{1: 10},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 5}},
	}
	_, err := Solve(in, testConfig())
	if !errors.Is(err, ErrInfeasibleInstance) {
		t.Fatalf("got %v, want ErrInfeasibleInstance", err)
	}
}

func TestSolveEliminatesSubtours(t *testing.T) {
	// Two tight far-apart pairs make a detached cycle strictly cheaper
	// than any depot-connected tour, so the first round must produce a
	// subtour and the cut loop must clean it up.
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{50, 0}},
			{ID: 2, Coord: orb.Point{50, 1}},
			{ID: 3, Coord: orb.Point{-50, 0}},
			{ID: 4, Coord: orb.Point{-50, 1}},
		},
		Demands:  map[int]int{1: 1, 2: 1, 3: 1, 4: 1},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 10}},
	}
	sol, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcome %s, want optimal", sol.Outcome)
	}
	checkInvariants(t, in, sol)
	if sol.Cuts == 0 {
		t.Fatalf("expected at least one subtour cut, got rounds=%d cuts=%d", sol.Rounds, sol.Cuts)
	}
}

func TestSolveTargetGapAcceptsEarly(t *testing.T) {
	// Same geometry as the subtour test, so at least one relaxation round
	// completes before a clean solution exists. With a gap this wide any
	// clean incumbent is acceptable; either the search stops early with
	// Feasible or optimality lands first, but the routes must be valid
	// either way.
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{50, 0}},
			{ID: 2, Coord: orb.Point{50, 1}},
			{ID: 3, Coord: orb.Point{-50, 0}},
			{ID: 4, Coord: orb.Point{-50, 1}},
		},
		Demands:  map[int]int{1: 1, 2: 1, 3: 1, 4: 1},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 10}},
	}
	cfg := testConfig()
	cfg.TargetGap = 0.99
	sol, err := Solve(in, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !sol.Outcome.HasRoutes() {
		t.Fatalf("outcome %s carries no routes", sol.Outcome)
	}
	checkInvariants(t, in, sol)
}

func TestSolveSingleCustomer(t *testing.T) {
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{0, 3}},
		},
		Demands:  map[int]int{1: 1},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 1}},
	}
	sol, err := Solve(in, testConfig())
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcome %s, want optimal", sol.Outcome)
	}
	checkInvariants(t, in, sol)
	if math.Abs(sol.TotalDistance-6) > 1e-6 {
		t.Fatalf("total distance %v, want 6", sol.TotalDistance)
	}
}

func TestSolveStreamsIncumbents(t *testing.T) {
	var incumbents []float64
	cfg := testConfig()
	cfg.OnIncumbent = func(obj float64) { incumbents = append(incumbents, obj) }
	in := model.Instance{
		Locations: []model.Location{
			{ID: 0, Coord: orb.Point{0, 0}},
			{ID: 1, Coord: orb.Point{1, 0}},
			{ID: 2, Coord: orb.Point{2, 0}},
			{ID: 3, Coord: orb.Point{0, 2}},
		},
		Demands:  map[int]int{1: 2, 2: 2, 3: 3},
		Vehicles: []model.Vehicle{{ID: 0, Capacity: 5}, {ID: 1, Capacity: 5}},
	}
	sol, err := Solve(in, cfg)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Outcome != model.OutcomeOptimal {
		t.Fatalf("outcome %s, want optimal", sol.Outcome)
	}
	if len(incumbents) == 0 {
		t.Fatalf("no incumbents reported for a satisfiable instance")
	}
	last := incumbents[len(incumbents)-1]
	if math.Abs(last-sol.Objective) > 1e-6 {
		t.Fatalf("last incumbent %v, final objective %v", last, sol.Objective)
	}
}
