package opt

import (
	"fmt"
	"math"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// ExtractRoutes decodes a solved assignment into validated per-vehicle
// routes. Any structural problem is a defect in the encoding or the backend
// and is surfaced instead of repaired: a walk that does not return to the
// depot within the location count is ErrMalformedAssignment, a coverage or
// capacity violation is ErrInvariantViolation, and a recomputed total
// distance that disagrees with the backend objective beyond the fixed-point
// tolerance is ErrConsistency.
func ExtractRoutes(m *Model, res SearchResult) (model.Solution, error) {
	sol := model.Solution{
		Outcome: res.Outcome,
		Rounds:  res.Rounds,
		Cuts:    res.Cuts,
	}
	if !res.Outcome.HasRoutes() {
		return sol, nil
	}

	inst := m.inst
	n := m.n

	// Per-vehicle successor tables. A vehicle with two active outgoing
	// arcs from the same location cannot be decoded.
	succ := make([][]int, len(inst.Vehicles))
	for k := range succ {
		succ[k] = make([]int, n)
		for i := range succ[k] {
			succ[k][i] = -1
		}
	}
	for key, active := range res.Assignment {
		if !active {
			continue
		}
		if succ[key.Vehicle][key.From] >= 0 {
			return sol, fmt.Errorf("%w: vehicle %d has two outgoing arcs from location %d",
				ErrMalformedAssignment, inst.Vehicles[key.Vehicle].ID, inst.Locations[key.From].ID)
		}
		succ[key.Vehicle][key.From] = key.To
	}

	visited := map[int]int{} // customer index -> visiting vehicle index
	arcCount := 0
	total := 0.0
	routes := make([]model.Route, 0, len(inst.Vehicles))
	for k, veh := range inst.Vehicles {
		route := model.Route{VehicleID: veh.ID}
		if succ[k][0] < 0 {
			routes = append(routes, route) // unused vehicle
			continue
		}
		stops := []int{0}
		load := 0
		cur := 0
		for steps := 0; ; steps++ {
			if steps > n {
				return sol, fmt.Errorf("%w: vehicle %d did not return to the depot within %d steps",
					ErrMalformedAssignment, veh.ID, n)
			}
			next := succ[k][cur]
			if next < 0 {
				return sol, fmt.Errorf("%w: vehicle %d route breaks off at location %d",
					ErrMalformedAssignment, veh.ID, inst.Locations[cur].ID)
			}
			total += m.matrix[cur][next]
			arcCount++
			stops = append(stops, next)
			if next == 0 {
				break
			}
			if prev, dup := visited[next]; dup {
				return sol, fmt.Errorf("%w: location %d visited by vehicles %d and %d",
					ErrInvariantViolation, inst.Locations[next].ID, inst.Vehicles[prev].ID, veh.ID)
			}
			visited[next] = k
			load += inst.Demands[inst.Locations[next].ID]
			cur = next
		}
		if load > veh.Capacity {
			return sol, fmt.Errorf("%w: vehicle %d carries %d over capacity %d",
				ErrInvariantViolation, veh.ID, load, veh.Capacity)
		}
		route.Load = load
		route.Stops = make([]int, len(stops))
		route.Distance = m.matrix.PathDistance(stops)
		for i, pos := range stops {
			route.Stops[i] = inst.Locations[pos].ID
		}
		routes = append(routes, route)
	}

	// Coverage: every customer on exactly one route. Double visits were
	// already caught above, so only omissions remain.
	for i := 1; i < n; i++ {
		if _, ok := visited[i]; !ok {
			return sol, fmt.Errorf("%w: location %d is on no route",
				ErrInvariantViolation, inst.Locations[i].ID)
		}
	}

	// Cross-check the realized distance against the backend objective,
	// allowing for the fixed-point rounding the scaled costs introduce.
	tol := m.objectiveTolerance(arcCount) + 1e-6*math.Max(1, total)
	if diff := math.Abs(total - res.Objective); diff > tol {
		return sol, fmt.Errorf("%w: recomputed distance %.6f vs backend objective %.6f (tolerance %.6f)",
			ErrConsistency, total, res.Objective, tol)
	}

	sol.Routes = routes
	sol.TotalDistance = total
	sol.Objective = res.Objective
	return sol, nil
}
