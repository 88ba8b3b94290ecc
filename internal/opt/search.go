package opt

import (
	"time"

	sat "github.com/crillab/gophersat/solver"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// SearchOptions configure one backend invocation.
type SearchOptions struct {
	// TimeBudget caps the whole search, cut rounds included. Zero means
	// DefaultTimeBudget.
	TimeBudget time.Duration
	// MaxRounds caps cut-generation rounds. Zero means DefaultMaxRounds.
	MaxRounds int
	// TargetGap, when positive, lets the search stop with Feasible as soon
	// as a subtour-free incumbent is within this relative gap of the best
	// relaxation bound, instead of waiting for the full optimality proof.
	TargetGap float64
	// OnIncumbent, when set, receives the descaled objective of every
	// improving solution the backend reports.
	OnIncumbent func(objective float64)
}

const (
	DefaultTimeBudget = 10 * time.Second
	DefaultMaxRounds  = 64
)

// SearchResult is the raw outcome of the search, before route extraction.
// Assignment and objective are only meaningful for outcomes that carry
// routes.
type SearchResult struct {
	Outcome    model.Outcome
	Assignment Assignment
	Objective  float64 // descaled backend objective
	Rounds     int
	Cuts       int
}

// Search drives gophersat over the model under the time budget. Because the
// encoding is purely Boolean, subtour elimination runs as a lazy cut loop:
// optimize, decode the aggregated arcs, and if any non-depot cycle remains,
// forbid it and re-solve with the remaining budget. A solution that survives
// the loop is subtour-free, and since cuts never exclude a depot-connected
// solution, a completed final round is a true optimum.
func Search(m *Model, opts SearchOptions) SearchResult {
	budget := opts.TimeBudget
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	deadline := time.Now().Add(budget)

	// Lower bound on the true optimum: the optimum of any completed round
	// is the optimum of a relaxation (cuts only remove infeasible
	// assignments), so it never exceeds the subtour-free optimum.
	var lower float64
	accept := func(r sat.Result) bool {
		if opts.TargetGap <= 0 || lower <= 0 {
			return false
		}
		obj := m.descale(r.Weight)
		if obj <= 0 || (obj-lower)/obj > opts.TargetGap {
			return false
		}
		return len(findSubtours(m.n, m.decode(r.Model))) == 0
	}

	var cuts []sat.PBConstr
	res := SearchResult{Outcome: model.OutcomeUnknown}
	for round := 1; round <= maxRounds; round++ {
		res.Rounds = round
		remaining := time.Until(deadline)
		if remaining <= 0 {
			res.Outcome = model.OutcomeUnknown
			return res
		}
		s := sat.New(m.problem(cuts))
		s.Verbose = false
		backend, stopped := runOptimal(s, remaining, m, opts.OnIncumbent, accept)
		switch backend.Status {
		case sat.Unsat:
			// Cuts are sound, so unsatisfiability at any round proves
			// the instance itself has no feasible routing.
			res.Outcome = model.OutcomeInfeasible
			res.Assignment = nil
			return res
		case sat.Indet:
			res.Outcome = model.OutcomeUnknown
			return res
		}

		asg := m.decode(backend.Model)
		cycles := findSubtours(m.n, asg)
		if len(cycles) == 0 {
			// The budget expiring mid-round means the backend could not
			// finish proving optimality of its incumbent.
			if stopped {
				res.Outcome = model.OutcomeFeasible
			} else {
				res.Outcome = model.OutcomeOptimal
			}
			res.Assignment = asg
			res.Objective = m.descale(backend.Weight)
			return res
		}
		if stopped {
			// Out of budget with a cyclic incumbent: nothing usable.
			res.Outcome = model.OutcomeUnknown
			return res
		}
		if b := m.descale(backend.Weight); b > lower {
			lower = b
		}
		for _, c := range cycles {
			cuts = append(cuts, m.subtourCut(c))
			res.Cuts++
		}
	}
	res.Outcome = model.OutcomeUnknown
	return res
}

// runOptimal invokes the backend's optimization loop with a cooperative stop
// on budget expiry, relaying improving incumbents as they arrive. accept may
// end the search early for an incumbent that is already good enough. The
// returned flag reports whether a stop fired, in which case a Sat result is
// the best incumbent rather than a proven optimum.
func runOptimal(s *sat.Solver, budget time.Duration, m *Model, onIncumbent func(float64), accept func(sat.Result) bool) (sat.Result, bool) {
	results := make(chan sat.Result)
	done := make(chan sat.Result, 1)
	stop := make(chan struct{})
	go func() {
		done <- s.Optimal(results, stop)
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()
	stopped := false
	var incumbent, accepted sat.Result
	for {
		select {
		case r, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if r.Status == sat.Sat {
				incumbent = r
				if onIncumbent != nil {
					onIncumbent(m.descale(r.Weight))
				}
				if !stopped && accept != nil && accept(r) {
					accepted = r
					close(stop)
					stopped = true
				}
			}
		case <-timer.C:
			if !stopped {
				close(stop)
				stopped = true
			}
		case r := <-done:
			// The backend closes results before returning; drain what is
			// left so late incumbents are not lost.
			for results != nil {
				rr, ok := <-results
				if !ok {
					results = nil
					break
				}
				if rr.Status == sat.Sat {
					incumbent = rr
				}
			}
			if accepted.Status == sat.Sat {
				return accepted, true
			}
			if r.Status == sat.Indet && incumbent.Status == sat.Sat {
				// Stopped mid-proof but an incumbent exists: surface it.
				return incumbent, true
			}
			return r, stopped
		}
	}
}

// findSubtours walks the aggregated successor relation and reports every
// cycle that never touches the depot. Under the base constraints each
// visited customer has exactly one outgoing arc across the fleet, so the
// walk is deterministic.
func findSubtours(n int, asg Assignment) [][]int {
	succ := make([]int, n)
	for i := range succ {
		succ[i] = -1
	}
	for key, active := range asg {
		if active {
			succ[key.From] = key.To
		}
	}

	// Mark everything reachable from the depot as legitimate.
	onRoute := make([]bool, n)
	onRoute[0] = true
	for key, active := range asg {
		if !active || key.From != 0 {
			continue
		}
		for cur := key.To; cur > 0 && !onRoute[cur]; {
			onRoute[cur] = true
			next := succ[cur]
			if next < 0 {
				break
			}
			cur = next
		}
	}

	var cycles [][]int
	seen := make([]bool, n)
	for start := 1; start < n; start++ {
		if onRoute[start] || seen[start] || succ[start] < 0 {
			continue
		}
		var cycle []int
		cur := start
		closed := false
		for {
			cycle = append(cycle, cur)
			seen[cur] = true
			next := succ[cur]
			if next <= 0 {
				break // dead end or reaches the depot: not a cycle
			}
			if next == start {
				closed = true
				break
			}
			if seen[next] {
				break
			}
			cur = next
		}
		if closed && len(cycle) >= 2 {
			cycles = append(cycles, cycle)
		}
	}
	return cycles
}
