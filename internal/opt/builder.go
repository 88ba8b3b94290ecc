package opt

import (
	"math"

	sat "github.com/crillab/gophersat/solver"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// DefaultDistanceScale converts float distances into the integer costs the
// pseudo-Boolean backend needs. Four decimal digits survive the rounding.
const DefaultDistanceScale = 1e4

// ArcKey identifies one arc decision: vehicle v travels loc[From] -> loc[To].
// From/To are positions in Instance.Locations, not location IDs.
type ArcKey struct {
	Vehicle int
	From    int
	To      int
}

// Model is the pseudo-Boolean encoding of one VRP instance plus the variable
// registry the extractor needs to decode an assignment. One Model belongs to
// exactly one solve; it is never shared or reused.
type Model struct {
	inst   model.Instance
	matrix model.DistanceMatrix
	scale  float64

	n       int // location count, depot included
	numVars int

	arcs     map[ArcKey]int // arc decision -> backend variable (1-based)
	arcByVar map[int]ArcKey
	visit    map[[2]int]int // (vehicle, customer position) -> variable
	used     []int          // per-vehicle "leaves the depot" variable

	base        []sat.PBConstr
	costLits    []sat.Lit
	costWeights []int
}

// BuildModel validates the instance and encodes it. It fails with ErrBuilder
// for malformed input and with ErrInfeasibleInstance when some customer
// demand exceeds every vehicle capacity, in both cases before any search.
func BuildModel(inst model.Instance, matrix model.DistanceMatrix, scale float64) (*Model, error) {
	if scale <= 0 {
		scale = DefaultDistanceScale
	}
	if err := validateInstance(inst, matrix); err != nil {
		return nil, err
	}
	maxCap := inst.MaxCapacity()
	for id, d := range inst.Demands {
		if d > maxCap {
			return nil, infeasiblef("demand %d at location %d exceeds every vehicle capacity (max %d)", d, id, maxCap)
		}
	}

	m := &Model{
		inst:     inst,
		matrix:   matrix,
		scale:    scale,
		n:        len(inst.Locations),
		arcs:     map[ArcKey]int{},
		arcByVar: map[int]ArcKey{},
		visit:    map[[2]int]int{},
	}
	m.encode()
	return m, nil
}

func validateInstance(inst model.Instance, matrix model.DistanceMatrix) error {
	if len(inst.Locations) < 2 {
		return builderErrf("need a depot and at least one customer, got %d locations", len(inst.Locations))
	}
	if len(inst.Vehicles) == 0 {
		return builderErrf("empty fleet")
	}
	if inst.Locations[0].ID != model.Depot {
		return builderErrf("location 0 must be the depot (id %d), got id %d", model.Depot, inst.Locations[0].ID)
	}
	seen := map[int]bool{}
	for _, l := range inst.Locations {
		if seen[l.ID] {
			return builderErrf("duplicate location id %d", l.ID)
		}
		seen[l.ID] = true
	}
	for id, d := range inst.Demands {
		if d < 0 {
			return builderErrf("negative demand %d at location %d", d, id)
		}
		if id == model.Depot {
			return builderErrf("demand declared for the depot")
		}
		if !seen[id] {
			return builderErrf("demand declared for unknown location %d", id)
		}
	}
	for _, v := range inst.Vehicles {
		if v.Capacity < 0 {
			return builderErrf("vehicle %d has negative capacity %d", v.ID, v.Capacity)
		}
	}
	if len(matrix) != len(inst.Locations) {
		return builderErrf("distance matrix has %d rows for %d locations", len(matrix), len(inst.Locations))
	}
	for i, row := range matrix {
		if len(row) != len(inst.Locations) {
			return builderErrf("distance matrix row %d has %d columns for %d locations", i, len(row), len(inst.Locations))
		}
		for j, d := range row {
			if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				return builderErrf("distance matrix entry (%d,%d) = %v is not a non-negative real", i, j, d)
			}
		}
	}
	return nil
}

func (m *Model) newVar() int {
	m.numVars++
	return m.numVars
}

// encode lays out variables and the base constraint set. Subtour cuts are
// not part of the base: the search loop adds them lazily.
func (m *Model) encode() {
	inst := m.inst

	// Arc decisions plus objective terms.
	for k := range inst.Vehicles {
		for i := 0; i < m.n; i++ {
			for j := 0; j < m.n; j++ {
				if i == j {
					continue
				}
				v := m.newVar()
				key := ArcKey{Vehicle: k, From: i, To: j}
				m.arcs[key] = v
				m.arcByVar[v] = key
				if w := int(math.Round(m.matrix[i][j] * m.scale)); w > 0 {
					m.costLits = append(m.costLits, sat.IntToLit(int32(v)))
					m.costWeights = append(m.costWeights, w)
				}
			}
		}
	}
	// Visit variables (vehicle serves customer) and per-vehicle use.
	for k := range inst.Vehicles {
		for i := 1; i < m.n; i++ {
			m.visit[[2]int{k, i}] = m.newVar()
		}
	}
	m.used = make([]int, len(inst.Vehicles))
	for k := range inst.Vehicles {
		m.used[k] = m.newVar()
	}

	// Depot balance: a vehicle leaves iff it is used, returns iff it is
	// used. "sum(arcs) + not(used) == 1" pins the sum to the used flag
	// without needing negative weights.
	for k := range inst.Vehicles {
		var outs, ins []int
		for j := 1; j < m.n; j++ {
			outs = append(outs, m.arcs[ArcKey{k, 0, j}])
			ins = append(ins, m.arcs[ArcKey{k, j, 0}])
		}
		m.addEqWithFlag(outs, m.used[k])
		m.addEqWithFlag(ins, m.used[k])
		if inst.RequireAllVehicles {
			m.base = append(m.base, sat.PropClause(m.used[k]))
		}
	}

	// Flow conservation: vehicle k enters customer i iff it serves i, and
	// leaves iff it serves i.
	for k := range inst.Vehicles {
		for i := 1; i < m.n; i++ {
			var ins, outs []int
			for j := 0; j < m.n; j++ {
				if j == i {
					continue
				}
				ins = append(ins, m.arcs[ArcKey{k, j, i}])
				outs = append(outs, m.arcs[ArcKey{k, i, j}])
			}
			m.addEqWithFlag(ins, m.visit[[2]int{k, i}])
			m.addEqWithFlag(outs, m.visit[[2]int{k, i}])
		}
	}

	// Visit-once: exactly one vehicle serves each customer.
	for i := 1; i < m.n; i++ {
		lits := make([]int, 0, len(inst.Vehicles))
		for k := range inst.Vehicles {
			lits = append(lits, m.visit[[2]int{k, i}])
		}
		m.base = append(m.base, sat.Eq(lits, ones(len(lits)), 1)...)
	}

	// Capacity: demand served by a vehicle stays within its capacity.
	for k, veh := range inst.Vehicles {
		var lits, weights []int
		for i := 1; i < m.n; i++ {
			d := inst.Demands[inst.Locations[i].ID]
			if d == 0 {
				continue
			}
			lits = append(lits, m.visit[[2]int{k, i}])
			weights = append(weights, d)
		}
		if len(lits) > 0 {
			m.base = append(m.base, sat.LtEq(lits, weights, veh.Capacity))
		}
	}
}

// addEqWithFlag appends "sum(vars) == flag" encoded as
// sum(vars) + not(flag) == 1, which keeps every weight positive.
func (m *Model) addEqWithFlag(vars []int, flag int) {
	lits := append(append([]int{}, vars...), -flag)
	m.base = append(m.base, sat.Eq(lits, ones(len(lits)), 1)...)
}

// problem assembles a fresh backend problem from the base constraints plus
// any accumulated subtour cuts. gophersat problems are not incremental, so
// every cut round re-parses; instances in scope are small enough for that.
func (m *Model) problem(cuts []sat.PBConstr) *sat.Problem {
	constrs := make([]sat.PBConstr, 0, len(m.base)+len(cuts))
	constrs = append(constrs, m.base...)
	constrs = append(constrs, cuts...)
	pb := sat.ParsePBConstrs(constrs)
	pb.SetCostFunc(m.costLits, m.costWeights)
	return pb
}

// Assignment is the decoded truth value of every arc decision.
type Assignment map[ArcKey]bool

// decode reads only the arc variables this model registered, ignoring the
// backend's auxiliary variables. The backend model is indexed by variable-1.
func (m *Model) decode(bound []bool) Assignment {
	asg := make(Assignment, len(m.arcs))
	for key, v := range m.arcs {
		if v-1 < len(bound) && bound[v-1] {
			asg[key] = true
		}
	}
	return asg
}

// subtourCut forbids the aggregated arc set of a non-depot cycle: at most
// |S|-1 arcs may run between members of S, over all vehicles. Any
// depot-connected solution already satisfies this, so no feasible route is
// ever cut off.
func (m *Model) subtourCut(cycle []int) sat.PBConstr {
	var lits []int
	for k := range m.inst.Vehicles {
		for _, i := range cycle {
			for _, j := range cycle {
				if i == j {
					continue
				}
				lits = append(lits, m.arcs[ArcKey{k, i, j}])
			}
		}
	}
	return sat.LtEq(lits, ones(len(lits)), len(cycle)-1)
}

func ones(n int) []int {
	w := make([]int, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// descale converts a backend objective weight back into distance units.
func (m *Model) descale(weight int) float64 {
	return float64(weight) / m.scale
}

// objectiveTolerance bounds the fixed-point rounding error the scaled
// objective can accumulate: half a scale unit per arc in the solution.
func (m *Model) objectiveTolerance(arcCount int) float64 {
	return float64(arcCount) * (0.5 / m.scale)
}
