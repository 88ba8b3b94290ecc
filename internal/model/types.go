package model

import (
	"time"

	"github.com/paulmach/orb"
)

// Depot is the reserved location identifier for the depot.
const Depot = 0

// Location is a point a vehicle can visit. ID 0 is the depot.
type Location struct {
	ID    int       `json:"id"`
	Coord orb.Point `json:"coord"`
}

// Vehicle is one member of the fleet.
type Vehicle struct {
	ID       int `json:"id"`
	Capacity int `json:"capacity"`
}

// Instance is a single capacitated VRP problem. It is read-only for the
// life of one solve; nothing in the solver mutates it.
type Instance struct {
	Locations []Location  `json:"locations"` // index 0 is the depot
	Demands   map[int]int `json:"demands"`   // customer location ID -> load
	Vehicles  []Vehicle   `json:"vehicles"`

	// RequireAllVehicles forces every vehicle to leave the depot exactly
	// once instead of allowing unused vehicles.
	RequireAllVehicles bool `json:"requireAllVehicles,omitempty"`
}

// Customers returns the non-depot location IDs in instance order.
func (in Instance) Customers() []int {
	out := make([]int, 0, len(in.Locations))
	for _, l := range in.Locations {
		if l.ID != Depot {
			out = append(out, l.ID)
		}
	}
	return out
}

// MaxCapacity returns the largest vehicle capacity in the fleet.
func (in Instance) MaxCapacity() int {
	max := 0
	for _, v := range in.Vehicles {
		if v.Capacity > max {
			max = v.Capacity
		}
	}
	return max
}

// Route is the ordered stops of one vehicle. Stops is empty for an unused
// vehicle; otherwise it begins and ends with the depot.
type Route struct {
	VehicleID int     `json:"vehicleId"`
	Stops     []int   `json:"stops"`
	Load      int     `json:"load"`
	Distance  float64 `json:"distance"`
}

// Used reports whether the vehicle left the depot at all.
func (r Route) Used() bool { return len(r.Stops) > 0 }

// Outcome tags the result of one search invocation.
type Outcome string

const (
	OutcomeOptimal    Outcome = "optimal"
	OutcomeFeasible   Outcome = "feasible"
	OutcomeInfeasible Outcome = "infeasible"
	OutcomeUnknown    Outcome = "unknown"
)

// HasRoutes reports whether the outcome carries a usable assignment.
func (o Outcome) HasRoutes() bool {
	return o == OutcomeOptimal || o == OutcomeFeasible
}

// Solution is the decoded result of one solve.
type Solution struct {
	Outcome       Outcome `json:"outcome"`
	Routes        []Route `json:"routes,omitempty"`
	TotalDistance float64 `json:"totalDistance"`
	Objective     float64 `json:"objective"`
	Rounds        int     `json:"rounds"`
	Cuts          int     `json:"cuts"`
}

// API request/response shapes.

type LocationIn struct {
	ID     int     `json:"id" yaml:"id"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Demand int     `json:"demand,omitempty" yaml:"demand,omitempty"`
}

type VehicleIn struct {
	ID       int `json:"id" yaml:"id"`
	Capacity int `json:"capacity" yaml:"capacity"`
}

type SolveRequest struct {
	Locations          []LocationIn `json:"locations" yaml:"locations"`
	Vehicles           []VehicleIn  `json:"vehicles" yaml:"vehicles"`
	TimeBudgetMs       int          `json:"timeBudgetMs,omitempty" yaml:"timeBudgetMs,omitempty"`
	RequireAllVehicles bool         `json:"requireAllVehicles,omitempty" yaml:"requireAllVehicles,omitempty"`
}

// Instance converts the wire request into a solver instance.
func (req SolveRequest) Instance() Instance {
	in := Instance{
		Locations:          make([]Location, 0, len(req.Locations)),
		Demands:            map[int]int{},
		Vehicles:           make([]Vehicle, 0, len(req.Vehicles)),
		RequireAllVehicles: req.RequireAllVehicles,
	}
	for _, l := range req.Locations {
		in.Locations = append(in.Locations, Location{ID: l.ID, Coord: orb.Point{l.X, l.Y}})
		if l.ID != Depot && l.Demand > 0 {
			in.Demands[l.ID] = l.Demand
		}
	}
	for _, v := range req.Vehicles {
		in.Vehicles = append(in.Vehicles, Vehicle{ID: v.ID, Capacity: v.Capacity})
	}
	return in
}

// SolveRecord is the persisted result of one solve invocation.
type SolveRecord struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"createdAt"`
	Request       SolveRequest `json:"request"`
	Outcome       Outcome      `json:"outcome"`
	Objective     float64      `json:"objective"`
	TotalDistance float64      `json:"totalDistance"`
	Routes        []Route      `json:"routes,omitempty"`
	DurationMs    int64        `json:"durationMs"`
}

// SolveSummary is the listing shape for solve history.
type SolveSummary struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Outcome       Outcome   `json:"outcome"`
	TotalDistance float64   `json:"totalDistance"`
	Customers     int       `json:"customers"`
	Vehicles      int       `json:"vehicles"`
}
