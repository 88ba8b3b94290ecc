// Package vis turns solved routes into a plot-ready payload: one
// lines+markers trace per vehicle over the instance coordinates, plus a
// depot marker and the total distance for the caption. It is a pure
// consumer of solutions and feeds nothing back into the solver.
package vis

import (
	"fmt"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// palette cycles across vehicles.
var palette = []string{"red", "blue", "green", "orange", "purple"}

// Trace is one vehicle's route as drawable X/Y series.
type Trace struct {
	Name  string    `json:"name"`
	Mode  string    `json:"mode"`
	Color string    `json:"color"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
}

// Marker is a single labelled point.
type Marker struct {
	Label string  `json:"label"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Figure is the full payload a front end needs to draw one solution.
type Figure struct {
	Title         string        `json:"title"`
	Outcome       model.Outcome `json:"outcome"`
	Depot         *Marker       `json:"depot,omitempty"`
	Traces        []Trace       `json:"traces"`
	TotalDistance float64       `json:"totalDistance"`
}

// RoutesFigure builds the figure for a solution over the instance's
// locations. Outcomes without routes produce an empty figure: nothing to
// draw is a valid rendering of infeasible and unknown.
func RoutesFigure(locs []model.Location, sol model.Solution) Figure {
	fig := Figure{
		Title:   "VRP Solution",
		Outcome: sol.Outcome,
		Traces:  []Trace{},
	}
	if !sol.Outcome.HasRoutes() {
		return fig
	}

	coord := make(map[int][2]float64, len(locs))
	for _, l := range locs {
		coord[l.ID] = [2]float64{l.Coord.X(), l.Coord.Y()}
		if l.ID == model.Depot {
			fig.Depot = &Marker{Label: "depot", X: l.Coord.X(), Y: l.Coord.Y()}
		}
	}

	for i, r := range sol.Routes {
		if !r.Used() {
			continue
		}
		tr := Trace{
			Name:  fmt.Sprintf("Vehicle %d", r.VehicleID),
			Mode:  "lines+markers",
			Color: palette[i%len(palette)],
			X:     make([]float64, 0, len(r.Stops)),
			Y:     make([]float64, 0, len(r.Stops)),
		}
		for _, id := range r.Stops {
			c := coord[id]
			tr.X = append(tr.X, c[0])
			tr.Y = append(tr.Y, c[1])
		}
		fig.Traces = append(fig.Traces, tr)
	}
	fig.TotalDistance = sol.TotalDistance
	return fig
}
