package api

import (
	"fmt"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// validateSolveRequest rejects structurally bad requests before they reach
// the model builder. Feasibility is the builder's concern, shape is ours.
func validateSolveRequest(req *model.SolveRequest) error {
	if len(req.Locations) == 0 {
		return fmt.Errorf("locations are required")
	}
	depots := 0
	seen := map[int]bool{}
	for _, l := range req.Locations {
		if seen[l.ID] {
			return fmt.Errorf("duplicate location id %d", l.ID)
		}
		seen[l.ID] = true
		if l.ID == model.Depot {
			depots++
			if l.Demand != 0 {
				return fmt.Errorf("the depot cannot have a demand")
			}
		}
		if l.Demand < 0 {
			return fmt.Errorf("location %d has negative demand %d", l.ID, l.Demand)
		}
	}
	if depots != 1 {
		return fmt.Errorf("exactly one location must have the depot id %d", model.Depot)
	}
	if req.Locations[0].ID != model.Depot {
		return fmt.Errorf("the first location must be the depot")
	}
	if len(req.Locations) < 2 {
		return fmt.Errorf("at least one customer location is required")
	}
	if len(req.Vehicles) == 0 {
		return fmt.Errorf("at least one vehicle is required")
	}
	seenVeh := map[int]bool{}
	for _, v := range req.Vehicles {
		if seenVeh[v.ID] {
			return fmt.Errorf("duplicate vehicle id %d", v.ID)
		}
		seenVeh[v.ID] = true
		if v.Capacity < 0 {
			return fmt.Errorf("vehicle %d has negative capacity %d", v.ID, v.Capacity)
		}
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	return nil
}
