package opt

import (
	"time"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// Config carries the solver knobs a caller may tune per solve.
type Config struct {
	TimeBudget    time.Duration
	DistanceScale float64
	MaxRounds     int
	TargetGap     float64
	OnIncumbent   func(objective float64)
}

// Solve runs the full pipeline for one instance: derive the distance
// matrix, build the model, search, and extract validated routes. Each call
// owns a fresh model and backend; concurrent calls share nothing.
func Solve(inst model.Instance, cfg Config) (model.Solution, error) {
	matrix := model.NewDistanceMatrix(inst.Locations)
	m, err := BuildModel(inst, matrix, cfg.DistanceScale)
	if err != nil {
		return model.Solution{}, err
	}
	res := Search(m, SearchOptions{
		TimeBudget:  cfg.TimeBudget,
		MaxRounds:   cfg.MaxRounds,
		TargetGap:   cfg.TargetGap,
		OnIncumbent: cfg.OnIncumbent,
	})
	return ExtractRoutes(m, res)
}
