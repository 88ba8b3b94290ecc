package store

import (
	"context"
	"errors"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// Store persists solve records for the API. The solver itself holds no
// state between solves; this history exists only for listing and plotting.
type Store interface {
	SaveSolve(ctx context.Context, rec model.SolveRecord) error
	GetSolve(ctx context.Context, id string) (model.SolveRecord, error)
	ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveSummary, string, error)
	Close()
}

var ErrNotFound = errors.New("not found")
