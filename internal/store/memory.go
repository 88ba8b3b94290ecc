package store

import (
	"context"
	"sync"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu    sync.Mutex
	recs  map[string]model.SolveRecord
	order []string // insertion order, newest last
}

func NewMemory() *Memory {
	return &Memory{recs: map[string]model.SolveRecord{}}
}

func (m *Memory) SaveSolve(ctx context.Context, rec model.SolveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.recs[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}
	m.recs[rec.ID] = rec
	return nil
}

func (m *Memory) GetSolve(ctx context.Context, id string) (model.SolveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return model.SolveRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) ListSolves(ctx context.Context, cursor string, limit int) ([]model.SolveSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	// newest first
	start := len(m.order) - 1
	if cursor != "" {
		start = -1
		for i := len(m.order) - 1; i >= 0; i-- {
			if m.order[i] == cursor {
				start = i - 1
				break
			}
		}
	}
	out := []model.SolveSummary{}
	next := ""
	for i := start; i >= 0 && len(out) < limit; i-- {
		out = append(out, summarize(m.recs[m.order[i]]))
		next = m.order[i]
	}
	if len(out) < limit {
		next = ""
	}
	return out, next, nil
}

func (m *Memory) Close() {}

func summarize(rec model.SolveRecord) model.SolveSummary {
	customers := 0
	for _, l := range rec.Request.Locations {
		if l.ID != model.Depot {
			customers++
		}
	}
	return model.SolveSummary{
		ID:            rec.ID,
		CreatedAt:     rec.CreatedAt,
		Outcome:       rec.Outcome,
		TotalDistance: rec.TotalDistance,
		Customers:     customers,
		Vehicles:      len(rec.Request.Vehicles),
	}
}
