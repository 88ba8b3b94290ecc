package api

import (
	"golang.org/x/time/rate"

	"github.com/KRFH/vrp-cpsat-app/internal/config"
	"github.com/KRFH/vrp-cpsat-app/internal/store"
)

type Server struct {
	Store   store.Store
	Broker  EventBroker
	Limiter *rate.Limiter
	Cfg     config.Config
}

// NewServer wires the store and broker from configuration. Without a
// DATABASE_URL the in-memory store is used; without a REDIS_URL events stay
// in-process.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if cfg.DatabaseURL == "" {
		s = store.NewMemory()
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s = sp
	}
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}
	var lim *rate.Limiter
	if cfg.RateLimit.SolvesPerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RateLimit.SolvesPerSecond), cfg.RateLimit.Burst)
	}
	return &Server{Store: s, Broker: broker, Limiter: lim, Cfg: cfg}, nil
}
