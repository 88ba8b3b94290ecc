package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration: a YAML file provides the base and
// environment variables override it, so containers can tweak single knobs
// without shipping a file.
type Config struct {
	Addr        string       `yaml:"addr"`
	DatabaseURL string       `yaml:"databaseUrl"`
	RedisURL    string       `yaml:"redisUrl"`
	Solver      SolverConfig `yaml:"solver"`
	RateLimit   RateLimit    `yaml:"rateLimit"`
}

// SolverConfig carries the default search knobs; requests may override the
// time budget per solve.
type SolverConfig struct {
	TimeBudgetMs  int     `yaml:"timeBudgetMs"`
	DistanceScale float64 `yaml:"distanceScale"`
	MaxRounds     int     `yaml:"maxRounds"`
}

// TimeBudget returns the configured budget as a duration.
func (s SolverConfig) TimeBudget() time.Duration {
	return time.Duration(s.TimeBudgetMs) * time.Millisecond
}

// RateLimit bounds solve submissions.
type RateLimit struct {
	SolvesPerSecond float64 `yaml:"solvesPerSecond"`
	Burst           int     `yaml:"burst"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Addr: ":8080",
		Solver: SolverConfig{
			TimeBudgetMs:  10000,
			DistanceScale: 10000,
			MaxRounds:     64,
		},
		RateLimit: RateLimit{SolvesPerSecond: 5, Burst: 10},
	}
}

// Load reads the YAML file at path (empty path means defaults only) and
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if cfg.Solver.TimeBudgetMs <= 0 {
		return Config{}, fmt.Errorf("solver.timeBudgetMs must be positive, got %d", cfg.Solver.TimeBudgetMs)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("SOLVER_TIME_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.TimeBudgetMs = n
		}
	}
}
