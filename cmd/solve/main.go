package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/KRFH/vrp-cpsat-app/internal/model"
	"github.com/KRFH/vrp-cpsat-app/internal/opt"
)

// Exit codes: 0 solved, 2 infeasible, 3 search budget exhausted, 1 anything else.
func main() {
	file := flag.String("file", "", "instance file (YAML or JSON)")
	budget := flag.Duration("budget", 10*time.Second, "search time budget")
	gap := flag.Float64("gap", 0, "relative optimality gap to accept early (0 = prove optimality)")
	verbose := flag.Bool("v", false, "print incumbents as they are found")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: solve -file instance.yaml [-budget 10s]")
		os.Exit(1)
	}
	req, err := readRequest(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read instance: %v\n", err)
		os.Exit(1)
	}

	cfg := opt.Config{TimeBudget: *budget, TargetGap: *gap}
	if req.TimeBudgetMs > 0 {
		cfg.TimeBudget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	if *verbose {
		cfg.OnIncumbent = func(obj float64) {
			fmt.Fprintf(os.Stderr, "incumbent: %.4f\n", obj)
		}
	}

	sol, err := opt.Solve(req.Instance(), cfg)
	switch {
	case errors.Is(err, opt.ErrInfeasibleInstance):
		fmt.Fprintf(os.Stderr, "infeasible: %v\n", err)
		os.Exit(2)
	case errors.Is(err, opt.ErrBuilder):
		fmt.Fprintf(os.Stderr, "invalid instance: %v\n", err)
		os.Exit(1)
	case err != nil:
		fmt.Fprintf(os.Stderr, "solve failed: %v\n", err)
		os.Exit(1)
	}

	switch sol.Outcome {
	case model.OutcomeInfeasible:
		fmt.Println("no feasible routing exists for this fleet")
		os.Exit(2)
	case model.OutcomeUnknown:
		fmt.Println("search budget exhausted before any conclusion")
		os.Exit(3)
	}

	fmt.Printf("outcome: %s  total distance: %.4f  (rounds %d, cuts %d)\n",
		sol.Outcome, sol.TotalDistance, sol.Rounds, sol.Cuts)
	for _, rt := range sol.Routes {
		if !rt.Used() {
			continue
		}
		fmt.Printf("vehicle %d  load %d  distance %.4f  stops %v\n",
			rt.VehicleID, rt.Load, rt.Distance, rt.Stops)
	}
}

func readRequest(path string) (model.SolveRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.SolveRequest{}, err
	}
	var req model.SolveRequest
	switch filepath.Ext(path) {
	case ".json":
		err = json.Unmarshal(data, &req)
	default:
		err = yaml.Unmarshal(data, &req)
	}
	return req, err
}
