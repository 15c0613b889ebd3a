// Package optim searches run parameters for the configuration that
// minimises a solver metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mpmsim/internal/automation"
	"github.com/san-kum/mpmsim/internal/config"
)

// ErrNoCandidate means every point of the search failed.
var ErrNoCandidate = errors.New("optim: no parameter set completed")

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) == 0 || len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters with %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", params[i])
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Best is the winning parameter set. Evaluated counts completed runs and
// Failed the runs that errored and were skipped.
type Best struct {
	Params    map[string]float64
	Value     float64
	Evaluated int
	Failed    int
}

// Search runs every combination of the parameter ranges on copies of base
// and returns the one with the smallest value of metric. Runs that fail are
// skipped; setup errors and cancellation stop the search.
func (g *GridSearch) Search(
	ctx context.Context,
	runner *automation.Runner,
	base *config.Config,
	baseDir string,
	metricName string,
) (*Best, error) {
	best := &Best{Value: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), runner, base, baseDir, metricName, best); err != nil {
		return best, err
	}
	if best.Params == nil {
		return best, ErrNoCandidate
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	runner *automation.Runner,
	base *config.Config,
	baseDir string,
	metricName string,
	best *Best,
) error {
	if depth == len(g.paramNames) {
		cfg := base.Clone()
		for k, v := range current {
			if err := cfg.SetParam(k, v); err != nil {
				return err
			}
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		out, err := runner.Execute(ctx, cfg, baseDir)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if out.Err != nil {
			best.Failed++
			return nil
		}
		best.Evaluated++

		val, ok := out.Result.Metrics[metricName]
		if !ok {
			return fmt.Errorf("optim: run did not report metric %s", metricName)
		}
		if val < best.Value {
			best.Value = val
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, runner, base, baseDir, metricName, best); err != nil {
			return err
		}
	}
	return nil
}
