// Package automation runs batches of simulations: scripted scenarios read
// from YAML and one-parameter sweeps over a base configuration.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/solver"
	"github.com/san-kum/mpmsim/internal/storage"
)

var ErrInvalidScenario = errors.New("automation: invalid scenario")

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`

	dir string
}

// ScenarioRun names one configuration, by preset or by file, and the
// parameters to override on it.
type ScenarioRun struct {
	Preset string             `yaml:"preset,omitempty"`
	Config string             `yaml:"config,omitempty"`
	Params map[string]float64 `yaml:"params,omitempty"`
	SaveAs string             `yaml:"save_as,omitempty"`
}

// LoadScenario loads a scenario from a YAML file. Config paths in it are
// relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	scenario.dir = filepath.Dir(path)
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if len(s.Runs) == 0 {
		return fmt.Errorf("%w: no runs", ErrInvalidScenario)
	}
	for i, r := range s.Runs {
		if (r.Preset == "") == (r.Config == "") {
			return fmt.Errorf("%w: run %d needs exactly one of preset or config", ErrInvalidScenario, i+1)
		}
	}
	return nil
}

// resolve builds the configuration of one run and the directory its deck
// paths resolve against.
func (s *Scenario) resolve(r ScenarioRun) (*config.Config, string, error) {
	var cfg *config.Config
	baseDir := ""
	if r.Preset != "" {
		if cfg = config.GetPreset(r.Preset); cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s", r.Preset)
		}
	} else {
		path := r.Config
		if !filepath.IsAbs(path) && s.dir != "" {
			path = filepath.Join(s.dir, path)
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, "", err
		}
		baseDir = filepath.Dir(path)
	}
	for name, v := range r.Params {
		if err := cfg.SetParam(name, v); err != nil {
			return nil, "", err
		}
	}
	if r.SaveAs != "" {
		cfg.Name = r.SaveAs
	}
	return cfg, baseDir, cfg.Validate()
}

// Runner executes runs one after another. With a Store every run is
// recorded like a CLI run; without one nothing is written.
type Runner struct {
	Store  *storage.Store
	Logger *slog.Logger
}

// Outcome is the record of one finished run. Err holds a solver failure;
// setup failures abort the batch instead.
type Outcome struct {
	Name   string
	RunID  string
	Result *solver.Result
	Err    error
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Execute sets up and runs one configuration.
func (r *Runner) Execute(ctx context.Context, cfg *config.Config, baseDir string) (Outcome, error) {
	out := Outcome{Name: cfg.Name}
	exp := experiment.New(cfg, baseDir)

	var run *storage.Run
	var opts []solver.Option
	if r.Store != nil {
		var err error
		if run, err = r.Store.Create(cfg.Name); err != nil {
			return out, err
		}
		out.RunID = run.ID
		opts = append(opts, solver.WithWriter(run))
	}

	if err := exp.Setup(r.logger(), opts...); err != nil {
		if run != nil {
			if ferr := run.Finish(exp.Metadata(nil, err)); ferr != nil {
				r.logger().Warn("could not record failed run", "run", run.ID, "error", ferr)
			}
		}
		return out, err
	}
	if run != nil {
		exp.Solver().AddObserver(run)
	}

	out.Result, out.Err = exp.Run(ctx)
	if run != nil {
		if err := run.Finish(exp.Metadata(out.Result, out.Err)); err != nil {
			return out, err
		}
	}
	return out, nil
}

// RunScenario executes all runs of a scenario in order. It stops at the
// first run that cannot be set up or when ctx is cancelled.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scenario.Runs))

	for i, step := range scenario.Runs {
		cfg, baseDir, err := scenario.resolve(step)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}
		r.logger().Info("scenario run", "index", i+1, "of", len(scenario.Runs), "name", cfg.Name)

		out, err := r.Execute(ctx, cfg, baseDir)
		if err != nil {
			return outcomes, fmt.Errorf("run %d setup: %w", i+1, err)
		}
		outcomes = append(outcomes, out)
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
	}

	return outcomes, nil
}

// ParameterSweep varies one named parameter linearly between Min and Max.
type ParameterSweep struct {
	Param  string
	Min    float64
	Max    float64
	Points int
}

// Values returns the sampled parameter values.
func (s ParameterSweep) Values() []float64 {
	if s.Points == 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Points-1)
	values := make([]float64, s.Points)
	for i := range values {
		values[i] = s.Min + float64(i)*step
	}
	values[s.Points-1] = s.Max
	return values
}

// SweepResult holds the outcome at one parameter value.
type SweepResult struct {
	Value      float64
	StepsTaken int
	MassDrift  float64
	PeakSpeed  float64
	Stability  float64
	// Stable is false when the run failed or any particle exceeded the
	// stability speed limit.
	Stable bool
	Err    error
}

// RunSweep executes a parameter sweep over copies of base.
func (r *Runner) RunSweep(ctx context.Context, base *config.Config, baseDir string, sweep ParameterSweep) ([]SweepResult, error) {
	if sweep.Points < 1 || sweep.Max < sweep.Min {
		return nil, fmt.Errorf("%w: sweep of %s over [%g, %g] with %d points",
			ErrInvalidScenario, sweep.Param, sweep.Min, sweep.Max, sweep.Points)
	}

	results := make([]SweepResult, 0, sweep.Points)
	for i, v := range sweep.Values() {
		cfg := base.Clone()
		if err := cfg.SetParam(sweep.Param, v); err != nil {
			return nil, err
		}
		cfg.Name = fmt.Sprintf("%s_%s_%d", base.Name, sweep.Param, i)
		if err := cfg.Validate(); err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}

		out, err := r.Execute(ctx, cfg, baseDir)
		if err != nil {
			return results, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}

		res := SweepResult{Value: v, Err: out.Err}
		if out.Result != nil {
			res.StepsTaken = out.Result.StepsTaken
			res.MassDrift = out.Result.MassDrift
			res.PeakSpeed = out.Result.Metrics["max_speed"]
			res.Stability = out.Result.Metrics["stability"]
		}
		res.Stable = out.Err == nil && res.Stability == 1
		results = append(results, res)

		r.logger().Info("sweep point", "index", i+1, "of", sweep.Points,
			"param", sweep.Param, "value", v, "stable", res.Stable)
	}

	return results, nil
}

// Stats counts stable and unstable sweep points.
func Stats(results []SweepResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
