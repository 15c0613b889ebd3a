package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mpmsim/internal/analysis"
	"github.com/san-kum/mpmsim/internal/automation"
	"github.com/san-kum/mpmsim/internal/optim"
	"github.com/san-kum/mpmsim/internal/storage"
)

var (
	// sweep options
	sweepParam  string
	sweepMin    float64
	sweepMax    float64
	sweepPoints int
	store       bool
	// tune options
	tuneParams []string
	tuneMetric string
)

func addBatchCommands(rootCmd *cobra.Command) {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every simulation listed in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "run a preset over a range of one parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().IntVar(&steps, "steps", 0, "override step count")
	sweepCmd.Flags().StringVar(&sweepParam, "param", "dt", "parameter name, e.g. dt or material.0.youngs_modulus")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1e-4, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1e-3, "last value")
	sweepCmd.Flags().IntVar(&sweepPoints, "points", 5, "number of values")
	sweepCmd.Flags().BoolVar(&store, "store", false, "record every run in the data directory")

	tuneCmd := &cobra.Command{
		Use:   "tune [preset]",
		Short: "grid search parameters for the smallest metric value",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTune,
	}
	tuneCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	tuneCmd.Flags().IntVar(&steps, "steps", 0, "override step count")
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "name=v1,v2,... (repeatable)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "mass_drift", "metric to minimise")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "kinetic energy spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}

	rootCmd.AddCommand(scenarioCmd, sweepCmd, tuneCmd, spectrumCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &automation.Runner{Store: storage.New(dataDir), Logger: newLogger(os.Stderr)}
	outcomes, err := runner.RunScenario(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN\tSTEPS\tMASS DRIFT\tSTATUS")
	for _, out := range outcomes {
		status := "ok"
		if out.Err != nil {
			status = out.Err.Error()
		}
		taken, drift := 0, 0.0
		if out.Result != nil {
			taken, drift = out.Result.StepsTaken, out.Result.MassDrift
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.3g\t%s\n", out.Name, out.RunID, taken, drift, status)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

// quietRunner records runs only with --store and shows solver logs only
// with --verbose.
func quietRunner() *automation.Runner {
	runner := &automation.Runner{Logger: newLogger(io.Discard)}
	if verbose {
		runner.Logger = newLogger(os.Stderr)
	}
	if store {
		runner.Store = storage.New(dataDir)
	}
	return runner
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := quietRunner().RunSweep(ctx, cfg, baseDir, automation.ParameterSweep{
		Param:  sweepParam,
		Min:    sweepMin,
		Max:    sweepMax,
		Points: sweepPoints,
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTEPS\tMASS DRIFT\tPEAK SPEED\tSTABLE\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		stable := "yes"
		if !r.Stable {
			stable = "no"
			if r.Err != nil {
				stable = "no: " + r.Err.Error()
			}
		}
		fmt.Fprintf(w, "%.4g\t%d\t%.3g\t%.4g\t%s\n", r.Value, r.StepsTaken, r.MassDrift, r.PeakSpeed, stable)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	ok, bad := automation.Stats(results)
	fmt.Printf("\n%d stable, %d unstable\n", ok, bad)
	return err
}

// parseRange reads name=v1,v2,...
func parseRange(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid parameter %q, want name=v1,v2", s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param is required (available: %v)", cfg.Params())
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	for _, p := range tuneParams {
		name, values, err := parseRange(p)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	best, err := gs.Search(ctx, quietRunner(), cfg, baseDir, tuneMetric)
	if err != nil {
		return err
	}

	fmt.Printf("evaluated %d, failed %d\n", best.Evaluated, best.Failed)
	fmt.Printf("best %s: %.6g\n", tuneMetric, best.Value)
	keys := make([]string, 0, len(best.Params))
	for k := range best.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %g\n", k, best.Params[k])
	}
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	history, err := st.LoadHistory(args[0])
	if err != nil {
		return err
	}
	if len(history) < 2 {
		return fmt.Errorf("run %s has too little history", args[0])
	}

	dt := history[1].Time - history[0].Time
	energy := make([]float64, len(history))
	for i, row := range history {
		energy[i] = row.KineticEnergy
	}

	amp, err := analysis.Spectrum(energy)
	if err != nil {
		return err
	}
	f, err := analysis.DominantFrequency(energy, dt)
	if err != nil {
		return err
	}

	fmt.Println(asciigraph.Plot(amp[1:],
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("kinetic energy amplitude by frequency bin"),
	))
	fmt.Printf("\nsamples: %d  dt: %.6g\n", len(energy), dt)
	fmt.Printf("dominant frequency: %.6g  period: %.6g\n", f, 1/f)
	return nil
}
