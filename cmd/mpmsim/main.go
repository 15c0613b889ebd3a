package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/mpmsim/internal/config"
	"github.com/san-kum/mpmsim/internal/experiment"
	"github.com/san-kum/mpmsim/internal/export"
	"github.com/san-kum/mpmsim/internal/input"
	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/solver"
	"github.com/san-kum/mpmsim/internal/storage"
	"github.com/san-kum/mpmsim/internal/tensor"
	"github.com/san-kum/mpmsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	verbose    bool
	// run overrides
	steps   int
	dt      float64
	workers int
	live    bool
	// export options
	outPath  string
	field    string
	svgWidth int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "mpmsim",
		Short:        "explicit material point method solver",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mpmsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation from a preset or config file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().IntVar(&steps, "steps", 0, "override step count")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "override time step")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = all cpus)")
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "time the solver phases without storing output",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchSimulation,
	}
	benchCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	benchCmd.Flags().IntVar(&steps, "steps", 100, "step count")
	benchCmd.Flags().IntVar(&workers, "workers", 0, "worker count (0 = all cpus)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot kinetic energy and mass history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&outPath, "svg", "", "also write the energy curve as svg")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id] [step]",
		Short: "export a snapshot to JSON (last snapshot by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id] [step]",
		Short: "export a snapshot to CSV (last snapshot by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id] [step]",
		Short: "draw a snapshot as svg",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportSVGCmd.Flags().StringVar(&field, "field", string(export.FieldPressure), "colour field: pressure, speed or density")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width in pixels")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				fmt.Printf("  %s\n", name)
			}
		},
	}

	generateCmd := &cobra.Command{
		Use:   "generate [preset] [dir]",
		Short: "write the input deck and config of a preset",
		Args:  cobra.ExactArgs(2),
		RunE:  generateDeck,
	}

	rootCmd.AddCommand(runCmd, benchCmd, listCmd, plotCmd, exportCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd, generateCmd)
	addBatchCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig resolves the run configuration from --config or a preset name
// and returns the directory relative deck paths resolve against.
func loadConfig(args []string) (*config.Config, string, error) {
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, filepath.Dir(configFile), nil
	}
	name := "free_fall"
	if len(args) > 0 {
		name = args[0]
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, "", fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}
	return cfg, "", nil
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("steps") {
		cfg.Simulation.Steps = steps
	}
	if cmd.Flags().Changed("dt") {
		cfg.Simulation.Dt = dt
	}
	if cmd.Flags().Changed("workers") {
		cfg.Simulation.Workers = workers
	}
	return cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}

	var logOut io.Writer = os.Stderr
	if live {
		logOut = io.Discard
	}
	logger := newLogger(logOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := storage.New(dataDir)
	run, err := st.Create(cfg.Name)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, baseDir)
	if err := exp.Setup(logger, solver.WithWriter(run)); err != nil {
		if ferr := run.Finish(exp.Metadata(nil, err)); ferr != nil {
			logger.Warn("could not record failed run", "run", run.ID, "error", ferr)
		}
		return err
	}
	exp.Solver().AddObserver(run)
	lo, hi, err := exp.Bounds()
	if err != nil {
		return err
	}

	var result *solver.Result
	var runErr error
	if live {
		result, runErr = tui.Run(ctx, cfg.Name, cfg.Simulation.Steps, lo, hi,
			func(ctx context.Context, obs solver.Observer) (*solver.Result, error) {
				exp.Solver().AddObserver(obs)
				return exp.Run(ctx)
			})
	} else {
		result, runErr = exp.Run(ctx)
	}

	if err := run.Finish(exp.Metadata(result, runErr)); err != nil {
		return err
	}

	fmt.Printf("run id: %s\n", run.ID)
	if result != nil {
		fmt.Printf("steps: %d  time: %.6gs  elapsed: %v\n", result.StepsTaken, result.Time, result.Elapsed.Round(time.Millisecond))
		fmt.Printf("snapshots: %d  mass drift: %.3g\n", result.Snapshots, result.MassDrift)
		printMetrics(result.Metrics)
	}
	return runErr
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

func benchSimulation(cmd *cobra.Command, args []string) error {
	cfg, baseDir, err := loadConfig(args)
	if err != nil {
		return err
	}
	cfg.Simulation.Steps = steps
	if err := applyOverrides(cmd, cfg); err != nil {
		return err
	}

	exp := experiment.New(cfg, baseDir)
	if err := exp.Setup(newLogger(io.Discard)); err != nil {
		return err
	}
	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d particles, %d steps on %d workers in %v\n",
		cfg.Name, exp.Solver().Points().Len(), result.StepsTaken,
		exp.Solver().Backend().Workers(), result.Elapsed.Round(time.Millisecond))
	if result.StepsTaken > 0 {
		fmt.Printf("%.3gms/step\n\n", float64(result.Elapsed.Microseconds())/1e3/float64(result.StepsTaken))
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PHASE\tTOTAL\tSHARE")
	for _, ph := range exp.Solver().Phases() {
		d := result.PhaseTiming[ph]
		share := 0.0
		if result.Elapsed > 0 {
			share = 100 * d.Seconds() / result.Elapsed.Seconds()
		}
		fmt.Fprintf(w, "%s\t%v\t%.1f%%\n", ph, d.Round(time.Microsecond), share)
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tSTEPS\tDT\tSCHEME\tPARTICLES\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%.3g\t%s\t%d\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StepsTaken,
			run.Steps,
			run.Dt,
			run.Scheme,
			run.Particles,
			status,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	history, err := st.LoadHistory(runID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("samples: %d\n\n", len(history))

	times := make([]float64, len(history))
	energy := make([]float64, len(history))
	mass := make([]float64, len(history))
	for i, row := range history {
		times[i] = row.Time
		energy[i] = row.KineticEnergy
		mass[i] = row.TotalMass
	}

	for _, series := range []struct {
		caption string
		data    []float64
	}{
		{"kinetic energy", energy},
		{"total mass", mass},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if outPath != "" {
		svg := export.SeriesToSVG(times, energy, 800, 400, "#00ff00")
		if err := os.WriteFile(outPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

// loadSnapshot reads the snapshot named by the optional step argument.
func loadSnapshot(args []string) (*storage.RunMetadata, []particle.Snapshot, int, error) {
	step := -1
	if len(args) > 1 {
		s, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, nil, 0, fmt.Errorf("invalid step %q: %w", args[1], err)
		}
		step = s
	}
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return nil, nil, 0, err
	}
	points, step, err := st.LoadSnapshot(args[0], step)
	if err != nil {
		return nil, nil, 0, err
	}
	return meta, points, step, nil
}

// output opens outPath, or stdout when it is empty.
func output() (io.Writer, func() error, error) {
	if outPath == "" || outPath == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, points, step, err := loadSnapshot(args)
	if err != nil {
		return err
	}
	return export.ExportJSON(outPath, export.NewExportData(meta.ID, step, meta.Dt, points))
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, points, _, err := loadSnapshot(args)
	if err != nil {
		return err
	}
	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.WriteSnapshotCSV(w, points); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	meta, points, _, err := loadSnapshot(args)
	if err != nil {
		return err
	}
	f := export.Field(field)
	switch f {
	case export.FieldPressure, export.FieldSpeed, export.FieldDensity:
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	lo, hi := tensor.Vec(meta.DomainMin), tensor.Vec(meta.DomainMax)
	if !(hi[0] > lo[0] && hi[1] > lo[1]) {
		lo, hi = pointBounds(points)
	}

	w, closeFn, err := output()
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, export.ParticlesToSVG(points, lo, hi, svgWidth, f)); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

// pointBounds is the bounding box of the points, padded by a tenth.
func pointBounds(points []particle.Snapshot) (tensor.Vec, tensor.Vec) {
	lo := tensor.Vec{math.Inf(1), math.Inf(1)}
	hi := tensor.Vec{math.Inf(-1), math.Inf(-1)}
	for _, p := range points {
		for a := 0; a < tensor.Dim; a++ {
			lo[a] = math.Min(lo[a], p.Coord[a])
			hi[a] = math.Max(hi[a], p.Coord[a])
		}
	}
	for a := 0; a < tensor.Dim; a++ {
		pad := 0.1 * (hi[a] - lo[a])
		if pad == 0 {
			pad = 1
		}
		lo[a] -= pad
		hi[a] += pad
	}
	return lo, hi
}

func generateDeck(cmd *cobra.Command, args []string) error {
	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	dir := args[1]

	d, err := experiment.New(cfg, "").Deck()
	if err != nil {
		return err
	}
	if err := input.Write(dir, d); err != nil {
		return err
	}

	cfg.Mesh = config.MeshConfig{Deck: "."}
	cfg.Particles = config.ParticlesConfig{Deck: "."}
	if err := config.Save(filepath.Join(dir, "config.yaml"), cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %d nodes, %d elements and %d particles to %s\n", len(d.Nodes), len(d.Elements), len(d.Particles), dir)
	return nil
}
