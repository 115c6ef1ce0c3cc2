package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/crowdsim/internal/analysis"
	"github.com/san-kum/crowdsim/internal/automation"
	"github.com/san-kum/crowdsim/internal/config"
	"github.com/san-kum/crowdsim/internal/experiment"
	"github.com/san-kum/crowdsim/internal/export"
	"github.com/san-kum/crowdsim/internal/integrators"
	"github.com/san-kum/crowdsim/internal/logging"
	"github.com/san-kum/crowdsim/internal/optim"
	"github.com/san-kum/crowdsim/internal/storage"
	"github.com/san-kum/crowdsim/internal/viz"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	dt         float64
	duration   float64
	seed       int64
	outJSON    string
	outFile    string
	svgWidth   int
	svgHeight  int
	runs       int
	workers    int
	maxSeries  int
	gateX      float64
	axes       []string
	metricName string
	maximize   bool
	topN       int

	logger = zap.NewNop()
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "crowdsim",
		Short:         "social-force pedestrian simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".crowdsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	scenarioFlags(runCmd)
	runCmd.Flags().StringVar(&outJSON, "out-json", "", "also write the full run as JSON to this path")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot mean speed and agent x positions",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&maxSeries, "agents", 6, "number of agent trajectories to plot")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw trajectories and walls as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output path (default <run_id>.svg)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 600, "image height")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output path (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scenario with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	scenarioFlags(liveCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [preset]",
		Short: "run seed-shifted copies of a scenario in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	scenarioFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 8, "number of runs")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")

	benchCmd := &cobra.Command{
		Use:   "bench [preset]",
		Short: "benchmark a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "report speed, flow and path statistics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&gateX, "gate-x", 0, "x coordinate of the flow gate")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "grid search over scenario parameters",
		Long: "grid search over scenario parameters\n\n" +
			"axes are name=v1,v2,... or name=lo:hi:n; tunable names: " + fmt.Sprint(config.Tunable),
		Args: cobra.MaximumNArgs(1),
		RunE: runSweep,
	}
	scenarioFlags(sweepCmd)
	sweepCmd.Flags().StringArrayVar(&axes, "param", nil, "grid axis, repeatable")
	sweepCmd.Flags().StringVar(&metricName, "metric", "max_overlap", "metric to rank by")
	sweepCmd.Flags().BoolVar(&maximize, "max", false, "rank highest metric first")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = GOMAXPROCS)")
	sweepCmd.Flags().IntVar(&topN, "top", 10, "rows to print")
	_ = sweepCmd.MarkFlagRequired("param")

	batchCmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "run a YAML batch of scenarios and store every result",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, exportSVGCmd, exportJSONCmd, presetsCmd, liveCmd,
		ensembleCmd, benchCmd, analyzeCmd, sweepCmd, batchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func scenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml or toml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed for group jitter")
}

// loadScenario resolves the scenario: a scenario file replaces the preset,
// and flags set on the command line override both.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	if len(args) > 0 {
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cfg == nil {
		return nil, fmt.Errorf("specify a preset or --config (presets: %v)", config.ListPresets())
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %s (%d agents, %d walls)...\n", cfg.Name, len(exp.Scene().Agents), len(exp.Scene().Walls))
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := exp.Save(st, result)
	if err != nil {
		return err
	}

	if outJSON != "" {
		if err := export.ExportJSON(outJSON, export.RunData{
			Name:     cfg.Name,
			Dt:       cfg.Dt,
			Duration: cfg.Duration,
			Steps:    result.StepsTaken,
			Arrived:  result.Arrived,
			Walls:    exp.Scene().Walls,
			Frames:   result.Frames,
			Metrics:  result.Metrics,
		}); err != nil {
			return err
		}
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d (t=%.3fs)\n", result.StepsTaken, result.SimTime)
	if result.Arrived {
		fmt.Println("all agents arrived")
	}
	fmt.Println("\nmetrics:")
	for _, name := range experiment.SortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}
	return nil
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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tAGENTS\tWALLS\tDURATION\tDT\tSTEPS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.2fs\t%.4fs\t%d\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.AgentCount,
			run.WallCount,
			run.Duration,
			run.Dt,
			run.Steps,
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
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Name)
	fmt.Printf("frames: %d\n\n", len(frames))

	speed := make([]float64, len(frames))
	for i, f := range frames {
		speed[i] = f.MeanSpeed()
	}
	fmt.Println(asciigraph.Plot(speed,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("mean speed (m/s)"),
	))
	fmt.Println()

	n := min(maxSeries, len(frames[0].Agents))
	if n < 1 {
		return nil
	}
	series := make([][]float64, n)
	for i := range series {
		series[i] = make([]float64, len(frames))
		for k, f := range frames {
			series[i][k] = f.Agents[i].Position.X
		}
	}
	fmt.Println(asciigraph.PlotMany(series,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("x position, first %d agents", n)),
	))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	return export.WriteMetadata(os.Stdout, meta)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	svg := export.TrajectoriesSVG(frames, meta.Walls, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("no data to export")
	}

	path := outFile
	if path == "" {
		path = runID + ".svg"
	}
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	data := export.RunData{
		Name:     meta.Name,
		Dt:       meta.Dt,
		Duration: meta.Duration,
		Steps:    meta.Steps,
		Arrived:  meta.Arrived,
		Walls:    meta.Walls,
		Frames:   frames,
		Metrics:  meta.Metrics,
	}
	if outFile == "" {
		return export.WriteJSON(os.Stdout, data)
	}
	return export.ExportJSON(outFile, data)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tAGENTS\tWALLS\tDT\tDURATION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%d\t%d\t%.4fs\t%.1fs\n", name, cfg.AgentCount(), len(cfg.Walls), cfg.Dt, cfg.Duration)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}

	m := viz.NewModel(cfg.Name, exp.Scene().Clone(), exp.Field(), integrators.NewEuler(), cfg.Dt, cfg.SimConfig().ArrivalRadius)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.WithLogger(logger))
	if err := exp.Setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d x %s...\n", runs, cfg.Name)
	start := time.Now()
	results, err := exp.RunEnsemble(ctx, runs, workers)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	arrived := 0
	for _, r := range results {
		if r.Arrived {
			arrived++
		}
	}
	if cfg.StopOnArrival {
		fmt.Printf("arrived: %d/%d\n\n", arrived, len(results))
	}

	return printSummary(os.Stdout, experiment.Aggregate(results))
}

func printSummary(out io.Writer, summary map[string]experiment.Summary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tMEAN\tSTD\tMIN\tMAX")
	for _, name := range experiment.SortedKeys(summary) {
		s := summary[name]
		fmt.Fprintf(w, "%s\t%.6f\t%.6f\t%.6f\t%.6f\n", name, s.Mean, s.Std, s.Min, s.Max)
	}
	return w.Flush()
}

func benchScenario(cmd *cobra.Command, args []string) error {
	name := "corridor"
	if len(args) > 0 {
		name = args[0]
	}
	base := config.GetPreset(name)
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
	}

	fmt.Printf("benchmarking %s (%d agents)\n\n", name, base.AgentCount())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DURATION\tDT\tSTEPS\tTIME\tSTEPS/SEC")

	for _, dur := range []float64{1.0, 5.0} {
		for _, step := range []float64{0.001, 0.01} {
			cfg := base.Clone()
			cfg.Dt = step
			cfg.Duration = dur
			cfg.StopOnArrival = false

			exp := experiment.New(cfg)
			if err := exp.Setup(); err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			fmt.Fprintf(w, "%.1fs\t%.4fs\t%d\t%v\t%.0f\n",
				dur, step, result.StepsTaken, elapsed, float64(result.StepsTaken)/elapsed.Seconds())
		}
	}
	return w.Flush()
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(args[0])
	if err != nil {
		return err
	}

	r := analysis.Analyze(frames, gateX)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "run\t%s\n", meta.ID)
	fmt.Fprintf(w, "frames\t%d over %.2fs\n", r.Frames, r.Duration)
	fmt.Fprintf(w, "mean speed\t%.4f m/s\n", r.MeanSpeed)
	fmt.Fprintf(w, "peak mean speed\t%.4f m/s\n", r.PeakSpeed)
	fmt.Fprintf(w, "speed oscillation\t%.4f Hz\n", r.SpeedFrequency)
	fmt.Fprintf(w, "gate x=%g crossings\t%d\n", gateX, r.Crossings)
	fmt.Fprintf(w, "net flow\t%.4f /s\n", r.FlowRate)
	fmt.Fprintf(w, "path efficiency\t%.4f\n", r.MeanEfficiency)
	return w.Flush()
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(axes))
	ranges := make([][]float64, 0, len(axes))
	for _, a := range axes {
		name, vals, err := optim.ParseAxis(a)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	g := optim.NewGridSearch(names, ranges).WithWorkers(workers)
	if maximize {
		g.Maximize()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	trials, err := g.Search(ctx, cfg, metricName)
	if err != nil && len(trials) == 0 {
		return err
	}
	fmt.Printf("%d points in %v\n\n", len(trials), time.Since(start))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(metricName))
	for i, tr := range trials {
		if i == topN {
			break
		}
		row := make([]string, len(names))
		for j, n := range names {
			row[j] = fmt.Sprintf("%g", tr.Params[n])
		}
		value := fmt.Sprintf("%.6f", tr.Value)
		if tr.Err != nil {
			value = "error: " + tr.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\n", strings.Join(row, "\t"), value)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runBatch(cmd *cobra.Command, args []string) error {
	b, err := automation.LoadBatch(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("batch %s: %d entries\n", b.Name, len(b.Runs))
	outcomes, err := automation.NewRunner(st, logger).Run(ctx, b)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tSEED\tSTEPS\tARRIVED")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", o.RunID, o.Name, o.Seed, o.Result.StepsTaken, o.Result.Arrived)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}
