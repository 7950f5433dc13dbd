package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/diagnostic"
	"github.com/san-kum/gridiag/internal/metrics"
	"github.com/san-kum/gridiag/internal/network"
	"github.com/san-kum/gridiag/internal/powerflow"
	"github.com/san-kum/gridiag/internal/report"
	"github.com/san-kum/gridiag/internal/storage"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	preset     string
	// Diagnose flags
	checks                []string
	style                 string
	warningsOnly          bool
	overloadScalingFactor float64
	minROhm               float64
	minXOhm               float64
	maxROhm               float64
	maxXOhm               float64
	nomVoltageTolerance   float64
	numbaTolerance        float64
	save                  bool
	jsonOut               bool
	// Solve flags
	plain       bool
	plotWidth   int
	plotHeight  int
	showProfile bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gridiag",
		Short:         "power-flow diagnostics for grid models",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".gridiag", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warning", "log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose [network.yaml]",
		Short: "run the diagnostic checks on a network",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiagnose,
	}
	diagnoseCmd.Flags().StringSliceVar(&checks, "checks", nil, "checks to run (default all)")
	diagnoseCmd.Flags().StringVar(&style, "style", config.DefaultReportStyle, "report style (detailed, compact, none)")
	diagnoseCmd.Flags().BoolVar(&warningsOnly, "warnings-only", false, "hide passed checks")
	diagnoseCmd.Flags().Float64Var(&overloadScalingFactor, "overload-scaling-factor", config.DefaultOverloadScalingFactor, "scaling used by the overload check")
	diagnoseCmd.Flags().Float64Var(&minROhm, "min-r-ohm", config.DefaultMinROhm, "minimum plausible resistance")
	diagnoseCmd.Flags().Float64Var(&minXOhm, "min-x-ohm", config.DefaultMinXOhm, "minimum plausible reactance")
	diagnoseCmd.Flags().Float64Var(&maxROhm, "max-r-ohm", config.DefaultMaxROhm, "maximum plausible resistance")
	diagnoseCmd.Flags().Float64Var(&maxXOhm, "max-x-ohm", config.DefaultMaxXOhm, "maximum plausible reactance")
	diagnoseCmd.Flags().Float64Var(&nomVoltageTolerance, "nom-voltage-tolerance", config.DefaultNomVoltageTolerance, "allowed relative deviation of rated voltages")
	diagnoseCmd.Flags().Float64Var(&numbaTolerance, "numba-tolerance", config.DefaultNumbaTolerance, "allowed deviation between solver modes")
	diagnoseCmd.Flags().BoolVar(&save, "save", false, "store the run")
	diagnoseCmd.Flags().BoolVar(&jsonOut, "json", false, "print the findings as JSON instead of a report")

	solveCmd := &cobra.Command{
		Use:   "solve [network.yaml]",
		Short: "run a power flow and print the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	solveCmd.Flags().BoolVar(&plain, "plain", false, "solve without acceleration")
	solveCmd.Flags().BoolVar(&showProfile, "profile", true, "plot the bus voltage profile")
	solveCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")
	solveCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")
	solveCmd.Flags().BoolVar(&save, "save", false, "store the results")

	checksCmd := &cobra.Command{
		Use:   "checks",
		Short: "list the diagnostic checks in run order",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range diagnostic.Catalog() {
				fmt.Println(name)
			}
		},
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "print the effective configuration, or write it to path",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the stored bus voltages of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&plotWidth, "width", 60, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 10, "plot height")

	rootCmd.AddCommand(diagnoseCmd, solveCmd, checksCmd, presetsCmd, configCmd, listCmd, showCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}

// loadConfig resolves the configuration: preset, then config file, then
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(cfg, configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	floats := []struct {
		flag  string
		value float64
		dst   *float64
	}{
		{"overload-scaling-factor", overloadScalingFactor, &cfg.OverloadScalingFactor},
		{"min-r-ohm", minROhm, &cfg.MinROhm},
		{"min-x-ohm", minXOhm, &cfg.MinXOhm},
		{"max-r-ohm", maxROhm, &cfg.MaxROhm},
		{"max-x-ohm", maxXOhm, &cfg.MaxXOhm},
		{"nom-voltage-tolerance", nomVoltageTolerance, &cfg.NomVoltageTolerance},
		{"numba-tolerance", numbaTolerance, &cfg.NumbaTolerance},
	}
	for _, f := range floats {
		if flags.Lookup(f.flag) != nil && flags.Changed(f.flag) {
			*f.dst = f.value
		}
	}
	if flags.Lookup("checks") != nil && flags.Changed("checks") {
		cfg.Checks = checks
	}
	if flags.Lookup("style") != nil && flags.Changed("style") {
		cfg.Report.Style = style
	}
	if flags.Lookup("warnings-only") != nil && flags.Changed("warnings-only") {
		cfg.Report.WarningsOnly = warningsOnly
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSolver(cfg *config.Config) powerflow.Solver {
	return powerflow.NewGaussSeidel(cfg.Solver.MaxIterations, cfg.Solver.TolerancePu, cfg.Solver.Acceleration)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	net, err := network.LoadFile(args[0])
	if err != nil {
		return err
	}
	if net.Name == "" {
		net.Name = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine := diagnostic.New(newSolver(cfg), cfg, diagnostic.WithLogger(log))
	start := time.Now()
	findings, errs, err := engine.Run(ctx, net)
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start)).Info("diagnosis finished")

	catalog := cfg.Checks
	if len(catalog) == 0 {
		catalog = diagnostic.Catalog()
	}
	run := storage.Run{
		Network:  net.Name,
		Source:   args[0],
		Preset:   preset,
		Checks:   catalog,
		Findings: findings,
		Errors:   errs,
	}

	if jsonOut {
		if err := storage.ExportJSON(os.Stdout, run); err != nil {
			return err
		}
	} else if err := report.Render(os.Stdout, net.Name, catalog, findings, errs, report.OptionsFromConfig(cfg.Report)); err != nil {
		return err
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(run)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
	}
	return nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	net, err := network.LoadFile(args[0])
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := newSolver(cfg).Solve(context.Background(), net, powerflow.Options{Accelerated: !plain})
	if err != nil {
		var structural *powerflow.StructuralError
		if errors.Is(err, powerflow.ErrNotConverged) || errors.As(err, &structural) {
			return fmt.Errorf("%w (run 'gridiag diagnose %s' to find out why)", err, args[0])
		}
		return err
	}
	fmt.Printf("converged in %d iterations (%v)\n\n", res.Iterations, time.Since(start))

	if err := printTable(res, powerflow.ResBus); err != nil {
		return err
	}
	for _, name := range powerflow.ResultTables[1:] {
		if t, ok := res.Tables[name]; ok && len(t.Rows) > 0 {
			fmt.Println()
			if err := printTable(res, name); err != nil {
				return err
			}
		}
	}

	fmt.Println()
	if err := printMetrics(res); err != nil {
		return err
	}

	if showProfile {
		fmt.Println()
		if err := report.VoltageProfile(os.Stdout, res, plotWidth, plotHeight); err != nil {
			return err
		}
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.Run{Network: net.Name, Source: args[0], Preset: preset})
		if err != nil {
			return err
		}
		if err := st.SaveResults(runID, res); err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}
	return nil
}

func printTable(res *powerflow.Results, name string) error {
	table := res.Table(name)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", name)
	fmt.Fprint(w, "ID")
	for _, col := range table.Columns {
		fmt.Fprintf(w, "\t%s", col)
	}
	fmt.Fprintln(w)
	for _, id := range table.IDs() {
		fmt.Fprintf(w, "%d", id)
		for _, v := range table.Rows[id] {
			if math.IsNaN(v) {
				fmt.Fprint(w, "\t-")
				continue
			}
			fmt.Fprintf(w, "\t%.4f", v)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func printMetrics(res *powerflow.Results) error {
	ms := metrics.Standard()
	values := metrics.Evaluate(res, ms...)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, m := range ms {
		fmt.Fprintf(w, "%s\t%.4f\n", m.Name(), values[m.Name()])
	}
	return w.Flush()
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		fmt.Printf("config written to %s\n", args[0])
		return nil
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
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
	fmt.Fprintln(w, "ID\tNETWORK\tTIME\tCHECKS\tWARNINGS\tERRORS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			run.ID,
			run.Network,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			len(run.Checks),
			len(run.Warnings),
			len(run.Errors),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	findings, err := st.LoadFindings(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		*storage.RunMetadata
		Findings map[string]json.RawMessage `json:"findings"`
	}{meta, findings})
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	bus, err := st.LoadResults(runID, powerflow.ResBus)
	if err != nil {
		return fmt.Errorf("run %s holds no power-flow results: %w", runID, err)
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("network: %s\n\n", meta.Network)

	res := powerflow.NewResults()
	res.Tables[powerflow.ResBus] = bus
	return report.VoltageProfile(os.Stdout, res, plotWidth, plotHeight)
}
