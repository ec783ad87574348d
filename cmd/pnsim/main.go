package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/pnsim/internal/config"
	"github.com/san-kum/pnsim/internal/dynamo"
	"github.com/san-kum/pnsim/internal/experiment"
	"github.com/san-kum/pnsim/internal/gr"
	"github.com/san-kum/pnsim/internal/logging"
	"github.com/san-kum/pnsim/internal/storage"
	"github.com/san-kum/pnsim/internal/units"
	"github.com/san-kum/pnsim/internal/viz"
)

const defaultPreset = "mercury"

var (
	dataDir    string
	logLevel   string
	logFormat  string
	dt         float64
	duration   float64
	integrator string
	variant    string
	noGR       bool
	speedOfC   float64
	configFile string
	workers    int
	body       string
	outFile    string
	plotWidth  int
	plotHeight int

	logger = logging.Discard()
)

// main registers the pnsim commands, seeds flag defaults from PNSIM_*
// environment variables and executes the root command.
func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rootCmd := &cobra.Command{
		Use:          "pnsim",
		Short:        "post-Newtonian N-body simulation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logging.New(logLevel, logFormat, os.Stderr)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", env.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", env.LogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", env.LogFormat, "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a simulation and store it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().StringVar(&variant, "variant", "", "replace the configured effects with one gr variant")
	runCmd.Flags().BoolVar(&noGR, "no-gr", false, "run without relativistic effects")

	compareCmd := &cobra.Command{
		Use:   "compare [preset]",
		Short: "run every gr variant and no correction side by side",
		Args:  cobra.MaximumNArgs(1),
		RunE:  compareVariants,
	}
	addRunFlags(compareCmd)
	compareCmd.Flags().IntVar(&workers, "workers", env.Workers, "concurrent runs")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "index run directories missing from runs.db",
		Args:  cobra.NoArgs,
		RunE:  reindexRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot Hamiltonian error and longitude of pericentre",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&body, "body", "", "particle whose pericentre to plot (default: first non-primary)")
	plotCmd.Flags().IntVar(&plotWidth, "width", viz.DefaultWidth, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", viz.DefaultHeight, "plot height")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	unitsCmd := &cobra.Command{
		Use:   "units",
		Short: "list recognised unit systems and their constants",
		Args:  cobra.NoArgs,
		RunE:  listUnits,
	}

	rootCmd.AddCommand(runCmd, compareCmd, listCmd, reindexCmd, plotCmd, exportJSONCmd, presetsCmd, unitsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator")
	cmd.Flags().Float64Var(&speedOfC, "c", 0, "speed of light (default: derived from units)")
}

// loadConfig picks the config file, else the named preset, and applies
// the flags the user set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	default:
		name := defaultPreset
		if len(args) > 0 {
			name = args[0]
		}
		if cfg = config.GetPreset(name); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", name, config.ListPresets())
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("c") {
		cfg.C = speedOfC
	}
	if flags.Changed("no-gr") && noGR {
		cfg.Effects = nil
	}
	if flags.Changed("variant") {
		if noGR {
			return nil, fmt.Errorf("--variant and --no-gr are mutually exclusive")
		}
		if err := withVariant(cfg, variant); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// withVariant replaces the effects of cfg with a single corrector of the
// named variant, keeping the source index and operator settings of the
// first configured effect. "none" clears them.
func withVariant(cfg *config.Config, name string) error {
	if name == "none" {
		cfg.Effects = nil
		return nil
	}
	if _, err := gr.ParseVariant(name); err != nil {
		return err
	}
	ec := config.EffectConfig{Name: name}
	if len(cfg.Effects) > 0 {
		ec = cfg.Effects[0]
		ec.Name = name
	}
	cfg.Effects = []config.EffectConfig{ec}
	if cfg.Name != "" {
		cfg.Name = strings.SplitN(cfg.Name, "@", 2)[0] + "@" + name
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	exp, err := experiment.Build(cfg, logger)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Println(viz.Title.Render("running " + cfg.Name))
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(ctx, metadataFor(exp), result)
	if err != nil {
		return err
	}
	logger.Info("run stored", "id", runID, "dir", dataDir)

	fmt.Println(viz.KeyValue("completed in", elapsed.Round(time.Millisecond).String()))
	fmt.Println(viz.KeyValue("run id", runID))
	fmt.Println(viz.KeyValue("steps", strconv.Itoa(result.StepsTaken)))
	fmt.Println(viz.KeyValue("effects", effectList(exp.System().Effects())))
	fmt.Println(viz.Separator(48))
	fmt.Println(viz.KeyValue("energy drift", viz.DriftStyle(result.EnergyDrift).Render(formatFloat(result.EnergyDrift))))
	for _, p := range exp.System().Particles() {
		if v, ok := result.Metrics[experiment.PrecessionMetric(p.Name)]; ok {
			fmt.Println(viz.KeyValue("precession "+p.Name, fmt.Sprintf("%.4f %s", v, exp.RateUnit())))
		}
	}
	return nil
}

func metadataFor(exp *experiment.Experiment) storage.RunMetadata {
	cfg := exp.Config()
	ps := exp.System().Particles()
	meta := storage.RunMetadata{
		Name:       cfg.Name,
		Units:      cfg.Units,
		G:          exp.System().G,
		C:          cfg.C,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
		Effects:    exp.System().Effects(),
		RateUnit:   exp.RateUnit(),
		Primary:    exp.Primary(),
	}
	for _, p := range ps {
		meta.Particles = append(meta.Particles, p.Name)
		meta.Masses = append(meta.Masses, p.Mass)
	}
	return meta
}

var compareVariantNames = []string{"none", gr.SingleSource.String(), gr.Full.String(), gr.Potential.String()}

func compareVariants(cmd *cobra.Command, args []string) error {
	base, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ensemble := dynamo.NewEnsemble(workers)
	experiments := make(map[string]*experiment.Experiment, len(compareVariantNames))
	for _, name := range compareVariantNames {
		cfg := base.Clone()
		if err := withVariant(cfg, name); err != nil {
			return err
		}
		exp, err := experiment.Build(cfg, logger.With("variant", name))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		experiments[name] = exp
		if err := ensemble.Add(dynamo.Run{
			Name: name,
			Sim:  exp.Simulator(),
			X0:   exp.System().InitialState(),
			Cfg:  exp.RunConfig(),
		}); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("compare started", "preset", base.Name, "runs", ensemble.Len(), "workers", workers)
	start := time.Now()
	results, err := ensemble.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("compare finished", "elapsed", time.Since(start))

	ref := experiments[compareVariantNames[0]]
	ps := ref.System().Particles()
	headers := []string{"variant", "steps", "energy drift"}
	for i, p := range ps {
		if i != ref.Primary() {
			headers = append(headers, "ϖ̇ "+p.Name+" ("+ref.RateUnit()+")")
		}
	}

	rows := make([][]string, 0, len(compareVariantNames))
	for _, name := range compareVariantNames {
		res := results[name]
		row := []string{name, strconv.Itoa(res.StepsTaken), formatFloat(res.EnergyDrift)}
		for i, p := range ps {
			if i == ref.Primary() {
				continue
			}
			row = append(row, fmt.Sprintf("%.4f", res.Metrics[experiment.PrecessionMetric(p.Name)]))
		}
		rows = append(rows, row)
	}

	fmt.Println(viz.Title.Render("compare " + strings.SplitN(base.Name, "@", 2)[0]))
	fmt.Println(viz.Table(headers, rows))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%g", run.Duration),
			fmt.Sprintf("%g", run.Dt),
			run.Integrator,
			effectList(run.Effects),
			formatFloat(run.EnergyDrift),
		})
	}
	fmt.Println(viz.Table([]string{"id", "time", "duration", "dt", "integ", "effects", "energy drift"}, rows))
	return nil
}

func reindexRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	added, err := st.Reindex(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d runs\n", added)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(traj.States) == 0 {
		return viz.ErrNoData
	}

	fmt.Println(viz.KeyValue("run", meta.ID))
	fmt.Println(viz.KeyValue("effects", effectList(meta.Effects)))
	fmt.Println(viz.KeyValue("samples", strconv.Itoa(len(traj.States))))
	fmt.Println()

	if herr, err := viz.HamiltonianError(traj.Energies); err == nil {
		graph, err := viz.Plot(herr, "relative energy error", plotWidth, plotHeight)
		if err != nil {
			return err
		}
		fmt.Println(graph)
		fmt.Println()
	} else {
		fmt.Println(viz.Subtle.Render("no energies stored"))
	}

	target, err := pickBody(meta, traj.Particles)
	if err != nil {
		return err
	}
	if len(meta.Masses) != len(traj.Particles) {
		fmt.Println(viz.Subtle.Render("no masses stored, skipping pericentre"))
		return nil
	}
	pomega, err := viz.PericentreSeries(meta.G, meta.Masses, traj.States, target, meta.Primary)
	if err != nil {
		return err
	}
	w0 := pomega[0]
	for i := range pomega {
		pomega[i] = (pomega[i] - w0) * 180 / math.Pi * 3600
	}
	graph, err := viz.Plot(pomega, "ϖ - ϖ0 of "+traj.Particles[target]+" (arcsec)", plotWidth, plotHeight)
	if err != nil {
		return err
	}
	fmt.Println(graph)
	return nil
}

func pickBody(meta *storage.RunMetadata, particles []string) (int, error) {
	if body != "" {
		for i, name := range particles {
			if name == body {
				if i == meta.Primary {
					return 0, fmt.Errorf("%s is the primary", body)
				}
				return i, nil
			}
		}
		return 0, fmt.Errorf("unknown particle %q (have %v)", body, particles)
	}
	for i := range particles {
		if i != meta.Primary {
			return i, nil
		}
	}
	return 0, fmt.Errorf("run has no particle besides the primary")
}

func exportJSON(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	if outFile == "" {
		return storage.ExportJSON(os.Stdout, meta, traj)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.ExportJSON(f, meta, traj); err != nil {
		return err
	}
	logger.Info("run exported", "id", runID, "file", outFile)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	rows := make([][]string, 0, len(config.Presets))
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		effects := make([]string, 0, len(p.Effects))
		for _, e := range p.Effects {
			label := e.Name
			if e.AsOperator {
				label += " (operator)"
			}
			effects = append(effects, label)
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(len(p.Particles)),
			p.Integrator,
			fmt.Sprintf("%g", p.Dt),
			fmt.Sprintf("%g", p.Duration),
			effectList(effects),
		})
	}
	fmt.Println(viz.Table([]string{"preset", "bodies", "integ", "dt", "duration", "effects"}, rows))
	return nil
}

func listUnits(cmd *cobra.Command, args []string) error {
	reg := units.DefaultRegistry()
	rows := [][]string{}
	for _, s := range reg.Systems() {
		k, err := reg.Constants(s)
		if err != nil {
			return err
		}
		label := s.String()
		if s == units.Default {
			label += " (default)"
		}
		rows = append(rows, []string{label, formatFloat(k.G), formatFloat(k.C)})
	}
	fmt.Println(viz.Table([]string{"units", "G", "c"}, rows))
	return nil
}

func effectList(effects []string) string {
	if len(effects) == 0 {
		return "none"
	}
	return strings.Join(effects, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
