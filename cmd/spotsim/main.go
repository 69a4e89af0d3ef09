package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/spotsim/internal/config"
	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/integrators"
	"github.com/san-kum/spotsim/internal/logging"
	"github.com/san-kum/spotsim/internal/optim"
	"github.com/san-kum/spotsim/internal/policy"
	"github.com/san-kum/spotsim/internal/rollout"
	"github.com/san-kum/spotsim/internal/storage"
	"github.com/san-kum/spotsim/internal/viz"
)

const indexFile = "index.db"

var (
	dataDir    string
	logLevel   string
	logFormat  string
	configFile string
	preset     string
	envFile    string

	policyName string
	weights    string
	hidden     []int
	integrator string
	episodes   int
	workers    int
	seed       int64
	record     bool
	noIndex    bool
	cmdVX      float64
	cmdVY      float64
	cmdYaw     float64

	bestN     int
	episodeNo int
	outFile   string
	frameRate int
	axes      []string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "spotsim",
		Short:         "quadruped locomotion simulation bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			if !cmd.Flags().Changed("data") {
				dataDir = config.DataDir()
			}
			if !cmd.Flags().Changed("log-level") {
				if v := os.Getenv(config.EnvLogLevel); v != "" {
					logLevel = v
				}
			}
			return logging.Configure(logLevel, logFormat)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file with SPOTSIM_* overrides")

	rolloutCmd := &cobra.Command{
		Use:   "rollout",
		Short: "run episodes and save the run",
		RunE:  runRollout,
	}
	addEpisodeFlags(rolloutCmd)
	rolloutCmd.Flags().IntVar(&episodes, "episodes", config.DefaultEpisodes, "number of episodes")
	rolloutCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel environments")
	rolloutCmd.Flags().BoolVar(&record, "record", false, "save per-step records")
	rolloutCmd.Flags().BoolVar(&noIndex, "no-index", false, "skip the sqlite episode index")
	rolloutCmd.Flags().Float64Var(&cmdVX, "vx", 0, "fixed forward command")
	rolloutCmd.Flags().Float64Var(&cmdVY, "vy", 0, "fixed lateral command")
	rolloutCmd.Flags().Float64Var(&cmdYaw, "yaw", 0, "fixed yaw command")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search policy parameters for mean return",
		RunE:  runTune,
	}
	addEpisodeFlags(tuneCmd)
	tuneCmd.Flags().IntVar(&episodes, "episodes", 4, "episodes per grid point")
	tuneCmd.Flags().IntVar(&workers, "workers", config.DefaultWorkers, "parallel environments")
	tuneCmd.Flags().StringArrayVar(&axes, "param", []string{"amplitude=0.1:0.5:5", "frequency=1:3:3"}, "searched parameter, name=min:max:n or name=v1,v2")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "step a policy with a live view",
		RunE:  runWatch,
	}
	addEpisodeFlags(watchCmd)
	watchCmd.Flags().IntVar(&frameRate, "fps", 30, "steps per second")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	bestCmd := &cobra.Command{
		Use:   "best",
		Short: "show the highest-return episodes across runs",
		RunE:  bestEpisodes,
	}
	bestCmd.Flags().IntVarP(&bestN, "n", "n", 10, "number of episodes")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&episodeNo, "episode", -1, "plot per-step traces of one recorded episode")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export the episode table of a run as csv",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	spacesCmd := &cobra.Command{
		Use:   "spaces",
		Short: "print the observation and action layout",
		RunE:  printSpaces,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("%-8s policy=%-6s episodes=%-3d workers=%d integrator=%s\n",
					name, p.Rollout.Policy, p.Rollout.Episodes, p.Rollout.Workers, p.World.Integrator)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "configuration helpers",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "spotsim.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	})

	mlpCmd := &cobra.Command{
		Use:   "mlp",
		Short: "network policy helpers",
	}
	mlpInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a freshly initialized mlp parameter file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initWeights,
	}
	mlpInitCmd.Flags().IntSliceVar(&hidden, "hidden", policy.DefaultHidden, "hidden layer sizes")
	mlpInitCmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "initialization seed")
	mlpCmd.AddCommand(mlpInitCmd)

	rootCmd.AddCommand(rolloutCmd, tuneCmd, watchCmd, listCmd, bestCmd, plotCmd,
		exportJSONCmd, exportCSVCmd, spacesCmd, presetsCmd, configCmd, mlpCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addEpisodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&policyName, "policy", config.DefaultPolicy, "policy: "+strings.Join(policy.Names(), ", "))
	cmd.Flags().StringVar(&weights, "weights", "", "mlp parameter file (yaml or json)")
	cmd.Flags().IntSliceVar(&hidden, "hidden", nil, "mlp hidden layer sizes when no weights file is given")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator: "+strings.Join(integrators.Names(), ", "))
	cmd.Flags().Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
}

// loadConfig resolves preset, then file, then SPOTSIM_* variables, then
// explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Rollout.Policy = policyName
	}
	if flags.Changed("weights") {
		cfg.Rollout.Weights = weights
	}
	if flags.Changed("hidden") {
		cfg.Rollout.Hidden = hidden
	}
	if flags.Changed("integrator") {
		cfg.World.Integrator = integrator
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("episodes") {
		cfg.Rollout.Episodes = episodes
	}
	if flags.Changed("workers") {
		cfg.Rollout.Workers = workers
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func fixedCommand(cmd *cobra.Command) *env.Command {
	f := cmd.Flags()
	if !f.Changed("vx") && !f.Changed("vy") && !f.Changed("yaw") {
		return nil
	}
	c := env.Command{VX: float32(cmdVX), VY: float32(cmdVY), Yaw: float32(cmdYaw)}.Clamp()
	return &c
}

func runRollout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reg := rollout.NewRegistry(cfg)
	runCfg := reg.RunConfig(record)
	runCfg.Command = fixedCommand(cmd)

	fmt.Printf("running %d episodes of %s on %d worker(s)...\n", cfg.Rollout.Episodes, cfg.Rollout.Policy, cfg.Rollout.Workers)
	res, err := reg.Ensemble().Run(ctx, runCfg)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := storage.RunMetadata{
		Policy:     cfg.Rollout.Policy,
		Preset:     preset,
		Integrator: cfg.World.Integrator,
		Seed:       cfg.Seed,
		Dt:         cfg.Env.Dt,
		Workers:    cfg.Rollout.Workers,
	}
	runID, err := st.Save(meta, res)
	if err != nil {
		return err
	}

	if !noIndex {
		idx := storage.NewIndex(filepath.Join(dataDir, indexFile))
		if err := idx.Init(ctx); err != nil {
			return err
		}
		defer idx.Close()
		meta.ID = runID
		if err := idx.Record(ctx, meta, res.Episodes); err != nil {
			return err
		}
	}

	fmt.Printf("\nrun id: %s (%s steps recorded)\n", runID, humanize.Comma(int64(len(res.Steps))))
	fmt.Printf("mean return: %.3f\n", res.MeanReturn())
	fmt.Printf("mean length: %.1f\n", res.MeanLength())
	fmt.Printf("success rate: %.0f%%\n", res.SuccessRate()*100)
	for status, n := range res.StatusCounts() {
		fmt.Printf("  %-10s %d\n", status, n)
	}
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("policy") && preset == "" && configFile == "" {
		cfg.Rollout.Policy = "gait"
	}
	cfg.Rollout.Episodes = episodes

	grid := make([]optim.Axis, 0, len(axes))
	for _, a := range axes {
		axis, err := optim.ParseAxis(a)
		if err != nil {
			return err
		}
		grid = append(grid, axis)
	}
	search := optim.NewGridSearch(grid...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %s over %d points, %d episodes each...\n", cfg.Rollout.Policy, search.Size(), cfg.Rollout.Episodes)
	best, score, trials, err := search.Search(ctx, func(ctx context.Context, params map[string]float64) (float64, error) {
		reg := rollout.NewRegistry(cfg).WithParams(params)
		res, err := reg.Ensemble().Run(ctx, reg.RunConfig(false))
		if err != nil {
			return 0, err
		}
		return res.MeanReturn(), nil
	})
	if err != nil {
		return err
	}

	names := make([]string, len(grid))
	for i, a := range grid {
		names[i] = a.Name
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(names, "\t"))+"\tRETURN")
	for _, t := range optim.Ranked(trials) {
		for _, n := range names {
			fmt.Fprintf(w, "%.4f\t", t.Params[n])
		}
		fmt.Fprintf(w, "%.3f\n", t.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nbest return %.3f with", score)
	for _, n := range names {
		fmt.Printf(" %s=%.4f", n, best[n])
	}
	fmt.Println()
	return nil
}

func initWeights(cmd *cobra.Command, args []string) error {
	path := "mlp.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	m, err := policy.NewMLP(hidden, seed)
	if err != nil {
		return err
	}
	if err := policy.SaveMLP(path, m); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s parameters, hidden %v)\n", path, humanize.Comma(int64(m.NumParams())), m.Hidden())
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// keep log lines off the alternate screen
	logging.SetOutput(io.Discard)

	reg := rollout.NewRegistry(cfg)
	e, err := reg.NewEnv(cfg.Seed)
	if err != nil {
		return err
	}
	defer e.Close()
	p, err := reg.NewPolicy(cfg.Seed)
	if err != nil {
		return err
	}
	return viz.Run(viz.NewModel(e, p, cfg.Seed, frameRate))
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
	fmt.Fprintln(w, "ID\tPOLICY\tTIME\tEPISODES\tRETURN\tLENGTH\tSUCCESS\tINTEG")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.1f\t%.0f%%\t%s\n",
			run.ID,
			run.Policy,
			humanize.Time(run.Timestamp),
			run.Episodes,
			run.MeanReturn,
			run.MeanLength,
			run.SuccessRate*100,
			run.Integrator,
		)
	}

	return w.Flush()
}

func bestEpisodes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	idx := storage.NewIndex(filepath.Join(dataDir, indexFile))
	if err := idx.Init(ctx); err != nil {
		return err
	}
	defer idx.Close()

	best, err := idx.Best(ctx, bestN)
	if err != nil {
		return err
	}
	if len(best) == 0 {
		fmt.Println("no episodes indexed")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tEPISODE\tPOLICY\tRETURN\tLENGTH\tSTATUS")
	for _, e := range best {
		fmt.Fprintf(w, "%s\t%d\t%s\t%.3f\t%d\t%s\n", e.RunID, e.Episode, e.Policy, e.Return, e.Length, e.Status)
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
	eps, err := st.LoadEpisodes(runID)
	if err != nil {
		return err
	}
	if len(eps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("policy: %s\n", meta.Policy)
	fmt.Printf("episodes: %d\n\n", len(eps))

	returns := make([]float64, len(eps))
	lengths := make([]float64, len(eps))
	for i, e := range eps {
		returns[i] = e.Return
		lengths[i] = float64(e.Length)
	}
	plot(returns, "episode return")
	plot(lengths, "episode length")

	if episodeNo < 0 {
		return nil
	}
	steps, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	var height, reward []float64
	for _, s := range steps {
		if s.Episode != episodeNo {
			continue
		}
		height = append(height, s.Height)
		reward = append(reward, s.Reward)
	}
	if len(height) == 0 {
		return fmt.Errorf("no recorded steps for episode %d (rerun with --record)", episodeNo)
	}
	plot(height, fmt.Sprintf("episode %d base height", episodeNo))
	plot(reward, fmt.Sprintf("episode %d reward", episodeNo))
	return nil
}

func plot(data []float64, caption string) {
	if len(data) == 1 {
		data = append(data, data[0])
	}
	for i, v := range data {
		if v != v {
			data[i] = 0
		}
	}
	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
	fmt.Println(graph)
	fmt.Println()
}

func output() (*os.File, func() error, error) {
	if outFile == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	f, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportJSON(f, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	f, closeFn, err := output()
	if err != nil {
		return err
	}
	if err := storage.New(dataDir).ExportCSV(f, args[0]); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func printSpaces(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "observation (%d)\n", env.ObservationDim)
	fmt.Fprintln(w, "SLOT\tOFFSET\tSIZE\tLOW\tHIGH")
	for _, s := range env.Layout() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.4f\t%.4f\n", s.Name, s.Offset, s.Size, s.Low, s.High)
	}
	fmt.Fprintf(w, "\naction (%d), bounds [%.4f, %.4f]\n", env.ActionDim, -env.AngleLimit, env.AngleLimit)
	fmt.Fprintln(w, "INDEX\tJOINT")
	for i, name := range env.JointNames {
		fmt.Fprintf(w, "%d\t%s\n", i, name)
	}
	return w.Flush()
}
