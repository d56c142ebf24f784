// Package main provides the CLI entrypoint for betterrest.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/betterrest/internal/config"
	"github.com/verte-zerg/betterrest/internal/estimator"
	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/report"
	"github.com/verte-zerg/betterrest/internal/sleepmodel"
	"github.com/verte-zerg/betterrest/internal/store"
	"github.com/verte-zerg/betterrest/internal/timefmt"
	"github.com/verte-zerg/betterrest/internal/tui"
)

const (
	defaultWake      = "07:00"
	defaultClock     = "auto"
	defaultSweepStep = 1.0
)

var (
	inputWake    string
	inputSleep   float64
	inputCoffee  int
	inputClock   string
	inputModel   string
	inputVerbose bool

	sweepStep float64

	importName string
)

var errEstimateFailed = errors.New("bedtime estimate failed")

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "betterrest",
		Short:         "Find your ideal bedtime",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runScreenCmd,
	}
	addInputFlags(rootCmd)

	rootCmd.AddCommand(newEstimateCmd())
	rootCmd.AddCommand(newSweepCmd())
	rootCmd.AddCommand(newModelCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&inputWake, "wake", defaultWake, "wake-up time (HH:MM)")
	cmd.Flags().Float64Var(&inputSleep, "sleep", model.DefaultSleepAmount, "desired hours of sleep (1-12, step 0.25)")
	cmd.Flags().IntVar(&inputCoffee, "coffee", model.DefaultCoffeeAmount, "daily cups of coffee (1-20)")
	cmd.Flags().StringVar(&inputClock, "clock", defaultClock, "time format: 12h, 24h or auto")
	cmd.Flags().StringVar(&inputModel, "model", "", "model reference: builtin, file:<path> or a registry name")
	cmd.Flags().BoolVar(&inputVerbose, "verbose", false, "log estimate failures to stderr")
}

func runScreenCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openEnv(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	screen := tui.NewModel(sess.est, cfg.Defaults, time.Now())
	program := tea.NewProgram(screen, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newEstimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Print the ideal bedtime",
		Args:  cobra.NoArgs,
		RunE:  runEstimateCmd,
	}
	addInputFlags(cmd)
	return cmd
}

func runEstimateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sess, err := openEnv(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := cfg.Defaults
	res := sess.est.Estimate(in.WakeUp.On(time.Now()), in.SleepAmount, in.CoffeeAmount)
	out := res.Text
	if isTerminal(cmd.OutOrStdout()) {
		out = lipgloss.NewStyle().Bold(true).Render(out)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if !res.OK {
		return errEstimateFailed
	}
	return nil
}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Show bedtimes across sleep amounts",
		Args:  cobra.NoArgs,
		RunE:  runSweepCmd,
	}
	addInputFlags(cmd)
	cmd.Flags().Float64Var(&sweepStep, "step", defaultSweepStep, "sleep amount step in hours (min 0.25)")
	return cmd
}

func runSweepCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if err := validateSweepStep(sweepStep); err != nil {
		return err
	}
	sess, err := openEnv(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	in := cfg.Defaults
	wakeUp := in.WakeUp.On(time.Now())
	w := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(w, "Wake %s · %s\n\n", sess.est.Clock().Format(wakeUp), formatCups(in.CoffeeAmount)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	rows := report.Sweep(sess.est, wakeUp, in.CoffeeAmount, report.SleepAmounts(sweepStep))
	if err := report.RenderSweep(w, rows); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	hours, err := report.CoffeeCurve(sess.est, wakeUp, in.SleepAmount)
	if err != nil {
		logErrf("failed to compute coffee curve: %v\n", err)
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := report.RenderCoffeeCurve(w, hours); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newModelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage sleep models",
	}

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a model artifact into the registry",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelImportCmd,
	}
	importCmd.Flags().StringVar(&importName, "name", "", "registry name (default: name from the artifact)")

	cmd.AddCommand(importCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available models",
		Args:  cobra.NoArgs,
		RunE:  runModelListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "Select the model used when no --model is given",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelUseCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <ref>",
		Short: "Print a model artifact",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelShowCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE:  runModelRmCmd,
	})
	return cmd
}

func runModelImportCmd(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read model: %w", err)
	}
	reg, err := sleepmodel.Parse(data)
	if err != nil {
		return err
	}
	name := strings.TrimSpace(importName)
	if name == "" {
		name = reg.Name
	}
	if err := validateModelName(name); err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	rec := model.ModelRecord{Name: name, Version: reg.Version, Artifact: data, ImportedAt: time.Now()}
	if err := st.ImportModel(cmd.Context(), rec); err != nil {
		return fmt.Errorf("failed to import model: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (version %s)\n", name, orDash(reg.Version))
	return err
}

func runModelListCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	records, err := st.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	builtin, err := sleepmodel.Builtin()
	if err != nil {
		return err
	}
	anyActive := false
	for _, rec := range records {
		anyActive = anyActive || rec.Active
	}
	all := append([]model.ModelRecord{{
		Name:    sleepmodel.BuiltinName,
		Version: builtin.Version,
		Active:  !anyActive,
	}}, records...)
	return report.RenderModels(cmd.OutOrStdout(), all)
}

func runModelUseCmd(cmd *cobra.Command, args []string) error {
	name := sleepmodel.NormalizeRef(args[0])
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	if name == sleepmodel.BuiltinName {
		if err := st.SetActive(ctx, ""); err != nil {
			return fmt.Errorf("failed to select model: %w", err)
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "Using builtin model")
		return err
	}
	if _, err := sleepmodel.NewLoader(st).Load(ctx, name); err != nil {
		return fmt.Errorf("model %q is not usable: %w", name, err)
	}
	if err := st.SetActive(ctx, name); err != nil {
		return fmt.Errorf("failed to select model: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", name)
	return err
}

func runModelShowCmd(cmd *cobra.Command, args []string) error {
	var registry sleepmodel.ArtifactReader
	if st, err := openStore(); err != nil {
		logErrf("%v; registry models are unavailable\n", err)
	} else {
		defer closeStore(st)
		registry = st
	}
	data, err := sleepmodel.NewLoader(registry).Artifact(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runModelRmCmd(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == sleepmodel.BuiltinName {
		return fmt.Errorf("the builtin model cannot be removed")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if err := st.DeleteModel(cmd.Context(), name); err != nil {
		return fmt.Errorf("failed to remove model: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// session bundles what an estimating command needs.
type session struct {
	st  *store.Store
	est *estimator.Estimator
}

func (e *session) Close() {
	if e.st != nil {
		closeStore(e.st)
	}
}

// openEnv opens the registry and builds the estimator. A registry that cannot
// be opened only disables registry model references.
func openEnv(ctx context.Context, cfg model.Config) (*session, error) {
	clock, err := timefmt.ParseClock(cfg.Clock)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Verbose)

	e := &session{}
	var registry sleepmodel.ArtifactReader
	if st, err := openStore(); err != nil {
		logErrf("%v; registry models are unavailable\n", err)
	} else {
		e.st = st
		registry = st
	}

	ref := cfg.ModelRef
	if ref == "" && e.st != nil {
		active, err := e.st.ActiveModel(ctx)
		if err != nil {
			logErrf("failed to read active model: %v\n", err)
		}
		ref = active
	}
	ref = sleepmodel.NormalizeRef(ref)
	logger.Debug("using sleep model", "ref", ref, "clock", clock.String())

	loader := sleepmodel.NewLoader(registry)
	e.est = estimator.New(loader.Bind(ctx, ref), clock, logger)
	return e, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func resolveConfig(cmd *cobra.Command) (model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "wake", &inputWake, fileCfg.Defaults.Wake)
	applyFloatConfig(cmd, "sleep", &inputSleep, fileCfg.Defaults.Sleep)
	applyIntConfig(cmd, "coffee", &inputCoffee, fileCfg.Defaults.Coffee)
	applyStringConfig(cmd, "clock", &inputClock, fileCfg.Display.Clock)
	applyStringConfig(cmd, "model", &inputModel, fileCfg.Model.Ref)

	wake, err := model.ParseWakeTime(inputWake)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid wake time: %w", err)
	}
	cfg := model.Config{
		Defaults: model.Inputs{
			WakeUp:       wake,
			SleepAmount:  inputSleep,
			CoffeeAmount: inputCoffee,
		},
		Clock:    inputClock,
		ModelRef: strings.TrimSpace(inputModel),
		Verbose:  inputVerbose,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func validateConfig(cfg model.Config) error {
	in := cfg.Defaults
	if in.SleepAmount < model.MinSleepAmount || in.SleepAmount > model.MaxSleepAmount {
		return fmt.Errorf("sleep amount %g must be between %g and %g", in.SleepAmount, model.MinSleepAmount, model.MaxSleepAmount)
	}
	if steps := in.SleepAmount / model.SleepStep; math.Abs(steps-math.Round(steps)) > 1e-9 {
		return fmt.Errorf("sleep amount %g must be a multiple of %g", in.SleepAmount, model.SleepStep)
	}
	if in.CoffeeAmount < model.MinCoffeeAmount || in.CoffeeAmount > model.MaxCoffeeAmount {
		return fmt.Errorf("coffee amount %d must be between %d and %d", in.CoffeeAmount, model.MinCoffeeAmount, model.MaxCoffeeAmount)
	}
	if _, err := timefmt.ParseClock(cfg.Clock); err != nil {
		return fmt.Errorf("invalid clock: %w", err)
	}
	return nil
}

func validateSweepStep(step float64) error {
	span := model.MaxSleepAmount - model.MinSleepAmount
	if math.IsNaN(step) || math.IsInf(step, 0) || step < model.SleepStep || step > span {
		return fmt.Errorf("sweep step must be between %g and %g hours", model.SleepStep, span)
	}
	return nil
}

func validateModelName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("model name must not be empty")
	case name == sleepmodel.BuiltinName:
		return fmt.Errorf("%q is reserved for the embedded model", name)
	case strings.HasPrefix(name, "file:"):
		return fmt.Errorf("model name must not start with %q", "file:")
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# betterrest configuration
# Uncomment a value to enable it. CLI flags override config values.

[defaults]
# wake = %q          # Wake-up time (HH:MM)
# sleep = %.2f           # Desired hours of sleep (1-12, step 0.25)
# coffee = %d             # Daily cups of coffee (1-20)

[display]
# clock = %q          # 12h, 24h or auto (from LC_ALL/LC_TIME/LANG)

[model]
# ref = %q         # builtin, file:<path> or a name from 'betterrest model list'
`,
		defaultWake,
		model.DefaultSleepAmount,
		model.DefaultCoffeeAmount,
		defaultClock,
		sleepmodel.BuiltinName,
	)
}

func formatCups(n int) string {
	if n == 1 {
		return "1 cup"
	}
	return fmt.Sprintf("%d cups", n)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
