package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/runspec/packages/core/config"
	"github.com/abdul-hamid-achik/runspec/packages/core/engine"
	"github.com/abdul-hamid-achik/runspec/packages/loader"
	"github.com/abdul-hamid-achik/runspec/packages/metrics"
	"github.com/abdul-hamid-achik/runspec/packages/report"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <file|directory>",
	Short: "Run scenarios from runspec suite files",
	Long: `Run scenarios defined in .runspec.yaml suite files.

Examples:
  runspec run checkout.runspec.yaml
  runspec run ./suites/ --tags smoke
  runspec run ./suites/ --concurrency 10 --max-failures 3
  runspec run checkout.runspec.yaml --name "refund" --output json
  runspec run ./suites/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	configFlag      string
	nameFlag        string
	tagsFlag        string
	verboseFlag     int // 0=off, 1=-v, 2=-vv
	quietFlag       bool
	noColorFlag     bool
	dryRunFlag      bool
	outputFlag      string
	outputFileFlag  string
	concurrencyFlag int
	maxFailuresFlag int
	timeoutFlag     string
	stepTimeoutFlag string
	rateFlag        float64
	watchFlag       bool
	progressFlag    bool
	metricsFlag     bool
)

func init() {
	// Core flags
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("RUNSPEC_CONFIG", ""), "Path to config file (env: RUNSPEC_CONFIG)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only scenarios matching name pattern")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", getEnvString("RUNSPEC_TAGS", ""), "Run only scenarios with specified tags (comma-separated) (env: RUNSPEC_TAGS)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for more detail)")
	runCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", getEnvBool("RUNSPEC_QUIET", false), "Suppress all output except errors (env: RUNSPEC_QUIET)")
	runCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("RUNSPEC_NO_COLOR", false), "Disable colored output (env: RUNSPEC_NO_COLOR)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("RUNSPEC_OUTPUT", "console"), "Output format: console, json, junit, tap (env: RUNSPEC_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", getEnvString("RUNSPEC_OUTPUT_FILE", ""), "Write output to file (default: stdout) (env: RUNSPEC_OUTPUT_FILE)")
	runCmd.Flags().BoolVar(&progressFlag, "progress", false, "Print scenario results as they finish")
	runCmd.Flags().BoolVar(&metricsFlag, "metrics", getEnvBool("RUNSPEC_METRICS", false), "Print step latency summary after the run (env: RUNSPEC_METRICS)")

	// Execution flags
	runCmd.Flags().IntVar(&concurrencyFlag, "concurrency", getEnvInt("RUNSPEC_CONCURRENCY", 0), "Scenarios per batch, 0 runs everything at once (env: RUNSPEC_CONCURRENCY)")
	runCmd.Flags().IntVar(&maxFailuresFlag, "max-failures", getEnvInt("RUNSPEC_MAX_FAILURES", 0), "Abort the run after this many failures, 0 never aborts (env: RUNSPEC_MAX_FAILURES)")
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("RUNSPEC_TIMEOUT", ""), "Default scenario timeout (e.g., 30s, 1m) (env: RUNSPEC_TIMEOUT)")
	runCmd.Flags().StringVar(&stepTimeoutFlag, "step-timeout", getEnvString("RUNSPEC_STEP_TIMEOUT", ""), "Default per-attempt step timeout (env: RUNSPEC_STEP_TIMEOUT)")
	runCmd.Flags().Float64VarP(&rateFlag, "rate", "r", 0, "Cap scenario launches per second, 0 disables pacing")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch suite files for changes and re-run")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Load and show what would run without executing")
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func runCommand(cmd *cobra.Command, args []string) error {
	// Setup output writer
	var outWriter *os.File
	var err error
	if outputFileFlag != "" {
		outWriter, err = os.Create(outputFileFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer outWriter.Close()
	}

	formatter, err := newFormatter(outWriter)
	if err != nil {
		return err
	}
	formatter.FormatHeader(version)

	files, err := collectFiles(args)
	if err != nil {
		formatter.FormatError(err)
		return err
	}
	if len(files) == 0 {
		err := fmt.Errorf("no .runspec.yaml files found")
		formatter.FormatError(err)
		return err
	}

	// Load config from file (if present) and apply CLI overrides
	fileConfig, err := config.LoadConfig(configFlag)
	if err != nil {
		formatter.FormatError(err)
		return err
	}
	cfg, err := mergedConfig(fileConfig)
	if err != nil {
		formatter.FormatError(err)
		return err
	}

	runScenarios := func(formatter report.Formatter) (*engine.RunResult, error) {
		defs, err := loader.New().LoadFiles(files...)
		if err != nil {
			return nil, err
		}
		defs = filterScenarios(defs, nameFlag, splitTags(tagsFlag))
		if len(defs) == 0 {
			return nil, fmt.Errorf("no scenarios matched the filters")
		}

		if dryRunFlag {
			for _, def := range defs {
				fmt.Fprintf(cmd.OutOrStdout(), "Would run: %s\n", def.Name)
			}
			return &engine.RunResult{}, nil
		}

		ec := cfg.Engine()
		ec.Logger = newLogger()

		var reporters []engine.Reporter
		if progressFlag && !quietFlag {
			reporters = append(reporters, report.NewProgress())
		}
		var collector *metrics.Collector
		if metricsFlag {
			collector = metrics.NewCollector()
			reporters = append(reporters, collector)
		}
		switch len(reporters) {
		case 0:
		case 1:
			ec.Reporter = reporters[0]
		default:
			ec.Reporter = engine.Multi(reporters...)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		result := engine.NewRunner(ec).Run(ctx, defs)
		formatter.FormatResult(result)

		if collector != nil && !quietFlag {
			printMetrics(cmd, collector.Summary())
		}
		return result, nil
	}

	result, err := runScenarios(formatter)
	if err != nil {
		formatter.FormatError(err)
		return err
	}

	if flushable, ok := formatter.(report.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return fmt.Errorf("error writing output: %w", err)
		}
	}

	// If watch mode is not enabled, exit normally
	if !watchFlag {
		if result.Failed > 0 {
			os.Exit(ExitScenarioFailure)
		}
		return nil
	}

	return watchAndRerun(cmd, files, args, runScenarios)
}

// newFormatter builds the formatter selected by --output.
func newFormatter(outWriter *os.File) (report.Formatter, error) {
	switch strings.ToLower(outputFlag) {
	case "json":
		opts := []report.JSONOption{}
		if outWriter != nil {
			opts = append(opts, report.JSONWithWriter(outWriter))
		}
		return report.NewJSONFormatter(opts...), nil
	case "junit":
		opts := []report.JUnitOption{}
		if outWriter != nil {
			opts = append(opts, report.JUnitWithWriter(outWriter))
		}
		return report.NewJUnitFormatter(opts...), nil
	case "tap":
		opts := []report.TAPOption{}
		if outWriter != nil {
			opts = append(opts, report.TAPWithWriter(outWriter))
		}
		return report.NewTAPFormatter(opts...), nil
	case "console":
		consoleOpts := []report.ConsoleOption{
			report.WithVerbose(verboseFlag > 0),
			report.WithNoColor(noColorFlag || quietFlag),
		}
		if outWriter != nil {
			consoleOpts = append(consoleOpts, report.WithWriter(outWriter))
		}
		return report.NewConsoleFormatter(consoleOpts...), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use console, json, junit or tap)", outputFlag)
	}
}

// mergedConfig overlays CLI flags on top of the file config.
func mergedConfig(fileConfig *config.Config) (*config.Config, error) {
	override := &config.Config{
		Concurrency: concurrencyFlag,
		MaxFailures: maxFailuresFlag,
		RateLimit:   rateFlag,
	}
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", timeoutFlag, err)
		}
		override.Timeout = int(d.Milliseconds())
	}
	if stepTimeoutFlag != "" {
		d, err := time.ParseDuration(stepTimeoutFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid step timeout value %q: %w", stepTimeoutFlag, err)
		}
		override.StepTimeout = int(d.Milliseconds())
	}
	if noColorFlag {
		override.NoColor = config.BoolPtr(true)
	}
	if verboseFlag > 0 {
		override.Verbose = config.BoolPtr(true)
	}
	return fileConfig.Merge(override), nil
}

func newLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case verboseFlag >= 2:
		log.SetLevel(logrus.DebugLevel)
	case verboseFlag == 1:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}

func splitTags(flag string) []string {
	var tags []string
	for _, t := range strings.Split(flag, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// filterScenarios keeps scenarios whose name contains the pattern and which
// carry at least one of the requested tags.
func filterScenarios(defs []*engine.ScenarioDefinition, name string, tags []string) []*engine.ScenarioDefinition {
	if name == "" && len(tags) == 0 {
		return defs
	}

	var out []*engine.ScenarioDefinition
	for _, def := range defs {
		if name != "" && !strings.Contains(strings.ToLower(def.Name), strings.ToLower(name)) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(def, tags) {
			continue
		}
		out = append(out, def)
	}
	return out
}

func hasAnyTag(def *engine.ScenarioDefinition, tags []string) bool {
	for _, t := range tags {
		if def.HasTag(t) {
			return true
		}
	}
	return false
}

func printMetrics(cmd *cobra.Command, s *metrics.Summary) {
	if s.TotalSteps == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Steps:     %d total, %d failed\n", s.TotalSteps, s.FailedSteps)
	fmt.Fprintf(out, "Latency:   min=%s p50=%s p95=%s p99=%s max=%s\n",
		s.Min, s.P50, s.P95, s.P99, s.Max)
	for _, step := range s.Steps {
		fmt.Fprintf(out, "  %-24s n=%-4d p50=%s p95=%s max=%s\n",
			step.Name, step.Count, step.P50, step.P95, step.Max)
	}
	fmt.Fprintln(out)
}

// watchAndRerun re-runs the scenarios whenever a watched suite file changes.
func watchAndRerun(cmd *cobra.Command, files, args []string, run func(report.Formatter) (*engine.RunResult, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directories containing the suite files.
	watchedDirs := make(map[string]bool)
	for _, file := range files {
		dir := filepath.Dir(file)
		if !watchedDirs[dir] {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
			}
			watchedDirs[dir] = true
		}
	}

	// Also watch the original args if they're directories, so new suite
	// files are picked up.
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err == nil && info.IsDir() {
			_ = filepath.Walk(arg, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if info.IsDir() && !watchedDirs[path] {
					_ = watcher.Add(path)
					watchedDirs[path] = true
				}
				return nil
			})
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes
	var debounceTimer *time.Timer

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) && isSuiteFile(event.Name) {
				// Debounce: reset timer on each event
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running scenarios...\n\n", event.Name)

					// Accumulating formatters need fresh state per run.
					formatter, err := newFormatter(nil)
					if err != nil {
						fmt.Fprintf(os.Stderr, "error: %v\n", err)
						return
					}

					result, err := run(formatter)
					if err != nil {
						formatter.FormatError(err)
					} else if flushable, ok := formatter.(report.Flushable); ok {
						_ = flushable.Flush(result.Duration)
					}

					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := loader.Discover(arg)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if isSuiteFile(arg) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func isSuiteFile(path string) bool {
	return strings.HasSuffix(path, ".runspec.yaml") || strings.HasSuffix(path, ".runspec.yml")
}
