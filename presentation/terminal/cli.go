package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"e2e_harness/application/harness"
	"e2e_harness/application/scenarios"
	"e2e_harness/domain/entities"
	"e2e_harness/domain/interfaces"
	"e2e_harness/infrastructure/browser"
	"e2e_harness/infrastructure/config"
	"e2e_harness/infrastructure/security"
	"e2e_harness/infrastructure/storage"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Exit statuses
const (
	ExitOK       = 0
	ExitFailed   = 1
	ExitInfraErr = 2
)

// exitCode carries a process exit status out of a command
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

type cliDeps struct {
	loadConfig func() (config.Config, error)
	launch     func(name string, opts browser.Options) (browser.Launcher, error)
	suites     interfaces.SuiteSource
}

func realDeps() cliDeps {
	return cliDeps{
		loadConfig: func() (config.Config, error) { return config.Load() },
		launch:     browser.NewLauncher,
		suites:     storage.NewSuiteFile(),
	}
}

// runFlags mirror the config keys they override
type runFlags struct {
	driver       string
	baseURL      string
	focus        string
	tags         []string
	workers      int
	timeout      time.Duration
	pollInterval time.Duration
	report       string
	artifacts    string
	headless     bool
	suggestions  string
	allowedHosts []string
	slowMo       time.Duration
	profileRoot  string
	verbose      bool
}

// Execute - runs the CLI and returns the process exit status
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCommand(realDeps()), os.Stderr)
}

func execute(ctx context.Context, root *cobra.Command, errOut io.Writer) int {
	err := root.ExecuteContext(ctx)
	var code exitCode
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &code):
		return int(code)
	default:
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return ExitInfraErr
	}
}

func newRootCommand(deps cliDeps) *cobra.Command {
	root := &cobra.Command{
		Use:           "e2e_harness",
		Short:         "Scenario-driven browser verification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCommand(deps), listCommand(deps), reportCommand())
	return root
}

func runCommand(deps cliDeps) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [suite.yaml...]",
		Short: "Run the built-in autocomplete suite, or the given suite files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(cmd, deps, flags, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.driver, "driver", "", "Browser driver: playwright, selenium or chromedp")
	f.StringVar(&flags.baseURL, "base-url", "", "Base URL relative page targets are resolved against")
	f.StringVar(&flags.focus, "focus", "", "Exclusive scenario handling: ignore, honor or forbid")
	f.StringSliceVar(&flags.tags, "tag", nil, "Only run scenarios with this tag (repeatable)")
	f.IntVar(&flags.workers, "workers", 0, "Scenarios run in parallel, each on its own browser")
	f.DurationVar(&flags.timeout, "timeout", 0, "Default timeout for element resolution and waits")
	f.DurationVar(&flags.pollInterval, "poll-interval", 0, "Wait strategy poll interval")
	f.StringVar(&flags.report, "report", "", "Write a JSON report to this file")
	f.StringVar(&flags.artifacts, "artifacts", "", "Directory for failure screenshots")
	f.BoolVar(&flags.headless, "headless", true, "Run the browser without a window")
	f.StringVar(&flags.suggestions, "suggestion-selector", "", "CSS selector of a page-rendered suggestion list")
	f.StringSliceVar(&flags.allowedHosts, "allow-host", nil, "Extra host navigation may go to (repeatable)")
	f.DurationVar(&flags.slowMo, "slow-mo", 0, "Delay every browser operation (playwright only)")
	f.StringVar(&flags.profileRoot, "profile-root", "", "Directory per-session browser profiles are created in")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Debug logging")
	return cmd
}

func listCommand(deps cliDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "list [suite.yaml...]",
		Short: "List scenarios and their exclusive markers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}
			suite, err := loadSuite(deps, cfg, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", suite.Name)
			for _, sc := range suite.Scenarios {
				marker := " "
				if sc.Exclusive {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s (%d steps)", marker, sc.Name, len(sc.Steps))
				if len(sc.Tags) > 0 {
					fmt.Fprintf(out, " %v", sc.Tags)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
}

func reportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report <report.json>",
		Short: "Print a saved JSON report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := storage.LoadReport(args[0])
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}
			NewTextReporter(cmd.OutOrStdout()).PrintReport(report)
			if code := report.ExitCode(); code != ExitOK {
				return exitCode(code)
			}
			return nil
		},
	}
}

func runSuites(cmd *cobra.Command, deps cliDeps, flags runFlags, args []string) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}
	focus, err := harness.ParseFocusMode(cfg.FocusMode)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)

	suite, err := loadSuite(deps, cfg, args)
	if err != nil {
		return err
	}

	guard, err := security.NewNavigationGuard(cfg.BaseURL, cfg.AllowedHosts, logger)
	if err != nil {
		return err
	}
	logger.Debugf("Navigation allowed to: %v", guard.Hosts())

	launcher, err := deps.launch(cfg.Driver, browserOptions(cfg, logger))
	if err != nil {
		return fmt.Errorf("failed to initialize browser: %w", err)
	}
	defer func() {
		if err := launcher.Close(); err != nil {
			logger.WithError(err).Warn("Failed to shut down browser driver")
		}
	}()

	store := storage.NewFileStore(cfg.ReportPath, cfg.ArtifactDir)
	runnerOpts := harness.Options{
		BaseURL:        cfg.BaseURL,
		DefaultTimeout: cfg.Timeout,
		PollInterval:   cfg.PollInterval,
		Guard:          guard,
		Logger:         logger,
	}
	if cfg.ArtifactDir != "" {
		runnerOpts.Artifacts = store
	}

	runner := harness.NewSuiteRunner(launcher.Open, harness.SuiteOptions{
		Runner:   runnerOpts,
		Workers:  cfg.Workers,
		Focus:    focus,
		Tags:     flags.tags,
		Reporter: NewTextReporter(cmd.OutOrStdout()),
		Store:    store,
	})

	report, err := runner.Run(cmd.Context(), suite)
	if err != nil {
		logger.WithError(err).Error("Run did not complete")
		if len(report.Results) == 0 {
			return err
		}
	}
	code := report.ExitCode()
	if err != nil && code == ExitOK {
		code = ExitInfraErr
	}
	if code != ExitOK {
		return exitCode(code)
	}
	return nil
}

// applyFlags - flags set on the command line win over env and .env
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) {
	changed := cmd.Flags().Changed
	if changed("driver") {
		cfg.Driver = flags.driver
	}
	if changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if changed("focus") {
		cfg.FocusMode = flags.focus
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	if changed("timeout") {
		cfg.Timeout = flags.timeout
	}
	if changed("poll-interval") {
		cfg.PollInterval = flags.pollInterval
	}
	if changed("report") {
		cfg.ReportPath = flags.report
	}
	if changed("artifacts") {
		cfg.ArtifactDir = flags.artifacts
	}
	if changed("headless") {
		cfg.Headless = flags.headless
	}
	if changed("suggestion-selector") {
		cfg.SuggestionSelector = flags.suggestions
	}
	if changed("slow-mo") {
		cfg.SlowMo = flags.slowMo
	}
	if changed("profile-root") {
		cfg.ProfileRoot = flags.profileRoot
	}
	if changed("allow-host") {
		cfg.AllowedHosts = append(cfg.AllowedHosts, flags.allowedHosts...)
	}
	if flags.verbose {
		cfg.LogLevel = logrus.DebugLevel
	}
}

func browserOptions(cfg config.Config, logger *logrus.Logger) browser.Options {
	return browser.Options{
		Headless:     cfg.Headless,
		SlowMo:       cfg.SlowMo,
		ChromeBinary: cfg.ChromeBinary,
		DriverPath:   cfg.DriverPath,
		RemoteURL:    cfg.SeleniumURL,
		ProfileRoot:  cfg.ProfileRoot,
		Logger:       logger,
	}
}

// loadSuite - the built-in suite when no files are given, else the files merged
func loadSuite(deps cliDeps, cfg config.Config, files []string) (entities.Suite, error) {
	if len(files) == 0 {
		opts := scenarios.Options{SuggestionTimeout: cfg.Timeout}
		if cfg.SuggestionSelector != "" {
			opts.SuggestionList = entities.CSS(cfg.SuggestionSelector)
		} else {
			opts.NativeSuggestions = true
		}
		return scenarios.AutocompleteSuite(opts), nil
	}

	suites := make([]entities.Suite, 0, len(files))
	for _, path := range files {
		s, err := deps.suites.LoadSuite(path)
		if err != nil {
			return entities.Suite{}, err
		}
		suites = append(suites, s)
	}
	name := ""
	if len(suites) > 1 {
		name = fmt.Sprintf("%d suites", len(suites))
	}
	return storage.MergeSuites(name, suites...)
}

func newLogger(out io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
