package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/rede/packages/core/config"
	"github.com/abdul-hamid-achik/rede/packages/core/env"
	"github.com/abdul-hamid-achik/rede/packages/core/logging"
	"github.com/abdul-hamid-achik/rede/packages/core/runner"
	"github.com/abdul-hamid-achik/rede/packages/output"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	timeoutFlag      string
	maxRedirectsFlag int
	noRedirectFlag   bool
	contentTypeFlag  string
	headerFlags      []string
	varFlags         []string
	envFileFlag      string
	nameFlag         string
	prettyFlag       bool
	selectFlag       string
	insecureFlag     bool
	proxyFlag        string
	configFlag       string
	watchFlag        bool
	verboseFlag      int
	noColorFlag      bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Send the request described in a file",
	Long: `Send one request from a .http, .rede or .toml file and print the
response as JSON on stdout.

Examples:
  rede run api.http
  rede run api.http --name "Create user" --pretty
  rede run api.http --var baseUrl=http://localhost:8080 -H "X-Trace: 1"
  rede run api.toml --timeout 5s --max-redirects 3
  rede run api.http --select data.id
  rede run api.http --watch`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("REDE_TIMEOUT", ""), "Time limit for the whole request including redirects, e.g. 30s or 500 (ms) (env: REDE_TIMEOUT)")
	runCmd.Flags().IntVar(&maxRedirectsFlag, "max-redirects", getEnvInt("REDE_MAX_REDIRECTS", -1), "Maximum number of redirects to follow (env: REDE_MAX_REDIRECTS)")
	runCmd.Flags().BoolVar(&noRedirectFlag, "no-redirect", false, "Do not follow redirects")
	runCmd.Flags().StringVar(&contentTypeFlag, "content-type", "", "Override the Content-Type of the request body")
	runCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Extra header as \"Name: value\" (repeatable)")
	runCmd.Flags().StringArrayVar(&varFlags, "var", nil, "Set a variable as name=value (repeatable)")
	runCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("REDE_ENV_FILE", ""), "Load variables from a .env file (env: REDE_ENV_FILE)")
	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run the request with this name instead of the first one")
	runCmd.Flags().BoolVar(&prettyFlag, "pretty", false, "Indent the JSON report")
	runCmd.Flags().StringVar(&selectFlag, "select", "", "Report only this JSON path of the response body")
	runCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("REDE_INSECURE", false), "Skip TLS certificate verification (env: REDE_INSECURE)")
	runCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("REDE_PROXY", ""), "Proxy URL for HTTP/1.x requests (env: REDE_PROXY)")
	runCmd.Flags().StringVar(&configFlag, "config", getEnvString("REDE_CONFIG", ""), "Path to a config file (env: REDE_CONFIG)")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch the file and send the request again on changes")
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v for debug, -vv for trace)")
}

func runCommand(cmd *cobra.Command, args []string) error {
	path := args[0]

	settings, err := loadSettings(configFlag, filepath.Dir(path))
	if err != nil {
		return err
	}

	noColor := noColorFlag || settings.GetNoColor()
	pretty := prettyFlag
	if !cmd.Flags().Changed("pretty") {
		pretty = settings.GetPretty()
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelForVerbosity(verboseFlag),
		Format:  "text",
		Output:  cmd.ErrOrStderr(),
		NoColor: noColor,
	})

	cfg, err := runnerConfig(cmd, settings, logger)
	if err != nil {
		return err
	}

	formatter := output.NewConsoleFormatter(
		output.WithWriter(cmd.ErrOrStderr()),
		output.WithVerbose(verboseFlag > 0),
		output.WithNoColor(noColor),
	)
	reporter := output.NewReporter(
		output.WithReportWriter(cmd.OutOrStdout()),
		output.WithPretty(pretty),
		output.WithSelect(selectFlag),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.NewRunner(cfg)
	send := func() error {
		result, err := r.RunFile(ctx, path)
		if err != nil {
			return err
		}
		formatter.FormatSummary(result.Response)
		return reporter.Write(result.Response)
	}

	err = send()
	if !watchFlag {
		return err
	}
	if err != nil {
		formatter.FormatError(err)
	}

	return watch(ctx, path, formatter, logger, send)
}

// runnerConfig turns the run flags into runner settings. Flags that were
// not given stay nil so the request file and config file can decide.
func runnerConfig(cmd *cobra.Command, settings *config.Config, logger logrus.FieldLogger) (*runner.Config, error) {
	cfg := &runner.Config{
		Name:        nameFlag,
		EnvFile:     envFileFlag,
		ContentType: contentTypeFlag,
		Insecure:    insecureFlag,
		Proxy:       proxyFlag,
		Settings:    settings,
		Logger:      logger,
	}

	if timeoutFlag != "" {
		d, err := parseDuration(timeoutFlag)
		if err != nil {
			return nil, &usageError{err: fmt.Errorf("--timeout: %w", err)}
		}
		cfg.Timeout = &d
	}

	if cmd.Flags().Changed("max-redirects") || maxRedirectsFlag >= 0 {
		if maxRedirectsFlag < 0 {
			return nil, &usageError{err: fmt.Errorf("--max-redirects must not be negative")}
		}
		n := maxRedirectsFlag
		cfg.MaxRedirects = &n
	}

	if noRedirectFlag {
		cfg.FollowRedirects = config.BoolPtr(false)
	}

	headers, err := parseHeaders(headerFlags)
	if err != nil {
		return nil, &usageError{err: err}
	}
	cfg.Headers = headers

	vars, err := env.ParseAssignments(varFlags)
	if err != nil {
		return nil, &usageError{err: err}
	}
	cfg.Variables = vars

	return cfg, nil
}

func loadSettings(path, dir string) (*config.Config, error) {
	var (
		settings *config.Config
		err      error
	)
	if path != "" {
		settings, err = config.LoadConfig(path)
	} else {
		settings, err = config.FindAndLoadConfig(dir)
	}
	if err != nil {
		return nil, &configError{err: err}
	}
	if err := settings.Validate(); err != nil {
		return nil, &configError{err: err}
	}
	return settings, nil
}

// watch re-sends the request whenever the request file or a .env file next
// to it is written. It returns when ctx is cancelled.
func watch(ctx context.Context, path string, formatter *output.ConsoleFormatter, logger logrus.FieldLogger, send func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	formatter.FormatWatching([]string{path})

	target, _ := filepath.Abs(path)
	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watchesEvent(target, event.Name) {
				continue
			}
			logger.WithField("file", event.Name).Debug("change detected")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			if err := send(); err != nil {
				formatter.FormatError(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// watchesEvent reports whether a change to name should re-send the request
// read from target.
func watchesEvent(target, name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if abs == target {
		return true
	}
	return filepath.Dir(abs) == filepath.Dir(target) && filepath.Base(abs) == ".env"
}
