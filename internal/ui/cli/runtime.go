package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"bindsig/internal/core/app"
	"bindsig/internal/core/config"
	"bindsig/internal/core/errors"
	"bindsig/internal/core/ports"
	"bindsig/internal/core/watcher"
	"bindsig/internal/data/history"
	"bindsig/internal/shared/observability"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

// Run executes the command line and returns the process exit code: 0 when
// every declaration is valid, 1 on invalid declarations or runtime errors,
// 2 on usage errors.
func Run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "bindsig v%s\n", versionString)
		return exitOK
	}

	configureLogging(stderr, opts.verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("failed to load config", "path", opts.configPath, "error", err)
		return exitInvalid
	}
	if err := validateModeOptions(opts); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.TracingEnabled,
		Endpoint:    cfg.Observability.OTLPEndpoint,
		ServiceName: cfg.Observability.ServiceName,
		Insecure:    cfg.Observability.Insecure,
	})
	if err != nil {
		slog.Error("failed to initialize tracing", "error", err)
		return exitInvalid
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	store, err := openHistoryStoreIfEnabled(cfg)
	if err != nil {
		slog.Error("history setup failed", "path", cfg.DB.Path, "error", err)
		return exitInvalid
	}
	if store != nil {
		defer store.Close()
	}

	checker, err := newChecker(cfg, store)
	if err != nil {
		slog.Error("failed to initialize checker", "error", err)
		return exitInvalid
	}

	if opts.history {
		runs, err := checker.History(opts.historyLimit)
		if err != nil {
			slog.Error("failed to load history", "error", err)
			return exitInvalid
		}
		renderHistory(stdout, runs)
		return exitOK
	}
	if opts.run != "" {
		results, err := checker.RunResults(opts.run)
		if err != nil {
			slog.Error("failed to load run", "run", opts.run, "error", err)
			return exitInvalid
		}
		renderRunResults(stdout, opts.run, results)
		return exitOK
	}

	session := &watchSession{checker: checker, stdout: stdout, canonical: opts.canonical}
	if store != nil {
		session.store = store
	}

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddress); addr != "" {
		server := observability.NewServer(addr, session.health)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "addr", addr, "error", err)
			return exitInvalid
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(shutdownCtx)
		}()
	}

	if opts.watch {
		return session.run(ctx, opts)
	}
	return checkArgs(ctx, checker, opts, stdout)
}

func validateModeOptions(opts cliOptions) error {
	modes := 0
	for _, on := range []bool{opts.watch, opts.history, opts.run != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("--watch, --history and --run cannot be combined")
	}
	if (opts.history || opts.run != "") && len(opts.args) > 0 {
		return fmt.Errorf("--history and --run take no positional arguments")
	}
	if !opts.watch && !opts.history && opts.run == "" && len(opts.args) == 0 {
		return fmt.Errorf("usage: bindsig [flags] <declaration|file.bind>...")
	}
	if opts.historyLimit < 0 {
		return fmt.Errorf("--history-limit must be >= 0")
	}
	return nil
}

func loadConfig(opts cliOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath == defaultConfigPath {
		cfg, err = config.LoadOrDefault(opts.configPath)
	} else {
		cfg, err = config.Load(opts.configPath)
	}
	if err != nil {
		return nil, err
	}
	if opts.backend != "" {
		cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func openHistoryStoreIfEnabled(cfg *config.Config) (*history.Store, error) {
	if !cfg.DB.Enabled {
		return nil, nil
	}
	store, err := history.OpenWithTimeout(cfg.DB.Path, cfg.DB.BusyTimeout)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open history store"), errors.CtxPath, cfg.DB.Path)
	}
	return store, nil
}

// newChecker avoids handing app a typed-nil store when history is disabled.
func newChecker(cfg *config.Config, store *history.Store) (*app.Checker, error) {
	if store == nil {
		return app.NewChecker(cfg, nil)
	}
	return app.NewChecker(cfg, store)
}

// checkArgs checks every positional argument. Existing files are read as
// declaration files; everything else is one declaration.
func checkArgs(ctx context.Context, checker *app.Checker, opts cliOptions, stdout io.Writer) int {
	var inline []app.Declaration
	code := exitOK
	for _, arg := range opts.args {
		if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			report, err := checker.CheckFile(ctx, arg)
			if err != nil {
				slog.Error("check failed", "path", arg, "error", err)
				code = exitInvalid
				continue
			}
			renderReport(stdout, report, opts.canonical)
			if !report.OK() {
				code = exitInvalid
			}
			continue
		}
		inline = append(inline, app.ParseArgument(arg))
	}

	if len(inline) > 0 {
		report, err := checker.CheckAll(ctx, "command line", inline)
		if err != nil {
			slog.Error("check failed", "error", err)
			return exitInvalid
		}
		renderReport(stdout, report, opts.canonical)
		if !report.OK() {
			code = exitInvalid
		}
	}
	return code
}

// watchSession owns the checker used in watch mode and swaps it when the
// config file is edited.
type watchSession struct {
	mu        sync.Mutex
	checker   *app.Checker
	store     ports.HistoryStore
	watcher   *watcher.Watcher
	stdout    io.Writer
	canonical bool
	roots     []string
}

func (s *watchSession) health(ctx context.Context) observability.HealthStatus {
	s.mu.Lock()
	c := s.checker
	s.mu.Unlock()
	return c.Health(ctx)
}

func (s *watchSession) run(ctx context.Context, opts cliOptions) int {
	s.roots = opts.args
	if len(s.roots) == 0 {
		s.roots = []string{"."}
	}

	if err := s.start(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return exitInvalid
	}
	defer s.close()

	if _, err := os.Stat(opts.configPath); err == nil {
		cw := config.NewWatcher(opts.configPath, func(cfg *config.Config) {
			if opts.backend != "" {
				cfg.Oracle.Backend = strings.ToLower(strings.TrimSpace(opts.backend))
			}
			s.reload(ctx, cfg)
		})
		if err := cw.Start(ctx); err != nil {
			slog.Warn("config reload disabled", "path", opts.configPath, "error", err)
		} else {
			defer cw.Stop()
		}
	}

	slog.Info("watching declaration files", "roots", strings.Join(s.roots, ","))
	<-ctx.Done()
	return exitOK
}

func (s *watchSession) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, err := s.checker.Watch(ctx, s.roots, s.onReport)
	if err != nil {
		return err
	}
	s.watcher = w
	return nil
}

func (s *watchSession) onReport(report *app.Report, err error) {
	if err != nil {
		slog.Error("check failed", "error", err)
		return
	}
	renderReport(s.stdout, report, s.canonical)
}

func (s *watchSession) reload(ctx context.Context, cfg *config.Config) {
	if s.store == nil && cfg.DB.Enabled {
		slog.Warn("db.enabled changed; restart to open the history store")
	}
	next, err := app.NewChecker(cfg, s.store)
	if err != nil {
		slog.Error("config reload rejected", "error", err)
		return
	}

	s.mu.Lock()
	old := s.watcher
	s.checker = next
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if err := s.start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		slog.Error("failed to restart watcher", "error", err)
	}
}

func (s *watchSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
}

func configureLogging(output io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
