package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	"github.com/evanschultz/kanban/internal/adapters/storage/sqlite"
	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/config"
	"github.com/evanschultz/kanban/internal/platform"
	"github.com/spf13/cobra"
)

// version is stamped at build time.
var version = "dev"

// program is the part of tea.Program the view command drives.
type program interface {
	Run() (tea.Model, error)
}

// programFactory builds the interactive board program.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// executeRoot runs the command tree. Tests swap it for a plain cobra execute.
var executeRoot = func(ctx context.Context, root *cobra.Command) error {
	return fang.Execute(ctx, root,
		fang.WithVersion(version),
		fang.WithoutManpage(),
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		stop()
		os.Exit(1)
	}
}

// run builds the command tree and executes it against args.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	root := newRootCmd(&rootOptions{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(os.Stdin)
	return executeRoot(ctx, root)
}

// rootOptions holds persistent flag values shared by every command.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

// newRootCmd wires the persistent flags and every subcommand.
func newRootCmd(opts *rootOptions) *cobra.Command {
	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("KANBAN_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	appName := "kanban"
	if envApp := strings.TrimSpace(os.Getenv("KANBAN_APP_NAME")); envApp != "" {
		appName = envApp
	}

	root := &cobra.Command{
		Use:           "kanban",
		Short:         "A project-local three-lane task board",
		Long:          "kanban keeps a todo/doing/done board in ./kanban.db and lets you move cards from the command line or an interactive board.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config TOML")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database (default ./kanban.db)")
	flags.StringVar(&opts.appName, "app", appName, "application name for config path resolution")
	flags.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev) and the dev log file")

	root.AddCommand(
		newAddCmd(opts),
		newListCmd(opts),
		newJSONCmd(opts),
		newMoveCmd(opts),
		newDeleteCmd(opts),
		newViewCmd(opts),
		newBoardCmd(opts),
		newShowCmd(opts),
		newHistoryCmd(opts),
		newScanCmd(opts),
		newServeCmd(opts),
		newPathsCmd(opts),
		newInitCmd(opts),
	)
	return root
}

// runtimeEnv is the resolved state one command runs against.
type runtimeEnv struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	svc        *app.Service
}

// resolvedPaths holds config/db locations after flag and environment precedence.
type resolvedPaths struct {
	paths        platform.Paths
	configPath   string
	dbPath       string
	dbOverridden bool
}

// resolvePaths applies --config > KANBAN_CONFIG > platform path and
// --db > KANBAN_DB_PATH > config > ./kanban.db.
func resolvePaths(opts *rootOptions) (resolvedPaths, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return resolvedPaths{}, err
	}
	out := resolvedPaths{
		paths:      paths,
		configPath: strings.TrimSpace(opts.configPath),
		dbPath:     strings.TrimSpace(opts.dbPath),
	}
	if out.configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("KANBAN_CONFIG")); envPath != "" {
			out.configPath = envPath
		} else {
			out.configPath = paths.ConfigPath
		}
	}
	out.dbOverridden = out.dbPath != ""
	if !out.dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("KANBAN_DB_PATH")); envPath != "" {
			out.dbPath = envPath
			out.dbOverridden = true
		} else {
			out.dbPath = paths.DBPath
		}
	}
	return out, nil
}

// loadConfig reads the TOML config with the resolved db path applied.
func loadConfig(resolved resolvedPaths) (config.Config, error) {
	cfg, err := config.Load(resolved.configPath, config.Default(resolved.dbPath))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %q: %w", resolved.configPath, err)
	}
	if resolved.dbOverridden {
		cfg.Database.Path = resolved.dbPath
	}
	return cfg, nil
}

// openRuntime resolves config, starts logging, and opens the store.
func openRuntime(cmd *cobra.Command, opts *rootOptions) (*runtimeEnv, error) {
	resolved, err := resolvePaths(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(resolved)
	if err != nil {
		return nil, err
	}

	logger, err := newRuntimeLogger(cmd.ErrOrStderr(), opts.appName, opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.Debug("startup configuration resolved", "app", opts.appName, "dev_mode", opts.devMode, "command", cmd.Name())
	logger.Debug("configuration loaded", "config_path", resolved.configPath, "db_path", cfg.Database.Path, "log_level", cfg.Logging.Level)
	if devPath := logger.DevLogPath(); devPath != "" {
		logger.Debug("dev file logging enabled", "path", devPath)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		_ = logger.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	logger.Debug("sqlite repository ready", "db_path", cfg.Database.Path)

	return &runtimeEnv{
		paths:      resolved.paths,
		configPath: resolved.configPath,
		cfg:        cfg,
		logger:     logger,
		repo:       repo,
		svc:        app.NewService(repo, nil),
	}, nil
}

// Close releases the store and the dev log file.
func (e *runtimeEnv) Close(stderr io.Writer) {
	if e == nil {
		return
	}
	if err := e.repo.Close(); err != nil {
		e.logger.Warn("sqlite close failed", "db_path", e.cfg.Database.Path, "err", err)
	}
	if err := e.logger.Close(); err != nil && e.logger.ConsoleEnabled() {
		_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", err)
	}
}

// withRuntime opens the runtime around one command body and logs its outcome.
func withRuntime(cmd *cobra.Command, opts *rootOptions, body func(*runtimeEnv) error) error {
	env, err := openRuntime(cmd, opts)
	if err != nil {
		return err
	}
	defer env.Close(cmd.ErrOrStderr())

	name := cmd.Name()
	env.logger.Debug("command flow start", "command", name)
	if err := body(env); err != nil {
		env.logger.Debug("command flow failed", "command", name, "err", err)
		return err
	}
	env.logger.Debug("command flow complete", "command", name)
	return nil
}

// parseBoolEnv reads one boolean environment variable.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
