package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/evanschultz/kanban/internal/adapters/server"
	"github.com/evanschultz/kanban/internal/adapters/server/common"
	"github.com/evanschultz/kanban/internal/app"
	"github.com/evanschultz/kanban/internal/board"
	"github.com/evanschultz/kanban/internal/config"
	"github.com/evanschultz/kanban/internal/domain"
	"github.com/evanschultz/kanban/internal/render"
	"github.com/evanschultz/kanban/internal/scanner"
	"github.com/evanschultz/kanban/internal/tui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// defaultRenderWidth is used when the output width is unknown.
const defaultRenderWidth = 96

// taskNotFoundError reports a command that targeted a missing task id.
type taskNotFoundError struct {
	ID int64
}

func (e *taskNotFoundError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

func (e *taskNotFoundError) Unwrap() error {
	return app.ErrNotFound
}

// parseTaskID parses one positional task id.
func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q: %w", raw, domain.ErrInvalidID)
	}
	return id, nil
}

// executeAdd creates one todo task and prints its confirmation line.
func executeAdd(ctx context.Context, svc *app.Service, title string, desc *string, w io.Writer) error {
	task, err := svc.CreateTask(ctx, app.CreateTaskInput{Title: title, Description: desc})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Added task: %s (#%d)\n", task.Title, task.ID)
	return err
}

// executeList prints one line per task, optionally limited to one lane.
func executeList(ctx context.Context, svc *app.Service, rawStatus string, w io.Writer) error {
	var (
		tasks []domain.Task
		err   error
	)
	if strings.TrimSpace(rawStatus) == "" {
		tasks, err = svc.ListTasks(ctx)
	} else {
		status, parseErr := domain.ParseStatus(rawStatus)
		if parseErr != nil {
			return parseErr
		}
		tasks, err = svc.ListTasksByStatus(ctx, status)
	}
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks found.")
		return err
	}
	for _, task := range tasks {
		if _, err := fmt.Fprintf(w, "ID: %d | [%s] %s\n", task.ID, strings.ToUpper(string(task.Status)), task.Title); err != nil {
			return err
		}
	}
	return nil
}

// executeJSON writes every task as one JSON array.
func executeJSON(ctx context.Context, svc *app.Service, w io.Writer) error {
	records, err := svc.ExportTasks(ctx)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(records); err != nil {
		return fmt.Errorf("encode tasks json: %w", err)
	}
	return nil
}

// executeMove validates the lane before touching the store, then moves one task.
func executeMove(ctx context.Context, svc *app.Service, id int64, rawStatus string, w io.Writer) error {
	status, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return err
	}
	result, err := svc.UpdateTaskStatus(ctx, id, status)
	if err != nil {
		return err
	}
	if !result.Found() {
		return &taskNotFoundError{ID: id}
	}
	_, err = fmt.Fprintf(w, "Moved task %d to %s\n", id, status)
	return err
}

// executeDelete removes one task.
func executeDelete(ctx context.Context, svc *app.Service, id int64, w io.Writer) error {
	result, err := svc.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !result.Found() {
		return &taskNotFoundError{ID: id}
	}
	_, err = fmt.Fprintf(w, "Deleted task %d\n", id)
	return err
}

// executeBoard prints the static three-lane board.
func executeBoard(ctx context.Context, svc *app.Service, opts render.Options, w io.Writer) error {
	projection, err := svc.Board(ctx)
	if err != nil {
		return err
	}
	_, err = lipgloss.Fprintln(w, render.Static(projection, opts))
	return err
}

// executeShow prints one task with its description rendered as markdown.
func executeShow(ctx context.Context, svc *app.Service, id int64, width int, markdown *render.Markdown, w io.Writer) error {
	task, err := svc.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, app.ErrNotFound) {
			return &taskNotFoundError{ID: id}
		}
		return err
	}
	var out strings.Builder
	fmt.Fprintf(&out, "%s\n", render.CardTitle(task))
	fmt.Fprintf(&out, "status:  %s\n", task.Status)
	fmt.Fprintf(&out, "created: %s\n", task.CreatedAt.UTC().Format(time.RFC3339))
	if task.HasDescription() {
		fmt.Fprintf(&out, "\n%s\n", markdown.Render(task.DescriptionText(), width))
	} else {
		out.WriteString("\n(no description)\n")
	}
	_, err = io.WriteString(w, out.String())
	return err
}

// executeHistory prints the newest activity entries.
func executeHistory(ctx context.Context, svc *app.Service, limit int, w io.Writer) error {
	events, err := svc.ListChangeEvents(ctx, limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No activity recorded.")
		return err
	}
	for _, event := range events {
		if _, err := fmt.Fprintf(w, "%s  %-6s  #%d  %s\n",
			event.OccurredAt.UTC().Format(time.RFC3339),
			event.Operation,
			event.TaskID,
			describeEvent(event),
		); err != nil {
			return err
		}
	}
	return nil
}

// describeEvent summarizes one activity entry's metadata.
func describeEvent(event domain.ChangeEvent) string {
	switch event.Operation {
	case domain.ChangeOperationMove:
		return fmt.Sprintf("%s -> %s", event.Metadata["from_status"], event.Metadata["to_status"])
	default:
		return fmt.Sprintf("%s [%s]", event.Metadata["title"], event.Metadata["status"])
	}
}

// scanFormats lists the accepted scan output formats.
var scanFormats = []string{"text", "json", "yaml"}

// executeScan walks root for markers, prints them, and optionally imports them as tasks.
func executeScan(ctx context.Context, svc *app.Service, root string, opts scanner.Options, format string, importTasks bool, w io.Writer) error {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported scan format %q: must be one of %s", format, strings.Join(scanFormats, ", "))
	}

	markers, err := scanner.Scan(ctx, root, opts)
	if err != nil {
		return err
	}
	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(markers); err != nil {
			return fmt.Errorf("encode markers json: %w", err)
		}
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(markers); err != nil {
			return fmt.Errorf("encode markers yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encode markers yaml: %w", err)
		}
	default:
		if len(markers) == 0 {
			if _, err := fmt.Fprintln(w, "No markers found."); err != nil {
				return err
			}
		}
		for _, marker := range markers {
			if _, err := fmt.Fprintf(w, "[%s] %s:%d %s\n", strings.ToUpper(string(marker.Status)), marker.SourceFile, marker.LineNumber, marker.Title); err != nil {
				return err
			}
		}
	}

	if !importTasks {
		return nil
	}
	created, err := scanner.Import(ctx, svc, markers)
	if err != nil {
		return err
	}
	if format == "" || format == "text" {
		_, err = fmt.Fprintf(w, "Imported %d tasks\n", len(created))
	}
	return err
}

// scanOptions maps the [scan] config section onto scanner options.
func scanOptions(cfg config.ScanConfig) scanner.Options {
	opts := scanner.DefaultOptions()
	if len(cfg.Extensions) > 0 {
		opts.Extensions = append([]string(nil), cfg.Extensions...)
	}
	if len(cfg.IgnoreDirs) > 0 {
		opts.IgnoreDirs = append([]string(nil), cfg.IgnoreDirs...)
	}
	if cfg.MaxFileBytes > 0 {
		opts.MaxFileBytes = cfg.MaxFileBytes
	}
	return opts
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// markdownFor picks a glamour style that suits the output writer.
func markdownFor(w io.Writer) *render.Markdown {
	if isTerminal(w) {
		return &render.Markdown{Style: "dark"}
	}
	return &render.Markdown{Style: "notty"}
}

// newBoardModel builds the interactive board bound to the runtime service and config.
func newBoardModel(env *runtimeEnv) tui.Model {
	return tui.NewModel(
		env.svc,
		tui.WithBoardConfig(tui.BoardConfig{
			ShowDescriptions:        env.cfg.Board.ShowDescriptions,
			ConfirmQuitWhileGrabbed: env.cfg.Board.ConfirmQuitWhileGrabbed,
		}),
		tui.WithKeyConfig(tui.KeyConfig{
			Grab:   env.cfg.Keys.Grab,
			Filter: env.cfg.Keys.Filter,
			Reload: env.cfg.Keys.Reload,
		}),
		tui.WithMoveObserver(func(effect board.Effect, err error) {
			if err != nil {
				env.logger.Warn("board move rolled back", "task_id", effect.TaskID, "from", effect.From, "to", effect.To, "err", err)
				return
			}
			env.logger.Info("board move persisted", "task_id", effect.TaskID, "from", effect.From, "to", effect.To)
		}),
	)
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var desc string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the todo lane",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				var descPtr *string
				if cmd.Flags().Changed("desc") {
					descPtr = &desc
				}
				return executeAdd(cmd.Context(), env.svc, args[0], descPtr, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "task description")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				return executeList(cmd.Context(), env.svc, status, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only list one lane (todo, doing, done)")
	return cmd
}

func newJSONCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "json",
		Short: "Print every task as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				return executeJSON(cmd.Context(), env.svc, cmd.OutOrStdout())
			})
		},
	}
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to todo, doing, or done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				return executeMove(cmd.Context(), env.svc, id, args[1], cmd.OutOrStdout())
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				return executeDelete(cmd.Context(), env.svc, id, cmd.OutOrStdout())
			})
		},
	}
}

func newViewCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the interactive board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				// The board never polls; --watch is accepted for compatibility only.
				env.logger.Debug("starting tui program loop", "watch", watch)
				env.logger.SetConsoleEnabled(false)
				defer env.logger.SetConsoleEnabled(true)
				if _, err := programFactory(newBoardModel(env)).Run(); err != nil {
					env.logger.Error("tui program terminated with error", "err", err)
					return fmt.Errorf("run tui program: %w", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "accepted for compatibility; the board does not auto-refresh")
	return cmd
}

func newBoardCmd(opts *rootOptions) *cobra.Command {
	var (
		width            int
		showDescriptions bool
	)
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Print a static render of the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				show := env.cfg.Board.ShowDescriptions
				if cmd.Flags().Changed("descriptions") {
					show = showDescriptions
				}
				return executeBoard(cmd.Context(), env.svc, render.Options{
					Width:            width,
					ShowDescriptions: show,
				}, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", defaultRenderWidth, "total render width in columns")
	cmd.Flags().BoolVar(&showDescriptions, "descriptions", true, "show task descriptions under titles")
	return cmd
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task with its rendered description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				out := cmd.OutOrStdout()
				return executeShow(cmd.Context(), env.svc, id, width, markdownFor(out), out)
			})
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "wrap width for the description")
	return cmd
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent task activity, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				return executeHistory(cmd.Context(), env.svc, limit, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to print")
	return cmd
}

func newScanCmd(opts *rootOptions) *cobra.Command {
	var (
		format      string
		importTasks bool
	)
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Find TODO, REVIEW, and DRAFT markers in a source tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			if !importTasks {
				// A read-only scan never creates the store file.
				resolved, err := resolvePaths(opts)
				if err != nil {
					return err
				}
				cfg, err := loadConfig(resolved)
				if err != nil {
					return err
				}
				return executeScan(cmd.Context(), nil, root, scanOptions(cfg.Scan), format, false, cmd.OutOrStdout())
			}
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				env.logger.Debug("scanning for markers", "root", root, "import", importTasks)
				return executeScan(cmd.Context(), env.svc, root, scanOptions(env.cfg.Scan), format, importTasks, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json, or yaml")
	cmd.Flags().BoolVar(&importTasks, "import", false, "create a task for every marker found")
	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API and MCP tools on localhost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, opts, func(env *runtimeEnv) error {
				cfg := server.Config{
					HTTPBind:      env.cfg.Server.HTTPBind,
					APIEndpoint:   env.cfg.Server.APIEndpoint,
					MCPEndpoint:   env.cfg.Server.MCPEndpoint,
					ServerName:    opts.appName,
					ServerVersion: version,
				}
				if strings.TrimSpace(bind) != "" {
					cfg.HTTPBind = bind
				}
				env.logger.Info("serving", "bind", cfg.HTTPBind, "api", cfg.APIEndpoint, "mcp", cfg.MCPEndpoint, "db_path", env.cfg.Database.Path)
				err := server.Run(cmd.Context(), cfg, server.Dependencies{
					Tasks: common.NewAppServiceAdapter(env.svc),
				})
				if err != nil {
					env.logger.Error("server stopped with error", "err", err)
					return err
				}
				env.logger.Info("server stopped")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "override the listen address from config")
	return cmd
}

func newPathsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and database paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(resolved)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(w, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(w, "config: %s\n", resolved.configPath)
			_, _ = fmt.Fprintf(w, "work_dir: %s\n", resolved.paths.WorkDir)
			_, err = fmt.Fprintf(w, "db: %s\n", cfg.Database.Path)
			return err
		},
	}
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resolved, err := resolvePaths(opts)
			if err != nil {
				return err
			}
			written, err := config.WriteDefault(resolved.configPath, config.Default(""))
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if !written {
				_, err = fmt.Fprintf(w, "Config already exists at %s\n", resolved.configPath)
				return err
			}
			_, err = fmt.Fprintf(w, "Wrote config to %s\n", resolved.configPath)
			return err
		},
	}
}
