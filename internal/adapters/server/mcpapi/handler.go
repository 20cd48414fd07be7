// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/kanban/internal/adapters/server/common"
	"github.com/evanschultz/kanban/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter exposing the task tools.
func NewHandler(cfg Config, tasks common.TaskService) (*Handler, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerTaskTools(mcpSrv, tasks)

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "kanban"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	if !strings.HasPrefix(cfg.EndpointPath, "/") {
		cfg.EndpointPath = "/" + cfg.EndpointPath
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// laneNames returns the accepted status values for tool schemas.
func laneNames() []string {
	lanes := domain.Lanes()
	out := make([]string, 0, len(lanes))
	for _, lane := range lanes {
		out = append(out, string(lane))
	}
	return out
}

// registerTaskTools registers the task, board, and history tools.
func registerTaskTools(srv *mcpserver.MCPServer, tasks common.TaskService) {
	srv.AddTool(
		mcp.NewTool(
			"kanban.list_tasks",
			mcp.WithDescription("List tasks in creation order, optionally limited to one lane."),
			mcp.WithString("status", mcp.Description("Lane filter"), mcp.Enum(laneNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			rows, err := tasks.ListTasks(ctx, common.ListTasksRequest{
				Status: req.GetString("status", ""),
			})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"tasks": rows,
			})
			if err != nil {
				return nil, fmt.Errorf("encode list_tasks result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanban.add_task",
			mcp.WithDescription("Create one task in the todo lane."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
			mcp.WithString("description", mcp.Description("Optional task description")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			title, err := req.RequireString("title")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			in := common.CreateTaskRequest{Title: title}
			if desc := req.GetString("description", ""); desc != "" {
				in.Description = &desc
			}
			task, err := tasks.CreateTask(ctx, in)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(task)
			if err != nil {
				return nil, fmt.Errorf("encode add_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanban.move_task",
			mcp.WithDescription("Move one task to another lane."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
			mcp.WithString("status", mcp.Required(), mcp.Description("Target lane"), mcp.Enum(laneNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			status, err := req.RequireString("status")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			moved, err := tasks.MoveTask(ctx, common.MoveTaskRequest{ID: int64(id), Status: status})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(moved)
			if err != nil {
				return nil, fmt.Errorf("encode move_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanban.delete_task",
			mcp.WithDescription("Delete one task by id."),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id, err := req.RequireInt("id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			deleted, err := tasks.DeleteTask(ctx, int64(id))
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(deleted)
			if err != nil {
				return nil, fmt.Errorf("encode delete_task result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanban.board",
			mcp.WithDescription("Return the three-lane board snapshot."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			board, err := tasks.Board(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(board)
			if err != nil {
				return nil, fmt.Errorf("encode board result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"kanban.history",
			mcp.WithDescription("List recent create, move, and delete events, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum events to return (default 25)")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			events, err := tasks.History(ctx, common.HistoryRequest{Limit: req.GetInt("limit", 25)})
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(map[string]any{
				"events": events,
			})
			if err != nil {
				return nil, fmt.Errorf("encode history result: %w", err)
			}
			return result, nil
		},
	)
}

// toolResultFromError maps service errors into MCP-visible tool errors.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrServiceUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
