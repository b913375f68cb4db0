// Package mcp exposes a workbench as a Model Context Protocol server: tools
// to run commands against it and resources describing the current space.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/internal/dto"
	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resource URIs.
const (
	WorkspaceURI = "dynamo://workspace"
	DocumentURI  = "dynamo://workspace/document"
)

// Server wraps a workbench owner as an MCP server.
type Server struct {
	owner     *commands.Owner
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates an MCP server. owner must be running.
func NewServer(owner *commands.Owner, opts ...Option) *Server {
	s := &Server{
		owner:     owner,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("dynamo-mcp", dynamo.Version),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the protocol over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_commands",
		mcp.WithDescription("List the workbench commands."),
	), s.handleListCommands)

	s.mcpServer.AddTool(mcp.NewTool("execute_command",
		mcp.WithDescription("Execute a workbench command such as CreateNode, CreateConnection, SetValue or Save."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name")),
		mcp.WithObject("params", mcp.Description("Command parameters, e.g. {\"kind\": \"Number\", \"x\": 10}")),
	), s.handleExecute)

	s.mcpServer.AddTool(mcp.NewTool("run",
		mcp.WithDescription("Evaluate every dirty node of the Home workspace."),
		mcp.WithBoolean("debug", mcp.Description("Record a trace of every evaluation")),
	), s.handleRun)

	s.mcpServer.AddTool(mcp.NewTool("get_workspace",
		mcp.WithDescription("Get the current workspace with node values and states."),
	), s.handleGetWorkspace)
}

func (s *Server) handleListCommands(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.owner.Commands().Names())
}

func (s *Server) handleExecute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, _ := args["name"].(string)
	if name == "" {
		return mcp.NewToolResultError("missing command name"), nil
	}
	params := commands.Params{}
	switch p := args["params"].(type) {
	case nil:
	case map[string]any:
		params = p
	case string:
		if err := json.Unmarshal([]byte(p), &params); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("params must be a JSON object: %v", err)), nil
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("params must be an object, got %T", p)), nil
	}
	return s.execute(ctx, name, params)
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	debug, _ := request.GetArguments()["debug"].(bool)
	return s.execute(ctx, commands.RunExpression, commands.Params{"debug": debug})
}

func (s *Server) execute(ctx context.Context, name string, params commands.Params) (*mcp.CallToolResult, error) {
	var view any
	res, err := s.owner.Execute(ctx, name, params)
	if err == nil {
		err = s.owner.Do(ctx, func() error {
			view = dto.Result(res)
			return nil
		})
	}
	if err != nil {
		if errors.Is(err, commands.ErrOwnerStopped) {
			return nil, err
		}
		s.logger.Warn("MCP command failed", "command", name, "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(view)
}

func (s *Server) handleGetWorkspace(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(view)
}

func (s *Server) workspace(ctx context.Context) (dto.Workspace, error) {
	var view dto.Workspace
	err := s.owner.Do(ctx, func() error {
		view = dto.FromGraph(s.owner.Commands().Workbench().CurrentSpace())
		return nil
	})
	return view, err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkspaceURI, "Current Workspace",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		view, err := s.workspace(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(view)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: WorkspaceURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(DocumentURI, "Current Workspace Document",
		mcp.WithMIMEType("application/xml"),
	), func(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var data []byte
		if err := s.owner.Do(ctx, func() error {
			var err error
			data, err = format.Marshal(format.Snapshot(s.owner.Commands().Workbench().CurrentSpace()))
			return err
		}); err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: DocumentURI, MIMEType: "application/xml", Text: string(data)},
		}, nil
	})
}
