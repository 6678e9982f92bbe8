package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"jarvis/internal/logging"
	"jarvis/internal/tools"
)

// maxMessageBytes bounds a single JSON-RPC line.
const maxMessageBytes = 4 * 1024 * 1024

// Server answers MCP requests from a line-delimited JSON-RPC stream.
type Server struct {
	registry     *tools.Registry
	info         ServerInfo
	instructions string
	concurrency  int

	writeMu sync.Mutex
	out     io.Writer

	initialized atomic.Bool
	calls       atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithServerInfo overrides the name and version reported by initialize.
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		if name != "" {
			s.info.Name = name
		}
		if version != "" {
			s.info.Version = version
		}
	}
}

// WithInstructions sets the instructions string returned by initialize.
func WithInstructions(text string) Option {
	return func(s *Server) { s.instructions = text }
}

// WithConcurrency bounds how many requests are handled at once.
// Responses may be written out of order when n > 1.
func WithConcurrency(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewServer creates a server exposing every tool in registry.
func NewServer(registry *tools.Registry, opts ...Option) *Server {
	s := &Server{
		registry:    registry,
		info:        ServerInfo{Name: "jarvis", Version: "dev"},
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calls returns how many tools/call requests have been handled.
func (s *Server) Calls() int64 {
	return s.calls.Load()
}

// Serve reads requests from in and writes responses to out until in reaches
// EOF or ctx is canceled. In-flight requests finish before Serve returns.
// A read blocked on in is abandoned on cancellation; closing in releases it.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.out = out
	logging.MCP("MCP server started: %d tools", s.registry.Count())

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), maxMessageBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			logging.MCP("MCP server stopped: %v", ctx.Err())
			return ctx.Err()

		case line, ok := <-lines:
			if !ok {
				_ = g.Wait()
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					return fmt.Errorf("failed to read request: %w", err)
				}
				logging.MCP("MCP server stopped: input closed")
				return nil
			}
			g.Go(func() error {
				s.handleLine(gctx, line)
				return nil
			})
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) {
	var req mcpRequest
	if err := json.Unmarshal(line, &req); err != nil {
		logging.MCPWarn("Unparseable request: %v", err)
		s.writeError(nil, codeParseError, "parse error", err.Error())
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		if !req.isNotification() {
			s.writeError(req.ID, codeInvalidRequest, "invalid request", nil)
		}
		return
	}

	logging.MCPDebug("Request: method=%s id=%s", req.Method, string(req.ID))
	result, rpcErr := s.dispatch(ctx, &req)
	if req.isNotification() {
		return
	}
	if rpcErr != nil {
		s.write(mcpResponse{JSONRPC: "2.0", ID: req.ID, Error: rpcErr})
		return
	}
	s.write(mcpResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func (s *Server) dispatch(ctx context.Context, req *mcpRequest) (any, *mcpError) {
	switch req.Method {
	case "initialize":
		return InitializeResult{
			ProtocolVersion: ProtocolVersion,
			Capabilities:    Capabilities{Tools: &ToolsCapability{}},
			ServerInfo:      s.info,
			Instructions:    s.instructions,
		}, nil

	case "notifications/initialized", "initialized":
		s.initialized.Store(true)
		return nil, nil

	case "ping":
		return struct{}{}, nil

	case "tools/list":
		return s.listTools(), nil

	case "tools/call":
		return s.callTool(ctx, req.Params)

	default:
		if req.isNotification() {
			return nil, nil
		}
		return nil, &mcpError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
}

func (s *Server) listTools() ListToolsResult {
	all := s.registry.All()
	out := ListToolsResult{Tools: make([]ToolSchema, 0, len(all))}
	for _, t := range all {
		out.Tools = append(out.Tools, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Schema.JSONSchema(),
		})
	}
	return out
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (any, *mcpError) {
	var params CallToolParams
	if len(raw) == 0 {
		return nil, &mcpError{Code: codeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, &mcpError{Code: codeInvalidParams, Message: "invalid params", Data: err.Error()}
	}
	if params.Name == "" {
		return nil, &mcpError{Code: codeInvalidParams, Message: "missing tool name"}
	}

	s.calls.Add(1)
	res, err := s.registry.Execute(ctx, params.Name, params.Arguments)
	switch {
	case errors.Is(err, tools.ErrToolNotFound):
		return nil, &mcpError{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, tools.ErrMissingRequiredArg), errors.Is(err, tools.ErrInvalidArgType):
		return nil, &mcpError{Code: codeInvalidParams, Message: err.Error()}
	case err != nil:
		logging.MCPWarn("Tool %s failed: %v", params.Name, err)
		return CallToolResult{Content: []Content{{Type: "text", Text: err.Error()}}, IsError: true}, nil
	}

	logging.MCPDebug("Tool %s completed in %v", params.Name, res.Duration)
	return CallToolResult{Content: []Content{{Type: "text", Text: res.Result}}}, nil
}

func (s *Server) writeError(id json.RawMessage, code int, msg string, data any) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	s.write(mcpResponse{JSONRPC: "2.0", ID: id, Error: &mcpError{Code: code, Message: msg, Data: data}})
}

func (s *Server) write(resp mcpResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		logging.MCPWarn("Failed to marshal response: %v", err)
		data, _ = json.Marshal(mcpResponse{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &mcpError{Code: codeInternalError, Message: "internal error"},
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		logging.MCPWarn("Failed to write response: %v", err)
	}
}
