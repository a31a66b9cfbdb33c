package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/richard-senior/matchpredict/pkg/protocol"
	"github.com/richard-senior/matchpredict/pkg/tools"
	"github.com/richard-senior/matchpredict/pkg/transport"
)

const (
	Name    = "matchpredict"
	Version = "1.0.0"
)

// Server represents an MCP server
type Server struct {
	transport transport.Transport

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	tools    []protocol.Tool
}

// HandlerFunc is a function that handles an MCP request
type HandlerFunc func(params any) (any, error)

// NewServer creates a server on t exposing the prediction tools of svc.
func NewServer(t transport.Transport, svc predictor.Predictor) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]HandlerFunc),
	}
	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
	s.handlers[string(protocol.MethodToolsCall)] = s.handleToolsCall
	s.handlers[string(protocol.MethodShutdown)] = s.handleShutdown
	s.handlers[string(protocol.MethodCancelRequest)] = s.handleCancelled
	s.handlers[string(protocol.MethodNotifyCancelRequest)] = s.handleCancelled

	if svc != nil {
		s.RegisterTool(tools.PredictMatchTool(), tools.HandlePredictMatch(svc))
		s.RegisterTool(tools.ListTeamsTool(), tools.HandleListTeams(svc))
		s.RegisterTool(tools.ModelInfoTool(), tools.HandleModelInfo(svc))
	}
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Debug("Registered tool:", tool.Name)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Start processes requests until the client disconnects or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	logger.Info("Starting MCP server")

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("MCP server stopping:", ctx.Err())
		return nil
	}
}

// ProcessRequests continuously processes incoming requests. A clean EOF ends the loop without error.
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if errors.Is(err, io.EOF) {
			logger.Info("Client disconnected")
			return nil
		}
		var resp *protocol.JsonRpcResponse
		if err != nil {
			if !errors.Is(err, protocol.ErrInvalidMessage) {
				return err
			}
			logger.Warn("Rejecting malformed request", err)
			resp = protocol.NewJsonRpcErrorResponse(protocol.ErrParse, err.Error(), nil, nil)
		} else {
			resp = s.HandleRequest(req)
		}
		// nil means no response is required
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest processes a request and returns a response, or nil for notifications.
func (s *Server) HandleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Debug(">> ", req.Method)

	if strings.HasPrefix(req.Method, "notifications/") {
		s.mu.RLock()
		handler := s.handlers[req.Method]
		s.mu.RUnlock()
		if handler != nil {
			if _, err := handler(req.Params); err != nil {
				logger.Warn("Notification failed", req.Method, err)
			}
		}
		return nil
	}

	resp := &protocol.JsonRpcResponse{
		JsonRPC: protocol.JsonRpcVersion,
		ID:      req.ID,
	}

	s.mu.RLock()
	handler := s.handlers[req.Method]
	s.mu.RUnlock()
	if handler == nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
		return resp
	}

	result, err := handler(req.Params)
	if err == nil && result == nil {
		return nil
	}
	if err != nil {
		code := protocol.ErrToolExecutionFailed
		if errors.Is(err, tools.ErrInvalidArguments) || errors.Is(err, errUnknownTool) {
			code = protocol.ErrInvalidParams
		}
		resp.Error = &protocol.JsonRpcError{Code: code, Message: err.Error()}
		return resp
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		resp.Error = &protocol.JsonRpcError{
			Code:    protocol.ErrInternal,
			Message: "Failed to marshal result: " + err.Error(),
		}
		return resp
	}
	resp.Result = resultBytes
	return resp
}

func decodeParams(params any, into any) error {
	raw, ok := params.(json.RawMessage)
	if !ok {
		var err error
		if raw, err = json.Marshal(params); err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, into)
}

// handleToolsList handles the tools/list method
func (s *Server) handleToolsList(params any) (any, error) {
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

// handleInitialize handles the initialize method
func (s *Server) handleInitialize(params any) (any, error) {
	var init struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := decodeParams(params, &init); err != nil {
		logger.Warn("Failed to parse initialize params", err)
	}
	version := protocol.MCPProtocolVersion
	if init.ProtocolVersion != "" {
		version = init.ProtocolVersion
	}

	capabilities := map[string]any{}
	if len(s.GetTools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}
	logger.Info("Initialize with protocol version", version)

	return protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      protocol.ServerInfo{Name: Name, Version: Version},
		Instructions:    "Predicts football match results. Call list_teams for valid names, then predict_match.",
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(params any) (any, error) {
	return nil, nil
}

func (s *Server) handlePing(params any) (any, error) {
	return struct{}{}, nil
}

// shutdown is acknowledged; the process ends when the client closes stdin.
func (s *Server) handleShutdown(params any) (any, error) {
	logger.Info("Client requested shutdown")
	return struct{}{}, nil
}

// Tool calls are answered synchronously, so by the time a cancellation arrives there is
// nothing left to stop.
func (s *Server) handleCancelled(params any) (any, error) {
	var cancel struct {
		RequestID any    `json:"requestId"`
		ID        any    `json:"id"`
		Reason    string `json:"reason"`
	}
	if err := decodeParams(params, &cancel); err != nil {
		logger.Debug("Ignoring malformed cancellation", err)
		return nil, nil
	}
	id := cancel.RequestID
	if id == nil {
		id = cancel.ID
	}
	logger.Debug("Cancellation for completed request", id, cancel.Reason)
	return nil, nil
}

var errUnknownTool = errors.New("tool not found")

func (s *Server) handleToolsCall(params any) (any, error) {
	var call protocol.ToolCallParams
	if err := decodeParams(params, &call); err != nil {
		return nil, fmt.Errorf("%w: invalid tools/call parameters: %v", tools.ErrInvalidArguments, err)
	}
	logger.Info("Tool call requested for:", call.Name)

	s.mu.RLock()
	handler := s.handlers[call.Name]
	s.mu.RUnlock()
	if handler == nil || !s.isTool(call.Name) {
		return nil, fmt.Errorf("%w: %s", errUnknownTool, call.Name)
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result, err := handler(args)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %w", err)
	}
	return result, nil
}

func (s *Server) isTool(name string) bool {
	for _, t := range s.GetTools() {
		if t.Name == name {
			return true
		}
	}
	return false
}
