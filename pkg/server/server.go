package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/tools"
	"github.com/richard-senior/podds/pkg/transport"
)

// Name and Version are reported to MCP clients on initialize
const (
	Name    = "podds"
	Version = "1.0.0"
)

// Server answers MCP requests from a transport
type Server struct {
	transport transport.Transport
	handlers  map[string]HandlerFunc
	tools     []protocol.Tool
	mu        sync.RWMutex
}

// HandlerFunc is a function that handles an MCP request
type HandlerFunc func(params any) (any, error)

// NewServer creates a server with the podds tools registered
func NewServer(t transport.Transport, pt *tools.PoddsTools) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]HandlerFunc),
	}
	s.RegisterDefaultTools(pt)
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// RegisterDefaultTools registers the prediction tools and the protocol methods
func (s *Server) RegisterDefaultTools(pt *tools.PoddsTools) {
	logger.Info("Registering default tools...")

	if pt != nil {
		s.RegisterTool(tools.ListTeamsTool(), pt.HandleListTeams)
		s.RegisterTool(tools.PredictMatchTool(), pt.HandlePredictMatch)
		s.RegisterTool(tools.ValueBetsTool(), pt.HandleValueBets)
	}

	s.handlers[string(protocol.MethodInitialize)] = s.handleInitialize
	s.handlers[string(protocol.MethodInitialized)] = s.handleInitialized
	s.handlers[string(protocol.MethodPing)] = s.handlePing
	s.handlers[string(protocol.MethodToolsList)] = s.handleToolsList
}

// Start processes requests until the client disconnects or the process is signalled
func (s *Server) Start() error {
	logger.Info("Starting MCP server")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.ProcessRequests()
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
		return nil
	}
}

// ProcessRequests reads and answers requests until EOF.
// Malformed requests are answered with an error and do not stop the loop
func (s *Server) ProcessRequests() error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("Client disconnected")
				return nil
			}
			var rpcErr *protocol.JsonRpcError
			if errors.As(err, &rpcErr) {
				logger.Warn("Rejected request:", rpcErr.Message)
				if err := s.transport.WriteResponse(protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, nil)); err != nil {
					return err
				}
				continue
			}
			return err
		}

		// nil means no response is required
		resp := s.HandleRequest(req)
		if resp == nil {
			continue
		}
		if err := s.transport.WriteResponse(resp); err != nil {
			return err
		}
	}
}

// HandleRequest processes a request and returns a response, or nil for notifications
func (s *Server) HandleRequest(req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Full request:", req.String())

	if strings.HasPrefix(req.Method, protocol.NotificationPrefix) || req.IsNotification() {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	var result any
	var err error
	if req.Method == string(protocol.MethodToolsCall) {
		result, err = s.handleToolsCall(req.Params)
	} else {
		s.mu.RLock()
		handler := s.handlers[req.Method]
		s.mu.RUnlock()
		if handler == nil {
			return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
		}
		var params any
		if len(req.Params) > 0 {
			var decoded map[string]any
			if err := json.Unmarshal(req.Params, &decoded); err != nil {
				return protocol.NewJsonRpcErrorResponse(protocol.ErrInvalidParams, "Invalid parameters: "+err.Error(), nil, req.ID)
			}
			params = decoded
		}
		result, err = handler(params)
	}

	if err != nil {
		return errorResponse(err, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, err.Error(), nil, req.ID)
	}
	logger.Debug("Full response:", string(resp.Result))
	return resp
}

// errorResponse maps rejected requests to invalid params and everything else to a tool failure
func errorResponse(err error, id any) *protocol.JsonRpcResponse {
	var rpcErr *protocol.JsonRpcError
	switch {
	case errors.As(err, &rpcErr):
		return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, id)
	case podds.IsRequestError(err):
		logger.Warn("Rejected request:", err)
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInvalidParams, err.Error(), nil, id)
	default:
		logger.Error("Request failed:", err)
		return protocol.NewJsonRpcErrorResponse(protocol.ErrToolExecutionFailed, err.Error(), nil, id)
	}
}

func (s *Server) handleToolsCall(raw json.RawMessage) (any, error) {
	var call protocol.ToolCallParams
	if len(raw) == 0 {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "tools/call requires params"}
	}
	if err := json.Unmarshal(raw, &call); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}
	logger.Info("Tool call requested for:", call.Name)

	s.mu.RLock()
	handler := s.handlers[call.Name]
	s.mu.RUnlock()
	if handler == nil || !s.isTool(call.Name) {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: fmt.Sprintf("tool not found: %s", call.Name)}
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	result, err := handler(args)
	if err != nil {
		return nil, err
	}
	return protocol.NewTextToolResult(result)
}

func (s *Server) isTool(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

func (s *Server) handleToolsList(params any) (any, error) {
	logger.Info("Handling tools/list request")
	return protocol.ToolsResponse{Tools: s.GetTools()}, nil
}

func (s *Server) handlePing(params any) (any, error) {
	return map[string]any{}, nil
}

// handleInitialize echoes the client's protocol version and advertises tools
func (s *Server) handleInitialize(params any) (any, error) {
	version := protocol.DefaultProtocolVersion
	if paramsMap, ok := params.(map[string]any); ok {
		if v, ok := paramsMap["protocolVersion"].(string); ok && v != "" {
			version = v
		}
	}
	logger.Info("Handling initialize request with", len(s.GetTools()), "tools, protocol", version)

	type serverInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	return struct {
		ProtocolVersion string         `json:"protocolVersion"`
		Capabilities    map[string]any `json:"capabilities"`
		ServerInfo      serverInfo     `json:"serverInfo"`
	}{
		ProtocolVersion: version,
		Capabilities:    map[string]any{"tools": map[string]any{}},
		ServerInfo:      serverInfo{Name: Name, Version: Version},
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(params any) (any, error) {
	logger.Info("Handling initialized notification")
	return nil, nil
}
