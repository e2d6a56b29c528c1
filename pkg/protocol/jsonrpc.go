package protocol

import (
	"encoding/json"
	"fmt"
)

/**
Model Context Protocol lifecycle as served by podds:
	The client starts us and sends 'initialize':
		{"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"claude-ai","version":"0.1.0"}},"jsonrpc":"2.0","id":0}
	We answer with our name and the fact that we only serve tools:
		{"jsonrpc":"2.0","id":0,"result":{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"podds","version":"1.0.0"}}}
	The client acknowledges with a notification, which gets no reply:
		{"method":"notifications/initialized","jsonrpc":"2.0"}
	Then asks for our tools, and calls them:
		{"method":"tools/list","params":{},"jsonrpc":"2.0","id":1}
		{"method":"tools/call","params":{"name":"podds_predict_match","arguments":{"home":"Arsenal","away":"Chelsea"}},"jsonrpc":"2.0","id":2}
*/

// MethodType defines the JSON-RPC methods we understand
type MethodType string

const (
	MethodInitialize  MethodType = "initialize"
	MethodInitialized MethodType = "initialized"
	MethodPing        MethodType = "ping"
	MethodToolsList   MethodType = "tools/list"
	MethodToolsCall   MethodType = "tools/call"
)

// NotificationPrefix marks methods that never get a response
const NotificationPrefix = "notifications/"

// JsonRpcVersion is the JSON-RPC protocol version
const JsonRpcVersion = "2.0"

// DefaultProtocolVersion is the MCP revision we answer with when the client does not ask for one
const DefaultProtocolVersion = "2024-11-05"

// JsonRpcRequest represents a JSON-RPC 2.0 request object
type JsonRpcRequest struct {
	// MUST be exactly "2.0".
	JsonRPC string `json:"jsonrpc"`

	Method string `json:"method"`

	// This member MAY be omitted.
	Params json.RawMessage `json:"params,omitempty"`

	// A String, Number, or NULL. If it is not included it is assumed to be a notification.
	ID any `json:"id,omitempty"`
}

// JsonRpcResponse represents a JSON-RPC 2.0 response object
type JsonRpcResponse struct {
	JsonRPC string `json:"jsonrpc"`

	// REQUIRED on success, MUST NOT exist on error.
	Result json.RawMessage `json:"result,omitempty"`

	// REQUIRED on error, MUST NOT exist on success.
	Error *JsonRpcError `json:"error,omitempty"`

	// MUST be the same as the id of the request, Null if the id could not be read.
	ID any `json:"id"`
}

// JsonRpcError represents a JSON-RPC 2.0 error object
type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ToolProperty describes one argument of a tool
type ToolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// InputSchema is the JSON schema of a tool's arguments
type InputSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]ToolProperty `json:"properties,omitempty"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// Tool represents a tool that can be invoked by the client
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolsResponse is the result of tools/list
type ToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the params of tools/call
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ContentItem is one block of a tool result
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolCallResult is the result of tools/call
type ToolCallResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// NewTextToolResult wraps the JSON encoding of a tool's output as text content
func NewTextToolResult(result any) (*ToolCallResult, error) {
	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	return &ToolCallResult{Content: []ContentItem{{Type: "text", Text: string(text)}}}, nil
}

// Standard error codes defined by the JSON-RPC 2.0 specification
const (
	// Invalid JSON was received by the server.
	ErrParse = -32700
	// The JSON sent is not a valid Request object.
	ErrInvalidRequest = -32600
	// The method does not exist / is not available.
	ErrMethodNotFound = -32601
	// Invalid method parameter(s).
	ErrInvalidParams = -32602
	// Internal JSON-RPC error.
	ErrInternal = -32603
	// Reserved for implementation-defined server-errors, -32000 to -32099
	ErrToolExecutionFailed = -32000
)

// Error returns a string representation of the error
func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest creates a new JSON-RPC 2.0 request. A nil id makes it a notification
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		if paramsJSON, err = json.Marshal(params); err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
	}
	return &JsonRpcRequest{
		JsonRPC: JsonRpcVersion,
		Method:  method,
		Params:  paramsJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcResponse creates a new JSON-RPC 2.0 success response
func NewJsonRpcResponse(result any, id any) (*JsonRpcResponse, error) {
	var resultJSON json.RawMessage
	if result != nil {
		var err error
		if resultJSON, err = json.Marshal(result); err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Result:  resultJSON,
		ID:      id,
	}, nil
}

// NewJsonRpcErrorResponse creates a new JSON-RPC 2.0 error response
func NewJsonRpcErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error: &JsonRpcError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// ParseJsonRpcRequest parses a JSON-RPC 2.0 request from raw JSON
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, &JsonRpcError{Code: ErrParse, Message: err.Error()}
	}
	if req.JsonRPC != JsonRpcVersion {
		return nil, &JsonRpcError{Code: ErrInvalidRequest, Message: fmt.Sprintf("invalid JSON-RPC version: %s", req.JsonRPC)}
	}
	if req.Method == "" {
		return nil, &JsonRpcError{Code: ErrInvalidRequest, Message: "missing method"}
	}
	return &req, nil
}

// ParseJsonRpcResponse parses a JSON-RPC 2.0 response from raw JSON
func ParseJsonRpcResponse(data []byte) (*JsonRpcResponse, error) {
	var resp JsonRpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.JsonRPC != JsonRpcVersion {
		return nil, fmt.Errorf("invalid JSON-RPC version: %s", resp.JsonRPC)
	}
	return &resp, nil
}

// IsNotification reports whether the request expects no response
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// String returns a JSON string representation of the request
func (r *JsonRpcRequest) String() string {
	bytes, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf("Error marshaling request: %v", err)
	}
	return string(bytes)
}
