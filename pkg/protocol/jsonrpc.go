package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

/**
https://modelcontextprotocol.info/specification/draft/basic/lifecycle/
Flow:
	The client starts the server from its config and sends 'initialize':
	  {"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"client","version":"0.1.0"}},"jsonrpc":"2.0","id":0}
	We answer with our capabilities, a tools server named 'matchpredict':
	  {"jsonrpc":"2.0","id":0,"result":{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"matchpredict","version":"1.0.0"}}}
	The client acknowledges with the 'notifications/initialized' notification (no id, no reply),
	then asks 'tools/list' and calls tools with 'tools/call':
	  {"method":"tools/call","params":{"name":"predict_match","arguments":{"home":"Arsenal","away":"Chelsea"}},"jsonrpc":"2.0","id":2}
*/

// MethodType defines the possible JSON-RPC method types
type MethodType string

const (
	MethodInitialize          MethodType = "initialize"
	MethodInitialized         MethodType = "initialized"
	MethodNotifyInitialized   MethodType = "notifications/initialized"
	MethodPing                MethodType = "ping"
	MethodToolsList           MethodType = "tools/list"
	MethodToolsCall           MethodType = "tools/call"
	MethodShutdown            MethodType = "shutdown"
	MethodCancelRequest       MethodType = "$/cancelRequest"
	MethodNotifyCancelRequest MethodType = "notifications/cancelled"
)

// Version is the JSON-RPC protocol version
const JsonRpcVersion = "2.0"

// MCPProtocolVersion is the Model Context Protocol revision spoken by the server.
const MCPProtocolVersion = "2024-11-05"

// Request represents a JSON-RPC 2.0 request object
type JsonRpcRequest struct {
	// A String specifying the version of the JSON-RPC protocol. MUST be exactly "2.0".
	JsonRPC string `json:"jsonrpc"`

	// A String containing the name of the method to be invoked.
	Method string `json:"method"`

	// A Structured value that holds the parameter values to be used during the invocation of the method.
	// This member MAY be omitted.
	Params json.RawMessage `json:"params,omitempty"`

	// An identifier established by the Client that MUST contain a String, Number, or NULL value if included.
	// If it is not included it is assumed to be a notification.
	ID any `json:"id,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// Response represents a JSON-RPC 2.0 response object
type JsonRpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError   `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// Error represents a JSON-RPC 2.0 error object
type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type ToolProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

type InputSchema struct {
	Type                 string                  `json:"type"`
	Properties           map[string]ToolProperty `json:"properties,omitempty"`
	Required             []string                `json:"required"`
	AdditionalProperties bool                    `json:"additionalProperties"`
}

// Tool describes a callable tool in a tools/list response.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// ToolsResponse represents the response to a tools discovery request
type ToolsResponse struct {
	Tools []Tool `json:"tools"`
}

// ToolCallParams are the params of a tools/call request.
type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the result of a tools/call request. IsError marks failures the caller should see
// as the tool's answer rather than as a protocol error.
type ToolResult struct {
	Content           []Content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
	IsError           bool      `json:"isError,omitempty"`
}

// TextResult builds a single text block result.
func TextResult(text string, structured any) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}, StructuredContent: structured}
}

// ErrorResult builds a tool result flagged as an error.
func ErrorResult(text string) ToolResult {
	return ToolResult{Content: []Content{{Type: "text", Text: text}}, IsError: true}
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      ServerInfo     `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

// Standard error codes defined by the JSON-RPC 2.0 specification
const (
	// Parse error: Invalid JSON was received by the server.
	ErrParse = -32700

	// Invalid Request: The JSON sent is not a valid Request object.
	ErrInvalidRequest = -32600

	// Method not found: The method does not exist / is not available.
	ErrMethodNotFound = -32601

	// Invalid params: Invalid method parameter(s).
	ErrInvalidParams = -32602

	// Internal error: Internal JSON-RPC error.
	ErrInternal = -32603

	// Tool execution failed
	ErrToolExecutionFailed = -32000
)

// Error returns a string representation of the error
func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// NewJsonRpcRequest creates a new JSON-RPC 2.0 request
func NewJsonRpcRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	var paramsJSON json.RawMessage
	if params != nil {
		var err error
		if paramsJSON, err = json.Marshal(params); err != nil {
			return nil, err
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
			return nil, err
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

// ErrInvalidMessage wraps every failure to parse an incoming request.
var ErrInvalidMessage = errors.New("invalid JSON-RPC message")

// ParseJsonRpcRequest parses a JSON-RPC 2.0 request from raw JSON
func ParseJsonRpcRequest(data []byte) (*JsonRpcRequest, error) {
	var req JsonRpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if req.JsonRPC != JsonRpcVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidMessage, req.JsonRPC)
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

// String returns a JSON string representation of the request
func (r *JsonRpcRequest) String() string {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling request: %v", err)
	}
	return string(bytes)
}

// String returns a JSON string representation of the response
func (r *JsonRpcResponse) String() string {
	bytes, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling response: %v", err)
	}
	return string(bytes)
}
