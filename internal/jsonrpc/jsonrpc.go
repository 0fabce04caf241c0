// Package jsonrpc implements a minimal JSON-RPC 2.0 envelope over HTTP:
// single requests, method dispatch, and the standard error codes. Batch
// requests and notifications are not supported; every request gets a
// response.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Version is the protocol version every envelope carries.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is a single JSON-RPC request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a single JSON-RPC response envelope.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// NewError creates an Error with the given code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// InvalidParams creates a -32602 error with a human-readable reason.
func InvalidParams(reason string) *Error {
	return &Error{Code: CodeInvalidParams, Message: "invalid params", Data: reason}
}

// HandlerFunc computes the result for one method invocation.
type HandlerFunc func(params json.RawMessage) (interface{}, *Error)

// Router dispatches JSON-RPC methods to registered handlers and serves
// them over a single HTTP endpoint.
type Router struct {
	methods map[string]HandlerFunc
}

// NewRouter creates an empty method router.
func NewRouter() *Router {
	return &Router{methods: make(map[string]HandlerFunc)}
}

// Register adds a handler for a method name.
func (r *Router) Register(method string, handler HandlerFunc) {
	r.methods[method] = handler
}

// Methods returns the registered method names.
func (r *Router) Methods() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	return names
}

// ServeHTTP handles one JSON-RPC request. Transport-level failures are
// still expressed as JSON-RPC error envelopes with HTTP 200, per the
// usual JSON-RPC-over-HTTP convention.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		writeResponse(w, errorResponse(nil, NewError(CodeParseError, "unable to read request body")))
		return
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		writeResponse(w, errorResponse(nil, NewError(CodeInvalidRequest, "batch requests are not supported")))
		return
	}

	var rpcReq Request
	if err := json.Unmarshal(trimmed, &rpcReq); err != nil {
		writeResponse(w, errorResponse(nil, NewError(CodeParseError, "malformed JSON-RPC request")))
		return
	}

	if rpcReq.JSONRPC != Version {
		writeResponse(w, errorResponse(rpcReq.ID, NewError(CodeInvalidRequest, `jsonrpc must be "2.0"`)))
		return
	}
	if rpcReq.Method == "" {
		writeResponse(w, errorResponse(rpcReq.ID, NewError(CodeInvalidRequest, "method is required")))
		return
	}

	handler, exists := r.methods[rpcReq.Method]
	if !exists {
		writeResponse(w, errorResponse(rpcReq.ID, NewError(CodeMethodNotFound, fmt.Sprintf("method %q not found", rpcReq.Method))))
		return
	}

	result, rpcErr := handler(rpcReq.Params)
	if rpcErr != nil {
		writeResponse(w, errorResponse(rpcReq.ID, rpcErr))
		return
	}

	writeResponse(w, Response{
		JSONRPC: Version,
		Result:  result,
		ID:      normalizeID(rpcReq.ID),
	})
}

func errorResponse(id json.RawMessage, rpcErr *Error) Response {
	return Response{
		JSONRPC: Version,
		Error:   rpcErr,
		ID:      normalizeID(id),
	}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
