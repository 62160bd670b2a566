package jsonrpc

// Reserved JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is a JSON-RPC error object.
//
// Code is one of the reserved codes above or an application-defined code.
// Message is fixed per reserved code; the exact text is part of the protocol
// contract. Data carries optional free-form diagnostics and is omitted from
// the wire form when empty.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "jsonrpc: error: <nil>"
	}
	if e.Data != "" {
		return e.Message + ": " + e.Data
	}
	return e.Message
}

// NewError creates an Error with an application-defined code.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ParseError reports a malformed request payload or envelope.
func ParseError() *Error {
	return &Error{Code: CodeParseError, Message: "Parse error"}
}

// UnknownMethod reports a method the handler does not recognize.
func UnknownMethod() *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found"}
}

// InvalidParams reports params that do not convert to the shape the method
// expects.
func InvalidParams() *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params"}
}

// InternalError reports a failure inside application logic, carrying
// diagnostic text.
func InternalError(data string) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}
