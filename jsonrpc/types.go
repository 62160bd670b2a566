package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version carried by every envelope.
const Version = "2.0"

// Request is a JSON-RPC request envelope.
//
// Params and ID are kept as raw JSON. Params decoding belongs to the
// handler; ID is opaque and is only ever copied to the matching Response, so
// a numeric id keeps the exact representation it arrived with (1 and 1.0
// are distinct on the wire and stay distinct).
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewRequest builds a Request for method with the given params marshaled to
// raw JSON. The id is a constant placeholder, suitable for single-shot calls
// where the caller does not correlate responses itself.
func NewRequest(method string, params any) (Request, error) {
	req := Request{
		JSONRPC: Version,
		Method:  method,
		ID:      json.RawMessage("1"),
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Request{}, fmt.Errorf("jsonrpc: marshal params: %w", err)
		}
		req.Params = raw
	}
	return req, nil
}

// RawID encodes v as a raw correlation id for a Request. It is a
// convenience for batch construction, where callers assign their own ids.
// It panics if v does not marshal, which only a programmer-constructed
// value can cause.
func RawID(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic("jsonrpc: RawID: " + err.Error())
	}
	return raw
}

// Validate checks the envelope fields of a decoded Request.
//
// The version must be exactly "2.0", the method must be present, and an id
// must have been supplied (notifications are not supported; see the package
// documentation). Params is not inspected.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return errors.New("jsonrpc: request: missing or unsupported jsonrpc version")
	}
	if r.Method == "" {
		return errors.New("jsonrpc: request: missing method")
	}
	if r.ID == nil {
		return errors.New("jsonrpc: request: missing id")
	}
	return nil
}

// DecodeRequest decodes and validates a single request envelope.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("jsonrpc: request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Response is a JSON-RPC response envelope.
//
// Exactly one of Result and Error appears in the serialized form: the error
// form carries only the error object, the success form always carries a
// result (JSON null when the payload is absent). Internally both fields may
// be unset; MarshalJSON enforces the wire exclusivity.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// NewResult builds a success Response echoing id. A nil result serializes as
// result null.
func NewResult(id, result json.RawMessage) Response {
	return Response{JSONRPC: Version, Result: result, ID: id}
}

// NewErrorResponse builds an error Response echoing id.
func NewErrorResponse(id json.RawMessage, e *Error) Response {
	return Response{JSONRPC: Version, Error: e, ID: id}
}

// The two wire shapes, split so that the unset member of the result/error
// pair is omitted entirely rather than emitted as null.
type resultResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	ID      json.RawMessage `json:"id"`
}

type errorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Error   *Error          `json:"error"`
	ID      json.RawMessage `json:"id"`
}

var jsonNull = json.RawMessage("null")

// MarshalJSON implements json.Marshaler, picking the error or result wire
// form.
func (r Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if id == nil {
		id = jsonNull
	}
	if r.Error != nil {
		return json.Marshal(errorResponse{JSONRPC: r.JSONRPC, Error: r.Error, ID: id})
	}
	result := r.Result
	if result == nil {
		result = jsonNull
	}
	return json.Marshal(resultResponse{JSONRPC: r.JSONRPC, Result: result, ID: id})
}

// UnmarshalJSON implements json.Unmarshaler with the default field mapping,
// bypassing the custom marshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	type plain Response
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Response(p)
	return nil
}
