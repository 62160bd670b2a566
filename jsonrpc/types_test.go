package jsonrpc

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	// The id must survive decode/encode byte-for-byte, including numeric
	// representations JSON distinguishes (1 vs 1.0).
	tests := []struct {
		name string
		id   string
	}{
		{"integer", `1`},
		{"float", `1.0`},
		{"big integer", `123456789012345678901234567890`},
		{"string", `"abc"`},
		{"null", `null`},
		{"negative", `-7`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := `{"jsonrpc":"2.0","method":"m","params":[1],"id":` + tt.id + `}`
			req, err := DecodeRequest([]byte(in))
			if err != nil {
				t.Fatalf("DecodeRequest: %v", err)
			}
			if string(req.ID) != tt.id {
				t.Errorf("decoded id = %s, want %s", req.ID, tt.id)
			}

			out, err := json.Marshal(req)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var echo struct {
				ID json.RawMessage `json:"id"`
			}
			if err := json.Unmarshal(out, &echo); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if string(echo.ID) != tt.id {
				t.Errorf("re-encoded id = %s, want %s", echo.ID, tt.id)
			}
		})
	}
}

func TestDecodeRequestRejectsBadEnvelopes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing jsonrpc", `{"method":"m","id":1}`},
		{"wrong version", `{"jsonrpc":"1.0","method":"m","id":1}`},
		{"missing method", `{"jsonrpc":"2.0","id":1}`},
		{"non-string method", `{"jsonrpc":"2.0","method":7,"id":1}`},
		{"missing id", `{"jsonrpc":"2.0","method":"m"}`},
		{"not an object", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRequest([]byte(tt.body)); err == nil {
				t.Errorf("DecodeRequest(%s) succeeded, want error", tt.body)
			}
		})
	}
}

func TestResponseWireExclusivity(t *testing.T) {
	// Exactly one of result/error appears on the wire; the unset one is
	// omitted entirely, never emitted as null.
	tests := []struct {
		name     string
		resp     Response
		wantKey  string
		dropKey  string
		wantFrag string
	}{
		{
			name:     "result form",
			resp:     NewResult(json.RawMessage(`1`), json.RawMessage(`[10,true]`)),
			wantKey:  `"result"`,
			dropKey:  `"error"`,
			wantFrag: `"result":[10,true]`,
		},
		{
			name:     "empty result serializes as null",
			resp:     NewResult(json.RawMessage(`2`), nil),
			wantKey:  `"result"`,
			dropKey:  `"error"`,
			wantFrag: `"result":null`,
		},
		{
			name:     "error form",
			resp:     NewErrorResponse(json.RawMessage(`3`), UnknownMethod()),
			wantKey:  `"error"`,
			dropKey:  `"result"`,
			wantFrag: `"message":"Method not found"`,
		},
		{
			name:     "nil id serializes as null",
			resp:     NewErrorResponse(nil, ParseError()),
			wantKey:  `"error"`,
			dropKey:  `"result"`,
			wantFrag: `"id":null`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			s := string(out)
			if !strings.Contains(s, tt.wantKey) {
				t.Errorf("serialized %s missing %s", s, tt.wantKey)
			}
			if strings.Contains(s, tt.dropKey) {
				t.Errorf("serialized %s contains %s, want it omitted", s, tt.dropKey)
			}
			if !strings.Contains(s, tt.wantFrag) {
				t.Errorf("serialized %s missing %s", s, tt.wantFrag)
			}
			if !strings.Contains(s, `"jsonrpc":"2.0"`) {
				t.Errorf("serialized %s missing protocol version", s)
			}
		})
	}
}

func TestResponseUnmarshal(t *testing.T) {
	var resp Response
	in := `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method not found"},"id":9}`
	if err := json.Unmarshal([]byte(in), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error = %+v, want code %d", resp.Error, CodeMethodNotFound)
	}
	if string(resp.ID) != "9" {
		t.Errorf("id = %s, want 9", resp.ID)
	}
}

func TestErrorConstructors(t *testing.T) {
	// The message text per reserved code is part of the protocol contract.
	tests := []struct {
		name        string
		err         *Error
		wantCode    int
		wantMessage string
	}{
		{"parse error", ParseError(), -32700, "Parse error"},
		{"unknown method", UnknownMethod(), -32601, "Method not found"},
		{"invalid params", InvalidParams(), -32602, "Invalid params"},
		{"internal error", InternalError("boom"), -32603, "Internal error"},
		{"custom", NewError(-32001, "application"), -32001, "application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", tt.err.Message, tt.wantMessage)
			}
		})
	}

	if InternalError("boom").Data != "boom" {
		t.Error("InternalError did not carry data")
	}
	out, err := json.Marshal(ParseError())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(out), `"data"`) {
		t.Errorf("empty data serialized in %s, want omitted", out)
	}
}

func TestNewRequestPlaceholderID(t *testing.T) {
	req, err := NewRequest("example_fn1", []any{10, true})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.JSONRPC != Version {
		t.Errorf("jsonrpc = %q, want %q", req.JSONRPC, Version)
	}
	if string(req.ID) != "1" {
		t.Errorf("id = %s, want the constant placeholder 1", req.ID)
	}
	if string(req.Params) != "[10,true]" {
		t.Errorf("params = %s, want [10,true]", req.Params)
	}

	req, err = NewRequest("no_params", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(out), `"params"`) {
		t.Errorf("nil params serialized in %s, want omitted", out)
	}
}
