// Package jsonrpc implements the JSON-RPC 2.0 request/response protocol
// over HTTP, for both serving and being served.
//
// This package implements the JSON-RPC 2.0 specification
// (https://www.jsonrpc.org/specification) and JSON-RPC over HTTP
// (https://www.simple-is-better.org/json-rpc/transport_http.html), with two
// deliberate deviations documented below.
//
// # Basic Usage
//
// Implement Handler (or use a Registry), wrap it in a server endpoint, and
// serve via HTTP:
//
//	r := jsonrpc.NewRegistry()
//	r.Register("add", jsonrpc.Method(func(ctx context.Context, p AddParams) (any, *jsonrpc.Error) {
//	    return p.A + p.B, nil
//	}))
//	http.Handle("/rpc", endpoint.Handler(jsonrpc.NewServerEndpoint(r).Endpoint))
//	http.ListenAndServe(":8080", nil)
//
// Or serve a handler on every path, as a dedicated RPC server:
//
//	jsonrpc.ListenAndServe(":8080", r)
//
// # Handlers
//
// Handler is the capability an application supplies to answer one method
// call. Handle receives the method name and the raw params and performs all
// params validation itself; the dispatch layer never interprets params.
//
//	func (h *myHandler) Handle(ctx context.Context, method string, params json.RawMessage) (any, *jsonrpc.Error) {
//	    switch method {
//	    case "echo":
//	        var v any
//	        if err := json.Unmarshal(params, &v); err != nil {
//	            return nil, jsonrpc.InvalidParams()
//	        }
//	        return v, nil
//	    }
//	    return nil, jsonrpc.UnknownMethod()
//	}
//
// A handler may additionally implement BatchHandler to take over batch
// processing, for example to hold a shared lock across items. The default
// batch path calls Handle once per request, strictly in array order.
//
// Handlers are shared across concurrently executing requests and must be
// safe for concurrent use. The dispatch layer imposes no locking.
//
// # Errors
//
// The reserved error codes are exposed as constants and as constructors
// whose message text is part of the protocol contract:
//
//   - ParseError (-32700 "Parse error")
//   - UnknownMethod (-32601 "Method not found")
//   - InvalidParams (-32602 "Invalid params")
//   - InternalError (-32603 "Internal error", with diagnostic data)
//
// Application-defined codes are created with NewError.
//
// # Deviations from strict JSON-RPC 2.0
//
// Notifications are not supported: a request without an id fails envelope
// decoding. A batch containing a structurally malformed item is rejected as
// a whole with a single parse error response (id null), since no per-item
// correlation id can be recovered. A top-level payload that is neither an
// object nor an array is rejected at the HTTP level without a JSON-RPC
// response.
package jsonrpc
