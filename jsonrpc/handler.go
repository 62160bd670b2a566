package jsonrpc

import (
	"context"
	"encoding/json"
	"sync"
)

// Handler answers one method call.
//
// Implementations switch on method and decode params into the shape that
// method expects. An unrecognized method must return UnknownMethod(); params
// that fail to convert must return InvalidParams(); internal failures must
// be wrapped with InternalError. No input is trusted: params arrive exactly
// as they appeared on the wire.
//
// A Handler is shared across concurrently executing requests and must be
// safe for concurrent use.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (any, *Error)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (any, *Error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (any, *Error) {
	return f(ctx, method, params)
}

// BatchHandler is optionally implemented by a Handler to take over batch
// processing, for example to hold a shared lock across items or to stop
// early. Implementations must return one Response per Request, in request
// order, with the same per-item success/failure mapping as the default
// path.
type BatchHandler interface {
	Handler
	BatchHandle(ctx context.Context, reqs []Request) []Response
}

// MethodFunc answers a single named method. It is the unit a Registry
// dispatches to.
type MethodFunc func(ctx context.Context, params json.RawMessage) (any, *Error)

// Method adapts a typed callback to a MethodFunc, decoding params into P
// before the call. Params that do not decode as P map to InvalidParams.
//
// Absent params decode as JSON null, so a pointer-typed or slice-typed P
// observes nil and a struct-typed P observes its zero value.
func Method[P any](fn func(ctx context.Context, params P) (any, *Error)) MethodFunc {
	return func(ctx context.Context, params json.RawMessage) (any, *Error) {
		var p P
		if params == nil {
			params = jsonNull
		}
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, InvalidParams()
		}
		return fn(ctx, p)
	}
}

// Registry is a Handler that maps method names to callbacks.
//
// It is the registry form of the handler capability: each method performs
// its own explicit params decode (typically via Method), so no two methods
// compete over an ambiguous params shape.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]MethodFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]MethodFunc)}
}

// Register adds a method under name. Registering the same name twice is a
// programming error and panics.
func (r *Registry) Register(name string, fn MethodFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[name]; exists {
		panic("jsonrpc: method name collision: " + name)
	}
	r.methods[name] = fn
}

// Handle implements Handler. Unregistered methods map to UnknownMethod.
func (r *Registry) Handle(ctx context.Context, method string, params json.RawMessage) (any, *Error) {
	r.mu.RLock()
	fn, ok := r.methods[method]
	r.mu.RUnlock()
	if !ok {
		return nil, UnknownMethod()
	}
	return fn(ctx, params)
}
