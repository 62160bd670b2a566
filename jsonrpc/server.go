package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/mnehpets/rpcserve/endpoint"
)

// ServerEndpoint adapts a Handler to HTTP: it decodes a POSTed JSON body,
// classifies it as a single request or a batch by its top-level shape, runs
// the matching dispatch path, and serializes the outcome.
//
// Every JSON-RPC-level outcome, including error responses, is returned with
// HTTP 200; only bodies that are not valid JSON, or whose top-level value is
// neither object nor array, fail at the HTTP level without a JSON-RPC
// envelope.
//
// Use endpoint.Handler(se.Endpoint, processors...) to create an
// http.Handler.
type ServerEndpoint struct {
	handler Handler
}

// NewServerEndpoint creates a ServerEndpoint dispatching to h.
func NewServerEndpoint(h Handler) *ServerEndpoint {
	return &ServerEndpoint{handler: h}
}

// rpcParams captures the raw request body. Parsing is deferred to the
// endpoint body: JSON-RPC distinguishes parse failures from other bad
// requests in ways the generic body decoding does not.
type rpcParams struct {
	Body []byte `body:""`
}

// Endpoint is the endpoint function that processes JSON-RPC requests.
// Pass to endpoint.Handler() to create an http.Handler.
func (s *ServerEndpoint) Endpoint(w http.ResponseWriter, r *http.Request, params rpcParams) (endpoint.Renderer, error) {
	if r.Method != http.MethodPost {
		return nil, endpoint.Error(http.StatusMethodNotAllowed, "JSON-RPC requires POST method", nil)
	}

	// Per JSON-RPC over HTTP, the request Content-Type must be application/json.
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		return nil, endpoint.Error(http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
	}

	return s.handleBody(r.Context(), params.Body)
}

// handleBody classifies the raw payload shape and dispatches.
func (s *ServerEndpoint) handleBody(ctx context.Context, body []byte) (endpoint.Renderer, error) {
	if !json.Valid(body) {
		return nil, endpoint.Error(http.StatusBadRequest, "request body is not valid JSON", nil)
	}

	switch firstByte(body) {
	case '{':
		req, err := DecodeRequest(body)
		if err != nil {
			// The body is well-formed JSON but not a usable envelope. An id,
			// if one is present, can still be echoed.
			log.Printf("jsonrpc: %v", err)
			return singleRenderer(NewErrorResponse(requestID(body), ParseError())), nil
		}
		return singleRenderer(HandleRequest(ctx, s.handler, req)), nil
	case '[':
		reqs, err := decodeBatch(body)
		if err != nil {
			// One bad item poisons the whole batch: there is no id to report
			// a per-item failure against.
			log.Printf("jsonrpc: %v", err)
			return singleRenderer(NewErrorResponse(nil, ParseError())), nil
		}
		return &rpcRenderer{responses: HandleBatch(ctx, s.handler, reqs)}, nil
	default:
		// Scalar, string, or null top-level values carry no Request to
		// answer. Rejected at the HTTP level, not as a JSON-RPC response.
		return nil, endpoint.Error(http.StatusBadRequest, "unsupported JSON-RPC payload type", nil)
	}
}

func firstByte(body []byte) byte {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func singleRenderer(resp Response) *rpcRenderer {
	return &rpcRenderer{responses: []Response{resp}, single: true}
}

// rpcRenderer serializes one Response or a Response array with HTTP 200.
type rpcRenderer struct {
	responses []Response
	single    bool
}

func (r *rpcRenderer) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if r.single {
		return enc.Encode(r.responses[0])
	}
	return enc.Encode(r.responses)
}

// ListenAndServe serves h on every path of addr. It blocks until the server
// fails, mirroring net/http.
//
// Each accepted connection is handled on its own goroutine by net/http, so h
// must be safe for concurrent use. A handler call whose client disconnects
// runs to completion; its response is discarded with the connection.
func ListenAndServe(addr string, h Handler, processors ...endpoint.Processor) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: endpoint.Handler(NewServerEndpoint(h).Endpoint, processors...),
	}
	return srv.ListenAndServe()
}
