package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// HandleRequest runs one decoded request through h and wraps the outcome as
// a Response. The request's id is echoed on both the success and the error
// path, so correlation holds even for invalid-params and unknown-method
// failures.
func HandleRequest(ctx context.Context, h Handler, req Request) Response {
	result, herr := invoke(ctx, h, req.Method, req.Params)
	if herr != nil {
		return NewErrorResponse(req.ID, herr)
	}

	raw, err := marshalResult(result)
	if err != nil {
		return NewErrorResponse(req.ID, InternalError(err.Error()))
	}
	return NewResult(req.ID, raw)
}

// HandleBatch processes requests through h and returns one Response per
// Request, in request order. When h implements BatchHandler, batch
// processing is delegated to it; otherwise items are handled sequentially
// and a failing item never affects its siblings.
func HandleBatch(ctx context.Context, h Handler, reqs []Request) []Response {
	if bh, ok := h.(BatchHandler); ok {
		return bh.BatchHandle(ctx, reqs)
	}
	resps := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		resps = append(resps, HandleRequest(ctx, h, req))
	}
	return resps
}

// invoke calls h.Handle, converting a panic into an internal error so one
// misbehaving method cannot take down sibling batch items or the
// connection.
func invoke(ctx context.Context, h Handler, method string, params json.RawMessage) (result any, herr *Error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("jsonrpc: handler panic in %q: %v", method, r)
			result = nil
			herr = InternalError(fmt.Sprint(r))
		}
	}()
	return h.Handle(ctx, method, params)
}

// marshalResult converts a handler's return value to raw JSON. Raw messages
// pass through untouched; nil stays nil and serializes as result null.
func marshalResult(result any) (json.RawMessage, error) {
	switch v := result.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("jsonrpc: marshal result: %w", err)
		}
		return raw, nil
	}
}

// decodeBatch decodes a JSON array body into request envelopes. Any item
// that fails envelope decoding poisons the whole batch, since no
// correlation id can be recovered for it.
func decodeBatch(body []byte) ([]Request, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("jsonrpc: batch: %w", err)
	}
	reqs := make([]Request, 0, len(items))
	for i, item := range items {
		req, err := DecodeRequest(item)
		if err != nil {
			return nil, fmt.Errorf("jsonrpc: batch item %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// requestID shallowly extracts the raw id from a JSON object that failed
// envelope decoding, so the parse error response can still correlate when
// possible.
func requestID(body []byte) json.RawMessage {
	var probe struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil
	}
	return probe.ID
}
