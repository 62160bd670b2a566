package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
)

// echoHandler recognizes "echo" (returns its params), "nothing" (returns no
// payload), "fail" (application error), and "explode" (panics).
type echoHandler struct{}

func (echoHandler) Handle(_ context.Context, method string, params json.RawMessage) (any, *Error) {
	switch method {
	case "echo":
		return params, nil
	case "nothing":
		return nil, nil
	case "fail":
		return nil, NewError(-32001, "application failure")
	case "explode":
		panic("kaboom")
	default:
		return nil, UnknownMethod()
	}
}

func mustRequest(t *testing.T, body string) Request {
	t.Helper()
	req, err := DecodeRequest([]byte(body))
	if err != nil {
		t.Fatalf("DecodeRequest(%s): %v", body, err)
	}
	return req
}

func TestHandleRequestEchoesIDOnSuccessAndError(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  int // 0 means success
		wantBody string
	}{
		{"success", `{"jsonrpc":"2.0","method":"echo","params":[1],"id":7}`, 0, `[1]`},
		{"no payload", `{"jsonrpc":"2.0","method":"nothing","id":"k"}`, 0, ``},
		{"unknown method", `{"jsonrpc":"2.0","method":"nope","id":8}`, CodeMethodNotFound, ``},
		{"handler error", `{"jsonrpc":"2.0","method":"fail","id":9}`, -32001, ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := mustRequest(t, tt.body)
			resp := HandleRequest(context.Background(), echoHandler{}, req)

			if string(resp.ID) != string(req.ID) {
				t.Errorf("response id = %s, want %s", resp.ID, req.ID)
			}
			if tt.wantErr == 0 {
				if resp.Error != nil {
					t.Fatalf("unexpected error: %+v", resp.Error)
				}
				if string(resp.Result) != tt.wantBody {
					t.Errorf("result = %s, want %s", resp.Result, tt.wantBody)
				}
				return
			}
			if resp.Error == nil {
				t.Fatalf("expected error %d, got result %s", tt.wantErr, resp.Result)
			}
			if resp.Error.Code != tt.wantErr {
				t.Errorf("error code = %d, want %d", resp.Error.Code, tt.wantErr)
			}
		})
	}
}

func TestHandleRequestRecoversPanic(t *testing.T) {
	req := mustRequest(t, `{"jsonrpc":"2.0","method":"explode","id":1}`)
	resp := HandleRequest(context.Background(), echoHandler{}, req)
	if resp.Error == nil || resp.Error.Code != CodeInternalError {
		t.Fatalf("response = %+v, want internal error", resp)
	}
	if resp.Error.Data != "kaboom" {
		t.Errorf("error data = %q, want panic value", resp.Error.Data)
	}
	if string(resp.ID) != "1" {
		t.Errorf("response id = %s, want 1", resp.ID)
	}
}

func TestHandleBatchPreservesOrderAndCount(t *testing.T) {
	const n = 10
	reqs := make([]Request, 0, n)
	for i := 0; i < n; i++ {
		body := fmt.Sprintf(`{"jsonrpc":"2.0","method":"echo","params":[%d],"id":%d}`, i, i)
		reqs = append(reqs, mustRequest(t, body))
	}
	// A failing item in the middle must not disturb its siblings.
	reqs[4] = mustRequest(t, `{"jsonrpc":"2.0","method":"fail","id":4}`)

	resps := HandleBatch(context.Background(), echoHandler{}, reqs)
	if len(resps) != n {
		t.Fatalf("got %d responses, want %d", len(resps), n)
	}
	for i, resp := range resps {
		if string(resp.ID) != string(reqs[i].ID) {
			t.Errorf("response %d id = %s, want %s", i, resp.ID, reqs[i].ID)
		}
		if i == 4 {
			if resp.Error == nil || resp.Error.Code != -32001 {
				t.Errorf("response 4 = %+v, want application failure", resp)
			}
			continue
		}
		if resp.Error != nil {
			t.Errorf("response %d error = %+v, want success", i, resp.Error)
		}
	}
}

// countingBatchHandler overrides the batch path to verify BatchHandler
// delegation.
type countingBatchHandler struct {
	echoHandler
	batches int
}

func (h *countingBatchHandler) BatchHandle(ctx context.Context, reqs []Request) []Response {
	h.batches++
	resps := make([]Response, 0, len(reqs))
	for _, req := range reqs {
		resps = append(resps, HandleRequest(ctx, h, req))
	}
	return resps
}

func TestHandleBatchDelegatesToBatchHandler(t *testing.T) {
	h := &countingBatchHandler{}
	reqs := []Request{
		mustRequest(t, `{"jsonrpc":"2.0","method":"echo","params":[1],"id":1}`),
		mustRequest(t, `{"jsonrpc":"2.0","method":"echo","params":[2],"id":2}`),
	}
	resps := HandleBatch(context.Background(), h, reqs)
	if h.batches != 1 {
		t.Errorf("BatchHandle called %d times, want 1", h.batches)
	}
	if len(resps) != 2 {
		t.Fatalf("got %d responses, want 2", len(resps))
	}
}

func TestDecodeBatchRejectsWholeBatchOnMalformedItem(t *testing.T) {
	// Policy choice: one structurally bad item poisons the whole batch,
	// because no correlation id can be recovered for it. Strict JSON-RPC 2.0
	// would instead emit a per-item parse error with a null id; this suite
	// pins the stricter all-or-nothing behavior.
	body := `[
		{"jsonrpc":"2.0","method":"echo","params":[1],"id":1},
		{"method":"echo","params":[2],"id":2}
	]`
	if _, err := decodeBatch([]byte(body)); err == nil {
		t.Fatal("decodeBatch succeeded, want rejection of the whole batch")
	}

	good := `[{"jsonrpc":"2.0","method":"echo","params":[1],"id":1}]`
	reqs, err := decodeBatch([]byte(good))
	if err != nil {
		t.Fatalf("decodeBatch: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Method != "echo" {
		t.Errorf("reqs = %+v, want one echo request", reqs)
	}
}

func TestRequestIDExtractionFromBadEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"id present", `{"method":"x","id":42}`, "42"},
		{"id absent", `{"method":"x"}`, ""},
		{"not an object", `"hello"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := requestID([]byte(tt.body))
			if string(got) != tt.want {
				t.Errorf("requestID = %q, want %q", got, tt.want)
			}
		})
	}
}
