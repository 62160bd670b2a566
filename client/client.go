// Package client issues JSON-RPC 2.0 calls over HTTP.
//
// A Client wraps an HTTP client with JSON-RPC envelope handling: Call issues
// one method call and surfaces the server's result or error; BatchCall
// issues an ordered array of requests and returns the ordered responses.
//
// Bearer tokens are modeled as oauth2 token sources, so a static token and a
// refreshing credential (for example a client-credentials flow) attach the
// same way:
//
//	c := client.New(client.WithToken(os.Getenv("RPC_TOKEN")))
//	result, err := c.Call(ctx, url, "example_fn1", []any{10, true})
//
// Errors from Call are *jsonrpc.Error values: RPC-level errors arrive as
// the server sent them, and transport faults (connection failures,
// non-success HTTP statuses, undecodable bodies) are folded into internal
// errors. BatchCall instead reports transport faults as plain errors, since
// they cannot be attributed to any single request in the batch.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/mnehpets/rpcserve/jsonrpc"
)

// Client issues JSON-RPC calls over HTTP POST.
//
// The zero value is not usable; construct with New. A Client is safe for
// concurrent use if its underlying http.Client and token source are.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. The default is
// http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken attaches a static bearer token to every request.
func WithToken(token string) Option {
	return WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}

// WithTokenSource attaches tokens from ts to every request, allowing
// refreshing credentials such as a client-credentials flow.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call issues one JSON-RPC call and returns the raw result, which may be
// JSON null when the method has no payload to return.
//
// The request carries a constant placeholder id; single calls need no
// caller-side correlation. A returned error is always a *jsonrpc.Error:
// either the error object the server sent, or an internal error for
// transport-level faults. A non-success HTTP status is a transport fault
// regardless of body content; the body is logged, not parsed.
func (c *Client) Call(ctx context.Context, url, method string, params any) (json.RawMessage, error) {
	req, err := jsonrpc.NewRequest(method, params)
	if err != nil {
		return nil, jsonrpc.InternalError(err.Error())
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, jsonrpc.InternalError(err.Error())
	}

	status, respBody, err := c.Post(ctx, url, body, nil)
	if err != nil {
		return nil, jsonrpc.InternalError(err.Error())
	}
	if status < 200 || status > 299 {
		log.Printf("client: %s returned status %d: %s", url, status, respBody)
		return nil, jsonrpc.InternalError("failed to request " + url)
	}

	var resp jsonrpc.Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, jsonrpc.InternalError(err.Error())
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result, nil
}

// CallInto issues one JSON-RPC call and decodes the result into out. A null
// or absent result leaves out unchanged. A nil out discards the result.
func (c *Client) CallInto(ctx context.Context, url, method string, params, out any) error {
	raw, err := c.Call(ctx, url, method, params)
	if err != nil {
		return err
	}
	if out == nil || raw == nil || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return jsonrpc.InternalError(err.Error())
	}
	return nil
}

// BatchCall issues an ordered batch of requests as one HTTP exchange and
// returns the ordered responses.
//
// Transport faults are all-or-nothing at this layer and are reported as
// plain errors rather than per-item RPC errors. Per-item outcomes, including
// RPC errors, are inside the returned responses.
func (c *Client) BatchCall(ctx context.Context, url string, reqs []jsonrpc.Request) ([]jsonrpc.Response, error) {
	body, err := json.Marshal(reqs)
	if err != nil {
		return nil, fmt.Errorf("client: marshal batch: %w", err)
	}

	status, respBody, err := c.Post(ctx, url, body, nil)
	if err != nil {
		return nil, fmt.Errorf("client: post %s: %w", url, err)
	}
	if status < 200 || status > 299 {
		log.Printf("client: %s returned status %d: %s", url, status, respBody)
		return nil, fmt.Errorf("client: %s returned status %d", url, status)
	}

	var resps []jsonrpc.Response
	if err := json.Unmarshal(respBody, &resps); err != nil {
		return nil, fmt.Errorf("client: decode batch response: %w", err)
	}
	return resps, nil
}

// Post issues an HTTP POST with body and optional extra headers, returning
// the status code and the response body. Content-Type defaults to
// application/json unless headers overrides it; the bearer token, when
// configured, is attached.
func (c *Client) Post(ctx context.Context, url string, body []byte, headers http.Header) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, url, body, headers)
}

// Get issues an HTTP GET with optional extra headers, returning the status
// code and the response body. The bearer token, when configured, is
// attached.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, url, nil, headers)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, headers http.Header) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("client: new request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return 0, nil, fmt.Errorf("client: token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("client: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// Call issues a single JSON-RPC call with a one-off Client. Options
// typically attach a bearer token.
func Call(ctx context.Context, url, method string, params any, opts ...Option) (json.RawMessage, error) {
	return New(opts...).Call(ctx, url, method, params)
}

// BatchCall issues a batch of JSON-RPC calls with a one-off Client.
func BatchCall(ctx context.Context, url string, reqs []jsonrpc.Request, opts ...Option) ([]jsonrpc.Response, error) {
	return New(opts...).BatchCall(ctx, url, reqs)
}
