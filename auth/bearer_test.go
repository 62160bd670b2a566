package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/mnehpets/rpcserve/endpoint"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier("alpha", "beta")

	tests := []struct {
		name   string
		token  string
		wantOK bool
	}{
		{"first token", "alpha", true},
		{"second token", "beta", true},
		{"unknown token", "gamma", false},
		{"prefix of a token", "alph", false},
		{"empty token", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(context.Background(), tt.token)
			if (err == nil) != tt.wantOK {
				t.Errorf("Verify(%q) = %v, want ok=%v", tt.token, err, tt.wantOK)
			}
		})
	}
}

func TestBcryptVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	v := NewBcryptVerifier(string(hash))

	if err := v.Verify(context.Background(), "open-sesame"); err != nil {
		t.Errorf("Verify(correct) = %v, want nil", err)
	}
	if err := v.Verify(context.Background(), "wrong"); err == nil {
		t.Error("Verify(wrong) = nil, want error")
	}
}

func signJWT(t *testing.T, key []byte, claims map[string]any) string {
	t.Helper()
	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.HS256, Key: key}, nil)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		t.Fatal(err)
	}
	token, err := obj.CompactSerialize()
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestJWTVerifier(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	v := NewJWTVerifier(key, jose.HS256)
	ctx := context.Background()

	future := float64(time.Now().Add(time.Hour).Unix())
	past := float64(time.Now().Add(-time.Hour).Unix())

	tests := []struct {
		name   string
		token  string
		wantOK bool
	}{
		{"valid with expiry", signJWT(t, key, map[string]any{"exp": future}), true},
		{"valid without expiry", signJWT(t, key, map[string]any{"sub": "svc"}), true},
		{"expired", signJWT(t, key, map[string]any{"exp": past}), false},
		{"not yet valid", signJWT(t, key, map[string]any{"nbf": future}), false},
		{"wrong key", signJWT(t, otherKey, map[string]any{"exp": future}), false},
		{"not a jwt", "garbage", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Verify(ctx, tt.token)
			if (err == nil) != tt.wantOK {
				t.Errorf("Verify = %v, want ok=%v", err, tt.wantOK)
			}
		})
	}
}

// protectedHandler serves a trivial endpoint behind Bearer for the processor
// tests.
func protectedHandler(v TokenVerifier) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		return &endpoint.StringRenderer{Body: "ok"}, nil
	}
	return endpoint.Handler(fn, Bearer(v))
}

func TestBearerProcessor(t *testing.T) {
	handler := protectedHandler(NewStaticVerifier("sekrit"))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{"valid token", "Bearer sekrit", http.StatusOK, "ok"},
		{"case-insensitive scheme", "bearer sekrit", http.StatusOK, "ok"},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, "invalid bearer token"},
		{"missing header", "", http.StatusUnauthorized, "missing bearer token"},
		{"wrong scheme", "Basic sekrit", http.StatusUnauthorized, "missing bearer token"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "missing bearer token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestBearerRejectsBeforeEndpointRuns(t *testing.T) {
	ran := false
	fn := func(w http.ResponseWriter, r *http.Request, _ struct{}) (endpoint.Renderer, error) {
		ran = true
		return &endpoint.NoContentRenderer{}, nil
	}
	handler := endpoint.Handler(fn, Bearer(NewStaticVerifier("sekrit")))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ran {
		t.Error("endpoint ran despite missing token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
