// Package auth provides bearer-token verification for RPC servers.
//
// The package ties a pluggable TokenVerifier to the endpoint processor
// chain: Bearer(v) produces an endpoint.Processor that extracts the
// Authorization header, verifies the token, and rejects the request with
// HTTP 401 before any JSON-RPC processing happens. Rejections are
// transport-level by design; an unauthenticated exchange never receives a
// JSON-RPC envelope.
//
//	e := jsonrpc.NewServerEndpoint(handler)
//	http.Handle("/rpc", endpoint.Handler(e.Endpoint, auth.Bearer(verifier)))
//
// Verifiers cover the common deployments: a fixed shared secret
// (StaticVerifier), bcrypt-hashed secrets kept out of configuration
// plaintext (BcryptVerifier), locally-keyed signed tokens (JWTVerifier), and
// tokens issued by an OIDC provider (OIDCVerifier).
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/mnehpets/rpcserve/endpoint"
)

// TokenVerifier validates one bearer token.
type TokenVerifier interface {
	// Verify returns nil when token is acceptable. Any non-nil error
	// rejects the request; the error text is never revealed to the client.
	Verify(ctx context.Context, token string) error
}

// VerifierFunc adapts a function to a TokenVerifier.
type VerifierFunc func(ctx context.Context, token string) error

func (f VerifierFunc) Verify(ctx context.Context, token string) error {
	return f(ctx, token)
}

// Bearer creates a processor that requires a valid bearer token on every
// request.
//
// The processor never writes headers or body itself; it short-circuits with
// an endpoint error, which the endpoint handler renders as HTTP 401.
func Bearer(v TokenVerifier) endpoint.Processor {
	return endpoint.ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(w http.ResponseWriter, r *http.Request) error) error {
		token, ok := bearerToken(r)
		if !ok {
			return endpoint.Error(http.StatusUnauthorized, "missing bearer token", nil)
		}
		if err := v.Verify(r.Context(), token); err != nil {
			return endpoint.Error(http.StatusUnauthorized, "invalid bearer token", err)
		}
		return next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// StaticVerifier accepts a fixed set of shared-secret tokens.
//
// Comparison is constant-time over SHA-256 digests, so neither token length
// nor prefix matching leaks through timing.
type StaticVerifier struct {
	digests [][sha256.Size]byte
}

// NewStaticVerifier creates a StaticVerifier accepting any of tokens.
func NewStaticVerifier(tokens ...string) *StaticVerifier {
	v := &StaticVerifier{digests: make([][sha256.Size]byte, 0, len(tokens))}
	for _, t := range tokens {
		v.digests = append(v.digests, sha256.Sum256([]byte(t)))
	}
	return v
}

func (v *StaticVerifier) Verify(_ context.Context, token string) error {
	d := sha256.Sum256([]byte(token))
	matched := 0
	for _, want := range v.digests {
		matched |= subtle.ConstantTimeCompare(d[:], want[:])
	}
	if matched != 1 {
		return errors.New("auth: unknown token")
	}
	return nil
}

// BcryptVerifier accepts tokens whose bcrypt hash is in its allow list,
// letting deployments keep only hashes in configuration.
type BcryptVerifier struct {
	hashes [][]byte
}

// NewBcryptVerifier creates a BcryptVerifier from bcrypt hash strings (the
// "$2a$..." form produced by bcrypt.GenerateFromPassword).
func NewBcryptVerifier(hashes ...string) *BcryptVerifier {
	v := &BcryptVerifier{hashes: make([][]byte, 0, len(hashes))}
	for _, h := range hashes {
		v.hashes = append(v.hashes, []byte(h))
	}
	return v
}

func (v *BcryptVerifier) Verify(_ context.Context, token string) error {
	for _, h := range v.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(token)) == nil {
			return nil
		}
	}
	return errors.New("auth: unknown token")
}

// JWTVerifier accepts signed JWTs verified against a local key, without
// issuer discovery. The key may be a public key, a shared HMAC secret, or a
// *jose.JSONWebKeySet.
type JWTVerifier struct {
	key  any
	algs []jose.SignatureAlgorithm
	now  func() time.Time
}

// NewJWTVerifier creates a JWTVerifier. At least one permitted signature
// algorithm must be named; tokens signed with any other algorithm are
// rejected during parsing.
func NewJWTVerifier(key any, algs ...jose.SignatureAlgorithm) *JWTVerifier {
	return &JWTVerifier{key: key, algs: algs, now: time.Now}
}

// jwtClaims is the subset of registered claims checked here. Expiry is
// optional; a token without exp does not expire.
type jwtClaims struct {
	Expiry    *float64 `json:"exp"`
	NotBefore *float64 `json:"nbf"`
}

func (v *JWTVerifier) Verify(_ context.Context, token string) error {
	sig, err := jose.ParseSigned(token, v.algs)
	if err != nil {
		return fmt.Errorf("auth: parse token: %w", err)
	}
	payload, err := sig.Verify(v.key)
	if err != nil {
		return fmt.Errorf("auth: verify signature: %w", err)
	}

	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return fmt.Errorf("auth: decode claims: %w", err)
	}
	now := v.now()
	if claims.Expiry != nil && now.After(time.Unix(int64(*claims.Expiry), 0)) {
		return errors.New("auth: token expired")
	}
	if claims.NotBefore != nil && now.Before(time.Unix(int64(*claims.NotBefore), 0)) {
		return errors.New("auth: token not yet valid")
	}
	return nil
}

// OIDCVerifier accepts tokens issued by an OIDC provider, verified against
// the provider's published signing keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// OIDCOption configures the underlying token verifier.
type OIDCOption func(*oidc.Config)

// WithClientID requires the token audience to contain clientID. Without it,
// the audience is not checked.
func WithClientID(clientID string) OIDCOption {
	return func(c *oidc.Config) {
		c.ClientID = clientID
		c.SkipClientIDCheck = false
	}
}

// NewOIDCVerifier performs discovery against issuer and creates a verifier
// for its tokens.
func NewOIDCVerifier(ctx context.Context, issuer string, opts ...OIDCOption) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("auth: query provider %q: %w", issuer, err)
	}

	cfg := &oidc.Config{SkipClientIDCheck: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return &OIDCVerifier{verifier: provider.Verifier(cfg)}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) error {
	_, err := v.verifier.Verify(ctx, token)
	return err
}
