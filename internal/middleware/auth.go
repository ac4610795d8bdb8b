// Package middleware implements the gateway's own ingress gate: the
// backward-compatible credential-or-bearer check spec §1 and §6
// describe, shaped after the teacher's RequiredAuthMiddleware
// (services/gateway/api/internal/middleware/auth.go) but replacing the
// RPC call with the gateway's own authentication service and ingress
// validator.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/authsvc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/forwarder"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/ingress"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

type contextKey string

const (
	// ClientIDHeader and SecretHeader are the legacy credential pair
	// spec §1 requires the gateway to keep accepting unchanged.
	ClientIDHeader = "X-Client-ID"
	SecretHeader   = "X-Client-Secret"

	bearerPrefix = "Bearer "

	// TokenContextKey is where a validated bearer token's claims are
	// stored in the request context for downstream logic to read.
	TokenContextKey contextKey = "gateway-claims"
	// TokenStringContextKey carries the token string (minted for the
	// legacy-header path, or the bearer token as supplied) so the
	// forwarder can attach it and refresh it on a downstream 401.
	TokenStringContextKey contextKey = "gateway-token-string"
)

// Auth is the credential gate every payments route runs behind. It
// accepts either Authorization: Bearer <token> or the legacy
// X-Client-ID/X-Client-Secret header pair, translating the latter into
// a freshly minted (or reused) token exactly as spec §4.6 describes.
type Auth struct {
	auth    *authsvc.Service
	ingress *ingress.Validator
}

// New builds an Auth middleware.
func New(auth *authsvc.Service, ingressValidator *ingress.Validator) *Auth {
	return &Auth{auth: auth, ingress: ingressValidator}
}

// Handle wraps next with the credential check, writing the standard
// error body (spec §7) on failure, with the status gwerrors.HTTPStatus
// maps the error's kind to.
func (a *Auth) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(forwarder.CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, bearerPrefix) {
			a.handleBearer(w, r, next, strings.TrimPrefix(authHeader, bearerPrefix), correlationID)
			return
		}

		clientID := r.Header.Get(ClientIDHeader)
		secret := r.Header.Get(SecretHeader)
		if clientID == "" || secret == "" {
			writeError(w, gwerrors.New(gwerrors.KindMissingCredentials, "missing credentials"), correlationID)
			return
		}

		token, err := a.auth.AuthenticateHeaders(r.Context(), authsvc.Headers{
			ClientID:      clientID,
			Secret:        secret,
			CorrelationID: correlationID,
		})
		if err != nil {
			writeError(w, err, correlationID)
			return
		}

		ctx := context.WithValue(r.Context(), TokenContextKey, token.Claims)
		ctx = context.WithValue(ctx, TokenStringContextKey, token.TokenString)
		next(w, r.WithContext(ctx))
	}
}

func (a *Auth) handleBearer(w http.ResponseWriter, r *http.Request, next http.HandlerFunc, tokenString, correlationID string) {
	result, err := a.ingress.Validate(r.Context(), tokenString, "")
	if err != nil {
		writeError(w, err, correlationID)
		return
	}

	ctx := context.WithValue(r.Context(), TokenContextKey, result.Claims)
	ctx = context.WithValue(ctx, TokenStringContextKey, tokenString)
	next(w, r.WithContext(ctx))
}

// ClaimsFromContext returns the claims a preceding Auth.Handle call
// attached to ctx, if any.
func ClaimsFromContext(ctx context.Context) (tokens.Claims, bool) {
	c, ok := ctx.Value(TokenContextKey).(tokens.Claims)
	return c, ok
}

// TokenStringFromContext returns the bearer token string (minted or
// supplied) a preceding Auth.Handle call attached to ctx, if any.
func TokenStringFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(TokenStringContextKey).(string)
	return s, ok
}

func writeError(w http.ResponseWriter, err error, requestID string) {
	kind := gwerrors.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gwerrors.HTTPStatus(kind))
	body := gwerrors.Body{
		ErrorCode: gwerrors.ErrorCode(kind),
		Message:   clientSafeMessage(err),
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(body)
}

// clientSafeMessage returns the redacted *gwerrors.Error message,
// never the wrapped cause, so internal error detail never reaches a
// caller.
func clientSafeMessage(err error) string {
	var e *gwerrors.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
