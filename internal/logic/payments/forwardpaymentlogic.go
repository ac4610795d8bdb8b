package payments

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/forwarder"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/middleware"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

// externalPrefix is the vendor-facing path prefix every payments route
// is registered under; internalPrefix is what the downstream service
// expects in its place, per spec §6.
const (
	externalPrefix = "/api/v1"
	internalPrefix = "/internal/v1"
)

func toInternalPath(path string) string {
	return internalPrefix + strings.TrimPrefix(path, externalPrefix)
}

// ForwardPaymentLogic implements spec §4.7: relay an already-authenticated
// request to the downstream payment service, attaching the caller's
// token and correlation id.
type ForwardPaymentLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewForwardPaymentLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ForwardPaymentLogic {
	return &ForwardPaymentLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Forward builds the downstream request from r and replays the
// forwarder's response onto w, preserving status code and body.
func (l *ForwardPaymentLogic) Forward(w http.ResponseWriter, r *http.Request) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	tokenString, _ := middleware.TokenStringFromContext(r.Context())
	claims, _ := middleware.ClaimsFromContext(r.Context())
	correlationID := r.Header.Get(forwarder.CorrelationIDHeader)

	resp, err := l.svcCtx.Forwarder.Forward(l.ctx, forwarder.Request{
		Method:        r.Method,
		Path:          toInternalPath(r.URL.Path),
		Body:          body,
		Token:         &tokens.Token{TokenString: tokenString, Claims: claims, ClientID: claims.Subject},
		CorrelationID: correlationID,
	})
	if err != nil {
		return err
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, err = w.Write(resp.Body)
	return err
}
