package payments

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/logic/payments"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
)

// ForwardPaymentHandler proxies any method/path under the payments
// prefix to the downstream service once middleware.Auth has attached a
// validated token to the request context.
func ForwardPaymentHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := payments.NewForwardPaymentLogic(r.Context(), svcCtx)
		if err := l.Forward(w, r); err != nil {
			writeError(w, err, r.Header.Get("X-Correlation-ID"))
		}
	}
}

func writeError(w http.ResponseWriter, err error, requestID string) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	kind := gwerrors.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(gwerrors.HTTPStatus(kind))
	body := gwerrors.Body{
		ErrorCode: gwerrors.ErrorCode(kind),
		Message:   "failed to reach downstream payment service",
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	_ = json.NewEncoder(w).Encode(body)
}
