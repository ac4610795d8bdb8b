package health

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/logic/health"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
)

// LivenessHandler answers GET /api/v1/health/liveness.
func LivenessHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := health.NewHealthLogic(r.Context(), svcCtx)
		resp, err := l.Liveness()
		respond(w, r, resp, err)
	}
}

// ReadinessHandler answers GET /api/v1/health/readiness.
func ReadinessHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := health.NewHealthLogic(r.Context(), svcCtx)
		resp, err := l.Readiness()
		respond(w, r, resp, err)
	}
}

// StatusHandler answers GET /api/v1/health.
func StatusHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := health.NewHealthLogic(r.Context(), svcCtx)
		resp, err := l.Status()
		respond(w, r, resp, err)
	}
}

// DetailedHandler answers GET /api/v1/health/detailed.
func DetailedHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := health.NewHealthLogic(r.Context(), svcCtx)
		resp, err := l.Detailed()
		respond(w, r, resp, err)
	}
}

func respond(w http.ResponseWriter, r *http.Request, resp any, err error) {
	if err != nil {
		httpx.ErrorCtx(r.Context(), w, err)
		return
	}
	httpx.OkJsonCtx(r.Context(), w, resp)
}
