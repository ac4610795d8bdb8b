// Package handler registers every route the gateway serves: the
// vendor-facing payments proxy (behind the credential/bearer gate),
// the health group, the operator-scoped rotation control API, and the
// Prometheus scrape endpoint. Mirrors the teacher's handler.RegisterHandlers
// entry point (services/gateway/growth/growthapi.go calls it the same way).
package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	healthhandler "github.com/suleymanmyradov/payment-auth-gateway/internal/handler/health"
	paymentshandler "github.com/suleymanmyradov/payment-auth-gateway/internal/handler/payments"
	rotationshandler "github.com/suleymanmyradov/payment-auth-gateway/internal/handler/rotations"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/metrics"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/middleware"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
)

// RegisterHandlers wires every route onto server.
func RegisterHandlers(server *rest.Server, svcCtx *svc.ServiceContext) {
	auth := middleware.New(svcCtx.Auth, svcCtx.Ingress)

	server.AddRoutes([]rest.Route{
		{Method: http.MethodGet, Path: "/api/v1/health", Handler: healthhandler.StatusHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/health/detailed", Handler: healthhandler.DetailedHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/health/liveness", Handler: healthhandler.LivenessHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/health/readiness", Handler: healthhandler.ReadinessHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/metrics", Handler: metrics.Handler().ServeHTTP},
	})

	server.AddRoutes([]rest.Route{
		{Method: http.MethodPost, Path: "/api/v1/payments", Handler: auth.Handle(paymentshandler.ForwardPaymentHandler(svcCtx))},
		{Method: http.MethodGet, Path: "/api/v1/payments/:id", Handler: auth.Handle(paymentshandler.ForwardPaymentHandler(svcCtx))},
	})

	server.AddRoutes([]rest.Route{
		{Method: http.MethodPost, Path: "/api/v1/rotations/initiate", Handler: rotationshandler.InitiateHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/rotations/active", Handler: rotationshandler.ListActiveHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/rotations/client/:clientId", Handler: rotationshandler.ListByClientHandler(svcCtx)},
		{Method: http.MethodGet, Path: "/api/v1/rotations/:id", Handler: rotationshandler.GetHandler(svcCtx)},
		{Method: http.MethodPut, Path: "/api/v1/rotations/:id/advance", Handler: rotationshandler.AdvanceHandler(svcCtx)},
		{Method: http.MethodDelete, Path: "/api/v1/rotations/:id", Handler: rotationshandler.CancelHandler(svcCtx)},
	})
}
