package health

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/types"
)

// HealthLogic implements the health endpoint group spec §9.1
// supplements: a fixed {status, checks} shape. Only the vault is
// probed; the token cache is reported as ok without a probe.
type HealthLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHealthLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HealthLogic {
	return &HealthLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Liveness always reports ok: it answers "is the process running",
// never a dependency check.
func (l *HealthLogic) Liveness() (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

// Readiness reports ok only when the vault is reachable; the gateway
// cannot authenticate anyone while it is not.
func (l *HealthLogic) Readiness() (*types.HealthResponse, error) {
	if !l.svcCtx.Vault.IsAvailable(l.ctx) {
		return &types.HealthResponse{Status: "degraded", Checks: map[string]string{"vault": "unavailable"}}, nil
	}
	return &types.HealthResponse{Status: "ok", Checks: map[string]string{"vault": "ok"}}, nil
}

// Status is the coarse top-level health summary.
func (l *HealthLogic) Status() (*types.HealthResponse, error) {
	return l.Detailed()
}

// Detailed reports per-dependency status: the vault is probed, while
// the cache entry is always "ok" because its backend is not probed.
func (l *HealthLogic) Detailed() (*types.HealthResponse, error) {
	checks := map[string]string{}

	if l.svcCtx.Vault.IsAvailable(l.ctx) {
		checks["vault"] = "ok"
	} else {
		checks["vault"] = "unavailable"
	}
	checks["cache"] = "ok"

	status := "ok"
	for _, v := range checks {
		if v != "ok" {
			status = "degraded"
			break
		}
	}
	return &types.HealthResponse{Status: status, Checks: checks}, nil
}
