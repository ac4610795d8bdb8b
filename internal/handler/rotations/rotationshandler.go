package rotations

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/zeromicro/go-zero/rest/httpx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/logic/rotations"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/types"
)

var bodyValidator = validator.New()

// InitiateHandler answers POST /api/v1/rotations/initiate.
func InitiateHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RotationInitiateRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		if err := bodyValidator.Struct(&req); err != nil {
			httpx.ErrorCtx(r.Context(), w, gwerrors.Wrap(gwerrors.KindMissingHeader, "invalid rotation request body", err))
			return
		}

		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.Initiate(&req)
		if err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}
		httpx.WriteJsonCtx(r.Context(), w, http.StatusCreated, resp)
	}
}

// GetHandler answers GET /api/v1/rotations/{id}.
func GetHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RotationIDPathRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.Get(&req)
		respond(w, r, resp, err)
	}
}

// ListByClientHandler answers GET /api/v1/rotations/client/{clientId}.
func ListByClientHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RotationClientPathRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.ListByClient(&req)
		respond(w, r, resp, err)
	}
}

// ListActiveHandler answers GET /api/v1/rotations/active.
func ListActiveHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.ListActive()
		respond(w, r, resp, err)
	}
}

// AdvanceHandler answers PUT /api/v1/rotations/{id}/advance.
func AdvanceHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RotationAdvanceRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.Advance(&req)
		respond(w, r, resp, err)
	}
}

// CancelHandler answers DELETE /api/v1/rotations/{id}.
func CancelHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RotationCancelRequest
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := rotations.NewRotationsLogic(r.Context(), svcCtx)
		resp, err := l.Cancel(&req)
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
