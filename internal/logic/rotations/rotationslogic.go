package rotations

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/rotation"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/svc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/types"
)

// RotationsLogic implements the operator-scoped rotation control API
// of spec §6: initiate/get/list/advance/cancel over the in-process
// rotation.Controller.
type RotationsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRotationsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RotationsLogic {
	return &RotationsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Initiate starts a new rotation for req.ClientID.
func (l *RotationsLogic) Initiate(req *types.RotationInitiateRequest) (*types.RotationResponse, error) {
	window := time.Duration(req.TransitionPeriodMinutes) * time.Minute
	if window <= 0 {
		window = time.Duration(l.svcCtx.Config.Rotation.DefaultTransitionMinutes) * time.Minute
	}

	rot, err := l.svcCtx.Rotation.InitiateRotation(l.ctx, req.ClientID, req.Reason, window)
	if err != nil {
		return nil, err
	}
	return toResponse(rot), nil
}

// Get returns a single rotation by id.
func (l *RotationsLogic) Get(req *types.RotationIDPathRequest) (*types.RotationResponse, error) {
	rot, ok := l.svcCtx.Rotation.Get(req.ID)
	if !ok {
		return nil, rotationNotFound()
	}
	return toResponse(rot), nil
}

// ListByClient lists every rotation (active or historical) recorded
// for a client.
func (l *RotationsLogic) ListByClient(req *types.RotationClientPathRequest) (*types.RotationListResponse, error) {
	rots := l.svcCtx.Rotation.ListByClient(req.ClientID)
	return &types.RotationListResponse{Rotations: toResponses(rots)}, nil
}

// ListActive lists every rotation currently in a non-terminal state.
func (l *RotationsLogic) ListActive() (*types.RotationListResponse, error) {
	rots := l.svcCtx.Rotation.ListActive()
	return &types.RotationListResponse{Rotations: toResponses(rots)}, nil
}

// Advance moves a rotation to its next (or an explicitly named
// terminal) state.
func (l *RotationsLogic) Advance(req *types.RotationAdvanceRequest) (*types.RotationResponse, error) {
	target := rotation.State(req.TargetState)
	if target == "" {
		target = nextStateAfter(l.svcCtx.Rotation, req.ID)
	}
	rot, err := l.svcCtx.Rotation.Advance(l.ctx, req.ID, target)
	if err != nil {
		return nil, err
	}
	return toResponse(rot), nil
}

// Cancel aborts a rotation in progress, rolling back the new
// credential version.
func (l *RotationsLogic) Cancel(req *types.RotationCancelRequest) (*types.RotationResponse, error) {
	rot, err := l.svcCtx.Rotation.Cancel(l.ctx, req.ID, req.Reason)
	if err != nil {
		return nil, err
	}
	return toResponse(rot), nil
}

func rotationNotFound() error {
	return gwerrors.New(gwerrors.KindRotationNotFound, "rotation not found")
}

func nextStateAfter(ctrl *rotation.Controller, rotationID string) rotation.State {
	rot, ok := ctrl.Get(rotationID)
	if !ok {
		return rotation.StateFailed
	}
	switch rot.CurrentState {
	case rotation.StateInitiated:
		return rotation.StateDualActive
	case rotation.StateDualActive:
		return rotation.StateOldDeprecated
	case rotation.StateOldDeprecated:
		return rotation.StateNewActive
	default:
		return rot.CurrentState
	}
}

func toResponse(rot *rotation.Rotation) *types.RotationResponse {
	resp := &types.RotationResponse{
		RotationID:   rot.RotationID,
		ClientID:     rot.ClientID,
		CurrentState: string(rot.CurrentState),
		OldVersion:   rot.OldVersion,
		NewVersion:   rot.NewVersion,
		StartedAt:    rot.StartedAt.UTC().Format(time.RFC3339),
		Success:      rot.Success,
		Message:      rot.Message,
	}
	if rot.CompletedAt != nil {
		resp.CompletedAt = rot.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func toResponses(rots []*rotation.Rotation) []types.RotationResponse {
	out := make([]types.RotationResponse, 0, len(rots))
	for _, r := range rots {
		out = append(out, *toResponse(r))
	}
	return out
}
