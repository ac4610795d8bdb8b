package rotation_test

import (
	"context"
	"testing"
	"time"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/rotation"
)

func TestScheduler_AdvancesDueRotationOnTick(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Millisecond)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	sched := rotation.NewScheduler(ctrl, time.Second)
	sched.Start()
	defer sched.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if current, ok := ctrl.Get(rot.RotationID); ok && current.CurrentState == rotation.StateOldDeprecated {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler did not advance the due rotation within the deadline")
}
