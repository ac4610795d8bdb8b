package rotation

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler drives Controller.CheckProgress on a fixed interval, the
// periodic tick of spec §4.9's rotation scheduler (default every 30s
// per spec §6, distinct from the per-rotation transitionPeriod each
// rotation carries).
type Scheduler struct {
	controller *Controller
	cron       *cron.Cron
	entryID    cron.EntryID
}

// NewScheduler builds a Scheduler that calls controller.CheckProgress
// every interval. interval below one second is rejected in favor of a
// 30-second default, matching spec §6's
// rotation.monitoringIntervalSeconds default.
func NewScheduler(controller *Controller, interval time.Duration) *Scheduler {
	if interval < time.Second {
		interval = 30 * time.Second
	}

	s := &Scheduler{controller: controller, cron: cron.New(), entryID: -1}

	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.controller.CheckProgress(context.Background())
	})
	if err != nil {
		// AddFunc only fails on a malformed spec; "@every <duration>"
		// with a valid time.Duration.String() output never is.
		panic(fmt.Sprintf("rotation: invalid scheduler interval %s: %v", interval, err))
	}
	s.entryID = id
	return s
}

// Start begins the periodic tick. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
