// Package scheduler wires up the cron job that periodically re-runs the
// batch ingest, so freshly uploaded batches get loaded without restarts.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron around a run function.
type Scheduler struct {
	cron *cron.Cron
	spec string // cron spec, e.g. "@every 6h"
	run  func()
}

// New creates a Scheduler firing per the given cron spec.
func New(spec string, run func()) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.DefaultLogger)),
		spec: spec,
		run:  run,
	}
}

// Start registers the job and starts the scheduler. Also runs once
// immediately so new deployments don't wait for the first tick.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.run)
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	go s.run()

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}
