// Package scheduler runs periodic maintenance through the task queue.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/exambank/exambank/internal/tasks"
)

// MaintenanceScheduler periodically enqueues the cleanup tasks: orphan
// tag removal and audit event retention.
type MaintenanceScheduler struct {
	tasks              *tasks.Client
	schedule           string
	auditRetentionDays int

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a new scheduler instance.
func NewMaintenanceScheduler(taskClient *tasks.Client, schedule string, auditRetentionDays int) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		tasks:              taskClient,
		schedule:           schedule,
		auditRetentionDays: auditRetentionDays,
		cron:               cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.schedule == "" {
		log.Printf("Maintenance scheduler: disabled (no schedule configured)")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runMaintenance()
	})
	if err != nil {
		return fmt.Errorf("invalid maintenance schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Maintenance scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Maintenance scheduler: stopped")
}

// RunNow triggers an immediate maintenance run.
func (s *MaintenanceScheduler) RunNow() {
	go s.runMaintenance()
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next maintenance run will occur.
func (s *MaintenanceScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runMaintenance enqueues the cleanup tasks. Actual work happens in the
// task queue workers.
func (s *MaintenanceScheduler) runMaintenance() {
	if _, err := s.tasks.Add(tasks.CleanupOrphanTagsTask{}).Save(); err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue orphan tag cleanup: %v", err)
	}

	task := tasks.CleanupAuditEventsTask{RetentionDays: s.auditRetentionDays}
	if _, err := s.tasks.Add(task).Save(); err != nil {
		log.Printf("Maintenance scheduler: failed to enqueue audit cleanup: %v", err)
	}
}
