package services

import (
	"context"
	"fmt"
	"log"

	"shopcore/internal/config"

	"github.com/robfig/cron/v3"
)

// DispatchService runs the periodic delivery sweep. SkipIfStillRunning
// guarantees at most one sweep in flight, so a slow gateway cannot pile
// overlapping sweeps onto the same due rows.
type DispatchService struct {
	cron          *cron.Cron
	notifications *NotificationService
	cfg           *config.Config
}

// NewDispatchService creates a new dispatch service
func NewDispatchService(notifications *NotificationService, cfg *config.Config) *DispatchService {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	return &DispatchService{
		cron:          c,
		notifications: notifications,
		cfg:           cfg,
	}
}

// Start schedules the sweep and starts the cron scheduler
func (s *DispatchService) Start() error {
	interval := s.cfg.Notification.SweepIntervalSecs
	if interval <= 0 {
		interval = 60
	}

	spec := fmt.Sprintf("@every %ds", interval)
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.notifications.DispatchDue(context.Background()); err != nil {
			log.Printf("❌ Notification sweep failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("🔔 Notification dispatcher started [interval: %ds]", interval)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish
func (s *DispatchService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Notification dispatcher stopped")
}
