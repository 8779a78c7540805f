package scheduler

import (
	"time"

	"github.com/davie-sparq/bizot/internal/database"
	"github.com/davie-sparq/bizot/internal/logger"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic maintenance job that purges chat
// sessions past the retention window.
type Scheduler struct {
	cron          *cron.Cron
	db            *database.DB
	retentionDays int
}

func New(db *database.DB, retentionDays int) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		db:            db,
		retentionDays: retentionDays,
	}
}

func (s *Scheduler) Start() {
	if s.retentionDays > 0 {
		// Daily at 03:10 local time, off-peak for small deployments
		if _, err := s.cron.AddFunc("10 3 * * *", s.purgeExpiredSessions); err != nil {
			logger.Error("Failed to register retention job: %v", err)
		}
	}
	s.cron.Start()
	// Catch-up purge so sessions expired while the server was down do
	// not wait for the next scheduled run.
	s.RunRetentionNow()
	logger.Success("Scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Success("Scheduler stopped")
}

func (s *Scheduler) purgeExpiredSessions() {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	purged, err := s.db.PurgeSessionsBefore(cutoff)
	if err != nil {
		logger.Error("Session retention purge failed: %v", err)
		return
	}
	if purged > 0 {
		logger.Info("Purged %d chat sessions older than %d days", purged, s.retentionDays)
	}
}

// RunRetentionNow triggers the purge outside the cron schedule.
func (s *Scheduler) RunRetentionNow() {
	if s.retentionDays > 0 {
		s.purgeExpiredSessions()
	}
}
