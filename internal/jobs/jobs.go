// Package jobs runs the backend's recurring maintenance work on a cron
// schedule: flushing the notification outbox, uploading nightly database
// snapshots, and pruning old admin activity logs.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/audit"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/backup"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/config"
	"github.com/KentaroKojima0029/daiko.kanucard.support/internal/notify"
)

const adminLogRetention = 90 * 24 * time.Hour

// Scheduler wires the recurring jobs to their cron expressions.
type Scheduler struct {
	cron       *cron.Cron
	cfg        config.SchedulerConfig
	dispatcher *notify.Dispatcher
	uploader   *backup.Uploader
	auditor    *audit.Recorder
}

// NewScheduler builds a Scheduler and registers every configured job.
func NewScheduler(cfg config.SchedulerConfig, dispatcher *notify.Dispatcher, uploader *backup.Uploader, auditor *audit.Recorder) *Scheduler {
	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		cfg:        cfg,
		dispatcher: dispatcher,
		uploader:   uploader,
		auditor:    auditor,
	}
	s.registerJobs()
	return s
}

func (s *Scheduler) registerJobs() {
	if _, err := s.cron.AddFunc(s.cfg.FlushNotifications, s.flushNotifications); err != nil {
		log.WithError(err).Error("failed to register notification flush job")
	}
	if s.uploader.Enabled() {
		if _, err := s.cron.AddFunc(s.cfg.NightlyBackup, s.nightlyBackup); err != nil {
			log.WithError(err).Error("failed to register nightly backup job")
		}
	}
	if _, err := s.cron.AddFunc(s.cfg.PruneAdminLogs, s.pruneAdminLogs); err != nil {
		log.WithError(err).Error("failed to register admin log prune job")
	}
}

func (s *Scheduler) flushNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sent, failed := s.dispatcher.Flush(ctx)
	if sent > 0 || failed > 0 {
		log.WithFields(log.Fields{"sent": sent, "failed": failed}).Info("notification outbox flushed")
	}
}

func (s *Scheduler) nightlyBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	remote, err := s.uploader.Run(ctx)
	if err != nil {
		if errors.Is(err, backup.ErrUnsupported) {
			log.Warn("nightly backup skipped, database has no local snapshot file")
			return
		}
		log.WithError(err).Error("nightly backup failed")
		return
	}
	s.auditor.Record("system", "backup.nightly", "", map[string]string{"remotePath": remote})
}

func (s *Scheduler) pruneAdminLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pruned, err := s.auditor.Prune(ctx, adminLogRetention)
	if err != nil {
		log.WithError(err).Error("admin log prune failed")
		return
	}
	if pruned > 0 {
		log.WithField("pruned", pruned).Info("old admin log entries removed")
	}
}

// Start begins running the registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("scheduler started")
}

// Stop waits for any in-flight job to finish before returning.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("scheduler stopped")
}
