package scheduler

import (
	"context"
	"fmt"
	"time"

	"hotel_ops_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	sweepTimeout = 2 * time.Minute
	alarmTimeout = 5 * time.Minute // Longer timeout, one send per recipient
)

// Specs holds the cron expressions for the three periodic jobs.
type Specs struct {
	OverdueSweep    string // e.g. "5 * * * *" (hourly at :05)
	EscalationSweep string // e.g. "10 * * * *" (hourly at :10)
	EventAlarms     string // e.g. "0 * * * *" (top of every hour)
}

type SweepScheduler struct {
	cronEngine  *cron.Cron
	escalations app.EscalationScheduler
	alarms      app.EventAlarmDispatcher
	logger      *logrus.Entry
	specs       Specs
}

func NewSweepScheduler(
	escalations app.EscalationScheduler,
	alarms app.EventAlarmDispatcher,
	logger *logrus.Entry,
	location *time.Location,
	specs Specs,
) *SweepScheduler {
	if location == nil {
		location = time.Local
	}
	return &SweepScheduler{
		cronEngine:  cron.New(cron.WithLocation(location)), // Hotel time, not UTC
		escalations: escalations,
		alarms:      alarms,
		logger:      logger.WithField("component", "scheduler"),
		specs:       specs,
	}
}

// Start registers the jobs and starts the cron engine. A bad cron expression registers nothing.
func (s *SweepScheduler) Start() error {
	s.logger.Info("Starting sweep scheduler...")

	jobs := []struct {
		name string
		spec string
		run  func()
	}{
		{"overdue sweep", s.specs.OverdueSweep, s.runOverdueSweep},
		{"escalation sweep", s.specs.EscalationSweep, s.runEscalationSweep},
		{"event alarms", s.specs.EventAlarms, s.runEventAlarms},
	}

	ids := make([]cron.EntryID, 0, len(jobs))
	for _, job := range jobs {
		id, err := s.cronEngine.AddFunc(job.spec, job.run)
		if err != nil {
			for _, added := range ids {
				s.cronEngine.Remove(added)
			}
			return fmt.Errorf("could not add %s cron job %q: %w", job.name, job.spec, err)
		}
		ids = append(ids, id)
	}

	s.cronEngine.Start()
	s.logger.WithField("jobs", len(ids)).Info("Sweep scheduler started.")
	return nil
}

func (s *SweepScheduler) runOverdueSweep() {
	s.logger.Debug("Cron job triggered for overdue sweep.")
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	report, err := s.escalations.SweepOverdue(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during overdue sweep")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"selected":  report.Selected,
		"notified":  report.Notified,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"off_shift": report.OffShift,
	}).Info("Overdue sweep finished.")
}

func (s *SweepScheduler) runEscalationSweep() {
	s.logger.Debug("Cron job triggered for escalation sweep.")
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	report, err := s.escalations.SweepEscalations(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during escalation sweep")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"selected":  report.Selected,
		"escalated": report.Notified,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	}).Info("Escalation sweep finished.")
}

func (s *SweepScheduler) runEventAlarms() {
	s.logger.Debug("Cron job triggered for event alarms.")
	ctx, cancel := context.WithTimeout(context.Background(), alarmTimeout)
	defer cancel()

	report, err := s.alarms.Dispatch(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Error during event alarm dispatch")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"events":    report.Events,
		"records":   report.Records,
		"throttled": report.Throttled,
		"sent":      report.Sent,
		"failed":    report.Failed,
		"off_shift": report.OffShift,
	}).Info("Event alarm dispatch finished.")
}

func (s *SweepScheduler) Stop() {
	s.logger.Info("Stopping sweep scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Sweep scheduler gracefully stopped.")
}
