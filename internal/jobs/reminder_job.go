package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"requests-service/internal/metrics"
	"requests-service/internal/models"
	"requests-service/internal/repository"
	"requests-service/internal/services"
)

// ReminderJob periodically scans for requests that have sat in pending
// longer than the threshold and nudges the approver roles once per request.
type ReminderJob struct {
	repo      repository.RequestRepositoryInterface
	notifier  *services.NotificationDispatcher
	interval  time.Duration
	threshold time.Duration
	logger    *logrus.Entry
	stop      chan struct{}
	done      chan struct{}
}

// NewReminderJob creates the job. interval is how often the scan runs,
// threshold how long a request may stay pending before a reminder.
func NewReminderJob(repo repository.RequestRepositoryInterface, notifier *services.NotificationDispatcher, interval, threshold time.Duration, logger *logrus.Logger) *ReminderJob {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReminderJob{
		repo:      repo,
		notifier:  notifier,
		interval:  interval,
		threshold: threshold,
		logger:    logger.WithField("component", "reminder-job"),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the scan loop until Stop is called or ctx is cancelled
func (j *ReminderJob) Start(ctx context.Context) {
	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.logger.WithFields(logrus.Fields{
			"interval":  j.interval.String(),
			"threshold": j.threshold.String(),
		}).Info("Reminder job started")

		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stop:
				return
			case <-ticker.C:
				j.runOnce(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it
func (j *ReminderJob) Stop() {
	close(j.stop)
	<-j.done
}

func (j *ReminderJob) runOnce(ctx context.Context) {
	stale, err := j.repo.FindStalePending(ctx, time.Now().Add(-j.threshold))
	if err != nil {
		j.logger.WithError(err).Error("Failed to scan for stale pending requests")
		return
	}

	for i := range stale {
		request := &stale[i]

		j.notifier.Dispatch(ctx, request.TenantID, models.TargetRoles(models.ApproverRoles...), services.NotificationPayload{
			RequestID: &request.ID,
			Type:      models.NotificationPendingReminder,
			Title:     fmt.Sprintf("Request %s still pending", request.RequestNumber),
			Message:   fmt.Sprintf("%q has been awaiting approval since %s.", request.Title, request.CreatedAt.Format("2006-01-02 15:04")),
		})

		if err := j.repo.MarkReminded(ctx, request.ID, time.Now()); err != nil {
			j.logger.WithField("requestNumber", request.RequestNumber).
				WithError(err).Error("Failed to mark request as reminded")
			continue
		}
		metrics.PendingRemindersTotal.Inc()
	}

	if len(stale) > 0 {
		j.logger.WithField("count", len(stale)).Info("Sent pending reminders")
	}
}
