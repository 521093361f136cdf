package lib

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func NewScheduler() (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("initializing scheduler: %w", err)
	}
	return sched, nil
}

// CreateCronJob registers a recurring task. A run that is still in progress
// when the next tick fires causes that tick to be skipped.
func CreateCronJob(sched gocron.Scheduler, name string, every time.Duration, handler func() error, logger *logrus.Logger) (string, error) {
	j, err := sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(handler),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				logger.WithError(err).WithField("job", jobName).Error("scheduled job failed")
			}),
		),
	)
	if err != nil {
		return "", fmt.Errorf("creating job %s: %w", name, err)
	}
	logger.WithFields(logrus.Fields{"job": name, "every": every.String(), "id": j.ID().String()}).Info("scheduled job")
	return j.ID().String(), nil
}
