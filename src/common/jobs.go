package common

import (
	"context"
	"eventhub/src/booking"
	"eventhub/src/config"
	"eventhub/src/lib"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

type Sweeper interface {
	ExpireHolds(ctx context.Context, now time.Time) (int, error)
	SendReminders(ctx context.Context, now time.Time) (int, error)
}

var _ Sweeper = (*booking.Service)(nil)

// ExpiredHoldsJob releases the seats of unpaid online bookings whose hold ran out.
func ExpiredHoldsJob(s Sweeper, timeout time.Duration, log *logrus.Logger) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := s.ExpireHolds(ctx, time.Now().UTC())
		if n > 0 {
			log.WithField("released", n).Info("expired booking holds")
		}
		return err
	}
}

func EventRemindersJob(s Sweeper, timeout time.Duration, log *logrus.Logger) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		n, err := s.SendReminders(ctx, time.Now().UTC())
		if n > 0 {
			log.WithField("sent", n).Info("queued event reminders")
		}
		return err
	}
}

func ScheduleBookingJobs(sched gocron.Scheduler, s Sweeper, cfg config.BookingConfig, log *logrus.Logger) error {
	jobs := []struct {
		name  string
		every time.Duration
		run   func() error
	}{
		{"ExpiredBookingHolds", cfg.HoldSweepInterval, ExpiredHoldsJob(s, cfg.HoldSweepInterval, log)},
		{"EventReminders", cfg.ReminderSweepInterval, EventRemindersJob(s, cfg.ReminderSweepInterval, log)},
	}
	for _, j := range jobs {
		if _, err := lib.CreateCronJob(sched, j.name, j.every, j.run, log); err != nil {
			return err
		}
	}
	return nil
}
