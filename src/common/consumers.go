// Package common holds the background loops that run next to the API:
// the notification consumer and the booking sweeps.
package common

import (
	"context"
	"eventhub/src/config"
	"eventhub/src/lib"
	awslib "eventhub/src/lib/aws"
	"eventhub/src/notifications"

	"github.com/sirupsen/logrus"
)

// Sources holds the transport handles; only the one matching the configured
// transport has to be set.
type Sources struct {
	Local *notifications.LocalQueue
	SQS   awslib.SQSAPI
}

type Handler interface {
	Handle(body string) error
}

// EmailsToSendConsumer blocks until ctx is cancelled, feeding every queued
// notification to the handler. A failed message is logged and dropped.
func EmailsToSendConsumer(ctx context.Context, cfg config.NotifyConfig, src Sources, h Handler, log *logrus.Logger) error {
	handle := func(body string) error {
		if err := h.Handle(body); err != nil {
			log.WithError(err).WithField("transport", cfg.Transport).Warn("notification dropped")
			return err
		}
		return nil
	}
	log.WithFields(logrus.Fields{"transport": cfg.Transport, "queue": cfg.Queue}).Info("starting notification consumer")
	switch cfg.Transport {
	case "sqs":
		return awslib.NewSQSConsumer(src.SQS, cfg.Queue, handle, log).Listen(ctx)
	case "amqp":
		lib.ConsumeAMQP(ctx, cfg.AMQPURL, cfg.Queue, handle, log)
		return nil
	default:
		src.Local.Consume(ctx, handle)
		return nil
	}
}
