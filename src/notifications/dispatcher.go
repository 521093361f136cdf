package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"eventhub/src/lib"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Notifier is what the booking and payment flows depend on.
type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

type Publisher interface {
	Publish(ctx context.Context, body []byte) error
	Close() error
}

const publishTimeout = 10 * time.Second

// Dispatcher publishes each message on its own goroutine, detached from the
// request context, so a slow or broken queue never delays the caller.
type Dispatcher struct {
	pub Publisher
	log *logrus.Logger
	wg  sync.WaitGroup
}

func NewDispatcher(pub Publisher, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{pub: pub, log: log}
}

func (d *Dispatcher) Notify(ctx context.Context, msg Message) {
	if msg.To == "" {
		d.log.WithField("kind", msg.Kind).Warn("notification has no recipient, skipping")
		return
	}
	body, err := json.Marshal(msg)
	if err != nil {
		d.log.WithError(err).WithField("kind", msg.Kind).Error("could not encode notification")
		lib.NotificationsPublished.WithLabelValues(string(msg.Kind), "failed").Inc()
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := d.pub.Publish(pctx, body); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{"kind": msg.Kind, "id": msg.ID}).Error("error sending message to queue")
			lib.NotificationsPublished.WithLabelValues(string(msg.Kind), "failed").Inc()
			return
		}
		lib.NotificationsPublished.WithLabelValues(string(msg.Kind), "queued").Inc()
	}()
}

// Close waits for in-flight publishes, then closes the publisher.
func (d *Dispatcher) Close() error {
	d.wg.Wait()
	return d.pub.Close()
}

var ErrQueueFull = errors.New("notification queue is full")

// LocalQueue is an in-process transport for single-instance deployments.
type LocalQueue struct {
	ch     chan []byte
	once   sync.Once
	closed chan struct{}
}

func NewLocalQueue(size int) *LocalQueue {
	return &LocalQueue{ch: make(chan []byte, size), closed: make(chan struct{})}
}

func (q *LocalQueue) Publish(ctx context.Context, body []byte) error {
	select {
	case <-q.closed:
		return errors.New("notification queue is closed")
	default:
	}
	select {
	case q.ch <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *LocalQueue) Close() error {
	q.once.Do(func() { close(q.closed) })
	return nil
}

// Consume drains the queue until ctx is cancelled or the queue is closed.
func (q *LocalQueue) Consume(ctx context.Context, handler func(body string) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.closed:
			for {
				select {
				case body := <-q.ch:
					_ = handler(string(body))
				default:
					return
				}
			}
		case body := <-q.ch:
			_ = handler(string(body))
		}
	}
}
