// Package boot assembles the application from a loaded Config.
package boot

import (
	"context"
	"errors"
	"eventhub/src/admin"
	"eventhub/src/booking"
	"eventhub/src/common"
	"eventhub/src/config"
	"eventhub/src/controllers"
	"eventhub/src/db"
	"eventhub/src/events"
	"eventhub/src/lib"
	awslib "eventhub/src/lib/aws"
	"eventhub/src/notifications"
	"eventhub/src/payments"
	"eventhub/src/reference"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-co-op/gocron/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	minLockTTL     = 30 * time.Second
	lockMargin     = 10 * time.Second
	localQueueSize = 1024
)

// LockTTL outlives a capture together with the refund that may follow it
// under the same booking lock.
func LockTTL(cfg config.PayPalConfig) time.Duration {
	return max(minLockTTL, 2*cfg.CallBudget()+lockMargin)
}

type App struct {
	Config config.Config
	Log    *logrus.Logger
	DB     *gorm.DB
	Redis  *redis.Client

	Auth     *controllers.AuthController
	Events   *events.Service
	Bookings *booking.Service
	Payments *payments.Reconciler
	Admin    *admin.Service

	dispatcher *notifications.Dispatcher
	sources    common.Sources
	worker     *notifications.Worker
	sched      gocron.Scheduler
	cancel     context.CancelFunc
}

func InitDb(cfg config.Config, log *logrus.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(log, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	conn, err := db.Open(cfg.Database, gormLogger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		return nil, fmt.Errorf("error migration: %w", err)
	}
	return conn, nil
}

func initPublisher(ctx context.Context, app *App, awsCfg *aws.Config) (notifications.Publisher, error) {
	cfg := app.Config.Notify
	switch cfg.Transport {
	case "sqs":
		client := sqs.NewFromConfig(*awsCfg)
		app.sources.SQS = client
		return awslib.NewSQSProducer(ctx, client, cfg.Queue)
	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, errors.New("AMQP_URL is required for the amqp transport")
		}
		return lib.NewAMQPPublisher(cfg.AMQPURL, cfg.Queue), nil
	default:
		q := notifications.NewLocalQueue(localQueueSize)
		app.sources.Local = q
		return q, nil
	}
}

// New connects every dependency and builds the services. Redis and S3 are
// optional: without them the lock degrades to the conditional updates and
// image uploads are refused.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Log: log}

	conn, err := InitDb(cfg, log)
	if err != nil {
		return nil, err
	}
	app.DB = conn

	if cfg.RedisURL != "" {
		rdb, err := lib.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("[redis] ping failed, continuing without lock and cache")
			rdb.Close()
			rdb = nil
		}
		app.Redis = rdb
	}

	var awsCfg *aws.Config
	if cfg.Notify.Transport == "sqs" || cfg.Notify.MailTransport == "ses" || cfg.AWS.AssetsBucket != "" {
		c, err := lib.NewAWSConfig(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		awsCfg = &c
	}

	pub, err := initPublisher(ctx, app, awsCfg)
	if err != nil {
		return nil, err
	}
	app.dispatcher = notifications.NewDispatcher(pub, log)
	var sender notifications.Sender = lib.NewMailer(cfg.SMTP)
	if cfg.Notify.MailTransport == "ses" {
		sender = awslib.NewSESSender(ses.NewFromConfig(*awsCfg), cfg.SMTP.From, cfg.SMTP.FromName)
	}
	app.worker = notifications.NewWorker(sender, log)

	var blobs events.BlobStore
	if cfg.AWS.AssetsBucket != "" {
		blobs = awslib.NewS3BlobStore(s3.NewFromConfig(*awsCfg), cfg.AWS.AssetsBucket)
	}

	ppClient, err := lib.NewPayPalClient(cfg.PayPal)
	if err != nil {
		return nil, err
	}

	locker := lib.NewLocker(app.Redis, LockTTL(cfg.PayPal))
	app.Auth = controllers.NewAuthController(conn, cfg, app.dispatcher, log)
	app.Events = events.NewService(conn, blobs, app.Redis, log)
	app.Bookings = booking.NewService(conn, reference.NewGenerator(), app.dispatcher, locker, cfg.Booking, log)
	app.Payments = payments.NewReconciler(conn, payments.NewPayPalProvider(ppClient, cfg.PayPal), locker, app.dispatcher, cfg.PayPal, log)
	app.Admin = admin.NewService(conn, app.Bookings, app.Events)
	return app, nil
}

// Start launches the notification consumer and the booking sweeps.
func (a *App) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := common.EmailsToSendConsumer(ctx, a.Config.Notify, a.sources, a.worker, a.Log); err != nil {
			a.Log.WithError(err).Error("notification consumer stopped")
		}
	}()

	sched, err := lib.NewScheduler()
	if err != nil {
		return err
	}
	if err := common.ScheduleBookingJobs(sched, a.Bookings, a.Config.Booking, a.Log); err != nil {
		return err
	}
	sched.Start()
	a.sched = sched
	return nil
}

func (a *App) Shutdown() {
	if a.sched != nil {
		if err := a.sched.Shutdown(); err != nil {
			a.Log.WithError(err).Error("error stopping scheduler")
		}
	}
	if err := a.dispatcher.Close(); err != nil {
		a.Log.WithError(err).Error("error closing notification publisher")
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
