package common

import (
	"context"
	"errors"
	"eventhub/src/config"
	"eventhub/src/lib"
	"eventhub/src/notifications"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu     sync.Mutex
	bodies []string
	fail   bool
}

func (h *recordingHandler) Handle(body string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies = append(h.bodies, body)
	if h.fail {
		return errors.New("bad message")
	}
	return nil
}

func (h *recordingHandler) seen() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.bodies...)
}

type fakeSQS struct {
	mu       sync.Mutex
	pending  []string
	deleted  []string
	queueURL string
}

func (f *fakeSQS) GetQueueUrl(_ context.Context, params *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	f.queueURL = "https://sqs.local/" + aws.ToString(params.QueueName)
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(f.queueURL)}, nil
}

func (f *fakeSQS) SendMessage(context.Context, *sqs.SendMessageInput, ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()
	if len(batch) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	out := &sqs.ReceiveMessageOutput{}
	for i, body := range batch {
		out.Messages = append(out.Messages, sqstypes.Message{
			Body:          aws.String(body),
			MessageId:     aws.String(body),
			ReceiptHandle: aws.String(string(rune('a' + i))),
		})
	}
	return out, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestEmailsToSendConsumerLocal(t *testing.T) {
	queue := notifications.NewLocalQueue(4)
	require.NoError(t, queue.Publish(context.Background(), []byte(`{"kind":"welcome"}`)))
	h := &recordingHandler{fail: true}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- EmailsToSendConsumer(ctx, config.NotifyConfig{Transport: "local"}, Sources{Local: queue}, h, lib.NewNullLogger())
	}()

	assert.Eventually(t, func() bool { return len(h.seen()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestEmailsToSendConsumerSQS(t *testing.T) {
	client := &fakeSQS{pending: []string{"first", "second"}}
	h := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- EmailsToSendConsumer(ctx, config.NotifyConfig{Transport: "sqs", Queue: "EmailsToSend"}, Sources{SQS: client}, h, lib.NewNullLogger())
	}()

	assert.Eventually(t, func() bool { return len(h.seen()) == 2 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{"first", "second"}, h.seen())
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Len(t, client.deleted, 2)
	assert.Equal(t, "https://sqs.local/EmailsToSend", client.queueURL)
}

type fakeSweeper struct {
	expired, reminded int
	err               error
}

func (f *fakeSweeper) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return f.expired, f.err
}

func (f *fakeSweeper) SendReminders(ctx context.Context, now time.Time) (int, error) {
	return f.reminded, f.err
}

func TestBookingJobs(t *testing.T) {
	s := &fakeSweeper{expired: 2, reminded: 1}
	assert.NoError(t, ExpiredHoldsJob(s, time.Second, lib.NewNullLogger())())
	assert.NoError(t, EventRemindersJob(s, time.Second, lib.NewNullLogger())())

	s.err = errors.New("db down")
	assert.EqualError(t, ExpiredHoldsJob(s, time.Second, lib.NewNullLogger())(), "db down")
}

func TestScheduleBookingJobs(t *testing.T) {
	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	defer sched.Shutdown()

	err = ScheduleBookingJobs(sched, &fakeSweeper{}, config.BookingConfig{
		HoldSweepInterval:     time.Minute,
		ReminderSweepInterval: time.Hour,
	}, lib.NewNullLogger())
	require.NoError(t, err)

	var names []string
	for _, j := range sched.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{"ExpiredBookingHolds", "EventReminders"}, names)
}
