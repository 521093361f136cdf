package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sirupsen/logrus"
)

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func queueURL(ctx context.Context, client SQSAPI, name string) (*string, error) {
	out, err := client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve queue URL for %s: %w", name, err)
	}
	return out.QueueUrl, nil
}

type SQSProducer struct {
	client SQSAPI
	url    *string
}

func NewSQSProducer(ctx context.Context, client SQSAPI, queue string) (*SQSProducer, error) {
	url, err := queueURL(ctx, client, queue)
	if err != nil {
		return nil, err
	}
	return &SQSProducer{client: client, url: url}, nil
}

func (p *SQSProducer) Publish(ctx context.Context, body []byte) error {
	_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    p.url,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("[SQS] sending message: %w", err)
	}
	return nil
}

func (p *SQSProducer) Close() error {
	return nil
}

type SQSConsumer struct {
	Name    string
	client  SQSAPI
	handler func(body string) error
	log     *logrus.Logger
}

func NewSQSConsumer(client SQSAPI, queue string, handler func(body string) error, log *logrus.Logger) *SQSConsumer {
	return &SQSConsumer{Name: queue, client: client, handler: handler, log: log}
}

// Listen long-polls until ctx is done. A message is deleted once its handler
// returns, whatever the outcome; failures are only logged.
func (s *SQSConsumer) Listen(ctx context.Context) error {
	url, err := queueURL(ctx, s.client, s.Name)
	if err != nil {
		return err
	}
	s.log.WithField("queue", s.Name).Info("listening for messages")
	for {
		output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            url,
			WaitTimeSeconds:     20,
			MaxNumberOfMessages: 10,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WithError(err).WithField("queue", s.Name).Error("[SQS] error receiving messages")
			return err
		}
		for _, m := range output.Messages {
			s.handle(ctx, url, m)
		}
	}
}

func (s *SQSConsumer) handle(ctx context.Context, url *string, m sqstypes.Message) {
	body := strings.Clone(aws.ToString(m.Body))
	if err := s.handler(body); err != nil {
		s.log.WithError(err).WithField("message_id", aws.ToString(m.MessageId)).Warn("[SQS] handler failed")
	}
	_, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      url,
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		s.log.WithError(err).Error("error deleting message from queue")
	}
}
