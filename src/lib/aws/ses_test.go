package aws

import (
	"context"
	"errors"
	"eventhub/src/lib"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSenderSend(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, "tickets@eventhub.test", "EventHub")

	err := sender.Send(context.Background(), &lib.SendMailInput{
		To:      []string{"ada@example.com"},
		Subject: "Booking Confirmation",
		Body:    "Hi Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, `"EventHub" <tickets@eventhub.test>`, aws.ToString(client.input.Source))
	assert.Equal(t, []string{"ada@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Booking Confirmation", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "Hi Ada", aws.ToString(client.input.Message.Body.Text.Data))
	assert.Nil(t, client.input.Message.Body.Html)
}

func TestSESSenderErrors(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, "tickets@eventhub.test", "EventHub")
	assert.EqualError(t, sender.Send(context.Background(), &lib.SendMailInput{To: []string{"a@b.c"}}), "[SES] sending email: throttled")
	assert.Error(t, sender.Send(context.Background(), &lib.SendMailInput{}))
}
