package aws

import (
	"context"
	"errors"
	"eventhub/src/lib"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender delivers notification mail through SES instead of SMTP.
type SESSender struct {
	client   SESAPI
	from     string
	fromName string
}

func NewSESSender(client SESAPI, from, fromName string) *SESSender {
	return &SESSender{client: client, from: from, fromName: fromName}
}

func (s *SESSender) Send(ctx context.Context, input *lib.SendMailInput) error {
	if len(input.To) == 0 {
		return errors.New("[SES] message has no recipients")
	}
	from, fromName := input.From, input.FromName
	if from == "" {
		from, fromName = s.from, s.fromName
	}
	source := (&mail.Address{Name: fromName, Address: from}).String()

	body := &types.Body{}
	content := &types.Content{Data: aws.String(input.Body), Charset: aws.String("UTF-8")}
	if input.Html {
		body.Html = content
	} else {
		body.Text = content
	}
	params := &ses.SendEmailInput{
		Source: aws.String(source),
		Destination: &types.Destination{
			ToAddresses:  input.To,
			CcAddresses:  input.Cc,
			BccAddresses: input.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(input.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
	if input.ReplyTo != "" {
		params.ReplyToAddresses = []string{input.ReplyTo}
	}
	if _, err := s.client.SendEmail(ctx, params); err != nil {
		return fmt.Errorf("[SES] sending email: %w", err)
	}
	return nil
}
