package notifications

import (
	"context"
	"errors"
	"eventhub/src/lib"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

type Sender interface {
	Send(ctx context.Context, input *lib.SendMailInput) error
}

const sendTimeout = 30 * time.Second

// Worker turns queued messages into emails.
type Worker struct {
	sender Sender
	log    *logrus.Logger
}

func NewWorker(sender Sender, log *logrus.Logger) *Worker {
	return &Worker{sender: sender, log: log}
}

// Handle is the consumer callback for every transport. The error it returns
// is informational; transports drop the message either way.
func (w *Worker) Handle(body string) error {
	if !gjson.Valid(body) {
		err := errors.New("received invalid json body")
		w.log.WithError(err).Warn("[Notifications] aborting")
		return err
	}
	msg := gjson.Parse(body)
	kind := Kind(msg.Get("kind").String())
	to := msg.Get("to").String()
	fields := logrus.Fields{"id": msg.Get("id").String(), "kind": kind}
	if to == "" {
		err := errors.New("message has no recipient")
		w.log.WithFields(fields).WithError(err).Warn("[Notifications] dropping message")
		return err
	}
	text, err := render(kind, msg)
	if err != nil {
		w.log.WithFields(fields).WithError(err).Warn("[Notifications] dropping message")
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	err = w.sender.Send(ctx, &lib.SendMailInput{
		To:      []string{to},
		Subject: msg.Get("subject").String(),
		Body:    text,
	})
	if err != nil {
		w.log.WithFields(fields).WithError(err).Error("[Notifications] email delivery failed")
		lib.NotificationsPublished.WithLabelValues(string(kind), "undelivered").Inc()
		return err
	}
	lib.NotificationsPublished.WithLabelValues(string(kind), "delivered").Inc()
	w.log.WithFields(fields).Info("[Notifications] email sent")
	return nil
}

func render(kind Kind, msg gjson.Result) (string, error) {
	name := msg.Get("name").String()
	if name == "" {
		name = "there"
	}
	data := msg.Get("data")
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	switch kind {
	case KindWelcome:
		b.WriteString("Thanks for joining EventHub. Browse upcoming events and book your tickets any time.\n")
	case KindBookingConfirmation:
		fmt.Fprintf(&b, "Your booking %s for %s is confirmed.\n\n", data.Get("bookingReference").String(), data.Get("eventTitle").String())
		writeBookingSummary(&b, data)
	case KindPaymentReceived:
		fmt.Fprintf(&b, "We received your payment of %s for booking %s.\n\n", data.Get("totalAmount").String(), data.Get("bookingReference").String())
		writeBookingSummary(&b, data)
	case KindEventReminder:
		fmt.Fprintf(&b, "%s starts soon. Bring your booking reference %s.\n\n", data.Get("eventTitle").String(), data.Get("bookingReference").String())
		writeBookingSummary(&b, data)
	default:
		return "", fmt.Errorf("unknown notification kind %q", kind)
	}
	b.WriteString("\nThe EventHub team\n")
	return b.String(), nil
}

func writeBookingSummary(b *strings.Builder, data gjson.Result) {
	if v := data.Get("eventDate").String(); v != "" {
		fmt.Fprintf(b, "Date: %s %s\n", v, data.Get("startTime").String())
	}
	if v := data.Get("venue").String(); v != "" {
		fmt.Fprintf(b, "Venue: %s\n", v)
	}
	var lines []string
	data.Get("tickets").ForEach(func(tier, qty gjson.Result) bool {
		lines = append(lines, fmt.Sprintf("%s x%d", tier.String(), qty.Int()))
		return true
	})
	sort.Strings(lines)
	if len(lines) > 0 {
		fmt.Fprintf(b, "Tickets: %s\n", strings.Join(lines, ", "))
	}
	fmt.Fprintf(b, "Total: %s\n", data.Get("totalAmount").String())
}
