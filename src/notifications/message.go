// Package notifications carries email side-effects out of the request path.
// Producers enqueue a Message; a worker renders and sends it. Nothing here
// ever reports failure back to a booking or payment.
package notifications

import (
	"eventhub/src/models"
	"eventhub/src/types"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindWelcome             Kind = "welcome"
	KindBookingConfirmation Kind = "booking_confirmation"
	KindPaymentReceived     Kind = "payment_received"
	KindEventReminder       Kind = "event_reminder"
)

type Message struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	To        string         `json:"to"`
	Name      string         `json:"name"`
	Subject   string         `json:"subject"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func newMessage(kind Kind, to, name, subject string, data map[string]any) Message {
	return Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Name:      name,
		Subject:   subject,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

func Welcome(u *models.User) Message {
	return newMessage(KindWelcome, u.Email, u.Name, "Welcome to EventHub", nil)
}

func bookingData(b *models.Booking, e *models.Event) map[string]any {
	data := map[string]any{
		"bookingId":        b.ID,
		"bookingReference": b.BookingReference,
		"totalAmount":      b.TotalAmount.StringFixed(2),
		"paymentMethod":    string(b.PaymentMethod),
	}
	tickets := map[string]int{}
	for _, t := range types.TIERS {
		if q := b.Tickets.Get(t).Quantity; q > 0 {
			tickets[string(t)] = q
		}
	}
	data["tickets"] = tickets
	if e != nil {
		data["eventTitle"] = e.Title
		data["eventDate"] = e.Date.Format("Monday, January 2, 2006")
		data["startTime"] = e.StartTime
		data["venue"] = fmt.Sprintf("%s, %s", e.Venue.Name, e.Venue.City)
	}
	return data
}

// recipient prefers the attendee contact captured on the booking.
func recipient(b *models.Booking) (string, string) {
	if b.AttendeeInfo.Email != "" {
		return b.AttendeeInfo.Email, b.AttendeeInfo.Name
	}
	if b.User != nil {
		return b.User.Email, b.User.Name
	}
	return "", ""
}

func BookingConfirmation(b *models.Booking, e *models.Event) Message {
	to, name := recipient(b)
	return newMessage(KindBookingConfirmation, to, name, "Booking Confirmation - "+b.BookingReference, bookingData(b, e))
}

func PaymentReceived(b *models.Booking, e *models.Event) Message {
	to, name := recipient(b)
	return newMessage(KindPaymentReceived, to, name, "Payment received - "+b.BookingReference, bookingData(b, e))
}

func EventReminder(b *models.Booking, e *models.Event) Message {
	to, name := recipient(b)
	subject := "Reminder: your event is coming up"
	if e != nil {
		subject = "Reminder: " + e.Title + " is coming up"
	}
	return newMessage(KindEventReminder, to, name, subject, bookingData(b, e))
}
