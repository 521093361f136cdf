package models

import (
	"eventhub/src/types"
	"time"

	"github.com/shopspring/decimal"
)

type Booking struct {
	ID               uint                `gorm:"primarykey" json:"id"`
	BookingReference string              `gorm:"uniqueIndex;size:32;not null" json:"bookingReference"`
	UserID           uint                `gorm:"index;not null" json:"userId"`
	EventID          uint                `gorm:"index;not null" json:"eventId"`
	Tickets          types.BookedTickets `gorm:"type:jsonb" json:"tickets"`
	TotalAmount      decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"totalAmount"`
	AttendeeInfo     types.AttendeeInfo  `gorm:"embedded;embeddedPrefix:attendee_" json:"attendeeInfo"`
	PaymentStatus    types.PaymentStatus `gorm:"default:'pending';index" json:"paymentStatus"`
	PaymentMethod    types.PaymentMethod `gorm:"default:'paypal'" json:"paymentMethod"`
	PaypalOrderID    *string             `gorm:"index" json:"paypalOrderId,omitempty"`
	PaypalPaymentID  *string             `json:"paypalPaymentId,omitempty"`
	Status           types.BookingStatus `gorm:"default:'confirmed';index" json:"status"`
	// HoldExpiresAt is set while an online payment is outstanding.
	HoldExpiresAt     *time.Time `gorm:"index" json:"holdExpiresAt,omitempty"`
	InventoryReleased bool       `gorm:"default:false" json:"-"`
	ReminderSent      bool       `gorm:"default:false" json:"reminderSent"`

	Event *Event `gorm:"foreignKey:event_id" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:user_id" json:"user,omitempty"`

	types.Timestamps
}

func (b *Booking) IsOwnedBy(userID uint) bool {
	return b.UserID == userID
}
