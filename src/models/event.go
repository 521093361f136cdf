package models

import (
	"eventhub/src/types"
	"strings"
	"time"
)

type Event struct {
	ID          uint                `gorm:"primarykey" json:"id"`
	Slug        string              `gorm:"uniqueIndex;size:255" json:"slug"`
	Title       string              `gorm:"not null" json:"title"`
	Description string              `json:"description"`
	Category    types.EventCategory `gorm:"default:'other';index" json:"category"`
	Venue       types.Venue         `gorm:"embedded;embeddedPrefix:venue_" json:"venue"`
	Date        time.Time           `gorm:"index" json:"date"`
	StartTime   string              `json:"startTime"`
	EndTime     string              `json:"endTime"`
	Status      types.EventStatus   `gorm:"default:'active';index" json:"status"`
	Featured    bool                `gorm:"default:false" json:"featured"`
	Tags        types.StringSet     `gorm:"type:jsonb" json:"tags"`
	Images      types.StringSet     `gorm:"type:jsonb" json:"images"`
	OrganizerID uint                `json:"organizerId"`

	Pricing          types.Pricing    `gorm:"embedded;embeddedPrefix:price_" json:"pricing"`
	AvailableTickets types.TierCounts `gorm:"embedded;embeddedPrefix:available_" json:"availableTickets"`
	SoldTickets      types.TierCounts `gorm:"embedded;embeddedPrefix:sold_" json:"soldTickets"`

	Organizer *User     `gorm:"foreignKey:organizer_id" json:"organizer,omitempty"`
	Bookings  []Booking `gorm:"foreignKey:event_id" json:"-"`

	types.Timestamps
}

// Offers reports whether the tier is on sale for this event.
func (e *Event) Offers(t types.Tier) bool {
	return e.Pricing.Get(t).IsPositive()
}

// StartsAt combines the event date with its start time, in the date's location.
func (e *Event) StartsAt() time.Time {
	start, err := time.Parse("15:04", strings.TrimSpace(e.StartTime))
	if err != nil {
		return e.Date
	}
	return time.Date(e.Date.Year(), e.Date.Month(), e.Date.Day(), start.Hour(), start.Minute(), 0, 0, e.Date.Location())
}

func (e *Event) IsBookable(now time.Time) bool {
	return e.Status == types.EVENT_ACTIVE && e.StartsAt().After(now)
}
