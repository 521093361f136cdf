package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &a)
}

// StringSet is stored as a JSON array. Duplicates and blanks are dropped on write.
type StringSet []string

func NewStringSet(values ...string) StringSet {
	seen := make(map[string]struct{}, len(values))
	set := make(StringSet, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		set = append(set, v)
	}
	return set
}

func (a StringSet) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	valueString, err := json.Marshal(NewStringSet(a...))
	return string(valueString), err
}
func (a *StringSet) Scan(value any) error {
	b, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, a)
}

func scanBytes(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case nil:
		return []byte("null"), nil
	}
	return nil, errors.New("type assertion to []byte failed")
}

type Tier string

const (
	TIER_GENERAL Tier = "general"
	TIER_VIP     Tier = "vip"
	TIER_PREMIUM Tier = "premium"
)

// TIERS is the fixed iteration order used for validation and error reporting.
var TIERS = []Tier{TIER_GENERAL, TIER_VIP, TIER_PREMIUM}

func (t Tier) Label() string {
	switch t {
	case TIER_VIP:
		return "VIP"
	case TIER_PREMIUM:
		return "Premium"
	}
	return "General"
}

// MAX_TIER_QUANTITY caps a single tier so totals stay far from int overflow.
const MAX_TIER_QUANTITY = 1_000_000

// TierCounts is embedded into events twice (available and sold) and used
// as the requested quantities of a booking.
type TierCounts struct {
	General int `gorm:"not null;default:0" json:"general"`
	VIP     int `gorm:"column:vip;not null;default:0" json:"vip"`
	Premium int `gorm:"not null;default:0" json:"premium"`
}

func (c TierCounts) Get(t Tier) int {
	switch t {
	case TIER_GENERAL:
		return c.General
	case TIER_VIP:
		return c.VIP
	case TIER_PREMIUM:
		return c.Premium
	}
	return 0
}

func (c *TierCounts) Set(t Tier, n int) {
	switch t {
	case TIER_GENERAL:
		c.General = n
	case TIER_VIP:
		c.VIP = n
	case TIER_PREMIUM:
		c.Premium = n
	}
}

// InRange reports whether every tier lies within 0..MAX_TIER_QUANTITY.
func (c TierCounts) InRange() bool {
	for _, t := range TIERS {
		if n := c.Get(t); n < 0 || n > MAX_TIER_QUANTITY {
			return false
		}
	}
	return true
}

func (c TierCounts) Total() int {
	return c.General + c.VIP + c.Premium
}

type Pricing struct {
	General decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"general"`
	VIP     decimal.Decimal `gorm:"column:vip;type:numeric(12,2);not null;default:0" json:"vip"`
	Premium decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"premium"`
}

func (p Pricing) Get(t Tier) decimal.Decimal {
	switch t {
	case TIER_GENERAL:
		return p.General
	case TIER_VIP:
		return p.VIP
	case TIER_PREMIUM:
		return p.Premium
	}
	return decimal.Zero
}

func (p *Pricing) Set(t Tier, v decimal.Decimal) {
	switch t {
	case TIER_GENERAL:
		p.General = v
	case TIER_VIP:
		p.VIP = v
	case TIER_PREMIUM:
		p.Premium = v
	}
}

type TicketLine struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (l TicketLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// BookedTickets holds the quantity per tier together with the unit price
// captured when the booking was made.
type BookedTickets struct {
	General TicketLine `json:"general"`
	VIP     TicketLine `json:"vip"`
	Premium TicketLine `json:"premium"`
}

func SnapshotTickets(qty TierCounts, pricing Pricing) BookedTickets {
	var b BookedTickets
	for _, t := range TIERS {
		b.Set(t, TicketLine{Quantity: qty.Get(t), Price: pricing.Get(t)})
	}
	return b
}

func (b BookedTickets) Get(t Tier) TicketLine {
	switch t {
	case TIER_GENERAL:
		return b.General
	case TIER_VIP:
		return b.VIP
	case TIER_PREMIUM:
		return b.Premium
	}
	return TicketLine{}
}

func (b *BookedTickets) Set(t Tier, l TicketLine) {
	switch t {
	case TIER_GENERAL:
		b.General = l
	case TIER_VIP:
		b.VIP = l
	case TIER_PREMIUM:
		b.Premium = l
	}
}

func (b BookedTickets) Quantities() TierCounts {
	var c TierCounts
	for _, t := range TIERS {
		c.Set(t, b.Get(t).Quantity)
	}
	return c
}

func (b BookedTickets) Total() decimal.Decimal {
	total := decimal.Zero
	for _, t := range TIERS {
		total = total.Add(b.Get(t).Subtotal())
	}
	return total
}

func (b BookedTickets) Value() (driver.Value, error) {
	valueString, err := json.Marshal(b)
	return string(valueString), err
}
func (b *BookedTickets) Scan(value any) error {
	raw, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, b)
}

type Venue struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `gorm:"index" json:"city"`
	Capacity int    `json:"capacity"`
}

type AttendeeInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type EventCategory string

const (
	CATEGORY_CONCERT    EventCategory = "concert"
	CATEGORY_CONFERENCE EventCategory = "conference"
	CATEGORY_WORKSHOP   EventCategory = "workshop"
	CATEGORY_SPORTS     EventCategory = "sports"
	CATEGORY_THEATER    EventCategory = "theater"
	CATEGORY_FESTIVAL   EventCategory = "festival"
	CATEGORY_OTHER      EventCategory = "other"
)

var EventCategories = []EventCategory{
	CATEGORY_CONCERT,
	CATEGORY_CONFERENCE,
	CATEGORY_WORKSHOP,
	CATEGORY_SPORTS,
	CATEGORY_THEATER,
	CATEGORY_FESTIVAL,
	CATEGORY_OTHER,
}

type EventStatus string

const (
	EVENT_ACTIVE    EventStatus = "active"
	EVENT_CANCELLED EventStatus = "cancelled"
	EVENT_COMPLETED EventStatus = "completed"
	EVENT_DRAFT     EventStatus = "draft"
)

type BookingStatus string

const (
	BOOKING_CONFIRMED BookingStatus = "confirmed"
	BOOKING_CANCELLED BookingStatus = "cancelled"
	BOOKING_ATTENDED  BookingStatus = "attended"
)

type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_COMPLETED PaymentStatus = "completed"
	PAYMENT_FAILED    PaymentStatus = "failed"
	PAYMENT_REFUNDED  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PAYMENT_METHOD_PAYPAL PaymentMethod = "paypal"
	PAYMENT_METHOD_CASH   PaymentMethod = "cash"
)

type Role string

const (
	ROLE_USER  Role = "user"
	ROLE_ADMIN Role = "admin"
)

type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Current: page, Pages: pages, Total: total}
}
