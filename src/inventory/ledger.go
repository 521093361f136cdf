// Package inventory owns the per-tier ticket counters embedded in events.
// Counters only move through Reserve and Release, each a single conditional
// UPDATE, so concurrent bookings can never drive availability below zero.
package inventory

import (
	"context"
	"errors"
	"eventhub/src/models"
	"eventhub/src/types"
	"fmt"

	"gorm.io/gorm"
)

// maxAttempts bounds re-tries when the conditional update lost a race but a
// re-read shows enough stock again (a concurrent release landed in between).
const maxAttempts = 3

type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Validate rejects negative or oversized quantities and empty requests.
func Validate(want types.TierCounts) error {
	if !want.InRange() {
		return types.ErrInvalidQuantity
	}
	if want.Total() == 0 {
		return types.ErrNoTicketsSelected
	}
	return nil
}

// Reserve moves the requested quantities from available to sold. Either every
// tier is served or nothing changes. Run it inside the caller's transaction
// so a later failure rolls the reservation back.
func (l *Ledger) Reserve(ctx context.Context, tx *gorm.DB, eventID uint, want types.TierCounts) error {
	if err := Validate(want); err != nil {
		return err
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		q := tx.WithContext(ctx).Model(&models.Event{}).Where("id = ?", eventID)
		updates := map[string]any{}
		for _, t := range types.TIERS {
			n := want.Get(t)
			if n == 0 {
				continue
			}
			avail, sold, price := columns(t)
			q = q.Where(price+" > 0").Where(avail+" >= ?", n)
			updates[avail] = gorm.Expr(avail+" - ?", n)
			updates[sold] = gorm.Expr(sold+" + ?", n)
		}
		res := q.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("reserving tickets for event %d: %w", eventID, res.Error)
		}
		if res.RowsAffected == 1 {
			return nil
		}
		if err := l.explain(ctx, tx, eventID, want); err != nil {
			return err
		}
	}
	return &types.InsufficientInventoryError{Tier: firstRequested(want)}
}

// Release returns previously reserved quantities to availability.
func (l *Ledger) Release(ctx context.Context, tx *gorm.DB, eventID uint, qty types.TierCounts) error {
	if qty.Total() == 0 {
		return nil
	}
	q := tx.WithContext(ctx).Unscoped().Model(&models.Event{}).Where("id = ?", eventID)
	updates := map[string]any{}
	for _, t := range types.TIERS {
		n := qty.Get(t)
		if n <= 0 {
			continue
		}
		avail, sold, _ := columns(t)
		q = q.Where(sold+" >= ?", n)
		updates[avail] = gorm.Expr(avail+" + ?", n)
		updates[sold] = gorm.Expr(sold+" - ?", n)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("releasing tickets for event %d: %w", eventID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("releasing tickets for event %d: sold counters are lower than the release", eventID)
	}
	return nil
}

// explain re-reads the event after a rejected update and returns the error
// the caller should see, or nil when the stock is sufficient again.
func (l *Ledger) explain(ctx context.Context, tx *gorm.DB, eventID uint, want types.TierCounts) error {
	var event models.Event
	err := tx.WithContext(ctx).
		Select("id", "price_general", "price_vip", "price_premium", "available_general", "available_vip", "available_premium").
		Where("id = ?", eventID).
		First(&event).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.ErrEventNotFound
		}
		return err
	}
	for _, t := range types.TIERS {
		n := want.Get(t)
		if n == 0 {
			continue
		}
		if !event.Offers(t) || event.AvailableTickets.Get(t) < n {
			return &types.InsufficientInventoryError{Tier: t}
		}
	}
	return nil
}

func columns(t types.Tier) (avail, sold, price string) {
	return "available_" + string(t), "sold_" + string(t), "price_" + string(t)
}

func firstRequested(want types.TierCounts) types.Tier {
	for _, t := range types.TIERS {
		if want.Get(t) > 0 {
			return t
		}
	}
	return types.TIER_GENERAL
}
