// Package booking turns a ticket request into a persisted booking and owns
// every later change to a booking's status.
package booking

import (
	"context"
	"errors"
	"eventhub/src/config"
	"eventhub/src/inventory"
	"eventhub/src/lib"
	"eventhub/src/models"
	"eventhub/src/notifications"
	"eventhub/src/types"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxReferenceAttempts = 5

// sweepBatch caps how many bookings a single sweep run touches.
const sweepBatch = 100

type ReferenceGenerator interface {
	Generate() string
}

type CreateInput struct {
	UserID        uint
	EventID       uint
	Tickets       types.TierCounts
	AttendeeInfo  types.AttendeeInfo
	PaymentMethod types.PaymentMethod
}

type Service struct {
	db       *gorm.DB
	ledger   *inventory.Ledger
	refs     ReferenceGenerator
	notifier notifications.Notifier
	locker   *lib.Locker
	cfg      config.BookingConfig
	log      *logrus.Logger
	now      func() time.Time
}

func NewService(db *gorm.DB, refs ReferenceGenerator, notifier notifications.Notifier, locker *lib.Locker, cfg config.BookingConfig, log *logrus.Logger) *Service {
	return &Service{
		db:       db,
		ledger:   inventory.NewLedger(),
		refs:     refs,
		notifier: notifier,
		locker:   locker,
		cfg:      cfg,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// LockKey is shared with payment capture so the two never interleave on the
// same booking.
func LockKey(bookingID uint) string {
	return fmt.Sprintf("booking:%d:lock", bookingID)
}

// Create reserves inventory and inserts the booking in one transaction. Any
// failure rolls the reservation back.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	if err := inventory.Validate(in.Tickets); err != nil {
		return nil, err
	}
	method := in.PaymentMethod
	if method == "" {
		method = types.PAYMENT_METHOD_PAYPAL
	}
	now := s.now()

	var booking models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		err := tx.Where("id = ?", in.EventID).First(&event).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrEventNotFound
			}
			return err
		}
		if !event.IsBookable(now) {
			return types.ErrEventNotBookable
		}
		if err := s.ledger.Reserve(ctx, tx, event.ID, in.Tickets); err != nil {
			return err
		}
		tickets := types.SnapshotTickets(in.Tickets, event.Pricing)
		booking = models.Booking{
			UserID:        in.UserID,
			EventID:       event.ID,
			Tickets:       tickets,
			TotalAmount:   tickets.Total(),
			AttendeeInfo:  in.AttendeeInfo,
			PaymentStatus: types.PAYMENT_PENDING,
			PaymentMethod: method,
			Status:        types.BOOKING_CONFIRMED,
		}
		if method == types.PAYMENT_METHOD_PAYPAL && s.cfg.HoldTTL > 0 {
			expires := now.Add(s.cfg.HoldTTL)
			booking.HoldExpiresAt = &expires
		}
		return s.insert(tx, &booking)
	})
	if err != nil {
		var short *types.InsufficientInventoryError
		if errors.As(err, &short) {
			lib.InventoryRejections.WithLabelValues(string(short.Tier)).Inc()
		}
		return nil, err
	}
	lib.BookingsCreated.WithLabelValues(string(method)).Inc()

	created, err := s.Get(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notifications.BookingConfirmation(created, created.Event))
	s.log.WithFields(logrus.Fields{
		"bookingId": created.ID,
		"reference": created.BookingReference,
		"eventId":   created.EventID,
	}).Info("booking created")
	return created, nil
}

// insert retries on a reference collision inside a savepoint, so the
// surrounding reservation survives the failed attempt.
func (s *Service) insert(tx *gorm.DB, booking *models.Booking) error {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		booking.ID = 0
		booking.BookingReference = s.refs.Generate()
		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(booking).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		s.log.WithField("reference", booking.BookingReference).Warn("booking reference collision, regenerating")
	}
	return types.ErrReferenceExhausted
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("id = ?", id).
		First(&booking).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// GetForViewer returns the booking to its owner or an admin.
func (s *Service) GetForViewer(ctx context.Context, id uint, viewer types.Viewer) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !booking.IsOwnedBy(viewer.ID) && !viewer.IsAdmin() {
		return nil, types.ErrForbidden
	}
	return booking, nil
}

// Ticket is the admission data encoded on a booking's QR code.
type Ticket struct {
	Reference string
	EventID   uint
	Quantity  int
}

// Ticket is only issued for live bookings that are paid or settled at the door.
func (s *Service) Ticket(ctx context.Context, id uint, viewer types.Viewer) (*Ticket, error) {
	booking, err := s.GetForViewer(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if booking.Status == types.BOOKING_CANCELLED {
		return nil, types.ErrTicketUnavailable
	}
	if booking.PaymentMethod != types.PAYMENT_METHOD_CASH && booking.PaymentStatus != types.PAYMENT_COMPLETED {
		return nil, types.ErrTicketUnavailable
	}
	return &Ticket{
		Reference: booking.BookingReference,
		EventID:   booking.EventID,
		Quantity:  booking.Tickets.Quantities().Total(),
	}, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uint) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings).
		Error
	return bookings, err
}

func (s *Service) withLock(ctx context.Context, bookingID uint, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, LockKey(bookingID))
	if err != nil {
		if errors.Is(err, lib.ErrLockHeld) {
			return types.ErrBookingBusy
		}
		return err
	}
	defer unlock()
	return fn()
}

func allowedTransition(from, to types.BookingStatus) bool {
	switch from {
	case types.BOOKING_CONFIRMED:
		return to == types.BOOKING_ATTENDED || to == types.BOOKING_CANCELLED
	case types.BOOKING_ATTENDED:
		return to == types.BOOKING_CONFIRMED || to == types.BOOKING_CANCELLED
	}
	return false
}

// UpdateStatus applies an admin status override. Cancelling returns the
// tickets to the event exactly once; a cancelled booking stays cancelled.
func (s *Service) UpdateStatus(ctx context.Context, id uint, status types.BookingStatus) (*models.Booking, error) {
	err := s.withLock(ctx, id, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var booking models.Booking
			err := tx.Where("id = ?", id).First(&booking).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return types.ErrBookingNotFound
				}
				return err
			}
			if booking.Status == status {
				return nil
			}
			if !allowedTransition(booking.Status, status) {
				return types.ErrInvalidStatusTransition
			}
			if status != types.BOOKING_CANCELLED {
				return tx.Model(&models.Booking{}).
					Where("id = ? AND status <> ?", id, types.BOOKING_CANCELLED).
					Update("status", status).
					Error
			}
			_, err = s.cancel(ctx, tx, &booking)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// cancel flips the booking to cancelled and releases its inventory if that
// has not happened yet. It reports whether this call did the release.
func (s *Service) cancel(ctx context.Context, tx *gorm.DB, booking *models.Booking) (bool, error) {
	res := tx.Model(&models.Booking{}).
		Where("id = ? AND inventory_released = ?", booking.ID, false).
		Updates(map[string]any{
			"status":             types.BOOKING_CANCELLED,
			"inventory_released": true,
			"hold_expires_at":    nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, tx.Model(&models.Booking{}).
			Where("id = ?", booking.ID).
			Update("status", types.BOOKING_CANCELLED).
			Error
	}
	if err := s.ledger.Release(ctx, tx, booking.EventID, booking.Tickets.Quantities()); err != nil {
		return false, err
	}
	return true, nil
}

var errHoldSettled = errors.New("hold already settled")

// ExpireHolds cancels unpaid online bookings whose hold ran out and returns
// their tickets. It reports how many bookings were released.
func (s *Service) ExpireHolds(ctx context.Context, now time.Time) (int, error) {
	var expired []models.Booking
	err := s.db.WithContext(ctx).
		Where("payment_method = ?", types.PAYMENT_METHOD_PAYPAL).
		Where("payment_status IN ?", []types.PaymentStatus{types.PAYMENT_PENDING, types.PAYMENT_FAILED}).
		Where("status <> ? AND inventory_released = ?", types.BOOKING_CANCELLED, false).
		Where("hold_expires_at IS NOT NULL AND hold_expires_at <= ?", now).
		Order("hold_expires_at").
		Limit(sweepBatch).
		Find(&expired).
		Error
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range expired {
		booking := expired[i]
		err := s.withLock(ctx, booking.ID, func() error {
			return s.expire(ctx, &booking)
		})
		switch {
		case err == nil:
			released++
			lib.HoldsReleased.Inc()
			s.log.WithFields(logrus.Fields{"bookingId": booking.ID, "reference": booking.BookingReference}).Info("reservation hold expired, tickets released")
		case errors.Is(err, errHoldSettled), errors.Is(err, types.ErrBookingBusy):
			// captured or being captured right now
		default:
			s.log.WithError(err).WithField("bookingId", booking.ID).Error("could not expire reservation hold")
		}
	}
	return released, nil
}

func (s *Service) expire(ctx context.Context, booking *models.Booking) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Booking{}).
			Where("id = ? AND inventory_released = ? AND status <> ?", booking.ID, false, types.BOOKING_CANCELLED).
			Where("payment_status IN ?", []types.PaymentStatus{types.PAYMENT_PENDING, types.PAYMENT_FAILED}).
			Updates(map[string]any{
				"status":             types.BOOKING_CANCELLED,
				"inventory_released": true,
				"hold_expires_at":    nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errHoldSettled
		}
		return s.ledger.Release(ctx, tx, booking.EventID, booking.Tickets.Quantities())
	})
}

// SendReminders queues one reminder per settled booking whose event starts
// within the reminder window.
func (s *Service) SendReminders(ctx context.Context, now time.Time) (int, error) {
	window := s.cfg.ReminderWindow
	if window <= 0 {
		window = 24 * time.Hour
	}
	upcoming := s.db.Model(&models.Event{}).
		Select("id").
		Where("status = ?", types.EVENT_ACTIVE).
		Where("date BETWEEN ? AND ?", now.Add(-24*time.Hour), now.Add(window))

	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Event").
		Where("event_id IN (?)", upcoming).
		Where("status = ? AND reminder_sent = ?", types.BOOKING_CONFIRMED, false).
		Where("payment_status = ? OR payment_method = ?", types.PAYMENT_COMPLETED, types.PAYMENT_METHOD_CASH).
		Limit(sweepBatch).
		Find(&bookings).
		Error
	if err != nil {
		return 0, err
	}
	sent := 0
	for i := range bookings {
		booking := &bookings[i]
		if booking.Event == nil {
			continue
		}
		starts := booking.Event.StartsAt()
		if !starts.After(now) || starts.After(now.Add(window)) {
			continue
		}
		res := s.db.WithContext(ctx).
			Model(&models.Booking{}).
			Where("id = ? AND reminder_sent = ?", booking.ID, false).
			Update("reminder_sent", true)
		if res.Error != nil {
			s.log.WithError(res.Error).WithField("bookingId", booking.ID).Error("could not mark reminder")
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.notifier.Notify(ctx, notifications.EventReminder(booking, booking.Event))
		sent++
	}
	return sent, nil
}
