package payments

import (
	"context"
	"errors"
	"eventhub/src/booking"
	"eventhub/src/config"
	"eventhub/src/lib"
	"eventhub/src/models"
	"eventhub/src/notifications"
	"eventhub/src/types"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type OrderResult struct {
	OrderID     string `json:"orderID"`
	ApprovalURL string `json:"approvalUrl"`
}

type CaptureResult struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
}

type ClientConfig struct {
	ClientID string `json:"clientId"`
	Mode     string `json:"mode"`
}

var unpaid = []types.PaymentStatus{types.PAYMENT_PENDING, types.PAYMENT_FAILED}

// Reconciler keeps booking payment state in step with PayPal. Every state
// change is a conditional update, and capture shares the booking lock with
// the hold-expiry sweep.
type Reconciler struct {
	db       *gorm.DB
	provider Provider
	locker   *lib.Locker
	notifier notifications.Notifier
	cfg      config.PayPalConfig
	log      *logrus.Logger
	// timer paces retries; nil means a real clock.
	timer backoff.Timer
}

func NewReconciler(db *gorm.DB, provider Provider, locker *lib.Locker, notifier notifications.Notifier, cfg config.PayPalConfig, log *logrus.Logger) *Reconciler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Reconciler{
		db:       db,
		provider: provider,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
	}
}

func (r *Reconciler) ClientConfig() ClientConfig {
	return ClientConfig{ClientID: r.cfg.ClientID, Mode: r.cfg.Mode}
}

func (r *Reconciler) load(ctx context.Context, bookingID uint) (*models.Booking, error) {
	var b models.Booking
	err := r.db.WithContext(ctx).Preload("Event").Where("id = ?", bookingID).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *Reconciler) lock(ctx context.Context, bookingID uint) (func(), error) {
	unlock, err := r.locker.Lock(ctx, booking.LockKey(bookingID))
	if err != nil {
		if errors.Is(err, lib.ErrLockHeld) {
			return nil, types.ErrBookingBusy
		}
		return nil, err
	}
	return unlock, nil
}

func authorize(b *models.Booking, viewer types.Viewer) error {
	if !b.IsOwnedBy(viewer.ID) && !viewer.IsAdmin() {
		return types.ErrForbidden
	}
	return nil
}

// CreateOrder opens a PayPal order for the booking total and remembers its id.
// The id is swapped in only if no other order was stored meanwhile.
func (r *Reconciler) CreateOrder(ctx context.Context, bookingID uint, viewer types.Viewer) (*OrderResult, error) {
	unlock, err := r.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := r.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(b, viewer); err != nil {
		return nil, err
	}
	switch {
	case b.PaymentStatus == types.PAYMENT_COMPLETED || b.PaymentStatus == types.PAYMENT_REFUNDED:
		return nil, types.ErrAlreadyPaid
	case b.Status == types.BOOKING_CANCELLED || b.InventoryReleased:
		return nil, types.ErrReservationExpired
	}

	req := OrderRequest{
		ReferenceID: b.BookingReference,
		Description: "Tickets " + b.BookingReference,
		Amount:      b.TotalAmount,
		Currency:    r.cfg.Currency,
	}
	if b.Event != nil {
		req.Description = b.Event.Title + " - " + b.BookingReference
	}
	var order *Order
	err = r.call(ctx, "create_order", func(ctx context.Context) error {
		var err error
		order, err = r.provider.CreateOrder(ctx, req)
		return err
	})
	if err != nil {
		return nil, r.failure("create_order", b, err)
	}

	q := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status IN ? AND inventory_released = ?", b.ID, unpaid, false)
	if b.PaypalOrderID == nil {
		q = q.Where("paypal_order_id IS NULL")
	} else {
		q = q.Where("paypal_order_id = ?", *b.PaypalOrderID)
	}
	res := q.Updates(map[string]any{
		"paypal_order_id": order.ID,
		"payment_status":  types.PAYMENT_PENDING,
		"payment_method":  types.PAYMENT_METHOD_PAYPAL,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.staleOrder(ctx, b.ID)
	}
	lib.PaymentOperations.WithLabelValues("create_order", "ok").Inc()
	r.log.WithFields(logrus.Fields{"bookingId": b.ID, "orderId": order.ID}).Info("paypal order created")
	return &OrderResult{OrderID: order.ID, ApprovalURL: order.ApprovalURL}, nil
}

// staleOrder explains a lost CreateOrder update: the hold went away, or a
// concurrent request stored its own order first.
func (r *Reconciler) staleOrder(ctx context.Context, bookingID uint) error {
	current, err := r.load(ctx, bookingID)
	if err != nil {
		return err
	}
	if current.Status == types.BOOKING_CANCELLED || current.InventoryReleased {
		return types.ErrReservationExpired
	}
	if current.PaymentStatus == types.PAYMENT_COMPLETED || current.PaymentStatus == types.PAYMENT_REFUNDED {
		return types.ErrAlreadyPaid
	}
	return types.ErrBookingBusy
}

// captureRequestID is stable for a booking and order, so every retry of the
// same capture reaches PayPal as one request.
func captureRequestID(b *models.Booking, orderID string) string {
	return b.BookingReference + "-" + orderID
}

// Capture settles an approved order. Repeating a capture for a paid booking
// returns the stored payment id without calling PayPal.
func (r *Reconciler) Capture(ctx context.Context, orderID string, bookingID uint, viewer types.Viewer) (*CaptureResult, error) {
	unlock, err := r.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := r.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(b, viewer); err != nil {
		return nil, err
	}
	if b.PaypalOrderID == nil || *b.PaypalOrderID != orderID {
		return nil, types.ErrOrderMismatch
	}
	if b.PaymentStatus == types.PAYMENT_COMPLETED && b.PaypalPaymentID != nil {
		lib.PaymentOperations.WithLabelValues("capture", "replayed").Inc()
		return &CaptureResult{Success: true, PaymentID: *b.PaypalPaymentID}, nil
	}
	if b.PaymentStatus == types.PAYMENT_REFUNDED {
		return nil, types.ErrAlreadyPaid
	}
	if b.Status == types.BOOKING_CANCELLED || b.InventoryReleased {
		return nil, types.ErrReservationExpired
	}

	var capture *Capture
	requestID := captureRequestID(b, orderID)
	err = r.call(ctx, "capture", func(ctx context.Context) error {
		var err error
		capture, err = r.provider.CaptureOrder(ctx, orderID, requestID)
		if alreadyCaptured(err) {
			// An earlier attempt settled but its answer was lost.
			r.log.WithFields(logrus.Fields{"bookingId": b.ID, "orderId": orderID}).Warn("paypal order already captured, reading it back")
			capture, err = r.provider.GetOrder(ctx, orderID)
		}
		return err
	})
	if err != nil {
		failed := r.failure("capture", b, err)
		if errors.Is(failed, types.ErrPaymentDenied) {
			r.markFailed(ctx, b.ID)
		}
		return nil, failed
	}
	if capture.Status != captureCompleted || capture.CaptureID == "" {
		r.log.WithFields(logrus.Fields{"bookingId": b.ID, "orderId": orderID, "status": capture.Status}).Warn("paypal capture not completed")
		lib.PaymentOperations.WithLabelValues("capture", "denied").Inc()
		r.markFailed(ctx, b.ID)
		return nil, types.ErrPaymentDenied
	}

	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status IN ? AND inventory_released = ?", b.ID, unpaid, false).
		Updates(map[string]any{
			"payment_status":    types.PAYMENT_COMPLETED,
			"payment_method":    types.PAYMENT_METHOD_PAYPAL,
			"paypal_payment_id": capture.CaptureID,
			"status":            types.BOOKING_CONFIRMED,
			"hold_expires_at":   nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// The reservation was released while PayPal was capturing.
		r.log.WithFields(logrus.Fields{"bookingId": b.ID, "captureId": capture.CaptureID}).Error("captured payment for a released reservation, refunding")
		r.refundOrphan(ctx, b, capture.CaptureID)
		return nil, types.ErrReservationExpired
	}

	lib.PaymentOperations.WithLabelValues("capture", "ok").Inc()
	b.PaymentStatus = types.PAYMENT_COMPLETED
	b.PaypalPaymentID = &capture.CaptureID
	r.notifier.Notify(ctx, notifications.PaymentReceived(b, b.Event))
	r.log.WithFields(logrus.Fields{"bookingId": b.ID, "captureId": capture.CaptureID}).Info("paypal payment captured")
	return &CaptureResult{Success: true, PaymentID: capture.CaptureID}, nil
}

func (r *Reconciler) markFailed(ctx context.Context, bookingID uint) {
	err := r.db.WithContext(context.WithoutCancel(ctx)).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", bookingID, types.PAYMENT_PENDING).
		Update("payment_status", types.PAYMENT_FAILED).
		Error
	if err != nil {
		r.log.WithError(err).WithField("bookingId", bookingID).Error("could not mark payment as failed")
	}
}

func (r *Reconciler) refundOrphan(ctx context.Context, b *models.Booking, captureID string) {
	err := r.call(context.WithoutCancel(ctx), "refund", func(ctx context.Context) error {
		_, err := r.provider.RefundCapture(ctx, captureID, b.TotalAmount, r.cfg.Currency)
		return err
	})
	if err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"bookingId": b.ID, "captureId": captureID}).Error("automatic refund failed, manual action required")
	}
}

// Refund returns a completed PayPal payment. Tickets stay sold until an admin
// cancels the booking.
func (r *Reconciler) Refund(ctx context.Context, bookingID uint) (*models.Booking, error) {
	unlock, err := r.lock(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := r.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PaymentStatus != types.PAYMENT_COMPLETED || b.PaypalPaymentID == nil {
		return nil, types.ErrInvalidStatusTransition
	}
	err = r.call(ctx, "refund", func(ctx context.Context) error {
		_, err := r.provider.RefundCapture(ctx, *b.PaypalPaymentID, b.TotalAmount, r.cfg.Currency)
		return err
	})
	if err != nil {
		return nil, r.failure("refund", b, err)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND payment_status = ?", b.ID, types.PAYMENT_COMPLETED).
		Update("payment_status", types.PAYMENT_REFUNDED)
	if res.Error != nil {
		return nil, res.Error
	}
	lib.PaymentOperations.WithLabelValues("refund", "ok").Inc()
	r.log.WithField("bookingId", b.ID).Info("paypal payment refunded")
	return r.load(ctx, bookingID)
}

type failureKind int

const (
	retryable failureKind = iota
	denied
	fatal
)

func classify(err error) failureKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		switch {
		case perr.StatusCode == 400 || perr.StatusCode == 422:
			return denied
		case perr.StatusCode == 408 || perr.StatusCode == 429 || perr.StatusCode >= 500:
			return retryable
		default:
			return fatal
		}
	}
	if errors.Is(err, context.Canceled) {
		return fatal
	}
	return retryable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// call runs fn with a per-attempt timeout. Failures classify as retryable
// are retried with exponential backoff; anything else stops at once.
func (r *Reconciler) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.RetryBackoff
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.cfg.Timeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		}
		defer cancel()
		start := time.Now()
		err := fn(actx)
		lib.ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil && classify(err) != retryable {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		r.log.WithError(err).WithFields(logrus.Fields{"operation": op, "attempt": attempt, "backoff": next}).Warn("paypal call failed, retrying")
	}
	return backoff.RetryNotifyWithTimer(operation, retries, notify, r.timer)
}

func (r *Reconciler) failure(op string, b *models.Booking, err error) error {
	fields := logrus.Fields{"operation": op, "bookingId": b.ID}
	switch {
	case classify(err) == denied:
		lib.PaymentOperations.WithLabelValues(op, "denied").Inc()
		r.log.WithError(err).WithFields(fields).Warn("paypal declined the request")
		return types.ErrPaymentDenied
	case isTimeout(err):
		lib.PaymentOperations.WithLabelValues(op, "timeout").Inc()
		r.log.WithError(err).WithFields(fields).Error("paypal timed out")
		return types.ErrPaymentProviderTimeout
	default:
		lib.PaymentOperations.WithLabelValues(op, "error").Inc()
		r.log.WithError(err).WithFields(fields).Error("paypal call failed")
		return types.ErrPaymentProvider
	}
}
