// Package admin backs the administrator dashboard and list screens.
package admin

import (
	"context"
	"eventhub/src/booking"
	"eventhub/src/events"
	"eventhub/src/models"
	"eventhub/src/types"
	"eventhub/src/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultPageSize = 10

type Stats struct {
	TotalEvents       int64           `json:"totalEvents"`
	ActiveEvents      int64           `json:"activeEvents"`
	TotalBookings     int64           `json:"totalBookings"`
	CompletedBookings int64           `json:"completedBookings"`
	TotalUsers        int64           `json:"totalUsers"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

type Dashboard struct {
	Stats          Stats            `json:"stats"`
	RecentBookings []models.Booking `json:"recentBookings"`
	PopularEvents  []models.Event   `json:"popularEvents"`
}

type EventPage struct {
	Events     []models.Event   `json:"events"`
	Pagination types.Pagination `json:"pagination"`
}

type BookingPage struct {
	Bookings   []models.Booking `json:"bookings"`
	Pagination types.Pagination `json:"pagination"`
}

type UserPage struct {
	Users      []models.User    `json:"users"`
	Pagination types.Pagination `json:"pagination"`
}

type Service struct {
	db       *gorm.DB
	bookings *booking.Service
	events   *events.Service
}

func NewService(db *gorm.DB, bookings *booking.Service, events *events.Service) *Service {
	return &Service{db: db, bookings: bookings, events: events}
}

func like(s string) string {
	return "%" + s + "%"
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	var out Dashboard
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&out.Stats.TotalEvents, db.Model(&models.Event{})},
		{&out.Stats.ActiveEvents, db.Model(&models.Event{}).Where("status = ?", types.EVENT_ACTIVE)},
		{&out.Stats.TotalBookings, db.Model(&models.Booking{})},
		{&out.Stats.CompletedBookings, db.Model(&models.Booking{}).Where("payment_status = ?", types.PAYMENT_COMPLETED)},
		{&out.Stats.TotalUsers, db.Model(&models.User{}).Where("role = ?", types.ROLE_USER)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, err
		}
	}

	var revenue decimal.NullDecimal
	err := db.Model(&models.Booking{}).
		Where("payment_status = ?", types.PAYMENT_COMPLETED).
		Select("SUM(total_amount)").
		Row().
		Scan(&revenue)
	if err != nil {
		return nil, err
	}
	out.Stats.TotalRevenue = decimal.Zero
	if revenue.Valid {
		out.Stats.TotalRevenue = revenue.Decimal
	}

	out.RecentBookings = []models.Booking{}
	err = db.
		Preload("Event", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "title", "date") }).
		Preload("User", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email") }).
		Order("created_at DESC").
		Limit(10).
		Find(&out.RecentBookings).
		Error
	if err != nil {
		return nil, err
	}

	out.PopularEvents = []models.Event{}
	err = db.
		Preload("Organizer", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email") }).
		Order("(sold_general + sold_vip + sold_premium) DESC").
		Order("id").
		Limit(5).
		Find(&out.PopularEvents).
		Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ListEvents(ctx context.Context, q types.AdminListQuery) (*EventPage, error) {
	page, limit := utils.Paginate(q.Page, q.Limit, defaultPageSize)
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.Search != "" {
		term := like(q.Search)
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(venue_name) LIKE LOWER(?) OR LOWER(venue_city) LIKE LOWER(?)", term, term, term)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	out := &EventPage{Events: []models.Event{}}
	err := query.
		Preload("Organizer", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out.Events).
		Error
	if err != nil {
		return nil, err
	}
	out.Pagination = types.NewPagination(page, limit, total)
	return out, nil
}

func (s *Service) ListBookings(ctx context.Context, q types.AdminListQuery) (*BookingPage, error) {
	page, limit := utils.Paginate(q.Page, q.Limit, defaultPageSize)
	query := s.db.WithContext(ctx).Model(&models.Booking{})
	if q.Status != "" {
		query = query.Where("status = ?", q.Status)
	}
	if q.PaymentStatus != "" {
		query = query.Where("payment_status = ?", q.PaymentStatus)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	out := &BookingPage{Bookings: []models.Booking{}}
	err := query.
		Preload("Event").
		Preload("User", func(tx *gorm.DB) *gorm.DB { return tx.Select("id", "name", "email", "phone") }).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out.Bookings).
		Error
	if err != nil {
		return nil, err
	}
	out.Pagination = types.NewPagination(page, limit, total)
	return out, nil
}

// ListUsers lists regular users only, each with their bookings.
func (s *Service) ListUsers(ctx context.Context, q types.AdminListQuery) (*UserPage, error) {
	page, limit := utils.Paginate(q.Page, q.Limit, defaultPageSize)
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", types.ROLE_USER)
	if q.Search != "" {
		term := like(q.Search)
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", term, term)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	out := &UserPage{Users: []models.User{}}
	err := query.
		Preload("Bookings").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&out.Users).
		Error
	if err != nil {
		return nil, err
	}
	out.Pagination = types.NewPagination(page, limit, total)
	return out, nil
}

func (s *Service) UpdateEventStatus(ctx context.Context, id uint, status types.EventStatus) (*models.Event, error) {
	return s.events.SetStatus(ctx, id, status)
}

// UpdateBookingStatus goes through the booking workflow so a cancellation
// returns the tickets.
func (s *Service) UpdateBookingStatus(ctx context.Context, id uint, status types.BookingStatus) (*models.Booking, error) {
	return s.bookings.UpdateStatus(ctx, id, status)
}
