// Package events is the event catalogue: public browsing plus the admin
// create, update and delete paths. Ticket counters are never written here
// after creation.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"eventhub/src/config"
	"eventhub/src/models"
	"eventhub/src/types"
	"eventhub/src/utils"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 12
	featuredLimit   = 6
	featuredKey     = "events:featured"
	featuredTTL     = time.Minute
)

var (
	ErrUnsupportedImage = errors.New("only jpeg, png and gif images are allowed")
	ErrImagesDisabled   = errors.New("image uploads are not configured")
)

var imageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// BlobStore keeps uploaded event images.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type ListResult struct {
	Events     []models.Event   `json:"events"`
	Pagination types.Pagination `json:"pagination"`
}

type Service struct {
	db    *gorm.DB
	blobs BlobStore
	rdb   *redis.Client
	log   *logrus.Logger
	now   func() time.Time
}

// NewService accepts a nil redis client; featured events are then always
// read from the database.
func NewService(db *gorm.DB, blobs BlobStore, rdb *redis.Client, log *logrus.Logger) *Service {
	return &Service{db: db, blobs: blobs, rdb: rdb, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func withOrganizer(db *gorm.DB) *gorm.DB {
	return db.Preload("Organizer", func(tx *gorm.DB) *gorm.DB {
		return tx.Select("id", "name", "email")
	})
}

func likeTerm(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

func (s *Service) List(ctx context.Context, f types.EventQueryFilters) (*ListResult, error) {
	page, limit := utils.Paginate(f.Page, f.Limit, defaultPageSize)
	q := s.db.WithContext(ctx).Model(&models.Event{}).Where("status = ?", types.EVENT_ACTIVE)
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.City != "" {
		q = q.Where("LOWER(venue_city) LIKE ?", likeTerm(f.City))
	}
	if f.Date != "" {
		day, err := time.Parse(config.DATE_FORMAT, f.Date)
		if err != nil {
			return nil, types.NewValidationError("date", err)
		}
		q = q.Where("date >= ? AND date < ?", day, day.Add(24*time.Hour))
	}
	if f.Search != "" {
		term := likeTerm(f.Search)
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	events := []models.Event{}
	err := withOrganizer(q).
		Order("date ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&events).
		Error
	if err != nil {
		return nil, err
	}
	return &ListResult{Events: events, Pagination: types.NewPagination(page, limit, total)}, nil
}

// Featured returns upcoming featured events, cached briefly in redis.
func (s *Service) Featured(ctx context.Context) ([]models.Event, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, featuredKey).Bytes()
		if err == nil {
			var cached []models.Event
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.WithError(err).Warn("[redis] featured events cache unavailable")
		}
	}

	events := []models.Event{}
	err := withOrganizer(s.db.WithContext(ctx)).
		Where("status = ? AND featured = ? AND date >= ?", types.EVENT_ACTIVE, true, s.now()).
		Order("date ASC").
		Limit(featuredLimit).
		Find(&events).
		Error
	if err != nil {
		return nil, err
	}
	if s.rdb != nil {
		if raw, err := json.Marshal(events); err == nil {
			if err := s.rdb.Set(ctx, featuredKey, string(raw), featuredTTL).Err(); err != nil {
				s.log.WithError(err).Warn("[redis] could not cache featured events")
			}
		}
	}
	return events, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, featuredKey).Err(); err != nil {
		s.log.WithError(err).Warn("[redis] could not drop featured events cache")
	}
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).
		Preload("Organizer", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "name", "email", "phone")
		}).
		Where("id = ?", id).
		First(&event).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (s *Service) ListByOrganizer(ctx context.Context, organizerID uint) ([]models.Event, error) {
	events := []models.Event{}
	err := s.db.WithContext(ctx).
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").
		Find(&events).
		Error
	return events, err
}

func parseDate(value string) (time.Time, error) {
	if d, err := time.Parse(config.DATE_FORMAT, value); err == nil {
		return d, nil
	}
	d, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, types.NewValidationError("date", fmt.Errorf("expected YYYY-MM-DD, got %q", value))
	}
	return d, nil
}

func venueFrom(v types.VenueRequestBody) types.Venue {
	return types.Venue{Name: v.Name, Address: v.Address, City: v.City, Capacity: v.Capacity}
}

// uniqueSlug appends a counter until no event, deleted or not, holds the slug.
func uniqueSlug(tx *gorm.DB, title string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "event"
	}
	candidate := base
	for i := 2; ; i++ {
		var n int64
		if err := tx.Unscoped().Model(&models.Event{}).Where("slug = ?", candidate).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *Service) Create(ctx context.Context, organizerID uint, body types.CreateEventRequestBody) (*models.Event, error) {
	date, err := parseDate(body.Date)
	if err != nil {
		return nil, err
	}
	status := body.Status
	if status == "" {
		status = types.EVENT_ACTIVE
	}
	available := body.AvailableTickets
	if available.Total() == 0 && body.Pricing.General.IsPositive() {
		available.General = body.Venue.Capacity
	}
	event := models.Event{
		Title:            strings.TrimSpace(body.Title),
		Description:      body.Description,
		Category:         body.Category,
		Venue:            venueFrom(body.Venue),
		Date:             date,
		StartTime:        body.StartTime,
		EndTime:          body.EndTime,
		Status:           status,
		Featured:         body.Featured,
		Tags:             types.NewStringSet(body.Tags...),
		Images:           types.StringSet{},
		OrganizerID:      organizerID,
		Pricing:          body.Pricing,
		AvailableTickets: available,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventSlug, err := uniqueSlug(tx, event.Title)
		if err != nil {
			return err
		}
		event.Slug = eventSlug
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.WithFields(logrus.Fields{"eventId": event.ID, "slug": event.Slug}).Info("event created")
	return s.Get(ctx, event.ID)
}

// Update applies the provided fields. Ticket counts are not part of the body
// and cannot change here.
func (s *Service) Update(ctx context.Context, id uint, body types.UpdateEventRequestBody) (*models.Event, error) {
	updates := map[string]any{}
	if body.Title != nil {
		updates["title"] = strings.TrimSpace(*body.Title)
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.Category != nil {
		updates["category"] = *body.Category
	}
	if body.Venue != nil {
		updates["venue_name"] = body.Venue.Name
		updates["venue_address"] = body.Venue.Address
		updates["venue_city"] = body.Venue.City
		updates["venue_capacity"] = body.Venue.Capacity
	}
	if body.Date != nil {
		date, err := parseDate(*body.Date)
		if err != nil {
			return nil, err
		}
		updates["date"] = date
	}
	if body.StartTime != nil {
		updates["start_time"] = *body.StartTime
	}
	if body.EndTime != nil {
		updates["end_time"] = *body.EndTime
	}
	if body.Featured != nil {
		updates["featured"] = *body.Featured
	}
	if body.Tags != nil {
		updates["tags"] = types.NewStringSet(body.Tags...)
	}
	if body.Pricing != nil {
		for _, t := range types.TIERS {
			updates["price_"+string(t)] = body.Pricing.Get(t)
		}
	}

	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Updates(updates).Error
		if err != nil {
			return nil, err
		}
		s.invalidate(ctx)
	}
	return s.Get(ctx, id)
}

func (s *Service) SetStatus(ctx context.Context, id uint, status types.EventStatus) (*models.Event, error) {
	res := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, types.ErrEventNotFound
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete refuses while any booking on the event is still live.
func (s *Service) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Select("id").Where("id = ?", id).First(&event).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrEventNotFound
			}
			return err
		}
		var live int64
		err := tx.Model(&models.Booking{}).
			Where("event_id = ? AND status <> ?", id, types.BOOKING_CANCELLED).
			Count(&live).
			Error
		if err != nil {
			return err
		}
		if live > 0 {
			return types.ErrEventHasBookings
		}
		return tx.Delete(&models.Event{}, id).Error
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	s.log.WithField("eventId", id).Info("event deleted")
	return nil
}

// AddImage stores the upload and appends its location to the event.
func (s *Service) AddImage(ctx context.Context, id uint, body io.Reader, contentType string) (*models.Event, error) {
	if s.blobs == nil {
		return nil, ErrImagesDisabled
	}
	ext, ok := imageTypes[contentType]
	if !ok {
		return nil, types.NewValidationError("image", ErrUnsupportedImage)
	}
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	key := path.Join("events", fmt.Sprint(id), uuid.NewString()+ext)
	location, err := s.blobs.Put(ctx, key, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("storing event image: %w", err)
	}
	images := types.NewStringSet(append(event.Images, location)...)
	err = s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Update("images", images).Error
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}
