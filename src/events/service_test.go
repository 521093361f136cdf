package events

import (
	"context"
	"errors"
	"eventhub/src/db/dbtest"
	"eventhub/src/lib"
	"eventhub/src/models"
	"eventhub/src/types"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type memoryBlobs struct {
	objects map[string]string
	err     error
}

func (m *memoryBlobs) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	raw, _ := io.ReadAll(body)
	m.objects[key] = string(raw)
	return key, nil
}

type EventsSuite struct {
	suite.Suite
	DB      *gorm.DB
	Blobs   *memoryBlobs
	Service *Service
}

func (s *EventsSuite) SetupTest() {
	s.DB = dbtest.NewSQLiteDB()
	s.Blobs = &memoryBlobs{objects: map[string]string{}}
	s.Service = NewService(s.DB, s.Blobs, nil, lib.NewNullLogger())
}

func createBody(title string) types.CreateEventRequestBody {
	return types.CreateEventRequestBody{
		Title:       title,
		Description: "An evening of live music on the waterfront",
		Category:    types.CATEGORY_CONCERT,
		Venue:       types.VenueRequestBody{Name: "Pier 9", Address: "9 Quay St", City: "Wellington", Capacity: 300},
		Date:        time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
		StartTime:   "19:00",
		EndTime:     "22:00",
		Tags:        []string{"music", " live ", "music"},
		Pricing:     types.Pricing{General: decimal.NewFromInt(50), VIP: decimal.NewFromInt(120)},
		AvailableTickets: types.TierCounts{
			General: 250,
			VIP:     50,
		},
	}
}

func (s *EventsSuite) create(body types.CreateEventRequestBody) *models.Event {
	event, err := s.Service.Create(context.Background(), 1, body)
	require.NoError(s.T(), err)
	return event
}

func (s *EventsSuite) TestCreate() {
	event := s.create(createBody("Harbour Lights"))

	assert.Equal(s.T(), "harbour-lights", event.Slug)
	assert.Equal(s.T(), types.EVENT_ACTIVE, event.Status)
	assert.Equal(s.T(), types.StringSet{"music", "live"}, event.Tags)
	assert.Equal(s.T(), types.TierCounts{General: 250, VIP: 50}, event.AvailableTickets)
	assert.Equal(s.T(), types.TierCounts{}, event.SoldTickets)
	assert.EqualValues(s.T(), 1, event.OrganizerID)

	again := s.create(createBody("Harbour Lights"))
	assert.Equal(s.T(), "harbour-lights-2", again.Slug)
}

func (s *EventsSuite) TestCreateDefaultsGeneralStockToCapacity() {
	body := createBody("Open Mic")
	body.AvailableTickets = types.TierCounts{}

	event := s.create(body)
	assert.Equal(s.T(), 300, event.AvailableTickets.General)
}

func (s *EventsSuite) TestCreateRejectsBadDate() {
	body := createBody("Open Mic")
	body.Date = "next friday"

	_, err := s.Service.Create(context.Background(), 1, body)
	var verr *types.ValidationError
	assert.True(s.T(), errors.As(err, &verr))
	assert.Equal(s.T(), "date", verr.Field)
}

func (s *EventsSuite) TestListFilters() {
	day := time.Now().AddDate(0, 2, 0)
	concert := createBody("Harbour Lights")
	concert.Date = day.Format("2006-01-02")
	s.create(concert)

	workshop := createBody("Pottery Basics")
	workshop.Category = types.CATEGORY_WORKSHOP
	workshop.Venue.City = "Auckland"
	workshop.Description = "Hands-on clay session"
	s.create(workshop)

	draft := createBody("Secret Show")
	draft.Status = types.EVENT_DRAFT
	s.create(draft)

	res, err := s.Service.List(context.Background(), types.EventQueryFilters{})
	require.NoError(s.T(), err)
	assert.Len(s.T(), res.Events, 2)
	assert.Equal(s.T(), types.Pagination{Current: 1, Pages: 1, Total: 2}, res.Pagination)

	res, err = s.Service.List(context.Background(), types.EventQueryFilters{Category: "workshop"})
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Events, 1)
	assert.Equal(s.T(), "Pottery Basics", res.Events[0].Title)

	res, err = s.Service.List(context.Background(), types.EventQueryFilters{City: "welling"})
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Events, 1)
	assert.Equal(s.T(), "Harbour Lights", res.Events[0].Title)

	res, err = s.Service.List(context.Background(), types.EventQueryFilters{Search: "CLAY"})
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Events, 1)
	assert.Equal(s.T(), "Pottery Basics", res.Events[0].Title)

	res, err = s.Service.List(context.Background(), types.EventQueryFilters{Date: day.Format("2006-01-02")})
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Events, 1)
	assert.Equal(s.T(), "Harbour Lights", res.Events[0].Title)

	res, err = s.Service.List(context.Background(), types.EventQueryFilters{Page: 2, Limit: 1})
	require.NoError(s.T(), err)
	assert.Len(s.T(), res.Events, 1)
	assert.Equal(s.T(), types.Pagination{Current: 2, Pages: 2, Total: 2}, res.Pagination)

	_, err = s.Service.List(context.Background(), types.EventQueryFilters{Date: "tomorrow"})
	assert.Error(s.T(), err)
}

func (s *EventsSuite) TestFeatured() {
	featured := createBody("Harbour Lights")
	featured.Featured = true
	s.create(featured)

	past := createBody("Last Year")
	past.Featured = true
	past.Date = time.Now().AddDate(-1, 0, 0).Format("2006-01-02")
	s.create(past)

	s.create(createBody("Not Featured"))

	events, err := s.Service.Featured(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), "Harbour Lights", events[0].Title)
}

func (s *EventsSuite) TestFeaturedUsesCache() {
	featured := createBody("Harbour Lights")
	featured.Featured = true
	s.create(featured)
	rdb, mock := redismock.NewClientMock()
	s.Service.rdb = rdb

	mock.ExpectGet(featuredKey).RedisNil()
	mock.Regexp().ExpectSet(featuredKey, `Harbour Lights`, featuredTTL).SetVal("OK")
	events, err := s.Service.Featured(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)

	mock.ExpectGet(featuredKey).SetVal(`[{"id":42,"title":"Cached Show"}]`)
	events, err = s.Service.Featured(context.Background())
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), "Cached Show", events[0].Title)

	assert.NoError(s.T(), mock.ExpectationsWereMet())
}

func (s *EventsSuite) TestUpdateLeavesInventoryAlone() {
	event := s.create(createBody("Harbour Lights"))
	title := "Harbour Lights II"
	pricing := types.Pricing{General: decimal.NewFromInt(60), VIP: decimal.NewFromInt(150)}

	updated, err := s.Service.Update(context.Background(), event.ID, types.UpdateEventRequestBody{
		Title:   &title,
		Pricing: &pricing,
		Tags:    []string{"music"},
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Harbour Lights II", updated.Title)
	assert.True(s.T(), updated.Pricing.General.Equal(decimal.NewFromInt(60)))
	assert.Equal(s.T(), types.StringSet{"music"}, updated.Tags)
	assert.Equal(s.T(), event.AvailableTickets, updated.AvailableTickets)
	assert.Equal(s.T(), event.Slug, updated.Slug)

	_, err = s.Service.Update(context.Background(), 999, types.UpdateEventRequestBody{Title: &title})
	assert.ErrorIs(s.T(), err, types.ErrEventNotFound)
}

func (s *EventsSuite) TestSetStatus() {
	event := s.create(createBody("Harbour Lights"))

	updated, err := s.Service.SetStatus(context.Background(), event.ID, types.EVENT_CANCELLED)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), types.EVENT_CANCELLED, updated.Status)

	_, err = s.Service.SetStatus(context.Background(), 999, types.EVENT_CANCELLED)
	assert.ErrorIs(s.T(), err, types.ErrEventNotFound)
}

func (s *EventsSuite) TestDeleteIsGuarded() {
	event := s.create(createBody("Harbour Lights"))
	booking := models.Booking{
		BookingReference: "BK1893146400000AAAAA",
		UserID:           1,
		EventID:          event.ID,
		TotalAmount:      decimal.NewFromInt(50),
		PaymentStatus:    types.PAYMENT_PENDING,
		PaymentMethod:    types.PAYMENT_METHOD_CASH,
		Status:           types.BOOKING_CONFIRMED,
	}
	require.NoError(s.T(), s.DB.Create(&booking).Error)

	err := s.Service.Delete(context.Background(), event.ID)
	assert.ErrorIs(s.T(), err, types.ErrEventHasBookings)

	require.NoError(s.T(), s.DB.Model(&booking).Update("status", types.BOOKING_CANCELLED).Error)
	require.NoError(s.T(), s.Service.Delete(context.Background(), event.ID))

	_, err = s.Service.Get(context.Background(), event.ID)
	assert.ErrorIs(s.T(), err, types.ErrEventNotFound)
	assert.ErrorIs(s.T(), s.Service.Delete(context.Background(), event.ID), types.ErrEventNotFound)
}

func (s *EventsSuite) TestAddImage() {
	event := s.create(createBody("Harbour Lights"))

	updated, err := s.Service.AddImage(context.Background(), event.ID, strings.NewReader("png-bytes"), "image/png")
	require.NoError(s.T(), err)
	require.Len(s.T(), updated.Images, 1)
	assert.True(s.T(), strings.HasPrefix(updated.Images[0], "events/"))
	assert.True(s.T(), strings.HasSuffix(updated.Images[0], ".png"))
	assert.Equal(s.T(), "png-bytes", s.Blobs.objects[updated.Images[0]])

	_, err = s.Service.AddImage(context.Background(), event.ID, strings.NewReader("%PDF"), "application/pdf")
	assert.ErrorIs(s.T(), err, ErrUnsupportedImage)

	_, err = s.Service.AddImage(context.Background(), 999, strings.NewReader("png-bytes"), "image/png")
	assert.ErrorIs(s.T(), err, types.ErrEventNotFound)
}

func (s *EventsSuite) TestListByOrganizer() {
	s.create(createBody("Harbour Lights"))
	mine, err := s.Service.ListByOrganizer(context.Background(), 1)
	require.NoError(s.T(), err)
	assert.Len(s.T(), mine, 1)

	theirs, err := s.Service.ListByOrganizer(context.Background(), 2)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), theirs)
}

func TestEventsSuite(t *testing.T) {
	suite.Run(t, new(EventsSuite))
}
