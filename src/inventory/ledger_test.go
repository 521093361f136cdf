package inventory

import (
	"context"
	"errors"
	"eventhub/src/db/dbtest"
	"eventhub/src/models"
	"eventhub/src/types"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type LedgerSuite struct {
	suite.Suite
	DB     *gorm.DB
	Ledger *Ledger
}

func (s *LedgerSuite) SetupTest() {
	s.DB = dbtest.NewSQLiteDB()
	s.Ledger = NewLedger()
}

func (s *LedgerSuite) newEvent(available types.TierCounts, pricing types.Pricing) *models.Event {
	event := models.Event{
		Title:            "Harbour Lights",
		Slug:             "harbour-lights-" + time.Now().Format("150405.000000000"),
		Category:         types.CATEGORY_CONCERT,
		Venue:            types.Venue{Name: "Pier 9", Address: "9 Quay St", City: "Wellington", Capacity: 500},
		Date:             time.Now().Add(72 * time.Hour),
		StartTime:        "19:00",
		EndTime:          "22:00",
		Status:           types.EVENT_ACTIVE,
		Pricing:          pricing,
		AvailableTickets: available,
	}
	require.NoError(s.T(), s.DB.Create(&event).Error)
	return &event
}

func (s *LedgerSuite) reload(id uint) models.Event {
	var event models.Event
	require.NoError(s.T(), s.DB.First(&event, id).Error)
	return event
}

func (s *LedgerSuite) reserve(eventID uint, want types.TierCounts) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Ledger.Reserve(context.Background(), tx, eventID, want)
	})
}

func defaultPricing() types.Pricing {
	return types.Pricing{
		General: decimal.NewFromInt(50),
		VIP:     decimal.NewFromInt(100),
		Premium: decimal.NewFromInt(250),
	}
}

func (s *LedgerSuite) TestReserveMovesAvailableToSold() {
	event := s.newEvent(types.TierCounts{General: 10, VIP: 5, Premium: 2}, defaultPricing())

	err := s.reserve(event.ID, types.TierCounts{General: 2, VIP: 1})

	s.NoError(err)
	got := s.reload(event.ID)
	s.Equal(types.TierCounts{General: 8, VIP: 4, Premium: 2}, got.AvailableTickets)
	s.Equal(types.TierCounts{General: 2, VIP: 1}, got.SoldTickets)
}

func (s *LedgerSuite) TestReserveInsufficientLeavesCountsUntouched() {
	event := s.newEvent(types.TierCounts{General: 1, VIP: 5}, defaultPricing())

	err := s.reserve(event.ID, types.TierCounts{General: 2})

	var inv *types.InsufficientInventoryError
	s.Require().True(errors.As(err, &inv))
	s.Equal(types.TIER_GENERAL, inv.Tier)
	s.True(errors.Is(err, types.ErrInsufficientInventory))
	s.Equal("Not enough General tickets available", err.Error())
	s.Equal(1, s.reload(event.ID).AvailableTickets.General)
}

func (s *LedgerSuite) TestReserveIsAllOrNothing() {
	event := s.newEvent(types.TierCounts{General: 10, VIP: 1}, defaultPricing())

	err := s.reserve(event.ID, types.TierCounts{General: 3, VIP: 2})

	var inv *types.InsufficientInventoryError
	s.Require().True(errors.As(err, &inv))
	s.Equal(types.TIER_VIP, inv.Tier)
	got := s.reload(event.ID)
	s.Equal(10, got.AvailableTickets.General)
	s.Equal(0, got.SoldTickets.General)
	s.Equal(1, got.AvailableTickets.VIP)
}

func (s *LedgerSuite) TestReserveTierNotOffered() {
	pricing := defaultPricing()
	pricing.Premium = decimal.Zero
	event := s.newEvent(types.TierCounts{General: 10, Premium: 10}, pricing)

	err := s.reserve(event.ID, types.TierCounts{Premium: 1})

	var inv *types.InsufficientInventoryError
	s.Require().True(errors.As(err, &inv))
	s.Equal(types.TIER_PREMIUM, inv.Tier)
	s.Equal(10, s.reload(event.ID).AvailableTickets.Premium)
}

func (s *LedgerSuite) TestReserveRejectsBadQuantities() {
	event := s.newEvent(types.TierCounts{General: 10}, defaultPricing())

	s.ErrorIs(s.reserve(event.ID, types.TierCounts{}), types.ErrNoTicketsSelected)
	s.ErrorIs(s.reserve(event.ID, types.TierCounts{General: -1, VIP: 2}), types.ErrInvalidQuantity)
	s.Equal(10, s.reload(event.ID).AvailableTickets.General)
}

func (s *LedgerSuite) TestReserveUnknownEvent() {
	err := s.reserve(9999, types.TierCounts{General: 1})

	s.ErrorIs(err, types.ErrEventNotFound)
}

func (s *LedgerSuite) TestRollbackRestoresInventory() {
	event := s.newEvent(types.TierCounts{General: 5}, defaultPricing())
	boom := errors.New("insert failed")

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.Ledger.Reserve(context.Background(), tx, event.ID, types.TierCounts{General: 3}); err != nil {
			return err
		}
		return boom
	})

	s.ErrorIs(err, boom)
	got := s.reload(event.ID)
	s.Equal(5, got.AvailableTickets.General)
	s.Equal(0, got.SoldTickets.General)
}

func (s *LedgerSuite) TestReleaseConservesTotals() {
	event := s.newEvent(types.TierCounts{General: 6, VIP: 4}, defaultPricing())
	s.Require().NoError(s.reserve(event.ID, types.TierCounts{General: 4, VIP: 1}))

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Ledger.Release(context.Background(), tx, event.ID, types.TierCounts{General: 4, VIP: 1})
	})

	s.NoError(err)
	got := s.reload(event.ID)
	s.Equal(types.TierCounts{General: 6, VIP: 4}, got.AvailableTickets)
	s.Equal(types.TierCounts{}, got.SoldTickets)
}

func (s *LedgerSuite) TestReleaseMoreThanSoldFails() {
	event := s.newEvent(types.TierCounts{General: 6}, defaultPricing())

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		return s.Ledger.Release(context.Background(), tx, event.ID, types.TierCounts{General: 1})
	})

	s.Error(err)
	s.Equal(6, s.reload(event.ID).AvailableTickets.General)
}

func (s *LedgerSuite) TestConcurrentReservationsNeverOversell() {
	const (
		available = 10
		perCall   = 3
		callers   = 20
	)
	event := s.newEvent(types.TierCounts{VIP: available}, defaultPricing())

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.reserve(event.ID, types.TierCounts{VIP: perCall})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, types.ErrInsufficientInventory):
				rejected++
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(available/perCall, successes)
	s.Equal(callers-available/perCall, rejected)
	got := s.reload(event.ID)
	s.Equal(available%perCall, got.AvailableTickets.VIP)
	s.Equal(successes*perCall, got.SoldTickets.VIP)
	s.Equal(available, got.AvailableTickets.VIP+got.SoldTickets.VIP)
}

func (s *LedgerSuite) TestColumnsExistInSchema() {
	for _, t := range types.TIERS {
		avail, sold, price := columns(t)
		for _, column := range []string{avail, sold, price} {
			s.True(s.DB.Migrator().HasColumn(&models.Event{}, column), column)
		}
	}
}

func (s *LedgerSuite) TestReserveVIPAgainstMigratedSchema() {
	event := s.newEvent(types.TierCounts{General: 1, VIP: 1}, defaultPricing())

	s.NoError(s.reserve(event.ID, types.TierCounts{VIP: 1}))
	err := s.reserve(event.ID, types.TierCounts{VIP: 1})

	var inv *types.InsufficientInventoryError
	s.Require().True(errors.As(err, &inv), err)
	s.Equal(types.TIER_VIP, inv.Tier)
	s.Equal("Not enough VIP tickets available", err.Error())
	got := s.reload(event.ID)
	s.Equal(0, got.AvailableTickets.VIP)
	s.Equal(1, got.SoldTickets.VIP)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func TestReserveIssuesSingleConditionalUpdate(t *testing.T) {
	gdb, mock := dbtest.NewMockDB()
	mock.ExpectExec(`UPDATE "events" SET .*WHERE id = \$\d+ AND price_general > 0 AND available_general >= \$\d+ AND price_vip > 0 AND available_vip >= \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := NewLedger().Reserve(context.Background(), gdb, 7, types.TierCounts{General: 2, VIP: 1})

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(types.TierCounts{}), types.ErrNoTicketsSelected)
	assert.ErrorIs(t, Validate(types.TierCounts{Premium: -2}), types.ErrInvalidQuantity)
	assert.NoError(t, Validate(types.TierCounts{Premium: 2}))
	assert.NoError(t, Validate(types.TierCounts{General: types.MAX_TIER_QUANTITY}))
	assert.ErrorIs(t, Validate(types.TierCounts{General: types.MAX_TIER_QUANTITY + 1}), types.ErrInvalidQuantity)
	assert.ErrorIs(t, Validate(types.TierCounts{General: math.MaxInt, VIP: math.MaxInt, Premium: 2}), types.ErrInvalidQuantity)
}
