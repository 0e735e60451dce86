package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFlight(t *testing.T, s *Store, total, available int) domain.Flight {
	t.Helper()
	ctx := context.Background()

	dep := &domain.Airport{Code: "svo", Name: "Sheremetyevo", City: "Moscow", Country: "Russia"}
	arr := &domain.Airport{Code: "LED", Name: "Pulkovo", City: "Saint Petersburg", Country: "Russia"}
	require.NoError(t, s.Airports().Create(ctx, dep))
	require.NoError(t, s.Airports().Create(ctx, arr))

	f := &domain.Flight{
		FlightNumber:       "SU100",
		Airline:            "Aeroflot",
		DepartureAirportID: dep.ID,
		ArrivalAirportID:   arr.ID,
		DepartureTime:      time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		ArrivalTime:        time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC),
		TotalSeats:         total,
		AvailableSeats:     available,
		PriceCents:         4800,
	}
	require.NoError(t, s.Flights().Create(ctx, f))
	return *f
}

func TestStore_AirportCodeIsUpperCasedAndUnique(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a := &domain.Airport{Code: "vko", Name: "Vnukovo"}
	require.NoError(t, s.Airports().Create(ctx, a))
	assert.Equal(t, "VKO", a.Code)

	got, err := s.Airports().GetByCode(ctx, "Vko")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	err = s.Airports().Create(ctx, &domain.Airport{Code: "VKO"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStore_ReserveAndReleaseSeats(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 3)

	left, err := s.Flights().ReserveSeats(ctx, f.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	_, err = s.Flights().ReserveSeats(ctx, f.ID, 1)
	assert.ErrorIs(t, err, domain.ErrCapacity)

	left, err = s.Flights().ReleaseSeats(ctx, f.ID, 25)
	require.NoError(t, err)
	assert.Equal(t, 10, left, "release is capped at total seats")

	_, err = s.Flights().ReserveSeats(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.Flights().ReserveSeats(ctx, f.ID, 4); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Flights().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableSeats)
}

func TestStore_NestedTxJoinsOuter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		return s.WithinTx(ctx, func(ctx context.Context) error {
			_, err := s.Flights().ReserveSeats(ctx, f.ID, 2)
			return err
		})
	})
	require.NoError(t, err)

	got, _ := s.Flights().GetByID(ctx, f.ID)
	assert.Equal(t, 8, got.AvailableSeats)
}

func TestStore_TxOfAnotherStoreDoesNotJoin(t *testing.T) {
	other := NewStore()
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	boom := errors.New("boom")
	err := other.WithinTx(ctx, func(ctx context.Context) error {
		return s.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.Flights().ReserveSeats(ctx, f.ID, 4); err != nil {
				return err
			}
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Flights().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.AvailableSeats, "the inner store rolls back its own unit of work")
}

func TestStore_WriteUnderForeignTxWaitsForRunningTx(t *testing.T) {
	other := NewStore()
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.Flights().ReserveSeats(ctx, f.ID, 2); err != nil {
				return err
			}
			close(started)
			<-release
			return errors.New("rollback")
		})
	}()
	<-started

	written := make(chan struct{})
	go func() {
		_ = other.WithinTx(ctx, func(foreign context.Context) error {
			_, err := s.Flights().ReserveSeats(foreign, f.ID, 1)
			close(written)
			return err
		})
	}()

	select {
	case <-written:
		t.Fatal("write carried by another store's tx bypassed the running unit of work")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.Error(t, <-done)
	<-written

	got, err := s.Flights().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.AvailableSeats, "write after rollback survives")
}

func TestStore_DeleteFlightCascades(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	b := &domain.Booking{BookingNumber: "BK00000001", FlightID: f.ID, SeatsCount: 1}
	require.NoError(t, s.Bookings().Create(ctx, b))
	p := &domain.Payment{BookingID: b.ID, TransactionID: "TRX0000000001"}
	require.NoError(t, s.Payments().Create(ctx, p))

	err := s.Airports().Delete(ctx, f.DepartureAirportID)
	assert.ErrorIs(t, err, domain.ErrInUse)

	require.NoError(t, s.Flights().Delete(ctx, f.ID))

	_, err = s.Bookings().GetByID(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Payments().GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, s.Airports().Delete(ctx, f.DepartureAirportID))
}

func TestStore_UniqueBookingAndPayment(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	b := &domain.Booking{BookingNumber: "BK12345678", FlightID: f.ID, SeatsCount: 1}
	require.NoError(t, s.Bookings().Create(ctx, b))
	assert.Equal(t, domain.BookingStatusPending, b.Status)

	err := s.Bookings().Create(ctx, &domain.Booking{BookingNumber: "BK12345678", FlightID: f.ID, SeatsCount: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	require.NoError(t, s.Payments().Create(ctx, &domain.Payment{BookingID: b.ID, TransactionID: "TRX1"}))
	err = s.Payments().Create(ctx, &domain.Payment{BookingID: b.ID, TransactionID: "TRX2"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestStore_CompleteArrivedBefore(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	f := seedFlight(t, s, 10, 10)

	confirmed := &domain.Booking{BookingNumber: "BK1", FlightID: f.ID, SeatsCount: 1, Status: domain.BookingStatusConfirmed}
	pending := &domain.Booking{BookingNumber: "BK2", FlightID: f.ID, SeatsCount: 1}
	require.NoError(t, s.Bookings().Create(ctx, confirmed))
	require.NoError(t, s.Bookings().Create(ctx, pending))

	done, err := s.Bookings().CompleteArrivedBefore(ctx, f.ArrivalTime.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, done)

	done, err = s.Bookings().CompleteArrivedBefore(ctx, f.ArrivalTime)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, confirmed.ID, done[0].ID)
	assert.Equal(t, domain.BookingStatusCompleted, done[0].Status)

	got, _ := s.Bookings().GetByID(ctx, pending.ID)
	assert.Equal(t, domain.BookingStatusPending, got.Status)
}
