package booking

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) InvalidateFlight(ctx context.Context, flightID int64) error {
	args := m.Called(ctx, flightID)
	return args.Error(0)
}

func seedFlight(t *testing.T, store *memory.Store, total, available int, price int64) domain.Flight {
	t.Helper()
	ctx := context.Background()

	dep := &domain.Airport{Code: "SVO", Name: "Sheremetyevo", City: "Moscow", Country: "Russia"}
	arr := &domain.Airport{Code: "LED", Name: "Pulkovo", City: "Saint Petersburg", Country: "Russia"}
	require.NoError(t, store.Airports().Create(ctx, dep))
	require.NoError(t, store.Airports().Create(ctx, arr))

	f := &domain.Flight{
		FlightNumber:       "SU100",
		Airline:            "Aeroflot",
		DepartureAirportID: dep.ID,
		ArrivalAirportID:   arr.ID,
		DepartureTime:      time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
		ArrivalTime:        time.Date(2026, 6, 1, 10, 30, 0, 0, time.UTC),
		TotalSeats:         total,
		AvailableSeats:     available,
		PriceCents:         price,
	}
	require.NoError(t, store.Flights().Create(ctx, f))
	return *f
}

func newService(store *memory.Store, opts ...BookingServiceOption) *BookingService {
	return NewBookingService(store, store.Bookings(), store.Flights(), opts...)
}

func input(flightID int64, seats int) CreateBookingInput {
	return CreateBookingInput{
		UserID:         1,
		FlightID:       flightID,
		PassengerName:  "Ivan Petrov",
		PassengerEmail: "ivan@example.com",
		PassengerPhone: "+70000000000",
		SeatsCount:     seats,
	}
}

func availableSeats(t *testing.T, store *memory.Store, flightID int64) int {
	t.Helper()
	f, err := store.Flights().GetByID(context.Background(), flightID)
	require.NoError(t, err)
	return f.AvailableSeats
}

func TestCreateBooking_ReservesSeatsAndSnapshotsPrice(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 150, 150, 4800)
	svc := newService(store)

	b, err := svc.CreateBooking(context.Background(), input(f.ID, 1))

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.Equal(t, int64(4800), b.TotalPriceCents)
	assert.Regexp(t, `^BK[0-9]{8}$`, b.BookingNumber)
	assert.Equal(t, 149, availableSeats(t, store, f.ID))
}

func TestCancelBooking_RestoresSeats(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 150, 150, 4800)
	svc := newService(store)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)

	cancelled, err := svc.CancelBooking(ctx, b.ID)

	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 150, availableSeats(t, store, f.ID))
}

func TestCreateBooking_RejectsTooManySeatsBeforeTouchingFlight(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 150, 150, 4800)
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), input(f.ID, 10))

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 150, availableSeats(t, store, f.ID))
}

func TestCreateBooking_Validation(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
	}{
		{"zero seats", func(in *CreateBookingInput) { in.SeatsCount = 0 }},
		{"negative seats", func(in *CreateBookingInput) { in.SeatsCount = -2 }},
		{"empty name", func(in *CreateBookingInput) { in.PassengerName = "  " }},
		{"bad email", func(in *CreateBookingInput) { in.PassengerEmail = "not-an-email" }},
		{"missing flight id", func(in *CreateBookingInput) { in.FlightID = 0 }},
		{"name longer than column", func(in *CreateBookingInput) { in.PassengerName = strings.Repeat("n", 151) }},
		{"email longer than column", func(in *CreateBookingInput) { in.PassengerEmail = strings.Repeat("e", 140) + "@example.com" }},
		{"phone longer than column", func(in *CreateBookingInput) { in.PassengerPhone = strings.Repeat("7", 51) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input(f.ID, 1)
			tt.mutate(&in)
			_, err := svc.CreateBooking(context.Background(), in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Equal(t, 10, availableSeats(t, store, f.ID))
}

func TestCreateBooking_AcceptsNameAtColumnLimit(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)

	in := input(f.ID, 1)
	in.PassengerName = strings.Repeat("n", 150)
	_, err := svc.CreateBooking(context.Background(), in)

	assert.NoError(t, err)
}

func TestCreateBooking_RejectsTotalPriceOverflow(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 1<<62)
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), input(f.ID, 4))

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 10, availableSeats(t, store, f.ID))
}

func TestTotalPrice(t *testing.T) {
	total, err := totalPrice(domain.MaxPriceCents, domain.MaxSeatsPerBooking)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxPriceCents*domain.MaxSeatsPerBooking, total)

	_, err = totalPrice(math.MaxInt64/2+1, 2)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBooking_MaxSeatsOption(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store, WithMaxSeats(4))

	_, err := svc.CreateBooking(context.Background(), input(f.ID, 5))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.CreateBooking(context.Background(), input(f.ID, 4))
	assert.NoError(t, err)
}

func TestCreateBooking_UnknownFlight(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)

	_, err := svc.CreateBooking(context.Background(), input(42, 1))

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateBooking_Boundary(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 3, 100)
	svc := newService(store)
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, input(f.ID, 4))
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, 3, availableSeats(t, store, f.ID))

	_, err = svc.CreateBooking(ctx, input(f.ID, 3))
	require.NoError(t, err)
	assert.Equal(t, 0, availableSeats(t, store, f.ID))

	_, err = svc.CreateBooking(ctx, input(f.ID, 1))
	assert.ErrorIs(t, err, domain.ErrCapacity)
	assert.Equal(t, 0, availableSeats(t, store, f.ID))
}

func TestCancelBooking_TwiceDoesNotDoubleCredit(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 2))
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.CancelBooking(ctx, b.ID)

	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 10, availableSeats(t, store, f.ID))
}

func TestCreateAndCancel_RoundTripRestoresSeats(t *testing.T) {
	for seats := 1; seats <= domain.MaxSeatsPerBooking; seats++ {
		store := memory.NewStore()
		f := seedFlight(t, store, 20, 17, 100)
		svc := newService(store)
		ctx := context.Background()

		b, err := svc.CreateBooking(ctx, input(f.ID, seats))
		require.NoError(t, err)
		assert.Equal(t, 17-seats, availableSeats(t, store, f.ID))

		_, err = svc.CancelBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 17, availableSeats(t, store, f.ID), "seats=%d", seats)
	}
}

func TestCreateBooking_ConcurrentRequestsDoNotOversell(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		seatsSold int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), input(f.ID, 3))
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrCapacity)
				return
			}
			mu.Lock()
			succeeded++
			seatsSold += 3
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 10-seatsSold, availableSeats(t, store, f.ID))
	assert.GreaterOrEqual(t, availableSeats(t, store, f.ID), 0)
}

func TestCreateBooking_RetriesOnNumberCollision(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	numbers := []string{"BK00000001", "BK00000001", "BK00000002"}
	var i int
	gen := func() string {
		n := numbers[i]
		i++
		return n
	}
	svc := newService(store, WithNumberGenerator(gen))
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)
	second, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)

	assert.Equal(t, "BK00000001", first.BookingNumber)
	assert.Equal(t, "BK00000002", second.BookingNumber)
	assert.Equal(t, 8, availableSeats(t, store, f.ID))
}

func TestCreateBooking_GivesUpAfterAttemptsAndRollsBack(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store,
		WithNumberGenerator(func() string { return "BK11111111" }),
		WithNumberAttempts(3))
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, input(f.ID, 2))
	require.NoError(t, err)

	_, err = svc.CreateBooking(ctx, input(f.ID, 2))

	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, 8, availableSeats(t, store, f.ID))
}

func TestConfirmBooking(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)

	confirmed, err := svc.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)

	again, err := svc.ConfirmBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, again.Status)
	assert.Equal(t, 9, availableSeats(t, store, f.ID))

	_, err = svc.ConfirmBooking(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 2))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, b.ID, domain.BookingStatusPending)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	cancelled, err := svc.UpdateStatus(ctx, b.ID, domain.BookingStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, availableSeats(t, store, f.ID))

	completed, err := svc.UpdateStatus(ctx, b.ID, domain.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, completed.Status)
	assert.Equal(t, 10, availableSeats(t, store, f.ID))

	_, err = svc.CancelBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetAndListBookings(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	svc := newService(store)
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)
	other := input(f.ID, 1)
	other.UserID = 2
	_, err = svc.CreateBooking(ctx, other)
	require.NoError(t, err)

	got, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.BookingNumber, got.BookingNumber)

	byNumber, err := svc.GetBookingByNumber(ctx, " "+b.BookingNumber+" ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byNumber.ID)

	all, err := svc.ListBookings(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListBookings(ctx, domain.BookingFilter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.GetBooking(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteArrivedBookings(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	afterArrival := f.ArrivalTime.Add(time.Hour)
	producer := new(MockProducer)
	producer.On("Publish", mock.Anything, "bookings", mock.Anything, mock.Anything).Return(nil)
	svc := newService(store,
		WithProducer(producer, "bookings"),
		WithClock(func() time.Time { return afterArrival }))
	ctx := context.Background()

	pending, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)
	confirmed, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)
	_, err = svc.ConfirmBooking(ctx, confirmed.ID)
	require.NoError(t, err)

	done, err := svc.CompleteArrivedBookings(ctx)

	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, confirmed.ID, done[0].ID)
	assert.Equal(t, domain.BookingStatusCompleted, done[0].Status)

	still, err := svc.GetBooking(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, still.Status)
	producer.AssertCalled(t, "Publish", mock.Anything, "bookings", mock.Anything,
		mock.MatchedBy(func(ev kafka.BookingEvent) bool { return ev.Type == kafka.EventBookingCompleted }))
}

func TestCreateBooking_PublishesAndInvalidatesCache(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	producer := new(MockProducer)
	cache := new(MockCache)

	producer.On("Publish", mock.Anything, "bookings", mock.AnythingOfType("string"),
		mock.MatchedBy(func(ev kafka.BookingEvent) bool { return ev.Type == kafka.EventBookingCreated })).
		Return(nil).Once()
	producer.On("Publish", mock.Anything, "notifications", mock.AnythingOfType("string"),
		mock.AnythingOfType("kafka.BookingEvent")).
		Return(nil).Once()
	cache.On("InvalidateFlight", mock.Anything, f.ID).Return(nil).Once()

	svc := newService(store,
		WithProducer(producer, "bookings"),
		WithNotificationsTopic("notifications"),
		WithCache(cache))

	_, err := svc.CreateBooking(context.Background(), input(f.ID, 1))

	require.NoError(t, err)
	producer.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCreateBooking_SideEffectFailuresDoNotFailRequest(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	producer := new(MockProducer)
	cache := new(MockCache)
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))
	cache.On("InvalidateFlight", mock.Anything, f.ID).Return(errors.New("redis down"))

	svc := newService(store, WithProducer(producer, "bookings"), WithNotificationsTopic("notifications"), WithCache(cache))

	b, err := svc.CreateBooking(context.Background(), input(f.ID, 1))

	require.NoError(t, err)
	assert.NotNil(t, b)
	producer.AssertNumberOfCalls(t, "Publish", 1)
}

func TestCreateBooking_PublishIsBoundedByTimeout(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	producer := new(MockProducer)
	hasDeadline := mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 50*time.Millisecond
	})
	producer.On("Publish", hasDeadline, "bookings", mock.Anything, mock.Anything).Return(nil).Once()

	svc := newService(store, WithProducer(producer, "bookings"), WithPublishTimeout(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := svc.CreateBooking(ctx, input(f.ID, 1))

	require.NoError(t, err)
	producer.AssertExpectations(t)
}

func TestCancelBooking_NoSideEffectsOnFailure(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 10, 10, 100)
	producer := new(MockProducer)
	cache := new(MockCache)
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("InvalidateFlight", mock.Anything, f.ID).Return(nil)
	svc := newService(store, WithProducer(producer, "bookings"), WithCache(cache))
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, input(f.ID, 1))
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.CancelBooking(ctx, b.ID)
	require.Error(t, err)

	producer.AssertNumberOfCalls(t, "Publish", 2)
	cache.AssertNumberOfCalls(t, "InvalidateFlight", 2)
}
