package bookings_service_api

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository/memory"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

func seedFlight(t *testing.T, store *memory.Store, seats int) domain.Flight {
	t.Helper()
	ctx := context.Background()

	dep := &domain.Airport{Code: "SVO", Name: "Sheremetyevo", City: "Moscow", Country: "Russia"}
	arr := &domain.Airport{Code: "KZN", Name: "Kazan", City: "Kazan", Country: "Russia"}
	require.NoError(t, store.Airports().Create(ctx, dep))
	require.NoError(t, store.Airports().Create(ctx, arr))

	f := &domain.Flight{
		FlightNumber:       "SU1250",
		Airline:            "Aeroflot",
		DepartureAirportID: dep.ID,
		ArrivalAirportID:   arr.ID,
		DepartureTime:      time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC),
		ArrivalTime:        time.Date(2026, 7, 1, 10, 40, 0, 0, time.UTC),
		TotalSeats:         seats,
		AvailableSeats:     seats,
		PriceCents:         7500,
	}
	require.NoError(t, store.Flights().Create(ctx, f))
	return *f
}

func startServer(t *testing.T, bookings booking.BookingUseCase) *Client {
	t.Helper()

	srv := grpc.NewServer()
	NewServer(bookings, nil).Register(srv)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestBookingsService_Lifecycle(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 5)
	client := startServer(t, booking.NewBookingService(store, store.Bookings(), store.Flights()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	created, err := client.CreateBooking(ctx, &CreateBookingRequest{
		UserID:         7,
		FlightID:       f.ID,
		PassengerName:  "Anna Smirnova",
		PassengerEmail: "anna@example.com",
		SeatsCount:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, created.Status)
	assert.Equal(t, int64(15000), created.TotalPriceCents)
	assert.NotEmpty(t, created.BookingNumber)

	got, err := client.GetBooking(ctx, &BookingRequest{BookingNumber: created.BookingNumber})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	confirmed, err := client.ConfirmBooking(ctx, &BookingRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, confirmed.Status)

	cancelled, err := client.CancelBooking(ctx, &BookingRequest{ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)

	left, err := store.Flights().GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, left.AvailableSeats)

	_, err = client.CancelBooking(ctx, &BookingRequest{ID: created.ID})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestBookingsService_ErrorCodes(t *testing.T) {
	store := memory.NewStore()
	f := seedFlight(t, store, 1)
	client := startServer(t, booking.NewBookingService(store, store.Bookings(), store.Flights()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{
			name: "unknown booking",
			call: func() error {
				_, err := client.GetBooking(ctx, &BookingRequest{ID: 404})
				return err
			},
			want: codes.NotFound,
		},
		{
			name: "missing identifier",
			call: func() error {
				_, err := client.ConfirmBooking(ctx, &BookingRequest{})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "invalid passenger",
			call: func() error {
				_, err := client.CreateBooking(ctx, &CreateBookingRequest{FlightID: f.ID, SeatsCount: 1})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "not enough seats",
			call: func() error {
				_, err := client.CreateBooking(ctx, &CreateBookingRequest{
					FlightID:       f.ID,
					PassengerName:  "Oleg Ivanov",
					PassengerEmail: "oleg@example.com",
					SeatsCount:     2,
				})
				return err
			},
			want: codes.FailedPrecondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(tt.call()))
		})
	}
}

type failingBookings struct {
	booking.BookingUseCase
}

func (failingBookings) GetBooking(context.Context, int64) (*domain.Booking, error) {
	return nil, errors.New("connection reset by peer")
}

func TestBookingsService_HidesInternalErrors(t *testing.T) {
	client := startServer(t, failingBookings{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.GetBooking(ctx, &BookingRequest{ID: 1})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.Equal(t, "internal server error", st.Message())
}
