package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	// Create inserts a pending booking. A colliding booking number yields
	// domain.ErrDuplicate without aborting the surrounding transaction.
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// GetByIDForUpdate locks the booking row until the unit of work ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	// CompleteArrivedBefore moves confirmed bookings on flights that arrived
	// before deadline to completed and returns them.
	CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, booking_number, user_id, flight_id, passenger_name, passenger_email, passenger_phone, seats_count, total_price_cents, status, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.BookingNumber, &b.UserID, &b.FlightID, &b.PassengerName, &b.PassengerEmail, &b.PassengerPhone, &b.SeatsCount, &b.TotalPriceCents, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	if booking.Status == "" {
		booking.Status = domain.BookingStatusPending
	}
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (booking_number, user_id, flight_id, passenger_name, passenger_email, passenger_phone, seats_count, total_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (booking_number) DO NOTHING
		RETURNING id, created_at, updated_at`,
		booking.BookingNumber, booking.UserID, booking.FlightID, booking.PassengerName, booking.PassengerEmail, booking.PassengerPhone, booking.SeatsCount, booking.TotalPriceCents, booking.Status).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: booking number %s", domain.ErrDuplicate, booking.BookingNumber)
	}
	return translateError(err, "booking "+booking.BookingNumber)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (r *PGBookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (r *PGBookingRepository) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_number=$1`, number))
	if err != nil {
		return nil, translateError(err, "booking "+number)
	}
	return b, nil
}

func (r *PGBookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE ($1::bigint = 0 OR user_id = $1) AND ($2::bigint = 0 OR flight_id = $2)
		ORDER BY created_at DESC, id DESC`, filter.UserID, filter.FlightID)
	if err != nil {
		return nil, translateError(err, "bookings")
	}
	return collectBookings(rows)
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	b, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, status, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("booking %d", id))
	}
	return b, nil
}

func (r *PGBookingRepository) CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `UPDATE bookings b SET status=$1, updated_at=now()
		FROM flights f
		WHERE b.flight_id = f.id AND b.status=$2 AND f.arrival_time <= $3
		RETURNING b.id, b.booking_number, b.user_id, b.flight_id, b.passenger_name, b.passenger_email, b.passenger_phone, b.seats_count, b.total_price_cents, b.status, b.created_at, b.updated_at`,
		domain.BookingStatusCompleted, domain.BookingStatusConfirmed, deadline)
	if err != nil {
		return nil, translateError(err, "bookings")
	}
	return collectBookings(rows)
}

var _ BookingRepository = (*PGBookingRepository)(nil)
