package booking

import (
	"context"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/inventory"
)

// Lifecycle applies status transitions to stored bookings and drives the seat
// ledger from them. It must run inside a unit of work: the booking row is
// locked, then the seat release and status write share the caller's
// transaction.
type Lifecycle struct {
	bookings repository.BookingRepository
	ledger   *inventory.Ledger
}

func NewLifecycle(bookings repository.BookingRepository, ledger *inventory.Ledger) *Lifecycle {
	return &Lifecycle{bookings: bookings, ledger: ledger}
}

func (l *Lifecycle) Apply(ctx context.Context, bookingID int64, ev domain.BookingEvent) (*domain.Booking, domain.Transition, error) {
	current, err := l.bookings.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		return nil, domain.Transition{}, err
	}

	tr, err := domain.NextStatus(current.Status, ev)
	if err != nil {
		return nil, tr, err
	}

	if tr.ReleaseSeats {
		if _, err := l.ledger.Release(ctx, current.FlightID, current.SeatsCount); err != nil {
			return nil, tr, err
		}
	}

	updated, err := l.bookings.UpdateStatus(ctx, bookingID, tr.To)
	if err != nil {
		return nil, tr, err
	}
	return updated, tr, nil
}
