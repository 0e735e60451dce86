package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type bookingRepo struct {
	s *Store
}

func (r *bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.flights[booking.FlightID]; !ok {
			return fmt.Errorf("%w: flight %d", domain.ErrInUse, booking.FlightID)
		}
		for _, b := range r.s.bookings {
			if b.BookingNumber == booking.BookingNumber {
				return fmt.Errorf("%w: booking number %s", domain.ErrDuplicate, booking.BookingNumber)
			}
		}
		if booking.Status == "" {
			booking.Status = domain.BookingStatusPending
		}
		now := r.s.now()
		booking.ID = r.s.nextID()
		booking.CreatedAt, booking.UpdatedAt = now, now
		r.s.bookings[booking.ID] = *booking
		return nil
	})
}

func (r *bookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	var (
		b  domain.Booking
		ok bool
	)
	r.s.read(func() { b, ok = r.s.bookings[id] })
	if !ok {
		return nil, fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
	}
	return &b, nil
}

// GetByIDForUpdate needs no row lock: a unit of work already owns the store.
func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepo) GetByNumber(_ context.Context, number string) (*domain.Booking, error) {
	var found *domain.Booking
	r.s.read(func() {
		for _, b := range r.s.bookings {
			if b.BookingNumber == number {
				found = &b
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("%w: booking %s", domain.ErrNotFound, number)
	}
	return found, nil
}

func (r *bookingRepo) List(_ context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	r.s.read(func() {
		for _, b := range r.s.bookings {
			if filter.Matches(b) {
				out = append(out, b)
			}
		}
	})
	sortNewestFirst(out)
	return out, nil
}

func (r *bookingRepo) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	var out domain.Booking
	err := r.s.write(ctx, func() error {
		b, ok := r.s.bookings[id]
		if !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrNotFound, id)
		}
		b.Status = status
		b.UpdatedAt = r.s.now()
		r.s.bookings[id] = b
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *bookingRepo) CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	completed := make([]domain.Booking, 0)
	err := r.s.write(ctx, func() error {
		now := r.s.now()
		for id, b := range r.s.bookings {
			if b.Status != domain.BookingStatusConfirmed {
				continue
			}
			f, ok := r.s.flights[b.FlightID]
			if !ok || f.ArrivalTime.After(deadline) {
				continue
			}
			b.Status = domain.BookingStatusCompleted
			b.UpdatedAt = now
			r.s.bookings[id] = b
			completed = append(completed, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortNewestFirst(completed)
	return completed, nil
}

func sortNewestFirst(bookings []domain.Booking) {
	slices.SortFunc(bookings, func(a, b domain.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
