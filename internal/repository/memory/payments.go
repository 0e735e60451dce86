package memory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type paymentRepo struct {
	s *Store
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.bookings[payment.BookingID]; !ok {
			return fmt.Errorf("%w: booking %d", domain.ErrInUse, payment.BookingID)
		}
		for _, p := range r.s.payments {
			if p.BookingID == payment.BookingID || p.TransactionID == payment.TransactionID {
				return fmt.Errorf("%w: payment for booking %d or transaction %s", domain.ErrDuplicate, payment.BookingID, payment.TransactionID)
			}
		}
		if payment.Status == "" {
			payment.Status = domain.PaymentStatusPending
		}
		now := r.s.now()
		payment.ID = r.s.nextID()
		payment.CreatedAt, payment.UpdatedAt = now, now
		r.s.payments[payment.ID] = *payment
		return nil
	})
}

func (r *paymentRepo) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	var (
		p  domain.Payment
		ok bool
	)
	r.s.read(func() { p, ok = r.s.payments[id] })
	if !ok {
		return nil, fmt.Errorf("%w: payment %d", domain.ErrNotFound, id)
	}
	return &p, nil
}

func (r *paymentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.GetByID(ctx, id)
}

func (r *paymentRepo) GetByBookingID(_ context.Context, bookingID int64) (*domain.Payment, error) {
	var found *domain.Payment
	r.s.read(func() {
		for _, p := range r.s.payments {
			if p.BookingID == bookingID {
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("%w: payment for booking %d", domain.ErrNotFound, bookingID)
	}
	return found, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error) {
	var out domain.Payment
	err := r.s.write(ctx, func() error {
		p, ok := r.s.payments[id]
		if !ok {
			return fmt.Errorf("%w: payment %d", domain.ErrNotFound, id)
		}
		p.Status = status
		p.UpdatedAt = r.s.now()
		r.s.payments[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
