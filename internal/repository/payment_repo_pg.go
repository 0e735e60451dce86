package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PaymentRepository interface {
	// Create inserts a payment. A colliding transaction id or a second payment
	// for the same booking yields domain.ErrDuplicate.
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error)
	GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error)
}

type PGPaymentRepository struct {
	db DB
}

func NewPaymentRepository(db DB) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount_cents, payment_method, transaction_id, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.PaymentMethod, &p.TransactionID, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.Status == "" {
		payment.Status = domain.PaymentStatusPending
	}
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO payments (booking_id, amount_cents, payment_method, transaction_id, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`,
		payment.BookingID, payment.AmountCents, payment.PaymentMethod, payment.TransactionID, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: payment for booking %d or transaction %s", domain.ErrDuplicate, payment.BookingID, payment.TransactionID)
	}
	return translateError(err, "payment "+payment.TransactionID)
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1`, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

func (r *PGPaymentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

func (r *PGPaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id=$1`, bookingID))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("payment for booking %d", bookingID))
	}
	return p, nil
}

func (r *PGPaymentRepository) UpdateStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Payment, error) {
	p, err := scanPayment(conn(ctx, r.db).QueryRow(ctx, `UPDATE payments SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+paymentColumns, status, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
