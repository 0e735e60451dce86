package inventory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"go.uber.org/zap"
)

// SeatStore applies seat deltas to a flight's available_seats counter.
type SeatStore interface {
	ReserveSeats(ctx context.Context, flightID int64, n int) (int, error)
	ReleaseSeats(ctx context.Context, flightID int64, n int) (int, error)
}

// Ledger is the only writer of available_seats. It keeps
// 0 <= available_seats <= total_seats but does not know about bookings:
// callers make sure every reservation is released at most once.
type Ledger struct {
	store  SeatStore
	logger *zap.Logger
}

func NewLedger(store SeatStore, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// Reserve takes n seats from the flight. It fails with domain.ErrCapacity when
// n is not positive or fewer than n seats are left.
func (l *Ledger) Reserve(ctx context.Context, flightID int64, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: seat count must be positive, got %d", domain.ErrCapacity, n)
	}
	left, err := l.store.ReserveSeats(ctx, flightID, n)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("seats reserved",
		zap.Int64("flight_id", flightID),
		zap.Int("seats", n),
		zap.Int("available", left))
	return left, nil
}

// Release returns n seats to the flight, capped at its total capacity.
func (l *Ledger) Release(ctx context.Context, flightID int64, n int) (int, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: seat count must be positive, got %d", domain.ErrCapacity, n)
	}
	left, err := l.store.ReleaseSeats(ctx, flightID, n)
	if err != nil {
		return 0, err
	}
	l.logger.Debug("seats released",
		zap.Int64("flight_id", flightID),
		zap.Int("seats", n),
		zap.Int("available", left))
	return left, nil
}
