// Package memory keeps every record in process memory behind the same
// contracts as the PostgreSQL repositories. A unit of work holds an exclusive
// lock for its whole duration and restores a snapshot when it fails.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	airports map[int64]domain.Airport
	flights  map[int64]domain.Flight
	bookings map[int64]domain.Booking
	payments map[int64]domain.Payment
	seq      int64

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		airports: make(map[int64]domain.Airport),
		flights:  make(map[int64]domain.Flight),
		bookings: make(map[int64]domain.Booking),
		payments: make(map[int64]domain.Payment),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type txKey struct{}

// inTx reports whether ctx carries a unit of work opened on this store.
func (s *Store) inTx(ctx context.Context) bool {
	tx, ok := ctx.Value(txKey{}).(*Store)
	return ok && tx == s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	airports map[int64]domain.Airport
	flights  map[int64]domain.Flight
	bookings map[int64]domain.Booking
	payments map[int64]domain.Payment
	seq      int64
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{
		airports: maps.Clone(s.airports),
		flights:  maps.Clone(s.flights),
		bookings: maps.Clone(s.bookings),
		payments: maps.Clone(s.payments),
		seq:      s.seq,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.airports = snap.airports
	s.flights = snap.flights
	s.bookings = snap.bookings
	s.payments = snap.payments
	s.seq = snap.seq
}

// write runs fn under the data lock. Outside a unit of work it also excludes
// running units of work so that a rollback cannot discard the write.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if !s.inTx(ctx) {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) Airports() repository.AirportRepository { return &airportRepo{s: s} }
func (s *Store) Flights() repository.FlightRepository   { return &flightRepo{s: s} }
func (s *Store) Bookings() repository.BookingRepository { return &bookingRepo{s: s} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{s: s} }

var _ repository.TxManager = (*Store)(nil)
