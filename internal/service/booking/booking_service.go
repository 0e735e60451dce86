package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/idgen"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/inventory"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	defaultNumberAttempts = 5
	defaultPublishTimeout = 2 * time.Second
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int64) (*domain.Booking, error)
	GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error)
	ConfirmBooking(ctx context.Context, id int64) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error)
	CompleteArrivedBookings(ctx context.Context) ([]domain.Booking, error)
}

// FlightCache drops cached flight data after the seat counter moves.
type FlightCache interface {
	InvalidateFlight(ctx context.Context, flightID int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type CreateBookingInput struct {
	UserID         int64  `json:"user_id" validate:"gte=0"`
	FlightID       int64  `json:"flight_id" validate:"required,gt=0"`
	PassengerName  string `json:"passenger_name" validate:"required,max=150"`
	PassengerEmail string `json:"passenger_email" validate:"required,email,max=150"`
	PassengerPhone string `json:"passenger_phone" validate:"max=50"`
	SeatsCount     int    `json:"seats_count"`
}

type BookingService struct {
	tx        repository.TxManager
	bookings  repository.BookingRepository
	flights   repository.FlightRepository
	ledger    *inventory.Ledger
	lifecycle *Lifecycle
	cache     FlightCache
	producer  Producer
	logger    *zap.Logger
	validate  *validator.Validate

	bookingTopic       string
	notificationsTopic string
	maxSeats           int
	numberAttempts     int
	newNumber          idgen.Generator
	now                func() time.Time
	publishTimeout     time.Duration
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithCache(cache FlightCache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = cache
	}
}

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithLogger(logger *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxSeats lowers the per-booking seat limit. Values outside
// 1..domain.MaxSeatsPerBooking are ignored.
func WithMaxSeats(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n >= 1 && n <= domain.MaxSeatsPerBooking {
			s.maxSeats = n
		}
	}
}

func WithNumberAttempts(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.numberAttempts = n
		}
	}
}

func WithNumberGenerator(gen idgen.Generator) BookingServiceOption {
	return func(s *BookingService) {
		s.newNumber = gen
	}
}

// WithPublishTimeout bounds the event writes made after a commit, so a dead
// broker cannot stall the request.
func WithPublishTimeout(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(
	tx repository.TxManager,
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		tx:             tx,
		bookings:       bookings,
		flights:        flights,
		logger:         zap.NewNop(),
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		maxSeats:       domain.MaxSeatsPerBooking,
		numberAttempts: defaultNumberAttempts,
		newNumber:      idgen.BookingNumber,
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(service)
	}
	service.ledger = inventory.NewLedger(flights, service.logger)
	service.lifecycle = NewLifecycle(bookings, service.ledger)
	return service
}

// Lifecycle exposes the state machine so that other use cases can drive
// bookings inside their own unit of work.
func (s *BookingService) Lifecycle() *Lifecycle {
	return s.lifecycle
}

func (s *BookingService) validateInput(input *CreateBookingInput) error {
	input.PassengerName = strings.TrimSpace(input.PassengerName)
	input.PassengerEmail = strings.TrimSpace(input.PassengerEmail)
	input.PassengerPhone = strings.TrimSpace(input.PassengerPhone)

	if input.SeatsCount < 1 || input.SeatsCount > s.maxSeats {
		return fmt.Errorf("%w: seats_count must be between 1 and %d, got %d", domain.ErrValidation, s.maxSeats, input.SeatsCount)
	}
	if err := s.validate.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q check", domain.ErrValidation, strings.ToLower(verrs[0].Field()), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	var created *domain.Booking
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		flight, err := s.flights.GetByID(ctx, input.FlightID)
		if err != nil {
			return err
		}
		if flight.AvailableSeats < input.SeatsCount {
			return fmt.Errorf("%w: flight %d has %d seats left, requested %d",
				domain.ErrCapacity, flight.ID, flight.AvailableSeats, input.SeatsCount)
		}
		total, err := totalPrice(flight.PriceCents, input.SeatsCount)
		if err != nil {
			return err
		}
		if _, err := s.ledger.Reserve(ctx, flight.ID, input.SeatsCount); err != nil {
			return err
		}

		booking := &domain.Booking{
			UserID:          input.UserID,
			FlightID:        flight.ID,
			PassengerName:   input.PassengerName,
			PassengerEmail:  input.PassengerEmail,
			PassengerPhone:  input.PassengerPhone,
			SeatsCount:      input.SeatsCount,
			TotalPriceCents: total,
			Status:          domain.BookingStatusPending,
		}
		if err := s.insertWithUniqueNumber(ctx, booking); err != nil {
			return err
		}
		created = booking
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.Int64("booking_id", created.ID),
		zap.String("booking_number", created.BookingNumber),
		zap.Int64("flight_id", created.FlightID),
		zap.Int("seats", created.SeatsCount))
	s.afterSeatsChanged(ctx, created.FlightID)
	s.publish(ctx, kafka.EventBookingCreated, created)
	return created, nil
}

// totalPrice multiplies the unit price by the seat count, rejecting results
// that do not fit int64.
func totalPrice(priceCents int64, seats int) (int64, error) {
	if priceCents <= 0 || priceCents > math.MaxInt64/int64(seats) {
		return 0, fmt.Errorf("%w: price %d for %d seats is out of range", domain.ErrValidation, priceCents, seats)
	}
	return priceCents * int64(seats), nil
}

func (s *BookingService) insertWithUniqueNumber(ctx context.Context, booking *domain.Booking) error {
	for range s.numberAttempts {
		booking.BookingNumber = s.newNumber()
		err := s.bookings.Create(ctx, booking)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
		s.logger.Debug("booking number collision", zap.String("booking_number", booking.BookingNumber))
	}
	return fmt.Errorf("%w: could not allocate a unique booking number after %d attempts", domain.ErrDuplicate, s.numberAttempts)
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) GetBookingByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	return s.bookings.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
}

func (s *BookingService) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	return s.bookings.List(ctx, filter)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.apply(ctx, id, domain.EventConfirm)
}

func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.apply(ctx, id, domain.EventCancel)
}

// UpdateStatus is the administrative status override. It still goes through
// the state machine so that cancelling releases the seats exactly once.
func (s *BookingService) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	ev, err := domain.EventForStatus(status)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, id, ev)
}

func (s *BookingService) apply(ctx context.Context, id int64, ev domain.BookingEvent) (*domain.Booking, error) {
	var (
		updated *domain.Booking
		tr      domain.Transition
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		updated, tr, err = s.lifecycle.Apply(ctx, id, ev)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking status changed",
		zap.Int64("booking_id", updated.ID),
		zap.String("from", string(tr.From)),
		zap.String("to", string(tr.To)))
	if tr.ReleaseSeats {
		s.afterSeatsChanged(ctx, updated.FlightID)
	}
	s.publish(ctx, eventTypeFor(tr.To), updated)
	return updated, nil
}

// CompleteArrivedBookings moves confirmed bookings of arrived flights to completed.
func (s *BookingService) CompleteArrivedBookings(ctx context.Context) ([]domain.Booking, error) {
	completed, err := s.bookings.CompleteArrivedBefore(ctx, s.now())
	if err != nil {
		return nil, err
	}
	for i := range completed {
		s.publish(ctx, kafka.EventBookingCompleted, &completed[i])
	}
	if len(completed) > 0 {
		s.logger.Info("bookings completed", zap.Int("count", len(completed)))
	}
	return completed, nil
}

func (s *BookingService) afterSeatsChanged(ctx context.Context, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, flightID); err != nil {
		s.logger.Warn("failed to invalidate flight cache", zap.Int64("flight_id", flightID), zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewBookingEvent(eventType, booking, s.now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.producer.Publish(ctx, s.bookingTopic, event.Key(), event); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", eventType),
			zap.String("booking_number", booking.BookingNumber),
			zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, event.Key(), event); err != nil {
			s.logger.Warn("failed to publish notification",
				zap.String("type", eventType),
				zap.String("booking_number", booking.BookingNumber),
				zap.Error(err))
		}
	}
}

func eventTypeFor(status domain.BookingStatus) string {
	switch status {
	case domain.BookingStatusConfirmed:
		return kafka.EventBookingConfirmed
	case domain.BookingStatusCancelled:
		return kafka.EventBookingCancelled
	case domain.BookingStatusCompleted:
		return kafka.EventBookingCompleted
	default:
		return kafka.EventBookingCreated
	}
}

var _ BookingUseCase = (*BookingService)(nil)
