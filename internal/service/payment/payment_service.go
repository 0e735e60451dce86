package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/idgen"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"go.uber.org/zap"
)

const (
	defaultIDAttempts     = 5
	maxMethodLength       = 50
	defaultPublishTimeout = 2 * time.Second
)

type PaymentUseCase interface {
	CreatePayment(ctx context.Context, bookingID int64, method string) (*domain.Payment, error)
	ConfirmPayment(ctx context.Context, id int64) (*domain.Payment, error)
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

type PaymentService struct {
	tx        repository.TxManager
	payments  repository.PaymentRepository
	bookings  repository.BookingRepository
	lifecycle *booking.Lifecycle
	producer  Producer
	logger    *zap.Logger

	bookingTopic       string
	notificationsTopic string
	idAttempts         int
	newTransactionID   idgen.Generator
	now                func() time.Time
	publishTimeout     time.Duration
}

type PaymentServiceOption func(*PaymentService)

func WithProducer(producer Producer, bookingTopic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(logger *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTransactionIDGenerator(gen idgen.Generator) PaymentServiceOption {
	return func(s *PaymentService) {
		s.newTransactionID = gen
	}
}

func WithIDAttempts(n int) PaymentServiceOption {
	return func(s *PaymentService) {
		if n > 0 {
			s.idAttempts = n
		}
	}
}

// WithPublishTimeout bounds each event write made after a commit.
func WithPublishTimeout(d time.Duration) PaymentServiceOption {
	return func(s *PaymentService) {
		if d > 0 {
			s.publishTimeout = d
		}
	}
}

func WithClock(now func() time.Time) PaymentServiceOption {
	return func(s *PaymentService) {
		s.now = now
	}
}

func NewPaymentService(
	tx repository.TxManager,
	payments repository.PaymentRepository,
	bookings repository.BookingRepository,
	lifecycle *booking.Lifecycle,
	opts ...PaymentServiceOption,
) *PaymentService {
	s := &PaymentService{
		tx:               tx,
		payments:         payments,
		bookings:         bookings,
		lifecycle:        lifecycle,
		logger:           zap.NewNop(),
		idAttempts:       defaultIDAttempts,
		newTransactionID: idgen.TransactionID,
		now:              time.Now,
		publishTimeout:   defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePayment opens the single payment of a booking. The amount is the
// booking's total as stored, never recomputed from the flight.
func (s *PaymentService) CreatePayment(ctx context.Context, bookingID int64, method string) (*domain.Payment, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		method = domain.DefaultPaymentMethod
	}
	if len(method) > maxMethodLength {
		return nil, fmt.Errorf("%w: payment method is too long", domain.ErrValidation)
	}

	var (
		created *domain.Payment
		owner   *domain.Booking
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.IsActive() {
			return fmt.Errorf("%w: booking %s is %s", domain.ErrInvalidTransition, b.BookingNumber, b.Status)
		}

		existing, err := s.payments.GetByBookingID(ctx, bookingID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: booking %s already has payment %d", domain.ErrDuplicate, b.BookingNumber, existing.ID)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		p := &domain.Payment{
			BookingID:     b.ID,
			AmountCents:   b.TotalPriceCents,
			PaymentMethod: method,
			Status:        domain.PaymentStatusPending,
		}
		if err := s.insertWithUniqueTransactionID(ctx, p); err != nil {
			return err
		}
		created, owner = p, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment created",
		zap.Int64("payment_id", created.ID),
		zap.Int64("booking_id", created.BookingID),
		zap.String("transaction_id", created.TransactionID))
	s.publish(ctx, kafka.EventPaymentCreated, owner, created)
	return created, nil
}

func (s *PaymentService) insertWithUniqueTransactionID(ctx context.Context, p *domain.Payment) error {
	for range s.idAttempts {
		p.TransactionID = s.newTransactionID()
		err := s.payments.Create(ctx, p)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return err
		}
	}
	return fmt.Errorf("%w: could not allocate a unique transaction id after %d attempts", domain.ErrDuplicate, s.idAttempts)
}

// ConfirmPayment completes the payment and confirms its booking in one unit of
// work. Seats are not touched.
func (s *PaymentService) ConfirmPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	var (
		confirmed *domain.Payment
		owner     *domain.Booking
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.payments.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		b, _, err := s.lifecycle.Apply(ctx, p.BookingID, domain.EventPaymentConfirmed)
		if err != nil {
			return err
		}
		p, err = s.payments.UpdateStatus(ctx, p.ID, domain.PaymentStatusCompleted)
		if err != nil {
			return err
		}
		confirmed, owner = p, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment completed",
		zap.Int64("payment_id", confirmed.ID),
		zap.Int64("booking_id", owner.ID))
	s.publish(ctx, kafka.EventPaymentCompleted, owner, confirmed)
	return confirmed, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, id int64) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *PaymentService) GetPaymentByBooking(ctx context.Context, bookingID int64) (*domain.Payment, error) {
	return s.payments.GetByBookingID(ctx, bookingID)
}

func (s *PaymentService) publish(ctx context.Context, eventType string, b *domain.Booking, p *domain.Payment) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.NewPaymentEvent(eventType, b, p, s.now())
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	topics := []string{s.bookingTopic}
	if s.notificationsTopic != "" {
		topics = append(topics, s.notificationsTopic)
	}
	for _, topic := range topics {
		if err := s.producer.Publish(ctx, topic, event.Key(), event); err != nil {
			s.logger.Warn("failed to publish payment event",
				zap.String("type", eventType),
				zap.String("topic", topic),
				zap.Int64("payment_id", p.ID),
				zap.Error(err))
			return
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
