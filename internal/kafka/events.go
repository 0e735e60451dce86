package kafka

import (
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventPaymentCreated   = "payment_created"
	EventPaymentCompleted = "payment_completed"
)

// BookingEvent is the message published for every booking and payment change.
// Payment fields are empty for pure booking events.
type BookingEvent struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	BookingID       int64     `json:"booking_id"`
	BookingNumber   string    `json:"booking_number"`
	FlightID        int64     `json:"flight_id"`
	UserID          int64     `json:"user_id"`
	SeatsCount      int       `json:"seats_count"`
	PassengerName   string    `json:"passenger_name"`
	Email           string    `json:"email"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"total_price_cents"`
	PaymentID       int64     `json:"payment_id,omitempty"`
	TransactionID   string    `json:"transaction_id,omitempty"`
	AmountCents     int64     `json:"amount_cents,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		BookingID:       b.ID,
		BookingNumber:   b.BookingNumber,
		FlightID:        b.FlightID,
		UserID:          b.UserID,
		SeatsCount:      b.SeatsCount,
		PassengerName:   b.PassengerName,
		Email:           b.PassengerEmail,
		Status:          string(b.Status),
		TotalPriceCents: b.TotalPriceCents,
		OccurredAt:      at.UTC(),
	}
}

func NewPaymentEvent(eventType string, b *domain.Booking, p *domain.Payment, at time.Time) BookingEvent {
	ev := NewBookingEvent(eventType, b, at)
	ev.PaymentID = p.ID
	ev.TransactionID = p.TransactionID
	ev.AmountCents = p.AmountCents
	return ev
}

// Key is the partition key: all events of one booking land on one partition.
func (e BookingEvent) Key() string {
	return e.BookingNumber
}
