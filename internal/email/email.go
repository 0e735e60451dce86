package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
)

// Message is a rendered notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers notifications for booking events. There is no mail
// transport: messages are written to the log.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	msg, err := Compose(event)
	if err != nil {
		return err
	}
	s.logger.Info("notification sent",
		zap.String("event_id", event.ID),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// Compose renders the notification for event. Events without a recipient
// are rejected.
func Compose(event kafka.BookingEvent) (Message, error) {
	if event.Email == "" {
		return Message{}, errors.New("event has no recipient")
	}
	msg := Message{To: event.Email}
	ref := event.BookingNumber
	switch event.Type {
	case kafka.EventBookingCreated:
		msg.Subject = fmt.Sprintf("Booking %s received", ref)
		msg.Body = fmt.Sprintf("Dear %s, your booking %s for %d seat(s) on flight %d is pending. Total: %s.",
			event.PassengerName, ref, event.SeatsCount, event.FlightID, formatCents(event.TotalPriceCents))
	case kafka.EventBookingConfirmed:
		msg.Subject = fmt.Sprintf("Booking %s confirmed", ref)
		msg.Body = fmt.Sprintf("Dear %s, your booking %s is confirmed.", event.PassengerName, ref)
	case kafka.EventBookingCancelled:
		msg.Subject = fmt.Sprintf("Booking %s cancelled", ref)
		msg.Body = fmt.Sprintf("Dear %s, your booking %s has been cancelled.", event.PassengerName, ref)
	case kafka.EventBookingCompleted:
		msg.Subject = fmt.Sprintf("Thank you for flying with us (%s)", ref)
		msg.Body = fmt.Sprintf("Dear %s, your trip under booking %s is completed.", event.PassengerName, ref)
	case kafka.EventPaymentCreated:
		msg.Subject = fmt.Sprintf("Payment pending for booking %s", ref)
		msg.Body = fmt.Sprintf("Payment %s of %s is awaiting confirmation.", event.TransactionID, formatCents(event.AmountCents))
	case kafka.EventPaymentCompleted:
		msg.Subject = fmt.Sprintf("Payment received for booking %s", ref)
		msg.Body = fmt.Sprintf("Payment %s of %s has been received.", event.TransactionID, formatCents(event.AmountCents))
	default:
		msg.Subject = fmt.Sprintf("Booking %s updated", ref)
		msg.Body = fmt.Sprintf("Booking %s is now %s.", ref, event.Status)
	}
	return msg, nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
