package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCompose(t *testing.T) {
	tests := []struct {
		name        string
		event       kafka.BookingEvent
		wantSubject string
		wantBody    string
	}{
		{
			name:        "created",
			event:       kafka.BookingEvent{Type: kafka.EventBookingCreated, BookingNumber: "BK00000001", Email: "a@b.c", PassengerName: "Ann", SeatsCount: 2, FlightID: 5, TotalPriceCents: 960050},
			wantSubject: "Booking BK00000001 received",
			wantBody:    "Total: 9600.50.",
		},
		{
			name:        "cancelled",
			event:       kafka.BookingEvent{Type: kafka.EventBookingCancelled, BookingNumber: "BK00000002", Email: "a@b.c"},
			wantSubject: "Booking BK00000002 cancelled",
			wantBody:    "has been cancelled",
		},
		{
			name:        "payment completed",
			event:       kafka.BookingEvent{Type: kafka.EventPaymentCompleted, BookingNumber: "BK00000003", Email: "a@b.c", TransactionID: "TRX0000000001", AmountCents: 4800},
			wantSubject: "Payment received for booking BK00000003",
			wantBody:    "TRX0000000001 of 48.00",
		},
		{
			name:        "unknown type",
			event:       kafka.BookingEvent{Type: "something", BookingNumber: "BK1", Email: "a@b.c", Status: "pending"},
			wantSubject: "Booking BK1 updated",
			wantBody:    "is now pending",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Compose(tt.event)
			require.NoError(t, err)
			assert.Equal(t, "a@b.c", msg.To)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			assert.Contains(t, msg.Body, tt.wantBody)
		})
	}
}

func TestCompose_NoRecipient(t *testing.T) {
	_, err := Compose(kafka.BookingEvent{Type: kafka.EventBookingCreated})
	assert.Error(t, err)
}

func TestSender_SendLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewSender(zap.New(core))

	err := s.Send(context.Background(), kafka.BookingEvent{ID: "e1", Type: kafka.EventBookingConfirmed, BookingNumber: "BK1", Email: "x@y.z"})

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "notification sent", entry.Message)
	assert.Equal(t, "x@y.z", entry.ContextMap()["to"])
}
