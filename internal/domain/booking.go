package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// MaxSeatsPerBooking is the upper bound for Booking.SeatsCount.
const MaxSeatsPerBooking = 9

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, s)
	}
}

// IsActive reports whether the booking still holds seats on its flight.
func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type BookingEvent string

const (
	EventConfirm          BookingEvent = "confirm"
	EventPaymentConfirmed BookingEvent = "payment_confirmed"
	EventCancel           BookingEvent = "cancel"
	EventComplete         BookingEvent = "complete"
)

// Transition is the outcome of applying a BookingEvent to a status.
type Transition struct {
	From BookingStatus
	To   BookingStatus
	// ReleaseSeats is set when the booking's seats go back to the flight.
	ReleaseSeats bool
}

// NextStatus applies ev to the current status. Seats are released only on the
// pending/confirmed -> cancelled edge, so a booking is credited back at most once.
func NextStatus(current BookingStatus, ev BookingEvent) (Transition, error) {
	t := Transition{From: current}
	switch ev {
	case EventConfirm, EventPaymentConfirmed:
		switch current {
		case BookingStatusPending, BookingStatusConfirmed:
			t.To = BookingStatusConfirmed
			return t, nil
		case BookingStatusCancelled:
			return t, fmt.Errorf("%w: cannot confirm a cancelled booking", ErrInvalidTransition)
		case BookingStatusCompleted:
			return t, fmt.Errorf("%w: booking is already completed", ErrInvalidTransition)
		}
	case EventCancel:
		switch current {
		case BookingStatusPending, BookingStatusConfirmed:
			t.To = BookingStatusCancelled
			t.ReleaseSeats = true
			return t, nil
		case BookingStatusCancelled:
			return t, ErrAlreadyCancelled
		case BookingStatusCompleted:
			return t, fmt.Errorf("%w: cannot cancel a completed booking", ErrInvalidTransition)
		}
	case EventComplete:
		switch current {
		case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
			t.To = BookingStatusCompleted
			return t, nil
		}
	default:
		return t, fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, ev)
	}
	return t, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, current)
}

// EventForStatus maps an administrative status update onto a lifecycle event.
func EventForStatus(target BookingStatus) (BookingEvent, error) {
	switch target {
	case BookingStatusConfirmed:
		return EventConfirm, nil
	case BookingStatusCancelled:
		return EventCancel, nil
	case BookingStatusCompleted:
		return EventComplete, nil
	case BookingStatusPending:
		return "", fmt.Errorf("%w: bookings cannot be moved back to pending", ErrInvalidTransition)
	default:
		return "", fmt.Errorf("%w: unknown booking status %q", ErrValidation, target)
	}
}

type Booking struct {
	ID              int64         `json:"id"`
	BookingNumber   string        `json:"booking_number"`
	UserID          int64         `json:"user_id"`
	FlightID        int64         `json:"flight_id"`
	PassengerName   string        `json:"passenger_name"`
	PassengerEmail  string        `json:"passenger_email"`
	PassengerPhone  string        `json:"passenger_phone"`
	SeatsCount      int           `json:"seats_count"`
	TotalPriceCents int64         `json:"total_price_cents"`
	Status          BookingStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// BookingFilter selects bookings by owner or flight. Zero values are ignored.
type BookingFilter struct {
	UserID   int64
	FlightID int64
}

func (f BookingFilter) Matches(b Booking) bool {
	if f.UserID != 0 && b.UserID != f.UserID {
		return false
	}
	if f.FlightID != 0 && b.FlightID != f.FlightID {
		return false
	}
	return true
}
