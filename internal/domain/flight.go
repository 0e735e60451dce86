package domain

import (
	"math"
	"time"
)

const (
	MaxAirlineLength = 50
	// MaxPriceCents keeps price_cents * MaxSeatsPerBooking within int64.
	MaxPriceCents int64 = math.MaxInt64 / MaxSeatsPerBooking
)

type Airport struct {
	ID      int64  `json:"id"`
	Code    string `json:"code"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type Flight struct {
	ID                 int64     `json:"id"`
	FlightNumber       string    `json:"flight_number"`
	Airline            string    `json:"airline"`
	DepartureAirportID int64     `json:"departure_airport_id"`
	ArrivalAirportID   int64     `json:"arrival_airport_id"`
	DepartureTime      time.Time `json:"departure_time"`
	ArrivalTime        time.Time `json:"arrival_time"`
	TotalSeats         int       `json:"total_seats"`
	AvailableSeats     int       `json:"available_seats"`
	PriceCents         int64     `json:"price_cents"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// FlightFilter narrows a flight search. Zero values are ignored.
type FlightFilter struct {
	DepartureAirportID int64
	ArrivalAirportID   int64
	// DepartureDate matches flights departing on the same calendar day (UTC).
	DepartureDate time.Time
}

func (f FlightFilter) IsEmpty() bool {
	return f.DepartureAirportID == 0 && f.ArrivalAirportID == 0 && f.DepartureDate.IsZero()
}

// Matches reports whether the flight satisfies every non-zero filter field.
func (f FlightFilter) Matches(fl Flight) bool {
	if f.DepartureAirportID != 0 && fl.DepartureAirportID != f.DepartureAirportID {
		return false
	}
	if f.ArrivalAirportID != 0 && fl.ArrivalAirportID != f.ArrivalAirportID {
		return false
	}
	if !f.DepartureDate.IsZero() {
		y1, m1, d1 := fl.DepartureTime.UTC().Date()
		y2, m2, d2 := f.DepartureDate.UTC().Date()
		if y1 != y2 || m1 != m2 || d1 != d2 {
			return false
		}
	}
	return true
}

// FlightUpdate carries the mutable flight attributes. available_seats is
// changed only by the seat ledger.
type FlightUpdate struct {
	Airline       *string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	PriceCents    *int64
}

type AirportUpdate struct {
	Name    *string
	City    *string
	Country *string
}
