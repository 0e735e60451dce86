package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type flightRepo struct {
	s *Store
}

func (r *flightRepo) List(ctx context.Context) ([]domain.Flight, error) {
	return r.Search(ctx, domain.FlightFilter{})
}

func (r *flightRepo) Search(_ context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	out := make([]domain.Flight, 0)
	r.s.read(func() {
		for _, f := range r.s.flights {
			if filter.Matches(f) {
				out = append(out, f)
			}
		}
	})
	slices.SortFunc(out, func(a, b domain.Flight) int {
		if c := a.DepartureTime.Compare(b.DepartureTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *flightRepo) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	var (
		f  domain.Flight
		ok bool
	)
	r.s.read(func() { f, ok = r.s.flights[id] })
	if !ok {
		return nil, fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
	}
	return &f, nil
}

func (r *flightRepo) Create(ctx context.Context, flight *domain.Flight) error {
	return r.s.write(ctx, func() error {
		for _, f := range r.s.flights {
			if f.FlightNumber == flight.FlightNumber {
				return fmt.Errorf("%w: flight %s", domain.ErrDuplicate, flight.FlightNumber)
			}
		}
		if _, ok := r.s.airports[flight.DepartureAirportID]; !ok {
			return fmt.Errorf("%w: airport %d", domain.ErrNotFound, flight.DepartureAirportID)
		}
		if _, ok := r.s.airports[flight.ArrivalAirportID]; !ok {
			return fmt.Errorf("%w: airport %d", domain.ErrNotFound, flight.ArrivalAirportID)
		}
		if flight.AvailableSeats < 0 || flight.AvailableSeats > flight.TotalSeats {
			return fmt.Errorf("%w: flight %s", domain.ErrCapacity, flight.FlightNumber)
		}
		now := r.s.now()
		flight.ID = r.s.nextID()
		flight.CreatedAt, flight.UpdatedAt = now, now
		r.s.flights[flight.ID] = *flight
		return nil
	})
}

func (r *flightRepo) Update(ctx context.Context, id int64, upd domain.FlightUpdate) (*domain.Flight, error) {
	var out domain.Flight
	err := r.s.write(ctx, func() error {
		f, ok := r.s.flights[id]
		if !ok {
			return fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
		}
		if upd.Airline != nil {
			f.Airline = *upd.Airline
		}
		if upd.DepartureTime != nil {
			f.DepartureTime = *upd.DepartureTime
		}
		if upd.ArrivalTime != nil {
			f.ArrivalTime = *upd.ArrivalTime
		}
		if upd.PriceCents != nil {
			f.PriceCents = *upd.PriceCents
		}
		f.UpdatedAt = r.s.now()
		r.s.flights[id] = f
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *flightRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.flights[id]; !ok {
			return fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
		}
		delete(r.s.flights, id)
		for bid, b := range r.s.bookings {
			if b.FlightID != id {
				continue
			}
			delete(r.s.bookings, bid)
			for pid, p := range r.s.payments {
				if p.BookingID == bid {
					delete(r.s.payments, pid)
				}
			}
		}
		return nil
	})
}

func (r *flightRepo) ReserveSeats(ctx context.Context, flightID int64, n int) (int, error) {
	var remaining int
	err := r.s.write(ctx, func() error {
		f, ok := r.s.flights[flightID]
		if !ok {
			return fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
		}
		if f.AvailableSeats < n {
			return fmt.Errorf("%w: flight %d, requested %d", domain.ErrCapacity, flightID, n)
		}
		f.AvailableSeats -= n
		f.UpdatedAt = r.s.now()
		r.s.flights[flightID] = f
		remaining = f.AvailableSeats
		return nil
	})
	return remaining, err
}

func (r *flightRepo) ReleaseSeats(ctx context.Context, flightID int64, n int) (int, error) {
	var remaining int
	err := r.s.write(ctx, func() error {
		f, ok := r.s.flights[flightID]
		if !ok {
			return fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
		}
		f.AvailableSeats = min(f.AvailableSeats+n, f.TotalSeats)
		f.UpdatedAt = r.s.now()
		r.s.flights[flightID] = f
		remaining = f.AvailableSeats
		return nil
	})
	return remaining, err
}
