package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type airportRepo struct {
	s *Store
}

func (r *airportRepo) List(_ context.Context) ([]domain.Airport, error) {
	var out []domain.Airport
	r.s.read(func() {
		out = make([]domain.Airport, 0, len(r.s.airports))
		for _, a := range r.s.airports {
			out = append(out, a)
		}
	})
	slices.SortFunc(out, func(a, b domain.Airport) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

func (r *airportRepo) GetByID(_ context.Context, id int64) (*domain.Airport, error) {
	var (
		a  domain.Airport
		ok bool
	)
	r.s.read(func() { a, ok = r.s.airports[id] })
	if !ok {
		return nil, fmt.Errorf("%w: airport %d", domain.ErrNotFound, id)
	}
	return &a, nil
}

func (r *airportRepo) GetByCode(_ context.Context, code string) (*domain.Airport, error) {
	code = strings.ToUpper(code)
	var found *domain.Airport
	r.s.read(func() {
		for _, a := range r.s.airports {
			if a.Code == code {
				found = &a
				return
			}
		}
	})
	if found == nil {
		return nil, fmt.Errorf("%w: airport %s", domain.ErrNotFound, code)
	}
	return found, nil
}

func (r *airportRepo) Create(ctx context.Context, airport *domain.Airport) error {
	return r.s.write(ctx, func() error {
		airport.Code = strings.ToUpper(airport.Code)
		for _, a := range r.s.airports {
			if a.Code == airport.Code {
				return fmt.Errorf("%w: airport %s", domain.ErrDuplicate, airport.Code)
			}
		}
		airport.ID = r.s.nextID()
		r.s.airports[airport.ID] = *airport
		return nil
	})
}

func (r *airportRepo) Update(ctx context.Context, id int64, upd domain.AirportUpdate) (*domain.Airport, error) {
	var out domain.Airport
	err := r.s.write(ctx, func() error {
		a, ok := r.s.airports[id]
		if !ok {
			return fmt.Errorf("%w: airport %d", domain.ErrNotFound, id)
		}
		if upd.Name != nil {
			a.Name = *upd.Name
		}
		if upd.City != nil {
			a.City = *upd.City
		}
		if upd.Country != nil {
			a.Country = *upd.Country
		}
		r.s.airports[id] = a
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *airportRepo) Delete(ctx context.Context, id int64) error {
	return r.s.write(ctx, func() error {
		if _, ok := r.s.airports[id]; !ok {
			return fmt.Errorf("%w: airport %d", domain.ErrNotFound, id)
		}
		for _, f := range r.s.flights {
			if f.DepartureAirportID == id || f.ArrivalAirportID == id {
				return fmt.Errorf("%w: airport %d is used by flight %s", domain.ErrInUse, id, f.FlightNumber)
			}
		}
		delete(r.s.airports, id)
		return nil
	})
}
