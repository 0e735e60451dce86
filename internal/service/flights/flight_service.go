package flights

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

// DateLayout is the accepted format of the departure date search filter.
const DateLayout = "2006-01-02"

type FlightUseCase interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, query SearchQuery) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, upd domain.FlightUpdate) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetFlight(ctx context.Context, id int64) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight) error
	InvalidateFlight(ctx context.Context, flightID int64) error
	InvalidateFlights(ctx context.Context) error
}

type SearchQuery struct {
	DepartureAirportID int64
	ArrivalAirportID   int64
	// Date is YYYY-MM-DD or empty.
	Date string
}

func (q SearchQuery) Filter() (domain.FlightFilter, error) {
	f := domain.FlightFilter{
		DepartureAirportID: q.DepartureAirportID,
		ArrivalAirportID:   q.ArrivalAirportID,
	}
	if q.DepartureAirportID < 0 || q.ArrivalAirportID < 0 {
		return f, fmt.Errorf("%w: airport ids must be positive", domain.ErrValidation)
	}
	if q.Date != "" {
		d, err := time.Parse(DateLayout, q.Date)
		if err != nil {
			return f, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", domain.ErrValidation, q.Date)
		}
		f.DepartureDate = d
	}
	return f, nil
}

type CreateFlightInput struct {
	FlightNumber       string    `json:"flight_number"`
	Airline            string    `json:"airline"`
	DepartureAirportID int64     `json:"departure_airport_id"`
	ArrivalAirportID   int64     `json:"arrival_airport_id"`
	DepartureTime      time.Time `json:"departure_time"`
	ArrivalTime        time.Time `json:"arrival_time"`
	TotalSeats         int       `json:"total_seats"`
	// AvailableSeats defaults to TotalSeats when zero.
	AvailableSeats int   `json:"available_seats"`
	PriceCents     int64 `json:"price_cents"`
}

type FlightService struct {
	tx       repository.TxManager
	repo     repository.FlightRepository
	airports repository.AirportRepository
	cache    FlightCache
	logger   *zap.Logger
}

type FlightServiceOption func(*FlightService)

func WithCache(cache FlightCache) FlightServiceOption {
	return func(s *FlightService) {
		s.cache = cache
	}
}

func WithLogger(logger *zap.Logger) FlightServiceOption {
	return func(s *FlightService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewFlightService(tx repository.TxManager, repo repository.FlightRepository, airports repository.AirportRepository, opts ...FlightServiceOption) *FlightService {
	s := &FlightService{tx: tx, repo: repo, airports: airports, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlightService) List(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx)
		if err != nil {
			s.logger.Warn("flights cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("flights cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

// Search filters the catalogue. An empty query is served from the cached list.
func (s *FlightService) Search(ctx context.Context, query SearchQuery) ([]domain.Flight, error) {
	filter, err := query.Filter()
	if err != nil {
		return nil, err
	}
	if filter.IsEmpty() {
		return s.List(ctx)
	}
	return s.repo.Search(ctx, filter)
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, id)
		if err != nil {
			s.logger.Warn("flight cache read failed", zap.Int64("flight_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, flight); err != nil {
			s.logger.Warn("flight cache write failed", zap.Int64("flight_id", id), zap.Error(err))
		}
	}
	return flight, nil
}

func (in *CreateFlightInput) normalize() error {
	in.FlightNumber = strings.ToUpper(strings.TrimSpace(in.FlightNumber))
	in.Airline = strings.TrimSpace(in.Airline)
	if in.AvailableSeats == 0 {
		in.AvailableSeats = in.TotalSeats
	}

	switch {
	case in.FlightNumber == "" || len(in.FlightNumber) > 10:
		return fmt.Errorf("%w: flight_number must be 1-10 characters", domain.ErrValidation)
	case in.Airline == "" || len(in.Airline) > domain.MaxAirlineLength:
		return fmt.Errorf("%w: airline must be 1-%d characters", domain.ErrValidation, domain.MaxAirlineLength)
	case in.DepartureAirportID <= 0 || in.ArrivalAirportID <= 0:
		return fmt.Errorf("%w: departure and arrival airports are required", domain.ErrValidation)
	case in.DepartureAirportID == in.ArrivalAirportID:
		return fmt.Errorf("%w: departure and arrival airports must differ", domain.ErrValidation)
	case in.DepartureTime.IsZero() || !in.ArrivalTime.After(in.DepartureTime):
		return fmt.Errorf("%w: arrival_time must be after departure_time", domain.ErrValidation)
	case in.TotalSeats <= 0:
		return fmt.Errorf("%w: total_seats must be positive", domain.ErrValidation)
	case in.AvailableSeats < 0 || in.AvailableSeats > in.TotalSeats:
		return fmt.Errorf("%w: available_seats must not exceed total_seats", domain.ErrValidation)
	}
	return validatePrice(in.PriceCents)
}

func validatePrice(cents int64) error {
	if cents <= 0 || cents > domain.MaxPriceCents {
		return fmt.Errorf("%w: price_cents must be between 1 and %d", domain.ErrValidation, domain.MaxPriceCents)
	}
	return nil
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if err := input.normalize(); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		FlightNumber:       input.FlightNumber,
		Airline:            input.Airline,
		DepartureAirportID: input.DepartureAirportID,
		ArrivalAirportID:   input.ArrivalAirportID,
		DepartureTime:      input.DepartureTime.UTC(),
		ArrivalTime:        input.ArrivalTime.UTC(),
		TotalSeats:         input.TotalSeats,
		AvailableSeats:     input.AvailableSeats,
		PriceCents:         input.PriceCents,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, id := range []int64{input.DepartureAirportID, input.ArrivalAirportID} {
			if _, err := s.airports.GetByID(ctx, id); err != nil {
				return err
			}
		}
		return s.repo.Create(ctx, flight)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("flight created", zap.Int64("flight_id", flight.ID), zap.String("flight_number", flight.FlightNumber))
	s.invalidateList(ctx)
	return flight, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, upd domain.FlightUpdate) (*domain.Flight, error) {
	if upd.Airline != nil {
		airline := strings.TrimSpace(*upd.Airline)
		if airline == "" || len(airline) > domain.MaxAirlineLength {
			return nil, fmt.Errorf("%w: airline must be 1-%d characters", domain.ErrValidation, domain.MaxAirlineLength)
		}
		upd.Airline = &airline
	}
	if upd.PriceCents != nil {
		if err := validatePrice(*upd.PriceCents); err != nil {
			return nil, err
		}
	}

	var updated *domain.Flight
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		dep, arr := current.DepartureTime, current.ArrivalTime
		if upd.DepartureTime != nil {
			dep = *upd.DepartureTime
		}
		if upd.ArrivalTime != nil {
			arr = *upd.ArrivalTime
		}
		if !arr.After(dep) {
			return fmt.Errorf("%w: arrival_time must be after departure_time", domain.ErrValidation)
		}
		updated, err = s.repo.Update(ctx, id, upd)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

// Delete removes the flight together with its bookings.
func (s *FlightService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("flight deleted", zap.Int64("flight_id", id))
	s.invalidate(ctx, id)
	return nil
}

func (s *FlightService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, id); err != nil {
		s.logger.Warn("flight cache invalidation failed", zap.Int64("flight_id", id), zap.Error(err))
	}
}

func (s *FlightService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("flights cache invalidation failed", zap.Error(err))
	}
}

var _ FlightUseCase = (*FlightService)(nil)
