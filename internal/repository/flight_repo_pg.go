package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, id int64, upd domain.FlightUpdate) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	// ReserveSeats takes n seats only if at least n are available and returns
	// the remaining count.
	ReserveSeats(ctx context.Context, flightID int64, n int) (int, error)
	// ReleaseSeats returns n seats, never exceeding total_seats.
	ReleaseSeats(ctx context.Context, flightID int64, n int) (int, error)
}

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline, departure_airport_id, arrival_airport_id, departure_time, arrival_time, total_seats, available_seats, price_cents, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.DepartureAirportID, &f.ArrivalAirportID, &f.DepartureTime, &f.ArrivalTime, &f.TotalSeats, &f.AvailableSeats, &f.PriceCents, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFlights(rows pgx.Rows) ([]domain.Flight, error) {
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := conn(ctx, r.db).Query(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
	if err != nil {
		return nil, translateError(err, "flights")
	}
	return collectFlights(rows)
}

func (r *PGFlightRepository) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	query, args := buildFlightSearch(filter)
	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, translateError(err, "flights")
	}
	return collectFlights(rows)
}

func buildFlightSearch(filter domain.FlightFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.DepartureAirportID != 0 {
		args = append(args, filter.DepartureAirportID)
		conds = append(conds, fmt.Sprintf("departure_airport_id = $%d", len(args)))
	}
	if filter.ArrivalAirportID != 0 {
		args = append(args, filter.ArrivalAirportID)
		conds = append(conds, fmt.Sprintf("arrival_airport_id = $%d", len(args)))
	}
	if !filter.DepartureDate.IsZero() {
		y, m, d := filter.DepartureDate.UTC().Date()
		dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		args = append(args, dayStart, dayStart.AddDate(0, 0, 1))
		conds = append(conds, fmt.Sprintf("departure_time >= $%d AND departure_time < $%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + flightColumns + ` FROM flights`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	return query + ` ORDER BY departure_time`, args
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("flight %d", id))
	}
	return f, nil
}

func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO flights (flight_number, airline, departure_airport_id, arrival_airport_id, departure_time, arrival_time, total_seats, available_seats, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		flight.FlightNumber, flight.Airline, flight.DepartureAirportID, flight.ArrivalAirportID, flight.DepartureTime, flight.ArrivalTime, flight.TotalSeats, flight.AvailableSeats, flight.PriceCents).
		Scan(&flight.ID, &flight.CreatedAt, &flight.UpdatedAt)
	if err != nil {
		err = translateError(err, "flight "+flight.FlightNumber)
		if isInUse(err) {
			// the only foreign keys on insert are the airports
			return fmt.Errorf("%w: airport for flight %s", domain.ErrNotFound, flight.FlightNumber)
		}
		return err
	}
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, id int64, upd domain.FlightUpdate) (*domain.Flight, error) {
	f, err := scanFlight(conn(ctx, r.db).QueryRow(ctx, `UPDATE flights SET
			airline = COALESCE($2, airline),
			departure_time = COALESCE($3, departure_time),
			arrival_time = COALESCE($4, arrival_time),
			price_cents = COALESCE($5, price_cents),
			updated_at = now()
		WHERE id=$1
		RETURNING `+flightColumns,
		id, upd.Airline, upd.DepartureTime, upd.ArrivalTime, upd.PriceCents))
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("flight %d", id))
	}
	return f, nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	res, err := conn(ctx, r.db).Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return translateError(err, fmt.Sprintf("flight %d", id))
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("%w: flight %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *PGFlightRepository) ReserveSeats(ctx context.Context, flightID int64, n int) (int, error) {
	q := conn(ctx, r.db)

	var available int
	err := q.QueryRow(ctx, `UPDATE flights SET available_seats = available_seats - $2, updated_at = now()
		WHERE id=$1 AND available_seats >= $2
		RETURNING available_seats`, flightID, n).Scan(&available)
	if err == nil {
		return available, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, translateError(err, fmt.Sprintf("flight %d", flightID))
	}

	// No row matched: either the flight is gone or it lacks seats.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
		return 0, translateError(err, fmt.Sprintf("flight %d", flightID))
	}
	if !exists {
		return 0, fmt.Errorf("%w: flight %d", domain.ErrNotFound, flightID)
	}
	return 0, fmt.Errorf("%w: flight %d, requested %d", domain.ErrCapacity, flightID, n)
}

func (r *PGFlightRepository) ReleaseSeats(ctx context.Context, flightID int64, n int) (int, error) {
	var available int
	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE flights SET available_seats = LEAST(available_seats + $2, total_seats), updated_at = now()
		WHERE id=$1
		RETURNING available_seats`, flightID, n).Scan(&available)
	if err != nil {
		return 0, translateError(err, fmt.Sprintf("flight %d", flightID))
	}
	return available, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
