package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type AirportRepository interface {
	List(ctx context.Context) ([]domain.Airport, error)
	GetByID(ctx context.Context, id int64) (*domain.Airport, error)
	GetByCode(ctx context.Context, code string) (*domain.Airport, error)
	Create(ctx context.Context, airport *domain.Airport) error
	Update(ctx context.Context, id int64, upd domain.AirportUpdate) (*domain.Airport, error)
	Delete(ctx context.Context, id int64) error
}

// airportRecord is the gorm mapping of the airports table.
type airportRecord struct {
	ID      int64  `gorm:"primaryKey"`
	Code    string `gorm:"size:3;uniqueIndex;not null"`
	Name    string `gorm:"size:255;not null"`
	City    string `gorm:"size:255;not null"`
	Country string `gorm:"size:255;not null"`
}

func (airportRecord) TableName() string { return "airports" }

func (a airportRecord) toDomain() domain.Airport {
	return domain.Airport{ID: a.ID, Code: a.Code, Name: a.Name, City: a.City, Country: a.Country}
}

type GormAirportRepository struct {
	db *gorm.DB
}

// OpenGorm builds a gorm handle that shares connections with the pgx pool.
func OpenGorm(pool *pgxpool.Pool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: stdlib.OpenDBFromPool(pool)}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

func NewAirportRepository(db *gorm.DB) AirportRepository {
	return &GormAirportRepository{db: db}
}

func (r *GormAirportRepository) List(ctx context.Context) ([]domain.Airport, error) {
	var records []airportRecord
	if err := r.db.WithContext(ctx).Order("code").Find(&records).Error; err != nil {
		return nil, translateError(err, "airports")
	}
	airports := make([]domain.Airport, 0, len(records))
	for _, rec := range records {
		airports = append(airports, rec.toDomain())
	}
	return airports, nil
}

func (r *GormAirportRepository) GetByID(ctx context.Context, id int64) (*domain.Airport, error) {
	var rec airportRecord
	if err := r.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		return nil, translateError(err, fmt.Sprintf("airport %d", id))
	}
	a := rec.toDomain()
	return &a, nil
}

func (r *GormAirportRepository) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	var rec airportRecord
	if err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&rec).Error; err != nil {
		return nil, translateError(err, "airport "+code)
	}
	a := rec.toDomain()
	return &a, nil
}

func (r *GormAirportRepository) Create(ctx context.Context, airport *domain.Airport) error {
	rec := airportRecord{
		Code:    strings.ToUpper(airport.Code),
		Name:    airport.Name,
		City:    airport.City,
		Country: airport.Country,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return translateError(err, "airport "+rec.Code)
	}
	*airport = rec.toDomain()
	return nil
}

func (r *GormAirportRepository) Update(ctx context.Context, id int64, upd domain.AirportUpdate) (*domain.Airport, error) {
	var rec airportRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return err
		}
		changes := map[string]any{}
		if upd.Name != nil {
			rec.Name = *upd.Name
			changes["name"] = rec.Name
		}
		if upd.City != nil {
			rec.City = *upd.City
			changes["city"] = rec.City
		}
		if upd.Country != nil {
			rec.Country = *upd.Country
			changes["country"] = rec.Country
		}
		if len(changes) == 0 {
			return nil
		}
		return tx.Model(&rec).Updates(changes).Error
	})
	if err != nil {
		return nil, translateError(err, fmt.Sprintf("airport %d", id))
	}
	a := rec.toDomain()
	return &a, nil
}

func (r *GormAirportRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&airportRecord{}, id)
	if res.Error != nil {
		return translateError(res.Error, fmt.Sprintf("airport %d", id))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: airport %d", domain.ErrNotFound, id)
	}
	return nil
}

var _ AirportRepository = (*GormAirportRepository)(nil)
