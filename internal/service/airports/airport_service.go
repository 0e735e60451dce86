package airports

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

type AirportUseCase interface {
	List(ctx context.Context) ([]domain.Airport, error)
	GetByID(ctx context.Context, id int64) (*domain.Airport, error)
	GetByCode(ctx context.Context, code string) (*domain.Airport, error)
	Create(ctx context.Context, input CreateAirportInput) (*domain.Airport, error)
	Update(ctx context.Context, id int64, upd domain.AirportUpdate) (*domain.Airport, error)
	Delete(ctx context.Context, id int64) error
}

type CreateAirportInput struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
}

type AirportService struct {
	repo   repository.AirportRepository
	logger *zap.Logger
}

func NewAirportService(repo repository.AirportRepository, logger *zap.Logger) *AirportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AirportService{repo: repo, logger: logger}
}

// NormalizeCode upper-cases an IATA code and checks it is three letters.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: airport code must be 3 letters, got %q", domain.ErrValidation, code)
	}
	for _, r := range code {
		if !unicode.IsLetter(r) || r > unicode.MaxASCII {
			return "", fmt.Errorf("%w: airport code must be 3 letters, got %q", domain.ErrValidation, code)
		}
	}
	return code, nil
}

func (s *AirportService) List(ctx context.Context) ([]domain.Airport, error) {
	return s.repo.List(ctx)
}

func (s *AirportService) GetByID(ctx context.Context, id int64) (*domain.Airport, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AirportService) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByCode(ctx, normalized)
}

func (s *AirportService) Create(ctx context.Context, input CreateAirportInput) (*domain.Airport, error) {
	code, err := NormalizeCode(input.Code)
	if err != nil {
		return nil, err
	}
	airport := &domain.Airport{
		Code:    code,
		Name:    strings.TrimSpace(input.Name),
		City:    strings.TrimSpace(input.City),
		Country: strings.TrimSpace(input.Country),
	}
	if airport.Name == "" {
		return nil, fmt.Errorf("%w: airport name is required", domain.ErrValidation)
	}
	if err := s.repo.Create(ctx, airport); err != nil {
		return nil, err
	}
	s.logger.Info("airport created", zap.Int64("airport_id", airport.ID), zap.String("code", airport.Code))
	return airport, nil
}

func (s *AirportService) Update(ctx context.Context, id int64, upd domain.AirportUpdate) (*domain.Airport, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: airport name must not be empty", domain.ErrValidation)
		}
		upd.Name = &name
	}
	return s.repo.Update(ctx, id, upd)
}

// Delete fails with domain.ErrInUse while flights still reference the airport.
func (s *AirportService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("airport deleted", zap.Int64("airport_id", id))
	return nil
}

var _ AirportUseCase = (*AirportService)(nil)
