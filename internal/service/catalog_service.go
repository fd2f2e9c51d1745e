package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/parkpass/parkpass-reservations/internal/domain"
	"github.com/parkpass/parkpass-reservations/internal/repository"
	"github.com/parkpass/parkpass-reservations/internal/utils"
)

// CatalogService is the thin lot / rate plan surface the reservation core
// depends on for reference data.
type CatalogService interface {
	CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	ListLots(ctx context.Context, filter repository.LotFilter, limit, offset int) ([]domain.ParkingLot, error)
	GetLot(ctx context.Context, id int64) (*domain.ParkingLot, error)
	CreateRatePlan(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error)
	ListRatePlans(ctx context.Context, lotID int64) ([]domain.RatePlan, error)
}

type catalogService struct {
	lots  repository.LotRepository
	plans repository.RatePlanRepository
}

func NewCatalogService(lots repository.LotRepository, plans repository.RatePlanRepository) CatalogService {
	return &catalogService{lots: lots, plans: plans}
}

func (s *catalogService) CreateLot(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	lot.Name = utils.NormalizeString(lot.Name)
	if lot.Name == "" {
		return nil, domain.Validation("lot name is required")
	}
	if _, ok := domain.ParseLotCategory(string(lot.Category)); !ok {
		return nil, domain.Validation("unknown lot category %q", lot.Category)
	}
	if lot.Capacity < 1 {
		return nil, domain.Validation("capacity must be at least 1")
	}
	return s.lots.Create(ctx, lot)
}

func (s *catalogService) ListLots(ctx context.Context, filter repository.LotFilter, limit, offset int) ([]domain.ParkingLot, error) {
	return s.lots.List(ctx, filter, limit, offset)
}

func (s *catalogService) GetLot(ctx context.Context, id int64) (*domain.ParkingLot, error) {
	lot, err := s.lots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, domain.ErrNotFound
	}
	return lot, nil
}

func (s *catalogService) CreateRatePlan(ctx context.Context, plan *domain.RatePlan) (*domain.RatePlan, error) {
	plan.Name = utils.NormalizeString(plan.Name)
	if plan.Name == "" {
		return nil, domain.Validation("rate plan name is required")
	}
	if plan.HourlyRate < 0 {
		return nil, domain.Validation("hourly rate must not be negative")
	}
	if plan.DailyCap != nil && *plan.DailyCap < 0 {
		return nil, domain.Validation("daily cap must not be negative")
	}

	lot, err := s.lots.GetByID(ctx, plan.LotID)
	if err != nil {
		return nil, fmt.Errorf("load lot: %w", err)
	}
	if lot == nil {
		return nil, domain.Validation("lot %d does not exist", plan.LotID)
	}

	created, err := s.plans.Create(ctx, plan)
	if errors.Is(err, repository.ErrDuplicatePlanName) {
		return nil, domain.Validation("rate plan %q already exists for lot %q", plan.Name, lot.Name)
	}
	return created, err
}

func (s *catalogService) ListRatePlans(ctx context.Context, lotID int64) ([]domain.RatePlan, error) {
	return s.plans.ListByLot(ctx, lotID)
}
