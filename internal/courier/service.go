package courier

import (
	"context"
	"errors"
	"strings"

	"suki-be/internal/logger"
	"suki-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultVehicle = "motorbike"

type Service interface {
	List(ctx context.Context, activeOnly bool) ([]*Courier, error)
	Get(ctx context.Context, id uuid.UUID) (*Courier, error)
	Create(ctx context.Context, in CreateInput) (*Courier, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Courier, error)
	// Delete removes the courier; customers assigned to it are left without one.
	Delete(ctx context.Context, id uuid.UUID) error
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]*Courier, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Courier, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Create(ctx context.Context, in CreateInput) (*Courier, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.VehicleType == "" {
		in.VehicleType = defaultVehicle
	}

	c := &Courier{
		ID:          uuid.New(),
		Name:        in.Name,
		Phone:       in.Phone,
		VehicleType: in.VehicleType,
		Active:      true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("courier created",
		zap.String("service", "Courier"),
		zap.String("courier_id", c.ID.String()),
	)
	return c, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Courier, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("courier deleted",
		zap.String("service", "Courier"),
		zap.String("courier_id", id.String()),
	)
	return nil
}

func (s *service) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrCourierNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return c.Active, nil
}
