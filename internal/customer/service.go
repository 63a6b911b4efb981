package customer

import (
	"context"
	"strings"

	"suki-be/internal/address"
	"suki-be/internal/ledgersync"
	"suki-be/internal/logger"
	"suki-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncSubmitter hands ledger sync work to the background dispatcher.
type SyncSubmitter interface {
	Submit(job ledgersync.Job) bool
}

// CourierLookup reports whether a courier can be assigned to customers.
type CourierLookup interface {
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Customer, []*address.Address, error)
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByAuthUser(ctx context.Context, authUserID string) (*Customer, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*Customer, error)
	AdminUpdate(ctx context.Context, id uuid.UUID, input AdminUpdateInput) (*Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*Customer, int, error)
}

type service struct {
	repo     Repository
	couriers CourierLookup
	sync     SyncSubmitter
}

func NewService(repo Repository, couriers CourierLookup, sync SyncSubmitter) Service {
	return &service{repo: repo, couriers: couriers, sync: sync}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*Customer, []*address.Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Customer"),
		zap.String("method", "Register"),
	)

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	if input.ContactPreference == "" {
		input.ContactPreference = ContactEmail
	}

	if err := validation.Struct(input); err != nil {
		log.Info("invalid registration", zap.Error(err))
		return nil, nil, err
	}
	if input.DeliveryMethod != DeliveryPickup && len(input.Addresses) == 0 {
		return nil, nil, ErrAddressRequired
	}
	if err := s.checkCourier(ctx, input.CourierID); err != nil {
		return nil, nil, err
	}

	c := &Customer{
		ID:                uuid.New(),
		AuthUserID:        input.AuthUserID,
		FirstName:         input.FirstName,
		LastName:          input.LastName,
		Email:             input.Email,
		Phone:             input.Phone,
		ContactPreference: input.ContactPreference,
		DeliveryMethod:    input.DeliveryMethod,
		CourierID:         input.CourierID,
		Sync:              ledgersync.NewRecord(),
	}

	addrs, err := address.PlanInitial(c.ID, input.Addresses)
	if err != nil {
		log.Info("invalid registration address", zap.Error(err))
		return nil, nil, err
	}
	for _, a := range addrs {
		if a.IsDefault {
			summary := a.Summary()
			c.ProfileAddress = &summary
		}
	}

	if err := s.repo.CreateWithAddresses(ctx, c, addrs); err != nil {
		log.Warn("registration failed", zap.Error(err))
		return nil, nil, err
	}

	log.Info("customer registered",
		zap.String("customer_id", c.ID.String()),
		zap.Int("address_count", len(addrs)),
	)

	s.submit(ctx, ledgersync.Job{
		Kind:       ledgersync.JobNewCustomer,
		CustomerID: c.ID,
		Returning:  input.IsReturning,
	})
	return c, addrs, nil
}

// submit queues a sync job. Sync trouble never fails the calling operation.
func (s *service) submit(ctx context.Context, job ledgersync.Job) {
	log := logger.FromCtx(ctx).With(
		zap.String("customer_id", job.CustomerID.String()),
		zap.String("kind", string(job.Kind)),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("sync submission panicked", zap.Any("panic", r))
		}
	}()

	if s.sync == nil {
		return
	}
	job.RequestID = logger.RequestIDFrom(ctx)
	if !s.sync.Submit(job) {
		log.Warn("sync job not queued, left for the queue pass")
	}
}

func (s *service) checkCourier(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.couriers.IsActive(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCourierUnavailable
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetByAuthUser(ctx context.Context, authUserID string) (*Customer, error) {
	return s.repo.GetByAuthUser(ctx, authUserID)
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, input UpdateProfileInput) (*Customer, error) {
	return s.update(ctx, "UpdateProfile", id, input, nil)
}

func (s *service) AdminUpdate(ctx context.Context, id uuid.UUID, input AdminUpdateInput) (*Customer, error) {
	if input.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*input.Email))
		input.Email = &e
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	return s.update(ctx, "AdminUpdate", id, input.UpdateProfileInput, input.Email)
}

func (s *service) update(
	ctx context.Context,
	method string,
	id uuid.UUID,
	input UpdateProfileInput,
	email *string,
) (*Customer, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Customer"),
		zap.String("method", method),
		zap.String("customer_id", id.String()),
	)

	if err := validation.Struct(input); err != nil {
		log.Info("invalid profile update", zap.Error(err))
		return nil, err
	}
	if !input.ClearCourier {
		if err := s.checkCourier(ctx, input.CourierID); err != nil {
			return nil, err
		}
	}

	c, err := s.repo.Update(ctx, id, UpdateParams{
		FirstName:         trimmed(input.FirstName),
		LastName:          trimmed(input.LastName),
		Email:             email,
		Phone:             trimmed(input.Phone),
		ContactPreference: input.ContactPreference,
		DeliveryMethod:    input.DeliveryMethod,
		CourierID:         input.CourierID,
		ClearCourier:      input.ClearCourier,
		ProfileAddress:    trimmed(input.ProfileAddress),
	})
	if err != nil {
		log.Warn("profile update rejected", zap.Error(err))
		return nil, err
	}

	log.Info("profile updated")

	if c.Sync.ContactID != nil {
		s.submit(ctx, ledgersync.Job{Kind: ledgersync.JobProfileUpdate, CustomerID: c.ID})
	}
	return c, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("customer deleted",
		zap.String("service", "Customer"),
		zap.String("customer_id", id.String()),
	)
	return nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]*Customer, int, error) {
	if f.SyncStatus != "" && !f.SyncStatus.Valid() {
		return nil, 0, ErrInvalidSyncStatus
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.repo.List(ctx, f)
}
