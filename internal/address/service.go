package address

import (
	"context"
	"fmt"

	"suki-be/internal/logger"
	"suki-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service keeps each customer's address set at no more than MaxAddresses
// entries with exactly one default whenever any address exists.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID) ([]*Address, error)
	Get(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error)

	Add(ctx context.Context, customerID uuid.UUID, input AddressInput) (*Address, error)
	Update(ctx context.Context, customerID, addressID uuid.UUID, input UpdateInput) (*Address, error)
	Delete(ctx context.Context, customerID, addressID uuid.UUID) error

	SetDefault(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]*Address, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *service) Get(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error) {
	return s.repo.GetByID(ctx, customerID, addressID)
}

func (s *service) Add(ctx context.Context, customerID uuid.UUID, input AddressInput) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Add"),
		zap.String("customer_id", customerID.String()),
	)

	input.normalize()
	if err := validation.Struct(input); err != nil {
		log.Info("invalid address input", zap.Error(err))
		return nil, err
	}

	var created *Address
	err := s.repo.WithCustomerLock(ctx, customerID, func(st TxStore) error {
		n, err := st.Count(ctx)
		if err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}
		if n >= MaxAddresses {
			return ErrMaxAddresses
		}

		addr := FromInput(customerID, input)
		// the first address is always the default
		addr.IsDefault = n == 0 || input.IsDefault

		if addr.IsDefault && n > 0 {
			if err := st.ClearDefault(ctx, nil); err != nil {
				return fmt.Errorf("clear defaults: %w", err)
			}
		}
		if err := st.Insert(ctx, addr); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}

		created = addr
		return nil
	})
	if err != nil {
		log.Warn("add address rejected", zap.Error(err))
		return nil, err
	}

	log.Info("address added",
		zap.String("address_id", created.ID.String()),
		zap.Bool("is_default", created.IsDefault),
	)
	return created, nil
}

func (s *service) Update(
	ctx context.Context,
	customerID, addressID uuid.UUID,
	input UpdateInput,
) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Update"),
		zap.String("customer_id", customerID.String()),
		zap.String("address_id", addressID.String()),
	)

	input.normalize()
	if err := validation.Struct(input); err != nil {
		log.Info("invalid address input", zap.Error(err))
		return nil, err
	}

	var updated *Address
	err := s.repo.WithCustomerLock(ctx, customerID, func(st TxStore) error {
		addr, err := st.Get(ctx, addressID)
		if err != nil {
			return err
		}

		input.apply(addr)

		switch {
		case input.IsDefault == nil:
		case *input.IsDefault && !addr.IsDefault:
			if err := st.ClearDefault(ctx, &addr.ID); err != nil {
				return fmt.Errorf("clear defaults: %w", err)
			}
			addr.IsDefault = true
		case !*input.IsDefault && addr.IsDefault:
			log.Info("keeping default flag, another address must be made default instead")
		}

		if err := st.Update(ctx, addr); err != nil {
			return fmt.Errorf("update address: %w", err)
		}

		updated = addr
		return nil
	})
	if err != nil {
		log.Warn("update address rejected", zap.Error(err))
		return nil, err
	}

	log.Info("address updated", zap.Bool("is_default", updated.IsDefault))
	return updated, nil
}

func (s *service) Delete(ctx context.Context, customerID, addressID uuid.UUID) error {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Delete"),
		zap.String("customer_id", customerID.String()),
		zap.String("address_id", addressID.String()),
	)

	var promoted *uuid.UUID
	err := s.repo.WithCustomerLock(ctx, customerID, func(st TxStore) error {
		if _, err := st.Get(ctx, addressID); err != nil {
			return err
		}

		n, err := st.Count(ctx)
		if err != nil {
			return fmt.Errorf("count addresses: %w", err)
		}
		if n == 1 && !st.Owner().IsPickup() {
			return ErrCannotDeleteOnlyAddress
		}

		wasDefault, err := st.Delete(ctx, addressID)
		if err != nil {
			return fmt.Errorf("delete address: %w", err)
		}

		if wasDefault && n > 1 {
			promoted, err = st.PromoteOldest(ctx)
			if err != nil {
				return fmt.Errorf("promote default: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Warn("delete address rejected", zap.Error(err))
		return err
	}

	if promoted != nil {
		log.Info("address deleted, default reassigned", zap.String("new_default_id", promoted.String()))
		return nil
	}
	log.Info("address deleted")
	return nil
}

func (s *service) SetDefault(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "SetDefault"),
		zap.String("customer_id", customerID.String()),
		zap.String("address_id", addressID.String()),
	)

	var addr *Address
	err := s.repo.WithCustomerLock(ctx, customerID, func(st TxStore) error {
		var err error
		addr, err = st.Get(ctx, addressID)
		if err != nil {
			return err
		}

		if err := st.ClearDefault(ctx, &addressID); err != nil {
			return fmt.Errorf("clear defaults: %w", err)
		}
		if err := st.MarkDefault(ctx, addressID); err != nil {
			return fmt.Errorf("set default: %w", err)
		}
		if err := st.TouchCustomer(ctx); err != nil {
			return fmt.Errorf("touch customer: %w", err)
		}

		addr.IsDefault = true
		return nil
	})
	if err != nil {
		log.Warn("set default rejected", zap.Error(err))
		return nil, err
	}

	log.Info("default address set")
	return addr, nil
}

// PlanInitial validates the addresses given at registration and decides
// which one is the default: the first one flagged, else the first one.
func PlanInitial(customerID uuid.UUID, inputs []AddressInput) ([]*Address, error) {
	if len(inputs) > MaxAddresses {
		return nil, ErrMaxAddresses
	}

	res := make([]*Address, 0, len(inputs))
	defaultAt := -1
	for i, in := range inputs {
		in.normalize()
		if err := validation.Struct(in); err != nil {
			return nil, err
		}
		if in.IsDefault && defaultAt < 0 {
			defaultAt = i
		}
		res = append(res, FromInput(customerID, in))
	}

	if len(res) > 0 {
		res[max(defaultAt, 0)].IsDefault = true
	}
	return res, nil
}
