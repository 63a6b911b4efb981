package httpapi

import (
	"context"
	"errors"
	"time"

	"suki-be/internal/address"
	"suki-be/internal/auth"
	"suki-be/internal/courier"
	"suki-be/internal/customer"
	"suki-be/internal/email"
	"suki-be/internal/ledger"
	"suki-be/internal/ledgersync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type stubTokens map[string]*auth.Principal

func (s stubTokens) ParseToken(token string) (*auth.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

func (s stubTokens) Issue(p auth.Principal) (string, time.Time, error) {
	return "issued-" + p.Subject, time.Now().Add(auth.TokenTTL), nil
}

type MockCustomers struct {
	customer.Service
	mock.Mock
}

func (m *MockCustomers) Register(ctx context.Context, in customer.RegisterInput) (*customer.Customer, []*address.Address, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*customer.Customer), args.Get(1).([]*address.Address), args.Error(2)
}

func (m *MockCustomers) Get(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomers) GetByAuthUser(ctx context.Context, authUserID string) (*customer.Customer, error) {
	args := m.Called(ctx, authUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomers) UpdateProfile(ctx context.Context, id uuid.UUID, in customer.UpdateProfileInput) (*customer.Customer, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomers) AdminUpdate(ctx context.Context, id uuid.UUID, in customer.AdminUpdateInput) (*customer.Customer, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomers) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCustomers) List(ctx context.Context, f customer.ListFilter) ([]*customer.Customer, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*customer.Customer), args.Int(1), args.Error(2)
}

type MockAddresses struct {
	address.Service
	mock.Mock
}

func (m *MockAddresses) List(ctx context.Context, customerID uuid.UUID) ([]*address.Address, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*address.Address), args.Error(1)
}

func (m *MockAddresses) Add(ctx context.Context, customerID uuid.UUID, in address.AddressInput) (*address.Address, error) {
	args := m.Called(ctx, customerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}

func (m *MockAddresses) Delete(ctx context.Context, customerID, addressID uuid.UUID) error {
	return m.Called(ctx, customerID, addressID).Error(0)
}

func (m *MockAddresses) SetDefault(ctx context.Context, customerID, addressID uuid.UUID) (*address.Address, error) {
	args := m.Called(ctx, customerID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*address.Address), args.Error(1)
}

type MockSync struct {
	ledgersync.Service
	mock.Mock
}

func (m *MockSync) TriggerSync(ctx context.Context, id uuid.UUID, action ledgersync.Action) (*ledgersync.Outcome, error) {
	args := m.Called(ctx, id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledgersync.Outcome), args.Error(1)
}

func (m *MockSync) LinkContact(ctx context.Context, id uuid.UUID, contactID string) (ledgersync.State, error) {
	args := m.Called(ctx, id, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ledgersync.State), args.Error(1)
}

func (m *MockSync) ListInvoices(ctx context.Context, id uuid.UUID, f ledger.InvoiceFilter, page int) (*ledger.InvoicePage, error) {
	args := m.Called(ctx, id, f, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.InvoicePage), args.Error(1)
}

func (m *MockSync) ProcessQueue(ctx context.Context) (ledgersync.Summary, error) {
	args := m.Called(ctx)
	return args.Get(0).(ledgersync.Summary), args.Error(1)
}

type MockCouriers struct {
	courier.Service
	mock.Mock
}

func (m *MockCouriers) List(ctx context.Context, activeOnly bool) ([]*courier.Courier, error) {
	args := m.Called(ctx, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*courier.Courier), args.Error(1)
}

type MockEmail struct {
	email.Service
	mock.Mock
}

func (m *MockEmail) SendTemplateEmail(ctx context.Context, customerID, templateID uuid.UUID, scheduledFor *time.Time) (*email.Log, error) {
	args := m.Called(ctx, customerID, templateID, scheduledFor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*email.Log), args.Error(1)
}

func (m *MockEmail) CheckRateLimit(ctx context.Context, count int) (email.RateLimit, error) {
	args := m.Called(ctx, count)
	return args.Get(0).(email.RateLimit), args.Error(1)
}
