package customer

import (
	"context"
	"errors"
	"testing"

	"suki-be/internal/address"
	"suki-be/internal/apperror"
	"suki-be/internal/ledgersync"
	"suki-be/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateWithAddresses(ctx context.Context, c *Customer, addrs []*address.Address) error {
	return m.Called(ctx, c, addrs).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

func (m *MockRepository) GetByAuthUser(ctx context.Context, authUserID string) (*Customer, error) {
	args := m.Called(ctx, authUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, f ListFilter) ([]*Customer, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Customer), args.Int(1), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Customer, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockCouriers struct {
	mock.Mock
}

func (m *MockCouriers) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type recordingSubmitter struct {
	jobs   []ledgersync.Job
	accept bool
}

func (s *recordingSubmitter) Submit(job ledgersync.Job) bool {
	s.jobs = append(s.jobs, job)
	return s.accept
}

type panickingSubmitter struct{}

func (panickingSubmitter) Submit(ledgersync.Job) bool {
	panic("ledger exploded")
}

// --- Helpers ---

func homeAddress() address.AddressInput {
	return address.AddressInput{
		Label:              "Home",
		RecipientFirstName: "Maria",
		RecipientLastName:  "Santos",
		StreetAddress:      "12 Mabini St",
		Barangay:           "San Roque",
		City:               "Marikina",
		Province:           "Metro Manila",
		PostalCode:         "1801",
	}
}

func validRegistration() RegisterInput {
	return RegisterInput{
		AuthUserID:     "auth-1",
		FirstName:      " Maria ",
		LastName:       "Santos",
		Email:          "Maria@Example.com",
		DeliveryMethod: DeliveryDelivered,
		Addresses:      []address.AddressInput{homeAddress()},
	}
}

// --- Tests ---

func TestService_Register(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-7")

	t.Run("Success", func(t *testing.T) {
		repo, sub := new(MockRepository), &recordingSubmitter{accept: true}
		repo.On("CreateWithAddresses", ctx, mock.AnythingOfType("*customer.Customer"), mock.MatchedBy(func(a []*address.Address) bool {
			return len(a) == 1 && a[0].IsDefault
		})).Return(nil)
		svc := NewService(repo, new(MockCouriers), sub)

		in := validRegistration()
		in.IsReturning = true
		c, addrs, err := svc.Register(ctx, in)

		require.NoError(t, err)
		assert.Equal(t, "Maria", c.FirstName)
		assert.Equal(t, "maria@example.com", c.Email)
		assert.Equal(t, ContactEmail, c.ContactPreference)
		assert.Equal(t, ledgersync.StatusPending, c.Sync.Status)
		require.NotNil(t, c.ProfileAddress)
		assert.Contains(t, *c.ProfileAddress, "San Roque")
		assert.Len(t, addrs, 1)

		require.Len(t, sub.jobs, 1)
		assert.Equal(t, ledgersync.Job{
			Kind:       ledgersync.JobNewCustomer,
			CustomerID: c.ID,
			Returning:  true,
			RequestID:  "req-7",
		}, sub.jobs[0])
	})

	t.Run("AddressRequiredUnlessPickup", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), &recordingSubmitter{})
		in := validRegistration()
		in.Addresses = nil

		_, _, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, ErrAddressRequired)
	})

	t.Run("PickupWithoutAddress", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("CreateWithAddresses", ctx, mock.Anything, []*address.Address{}).Return(nil)
		svc := NewService(repo, new(MockCouriers), &recordingSubmitter{accept: true})
		in := validRegistration()
		in.Addresses = nil
		in.DeliveryMethod = DeliveryPickup

		c, addrs, err := svc.Register(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, addrs)
		assert.Nil(t, c.ProfileAddress)
	})

	t.Run("TooManyAddresses", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), &recordingSubmitter{})
		in := validRegistration()
		in.Addresses = []address.AddressInput{homeAddress(), homeAddress(), homeAddress(), homeAddress()}

		_, _, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, address.ErrMaxAddresses)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), &recordingSubmitter{})
		in := validRegistration()
		in.Email = "not-an-email"

		_, _, err := svc.Register(ctx, in)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("InactiveCourier", func(t *testing.T) {
		couriers := new(MockCouriers)
		courierID := uuid.New()
		couriers.On("IsActive", ctx, courierID).Return(false, nil)
		svc := NewService(new(MockRepository), couriers, &recordingSubmitter{})
		in := validRegistration()
		in.CourierID = &courierID

		_, _, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, ErrCourierUnavailable)
	})

	t.Run("DuplicateEmailDoesNotSubmit", func(t *testing.T) {
		repo, sub := new(MockRepository), &recordingSubmitter{accept: true}
		repo.On("CreateWithAddresses", ctx, mock.Anything, mock.Anything).Return(ErrEmailExists)
		svc := NewService(repo, new(MockCouriers), sub)

		_, _, err := svc.Register(ctx, validRegistration())
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.Empty(t, sub.jobs)
	})
}

// Registration succeeds whatever happens to the sync hand-off.
func TestService_RegisterNeverBlockedBySync(t *testing.T) {
	ctx := context.Background()

	for name, sub := range map[string]SyncSubmitter{
		"Rejected": &recordingSubmitter{accept: false},
		"Panics":   panickingSubmitter{},
		"Missing":  nil,
	} {
		t.Run(name, func(t *testing.T) {
			repo := new(MockRepository)
			repo.On("CreateWithAddresses", ctx, mock.Anything, mock.Anything).Return(nil)
			svc := NewService(repo, new(MockCouriers), sub)

			c, _, err := svc.Register(ctx, validRegistration())
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, c.ID)
		})
	}
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("LinkedCustomerPushesProfile", func(t *testing.T) {
		repo, sub := new(MockRepository), &recordingSubmitter{accept: true}
		phone := " 0917 "
		contact := "c-1"
		repo.On("Update", ctx, id, mock.MatchedBy(func(p UpdateParams) bool {
			return *p.Phone == "0917" && p.FirstName == nil && p.Email == nil
		})).Return(&Customer{ID: id, Sync: ledgersync.Record{Status: ledgersync.StatusSynced, ContactID: &contact}}, nil)
		svc := NewService(repo, new(MockCouriers), sub)

		_, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{Phone: &phone})
		require.NoError(t, err)
		require.Len(t, sub.jobs, 1)
		assert.Equal(t, ledgersync.JobProfileUpdate, sub.jobs[0].Kind)
	})

	t.Run("UnlinkedCustomerSkipsPush", func(t *testing.T) {
		repo, sub := new(MockRepository), &recordingSubmitter{accept: true}
		repo.On("Update", ctx, id, mock.Anything).Return(&Customer{ID: id, Sync: ledgersync.NewRecord()}, nil)
		svc := NewService(repo, new(MockCouriers), sub)

		name := "Mia"
		_, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{FirstName: &name})
		require.NoError(t, err)
		assert.Empty(t, sub.jobs)
	})

	t.Run("AddressRequired", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Update", ctx, id, mock.Anything).Return(nil, ErrAddressRequired)
		svc := NewService(repo, new(MockCouriers), &recordingSubmitter{})

		method := DeliveryCOD
		_, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{DeliveryMethod: &method})
		assert.ErrorIs(t, err, ErrAddressRequired)
	})

	t.Run("InvalidDeliveryMethod", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), &recordingSubmitter{})

		method := DeliveryMethod("drone")
		_, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{DeliveryMethod: &method})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("CourierLookupError", func(t *testing.T) {
		couriers := new(MockCouriers)
		courierID := uuid.New()
		couriers.On("IsActive", ctx, courierID).Return(false, errors.New("db down"))
		svc := NewService(new(MockRepository), couriers, &recordingSubmitter{})

		_, err := svc.UpdateProfile(ctx, id, UpdateProfileInput{CourierID: &courierID})
		assert.EqualError(t, err, "db down")
	})
}

func TestService_AdminUpdate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("NormalizesEmail", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("Update", ctx, id, mock.MatchedBy(func(p UpdateParams) bool {
			return p.Email != nil && *p.Email == "new@example.com"
		})).Return(&Customer{ID: id}, nil)
		svc := NewService(repo, new(MockCouriers), nil)

		email := " New@Example.com "
		_, err := svc.AdminUpdate(ctx, id, AdminUpdateInput{Email: &email})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), nil)

		email := "nope"
		_, err := svc.AdminUpdate(ctx, id, AdminUpdateInput{Email: &email})
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("ClampsPaging", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("List", ctx, ListFilter{Limit: 20}).Return([]*Customer{}, 0, nil)
		svc := NewService(repo, new(MockCouriers), nil)

		_, _, err := svc.List(ctx, ListFilter{Limit: 1000, Offset: -3})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := NewService(new(MockRepository), new(MockCouriers), nil)

		_, _, err := svc.List(ctx, ListFilter{SyncStatus: "archived"})
		assert.ErrorIs(t, err, ErrInvalidSyncStatus)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("Delete", ctx, id).Return(ErrCustomerNotFound).Once()
	repo.On("Delete", ctx, id).Return(nil).Once()
	svc := NewService(repo, new(MockCouriers), nil)

	assert.ErrorIs(t, svc.Delete(ctx, id), ErrCustomerNotFound)
	assert.NoError(t, svc.Delete(ctx, id))
}
