package customer

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"suki-be/internal/address"
	"suki-be/internal/ledgersync"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var customerCols = []string{
	"id", "auth_user_id", "first_name", "last_name", "email", "phone",
	"contact_preference", "delivery_method", "courier_id", "profile_address",
	"sync_status", "sync_error", "sync_attempts", "sync_last_attempted_at", "ledger_contact_id",
	"created_at", "updated_at",
}

func customerRow(rows *sqlmock.Rows, id uuid.UUID, delivery string, contactID any) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id.String(), "auth-1", "Maria", "Santos", "maria@example.com", "0917",
		"email", delivery, nil, nil,
		"pending", nil, 0, nil, contactID,
		now, now,
	)
}

func newCustomer() *Customer {
	return &Customer{
		ID:                uuid.New(),
		AuthUserID:        "auth-1",
		FirstName:         "Maria",
		LastName:          "Santos",
		Email:             "maria@example.com",
		ContactPreference: ContactEmail,
		DeliveryMethod:    DeliveryDelivered,
		Sync:              ledgersync.NewRecord(),
	}
}

func TestRepository_CreateWithAddresses(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		c := newCustomer()
		a := &address.Address{ID: uuid.New(), Label: "Home", PostalCode: "1801", IsDefault: true}
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO customers").
			WithArgs(c.ID, "auth-1", "Maria", "Santos", "maria@example.com", "",
				"email", "delivered", nil, nil, "pending").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery("INSERT INTO addresses").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		err = NewRepository(db).CreateWithAddresses(context.Background(), c, []*address.Address{a})
		require.NoError(t, err)
		assert.Equal(t, now, c.CreatedAt)
		assert.Equal(t, c.ID, a.CustomerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO customers").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "customers_email_key"})
		mock.ExpectRollback()

		err = NewRepository(db).CreateWithAddresses(context.Background(), newCustomer(), nil)
		assert.ErrorIs(t, err, ErrEmailExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AddressFailureRollsBack", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO customers").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery("INSERT INTO addresses").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err = NewRepository(db).CreateWithAddresses(context.Background(), newCustomer(),
			[]*address.Address{{ID: uuid.New()}})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	t.Run("ByID", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM customers WHERE id = \\$1").
			WithArgs(id).
			WillReturnRows(customerRow(sqlmock.NewRows(customerCols), id, "pickup", "c-1"))

		c, err := repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, DeliveryPickup, c.DeliveryMethod)
		assert.Equal(t, ledgersync.StatusPending, c.Sync.Status)
		assert.Equal(t, "c-1", *c.Sync.ContactID)
		assert.Nil(t, c.CourierID)
	})

	t.Run("ByAuthUserNotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT .* FROM customers WHERE auth_user_id = \\$1").
			WithArgs("nobody").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByAuthUser(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM customers").
		WithArgs("%50\\%%", "failed").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery("SELECT .* FROM customers.* ORDER BY created_at DESC, id LIMIT \\$3 OFFSET \\$4").
		WithArgs("%50\\%%", "failed", 5, 5).
		WillReturnRows(customerRow(sqlmock.NewRows(customerCols), id, "cod", nil))

	res, total, err := repo.List(context.Background(), ListFilter{Search: " 50% ", SyncStatus: ledgersync.StatusFailed, Limit: 5, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, res, 1)
	assert.Equal(t, id, res[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	id := uuid.New()
	delivered := DeliveryDelivered

	t.Run("LeavingPickupWithoutAddress", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT delivery_method FROM customers WHERE id = \\$1 FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"delivery_method"}).AddRow("pickup"))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM addresses").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectRollback()

		_, err = NewRepository(db).Update(context.Background(), id, UpdateParams{DeliveryMethod: &delivered})
		assert.ErrorIs(t, err, ErrAddressRequired)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LeavingPickupWithAddress", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"delivery_method"}).AddRow("pickup"))
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM addresses").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery("UPDATE customers\\s+SET first_name = COALESCE\\(\\$2, first_name\\)").
			WithArgs(id, nil, nil, nil, nil, nil, "delivered", false, nil, nil).
			WillReturnRows(customerRow(sqlmock.NewRows(customerCols), id, "delivered", nil))
		mock.ExpectCommit()

		c, err := NewRepository(db).Update(context.Background(), id, UpdateParams{DeliveryMethod: &delivered})
		require.NoError(t, err)
		assert.Equal(t, DeliveryDelivered, c.DeliveryMethod)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WithArgs(id).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err = NewRepository(db).Update(context.Background(), id, UpdateParams{})
		assert.ErrorIs(t, err, ErrCustomerNotFound)
	})
}

func TestRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	id := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM customers WHERE id = \\$1").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), id))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec("DELETE FROM customers").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrCustomerNotFound)
	})
}
