package address

import (
	"context"
	"database/sql"
	"errors"

	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const deliveryPickup = "pickup"

// Owner is the customer whose row is locked for the duration of a mutation.
type Owner struct {
	CustomerID     uuid.UUID
	DeliveryMethod string
}

func (o Owner) IsPickup() bool {
	return o.DeliveryMethod == deliveryPickup
}

type Repository interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Address, error)
	GetByID(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error)

	// WithCustomerLock runs fn in one transaction holding the customer's row
	// lock. The transaction commits only when fn returns nil.
	WithCustomerLock(ctx context.Context, customerID uuid.UUID, fn func(TxStore) error) error
}

// TxStore is the address set of one locked customer.
type TxStore interface {
	Owner() Owner
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]*Address, error)
	Get(ctx context.Context, addressID uuid.UUID) (*Address, error)

	Insert(ctx context.Context, a *Address) error
	Update(ctx context.Context, a *Address) error
	// Delete removes the address and reports whether it was the default.
	Delete(ctx context.Context, addressID uuid.UUID) (bool, error)

	// ClearDefault unsets the default flag on every address except the given one.
	ClearDefault(ctx context.Context, except *uuid.UUID) error
	MarkDefault(ctx context.Context, addressID uuid.UUID) error
	// PromoteOldest makes the earliest created address the default and
	// returns its id, or nil when no address is left.
	PromoteOldest(ctx context.Context) (*uuid.UUID, error)
	TouchCustomer(ctx context.Context) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const addressColumns = `
	id, customer_id, label, recipient_first_name, recipient_last_name,
	street_address, barangay, city, province, region, postal_code,
	is_default, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (*Address, error) {
	var a Address
	err := row.Scan(
		&a.ID, &a.CustomerID, &a.Label, &a.RecipientFirstName, &a.RecipientLastName,
		&a.StreetAddress, &a.Barangay, &a.City, &a.Province, &a.Region, &a.PostalCode,
		&a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func listAddresses(ctx context.Context, q queryer, customerID uuid.UUID) ([]*Address, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE customer_id = $1 ORDER BY created_at, id`,
		customerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]*Address, 0, MaxAddresses)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func getAddress(ctx context.Context, q queryer, customerID, addressID uuid.UUID) (*Address, error) {
	a, err := scanAddress(q.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND customer_id = $2`,
		addressID, customerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	return a, err
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Address, error) {
	res, err := listAddresses(ctx, r.db, customerID)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to list addresses",
			zap.String("repo", "Address"),
			zap.String("method", "ListByCustomer"),
			zap.String("customer_id", customerID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

func (r *repository) GetByID(ctx context.Context, customerID, addressID uuid.UUID) (*Address, error) {
	a, err := getAddress(ctx, r.db, customerID, addressID)
	if err != nil && !errors.Is(err, ErrAddressNotFound) {
		logger.FromCtx(ctx).Error("failed to get address",
			zap.String("repo", "Address"),
			zap.String("method", "GetByID"),
			zap.String("address_id", addressID.String()),
			zap.Error(err),
		)
	}
	return a, err
}

func (r *repository) WithCustomerLock(ctx context.Context, customerID uuid.UUID, fn func(TxStore) error) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "WithCustomerLock"),
		zap.String("customer_id", customerID.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	owner := Owner{CustomerID: customerID}
	err = tx.QueryRowContext(ctx,
		`SELECT delivery_method FROM customers WHERE id = $1 FOR UPDATE`, customerID,
	).Scan(&owner.DeliveryMethod)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCustomerNotFound
	}
	if err != nil {
		log.Error("failed to lock customer", zap.Error(err))
		return err
	}

	if err := fn(StoreFor(tx, owner)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return mapConstraint(err)
	}
	committed = true
	return nil
}

type txStore struct {
	tx    *sql.Tx
	owner Owner
}

// StoreFor exposes the address set of owner inside an open transaction.
// The caller must already hold the owner's row lock.
func StoreFor(tx *sql.Tx, owner Owner) TxStore {
	return &txStore{tx: tx, owner: owner}
}

func (s *txStore) Owner() Owner {
	return s.owner
}

func (s *txStore) log(ctx context.Context, method string) *zap.Logger {
	return logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", method),
		zap.String("customer_id", s.owner.CustomerID.String()),
	)
}

func (s *txStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM addresses WHERE customer_id = $1`, s.owner.CustomerID,
	).Scan(&n)
	if err != nil {
		s.log(ctx, "Count").Error("count failed", zap.Error(err))
		return 0, err
	}
	return n, nil
}

func (s *txStore) List(ctx context.Context) ([]*Address, error) {
	res, err := listAddresses(ctx, s.tx, s.owner.CustomerID)
	if err != nil {
		s.log(ctx, "List").Error("query failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (s *txStore) Get(ctx context.Context, addressID uuid.UUID) (*Address, error) {
	return getAddress(ctx, s.tx, s.owner.CustomerID, addressID)
}

func (s *txStore) Insert(ctx context.Context, a *Address) error {
	const q = `
		INSERT INTO addresses (
			id, customer_id, label, recipient_first_name, recipient_last_name,
			street_address, barangay, city, province, region, postal_code, is_default
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err := s.tx.QueryRowContext(ctx, q,
		a.ID, s.owner.CustomerID, a.Label, a.RecipientFirstName, a.RecipientLastName,
		a.StreetAddress, a.Barangay, a.City, a.Province, a.Region, a.PostalCode, a.IsDefault,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		s.log(ctx, "Insert").Error("insert failed", zap.Error(err))
		return mapConstraint(err)
	}
	a.CustomerID = s.owner.CustomerID
	return nil
}

func (s *txStore) Update(ctx context.Context, a *Address) error {
	const q = `
		UPDATE addresses
		SET label = $3,
		    recipient_first_name = $4,
		    recipient_last_name = $5,
		    street_address = $6,
		    barangay = $7,
		    city = $8,
		    province = $9,
		    region = $10,
		    postal_code = $11,
		    is_default = $12,
		    updated_at = NOW()
		WHERE id = $1 AND customer_id = $2
		RETURNING updated_at
	`

	err := s.tx.QueryRowContext(ctx, q,
		a.ID, s.owner.CustomerID, a.Label, a.RecipientFirstName, a.RecipientLastName,
		a.StreetAddress, a.Barangay, a.City, a.Province, a.Region, a.PostalCode, a.IsDefault,
	).Scan(&a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAddressNotFound
	}
	if err != nil {
		s.log(ctx, "Update").Error("update failed", zap.Error(err))
		return mapConstraint(err)
	}
	return nil
}

func (s *txStore) Delete(ctx context.Context, addressID uuid.UUID) (bool, error) {
	var wasDefault bool
	err := s.tx.QueryRowContext(ctx,
		`DELETE FROM addresses WHERE id = $1 AND customer_id = $2 RETURNING is_default`,
		addressID, s.owner.CustomerID,
	).Scan(&wasDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrAddressNotFound
	}
	if err != nil {
		s.log(ctx, "Delete").Error("delete failed", zap.Error(err))
		return false, err
	}
	return wasDefault, nil
}

func (s *txStore) ClearDefault(ctx context.Context, except *uuid.UUID) error {
	var keep uuid.NullUUID
	if except != nil {
		keep = uuid.NullUUID{UUID: *except, Valid: true}
	}

	_, err := s.tx.ExecContext(ctx, `
		UPDATE addresses
		SET is_default = false, updated_at = NOW()
		WHERE customer_id = $1
		  AND is_default
		  AND ($2::uuid IS NULL OR id <> $2)
	`, s.owner.CustomerID, keep)
	if err != nil {
		s.log(ctx, "ClearDefault").Error("clear default failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *txStore) MarkDefault(ctx context.Context, addressID uuid.UUID) error {
	res, err := s.tx.ExecContext(ctx, `
		UPDATE addresses
		SET is_default = true, updated_at = NOW()
		WHERE id = $1 AND customer_id = $2
	`, addressID, s.owner.CustomerID)
	if err != nil {
		s.log(ctx, "MarkDefault").Error("mark default failed", zap.Error(err))
		return mapConstraint(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAddressNotFound
	}
	return nil
}

func (s *txStore) PromoteOldest(ctx context.Context) (*uuid.UUID, error) {
	const q = `
		UPDATE addresses
		SET is_default = true, updated_at = NOW()
		WHERE id = (
			SELECT id FROM addresses
			WHERE customer_id = $1
			ORDER BY created_at, id
			LIMIT 1
		)
		RETURNING id
	`

	var id uuid.UUID
	err := s.tx.QueryRowContext(ctx, q, s.owner.CustomerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.log(ctx, "PromoteOldest").Error("promote failed", zap.Error(err))
		return nil, mapConstraint(err)
	}
	return &id, nil
}

func (s *txStore) TouchCustomer(ctx context.Context) error {
	_, err := s.tx.ExecContext(ctx,
		`UPDATE customers SET updated_at = NOW() WHERE id = $1`, s.owner.CustomerID)
	if err != nil {
		s.log(ctx, "TouchCustomer").Error("touch failed", zap.Error(err))
	}
	return err
}
