package customer

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"suki-be/internal/address"
	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	// CreateWithAddresses inserts c and its initial addresses atomically.
	CreateWithAddresses(ctx context.Context, c *Customer, addrs []*address.Address) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByAuthUser(ctx context.Context, authUserID string) (*Customer, error)
	List(ctx context.Context, f ListFilter) ([]*Customer, int, error)
	Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const customerColumns = `
	id, auth_user_id, first_name, last_name, email, phone,
	contact_preference, delivery_method, courier_id, profile_address,
	sync_status, sync_error, sync_attempts, sync_last_attempted_at, ledger_contact_id,
	created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }) (*Customer, error) {
	var (
		c       Customer
		courier uuid.NullUUID
	)
	err := row.Scan(
		&c.ID, &c.AuthUserID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.ContactPreference, &c.DeliveryMethod, &courier, &c.ProfileAddress,
		&c.Sync.Status, &c.Sync.Error, &c.Sync.Attempts, &c.Sync.LastAttemptedAt, &c.Sync.ContactID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if courier.Valid {
		c.CourierID = &courier.UUID
	}
	return &c, nil
}

func (r *repository) CreateWithAddresses(ctx context.Context, c *Customer, addrs []*address.Address) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Customer"),
		zap.String("method", "CreateWithAddresses"),
		zap.String("customer_id", c.ID.String()),
		zap.Int("address_count", len(addrs)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO customers (
			id, auth_user_id, first_name, last_name, email, phone,
			contact_preference, delivery_method, courier_id, profile_address, sync_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err = tx.QueryRowContext(ctx, q,
		c.ID, c.AuthUserID, c.FirstName, c.LastName, c.Email, c.Phone,
		c.ContactPreference, c.DeliveryMethod, c.CourierID, c.ProfileAddress, c.Sync.Status,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		log.Warn("failed to insert customer", zap.Error(err))
		return mapConstraint(err)
	}

	store := address.StoreFor(tx, address.Owner{CustomerID: c.ID, DeliveryMethod: string(c.DeliveryMethod)})
	for _, a := range addrs {
		if err := store.Insert(ctx, a); err != nil {
			log.Error("failed to insert address", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return err
	}

	log.Info("customer created")
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	return r.getOne(ctx, "GetByID", `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *repository) GetByAuthUser(ctx context.Context, authUserID string) (*Customer, error) {
	return r.getOne(ctx, "GetByAuthUser", `SELECT `+customerColumns+` FROM customers WHERE auth_user_id = $1`, authUserID)
}

func (r *repository) getOne(ctx context.Context, method, q string, arg any) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Customer"),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, f ListFilter) ([]*Customer, int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Customer"),
		zap.String("method", "List"),
	)

	const where = `
		WHERE ($1 = '' OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1)
		  AND ($2 = '' OR sync_status = $2)`

	search := ""
	if s := strings.TrimSpace(f.Search); s != "" {
		search = "%" + escapeLike(s) + "%"
	}
	status := string(f.SyncStatus)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`+where, search, status).Scan(&total); err != nil {
		log.Error("count failed", zap.Error(err))
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+customerColumns+` FROM customers`+where+` ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`,
		search, status, f.Limit, f.Offset,
	)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	res := make([]*Customer, 0, f.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, 0, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return res, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, p UpdateParams) (*Customer, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Customer"),
		zap.String("method", "Update"),
		zap.String("customer_id", id.String()),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	// the same lock address mutations take, so the delivery method and the
	// address count cannot change underneath each other
	var current DeliveryMethod
	err = tx.QueryRowContext(ctx, `SELECT delivery_method FROM customers WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		log.Error("failed to lock customer", zap.Error(err))
		return nil, err
	}

	if p.DeliveryMethod != nil && *p.DeliveryMethod != DeliveryPickup && current == DeliveryPickup {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM addresses WHERE customer_id = $1`, id,
		).Scan(&n); err != nil {
			log.Error("failed to count addresses", zap.Error(err))
			return nil, err
		}
		if n == 0 {
			return nil, ErrAddressRequired
		}
	}

	const q = `
		UPDATE customers
		SET first_name = COALESCE($2, first_name),
		    last_name = COALESCE($3, last_name),
		    email = COALESCE($4, email),
		    phone = COALESCE($5, phone),
		    contact_preference = COALESCE($6, contact_preference),
		    delivery_method = COALESCE($7, delivery_method),
		    courier_id = CASE WHEN $8 THEN NULL ELSE COALESCE($9, courier_id) END,
		    profile_address = COALESCE($10, profile_address),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + customerColumns

	c, err := scanCustomer(tx.QueryRowContext(ctx, q,
		id, p.FirstName, p.LastName, p.Email, p.Phone,
		p.ContactPreference, p.DeliveryMethod, p.ClearCourier, p.CourierID, p.ProfileAddress,
	))
	if err != nil {
		log.Warn("failed to update customer", zap.Error(err))
		return nil, mapConstraint(err)
	}

	if err := tx.Commit(); err != nil {
		log.Error("failed to commit transaction", zap.Error(err))
		return nil, err
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("delete failed",
			zap.String("repo", "Customer"),
			zap.String("customer_id", id.String()),
			zap.Error(err),
		)
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
