package ledgersync

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"suki-be/internal/ledger"
	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	GetRecord(ctx context.Context, customerID uuid.UUID) (*Record, error)
	GetProfile(ctx context.Context, customerID uuid.UUID) (*Profile, error)

	// Claim moves the customer to syncing unless another attempt holds an
	// unexpired lease, and returns the claimed record.
	Claim(ctx context.Context, customerID uuid.UUID, lease time.Duration) (*Record, error)
	// Finalize stores the attempt's result while the claim is still held.
	// It reports false when the row was overridden in the meantime.
	Finalize(ctx context.Context, customerID uuid.UUID, rec Record) (bool, error)

	// Overwrite stores rec unconditionally and returns the stored record.
	Overwrite(ctx context.Context, customerID uuid.UUID, rec Record) (*Record, error)
	// Swap stores next only if the row still matches prev. It reports false
	// when the row changed since prev was read.
	Swap(ctx context.Context, customerID uuid.UUID, prev, next Record) (bool, error)

	SelectQueue(ctx context.Context, f QueueFilter) ([]uuid.UUID, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const recordColumns = `sync_status, sync_error, sync_attempts, sync_last_attempted_at, ledger_contact_id`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var rec Record
	if err := row.Scan(&rec.Status, &rec.Error, &rec.Attempts, &rec.LastAttemptedAt, &rec.ContactID); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) GetRecord(ctx context.Context, customerID uuid.UUID) (*Record, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "GetRecord"),
		zap.String("customer_id", customerID.String()),
	)

	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM customers WHERE id = $1`, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	return rec, nil
}

func (r *repository) GetProfile(ctx context.Context, customerID uuid.UUID) (*Profile, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "GetProfile"),
		zap.String("customer_id", customerID.String()),
	)

	const q = `
		SELECT
			c.id, c.first_name, c.last_name, c.email, c.phone,
			a.street_address, a.barangay, a.city, a.province, a.postal_code
		FROM customers c
		LEFT JOIN addresses a
			ON a.customer_id = c.id AND a.is_default = true
		WHERE c.id = $1
	`

	var (
		p                                      Profile
		street, barangay, city, province, code sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, customerID).Scan(
		&p.CustomerID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
		&street, &barangay, &city, &province, &code,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	if street.Valid {
		p.Address = &ledger.PostalAddress{
			Street:     street.String,
			Barangay:   barangay.String,
			City:       city.String,
			Province:   province.String,
			PostalCode: code.String,
		}
	}
	return &p, nil
}

func (r *repository) Claim(ctx context.Context, customerID uuid.UUID, lease time.Duration) (*Record, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "Claim"),
		zap.String("customer_id", customerID.String()),
	)

	const q = `
		UPDATE customers
		SET sync_status = 'syncing',
		    sync_last_attempted_at = NOW()
		WHERE id = $1
		  AND (sync_status <> 'syncing'
		       OR sync_last_attempted_at IS NULL
		       OR sync_last_attempted_at < NOW() - make_interval(secs => $2))
		RETURNING ` + recordColumns

	rec, err := scanRecord(r.db.QueryRowContext(ctx, q, customerID, lease.Seconds()))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("claim failed", zap.Error(err))
		return nil, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, customerID,
	).Scan(&exists); err != nil {
		log.Error("existence check failed", zap.Error(err))
		return nil, err
	}
	if !exists {
		return nil, ErrCustomerNotFound
	}

	log.Info("customer already claimed by another attempt")
	return nil, ErrSyncInProgress
}

func (r *repository) Finalize(ctx context.Context, customerID uuid.UUID, rec Record) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "Finalize"),
		zap.String("customer_id", customerID.String()),
		zap.String("status", string(rec.Status)),
	)

	const q = `
		UPDATE customers
		SET sync_status = $2,
		    sync_error = $3,
		    sync_attempts = $4,
		    ledger_contact_id = $5
		WHERE id = $1
		  AND sync_status = 'syncing'
	`

	res, err := r.db.ExecContext(ctx, q, customerID, rec.Status, rec.Error, rec.Attempts, rec.ContactID)
	if err != nil {
		log.Error("finalize failed", zap.Error(err))
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		log.Warn("sync result discarded, state changed during attempt")
		return false, nil
	}
	return true, nil
}

func (r *repository) Overwrite(ctx context.Context, customerID uuid.UUID, rec Record) (*Record, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "Overwrite"),
		zap.String("customer_id", customerID.String()),
		zap.String("status", string(rec.Status)),
	)

	const q = `
		UPDATE customers
		SET sync_status = $2,
		    sync_error = $3,
		    sync_attempts = $4,
		    ledger_contact_id = $5
		WHERE id = $1
		RETURNING ` + recordColumns

	out, err := scanRecord(r.db.QueryRowContext(ctx, q, customerID, rec.Status, rec.Error, rec.Attempts, rec.ContactID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		log.Error("overwrite failed", zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *repository) Swap(ctx context.Context, customerID uuid.UUID, prev, next Record) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "Swap"),
		zap.String("customer_id", customerID.String()),
		zap.String("from", string(prev.Status)),
		zap.String("to", string(next.Status)),
	)

	const q = `
		UPDATE customers
		SET sync_status = $2,
		    sync_error = $3,
		    sync_attempts = $4,
		    ledger_contact_id = $5
		WHERE id = $1
		  AND sync_status = $6
		  AND sync_attempts = $7
		  AND ledger_contact_id IS NOT DISTINCT FROM $8
	`

	res, err := r.db.ExecContext(ctx, q,
		customerID, next.Status, next.Error, next.Attempts, next.ContactID,
		prev.Status, prev.Attempts, prev.ContactID,
	)
	if err != nil {
		log.Error("swap failed", zap.Error(err))
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) SelectQueue(ctx context.Context, f QueueFilter) ([]uuid.UUID, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "LedgerSync"),
		zap.String("method", "SelectQueue"),
	)

	const q = `
		SELECT id
		FROM customers
		WHERE (sync_status IN ('pending', 'failed') AND sync_attempts < $1)
		   OR (sync_status = 'syncing'
		       AND sync_last_attempted_at < NOW() - make_interval(secs => $2))
		ORDER BY sync_last_attempted_at NULLS FIRST, created_at
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, q, f.RetryCeiling, f.Lease.Seconds(), f.Limit)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows failed", zap.Error(err))
		return nil, err
	}

	return ids, nil
}
