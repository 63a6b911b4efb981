package courier

import (
	"context"
	"database/sql"
	"errors"

	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	List(ctx context.Context, activeOnly bool) ([]*Courier, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Courier, error)
	Create(ctx context.Context, c *Courier) error
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Courier, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const courierColumns = `id, name, phone, vehicle_type, active, created_at, updated_at`

func scanCourier(row interface{ Scan(...any) error }) (*Courier, error) {
	var c Courier
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.VehicleType, &c.Active, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]*Courier, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Courier"),
		zap.String("method", "List"),
	)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE (NOT $1 OR active) ORDER BY name, id`, activeOnly)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*Courier
	for rows.Next() {
		c, err := scanCourier(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Courier, error) {
	c, err := scanCourier(r.db.QueryRowContext(ctx,
		`SELECT `+courierColumns+` FROM couriers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCourierNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Courier"),
			zap.String("method", "GetByID"),
			zap.Error(err),
		)
		return nil, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c *Courier) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO couriers (id, name, phone, vehicle_type, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, c.ID, c.Name, c.Phone, c.VehicleType, c.Active).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert failed",
			zap.String("repo", "Courier"),
			zap.String("method", "Create"),
			zap.Error(err),
		)
	}
	return err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Courier, error) {
	const q = `
		UPDATE couriers
		SET name = COALESCE($2, name),
		    phone = COALESCE($3, phone),
		    vehicle_type = COALESCE($4, vehicle_type),
		    active = COALESCE($5, active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + courierColumns

	c, err := scanCourier(r.db.QueryRowContext(ctx, q, id, in.Name, in.Phone, in.VehicleType, in.Active))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCourierNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("update failed",
			zap.String("repo", "Courier"),
			zap.String("method", "Update"),
			zap.Error(err),
		)
		return nil, err
	}
	return c, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM couriers WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("delete failed",
			zap.String("repo", "Courier"),
			zap.String("method", "Delete"),
			zap.Error(err),
		)
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCourierNotFound
	}
	return nil
}
