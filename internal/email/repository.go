package email

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	ListTemplates(ctx context.Context) ([]*Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	CreateTemplate(ctx context.Context, t *Template) error
	UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateUpdate) (*Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	GetRecipient(ctx context.Context, customerID uuid.UUID) (*Recipient, error)

	InsertLog(ctx context.Context, l *Log) error
	MarkResult(ctx context.Context, id uuid.UUID, status Status, providerID, errMsg *string) error
	CountSentSince(ctx context.Context, since time.Time) (int, error)
	// ClaimDue moves up to limit due scheduled logs to sending and returns
	// them. Rows claimed by a concurrent pass are skipped; rows left in
	// sending for longer than lease are claimed again.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Log, error)
	ListLogs(ctx context.Context, customerID *uuid.UUID, limit int) ([]*Log, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const (
	templateColumns = `id, name, subject, body, created_at, updated_at`
	logColumns      = `id, customer_id, template_id, recipient, subject, body, status, error, provider_id, scheduled_for, sent_at, created_at`
)

type scanner interface{ Scan(...any) error }

func scanTemplate(row scanner) (*Template, error) {
	var t Template
	if err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanLog(row scanner) (*Log, error) {
	var (
		l          Log
		templateID uuid.NullUUID
	)
	if err := row.Scan(
		&l.ID, &l.CustomerID, &templateID, &l.Recipient, &l.Subject, &l.Body,
		&l.Status, &l.Error, &l.ProviderID, &l.ScheduledFor, &l.SentAt, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	if templateID.Valid {
		l.TemplateID = &templateID.UUID
	}
	return &l, nil
}

func (r *repository) ListTemplates(ctx context.Context) ([]*Template, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Email"),
		zap.String("method", "ListTemplates"),
	)

	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM email_templates ORDER BY name`)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r *repository) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM email_templates WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Email"),
			zap.String("method", "GetTemplate"),
			zap.Error(err),
		)
		return nil, err
	}
	return t, nil
}

func (r *repository) CreateTemplate(ctx context.Context, t *Template) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO email_templates (id, name, subject, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, t.ID, t.Name, t.Subject, t.Body).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert failed",
			zap.String("repo", "Email"),
			zap.String("method", "CreateTemplate"),
			zap.Error(err),
		)
		return mapConstraint(err)
	}
	return nil
}

func (r *repository) UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateUpdate) (*Template, error) {
	const q = `
		UPDATE email_templates
		SET name = COALESCE($2, name),
		    subject = COALESCE($3, subject),
		    body = COALESCE($4, body),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + templateColumns

	t, err := scanTemplate(r.db.QueryRowContext(ctx, q, id, in.Name, in.Subject, in.Body))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("update failed",
			zap.String("repo", "Email"),
			zap.String("method", "UpdateTemplate"),
			zap.Error(err),
		)
		return nil, mapConstraint(err)
	}
	return t, nil
}

func (r *repository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	if err != nil {
		logger.FromCtx(ctx).Error("delete failed",
			zap.String("repo", "Email"),
			zap.String("method", "DeleteTemplate"),
			zap.Error(err),
		)
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func (r *repository) GetRecipient(ctx context.Context, customerID uuid.UUID) (*Recipient, error) {
	rcpt := Recipient{CustomerID: customerID}
	err := r.db.QueryRowContext(ctx,
		`SELECT first_name, last_name, email FROM customers WHERE id = $1`, customerID,
	).Scan(&rcpt.FirstName, &rcpt.LastName, &rcpt.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		logger.FromCtx(ctx).Error("query failed",
			zap.String("repo", "Email"),
			zap.String("method", "GetRecipient"),
			zap.Error(err),
		)
		return nil, err
	}
	return &rcpt, nil
}

func (r *repository) InsertLog(ctx context.Context, l *Log) error {
	var templateID uuid.NullUUID
	if l.TemplateID != nil {
		templateID = uuid.NullUUID{UUID: *l.TemplateID, Valid: true}
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO email_logs
			(id, customer_id, template_id, recipient, subject, body, status, error, provider_id, scheduled_for, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, l.ID, l.CustomerID, templateID, l.Recipient, l.Subject, l.Body,
		l.Status, l.Error, l.ProviderID, l.ScheduledFor, l.SentAt,
	).Scan(&l.CreatedAt)
	if err != nil {
		logger.FromCtx(ctx).Error("insert failed",
			zap.String("repo", "Email"),
			zap.String("method", "InsertLog"),
			zap.String("status", string(l.Status)),
			zap.Error(err),
		)
	}
	return err
}

func (r *repository) MarkResult(ctx context.Context, id uuid.UUID, status Status, providerID, errMsg *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE email_logs
		SET status = $2,
		    provider_id = $3,
		    error = $4,
		    sent_at = CASE WHEN $2 = 'sent' THEN NOW() ELSE sent_at END
		WHERE id = $1
	`, id, status, providerID, errMsg)
	if err != nil {
		logger.FromCtx(ctx).Error("update failed",
			zap.String("repo", "Email"),
			zap.String("method", "MarkResult"),
			zap.String("log_id", id.String()),
			zap.Error(err),
		)
	}
	return err
}

func (r *repository) CountSentSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM email_logs WHERE status = 'sent' AND sent_at >= $1`, since,
	).Scan(&n)
	if err != nil {
		logger.FromCtx(ctx).Error("count failed",
			zap.String("repo", "Email"),
			zap.String("method", "CountSentSince"),
			zap.Error(err),
		)
	}
	return n, err
}

func (r *repository) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Log, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Email"),
		zap.String("method", "ClaimDue"),
	)

	const q = `
		UPDATE email_logs
		SET status = 'sending',
		    claimed_at = $1
		WHERE id IN (
			SELECT id FROM email_logs
			WHERE (status = 'scheduled' AND scheduled_for <= $1)
			   OR (status = 'sending' AND claimed_at < $1 - make_interval(secs => $2))
			ORDER BY scheduled_for
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + logColumns

	rows, err := r.db.QueryContext(ctx, q, now, lease.Seconds(), limit)
	if err != nil {
		log.Error("claim failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, l)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows failed", zap.Error(err))
		return nil, err
	}

	log.Info("claimed due emails", zap.Int("count", len(res)))
	return res, nil
}

func (r *repository) ListLogs(ctx context.Context, customerID *uuid.UUID, limit int) ([]*Log, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Email"),
		zap.String("method", "ListLogs"),
	)

	var filter uuid.NullUUID
	if customerID != nil {
		filter = uuid.NullUUID{UUID: *customerID, Valid: true}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM email_logs
		WHERE ($1::uuid IS NULL OR customer_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2
	`, filter, limit)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var res []*Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
