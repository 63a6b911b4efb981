package email

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"suki-be/internal/logger"
	"suki-be/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 200
)

type Service interface {
	ListTemplates(ctx context.Context) ([]*Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error)
	UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateUpdate) (*Template, error)
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	// SendTemplateEmail renders the template for the customer. With a
	// scheduledFor it only queues the email; otherwise it sends now and
	// logs the outcome. Provider failures end up on the returned log.
	SendTemplateEmail(ctx context.Context, customerID, templateID uuid.UUID, scheduledFor *time.Time) (*Log, error)
	CheckRateLimit(ctx context.Context, count int) (RateLimit, error)
	FlushDue(ctx context.Context) (Summary, error)
	ListLogs(ctx context.Context, customerID *uuid.UUID, limit int) ([]*Log, error)
}

// Recorder observes send outcomes.
type Recorder interface {
	ObserveEmail(result string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveEmail(string) {}

type Options struct {
	DailyLimit  int
	Workers     int
	BatchSize   int
	ItemTimeout time.Duration
	// ClaimLease is how long a claimed log may stay in sending before a
	// later flush claims it again.
	ClaimLease time.Duration
	// Location decides where a day starts for the daily limit.
	Location *time.Location
	Now      func() time.Time
}

func (o *Options) defaults() {
	if o.DailyLimit <= 0 {
		o.DailyLimit = 100
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 20 * time.Second
	}
	if o.ClaimLease <= 0 {
		o.ClaimLease = 15 * time.Minute
	}
	if o.Location == nil {
		o.Location = ManilaLocation()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ManilaLocation is the business timezone, with a fixed +08:00 fallback
// when tzdata is unavailable.
func ManilaLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		return time.FixedZone("PHT", 8*60*60)
	}
	return loc
}

type service struct {
	repo   Repository
	sender Sender
	opts   Options
	rec    Recorder
}

func NewService(repo Repository, sender Sender, opts Options, rec Recorder) Service {
	opts.defaults()
	if rec == nil {
		rec = nopRecorder{}
	}
	return &service{repo: repo, sender: sender, opts: opts, rec: rec}
}

func (s *service) ListTemplates(ctx context.Context) ([]*Template, error) {
	return s.repo.ListTemplates(ctx)
}

func (s *service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.repo.GetTemplate(ctx, id)
}

func (s *service) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Subject = strings.TrimSpace(in.Subject)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validateTemplate(in.Subject, in.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	t := &Template{
		ID:      uuid.New(),
		Name:    in.Name,
		Subject: in.Subject,
		Body:    in.Body,
	}
	if err := s.repo.CreateTemplate(ctx, t); err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("email template created",
		zap.String("service", "Email"),
		zap.String("template_id", t.ID.String()),
	)
	return t, nil
}

func (s *service) UpdateTemplate(ctx context.Context, id uuid.UUID, in TemplateUpdate) (*Template, error) {
	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		in.Name = &v
	}
	if in.Subject != nil {
		v := strings.TrimSpace(*in.Subject)
		in.Subject = &v
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	if in.Subject != nil || in.Body != nil {
		cur, err := s.repo.GetTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		subject, body := cur.Subject, cur.Body
		if in.Subject != nil {
			subject = *in.Subject
		}
		if in.Body != nil {
			body = *in.Body
		}
		if err := validateTemplate(subject, body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
		}
	}

	return s.repo.UpdateTemplate(ctx, id, in)
}

func (s *service) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteTemplate(ctx, id)
}

func (s *service) SendTemplateEmail(ctx context.Context, customerID, templateID uuid.UUID, scheduledFor *time.Time) (*Log, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Email"),
		zap.String("method", "SendTemplateEmail"),
		zap.String("customer_id", customerID.String()),
		zap.String("template_id", templateID.String()),
	)

	tpl, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	rcpt, err := s.repo.GetRecipient(ctx, customerID)
	if err != nil {
		return nil, err
	}

	subject, body, err := render(tpl, rcpt)
	if err != nil {
		log.Warn("template render failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	entry := &Log{
		ID:         uuid.New(),
		CustomerID: customerID,
		TemplateID: &tpl.ID,
		Recipient:  rcpt.Email,
		Subject:    subject,
		Body:       body,
	}

	if scheduledFor != nil && scheduledFor.After(s.opts.Now()) {
		at := scheduledFor.UTC()
		entry.Status = StatusScheduled
		entry.ScheduledFor = &at
		if err := s.repo.InsertLog(ctx, entry); err != nil {
			return nil, err
		}
		log.Info("email scheduled", zap.Time("scheduled_for", at))
		return entry, nil
	}

	if !s.sender.IsConfigured() {
		return nil, ErrNotConfigured
	}

	limit, err := s.CheckRateLimit(ctx, 1)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		log.Warn("daily email limit reached", zap.Int("limit", limit.Limit))
		return nil, ErrDailyLimitReached
	}

	s.deliver(ctx, entry)

	wctx, cancel := context.WithTimeout(logger.Detach(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.InsertLog(wctx, entry); err != nil {
		return nil, err
	}
	log.Info("email processed", zap.String("status", string(entry.Status)))
	return entry, nil
}

// deliver sends the message and records the outcome on entry.
func (s *service) deliver(ctx context.Context, entry *Log) {
	providerID, err := s.sender.Send(ctx, Message{
		To:      entry.Recipient,
		Subject: entry.Subject,
		Body:    entry.Body,
	})
	if err != nil {
		msg := sendFailure(err)
		entry.Status = StatusFailed
		entry.Error = &msg
		s.rec.ObserveEmail(string(StatusFailed))
		return
	}

	now := s.opts.Now().UTC()
	entry.Status = StatusSent
	entry.SentAt = &now
	entry.Error = nil
	if providerID != "" {
		entry.ProviderID = &providerID
	}
	s.rec.ObserveEmail(string(StatusSent))
}

func sendFailure(err error) string {
	var se *SendError
	if errors.As(err, &se) {
		return se.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "email provider timed out"
	}
	return err.Error()
}

func (s *service) CheckRateLimit(ctx context.Context, count int) (RateLimit, error) {
	if count <= 0 {
		count = 1
	}

	now := s.opts.Now().In(s.opts.Location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.opts.Location)

	sent, err := s.repo.CountSentSince(ctx, dayStart)
	if err != nil {
		return RateLimit{}, err
	}

	remaining := max(s.opts.DailyLimit-sent, 0)
	return RateLimit{
		Allowed:   remaining >= count,
		Remaining: remaining,
		Limit:     s.opts.DailyLimit,
	}, nil
}

func (s *service) FlushDue(ctx context.Context) (Summary, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Email"),
		zap.String("method", "FlushDue"),
	)

	if !s.sender.IsConfigured() {
		log.Warn("email provider not configured, flush skipped")
		return Summary{}, nil
	}

	limit, err := s.CheckRateLimit(ctx, 1)
	if err != nil {
		return Summary{}, err
	}
	batch := min(s.opts.BatchSize, limit.Remaining)
	if batch == 0 {
		log.Info("daily email limit reached, flush deferred")
		return Summary{}, nil
	}

	due, err := s.repo.ClaimDue(ctx, s.opts.Now().UTC(), s.opts.ClaimLease, batch)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu  sync.Mutex
		sum Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for _, entry := range due {
		entry := entry
		g.Go(func() error {
			status := s.flushOne(gctx, entry)

			mu.Lock()
			defer mu.Unlock()
			sum.Processed++
			if status == StatusSent {
				sum.Sent++
			} else {
				sum.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info("flush finished",
		zap.Int("processed", sum.Processed),
		zap.Int("sent", sum.Sent),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}

// flushOne sends one claimed log. It never returns an error so one bad item
// cannot stop the pass.
func (s *service) flushOne(ctx context.Context, entry *Log) (status Status) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Email"),
		zap.String("log_id", entry.ID.String()),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while sending email", zap.Any("panic", r))
			msg := "internal error while sending"
			status = StatusFailed
			s.markResult(ctx, entry.ID, StatusFailed, nil, &msg)
		}
	}()

	ictx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	s.deliver(ictx, entry)
	s.markResult(ctx, entry.ID, entry.Status, entry.ProviderID, entry.Error)
	return entry.Status
}

func (s *service) markResult(ctx context.Context, id uuid.UUID, status Status, providerID, errMsg *string) {
	wctx, cancel := context.WithTimeout(logger.Detach(ctx), 5*time.Second)
	defer cancel()
	if err := s.repo.MarkResult(wctx, id, status, providerID, errMsg); err != nil {
		logger.FromCtx(ctx).Error("could not record email result",
			zap.String("log_id", id.String()),
			zap.Error(err),
		)
	}
}

func (s *service) ListLogs(ctx context.Context, customerID *uuid.UUID, limit int) ([]*Log, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)
	return s.repo.ListLogs(ctx, customerID, limit)
}
