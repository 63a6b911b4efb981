package ledgersync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"suki-be/internal/apperror"
	"suki-be/internal/ledger"
	"suki-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Service drives each customer's ledger sync state.
type Service interface {
	TriggerSync(ctx context.Context, customerID uuid.UUID, action Action) (*Outcome, error)
	SyncProfile(ctx context.Context, customerID uuid.UUID) (*Outcome, error)
	ResetSyncStatus(ctx context.Context, customerID uuid.UUID) (State, error)
	LinkContact(ctx context.Context, customerID uuid.UUID, contactID string) (State, error)
	UnlinkContact(ctx context.Context, customerID uuid.UUID) (State, error)

	ProcessQueue(ctx context.Context) (Summary, error)
	SyncNewCustomer(ctx context.Context, customerID uuid.UUID, isReturning bool)

	ListInvoices(ctx context.Context, customerID uuid.UUID, filter ledger.InvoiceFilter, page int) (*ledger.InvoicePage, error)
}

type service struct {
	repo   Repository
	ledger ledger.Client
	opts   Options
	rec    Recorder
}

const swapRetries = 3

func NewService(repo Repository, client ledger.Client, opts Options, rec Recorder) Service {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &service{repo: repo, ledger: client, opts: opts.withDefaults(), rec: rec}
}

func (s *service) TriggerSync(ctx context.Context, customerID uuid.UUID, action Action) (*Outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "LedgerSync"),
		zap.String("method", "TriggerSync"),
		zap.String("customer_id", customerID.String()),
		zap.String("action", string(action)),
	)

	if !action.Valid() {
		return nil, ErrInvalidAction
	}
	if !s.ledger.IsConnected(ctx) {
		log.Info("ledger not connected")
		return nil, ErrNotConnected
	}

	out, err := s.attempt(ctx, customerID, action)
	if err != nil {
		log.Warn("sync attempt rejected", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// attempt runs one claimed sync for customerID. Ledger failures are
// recorded on the customer and reported in the Outcome.
func (s *service) attempt(ctx context.Context, customerID uuid.UUID, action Action) (*Outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "LedgerSync"),
		zap.String("customer_id", customerID.String()),
		zap.String("action", string(action)),
	)

	claimed, err := s.repo.Claim(ctx, customerID, s.opts.Lease)
	if err != nil {
		return nil, err
	}
	from := Begin(current(claimed))

	profile, err := s.repo.GetProfile(ctx, customerID)
	if err != nil {
		s.finalize(ctx, customerID, Fail(from, "could not load customer profile"), claimed.LastAttemptedAt)
		return nil, apperror.Internal("load customer profile", err)
	}

	ref, err := s.resolveContact(ctx, profile, action)
	if err == nil && ref.ID == "" {
		err = &ledger.Error{Kind: ledger.KindServer, Message: "missing contact id"}
	}

	var next State
	if err != nil {
		next = Fail(from, describe(err))
		s.rec.ObserveAttempt(string(action), "failed")
		log.Warn("sync attempt failed", zap.Error(err))
	} else {
		next = Succeed(ref.ID)
		s.rec.ObserveAttempt(string(action), "synced")
		log.Info("customer synced", zap.String("contact_id", ref.ID))
	}

	applied := s.finalize(ctx, customerID, next, claimed.LastAttemptedAt)
	return attemptOutcome(customerID, next, applied, err), nil
}

func (s *service) resolveContact(ctx context.Context, p *Profile, action Action) (*ledger.ContactRef, error) {
	ref, err := s.ledger.FindContact(ctx, p.Identity())
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}
	if action != ActionCreate {
		return nil, errNoMatch
	}
	return s.ledger.CreateContact(ctx, p.ContactData())
}

// finalize writes next if the claim still holds. The write is detached from
// ctx so an attempt that timed out still records its failure.
func (s *service) finalize(ctx context.Context, customerID uuid.UUID, next State, at *time.Time) bool {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	applied, err := s.repo.Finalize(wctx, customerID, Encode(next, at))
	if err != nil {
		logger.FromCtx(ctx).Error("failed to store sync result",
			zap.String("customer_id", customerID.String()),
			zap.String("status", string(next.Status())),
			zap.Error(err),
		)
		return false
	}
	return applied
}

func (s *service) SyncProfile(ctx context.Context, customerID uuid.UUID) (*Outcome, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "LedgerSync"),
		zap.String("method", "SyncProfile"),
		zap.String("customer_id", customerID.String()),
	)

	rec, err := s.repo.GetRecord(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if rec.ContactID == nil {
		return nil, ErrNotLinked
	}
	if !s.ledger.IsConnected(ctx) {
		return nil, ErrNotConnected
	}

	claimed, err := s.repo.Claim(ctx, customerID, s.opts.Lease)
	if err != nil {
		return nil, err
	}
	from := Begin(current(claimed))
	if from.Contact() == nil {
		// unlinked between the read and the claim
		s.finalize(ctx, customerID, Reset(from), claimed.LastAttemptedAt)
		return nil, ErrNotLinked
	}

	profile, err := s.repo.GetProfile(ctx, customerID)
	if err != nil {
		s.finalize(ctx, customerID, Fail(from, "could not load customer profile"), claimed.LastAttemptedAt)
		return nil, apperror.Internal("load customer profile", err)
	}

	contactID := *from.Contact()
	var next State
	err = s.ledger.UpdateContact(ctx, ledger.ContactRef{ID: contactID}, profile.ContactData())
	if err != nil {
		next = Fail(from, describe(err))
		s.rec.ObserveAttempt("profile", "failed")
		log.Warn("profile push failed", zap.Error(err))
	} else {
		next = Succeed(contactID)
		s.rec.ObserveAttempt("profile", "synced")
		log.Info("profile pushed", zap.String("contact_id", contactID))
	}

	applied := s.finalize(ctx, customerID, next, claimed.LastAttemptedAt)
	return attemptOutcome(customerID, next, applied, err), nil
}

func (s *service) ResetSyncStatus(ctx context.Context, customerID uuid.UUID) (State, error) {
	st, err := s.transition(ctx, customerID, Reset)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("sync status reset",
		zap.String("service", "LedgerSync"),
		zap.String("customer_id", customerID.String()),
	)
	return st, nil
}

func (s *service) LinkContact(ctx context.Context, customerID uuid.UUID, contactID string) (State, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, ErrInvalidContactID
	}

	st, err := s.overwrite(ctx, customerID, Link(contactID))
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("contact linked manually",
		zap.String("service", "LedgerSync"),
		zap.String("customer_id", customerID.String()),
		zap.String("contact_id", contactID),
	)
	return st, nil
}

func (s *service) UnlinkContact(ctx context.Context, customerID uuid.UUID) (State, error) {
	st, err := s.overwrite(ctx, customerID, Unlink())
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("contact unlinked",
		zap.String("service", "LedgerSync"),
		zap.String("customer_id", customerID.String()),
	)
	return st, nil
}

// overwrite stores a state that does not depend on the current one.
func (s *service) overwrite(ctx context.Context, customerID uuid.UUID, next State) (State, error) {
	rec, err := s.repo.Overwrite(ctx, customerID, Encode(next, nil))
	if err != nil {
		return nil, err
	}
	return Decode(*rec)
}

// transition applies fn to the stored state, retrying when the row changes
// between the read and the write.
func (s *service) transition(ctx context.Context, customerID uuid.UUID, fn func(State) State) (State, error) {
	for i := 0; i < swapRetries; i++ {
		rec, err := s.repo.GetRecord(ctx, customerID)
		if err != nil {
			return nil, err
		}

		next := fn(current(rec))
		ok, err := s.repo.Swap(ctx, customerID, *rec, Encode(next, rec.LastAttemptedAt))
		if err != nil {
			return nil, err
		}
		if ok {
			return next, nil
		}
	}

	logger.FromCtx(ctx).Warn("sync state kept changing, transition abandoned",
		zap.String("service", "LedgerSync"),
		zap.String("customer_id", customerID.String()),
	)
	return nil, ErrSyncInProgress
}

func (s *service) ProcessQueue(ctx context.Context) (Summary, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "LedgerSync"),
		zap.String("method", "ProcessQueue"),
	)

	start := time.Now()
	defer func() { s.rec.ObserveQueuePass(time.Since(start)) }()

	if !s.ledger.IsConnected(ctx) {
		log.Warn("ledger not connected, queue pass skipped")
		return Summary{}, nil
	}

	ids, err := s.repo.SelectQueue(ctx, QueueFilter{
		RetryCeiling: s.opts.RetryCeiling,
		Lease:        s.opts.Lease,
		Limit:        s.opts.BatchSize,
	})
	if err != nil {
		log.Error("queue selection failed", zap.Error(err))
		return Summary{}, err
	}

	var (
		mu      sync.Mutex
		summary Summary
	)
	tally := func(result string) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case "synced":
			summary.Processed++
			summary.Succeeded++
		case "failed":
			summary.Processed++
			summary.Failed++
		default:
			summary.Skipped++
		}
		s.rec.ObserveQueueItem(result)
	}

	var (
		g      errgroup.Group
		halted atomic.Bool
	)
	g.SetLimit(s.opts.Workers)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			if halted.Load() {
				tally("skipped")
				return nil
			}
			result, halt := s.processItem(ctx, id)
			if halt && !halted.Swap(true) {
				log.Warn("ledger rejected credentials, queue pass halted")
			}
			tally(result)
			return nil
		})
	}
	_ = g.Wait()

	log.Info("queue pass finished",
		zap.Int("selected", len(ids)),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Duration("duration", time.Since(start)),
	)
	return summary, nil
}

// processItem runs one queued customer and never lets a failure escape.
// halt is set when the failure would repeat for every remaining customer.
func (s *service) processItem(ctx context.Context, customerID uuid.UUID) (result string, halt bool) {
	log := logger.FromCtx(ctx).With(zap.String("customer_id", customerID.String()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("queue item panicked", zap.Any("panic", r))
			result, halt = "failed", false
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	out, err := s.attempt(itemCtx, customerID, s.opts.QueueAction)
	switch {
	case errors.Is(err, ErrSyncInProgress), errors.Is(err, ErrCustomerNotFound):
		return "skipped", false
	case err != nil:
		log.Error("queue item failed", zap.Error(err))
		return "failed", false
	case out.Superseded:
		return "skipped", false
	case out.Success:
		return "synced", false
	}

	var lerr *ledger.Error
	return "failed", !out.Retryable && errors.As(out.cause, &lerr) && lerr.Kind == ledger.KindAuth
}

func (s *service) SyncNewCustomer(ctx context.Context, customerID uuid.UUID, isReturning bool) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "LedgerSync"),
		zap.String("method", "SyncNewCustomer"),
		zap.String("customer_id", customerID.String()),
		zap.Bool("returning", isReturning),
	)

	if !s.ledger.IsConnected(ctx) {
		st, err := s.transition(ctx, customerID, Skip)
		if err != nil {
			log.Error("failed to mark sync skipped", zap.Error(err))
			return
		}
		log.Info("ledger not connected, sync skipped", zap.String("status", string(st.Status())))
		return
	}

	if !isReturning {
		log.Debug("new customer left pending for the queue")
		return
	}

	out, err := s.attempt(ctx, customerID, ActionMatch)
	if err != nil {
		log.Warn("registration sync not attempted", zap.Error(err))
		return
	}
	log.Info("registration sync finished",
		zap.Bool("success", out.Success),
		zap.String("status", string(out.Status)),
	)
}

func (s *service) ListInvoices(
	ctx context.Context,
	customerID uuid.UUID,
	filter ledger.InvoiceFilter,
	page int,
) (*ledger.InvoicePage, error) {
	rec, err := s.repo.GetRecord(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if rec.ContactID == nil {
		return nil, ErrNotLinked
	}
	if !s.ledger.IsConnected(ctx) {
		return nil, ErrNotConnected
	}

	res, err := s.ledger.ListInvoices(ctx, ledger.ContactRef{ID: *rec.ContactID}, filter, page)
	if err != nil {
		return nil, apperror.External("list invoices", err)
	}
	return res, nil
}

func outcome(customerID uuid.UUID, st State, applied bool) *Outcome {
	out := &Outcome{
		CustomerID: customerID,
		Success:    st.Status() == StatusSynced,
		Status:     st.Status(),
		ContactID:  st.Contact(),
		Superseded: !applied,
	}
	if f, ok := st.(Failed); ok {
		out.Error = f.Message
	}
	return out
}

func attemptOutcome(customerID uuid.UUID, st State, applied bool, cause error) *Outcome {
	out := outcome(customerID, st, applied)
	if cause != nil {
		out.cause = cause
		out.Retryable = retryable(cause)
	}
	return out
}

// current decodes rec. A row no State can represent is treated as pending
// with whatever link it carries.
func current(rec *Record) State {
	st, err := Decode(*rec)
	if err == nil {
		return st
	}
	contact := rec.ContactID
	if contact != nil && *contact == "" {
		contact = nil
	}
	return Pending{ContactID: contact}
}

func retryable(err error) bool {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return lerr.Retryable()
	}
	return true
}

func describe(err error) string {
	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		return lerr.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "ledger request timed out"
	}
	return err.Error()
}
