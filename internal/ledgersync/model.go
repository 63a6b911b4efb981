package ledgersync

import (
	"time"

	"suki-be/internal/ledger"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionMatch  Action = "match"
)

func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionMatch
}

// Outcome is the result of one sync attempt. Expected ledger failures are
// reported here rather than as an error.
type Outcome struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Success    bool      `json:"success"`
	Status     Status    `json:"status"`
	ContactID  *string   `json:"contact_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	// Retryable is false when repeating the attempt unchanged cannot succeed.
	Retryable bool `json:"retryable,omitempty"`
	// Superseded is set when an administrator overrode the state while the
	// attempt was in flight; the attempt's result was discarded.
	Superseded bool `json:"superseded,omitempty"`

	cause error
}

// Summary tallies one queue pass.
type Summary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Profile is the customer data a ledger contact is built from.
type Profile struct {
	CustomerID uuid.UUID
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    *ledger.PostalAddress
}

func (p Profile) Identity() ledger.Identity {
	return ledger.Identity{Email: p.Email, FirstName: p.FirstName, LastName: p.LastName}
}

func (p Profile) ContactData() ledger.ContactData {
	return ledger.ContactData{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
	}
}

type QueueFilter struct {
	RetryCeiling int
	Lease        time.Duration
	Limit        int
}

type Options struct {
	RetryCeiling int
	Workers      int
	ItemTimeout  time.Duration
	BatchSize    int
	Lease        time.Duration
	QueueAction  Action
}

func (o Options) withDefaults() Options {
	if o.RetryCeiling <= 0 {
		o.RetryCeiling = 5
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 20 * time.Second
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.Lease <= 0 {
		o.Lease = 5 * time.Minute
	}
	if !o.QueueAction.Valid() {
		o.QueueAction = ActionMatch
	}
	return o
}

// Recorder receives sync telemetry.
type Recorder interface {
	ObserveAttempt(action, result string)
	ObserveQueuePass(d time.Duration)
	ObserveQueueItem(result string)
	ObserveDispatchDropped()
}

type nopRecorder struct{}

func (nopRecorder) ObserveAttempt(string, string)  {}
func (nopRecorder) ObserveQueuePass(time.Duration) {}
func (nopRecorder) ObserveQueueItem(string)        {}
func (nopRecorder) ObserveDispatchDropped()        {}
