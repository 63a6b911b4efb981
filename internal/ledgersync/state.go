package ledgersync

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSyncing Status = "syncing"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	StatusManual  Status = "manual"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusSynced, StatusFailed, StatusSkipped, StatusManual:
		return true
	}
	return false
}

// State is a customer's relationship to its ledger contact. Each variant
// carries only the data that is meaningful for it.
type State interface {
	Status() Status
	// Contact is the linked ledger contact id, nil when unlinked.
	Contact() *string
	Attempts() int
}

type Pending struct {
	ContactID *string
}

// Syncing marks an attempt in flight; it holds what the attempt started from.
type Syncing struct {
	ContactID *string
	Tries     int
}

type Synced struct {
	ContactID string
}

type Failed struct {
	Message   string
	Tries     int
	ContactID *string
}

// Skipped records that the ledger was not connected when a sync was due.
type Skipped struct {
	ContactID *string
	Tries     int
}

// Manual is a link forced by an administrator.
type Manual struct {
	ContactID string
}

func (Pending) Status() Status { return StatusPending }
func (Syncing) Status() Status { return StatusSyncing }
func (Synced) Status() Status  { return StatusSynced }
func (Failed) Status() Status  { return StatusFailed }
func (Skipped) Status() Status { return StatusSkipped }
func (Manual) Status() Status  { return StatusManual }

func (s Pending) Contact() *string { return s.ContactID }
func (s Syncing) Contact() *string { return s.ContactID }
func (s Synced) Contact() *string  { return &s.ContactID }
func (s Failed) Contact() *string  { return s.ContactID }
func (s Skipped) Contact() *string { return s.ContactID }
func (s Manual) Contact() *string  { return &s.ContactID }

func (Pending) Attempts() int   { return 0 }
func (s Syncing) Attempts() int { return s.Tries }
func (Synced) Attempts() int    { return 0 }
func (s Failed) Attempts() int  { return s.Tries }
func (s Skipped) Attempts() int { return s.Tries }
func (Manual) Attempts() int    { return 0 }

// Begin starts an attempt from s.
func Begin(s State) State {
	return Syncing{ContactID: s.Contact(), Tries: s.Attempts()}
}

// Succeed links the customer to contactID and clears the failure history.
func Succeed(contactID string) State {
	return Synced{ContactID: contactID}
}

// Fail records a failed attempt. The contact link survives a failure.
func Fail(s State, message string) State {
	if message == "" {
		message = "unknown error"
	}
	return Failed{Message: message, Tries: s.Attempts() + 1, ContactID: s.Contact()}
}

// Reset re-admits s to the queue with a clean failure history.
func Reset(s State) State {
	return Pending{ContactID: s.Contact()}
}

// Link forces the customer onto contactID regardless of s.
func Link(contactID string) State {
	return Manual{ContactID: contactID}
}

func Unlink() State {
	return Pending{}
}

// Skip applies only to a customer still waiting for its first sync.
func Skip(s State) State {
	if p, ok := s.(Pending); ok {
		return Skipped{ContactID: p.ContactID}
	}
	return s
}

// Record is the flat form of State stored on the customer row.
type Record struct {
	Status          Status     `json:"status"`
	Error           *string    `json:"error"`
	Attempts        int        `json:"attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at"`
	ContactID       *string    `json:"contact_id"`
}

// NewRecord is the state of a freshly registered customer.
func NewRecord() Record {
	return Record{Status: StatusPending}
}

// Decode is the inverse of Encode.
func Decode(r Record) (State, error) {
	return r.State()
}

// State decodes r, rejecting rows that no State can represent.
func (r Record) State() (State, error) {
	switch r.Status {
	case StatusPending:
		return Pending{ContactID: r.ContactID}, nil
	case StatusSyncing:
		return Syncing{ContactID: r.ContactID, Tries: r.Attempts}, nil
	case StatusSynced:
		if r.ContactID == nil || *r.ContactID == "" {
			return nil, fmt.Errorf("synced record without contact")
		}
		return Synced{ContactID: *r.ContactID}, nil
	case StatusFailed:
		if r.Error == nil || *r.Error == "" {
			return nil, fmt.Errorf("failed record without error")
		}
		return Failed{Message: *r.Error, Tries: r.Attempts, ContactID: r.ContactID}, nil
	case StatusSkipped:
		return Skipped{ContactID: r.ContactID, Tries: r.Attempts}, nil
	case StatusManual:
		if r.ContactID == nil || *r.ContactID == "" {
			return nil, fmt.Errorf("manual record without contact")
		}
		return Manual{ContactID: *r.ContactID}, nil
	}
	return nil, fmt.Errorf("unknown sync status %q", r.Status)
}

// Encode flattens s for storage.
func Encode(s State, lastAttemptedAt *time.Time) Record {
	rec := Record{
		Status:          s.Status(),
		Attempts:        s.Attempts(),
		LastAttemptedAt: lastAttemptedAt,
		ContactID:       s.Contact(),
	}
	if f, ok := s.(Failed); ok {
		msg := f.Message
		rec.Error = &msg
	}
	return rec
}
