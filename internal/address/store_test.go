package address

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memRepo is an in-memory Repository with the same single-default
// constraint as the database index and all-or-nothing mutations.
type memRepo struct {
	mu        sync.Mutex
	delivery  map[uuid.UUID]string
	addresses map[uuid.UUID][]*Address
	clock     time.Time

	// failStep makes the named TxStore method fail.
	failStep string
}

var errInjected = errors.New("injected failure")

func newMemRepo() *memRepo {
	return &memRepo{
		delivery:  map[uuid.UUID]string{},
		addresses: map[uuid.UUID][]*Address{},
		clock:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *memRepo) addCustomer(delivery string) uuid.UUID {
	id := uuid.New()
	r.delivery[id] = delivery
	return id
}

func (r *memRepo) snapshot(customerID uuid.UUID) []*Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.addresses[customerID])
}

func cloneAll(in []*Address) []*Address {
	out := make([]*Address, 0, len(in))
	for _, a := range in {
		c := *a
		out = append(out, &c)
	}
	return out
}

func (r *memRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]*Address, error) {
	return r.snapshot(customerID), nil
}

func (r *memRepo) GetByID(_ context.Context, customerID, addressID uuid.UUID) (*Address, error) {
	for _, a := range r.snapshot(customerID) {
		if a.ID == addressID {
			return a, nil
		}
	}
	return nil, ErrAddressNotFound
}

func (r *memRepo) WithCustomerLock(_ context.Context, customerID uuid.UUID, fn func(TxStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	method, ok := r.delivery[customerID]
	if !ok {
		return ErrCustomerNotFound
	}

	tx := &memTx{repo: r, owner: Owner{CustomerID: customerID, DeliveryMethod: method}, rows: cloneAll(r.addresses[customerID])}
	if err := fn(tx); err != nil {
		return err
	}
	r.addresses[customerID] = tx.rows
	return nil
}

type memTx struct {
	repo  *memRepo
	owner Owner
	rows  []*Address
}

func (t *memTx) fail(step string) bool {
	return t.repo.failStep == step
}

func (t *memTx) now() time.Time {
	t.repo.clock = t.repo.clock.Add(time.Second)
	return t.repo.clock
}

// checkDefault mirrors addresses_one_default_idx.
func (t *memTx) checkDefault() error {
	n := 0
	for _, a := range t.rows {
		if a.IsDefault {
			n++
		}
	}
	if n > 1 {
		return ErrDuplicateDefault
	}
	return nil
}

func (t *memTx) find(id uuid.UUID) int {
	for i, a := range t.rows {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (t *memTx) Owner() Owner { return t.owner }

func (t *memTx) Count(context.Context) (int, error) {
	if t.fail("Count") {
		return 0, errInjected
	}
	return len(t.rows), nil
}

func (t *memTx) List(context.Context) ([]*Address, error) {
	return cloneAll(t.rows), nil
}

func (t *memTx) Get(_ context.Context, id uuid.UUID) (*Address, error) {
	i := t.find(id)
	if i < 0 {
		return nil, ErrAddressNotFound
	}
	c := *t.rows[i]
	return &c, nil
}

func (t *memTx) Insert(_ context.Context, a *Address) error {
	if t.fail("Insert") {
		return errInjected
	}
	a.CustomerID = t.owner.CustomerID
	a.CreatedAt = t.now()
	a.UpdatedAt = a.CreatedAt
	c := *a
	t.rows = append(t.rows, &c)
	return t.checkDefault()
}

func (t *memTx) Update(_ context.Context, a *Address) error {
	if t.fail("Update") {
		return errInjected
	}
	i := t.find(a.ID)
	if i < 0 {
		return ErrAddressNotFound
	}
	a.UpdatedAt = t.now()
	c := *a
	t.rows[i] = &c
	return t.checkDefault()
}

func (t *memTx) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if t.fail("Delete") {
		return false, errInjected
	}
	i := t.find(id)
	if i < 0 {
		return false, ErrAddressNotFound
	}
	wasDefault := t.rows[i].IsDefault
	t.rows = append(t.rows[:i], t.rows[i+1:]...)
	return wasDefault, nil
}

func (t *memTx) ClearDefault(_ context.Context, except *uuid.UUID) error {
	if t.fail("ClearDefault") {
		return errInjected
	}
	for _, a := range t.rows {
		if except != nil && a.ID == *except {
			continue
		}
		a.IsDefault = false
	}
	return nil
}

func (t *memTx) MarkDefault(_ context.Context, id uuid.UUID) error {
	if t.fail("MarkDefault") {
		return errInjected
	}
	i := t.find(id)
	if i < 0 {
		return ErrAddressNotFound
	}
	t.rows[i].IsDefault = true
	return t.checkDefault()
}

func (t *memTx) PromoteOldest(context.Context) (*uuid.UUID, error) {
	if t.fail("PromoteOldest") {
		return nil, errInjected
	}
	if len(t.rows) == 0 {
		return nil, nil
	}
	sorted := append([]*Address(nil), t.rows...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID.String() < sorted[j].ID.String()
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	sorted[0].IsDefault = true
	id := sorted[0].ID
	return &id, t.checkDefault()
}

func (t *memTx) TouchCustomer(context.Context) error {
	if t.fail("TouchCustomer") {
		return errInjected
	}
	return nil
}
