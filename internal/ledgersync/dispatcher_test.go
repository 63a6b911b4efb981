package ledgersync

import (
	"context"
	"testing"
	"time"

	"suki-be/internal/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	Service
	mock.Mock
}

func (m *MockService) SyncNewCustomer(ctx context.Context, id uuid.UUID, isReturning bool) {
	m.Called(ctx, id, isReturning)
}

func (m *MockService) SyncProfile(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}

func TestDispatcher_RunsJobs(t *testing.T) {
	svc := new(MockService)
	newID, linkedID := uuid.New(), uuid.New()

	svc.On("SyncNewCustomer", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx != nil
	}), newID, true).Return()
	svc.On("SyncProfile", mock.Anything, linkedID).Return(nil, ErrNotLinked)

	d := NewDispatcher(svc, 4, 2, nil)
	d.Start(context.Background())

	assert.True(t, d.Submit(Job{Kind: JobNewCustomer, CustomerID: newID, Returning: true, RequestID: "req-1"}))
	assert.True(t, d.Submit(Job{Kind: JobProfileUpdate, CustomerID: linkedID}))

	d.Stop()
	svc.AssertExpectations(t)
}

func TestDispatcher_CarriesRequestID(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	got := make(chan string, 1)

	svc.On("SyncNewCustomer", mock.Anything, id, false).Run(func(args mock.Arguments) {
		got <- logger.RequestIDFrom(args.Get(0).(context.Context))
	}).Return()

	d := NewDispatcher(svc, 1, 1, nil)
	d.Start(context.Background())
	d.Submit(Job{Kind: JobNewCustomer, CustomerID: id, RequestID: "req-42"})
	d.Stop()

	select {
	case reqID := <-got:
		assert.Equal(t, "req-42", reqID)
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
}

func TestDispatcher_FullBufferDrops(t *testing.T) {
	svc := new(MockService)
	rec := newSpyRecorder()

	// no workers started, so the buffer never drains
	d := NewDispatcher(svc, 1, 1, rec)

	assert.True(t, d.Submit(Job{Kind: JobNewCustomer, CustomerID: uuid.New()}))
	assert.False(t, d.Submit(Job{Kind: JobNewCustomer, CustomerID: uuid.New()}))
	assert.Equal(t, 1, rec.dropped)
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	svc := new(MockService)
	rec := newSpyRecorder()
	d := NewDispatcher(svc, 2, 1, rec)
	d.Start(context.Background())
	d.Stop()

	assert.False(t, d.Submit(Job{Kind: JobNewCustomer, CustomerID: uuid.New()}))
	assert.Equal(t, 1, rec.dropped)

	// a second Stop is harmless
	d.Stop()
}

func TestDispatcher_PanicContained(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	svc.On("SyncNewCustomer", mock.Anything, id, false).Run(func(mock.Arguments) {
		panic("boom")
	}).Return()

	d := NewDispatcher(svc, 1, 1, nil)
	d.Start(context.Background())
	d.Submit(Job{Kind: JobNewCustomer, CustomerID: id})

	assert.NotPanics(t, d.Stop)
}
