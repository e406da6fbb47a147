package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingService runs until stopped and records its stop into order.
type blockingService struct {
	name    string
	started atomic.Bool
	stop    chan struct{}
	order   *stopOrder
}

type stopOrder struct {
	mu    sync.Mutex
	names []string
}

func (o *stopOrder) add(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, name)
}

func newBlocking(name string, order *stopOrder) *blockingService {
	return &blockingService{name: name, stop: make(chan struct{}), order: order}
}

func (b *blockingService) Start() error {
	b.started.Store(true)
	<-b.stop
	return nil
}

func (b *blockingService) Stop() {
	b.order.add(b.name)
	close(b.stop)
}

func waitStarted(t *testing.T, svcs ...*blockingService) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, s := range svcs {
			if !s.started.Load() {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond)
}

func TestLifecycle_StopsInReverseOnCancel(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	order := &stopOrder{}
	store, grpcSvc, feed := newBlocking("store", order), newBlocking("grpc", order), newBlocking("feed", order)
	lc.Add("store", store)
	lc.Add("grpc", grpcSvc)
	lc.Add("feed", feed)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()
	waitStarted(t, store, grpcSvc, feed)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("lifecycle did not shut down in time")
	}
	assert.Equal(t, []string{"feed", "grpc", "store"}, order.names)
}

func TestLifecycle_FailureStopsEverything(t *testing.T) {
	lc := NewLifecycle(zaptest.NewLogger(t))
	order := &stopOrder{}
	healthy := newBlocking("healthy", order)
	boom := errors.New("listen: address in use")
	lc.Add("healthy", healthy)
	lc.Add("broken", &FuncService{StartFn: func() error { return boom }})

	err := lc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service broken")
	assert.Equal(t, []string{"healthy"}, order.names)
}

func TestFuncService(t *testing.T) {
	started, stopped := false, false
	svc := &FuncService{
		StartFn: func() error { started = true; return nil },
		StopFn:  func() { stopped = true },
	}
	assert.NoError(t, svc.Start())
	svc.Stop()
	assert.True(t, started)
	assert.True(t, stopped)
}

func TestFuncService_NilStartWaitsForStop(t *testing.T) {
	svc := &FuncService{}
	done := make(chan error, 1)
	go func() { done <- svc.Start() }()

	select {
	case <-done:
		t.Fatal("Start returned before Stop")
	case <-time.After(20 * time.Millisecond):
	}
	svc.Stop()
	svc.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
