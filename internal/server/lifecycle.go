// Package server runs the realm's long-lived components: it starts them in
// registration order and stops them in reverse on a signal, a cancelled
// context or the first component failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the component
// stops or fails; Stop makes a running Start return.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into a Service. A nil StopFn
// is a no-op; a nil StartFn blocks until Stop is called.
type FuncService struct {
	StartFn func() error
	StopFn  func()

	once sync.Once
	done chan struct{}
}

func (f *FuncService) init() { f.once.Do(func() { f.done = make(chan struct{}) }) }

// Start calls StartFn, or waits for Stop when StartFn is nil.
func (f *FuncService) Start() error {
	if f.StartFn != nil {
		return f.StartFn()
	}
	f.init()
	<-f.done
	return nil
}

// Stop calls StopFn and releases a waiting Start.
func (f *FuncService) Stop() {
	if f.StopFn != nil {
		f.StopFn()
	}
	f.init()
	select {
	case <-f.done:
	default:
		close(f.done)
	}
}

type namedService struct {
	name    string
	service Service
}

// Lifecycle owns a set of named services.
type Lifecycle struct {
	logger *zap.Logger

	mu       sync.Mutex
	services []namedService
}

// NewLifecycle creates an empty Lifecycle.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers svc under name. Services start in the order they are added.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.services = append(l.services, namedService{name: name, service: svc})
}

// Run starts every service and blocks until SIGINT or SIGTERM, ctx is
// cancelled, or a service fails.
//
// Postcondition: Every service has been stopped, in reverse order. Returns
// the service failures joined, first failure first, or nil.
func (l *Lifecycle) Run(ctx context.Context) error {
	began := time.Now()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.mu.Lock()
	services := append([]namedService(nil), l.services...)
	l.mu.Unlock()

	failed := make(chan error, len(services))
	var running sync.WaitGroup
	for _, ns := range services {
		running.Add(1)
		go func() {
			defer running.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			since := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Duration("uptime", time.Since(since)),
					zap.Error(err),
				)
				failed <- fmt.Errorf("service %s: %w", ns.name, err)
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(began)),
	)

	var cause error
	select {
	case cause = <-failed:
		l.logger.Error("service error, shutting down", zap.Error(cause))
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("reason", context.Cause(ctx)))
	}

	l.stopAll(services)
	running.Wait()

	close(failed)
	errs := []error{cause}
	for err := range failed {
		errs = append(errs, err)
	}
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(began)))
	return errors.Join(errs...)
}

func (l *Lifecycle) stopAll(services []namedService) {
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		since := time.Now()
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(since)),
		)
	}
}
