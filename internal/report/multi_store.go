package report

import (
	"context"
	"errors"
	"sync"
)

// MultiStore saves a run to every store; one failing store does not stop the others
type MultiStore []Store

// Save returns the joined errors of all failing stores
func (m MultiStore) Save(ctx context.Context, run *Run) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Latest keeps the most recent run in memory for the query API
type Latest struct {
	mu  sync.RWMutex
	run *Run
}

// Save replaces the held run
func (l *Latest) Save(_ context.Context, run *Run) error {
	l.mu.Lock()
	l.run = run
	l.mu.Unlock()
	return nil
}

// Get returns the most recent run, or nil before the first one
func (l *Latest) Get() *Run {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.run
}
