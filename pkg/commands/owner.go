package commands

import (
	"context"
	"errors"
	"log/slog"
)

// ErrOwnerStopped is returned for work submitted after the owner stopped.
var ErrOwnerStopped = errors.New("workbench owner stopped")

// DefaultQueueSize bounds how many closures may wait for the owner.
const DefaultQueueSize = 64

// Owner serializes every access to a workbench onto the goroutine running
// Run.
type Owner struct {
	set    *Set
	logger *slog.Logger
	queue  chan func()
	done   chan struct{}
}

// NewOwner creates an owner for the workbench behind set. Nothing runs until
// Run is called.
func NewOwner(set *Set) *Owner {
	return &Owner{
		set:    set,
		logger: set.logger,
		queue:  make(chan func(), DefaultQueueSize),
		done:   make(chan struct{}),
	}
}

// Commands returns the command set the owner executes.
func (o *Owner) Commands() *Set {
	return o.set
}

// Run executes submitted closures one at a time until ctx is done.
func (o *Owner) Run(ctx context.Context) error {
	defer close(o.done)
	o.logger.Debug("workbench owner started")
	for {
		select {
		case <-ctx.Done():
			o.logger.Debug("workbench owner stopped")
			return ctx.Err()
		case fn := <-o.queue:
			fn()
		}
	}
}

// Post queues fn without waiting for it to run. Closures posted after the
// owner stopped are dropped.
func (o *Owner) Post(fn func()) {
	select {
	case o.queue <- fn:
	case <-o.done:
		o.logger.Warn("dropping work posted to a stopped workbench owner")
	}
}

// Do runs fn on the owner and waits for it.
func (o *Owner) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	select {
	case o.queue <- func() { result <- fn() }:
	case <-o.done:
		return ErrOwnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-o.done:
		// The closure may still have been dequeued right before stopping.
		select {
		case err := <-result:
			return err
		default:
			return ErrOwnerStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs a command on the owner. CancelRun skips the queue so that it
// reaches a run the owner is busy with.
func (o *Owner) Execute(ctx context.Context, name string, params Params) (any, error) {
	if name == CancelRun {
		return o.set.Execute(ctx, name, params)
	}
	var res any
	err := o.Do(ctx, func() error {
		var err error
		res, err = o.set.Execute(ctx, name, params)
		return err
	})
	return res, err
}

// CanExecute evaluates a command's CanExecute on the owner.
func (o *Owner) CanExecute(ctx context.Context, name string, params Params) bool {
	if name == CancelRun {
		return o.set.CanExecute(name, params)
	}
	var ok bool
	if err := o.Do(ctx, func() error {
		ok = o.set.CanExecute(name, params)
		return nil
	}); err != nil {
		return false
	}
	return ok
}
