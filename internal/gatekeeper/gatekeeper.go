// Package gatekeeper regulates concurrent access to the relational store:
// multiple readers run in parallel, a writer gets exclusive access, and
// both are bounded by a timeout so a stuck caller can't starve the rest.
package gatekeeper

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/cartomix/meridian/internal/meridianerr"
)

const (
	// ReadTimeout bounds how long a caller may wait to acquire the read
	// semaphore and run its closure.
	ReadTimeout = 10 * time.Second
	// WriteTimeout bounds how long a caller may wait to acquire the
	// exclusive write lock and run its closure.
	WriteTimeout = 30 * time.Second
	// maxConcurrentReaders bounds how many read closures may run at once.
	maxConcurrentReaders = 8
)

// Gatekeeper is the single actor through which every store access passes.
// It is safe for concurrent use.
type Gatekeeper struct {
	readers      *semaphore.Weighted
	writer       sync.Mutex
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// New constructs a Gatekeeper allowing up to maxConcurrentReaders
// concurrent readers, using the package's default timeouts.
func New() *Gatekeeper {
	return NewWithTimeouts(ReadTimeout, WriteTimeout)
}

// NewWithTimeouts is New with caller-supplied read/write timeouts, for
// deployments that want to tune the gatekeeper's defaults (see
// internal/config's GatekeeperReadTimeoutMs/GatekeeperWriteTimeoutMs).
func NewWithTimeouts(readTimeout, writeTimeout time.Duration) *Gatekeeper {
	return &Gatekeeper{
		readers:      semaphore.NewWeighted(maxConcurrentReaders),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Read runs fn with a shared read slot, failing with meridianerr.Timeout
// if a slot isn't available within the configured read timeout.
func (g *Gatekeeper) Read(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.readTimeout)
	defer cancel()

	if err := g.readers.Acquire(ctx, 1); err != nil {
		return meridianerr.Wrap(meridianerr.Timeout, "gatekeeper: read guard exceeded", err)
	}
	defer g.readers.Release(1)

	return runGuarded(ctx, fn)
}

// Write runs fn with exclusive access, failing with meridianerr.Timeout if
// the exclusive lock isn't acquired within the configured write timeout.
func (g *Gatekeeper) Write(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.writeTimeout)
	defer cancel()

	acquired := make(chan struct{})
	go func() {
		g.writer.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		defer g.writer.Unlock()
	case <-ctx.Done():
		// Release the mutex once the abandoned Lock call gets it.
		go func() {
			<-acquired
			g.writer.Unlock()
		}()
		return meridianerr.Wrap(meridianerr.Timeout, "gatekeeper: write guard exceeded", ctx.Err())
	}

	// Taking every read slot excludes readers while fn runs.
	if err := g.readers.Acquire(ctx, maxConcurrentReaders); err != nil {
		return meridianerr.Wrap(meridianerr.Timeout, "gatekeeper: write guard exceeded", err)
	}
	defer g.readers.Release(maxConcurrentReaders)

	return runGuarded(ctx, fn)
}

// runGuarded runs fn on a blocking worker goroutine and returns its result,
// or a Timeout/Cancelled error if ctx is done first.
func runGuarded(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.Canceled {
			return meridianerr.Wrap(meridianerr.Cancelled, "gatekeeper: guard cancelled", ctx.Err())
		}
		return meridianerr.Wrap(meridianerr.Timeout, "gatekeeper: guard exceeded", ctx.Err())
	}
}
