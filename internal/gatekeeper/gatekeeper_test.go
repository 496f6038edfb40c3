package gatekeeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/meridianerr"
)

func TestReadersRunConcurrently(t *testing.T) {
	g := New()
	var concurrent int32
	var maxObserved int32

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			_ = g.Read(context.Background(), func(ctx context.Context) error {
				n := atomic.AddInt32(&concurrent, 1)
				for {
					old := atomic.LoadInt32(&maxObserved)
					if n <= old || atomic.CompareAndSwapInt32(&maxObserved, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&concurrent, -1)
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	if atomic.LoadInt32(&maxObserved) < 2 {
		t.Fatalf("expected readers to overlap, max concurrent was %d", maxObserved)
	}
}

func TestWriteExcludesReaders(t *testing.T) {
	g := New()
	writing := make(chan struct{})
	releaseWriter := make(chan struct{})

	go func() {
		_ = g.Write(context.Background(), func(ctx context.Context) error {
			close(writing)
			<-releaseWriter
			return nil
		})
	}()
	<-writing

	readStarted := make(chan struct{})
	go func() {
		_ = g.Read(context.Background(), func(ctx context.Context) error {
			close(readStarted)
			return nil
		})
	}()

	select {
	case <-readStarted:
		t.Fatal("reader started while writer held exclusive access")
	case <-time.After(30 * time.Millisecond):
	}

	close(releaseWriter)
	select {
	case <-readStarted:
	case <-time.After(time.Second):
		t.Fatal("reader never started after writer released")
	}
}

func TestWriteTimesOutWhenAnotherWriterHoldsLock(t *testing.T) {
	g := New()
	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.Write(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Write(ctx, func(ctx context.Context) error { return nil })
	if !meridianerr.Is(err, meridianerr.Timeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
}

func TestClosureErrorPropagates(t *testing.T) {
	g := New()
	sentinel := meridianerr.New(meridianerr.InvalidData, "boom")
	err := g.Read(context.Background(), func(ctx context.Context) error { return sentinel })
	if err != sentinel {
		t.Fatalf("expected closure error to propagate unwrapped, got %v", err)
	}
}
