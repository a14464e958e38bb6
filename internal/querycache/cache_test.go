package querycache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestCache(staleAfter time.Duration) *Cache {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), staleAfter)
}

func TestKeyStringIsCanonical(t *testing.T) {
	a := NewKey(ResourceStatistics, "period", "week", "a", "1")
	b := NewKey(ResourceStatistics, "a", "1", "period", "week")
	if a.String() != b.String() {
		t.Errorf("expected parameter order not to matter, got %q and %q", a, b)
	}
	if got := NewKey(ResourceSubjects).String(); got != "subjects" {
		t.Errorf("expected bare resource key, got %q", got)
	}
}

func TestFetchCachesUntilInvalidated(t *testing.T) {
	c := newTestCache(time.Minute)
	calls := 0
	fn := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}
	key := NewKey(ResourceSchedule, "date", "2024-06-12")

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), c, key, fn)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if v != 1 {
			t.Fatalf("expected cached value 1, got %d", v)
		}
	}

	c.Invalidate(ResourceStatistics)
	if v, _ := Fetch(context.Background(), c, key, fn); v != 1 {
		t.Fatalf("expected unrelated invalidation to keep the entry, got %d", v)
	}

	c.Invalidate(ResourceSchedule)
	if v, _ := Fetch(context.Background(), c, key, fn); v != 2 {
		t.Fatalf("expected refetch after invalidation, got %d", v)
	}
}

func TestInvalidateMatchesWholeResourceName(t *testing.T) {
	c := newTestCache(time.Minute)
	ctx := context.Background()
	_, _ = Fetch(ctx, c, NewKey("tasks"), func(context.Context) (string, error) { return "t", nil })
	_, _ = Fetch(ctx, c, NewKey("tasks", "subject_id", "2"), func(context.Context) (string, error) { return "t2", nil })
	_, _ = Fetch(ctx, c, NewKey("tasksets"), func(context.Context) (string, error) { return "ts", nil })

	c.Invalidate("tasks")
	if c.Len() != 1 {
		t.Fatalf("expected only the unrelated entry to remain, got %d entries", c.Len())
	}
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	c := newTestCache(time.Minute)
	key := NewKey(ResourceSubjects)
	boom := errors.New("boom")

	if _, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) { return "", boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	v, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Fatalf("expected retry to succeed, got %q, %v", v, err)
	}
}

func TestFetchExpiresAfterStaleWindow(t *testing.T) {
	c := newTestCache(20 * time.Millisecond)
	key := NewKey(ResourceSubjects)
	calls := 0
	fn := func(context.Context) (int, error) { calls++; return calls, nil }

	_, _ = Fetch(context.Background(), c, key, fn)
	time.Sleep(60 * time.Millisecond)
	if v, _ := Fetch(context.Background(), c, key, fn); v != 2 {
		t.Fatalf("expected stale entry to be refetched, got %d", v)
	}
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	c := newTestCache(time.Minute)
	key := NewKey(ResourceSchedule, "date", "2024-06-12")

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "events", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := Fetch(context.Background(), c, key, fn); err != nil || v != "events" {
				t.Errorf("unexpected result %q, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected a single upstream call, got %d", n)
	}
}

func TestFetchDropsResultInvalidatedMidFlight(t *testing.T) {
	c := newTestCache(time.Minute)
	key := NewKey(ResourceSchedule, "date", "2024-06-12")

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string)
	go func() {
		v, _ := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "before-generation", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate(ResourceSchedule)
	close(release)
	if v := <-done; v != "before-generation" {
		t.Fatalf("expected the in-flight caller to get its own result, got %q", v)
	}

	v, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		return "after-generation", nil
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if v != "after-generation" {
		t.Fatalf("expected a fresh fetch after invalidation, got %q", v)
	}
}

func TestFetchAfterInvalidateDoesNotJoinOlderFetch(t *testing.T) {
	c := newTestCache(time.Minute)
	key := NewKey(ResourceSchedule, "date", "2024-06-12")

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _ = Fetch(context.Background(), c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
	}()

	<-started
	c.Invalidate(ResourceSchedule)
	v, err := Fetch(context.Background(), c, key, func(context.Context) (string, error) {
		return "new", nil
	})
	if err != nil || v != "new" {
		t.Fatalf("expected a new upstream call, got %q, %v", v, err)
	}
}

func TestFetchSurvivesFirstCallerCancel(t *testing.T) {
	c := newTestCache(time.Minute)
	key := NewKey(ResourceSchedule, "date", "2024-06-12")

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (string, error) {
		select {
		case <-started:
		default:
			close(started)
		}
		select {
		case <-release:
			return "events", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := Fetch(ctx, c, key, fn)
		first <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		v, err := Fetch(context.Background(), c, key, fn)
		if err != nil {
			t.Errorf("expected the second caller to succeed, got %v", err)
		}
		second <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to see context.Canceled, got %v", err)
	}
	close(release)
	if v := <-second; v != "events" {
		t.Fatalf("expected shared result, got %q", v)
	}
}
