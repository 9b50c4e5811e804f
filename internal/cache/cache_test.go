package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be present")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size() = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	time.Sleep(20 * time.Millisecond)
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired() = %d, want 2", n)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("u:1:category", 1)
	c.Set("u:1:month", 2)
	c.Set("u:12:month", 3)

	if n := c.DeletePrefix("u:1:"); n != 2 {
		t.Fatalf("DeletePrefix() = %d, want 2", n)
	}
	if _, ok := c.Get("u:12:month"); !ok {
		t.Error("unrelated key removed")
	}
}

func TestLoading_CachesAndInvalidates(t *testing.T) {
	l := NewLoading[int](10, time.Minute)
	ctx := context.Background()
	var calls int
	load := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v1, _ := l.Get(ctx, "u:1:month", load)
	v2, _ := l.Get(ctx, "u:1:month", load)
	if v1 != 1 || v2 != 1 || calls != 1 {
		t.Fatalf("expected cached value, got %d %d after %d calls", v1, v2, calls)
	}

	l.Invalidate("u:1:")
	v3, _ := l.Get(ctx, "u:1:month", load)
	if v3 != 2 {
		t.Fatalf("expected reload after invalidate, got %d", v3)
	}

	hits, misses := l.Stats()
	if hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d/%d, want 1/2", hits, misses)
	}
}

func TestLoading_ErrorsAreNotCached(t *testing.T) {
	l := NewLoading[int](10, time.Minute)
	boom := errors.New("boom")
	if _, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	v, err := l.Get(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("got %d, %v", v, err)
	}
}

func TestLoading_SharesConcurrentLoads(t *testing.T) {
	l := NewLoading[int](10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := l.Get(context.Background(), "k", load); err != nil || v != 42 {
				t.Errorf("got %d, %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
}

func TestLoading_DisabledWithZeroTTL(t *testing.T) {
	l := NewLoading[int](10, 0)
	var calls int
	for i := 0; i < 3; i++ {
		l.Get(context.Background(), "k", func(context.Context) (int, error) {
			calls++
			return calls, nil
		})
	}
	if calls != 3 {
		t.Errorf("loader called %d times, want 3", calls)
	}
}
