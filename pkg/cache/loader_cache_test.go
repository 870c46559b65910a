package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoaderCache_Get_miss_then_hit(t *testing.T) {
	loads := atomic.Int32{}
	c := NewLoaderCache[string](10, 0)
	ctx := context.Background()

	load := func(_ context.Context) (string, error) {
		loads.Add(1)

		return "v-a", nil
	}

	v, hit, err := c.Get(ctx, "a", load)
	if err != nil {
		t.Fatal(err)
	}

	if hit {
		t.Error("expected miss")
	}

	if v != "v-a" {
		t.Errorf("got %q", v)
	}

	v, hit, err = c.Get(ctx, "a", load)
	if err != nil {
		t.Fatal(err)
	}

	if !hit {
		t.Error("expected hit")
	}

	if v != "v-a" {
		t.Errorf("got %q", v)
	}

	if loads.Load() != 1 {
		t.Errorf("loads = %d", loads.Load())
	}
}

func TestLoaderCache_Get_singleflight(t *testing.T) {
	loads := atomic.Int32{}
	c := NewLoaderCache[int](10, 0)
	release := make(chan struct{})

	load := func(_ context.Context) (int, error) {
		loads.Add(1)
		<-release

		return 42, nil
	}

	var wg sync.WaitGroup

	results := make([]int, 8)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			v, _, err := c.Get(context.Background(), "k", load)
			if err != nil {
				t.Error(err)
			}

			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, v := range results {
		if v != 42 {
			t.Errorf("results[%d] = %d", i, v)
		}
	}

	if n := loads.Load(); n < 1 || n > int32(len(results)) {
		t.Errorf("loads = %d", n)
	}
}

func TestLoaderCache_Get_error_not_cached(t *testing.T) {
	c := NewLoaderCache[string](10, 0)
	ctx := context.Background()
	boom := errors.New("boom")

	_, _, err := c.Get(ctx, "x", func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	if c.Len() != 0 {
		t.Errorf("failed load should not be cached, len = %d", c.Len())
	}

	v, hit, err := c.Get(ctx, "x", func(context.Context) (string, error) { return "ok", nil })
	if err != nil || hit || v != "ok" {
		t.Errorf("got v=%q hit=%v err=%v", v, hit, err)
	}
}

func TestLoaderCache_Invalidate(t *testing.T) {
	c := NewLoaderCache[string](10, 0)
	ctx := context.Background()

	_, _, _ = c.Get(ctx, "a", func(context.Context) (string, error) { return "1", nil })
	c.Invalidate("a")

	v, hit, _ := c.Get(ctx, "a", func(context.Context) (string, error) { return "2", nil })
	if hit || v != "2" {
		t.Errorf("expected reload after invalidate, got v=%q hit=%v", v, hit)
	}
}
