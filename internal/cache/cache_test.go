package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/zipweather/zip-weather-service/internal/models"
)

// TestInMemoryCache_GetSet verifies that Set stores values and Get retrieves
// them correctly.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(10, time.Minute)

	val := models.WeatherResult{CurrentTemp: 20.0, MinTemp: 15.0, MaxTemp: 25.0, ExtendedForecast: "Sunny"}
	if err := c.Set(ctx, "10001_US", val); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "10001_US")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if got != val {
		t.Errorf("Get() = %+v, want %+v", got, val)
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false for an
// unknown key.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	c := NewInMemoryCache(10, time.Minute)

	_, ok, err := c.Get(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that entries expire after the TTL
// and are removed on access.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(10, 10*time.Millisecond)

	if err := c.Set(ctx, "10001", models.WeatherResult{CurrentTemp: 20}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	_, ok, err := c.Get(ctx, "10001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expired entry removed", c.Len())
	}
}

// TestInMemoryCache_Set_Overwrite verifies that writing an existing key
// replaces the value without growing the cache.
func TestInMemoryCache_Set_Overwrite(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(10, time.Minute)

	_ = c.Set(ctx, "10001", models.WeatherResult{CurrentTemp: 20})
	_ = c.Set(ctx, "10001", models.WeatherResult{CurrentTemp: 22})

	got, ok, _ := c.Get(ctx, "10001")
	if !ok || got.CurrentTemp != 22 {
		t.Errorf("Get() = %+v, ok=%v, want overwritten value 22", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

// TestInMemoryCache_CapacityEviction verifies that inserting more distinct
// keys than the maximum evicts older entries and the entry count never
// exceeds the configured capacity.
func TestInMemoryCache_CapacityEviction(t *testing.T) {
	ctx := context.Background()
	const maxEntries = 5
	c := NewInMemoryCache(maxEntries, time.Minute)

	for i := 0; i < 20; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := c.Set(ctx, key, models.WeatherResult{CurrentTemp: float64(i)}); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
		if c.Len() > maxEntries {
			t.Fatalf("Len() = %d after %d inserts, must never exceed %d", c.Len(), i+1, maxEntries)
		}
	}

	// The newest entry must survive; the oldest must be gone.
	if _, ok, _ := c.Get(ctx, "key-19"); !ok {
		t.Error("newest entry evicted, want present")
	}
	if _, ok, _ := c.Get(ctx, "key-0"); ok {
		t.Error("oldest entry still present, want evicted")
	}
}

// TestInMemoryCache_ConcurrentAccess verifies that concurrent get/put on
// overlapping keys does not corrupt state.
func TestInMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d", j%20)
				_ = c.Set(ctx, key, models.WeatherResult{CurrentTemp: float64(i)})
				_, _, _ = c.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d, want <= 50", c.Len())
	}
}
