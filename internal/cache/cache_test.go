package cache

import (
	"context"
	"testing"
	"time"

	"github.com/opencomm/shrike/internal/domain"
)

func TestLRUBasicOperations(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", val)
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	val, err = c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get after delete failed: %v", err)
	}
	if val != nil {
		t.Error("expected nil after delete")
	}
}

func TestLRUMiss(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	val, err := c.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Error("expected nil for missing key")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(2)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Set(ctx, "c", []byte("3"), time.Minute)

	// "a" is the oldest and must be evicted.
	val, _ := c.Get(ctx, "a")
	if val != nil {
		t.Error("expected oldest entry to be evicted")
	}

	size, capacity := c.Stats()
	if size != 2 || capacity != 2 {
		t.Errorf("expected size=2 capacity=2, got %d/%d", size, capacity)
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "ephemeral", []byte("x"), -time.Second)

	val, _ := c.Get(ctx, "ephemeral")
	if val != nil {
		t.Error("expected expired entry to be treated as a miss")
	}
}

func TestLRUReputationRoundTrip(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	rep := &domain.ReputationResult{
		Identifier:       domain.NormalizeNumber("+2348001234567"),
		SpamScore:        0.85,
		ReportCount:      42,
		ReportedCategory: "scam",
		Confidence:       0.9,
	}

	if err := c.SetReputation(ctx, "002348001234567", rep, time.Minute); err != nil {
		t.Fatalf("SetReputation failed: %v", err)
	}

	got, err := c.GetReputation(ctx, "002348001234567")
	if err != nil {
		t.Fatalf("GetReputation failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected cached reputation")
	}
	if got.SpamScore != rep.SpamScore || got.ReportCount != rep.ReportCount {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLRUCounterWindow(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		count, err := c.IncrementCounter(ctx, "002012345678", time.Minute)
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if count != i {
			t.Errorf("expected count %d, got %d", i, count)
		}
	}
}

func TestNewFactorySelectsMemory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 5})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	if _, ok := c.(*LRUCache); !ok {
		t.Errorf("expected LRUCache, got %T", c)
	}
}

func TestNewFactoryRejectsUnknownType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unsupported cache type")
	}
}
