package routes

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"saferoute/internal/modules/navigation"
	"saferoute/internal/types"
)

func sampleSelection(id types.ID) *Selection {
	return &Selection{
		ID:          id,
		Origin:      origin,
		Destination: destination,
		Candidates: []Candidate{{
			Summary:    "Guadalupe",
			Distance:   "0.3 mi",
			Steps:      []navigation.Step{{End: destination, Instruction: "Head north"}},
			Polyline:   []types.Point{destination},
			Conditions: best,
			Rating:     5.0,
		}},
		CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10 * time.Minute)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if err := store.Save(ctx, sampleSelection("sel-1")); err != nil {
		t.Fatal(err)
	}
	now = now.Add(9 * time.Minute)
	if _, err := store.Get(ctx, "sel-1"); err != nil {
		t.Fatalf("get before expiry: %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := store.Get(ctx, "sel-1"); !errors.Is(err, ErrSelectionNotFound) {
		t.Errorf("get after expiry err = %v, want ErrSelectionNotFound", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	sel := sampleSelection("sel-2")
	if err := store.Save(ctx, sel); err != nil {
		t.Fatal(err)
	}
	sel.Candidates[0].Steps[0].Instruction = "changed after save"

	got, err := store.Get(ctx, "sel-2")
	if err != nil {
		t.Fatal(err)
	}
	got.Candidates[0].Polyline[0] = origin

	again, _ := store.Get(ctx, "sel-2")
	if again.Candidates[0].Steps[0].Instruction != "Head north" || again.Candidates[0].Polyline[0] != destination {
		t.Errorf("stored selection was mutated: %+v", again.Candidates[0])
	}
}

// Requires a running Redis; set SAFEROUTE_REDIS_ADDR to enable.
func TestRedisStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("SAFEROUTE_REDIS_ADDR")
	if addr == "" {
		t.Skip("SAFEROUTE_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	store := NewRedisStore(rdb, time.Minute)
	id := types.ID("test-" + time.Now().Format("150405.000000"))
	defer rdb.Del(ctx, selectionKey(id))

	if err := store.Save(ctx, sampleSelection(id)); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Candidates[0].Conditions != best || got.Candidates[0].Rating != 5.0 {
		t.Errorf("round trip changed candidate: %+v", got.Candidates[0])
	}
	if ttl := rdb.TTL(ctx, selectionKey(id)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v, want (0, 1m]", ttl)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrSelectionNotFound) {
		t.Errorf("missing err = %v, want ErrSelectionNotFound", err)
	}
}
