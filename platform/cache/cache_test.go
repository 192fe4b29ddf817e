package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"nashcrm_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewWithClient(client, logger.New("development")), mr
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Total int `json:"total"`
	}

	if err := store.Set(ctx, "reports:funnel", payload{Total: 42}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	if err := store.Get(ctx, "reports:funnel", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Total != 42 {
		t.Errorf("got total %d, want 42", got.Total)
	}
}

func TestGetMiss(t *testing.T) {
	store, _ := newTestStore(t)

	var dest int
	err := store.Get(context.Background(), "absent", &dest)
	if !errors.Is(err, ErrMiss) {
		t.Errorf("Get absent key = %v, want ErrMiss", err)
	}
}

func TestInvalidateEntityClearsRegisteredAndPatternKeys(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{KeyFunnelReport, KeySummaryReport, "reports:funnel:mgr:7", "other:key"} {
		if err := store.Set(ctx, key, 1, time.Minute); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	store.InvalidateEntity(ctx, EntityLead)

	for _, key := range []string{KeyFunnelReport, KeySummaryReport, "reports:funnel:mgr:7"} {
		if mr.Exists(key) {
			t.Errorf("key %s still present after invalidation", key)
		}
	}
	if !mr.Exists("other:key") {
		t.Error("unrelated key was deleted")
	}
}

func TestDeletePatternDegradesGracefully(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	// Store is disconnected: pattern deletion must be a silent no-op.
	store.DeletePattern(context.Background(), "reports:*")
}
