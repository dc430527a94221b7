// README: Redis-backed courier store tests (skipped unless DISPATCH_TEST_REDIS is set).
package courier

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"dispatch/internal/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	addr := os.Getenv("DISPATCH_TEST_REDIS")
	if addr == "" {
		t.Skip("DISPATCH_TEST_REDIS not set; skipping Redis-backed store tests")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	if err := rdb.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush db: %v", err)
	}
	return NewStore(rdb)
}

func TestStore_RegisterKeepsExistingScore(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Register(ctx, "c1"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.SetScore(ctx, "c1", 3.5); err != nil {
		t.Fatalf("set score: %v", err)
	}
	if err := s.Register(ctx, "c1"); err != nil {
		t.Fatalf("re-register: %v", err)
	}

	score, ok, err := s.Score(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("score: %v/%v", err, ok)
	}
	if score != 3.5 {
		t.Fatalf("score = %f, want 3.5 (re-register must not reset)", score)
	}
}

func TestStore_ScoreUnknownCourier(t *testing.T) {
	s := setupTestStore(t)

	_, ok, err := s.Score(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for unknown courier")
	}
}

func TestStore_PositionRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	pt := types.Point{Lng: 2.333, Lat: 48.865}
	at := time.Now()
	if err := s.ReportPosition(ctx, "c1", pt, at); err != nil {
		t.Fatalf("report: %v", err)
	}

	got, gotAt, ok, err := s.Position(ctx, "c1")
	if err != nil || !ok {
		t.Fatalf("position: %v/%v", err, ok)
	}
	// GEO storage quantizes coordinates; allow a small error.
	if math.Abs(got.Lng-pt.Lng) > 0.0001 || math.Abs(got.Lat-pt.Lat) > 0.0001 {
		t.Fatalf("position = %+v, want ~%+v", got, pt)
	}
	if gotAt.Unix() != at.Unix() {
		t.Fatalf("position timestamp = %v, want %v", gotAt, at)
	}

	_, _, ok, err = s.Position(ctx, "ghost")
	if err != nil {
		t.Fatalf("position ghost: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for courier with no position")
	}
}

func TestStore_StatsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx, "c1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", st)
	}

	want := Stats{TotalRating: 12, Deliveries: 3, Average: 4.0}
	if err := s.SaveStats(ctx, "c1", want); err != nil {
		t.Fatalf("save stats: %v", err)
	}
	got, err := s.Stats(ctx, "c1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
}
