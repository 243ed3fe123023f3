package repository

import (
	"context"
	"testing"
	"time"

	"tvagent/internal/types"
)

func TestPurgeOlderThan(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	old1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	old2 := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	records := []types.UsageRecord{
		testRecord("com.app.a", old1, 10),
		testRecord("com.app.a", old2, 20),
		testRecord("com.app.a", cutoff, 30),
		testRecord("com.app.a", recent, 40),
	}
	if err := repo.UpsertBatch(ctx, records); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	deleted, err := repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("PurgeOlderThan failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 rows purged, got %d", deleted)
	}

	// Cutoff day itself survives.
	if _, err := repo.GetForDate(ctx, "com.app.a", cutoff); err != nil {
		t.Errorf("Record on cutoff day should survive purge: %v", err)
	}
	if _, err := repo.GetForDate(ctx, "com.app.a", recent); err != nil {
		t.Errorf("Recent record should survive purge: %v", err)
	}
}

func TestPurgeOlderThanIdempotent(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()

	old := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.Upsert(ctx, testRecord("com.app.a", old, 10)); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	first, err := repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("First purge failed: %v", err)
	}
	if first != 1 {
		t.Errorf("Expected 1 row purged, got %d", first)
	}

	second, err := repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("Second purge failed: %v", err)
	}
	if second != 0 {
		t.Errorf("Second purge with same cutoff should delete nothing, got %d", second)
	}
}

func TestPurgeEmptyStore(t *testing.T) {
	repo := setupTestRepository(t)

	deleted, err := repo.PurgeOlderThan(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("PurgeOlderThan on empty store failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 rows purged, got %d", deleted)
	}
}
