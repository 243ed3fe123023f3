package repository

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestWithTransactionCommit(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	err := repo.WithTransaction(ctx, func(txRepo UsageRepository) error {
		if err := txRepo.Upsert(ctx, testRecord("com.app.a", date, 10)); err != nil {
			return err
		}
		return txRepo.Upsert(ctx, testRecord("com.app.b", date, 20))
	})
	if err != nil {
		t.Fatalf("WithTransaction failed: %v", err)
	}

	records, err := repo.QueryByDate(ctx, date)
	if err != nil {
		t.Fatalf("QueryByDate failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 committed records, got %d", len(records))
	}
}

func TestWithTransactionRollback(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	err := repo.WithTransaction(ctx, func(txRepo UsageRepository) error {
		if err := txRepo.Upsert(ctx, testRecord("com.app.a", date, 10)); err != nil {
			return err
		}
		return fmt.Errorf("simulated failure")
	})
	if err == nil {
		t.Fatal("Expected transaction error")
	}

	records, err := repo.QueryByDate(ctx, date)
	if err != nil {
		t.Fatalf("QueryByDate failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected rollback to discard writes, got %d records", len(records))
	}
}

func TestWithTransactionNested(t *testing.T) {
	repo := setupTestRepository(t)
	ctx := context.Background()
	date := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	// A nested call reuses the outer transaction instead of deadlocking.
	err := repo.WithTransaction(ctx, func(txRepo UsageRepository) error {
		return txRepo.WithTransaction(ctx, func(inner UsageRepository) error {
			return inner.Upsert(ctx, testRecord("com.app.a", date, 10))
		})
	})
	if err != nil {
		t.Fatalf("Nested WithTransaction failed: %v", err)
	}

	if _, err := repo.GetForDate(ctx, "com.app.a", date); err != nil {
		t.Errorf("Expected nested write committed: %v", err)
	}
}
