package repository

import (
	"context"
	"testing"
	"time"

	"tvagent/internal/database"
	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/infrastructure/logging"
	"tvagent/internal/types"
)

func TestNewSQLiteRepository(t *testing.T) {
	repo := setupTestRepository(t)

	if repo == nil {
		t.Fatal("NewSQLiteRepository returned nil")
	}

	if repo.db == nil {
		t.Error("Repository db is nil")
	}

	if repo.logger == nil {
		t.Error("Repository logger is nil")
	}

	if repo.retryConfig == nil {
		t.Error("Repository retryConfig is nil")
	}
}

func TestNewSQLiteRepositoryWithConfig(t *testing.T) {
	config := database.TestConfig()
	logger := logging.NewDefaultLogger()
	dbService := database.NewSQLiteService(logger)

	ctx := context.Background()
	err := dbService.Connect(ctx, config)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	defer dbService.Close()

	err = dbService.Migrate(ctx)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	customRetryConfig := &storeerrors.RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  50 * time.Millisecond,
		BackoffFactor: 1.5,
	}

	repo := NewSQLiteRepositoryWithConfig(dbService, customRetryConfig, logger)
	if repo == nil {
		t.Fatal("NewSQLiteRepositoryWithConfig returned nil")
	}

	if repo.retryConfig.MaxAttempts != 5 {
		t.Errorf("Expected MaxAttempts 5, got %d", repo.retryConfig.MaxAttempts)
	}

	repo2 := NewSQLiteRepositoryWithConfig(dbService, nil, logger)
	if repo2.retryConfig == nil {
		t.Error("Repository should have default retry config when nil is passed")
	}

	repo3 := NewSQLiteRepositoryWithConfig(dbService, customRetryConfig, nil)
	if repo3.logger == nil {
		t.Error("Repository should have default logger when nil is passed")
	}
}

// Helper function to set up a test repository
func setupTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	config := database.TestConfig()
	logger := logging.NewDefaultLogger()
	dbService := database.NewSQLiteService(logger)

	ctx := context.Background()
	err := dbService.Connect(ctx, config)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	err = dbService.Migrate(ctx)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	repo := NewSQLiteRepository(dbService, logger)

	t.Cleanup(func() {
		dbService.Close()
	})

	return repo
}

// testRecord builds a usage record for the given package and date with
// sensible defaults that individual tests override as needed.
func testRecord(pkg string, date time.Time, minutes int64) types.UsageRecord {
	return types.UsageRecord{
		PackageName:        pkg,
		AppName:            pkg,
		UsageMinutes:       minutes,
		WeeklyUsageMinutes: minutes,
		DailyLimit:         120,
		CategoryID:         3,
		LastUsed:           date.UnixMilli(),
		TotalLaunchCount:   1,
		Date:               types.DateKey(date),
	}
}
