package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/repository"
	"tvagent/internal/types"
)

// MockRepository implements the UsageRepository interface for testing
type MockRepository struct {
	mu               sync.RWMutex
	records          map[string]types.UsageRecord // key: pkg + "@" + date
	categories       map[int64]string
	nextCategoryID   int64
	upsertCalls      int
	batchCalls       int
	markCalls        int
	purgeCalls       int
	transactionCalls int
	shouldFailWrite  bool
	shouldFailRead   bool
	shouldFailMark   bool
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		records:        make(map[string]types.UsageRecord),
		categories:     map[int64]string{1: "Entertainment", 2: "Games", 3: "Other"},
		nextCategoryID: 4,
	}
}

// SetFailureModes configures the mock to simulate failures
func (m *MockRepository) SetFailureModes(write, read, mark bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFailWrite = write
	m.shouldFailRead = read
	m.shouldFailMark = mark
}

// CallCounts returns how often each mutation path was invoked
func (m *MockRepository) CallCounts() (upsert, batch, mark, purge, tx int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upsertCalls, m.batchCalls, m.markCalls, m.purgeCalls, m.transactionCalls
}

func recordKey(pkg, date string) string {
	return pkg + "@" + date
}

// Upsert implements UsageRepository
func (m *MockRepository) Upsert(ctx context.Context, record types.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upsertCalls++
	if m.shouldFailWrite {
		return storeerrors.NewStorageError("Upsert", fmt.Errorf("mock write failure"), storeerrors.ErrCodeConnection)
	}

	record.Uploaded = false
	m.records[recordKey(record.PackageName, record.Date)] = record
	return nil
}

// UpsertBatch implements UsageRepository
func (m *MockRepository) UpsertBatch(ctx context.Context, records []types.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batchCalls++
	if m.shouldFailWrite {
		return storeerrors.NewStorageError("UpsertBatch", fmt.Errorf("mock batch failure"), storeerrors.ErrCodeConnection)
	}

	for _, record := range records {
		record.Uploaded = false
		m.records[recordKey(record.PackageName, record.Date)] = record
	}
	return nil
}

// GetForDate implements UsageRepository
func (m *MockRepository) GetForDate(ctx context.Context, packageName string, date time.Time) (types.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shouldFailRead {
		return types.UsageRecord{}, storeerrors.NewStorageError("GetForDate", fmt.Errorf("mock read failure"), storeerrors.ErrCodeConnection)
	}

	rec, ok := m.records[recordKey(packageName, types.DateKey(date))]
	if !ok {
		return types.UsageRecord{}, storeerrors.NewStorageError("GetForDate", fmt.Errorf("not found"), storeerrors.ErrCodeNotFound)
	}
	return rec, nil
}

// QueryByDate implements UsageRepository
func (m *MockRepository) QueryByDate(ctx context.Context, date time.Time) ([]types.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shouldFailRead {
		return nil, storeerrors.NewStorageError("QueryByDate", fmt.Errorf("mock read failure"), storeerrors.ErrCodeConnection)
	}

	dateKey := types.DateKey(date)
	var result []types.UsageRecord
	for _, rec := range m.records {
		if rec.Date == dateKey {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UsageMinutes != result[j].UsageMinutes {
			return result[i].UsageMinutes > result[j].UsageMinutes
		}
		return result[i].PackageName < result[j].PackageName
	})
	return result, nil
}

// QueryDateRange implements UsageRepository
func (m *MockRepository) QueryDateRange(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.shouldFailRead {
		return nil, storeerrors.NewStorageError("QueryDateRange", fmt.Errorf("mock read failure"), storeerrors.ErrCodeConnection)
	}

	fromKey, toKey := types.DateKey(from), types.DateKey(to)
	var result []types.UsageRecord
	for _, rec := range m.records {
		if rec.Date >= fromKey && rec.Date <= toKey {
			result = append(result, rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].PackageName < result[j].PackageName
	})
	return result, nil
}

// TopByWeeklyUsage implements UsageRepository
func (m *MockRepository) TopByWeeklyUsage(ctx context.Context, date time.Time, limit int) ([]types.UsageRecord, error) {
	records, err := m.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].WeeklyUsageMinutes != records[j].WeeklyUsageMinutes {
			return records[i].WeeklyUsageMinutes > records[j].WeeklyUsageMinutes
		}
		return records[i].PackageName < records[j].PackageName
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// SumUsageForDate implements UsageRepository
func (m *MockRepository) SumUsageForDate(ctx context.Context, date time.Time) (int64, error) {
	records, err := m.QueryByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rec := range records {
		total += rec.UsageMinutes
	}
	return total, nil
}

// SumWeeklyUsage implements UsageRepository
func (m *MockRepository) SumWeeklyUsage(ctx context.Context, date time.Time) (int64, error) {
	records, err := m.QueryByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, rec := range records {
		total += rec.WeeklyUsageMinutes
	}
	return total, nil
}

// PendingUpload implements UsageRepository
func (m *MockRepository) PendingUpload(ctx context.Context, date time.Time) ([]types.UsageRecord, error) {
	records, err := m.QueryByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	var pending []types.UsageRecord
	for _, rec := range records {
		if !rec.Uploaded {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].PackageName < pending[j].PackageName
	})
	return pending, nil
}

// MarkUploaded implements UsageRepository
func (m *MockRepository) MarkUploaded(ctx context.Context, date time.Time, packageNames []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.markCalls++
	if m.shouldFailMark {
		return storeerrors.NewStorageError("MarkUploaded", fmt.Errorf("mock mark failure"), storeerrors.ErrCodeConnection)
	}

	dateKey := types.DateKey(date)
	now := time.Now().UnixMilli()
	for _, pkg := range packageNames {
		key := recordKey(pkg, dateKey)
		if rec, ok := m.records[key]; ok {
			rec.Uploaded = true
			rec.LastSync = now
			m.records[key] = rec
		}
	}
	return nil
}

// PurgeOlderThan implements UsageRepository
func (m *MockRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.purgeCalls++
	if m.shouldFailWrite {
		return 0, storeerrors.NewStorageError("PurgeOlderThan", fmt.Errorf("mock purge failure"), storeerrors.ErrCodeConnection)
	}

	cutoffKey := types.DateKey(cutoff)
	var deleted int64
	for key, rec := range m.records {
		if rec.Date < cutoffKey {
			delete(m.records, key)
			deleted++
		}
	}
	return deleted, nil
}

// InsertCategory implements UsageRepository
func (m *MockRepository) InsertCategory(ctx context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.categories {
		if existing == name {
			return 0, storeerrors.NewStorageError("InsertCategory", fmt.Errorf("duplicate name"), storeerrors.ErrCodeDuplicate)
		}
	}
	id := m.nextCategoryID
	m.nextCategoryID++
	m.categories[id] = name
	return id, nil
}

// ListCategories implements UsageRepository
func (m *MockRepository) ListCategories(ctx context.Context) ([]types.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []types.Category
	for id, name := range m.categories {
		result = append(result, types.Category{ID: id, Name: name})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// GetCategory implements UsageRepository
func (m *MockRepository) GetCategory(ctx context.Context, id int64) (types.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.categories[id]
	if !ok {
		return types.Category{}, storeerrors.NewStorageError("GetCategory", fmt.Errorf("not found"), storeerrors.ErrCodeNotFound)
	}
	return types.Category{ID: id, Name: name}, nil
}

// WithTransaction implements UsageRepository
func (m *MockRepository) WithTransaction(ctx context.Context, fn func(repo repository.UsageRepository) error) error {
	m.mu.Lock()
	m.transactionCalls++
	m.mu.Unlock()

	return fn(m)
}
