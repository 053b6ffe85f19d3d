package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/repo"
)

// Hand-written test doubles for the repo interfaces.
// Each method is a function field; set only the ones your test needs.

type mockScheduleRepo struct {
	create    func(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)
	getByID   func(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error)
	getByDate func(ctx context.Context, userID uuid.UUID, date time.Time) (domain.ScheduleEntry, error)
	update    func(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)
	listPaged func(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error)
	listRange func(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ScheduleEntry, error)
	delete    func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockScheduleRepo) Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	return m.create(ctx, e)
}
func (m *mockScheduleRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error) {
	return m.getByID(ctx, userID, id)
}
func (m *mockScheduleRepo) GetByDate(ctx context.Context, userID uuid.UUID, date time.Time) (domain.ScheduleEntry, error) {
	return m.getByDate(ctx, userID, date)
}
func (m *mockScheduleRepo) Update(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	return m.update(ctx, e)
}
func (m *mockScheduleRepo) ListPaged(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
	return m.listPaged(ctx, userID, r, p)
}
func (m *mockScheduleRepo) ListRange(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ScheduleEntry, error) {
	return m.listRange(ctx, userID, r)
}
func (m *mockScheduleRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

type mockProcessedFileRepo struct {
	get        func(ctx context.Context, userID uuid.UUID, hash string) (domain.ProcessedFile, error)
	create     func(ctx context.Context, f domain.ProcessedFile) (domain.ProcessedFile, error)
	markDay    func(ctx context.Context, userID uuid.UUID, hash string, date time.Time) error
	markedDays func(ctx context.Context, userID uuid.UUID, hash string) (map[string]bool, error)
}

func (m *mockProcessedFileRepo) Get(ctx context.Context, userID uuid.UUID, hash string) (domain.ProcessedFile, error) {
	return m.get(ctx, userID, hash)
}
func (m *mockProcessedFileRepo) Create(ctx context.Context, f domain.ProcessedFile) (domain.ProcessedFile, error) {
	return m.create(ctx, f)
}
func (m *mockProcessedFileRepo) MarkDay(ctx context.Context, userID uuid.UUID, hash string, date time.Time) error {
	return m.markDay(ctx, userID, hash, date)
}
func (m *mockProcessedFileRepo) MarkedDays(ctx context.Context, userID uuid.UUID, hash string) (map[string]bool, error) {
	return m.markedDays(ctx, userID, hash)
}

type mockImportLogRepo struct {
	create     func(ctx context.Context, l domain.ImportErrorLog) (domain.ImportErrorLog, error)
	listRecent func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error)
}

func (m *mockImportLogRepo) Create(ctx context.Context, l domain.ImportErrorLog) (domain.ImportErrorLog, error) {
	return m.create(ctx, l)
}
func (m *mockImportLogRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error) {
	return m.listRecent(ctx, userID, limit)
}

type mockSettingsRepo struct {
	get    func(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error)
	upsert func(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error)
}

func (m *mockSettingsRepo) Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error) {
	return m.get(ctx, userID)
}
func (m *mockSettingsRepo) Upsert(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error) {
	return m.upsert(ctx, s)
}

// compile-time checks: mocks must satisfy the repo interfaces.
var (
	_ repo.ScheduleRepo      = (*mockScheduleRepo)(nil)
	_ repo.ProcessedFileRepo = (*mockProcessedFileRepo)(nil)
	_ repo.ImportLogRepo     = (*mockImportLogRepo)(nil)
	_ repo.SettingsRepo      = (*mockSettingsRepo)(nil)
)

// memEntries is an in-memory schedule table keyed by date, wired into a
// mockScheduleRepo so import tests can observe what was persisted.
type memEntries struct {
	byDate map[string]domain.ScheduleEntry
}

func newMemEntries() (*memEntries, *mockScheduleRepo) {
	m := &memEntries{byDate: make(map[string]domain.ScheduleEntry)}
	r := &mockScheduleRepo{
		getByDate: func(_ context.Context, _ uuid.UUID, d time.Time) (domain.ScheduleEntry, error) {
			e, ok := m.byDate[domain.DateKey(d)]
			if !ok {
				return domain.ScheduleEntry{}, domain.ErrNotFound
			}
			return e, nil
		},
		create: func(_ context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
			key := domain.DateKey(e.Date)
			if _, ok := m.byDate[key]; ok {
				return domain.ScheduleEntry{}, domain.ErrDuplicateDate
			}
			e.ID = uuid.New()
			m.byDate[key] = e
			return e, nil
		},
		update: func(_ context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
			key := domain.DateKey(e.Date)
			if _, ok := m.byDate[key]; !ok {
				return domain.ScheduleEntry{}, domain.ErrNotFound
			}
			m.byDate[key] = e
			return e, nil
		},
	}
	return m, r
}

func (m *memEntries) get(d time.Time) (domain.ScheduleEntry, bool) {
	e, ok := m.byDate[domain.DateKey(d)]
	return e, ok
}

// memFiles is an in-memory processed_files table with its day checkpoints.
func memFiles() (map[string]domain.ProcessedFile, *mockProcessedFileRepo) {
	files := make(map[string]domain.ProcessedFile)
	days := make(map[string]map[string]bool)
	return files, &mockProcessedFileRepo{
		get: func(_ context.Context, _ uuid.UUID, hash string) (domain.ProcessedFile, error) {
			f, ok := files[hash]
			if !ok {
				return domain.ProcessedFile{}, domain.ErrNotFound
			}
			return f, nil
		},
		create: func(_ context.Context, f domain.ProcessedFile) (domain.ProcessedFile, error) {
			f.ProcessedAt = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
			files[f.FileHash] = f
			return f, nil
		},
		markDay: func(_ context.Context, _ uuid.UUID, hash string, date time.Time) error {
			if days[hash] == nil {
				days[hash] = make(map[string]bool)
			}
			days[hash][domain.DateKey(date)] = true
			return nil
		},
		markedDays: func(_ context.Context, _ uuid.UUID, hash string) (map[string]bool, error) {
			marked := make(map[string]bool, len(days[hash]))
			for d := range days[hash] {
				marked[d] = true
			}
			return marked, nil
		},
	}
}

// recordingLogs collects every error-log record written.
type recordingLogs struct {
	records []domain.ImportErrorLog
}

func (r *recordingLogs) repo() *mockImportLogRepo {
	return &mockImportLogRepo{
		create: func(_ context.Context, l domain.ImportErrorLog) (domain.ImportErrorLog, error) {
			r.records = append(r.records, l)
			return l, nil
		},
	}
}

func settingsRepo(s domain.UserSettings) *mockSettingsRepo {
	return &mockSettingsRepo{
		get: func(_ context.Context, _ uuid.UUID) (domain.UserSettings, error) { return s, nil },
	}
}
