package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/importer"
	"github.com/pkordes/mileage-logbook/internal/lock"
	"github.com/pkordes/mileage-logbook/internal/repo"
)

// DayStitcher turns one day's itinerary into a routed, priced result.
// routing.Stitcher is the production implementation.
type DayStitcher interface {
	StitchDay(ctx context.Context, it domain.Itinerary, start, end, apiKey string, mileageRate float64) (domain.DayResult, error)
}

// ImportDeps groups the collaborators of an ImportService.
type ImportDeps struct {
	Entries  repo.ScheduleRepo
	Files    repo.ProcessedFileRepo
	Logs     repo.ImportLogRepo
	Settings repo.SettingsRepo
	Stitcher DayStitcher
	Locker   lock.Locker
	Logger   *slog.Logger
}

// ImportService runs imports: the file-hash gate, the day-by-day loop with
// hotel carry-over, and the additive per-date merge.
type ImportService struct {
	entries  repo.ScheduleRepo
	files    repo.ProcessedFileRepo
	logs     repo.ImportLogRepo
	settings repo.SettingsRepo
	stitcher DayStitcher
	locker   lock.Locker
	log      *slog.Logger
}

// NewImportService constructs an ImportService. A nil Logger discards output.
func NewImportService(d ImportDeps) *ImportService {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ImportService{
		entries:  d.Entries,
		files:    d.Files,
		logs:     d.Logs,
		settings: d.Settings,
		stitcher: d.Stitcher,
		locker:   d.Locker,
		log:      log,
	}
}

// Error-log page size bounds for RecentErrors.
const (
	defaultErrorLogLimit = 50
	maxErrorLogLimit     = 200
)

// RecentErrors returns the user's newest import error-log records. A limit
// below 1 selects the default; larger limits are capped.
func (s *ImportService) RecentErrors(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error) {
	switch {
	case limit < 1:
		limit = defaultErrorLogLimit
	case limit > maxErrorLogLimit:
		limit = maxErrorLogLimit
	}
	logs, err := s.logs.ListRecent(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.ImportService.RecentErrors: %w", err)
	}
	return logs, nil
}

// FileHash returns the hex SHA-256 of a file's bytes.
func FileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Preview parses an uploaded file and infers its column mapping.
// Nothing is persisted.
func (s *ImportService) Preview(fileName string, data []byte) (domain.ImportPreview, error) {
	table, err := importer.Parse(data, fileName)
	if err != nil {
		return domain.ImportPreview{}, fmt.Errorf("service.ImportService.Preview: %w", err)
	}
	return domain.ImportPreview{
		FileName: fileName,
		FileHash: FileHash(data),
		Columns:  table.Columns,
		Mapping:  importer.DetectHeadersFromTable(table),
		Rows:     table.Rows,
	}, nil
}

// ProcessImport imports a mapped row set for userID.
//
// The whole run fails without any provider call when another import for the
// user is running (domain.ErrImportInProgress), when the user's settings lack
// an API key or default start address (domain.ErrConfiguration), or when
// req.FileHash was already imported (*domain.DuplicateFileError). Otherwise
// each day is processed independently: a failing day becomes an error entry
// and an error-log record, and the remaining days continue.
//
// A day is always merged into any existing entry for its date, so rows seen
// in an earlier file add to its totals again. With req.FileHash set, every
// merged day is checkpointed; re-running an interrupted import of the same
// file skips only those days.
func (s *ImportService) ProcessImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (domain.ImportSummary, error) {
	release, err := s.locker.Acquire(ctx, lock.ImportKey(userID))
	if errors.Is(err, lock.ErrLocked) {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w", domain.ErrImportInProgress)
	}
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: acquire lock: %w", err)
	}
	defer release()

	settings, err := s.loadSettings(ctx, userID)
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w", err)
	}

	if err := s.checkFileHash(ctx, userID, req.FileHash); err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w", err)
	}

	resumed, err := s.markedDays(ctx, userID, req.FileHash)
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w", err)
	}

	rate, err := resolveRate(req.MileageRate, settings.MileageRate)
	if err != nil {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w", err)
	}
	if strings.TrimSpace(req.Mapping.Date) == "" {
		return domain.ImportSummary{}, fmt.Errorf("service.ImportService.ProcessImport: %w: no date column mapped", domain.ErrValidation)
	}

	log := s.log.With("user_id", userID, "file_hash", req.FileHash)
	log.Info("import started", "rows", len(req.Rows), "file_name", req.FileName)

	days, rejected := importer.BuildItineraries(req.Rows, req.Mapping)

	var summary domain.ImportSummary
	summary.Days = make([]domain.DayOutcome, 0, len(days))
	if len(rejected) > 0 {
		summary.InvalidRows = len(rejected)
		s.recordRejected(ctx, log, userID, rejected)
	}

	run := dayRun{
		userID:   userID,
		fileHash: req.FileHash,
		resumed:  resumed,
		apiKey: settings.APIKey,
		start:  settings.DefaultStartAddress,
		end:    settings.EffectiveEndAddress(),
		rate:   rate,
	}
	current := run.start
	for _, it := range days {
		// Days merged before the cancellation are checkpointed against the file hash.
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("service.ImportService.ProcessImport: %w", err)
		}

		outcome, next := s.processDay(ctx, log, run, it, current, &summary)
		summary.Days = append(summary.Days, outcome)
		current = next
	}

	if req.FileHash != "" {
		_, err := s.files.Create(ctx, domain.ProcessedFile{
			UserID:      userID,
			FileHash:    req.FileHash,
			FileName:    req.FileName,
			RecordCount: summary.RowsProcessed,
		})
		if err != nil {
			return summary, fmt.Errorf("service.ImportService.ProcessImport: record file: %w", err)
		}
	}

	log.Info("import finished",
		"entries_processed", summary.EntriesProcessed,
		"new_dates", summary.NewDatesProcessed,
		"skipped_duplicates", summary.SkippedDuplicates,
		"failed_dates", summary.FailedDates,
		"invalid_rows", summary.InvalidRows,
	)
	return summary, nil
}

// dayRun holds the per-run values every day needs.
type dayRun struct {
	userID   uuid.UUID
	fileHash string
	resumed  map[string]bool // dates an interrupted run of fileHash already merged
	apiKey   string
	start    string // default start, and the carry-over after a non-hotel day
	end      string
	rate     float64
}

// processDay stitches and persists one day. It never returns an error: any
// failure is folded into the outcome. The second return value is where the
// next day starts.
func (s *ImportService) processDay(ctx context.Context, log *slog.Logger, run dayRun, it domain.Itinerary, start string, sum *domain.ImportSummary) (domain.DayOutcome, string) {
	date := domain.DateKey(it.Date)
	rows := it.Rows()
	outcome := domain.DayOutcome{Date: it.Date}

	existing, found, err := s.lookupDay(ctx, run.userID, it.Date)
	if err != nil {
		return s.failDay(ctx, log, run, it, start, existing, found, err, sum), run.start
	}

	if run.resumed[date] {
		sum.SkippedDuplicates++
		outcome.Skipped = true
		outcome.EntryID = existing.ID
		outcome.Status = existing.ProcessingStatus
		log.Info("day skipped", "date", date, "reason", "merged by an interrupted run of this file")
		if it.IsHotelStay() {
			return outcome, it.HotelAddress()
		}
		return outcome, run.start
	}

	result, err := s.stitcher.StitchDay(ctx, it, start, run.end, run.apiKey, run.rate)
	if err != nil {
		return s.failDay(ctx, log, run, it, start, existing, found, err, sum), run.start
	}

	var saved domain.ScheduleEntry
	if found {
		saved, err = s.entries.Update(ctx, domain.MergeDay(existing, result))
	} else {
		entry := domain.NewDayEntry(result)
		entry.UserID = run.userID
		saved, err = s.entries.Create(ctx, entry)
	}
	if err != nil {
		return s.failDay(ctx, log, run, it, start, existing, found, err, sum), run.start
	}

	sum.EntriesProcessed++
	sum.RowsProcessed += len(rows)
	if !found {
		sum.NewDatesProcessed++
	}
	if run.fileHash != "" {
		if err := s.files.MarkDay(ctx, run.userID, run.fileHash, it.Date); err != nil {
			log.Error("checkpoint day", "date", date, "error", err)
		}
	}
	log.Info("day calculated", "date", date, "status", domain.StatusCalculated,
		"distance_miles", result.Distance, "legs", result.Legs, "merged", found)

	outcome.Status = domain.StatusCalculated
	outcome.EntryID = saved.ID
	outcome.Distance = result.Distance
	outcome.Amount = result.Amount
	outcome.IsHotelStay = result.IsHotelStay

	if result.IsHotelStay && result.EndAddress != "" {
		return outcome, result.EndAddress
	}
	return outcome, run.start
}

// failDay records a failed day. A new date gets an error entry. An existing
// error entry has its message refreshed. An existing calculated entry keeps
// its totals. An error-log record is written in every case.
func (s *ImportService) failDay(ctx context.Context, log *slog.Logger, run dayRun, it domain.Itinerary, start string, existing domain.ScheduleEntry, found bool, cause error, sum *domain.ImportSummary) domain.DayOutcome {
	date := domain.DateKey(it.Date)
	rows := it.Rows()
	msg := cause.Error()

	sum.FailedDates++
	sum.RowsProcessed += len(rows)
	log.Warn("day failed", "date", date, "status", domain.StatusError, "error", msg)

	outcome := domain.DayOutcome{
		Date:         it.Date,
		Status:       domain.StatusError,
		IsHotelStay:  it.IsHotelStay(),
		ErrorMessage: msg,
	}

	var (
		saved domain.ScheduleEntry
		err   error
	)
	switch {
	case !found:
		saved, err = s.entries.Create(ctx, domain.ScheduleEntry{
			UserID:           run.userID,
			Date:             it.Date,
			StartAddress:     start,
			EndAddress:       run.end,
			IsHotelStay:      it.IsHotelStay(),
			ProcessingStatus: domain.StatusError,
			ErrorMessage:     msg,
			Notes:            it.Summary(),
			OriginalData:     [][]domain.RawRow{rows},
		})
		if err == nil {
			sum.EntriesProcessed++
			sum.NewDatesProcessed++
		}
	case existing.ProcessingStatus == domain.StatusError:
		refreshed := existing
		refreshed.ErrorMessage = msg
		refreshed.OriginalData = append(append([][]domain.RawRow{}, existing.OriginalData...), rows)
		saved, err = s.entries.Update(ctx, refreshed)
		if err == nil {
			sum.EntriesProcessed++
		}
	default:
		saved = existing
	}
	if err != nil {
		log.Error("persist error entry", "date", date, "error", err)
	}
	outcome.EntryID = saved.ID

	s.writeLog(ctx, log, domain.ImportErrorLog{
		UserID:  run.userID,
		Message: msg,
		Context: map[string]any{
			"date":         date,
			"entriesCount": len(rows),
		},
	})
	return outcome
}

func (s *ImportService) lookupDay(ctx context.Context, userID uuid.UUID, date time.Time) (domain.ScheduleEntry, bool, error) {
	e, err := s.entries.GetByDate(ctx, userID, date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.ScheduleEntry{}, false, nil
	case err != nil:
		return domain.ScheduleEntry{}, false, fmt.Errorf("look up existing entry: %w", err)
	}
	return e, true, nil
}

// markedDays returns the dates a cancelled or crashed run of the same file
// already merged. Runs without a file hash never resume.
func (s *ImportService) markedDays(ctx context.Context, userID uuid.UUID, hash string) (map[string]bool, error) {
	if hash == "" {
		return nil, nil
	}
	marked, err := s.files.MarkedDays(ctx, userID, hash)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	return marked, nil
}

func (s *ImportService) loadSettings(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error) {
	st, err := s.settings.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserSettings{}, fmt.Errorf("%w: no settings saved", domain.ErrConfiguration)
	}
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("load settings: %w", err)
	}

	var missing []string
	if strings.TrimSpace(st.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(st.DefaultStartAddress) == "" {
		missing = append(missing, "default_start_address")
	}
	if len(missing) > 0 {
		return domain.UserSettings{}, fmt.Errorf("%w: missing %s", domain.ErrConfiguration, strings.Join(missing, ", "))
	}
	return st, nil
}

func (s *ImportService) checkFileHash(ctx context.Context, userID uuid.UUID, hash string) error {
	if hash == "" {
		return nil
	}
	prior, err := s.files.Get(ctx, userID, hash)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check file hash: %w", err)
	}
	return &domain.DuplicateFileError{
		FileHash:    prior.FileHash,
		ProcessedAt: prior.ProcessedAt,
		RecordCount: prior.RecordCount,
	}
}

// recordRejected writes one error-log record for all rows that had no usable date.
func (s *ImportService) recordRejected(ctx context.Context, log *slog.Logger, userID uuid.UUID, rejected []importer.RejectedRow) {
	indexes := make([]int, 0, len(rejected))
	for _, r := range rejected {
		indexes = append(indexes, r.Index)
	}
	log.Warn("rows rejected", "reason", "unparseable_date", "rows", len(rejected))
	s.writeLog(ctx, log, domain.ImportErrorLog{
		UserID:  userID,
		Message: fmt.Sprintf("%d row(s) with a missing or unparseable date were skipped", len(rejected)),
		Context: map[string]any{
			"reason":     "unparseable_date",
			"rows":       len(rejected),
			"rowIndexes": indexes,
		},
	})
}

// writeLog persists an error-log record. A failure here is logged, not returned.
func (s *ImportService) writeLog(ctx context.Context, log *slog.Logger, l domain.ImportErrorLog) {
	if _, err := s.logs.Create(ctx, l); err != nil {
		log.Error("write import error log", "error", err)
	}
}

// resolveRate picks the request's rate, falling back to the user's saved rate.
func resolveRate(requested, saved float64) (float64, error) {
	switch {
	case requested < 0:
		return 0, fmt.Errorf("%w: mileage_rate must not be negative", domain.ErrValidation)
	case requested > 0:
		return requested, nil
	case saved > 0:
		return saved, nil
	}
	return 0, fmt.Errorf("%w: mileage_rate is required when no default rate is saved", domain.ErrValidation)
}
