// Package repo contains all database access logic for the mileage logbook.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// ScheduleRepo defines the persistence operations for ScheduleEntries.
// Every operation is scoped by userID; soft-deleted rows are invisible.
type ScheduleRepo interface {
	// Create inserts a new entry and returns the persisted record.
	// Returns domain.ErrDuplicateDate if a live entry already exists for that date.
	Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)

	// GetByID retrieves a single entry by ID, scoped to userID.
	// Returns domain.ErrNotFound if no live entry matches.
	GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error)

	// GetByDate retrieves the live entry for a calendar date.
	// Returns domain.ErrNotFound if the user has no entry for that date.
	GetByDate(ctx context.Context, userID uuid.UUID, date time.Time) (domain.ScheduleEntry, error)

	// Update overwrites the mutable fields of an entry.
	// Returns domain.ErrNotFound if no live entry matches.
	Update(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error)

	// ListPaged returns one page of entries in the range ordered by date, and the total count.
	ListPaged(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error)

	// ListRange returns every entry in the range ordered by date.
	ListRange(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ScheduleEntry, error)

	// Delete soft-deletes an entry. Returns domain.ErrNotFound if no live entry matches.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// pgScheduleRepo is the Postgres implementation of ScheduleRepo.
type pgScheduleRepo struct {
	db db
}

// NewScheduleRepo constructs a ScheduleRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewScheduleRepo(db db) ScheduleRepo {
	return &pgScheduleRepo{db: db}
}

const entryColumns = `id, user_id, entry_date, start_address, end_address,
	calculated_distance, calculated_amount, is_hotel_stay, processing_status,
	error_message, notes, original_data, created_at, updated_at`

// rangeFilter matches live rows for a user, leaving open bounds unfiltered.
const rangeFilter = `
		WHERE user_id = @user_id
		  AND deleted_at IS NULL
		  AND (@from::date IS NULL OR entry_date >= @from::date)
		  AND (@to::date IS NULL OR entry_date <= @to::date)`

// Create inserts a new entry row and returns the full persisted record.
func (r *pgScheduleRepo) Create(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	q := `
		INSERT INTO schedule_entries (
			user_id, entry_date, start_address, end_address, calculated_distance,
			calculated_amount, is_hotel_stay, processing_status, error_message, notes, original_data)
		VALUES (
			@user_id, @entry_date, @start_address, @end_address, @calculated_distance,
			@calculated_amount, @is_hotel_stay, @processing_status, @error_message, @notes, @original_data)
		RETURNING ` + entryColumns

	args, err := entryArgs(e)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.Create: %w", err)
	}

	result, err := scanEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.Create: %s: %w", domain.DateKey(e.Date), domain.ErrDuplicateDate)
		}
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a live entry by primary key, scoped to the owner.
func (r *pgScheduleRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error) {
	q := `SELECT ` + entryColumns + `
		FROM schedule_entries
		WHERE id = @id AND user_id = @user_id AND deleted_at IS NULL`

	result, err := scanEntry(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID}))
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByDate retrieves the live entry for (userID, date).
func (r *pgScheduleRepo) GetByDate(ctx context.Context, userID uuid.UUID, date time.Time) (domain.ScheduleEntry, error) {
	q := `SELECT ` + entryColumns + `
		FROM schedule_entries
		WHERE user_id = @user_id AND entry_date = @entry_date AND deleted_at IS NULL`

	result, err := scanEntry(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "entry_date": date}))
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.GetByDate: %w", err)
	}
	return result, nil
}

// Update overwrites the mutable fields of an entry and returns the updated record.
func (r *pgScheduleRepo) Update(ctx context.Context, e domain.ScheduleEntry) (domain.ScheduleEntry, error) {
	q := `
		UPDATE schedule_entries
		SET start_address       = @start_address,
		    end_address         = @end_address,
		    calculated_distance = @calculated_distance,
		    calculated_amount   = @calculated_amount,
		    is_hotel_stay       = @is_hotel_stay,
		    processing_status   = @processing_status,
		    error_message       = @error_message,
		    notes               = @notes,
		    original_data       = @original_data,
		    updated_at          = now()
		WHERE id = @id AND user_id = @user_id AND deleted_at IS NULL
		RETURNING ` + entryColumns

	args, err := entryArgs(e)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.Update: %w", err)
	}
	args["id"] = e.ID

	result, err := scanEntry(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.Update: %w", err)
	}
	return result, nil
}

// ListPaged returns one page of live entries ordered by date ascending.
func (r *pgScheduleRepo) ListPaged(ctx context.Context, userID uuid.UUID, dr domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
	args := rangeArgs(userID, dr)

	var total int64
	countQ := `SELECT count(*) FROM schedule_entries` + rangeFilter
	if err := r.db.QueryRow(ctx, countQ, args).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: count: %w", err)
	}

	args["limit"] = p.Limit
	args["offset"] = p.Offset()
	q := `SELECT ` + entryColumns + ` FROM schedule_entries` + rangeFilter + `
		ORDER BY entry_date
		LIMIT @limit OFFSET @offset`

	entries, err := r.list(ctx, q, args)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ScheduleRepo.ListPaged: %w", err)
	}
	return entries, total, nil
}

// ListRange returns every live entry in the range ordered by date ascending.
func (r *pgScheduleRepo) ListRange(ctx context.Context, userID uuid.UUID, dr domain.DateRange) ([]domain.ScheduleEntry, error) {
	q := `SELECT ` + entryColumns + ` FROM schedule_entries` + rangeFilter + `
		ORDER BY entry_date`

	entries, err := r.list(ctx, q, rangeArgs(userID, dr))
	if err != nil {
		return nil, fmt.Errorf("repo.ScheduleRepo.ListRange: %w", err)
	}
	return entries, nil
}

// Delete marks an entry deleted so the date can be imported again.
func (r *pgScheduleRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	const q = `
		UPDATE schedule_entries
		SET deleted_at = now(), updated_at = now()
		WHERE id = @id AND user_id = @user_id AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.ScheduleRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.ScheduleRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgScheduleRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.ScheduleEntry, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.ScheduleEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return entries, nil
}

func rangeArgs(userID uuid.UUID, dr domain.DateRange) pgx.NamedArgs {
	args := pgx.NamedArgs{"user_id": userID, "from": nil, "to": nil}
	if !dr.From.IsZero() {
		args["from"] = dr.From
	}
	if !dr.To.IsZero() {
		args["to"] = dr.To
	}
	return args
}

func entryArgs(e domain.ScheduleEntry) (pgx.NamedArgs, error) {
	data := e.OriginalData
	if data == nil {
		data = [][]domain.RawRow{}
	}
	original, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode original_data: %w", err)
	}

	var errMsg *string
	if e.ProcessingStatus == domain.StatusError {
		errMsg = &e.ErrorMessage
	}
	status := e.ProcessingStatus
	if status == "" {
		status = domain.StatusPending
	}

	return pgx.NamedArgs{
		"user_id":             e.UserID,
		"entry_date":          e.Date,
		"start_address":       e.StartAddress,
		"end_address":         e.EndAddress,
		"calculated_distance": e.CalculatedDistance,
		"calculated_amount":   e.CalculatedAmount,
		"is_hotel_stay":       e.IsHotelStay,
		"processing_status":   string(status),
		"error_message":       errMsg, // nil becomes NULL
		"notes":               e.Notes,
		"original_data":       original,
	}, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry maps a single database row into a domain.ScheduleEntry.
func scanEntry(s scanner) (domain.ScheduleEntry, error) {
	var (
		e        domain.ScheduleEntry
		id       pgtype.UUID
		userID   pgtype.UUID
		date     pgtype.Date
		status   string
		errMsg   pgtype.Text
		original []byte
	)

	err := s.Scan(&id, &userID, &date, &e.StartAddress, &e.EndAddress,
		&e.CalculatedDistance, &e.CalculatedAmount, &e.IsHotelStay, &status,
		&errMsg, &e.Notes, &original, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScheduleEntry{}, domain.ErrNotFound
		}
		return domain.ScheduleEntry{}, err
	}

	e.ID = uuid.UUID(id.Bytes)
	e.UserID = uuid.UUID(userID.Bytes)
	e.Date = date.Time
	e.ProcessingStatus = domain.ProcessingStatus(status)
	if errMsg.Valid {
		e.ErrorMessage = errMsg.String
	}
	if len(original) > 0 {
		if err := json.Unmarshal(original, &e.OriginalData); err != nil {
			return domain.ScheduleEntry{}, fmt.Errorf("decode original_data: %w", err)
		}
	}
	return e, nil
}
