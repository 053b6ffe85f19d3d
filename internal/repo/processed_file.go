package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// ProcessedFileRepo stores receipts of imported files keyed by (user, file hash).
type ProcessedFileRepo interface {
	// Get returns the receipt for a file hash.
	// Returns domain.ErrNotFound if the user never imported that file.
	Get(ctx context.Context, userID uuid.UUID, fileHash string) (domain.ProcessedFile, error)

	// Create records a receipt. A second receipt for the same hash keeps the first.
	Create(ctx context.Context, f domain.ProcessedFile) (domain.ProcessedFile, error)

	// MarkDay checkpoints a date merged while importing fileHash. Marking the
	// same date twice is a no-op.
	MarkDay(ctx context.Context, userID uuid.UUID, fileHash string, date time.Time) error

	// MarkedDays returns the checkpointed dates for fileHash keyed by
	// domain.DateKey. An unknown hash yields an empty set.
	MarkedDays(ctx context.Context, userID uuid.UUID, fileHash string) (map[string]bool, error)
}

type pgProcessedFileRepo struct {
	db db
}

// NewProcessedFileRepo constructs a ProcessedFileRepo backed by the provided db connection.
func NewProcessedFileRepo(db db) ProcessedFileRepo {
	return &pgProcessedFileRepo{db: db}
}

func (r *pgProcessedFileRepo) Get(ctx context.Context, userID uuid.UUID, fileHash string) (domain.ProcessedFile, error) {
	const q = `
		SELECT user_id, file_hash, file_name, processed_at, record_count
		FROM processed_files
		WHERE user_id = @user_id AND file_hash = @file_hash`

	result, err := scanProcessedFile(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "file_hash": fileHash}))
	if err != nil {
		return domain.ProcessedFile{}, fmt.Errorf("repo.ProcessedFileRepo.Get: %w", err)
	}
	return result, nil
}

// Create inserts the receipt. The DO UPDATE SET no-op makes RETURNING yield
// the existing row on conflict.
func (r *pgProcessedFileRepo) Create(ctx context.Context, f domain.ProcessedFile) (domain.ProcessedFile, error) {
	const q = `
		INSERT INTO processed_files (user_id, file_hash, file_name, record_count)
		VALUES (@user_id, @file_hash, @file_name, @record_count)
		ON CONFLICT (user_id, file_hash) DO UPDATE SET file_hash = EXCLUDED.file_hash
		RETURNING user_id, file_hash, file_name, processed_at, record_count`

	args := pgx.NamedArgs{
		"user_id":      f.UserID,
		"file_hash":    f.FileHash,
		"file_name":    f.FileName,
		"record_count": f.RecordCount,
	}
	result, err := scanProcessedFile(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ProcessedFile{}, fmt.Errorf("repo.ProcessedFileRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgProcessedFileRepo) MarkDay(ctx context.Context, userID uuid.UUID, fileHash string, date time.Time) error {
	const q = `
		INSERT INTO processed_file_days (user_id, file_hash, entry_date)
		VALUES (@user_id, @file_hash, @entry_date)
		ON CONFLICT DO NOTHING`

	args := pgx.NamedArgs{"user_id": userID, "file_hash": fileHash, "entry_date": date}
	if _, err := r.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("repo.ProcessedFileRepo.MarkDay: %w", err)
	}
	return nil
}

func (r *pgProcessedFileRepo) MarkedDays(ctx context.Context, userID uuid.UUID, fileHash string) (map[string]bool, error) {
	const q = `
		SELECT entry_date
		FROM processed_file_days
		WHERE user_id = @user_id AND file_hash = @file_hash`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID, "file_hash": fileHash})
	if err != nil {
		return nil, fmt.Errorf("repo.ProcessedFileRepo.MarkedDays: %w", err)
	}
	defer rows.Close()

	marked := make(map[string]bool)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("repo.ProcessedFileRepo.MarkedDays: scan: %w", err)
		}
		marked[domain.DateKey(d)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ProcessedFileRepo.MarkedDays: rows: %w", err)
	}
	return marked, nil
}

func scanProcessedFile(s scanner) (domain.ProcessedFile, error) {
	var (
		f      domain.ProcessedFile
		userID pgtype.UUID
	)
	err := s.Scan(&userID, &f.FileHash, &f.FileName, &f.ProcessedAt, &f.RecordCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ProcessedFile{}, domain.ErrNotFound
		}
		return domain.ProcessedFile{}, err
	}
	f.UserID = uuid.UUID(userID.Bytes)
	return f, nil
}
