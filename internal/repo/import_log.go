package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// ImportLogRepo is the append-only audit trail of import failures.
type ImportLogRepo interface {
	// Create appends a log record and returns it with its ID and timestamp.
	Create(ctx context.Context, l domain.ImportErrorLog) (domain.ImportErrorLog, error)

	// ListRecent returns the user's newest records first, at most limit of them.
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error)
}

type pgImportLogRepo struct {
	db db
}

// NewImportLogRepo constructs an ImportLogRepo backed by the provided db connection.
func NewImportLogRepo(db db) ImportLogRepo {
	return &pgImportLogRepo{db: db}
}

func (r *pgImportLogRepo) Create(ctx context.Context, l domain.ImportErrorLog) (domain.ImportErrorLog, error) {
	const q = `
		INSERT INTO import_error_logs (user_id, message, context)
		VALUES (@user_id, @message, @context)
		RETURNING id, user_id, message, context, created_at`

	ctxJSON, err := json.Marshal(nonNilContext(l.Context))
	if err != nil {
		return domain.ImportErrorLog{}, fmt.Errorf("repo.ImportLogRepo.Create: encode context: %w", err)
	}

	args := pgx.NamedArgs{"user_id": l.UserID, "message": l.Message, "context": ctxJSON}
	result, err := scanImportLog(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ImportErrorLog{}, fmt.Errorf("repo.ImportLogRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgImportLogRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error) {
	const q = `
		SELECT id, user_id, message, context, created_at
		FROM import_error_logs
		WHERE user_id = @user_id
		ORDER BY created_at DESC
		LIMIT @limit`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("repo.ImportLogRepo.ListRecent: %w", err)
	}
	defer rows.Close()

	logs := []domain.ImportErrorLog{}
	for rows.Next() {
		l, err := scanImportLog(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ImportLogRepo.ListRecent: scan: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ImportLogRepo.ListRecent: rows: %w", err)
	}
	return logs, nil
}

func nonNilContext(c map[string]any) map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return c
}

func scanImportLog(s scanner) (domain.ImportErrorLog, error) {
	var (
		l      domain.ImportErrorLog
		id     pgtype.UUID
		userID pgtype.UUID
		raw    []byte
	)
	if err := s.Scan(&id, &userID, &l.Message, &raw, &l.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ImportErrorLog{}, domain.ErrNotFound
		}
		return domain.ImportErrorLog{}, err
	}
	l.ID = uuid.UUID(id.Bytes)
	l.UserID = uuid.UUID(userID.Bytes)
	if err := json.Unmarshal(raw, &l.Context); err != nil {
		return domain.ImportErrorLog{}, fmt.Errorf("decode context: %w", err)
	}
	return l, nil
}
