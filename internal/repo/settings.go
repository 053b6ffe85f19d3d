package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// SettingsRepo reads and writes per-user import settings.
type SettingsRepo interface {
	// Get returns the user's settings, or domain.ErrNotFound if none were saved.
	Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error)

	// Upsert writes all settings fields for the user.
	Upsert(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error)
}

type pgSettingsRepo struct {
	db db
}

// NewSettingsRepo constructs a SettingsRepo backed by the provided db connection.
func NewSettingsRepo(db db) SettingsRepo {
	return &pgSettingsRepo{db: db}
}

func (r *pgSettingsRepo) Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error) {
	const q = `
		SELECT user_id, api_key, default_start_address, default_end_address, mileage_rate, updated_at
		FROM user_settings
		WHERE user_id = @user_id`

	result, err := scanSettings(r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}))
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("repo.SettingsRepo.Get: %w", err)
	}
	return result, nil
}

func (r *pgSettingsRepo) Upsert(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error) {
	const q = `
		INSERT INTO user_settings (user_id, api_key, default_start_address, default_end_address, mileage_rate)
		VALUES (@user_id, @api_key, @default_start_address, @default_end_address, @mileage_rate)
		ON CONFLICT (user_id) DO UPDATE
		SET api_key               = EXCLUDED.api_key,
		    default_start_address = EXCLUDED.default_start_address,
		    default_end_address   = EXCLUDED.default_end_address,
		    mileage_rate          = EXCLUDED.mileage_rate,
		    updated_at            = now()
		RETURNING user_id, api_key, default_start_address, default_end_address, mileage_rate, updated_at`

	args := pgx.NamedArgs{
		"user_id":               s.UserID,
		"api_key":               s.APIKey,
		"default_start_address": s.DefaultStartAddress,
		"default_end_address":   s.DefaultEndAddress,
		"mileage_rate":          s.MileageRate,
	}
	result, err := scanSettings(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("repo.SettingsRepo.Upsert: %w", err)
	}
	return result, nil
}

func scanSettings(s scanner) (domain.UserSettings, error) {
	var (
		us     domain.UserSettings
		userID pgtype.UUID
	)
	err := s.Scan(&userID, &us.APIKey, &us.DefaultStartAddress, &us.DefaultEndAddress, &us.MileageRate, &us.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserSettings{}, domain.ErrNotFound
		}
		return domain.UserSettings{}, err
	}
	us.UserID = uuid.UUID(userID.Bytes)
	return us, nil
}
