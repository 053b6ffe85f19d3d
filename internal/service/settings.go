package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/repo"
)

// SettingsService manages the per-user values imports depend on.
type SettingsService struct {
	repo repo.SettingsRepo
}

// NewSettingsService constructs a SettingsService backed by the provided repo.
func NewSettingsService(r repo.SettingsRepo) *SettingsService {
	return &SettingsService{repo: r}
}

// Get returns the user's settings. A user who never saved any gets an empty
// record rather than domain.ErrNotFound.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error) {
	st, err := s.repo.Get(ctx, userID)
	if err == nil {
		return st, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.UserSettings{UserID: userID}, nil
	}
	return domain.UserSettings{}, fmt.Errorf("service.SettingsService.Get: %w", err)
}

// Update validates and saves the user's settings.
// An empty APIKey keeps the stored key so clients never have to echo it back.
func (s *SettingsService) Update(ctx context.Context, st domain.UserSettings) (domain.UserSettings, error) {
	st.APIKey = strings.TrimSpace(st.APIKey)
	st.DefaultStartAddress = strings.TrimSpace(st.DefaultStartAddress)
	st.DefaultEndAddress = strings.TrimSpace(st.DefaultEndAddress)

	if err := validateSettings(st); err != nil {
		return domain.UserSettings{}, err
	}

	if st.APIKey == "" {
		prev, err := s.Get(ctx, st.UserID)
		if err != nil {
			return domain.UserSettings{}, fmt.Errorf("service.SettingsService.Update: %w", err)
		}
		st.APIKey = prev.APIKey
	}

	saved, err := s.repo.Upsert(ctx, st)
	if err != nil {
		return domain.UserSettings{}, fmt.Errorf("service.SettingsService.Update: %w", err)
	}
	return saved, nil
}

func validateSettings(st domain.UserSettings) error {
	if st.DefaultStartAddress == "" {
		return fmt.Errorf("%w: default_start_address is required", domain.ErrValidation)
	}
	if st.MileageRate < 0 {
		return fmt.Errorf("%w: mileage_rate must not be negative", domain.ErrValidation)
	}
	return nil
}
