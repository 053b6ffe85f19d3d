// Package service contains the business logic for the mileage logbook.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here; services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/repo"
)

// ScheduleService reads and deletes persisted schedule entries.
type ScheduleService struct {
	entries repo.ScheduleRepo
}

// NewScheduleService constructs a ScheduleService backed by the provided repo.
func NewScheduleService(r repo.ScheduleRepo) *ScheduleService {
	return &ScheduleService{entries: r}
}

// List returns one page of a user's entries in the date range, and the total count.
func (s *ScheduleService) List(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
	if err := validateRange(r); err != nil {
		return nil, 0, err
	}
	entries, total, err := s.entries.ListPaged(ctx, userID, r, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.ScheduleService.List: %w", err)
	}
	// Return an empty slice rather than nil so callers always get a JSON array.
	if entries == nil {
		entries = []domain.ScheduleEntry{}
	}
	return entries, total, nil
}

// GetByID returns a single entry owned by userID.
func (s *ScheduleService) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error) {
	e, err := s.entries.GetByID(ctx, userID, id)
	if err != nil {
		return domain.ScheduleEntry{}, fmt.Errorf("service.ScheduleService.GetByID: %w", err)
	}
	return e, nil
}

// Delete soft-deletes an entry. Its date becomes free for a later import.
func (s *ScheduleService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.entries.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("service.ScheduleService.Delete: %w", err)
	}
	return nil
}

func validateRange(r domain.DateRange) error {
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return fmt.Errorf("%w: to must not be before from", domain.ErrValidation)
	}
	return nil
}
