package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/repo"
)

// ExportService flattens a user's schedule for CSV and XLSX download.
type ExportService struct {
	entries repo.ScheduleRepo
}

// NewExportService constructs an ExportService backed by the provided repo.
func NewExportService(r repo.ScheduleRepo) *ExportService {
	return &ExportService{entries: r}
}

// Export returns one ExportRow per calendar day in the range, ordered by date.
func (s *ExportService) Export(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ExportRow, error) {
	if err := validateRange(r); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListRange(ctx, userID, r)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, domain.ExportRow{
			EntryID:      e.ID.String(),
			Date:         domain.DateKey(e.Date),
			StartAddress: e.StartAddress,
			EndAddress:   e.EndAddress,
			Distance:     e.CalculatedDistance,
			Amount:       e.CalculatedAmount,
			IsHotelStay:  e.IsHotelStay,
			Status:       string(e.ProcessingStatus),
			ErrorMessage: e.ErrorMessage,
			Notes:        e.Notes,
		})
	}
	return rows, nil
}
