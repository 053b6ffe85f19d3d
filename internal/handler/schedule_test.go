package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/handler"
)

func scheduleEntryFixture() domain.ScheduleEntry {
	return domain.ScheduleEntry{
		ID:                 uuid.New(),
		UserID:             testUserID,
		Date:               time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		StartAddress:       "1 Home St",
		EndAddress:         "1 Home St",
		CalculatedDistance: 24.5,
		CalculatedAmount:   16.42,
		ProcessingStatus:   domain.StatusCalculated,
		OriginalData: [][]domain.RawRow{
			{{"Date": domain.Text("3/4/2024"), "Address": domain.Text("Client A")}},
		},
		CreatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
	}
}

// ---- GET /schedule ---------------------------------------------------------

func TestListSchedule_200(t *testing.T) {
	entry := scheduleEntryFixture()
	var gotRange domain.DateRange
	var gotParams domain.PaginationParams
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		list: func(_ context.Context, u uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
			assert.Equal(t, testUserID, u)
			gotRange, gotParams = r, p
			return []domain.ScheduleEntry{entry}, 41, nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule?from=2024-03-01&to=2024-03-31&page=3&limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "2024-03-01", domain.DateKey(gotRange.From))
	assert.Equal(t, "2024-03-31", domain.DateKey(gotRange.To))
	assert.Equal(t, domain.PaginationParams{Page: 3, Limit: 10}, gotParams)

	var resp handler.ScheduleList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, handler.Pagination{Page: 3, Limit: 10, Total: 41}, resp.Pagination)
	require.Len(t, resp.Data, 1)
	got := resp.Data[0]
	assert.Equal(t, entry.ID, got.Id)
	assert.Equal(t, "2024-03-04", got.Date.String())
	assert.Equal(t, "calculated", got.ProcessingStatus)
	assert.Nil(t, got.ErrorMessage)
	assert.InDelta(t, 24.5, got.CalculatedDistance, 1e-9)
	require.Len(t, got.OriginalData, 1)
	assert.Equal(t, "Client A", got.OriginalData[0][0]["Address"].String())
}

func TestListSchedule_Defaults(t *testing.T) {
	var gotRange domain.DateRange
	var gotParams domain.PaginationParams
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		list: func(_ context.Context, _ uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
			gotRange, gotParams = r, p
			return []domain.ScheduleEntry{}, 0, nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotRange.From.IsZero())
	assert.True(t, gotRange.To.IsZero())
	assert.Equal(t, domain.PaginationParams{Page: 1, Limit: 20}, gotParams)
	assert.JSONEq(t, `{"data":[],"pagination":{"page":1,"limit":20,"total":0}}`, rec.Body.String())
}

func TestListSchedule_BadQuery_400(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad from", "from=03/01/2024"},
		{"bad to", "to=yesterday"},
		{"bad page", "page=two"},
		{"bad limit", "limit=1.5"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{}})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule?"+tc.query, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec.Body).Code)
		})
	}
}

func TestListSchedule_InvertedRange_422(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		list: func(context.Context, uuid.UUID, domain.DateRange, domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
			return nil, 0, fmt.Errorf("service.ScheduleService.List: %w: from must not be after to", domain.ErrValidation)
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule?from=2024-04-01&to=2024-03-01", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "from must not be after to", decodeError(t, rec.Body).Message)
}

// ---- GET /schedule/{id} ----------------------------------------------------

func TestGetScheduleEntry_200(t *testing.T) {
	entry := scheduleEntryFixture()
	entry.ProcessingStatus = domain.StatusError
	entry.ErrorMessage = "route not found"
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		getByID: func(_ context.Context, u, id uuid.UUID) (domain.ScheduleEntry, error) {
			assert.Equal(t, testUserID, u)
			assert.Equal(t, entry.ID, id)
			return entry, nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule/"+entry.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got handler.ScheduleEntry
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "error", got.ProcessingStatus)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "route not found", *got.ErrorMessage)
}

func TestGetScheduleEntry_404(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		getByID: func(context.Context, uuid.UUID, uuid.UUID) (domain.ScheduleEntry, error) {
			return domain.ScheduleEntry{}, fmt.Errorf("repo.ScheduleRepo.GetByID: %w", domain.ErrNotFound)
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule/"+uuid.NewString(), nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec.Body).Code)
}

func TestGetScheduleEntry_InvalidID_400(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- DELETE /schedule/{id} -------------------------------------------------

func TestDeleteScheduleEntry_204(t *testing.T) {
	id := uuid.New()
	var gotID uuid.UUID
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		delete: func(_ context.Context, _ uuid.UUID, got uuid.UUID) error {
			gotID = got
			return nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/schedule/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, gotID)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteScheduleEntry_404(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Schedule: &mockScheduleServicer{
		delete: func(context.Context, uuid.UUID, uuid.UUID) error {
			return domain.ErrNotFound
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/schedule/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
