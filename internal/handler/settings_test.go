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

func TestGetSettings_200(t *testing.T) {
	updated := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	h := newHTTPHandler(handler.Deps{Settings: &mockSettingsServicer{
		get: func(_ context.Context, u uuid.UUID) (domain.UserSettings, error) {
			assert.Equal(t, testUserID, u)
			return domain.UserSettings{
				UserID:              u,
				APIKey:              "secret-key",
				DefaultStartAddress: "1 Home St",
				MileageRate:         0.67,
				UpdatedAt:           updated,
			}, nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-key")

	var got handler.SettingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.True(t, got.HasAPIKey)
	assert.Equal(t, "1 Home St", got.DefaultStartAddress)
	assert.InDelta(t, 0.67, got.MileageRate, 1e-9)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updated.Equal(*got.UpdatedAt))
}

func TestGetSettings_Unconfigured(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Settings: &mockSettingsServicer{
		get: func(_ context.Context, u uuid.UUID) (domain.UserSettings, error) {
			return domain.UserSettings{UserID: u}, nil
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default_start_address":"","default_end_address":"","mileage_rate":0,"has_api_key":false}`, rec.Body.String())
}

func TestUpdateSettings_200(t *testing.T) {
	var got domain.UserSettings
	h := newHTTPHandler(handler.Deps{Settings: &mockSettingsServicer{
		update: func(_ context.Context, s domain.UserSettings) (domain.UserSettings, error) {
			got = s
			s.UpdatedAt = time.Now()
			return s, nil
		},
	}})

	body := jsonBody(t, handler.SettingsRequest{
		APIKey:              "new-key",
		DefaultStartAddress: "1 Home St",
		DefaultEndAddress:   "2 Depot Rd",
		MileageRate:         0.655,
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, got.UserID)
	assert.Equal(t, "new-key", got.APIKey)
	assert.Equal(t, "2 Depot Rd", got.DefaultEndAddress)

	var resp handler.SettingsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.HasAPIKey)
	assert.NotNil(t, resp.UpdatedAt)
}

func TestUpdateSettings_Validation_422(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Settings: &mockSettingsServicer{
		update: func(context.Context, domain.UserSettings) (domain.UserSettings, error) {
			return domain.UserSettings{}, fmt.Errorf("service.SettingsService.Update: %w: default_start_address is required", domain.ErrValidation)
		},
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings", jsonBody(t, handler.SettingsRequest{})))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail := decodeError(t, rec.Body)
	assert.Equal(t, "validation_error", detail.Code)
	assert.Equal(t, "default_start_address is required", detail.Message)
}

func TestUpdateSettings_MalformedJSON_400(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Settings: &mockSettingsServicer{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/settings", jsonBody(t, "not an object")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
