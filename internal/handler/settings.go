package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// SettingsResponse is the body of GET and PUT /settings.
// The routing API key is never echoed back; HasAPIKey reports whether one is stored.
type SettingsResponse struct {
	DefaultStartAddress string     `json:"default_start_address"`
	DefaultEndAddress   string     `json:"default_end_address"`
	MileageRate         float64    `json:"mileage_rate"`
	HasAPIKey           bool       `json:"has_api_key"`
	UpdatedAt           *time.Time `json:"updated_at,omitempty"`
}

// SettingsRequest is the body of PUT /settings. An omitted api_key keeps the stored one.
type SettingsRequest struct {
	APIKey              string  `json:"api_key"`
	DefaultStartAddress string  `json:"default_start_address"`
	DefaultEndAddress   string  `json:"default_end_address"`
	MileageRate         float64 `json:"mileage_rate"`
}

// GetSettings handles GET /settings.
func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	st, err := s.settings.Get(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsToResponse(st))
}

// UpdateSettings handles PUT /settings.
func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		requestError(w, "invalid JSON body: "+err.Error())
		return
	}

	saved, err := s.settings.Update(r.Context(), domain.UserSettings{
		UserID:              userID,
		APIKey:              req.APIKey,
		DefaultStartAddress: req.DefaultStartAddress,
		DefaultEndAddress:   req.DefaultEndAddress,
		MileageRate:         req.MileageRate,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settingsToResponse(saved))
}

func settingsToResponse(st domain.UserSettings) SettingsResponse {
	out := SettingsResponse{
		DefaultStartAddress: st.DefaultStartAddress,
		DefaultEndAddress:   st.DefaultEndAddress,
		MileageRate:         st.MileageRate,
		HasAPIKey:           st.APIKey != "",
	}
	if !st.UpdatedAt.IsZero() {
		t := st.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}
