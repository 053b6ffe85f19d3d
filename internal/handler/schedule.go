package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// ScheduleEntry is the JSON representation of a persisted day.
type ScheduleEntry struct {
	Id                 uuid.UUID          `json:"id"`
	Date               openapi_types.Date `json:"date"`
	StartAddress       string             `json:"start_address"`
	EndAddress         string             `json:"end_address"`
	CalculatedDistance float64            `json:"calculated_distance"`
	CalculatedAmount   float64            `json:"calculated_amount"`
	IsHotelStay        bool               `json:"is_hotel_stay"`
	ProcessingStatus   string             `json:"processing_status"`
	ErrorMessage       *string            `json:"error_message,omitempty"`
	Notes              string             `json:"notes"`
	OriginalData       [][]domain.RawRow  `json:"original_data"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// ScheduleList is the body of GET /schedule.
type ScheduleList struct {
	Data       []ScheduleEntry `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// ListSchedule handles GET /schedule.
// Supports ?from= and ?to= (YYYY-MM-DD, inclusive) and ?page= / ?limit=
// (defaults: page=1, limit=20, max=100).
func (s *Server) ListSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	dr, err := bindDateRange(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		requestError(w, "invalid page: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		requestError(w, "invalid limit: "+err.Error())
		return
	}
	params := domain.NewPaginationParams(page, limit)

	entries, total, err := s.schedule.List(r.Context(), userID, dr, params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]ScheduleEntry, len(entries))
	for i, e := range entries {
		data[i] = entryToResponse(e)
	}
	writeJSON(w, http.StatusOK, ScheduleList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// GetScheduleEntry handles GET /schedule/{id}.
func (s *Server) GetScheduleEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	e, err := s.schedule.GetByID(r.Context(), userID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToResponse(e))
}

// DeleteScheduleEntry handles DELETE /schedule/{id}.
// The entry is soft-deleted; its date can be imported again afterwards.
func (s *Server) DeleteScheduleEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.schedule.Delete(r.Context(), userID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bindDateRange reads the optional ?from= and ?to= query parameters.
func bindDateRange(r *http.Request) (domain.DateRange, error) {
	var from, to *openapi_types.Date
	if err := runtime.BindQueryParameter("form", true, false, "from", r.URL.Query(), &from); err != nil {
		return domain.DateRange{}, err
	}
	if err := runtime.BindQueryParameter("form", true, false, "to", r.URL.Query(), &to); err != nil {
		return domain.DateRange{}, err
	}
	var dr domain.DateRange
	if from != nil {
		dr.From = from.Time
	}
	if to != nil {
		dr.To = to.Time
	}
	return dr, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		requestError(w, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// entryToResponse maps a domain.ScheduleEntry to its JSON shape.
func entryToResponse(e domain.ScheduleEntry) ScheduleEntry {
	out := ScheduleEntry{
		Id:                 e.ID,
		Date:               openapi_types.Date{Time: e.Date},
		StartAddress:       e.StartAddress,
		EndAddress:         e.EndAddress,
		CalculatedDistance: e.CalculatedDistance,
		CalculatedAmount:   e.CalculatedAmount,
		IsHotelStay:        e.IsHotelStay,
		ProcessingStatus:   string(e.ProcessingStatus),
		Notes:              e.Notes,
		OriginalData:       e.OriginalData,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
	if out.OriginalData == nil {
		out.OriginalData = [][]domain.RawRow{}
	}
	if e.ErrorMessage != "" {
		msg := e.ErrorMessage
		out.ErrorMessage = &msg
	}
	return out
}
