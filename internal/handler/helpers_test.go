package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/handler"
	"github.com/pkordes/mileage-logbook/internal/middleware"
)

// testUserID is the user every authenticated test request runs as.
var testUserID = uuid.MustParse("9f3c2b1a-4d5e-4f60-8a7b-1c2d3e4f5a6b")

// asTestUser stands in for the JWT middleware.
func asTestUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), testUserID)))
	})
}

// denyAll rejects every request, like the JWT middleware without a token.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

// newHTTPHandler wires a Server with the given deps into the router,
// authenticated as testUserID. This mirrors how main.go wires it.
func newHTTPHandler(d handler.Deps) http.Handler {
	return handler.NewServer(d).Routes(asTestUser)
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body *bytes.Buffer) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp.Error
}

// ---- mocks -----------------------------------------------------------------
// Set only the method fields your test needs.

type mockImportServicer struct {
	preview       func(fileName string, data []byte) (domain.ImportPreview, error)
	processImport func(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (domain.ImportSummary, error)
	recentErrors  func(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error)
}

func (m *mockImportServicer) Preview(fileName string, data []byte) (domain.ImportPreview, error) {
	return m.preview(fileName, data)
}
func (m *mockImportServicer) ProcessImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (domain.ImportSummary, error) {
	return m.processImport(ctx, userID, req)
}
func (m *mockImportServicer) RecentErrors(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ImportErrorLog, error) {
	return m.recentErrors(ctx, userID, limit)
}

type mockEnqueuer struct {
	enqueue func(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (string, error)
}

func (m *mockEnqueuer) EnqueueImport(ctx context.Context, userID uuid.UUID, req domain.ImportRequest) (string, error) {
	return m.enqueue(ctx, userID, req)
}

type mockScheduleServicer struct {
	list    func(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error)
	getByID func(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error)
	delete  func(ctx context.Context, userID, id uuid.UUID) error
}

func (m *mockScheduleServicer) List(ctx context.Context, userID uuid.UUID, r domain.DateRange, p domain.PaginationParams) ([]domain.ScheduleEntry, int64, error) {
	return m.list(ctx, userID, r, p)
}
func (m *mockScheduleServicer) GetByID(ctx context.Context, userID, id uuid.UUID) (domain.ScheduleEntry, error) {
	return m.getByID(ctx, userID, id)
}
func (m *mockScheduleServicer) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.delete(ctx, userID, id)
}

type mockExportServicer struct {
	export func(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context, userID uuid.UUID, r domain.DateRange) ([]domain.ExportRow, error) {
	return m.export(ctx, userID, r)
}

type mockSettingsServicer struct {
	get    func(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error)
	update func(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error)
}

func (m *mockSettingsServicer) Get(ctx context.Context, userID uuid.UUID) (domain.UserSettings, error) {
	return m.get(ctx, userID)
}
func (m *mockSettingsServicer) Update(ctx context.Context, s domain.UserSettings) (domain.UserSettings, error) {
	return m.update(ctx, s)
}

// compile-time checks: mocks must satisfy the handler interfaces.
var (
	_ handler.ImportServicer   = (*mockImportServicer)(nil)
	_ handler.ImportEnqueuer   = (*mockEnqueuer)(nil)
	_ handler.ScheduleServicer = (*mockScheduleServicer)(nil)
	_ handler.ExportServicer   = (*mockExportServicer)(nil)
	_ handler.SettingsServicer = (*mockSettingsServicer)(nil)
)
