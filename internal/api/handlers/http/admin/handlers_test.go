package admin_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"emergencyDashboard/internal/api/handlers/http/admin"
	mock_admin "emergencyDashboard/internal/api/handlers/http/admin/mocks"
	"emergencyDashboard/internal/domain"
	"emergencyDashboard/pkg/e"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAdminReindex_OK(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	rx := mock_admin.NewMockReindexer(ctrl)
	h := admin.NewHandler(newTestLogger(), rx)

	rx.EXPECT().Reindex(gomock.Any()).Return(domain.ReindexResult{Indexed: 7, Failed: 1}, nil).Times(1)

	rr := httptest.NewRecorder()
	h.AdminReindex(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected %d got %d", http.StatusOK, rr.Code)
	}
	var got domain.ReindexResult
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got != (domain.ReindexResult{Indexed: 7, Failed: 1}) {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestAdminReindex_PrimaryDown_503(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	rx := mock_admin.NewMockReindexer(ctrl)
	h := admin.NewHandler(newTestLogger(), rx)

	rx.EXPECT().Reindex(gomock.Any()).
		Return(domain.ReindexResult{}, e.Dependency("workers.Reindexer.Reindex", errors.New("connection reset"))).
		Times(1)

	rr := httptest.NewRecorder()
	h.AdminReindex(rr, httptest.NewRequest(http.MethodPost, "/api/v1/admin/reindex", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected %d got %d", http.StatusServiceUnavailable, rr.Code)
	}
}
