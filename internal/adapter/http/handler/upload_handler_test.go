package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/adapter/http/dto"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
	"github.com/iho/kpidash/internal/usecase/mocks"
)

const scenarioA = "Date,Revenue,Expenses\n2024-01,1000,1200\n2024-02,1500,1100\n"

func newUploadUseCase() (*usecase.UploadUseCase, *mocks.MemorySnapshotRepository) {
	repo := mocks.NewMemorySnapshotRepository()
	snapshots := usecase.NewSnapshotUseCase(repo, &mocks.SequentialIDGenerator{}, nil, nil)
	return usecase.NewUploadUseCase(csvledger.NewParser(), nil, snapshots, nil, zerolog.Nop()), repo
}

func multipartRequest(t *testing.T, target, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := mw.CreateFormFile(FileField, fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req.WithContext(middleware.WithSession(req.Context(), &domain.Session{UserID: "alice"}))
}

func TestUploadHandler_Upload_Success(t *testing.T) {
	uc, repo := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "/uploads", "march.csv", scenarioA, nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Snapshot.Name != "march.csv" || len(resp.Snapshot.Rows) != 2 {
		t.Fatalf("unexpected snapshot %+v", resp.Snapshot)
	}
	if resp.Insights.Report.BurnRate != 400 || !resp.Insights.Report.Profitable {
		t.Fatalf("unexpected insights %+v", resp.Insights.Report)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected 1 stored snapshot, got %d", repo.Len())
	}
}

func TestUploadHandler_Upload_NameField(t *testing.T) {
	uc, _ := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "/uploads", "march.csv", scenarioA, map[string]string{NameField: "Q1 board"}))

	var resp dto.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Snapshot.Name != "Q1 board" {
		t.Fatalf("expected name override, got %q", resp.Snapshot.Name)
	}
}

func TestUploadHandler_Upload_ParseErrorIs422(t *testing.T) {
	uc, repo := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "/uploads", "bad.csv", "Date,Revenue,Expenses\n2024-01,abc,100\n", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Error != `Invalid Revenue value in row 1: "abc"` {
		t.Fatalf("unexpected error message %q", resp.Error)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected nothing stored")
	}
}

func TestUploadHandler_Upload_MissingFile(t *testing.T) {
	uc, _ := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.Upload(rec, multipartRequest(t, "/uploads", "", "", map[string]string{NameField: "x"}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUploadHandler_Upload_TooLarge(t *testing.T) {
	uc, _ := newUploadUseCase()
	h := NewUploadHandler(uc, 64, zerolog.Nop())

	rec := httptest.NewRecorder()
	big := scenarioA + strings.Repeat("2024-03,1,1\n", 50)
	h.Upload(rec, multipartRequest(t, "/uploads", "big.csv", big, nil))

	if rec.Code != http.StatusRequestEntityTooLarge && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected upload to be rejected, got %d", rec.Code)
	}
}

func TestUploadHandler_Upload_NoSession(t *testing.T) {
	uc, _ := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	req := multipartRequest(t, "/uploads", "march.csv", scenarioA, nil)
	req = req.WithContext(middleware.WithSession(context.Background(), nil))

	rec := httptest.NewRecorder()
	h.Upload(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUploadHandler_PreviewRawBody(t *testing.T) {
	uc, repo := newUploadUseCase()
	h := NewUploadHandler(uc, 0, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/insights", strings.NewReader("Date,Revenue,Expenses\n"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()

	h.Preview(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.PreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Rows) != 0 || len(resp.Insights.Report.Messages) != 1 || resp.Insights.Report.Messages[0] != domain.MsgNotEnoughData {
		t.Fatalf("expected degraded report for header-only file, got %+v", resp)
	}
	if repo.Len() != 0 {
		t.Fatalf("preview must not store anything")
	}
}
