package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/http/dto"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
)

const (
	// FileField is the multipart field holding the CSV file.
	FileField = "file"
	// NameField optionally overrides the snapshot name.
	NameField = "name"

	// DefaultMaxUploadBytes bounds uploads when no limit is configured.
	DefaultMaxUploadBytes = 10 << 20
)

// UploadService defines the behavior needed by UploadHandler.
type UploadService interface {
	Upload(ctx context.Context, session *domain.Session, input usecase.UploadInput) (*usecase.UploadResult, error)
	Preview(content []byte) (*domain.ParseResult, domain.InsightReport, error)
}

// UploadHandler handles ledger file uploads.
type UploadHandler struct {
	uploads  UploadService
	maxBytes int64
	logger   zerolog.Logger
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploads UploadService, maxBytes int64, logger zerolog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{uploads: uploads, maxBytes: maxBytes, logger: logger}
}

// Upload stores a multipart CSV upload as a new snapshot.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	fileName, content, ok := h.readFile(w, r)
	if !ok {
		return
	}

	result, err := h.uploads.Upload(r.Context(), middleware.SessionFromContext(r.Context()), usecase.UploadInput{
		Name:     r.FormValue(NameField),
		FileName: fileName,
		Content:  content,
	})
	if err != nil {
		if mapDomainError(err) == http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("file", fileName).Msg("upload failed")
		}
		writeDomainError(w, "upload failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.UploadFromResult(result))
}

// Preview analyses a CSV without storing it. The file may be sent as the
// multipart field or as a text/csv body.
func (h *UploadHandler) Preview(w http.ResponseWriter, r *http.Request) {
	_, content, ok := h.readFile(w, r)
	if !ok {
		return
	}

	parsed, report, err := h.uploads.Preview(content)
	if err != nil {
		writeDomainError(w, "preview failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PreviewResponse{
		Columns:  parsed.Columns,
		Rows:     dto.LedgerToResponse(parsed.Rows),
		Warnings: parsed.Warnings,
		Insights: dto.InsightsFromDomain(report),
	})
}

// readFile returns the uploaded file name and content. It writes the error
// response itself and reports ok=false on failure.
func (h *UploadHandler) readFile(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		content, err := io.ReadAll(r.Body)
		if err != nil {
			h.writeReadError(w, err)
			return "", nil, false
		}
		return "", content, true
	}

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeReadError(w, err)
		return "", nil, false
	}

	file, header, err := r.FormFile(FileField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file", "multipart field \""+FileField+"\" is required")
		return "", nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		h.writeReadError(w, err)
		return "", nil, false
	}

	return header.Filename, content, true
}

func (h *UploadHandler) writeReadError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large", "")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
}
