package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/adapter/http/dto"
	"github.com/iho/kpidash/internal/adapter/http/middleware"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
)

// SnapshotService defines the behavior needed by SnapshotHandler.
type SnapshotService interface {
	Create(ctx context.Context, session *domain.Session, input usecase.CreateSnapshotInput) (*domain.Snapshot, error)
	List(ctx context.Context, session *domain.Session, input usecase.ListSnapshotsInput) ([]domain.SnapshotSummary, error)
	LoadLatest(ctx context.Context, session *domain.Session) (*domain.Snapshot, error)
	Get(ctx context.Context, session *domain.Session, id string) (*domain.Snapshot, error)
	Insights(ctx context.Context, session *domain.Session, id string) (domain.InsightReport, error)
	Rename(ctx context.Context, session *domain.Session, id, newName string) error
	Delete(ctx context.Context, session *domain.Session, id string) error
	Duplicate(ctx context.Context, session *domain.Session, rows domain.Ledger, forecast []domain.ForecastPoint) (*domain.Snapshot, error)
	DuplicateByID(ctx context.Context, session *domain.Session, id string) (*domain.Snapshot, error)
}

// SnapshotHandler handles snapshot history requests.
type SnapshotHandler struct {
	snapshots SnapshotService
	logger    zerolog.Logger
}

// NewSnapshotHandler creates a new SnapshotHandler.
func NewSnapshotHandler(snapshots SnapshotService, logger zerolog.Logger) *SnapshotHandler {
	return &SnapshotHandler{snapshots: snapshots, logger: logger}
}

// Create stores a ledger sent as JSON.
func (h *SnapshotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	snapshot, err := h.snapshots.Create(r.Context(), session(r), req.ToUseCaseInput())
	if err != nil {
		h.fail(w, "failed to create snapshot", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SnapshotFromDomain(snapshot))
}

// List lists the caller's snapshots, newest first.
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := domain.ValidatePagination(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))

	summaries, err := h.snapshots.List(r.Context(), session(r), dto.PaginationRequest{
		Limit:  limit,
		Offset: offset,
	}.ToListInput())
	if err != nil {
		h.fail(w, "failed to list snapshots", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListSnapshotsResponse{
		Snapshots: dto.SummariesFromDomain(summaries),
		Limit:     limit,
		Offset:    offset,
	})
}

// Latest returns the most recent snapshot, or 204 when there is none.
func (h *SnapshotHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshots.LoadLatest(r.Context(), session(r))
	if err != nil {
		h.fail(w, "failed to load latest snapshot", err)
		return
	}
	if snapshot == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snapshot))
}

// Get returns one snapshot with its rows and forecast.
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.snapshots.Get(r.Context(), session(r), id)
	if err != nil {
		h.fail(w, "failed to get snapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snapshot))
}

// Insights recomputes the report for a stored snapshot.
func (h *SnapshotHandler) Insights(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	report, err := h.snapshots.Insights(r.Context(), session(r), id)
	if err != nil {
		h.fail(w, "failed to derive insights", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InsightsFromDomain(report))
}

// Rename changes a snapshot's name.
func (h *SnapshotHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	var req dto.RenameSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.snapshots.Rename(r.Context(), session(r), id, req.Name); err != nil {
		h.fail(w, "failed to rename snapshot", err)
		return
	}

	// Respond with the stored state rather than echoing the request.
	snapshot, err := h.snapshots.Get(r.Context(), session(r), id)
	if err != nil {
		h.fail(w, "failed to get snapshot", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SnapshotFromDomain(snapshot))
}

// Delete removes a snapshot. Deletion is irreversible and must be confirmed
// with ?confirm=true.
func (h *SnapshotHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	if !strings.EqualFold(r.URL.Query().Get("confirm"), "true") {
		writeError(w, http.StatusBadRequest, "confirmation required", "deleting a snapshot cannot be undone; repeat with ?confirm=true")
		return
	}

	if err := h.snapshots.Delete(r.Context(), session(r), id); err != nil {
		h.fail(w, "failed to delete snapshot", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Duplicate stores a copy of the ledger in the request body.
func (h *SnapshotHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	var req dto.DuplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	snapshot, err := h.snapshots.Duplicate(r.Context(), session(r),
		dto.LedgerFromRequest(req.Rows), dto.ForecastFromRequest(req.Forecast))
	if err != nil {
		h.fail(w, "failed to duplicate snapshot", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SnapshotFromDomain(snapshot))
}

// DuplicateByID stores a copy of a stored snapshot.
func (h *SnapshotHandler) DuplicateByID(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.snapshots.DuplicateByID(r.Context(), session(r), id)
	if err != nil {
		h.fail(w, "failed to duplicate snapshot", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SnapshotFromDomain(snapshot))
}

// Export downloads a snapshot's rows as CSV.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := snapshotID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.snapshots.Get(r.Context(), session(r), id)
	if err != nil {
		h.fail(w, "failed to export snapshot", err)
		return
	}

	var buf bytes.Buffer
	if err := csvledger.WriteLedger(&buf, snapshot.Rows); err != nil {
		h.fail(w, "failed to export snapshot", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName(snapshot.Name)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *SnapshotHandler) fail(w http.ResponseWriter, message string, err error) {
	if mapDomainError(err) == http.StatusInternalServerError {
		h.logger.Error().Err(err).Msg(message)
	}
	writeDomainError(w, message, err)
}

// snapshotID reads and validates the {id} path parameter.
func snapshotID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if err := domain.ValidateSnapshotID(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid snapshot ID", err.Error())
		return "", false
	}
	return id, true
}

func session(r *http.Request) *domain.Session {
	return middleware.SessionFromContext(r.Context())
}

// exportFileName derives a safe download name from a snapshot name.
func exportFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '"' || r == '\\' || r == '/' || r < 0x20:
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(name))

	if cleaned == "" {
		cleaned = "ledger"
	}
	if !strings.HasSuffix(strings.ToLower(cleaned), ".csv") {
		cleaned += ".csv"
	}
	return cleaned
}
