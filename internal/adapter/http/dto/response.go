package dto

import (
	"time"

	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
)

// LedgerRowResponse represents a ledger row in API responses.
type LedgerRowResponse struct {
	Date     string            `json:"date"`
	Revenue  float64           `json:"revenue"`
	Expenses float64           `json:"expenses"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// ForecastPointResponse represents a forecast point in API responses.
type ForecastPointResponse struct {
	Date              string  `json:"date"`
	ForecastedRevenue float64 `json:"forecasted_revenue"`
}

// SnapshotResponse represents a full snapshot in API responses.
type SnapshotResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	CreatedAt time.Time               `json:"created_at"`
	Rows      []LedgerRowResponse     `json:"rows"`
	Forecast  []ForecastPointResponse `json:"forecast"`
}

// SnapshotFromDomain converts a domain snapshot to response.
func SnapshotFromDomain(s *domain.Snapshot) *SnapshotResponse {
	return &SnapshotResponse{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		Rows:      LedgerToResponse(s.Rows),
		Forecast:  ForecastToResponse(s.Forecast),
	}
}

// LedgerToResponse converts ledger rows. The result is never nil.
func LedgerToResponse(rows domain.Ledger) []LedgerRowResponse {
	result := make([]LedgerRowResponse, len(rows))
	for i, r := range rows {
		result[i] = LedgerRowResponse{
			Date:     r.Date,
			Revenue:  r.Revenue,
			Expenses: r.Expenses,
			Extra:    r.Extra,
		}
	}
	return result
}

// ForecastToResponse converts forecast points. The result is never nil.
func ForecastToResponse(points []domain.ForecastPoint) []ForecastPointResponse {
	result := make([]ForecastPointResponse, len(points))
	for i, p := range points {
		result[i] = ForecastPointResponse{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
	}
	return result
}

// SnapshotSummaryResponse is one history list entry.
type SnapshotSummaryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ListSnapshotsResponse represents a page of snapshot history.
type ListSnapshotsResponse struct {
	Snapshots []SnapshotSummaryResponse `json:"snapshots"`
	Limit     int                       `json:"limit"`
	Offset    int                       `json:"offset"`
}

// SummariesFromDomain converts history entries to responses.
func SummariesFromDomain(summaries []domain.SnapshotSummary) []SnapshotSummaryResponse {
	result := make([]SnapshotSummaryResponse, len(summaries))
	for i, s := range summaries {
		result[i] = SnapshotSummaryResponse{ID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt}
	}
	return result
}

// InsightsResponse carries a derived report and its dashboard card values.
type InsightsResponse struct {
	Report  domain.InsightReport `json:"report"`
	Summary domain.Summary       `json:"summary"`
}

// InsightsFromDomain wraps a report for the API.
func InsightsFromDomain(report domain.InsightReport) InsightsResponse {
	return InsightsResponse{Report: report, Summary: report.Summary()}
}

// PreviewResponse is the result of analysing a file without storing it.
type PreviewResponse struct {
	Columns  []string            `json:"columns"`
	Rows     []LedgerRowResponse `json:"rows"`
	Warnings []string            `json:"warnings,omitempty"`
	Insights InsightsResponse    `json:"insights"`
}

// UploadResponse represents the outcome of an upload.
type UploadResponse struct {
	Snapshot      *SnapshotResponse `json:"snapshot"`
	Columns       []string          `json:"columns"`
	Warnings      []string          `json:"warnings,omitempty"`
	Insights      InsightsResponse  `json:"insights"`
	ForecastError string            `json:"forecast_error,omitempty"`
}

// UploadFromResult converts an upload result to response.
func UploadFromResult(res *usecase.UploadResult) *UploadResponse {
	resp := &UploadResponse{
		Snapshot: SnapshotFromDomain(res.Snapshot),
		Columns:  res.Columns,
		Warnings: res.Warnings,
		Insights: InsightsFromDomain(res.Report),
	}
	if res.ForecastError != nil {
		resp.ForecastError = "Forecast unavailable"
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
