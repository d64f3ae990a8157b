package dto

import (
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
)

// RenameSnapshotRequest represents a request to rename a snapshot.
type RenameSnapshotRequest struct {
	Name string `json:"name"`
}

// LedgerRowRequest is one ledger row sent by a client.
type LedgerRowRequest struct {
	Date     string            `json:"date"`
	Revenue  float64           `json:"revenue"`
	Expenses float64           `json:"expenses"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// ForecastPointRequest is one forecast point sent by a client.
type ForecastPointRequest struct {
	Date              string  `json:"date"`
	ForecastedRevenue float64 `json:"forecasted_revenue"`
}

// CreateSnapshotRequest stores a ledger the client already holds, such as
// the dashboard's current state.
type CreateSnapshotRequest struct {
	Name     string                 `json:"name"`
	Rows     []LedgerRowRequest     `json:"rows"`
	Forecast []ForecastPointRequest `json:"forecast,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateSnapshotRequest) ToUseCaseInput() usecase.CreateSnapshotInput {
	return usecase.CreateSnapshotInput{
		Name:     r.Name,
		Rows:     LedgerFromRequest(r.Rows),
		Forecast: ForecastFromRequest(r.Forecast),
	}
}

// DuplicateRequest carries the ledger to save as a copy.
type DuplicateRequest struct {
	Rows     []LedgerRowRequest     `json:"rows"`
	Forecast []ForecastPointRequest `json:"forecast,omitempty"`
}

// LedgerFromRequest converts request rows to a domain ledger.
func LedgerFromRequest(rows []LedgerRowRequest) domain.Ledger {
	if rows == nil {
		return nil
	}

	ledger := make(domain.Ledger, len(rows))
	for i, r := range rows {
		ledger[i] = domain.LedgerRow{
			Date:     r.Date,
			Revenue:  r.Revenue,
			Expenses: r.Expenses,
			Extra:    r.Extra,
		}
	}
	return ledger
}

// ForecastFromRequest converts request points to domain forecast points.
func ForecastFromRequest(points []ForecastPointRequest) []domain.ForecastPoint {
	if points == nil {
		return nil
	}

	forecast := make([]domain.ForecastPoint, len(points))
	for i, p := range points {
		forecast[i] = domain.ForecastPoint{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
	}
	return forecast
}

// PaginationRequest represents pagination parameters.
type PaginationRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ToListInput converts to use case input.
func (p PaginationRequest) ToListInput() usecase.ListSnapshotsInput {
	return usecase.ListSnapshotsInput{Limit: p.Limit, Offset: p.Offset}
}
