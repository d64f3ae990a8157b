package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/infrastructure/postgres/generated"
)

// SnapshotRepository implements usecase.SnapshotRepository on the uploads
// table. Every query filters by owner.
type SnapshotRepository struct {
	queries *generated.Queries
}

// NewSnapshotRepository creates a new SnapshotRepository. db is usually a
// *pgxpool.Pool.
func NewSnapshotRepository(db generated.DBTX) *SnapshotRepository {
	return &SnapshotRepository{
		queries: generated.New(db),
	}
}

// rowRecord is the stored form of a ledger row.
type rowRecord struct {
	Date     string            `json:"Date"`
	Revenue  float64           `json:"Revenue"`
	Expenses float64           `json:"Expenses"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// forecastRecord is the stored form of a forecast point.
type forecastRecord struct {
	Date              string  `json:"date"`
	ForecastedRevenue float64 `json:"forecasted_revenue"`
}

// Create inserts a snapshot.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	data, forecast, err := encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	return r.queries.CreateUpload(ctx, generated.CreateUploadParams{
		ID:              snapshot.ID,
		OwnerID:         snapshot.OwnerID,
		Name:            snapshot.Name,
		CreatedAt:       snapshot.CreatedAt.UTC(),
		Data:            data,
		ForecastResults: forecast,
	})
}

// GetByID retrieves one of the owner's snapshots.
func (r *SnapshotRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Snapshot, error) {
	row, err := r.queries.GetUploadByID(ctx, generated.GetUploadByIDParams{ID: id, OwnerID: ownerID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	return rowToSnapshot(row)
}

// GetLatest retrieves the owner's most recent snapshot.
func (r *SnapshotRepository) GetLatest(ctx context.Context, ownerID string) (*domain.Snapshot, error) {
	row, err := r.queries.GetLatestUpload(ctx, ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, err
	}

	return rowToSnapshot(row)
}

// ListSummaries lists the owner's snapshots newest first without row data.
func (r *SnapshotRepository) ListSummaries(ctx context.Context, ownerID string, limit, offset int) ([]domain.SnapshotSummary, error) {
	rows, err := r.queries.ListUploadSummaries(ctx, generated.ListUploadSummariesParams{
		OwnerID: ownerID,
		Limit:   int32(limit),
		Offset:  int32(offset),
	})
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.SnapshotSummary, len(rows))
	for i, row := range rows {
		summaries[i] = domain.SnapshotSummary{
			ID:        row.ID,
			Name:      row.Name,
			CreatedAt: row.CreatedAt.UTC(),
		}
	}

	return summaries, nil
}

// UpdateName renames a snapshot. Postgres counts matched rows, so renaming
// to the current name still affects one row.
func (r *SnapshotRepository) UpdateName(ctx context.Context, ownerID, id, name string) error {
	affected, err := r.queries.UpdateUploadName(ctx, generated.UpdateUploadNameParams{
		ID:      id,
		OwnerID: ownerID,
		Name:    name,
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSnapshotNotFound
	}

	return nil
}

// Delete removes a snapshot.
func (r *SnapshotRepository) Delete(ctx context.Context, ownerID, id string) error {
	affected, err := r.queries.DeleteUpload(ctx, generated.DeleteUploadParams{ID: id, OwnerID: ownerID})
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSnapshotNotFound
	}

	return nil
}

func encodeSnapshot(s *domain.Snapshot) (data, forecast []byte, err error) {
	rows := make([]rowRecord, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = rowRecord{
			Date:     row.Date,
			Revenue:  row.Revenue,
			Expenses: row.Expenses,
			Extra:    row.Extra,
		}
	}

	data, err = json.Marshal(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode rows: %w", err)
	}

	if s.Forecast == nil {
		return data, nil, nil
	}

	points := make([]forecastRecord, len(s.Forecast))
	for i, p := range s.Forecast {
		points[i] = forecastRecord{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
	}

	forecast, err = json.Marshal(points)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode forecast: %w", err)
	}

	return data, forecast, nil
}

func rowToSnapshot(row generated.Upload) (*domain.Snapshot, error) {
	var rows []rowRecord
	if len(row.Data) > 0 {
		if err := json.Unmarshal(row.Data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode rows of %s: %w", row.ID, err)
		}
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

	var forecast []domain.ForecastPoint
	if len(row.ForecastResults) > 0 {
		var points []forecastRecord
		if err := json.Unmarshal(row.ForecastResults, &points); err != nil {
			return nil, fmt.Errorf("failed to decode forecast of %s: %w", row.ID, err)
		}
		if points != nil {
			forecast = make([]domain.ForecastPoint, len(points))
			for i, p := range points {
				forecast[i] = domain.ForecastPoint{Date: p.Date, ForecastedRevenue: p.ForecastedRevenue}
			}
		}
	}

	return &domain.Snapshot{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.UTC(),
		Rows:      ledger,
		Forecast:  forecast,
	}, nil
}
