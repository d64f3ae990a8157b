package domain

import "time"

// CopyNamePrefix starts the name of every duplicated snapshot.
const CopyNamePrefix = "Copy of "

// Snapshot is a named, timestamped (ledger, forecast) pair owned by one user.
// Rows and Forecast never change after creation; only Name does.
type Snapshot struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
	Rows      Ledger
	Forecast  []ForecastPoint
}

// Summary returns the list view of the snapshot.
func (s *Snapshot) Summary() *SnapshotSummary {
	return &SnapshotSummary{
		ID:        s.ID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
}

// Insights derives the report for the snapshot's rows.
func (s *Snapshot) Insights() InsightReport {
	return DeriveInsights(s.Rows)
}

// SnapshotSummary is the row data free view used for history lists.
type SnapshotSummary struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// CopyName names a duplicate created at t.
func CopyName(t time.Time) string {
	return CopyNamePrefix + t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
