package usecase

import (
	"context"

	"github.com/iho/kpidash/internal/domain"
)

// SnapshotUseCase owns the lifecycle of a user's snapshots.
type SnapshotUseCase struct {
	repo    SnapshotRepository
	idGen   IDGenerator
	retrier Retrier
	clock   Clock
}

// NewSnapshotUseCase creates a new SnapshotUseCase.
func NewSnapshotUseCase(repo SnapshotRepository, idGen IDGenerator, retrier Retrier, clock Clock) *SnapshotUseCase {
	if clock == nil {
		clock = SystemClock
	}
	return &SnapshotUseCase{
		repo:    repo,
		idGen:   idGen,
		retrier: retrier,
		clock:   clock,
	}
}

// CreateSnapshotInput represents input for creating a snapshot.
type CreateSnapshotInput struct {
	Name     string
	Rows     domain.Ledger
	Forecast []domain.ForecastPoint
}

// Create stores a new snapshot with a fresh ID and timestamp. An empty
// forecast is allowed.
func (uc *SnapshotUseCase) Create(ctx context.Context, session *domain.Session, input CreateSnapshotInput) (*domain.Snapshot, error) {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return nil, err
	}

	name, err := domain.NormalizeSnapshotName(input.Name)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateLedger(input.Rows); err != nil {
		return nil, err
	}

	snapshot := &domain.Snapshot{
		ID:        uc.idGen.Generate(),
		OwnerID:   owner,
		Name:      name,
		CreatedAt: uc.clock.Now(),
		Rows:      input.Rows.Clone(),
		Forecast:  domain.CloneForecast(input.Forecast),
	}
	if snapshot.Rows == nil {
		snapshot.Rows = domain.Ledger{}
	}

	if err := uc.write(ctx, func(ctx context.Context) error {
		return uc.repo.Create(ctx, snapshot)
	}); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// ListSnapshotsInput represents input for listing snapshots.
type ListSnapshotsInput struct {
	Limit  int
	Offset int
}

// List returns snapshot summaries, newest first.
func (uc *SnapshotUseCase) List(ctx context.Context, session *domain.Session, input ListSnapshotsInput) ([]domain.SnapshotSummary, error) {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.repo.ListSummaries(ctx, owner, limit, offset)
}

// LoadLatest returns the most recent snapshot, or nil when the owner has none.
func (uc *SnapshotUseCase) LoadLatest(ctx context.Context, session *domain.Session) (*domain.Snapshot, error) {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return nil, err
	}

	snapshot, err := uc.repo.GetLatest(ctx, owner)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return snapshot, nil
}

// Get returns one snapshot with its rows and forecast.
func (uc *SnapshotUseCase) Get(ctx context.Context, session *domain.Session, id string) (*domain.Snapshot, error) {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return nil, err
	}

	return uc.repo.GetByID(ctx, owner, id)
}

// Insights recomputes the report of a stored snapshot.
func (uc *SnapshotUseCase) Insights(ctx context.Context, session *domain.Session, id string) (domain.InsightReport, error) {
	snapshot, err := uc.Get(ctx, session, id)
	if err != nil {
		return domain.InsightReport{}, err
	}

	return snapshot.Insights(), nil
}

// Rename changes a snapshot's name. Renaming to the current name succeeds
// and changes nothing else.
func (uc *SnapshotUseCase) Rename(ctx context.Context, session *domain.Session, id, newName string) error {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return err
	}

	name, err := domain.NormalizeSnapshotName(newName)
	if err != nil {
		return err
	}

	return uc.write(ctx, func(ctx context.Context) error {
		return uc.repo.UpdateName(ctx, owner, id, name)
	})
}

// Delete removes a snapshot permanently. Callers confirm with the user first.
func (uc *SnapshotUseCase) Delete(ctx context.Context, session *domain.Session, id string) error {
	owner, err := domain.OwnerFromSession(session)
	if err != nil {
		return err
	}

	return uc.write(ctx, func(ctx context.Context) error {
		return uc.repo.Delete(ctx, owner, id)
	})
}

// Duplicate stores a copy of the given rows and forecast under a name
// derived from the current time.
func (uc *SnapshotUseCase) Duplicate(ctx context.Context, session *domain.Session, rows domain.Ledger, forecast []domain.ForecastPoint) (*domain.Snapshot, error) {
	return uc.Create(ctx, session, CreateSnapshotInput{
		Name:     domain.CopyName(uc.clock.Now()),
		Rows:     rows,
		Forecast: forecast,
	})
}

// DuplicateByID copies a stored snapshot.
func (uc *SnapshotUseCase) DuplicateByID(ctx context.Context, session *domain.Session, id string) (*domain.Snapshot, error) {
	source, err := uc.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}

	return uc.Duplicate(ctx, session, source.Rows, source.Forecast)
}

func (uc *SnapshotUseCase) write(ctx context.Context, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultStoreTimeout)
	defer cancel()

	if uc.retrier == nil {
		return op(ctx)
	}

	return uc.retrier.Retry(ctx, func() error {
		return op(ctx)
	})
}
