package usecase

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/kpidash/internal/domain"
)

// PipelineMetrics records upload pipeline outcomes.
type PipelineMetrics interface {
	ObserveUpload(outcome string, rows int)
	ObserveForecast(outcome string, duration time.Duration)
}

// Upload outcomes reported to PipelineMetrics.
const (
	OutcomeOK           = "ok"
	OutcomeParseError   = "parse_error"
	OutcomeStoreError   = "store_error"
	OutcomeForecastFail = "failed"
)

// UploadUseCase runs one upload through parse, insights, forecast and store.
type UploadUseCase struct {
	parser    LedgerParser
	gateway   ForecastGateway
	snapshots *SnapshotUseCase
	metrics   PipelineMetrics
	logger    zerolog.Logger
}

// NewUploadUseCase creates a new UploadUseCase. gateway and metrics may be nil.
func NewUploadUseCase(
	parser LedgerParser,
	gateway ForecastGateway,
	snapshots *SnapshotUseCase,
	metrics PipelineMetrics,
	logger zerolog.Logger,
) *UploadUseCase {
	return &UploadUseCase{
		parser:    parser,
		gateway:   gateway,
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger,
	}
}

// UploadInput represents one uploaded file.
type UploadInput struct {
	// Name overrides the snapshot name; the file name is used when empty.
	Name     string
	FileName string
	Content  []byte
}

// UploadResult is the immutable outcome of one upload.
type UploadResult struct {
	Snapshot *domain.Snapshot
	Report   domain.InsightReport
	Columns  []string
	Warnings []string
	// ForecastError is set when the forecast was withheld.
	ForecastError error
}

// Upload parses the file, derives insights while the forecast is requested,
// and persists the pair. A forecast failure never fails the upload.
func (uc *UploadUseCase) Upload(ctx context.Context, session *domain.Session, input UploadInput) (*UploadResult, error) {
	if _, err := domain.OwnerFromSession(session); err != nil {
		return nil, err
	}

	name := snapshotName(input)
	if _, err := domain.NormalizeSnapshotName(name); err != nil {
		return nil, err
	}

	parsed, err := uc.parser.Parse(bytes.NewReader(input.Content))
	if err != nil {
		uc.observeUpload(OutcomeParseError, 0)
		return nil, err
	}

	log := uc.logger.With().
		Str("file", input.FileName).
		Int("rows", len(parsed.Rows)).
		Logger()

	for _, w := range parsed.Warnings {
		log.Warn().Str("warning", w).Msg("csv tokenizer warning")
	}

	forecastCh := make(chan forecastOutcome, 1)
	go func(rows domain.Ledger) {
		forecastCh <- uc.forecast(ctx, rows)
	}(parsed.Rows.Clone())

	report := domain.DeriveInsights(parsed.Rows)

	outcome := <-forecastCh
	if outcome.err != nil {
		log.Warn().Err(outcome.err).Msg("forecast withheld")
	}

	snapshot, err := uc.snapshots.Create(ctx, session, CreateSnapshotInput{
		Name:     name,
		Rows:     parsed.Rows,
		Forecast: outcome.points,
	})
	if err != nil {
		uc.observeUpload(OutcomeStoreError, len(parsed.Rows))
		return nil, err
	}

	uc.observeUpload(OutcomeOK, len(parsed.Rows))
	log.Info().Str("snapshot_id", snapshot.ID).Int("forecast_points", len(snapshot.Forecast)).Msg("upload stored")

	return &UploadResult{
		Snapshot:      snapshot,
		Report:        report,
		Columns:       parsed.Columns,
		Warnings:      parsed.Warnings,
		ForecastError: outcome.err,
	}, nil
}

// Preview parses a file and derives insights without storing anything.
func (uc *UploadUseCase) Preview(content []byte) (*domain.ParseResult, domain.InsightReport, error) {
	parsed, err := uc.parser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, domain.InsightReport{}, err
	}

	return parsed, domain.DeriveInsights(parsed.Rows), nil
}

type forecastOutcome struct {
	points []domain.ForecastPoint
	err    error
}

func (uc *UploadUseCase) forecast(ctx context.Context, rows domain.Ledger) forecastOutcome {
	if uc.gateway == nil || len(rows) == 0 {
		return forecastOutcome{}
	}

	start := time.Now()
	points, err := uc.gateway.Forecast(ctx, rows)
	if err != nil {
		uc.observeForecast(OutcomeForecastFail, time.Since(start))
		return forecastOutcome{err: err}
	}

	uc.observeForecast(OutcomeOK, time.Since(start))
	return forecastOutcome{points: points}
}

func (uc *UploadUseCase) observeUpload(outcome string, rows int) {
	if uc.metrics != nil {
		uc.metrics.ObserveUpload(outcome, rows)
	}
}

func (uc *UploadUseCase) observeForecast(outcome string, d time.Duration) {
	if uc.metrics != nil {
		uc.metrics.ObserveForecast(outcome, d)
	}
}

func snapshotName(input UploadInput) string {
	if name := strings.TrimSpace(input.Name); name != "" {
		return name
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return ""
	}
	return filepath.Base(fileName)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrSnapshotNotFound)
}
