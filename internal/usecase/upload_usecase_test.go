package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/kpidash/internal/adapter/csvledger"
	"github.com/iho/kpidash/internal/domain"
	"github.com/iho/kpidash/internal/usecase"
	"github.com/iho/kpidash/internal/usecase/mocks"
)

const scenarioA = "Date,Revenue,Expenses\n2024-01,1000,1200\n2024-02,1500,1100\n"

type recordingMetrics struct {
	mu        sync.Mutex
	uploads   []string
	forecasts []string
}

func (m *recordingMetrics) ObserveUpload(outcome string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, outcome)
}

func (m *recordingMetrics) ObserveForecast(outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasts = append(m.forecasts, outcome)
}

func newUploadUseCase(gateway usecase.ForecastGateway, metrics usecase.PipelineMetrics) (*usecase.UploadUseCase, *usecase.SnapshotUseCase, *mocks.MemorySnapshotRepository) {
	snapshots, repo := newSnapshotUseCase()
	uc := usecase.NewUploadUseCase(csvledger.NewParser(), gateway, snapshots, metrics, zerolog.Nop())
	return uc, snapshots, repo
}

func TestUploadUseCase_StoresLedgerAndForecast(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockForecastGateway(ctrl)

	forecast := []domain.ForecastPoint{{Date: "2024-03", ForecastedRevenue: 1800}}
	gateway.EXPECT().Forecast(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, rows domain.Ledger) ([]domain.ForecastPoint, error) {
			if len(rows) != 2 {
				t.Errorf("expected gateway to receive 2 rows, got %d", len(rows))
			}
			return forecast, nil
		})

	metrics := &recordingMetrics{}
	uc, snapshots, _ := newUploadUseCase(gateway, metrics)

	result, err := uc.Upload(context.Background(), alice, usecase.UploadInput{
		FileName: "reports/march.csv",
		Content:  []byte(scenarioA),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Snapshot.Name != "march.csv" {
		t.Errorf("expected name from file name, got %q", result.Snapshot.Name)
	}
	if result.Report.BurnRate != 400 || !result.Report.Profitable {
		t.Errorf("unexpected report %+v", result.Report)
	}
	if result.ForecastError != nil {
		t.Errorf("unexpected forecast error %v", result.ForecastError)
	}

	stored, err := snapshots.LoadLatest(context.Background(), alice)
	if err != nil || stored == nil {
		t.Fatalf("expected stored snapshot, got %v", err)
	}
	if len(stored.Rows) != 2 || len(stored.Forecast) != 1 {
		t.Errorf("unexpected stored snapshot %+v", stored)
	}

	if len(metrics.uploads) != 1 || metrics.uploads[0] != usecase.OutcomeOK {
		t.Errorf("unexpected upload metrics %v", metrics.uploads)
	}
	if len(metrics.forecasts) != 1 || metrics.forecasts[0] != usecase.OutcomeOK {
		t.Errorf("unexpected forecast metrics %v", metrics.forecasts)
	}
}

func TestUploadUseCase_GatewayFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockForecastGateway(ctrl)

	gwErr := &domain.GatewayError{Kind: domain.GatewayErrTimeout}
	gateway.EXPECT().Forecast(gomock.Any(), gomock.Any()).Return(nil, gwErr)

	metrics := &recordingMetrics{}
	uc, _, repo := newUploadUseCase(gateway, metrics)

	result, err := uc.Upload(context.Background(), alice, usecase.UploadInput{
		Name:    "q1",
		Content: []byte(scenarioA),
	})
	if err != nil {
		t.Fatalf("gateway failure must not fail the upload: %v", err)
	}

	if !errors.Is(result.ForecastError, gwErr) {
		t.Errorf("expected forecast error to be reported, got %v", result.ForecastError)
	}
	if result.Snapshot.Forecast != nil {
		t.Errorf("expected no forecast stored, got %+v", result.Snapshot.Forecast)
	}
	if result.Snapshot.Name != "q1" {
		t.Errorf("expected explicit name, got %q", result.Snapshot.Name)
	}
	if repo.Len() != 1 {
		t.Errorf("expected snapshot persisted without forecast")
	}
	if len(result.Report.Messages) == 0 {
		t.Errorf("expected insights despite gateway failure")
	}
	if metrics.forecasts[0] != usecase.OutcomeForecastFail {
		t.Errorf("unexpected forecast metrics %v", metrics.forecasts)
	}
}

func TestUploadUseCase_GatewayCannotMutateLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockForecastGateway(ctrl)

	gateway.EXPECT().Forecast(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, rows domain.Ledger) ([]domain.ForecastPoint, error) {
			for i := range rows {
				rows[i].Revenue = 0
			}
			return nil, nil
		})

	uc, _, _ := newUploadUseCase(gateway, nil)

	result, err := uc.Upload(context.Background(), alice, usecase.UploadInput{Name: "x", Content: []byte(scenarioA)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Snapshot.Rows[1].Revenue != 1500 {
		t.Errorf("stored ledger was changed by the gateway")
	}
}

func TestUploadUseCase_ParseErrorStoresNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockForecastGateway(ctrl)

	metrics := &recordingMetrics{}
	uc, _, repo := newUploadUseCase(gateway, metrics)

	_, err := uc.Upload(context.Background(), alice, usecase.UploadInput{
		Name:    "bad",
		Content: []byte("Date,Revenue,Expenses\n2024-01,abc,10\n"),
	})

	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.RowIndex != 1 {
		t.Errorf("expected row 1, got %d", parseErr.RowIndex)
	}
	if repo.Len() != 0 {
		t.Errorf("expected nothing stored")
	}
	if metrics.uploads[0] != usecase.OutcomeParseError {
		t.Errorf("unexpected metrics %v", metrics.uploads)
	}
}

func TestUploadUseCase_HeaderOnlySkipsGateway(t *testing.T) {
	ctrl := gomock.NewController(t)
	gateway := mocks.NewMockForecastGateway(ctrl)

	uc, _, _ := newUploadUseCase(gateway, nil)

	result, err := uc.Upload(context.Background(), alice, usecase.UploadInput{
		Name:    "empty",
		Content: []byte("Date,Revenue,Expenses\n"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Snapshot.Rows) != 0 {
		t.Errorf("expected empty ledger")
	}
	if result.Report.Messages[0] != domain.MsgNotEnoughData {
		t.Errorf("unexpected messages %v", result.Report.Messages)
	}
}

func TestUploadUseCase_Validation(t *testing.T) {
	uc, _, _ := newUploadUseCase(nil, nil)
	ctx := context.Background()

	if _, err := uc.Upload(ctx, nil, usecase.UploadInput{Name: "x", Content: []byte(scenarioA)}); !errors.Is(err, domain.ErrAccessDenied) {
		t.Errorf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := uc.Upload(ctx, alice, usecase.UploadInput{Content: []byte(scenarioA)}); !errors.Is(err, domain.ErrInvalidSnapshotName) {
		t.Errorf("expected ErrInvalidSnapshotName without any name, got %v", err)
	}
}

func TestUploadUseCase_Preview(t *testing.T) {
	uc, _, repo := newUploadUseCase(nil, nil)

	parsed, report, err := uc.Preview([]byte(scenarioA))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parsed.Rows) != 2 || report.BurnRate != 400 {
		t.Errorf("unexpected preview %+v %+v", parsed, report)
	}
	if repo.Len() != 0 {
		t.Errorf("preview must not store")
	}
}
