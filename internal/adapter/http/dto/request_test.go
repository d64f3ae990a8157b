package dto

import (
	"reflect"
	"testing"

	"github.com/iho/kpidash/internal/domain"
)

func TestCreateSnapshotRequestToUseCaseInput(t *testing.T) {
	req := CreateSnapshotRequest{
		Name: "march",
		Rows: []LedgerRowRequest{
			{Date: "2024-01", Revenue: 1000, Expenses: 1200, Extra: map[string]string{"Notes": "x"}},
		},
		Forecast: []ForecastPointRequest{{Date: "2024-02", ForecastedRevenue: 1100}},
	}

	input := req.ToUseCaseInput()

	if input.Name != "march" {
		t.Fatalf("unexpected name %q", input.Name)
	}

	wantRows := domain.Ledger{{Date: "2024-01", Revenue: 1000, Expenses: 1200, Extra: map[string]string{"Notes": "x"}}}
	if !reflect.DeepEqual(input.Rows, wantRows) {
		t.Fatalf("unexpected rows %+v", input.Rows)
	}

	wantForecast := []domain.ForecastPoint{{Date: "2024-02", ForecastedRevenue: 1100}}
	if !reflect.DeepEqual(input.Forecast, wantForecast) {
		t.Fatalf("unexpected forecast %+v", input.Forecast)
	}
}

func TestConvertersKeepNil(t *testing.T) {
	if LedgerFromRequest(nil) != nil {
		t.Fatalf("expected nil ledger")
	}
	if ForecastFromRequest(nil) != nil {
		t.Fatalf("expected nil forecast")
	}
}

func TestPaginationRequestToListInput(t *testing.T) {
	input := PaginationRequest{Limit: 5, Offset: 10}.ToListInput()
	if input.Limit != 5 || input.Offset != 10 {
		t.Fatalf("unexpected list input %+v", input)
	}
}
