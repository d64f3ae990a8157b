package domain

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestNormalizeSnapshotName(t *testing.T) {
	t.Parallel()

	t.Run("valid name is trimmed", func(t *testing.T) {
		got, err := NormalizeSnapshotName("  Q1 ledger ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != "Q1 ledger" {
			t.Fatalf("expected trimmed name, got %q", got)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := NormalizeSnapshotName("   ")
		if !errors.Is(err, ErrInvalidSnapshotName) {
			t.Fatalf("expected ErrInvalidSnapshotName, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		_, err := NormalizeSnapshotName(strings.Repeat("a", MaxSnapshotNameLength+1))
		if !errors.Is(err, ErrInvalidSnapshotName) {
			t.Fatalf("expected ErrInvalidSnapshotName, got %v", err)
		}
	})

	t.Run("multibyte names count runes", func(t *testing.T) {
		if _, err := NormalizeSnapshotName(strings.Repeat("é", MaxSnapshotNameLength)); err != nil {
			t.Fatalf("expected rune-length name to pass, got %v", err)
		}
	})

	t.Run("control characters rejected", func(t *testing.T) {
		_, err := NormalizeSnapshotName("march\x00ledger")
		if !errors.Is(err, ErrInvalidSnapshotName) {
			t.Fatalf("expected ErrInvalidSnapshotName, got %v", err)
		}
	})
}

func TestValidateSnapshotID(t *testing.T) {
	t.Parallel()

	if err := ValidateSnapshotID("snap_01hzy5k3m6p7q8r9s0t1v2w3x4"); err != nil {
		t.Fatalf("expected valid id, got %v", err)
	}

	for _, id := range []string{"", "01HZY5K3M6P7Q8R9S0T1V2W3X4", "snap_short"} {
		if err := ValidateSnapshotID(id); !errors.Is(err, ErrInvalidIDFormat) {
			t.Fatalf("expected ErrInvalidIDFormat for %q, got %v", id, err)
		}
	}
}

func TestValidateLedger(t *testing.T) {
	t.Parallel()

	valid := Ledger{{Date: "2024-01", Revenue: 1, Expenses: 2}}
	if err := ValidateLedger(valid); err != nil {
		t.Fatalf("expected valid ledger, got %v", err)
	}

	if err := ValidateLedger(Ledger{{Date: " ", Revenue: 1}}); !errors.Is(err, ErrInvalidLedger) {
		t.Fatalf("expected ErrInvalidLedger for blank date, got %v", err)
	}

	if err := ValidateLedger(Ledger{{Date: "2024-01", Revenue: math.Inf(1)}}); !errors.Is(err, ErrInvalidLedger) {
		t.Fatalf("expected ErrInvalidLedger for infinite revenue, got %v", err)
	}
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, -5, DefaultPageSize, 0},
		{"capped", 5000, 10, MaxPageSize, 10},
		{"passthrough", 25, 50, 25, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := ValidatePagination(tt.limit, tt.offset)
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Fatalf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}
