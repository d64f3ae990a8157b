package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validation errors
var (
	ErrInvalidIDFormat = errors.New("invalid ID format")
	ErrInvalidLedger   = errors.New("invalid ledger")
)

// Validation constants
const (
	MaxSnapshotNameLength = 255
	SnapshotIDPrefix      = "snap_"
	MaxPageSize           = 100
	DefaultPageSize       = 20
)

// NormalizeSnapshotName trims the name and checks it is storable.
func NormalizeSnapshotName(name string) (string, error) {
	name = strings.TrimSpace(name)

	if name == "" {
		return "", fmt.Errorf("%w: name cannot be empty", ErrInvalidSnapshotName)
	}

	if utf8.RuneCountInString(name) > MaxSnapshotNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidSnapshotName, MaxSnapshotNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: name contains control characters", ErrInvalidSnapshotName)
		}
	}

	return name, nil
}

// ValidateSnapshotID checks the shape of a snapshot identifier.
func ValidateSnapshotID(id string) error {
	if !strings.HasPrefix(id, SnapshotIDPrefix) || len(id) != len(SnapshotIDPrefix)+26 {
		return fmt.Errorf("%w: %q", ErrInvalidIDFormat, id)
	}
	return nil
}

// ValidateLedger checks rows supplied by a client rather than the parser.
func ValidateLedger(rows Ledger) error {
	for i, row := range rows {
		if strings.TrimSpace(row.Date) == "" {
			return fmt.Errorf("%w: row %d has no date", ErrInvalidLedger, i+1)
		}
		if !isFinite(row.Revenue) || !isFinite(row.Expenses) {
			return fmt.Errorf("%w: row %d has a non-finite amount", ErrInvalidLedger, i+1)
		}
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
