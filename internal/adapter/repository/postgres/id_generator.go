package postgres

import (
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/iho/kpidash/internal/domain"
)

// ULIDGenerator generates snapshot IDs: the snapshot prefix followed by a
// lowercase ULID, so IDs sort by creation time.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new snapshot ID.
func (g *ULIDGenerator) Generate() string {
	return domain.SnapshotIDPrefix + strings.ToLower(ulid.Make().String())
}
