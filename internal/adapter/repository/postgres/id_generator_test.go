package postgres

import (
	"testing"

	"github.com/iho/kpidash/internal/domain"
)

func TestULIDGeneratorProducesValidIDs(t *testing.T) {
	gen := NewULIDGenerator()

	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 100; i++ {
		id := gen.Generate()
		if err := domain.ValidateSnapshotID(id); err != nil {
			t.Fatalf("generated invalid id %q: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q", id)
		}
		if id <= prev {
			t.Fatalf("expected increasing ids, got %q after %q", id, prev)
		}
		seen[id] = struct{}{}
		prev = id
	}
}
