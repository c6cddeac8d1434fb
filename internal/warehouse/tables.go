package warehouse

import (
	"context"
	"fmt"

	"dwhpipe/internal/schema"
	"dwhpipe/pkg/errors"
)

// ResetTables drops and recreates every table. Drops run in reverse
// dependency order so the fact table goes before the dimensions it
// references; creates run forward. Running it twice leaves the warehouse in
// the same empty-schema state. Any statement error aborts the remaining
// sequence; partial schema state is recovered by rerunning the full reset.
func (s *Service) ResetTables(ctx context.Context) error {
	tables := schema.All()

	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		if err := s.Exec(ctx, t.DropSQL()); err != nil {
			return errors.SchemaError("Failed to drop table", t.Name, err)
		}
	}

	for _, t := range tables {
		if err := s.Exec(ctx, t.CreateSQL()); err != nil {
			return errors.SchemaError("Failed to create table", t.Name, err)
		}
	}

	return nil
}

// TableCount pairs a table name with its current row count.
type TableCount struct {
	Table string
	Rows  int64
}

// TableCounts returns the row count of every table for status reporting.
func (s *Service) TableCounts(ctx context.Context) ([]TableCount, error) {
	var counts []TableCount
	for _, t := range schema.All() {
		var n int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", t.Name)
		if err := s.QueryRow(ctx, query, &n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", t.Name, err)
		}
		counts = append(counts, TableCount{Table: t.Name, Rows: n})
	}
	return counts, nil
}
