package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cast"

	"ScreenerView/internal/domain/models"
)

var tableIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Querier runs read queries; *clickhouse.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ClickHouseSource reads every row of one table. Column names become the
// header and cells are rendered as text so the row parser sees the same
// shape as a CSV.
type ClickHouseSource struct {
	db        Querier
	table     string
	chunkSize int
}

func NewClickHouseSource(db Querier, table string, chunkSize int) (*ClickHouseSource, error) {
	if !tableIdent.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ClickHouseSource{db: db, table: table, chunkSize: chunkSize}, nil
}

func (s *ClickHouseSource) Name() string { return "clickhouse:" + s.table }

func (s *ClickHouseSource) Stream(ctx context.Context) (<-chan models.Chunk, <-chan error) {
	return runStream(ctx, func(ctx context.Context, emit emitFunc) error {
		rows, err := s.db.Query(ctx, selectAll(s.table))
		if err != nil {
			return err
		}
		defer rows.Close()
		return scanRows(rows, s.chunkSize, emit)
	})
}

func selectAll(table string) string {
	return fmt.Sprintf("SELECT * FROM %s", table)
}

// rowScanner is the subset of *sql.Rows used by scanRows.
type rowScanner interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRows(rows rowScanner, chunkSize int, emit emitFunc) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	header, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("columns: %w", err)
	}

	vals := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	batch := make([][]string, 0, chunkSize)
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = formatCell(v)
		}
		batch = append(batch, row)
		if len(batch) == chunkSize {
			if err := emit(models.Chunk{Header: header, Rows: batch}); err != nil {
				return err
			}
			batch = make([][]string, 0, chunkSize)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	if len(batch) > 0 {
		return emit(models.Chunk{Header: header, Rows: batch})
	}
	return nil
}

// formatCell renders a scanned value as CSV-like text. Dates at midnight
// render as YYYY-MM-DD.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return formatTime(t)
	case *time.Time:
		if t == nil {
			return ""
		}
		return formatTime(*t)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
