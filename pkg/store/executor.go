// Package store executes planned queries against the tenant's relational
// data and returns tabular results.
package store

import (
	"context"
	"fmt"

	"github.com/sokoflow/soko-engine/pkg/database"
)

// RowSet is an ordered tabular result. Empty row sets are a valid, expected
// outcome, not an error.
type RowSet struct {
	Columns []string
	Rows    []map[string]any
}

// Executor runs a parameterized statement. The pipeline imposes no timeout
// of its own; callers bound the call via ctx.
type Executor interface {
	Execute(ctx context.Context, sql string, args ...any) (*RowSet, error)
}

// PostgresExecutor implements Executor on a pgx pool.
type PostgresExecutor struct {
	db *database.DB
}

// NewPostgresExecutor creates an executor backed by the given pool.
func NewPostgresExecutor(db *database.DB) *PostgresExecutor {
	return &PostgresExecutor{db: db}
}

// Execute runs the statement with positional parameters and collects the
// full result. Column order follows the statement's select list.
func (e *PostgresExecutor) Execute(ctx context.Context, sql string, args ...any) (*RowSet, error) {
	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	result := &RowSet{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col] = values[i]
		}
		result.Rows = append(result.Rows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return result, nil
}
