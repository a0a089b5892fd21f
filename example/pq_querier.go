package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// pqQuerier adapts a *sql.DB backed by the lib/pq driver to the
// dbproxy.Querier interface, the shape a production deployment of this
// service would hand to dbproxy.Wrap instead of inMemoryDB.
type pqQuerier struct {
	db *sql.DB
}

// openPQQuerier opens a PostgreSQL connection pool for dsn. Callers are
// responsible for closing the returned *sql.DB via pqQuerier.Close.
func openPQQuerier(dsn string) (*pqQuerier, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("example: open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("example: ping postgres: %w", err)
	}
	return &pqQuerier{db: db}, nil
}

func (q *pqQuerier) Close() error {
	return q.db.Close()
}

func (q *pqQuerier) Query(ctx context.Context, query string, params ...interface{}) (interface{}, error) {
	rows, err := q.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func (q *pqQuerier) Execute(ctx context.Context, query string, params ...interface{}) (interface{}, error) {
	res, err := q.db.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"rows_affected": affected}, nil
}

// scanRows materializes a *sql.Rows cursor into the same
// []map[string]interface{} shape inMemoryDB returns, so the trace/capture
// handler code above is identical regardless of which Querier is wired in.
func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
