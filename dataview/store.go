// Package dataview implements the tabular data viewer comm target: a
// kernel-opened comm that announces a dataset and serves row pages over a
// small RPC protocol multiplexed on comm messages.
package dataview

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Column describes one column of a dataset.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Store holds a dataset in an in-memory sqlite database so row pages can
// be served without keeping the source object alive.
type Store struct {
	db      *sql.DB
	columns []Column
	rows    int
}

// NewStore creates a Store and loads the given rows. Every row must have
// one value per column.
func NewStore(columns []Column, rows [][]string) (*Store, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataview: dataset needs at least one column")
	}
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("dataview: cannot open store: %w", err)
	}

	cols := make([]string, len(columns))
	for i := range columns {
		cols[i] = fmt.Sprintf("c%d TEXT", i)
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE data (%s)", strings.Join(cols, ", "))); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataview: cannot create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	insert := fmt.Sprintf("INSERT INTO data VALUES (%s)", placeholders)
	tx, err := db.Begin()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("dataview: cannot load rows: %w", err)
	}
	for n, row := range rows {
		if len(row) != len(columns) {
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("dataview: row %d has %d values, want %d", n, len(row), len(columns))
		}
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = v
		}
		if _, err := tx.Exec(insert, args...); err != nil {
			tx.Rollback()
			db.Close()
			return nil, fmt.Errorf("dataview: cannot insert row %d: %w", n, err)
		}
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dataview: cannot load rows: %w", err)
	}

	return &Store{db: db, columns: columns, rows: len(rows)}, nil
}

// Columns returns the dataset schema.
func (s *Store) Columns() []Column {
	return s.columns
}

// RowCount returns the number of rows loaded.
func (s *Store) RowCount() int {
	return s.rows
}

// Page reads count rows starting at start, in load order. Reading past
// the end returns the rows that exist.
func (s *Store) Page(start, count int) ([][]string, error) {
	if start < 0 || count <= 0 {
		return nil, fmt.Errorf("dataview: invalid page start=%d count=%d", start, count)
	}
	rows, err := s.db.Query("SELECT * FROM data ORDER BY rowid LIMIT ? OFFSET ?", count, start)
	if err != nil {
		return nil, fmt.Errorf("dataview: page query: %w", err)
	}
	defer rows.Close()

	var page [][]string
	for rows.Next() {
		values := make([]string, len(s.columns))
		dest := make([]any, len(s.columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dataview: scan row: %w", err)
		}
		page = append(page, values)
	}
	return page, rows.Err()
}

// Close releases the store.
func (s *Store) Close() error {
	return s.db.Close()
}
