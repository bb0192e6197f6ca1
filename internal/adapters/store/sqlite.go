// Package store provides record sources and cluster sinks for the
// surrounding application: SQLite tables and CSV files. The engine core
// never touches these; they satisfy the ports.RecordSource and
// ports.ClusterSink collaborator contracts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/baditaflorin/go_record_linkage/internal/core/domain"
	"github.com/baditaflorin/go_record_linkage/internal/ports"
)

// SQLiteStore reads records from and writes cluster assignments to a SQLite
// database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SourceSpec describes how to read records out of a table.
type SourceSpec struct {
	// Table holds the records.
	Table string
	// IDColumn holds the unique record identifier.
	IDColumn string
	// FieldColumns are read as scalar attributes.
	FieldColumns []string
	// ArrayColumns are read as token arrays, split on ArraySeparator.
	ArrayColumns []string
	// ArraySeparator defaults to a single space.
	ArraySeparator string
}

// Source returns a RecordSource over the given table spec. Rows are read in
// ID order so repeated runs see records in the same sequence.
func (s *SQLiteStore) Source(spec SourceSpec) ports.RecordSource {
	if spec.ArraySeparator == "" {
		spec.ArraySeparator = " "
	}
	return &sqliteSource{db: s.db, spec: spec}
}

type sqliteSource struct {
	db   *sql.DB
	spec SourceSpec
}

func (src *sqliteSource) Load(ctx context.Context) ([]domain.Record, error) {
	cols := make([]string, 0, 1+len(src.spec.FieldColumns)+len(src.spec.ArrayColumns))
	cols = append(cols, src.spec.IDColumn)
	cols = append(cols, src.spec.FieldColumns...)
	cols = append(cols, src.spec.ArrayColumns...)
	for i := range cols {
		cols[i] = quoteIdent(cols[i])
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(cols, ", "), quoteIdent(src.spec.Table), quoteIdent(src.spec.IDColumn))

	rows, err := src.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	values := make([]sql.NullString, 1+len(src.spec.FieldColumns)+len(src.spec.ArrayColumns))
	scan := make([]interface{}, len(values))
	for i := range values {
		scan[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		rec := domain.Record{
			ID:     values[0].String,
			Fields: make(map[string]string, len(src.spec.FieldColumns)),
			Arrays: make(map[string][]string, len(src.spec.ArrayColumns)),
		}
		for i, col := range src.spec.FieldColumns {
			if v := values[1+i]; v.Valid && v.String != "" {
				rec.Fields[col] = v.String
			}
		}
		offset := 1 + len(src.spec.FieldColumns)
		for i, col := range src.spec.ArrayColumns {
			if v := values[offset+i]; v.Valid && v.String != "" {
				rec.Arrays[col] = strings.Split(v.String, src.spec.ArraySeparator)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Sink returns a ClusterSink writing assignments into the given table,
// replacing its previous contents.
func (s *SQLiteStore) Sink(table string) ports.ClusterSink {
	return &sqliteSink{db: s.db, table: table}
}

type sqliteSink struct {
	db    *sql.DB
	table string
}

func (snk *sqliteSink) Write(ctx context.Context, assignments map[string]string) error {
	table := quoteIdent(snk.table)
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (record_id TEXT PRIMARY KEY, cluster_id TEXT NOT NULL)", table)
	if _, err := snk.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create clusters table: %w", err)
	}

	tx, err := snk.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clusters transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
		return fmt.Errorf("clear clusters table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (record_id, cluster_id) VALUES (?, ?)", table))
	if err != nil {
		return fmt.Errorf("prepare cluster insert: %w", err)
	}
	defer stmt.Close()
	for recordID, clusterID := range assignments {
		if _, err := stmt.ExecContext(ctx, recordID, clusterID); err != nil {
			return fmt.Errorf("insert cluster row: %w", err)
		}
	}
	return tx.Commit()
}

// quoteIdent wraps an identifier in double quotes, escaping embedded quotes.
func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
