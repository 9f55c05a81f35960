package provenance

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS provenance_layout (
	subject_id INTEGER NOT NULL,
	label_map  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS patches (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id       TEXT,
	slide_patch_path TEXT NOT NULL,
	label_patch_path TEXT,
	composition      TEXT
);`

// SQLiteTable stores rows in a SQLite database.
type SQLiteTable struct {
	db     *sql.DB
	layout Layout
	rows   []Row
}

// OpenSQLite opens (or creates) the database at dsn.
func OpenSQLite(dsn string, layout Layout) (*SQLiteTable, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection, so ":memory:" databases are not per-connection
	db.SetMaxOpenConns(1)

	t := &SQLiteTable{db: db, layout: layout}
	if err := t.init(); err != nil {
		db.Close()
		return nil, err
	}
	return t, nil
}

func (t *SQLiteTable) init() error {
	if _, err := t.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	var have Layout
	err := t.db.QueryRow("SELECT subject_id, label_map FROM provenance_layout LIMIT 1").Scan(&have.SubjectID, &have.LabelMap)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := t.db.Exec("INSERT INTO provenance_layout (subject_id, label_map) VALUES (?, ?)", t.layout.SubjectID, t.layout.LabelMap); err != nil {
			return fmt.Errorf("failed to record layout: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to read layout: %w", err)
	case have != t.layout:
		return fmt.Errorf("%w: have %v, want %v", ErrLayoutMismatch, have.Header(), t.layout.Header())
	}

	rows, err := t.db.Query("SELECT subject_id, slide_patch_path, label_patch_path, composition FROM patches ORDER BY id")
	if err != nil {
		return fmt.Errorf("failed to load rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subject, label, comp sql.NullString
		var r Row
		if err := rows.Scan(&subject, &r.SlidePatchPath, &label, &comp); err != nil {
			return err
		}
		r.SubjectID, r.LabelPatchPath, r.Composition = subject.String, label.String, comp.String
		t.rows = append(t.rows, r)
	}
	return rows.Err()
}

func (t *SQLiteTable) Rows() []Row {
	return slices.Clone(t.rows)
}

// Append inserts rows in one transaction.
func (t *SQLiteTable) Append(rows ...Row) error {
	tx, err := t.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO patches (subject_id, slide_patch_path, label_patch_path, composition) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(nullable(t.layout.SubjectID, r.SubjectID), r.SlidePatchPath,
			nullable(t.layout.LabelMap, r.LabelPatchPath), nullable(t.layout.LabelMap, r.Composition)); err != nil {
			tx.Rollback()
			return fmt.Errorf("append provenance rows: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	t.rows = append(t.rows, rows...)
	return nil
}

func (t *SQLiteTable) Close() error {
	return t.db.Close()
}

func nullable(used bool, s string) sql.NullString {
	return sql.NullString{String: s, Valid: used}
}
