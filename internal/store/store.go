// Package store exports book payloads into a SQLite database for tools that
// prefer SQL over the viewer's JSON files.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// Use Open() instead of sql.Open() to ensure the correct driver is used.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/payload"
	"github.com/FocuswithJustin/sblgnt-viewer/core/ref"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
)

const schema = `
CREATE TABLE IF NOT EXISTS books (
	book_id      TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	header       TEXT NOT NULL,
	source_path  TEXT NOT NULL,
	verse_count  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS verses (
	book_id         TEXT NOT NULL REFERENCES books(book_id),
	position        INTEGER NOT NULL,
	reference       TEXT NOT NULL,
	chapter         INTEGER NOT NULL,
	verse           INTEGER NOT NULL,
	text            TEXT NOT NULL,
	paragraph_index INTEGER,
	PRIMARY KEY (book_id, position)
);
CREATE INDEX IF NOT EXISTS verses_by_chapter ON verses (book_id, chapter, verse);
`

// DriverName returns the SQL driver name selected at build time.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// Info describes the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		Package:    driverPackage,
	}
}

// Open opens the database at path and creates the schema if needed.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, errors.NewIO("open database", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("create schema", path, err)
	}
	return db, nil
}

// Book is a row of the books table.
type Book struct {
	BookID      string
	DisplayName string
	Header      string
	SourcePath  string
	VerseCount  int
}

// Export stores p, replacing any rows previously exported for the same book.
// The whole export runs in one transaction.
func Export(ctx context.Context, db *sql.DB, p *payload.BookPayload) (err error) {
	refs := make([]*ref.Ref, len(p.Verses))
	for i, v := range p.Verses {
		r, err := ref.Parse(v.Reference)
		if err != nil {
			return &errors.ValidationError{
				Field:   fmt.Sprintf("verses[%d].reference", i),
				Value:   v.Reference,
				Message: err.Error(),
			}
		}
		refs[i] = r
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin export of %s: %w", p.BookID, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM verses WHERE book_id = ?`, p.BookID); err != nil {
		return fmt.Errorf("clear verses of %s: %w", p.BookID, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO books (book_id, display_name, header, source_path, verse_count) VALUES (?, ?, ?, ?, ?)`,
		p.BookID, p.DisplayName, p.Header, p.SourcePath, len(p.Verses)); err != nil {
		return fmt.Errorf("insert book %s: %w", p.BookID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO verses (book_id, position, reference, chapter, verse, text, paragraph_index) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare verse insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range p.Verses {
		var paragraph sql.NullInt64
		if idx, ok := v.Paragraph(); ok {
			paragraph = sql.NullInt64{Int64: int64(idx), Valid: true}
		}
		if _, err = stmt.ExecContext(ctx, p.BookID, i, v.Reference, refs[i].Chapter, refs[i].Verse, v.Text, paragraph); err != nil {
			return fmt.Errorf("insert %s: %w", v.Reference, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit export of %s: %w", p.BookID, err)
	}
	return nil
}

// Books lists the exported books ordered by book id.
func Books(ctx context.Context, db *sql.DB) ([]Book, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT book_id, display_name, header, source_path, verse_count FROM books ORDER BY book_id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.BookID, &b.DisplayName, &b.Header, &b.SourcePath, &b.VerseCount); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// LoadVerses reads back the verses of bookID in document order.
func LoadVerses(ctx context.Context, db *sql.DB, bookID string) ([]sblgnt.Verse, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT verse_count FROM books WHERE book_id = ?`, bookID).Scan(&count)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("book", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("query book %s: %w", bookID, err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT reference, text, paragraph_index FROM verses WHERE book_id = ? ORDER BY position`, bookID)
	if err != nil {
		return nil, fmt.Errorf("query verses of %s: %w", bookID, err)
	}
	defer rows.Close()

	verses := make([]sblgnt.Verse, 0, count)
	for rows.Next() {
		var v sblgnt.Verse
		var paragraph sql.NullInt64
		if err := rows.Scan(&v.Reference, &v.Text, &paragraph); err != nil {
			return nil, fmt.Errorf("scan verse: %w", err)
		}
		if paragraph.Valid {
			idx := int(paragraph.Int64)
			v.ParagraphIndex = &idx
		}
		verses = append(verses, v)
	}
	return verses, rows.Err()
}
