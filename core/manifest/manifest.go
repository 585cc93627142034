// Package manifest maintains the viewer's index of generated book payloads.
//
// The manifest is read, modified, and rewritten whole. Keys this package does
// not know about, at the top level and inside book entries, are carried
// through unchanged so hand edits survive a rebuild.
package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"time"

	"golang.org/x/text/cases"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
)

// FormatVersion is written to manifests that do not declare a version.
const FormatVersion = 1

// Manifest is the decoded manifest document.
type Manifest struct {
	// Version is kept as raw JSON so an existing value of any shape survives.
	Version     json.RawMessage
	GeneratedAt string
	Books       []Entry

	// Extra holds unrecognised top-level keys.
	Extra map[string]json.RawMessage
}

// Entry describes one book payload.
type Entry struct {
	BookID      string
	DisplayName string
	DataPath    string // payload path relative to the manifest directory
	DataURL     string // DataPath prefixed with the manifest directory name
	Header      *string
	SourcePath  *string
	ContentHash string // "blake3:<hex>" of the payload bytes, when known

	// Extra holds unrecognised keys and known keys whose value is not a string.
	Extra map[string]json.RawMessage
}

var entryKeys = []string{
	"book_id", "display_name", "data_path", "data_url",
	"header", "source_path", "content_hash",
}

// Read loads the manifest at path. A missing file is an ErrNotFound error.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("manifest", path)
		}
		return nil, errors.NewIO("read", path, err)
	}
	return Decode(path, data)
}

// Decode parses manifest bytes; path is used for error messages only.
//
// The document must be a JSON object. A "books" value that is not an array is
// treated as empty, and array elements that are not objects are dropped.
func Decode(path string, data []byte) (*Manifest, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, errors.NewMalformedManifest(path, "contains invalid JSON", err)
	}
	if !isObject(data) {
		return nil, errors.NewMalformedManifest(path, "must contain a JSON object", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errors.NewMalformedManifest(path, "contains invalid JSON", err)
	}

	m := &Manifest{Extra: map[string]json.RawMessage{}}
	for key, raw := range fields {
		switch key {
		case "version":
			m.Version = raw
		case "generated_at":
			if err := json.Unmarshal(raw, &m.GeneratedAt); err != nil {
				m.Extra[key] = raw
			}
		case "books":
			m.Books = decodeBooks(raw)
		default:
			m.Extra[key] = raw
		}
	}
	return m, nil
}

func decodeBooks(raw json.RawMessage) []Entry {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	books := make([]Entry, 0, len(items))
	for _, item := range items {
		if !isObject(item) {
			continue
		}
		var e Entry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		books = append(books, e)
	}
	return books
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// UnmarshalJSON decodes an entry object, keeping unknown keys in Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	*e = Entry{}
	for key, raw := range fields {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			if e.Extra == nil {
				e.Extra = map[string]json.RawMessage{}
			}
			e.Extra[key] = raw
			continue
		}
		switch key {
		case "book_id":
			e.BookID = s
		case "display_name":
			e.DisplayName = s
		case "data_path":
			e.DataPath = s
		case "data_url":
			e.DataURL = s
		case "header":
			e.Header = &s
		case "source_path":
			e.SourcePath = &s
		case "content_hash":
			e.ContentHash = s
		default:
			if e.Extra == nil {
				e.Extra = map[string]json.RawMessage{}
			}
			e.Extra[key] = raw
		}
	}
	return nil
}

// MarshalJSON writes known keys in a fixed order followed by extra keys in
// sorted order.
func (e Entry) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	for _, key := range entryKeys {
		if _, shadowed := e.Extra[key]; shadowed {
			continue
		}
		switch key {
		case "book_id":
			w.field(key, e.BookID)
		case "display_name":
			w.field(key, e.DisplayName)
		case "data_path":
			w.field(key, e.DataPath)
		case "data_url":
			w.field(key, e.DataURL)
		case "header":
			if e.Header != nil {
				w.field(key, *e.Header)
			}
		case "source_path":
			if e.SourcePath != nil {
				w.field(key, *e.SourcePath)
			}
		case "content_hash":
			if e.ContentHash != "" {
				w.field(key, e.ContentHash)
			}
		}
	}
	w.extras(e.Extra)
	return w.close()
}

// MarshalJSON writes version, generated_at, and books, then extra keys.
func (m Manifest) MarshalJSON() ([]byte, error) {
	w := newObjectWriter()
	if len(m.Version) > 0 {
		w.raw("version", m.Version)
	}
	if m.GeneratedAt != "" {
		w.field("generated_at", m.GeneratedAt)
	}
	books := m.Books
	if books == nil {
		books = []Entry{}
	}
	w.field("books", books)

	extra := make(map[string]json.RawMessage, len(m.Extra))
	for k, v := range m.Extra {
		if k == "version" || k == "books" || (k == "generated_at" && m.GeneratedAt != "") {
			continue
		}
		extra[k] = v
	}
	w.extras(extra)
	return w.close()
}

// Find returns the entry for bookID.
func (m *Manifest) Find(bookID string) (Entry, bool) {
	for _, e := range m.Books {
		if e.BookID == bookID {
			return e, true
		}
	}
	return Entry{}, false
}

// collides reports whether e must be replaced by next.
func (e Entry) collides(next Entry) bool {
	return (next.BookID != "" && e.BookID == next.BookID) ||
		(next.DataPath != "" && e.DataPath == next.DataPath) ||
		(next.DataURL != "" && e.DataURL == next.DataURL)
}

// Sort orders entries by case-folded display name, then case-folded book id.
// The sort is stable so exact ties keep their relative order.
func Sort(books []Entry) {
	folder := cases.Fold()
	sort.SliceStable(books, func(i, j int) bool {
		a, b := folder.String(books[i].DisplayName), folder.String(books[j].DisplayName)
		if a != b {
			return a < b
		}
		return folder.String(books[i].BookID) < folder.String(books[j].BookID)
	})
}

// Upsert evicts every entry that shares a book id, data path, or data URL with
// e, appends e, and re-sorts the list.
func (m *Manifest) Upsert(e Entry) {
	kept := make([]Entry, 0, len(m.Books)+1)
	for _, existing := range m.Books {
		if existing.collides(e) {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, e)
	Sort(kept)
	m.Books = kept
}

// Stamp sets the generation time and a default version.
func (m *Manifest) Stamp(now time.Time) {
	if len(m.Version) == 0 {
		m.Version = json.RawMessage(strconv.Itoa(FormatVersion))
	}
	m.GeneratedAt = now.UTC().Format(time.RFC3339)
}
