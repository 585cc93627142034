// Package payload builds, writes, and reads the per-book JSON documents the
// viewer loads.
package payload

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/fileutil"
)

// HashPrefix is the algorithm tag on content hashes.
const HashPrefix = "blake3:"

// BookPayload is the JSON document for one book.
type BookPayload struct {
	BookID      string         `json:"book_id"`
	DisplayName string         `json:"display_name"`
	Header      string         `json:"header"`
	SourcePath  string         `json:"source_path"`
	Verses      []sblgnt.Verse `json:"verses"`
}

// Build reads the plain-text book at path and parses it in strict mode.
// Parse failures are returned unchanged.
func Build(path string) (string, []sblgnt.Verse, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	header, verses, err := sblgnt.ParseStrictReader(f)
	if err != nil {
		var empty *errors.EmptyInputError
		var noVerses *errors.EmptyCorpusError
		switch {
		case errors.As(err, &empty):
			empty.Path = path
		case errors.As(err, &noVerses):
			noVerses.Path = path
		}
		return "", nil, err
	}
	return header, verses, nil
}

// New assembles a payload. A nil verse slice is stored as empty so the
// document always carries a "verses" array.
func New(bookID, displayName, header, sourcePath string, verses []sblgnt.Verse) *BookPayload {
	if verses == nil {
		verses = []sblgnt.Verse{}
	}
	return &BookPayload{
		BookID:      bookID,
		DisplayName: displayName,
		Header:      header,
		SourcePath:  sourcePath,
		Verses:      verses,
	}
}

// Marshal encodes p as UTF-8 JSON with two-space indentation and a trailing
// newline. Non-ASCII text and HTML characters are written verbatim.
func Marshal(p *BookPayload) ([]byte, error) {
	return EncodeJSON(p)
}

// EncodeJSON is the shared pretty-printer for viewer data files.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores p at path, creating parent directories, and returns the content
// hash of the written bytes.
func Write(path string, p *BookPayload) (string, error) {
	data, err := Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload %s: %w", p.BookID, err)
	}

	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return "", errors.NewIO("write", path, err)
	}
	return ContentHash(data), nil
}

// Read decodes the payload file at path.
func Read(path string) (*BookPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("payload", path)
		}
		return nil, errors.NewIO("read", path, err)
	}

	var p BookPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: path, Message: err.Error(), Err: err}
	}
	return &p, nil
}

// ContentHash returns the "blake3:<hex>" digest of data.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// FileHash hashes the file at path the same way Write does.
func FileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIO("read", path, err)
	}
	return ContentHash(data), nil
}
