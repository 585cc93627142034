// Package corpus locates SBLGNT book files inside the checked-out corpus.
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/validation"
)

// Kind selects one of the two corpus encodings.
type Kind string

const (
	KindText Kind = "text"
	KindXML  Kind = "xml"
)

// ParseKind parses a --source value.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindText:
		return KindText, nil
	case KindXML:
		return KindXML, nil
	default:
		return "", errors.NewValidation("source", fmt.Sprintf("unknown source %q (want text or xml)", s))
	}
}

// Suffix returns the file extension used by the kind.
func (k Kind) Suffix() string {
	if k == KindText {
		return ".txt"
	}
	return ".xml"
}

// Config holds the corpus roots.
type Config struct {
	TextRoot string // Directory of <Book>.txt files
	XMLRoot  string // Directory of <Book>.xml files
}

// Dir returns the configured directory for kind.
func (c Config) Dir(kind Kind) string {
	if kind == KindText {
		return c.TextRoot
	}
	return c.XMLRoot
}

// Resolve returns the directory for kind, checking that it exists and holds
// at least one book file.
func (c Config) Resolve(kind Kind) (string, error) {
	dir := c.Dir(kind)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", errors.NewCorpusMissing(string(kind), dir)
	}

	books, err := listStems(dir, kind.Suffix())
	if err != nil {
		return "", err
	}
	if len(books) == 0 {
		return "", &errors.CorpusMissingError{
			Source: string(kind),
			Dir:    dir,
			Reason: fmt.Sprintf("does not contain any %s files", kind.Suffix()),
		}
	}
	return dir, nil
}

// ListBooks returns the sorted book identifiers available for kind.
func (c Config) ListBooks(kind Kind) ([]string, error) {
	dir, err := c.Resolve(kind)
	if err != nil {
		return nil, err
	}
	return listStems(dir, kind.Suffix())
}

// EnsureBook checks that book exists for kind and returns its file path.
func (c Config) EnsureBook(book string, kind Kind) (string, error) {
	dir, err := c.Resolve(kind)
	if err != nil {
		return "", err
	}

	name := book + kind.Suffix()
	if validation.ValidateFilename(name) == nil {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	available, err := listStems(dir, kind.Suffix())
	if err != nil {
		return "", err
	}
	return "", errors.NewUnknownBook(book, string(kind), available)
}

func listStems(dir, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.NewIO("read directory", dir, err)
	}

	var stems []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, suffix) {
			continue
		}
		stems = append(stems, strings.TrimSuffix(name, suffix))
	}
	sort.Strings(stems)
	return stems, nil
}
