package manifest

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/payload"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/fileutil"
)

// Option configures Update.
type Option func(*updateOptions)

type updateOptions struct {
	now         func() time.Time
	contentHash string
}

// WithClock overrides the time source used for generated_at.
func WithClock(now func() time.Time) Option {
	return func(o *updateOptions) { o.now = now }
}

// WithContentHash records the payload's content hash on its entry.
func WithContentHash(hash string) Option {
	return func(o *updateOptions) { o.contentHash = hash }
}

// Update inserts or refreshes the entry for p in the manifest at manifestPath,
// creating the manifest when it does not exist. payloadPath is where p was
// written. The returned manifest is what was persisted.
func Update(manifestPath, payloadPath string, p *payload.BookPayload, opts ...Option) (*Manifest, error) {
	o := updateOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(manifestPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("mkdir", dir, err)
	}

	m, err := Read(manifestPath)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		m = &Manifest{}
	case err != nil:
		return nil, err
	}

	m.Upsert(NewEntry(manifestPath, payloadPath, p, o.contentHash))
	m.Stamp(o.now())

	if err := Write(manifestPath, m); err != nil {
		return nil, err
	}
	return m, nil
}

// NewEntry builds the manifest entry for a payload written to payloadPath.
func NewEntry(manifestPath, payloadPath string, p *payload.BookPayload, contentHash string) Entry {
	dataPath := RelativeDataPath(manifestPath, payloadPath)
	header := p.Header
	source := p.SourcePath
	return Entry{
		BookID:      p.BookID,
		DisplayName: p.DisplayName,
		DataPath:    dataPath,
		DataURL:     DataURL(manifestPath, dataPath),
		Header:      &header,
		SourcePath:  &source,
		ContentHash: contentHash,
	}
}

// RelativeDataPath returns payloadPath relative to the manifest's directory in
// slash form, or the payload's base name when it lies outside that directory.
func RelativeDataPath(manifestPath, payloadPath string) string {
	fallback := filepath.Base(payloadPath)

	dir, err := filepath.Abs(filepath.Dir(manifestPath))
	if err != nil {
		return fallback
	}
	target, err := filepath.Abs(payloadPath)
	if err != nil {
		return fallback
	}
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fallback
	}
	return filepath.ToSlash(rel)
}

// DataURL prefixes dataPath with the name of the manifest's directory, as the
// viewer resolves payloads relative to its own root.
func DataURL(manifestPath, dataPath string) string {
	name := filepath.Base(filepath.Dir(manifestPath))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return dataPath
	}
	return path.Join(name, dataPath)
}

// Write persists m at file as indented JSON with a trailing newline.
func Write(file string, m *Manifest) error {
	data, err := payload.EncodeJSON(m)
	if err != nil {
		return errors.Wrapf(err, "encoding manifest %s", file)
	}
	if err := fileutil.WriteFileAtomic(file, data, 0644); err != nil {
		return errors.NewIO("write", file, err)
	}
	return nil
}
