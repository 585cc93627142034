// Package builder turns corpus books into viewer payloads and keeps the
// viewer manifest current.
package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/manifest"
	"github.com/FocuswithJustin/sblgnt-viewer/core/payload"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/corpus"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/validation"
)

// BuildConfig holds configuration for building one book.
type BuildConfig struct {
	Input       string      // Source book file
	Output      string      // Payload JSON destination
	Source      corpus.Kind // Defaults to text
	DisplayName string      // Defaults to the input file stem
	BookID      string      // Defaults to the lower-cased input file stem
	Manifest    string      // Defaults to <output dir>/manifest.json

	// Now overrides the clock used for generated_at.
	Now func() time.Time
}

// BuildResult describes what Build wrote.
type BuildResult struct {
	Payload      *payload.BookPayload
	PayloadPath  string
	ManifestPath string
	ContentHash  string
	Manifest     *manifest.Manifest
}

// Build parses the input book, writes its payload, and records it in the
// manifest. Nothing is written when parsing fails, and the manifest is only
// touched after the payload is on disk.
func Build(ctx context.Context, cfg BuildConfig) (*BuildResult, error) {
	if err := validation.ValidatePath(cfg.Input); err != nil {
		return nil, &errors.ValidationError{Field: "input", Value: cfg.Input, Message: err.Error(), Err: err}
	}
	if err := validation.ValidatePath(cfg.Output); err != nil {
		return nil, &errors.ValidationError{Field: "output", Value: cfg.Output, Message: err.Error(), Err: err}
	}

	kind := cfg.Source
	if kind == "" {
		kind = corpus.KindText
	}

	stem := strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))
	bookID := cfg.BookID
	if bookID == "" {
		bookID = strings.ToLower(stem)
	}
	if err := validation.ValidateBookID(bookID); err != nil {
		return nil, &errors.ValidationError{Field: "book_id", Value: bookID, Message: err.Error(), Err: err}
	}
	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = stem
	}

	if err := checkInput(cfg.Input); err != nil {
		return nil, err
	}

	var header string
	var verses []sblgnt.Verse
	var err error
	switch kind {
	case corpus.KindText:
		header, verses, err = payload.Build(cfg.Input)
	case corpus.KindXML:
		verses, err = buildXML(cfg.Input)
	default:
		err = errors.NewValidation("source", "unknown source "+string(kind))
	}
	if err != nil {
		return nil, err
	}

	p := payload.New(bookID, displayName, header, cfg.Input, verses)
	hash, err := payload.Write(cfg.Output, p)
	if err != nil {
		return nil, err
	}
	logging.PayloadWritten(ctx, bookID, cfg.Output, len(verses), "content_hash", hash, "source", string(kind))

	manifestPath := cfg.Manifest
	if manifestPath == "" {
		manifestPath = filepath.Join(filepath.Dir(cfg.Output), "manifest.json")
	}
	opts := []manifest.Option{manifest.WithContentHash(hash)}
	if cfg.Now != nil {
		opts = append(opts, manifest.WithClock(cfg.Now))
	}
	m, err := manifest.Update(manifestPath, cfg.Output, p, opts...)
	if err != nil {
		return nil, err
	}
	logging.ManifestUpdated(ctx, manifestPath, bookID, len(m.Books))

	return &BuildResult{
		Payload:      p,
		PayloadPath:  cfg.Output,
		ManifestPath: manifestPath,
		ContentHash:  hash,
		Manifest:     m,
	}, nil
}

// checkInput rejects inputs whose content contradicts their extension, such
// as a compressed file named .txt.
func checkInput(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.NewIO("open", path, err)
	}
	defer f.Close()

	if _, err := validation.ValidateFileType(f, path); err != nil {
		return &errors.ValidationError{Field: "input", Value: path, Message: err.Error(), Err: err}
	}
	return nil
}

// buildXML extracts verses from an XML book. XML books carry no header line.
func buildXML(path string) ([]sblgnt.Verse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	verses, err := sblgnt.ParseXML(data)
	if err != nil {
		var perr *errors.ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	if len(verses) == 0 {
		return nil, &errors.EmptyCorpusError{Path: path}
	}
	return verses, nil
}
