package builder

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/manifest"
	"github.com/FocuswithJustin/sblgnt-viewer/core/payload"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/archive"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/validation"
)

// BundleConfig holds configuration for archiving a data directory.
type BundleConfig struct {
	DataDir  string // Directory holding the manifest and payloads
	Out      string // .tar.xz (or .tar.gz) destination
	Manifest string // Defaults to <DataDir>/manifest.json
	BaseDir  string // Directory name inside the archive, defaults to the Out stem
}

// Bundle checks that every manifest entry resolves to a payload whose content
// hash still matches, then archives the data directory and verifies the result.
// It returns the archived file names.
func Bundle(ctx context.Context, cfg BundleConfig) ([]string, error) {
	manifestPath := cfg.Manifest
	if manifestPath == "" {
		manifestPath = filepath.Join(cfg.DataDir, "manifest.json")
	}

	kind := validation.DetectFileTypeFromExtension(cfg.Out)
	if kind != validation.FileTypeTarXZ && kind != validation.FileTypeTarGZ {
		return nil, &errors.ValidationError{Field: "out", Value: cfg.Out, Message: "bundle must be a .tar.xz or .tar.gz file"}
	}
	if inside(cfg.DataDir, cfg.Out) {
		return nil, &errors.ValidationError{Field: "out", Value: cfg.Out, Message: "bundle cannot be written inside the data directory"}
	}

	if !sameDir(cfg.DataDir, filepath.Dir(manifestPath)) {
		return nil, &errors.ValidationError{Field: "manifest", Value: manifestPath, Message: "manifest must sit directly in the data directory being bundled"}
	}

	m, err := manifest.Read(manifestPath)
	if err != nil {
		return nil, err
	}
	if err := checkEntries(filepath.Dir(manifestPath), m); err != nil {
		return nil, err
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = bundleStem(cfg.Out)
	}

	if kind == validation.FileTypeTarGZ {
		err = archive.CreateTarGz(cfg.DataDir, cfg.Out, baseDir)
	} else {
		err = archive.CreateTarXz(cfg.DataDir, cfg.Out, baseDir)
	}
	if err != nil {
		return nil, errors.NewIO("bundle", cfg.Out, err)
	}

	names, err := verifyBundle(cfg.Out, filepath.Base(manifestPath))
	if err != nil {
		return nil, err
	}
	logging.InfoContext(ctx, "bundle_created",
		"path", cfg.Out,
		"files", len(names),
		"books", len(m.Books),
	)
	return names, nil
}

func checkEntries(dir string, m *manifest.Manifest) error {
	for _, e := range m.Books {
		rel, err := validation.SanitizePath(dir, filepath.FromSlash(e.DataPath))
		if err != nil {
			return &errors.ValidationError{Field: "data_path", Value: e.DataPath, Message: err.Error(), Err: err}
		}
		file := filepath.Join(dir, rel)
		if _, err := os.Stat(file); err != nil {
			return errors.NewNotFound("payload", file)
		}
		if e.ContentHash == "" {
			continue
		}
		hash, err := payload.FileHash(file)
		if err != nil {
			return err
		}
		if hash != e.ContentHash {
			return &errors.ValidationError{
				Field:   "content_hash",
				Value:   e.BookID,
				Message: "payload " + e.DataPath + " changed since the manifest was written; rebuild it",
			}
		}
	}
	return nil
}

// VerifyBundle opens a bundle, checks its compression matches its name, and
// confirms the bundled manifest only references bundled payloads. It returns
// the archived file names.
func VerifyBundle(bundlePath string) ([]string, error) {
	return verifyBundle(bundlePath, "manifest.json")
}

func verifyBundle(bundlePath, manifestName string) ([]string, error) {
	f, err := os.Open(bundlePath)
	if err != nil {
		return nil, errors.NewIO("open", bundlePath, err)
	}
	_, err = validation.ValidateFileType(f, bundlePath)
	f.Close()
	if err != nil {
		return nil, &errors.ValidationError{Field: "bundle", Value: bundlePath, Message: err.Error(), Err: err}
	}

	contents, err := archive.Scan(bundlePath, manifestName)
	if err != nil {
		return nil, errors.NewIO("read", bundlePath, err)
	}
	data, ok := contents.Files[manifestName]
	if !ok {
		return nil, errors.NewNotFound("bundled manifest", bundlePath+"!"+manifestName)
	}
	m, err := manifest.Decode(bundlePath+"!"+manifestName, data)
	if err != nil {
		return nil, err
	}

	for _, e := range m.Books {
		if !contents.Has(path.Clean(e.DataPath)) {
			return nil, errors.NewNotFound("bundled payload", e.DataPath)
		}
	}
	return contents.Names(), nil
}

func bundleStem(out string) string {
	name := filepath.Base(out)
	for _, ext := range []string{".tar.xz", ".tar.gz", ".txz", ".tgz"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

func inside(dir, file string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absFile, err := filepath.Abs(file)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absFile)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func sameDir(a, b string) bool {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false
	}
	return absA == absB
}
