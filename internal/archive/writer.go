package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"
)

// ModTime is stamped on every entry so identical inputs give identical archives.
var ModTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CreateTarXz creates a tar.xz archive from a source directory. The baseDir
// parameter specifies the directory name inside the archive. Parent
// directories of dstPath are created.
func CreateTarXz(srcDir, dstPath, baseDir string) error {
	return create(dstPath, func(w io.Writer) (io.WriteCloser, error) {
		return xz.NewWriter(w)
	}, srcDir, baseDir)
}

// CreateTarGz creates a tar.gz archive the same way CreateTarXz does.
func CreateTarGz(srcDir, dstPath, baseDir string) error {
	return create(dstPath, func(w io.Writer) (io.WriteCloser, error) {
		return gzip.NewWriter(w), nil
	}, srcDir, baseDir)
}

func create(dstPath string, compress func(io.Writer) (io.WriteCloser, error), srcDir, baseDir string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	outFile, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := outFile.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close archive file: %w", cerr)
		}
	}()

	cw, err := compress(outFile)
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}

	tw := tar.NewWriter(cw)
	if err := writeTree(tw, srcDir, baseDir); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish tar stream: %w", err)
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return nil
}

// writeTree adds srcDir to tw. WalkDir visits entries in lexical order.
func writeTree(tw *tar.Writer, srcDir, baseDir string) error {
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		header.Name = filepath.ToSlash(filepath.Join(baseDir, relPath))
		if info.IsDir() {
			header.Name += "/"
		}
		header.ModTime = ModTime
		header.AccessTime = time.Time{}
		header.ChangeTime = time.Time{}
		header.Uid, header.Gid = 0, 0
		header.Uname, header.Gname = "", ""
		header.Format = tar.FormatPAX

		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		_, err = io.Copy(tw, file)
		return err
	})
}
