// Package archive reads and writes the compressed tarballs used to ship
// viewer data. It supports tar.xz and tar.gz.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

type decoder func(io.Reader) (io.Reader, io.Closer, error)

// decoders maps bundle suffixes to decompressors.
var decoders = []struct {
	suffixes []string
	open     decoder
}{
	{[]string{".tar.xz", ".txz"}, func(r io.Reader) (io.Reader, io.Closer, error) {
		xr, err := xz.NewReader(r)
		return xr, nil, err
	}},
	{[]string{".tar.gz", ".tgz"}, func(r io.Reader) (io.Reader, io.Closer, error) {
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gr, gr, nil
	}},
}

func decoderFor(path string) decoder {
	name := strings.ToLower(path)
	for _, d := range decoders {
		for _, suffix := range d.suffixes {
			if strings.HasSuffix(name, suffix) {
				return d.open
			}
		}
	}
	return nil
}

// Reader streams the entries of a bundle.
type Reader struct {
	tr      *tar.Reader
	closers []io.Closer
}

// Open opens a bundle, choosing the decompressor from the file suffix.
func Open(path string) (*Reader, error) {
	open := decoderFor(path)
	if open == nil {
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	body, closer, err := open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}

	r := &Reader{tr: tar.NewReader(body)}
	if closer != nil {
		r.closers = append(r.closers, closer)
	}
	r.closers = append(r.closers, f)
	return r, nil
}

// Next advances to the next entry. It returns io.EOF after the last one.
func (r *Reader) Next() (*tar.Header, error) {
	return r.tr.Next()
}

// Read reads from the current entry.
func (r *Reader) Read(p []byte) (int, error) {
	return r.tr.Read(p)
}

// Close releases the decompressor and the file.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WalkFunc is called for each entry with the entry body. Returning
// fs.SkipAll ends the walk without error.
type WalkFunc func(header *tar.Header, body io.Reader) error

// Walk opens the bundle at path and calls fn for each entry in archive order.
func Walk(path string, fn WalkFunc) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	for {
		header, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if err := fn(header, r); err != nil {
			if err == fs.SkipAll {
				return nil
			}
			return err
		}
	}
}

// Entry is a regular file in a bundle.
type Entry struct {
	Name string // Archive name, e.g. "viewer-data/books/mark.json"
	Path string // Name below the top-level directory, e.g. "books/mark.json"
	Size int64
}

// Contents is what one pass over a bundle found.
type Contents struct {
	Entries []Entry
	Files   map[string][]byte // Bodies of the requested files, keyed by Entry.Path
}

// Names returns the archive names of every file, in archive order.
func (c *Contents) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

// Has reports whether a file with the given Path is bundled.
func (c *Contents) Has(path string) bool {
	for _, e := range c.Entries {
		if e.Path == path {
			return true
		}
	}
	return false
}

// Scan reads the bundle at path once, recording every regular file and
// keeping the bodies of the files whose Path is listed in keep.
func Scan(path string, keep ...string) (*Contents, error) {
	wanted := make(map[string]bool, len(keep))
	for _, k := range keep {
		wanted[k] = true
	}

	c := &Contents{Files: make(map[string][]byte)}
	err := Walk(path, func(header *tar.Header, body io.Reader) error {
		if header.Typeflag != tar.TypeReg {
			return nil
		}
		e := Entry{Name: header.Name, Path: stripTopLevel(header.Name), Size: header.Size}
		c.Entries = append(c.Entries, e)
		if !wanted[e.Path] {
			return nil
		}
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("read %s: %w", header.Name, err)
		}
		c.Files[e.Path] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func stripTopLevel(name string) string {
	if idx := strings.Index(name, "/"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}
