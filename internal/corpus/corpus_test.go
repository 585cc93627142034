package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	cfg := Config{
		TextRoot: filepath.Join(root, "text"),
		XMLRoot:  filepath.Join(root, "xml"),
	}
	writeFiles(t, cfg.TextRoot, "Mark.txt", "John.txt", "1John.txt", "README.md")
	writeFiles(t, cfg.XMLRoot, "Mark.xml")
	return cfg
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"text", KindText, false},
		{"XML", KindXML, false},
		{" xml ", KindXML, false},
		{"usfm", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListBooks(t *testing.T) {
	cfg := testConfig(t)

	got, err := cfg.ListBooks(KindText)
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if diff := cmp.Diff([]string{"1John", "John", "Mark"}, got); diff != "" {
		t.Errorf("ListBooks(text) mismatch (-want +got):\n%s", diff)
	}

	got, err = cfg.ListBooks(KindXML)
	if err != nil {
		t.Fatalf("ListBooks() error = %v", err)
	}
	if diff := cmp.Diff([]string{"Mark"}, got); diff != "" {
		t.Errorf("ListBooks(xml) mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveMissing(t *testing.T) {
	cfg := Config{TextRoot: filepath.Join(t.TempDir(), "absent")}

	_, err := cfg.Resolve(KindText)
	if !errors.Is(err, errors.ErrCorpusMissing) {
		t.Fatalf("Resolve() error = %v, want ErrCorpusMissing", err)
	}
	if !strings.Contains(err.Error(), "git submodule update --init --recursive") {
		t.Errorf("error should explain how to fetch the corpus: %v", err)
	}
}

func TestResolveEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.md")
	cfg := Config{TextRoot: dir}

	_, err := cfg.Resolve(KindText)
	var missing *errors.CorpusMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Resolve() error = %v, want *CorpusMissingError", err)
	}
	if !strings.Contains(missing.Error(), "does not contain any .txt files") {
		t.Errorf("Error() = %q", missing.Error())
	}
}

func TestEnsureBook(t *testing.T) {
	cfg := testConfig(t)

	path, err := cfg.EnsureBook("Mark", KindText)
	if err != nil {
		t.Fatalf("EnsureBook(Mark) error = %v", err)
	}
	if path != filepath.Join(cfg.TextRoot, "Mark.txt") {
		t.Errorf("EnsureBook(Mark) = %q", path)
	}

	for _, book := range []string{"Luke", "../text/Mark"} {
		_, err := cfg.EnsureBook(book, KindText)
		var unknown *errors.UnknownBookError
		if !errors.As(err, &unknown) {
			t.Fatalf("EnsureBook(%q) error = %v, want *UnknownBookError", book, err)
		}
		if diff := cmp.Diff([]string{"1John", "John", "Mark"}, unknown.Available); diff != "" {
			t.Errorf("Available mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestEnsureBookMessage(t *testing.T) {
	cfg := testConfig(t)
	_, err := cfg.EnsureBook("Luke", KindXML)
	want := "Unknown book 'Luke' for source 'xml'.\nAvailable options: Mark"
	if err == nil || err.Error() != want {
		t.Errorf("EnsureBook() error = %q, want %q", err, want)
	}
}
