package validation

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizePath(t *testing.T) {
	baseDir := t.TempDir()

	tests := []struct {
		name     string
		userPath string
		want     string
		wantErr  error
	}{
		{"simple file", "mark.json", "mark.json", nil},
		{"nested file", "books/mark.json", filepath.Join("books", "mark.json"), nil},
		{"redundant parts", "./books/../mark.json", "mark.json", nil},
		{"dotdot name is allowed", "mark..json", "mark..json", nil},
		{"empty", "", "", ErrEmptyPath},
		{"escape", "../secret", "", ErrPathTraversal},
		{"deep escape", "books/../../secret", "", ErrPathTraversal},
		{"absolute", "/etc/passwd", "", ErrPathTraversal},
		{"too long", strings.Repeat("a", MaxPathLength+1), "", ErrPathTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizePath(baseDir, tt.userPath)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SanitizePath(%q) error = %v, want %v", tt.userPath, err, tt.wantErr)
				}
				if IsPathSafe(baseDir, tt.userPath) {
					t.Errorf("IsPathSafe(%q) = true", tt.userPath)
				}
				return
			}
			if err != nil {
				t.Fatalf("SanitizePath(%q) error = %v", tt.userPath, err)
			}
			if got != tt.want {
				t.Errorf("SanitizePath(%q) = %q, want %q", tt.userPath, got, tt.want)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	if err := ValidatePath("viewer/data/mark.json"); err != nil {
		t.Errorf("ValidatePath(valid) error = %v", err)
	}
	if err := ValidatePath(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("ValidatePath(empty) error = %v", err)
	}
	if err := ValidatePath("data/\x00mark"); !errors.Is(err, ErrInvalidCharacter) {
		t.Errorf("ValidatePath(null) error = %v", err)
	}
	if err := ValidatePath("data/\nmark"); !errors.Is(err, ErrInvalidCharacter) {
		t.Errorf("ValidatePath(newline) error = %v", err)
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{"plain", "mark.json", nil},
		{"greek", "Κατὰ Μᾶρκον.json", nil},
		{"empty", "", ErrInvalidFilename},
		{"dot", ".", ErrInvalidFilename},
		{"dotdot", "..", ErrInvalidFilename},
		{"separator", "a/b.json", ErrInvalidFilename},
		{"backslash", `a\b.json`, ErrInvalidFilename},
		{"control", "mark\t.json", ErrInvalidFilename},
		{"hyphen", "-rf", ErrInvalidFilename},
		{"long", strings.Repeat("m", MaxFilenameLength+1), ErrFilenameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateFilename(%q) error = %v", tt.filename, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFilename(%q) error = %v, want %v", tt.filename, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBookID(t *testing.T) {
	valid := []string{"mark", "1john", "mark_greek", "GospelMark", "μαρκ"}
	for _, id := range valid {
		if err := ValidateBookID(id); err != nil {
			t.Errorf("ValidateBookID(%q) error = %v", id, err)
		}
	}

	invalid := []string{"", "1 john", "../mark", `a\b`, "mark?x", "mark#1", "..", strings.Repeat("x", MaxBookIDLength+1)}
	for _, id := range invalid {
		if err := ValidateBookID(id); !errors.Is(err, ErrInvalidBookID) {
			t.Errorf("ValidateBookID(%q) error = %v, want ErrInvalidBookID", id, err)
		}
	}
}

func TestValidateFileType(t *testing.T) {
	xzMagic := []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00, 0x00, 0x04}
	gzMagic := []byte{0x1f, 0x8b, 0x08, 0x00}

	tests := []struct {
		name     string
		content  []byte
		filename string
		want     FileType
		wantErr  bool
	}{
		{"tar.xz", xzMagic, "viewer-data.tar.xz", FileTypeTarXZ, false},
		{"tar.gz", gzMagic, "viewer-data.tar.gz", FileTypeTarGZ, false},
		{"xz", xzMagic, "mark.xz", FileTypeXZ, false},
		{"sqlite", []byte("SQLite format 3\x00rest"), "viewer.db", FileTypeSQLite, false},
		{"greek text", []byte("ΚΑΤΑ ΜΑΡΚΟΝ\nMark 1:1 Ἀρχὴ τοῦ εὐαγγελίου\n"), "Mark.txt", FileTypeText, false},
		{"xml", []byte(`<?xml version="1.0"?><book/>`), "Mark.xml", FileTypeXML, false},
		{"json", []byte(`{"books": []}`), "manifest.json", FileTypeJSON, false},
		{"empty text", nil, "Empty.txt", FileTypeText, false},
		{"binary as text", []byte{0x00, 0x01, 0x02}, "Mark.txt", FileTypeUnknown, true},
		{"gzip claiming xz", gzMagic, "viewer-data.tar.xz", FileTypeUnknown, true},
		{"unknown extension", []byte("hello"), "notes.bin", FileTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateFileType(bytes.NewReader(tt.content), tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateFileType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateFileType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectFileTypeFromExtension(t *testing.T) {
	tests := map[string]FileType{
		"a.tar.xz":   FileTypeTarXZ,
		"a.TXZ":      FileTypeTarXZ,
		"a.tgz":      FileTypeTarGZ,
		"a.sqlite3":  FileTypeSQLite,
		"Mark.XML":   FileTypeXML,
		"Mark.txt":   FileTypeText,
		"Mark":       FileTypeUnknown,
		"mark.jsonl": FileTypeUnknown,
	}
	for name, want := range tests {
		if got := DetectFileTypeFromExtension(name); got != want {
			t.Errorf("DetectFileTypeFromExtension(%q) = %q, want %q", name, got, want)
		}
	}
}
