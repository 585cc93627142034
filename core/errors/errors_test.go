package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestDomainErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantBase error
	}{
		{
			name:     "empty input without path",
			err:      &EmptyInputError{},
			wantMsg:  "input file is empty",
			wantBase: ErrEmptyInput,
		},
		{
			name:     "empty input with path",
			err:      &EmptyInputError{Path: "Mark.txt"},
			wantMsg:  "input file is empty: Mark.txt",
			wantBase: ErrEmptyInput,
		},
		{
			name:     "unexpected content",
			err:      &UnexpectedContentError{Line: "stray words", LineNumber: 3},
			wantMsg:  "unexpected line before any verse content (line 3): stray words",
			wantBase: ErrUnexpectedContent,
		},
		{
			name:     "unexpected content without line number",
			err:      &UnexpectedContentError{Line: "stray words"},
			wantMsg:  "unexpected line before any verse content: stray words",
			wantBase: ErrUnexpectedContent,
		},
		{
			name:     "empty corpus",
			err:      &EmptyCorpusError{},
			wantMsg:  "no verses were parsed from the file",
			wantBase: ErrEmptyCorpus,
		},
		{
			name:     "malformed manifest",
			err:      NewMalformedManifest("data/manifest.json", "must contain a JSON object", nil),
			wantMsg:  "manifest file 'data/manifest.json' must contain a JSON object",
			wantBase: ErrMalformedManifest,
		},
		{
			name:     "unknown book",
			err:      NewUnknownBook("Missing", "text", []string{"Another", "Mark"}),
			wantMsg:  "Unknown book 'Missing' for source 'text'.\nAvailable options: Another, Mark",
			wantBase: ErrUnknownBook,
		},
		{
			name:     "corpus missing",
			err:      NewCorpusMissing("text", "/tmp/absent"),
			wantMsg:  "SBLGNT text corpus not found at /tmp/absent.\nFetch it with: git submodule update --init --recursive",
			wantBase: ErrCorpusMissing,
		},
		{
			name:     "corpus empty",
			err:      &CorpusMissingError{Source: "xml", Dir: "/tmp/xml", Reason: "does not contain any .xml files"},
			wantMsg:  "SBLGNT xml corpus at /tmp/xml does not contain any .xml files",
			wantBase: ErrCorpusMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, tt.wantBase) {
				t.Errorf("errors.Is(%v, %v) = false, want true", tt.err, tt.wantBase)
			}
		})
	}
}

func TestMalformedManifestKeepsDecodeError(t *testing.T) {
	var target any
	decodeErr := json.Unmarshal([]byte("{not json"), &target)
	if decodeErr == nil {
		t.Fatal("expected decode error")
	}

	err := NewMalformedManifest("manifest.json", "contains invalid JSON", decodeErr)
	if !errors.Is(err, ErrMalformedManifest) {
		t.Error("should match ErrMalformedManifest")
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Error("should expose the underlying *json.SyntaxError")
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "start reference", ID: "Mark 2"},
			wantMsg:  "start reference not found: Mark 2",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "payload"},
			wantMsg:  "payload not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "file", ID: "mark.json", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name:    "with field",
			err:     &ValidationError{Field: "book_id", Message: "must not be empty"},
			wantMsg: "validation failed for book_id: must not be empty",
		},
		{
			name:    "without field",
			err:     &ValidationError{Message: "invalid format"},
			wantMsg: "validation failed: invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("ValidationError should unwrap to ErrInvalidInput")
			}
		})
	}
}

func TestValidationErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("path traversal detected")
	err := &ValidationError{Field: "data_path", Value: "../x.json", Message: cause.Error(), Err: cause}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should unwrap to ErrInvalidInput")
	}
	if !errors.Is(err, cause) {
		t.Error("ValidationError should unwrap to its cause")
	}
}

func TestIOError(t *testing.T) {
	baseErr := fmt.Errorf("permission denied")
	err := NewIO("write", "/data/mark.json", baseErr)
	if got, want := err.Error(), "failed to write /data/mark.json: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, baseErr) {
		t.Error("IOError should unwrap to the underlying error")
	}

	noPath := &IOError{Operation: "read", Err: baseErr}
	if got, want := noPath.Error(), "failed to read: permission denied"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseError(t *testing.T) {
	err := NewParse("XML", "Mark.xml", "unexpected EOF")
	if got, want := err.Error(), "failed to parse XML at Mark.xml: unexpected EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ParseError without Err should unwrap to ErrInvalidInput")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should return nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}

	wrapped := Wrapf(&EmptyCorpusError{}, "building %s", "mark")
	if !errors.Is(wrapped, ErrEmptyCorpus) {
		t.Error("Wrapf should preserve the error chain")
	}
	if !strings.HasPrefix(wrapped.Error(), "building mark: ") {
		t.Errorf("Wrapf() = %q, want prefix %q", wrapped.Error(), "building mark: ")
	}
}

func TestIsAs(t *testing.T) {
	err := Wrap(NewUnknownBook("Luke", "xml", nil), "inspect")
	if !Is(err, ErrUnknownBook) {
		t.Error("Is() failed to match UnknownBookError to ErrUnknownBook")
	}
	var ub *UnknownBookError
	if !As(err, &ub) {
		t.Fatal("As() failed to match UnknownBookError")
	}
	if ub.Book != "Luke" {
		t.Errorf("As() Book = %q, want %q", ub.Book, "Luke")
	}
}
