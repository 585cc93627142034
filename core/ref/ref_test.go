package ref

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected *Ref
		wantErr  bool
	}{
		{
			input:    "Mark 1:2",
			expected: &Ref{Book: "Mark", Chapter: 1, Verse: 2},
		},
		{
			input:    "Mark 16:20",
			expected: &Ref{Book: "Mark", Chapter: 16, Verse: 20},
		},
		{
			input:    "1 John 3:16",
			expected: &Ref{Book: "1 John", Chapter: 3, Verse: 16},
		},
		{
			input:    "1John 3:16",
			expected: &Ref{Book: "1John", Chapter: 3, Verse: 16},
		},
		{
			input:    "  Mark 2  ",
			expected: &Ref{Book: "Mark", Chapter: 2},
		},
		{input: "", wantErr: true},
		{input: "Mark", wantErr: true},
		{input: "Mark 1:", wantErr: true},
		{input: "1:2", wantErr: true},
		{input: "Mark 1:2 extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *got != *tt.expected {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		ref  *Ref
		want string
	}{
		{&Ref{Book: "Mark", Chapter: 1, Verse: 2}, "Mark 1:2"},
		{&Ref{Book: "1 John", Chapter: 3, Verse: 16}, "1 John 3:16"},
		{&Ref{Book: "Mark", Chapter: 4}, "Mark 4"},
	}
	for _, tt := range tests {
		if got := tt.ref.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range []string{"Mark 1:1", "Matthew 28:20", "2 Corinthians 13:13"} {
		if got := MustParse(s).String(); got != s {
			t.Errorf("MustParse(%q).String() = %q", s, got)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format("Mark", 1, 45); got != "Mark 1:45" {
		t.Errorf("Format() = %q, want %q", got, "Mark 1:45")
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid input")
		}
	}()
	MustParse("not a reference")
}
