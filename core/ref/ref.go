// Package ref parses and formats the verse references used across the corpus,
// e.g. "Mark 1:2" or "1 John 3:16".
package ref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref is a single-verse reference.
type Ref struct {
	// Book is the book token exactly as written (e.g. "Mark", "1 John", "1John").
	Book string `json:"book"`

	// Chapter is the chapter number (1-indexed).
	Chapter int `json:"chapter"`

	// Verse is the verse number (1-indexed, 0 for whole-chapter references).
	Verse int `json:"verse,omitempty"`
}

// refGrammar is the participle grammar for references.
// Examples: "Mark 1", "Mark 1:2", "1 John 3:16", "1John 3:16"
//
//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	BookPrefix string       `@Int?`
	BookName   string       `@Ident`
	ChapterRef *chapterPart `@@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type chapterPart struct {
	Pos     lexer.Position
	Chapter int  `@Int`
	Verse   *int `( ":" @Int )?`
}

// refLexer defines the lexer for references.
var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Punct", Pattern: `:`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// refParser is the participle parser for references.
var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// Parse parses a reference string.
// Supported formats:
//   - "Mark 1" (book and chapter)
//   - "Mark 1:2" (book, chapter, and verse)
//   - "1 John 3:16" / "1John 3:16" (numbered books)
func Parse(s string) (*Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty reference string")
	}

	parsed, err := refParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("invalid reference format: %q: %w", s, err)
	}

	r := &Ref{
		// Slice the original text so "1 John" and "1John" round-trip as written.
		Book:    strings.TrimSpace(s[:parsed.ChapterRef.Pos.Offset]),
		Chapter: parsed.ChapterRef.Chapter,
	}
	if parsed.ChapterRef.Verse != nil {
		r.Verse = *parsed.ChapterRef.Verse
	}
	return r, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) *Ref {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Format builds the canonical "<book> <chapter>:<verse>" string.
func Format(book string, chapter, verse int) string {
	return book + " " + strconv.Itoa(chapter) + ":" + strconv.Itoa(verse)
}

// String returns the canonical string form of the reference.
func (r *Ref) String() string {
	if r.Verse == 0 {
		return r.Book + " " + strconv.Itoa(r.Chapter)
	}
	return Format(r.Book, r.Chapter, r.Verse)
}
