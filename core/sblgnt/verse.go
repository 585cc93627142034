// Package sblgnt extracts verse records from the two SBLGNT source encodings:
// line-oriented plain text and the XML token stream.
//
// Plain text has two parsers with different failure philosophies. ParseStrict
// is used to build viewer payloads and rejects anything it cannot place.
// ParseLenient is used by the inspection tool and keeps going past malformed
// lines, reporting them as diagnostics.
package sblgnt

// TitleReference is the pseudo-reference lenient parsing gives the title line.
const TitleReference = "TITLE"

// Verse is one verse of a book in document order.
type Verse struct {
	Reference string `json:"reference"`
	Text      string `json:"text"`

	// ParagraphIndex is the 0-based index of the paragraph holding the verse's
	// opening. Only XML sources carry paragraphs; nil means unknown.
	ParagraphIndex *int `json:"paragraph_index,omitempty"`
}

// Paragraph returns the paragraph index and whether it is known.
func (v Verse) Paragraph() (int, bool) {
	if v.ParagraphIndex == nil {
		return -1, false
	}
	return *v.ParagraphIndex, true
}

// IsTitle reports whether v is the lenient parser's title pseudo-verse.
func (v Verse) IsTitle() bool {
	return v.Reference == TitleReference
}

func paragraphPtr(i int) *int {
	if i < 0 {
		return nil
	}
	return &i
}
