package sblgnt

import (
	"strings"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/xml"
)

// SBLGNT XML element names.
const (
	tagParagraph   = "p"
	tagVerseNumber = "verse-number"
	tagPrefix      = "prefix"
	tagWord        = "w"
	tagSuffix      = "suffix"
)

// ParseXML parses an SBLGNT XML book and extracts its verses.
func ParseXML(data []byte) ([]Verse, error) {
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "XML", Message: err.Error(), Err: err}
	}
	return ExtractXML(doc), nil
}

// xmlVerseBuilder accumulates the token stream of the verse being read.
type xmlVerseBuilder struct {
	verses []Verse

	paragraph int // index of the most recent <p>, -1 before the first

	open           bool
	reference      string
	startParagraph int
	fragments      []string
	prefix         string
}

// ExtractXML walks every element of doc in document order and assembles verses.
//
// A <verse-number> starts a verse (its id attribute, else its text, is the
// reference). Words are joined with single spaces, except that pending
// <prefix> text attaches to the next word directly and <suffix> text always
// attaches to what precedes it. Each verse records the paragraph it opened in.
// Tokens before the first <verse-number> are ignored and verses without any
// text are dropped.
func ExtractXML(doc *xml.Document) []Verse {
	b := &xmlVerseBuilder{paragraph: -1}
	doc.Walk(func(n *xml.Node) bool {
		b.visit(n)
		return true
	})
	b.flush()
	return b.verses
}

func (b *xmlVerseBuilder) visit(n *xml.Node) {
	switch n.Name() {
	case tagParagraph:
		b.paragraph++

	case tagVerseNumber:
		b.flush()
		id, ok := n.LookupAttr("id")
		if !ok {
			id = n.Text()
		}
		b.open = true
		b.reference = strings.TrimSpace(id)
		b.startParagraph = b.paragraph
		b.fragments = nil
		b.prefix = ""

	case tagPrefix:
		b.prefix += n.Text()

	case tagWord:
		word := n.Text()
		if word == "" || !b.open {
			return
		}
		if b.prefix != "" {
			b.fragments = append(b.fragments, b.prefix+word)
			b.prefix = ""
			return
		}
		if k := len(b.fragments); k > 0 && !strings.HasSuffix(b.fragments[k-1], " ") {
			word = " " + word
		}
		b.fragments = append(b.fragments, word)

	case tagSuffix:
		if text := n.Text(); text != "" && b.open {
			b.fragments = append(b.fragments, text)
		}
	}
}

func (b *xmlVerseBuilder) flush() {
	if !b.open {
		return
	}
	b.open = false
	text := strings.TrimSpace(strings.Join(b.fragments, ""))
	b.fragments = nil
	if text == "" {
		return
	}
	b.verses = append(b.verses, Verse{
		Reference:      b.reference,
		Text:           text,
		ParagraphIndex: paragraphPtr(b.startParagraph),
	})
}
