// Package inspect prints verses from the SBLGNT corpus so editors can
// spot-check content before it reaches the viewer.
package inspect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
	"github.com/FocuswithJustin/sblgnt-viewer/core/xml"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/corpus"
	"github.com/FocuswithJustin/sblgnt-viewer/internal/logging"
)

// NoMatches is printed when filtering leaves nothing to show.
const NoMatches = "No verses matched the requested filters."

// Options holds configuration for one inspection run.
type Options struct {
	Book           string // Book identifier, the corpus file stem
	Source         string // "xml" or "text"
	Limit          int    // Maximum verses to print, 0 for all
	Start          string // Start at the first reference with this prefix
	Contains       string // Keep verses containing this exact substring
	ListBooks      bool   // Only list the available books
	ShowParagraphs bool   // Append [¶n] to XML references
	Width          int    // Wrap column
	Summary        bool   // Print counts after the verses
}

// DefaultOptions returns the options used when no flags are given.
func DefaultOptions() Options {
	return Options{
		Book:   "Mark",
		Source: string(corpus.KindXML),
		Limit:  20,
		Width:  88,
	}
}

// StartNotFoundError is returned when no verse reference starts with Start.
type StartNotFoundError struct {
	Start string
}

func (e *StartNotFoundError) Error() string {
	return fmt.Sprintf("Start reference '%s' not found in selection", e.Start)
}

func (e *StartNotFoundError) Unwrap() error {
	return errors.ErrNotFound
}

// book is a loaded corpus file.
type book struct {
	verses []sblgnt.Verse
	doc    *xml.Document // nil for plain text
}

// Run executes an inspection and writes the result to stdout. Lenient parse
// diagnostics go to stderr.
func Run(ctx context.Context, cfg corpus.Config, opts Options, stdout, stderr io.Writer) error {
	kind, err := corpus.ParseKind(opts.Source)
	if err != nil {
		return err
	}

	if opts.ListBooks {
		books, err := cfg.ListBooks(kind)
		if err != nil {
			return err
		}
		for _, b := range books {
			fmt.Fprintln(stdout, b)
		}
		return nil
	}

	path, err := cfg.EnsureBook(opts.Book, kind)
	if err != nil {
		return err
	}

	var loaded *book
	if kind == corpus.KindText {
		loaded, err = loadText(ctx, opts.Book, path, stderr)
	} else {
		loaded, err = loadXML(path)
	}
	if err != nil {
		return err
	}

	verses := loaded.verses
	// The title is rarely what a substring search is after.
	if opts.Contains != "" && len(verses) > 0 && verses[0].IsTitle() {
		verses = verses[1:]
	}

	selected, err := Filter(verses, opts.Start, opts.Contains)
	if err != nil {
		return err
	}
	if opts.Limit > 0 && len(selected) > opts.Limit {
		selected = selected[:opts.Limit]
	}

	if len(selected) == 0 {
		fmt.Fprintln(stdout, NoMatches)
	}
	for _, v := range selected {
		if v.IsTitle() {
			fmt.Fprintln(stdout, v.Text)
			continue
		}
		fmt.Fprintln(stdout, Format(v, opts.Width, opts.ShowParagraphs))
	}

	if opts.Summary {
		summary, err := summarize(opts.Book, kind, loaded)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, summary)
	}
	return nil
}

func loadText(ctx context.Context, bookName, path string, stderr io.Writer) (*book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	lines, err := sblgnt.ReadLines(f)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}

	res := sblgnt.ParseLenient(lines)
	name := filepath.Base(path)
	for _, d := range res.Diagnostics {
		fmt.Fprintf(stderr, "Skipping %s in %s: %s\n", d.Message, name, d.Line)
		logging.ParseDiagnostic(ctx, bookName, d.LineNumber, d.Message, d.Line)
	}
	return &book{verses: res.Verses}, nil
}

func loadXML(path string) (*book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, &errors.ParseError{Format: "XML", Path: path, Message: err.Error(), Err: err}
	}
	return &book{verses: sblgnt.ExtractXML(doc), doc: doc}, nil
}

// Filter applies the start and contains filters. With start set, output
// begins at the first verse whose reference starts with it, compared
// case-insensitively. With contains set, only verses whose text contains it
// exactly are kept.
func Filter(verses []sblgnt.Verse, start, contains string) ([]sblgnt.Verse, error) {
	collected := verses
	if start != "" {
		prefix := strings.ToLower(start)
		found := false
		for i, v := range collected {
			if strings.HasPrefix(strings.ToLower(v.Reference), prefix) {
				collected = collected[i:]
				found = true
				break
			}
		}
		if !found {
			return nil, &StartNotFoundError{Start: start}
		}
	}

	if contains != "" {
		var kept []sblgnt.Verse
		for _, v := range collected {
			if strings.Contains(v.Text, contains) {
				kept = append(kept, v)
			}
		}
		collected = kept
	}
	return collected, nil
}

// Format renders a verse as "<ref>: <text>" wrapped to width, with
// continuation lines aligned under the text. Words longer than the available
// width are split.
func Format(v sblgnt.Verse, width int, showParagraphs bool) string {
	reference := v.Reference
	if p, ok := v.Paragraph(); showParagraphs && ok {
		reference = fmt.Sprintf("%s [¶%d]", reference, p)
	}

	hang := utf8.RuneCountInString(reference) + 2
	limit := width - hang
	if limit < 1 {
		limit = 1
	}

	lines := strings.SplitN(wrap.String(wordwrap.String(v.Text, limit), limit), "\n", 2)
	var b bytes.Buffer
	b.WriteString(reference)
	b.WriteString(": ")
	b.WriteString(lines[0])
	if len(lines) > 1 {
		b.WriteByte('\n')
		b.WriteString(indent.String(lines[1], uint(hang)))
	}
	return b.String()
}

// summarize describes a loaded book. XML books also report the paragraph and
// verse marker counts of the source document.
func summarize(bookName string, kind corpus.Kind, b *book) (string, error) {
	verses := 0
	for _, v := range b.verses {
		if !v.IsTitle() {
			verses++
		}
	}

	summary := fmt.Sprintf("%s (%s): %d verses", bookName, kind, verses)
	if b.doc == nil {
		return summary, nil
	}

	paragraphs, err := b.doc.Count("count(//p)")
	if err != nil {
		return "", err
	}
	markers, err := b.doc.Count("count(//verse-number)")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, %d paragraphs, %d verse markers", summary, paragraphs, markers), nil
}
