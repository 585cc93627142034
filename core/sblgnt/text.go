package sblgnt

import (
	"bufio"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
)

// versePattern matches a verse header line: "<book> <chapter>:<verse> <text>".
// The book token allows a leading 1-3 for numbered books ("1 John", "2Cor").
var versePattern = regexp.MustCompile(`^([1-3]?\s?[A-Za-z]+)\s+(\d+):(\d+)\s+(\S.*)$`)

// maxLineBytes bounds a single source line. SBLGNT verse lines are far shorter.
const maxLineBytes = 1 << 20

// ParseStrict parses plain-text book lines into the document header and its verses.
//
// Blank lines are skipped and the first remaining line is the header. A verse
// header line starts a new verse; any other line continues the current verse.
// Text before the first verse header is an UnexpectedContentError, no lines at
// all is an EmptyInputError, and no verses is an EmptyCorpusError.
func ParseStrict(lines []string) (string, []Verse, error) {
	i := 0
	header := ""
	for ; i < len(lines); i++ {
		if trimmed := strings.TrimSpace(lines[i]); trimmed != "" {
			header = trimmed
			i++
			break
		}
	}
	if header == "" {
		return "", nil, &errors.EmptyInputError{}
	}

	var verses []Verse
	var current *Verse

	for ; i < len(lines); i++ {
		line := strings.TrimRightFunc(lines[i], unicode.IsSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := versePattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				verses = append(verses, *current)
			}
			current = &Verse{
				Reference: m[1] + " " + m[2] + ":" + m[3],
				Text:      strings.TrimSpace(m[4]),
			}
			continue
		}

		if current == nil {
			return "", nil, &errors.UnexpectedContentError{Line: line, LineNumber: i + 1}
		}
		current.Text = current.Text + " " + strings.TrimSpace(line)
	}

	if current != nil {
		verses = append(verses, *current)
	}
	if len(verses) == 0 {
		return "", nil, &errors.EmptyCorpusError{}
	}
	return header, verses, nil
}

// ParseStrictReader reads r line by line and parses it with ParseStrict.
func ParseStrictReader(r io.Reader) (string, []Verse, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return "", nil, err
	}
	return ParseStrict(lines)
}

// ReadLines splits r into lines, dropping "\n" and "\r\n" terminators.
func ReadLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading lines")
	}
	return lines, nil
}
