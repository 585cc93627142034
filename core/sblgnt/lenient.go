package sblgnt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Diagnostic describes a line the lenient parser could not place.
type Diagnostic struct {
	LineNumber int    // 1-based physical line number
	Line       string // Offending line, right-trimmed
	Message    string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.LineNumber, d.Message, d.Line)
}

// Diagnostic messages.
const (
	DiagUnexpectedLine       = "unexpected line"
	DiagOrphanedContinuation = "continuation before any verse"
)

// LenientResult is the output of ParseLenient.
type LenientResult struct {
	Verses      []Verse
	Diagnostics []Diagnostic
}

// ParseLenient parses plain-text book lines for inspection.
//
// The first physical line becomes a TITLE pseudo-verse when it is not blank.
// After that, indentation decides continuation: a whitespace-led line extends
// the current verse, and any other line closes it. A closing line with at least
// three tokens starts a new verse ("<book> <chapter>:<verse> <text...>");
// shorter lines are reported as diagnostics and parsing resumes at the next
// header. ParseLenient never fails.
func ParseLenient(lines []string) LenientResult {
	var res LenientResult
	if len(lines) == 0 {
		return res
	}

	if title := strings.TrimSpace(lines[0]); title != "" {
		res.Verses = append(res.Verses, Verse{Reference: TitleReference, Text: title})
	}

	currentRef := ""
	var buffer []string

	flush := func() {
		if currentRef == "" {
			return
		}
		if text := strings.TrimSpace(strings.Join(buffer, " ")); text != "" {
			res.Verses = append(res.Verses, Verse{Reference: currentRef, Text: text})
		}
		currentRef = ""
		buffer = nil
	}

	for i := 1; i < len(lines); i++ {
		raw := lines[i]
		if strings.TrimSpace(raw) == "" {
			continue
		}

		if first, _ := utf8.DecodeRuneInString(raw); unicode.IsSpace(first) {
			if currentRef == "" {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					LineNumber: i + 1,
					Line:       strings.TrimRightFunc(raw, unicode.IsSpace),
					Message:    DiagOrphanedContinuation,
				})
				continue
			}
			buffer = append(buffer, strings.TrimSpace(raw))
			continue
		}

		flush()

		parts := strings.Fields(raw)
		if len(parts) < 3 {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				LineNumber: i + 1,
				Line:       strings.TrimRightFunc(raw, unicode.IsSpace),
				Message:    DiagUnexpectedLine,
			})
			continue
		}

		currentRef = parts[0] + " " + parts[1]
		buffer = append(buffer, strings.Join(parts[2:], " "))
	}
	flush()

	return res
}
