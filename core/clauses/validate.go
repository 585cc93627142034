package clauses

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
	"github.com/FocuswithJustin/sblgnt-viewer/core/ref"
	"github.com/FocuswithJustin/sblgnt-viewer/core/sblgnt"
)

// Rule names reported in violations.
const (
	RuleTopLevel       = "top_level"
	RuleRegistryIndex  = "registry.index"
	RuleRegistryRef    = "registry.reference"
	RuleRegistryCount  = "registry.character_count"
	RuleClauseID       = "clause.id"
	RuleClauseUnique   = "clause.unique"
	RuleClauseSpan     = "clause.span"
	RuleClauseOffsets  = "clause.offsets"
	RuleClauseRefs     = "clause.references"
	RuleClauseSource   = "clause.source"
	RuleClauseTags     = "clause.category_tags"
	RuleClauseAnalysis = "clause.analysis"
	RuleOrdering       = "ordering"
	RuleCategories     = "categories"
)

const (
	methodManual  = "manual"
	alignmentPass = "pass"
	tagMain       = "main"
	tagSpeech     = "speech"
	tagQuotation  = "quotation"
)

// Violation is one failed check.
type Violation struct {
	ClauseID string // empty for registry-level checks
	Rule     string
	Message  string
}

func (v Violation) String() string {
	if v.ClauseID != "" {
		return fmt.Sprintf("%s: %s: %s", v.Rule, v.ClauseID, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Rule, v.Message)
}

// Report collects every violation found by Validate.
type Report struct {
	Violations []Violation
}

// OK reports whether no checks failed.
func (r *Report) OK() bool { return len(r.Violations) == 0 }

// Err joins the violations into a single error, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		field := v.Rule
		if v.ClauseID != "" {
			field = v.ClauseID + " " + v.Rule
		}
		errs[i] = &errors.ValidationError{Field: field, Value: v.ClauseID, Message: v.Message}
	}
	return stderrors.Join(errs...)
}

func (r *Report) add(clauseID, rule, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		ClauseID: clauseID,
		Rule:     rule,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Validate checks reg for internal consistency and, when verses is non-nil,
// alignment with the book payload. It never modifies reg.
//
// Character counts and offsets are measured in Unicode code points.
func Validate(reg *Registry, verses []sblgnt.Verse) *Report {
	r := &Report{}
	validateTopLevel(r, reg)
	byRef := validateRegistry(r, reg, verses)
	validateClauses(r, reg, byRef, verses)
	validateOrdering(r, reg.Clauses)
	validateCategories(r, reg)
	return r
}

func validateTopLevel(r *Report, reg *Registry) {
	if reg.BookID == "" {
		r.add("", RuleTopLevel, "book_id is required")
	}
	if reg.DisplayName == "" {
		r.add("", RuleTopLevel, "display_name is required")
	}
	if reg.Generated.Agent == "" {
		r.add("", RuleTopLevel, "generated.agent is required")
	}
	if len(reg.Verses) == 0 {
		r.add("", RuleTopLevel, "verses must not be empty")
	}
	if len(reg.Clauses) == 0 {
		r.add("", RuleTopLevel, "clauses must not be empty")
	}
	ts := reg.Generated.Timestamp
	if !strings.HasSuffix(ts, "Z") {
		r.add("", RuleTopLevel, "generated.timestamp %q must be UTC with a Z suffix", ts)
	} else if _, err := time.Parse(time.RFC3339, ts); err != nil {
		r.add("", RuleTopLevel, "generated.timestamp %q is not RFC 3339", ts)
	}
}

func validateRegistry(r *Report, reg *Registry, verses []sblgnt.Verse) map[string]RegistryVerse {
	byRef := make(map[string]RegistryVerse, len(reg.Verses))
	for i, v := range reg.Verses {
		if _, dup := byRef[v.Reference]; dup {
			r.add("", RuleRegistryRef, "reference %q is listed more than once", v.Reference)
		} else {
			byRef[v.Reference] = v
		}

		if v.Index != i {
			r.add("", RuleRegistryIndex, "%s has index %d at position %d", v.Reference, v.Index, i)
		}

		parsed, err := ref.Parse(v.Reference)
		switch {
		case err != nil:
			r.add("", RuleRegistryRef, "%q is not a verse reference: %v", v.Reference, err)
		case parsed.Chapter != v.Chapter || parsed.Verse != v.Verse:
			r.add("", RuleRegistryRef, "%s is recorded as chapter %d verse %d", v.Reference, v.Chapter, v.Verse)
		}

		if verses == nil {
			continue
		}
		if i >= len(verses) {
			r.add("", RuleRegistryRef, "%s at index %d has no payload verse", v.Reference, i)
			continue
		}
		if verses[i].Reference != v.Reference {
			r.add("", RuleRegistryRef, "index %d is %s in the registry but %s in the payload",
				i, v.Reference, verses[i].Reference)
			continue
		}
		if n := utf8.RuneCountInString(verses[i].Text); n != v.CharacterCount {
			r.add("", RuleRegistryCount, "%s has character_count %d but the payload text has %d",
				v.Reference, v.CharacterCount, n)
		}
	}
	return byRef
}

func validateClauses(r *Report, reg *Registry, byRef map[string]RegistryVerse, verses []sblgnt.Verse) {
	idPattern := regexp.MustCompile(`^` + regexp.QuoteMeta(reg.BookID) + `-\d{2}-\d{2}-[a-z]$`)

	var payloadRefs map[string]bool
	if verses != nil {
		payloadRefs = make(map[string]bool, len(verses))
		for _, v := range verses {
			payloadRefs[v.Reference] = true
		}
	}

	seen := make(map[string]bool, len(reg.Clauses))
	for _, c := range reg.Clauses {
		id := c.ClauseID
		if !idPattern.MatchString(id) {
			r.add(id, RuleClauseID, "id does not match %s", idPattern)
		}
		if seen[id] {
			r.add(id, RuleClauseUnique, "id is used more than once")
		}
		seen[id] = true

		validateSpan(r, c, byRef)

		if len(c.References) != 1 || c.References[0] != c.Start.Reference {
			r.add(id, RuleClauseRefs, "references %v must be exactly [%s]", c.References, c.Start.Reference)
		}
		if payloadRefs != nil {
			for _, rf := range c.References {
				if !payloadRefs[rf] {
					r.add(id, RuleClauseRefs, "reference %s is not in the payload", rf)
				}
			}
		}

		if c.Source.Method != methodManual {
			r.add(id, RuleClauseSource, "source.method is %q, want %q", c.Source.Method, methodManual)
		}
		if c.Source.Validation.Alignment != alignmentPass {
			r.add(id, RuleClauseSource, "source.validation.alignment is %q, want %q",
				c.Source.Validation.Alignment, alignmentPass)
		}

		validateTags(r, c)
	}
}

func validateSpan(r *Report, c Clause, byRef map[string]RegistryVerse) {
	id := c.ClauseID
	if c.Start.Reference != c.End.Reference {
		r.add(id, RuleClauseSpan, "starts in %s but ends in %s", c.Start.Reference, c.End.Reference)
	}

	entry, ok := byRef[c.Start.Reference]
	if !ok {
		r.add(id, RuleClauseSpan, "reference %s is not in the verse registry", c.Start.Reference)
		return
	}

	for _, a := range []struct {
		name   string
		anchor Anchor
	}{{"start", c.Start}, {"end", c.End}} {
		if a.anchor.Offset < 0 || a.anchor.Offset > entry.CharacterCount {
			r.add(id, RuleClauseOffsets, "%s.offset %d is outside [0, %d]", a.name, a.anchor.Offset, entry.CharacterCount)
		}
		if a.anchor.VerseIndex != entry.Index {
			r.add(id, RuleClauseOffsets, "%s.verse_index %d, want %d", a.name, a.anchor.VerseIndex, entry.Index)
		}
	}
	if c.End.Offset < c.Start.Offset {
		r.add(id, RuleClauseOffsets, "end.offset %d is before start.offset %d", c.End.Offset, c.Start.Offset)
	}
}

func validateTags(r *Report, c Clause) {
	id := c.ClauseID
	if len(c.CategoryTags) == 0 {
		r.add(id, RuleClauseTags, "category_tags is empty")
		return
	}
	if c.CategoryTags[0] != tagMain {
		r.add(id, RuleClauseTags, "first category tag is %q, want %q", c.CategoryTags[0], tagMain)
	}
	for _, tag := range c.CategoryTags {
		switch tag {
		case tagSpeech:
			if c.Analysis == nil || c.Analysis.Speaker == "" {
				r.add(id, RuleClauseAnalysis, "speech clause has no analysis.speaker")
			}
		case tagQuotation:
			if c.Analysis == nil || c.Analysis.Source == "" {
				r.add(id, RuleClauseAnalysis, "quotation clause has no analysis.source")
			}
		}
	}
}

// clauseLess is the canonical storage order.
func clauseLess(a, b Clause) bool {
	if a.Start.VerseIndex != b.Start.VerseIndex {
		return a.Start.VerseIndex < b.Start.VerseIndex
	}
	if a.Start.Offset != b.Start.Offset {
		return a.Start.Offset < b.Start.Offset
	}
	return a.ClauseID < b.ClauseID
}

func validateOrdering(r *Report, clauses []Clause) {
	for i := 1; i < len(clauses); i++ {
		if clauseLess(clauses[i], clauses[i-1]) {
			r.add(clauses[i].ClauseID, RuleOrdering, "stored after %s but sorts before it", clauses[i-1].ClauseID)
		}
	}
}

func validateCategories(r *Report, reg *Registry) {
	if !sort.StringsAreSorted(reg.Categories) {
		r.add("", RuleCategories, "categories %v are not sorted", reg.Categories)
	}

	declared := make(map[string]bool, len(reg.Categories))
	for _, c := range reg.Categories {
		declared[c] = true
	}
	used := make(map[string]bool)
	for _, c := range reg.Clauses {
		for _, tag := range c.CategoryTags {
			used[tag] = true
		}
	}

	for _, tag := range sortedKeys(used) {
		if !declared[tag] {
			r.add("", RuleCategories, "tag %q is used but not declared", tag)
		}
	}
	for _, tag := range sortedKeys(declared) {
		if !used[tag] {
			r.add("", RuleCategories, "category %q is declared but never used", tag)
		}
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
