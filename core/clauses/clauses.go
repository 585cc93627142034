// Package clauses models hand-authored clause registries and checks that they
// stay aligned with the verse payload they annotate.
package clauses

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/FocuswithJustin/sblgnt-viewer/core/errors"
)

// Registry is a clause registry file for one book.
type Registry struct {
	BookID      string          `json:"book_id"`
	DisplayName string          `json:"display_name"`
	Generated   Generated       `json:"generated"`
	Verses      []RegistryVerse `json:"verses"`
	Categories  []string        `json:"categories"`
	Clauses     []Clause        `json:"clauses"`
}

// Generated records who produced the registry and when.
type Generated struct {
	Agent     string `json:"agent"`
	Timestamp string `json:"timestamp"`
}

// RegistryVerse is the registry's copy of a payload verse.
type RegistryVerse struct {
	Reference      string `json:"reference"`
	Index          int    `json:"index"`
	Chapter        int    `json:"chapter"`
	Verse          int    `json:"verse"`
	CharacterCount int    `json:"character_count"`
}

// Clause is a span of a single verse with its classification.
type Clause struct {
	ClauseID     string    `json:"clause_id"`
	Start        Anchor    `json:"start"`
	End          Anchor    `json:"end"`
	References   []string  `json:"references"`
	CategoryTags []string  `json:"category_tags"`
	Source       Source    `json:"source"`
	Analysis     *Analysis `json:"analysis,omitempty"`
}

// Anchor is a code point offset into a registry verse.
type Anchor struct {
	Reference  string `json:"reference"`
	VerseIndex int    `json:"verse_index"`
	Offset     int    `json:"offset"`
}

// UnmarshalJSON requires all three anchor fields. An absent offset would
// otherwise decode as 0 and pass the range checks.
func (a *Anchor) UnmarshalJSON(data []byte) error {
	var raw struct {
		Reference  *string `json:"reference"`
		VerseIndex *int    `json:"verse_index"`
		Offset     *int    `json:"offset"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch {
	case raw.Reference == nil:
		return fmt.Errorf("anchor is missing reference")
	case raw.VerseIndex == nil:
		return fmt.Errorf("anchor %s is missing verse_index", *raw.Reference)
	case raw.Offset == nil:
		return fmt.Errorf("anchor %s is missing offset", *raw.Reference)
	}
	*a = Anchor{Reference: *raw.Reference, VerseIndex: *raw.VerseIndex, Offset: *raw.Offset}
	return nil
}

// Source describes how a clause was authored.
type Source struct {
	Method     string     `json:"method"`
	Validation Validation `json:"validation"`
}

// Validation is the authoring-time alignment status.
type Validation struct {
	Alignment string `json:"alignment"`
}

// Analysis carries attribution for speech and quotation clauses.
type Analysis struct {
	Speaker string `json:"speaker,omitempty"`
	Source  string `json:"source,omitempty"`
}

// Load decodes the registry file at path.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFound("clause registry", path)
		}
		return nil, errors.NewIO("read", path, err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Path: path, Message: err.Error(), Err: err}
	}
	return &reg, nil
}
