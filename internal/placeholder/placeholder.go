// Package placeholder defines the marker families recognised in templates.
//
// Matching is exact-substring and case-sensitive; every literal of a family is a
// synonym for the others.
package placeholder

import (
	"sort"
	"strings"
)

// Family identifies what a marker stands for
type Family string

const (
	FamilySignature Family = "signature"
	FamilyName      Family = "name"
	FamilyID        Family = "id"
)

// Families lists the families in the order they are processed
var Families = []Family{FamilySignature, FamilyName, FamilyID}

// Set holds the literal synonyms for each family
type Set struct {
	Signature []string `yaml:"signature"`
	Name      []string `yaml:"name"`
	ID        []string `yaml:"id"`
}

// Default returns the built-in marker literals
func Default() Set {
	return Set{
		Signature: []string{"<<firma>>", "<<signature>>", "[FIRMA]", "[SIGNATURE]"},
		Name:      []string{"<<nombre>>", "<<name>>", "[NOMBRE]", "[NAME]"},
		ID:        []string{"<<dni>>", "<<nif>>", "[DNI]", "[NIF]"},
	}
}

// Literals returns the synonyms of a family
func (s Set) Literals(f Family) []string {
	switch f {
	case FamilySignature:
		return s.Signature
	case FamilyName:
		return s.Name
	case FamilyID:
		return s.ID
	default:
		return nil
	}
}

// Occurrence is one marker literal found in a text
type Occurrence struct {
	Family  Family
	Literal string
	Start   int // byte offset, inclusive
	End     int // byte offset, exclusive
}

// FindAll returns the non-overlapping occurrences of a family's literals in text,
// ordered by position. Where two literals start at the same offset the longer wins.
func (s Set) FindAll(text string, f Family) []Occurrence {
	var found []Occurrence
	for _, lit := range s.Literals(f) {
		if lit == "" {
			continue
		}
		for off := 0; off < len(text); {
			i := strings.Index(text[off:], lit)
			if i < 0 {
				break
			}
			start := off + i
			found = append(found, Occurrence{Family: f, Literal: lit, Start: start, End: start + len(lit)})
			off = start + len(lit)
		}
	}
	return dropOverlaps(found)
}

// FindEvery returns the occurrences of all families in text, ordered by position
func (s Set) FindEvery(text string) []Occurrence {
	var found []Occurrence
	for _, f := range Families {
		found = append(found, s.FindAll(text, f)...)
	}
	return dropOverlaps(found)
}

// Contains reports whether text holds any literal of the family
func (s Set) Contains(text string, f Family) bool {
	for _, lit := range s.Literals(f) {
		if lit != "" && strings.Contains(text, lit) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether text holds a literal of any family
func (s Set) ContainsAny(text string) bool {
	for _, f := range Families {
		if s.Contains(text, f) {
			return true
		}
	}
	return false
}

func dropOverlaps(found []Occurrence) []Occurrence {
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Start != found[j].Start {
			return found[i].Start < found[j].Start
		}
		return found[i].End > found[j].End
	})

	out := found[:0]
	lastEnd := -1
	for _, o := range found {
		if o.Start < lastEnd {
			continue
		}
		out = append(out, o)
		lastEnd = o.End
	}
	return out
}
