package core

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a compact identifier derived from content.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TermKind distinguishes the three kinds of RDF terms.
type TermKind uint8

const (
	// KindIRI is a named resource.
	KindIRI TermKind = iota + 1
	// KindLiteral is a lexical value with optional datatype or language.
	KindLiteral
	// KindBlank is an anonymous node local to one graph.
	KindBlank
)

// String implements fmt.Stringer.
func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindLiteral:
		return "literal"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Term is a node or edge label in the knowledge graph.
// For literals Datatype and Lang are mutually exclusive; an empty Datatype
// means xsd:string.
type Term struct {
	Kind     TermKind `msgpack:"k"`
	Value    string   `msgpack:"v"`
	Datatype string   `msgpack:"d,omitempty"`
	Lang     string   `msgpack:"l,omitempty"`
}

// IRI builds an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Literal builds a plain string literal.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// TypedLiteral builds a literal with an explicit datatype IRI.
func TypedLiteral(value, datatype string) Term {
	if datatype == XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: value, Datatype: datatype}
}

// LangLiteral builds a language-tagged literal.
func LangLiteral(value, lang string) Term {
	return Term{Kind: KindLiteral, Value: value, Lang: strings.ToLower(lang)}
}

// DoubleLiteral builds an xsd:double literal.
func DoubleLiteral(v float64) Term {
	return TypedLiteral(strconv.FormatFloat(v, 'g', -1, 64), XSDDouble)
}

// Blank builds a blank node term.
func Blank(label string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(label, "_:")}
}

// IsZero reports whether the term is unset.
func (t Term) IsZero() bool {
	return t.Kind == 0
}

// IsIRI reports whether the term is an IRI.
func (t Term) IsIRI() bool {
	return t.Kind == KindIRI
}

// IsLiteral reports whether the term is a literal.
func (t Term) IsLiteral() bool {
	return t.Kind == KindLiteral
}

// Key returns the canonical N-Triples form of the term. Two terms are the
// same graph term exactly when their keys are equal.
func (t Term) Key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	case KindLiteral:
		s := strconv.Quote(t.Value)
		switch {
		case t.Lang != "":
			return s + "@" + t.Lang
		case t.Datatype != "":
			return s + "^^<" + t.Datatype + ">"
		default:
			return s
		}
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (t Term) String() string {
	return t.Key()
}

// LocalName returns the fragment or last path segment of an IRI.
func (t Term) LocalName() string {
	return LocalName(t.Value)
}

// LocalName returns the part of an IRI after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// Triple is a single subject-predicate-object statement.
type Triple struct {
	Subject   Term `msgpack:"s"`
	Predicate Term `msgpack:"p"`
	Object    Term `msgpack:"o"`
}

// T is shorthand for building a triple.
func T(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// Key returns the canonical N-Triples line for the triple, without the
// trailing newline.
func (t Triple) Key() string {
	return t.Subject.Key() + " " + t.Predicate.Key() + " " + t.Object.Key() + " ."
}

// String implements fmt.Stringer.
func (t Triple) String() string {
	return t.Key()
}

// Pattern selects triples. A nil position matches any term.
type Pattern struct {
	Subject   *Term
	Predicate *Term
	Object    *Term
}

// Matches reports whether the triple satisfies every bound position.
func (p Pattern) Matches(t Triple) bool {
	if p.Subject != nil && *p.Subject != t.Subject {
		return false
	}
	if p.Predicate != nil && *p.Predicate != t.Predicate {
		return false
	}
	if p.Object != nil && *p.Object != t.Object {
		return false
	}
	return true
}

// Bind returns a pointer to a copy of term, for use in Pattern literals.
func Bind(term Term) *Term {
	return &term
}

// Embedded pairs an entity with its embedding vector.
type Embedded struct {
	ID     string
	Vector []float32
}
