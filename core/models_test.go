package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "short content", content: "test content"},
		{name: "empty string", content: ""},
		{name: "iri", content: "http://example.org/specialties/biochar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestTerm_Key(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{name: "iri", term: IRI("http://schema.org/name"), want: "<http://schema.org/name>"},
		{name: "plain literal", term: Literal("soil \"health\""), want: `"soil \"health\""`},
		{name: "typed literal", term: DoubleLiteral(45.5), want: `"45.5"^^<http://www.w3.org/2001/XMLSchema#double>`},
		{name: "xsd string collapses", term: TypedLiteral("x", XSDString), want: `"x"`},
		{name: "lang literal", term: LangLiteral("suelo", "ES"), want: `"suelo"@es`},
		{name: "blank", term: Blank("_:b0"), want: "_:b0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.term.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		iri  string
		want string
	}{
		{"http://example.org/embedding#embedding_value", "embedding_value"},
		{"http://example.org/specialties/biochar", "biochar"},
		{"http://example.org/specialties/", "http://example.org/specialties/"},
		{"urn-without-separators", "urn-without-separators"},
	}

	for _, tt := range tests {
		if got := LocalName(tt.iri); got != tt.want {
			t.Errorf("LocalName(%q) = %q, want %q", tt.iri, got, tt.want)
		}
	}
}

func TestEmbeddingPredicate(t *testing.T) {
	if got := EmbeddingPredicate(RDFValue); got != EmbeddingValue {
		t.Errorf("EmbeddingPredicate(rdf:value) = %v, want %v", got, EmbeddingValue)
	}
	if got := EmbeddingPredicate(SchemaDescription); got != EmbeddingDescription {
		t.Errorf("EmbeddingPredicate(schema:description) = %v, want %v", got, EmbeddingDescription)
	}
}

func TestPattern_Matches(t *testing.T) {
	s := IRI("http://example.org/org/1")
	tr := T(s, HasSpecialty, SpecialtyIRI("biochar"))

	tests := []struct {
		name    string
		pattern Pattern
		want    bool
	}{
		{name: "wildcard", pattern: Pattern{}, want: true},
		{name: "subject bound", pattern: Pattern{Subject: Bind(s)}, want: true},
		{name: "predicate mismatch", pattern: Pattern{Predicate: Bind(RDFType)}, want: false},
		{name: "fully bound", pattern: Pattern{Subject: Bind(s), Predicate: Bind(HasSpecialty), Object: Bind(SpecialtyIRI("biochar"))}, want: true},
		{name: "object literal vs iri", pattern: Pattern{Object: Bind(Literal("http://example.org/specialties/biochar"))}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pattern.Matches(tr); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCategoryKind_TypeTerm(t *testing.T) {
	if CategoryMacro.TypeTerm() != Macrocategory {
		t.Errorf("macro type term = %v", CategoryMacro.TypeTerm())
	}
	if CategoryMicro.TypeTerm() != Microcategory {
		t.Errorf("micro type term = %v", CategoryMicro.TypeTerm())
	}
}
