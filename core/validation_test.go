package core

import (
	"errors"
	"testing"
)

func TestValidateTriple(t *testing.T) {
	s := IRI("http://example.org/org/1")

	tests := []struct {
		name    string
		triple  Triple
		wantErr error
	}{
		{name: "valid iri object", triple: T(s, HasSpecialty, SpecialtyIRI("x")), wantErr: nil},
		{name: "valid empty literal", triple: T(s, SchemaName, Literal("")), wantErr: nil},
		{name: "blank subject", triple: T(Blank("b1"), RDFValue, Literal("x")), wantErr: nil},
		{name: "zero subject", triple: T(Term{}, RDFValue, Literal("x")), wantErr: ErrEmptyTerm},
		{name: "literal subject", triple: T(Literal("x"), RDFValue, Literal("x")), wantErr: ErrLiteralPosition},
		{name: "blank predicate", triple: T(s, Blank("p"), Literal("x")), wantErr: ErrLiteralPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTriple(tt.triple)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTriple() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTriple() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidTriple) {
				t.Errorf("ValidateTriple() error should wrap ErrInvalidTriple")
			}
		})
	}
}

func TestValidateTaxonomy(t *testing.T) {
	macro := Category{ID: "m0", Kind: CategoryMacro}
	micro := Category{ID: "u0", Kind: CategoryMicro, Parent: "m0"}

	tests := []struct {
		name    string
		tax     *Taxonomy
		wantErr error
	}{
		{
			name: "valid",
			tax: &Taxonomy{
				Macros:      []Category{macro},
				Micros:      []Category{micro},
				Assignments: []Assignment{{Specialty: "s1", Macro: "m0", Micro: "u0"}, {Specialty: "s2", Macro: "m0"}},
			},
		},
		{name: "nil", tax: nil, wantErr: ErrInvalidTaxonomy},
		{
			name:    "orphan micro",
			tax:     &Taxonomy{Macros: []Category{macro}, Micros: []Category{{ID: "u1", Parent: "missing"}}},
			wantErr: ErrOrphanMicro,
		},
		{
			name: "double assignment",
			tax: &Taxonomy{
				Macros:      []Category{macro},
				Assignments: []Assignment{{Specialty: "s1", Macro: "m0"}, {Specialty: "s1", Macro: "m0"}},
			},
			wantErr: ErrDoubleAssignment,
		},
		{
			name: "micro outside assigned macro",
			tax: &Taxonomy{
				Macros:      []Category{macro, {ID: "m1", Kind: CategoryMacro}},
				Micros:      []Category{micro},
				Assignments: []Assignment{{Specialty: "s1", Macro: "m1", Micro: "u0"}},
			},
			wantErr: ErrInvalidTaxonomy,
		},
		{
			name: "recorded mismatch",
			tax: &Taxonomy{
				Macros:      []Category{macro, {ID: "m1", Kind: CategoryMacro}},
				Micros:      []Category{micro},
				Assignments: []Assignment{{Specialty: "s1", Macro: "m1", Micro: "u0"}},
				Mismatches:  1,
			},
		},
		{
			name:    "unknown macro",
			tax:     &Taxonomy{Macros: []Category{macro}, Assignments: []Assignment{{Specialty: "s1", Macro: "m9"}}},
			wantErr: ErrInvalidTaxonomy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTaxonomy(tt.tax)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTaxonomy() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTaxonomy() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
