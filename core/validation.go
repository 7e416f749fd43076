// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import "fmt"

// ValidateTriple validates a Triple according to RDF rules.
//
// Validation rules:
//   - All three positions must be set with a non-empty value (literals may be empty strings)
//   - Subject must be an IRI or blank node
//   - Predicate must be an IRI
func ValidateTriple(t Triple) error {
	if t.Subject.IsZero() || t.Predicate.IsZero() || t.Object.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptyTerm)
	}
	if t.Subject.Value == "" || t.Predicate.Value == "" {
		return fmt.Errorf("%w: %w", ErrInvalidTriple, ErrEmptyTerm)
	}
	if t.Subject.IsLiteral() {
		return fmt.Errorf("%w: subject: %w", ErrInvalidTriple, ErrLiteralPosition)
	}
	if !t.Predicate.IsIRI() {
		return fmt.Errorf("%w: predicate: %w", ErrInvalidTriple, ErrLiteralPosition)
	}
	return nil
}

// ValidateTaxonomy checks the structural rules of a taxonomy before it is
// written to the graph.
//
// Validation rules:
//   - Every microcategory has exactly one parent, and that parent is a declared macrocategory
//   - Every specialty appears in at most one assignment
//   - Assigned categories exist in the taxonomy
//   - An assigned micro belongs to the assigned macro, unless the taxonomy
//     records hierarchy mismatches
func ValidateTaxonomy(t *Taxonomy) error {
	if t == nil {
		return fmt.Errorf("%w: taxonomy is nil", ErrInvalidTaxonomy)
	}

	macros := make(map[string]struct{}, len(t.Macros))
	for _, m := range t.Macros {
		macros[m.ID] = struct{}{}
	}
	micros := make(map[string]string, len(t.Micros))
	for _, m := range t.Micros {
		if _, ok := macros[m.Parent]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidTaxonomy, ErrOrphanMicro, m.ID)
		}
		micros[m.ID] = m.Parent
	}

	seen := make(map[string]struct{}, len(t.Assignments))
	for _, a := range t.Assignments {
		if _, dup := seen[a.Specialty]; dup {
			return fmt.Errorf("%w: %w: %s", ErrInvalidTaxonomy, ErrDoubleAssignment, a.Specialty)
		}
		seen[a.Specialty] = struct{}{}
		if _, ok := macros[a.Macro]; !ok {
			return fmt.Errorf("%w: unknown macrocategory %q for %s", ErrInvalidTaxonomy, a.Macro, a.Specialty)
		}
		if a.Micro != "" {
			parent, ok := micros[a.Micro]
			if !ok {
				return fmt.Errorf("%w: unknown microcategory %q for %s", ErrInvalidTaxonomy, a.Micro, a.Specialty)
			}
			if parent != a.Macro && t.Mismatches == 0 {
				return fmt.Errorf("%w: microcategory %q is not under %q for %s", ErrInvalidTaxonomy, a.Micro, a.Macro, a.Specialty)
			}
		}
	}
	return nil
}
