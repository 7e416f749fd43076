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

import "errors"

// Domain validation errors
var (
	// ErrInvalidTriple indicates a Triple failed validation.
	ErrInvalidTriple = errors.New("invalid triple")

	// ErrInvalidTaxonomy indicates a Taxonomy violates a structural rule.
	ErrInvalidTaxonomy = errors.New("invalid taxonomy")

	// ErrEmptyTerm indicates a required term is unset or has no value.
	ErrEmptyTerm = errors.New("term cannot be empty")

	// ErrLiteralPosition indicates a literal used as subject or predicate.
	ErrLiteralPosition = errors.New("literal not allowed in this position")

	// ErrOrphanMicro indicates a microcategory without an existing parent.
	ErrOrphanMicro = errors.New("microcategory has no parent macrocategory")

	// ErrDoubleAssignment indicates a specialty assigned more than once.
	ErrDoubleAssignment = errors.New("specialty assigned more than once")
)
