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


// Package storage provides the storage abstraction layer for agrikg.
//
// The provider knowledge graph is kept as a set of RDF triples behind the
// TripleStore interface. Taxonomy builds are recorded through RunRepository.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return interfaces:
//
//	store, err := badger.NewTripleStore(backend)  // returns storage.TripleStore
//
// Internal helpers may return concrete types since they're only used within
// the implementation package.
//
// # Set Semantics
//
// A triple is identified by its (subject, predicate, object) tuple. Add and
// Remove report how many triples actually changed, so callers can count
// inserted edges without a separate existence check.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	store, err := badger.NewTripleStore(backend)
//
// Use in tests with in-memory storage:
//
//	store, backend, err := badger.NewMemoryStore()
//
// # Transactions
//
// WithTransaction places a transaction on the context. Store calls made with
// that context join it and are committed together.
package storage
