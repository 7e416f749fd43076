package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

// writeChunk bounds the triples written per transaction when the caller
// did not open one, keeping bulk loads under badger's transaction limits.
const writeChunk = 512

// TripleStore implements storage.TripleStore for BadgerDB.
//
// Each triple is stored once under an SPO key holding the encoded triple,
// plus POS and OSP index keys with empty values.
type TripleStore struct {
	backend *Backend
}

var _ storage.TripleStore = (*TripleStore)(nil)

// NewTripleStore creates a triple store on top of an open backend.
func NewTripleStore(backend *Backend) (storage.TripleStore, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &TripleStore{backend: backend}, nil
}

// Close is a no-op; the backend owns the database handle.
func (s *TripleStore) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (s *TripleStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.backend.WithTransaction(ctx, fn)
}

// Add inserts triples not already present and returns how many were new.
func (s *TripleStore) Add(ctx context.Context, triples ...core.Triple) (int, error) {
	for _, t := range triples {
		if err := core.ValidateTriple(t); err != nil {
			return 0, err
		}
	}

	added := 0
	for start := 0; start < len(triples); start += writeChunk {
		end := min(start+writeChunk, len(triples))
		chunkAdded := 0
		err := s.backend.update(ctx, func(tx *badger.Txn) error {
			for _, t := range triples[start:end] {
				ok, err := putTriple(tx, t)
				if err != nil {
					return err
				}
				if ok {
					chunkAdded++
				}
			}
			return nil
		})
		if err != nil {
			return added, fmt.Errorf("add triples: %w", err)
		}
		added += chunkAdded
	}
	return added, nil
}

// Remove deletes triples and returns how many were present.
func (s *TripleStore) Remove(ctx context.Context, triples ...core.Triple) (int, error) {
	removed := 0
	for start := 0; start < len(triples); start += writeChunk {
		end := min(start+writeChunk, len(triples))
		chunkRemoved := 0
		err := s.backend.update(ctx, func(tx *badger.Txn) error {
			for _, t := range triples[start:end] {
				ok, err := deleteTriple(tx, t)
				if err != nil {
					return err
				}
				if ok {
					chunkRemoved++
				}
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("remove triples: %w", err)
		}
		removed += chunkRemoved
	}
	return removed, nil
}

// Has reports whether the exact triple is stored.
func (s *TripleStore) Has(ctx context.Context, triple core.Triple) (bool, error) {
	var found bool
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		stored, ok, err := getTriple(tx, hashTriple(triple).spoKey())
		if err != nil {
			return err
		}
		found = ok && stored == triple
		return nil
	})
	return found, err
}

// Match returns all triples satisfying the pattern, ordered by index key.
func (s *TripleStore) Match(ctx context.Context, pattern core.Pattern) ([]core.Triple, error) {
	prefix, indexed := planScan(pattern)

	var results []core.Triple
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = !indexed
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var (
				t   core.Triple
				ok  bool
				err error
			)
			if indexed {
				t, ok, err = getTriple(tx, spoKeyFromIndex(iter.Item().KeyCopy(nil)))
			} else {
				ok = true
				err = iter.Item().Value(func(val []byte) error {
					var decodeErr error
					t, decodeErr = storage.UnmarshalTriple(val)
					return decodeErr
				})
			}
			if err != nil {
				return err
			}
			if ok && pattern.Matches(t) {
				results = append(results, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Objects returns the objects of all triples with the given subject and predicate.
func (s *TripleStore) Objects(ctx context.Context, subject, predicate core.Term) ([]core.Term, error) {
	triples, err := s.Match(ctx, core.Pattern{Subject: &subject, Predicate: &predicate})
	if err != nil {
		return nil, err
	}
	objects := make([]core.Term, len(triples))
	for i, t := range triples {
		objects[i] = t.Object
	}
	return objects, nil
}

// Subjects returns the subjects of all triples with the given predicate and object.
func (s *TripleStore) Subjects(ctx context.Context, predicate, object core.Term) ([]core.Term, error) {
	triples, err := s.Match(ctx, core.Pattern{Predicate: &predicate, Object: &object})
	if err != nil {
		return nil, err
	}
	subjects := make([]core.Term, len(triples))
	for i, t := range triples {
		subjects[i] = t.Subject
	}
	return subjects, nil
}

// Count returns the number of stored triples.
func (s *TripleStore) Count(ctx context.Context) (int, error) {
	count := 0
	err := s.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(spoPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// planScan picks the key prefix that narrows a pattern the most. The second
// result reports whether the prefix belongs to an index-only keyspace.
func planScan(p core.Pattern) ([]byte, bool) {
	switch {
	case p.Subject != nil && p.Predicate != nil && p.Object != nil:
		h := hashTriple(core.T(*p.Subject, *p.Predicate, *p.Object))
		return h.spoKey(), false
	case p.Subject != nil && p.Predicate != nil:
		return composeKey(spoPrefix, hashTerm(*p.Subject), hashTerm(*p.Predicate)), false
	case p.Subject != nil && p.Object != nil:
		return composeKey(ospPrefix, hashTerm(*p.Object), hashTerm(*p.Subject)), true
	case p.Subject != nil:
		return composeKey(spoPrefix, hashTerm(*p.Subject)), false
	case p.Predicate != nil && p.Object != nil:
		return composeKey(posPrefix, hashTerm(*p.Predicate), hashTerm(*p.Object)), true
	case p.Predicate != nil:
		return composeKey(posPrefix, hashTerm(*p.Predicate)), true
	case p.Object != nil:
		return composeKey(ospPrefix, hashTerm(*p.Object)), true
	default:
		return []byte(spoPrefix), false
	}
}

// putTriple writes a triple and its index keys unless already present.
func putTriple(tx *badger.Txn, t core.Triple) (bool, error) {
	h := hashTriple(t)
	key := h.spoKey()
	if _, err := tx.Get(key); err == nil {
		return false, nil
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return false, err
	}

	value, err := storage.MarshalTriple(t)
	if err != nil {
		return false, err
	}
	if err := tx.Set(key, value); err != nil {
		return false, err
	}
	if err := tx.Set(h.posKey(), nil); err != nil {
		return false, err
	}
	if err := tx.Set(h.ospKey(), nil); err != nil {
		return false, err
	}
	return true, nil
}

// deleteTriple removes a triple and its index keys if present.
func deleteTriple(tx *badger.Txn, t core.Triple) (bool, error) {
	h := hashTriple(t)
	stored, ok, err := getTriple(tx, h.spoKey())
	if err != nil || !ok || stored != t {
		return false, err
	}
	for _, key := range [][]byte{h.spoKey(), h.posKey(), h.ospKey()} {
		if err := tx.Delete(key); err != nil {
			return false, err
		}
	}
	return true, nil
}

// getTriple loads the triple stored under a primary key.
func getTriple(tx *badger.Txn, key []byte) (core.Triple, bool, error) {
	var t core.Triple
	if key == nil {
		return t, false, nil
	}
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return t, false, nil
		}
		return t, false, err
	}
	err = item.Value(func(val []byte) error {
		var decodeErr error
		t, decodeErr = storage.UnmarshalTriple(val)
		return decodeErr
	})
	if err != nil {
		return t, false, err
	}
	return t, true, nil
}
