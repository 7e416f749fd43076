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


package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) (storage.RunRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	idSeq, err := backend.GetSequence(runIDSeq)
	if err != nil {
		return nil, err
	}
	return &RunRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *RunRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *RunRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// SaveRun persists a run, assigning an ID when it has none.
func (r *RunRepository) SaveRun(ctx context.Context, run *core.Run) (*core.Run, error) {
	if run.ID == 0 {
		// Sequences start at 0; keep 0 meaning "unsaved".
		next, err := r.idSeq.Next()
		if err != nil {
			return nil, err
		}
		run.ID = core.ID(next + 1)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}

	value, err := storage.MarshalRun(run)
	if err != nil {
		return nil, err
	}
	err = r.backend.update(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeRunKey(run.ID), value)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRun returns the run with the highest ID.
func (r *RunRepository) LatestRun(ctx context.Context) (*core.Run, error) {
	runs, err := r.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, storage.ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, most recent first. A non-positive limit
// returns all runs.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]*core.Run, error) {
	var runs []*core.Run
	err := r.backend.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration must seek past the end of the prefix.
		for iter.Seek(append([]byte(runPrefix), 0xFF)); iter.Valid(); iter.Next() {
			var run *core.Run
			err := iter.Item().Value(func(val []byte) error {
				var decodeErr error
				run, decodeErr = storage.UnmarshalRun(val)
				return decodeErr
			})
			if err != nil {
				return err
			}
			runs = append(runs, run)
			if limit > 0 && len(runs) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}
