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


package storage

import (
	"fmt"

	"github.com/poiesic/agrikg/core"
	"github.com/vmihailenco/msgpack/v5"
)

// MarshalTriple serializes a Triple to bytes.
func MarshalTriple(t core.Triple) ([]byte, error) {
	data, err := msgpack.Marshal(&t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalTriple deserializes a Triple from bytes.
func UnmarshalTriple(data []byte) (core.Triple, error) {
	var t core.Triple
	if len(data) == 0 {
		return t, ErrTruncatedData
	}
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return t, nil
}

// MarshalRun serializes a Run to bytes.
func MarshalRun(run *core.Run) ([]byte, error) {
	data, err := msgpack.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalRun deserializes a Run from bytes.
func UnmarshalRun(data []byte) (*core.Run, error) {
	if len(data) == 0 {
		return nil, ErrTruncatedData
	}
	var run core.Run
	if err := msgpack.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &run, nil
}
