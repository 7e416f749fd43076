package vectorstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/poiesic/agrikg/core"
)

// Artifact is the handoff file between embedding extraction and taxonomy
// building. Both sequences are index aligned.
type Artifact struct {
	SpecialtyURIs []string    `json:"specialty_uris"`
	Embeddings    [][]float32 `json:"embeddings"`
}

// NewArtifact builds an artifact from adapter output, preserving order.
func NewArtifact(entries []core.Embedded) *Artifact {
	a := &Artifact{
		SpecialtyURIs: make([]string, len(entries)),
		Embeddings:    make([][]float32, len(entries)),
	}
	for i, e := range entries {
		a.SpecialtyURIs[i] = e.ID
		a.Embeddings[i] = e.Vector
	}
	return a
}

// Entries converts the artifact back into (id, vector) pairs.
func (a *Artifact) Entries() []core.Embedded {
	out := make([]core.Embedded, len(a.SpecialtyURIs))
	for i, id := range a.SpecialtyURIs {
		out[i] = core.Embedded{ID: id, Vector: a.Embeddings[i]}
	}
	return out
}

// Validate checks index alignment, unique ids and a single dimensionality.
func (a *Artifact) Validate() error {
	if len(a.SpecialtyURIs) != len(a.Embeddings) {
		return fmt.Errorf("%w: %d uris but %d embeddings", ErrInvalidArtifact, len(a.SpecialtyURIs), len(a.Embeddings))
	}
	seen := make(map[string]struct{}, len(a.SpecialtyURIs))
	dims := -1
	for i, id := range a.SpecialtyURIs {
		if id == "" {
			return fmt.Errorf("%w: empty uri at index %d", ErrInvalidArtifact, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate uri %s", ErrInvalidArtifact, id)
		}
		seen[id] = struct{}{}
		if dims == -1 {
			dims = len(a.Embeddings[i])
		}
		if len(a.Embeddings[i]) == 0 || len(a.Embeddings[i]) != dims {
			return fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrInvalidArtifact, i, len(a.Embeddings[i]), dims)
		}
	}
	return nil
}

// WriteArtifact encodes a validated artifact as JSON.
func WriteArtifact(w io.Writer, a *Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(a)
}

// ReadArtifact decodes and validates an artifact. Missing keys are an error.
func ReadArtifact(r io.Reader) (*Artifact, error) {
	var raw struct {
		SpecialtyURIs *[]string    `json:"specialty_uris"`
		Embeddings    *[][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if raw.SpecialtyURIs == nil || raw.Embeddings == nil {
		return nil, fmt.Errorf("%w: specialty_uris and embeddings are required", ErrInvalidArtifact)
	}
	a := &Artifact{SpecialtyURIs: *raw.SpecialtyURIs, Embeddings: *raw.Embeddings}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// SaveArtifact writes an artifact file.
func SaveArtifact(path string, a *Artifact) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteArtifact(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadArtifact reads an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadArtifact(f)
}
