package taxonomy

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
)

//go:embed anchors.yaml
var defaultAnchors []byte

// AnchorCategory is a named category defined by representative phrases.
type AnchorCategory struct {
	Name    string
	Phrases []string
}

// AnchorSet is the curated, versioned definition of anchor categories.
// Declared order is preserved and decides similarity ties.
type AnchorSet struct {
	Version string
	Macros  []AnchorCategory
	// Micros holds explicit microcategory lists keyed by macro name. A macro
	// without an entry gets one microcategory per phrase.
	Micros map[string][]AnchorCategory
}

type anchorFile struct {
	Version         string    `yaml:"version"`
	Macrocategories yaml.Node `yaml:"macrocategories"`
	Microcategories yaml.Node `yaml:"microcategories"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *AnchorSet) UnmarshalYAML(node *yaml.Node) error {
	var raw anchorFile
	if err := node.Decode(&raw); err != nil {
		return err
	}

	macros, err := decodeCategories(&raw.Macrocategories)
	if err != nil {
		return fmt.Errorf("macrocategories: %w", err)
	}

	s.Version = raw.Version
	s.Macros = macros
	s.Micros = nil

	if raw.Microcategories.Kind == 0 {
		return nil
	}
	if raw.Microcategories.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: microcategories must be a mapping", raw.Microcategories.Line)
	}
	s.Micros = make(map[string][]AnchorCategory)
	content := raw.Microcategories.Content
	for i := 0; i+1 < len(content); i += 2 {
		macro := content[i].Value
		micros, err := decodeCategories(content[i+1])
		if err != nil {
			return fmt.Errorf("microcategories of %q: %w", macro, err)
		}
		s.Micros[macro] = micros
	}
	return nil
}

// decodeCategories reads a mapping of name to phrase list, keeping key order.
func decodeCategories(node *yaml.Node) ([]AnchorCategory, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of name to phrases", node.Line)
	}
	cats := make([]AnchorCategory, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var phrases []string
		if err := node.Content[i+1].Decode(&phrases); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Content[i+1].Line, err)
		}
		cats = append(cats, AnchorCategory{Name: node.Content[i].Value, Phrases: phrases})
	}
	return cats, nil
}

// ParseAnchors reads and validates an anchor set.
func ParseAnchors(r io.Reader) (*AnchorSet, error) {
	var set AnchorSet
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnchors, err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// LoadAnchors reads an anchor set from a YAML file.
func LoadAnchors(path string) (*AnchorSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseAnchors(f)
}

// DefaultAnchors returns the built-in agricultural anchor set.
func DefaultAnchors() (*AnchorSet, error) {
	return ParseAnchors(bytes.NewReader(defaultAnchors))
}

// Validate checks names are unique and every category has phrases.
func (s *AnchorSet) Validate() error {
	if len(s.Macros) == 0 {
		return fmt.Errorf("%w: no macrocategories", ErrInvalidAnchors)
	}
	if err := validateCategories(s.Macros); err != nil {
		return err
	}
	declared := make(map[string]bool, len(s.Macros))
	for _, m := range s.Macros {
		declared[m.Name] = true
	}
	for macro, micros := range s.Micros {
		if !declared[macro] {
			return fmt.Errorf("%w: microcategories for undeclared macrocategory %q", ErrInvalidAnchors, macro)
		}
		if len(micros) == 0 {
			return fmt.Errorf("%w: empty microcategory list for %q", ErrInvalidAnchors, macro)
		}
		if err := validateCategories(micros); err != nil {
			return fmt.Errorf("%s: %w", macro, err)
		}
	}
	return nil
}

func validateCategories(cats []AnchorCategory) error {
	seen := make(map[string]bool, len(cats))
	for _, c := range cats {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: empty category name", ErrInvalidAnchors)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidAnchors, c.Name)
		}
		seen[c.Name] = true
		if len(c.Phrases) == 0 {
			return fmt.Errorf("%w: category %q has no phrases", ErrInvalidAnchors, c.Name)
		}
		for _, p := range c.Phrases {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("%w: category %q has an empty phrase", ErrInvalidAnchors, c.Name)
			}
		}
	}
	return nil
}

// MicroAnchors returns the microcategories of a macro: the explicit list when
// one is declared, otherwise one single-phrase category per macro phrase.
// Repeated phrases yield one microcategory.
func (s *AnchorSet) MicroAnchors(macro AnchorCategory) []AnchorCategory {
	if micros, ok := s.Micros[macro.Name]; ok {
		return micros
	}
	seen := make(map[string]bool, len(macro.Phrases))
	micros := make([]AnchorCategory, 0, len(macro.Phrases))
	for _, p := range macro.Phrases {
		if seen[p] {
			continue
		}
		seen[p] = true
		micros = append(micros, AnchorCategory{Name: p, Phrases: []string{p}})
	}
	return micros
}

// MacroIRI returns the node identity of an anchor macrocategory.
func MacroIRI(name string) string {
	return core.SpecialtyIRI("macrocategory/" + underscored(name)).Value
}

// MicroIRI returns the node identity of an anchor microcategory. The owning
// macro is part of the identity since phrases repeat across macros.
func MicroIRI(macro, name string) string {
	return core.SpecialtyIRI("microcategory/" + underscored(macro) + "/" + underscored(name)).Value
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// AnchorEmbeddings holds the embedded anchor set. It is the artifact shared
// by the anchor embedding stage and the assignment stage.
type AnchorEmbeddings struct {
	Version string           `json:"version"`
	Model   string           `json:"model,omitempty"`
	Macros  []MacroEmbedding `json:"macrocategories"`
}

// MacroEmbedding is one embedded macrocategory.
type MacroEmbedding struct {
	Name             string           `json:"name"`
	Anchors          []string         `json:"anchors"`
	AnchorEmbeddings [][]float32      `json:"anchor_embeddings"`
	Average          []float32        `json:"macro_avg_embedding"`
	Micros           []MicroEmbedding `json:"microcategories"`
}

// MicroEmbedding is one embedded microcategory.
type MicroEmbedding struct {
	Name    string    `json:"name"`
	Anchors []string  `json:"anchors"`
	Average []float32 `json:"avg_embedding"`
}

// EmbedAnchors embeds every anchor phrase and averages them per category.
// Each distinct phrase is embedded once. Any embedding failure is returned,
// since assignment is meaningless with a partial anchor set.
func EmbedAnchors(ctx context.Context, set *AnchorSet, embedder ai.Embedder) (*AnchorEmbeddings, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}

	var phrases []string
	seen := make(map[string]bool)
	collect := func(cats []AnchorCategory) {
		for _, c := range cats {
			for _, p := range c.Phrases {
				if !seen[p] {
					seen[p] = true
					phrases = append(phrases, p)
				}
			}
		}
	}
	collect(set.Macros)
	for _, macro := range set.Macros {
		collect(set.MicroAnchors(macro))
	}

	vectors, err := embedder.EmbedTexts(ctx, phrases)
	if err != nil {
		return nil, fmt.Errorf("embedding anchors: %w", err)
	}
	if len(vectors) != len(phrases) {
		return nil, fmt.Errorf("embedding anchors: got %d vectors for %d phrases", len(vectors), len(phrases))
	}
	byPhrase := make(map[string][]float32, len(phrases))
	for i, p := range phrases {
		byPhrase[p] = vectors[i]
	}

	lookup := func(ps []string) [][]float32 {
		out := make([][]float32, len(ps))
		for i, p := range ps {
			out[i] = byPhrase[p]
		}
		return out
	}

	result := &AnchorEmbeddings{Version: set.Version, Macros: make([]MacroEmbedding, 0, len(set.Macros))}
	for _, macro := range set.Macros {
		vecs := lookup(macro.Phrases)
		me := MacroEmbedding{
			Name:             macro.Name,
			Anchors:          macro.Phrases,
			AnchorEmbeddings: vecs,
			Average:          meanVector(vecs),
		}
		for _, micro := range set.MicroAnchors(macro) {
			me.Micros = append(me.Micros, MicroEmbedding{
				Name:    micro.Name,
				Anchors: micro.Phrases,
				Average: meanVector(lookup(micro.Phrases)),
			})
		}
		result.Macros = append(result.Macros, me)
	}
	return result, nil
}

// WriteAnchorEmbeddings writes the artifact as indented JSON.
func WriteAnchorEmbeddings(w io.Writer, ae *AnchorEmbeddings) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ae)
}

// ReadAnchorEmbeddings reads and checks an artifact written by WriteAnchorEmbeddings.
func ReadAnchorEmbeddings(r io.Reader) (*AnchorEmbeddings, error) {
	var ae AnchorEmbeddings
	if err := json.NewDecoder(r).Decode(&ae); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAnchors, err)
	}
	if len(ae.Macros) == 0 {
		return nil, fmt.Errorf("%w: no macrocategories", ErrInvalidAnchors)
	}
	for _, m := range ae.Macros {
		if len(m.Average) == 0 {
			return nil, fmt.Errorf("%w: macrocategory %q has no embedding", ErrInvalidAnchors, m.Name)
		}
	}
	return &ae, nil
}

// SaveAnchorEmbeddings writes the artifact to path.
func SaveAnchorEmbeddings(path string, ae *AnchorEmbeddings) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteAnchorEmbeddings(f, ae); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadAnchorEmbeddings reads the artifact from path.
func LoadAnchorEmbeddings(path string) (*AnchorEmbeddings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAnchorEmbeddings(f)
}
