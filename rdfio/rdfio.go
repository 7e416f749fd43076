// Package rdfio converts between the triple store and portable RDF
// serializations (N-Triples and Turtle).
package rdfio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knakk/rdf"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

// Format is an RDF serialization.
type Format string

const (
	NTriples Format = "ntriples"
	Turtle   Format = "turtle"
)

// loadBatch is the number of decoded triples buffered before writing.
const loadBatch = 1000

// FormatFromPath guesses the format from a file extension. Unknown
// extensions default to Turtle.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nt":
		return NTriples
	default:
		return Turtle
	}
}

// ParseFormat resolves a user supplied format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "nt", "ntriples", "n-triples":
		return NTriples, nil
	case "ttl", "turtle":
		return Turtle, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

func (f Format) rdfFormat() (rdf.Format, error) {
	switch f {
	case NTriples:
		return rdf.NTriples, nil
	case Turtle:
		return rdf.Turtle, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}

// Decode parses every triple from r.
func Decode(r io.Reader, format Format) ([]core.Triple, error) {
	var out []core.Triple
	err := decodeEach(r, format, func(t core.Triple) error {
		out = append(out, t)
		return nil
	})
	return out, err
}

func decodeEach(r io.Reader, format Format, fn func(core.Triple) error) error {
	f, err := format.rdfFormat()
	if err != nil {
		return err
	}
	dec := rdf.NewTripleDecoder(r, f)
	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", format, err)
		}
		t, err := fromRDF(tr)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
	}
}

// Encode writes triples to w in the requested format.
func Encode(w io.Writer, format Format, triples []core.Triple) error {
	f, err := format.rdfFormat()
	if err != nil {
		return err
	}
	if format == Turtle {
		return encodeTurtle(w, triples)
	}
	enc := rdf.NewTripleEncoder(w, f)
	for _, t := range triples {
		tr, err := toRDF(t)
		if err != nil {
			return err
		}
		if err := enc.Encode(tr); err != nil {
			return fmt.Errorf("encode %s: %w", format, err)
		}
	}
	return enc.Close()
}

// encodeTurtle writes the prefix table followed by one full statement per
// triple. IRIs are never abbreviated and non-string literals keep their
// datatype.
func encodeTurtle(w io.Writer, triples []core.Triple) error {
	bw := bufio.NewWriter(w)
	prefixes := Prefixes()
	namespaces := make([]string, 0, len(prefixes))
	for ns := range prefixes {
		namespaces = append(namespaces, ns)
	}
	sort.Slice(namespaces, func(i, j int) bool {
		return prefixes[namespaces[i]] < prefixes[namespaces[j]]
	})
	for _, ns := range namespaces {
		fmt.Fprintf(bw, "@prefix %s: <%s> .\n", prefixes[ns], ns)
	}
	bw.WriteString("\n")

	for _, t := range triples {
		tr, err := toRDF(t)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(tr.Serialize(rdf.NTriples)); err != nil {
			return fmt.Errorf("encode %s: %w", Turtle, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("encode %s: %w", Turtle, err)
	}
	return nil
}

// Prefixes returns the namespace bindings declared in Turtle output.
func Prefixes() map[string]string {
	return map[string]string{
		core.NSRDF:         "rdf",
		core.NSRDFS:        "rdfs",
		core.NSXSD:         "xsd",
		core.NSSchema:      "schema1",
		core.NSCustom:      "custom",
		core.NSSpecialties: "specialties",
		core.NSEmbedding:   "ns2",
	}
}

// Load parses r and adds its triples to the store. It returns the number of
// triples that were not already present.
func Load(ctx context.Context, store storage.TripleStore, r io.Reader, format Format) (int, error) {
	added := 0
	batch := make([]core.Triple, 0, loadBatch)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.Add(ctx, batch...)
		added += n
		batch = batch[:0]
		return err
	}

	err := decodeEach(r, format, func(t core.Triple) error {
		batch = append(batch, t)
		if len(batch) == loadBatch {
			return flush()
		}
		return nil
	})
	if err != nil {
		return added, err
	}
	return added, flush()
}

// Dump writes every stored triple to w.
func Dump(ctx context.Context, store storage.TripleStore, w io.Writer, format Format) (int, error) {
	triples, err := store.Match(ctx, core.Pattern{})
	if err != nil {
		return 0, err
	}
	return len(triples), Encode(w, format, triples)
}

func fromRDF(tr rdf.Triple) (core.Triple, error) {
	s, err := fromTerm(tr.Subj)
	if err != nil {
		return core.Triple{}, err
	}
	p, err := fromTerm(tr.Pred)
	if err != nil {
		return core.Triple{}, err
	}
	o, err := fromTerm(tr.Obj)
	if err != nil {
		return core.Triple{}, err
	}
	return core.T(s, p, o), nil
}

func fromTerm(t rdf.Term) (core.Term, error) {
	switch v := t.(type) {
	case rdf.IRI:
		return core.IRI(v.String()), nil
	case rdf.Blank:
		return core.Blank(v.String()), nil
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return core.LangLiteral(v.String(), lang), nil
		}
		return core.TypedLiteral(v.String(), v.DataType.String()), nil
	default:
		return core.Term{}, fmt.Errorf("%w: %T", ErrUnsupportedTerm, t)
	}
}

func toRDF(t core.Triple) (rdf.Triple, error) {
	s, err := toTerm(t.Subject)
	if err != nil {
		return rdf.Triple{}, err
	}
	p, err := toTerm(t.Predicate)
	if err != nil {
		return rdf.Triple{}, err
	}
	o, err := toTerm(t.Object)
	if err != nil {
		return rdf.Triple{}, err
	}
	return rdf.Triple{Subj: s.(rdf.Subject), Pred: p.(rdf.Predicate), Obj: o.(rdf.Object)}, nil
}

func toTerm(t core.Term) (rdf.Term, error) {
	switch t.Kind {
	case core.KindIRI:
		return rdf.NewIRI(t.Value)
	case core.KindBlank:
		return rdf.NewBlank(t.Value)
	case core.KindLiteral:
		if t.Lang != "" {
			return rdf.NewLangLiteral(t.Value, t.Lang)
		}
		dt := t.Datatype
		if dt == "" {
			dt = core.XSDString
		}
		iri, err := rdf.NewIRI(dt)
		if err != nil {
			return nil, err
		}
		return rdf.NewTypedLiteral(t.Value, iri), nil
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnsupportedTerm, t.Kind)
	}
}
