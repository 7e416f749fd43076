package neo4jsync

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/rdfio"
)

// ResourceLabel is carried by every exported node.
const ResourceLabel = "Resource"

// Node is one resource with its literal properties.
type Node struct {
	URI    string
	Labels []string
	Props  map[string]any
}

// Relationship is an IRI-valued edge between two resources.
type Relationship struct {
	Type string
	From string
	To   string
}

// Batch is the property-graph form of a set of triples. Nodes and
// relationships keep the order in which the triples first mention them.
type Batch struct {
	Nodes         []Node
	Relationships []Relationship
}

// Namer maps IRIs to prefix__Local names. Namespaces without a known prefix
// get ns0, ns1, ... in order of first use.
type Namer struct {
	prefixes map[string]string
	next     int
}

// NewNamer returns a namer seeded with the graph's standard prefixes.
func NewNamer() *Namer {
	prefixes := make(map[string]string)
	used := make(map[string]bool)
	for ns, p := range rdfio.Prefixes() {
		prefixes[ns] = p
		used[p] = true
	}
	n := &Namer{prefixes: prefixes}
	// Skip generated names that would collide with a bound prefix.
	for used["ns"+strconv.Itoa(n.next)] {
		n.next++
	}
	return n
}

// Name returns the prefixed name of iri.
func (n *Namer) Name(iri string) string {
	i := strings.LastIndexAny(iri, "#/")
	if i < 0 || i == len(iri)-1 {
		return iri
	}
	ns, local := iri[:i+1], iri[i+1:]
	p, ok := n.prefixes[ns]
	if !ok {
		p = "ns" + strconv.Itoa(n.next)
		n.next++
		n.prefixes[ns] = p
	}
	return p + "__" + local
}

// BuildBatch converts triples into nodes and relationships. Repeated literal
// values for one property become a list.
func BuildBatch(triples []core.Triple) *Batch {
	namer := NewNamer()
	b := &Batch{}
	index := make(map[string]int)
	seenLabel := make(map[string]bool)
	seenRel := make(map[Relationship]bool)

	node := func(t core.Term) *Node {
		uri := nodeURI(t)
		i, ok := index[uri]
		if !ok {
			i = len(b.Nodes)
			index[uri] = i
			b.Nodes = append(b.Nodes, Node{URI: uri, Props: map[string]any{}})
		}
		return &b.Nodes[i]
	}

	for _, t := range triples {
		subject := node(t.Subject)
		switch {
		case t.Predicate == core.RDFType && !t.Object.IsLiteral():
			label := namer.Name(t.Object.Value)
			key := subject.URI + " " + label
			if !seenLabel[key] {
				seenLabel[key] = true
				subject.Labels = append(subject.Labels, label)
			}
		case t.Object.IsLiteral():
			addProp(subject.Props, namer.Name(t.Predicate.Value), literalValue(t.Object))
		default:
			from := subject.URI
			to := node(t.Object).URI
			rel := Relationship{Type: namer.Name(t.Predicate.Value), From: from, To: to}
			if !seenRel[rel] {
				seenRel[rel] = true
				b.Relationships = append(b.Relationships, rel)
			}
		}
	}
	for i := range b.Nodes {
		normalizeProps(b.Nodes[i].Props)
	}
	return b
}

func nodeURI(t core.Term) string {
	if t.Kind == core.KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

func addProp(props map[string]any, key string, v any) {
	switch cur := props[key].(type) {
	case nil:
		props[key] = v
	case []any:
		props[key] = append(cur, v)
	default:
		props[key] = []any{cur, v}
	}
}

// normalizeProps makes list properties homogeneous, which Neo4j requires.
// Mixed lists are stored as strings.
func normalizeProps(props map[string]any) {
	for k, v := range props {
		list, ok := v.([]any)
		if !ok {
			continue
		}
		kind := fmt.Sprintf("%T", list[0])
		mixed := false
		for _, e := range list[1:] {
			if fmt.Sprintf("%T", e) != kind {
				mixed = true
				break
			}
		}
		if mixed {
			strs := make([]any, len(list))
			for i, e := range list {
				strs[i] = fmt.Sprint(e)
			}
			props[k] = strs
		}
	}
}

// literalValue converts numeric and boolean literals to native values.
func literalValue(t core.Term) any {
	switch t.Datatype {
	case core.XSDDouble, core.NSXSD + "float", core.NSXSD + "decimal":
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case core.NSXSD + "integer", core.NSXSD + "int", core.NSXSD + "long":
		if i, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return i
		}
	case core.NSXSD + "boolean":
		if v, err := strconv.ParseBool(t.Value); err == nil {
			return v
		}
	}
	return t.Value
}
