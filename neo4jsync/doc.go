// Package neo4jsync mirrors the provider graph into Neo4j.
//
// Triples are mapped the way rdflib-neo4j lays out RDF: every IRI becomes a
// node labeled Resource and keyed by its uri property, rdf:type objects become
// extra labels, literal objects become properties and IRI objects become
// relationships. Names take the form prefix__Local using the same namespace
// prefixes the Turtle writer emits.
//
// Basic usage:
//
//	client, err := neo4jsync.NewClient(ctx, neo4jsync.Config{URI: "neo4j://localhost:7687"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	exporter, err := neo4jsync.NewExporter(client)
//	stats, err := exporter.Export(ctx, store)
package neo4jsync
