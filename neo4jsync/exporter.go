package neo4jsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
)

const defaultBatchSize = 500

const constraintQuery = `CREATE CONSTRAINT resource_uri_unique IF NOT EXISTS FOR (r:Resource) REQUIRE r.uri IS UNIQUE`

const mergeNodesQuery = `
UNWIND $rows AS row
MERGE (n:Resource {uri: row.uri})
SET n += row.props
`

// Stats summarizes an export.
type Stats struct {
	Triples       int
	Nodes         int
	Labels        int
	Relationships int
	Statements    int
}

// Exporter writes the graph through a Runner.
type Exporter struct {
	runner        Runner
	batchSize     int
	skipEmbedding bool
	logger        *slog.Logger
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithBatchSize sets the number of rows per UNWIND statement. Non-positive
// sizes keep the default.
func WithBatchSize(n int) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithoutEmbeddings leaves embedding literals out of the mirror.
func WithoutEmbeddings() ExporterOption {
	return func(e *Exporter) {
		e.skipEmbedding = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ExporterOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter creates an exporter writing through runner.
func NewExporter(runner Runner, opts ...ExporterOption) (*Exporter, error) {
	if runner == nil {
		return nil, ErrRunnerRequired
	}
	e := &Exporter{
		runner:    runner,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "neo4j-exporter")
	return e, nil
}

// Export mirrors every triple in store.
func (e *Exporter) Export(ctx context.Context, store storage.TripleStore) (Stats, error) {
	if store == nil {
		return Stats{}, ErrStoreRequired
	}
	triples, err := store.Match(ctx, core.Pattern{})
	if err != nil {
		return Stats{}, fmt.Errorf("read triples: %w", err)
	}
	if e.skipEmbedding {
		kept := triples[:0]
		for _, t := range triples {
			if !strings.HasPrefix(t.Predicate.Value, core.NSEmbedding) {
				kept = append(kept, t)
			}
		}
		triples = kept
	}
	stats, err := e.ExportBatch(ctx, BuildBatch(triples))
	stats.Triples = len(triples)
	return stats, err
}

// ExportBatch writes nodes, then labels, then relationships. Every statement
// uses MERGE so repeated exports converge.
func (e *Exporter) ExportBatch(ctx context.Context, b *Batch) (Stats, error) {
	var stats Stats
	run := func(query string, params map[string]any) error {
		if err := e.runner.Write(ctx, query, params); err != nil {
			return err
		}
		stats.Statements++
		return nil
	}

	// Best-effort schema init.
	if err := e.runner.Write(ctx, constraintQuery, nil); err != nil {
		e.logger.Warn("unable to create uri constraint", "err", err)
	}

	for chunk := range chunks(len(b.Nodes), e.batchSize) {
		rows := make([]map[string]any, 0, chunk.end-chunk.start)
		for _, n := range b.Nodes[chunk.start:chunk.end] {
			rows = append(rows, map[string]any{"uri": n.URI, "props": n.Props})
		}
		if err := run(mergeNodesQuery, map[string]any{"rows": rows}); err != nil {
			return stats, fmt.Errorf("merge nodes: %w", err)
		}
		stats.Nodes += len(rows)
	}

	byLabel := make(map[string][]string)
	for _, n := range b.Nodes {
		for _, l := range n.Labels {
			byLabel[l] = append(byLabel[l], n.URI)
		}
	}
	for _, label := range sortedKeys(byLabel) {
		uris := byLabel[label]
		query := "UNWIND $uris AS uri\nMATCH (n:Resource {uri: uri})\nSET n:" + quoteName(label)
		for chunk := range chunks(len(uris), e.batchSize) {
			if err := run(query, map[string]any{"uris": uris[chunk.start:chunk.end]}); err != nil {
				return stats, fmt.Errorf("set label %s: %w", label, err)
			}
		}
		stats.Labels += len(uris)
	}

	byType := make(map[string][]map[string]any)
	for _, r := range b.Relationships {
		byType[r.Type] = append(byType[r.Type], map[string]any{"from": r.From, "to": r.To})
	}
	for _, typ := range sortedKeys(byType) {
		rows := byType[typ]
		query := "UNWIND $rows AS row\n" +
			"MATCH (a:Resource {uri: row.from})\n" +
			"MATCH (b:Resource {uri: row.to})\n" +
			"MERGE (a)-[:" + quoteName(typ) + "]->(b)"
		for chunk := range chunks(len(rows), e.batchSize) {
			if err := run(query, map[string]any{"rows": rows[chunk.start:chunk.end]}); err != nil {
				return stats, fmt.Errorf("merge %s relationships: %w", typ, err)
			}
		}
		stats.Relationships += len(rows)
	}

	e.logger.Info("export complete",
		"nodes", stats.Nodes,
		"labels", stats.Labels,
		"relationships", stats.Relationships,
		"statements", stats.Statements)
	return stats, nil
}

type span struct{ start, end int }

// chunks yields consecutive [start, end) windows of at most size elements.
func chunks(n, size int) func(yield func(span) bool) {
	size = max(size, 1)
	return func(yield func(span) bool) {
		for start := 0; start < n; start += size {
			if !yield(span{start, min(start+size, n)}) {
				return
			}
		}
	}
}

// quoteName backtick-quotes a label or relationship type. Cypher cannot
// parameterize either.
func quoteName(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
