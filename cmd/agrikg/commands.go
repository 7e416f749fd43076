package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/agrikg"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/enrich"
	"github.com/poiesic/agrikg/mutator"
	"github.com/poiesic/agrikg/neo4jsync"
	"github.com/poiesic/agrikg/rdfio"
	"github.com/poiesic/agrikg/search"
	"github.com/poiesic/agrikg/taxonomy"
	"github.com/poiesic/agrikg/vectorstore"
)

func rdfFormat(c *cli.Context, path string) (rdfio.Format, error) {
	if name := c.String("format"); name != "" {
		return rdfio.ParseFormat(name)
	}
	return rdfio.FormatFromPath(path), nil
}

func importCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("input file is required")
	}
	format, err := rdfFormat(c, path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	added, err := rdfio.Load(c.Context, g.Store(), f, format)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Imported %d new triples from %s\n", added, path)
	return nil
}

func exportCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		path = "-"
	}
	format, err := rdfFormat(c, path)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	out := c.App.Writer
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	n, err := rdfio.Dump(c.Context, g.Store(), out, format)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if path != "-" {
		fmt.Fprintf(c.App.Writer, "Exported %d triples to %s\n", n, path)
	}
	return nil
}

// withMutator runs fn against a mutator over the configured graph.
func withMutator(c *cli.Context, fn func(ctx context.Context, m *mutator.Mutator) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	m, err := g.NewMutator()
	if err != nil {
		return err
	}
	return fn(c.Context, m)
}

func normalizeCommand(c *cli.Context) error {
	return withMutator(c, func(ctx context.Context, m *mutator.Mutator) error {
		n, err := m.NormalizeSpecialties(ctx)
		if err != nil {
			return fmt.Errorf("normalize failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Rewrote %d triples\n", n)
		return nil
	})
}

func propagateCommand(c *cli.Context) error {
	return withMutator(c, func(ctx context.Context, m *mutator.Mutator) error {
		stats, err := m.PropagateToOrganizations(ctx)
		if err != nil {
			return fmt.Errorf("propagation failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Organizations: %d, edges added: %d, already present: %d\n",
			stats.Organizations, stats.EdgesAdded, stats.EdgesExisting)
		return nil
	})
}

func cleanupCommand(c *cli.Context) error {
	return withMutator(c, func(ctx context.Context, m *mutator.Mutator) error {
		n, err := m.CleanupStructuralViolations(ctx)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Fprintf(c.App.Writer, "Removed %d edges\n", n)
		return nil
	})
}

func embedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("batch-size"); n > 0 {
		cfg.Embedding.BatchSize = n
	}
	if c.Int("report-interval") <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	g, err := openGraph(c, cfg, true)
	if err != nil {
		return err
	}
	defer g.Close()

	enrichCfg := cfg.EnrichConfig()
	enrichCfg.Force = c.Bool("force")
	enrichCfg.ReportInterval = c.Int("report-interval")
	e, err := g.NewEnricher(enrich.WithConfig(enrichCfg), enrich.WithProgress(c.App.ErrWriter))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Store.Path)
	fmt.Fprintf(c.App.ErrWriter, "Embedding provider: %s\n", cfg.Embedding.Provider)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(c.App.ErrWriter)

	stats, err := e.Run(c.Context)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Items: %d, embedded: %d, failed: %d, skipped: %d\n",
		stats.Items, stats.Embedded, stats.Failed, stats.Skipped)
	return nil
}

func locateCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("locations file is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	stats, err := enrich.LoadLocations(c.Context, g.Store(), f, nil)
	if err != nil {
		return fmt.Errorf("locate failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Features: %d, updated: %d, skipped: %d, unmatched: %d\n",
		stats.Features, stats.Updated, stats.Skipped, stats.Unmatched)
	return nil
}

// specialtyEntries reads embeddings from an artifact when path is set,
// otherwise from the graph.
func specialtyEntries(c *cli.Context, path string) ([]core.Embedded, error) {
	if path != "" {
		a, err := vectorstore.LoadArtifact(path)
		if err != nil {
			return nil, err
		}
		return a.Entries(), nil
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return nil, err
	}
	defer g.Close()
	adapter, err := g.NewVectorStore()
	if err != nil {
		return nil, err
	}
	return adapter.FetchEntitiesWithEmbeddings(c.Context, core.Specialty)
}

func extractCommand(c *cli.Context) error {
	entries, err := specialtyEntries(c, "")
	if err != nil {
		return err
	}
	out := c.String("out")
	if err := vectorstore.SaveArtifact(out, vectorstore.NewArtifact(entries)); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Wrote %d embeddings to %s\n", len(entries), out)
	return nil
}

func elbowCommand(c *cli.Context) error {
	entries, err := specialtyEntries(c, c.String("from-artifact"))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	m, err := taxonomy.NewMatrix(entries)
	if err != nil {
		return err
	}
	tax := cfg.TaxonomyConfig()
	base := taxonomy.KMeans{
		Seed:          tax.Seed,
		MaxIterations: tax.MaxIterations,
		NInit:         tax.NInit,
		Tolerance:     tax.Tolerance,
	}
	points, err := taxonomy.Elbow(c.Context, m, c.Int("kmin"), c.Int("kmax"), base)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "K\tINERTIA")
	for _, p := range points {
		fmt.Fprintf(w, "%d\t%.4f\n", p.K, p.Inertia)
	}
	return w.Flush()
}

func loadAnchorSet(path string) (*taxonomy.AnchorSet, error) {
	if path == "" {
		return taxonomy.DefaultAnchors()
	}
	return taxonomy.LoadAnchors(path)
}

func embedAnchorsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	anchorsPath := c.String("anchors")
	if anchorsPath == "" {
		anchorsPath = cfg.Taxonomy.AnchorsFile
	}
	set, err := loadAnchorSet(anchorsPath)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, true)
	if err != nil {
		return err
	}
	defer g.Close()

	ae, err := g.EmbedAnchors(c.Context, set)
	if err != nil {
		return fmt.Errorf("anchor embedding failed: %w", err)
	}
	ae.Model = cfg.Embedding.Model
	out := c.String("out")
	if out == "" {
		out = cfg.Taxonomy.AnchorEmbeddingsFile
	}
	if err := taxonomy.SaveAnchorEmbeddings(out, ae); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Embedded %d macrocategories (anchor set %s) to %s\n", len(ae.Macros), ae.Version, out)
	return nil
}

// taxonomyConfig applies command flags over the configured parameters.
func taxonomyConfig(c *cli.Context, base taxonomy.Config) taxonomy.Config {
	cfg := base
	if c.IsSet("strategy") {
		cfg.Strategy = core.Strategy(strings.ToLower(c.String("strategy")))
	}
	if c.IsSet("k") {
		cfg.MacroCount = c.Int("k")
	}
	if c.IsSet("m") {
		cfg.MicroCount = c.Int("m")
	}
	if c.IsSet("seed") {
		cfg.Seed = c.Uint64("seed")
	}
	if c.IsSet("micro-policy") {
		cfg.MicroPolicy = taxonomy.MicroPolicy(strings.ToLower(c.String("micro-policy")))
	}
	if c.IsSet("derive-micro-labels") {
		cfg.DeriveMicroLabels = c.Bool("derive-micro-labels")
	}
	return cfg
}

func taxonomyCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	taxCfg := taxonomyConfig(c, cfg.TaxonomyConfig())
	if err := taxCfg.Validate(); err != nil {
		return err
	}

	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	var builder taxonomy.Builder
	switch taxCfg.Strategy {
	case core.StrategyKMeans:
		builder, err = g.NewClusterBuilder(taxCfg)
	case core.StrategyAnchors:
		path := c.String("anchor-embeddings")
		if path == "" {
			path = cfg.Taxonomy.AnchorEmbeddingsFile
		}
		var anchors *taxonomy.AnchorEmbeddings
		anchors, err = taxonomy.LoadAnchorEmbeddings(path)
		if err != nil {
			return fmt.Errorf("failed to load anchor embeddings (run embed-anchors first): %w", err)
		}
		builder, err = g.NewAnchorBuilder(taxCfg, anchors)
	}
	if err != nil {
		return err
	}

	var opts []mutator.ApplyOption
	if c.Bool("prune") {
		opts = append(opts, mutator.WithPrune())
	}

	var res *agrikg.BuildResult
	if path := c.String("from-artifact"); path != "" {
		a, err := vectorstore.LoadArtifact(path)
		if err != nil {
			return err
		}
		res, err = g.BuildTaxonomyFrom(c.Context, a.Entries(), builder, taxCfg, opts...)
		if err != nil {
			return err
		}
	} else {
		res, err = g.BuildTaxonomy(c.Context, builder, taxCfg, opts...)
		if err != nil {
			return err
		}
	}

	w := c.App.Writer
	fmt.Fprintf(w, "Run %d (%s)\n", res.Run.ID, res.Run.Strategy)
	fmt.Fprintf(w, "Specialties: %d, skipped: %d\n", res.Run.Specialties, res.Run.Skipped)
	fmt.Fprintf(w, "Macrocategories: %d (%d new), microcategories: %d (%d new)\n",
		len(res.Taxonomy.Macros), res.Report.MacrosCreated, len(res.Taxonomy.Micros), res.Report.MicrosCreated)
	fmt.Fprintf(w, "Links added: %d, organization edges added: %d, pruned: %d\n",
		res.Report.LinksAdded, res.Report.Propagation.EdgesAdded, res.Report.EdgesPruned)
	if res.Taxonomy.Mismatches > 0 {
		fmt.Fprintf(w, "Micro/macro mismatches: %d\n", res.Taxonomy.Mismatches)
	}
	for _, m := range res.Taxonomy.Macros {
		fmt.Fprintf(w, "  %-40s %4d  %s\n", m.Label, len(m.Members), m.ID)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, true)
	if err != nil {
		return err
	}
	defer g.Close()

	s, err := g.NewSearcher()
	if err != nil {
		return err
	}
	var opts []search.QueryOption
	if macro := c.String("macro"); macro != "" {
		opts = append(opts, search.InMacrocategory(macro))
	}
	if c.IsSet("min-score") {
		opts = append(opts, search.MinScore(float32(c.Float64("min-score"))))
	}
	if c.IsSet("keyword-boost") {
		opts = append(opts, search.WithKeywordBoost(float32(c.Float64("keyword-boost"))))
	}

	results, err := s.FindProviders(c.Context, query, c.Int("top"), opts...)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	w := c.App.Writer
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %.4f  %s\n", i+1, r.Score, displayName(r))
		if r.URL != "" {
			fmt.Fprintf(w, "    %s\n", r.URL)
		}
		if len(r.Macrocategories) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(r.Macrocategories, ", "))
		}
		if r.BestSpecialty != "" {
			fmt.Fprintf(w, "    matched: %s\n", core.LocalName(r.BestSpecialty))
		}
		if r.Latitude != nil && r.Longitude != nil {
			fmt.Fprintf(w, "    location: %s, %s\n",
				strconv.FormatFloat(*r.Latitude, 'f', -1, 64), strconv.FormatFloat(*r.Longitude, 'f', -1, 64))
		}
	}
	return nil
}

func displayName(r *search.Result) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Organization
}

func syncNeo4jCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Neo4j.URI == "" {
		return errors.New("neo4j.uri is not configured")
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	client, err := neo4jsync.NewClient(c.Context, cfg.Neo4jConfig(), nil)
	if err != nil {
		return err
	}
	defer client.Close(context.Background())

	opts := []neo4jsync.ExporterOption{neo4jsync.WithBatchSize(c.Int("batch-size"))}
	if c.Bool("no-embeddings") {
		opts = append(opts, neo4jsync.WithoutEmbeddings())
	}
	exporter, err := neo4jsync.NewExporter(client, opts...)
	if err != nil {
		return err
	}
	stats, err := exporter.Export(c.Context, g.Store())
	if err != nil {
		return fmt.Errorf("neo4j sync failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Triples: %d, nodes: %d, labels: %d, relationships: %d\n",
		stats.Triples, stats.Nodes, stats.Labels, stats.Relationships)
	return nil
}

func runsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	g, err := openGraph(c, cfg, false)
	if err != nil {
		return err
	}
	defer g.Close()

	runs, err := g.Runs().ListRuns(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTRATEGY\tSPECIALTIES\tMACROS\tMICROS\tSKIPPED\tEDGES\tFINISHED\tPARAMS")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.Strategy, r.Specialties, r.Macros, r.Micros, r.Skipped, r.EdgesAdded,
			r.FinishedAt.Format("2006-01-02 15:04:05"), formatParams(r.Params))
	}
	return w.Flush()
}

func formatParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}
	return strings.Join(parts, ",")
}
