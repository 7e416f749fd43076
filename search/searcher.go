package search

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/poiesic/agrikg/ai"
	"github.com/poiesic/agrikg/core"
	"github.com/poiesic/agrikg/storage"
	"github.com/poiesic/agrikg/vectorstore"
)

// Result is one ranked provider.
type Result struct {
	Organization    string
	Name            string
	URL             string
	Description     string
	Latitude        *float64
	Longitude       *float64
	Macrocategories []string // labels, or IRIs of unlabeled categories
	BestSpecialty   string   // specialty that produced the score
	Score           float32
}

// Searcher ranks organizations by the similarity of their specialties to a query.
type Searcher struct {
	store     storage.TripleStore
	embedder  ai.Embedder
	predicate core.Term
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.TripleStore, provider ai.AIProvider, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	s := &Searcher{
		store:     store,
		embedder:  provider.Embedder(),
		predicate: core.EmbeddingValue,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

type queryOptions struct {
	macro        string
	minScore     *float32
	keywordBoost float32
}

// QueryOption narrows or adjusts a search.
type QueryOption func(*queryOptions)

// InMacrocategory keeps only organizations holding the macrocategory.
func InMacrocategory(iri string) QueryOption {
	return func(o *queryOptions) {
		o.macro = iri
	}
}

// MinScore drops results scoring below min.
func MinScore(min float32) QueryOption {
	return func(o *queryOptions) {
		o.minScore = &min
	}
}

// WithKeywordBoost adds boost to organizations whose name or description
// contains every query word.
func WithKeywordBoost(boost float32) QueryOption {
	return func(o *queryOptions) {
		o.keywordBoost = boost
	}
}

// FindProviders returns up to topK organizations ranked by score.
func (s *Searcher) FindProviders(ctx context.Context, query string, topK int, opts ...QueryOption) ([]*Result, error) {
	return s.FindProvidersWithMonitor(ctx, query, topK, nil, opts...)
}

// FindProvidersWithMonitor is FindProviders reporting each stage to monitor.
func (s *Searcher) FindProvidersWithMonitor(ctx context.Context, query string, topK int, monitor SearchMonitor, opts ...QueryOption) ([]*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	monitor.Start(query)

	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(len(embedding))

	orgs, err := s.candidates(ctx, o.macro)
	if err != nil {
		return nil, err
	}
	monitor.AfterCandidateRetrieval(len(orgs))

	vectors := make(map[core.Term][]float32)
	results := make([]*Result, 0, len(orgs))
	for _, org := range orgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := s.score(ctx, org, embedding, vectors)
		if err != nil {
			return nil, err
		}
		if err := s.describe(ctx, org, r); err != nil {
			return nil, err
		}
		if o.keywordBoost != 0 && containsAllQueryWords(query, r.Name, r.Description) {
			r.Score += o.keywordBoost
		}
		monitor.ProviderScored(r.Organization, r.Score, r.BestSpecialty)
		if o.minScore != nil && r.Score < *o.minScore {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	monitor.Finish(results)
	return results, nil
}

// candidates lists organizations, each once, optionally within a macrocategory.
func (s *Searcher) candidates(ctx context.Context, macro string) ([]core.Term, error) {
	var orgs []core.Term
	var err error
	if macro != "" {
		orgs, err = s.store.Subjects(ctx, core.HasMacrocategory, core.IRI(macro))
	} else {
		orgs, err = s.store.Subjects(ctx, core.RDFType, core.SchemaOrganization)
	}
	if err != nil {
		return nil, err
	}
	seen := make(map[core.Term]bool, len(orgs))
	out := orgs[:0]
	for _, o := range orgs {
		if !seen[o] {
			seen[o] = true
			out = append(out, o)
		}
	}
	return out, nil
}

// score sets the best cosine between the query and the organization's
// specialties. Organizations without embedded specialties score 0.
// Parsed vectors are memoized in cache since specialties are shared.
func (s *Searcher) score(ctx context.Context, org core.Term, query []float32, cache map[core.Term][]float32) (*Result, error) {
	r := &Result{Organization: org.Value}
	specialties, err := s.store.Objects(ctx, org, core.HasSpecialty)
	if err != nil {
		return nil, err
	}
	first := true
	for _, sp := range specialties {
		v, ok := cache[sp]
		if !ok {
			v = s.vectorOf(ctx, sp)
			cache[sp] = v
		}
		if v == nil {
			continue
		}
		sim := ai.CosineSimilarity(query, v)
		if first || sim > r.Score {
			r.Score, r.BestSpecialty = sim, sp.Value
			first = false
		}
	}
	return r, nil
}

func (s *Searcher) vectorOf(ctx context.Context, specialty core.Term) []float32 {
	objects, err := s.store.Objects(ctx, specialty, s.predicate)
	if err != nil {
		s.logger.Warn("error reading specialty embedding", "entity", specialty.Value, "err", err)
		return nil
	}
	for _, o := range objects {
		if v, err := vectorstore.ParseVector(o.Value); err == nil {
			return v
		}
	}
	return nil
}

// describe fills the display fields of a result.
func (s *Searcher) describe(ctx context.Context, org core.Term, r *Result) error {
	literal := func(p core.Term) (string, error) {
		objects, err := s.store.Objects(ctx, org, p)
		if err != nil || len(objects) == 0 {
			return "", err
		}
		return objects[0].Value, nil
	}
	coordinate := func(p core.Term) (*float64, error) {
		v, err := literal(p)
		if err != nil || v == "" {
			return nil, err
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil
		}
		return &f, nil
	}

	var err error
	if r.Name, err = literal(core.SchemaName); err != nil {
		return err
	}
	if r.URL, err = literal(core.SchemaURL); err != nil {
		return err
	}
	if r.Description, err = literal(core.SchemaDescription); err != nil {
		return err
	}
	if r.Latitude, err = coordinate(core.SchemaLatitude); err != nil {
		return err
	}
	if r.Longitude, err = coordinate(core.SchemaLongitude); err != nil {
		return err
	}

	macros, err := s.store.Objects(ctx, org, core.HasMacrocategory)
	if err != nil {
		return err
	}
	for _, m := range macros {
		labels, err := s.store.Objects(ctx, m, core.RDFSLabel)
		if err != nil {
			return err
		}
		if len(labels) > 0 {
			r.Macrocategories = append(r.Macrocategories, labels[0].Value)
		} else {
			r.Macrocategories = append(r.Macrocategories, m.Value)
		}
	}
	sort.Strings(r.Macrocategories)
	return nil
}
