package search

// SearchMonitor observes the stages of a provider search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimensions int)
	AfterCandidateRetrieval(organizations int)
	ProviderScored(organization string, score float32, specialty string)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                               {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)                    {}
func (n *noopMonitor) AfterCandidateRetrieval(_ int)                {}
func (n *noopMonitor) ProviderScored(_ string, _ float32, _ string) {}
func (n *noopMonitor) Finish(_ []*Result)                           {}
