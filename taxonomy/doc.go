// Package taxonomy partitions embedded specialties into a two-level
// macro/micro category hierarchy.
//
// Two builders are provided. ClusterBuilder derives categories from the data
// with seeded k-means over standardized embeddings and names them from the
// most frequent member token. AnchorBuilder assigns specialties to curated
// anchor categories by cosine similarity. Both return a core.Taxonomy that
// the mutator package writes to the graph.
package taxonomy
