// Package enrich adds derived data to the provider graph ahead of taxonomy
// building.
//
// The Enricher embeds schema:description and rdf:value texts and stores each
// vector as a JSON literal under the matching ns2:embedding_<name> predicate.
// Batches run concurrently on a worker pool with retry and exponential
// backoff; a batch that keeps failing falls back to embedding its items one
// at a time so a single bad text never loses the batch.
//
// LoadLocations attaches coordinates from a GeoJSON-like feature file to the
// organizations whose schema:url matches.
package enrich
