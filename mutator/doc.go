// Package mutator writes taxonomies into the knowledge graph.
//
// Node creation is idempotent and edge insertion is check-before-insert, so
// applying the same taxonomy twice leaves the triple count unchanged.
// Organization memberships are derived by walking each organization's
// specialties and are never authoritative.
package mutator
