package rdfio

import "errors"

var (
	// ErrUnsupportedFormat indicates a serialization format that is not handled.
	ErrUnsupportedFormat = errors.New("unsupported rdf format")

	// ErrUnsupportedTerm indicates a parsed term of an unknown kind.
	ErrUnsupportedTerm = errors.New("unsupported rdf term")
)
