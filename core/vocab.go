package core

// Namespaces used by the provider graph.
const (
	NSRDF         = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS        = "http://www.w3.org/2000/01/rdf-schema#"
	NSXSD         = "http://www.w3.org/2001/XMLSchema#"
	NSSchema      = "http://schema.org/"
	NSCustom      = "http://example.org/custom/"
	NSSpecialties = "http://example.org/specialties/"
	NSEmbedding   = "http://example.org/embedding#"
)

// Datatypes.
const (
	XSDString = NSXSD + "string"
	XSDDouble = NSXSD + "double"
)

// Vocabulary terms.
var (
	RDFType   = IRI(NSRDF + "type")
	RDFValue  = IRI(NSRDF + "value")
	RDFSLabel = IRI(NSRDFS + "label")

	SchemaOrganization = IRI(NSSchema + "Organization")
	SchemaName         = IRI(NSSchema + "name")
	SchemaDescription  = IRI(NSSchema + "description")
	SchemaURL          = IRI(NSSchema + "url")
	SchemaLatitude     = IRI(NSSchema + "latitude")
	SchemaLongitude    = IRI(NSSchema + "longitude")

	HasSpecialty     = IRI(NSCustom + "hasSpecialty")
	HasMacrocategory = IRI(NSCustom + "hasMacrocategory")
	HasMicrocategory = IRI(NSCustom + "hasMicrocategory")

	Specialty              = IRI(NSSpecialties + "Specialty")
	Macrocategory          = IRI(NSSpecialties + "Macrocategory")
	Microcategory          = IRI(NSSpecialties + "Microcategory")
	BelongsToMacrocategory = IRI(NSSpecialties + "belongsToMacrocategory")
	IsSpecializedIn        = IRI(NSSpecialties + "isSpecializedIn")
	SpecialtyMicrocategory = IRI(NSSpecialties + "hasMicrocategory")

	EmbeddingValue       = IRI(NSEmbedding + "embedding_value")
	EmbeddingDescription = IRI(NSEmbedding + "embedding_description")
)

// EmbeddingPredicate returns the predicate under which the embedding of
// source is stored, e.g. rdf:value maps to ns2:embedding_value.
func EmbeddingPredicate(source Term) Term {
	return IRI(NSEmbedding + "embedding_" + source.LocalName())
}

// SpecialtyIRI returns the canonical IRI for a specialty local name.
func SpecialtyIRI(local string) Term {
	return IRI(NSSpecialties + local)
}
