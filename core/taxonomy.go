package core

import "time"

// CategoryKind identifies the level of a taxonomy category.
type CategoryKind uint8

const (
	// CategoryMacro is a top-level grouping of specialties.
	CategoryMacro CategoryKind = iota + 1
	// CategoryMicro is a grouping nested under exactly one macrocategory.
	CategoryMicro
)

// String implements fmt.Stringer.
func (k CategoryKind) String() string {
	switch k {
	case CategoryMacro:
		return "macro"
	case CategoryMicro:
		return "micro"
	default:
		return "unknown"
	}
}

// TypeTerm returns the rdf:type class for the category kind.
func (k CategoryKind) TypeTerm() Term {
	if k == CategoryMicro {
		return Microcategory
	}
	return Macrocategory
}

// Category is a node of the two-level specialty taxonomy.
type Category struct {
	ID      string       // IRI of the category node
	Kind    CategoryKind // macro or micro
	Label   string
	Parent  string    // owning macrocategory IRI, micro only
	Vector  []float32 // representative vector, optional
	Members []string  // specialty IRIs assigned to the category
}

// Assignment records the categories chosen for one specialty. Micro is empty
// when the specialty received no microcategory.
type Assignment struct {
	Specialty string
	Macro     string
	Micro     string
}

// Strategy names a taxonomy building strategy.
type Strategy string

const (
	StrategyKMeans  Strategy = "kmeans"
	StrategyAnchors Strategy = "anchors"
)

// Taxonomy is the output of one taxonomy build, ready to be written to the graph.
type Taxonomy struct {
	Strategy    Strategy
	Macros      []Category
	Micros      []Category
	Assignments []Assignment
	// Skipped lists specialties that could not be assigned, e.g. because of a
	// vector dimension mismatch.
	Skipped []string
	// Mismatches counts specialties whose micro category is not a child of
	// their macro category. Only independent anchor assignment produces them.
	Mismatches int
}

// Macro returns the macrocategory with the given id.
func (t *Taxonomy) Macro(id string) (Category, bool) {
	for _, c := range t.Macros {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Micro returns the microcategory with the given id.
func (t *Taxonomy) Micro(id string) (Category, bool) {
	for _, c := range t.Micros {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Run records one taxonomy build applied to the graph.
type Run struct {
	ID          ID
	Strategy    Strategy
	Params      map[string]string
	Specialties int
	Macros      int
	Micros      int
	Skipped     int
	EdgesAdded  int
	EdgesPruned int
	StartedAt   time.Time
	FinishedAt  time.Time
}
