// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/agrikg"
	"github.com/poiesic/agrikg/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dbFlag := &cli.StringFlag{
		Name:    "db",
		Aliases: []string{"d"},
		Usage:   "Path to BadgerDB database directory (overrides store.path)",
	}
	return &cli.App{
		Name:  "agrikg",
		Usage: "Taxonomy pipeline for the agricultural provider knowledge graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
			},
			dbFlag,
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Load an RDF file into the graph",
				ArgsUsage: "FILE",
				Action:    importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "ntriples or turtle (default: from extension)"},
				},
			},
			{
				Name:      "export",
				Usage:     "Write the graph as RDF",
				ArgsUsage: "FILE|-",
				Action:    exportCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Usage: "ntriples or turtle (default: from extension)"},
				},
			},
			{
				Name:   "normalize",
				Usage:  "Canonicalize specialty IRIs and names",
				Action: normalizeCommand,
			},
			{
				Name:   "embed",
				Usage:  "Embed descriptions and specialty values",
				Action: embedCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "Re-embed subjects that already have embeddings"},
					&cli.IntFlag{Name: "batch-size", Usage: "Texts per embedding call (overrides config)"},
					&cli.IntFlag{Name: "report-interval", Usage: "Report progress every N items", Value: 100},
				},
			},
			{
				Name:      "locate",
				Usage:     "Set organization coordinates from a GeoJSON file",
				ArgsUsage: "FILE",
				Action:    locateCommand,
			},
			{
				Name:   "extract",
				Usage:  "Write specialty embeddings to a JSON artifact",
				Action: extractCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Artifact path", Value: "specialty_embeddings.json"},
				},
			},
			{
				Name:   "elbow",
				Usage:  "Print k-means inertia for a range of K",
				Action: elbowCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "kmin", Value: 2},
					&cli.IntFlag{Name: "kmax", Value: 12},
					&cli.StringFlag{Name: "from-artifact", Usage: "Read embeddings from an artifact instead of the graph"},
				},
			},
			{
				Name:   "embed-anchors",
				Usage:  "Embed the anchor phrases and save the anchor artifact",
				Action: embedAnchorsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "anchors", Usage: "Anchor YAML file (default: built-in set)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Anchor embeddings path (overrides config)"},
				},
			},
			{
				Name:   "taxonomy",
				Usage:  "Build the taxonomy and write it to the graph",
				Action: taxonomyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "strategy", Usage: "kmeans or anchors"},
					&cli.IntFlag{Name: "k", Usage: "Number of macrocategories"},
					&cli.IntFlag{Name: "m", Usage: "Microcategories per macro group"},
					&cli.Uint64Flag{Name: "seed", Usage: "Random seed"},
					&cli.StringFlag{Name: "micro-policy", Usage: "constrained or independent"},
					&cli.BoolFlag{Name: "derive-micro-labels", Usage: "Name k-means microcategories from member text"},
					&cli.StringFlag{Name: "from-artifact", Usage: "Read embeddings from an artifact instead of the graph"},
					&cli.StringFlag{Name: "anchor-embeddings", Usage: "Anchor embeddings path (overrides config)"},
					&cli.BoolFlag{Name: "prune", Usage: "Remove memberships the new taxonomy no longer supports"},
				},
			},
			{
				Name:   "propagate",
				Usage:  "Copy specialty categories to organizations",
				Action: propagateCommand,
			},
			{
				Name:   "cleanup",
				Usage:  "Remove macrocategory edges that point at specialties",
				Action: cleanupCommand,
			},
			{
				Name:      "search",
				Usage:     "Find providers for a free-text need",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top", Aliases: []string{"n"}, Value: 10},
					&cli.StringFlag{Name: "macro", Usage: "Restrict to a macrocategory IRI"},
					&cli.Float64Flag{Name: "min-score", Usage: "Drop results scoring below this"},
					&cli.Float64Flag{Name: "keyword-boost", Usage: "Added when name or description contains every query word"},
				},
			},
			{
				Name:   "sync-neo4j",
				Usage:  "Mirror the graph into Neo4j",
				Action: syncNeo4jCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-embeddings", Usage: "Leave embedding literals out"},
					&cli.IntFlag{Name: "batch-size", Value: 500},
				},
			},
			{
				Name:   "runs",
				Usage:  "List recorded taxonomy builds",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10},
				},
			},
		},
	}
}

// loadConfig reads the config file and applies the global --db override.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if db := c.String("db"); db != "" {
		cfg.Store.Path = db
	}
	return cfg, nil
}

// openGraph opens the store. Only commands that embed text ask for a
// provider, so the others run without credentials.
func openGraph(c *cli.Context, cfg *config.Config, withProvider bool) (*agrikg.Graph, error) {
	if withProvider {
		g, err := agrikg.FromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open graph: %w", err)
		}
		return g, nil
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	g, err := agrikg.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph: %w", err)
	}
	return g, nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
