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
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/agrikg"
	"github.com/poiesic/agrikg/config"
	"github.com/poiesic/agrikg/core"
)

// provider is one demo organization. Specialties are free text and become
// specialty nodes named after their words.
type provider struct {
	Name        string
	URL         string
	Description string
	Specialties []string
}

var providers = []provider{
	{"Prairie Soil Lab", "https://prairiesoil.example", "Soil testing and nutrient planning for row crops",
		[]string{"soil testing", "nutrient management", "soil carbon measurement"}},
	{"Green Acres Agronomy", "https://greenacres.example", "Independent agronomy and cover crop advice",
		[]string{"cover crop planning", "no till transition", "crop rotation"}},
	{"SkyView Ag", "https://skyviewag.example", "Drone scouting and field imagery",
		[]string{"drone mapping", "multispectral imaging", "crop scouting"}},
	{"Orbit Fields", "https://orbitfields.example", "Satellite analytics for large operations",
		[]string{"satellite imagery", "yield forecasting", "variable rate prescriptions"}},
	{"Clearwater Irrigation", "https://clearwater.example", "Irrigation design and water management",
		[]string{"drip irrigation design", "water use efficiency", "soil moisture monitoring"}},
	{"RainSense", "https://rainsense.example", "Sensor networks for irrigation scheduling",
		[]string{"soil moisture sensors", "irrigation scheduling", "weather stations"}},
	{"Heritage Seed Co", "https://heritageseed.example", "Seed breeding and variety trials",
		[]string{"crop breeding", "variety trials", "seed treatment"}},
	{"BioShield", "https://bioshield.example", "Biological crop protection",
		[]string{"biological pest control", "integrated pest management", "biopesticides"}},
	{"FieldGuard", "https://fieldguard.example", "Weed and disease management",
		[]string{"herbicide resistance management", "disease diagnostics", "integrated pest management"}},
	{"Pasture Partners", "https://pasturepartners.example", "Grazing plans and herd nutrition",
		[]string{"rotational grazing", "livestock nutrition", "pasture management"}},
	{"Dairy Data", "https://dairydata.example", "Herd health analytics for dairies",
		[]string{"herd health monitoring", "milk quality", "livestock nutrition"}},
	{"Carbon Ledger", "https://carbonledger.example", "Carbon credit verification for farms",
		[]string{"carbon credits", "soil carbon measurement", "sustainability reporting"}},
	{"AgriFinance Group", "https://agrifinance.example", "Loans and risk management for growers",
		[]string{"farm loans", "crop insurance", "commodity marketing"}},
	{"Harvest Robotics", "https://harvestrobotics.example", "Autonomous harvesting equipment",
		[]string{"robotic harvesting", "autonomous tractors", "machine vision"}},
	{"Vertical Greens", "https://verticalgreens.example", "Indoor and vertical farming systems",
		[]string{"vertical farming", "hydroponics", "led grow lights"}},
	{"CompostWorks", "https://compostworks.example", "Composting and organic amendments",
		[]string{"composting", "organic amendments", "biochar production"}},
	{"Cold Chain Co", "https://coldchain.example", "Post-harvest storage and logistics",
		[]string{"cold storage", "post harvest handling", "food safety"}},
	{"FarmStack", "https://farmstack.example", "Farm management software",
		[]string{"farm management software", "yield forecasting", "field records"}},
}

var (
	seedFileName = flag.String("src", "", "file of providers, one per line: name|url|description|specialty;specialty")
	dbPath       = flag.String("db", "./agrikg.db", "path to BadgerDB database directory")
	embed        = flag.Bool("embed", false, "embed descriptions and specialties after seeding")
	configPath   = flag.String("config", "", "path to YAML config file (used with -embed)")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// providersFromFile returns an iterator over providers in a file. Blank lines
// and lines starting with # are ignored.
func providersFromFile(filename string) (iter.Seq2[provider, error], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(provider, error) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			p, err := parseProvider(text)
			if err != nil {
				err = fmt.Errorf("line %d: %w", line, err)
			}
			if !yield(p, err) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(provider{}, err)
		}
	}, nil
}

// providersFromSlice returns an iterator over a slice of providers.
func providersFromSlice(ps []provider) iter.Seq2[provider, error] {
	return func(yield func(provider, error) bool) {
		for _, p := range ps {
			if !yield(p, nil) {
				return
			}
		}
	}
}

func parseProvider(line string) (provider, error) {
	fields := strings.Split(line, "|")
	if len(fields) != 4 {
		return provider{}, fmt.Errorf("want 4 fields, got %d", len(fields))
	}
	p := provider{
		Name:        strings.TrimSpace(fields[0]),
		URL:         strings.TrimSpace(fields[1]),
		Description: strings.TrimSpace(fields[2]),
	}
	for _, s := range strings.Split(fields[3], ";") {
		if s = strings.TrimSpace(s); s != "" {
			p.Specialties = append(p.Specialties, s)
		}
	}
	if p.Name == "" {
		return provider{}, fmt.Errorf("name is required")
	}
	return p, nil
}

// slug lowercases text and joins its words with underscores.
func slug(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), "_")
}

// triples describes one provider and its specialties.
func triples(p provider) []core.Triple {
	org := core.IRI("http://example.org/org/" + slug(p.Name))
	out := []core.Triple{
		core.T(org, core.RDFType, core.SchemaOrganization),
		core.T(org, core.SchemaName, core.Literal(p.Name)),
	}
	if p.URL != "" {
		out = append(out, core.T(org, core.SchemaURL, core.IRI(p.URL)))
	}
	if p.Description != "" {
		out = append(out, core.T(org, core.SchemaDescription, core.Literal(p.Description)))
	}
	for _, s := range p.Specialties {
		local := slug(s)
		spec := core.SpecialtyIRI(local)
		out = append(out,
			core.T(org, core.HasSpecialty, spec),
			core.T(spec, core.RDFType, core.Specialty),
			core.T(spec, core.RDFValue, core.Literal(local)),
		)
	}
	return out
}

// seedBatched writes providers to the graph in batches.
func seedBatched(ctx context.Context, g *agrikg.Graph, source iter.Seq2[provider, error], batchSize int) (int, error) {
	batch := make([]core.Triple, 0, batchSize)
	added := 0
	flush := func() error {
		n, err := g.Store().Add(ctx, batch...)
		added += n
		batch = batch[:0]
		return err
	}

	for p, err := range source {
		if err != nil {
			return added, err
		}
		batch = append(batch, triples(p)...)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return added, err
			}
		}
	}

	// Process any remaining triples
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return added, err
		}
	}
	return added, nil
}

func main() {
	flag.Parse()
	ctx := context.Background()

	var (
		g   *agrikg.Graph
		err error
	)
	if *embed {
		cfg, cfgErr := config.Load(*configPath)
		if cfgErr != nil {
			panic(cfgErr)
		}
		cfg.Store.Path = *dbPath
		g, err = agrikg.FromConfig(cfg)
	} else {
		g, err = agrikg.Open(*dbPath)
	}
	if err != nil {
		panic(err)
	}
	defer g.Close()

	// Determine source of seed data
	var source iter.Seq2[provider, error]
	if seedFileName != nil && *seedFileName != "" {
		source, err = providersFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = providersFromSlice(providers)
	}

	added, err := seedBatched(ctx, g, source, 100)
	if err != nil {
		panic(err)
	}
	slog.Info("seeded provider graph", "db", *dbPath, "triples_added", added)

	if *embed {
		enricher, err := g.NewEnricher()
		if err != nil {
			panic(err)
		}
		stats, err := enricher.Run(ctx)
		if err != nil {
			panic(err)
		}
		slog.Info("embedded provider graph", "embedded", stats.Embedded, "failed", stats.Failed)
	}
}
