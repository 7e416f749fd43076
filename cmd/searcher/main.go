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
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/agrikg"
	"github.com/poiesic/agrikg/config"
	"github.com/poiesic/agrikg/search"
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// timingMonitor prints how long each search stage took.
type timingMonitor struct {
	w     io.Writer
	start time.Time
	last  time.Time
}

func (m *timingMonitor) lap(stage string, detail string) {
	now := time.Now()
	fmt.Fprintf(m.w, "  %-22s %8s  %s\n", stage, now.Sub(m.last).Round(time.Microsecond), detail)
	m.last = now
}

func (m *timingMonitor) Start(query string) {
	m.start = time.Now()
	m.last = m.start
	fmt.Fprintf(m.w, "query %q\n", query)
}

func (m *timingMonitor) AfterQueryEmbedding(dimensions int) {
	m.lap("embed query", fmt.Sprintf("%d dims", dimensions))
}

func (m *timingMonitor) AfterCandidateRetrieval(organizations int) {
	m.lap("candidates", fmt.Sprintf("%d organizations", organizations))
}

func (m *timingMonitor) ProviderScored(string, float32, string) {}

func (m *timingMonitor) Finish(results []*search.Result) {
	m.lap("score and rank", fmt.Sprintf("%d results", len(results)))
	fmt.Fprintf(m.w, "  %-22s %8s\n", "total", time.Since(m.start).Round(time.Microsecond))
}

func main() {
	cfg, err := config.Load(os.Getenv("AGRIKG_CONFIG"))
	if err != nil {
		panic(err)
	}
	g, err := agrikg.FromConfig(cfg)
	if err != nil {
		panic(err)
	}
	defer g.Close()
	searcher, err := g.NewSearcher()
	if err != nil {
		panic(err)
	}

	ctx := context.Background()
	query := "soil testing"
	if len(os.Args) > 1 {
		query = strings.Join(os.Args[1:], " ")
	}
	results, err := searcher.FindProvidersWithMonitor(ctx, query, 5, &timingMonitor{w: os.Stdout})
	if err != nil {
		panic(err)
	}

	fmt.Printf("Found %d providers\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (%s)[%0.3f]\n", i, hit.Name, hit.Organization, hit.Score)
	}
}
