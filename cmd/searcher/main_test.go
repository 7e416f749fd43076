package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/poiesic/agrikg/search"
)

func TestTimingMonitor(t *testing.T) {
	var buf bytes.Buffer
	m := &timingMonitor{w: &buf}

	m.Start("cover crops")
	m.AfterQueryEmbedding(512)
	m.AfterCandidateRetrieval(3)
	m.ProviderScored("http://example.org/org/a", 0.5, "")
	m.Finish([]*search.Result{{Name: "A"}})

	out := buf.String()
	assert.Contains(t, out, `query "cover crops"`)
	assert.Contains(t, out, "512 dims")
	assert.Contains(t, out, "3 organizations")
	assert.Contains(t, out, "1 results")
	assert.Contains(t, out, "total")
}
