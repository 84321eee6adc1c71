package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/prodgraph/internal/engine"
	"github.com/roach88/prodgraph/internal/graph"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRun(id string, offset time.Duration) engine.RunInfo {
	return engine.RunInfo{
		ID:          id,
		Goals:       []string{"compile"},
		Subjects:    []string{"src/java:lib"},
		Parallelism: 1,
		StartedAt:   testStart.Add(offset),
	}
}

func selectNode(product graph.TypeID, subject string) graph.Node {
	return graph.NewNode(graph.KindSelect, subject, nil, graph.Select{Product: product}, "")
}

func completion(runID string, seq int64, node graph.Node, state graph.State) engine.Completion {
	return engine.Completion{RunID: runID, Seq: seq, Node: node, State: state}
}
