package harness

import (
	"context"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/prodgraph/internal/ir"
)

// Snapshot is the golden form of a scenario result. Nodes are sorted, so
// the snapshot does not depend on completion order or parallelism.
type Snapshot struct {
	ScenarioName string          `json:"scenario_name"`
	Builds       []BuildSnapshot `json:"builds"`
}

// BuildSnapshot is the golden form of one build.
type BuildSnapshot struct {
	RunID  string   `json:"run_id"`
	Status string   `json:"status"`
	Nodes  []string `json:"nodes"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	snap := Snapshot{ScenarioName: name, Builds: make([]BuildSnapshot, len(result.Builds))}
	for i, b := range result.Builds {
		nodes := []string{}
		for _, e := range result.BuildTrace(i) {
			nodes = append(nodes, e.Line())
		}
		slices.Sort(nodes)
		snap.Builds[i] = BuildSnapshot{RunID: b.RunID, Status: b.Status, Nodes: nodes}
	}
	return snap
}

// Canonical encodes the snapshot as canonical JSON.
func (s Snapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s)
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
