package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/ir"
)

const domainResult = "prodgraph/result/v1"

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = time.RFC3339Nano

// NodeID is the content digest of a node key. It is stable across runs and
// processes, so it joins results for the same node from different runs.
func NodeID(key graph.NodeKey) string {
	return ir.MustDigest(ir.DomainNode, []any{
		string(key.Kind),
		string(key.SubjectType),
		key.Subject,
		key.Variants,
		key.Selector,
		key.Task,
	})
}

// resultID identifies one node result within one run.
func resultID(runID, nodeID string) string {
	return ir.Hash(domainResult, []byte(runID+"\x00"+nodeID))
}

// marshalStrings encodes a string list as canonical JSON TEXT.
func marshalStrings(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	data, err := ir.MarshalCanonical(ss)
	if err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	ss := []string{}
	if data == "" {
		return ss, nil
	}
	if err := json.Unmarshal([]byte(data), &ss); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return ss, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// stateColumns splits a terminal state into its stored columns.
func stateColumns(state graph.State) (valueDigest, errorCode, rendered string) {
	switch state.Status {
	case graph.StatusReturn:
		valueDigest = graph.ValueDigest(state.Value)
	case graph.StatusThrow:
		if state.Err != nil {
			errorCode = string(state.Err.Code)
		}
	}
	return valueDigest, errorCode, state.String()
}
