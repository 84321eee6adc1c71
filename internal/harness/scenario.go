package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a build scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario checks.
	Description string `yaml:"description"`

	// Root is the build root directory. Relative paths resolve against the
	// scenario file's directory.
	Root string `yaml:"root"`

	// Parallelism bounds concurrent node steps. Zero or one runs serially.
	Parallelism int `yaml:"parallelism,omitempty"`

	// Builds run in order against one warm graph.
	Builds []BuildStep `yaml:"builds"`

	// Assertions validate the recorded node results.
	Assertions []Assertion `yaml:"assertions"`
}

// BuildStep is one build request.
type BuildStep struct {
	Goals []string `yaml:"goals"`
	Specs []string `yaml:"specs"`

	// Invalidate lists build-root-relative file paths invalidated before
	// this build runs.
	Invalidate []string `yaml:"invalidate,omitempty"`

	// Expect checks the build outcome. If nil the build must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected build outcome.
type ExpectClause struct {
	// Status is "succeeded" or "failed".
	Status string `yaml:"status"`

	// ErrorCode, if set, must be the root cause code of some failed root.
	ErrorCode string `yaml:"error_code,omitempty"`
}

// Assertion validates recorded node results.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Build selects one build by index. Nil means every build, except for
	// steps assertions where it means the last build.
	Build *int `yaml:"build,omitempty"`

	// Node filters. Empty fields match anything.
	Kind     string `yaml:"kind,omitempty"`
	Product  string `yaml:"product,omitempty"`
	Subject  string `yaml:"subject,omitempty"`
	Variants string `yaml:"variants,omitempty"`
	Task     string `yaml:"task,omitempty"`

	// Status is the expected node status (used by node_state).
	Status string `yaml:"status,omitempty"`

	// Contains is a substring of the rendered state (used by node_state).
	Contains string `yaml:"contains,omitempty"`

	// Count is the expected number (used by node_count and steps).
	Count int `yaml:"count"`

	// Subjects lists subjects in expected completion order (used by
	// completion_order).
	Subjects []string `yaml:"subjects,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeState       = "node_state"
	AssertNodeCount       = "node_count"
	AssertCompletionOrder = "completion_order"
	AssertSteps           = "steps"
)

// Build outcome statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected, and Root is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Root != "" && !filepath.IsAbs(scenario.Root) {
		scenario.Root = filepath.Join(filepath.Dir(path), scenario.Root)
	}
	if err := checkRoot(scenario.Root); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario decodes and validates scenario YAML without touching the
// filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func checkRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("build root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("build root %s is not a directory", root)
	}
	return nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Root == "" {
		return fmt.Errorf("root is required")
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must not be negative")
	}
	if len(s.Builds) == 0 {
		return fmt.Errorf("builds list is required and must be non-empty")
	}

	for i, b := range s.Builds {
		if len(b.Goals) == 0 {
			return fmt.Errorf("builds[%d]: goals are required", i)
		}
		if len(b.Specs) == 0 {
			return fmt.Errorf("builds[%d]: specs are required", i)
		}
		if b.Expect != nil {
			switch b.Expect.Status {
			case StatusSucceeded, StatusFailed:
			default:
				return fmt.Errorf("builds[%d].expect: status must be %q or %q", i, StatusSucceeded, StatusFailed)
			}
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], len(s.Builds)); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion, builds int) error {
	if a.Build != nil && (*a.Build < 0 || *a.Build >= builds) {
		return fmt.Errorf("assertions[%d]: build %d out of range", index, *a.Build)
	}

	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertNodeState:
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: node_state requires status", index)
		}
		if a.Product == "" && a.Subject == "" && a.Task == "" {
			return fmt.Errorf("assertions[%d]: node_state requires product, subject or task", index)
		}
	case AssertNodeCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: node_count requires a non-negative count", index)
		}
	case AssertCompletionOrder:
		if len(a.Subjects) < 2 {
			return fmt.Errorf("assertions[%d]: completion_order requires at least two subjects", index)
		}
	case AssertSteps:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: steps requires a non-negative count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
