package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

// ErrUnknownGoal is returned by BuildRequest for a goal not in the goal table.
var ErrUnknownGoal = errors.New("unknown goal")

// ErrNoPathMapper is returned by InvalidateFiles when no PathSubjects func
// was configured.
var ErrNoPathMapper = errors.New("no path-to-subject mapper configured")

// Default root collection product and its element type.
const (
	DefaultRootProduct graph.TypeID = "Addresses"
	DefaultRootElement graph.TypeID = "Address"
)

// Goal names a set of products requested for every root subject.
type Goal struct {
	Name     string
	Products []graph.TypeID
	// Optional goals resolve members with no applicable producer to nothing
	// instead of failing the root.
	Optional bool
}

// PathSubjects maps changed file paths to the subjects whose products
// depend on them.
type PathSubjects func(paths []string) []any

// BuildRequest is one immutable build invocation: goals, root subjects and
// the root nodes derived from them.
type BuildRequest struct {
	Goals    []string
	Subjects []any
	Roots    []graph.Node
}

// RootKeys returns the keys of the root nodes in request order.
func (r *BuildRequest) RootKeys() []graph.NodeKey {
	keys := make([]graph.NodeKey, len(r.Roots))
	for i, n := range r.Roots {
		keys[i] = n.Key
	}
	return keys
}

// Scheduler owns the graph and registry for a sequence of requests.
type Scheduler struct {
	registry     *rules.Registry
	graph        *graph.ProductGraph
	goals        map[string]Goal
	rootProduct  graph.TypeID
	rootElements []graph.TypeID
	pathSubjects PathSubjects
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRootProduct sets the collection product root subjects expand to and
// the element types that collection may contain.
//
// Default: Addresses of Address.
func WithRootProduct(product graph.TypeID, elements ...graph.TypeID) Option {
	return func(s *Scheduler) {
		s.rootProduct = product
		s.rootElements = elements
	}
}

// WithPathSubjects sets the mapper used by InvalidateFiles.
func WithPathSubjects(fn PathSubjects) Option {
	return func(s *Scheduler) {
		s.pathSubjects = fn
	}
}

// WithGraph makes the scheduler use an existing graph.
func WithGraph(g *graph.ProductGraph) Option {
	return func(s *Scheduler) {
		s.graph = g
	}
}

// New creates a Scheduler over registry with the given goal table.
func New(registry *rules.Registry, goals []Goal, opts ...Option) *Scheduler {
	s := &Scheduler{
		registry:     registry,
		goals:        make(map[string]Goal, len(goals)),
		rootProduct:  DefaultRootProduct,
		rootElements: []graph.TypeID{DefaultRootElement},
	}
	for _, g := range goals {
		s.goals[g.Name] = g
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.graph == nil {
		s.graph = graph.New()
	}
	return s
}

// Graph returns the scheduler's product graph.
func (s *Scheduler) Graph() *graph.ProductGraph { return s.graph }

// Registry returns the scheduler's rule registry.
func (s *Scheduler) Registry() *rules.Registry { return s.registry }

// Goal returns the goal named name.
func (s *Scheduler) Goal(name string) (Goal, bool) {
	g, ok := s.goals[name]
	return g, ok
}

// BuildRequest validates subjects and goals and creates the root nodes.
//
// Every subject must be of a type that can produce the root collection
// product; otherwise the request fails before any graph work with an
// UnsupportedSubjectType error. Roots are ordered by subject, then goal,
// then goal product, and duplicates are dropped.
func (s *Scheduler) BuildRequest(goals []string, subjects []any) (*BuildRequest, error) {
	for _, subject := range subjects {
		st := graph.TypeOf(subject)
		if !s.registry.CanProduce(st, s.rootProduct) {
			return nil, &graph.Error{
				Code:    graph.ErrCodeUnsupportedSubjectType,
				Message: fmt.Sprintf("Unsupported root subject type: %s for %v", st, subject),
				Subject: graph.SubjectKey(subject),
				Product: s.rootProduct,
			}
		}
	}

	resolved := make([]Goal, 0, len(goals))
	for _, name := range goals {
		g, ok := s.goals[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownGoal, name)
		}
		resolved = append(resolved, g)
	}

	req := &BuildRequest{
		Goals:    append([]string(nil), goals...),
		Subjects: append([]any(nil), subjects...),
	}
	seen := make(map[graph.NodeKey]bool)
	for _, subject := range subjects {
		for _, g := range resolved {
			for _, product := range g.Products {
				root := s.graph.GetOrCreate(graph.NewNode(graph.KindDependencies, subject, nil,
					graph.SelectDependencies{
						Product:    product,
						DepProduct: s.rootProduct,
						Field:      graph.DefaultDependenciesField,
						FieldTypes: s.rootElements,
						Optional:   g.Optional,
					}, ""))
				if seen[root.Key] {
					continue
				}
				seen[root.Key] = true
				req.Roots = append(req.Roots, root)
			}
		}
	}

	slog.Debug("build request created",
		"goals", strings.Join(goals, ","),
		"subjects", len(subjects),
		"roots", len(req.Roots))
	return req, nil
}

// Visualize renders the graph reachable from roots as DOT text.
func (s *Scheduler) Visualize(roots []graph.NodeKey) string {
	return strings.Join(s.graph.Visualize(roots), "\n")
}

// VisualizeGraphToFile writes Visualize output to path. The file content is
// byte-identical to the direct output.
func (s *Scheduler) VisualizeGraphToFile(roots []graph.NodeKey, path string) error {
	if err := os.WriteFile(path, []byte(s.Visualize(roots)), 0o644); err != nil {
		return fmt.Errorf("write graph visualization: %w", err)
	}
	return nil
}

// InvalidateSubjects resets every node for subjects, and everything
// depending on them, to Waiting. Returns the number of nodes reset.
func (s *Scheduler) InvalidateSubjects(subjects []any) int {
	return s.graph.InvalidateSubjects(subjects)
}

// InvalidateFiles maps changed paths to subjects and invalidates them.
func (s *Scheduler) InvalidateFiles(paths []string) (int, error) {
	if s.pathSubjects == nil {
		return 0, ErrNoPathMapper
	}
	subjects := s.pathSubjects(paths)
	n := s.graph.InvalidateSubjects(subjects)
	slog.Info("invalidated files", "paths", len(paths), "subjects", len(subjects), "nodes", n)
	return n, nil
}
