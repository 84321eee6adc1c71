package rules

import (
	"fmt"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
)

// ValidationError reports every problem found by Validate.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid registry (%d problems):\n  %s",
		len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// Validate checks that every product named by a clause selector has at
// least one producer, or is declared as a subject type that can satisfy it
// literally. subjectTypes lists types that may appear as subjects (and so
// satisfy a Select of their own type without a producer).
//
// Validation is static: it cannot know which subject types will reach a
// selector, so it only reports products that nothing could ever produce.
func (r *Registry) Validate(subjectTypes ...graph.TypeID) error {
	literal := make(map[graph.TypeID]bool, len(subjectTypes)+1)
	for _, t := range subjectTypes {
		literal[t] = true
	}
	literal[graph.VariantsType] = true

	produced := make(map[graph.TypeID]bool)
	for _, p := range r.Products() {
		produced[p] = true
	}
	has := func(p graph.TypeID) bool { return produced[p] || literal[p] }

	var problems []string
	for _, t := range r.All() {
		for i, sel := range t.Clause {
			for _, p := range selectorProducts(sel) {
				if !has(p) {
					problems = append(problems, fmt.Sprintf(
						"%s: clause[%d] %s: no producer of %s", t.Name, i, sel, p))
				}
			}
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func selectorProducts(sel graph.Selector) []graph.TypeID {
	switch s := sel.(type) {
	case graph.SelectDependencies:
		return []graph.TypeID{s.Product, s.DepProduct}
	case graph.SelectProjection:
		return []graph.TypeID{s.Product, s.InputProduct}
	default:
		return []graph.TypeID{sel.ProductType()}
	}
}
