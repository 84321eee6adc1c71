package graph

import "fmt"

// Kind distinguishes how a node is stepped.
type Kind string

const (
	// KindSelect selects a product directly (Select, SelectLiteral).
	KindSelect Kind = "select"
	// KindVariant selects a variant-named product (SelectVariant).
	KindVariant Kind = "variant"
	// KindDependencies selects a product for each declared dependency.
	KindDependencies Kind = "dependencies"
	// KindProjection selects a product for a projected subject.
	KindProjection Kind = "projection"
	// KindTask runs one registered rule.
	KindTask Kind = "task"
)

// NodeKey is the identity of a node. It is a comparable struct of canonical
// strings so it can key maps and be held outside the graph without keeping
// node data alive.
type NodeKey struct {
	Kind        Kind
	SubjectType TypeID
	Subject     string
	Variants    string
	Selector    string
	Task        string
}

// String renders the key for logs and error messages.
func (k NodeKey) String() string {
	s := fmt.Sprintf("%s:%s(%s)", k.Kind, k.Selector, k.Subject)
	if k.Variants != "" {
		s += "@" + k.Variants
	}
	if k.Task != "" {
		s += ":" + k.Task
	}
	return s
}

// Node is a unit of memoized computation: a subject, a variant context and
// a selector, plus the rule name for task nodes.
//
// A Node value is immutable. Its Key is derived from the other fields at
// construction and is the only thing the graph compares.
type Node struct {
	Key      NodeKey
	Subject  any
	Variants Variants
	Selector Selector
	Task     string
}

// NewNode builds a node and derives its key.
func NewNode(kind Kind, subject any, variants Variants, selector Selector, task string) Node {
	return Node{
		Key: NodeKey{
			Kind:        kind,
			SubjectType: TypeOf(subject),
			Subject:     SubjectKey(subject),
			Variants:    variants.String(),
			Selector:    selector.String(),
			Task:        task,
		},
		Subject:  subject,
		Variants: variants,
		Selector: selector,
		Task:     task,
	}
}

// Kind returns the node kind.
func (n Node) Kind() Kind { return n.Key.Kind }

// Product returns the product type the node produces.
func (n Node) Product() TypeID { return n.Selector.ProductType() }

// String renders the node for logs.
func (n Node) String() string { return n.Key.String() }
