package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/prodgraph/internal/graph"
)

// ErrNotApplicable is returned by a task function that does not apply to
// its inputs. The task node resolves to Noop instead of failing.
var ErrNotApplicable = errors.New("not applicable")

// ErrUnknownTask is returned by Lookup for an unregistered task name.
var ErrUnknownTask = errors.New("unknown task")

// Func computes a product. Task functions receive one argument per clause
// selector, in clause order; an optional selector that found nothing passes
// nil. Intrinsic functions receive the subject as their only argument.
type Func func(args ...any) (any, error)

// Kind classifies a producer.
type Kind string

const (
	KindSingleton Kind = "singleton"
	KindIntrinsic Kind = "intrinsic"
	KindTask      Kind = "task"
)

// Task is a registered producer of Product.
type Task struct {
	// Name identifies the task in node keys and visualization. Unique.
	Name string
	// Product is the product type produced.
	Product graph.TypeID
	// SubjectTypes restricts the task to subjects of these types. Empty
	// means any subject.
	SubjectTypes []graph.TypeID
	// Clause lists the selectors whose products are the function's arguments.
	Clause []graph.Selector
	// Func computes the product.
	Func Func
	// Kind is set by the registry.
	Kind Kind
}

// AppliesTo reports whether the task may run for a subject of type t.
func (t *Task) AppliesTo(subjectType graph.TypeID) bool {
	if len(t.SubjectTypes) == 0 {
		return true
	}
	for _, st := range t.SubjectTypes {
		if st == subjectType {
			return true
		}
	}
	return false
}

type intrinsicKey struct {
	subject graph.TypeID
	product graph.TypeID
}

// Registry indexes producers by (subject type, product type).
//
// Registration is expected to finish before a run starts; lookups are safe
// for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Task
	singletons map[graph.TypeID]*Task
	intrinsics map[intrinsicKey]*Task
	tasks      map[graph.TypeID][]*Task
	invariant  map[graph.TypeID]bool
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:     make(map[string]*Task),
		singletons: make(map[graph.TypeID]*Task),
		intrinsics: make(map[intrinsicKey]*Task),
		tasks:      make(map[graph.TypeID][]*Task),
		invariant:  make(map[graph.TypeID]bool),
	}
}

// Task registers a task. Name must be unique and Func non-nil.
func (r *Registry) Task(t Task) error {
	if t.Func == nil {
		return fmt.Errorf("task %q: nil func", t.Name)
	}
	t.Kind = KindTask
	return r.add(&t, func() {
		r.tasks[t.Product] = append(r.tasks[t.Product], r.byName[t.Name])
	})
}

// Intrinsic registers fn as the only producer of product for subjects of
// subjectType. fn receives the subject.
func (r *Registry) Intrinsic(name string, subjectType, product graph.TypeID, fn Func) error {
	if fn == nil {
		return fmt.Errorf("intrinsic %q: nil func", name)
	}
	key := intrinsicKey{subjectType, product}
	t := &Task{
		Name:         name,
		Product:      product,
		SubjectTypes: []graph.TypeID{subjectType},
		Func:         fn,
		Kind:         KindIntrinsic,
	}
	return r.add(t, func() { r.intrinsics[key] = t })
}

// Singleton registers value as the only producer of product for every subject.
func (r *Registry) Singleton(name string, product graph.TypeID, value any) error {
	t := &Task{
		Name:    name,
		Product: product,
		Func:    func(...any) (any, error) { return value, nil },
		Kind:    KindSingleton,
	}
	return r.add(t, func() { r.singletons[product] = t })
}

// Invariant marks products whose value does not depend on the variant
// context. Nodes selecting them always use empty variants, so every variant
// context shares one node.
func (r *Registry) Invariant(products ...graph.TypeID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.invariant[p] = true
	}
}

// IsInvariant reports whether product was marked invariant. The built-in
// Variants product is always invariant.
func (r *Registry) IsInvariant(product graph.TypeID) bool {
	if product == graph.VariantsType {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.invariant[product]
}

func (r *Registry) add(t *Task, index func()) error {
	if t.Name == "" {
		return errors.New("producer name is required")
	}
	if t.Product == "" {
		return fmt.Errorf("producer %q: product is required", t.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[t.Name]; dup {
		return fmt.Errorf("producer %q already registered", t.Name)
	}
	switch t.Kind {
	case KindSingleton:
		if prev, ok := r.singletons[t.Product]; ok {
			return fmt.Errorf("singleton %q: product %s already has singleton %q", t.Name, t.Product, prev.Name)
		}
	case KindIntrinsic:
		if prev, ok := r.intrinsics[intrinsicKey{t.SubjectTypes[0], t.Product}]; ok {
			return fmt.Errorf("intrinsic %q: (%s, %s) already has intrinsic %q",
				t.Name, t.SubjectTypes[0], t.Product, prev.Name)
		}
	}
	r.byName[t.Name] = t
	r.order = append(r.order, t.Name)
	index()
	return nil
}

// Lookup returns the producer registered under name.
func (r *Registry) Lookup(name string) (*Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return t, nil
}

// Producers returns the candidate producers of product for subjects of
// subjectType: the singleton if any, else the intrinsic if any, else every
// task for product that applies to subjectType, in registration order.
func (r *Registry) Producers(subjectType, product graph.TypeID) []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if t, ok := r.singletons[product]; ok {
		return []*Task{t}
	}
	if t, ok := r.intrinsics[intrinsicKey{subjectType, product}]; ok {
		return []*Task{t}
	}
	var out []*Task
	for _, t := range r.tasks[product] {
		if t.AppliesTo(subjectType) {
			out = append(out, t)
		}
	}
	return out
}

// CanProduce reports whether product may be obtained for a subject of
// subjectType: the subject is itself of that type, or a producer applies.
func (r *Registry) CanProduce(subjectType, product graph.TypeID) bool {
	return subjectType == product || len(r.Producers(subjectType, product)) > 0
}

// All returns every producer in registration order.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// Products returns every product type with at least one producer, sorted.
func (r *Registry) Products() []graph.TypeID {
	seen := make(map[graph.TypeID]bool)
	for _, t := range r.All() {
		seen[t.Product] = true
	}
	out := make([]graph.TypeID, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
