package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

// stepResult is the outcome of stepping one node: the dependency nodes it
// consulted, in request order, and either Waiting (some dependency is not
// terminal yet) or the node's terminal state.
type stepResult struct {
	deps  []graph.Node
	state graph.State
}

// stepContext accumulates the dependencies consulted during one step.
type stepContext struct {
	graph   *graph.ProductGraph
	node    graph.Node
	deps    []graph.Node
	seen    map[graph.NodeKey]bool
	waiting bool
}

// get returns the current state of dep, registering it as a dependency of
// the node being stepped.
func (c *stepContext) get(dep graph.Node) graph.State {
	dep = c.graph.GetOrCreate(dep)
	if !c.seen[dep.Key] {
		c.seen[dep.Key] = true
		c.deps = append(c.deps, dep)
	}
	s := c.graph.State(dep.Key)
	if !s.IsTerminal() {
		c.waiting = true
	}
	return s
}

func (c *stepContext) wait() stepResult {
	return stepResult{deps: c.deps, state: graph.Waiting()}
}

func (c *stepContext) done(s graph.State) stepResult {
	return stepResult{deps: c.deps, state: s}
}

func (c *stepContext) fail(code graph.ErrorCode, format string, args ...any) stepResult {
	return c.done(graph.Throw(graph.NewError(code, c.node.Subject, c.node.Product(), format, args...)))
}

func (c *stepContext) upstream(dep graph.Node, s graph.State) stepResult {
	var cause error
	if s.Err != nil {
		cause = s.Err
	}
	return c.done(graph.Throw(graph.Upstream(c.node.Subject, c.node.Product(), dep.Key, cause)))
}

// step computes the next state of node from the current states of its
// dependencies. It never mutates the graph beyond creating nodes.
func (e *Engine) step(node graph.Node) stepResult {
	c := &stepContext{graph: e.graph, node: node, seen: make(map[graph.NodeKey]bool)}
	switch node.Kind() {
	case graph.KindSelect, graph.KindVariant:
		return e.stepSelect(c)
	case graph.KindDependencies:
		return e.stepDependencies(c)
	case graph.KindProjection:
		return e.stepProjection(c)
	case graph.KindTask:
		return e.stepTask(c)
	default:
		return c.fail(graph.ErrCodeTaskFailed, "unknown node kind %q", node.Kind())
	}
}

// nodeFor builds the node answering selector for subject under variants.
// Invariant products are always selected with empty variants.
func (e *Engine) nodeFor(subject any, variants graph.Variants, selector graph.Selector) graph.Node {
	kind := graph.KindSelect
	switch s := selector.(type) {
	case graph.SelectLiteral:
		return e.nodeFor(s.Subject, variants, graph.Select{Product: s.Product})
	case graph.SelectVariant:
		kind = graph.KindVariant
	case graph.SelectDependencies:
		kind = graph.KindDependencies
	case graph.SelectProjection:
		kind = graph.KindProjection
	}
	if (kind == graph.KindSelect || kind == graph.KindVariant) && e.registry.IsInvariant(selector.ProductType()) {
		variants = nil
	}
	return graph.NewNode(kind, subject, variants, selector, "")
}

// stepSelect resolves Select and SelectVariant nodes.
//
// The subject's default variants are merged under the node's variants
// before anything else. A literal match on the subject wins outright;
// otherwise every applicable producer runs as a task node, and exactly one
// distinct matching value must come back.
func (e *Engine) stepSelect(c *stepContext) stepResult {
	node := c.node
	subject := node.Subject
	subjectType := graph.TypeOf(subject)
	product := node.Product()
	variants := node.Variants
	invariant := e.registry.IsInvariant(product)

	if !invariant && subjectType != graph.VariantsType &&
		e.registry.CanProduce(subjectType, graph.VariantsType) {
		s := c.get(graph.NewNode(graph.KindSelect, subject, nil,
			graph.Select{Product: graph.VariantsType, Optional: true}, ""))
		if !s.IsTerminal() {
			return c.wait()
		}
		if defaults, ok := s.Value.(graph.Variants); ok && s.Status == graph.StatusReturn {
			variants = graph.Merge(defaults, variants)
		}
	}

	var want variantMatch
	if sv, ok := node.Selector.(graph.SelectVariant); ok {
		value, ok := variants.Get(sv.VariantKey)
		if !ok {
			return c.done(graph.Noop("no variant configured for key %q", sv.VariantKey))
		}
		want = variantMatch{key: sv.VariantKey, value: value, active: true}
	}

	if v, ok := want.literal(subject, product); ok {
		return c.done(graph.Return(v))
	}

	if invariant {
		variants = nil
	}
	producers := e.registry.Producers(subjectType, product)
	taskNodes := make([]graph.Node, len(producers))
	states := make([]graph.State, len(producers))
	for i, p := range producers {
		taskNodes[i] = graph.NewNode(graph.KindTask, subject, variants, graph.Select{Product: product}, p.Name)
		states[i] = c.get(taskNodes[i])
	}
	if c.waiting {
		return c.wait()
	}

	var (
		values  []any
		sources []graph.NodeKey
		digests = make(map[string]bool)
	)
	for i, s := range states {
		switch s.Status {
		case graph.StatusThrow:
			return c.upstream(taskNodes[i], s)
		case graph.StatusReturn:
			v, ok := want.literal(s.Value, product)
			if !ok {
				continue
			}
			d := graph.ValueDigest(v)
			if digests[d] {
				continue
			}
			digests[d] = true
			values = append(values, v)
			sources = append(sources, taskNodes[i].Key)
		}
	}

	switch {
	case len(values) == 1:
		return c.done(graph.Return(values[0]))
	case len(values) > 1:
		err := graph.NewError(graph.ErrCodeConflictingProducers, subject, product,
			"more than one source of %s for %s", product, graph.SubjectKey(subject))
		err.Producers = sources
		return c.done(graph.Throw(err))
	case node.Selector.IsOptional():
		return c.done(graph.Noop("no source of %s for %s", product, graph.SubjectKey(subject)))
	case want.active:
		return c.fail(graph.ErrCodeNoProducer, "no %s named %q (variant %s) for %s",
			product, want.value, want.key, graph.SubjectKey(subject))
	default:
		return c.fail(graph.ErrCodeNoProducer, "no source of %s for %s", product, graph.SubjectKey(subject))
	}
}

// variantMatch is the variant name a selected value must carry, if any.
type variantMatch struct {
	key    string
	value  string
	active bool
}

func (m variantMatch) named(v any) bool {
	if !m.active {
		return true
	}
	n, ok := v.(graph.Named)
	return ok && n.ProductName() == m.value
}

// literal reports whether v itself, or one of the products it carries,
// satisfies product (and the variant name, when one is required).
func (m variantMatch) literal(v any, product graph.TypeID) (any, bool) {
	if graph.TypeOf(v) == product && m.named(v) {
		return v, true
	}
	if hp, ok := v.(graph.HasProducts); ok {
		for _, p := range hp.Products() {
			if graph.TypeOf(p) == product && m.named(p) {
				return p, true
			}
		}
	}
	return nil, false
}

// stepDependencies selects the node's product for each member of a field of
// the dependency product, or of its whole closure when transitive.
func (e *Engine) stepDependencies(c *stepContext) stepResult {
	node := c.node
	sel := node.Selector.(graph.SelectDependencies)
	subject := node.Subject
	variants := node.Variants

	depNode := e.nodeFor(subject, variants, graph.Select{Product: sel.DepProduct})
	s := c.get(depNode)
	switch s.Status {
	case graph.StatusWaiting:
		return c.wait()
	case graph.StatusNoop:
		return c.done(graph.Noop("no %s for %s", sel.DepProduct, graph.SubjectKey(subject)))
	case graph.StatusThrow:
		if graph.IsNoProducer(s.Err) {
			return c.done(graph.Noop("no %s for %s", sel.DepProduct, graph.SubjectKey(subject)))
		}
		return c.upstream(depNode, s)
	}

	members, res, ok := e.dependencyMembers(c, sel, subject, s.Value)
	if !ok {
		return res
	}

	memberNodes := make([]graph.Node, len(members))
	states := make([]graph.State, len(members))
	for i, m := range members {
		memberNodes[i] = e.nodeFor(m, variants, graph.Select{Product: sel.Product, Optional: sel.Optional})
		states[i] = c.get(memberNodes[i])
	}
	if c.waiting {
		return c.wait()
	}

	values := make([]any, 0, len(members))
	digests := make(map[string]bool)
	for i, s := range states {
		switch s.Status {
		case graph.StatusThrow:
			return c.upstream(memberNodes[i], s)
		case graph.StatusNoop:
			if sel.Optional {
				continue
			}
			return c.fail(graph.ErrCodeNoProducer, "no source of explicit dependency %s", graph.SubjectKey(members[i]))
		case graph.StatusReturn:
			if sel.Transitive {
				d := graph.ValueDigest(s.Value)
				if digests[d] {
					continue
				}
				digests[d] = true
			}
			values = append(values, s.Value)
		}
	}
	return c.done(graph.Return(values))
}

// dependencyMembers reads the dependency field from value, expanding the
// closure for transitive selection. ok is false when res holds the step's
// outcome (waiting or failed).
func (e *Engine) dependencyMembers(c *stepContext, sel graph.SelectDependencies, subject, value any) (members []any, res stepResult, ok bool) {
	field := sel.FieldName()
	direct, err := fieldMembers(value, field)
	if err != nil {
		return nil, c.fail(graph.ErrCodeInvalidFieldType, "%s of %s: %v", sel.DepProduct, graph.SubjectKey(subject), err), false
	}

	seen := make(map[graph.NodeKey]bool)
	queue := direct
	for len(queue) > 0 {
		m := queue[0]
		queue = queue[1:]

		mt := graph.TypeOf(m)
		if !sel.Accepts(mt) {
			return nil, c.fail(graph.ErrCodeInvalidFieldType,
				"dependency %s of %s has type %s, expected one of (%s)",
				graph.SubjectKey(m), graph.SubjectKey(subject), mt, joinTypes(sel.FieldTypes)), false
		}
		id := graph.NodeKey{SubjectType: mt, Subject: graph.SubjectKey(m)}
		if seen[id] {
			continue
		}
		seen[id] = true
		members = append(members, m)

		if !sel.Transitive {
			continue
		}
		dn := e.nodeFor(m, c.node.Variants, graph.Select{Product: sel.DepProduct})
		s := c.get(dn)
		switch s.Status {
		case graph.StatusThrow:
			// A member without the dependency product is a leaf.
			if !graph.IsNoProducer(s.Err) {
				return nil, c.upstream(dn, s), false
			}
		case graph.StatusReturn:
			more, err := fieldMembers(s.Value, field)
			if err != nil {
				return nil, c.fail(graph.ErrCodeInvalidFieldType, "%s of %s: %v",
					sel.DepProduct, graph.SubjectKey(m), err), false
			}
			queue = append(queue, more...)
		}
	}
	if c.waiting {
		return nil, c.wait(), false
	}
	return members, stepResult{}, true
}

func fieldMembers(value any, field string) ([]any, error) {
	f, ok := value.(graph.Fielded)
	if !ok {
		return nil, fmt.Errorf("value of type %s has no fields", graph.TypeOf(value))
	}
	raw, ok := f.Field(field)
	if !ok {
		return nil, fmt.Errorf("no field %q", field)
	}
	if raw == nil {
		return nil, nil
	}
	members, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("field %q is %T, not a list", field, raw)
	}
	return members, nil
}

func joinTypes(types []graph.TypeID) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// stepProjection selects the input product, projects one of its fields to a
// new subject and selects the node's product for that subject.
func (e *Engine) stepProjection(c *stepContext) stepResult {
	node := c.node
	sel := node.Selector.(graph.SelectProjection)

	inNode := e.nodeFor(node.Subject, node.Variants, graph.Select{Product: sel.InputProduct})
	in := c.get(inNode)
	switch in.Status {
	case graph.StatusWaiting:
		return c.wait()
	case graph.StatusNoop:
		return c.done(graph.Noop("no %s to project for %s", sel.InputProduct, graph.SubjectKey(node.Subject)))
	case graph.StatusThrow:
		if graph.IsNoProducer(in.Err) {
			return c.done(graph.Noop("no %s to project for %s", sel.InputProduct, graph.SubjectKey(node.Subject)))
		}
		return c.upstream(inNode, in)
	}

	f, ok := in.Value.(graph.Fielded)
	if !ok {
		return c.fail(graph.ErrCodeInvalidFieldType, "%s has no fields to project", sel.InputProduct)
	}
	projected, ok := f.Field(sel.Field)
	if !ok {
		return c.fail(graph.ErrCodeInvalidFieldType, "%s has no field %q", sel.InputProduct, sel.Field)
	}
	if pt := graph.TypeOf(projected); pt != sel.ProjectedSubject {
		return c.fail(graph.ErrCodeInvalidFieldType, "field %q of %s has type %s, expected %s",
			sel.Field, sel.InputProduct, pt, sel.ProjectedSubject)
	}

	outNode := e.nodeFor(projected, node.Variants, graph.Select{Product: sel.Product})
	out := c.get(outNode)
	switch out.Status {
	case graph.StatusWaiting:
		return c.wait()
	case graph.StatusThrow:
		return c.upstream(outNode, out)
	default:
		return c.done(out)
	}
}

// stepTask runs one producer once all of its clause inputs are terminal.
//
// A required input that is Noop, or that failed only because nothing could
// produce it, makes the task not applicable (Noop). Any other input failure
// is an upstream failure.
func (e *Engine) stepTask(c *stepContext) stepResult {
	node := c.node
	task, err := e.registry.Lookup(node.Task)
	if err != nil {
		return c.fail(graph.ErrCodeTaskFailed, "%v", err)
	}

	var args []any
	if task.Kind == rules.KindIntrinsic {
		args = []any{node.Subject}
	} else {
		inputs := make([]graph.Node, len(task.Clause))
		states := make([]graph.State, len(task.Clause))
		for i, sel := range task.Clause {
			inputs[i] = e.nodeFor(node.Subject, node.Variants, sel)
			states[i] = c.get(inputs[i])
		}
		if c.waiting {
			return c.wait()
		}

		args = make([]any, len(task.Clause))
		for i, s := range states {
			sel := task.Clause[i]
			switch s.Status {
			case graph.StatusReturn:
				args[i] = s.Value
			case graph.StatusNoop:
				if !sel.IsOptional() {
					return c.done(graph.Noop("%s was missing input %s", task.Name, sel))
				}
			case graph.StatusThrow:
				// A missing explicit dependency is a real failure, not an
				// inapplicable task.
				_, deps := sel.(graph.SelectDependencies)
				if !deps && graph.IsNoProducer(s.Err) && !sel.IsOptional() {
					return c.done(graph.Noop("%s was missing input %s", task.Name, sel))
				}
				return c.upstream(inputs[i], s)
			}
		}
	}

	v, err := task.Func(args...)
	switch {
	case errors.Is(err, rules.ErrNotApplicable):
		return c.done(graph.Noop("%s: %v", task.Name, err))
	case err != nil:
		return c.done(graph.Throw(&graph.Error{
			Code:    graph.ErrCodeTaskFailed,
			Message: fmt.Sprintf("%s: %v", task.Name, err),
			Subject: node.Key.Subject,
			Product: node.Product(),
			Cause:   err,
		}))
	}
	return c.done(graph.Return(v))
}
