package planners

import (
	"fmt"

	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

// Managed resolve types.
const (
	ManagedJarType      graph.TypeID = "ManagedJar"
	ManagedResolveType  graph.TypeID = "ManagedResolve"
	ManagedResolvesType graph.TypeID = "ManagedResolves"
)

// ResolveVariantKey names the managed resolve that pins managed jars.
const ResolveVariantKey = "resolve"

// ManagedJar is a jar coordinate whose revision is left to a managed
// resolve.
type ManagedJar struct {
	Org  string `json:"org"`
	Name string `json:"name"`
}

func (j ManagedJar) TypeID() graph.TypeID { return ManagedJarType }
func (j ManagedJar) String() string       { return "ManagedJar(" + j.coordinate() + ")" }

func (j ManagedJar) coordinate() string { return j.Org + "#" + j.Name }

// ManagedResolve is a frozen set of revisions, chosen by the resolve
// variant through its name.
type ManagedResolve struct {
	Name string            `json:"name"`
	Revs map[string]string `json:"revs"`
}

func (m ManagedResolve) TypeID() graph.TypeID { return ManagedResolveType }
func (m ManagedResolve) ProductName() string  { return m.Name }
func (m ManagedResolve) String() string       { return "ManagedResolve(" + m.Name + ")" }

// ManagedResolves carries every managed resolve declared next to a managed
// jar. Variant selection picks one of them by name.
type ManagedResolves struct {
	Resolves []ManagedResolve `json:"resolves"`
}

func (m ManagedResolves) TypeID() graph.TypeID { return ManagedResolvesType }

func (m ManagedResolves) Products() []any {
	out := make([]any, len(m.Resolves))
	for i, r := range m.Resolves {
		out[i] = r
	}
	return out
}

func managedTasks() []rules.Task {
	return []rules.Task{
		{
			Name:         "managed_jar",
			Product:      ManagedJarType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: address.TargetType}},
			Func: func(args ...any) (any, error) {
				t := args[0].(address.Target)
				if t.Kind != address.KindManagedJar {
					return nil, rules.ErrNotApplicable
				}
				return ManagedJar{Org: t.Jar.Org, Name: t.Jar.Name}, nil
			},
		},
		{
			Name:         "managed_resolves",
			Product:      ManagedResolveType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{graph.SelectProjection{
				Product:          address.AddressFamilyType,
				ProjectedSubject: address.DirType,
				Field:            "dir",
				InputProduct:     address.AddressType,
			}},
			Func: managedResolves,
		},
		{
			Name:         "select_rev",
			Product:      address.JarType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{
				graph.Select{Product: ManagedJarType},
				graph.SelectVariant{Product: ManagedResolveType, VariantKey: ResolveVariantKey},
			},
			Func: selectRev,
		},
	}
}

func managedResolves(args ...any) (any, error) {
	family := args[0].(address.AddressFamily)
	var out ManagedResolves
	for _, t := range family.Targets {
		if t.Kind == address.KindManagedResolve {
			out.Resolves = append(out.Resolves, ManagedResolve{Name: t.Address.Name, Revs: t.Revs})
		}
	}
	if len(out.Resolves) == 0 {
		return nil, rules.ErrNotApplicable
	}
	return out, nil
}

// selectRev pins a managed jar to the revision its resolve lists for it.
func selectRev(args ...any) (any, error) {
	jar := args[0].(ManagedJar)
	resolve := args[1].(ManagedResolve)
	rev, ok := resolve.Revs[jar.coordinate()]
	if !ok {
		return nil, fmt.Errorf("managed resolve %s has no revision for %s", resolve.Name, jar.coordinate())
	}
	return address.Jar{Org: jar.Org, Name: jar.Name, Rev: rev}, nil
}
