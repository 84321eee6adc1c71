package address

import (
	"slices"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
)

// Product type tags for parsed BUILD content.
const (
	TargetType        graph.TypeID = "Target"
	AddressFamilyType graph.TypeID = "AddressFamily"
	AddressesType     graph.TypeID = "Addresses"
	DirsType          graph.TypeID = "Dirs"
)

// Target kinds understood by the example rules.
const (
	KindJava      = "java_library"
	KindScala     = "scala_library"
	KindThrift    = "thrift_library"
	KindResources = "resources"
	KindJar       = "jar_library"

	// KindScalaInferred is a scala library whose dependencies are inferred
	// from its imports in addition to the declared ones.
	KindScalaInferred = "scala_inferred_library"

	// KindManagedJar is a jar coordinate without a revision. The revision
	// comes from a KindManagedResolve target chosen by variant.
	KindManagedJar     = "managed_jar"
	KindManagedResolve = "managed_resolve"
)

// Configuration is a named, typed block of tool settings declared on a
// target. Its Type is the product type it satisfies; its Name is matched
// against variant values.
type Configuration struct {
	Type  graph.TypeID      `json:"type"`
	Name  string            `json:"name"`
	Deps  []any             `json:"dependencies,omitempty"`
	Props map[string]string `json:"props,omitempty"`
}

func (c Configuration) TypeID() graph.TypeID { return c.Type }
func (c Configuration) ProductName() string  { return c.Name }

// Field exposes the configuration's dependencies.
func (c Configuration) Field(name string) (any, bool) {
	if name == graph.DefaultDependenciesField {
		return c.Deps, true
	}
	return nil, false
}

// Target is one declared build target. Revs pins "org#name" coordinates
// to revisions and is only set on managed resolves.
type Target struct {
	Address         Address           `json:"address"`
	Kind            string            `json:"kind"`
	Sources         []string          `json:"sources,omitempty"`
	Dependencies    []any             `json:"dependencies,omitempty"`
	Configurations  []Configuration   `json:"configurations,omitempty"`
	DefaultVariants graph.Variants    `json:"default_variants,omitempty"`
	Jar             *Jar              `json:"jar,omitempty"`
	Revs            map[string]string `json:"revs,omitempty"`
}

func (t Target) TypeID() graph.TypeID { return TargetType }
func (t Target) String() string       { return "Target(" + t.Address.String() + ")" }

// Products returns the target's configurations.
func (t Target) Products() []any {
	out := make([]any, len(t.Configurations))
	for i, c := range t.Configurations {
		out[i] = c
	}
	return out
}

// Field exposes "dependencies", "sources" and "configurations".
func (t Target) Field(name string) (any, bool) {
	switch name {
	case graph.DefaultDependenciesField:
		return t.Dependencies, true
	case "sources":
		out := make([]any, len(t.Sources))
		for i, s := range t.Sources {
			out[i] = s
		}
		return out, true
	case "configurations":
		return t.Products(), true
	}
	return nil, false
}

// SourcePaths returns the target's sources relative to the build root.
func (t Target) SourcePaths() []string {
	out := make([]string, len(t.Sources))
	for i, s := range t.Sources {
		if t.Address.Dir == "" {
			out[i] = s
		} else {
			out[i] = t.Address.Dir + "/" + s
		}
	}
	return out
}

// AddressFamily is every target declared in one directory, sorted by name.
type AddressFamily struct {
	Dir     string   `json:"dir"`
	Targets []Target `json:"targets"`
}

func (f AddressFamily) TypeID() graph.TypeID { return AddressFamilyType }

func (f AddressFamily) String() string {
	names := make([]string, len(f.Targets))
	for i, t := range f.Targets {
		names[i] = t.Address.Name
	}
	return "AddressFamily(" + Dir{Path: f.Dir}.String() + ": " + strings.Join(names, ", ") + ")"
}

// Lookup returns the target named name.
func (f AddressFamily) Lookup(name string) (Target, bool) {
	i, ok := slices.BinarySearchFunc(f.Targets, name, func(t Target, n string) int {
		return strings.Compare(t.Address.Name, n)
	})
	if !ok {
		return Target{}, false
	}
	return f.Targets[i], true
}

// Addresses returns the addresses of the family's targets in name order.
func (f AddressFamily) Addresses() []Address {
	out := make([]Address, len(f.Targets))
	for i, t := range f.Targets {
		out[i] = t.Address
	}
	return out
}

// Addresses is the expansion of a spec.
type Addresses struct {
	Addresses []Address `json:"addresses"`
}

func (a Addresses) TypeID() graph.TypeID { return AddressesType }

func (a Addresses) String() string {
	parts := make([]string, len(a.Addresses))
	for i, addr := range a.Addresses {
		parts[i] = addr.String()
	}
	return "Addresses(" + strings.Join(parts, ", ") + ")"
}

// Field exposes the addresses as "dependencies".
func (a Addresses) Field(name string) (any, bool) {
	if name != graph.DefaultDependenciesField {
		return nil, false
	}
	out := make([]any, len(a.Addresses))
	for i, addr := range a.Addresses {
		out[i] = addr
	}
	return out, true
}

// Dirs is a set of directories holding BUILD files.
type Dirs struct {
	Dirs []Dir `json:"dirs"`
}

func (d Dirs) TypeID() graph.TypeID { return DirsType }

func (d Dirs) String() string {
	parts := make([]string, len(d.Dirs))
	for i, dir := range d.Dirs {
		parts[i] = dir.String()
	}
	return "Dirs(" + strings.Join(parts, ", ") + ")"
}

// Field exposes the directories as "dependencies".
func (d Dirs) Field(name string) (any, bool) {
	if name != graph.DefaultDependenciesField {
		return nil, false
	}
	out := make([]any, len(d.Dirs))
	for i, dir := range d.Dirs {
		out[i] = dir
	}
	return out, true
}
