package planners

import (
	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/graph"
)

// Product type tags.
const (
	JavaSourcesType                   graph.TypeID = "JavaSources"
	ScalaSourcesType                  graph.TypeID = "ScalaSources"
	ThriftSourcesType                 graph.TypeID = "ThriftSources"
	ResourceSourcesType               graph.TypeID = "ResourceSources"
	ClasspathType                     graph.TypeID = "Classpath"
	JvmPlatformType                   graph.TypeID = "JvmPlatform"
	ApacheThriftJavaConfigurationType graph.TypeID = "ApacheThriftJavaConfiguration"
	GenGoalType                       graph.TypeID = "GenGoal"
)

// ThriftVariantKey selects the thrift code generator configuration.
const ThriftVariantKey = "thrift"

// Sources is the source set of one target. Type tells which kind of
// sources they are.
type Sources struct {
	Type  graph.TypeID    `json:"type"`
	Owner address.Address `json:"owner"`
	Files []string        `json:"files"`
	Deps  []any           `json:"dependencies,omitempty"`
}

func (s Sources) TypeID() graph.TypeID { return s.Type }
func (s Sources) String() string       { return string(s.Type) + "(" + s.Owner.String() + ")" }

// Field exposes the owning target's dependencies.
func (s Sources) Field(name string) (any, bool) {
	if name == graph.DefaultDependenciesField {
		return s.Deps, true
	}
	return nil, false
}

// Classpath is the output of a compiler or resolver.
type Classpath struct {
	Creator string `json:"creator"`
	Target  string `json:"target,omitempty"`
}

func (c Classpath) TypeID() graph.TypeID { return ClasspathType }

func (c Classpath) String() string {
	if c.Target == "" {
		return "Classpath(" + c.Creator + ")"
	}
	return "Classpath(" + c.Creator + ", " + c.Target + ")"
}

// JvmPlatform is the bytecode level shared by the JVM compilers.
type JvmPlatform struct {
	Target string `json:"target"`
}

func (p JvmPlatform) TypeID() graph.TypeID { return JvmPlatformType }
func (p JvmPlatform) String() string       { return "JvmPlatform(" + p.Target + ")" }

// GenGoal is the synthetic product of the gen goal.
type GenGoal struct {
	Name string `json:"name"`
}

func (g GenGoal) TypeID() graph.TypeID { return GenGoalType }
func (g GenGoal) String() string       { return "GenGoal(" + g.Name + ")" }
