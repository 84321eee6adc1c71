package planners

import (
	"fmt"
	"io/fs"
	"path"

	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
	"github.com/roach88/prodgraph/internal/scheduler"
)

// Goals is the goal table of the example world.
var Goals = []scheduler.Goal{
	{Name: "compile", Products: []graph.TypeID{ClasspathType}},
	{Name: "resolve", Products: []graph.TypeID{ClasspathType}},
	{Name: "gen", Products: []graph.TypeID{GenGoalType}, Optional: true},
	{Name: "list", Products: []graph.TypeID{address.AddressType}},
}

// SubjectTypes lists the types that appear as subjects without being
// produced by a rule.
var SubjectTypes = []graph.TypeID{
	address.AddressType,
	address.DirType,
	address.JarType,
	address.SingleAddressType,
	address.SiblingAddressesType,
	address.DescendantAddressesType,
	JVMPackageNameType,
	SourceRootsType,
}

// NewRegistry builds and validates the example rule set over fsys.
func NewRegistry(fsys fs.FS) (*rules.Registry, error) {
	r := rules.NewRegistry()
	if err := Register(r, fsys); err != nil {
		return nil, fmt.Errorf("register rules: %w", err)
	}
	if err := r.Validate(SubjectTypes...); err != nil {
		return nil, err
	}
	return r, nil
}

// NewScheduler returns a scheduler over the build root fsys.
func NewScheduler(fsys fs.FS, opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	r, err := NewRegistry(fsys)
	if err != nil {
		return nil, err
	}
	opts = append([]scheduler.Option{scheduler.WithPathSubjects(PathSubjects)}, opts...)
	return scheduler.New(r, Goals, opts...), nil
}

// PathSubjects maps changed files to the directories whose address families
// read them. Every product of a target flows from its family, so
// invalidating the Dir invalidates everything the file could affect.
func PathSubjects(paths []string) []any {
	seen := make(map[string]bool)
	var out []any
	for _, p := range paths {
		dir := path.Dir(path.Clean(p))
		if dir == "." {
			dir = ""
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		out = append(out, address.Dir{Path: dir})
	}
	return out
}

// ParseSubjects parses command line specs into root subjects.
func ParseSubjects(specs []string) ([]any, error) {
	parsed, err := address.ParseSpecs(specs)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(parsed))
	for i, s := range parsed {
		out[i] = s
	}
	return out, nil
}
