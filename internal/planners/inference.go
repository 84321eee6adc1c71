package planners

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

// Dependency inference types.
const (
	ScalaInferredSourcesType graph.TypeID = "ScalaInferredSources"
	ImportedJVMPackagesType  graph.TypeID = "ImportedJVMPackages"
	JVMPackageNameType       graph.TypeID = "JVMPackageName"
	SourceRootsType          graph.TypeID = "SourceRoots"
)

// JVMPackageName is a package imported by a source file.
type JVMPackageName struct {
	Name string `json:"name"`
}

func (p JVMPackageName) TypeID() graph.TypeID { return JVMPackageNameType }
func (p JVMPackageName) SubjectKey() string   { return p.Name }
func (p JVMPackageName) String() string       { return "JVMPackageName(" + p.Name + ")" }

// ImportedJVMPackages is every package imported by a target's sources.
type ImportedJVMPackages struct {
	Owner    address.Address  `json:"owner"`
	Packages []JVMPackageName `json:"packages"`
}

func (i ImportedJVMPackages) TypeID() graph.TypeID { return ImportedJVMPackagesType }

func (i ImportedJVMPackages) String() string {
	names := make([]string, len(i.Packages))
	for n, p := range i.Packages {
		names[n] = p.Name
	}
	return "ImportedJVMPackages(" + strings.Join(names, ", ") + ")"
}

// Field exposes the packages as "dependencies".
func (i ImportedJVMPackages) Field(name string) (any, bool) {
	if name != graph.DefaultDependenciesField {
		return nil, false
	}
	out := make([]any, len(i.Packages))
	for n, p := range i.Packages {
		out[n] = p
	}
	return out, true
}

// SourceRoots are the directories packages are laid out under, in search
// order.
type SourceRoots struct {
	Roots []string `json:"roots"`
}

func (s SourceRoots) TypeID() graph.TypeID { return SourceRootsType }
func (s SourceRoots) SubjectKey() string   { return strings.Join(s.Roots, ",") }
func (s SourceRoots) String() string       { return "SourceRoots(" + strings.Join(s.Roots, ", ") + ")" }

// DefaultSourceRoots is where the example world keeps JVM sources.
var DefaultSourceRoots = SourceRoots{Roots: []string{"src/java", "src/scala"}}

var importLine = regexp.MustCompile(`^\s*import\s+([A-Za-z_][\w.]*)`)

// inferenceTasks infers scala dependencies from import statements: each
// imported package is looked up under the source roots and the first root
// whose package directory declares a target provides it.
func inferenceTasks(fsys fs.FS) []rules.Task {
	return []rules.Task{
		sourcesTask("extract_inferred_scala_sources", address.KindScalaInferred, ScalaInferredSourcesType),
		{
			Name:         "extract_scala_imports",
			Product:      ImportedJVMPackagesType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: ScalaInferredSourcesType}},
			Func: func(args ...any) (any, error) {
				return extractScalaImports(fsys, args[0].(Sources))
			},
		},
		{
			Name:         "reify_scala_sources",
			Product:      ScalaSourcesType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{
				graph.Select{Product: ScalaInferredSourcesType},
				graph.SelectDependencies{
					Product:    address.AddressType,
					DepProduct: ImportedJVMPackagesType,
					FieldTypes: []graph.TypeID{JVMPackageNameType},
					Optional:   true,
				},
			},
			Func: reifyScalaSources,
		},
		{
			Name:         "package_search_path",
			Product:      address.DirsType,
			SubjectTypes: []graph.TypeID{JVMPackageNameType},
			Clause: []graph.Selector{
				graph.Select{Product: JVMPackageNameType},
				graph.SelectLiteral{Subject: DefaultSourceRoots, Product: SourceRootsType},
			},
			Func: packageSearchPath,
		},
		{
			Name:         "select_package_address",
			Product:      address.AddressType,
			SubjectTypes: []graph.TypeID{JVMPackageNameType},
			Clause: []graph.Selector{
				graph.Select{Product: JVMPackageNameType},
				graph.SelectDependencies{
					Product:    address.AddressFamilyType,
					DepProduct: address.DirsType,
					FieldTypes: []graph.TypeID{address.DirType},
				},
			},
			Func: selectPackageAddress,
		},
	}
}

func extractScalaImports(fsys fs.FS, sources Sources) (any, error) {
	seen := make(map[string]bool)
	var pkgs []JVMPackageName
	for _, file := range sources.Files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			m := importLine.FindStringSubmatch(sc.Text())
			if m == nil {
				continue
			}
			// The last segment is the imported member.
			i := strings.LastIndexByte(m[1], '.')
			if i <= 0 {
				continue
			}
			pkg := m[1][:i]
			if !seen[pkg] {
				seen[pkg] = true
				pkgs = append(pkgs, JVMPackageName{Name: pkg})
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("scan %s: %w", file, err)
		}
	}
	slices.SortFunc(pkgs, func(a, b JVMPackageName) int { return strings.Compare(a.Name, b.Name) })
	return ImportedJVMPackages{Owner: sources.Owner, Packages: pkgs}, nil
}

// reifyScalaSources turns inferred-dependency sources into plain scala
// sources whose dependencies are the declared ones plus the inferred
// addresses. Imports of the target's own package are dropped.
func reifyScalaSources(args ...any) (any, error) {
	src := args[0].(Sources)
	inferred, _ := args[1].([]any)

	deps := slices.Clone(src.Deps)
	seen := make(map[string]bool, len(deps)+len(inferred))
	for _, d := range deps {
		seen[graph.SubjectKey(d)] = true
	}
	for _, d := range inferred {
		addr := d.(address.Address)
		if addr == src.Owner || seen[graph.SubjectKey(addr)] {
			continue
		}
		seen[graph.SubjectKey(addr)] = true
		deps = append(deps, addr)
	}
	return Sources{
		Type:  ScalaSourcesType,
		Owner: src.Owner,
		Files: src.Files,
		Deps:  deps,
	}, nil
}

func packageSearchPath(args ...any) (any, error) {
	pkg := args[0].(JVMPackageName)
	roots := args[1].(SourceRoots)
	rel := strings.ReplaceAll(pkg.Name, ".", "/")
	dirs := make([]address.Dir, len(roots.Roots))
	for i, root := range roots.Roots {
		dirs[i] = address.Dir{Path: root + "/" + rel}
	}
	return address.Dirs{Dirs: dirs}, nil
}

// selectPackageAddress picks the target providing pkg from the families of
// its search path. The first family declaring targets wins; more than one
// target in it is ambiguous. A package no family provides (a library
// import) is not applicable.
func selectPackageAddress(args ...any) (any, error) {
	pkg := args[0].(JVMPackageName)
	for _, f := range args[1].([]any) {
		addrs := f.(address.AddressFamily).Addresses()
		switch len(addrs) {
		case 0:
			continue
		case 1:
			return addrs[0], nil
		default:
			return nil, fmt.Errorf("more than one target might provide %s: %v", pkg.Name, addrs)
		}
	}
	return nil, rules.ErrNotApplicable
}
