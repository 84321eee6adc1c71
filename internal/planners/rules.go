package planners

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/roach88/prodgraph/internal/address"
	"github.com/roach88/prodgraph/internal/graph"
	"github.com/roach88/prodgraph/internal/rules"
)

// DefaultJvmTarget is the bytecode level of the JvmPlatform singleton.
const DefaultJvmTarget = "1.8"

var addressOnly = []graph.TypeID{address.AddressType}

// Register installs the example rules into r, reading BUILD files from
// fsys.
func Register(r *rules.Registry, fsys fs.FS) error {
	r.Invariant(
		address.TargetType,
		address.AddressFamilyType,
		address.AddressesType,
		address.DirsType,
		address.AddressType,
		address.DirType,
		JvmPlatformType,
	)

	if err := r.Intrinsic("address_family", address.DirType, address.AddressFamilyType,
		func(args ...any) (any, error) {
			return address.LoadFamily(fsys, args[0].(address.Dir))
		}); err != nil {
		return err
	}
	if err := r.Intrinsic("descendant_dirs", address.DescendantAddressesType, address.DirsType,
		func(args ...any) (any, error) {
			spec := args[0].(address.DescendantAddresses)
			dirs, err := address.FindBuildDirs(fsys, spec.Directory())
			if err != nil {
				return nil, err
			}
			return address.Dirs{Dirs: dirs}, nil
		}); err != nil {
		return err
	}
	if err := r.Singleton("jvm_platform", JvmPlatformType, JvmPlatform{Target: DefaultJvmTarget}); err != nil {
		return err
	}

	tasks := []rules.Task{
		{
			Name:         "resolve_target",
			Product:      address.TargetType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{
				graph.Select{Product: address.AddressType},
				graph.SelectProjection{
					Product:          address.AddressFamilyType,
					ProjectedSubject: address.DirType,
					Field:            "dir",
					InputProduct:     address.AddressType,
				},
			},
			Func: resolveTarget,
		},
		{
			Name:         "expand_single",
			Product:      address.AddressesType,
			SubjectTypes: []graph.TypeID{address.SingleAddressType},
			Clause: []graph.Selector{
				graph.Select{Product: address.SingleAddressType},
				familyOfSpec(address.SingleAddressType),
			},
			Func: expandSingle,
		},
		{
			Name:         "expand_siblings",
			Product:      address.AddressesType,
			SubjectTypes: []graph.TypeID{address.SiblingAddressesType},
			Clause:       []graph.Selector{familyOfSpec(address.SiblingAddressesType)},
			Func: func(args ...any) (any, error) {
				return address.Addresses{Addresses: args[0].(address.AddressFamily).Addresses()}, nil
			},
		},
		{
			Name:         "expand_descendants",
			Product:      address.AddressesType,
			SubjectTypes: []graph.TypeID{address.DescendantAddressesType},
			Clause: []graph.Selector{graph.SelectDependencies{
				Product:    address.AddressFamilyType,
				DepProduct: address.DirsType,
				FieldTypes: []graph.TypeID{address.DirType},
			}},
			Func: expandDescendants,
		},
		{
			Name:         "default_variants",
			Product:      graph.VariantsType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: address.TargetType}},
			Func: func(args ...any) (any, error) {
				t := args[0].(address.Target)
				if len(t.DefaultVariants) == 0 {
					return nil, rules.ErrNotApplicable
				}
				return t.DefaultVariants, nil
			},
		},
		sourcesTask("extract_java_sources", address.KindJava, JavaSourcesType),
		sourcesTask("extract_scala_sources", address.KindScala, ScalaSourcesType),
		sourcesTask("extract_thrift_sources", address.KindThrift, ThriftSourcesType),
		sourcesTask("extract_resources", address.KindResources, ResourceSourcesType),
		{
			Name:         "thrift_configurations",
			Product:      ApacheThriftJavaConfigurationType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: address.TargetType}},
			Func: func(args ...any) (any, error) {
				t := args[0].(address.Target)
				if t.Kind != address.KindThrift {
					return nil, rules.ErrNotApplicable
				}
				return t, nil
			},
		},
		{
			Name:         "gen_apache_thrift_java",
			Product:      JavaSourcesType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{
				graph.Select{Product: ThriftSourcesType},
				graph.SelectVariant{Product: ApacheThriftJavaConfigurationType, VariantKey: ThriftVariantKey},
			},
			Func: genApacheThriftJava,
		},
		{
			Name:         "javac",
			Product:      ClasspathType,
			SubjectTypes: addressOnly,
			Clause:       compileClause(JavaSourcesType),
			Func:         compiler("javac"),
		},
		{
			Name:         "scalac",
			Product:      ClasspathType,
			SubjectTypes: addressOnly,
			Clause:       compileClause(ScalaSourcesType),
			Func:         compiler("scalac"),
		},
		{
			Name:         "resources",
			Product:      ClasspathType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: ResourceSourcesType}},
			Func: func(args ...any) (any, error) {
				return Classpath{Creator: "resources"}, nil
			},
		},
		{
			Name:         "jar",
			Product:      address.JarType,
			SubjectTypes: addressOnly,
			Clause:       []graph.Selector{graph.Select{Product: address.TargetType}},
			Func: func(args ...any) (any, error) {
				t := args[0].(address.Target)
				if t.Jar == nil || t.Kind == address.KindManagedJar {
					return nil, rules.ErrNotApplicable
				}
				return *t.Jar, nil
			},
		},
		{
			Name:    "ivy_resolve",
			Product: ClasspathType,
			Clause:  []graph.Selector{graph.Select{Product: address.JarType}},
			Func: func(args ...any) (any, error) {
				return Classpath{Creator: "ivy"}, nil
			},
		},
		{
			Name:         "gen",
			Product:      GenGoalType,
			SubjectTypes: addressOnly,
			Clause: []graph.Selector{
				graph.Select{Product: JavaSourcesType, Optional: true},
				graph.Select{Product: ThriftSourcesType},
			},
			Func: func(args ...any) (any, error) {
				return GenGoal{Name: "gen"}, nil
			},
		},
	}
	tasks = append(tasks, managedTasks()...)
	tasks = append(tasks, inferenceTasks(fsys)...)
	for _, t := range tasks {
		if err := r.Task(t); err != nil {
			return err
		}
	}
	return nil
}

func familyOfSpec(spec graph.TypeID) graph.SelectProjection {
	return graph.SelectProjection{
		Product:          address.AddressFamilyType,
		ProjectedSubject: address.DirType,
		Field:            "directory",
		InputProduct:     spec,
	}
}

func resolveTarget(args ...any) (any, error) {
	addr := args[0].(address.Address)
	family := args[1].(address.AddressFamily)
	t, ok := family.Lookup(addr.Name)
	if !ok {
		return nil, fmt.Errorf("no target named %q in %s", addr.Name, address.Dir{Path: addr.Dir})
	}
	return t, nil
}

func expandSingle(args ...any) (any, error) {
	spec := args[0].(address.SingleAddress)
	family := args[1].(address.AddressFamily)
	if _, ok := family.Lookup(spec.Name); !ok {
		return nil, fmt.Errorf("no target named %q in %s", spec.Name, spec.Directory())
	}
	return address.Addresses{Addresses: []address.Address{spec.Address()}}, nil
}

func expandDescendants(args ...any) (any, error) {
	var out []address.Address
	for _, f := range args[0].([]any) {
		out = append(out, f.(address.AddressFamily).Addresses()...)
	}
	return address.Addresses{Addresses: out}, nil
}

func sourcesTask(name, kind string, product graph.TypeID) rules.Task {
	return rules.Task{
		Name:         name,
		Product:      product,
		SubjectTypes: addressOnly,
		Clause:       []graph.Selector{graph.Select{Product: address.TargetType}},
		Func: func(args ...any) (any, error) {
			t := args[0].(address.Target)
			if t.Kind != kind {
				return nil, rules.ErrNotApplicable
			}
			return Sources{
				Type:  product,
				Owner: t.Address,
				Files: t.SourcePaths(),
				Deps:  t.Dependencies,
			}, nil
		},
	}
}

// genApacheThriftJava turns thrift sources into java sources. The generated
// code depends on the thrift target's dependencies plus the runtime
// dependencies of the selected configuration.
func genApacheThriftJava(args ...any) (any, error) {
	thrift := args[0].(Sources)
	cfg := args[1].(address.Configuration)

	files := make([]string, len(thrift.Files))
	for i, f := range thrift.Files {
		base := strings.TrimSuffix(path.Base(f), path.Ext(f))
		files[i] = path.Join(thrift.Owner.Dir, "gen-java", cfg.Name, base+".java")
	}
	deps := make([]any, 0, len(thrift.Deps)+len(cfg.Deps))
	deps = append(deps, thrift.Deps...)
	deps = append(deps, cfg.Deps...)
	return Sources{
		Type:  JavaSourcesType,
		Owner: thrift.Owner,
		Files: files,
		Deps:  deps,
	}, nil
}

func compileClause(sources graph.TypeID) []graph.Selector {
	return []graph.Selector{
		graph.Select{Product: sources},
		graph.SelectDependencies{
			Product:    ClasspathType,
			DepProduct: sources,
			FieldTypes: []graph.TypeID{address.AddressType, address.JarType},
		},
		graph.Select{Product: JvmPlatformType},
	}
}

func compiler(creator string) rules.Func {
	return func(args ...any) (any, error) {
		platform := args[2].(JvmPlatform)
		return Classpath{Creator: creator, Target: platform.Target}, nil
	}
}
