package address

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path"
	"slices"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/prodgraph/internal/graph"
)

// BUILD file names, in load order.
const (
	BuildYAML = "BUILD.yaml"
	BuildCUE  = "BUILD.cue"
)

// BuildFiles lists the recognised BUILD file names.
var BuildFiles = []string{BuildYAML, BuildCUE}

// Load error codes.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeReadFailed      = "E002" // BUILD file read error
	ErrCodeParseFailed     = "E003" // YAML or CUE syntax error
	ErrCodeBuildFailed     = "E004" // CUE evaluation error
	ErrCodeDuplicateTarget = "E101" // Two targets share a name
	ErrCodeInvalidTarget   = "E102" // Missing or malformed target field
	ErrCodeInvalidDep      = "E103" // Malformed dependency
)

// LoadError reports a problem in one BUILD file.
type LoadError struct {
	Code    string
	File    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// rawTarget is the on-disk shape shared by both BUILD formats.
type rawTarget struct {
	Name            string             `yaml:"name" json:"name"`
	Kind            string             `yaml:"kind" json:"kind"`
	Sources         []string           `yaml:"sources" json:"sources"`
	Dependencies    []any              `yaml:"dependencies" json:"dependencies"`
	Configurations  []rawConfiguration `yaml:"configurations" json:"configurations"`
	DefaultVariants map[string]string  `yaml:"default_variants" json:"default_variants"`
	Jar             *Jar               `yaml:"jar" json:"jar"`
	Revs            map[string]string  `yaml:"revs" json:"revs"`
}

type rawConfiguration struct {
	Type         string            `yaml:"type" json:"type"`
	Name         string            `yaml:"name" json:"name"`
	Dependencies []any             `yaml:"dependencies" json:"dependencies"`
	Props        map[string]string `yaml:"props" json:"props"`
}

type yamlFile struct {
	Targets []rawTarget `yaml:"targets"`
}

// LoadFamily parses the BUILD files of dir. A directory without BUILD
// files has an empty family.
func LoadFamily(fsys fs.FS, dir Dir) (AddressFamily, error) {
	family := AddressFamily{Dir: dir.Path}
	seen := make(map[string]string)
	for _, name := range BuildFiles {
		file := path.Join(dir.fsPath(), name)
		data, err := fs.ReadFile(fsys, file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return AddressFamily{}, &LoadError{Code: ErrCodeReadFailed, File: file, Message: err.Error()}
		}

		var raws []rawTarget
		switch name {
		case BuildYAML:
			raws, err = parseYAML(file, data)
		case BuildCUE:
			raws, err = parseCUE(file, data)
		}
		if err != nil {
			return AddressFamily{}, err
		}

		for _, raw := range raws {
			t, err := raw.target(dir.Path)
			if err != nil {
				return AddressFamily{}, &LoadError{Code: codeOf(err), File: file, Message: err.Error()}
			}
			if prev, dup := seen[t.Address.Name]; dup {
				return AddressFamily{}, &LoadError{
					Code:    ErrCodeDuplicateTarget,
					File:    file,
					Message: fmt.Sprintf("target %q already declared in %s", t.Address.Name, prev),
				}
			}
			seen[t.Address.Name] = file
			family.Targets = append(family.Targets, t)
		}
	}
	slices.SortFunc(family.Targets, func(a, b Target) int {
		return strings.Compare(a.Address.Name, b.Address.Name)
	})
	return family, nil
}

func parseYAML(file string, data []byte) ([]rawTarget, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f yamlFile
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Code: ErrCodeParseFailed, File: file, Message: err.Error()}
	}
	return f.Targets, nil
}

// parseCUE reads a BUILD.cue whose top-level "targets" struct maps target
// names to target bodies.
func parseCUE(file string, data []byte) ([]rawTarget, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(file))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, file, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, file, err)
	}

	targetsVal := v.LookupPath(cue.ParsePath("targets"))
	if !targetsVal.Exists() {
		return nil, nil
	}
	iter, err := targetsVal.Fields()
	if err != nil {
		return nil, cueLoadError(ErrCodeInvalidTarget, file, err)
	}
	var out []rawTarget
	for iter.Next() {
		var raw rawTarget
		if err := iter.Value().Decode(&raw); err != nil {
			return nil, cueLoadError(ErrCodeInvalidTarget, file, err)
		}
		if raw.Name == "" {
			raw.Name = iter.Label()
		}
		out = append(out, raw)
	}
	return out, nil
}

func cueLoadError(code, file string, err error) *LoadError {
	le := &LoadError{Code: code, File: file, Message: cueerrors.Details(err, nil)}
	var cerr cueerrors.Error
	if errors.As(err, &cerr) {
		le.Pos = cerr.Position()
		le.Message = strings.TrimSpace(fmt.Sprint(cerr))
	}
	return le
}

// fieldError is a target validation failure carrying a load error code.
type fieldError struct {
	code string
	msg  string
}

func (e *fieldError) Error() string { return e.msg }

func codeOf(err error) string {
	var fe *fieldError
	if errors.As(err, &fe) {
		return fe.code
	}
	return ErrCodeGeneric
}

func (r rawTarget) target(dir string) (Target, error) {
	if r.Name == "" {
		return Target{}, &fieldError{ErrCodeInvalidTarget, "target without a name"}
	}
	addr, err := Parse(dir + ":" + r.Name)
	if err != nil {
		return Target{}, &fieldError{ErrCodeInvalidTarget, err.Error()}
	}
	if r.Kind == "" {
		return Target{}, &fieldError{ErrCodeInvalidTarget, fmt.Sprintf("target %s has no kind", addr)}
	}
	t := Target{
		Address:         addr,
		Kind:            r.Kind,
		Sources:         slices.Clone(r.Sources),
		DefaultVariants: graph.NewVariants(r.DefaultVariants),
		Jar:             r.Jar,
		Revs:            maps.Clone(r.Revs),
	}
	sort.Strings(t.Sources)
	if t.Dependencies, err = parseDependencies(addr, r.Dependencies, dir); err != nil {
		return Target{}, err
	}
	switch t.Kind {
	case KindJar, KindManagedJar:
		if t.Jar == nil {
			return Target{}, &fieldError{ErrCodeInvalidTarget, fmt.Sprintf("%s target %s has no jar", t.Kind, addr)}
		}
	case KindManagedResolve:
		if len(t.Revs) == 0 {
			return Target{}, &fieldError{ErrCodeInvalidTarget, fmt.Sprintf("%s target %s has no revs", t.Kind, addr)}
		}
	}
	if len(t.Revs) > 0 && t.Kind != KindManagedResolve {
		return Target{}, &fieldError{ErrCodeInvalidTarget,
			fmt.Sprintf("revs are only allowed on %s targets, not %s %s", KindManagedResolve, t.Kind, addr)}
	}
	for _, rc := range r.Configurations {
		if rc.Type == "" || rc.Name == "" {
			return Target{}, &fieldError{ErrCodeInvalidTarget,
				fmt.Sprintf("configuration on %s needs a type and a name", addr)}
		}
		deps, err := parseDependencies(addr, rc.Dependencies, dir)
		if err != nil {
			return Target{}, err
		}
		t.Configurations = append(t.Configurations, Configuration{
			Type:  graph.TypeID(rc.Type),
			Name:  rc.Name,
			Deps:  deps,
			Props: rc.Props,
		})
	}
	return t, nil
}

// parseDependencies converts address strings and inline jar maps.
func parseDependencies(owner Address, raw []any, dir string) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(raw))
	for _, d := range raw {
		switch v := d.(type) {
		case string:
			a, err := ParseRelative(v, dir)
			if err != nil {
				return nil, &fieldError{ErrCodeInvalidDep, fmt.Sprintf("dependency of %s: %v", owner, err)}
			}
			out = append(out, a)
		case map[string]any:
			j, err := jarFromMap(v)
			if err != nil {
				return nil, &fieldError{ErrCodeInvalidDep, fmt.Sprintf("dependency of %s: %v", owner, err)}
			}
			out = append(out, j)
		default:
			return nil, &fieldError{ErrCodeInvalidDep,
				fmt.Sprintf("dependency of %s: unsupported value %v (%T)", owner, d, d)}
		}
	}
	return out, nil
}

func jarFromMap(m map[string]any) (Jar, error) {
	var j Jar
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			return Jar{}, fmt.Errorf("jar field %q must be a string, got %T", k, v)
		}
		switch k {
		case "org":
			j.Org = s
		case "name":
			j.Name = s
		case "rev":
			j.Rev = s
		case "type_alias":
			j.TypeAlias = s
		default:
			return Jar{}, fmt.Errorf("unknown jar field %q", k)
		}
	}
	if j.Org == "" || j.Name == "" {
		return Jar{}, errors.New("jar needs org and name")
	}
	return j, nil
}

// FindBuildDirs returns every directory at or below root holding a BUILD
// file, in lexical order.
func FindBuildDirs(fsys fs.FS, root Dir) ([]Dir, error) {
	var dirs []Dir
	err := fs.WalkDir(fsys, root.fsPath(), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		for _, name := range BuildFiles {
			if _, err := fs.Stat(fsys, path.Join(p, name)); err == nil {
				dirs = append(dirs, Dir{Path: cleanDir(p)})
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find BUILD files under %s: %w", root, err)
	}
	return dirs, nil
}
