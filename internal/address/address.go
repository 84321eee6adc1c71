package address

import (
	"fmt"
	"path"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
)

// Type tags of the address subjects.
const (
	AddressType graph.TypeID = "Address"
	DirType     graph.TypeID = "Dir"
	JarType     graph.TypeID = "Jar"
)

// Address names one target: a directory relative to the build root and a
// target name within that directory's family.
type Address struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

// Parse parses "dir:name" or "dir". A leading "//" is ignored; a bare dir
// names the target with the directory's base name.
func Parse(s string) (Address, error) {
	spec := strings.TrimPrefix(s, "//")
	dir, name, hasName := strings.Cut(spec, ":")
	dir = cleanDir(dir)
	if !hasName {
		if dir == "" {
			return Address{}, fmt.Errorf("address %q: missing target name", s)
		}
		name = path.Base(dir)
	}
	if name == "" {
		return Address{}, fmt.Errorf("address %q: missing target name", s)
	}
	if strings.ContainsAny(name, ":/") {
		return Address{}, fmt.Errorf("address %q: invalid target name %q", s, name)
	}
	return Address{Dir: dir, Name: name}, nil
}

// ParseRelative parses s, resolving ":name" against dir.
func ParseRelative(s, dir string) (Address, error) {
	if name, ok := strings.CutPrefix(s, ":"); ok {
		return Parse(cleanDir(dir) + ":" + name)
	}
	return Parse(s)
}

// MustParse is Parse for literals in tests and rule tables.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func cleanDir(dir string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return ""
	}
	dir = path.Clean(dir)
	if dir == "." {
		return ""
	}
	return dir
}

// TypeID implements graph.Typed.
func (a Address) TypeID() graph.TypeID { return AddressType }

// SubjectKey implements graph.Keyed.
func (a Address) SubjectKey() string { return a.String() }

func (a Address) String() string { return a.Dir + ":" + a.Name }

// Field exposes the address's directory as "dir".
func (a Address) Field(name string) (any, bool) {
	if name == "dir" {
		return Dir{Path: a.Dir}, true
	}
	return nil, false
}

// Dir is a directory relative to the build root. The root is "".
type Dir struct {
	Path string `json:"path"`
}

// TypeID implements graph.Typed.
func (d Dir) TypeID() graph.TypeID { return DirType }

func (d Dir) String() string {
	if d.Path == "" {
		return "."
	}
	return d.Path
}

// fsPath is the directory's path within an fs.FS.
func (d Dir) fsPath() string {
	return d.String()
}

// Jar is a third-party artifact coordinate.
type Jar struct {
	Org       string `json:"org" yaml:"org"`
	Name      string `json:"name" yaml:"name"`
	Rev       string `json:"rev,omitempty" yaml:"rev"`
	TypeAlias string `json:"type_alias,omitempty" yaml:"type_alias"`
}

// TypeID implements graph.Typed.
func (j Jar) TypeID() graph.TypeID { return JarType }

func (j Jar) String() string {
	s := j.Org + ":" + j.Name
	if j.Rev != "" {
		s += ":" + j.Rev
	}
	return s
}
