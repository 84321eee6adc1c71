package address

import (
	"fmt"
	"strings"

	"github.com/roach88/prodgraph/internal/graph"
)

// Spec type tags.
const (
	SingleAddressType       graph.TypeID = "SingleAddress"
	SiblingAddressesType    graph.TypeID = "SiblingAddresses"
	DescendantAddressesType graph.TypeID = "DescendantAddresses"
)

// Spec is a parsed command line spec: a root subject that expands to
// addresses.
type Spec interface {
	graph.Typed
	fmt.Stringer
	// Directory is the directory the spec is anchored at.
	Directory() Dir
}

// SingleAddress selects exactly one address.
type SingleAddress struct {
	Dir  string `json:"dir"`
	Name string `json:"name"`
}

func (s SingleAddress) TypeID() graph.TypeID { return SingleAddressType }
func (s SingleAddress) String() string       { return s.Dir + ":" + s.Name }
func (s SingleAddress) Directory() Dir       { return Dir{Path: s.Dir} }
func (s SingleAddress) Address() Address     { return Address{Dir: s.Dir, Name: s.Name} }

func (s SingleAddress) Field(name string) (any, bool) { return directoryField(s, name) }

// SiblingAddresses selects every target of one directory.
type SiblingAddresses struct {
	Dir string `json:"dir"`
}

func (s SiblingAddresses) TypeID() graph.TypeID { return SiblingAddressesType }
func (s SiblingAddresses) String() string       { return s.Dir + ":" }
func (s SiblingAddresses) Directory() Dir       { return Dir{Path: s.Dir} }

func (s SiblingAddresses) Field(name string) (any, bool) { return directoryField(s, name) }

// DescendantAddresses selects every target in a directory and below it.
type DescendantAddresses struct {
	Dir string `json:"dir"`
}

func (s DescendantAddresses) TypeID() graph.TypeID { return DescendantAddressesType }
func (s DescendantAddresses) String() string       { return s.Dir + "::" }
func (s DescendantAddresses) Directory() Dir       { return Dir{Path: s.Dir} }

func (s DescendantAddresses) Field(name string) (any, bool) { return directoryField(s, name) }

func directoryField(s Spec, name string) (any, bool) {
	if name == "directory" {
		return s.Directory(), true
	}
	return nil, false
}

// ParseSpec parses a command line spec.
func ParseSpec(s string) (Spec, error) {
	trimmed := strings.TrimPrefix(s, "//")
	if dir, ok := strings.CutSuffix(trimmed, "::"); ok {
		return DescendantAddresses{Dir: cleanDir(dir)}, nil
	}
	if dir, ok := strings.CutSuffix(trimmed, ":"); ok {
		return SiblingAddresses{Dir: cleanDir(dir)}, nil
	}
	a, err := Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	return SingleAddress{Dir: a.Dir, Name: a.Name}, nil
}

// ParseSpecs parses each of specs, stopping at the first error.
func ParseSpecs(specs []string) ([]Spec, error) {
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		spec, err := ParseSpec(s)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}
