package graph

import (
	"slices"
	"strconv"
	"strings"
)

// VariantsType is the built-in product carrying a subject's default variants.
const VariantsType TypeID = "Variants"

// Variant is one key/value pair of a variant context.
type Variant struct {
	Key   string
	Value string
}

// Variants is an immutable variant context, sorted by key with unique keys.
// The zero value is the empty context. Construct with NewVariants or Merge;
// never mutate the backing slice.
type Variants []Variant

// NewVariants builds a Variants from a map.
func NewVariants(m map[string]string) Variants {
	if len(m) == 0 {
		return nil
	}
	v := make(Variants, 0, len(m))
	for k, val := range m {
		v = append(v, Variant{Key: k, Value: val})
	}
	slices.SortFunc(v, func(a, b Variant) int { return strings.Compare(a.Key, b.Key) })
	return v
}

// TypeID implements Typed.
func (v Variants) TypeID() TypeID { return VariantsType }

// Get returns the value for key.
func (v Variants) Get(key string) (string, bool) {
	i, found := slices.BinarySearchFunc(v, key, func(e Variant, k string) int {
		return strings.Compare(e.Key, k)
	})
	if !found {
		return "", false
	}
	return v[i].Value, true
}

// Map returns a copy of v as a map.
func (v Variants) Map() map[string]string {
	m := make(map[string]string, len(v))
	for _, e := range v {
		m[e.Key] = e.Value
	}
	return m
}

// String renders v as "k1=v1,k2=v2". The empty context renders as "".
// Keys and values that are empty or contain a separator, a quote, a
// backslash or a non-printable rune are Go-quoted, so the rendering is
// unambiguous and serves as the context's identity.
func (v Variants) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = quoteVariant(e.Key) + "=" + quoteVariant(e.Value)
	}
	return strings.Join(parts, ",")
}

func quoteVariant(s string) string {
	if s == "" || strings.ContainsAny(s, `,="\`) || strings.ContainsFunc(s, func(r rune) bool { return !strconv.IsPrint(r) }) {
		return strconv.Quote(s)
	}
	return s
}

// Merge returns defaults overlaid with overrides. Keys present in overrides
// win. Neither input is modified.
func Merge(defaults, overrides Variants) Variants {
	if len(defaults) == 0 {
		return overrides
	}
	if len(overrides) == 0 {
		return defaults
	}
	m := defaults.Map()
	for _, e := range overrides {
		m[e.Key] = e.Value
	}
	return NewVariants(m)
}
