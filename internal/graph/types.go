package graph

import (
	"fmt"
	"reflect"

	"github.com/roach88/prodgraph/internal/ir"
)

// TypeID names a subject or product type.
//
// Product types are not data: they index the rule registry and take part in
// selector identity.
type TypeID string

// Typed is implemented by values that declare their own type tag.
type Typed interface {
	TypeID() TypeID
}

// TypeOf returns the type tag of v. Values that do not implement Typed fall
// back to their Go type name, so a plain string has type "string".
func TypeOf(v any) TypeID {
	if v == nil {
		return "nil"
	}
	if t, ok := v.(Typed); ok {
		return t.TypeID()
	}
	rt := reflect.TypeOf(v)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return TypeID(rt.String())
	}
	return TypeID(rt.Name())
}

// Keyed is implemented by subjects that provide their own identity key.
// Two subjects of the same type with equal keys are the same subject.
type Keyed interface {
	SubjectKey() string
}

// HasProducts is implemented by values that carry products of other types,
// for example a target declaring its configurations. A select for product P
// on such a value is satisfied by its first product of type P.
type HasProducts interface {
	Products() []any
}

// Named is implemented by products that can be chosen by variant value.
type Named interface {
	ProductName() string
}

// Fielded is implemented by products whose fields can be read by
// SelectDependencies and SelectProjection.
type Fielded interface {
	Field(name string) (any, bool)
}

// SubjectKey returns the identity key of a subject.
//
// Keyed subjects supply their own key and strings are their own key.
// Everything else is identified by its canonical JSON encoding; values that cannot be encoded fall back to their
// Go-syntax representation.
func SubjectKey(subject any) string {
	if k, ok := subject.(Keyed); ok {
		return k.SubjectKey()
	}
	if s, ok := subject.(string); ok {
		return s
	}
	if s, ok := subject.(fmt.Stringer); ok {
		if _, typed := subject.(Typed); typed {
			return s.String()
		}
	}
	data, err := ir.MarshalCanonical(subject)
	if err != nil {
		return fmt.Sprintf("%#v", subject)
	}
	return string(data)
}

// ValueDigest returns the content digest used to compare produced values.
// Values that cannot be canonically encoded are digested through their
// subject key.
func ValueDigest(v any) string {
	d, err := ir.Digest(ir.DomainValue, v)
	if err != nil {
		return ir.Hash(ir.DomainValue, []byte(string(TypeOf(v))+":"+SubjectKey(v)))
	}
	return d
}
