package graph

import (
	"fmt"
	"strings"
)

// Selector is a declarative request for a product of the current subject.
//
// Selectors are pure values. String returns the canonical form used for node
// identity, so two selectors with the same String are the same request.
type Selector interface {
	ProductType() TypeID
	IsOptional() bool
	String() string
}

// Select requests Product for the current subject, inheriting the active
// variants unchanged.
type Select struct {
	Product  TypeID
	Optional bool
}

// ProductType returns the requested product.
func (s Select) ProductType() TypeID { return s.Product }

// IsOptional reports whether a missing producer leaves the selection Noop
// instead of failing it.
func (s Select) IsOptional() bool { return s.Optional }

// String renders the selector as Select(product), marking optional ones.
func (s Select) String() string {
	if s.Optional {
		return fmt.Sprintf("Select(%s, optional=true)", s.Product)
	}
	return fmt.Sprintf("Select(%s)", s.Product)
}

// SelectVariant requests the Product whose name matches the value of
// VariantKey in the active variants.
//
// With no value configured for VariantKey the selection is not applicable
// (Noop). With a value configured but no product of that name, it fails with
// NoProducer.
type SelectVariant struct {
	Product    TypeID
	VariantKey string
}

// ProductType returns the product matched against the variant value.
func (s SelectVariant) ProductType() TypeID { return s.Product }

// IsOptional is always false. An unset variant already yields Noop.
func (s SelectVariant) IsOptional() bool { return false }

// String includes the quoted variant key.
func (s SelectVariant) String() string {
	return fmt.Sprintf("SelectVariant(%s, %q)", s.Product, s.VariantKey)
}

// SelectDependencies requests Product for each member of Field of the
// DepProduct of the current subject, in declaration order.
//
// Members whose type is not listed in FieldTypes fail the selection with
// InvalidFieldType. When Transitive is set the selection covers the whole
// closure of Field, reading Field from the DepProduct of each member.
type SelectDependencies struct {
	Product    TypeID
	DepProduct TypeID
	Field      string
	FieldTypes []TypeID
	Transitive bool
	Optional   bool
}

// DefaultDependenciesField is the field read when SelectDependencies.Field is empty.
const DefaultDependenciesField = "dependencies"

// ProductType returns the product selected for each member, not DepProduct.
func (s SelectDependencies) ProductType() TypeID { return s.Product }

// IsOptional reports whether members without a producer are skipped.
func (s SelectDependencies) IsOptional() bool { return s.Optional }

// FieldName returns Field, or DefaultDependenciesField when unset.
func (s SelectDependencies) FieldName() string {
	if s.Field == "" {
		return DefaultDependenciesField
	}
	return s.Field
}

// Accepts reports whether t is one of the declared field types.
// An empty FieldTypes accepts everything.
func (s SelectDependencies) Accepts(t TypeID) bool {
	if len(s.FieldTypes) == 0 {
		return true
	}
	for _, ft := range s.FieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// String renders transitive selections as SelectTransitive. Field types are
// listed in declaration order.
func (s SelectDependencies) String() string {
	var b strings.Builder
	name := "SelectDependencies"
	if s.Transitive {
		name = "SelectTransitive"
	}
	fmt.Fprintf(&b, "%s(%s, %s, %q", name, s.Product, s.DepProduct, s.FieldName())
	if len(s.FieldTypes) > 0 {
		types := make([]string, len(s.FieldTypes))
		for i, t := range s.FieldTypes {
			types[i] = string(t)
		}
		fmt.Fprintf(&b, ", field_types=(%s)", strings.Join(types, ", "))
	}
	if s.Optional {
		b.WriteString(", optional=true")
	}
	b.WriteString(")")
	return b.String()
}

// SelectProjection selects InputProduct for the current subject, reads Field
// from it to obtain a subject of type ProjectedSubject, and selects Product
// for that projected subject.
//
// Projection lets many subjects share one backing subject, for example every
// address in a directory sharing that directory's address family.
type SelectProjection struct {
	Product          TypeID
	ProjectedSubject TypeID
	Field            string
	InputProduct     TypeID
}

// ProductType returns the product selected for the projected subject.
func (s SelectProjection) ProductType() TypeID { return s.Product }

// IsOptional is always false.
func (s SelectProjection) IsOptional() bool { return false }

// String lists product, projected subject type, field and input product.
func (s SelectProjection) String() string {
	return fmt.Sprintf("SelectProjection(%s, %s, %q, %s)",
		s.Product, s.ProjectedSubject, s.Field, s.InputProduct)
}

// SelectLiteral selects Product for a fixed Subject instead of the current one.
type SelectLiteral struct {
	Subject any
	Product TypeID
}

// ProductType returns the product selected for the fixed subject.
func (s SelectLiteral) ProductType() TypeID { return s.Product }

// IsOptional is always false.
func (s SelectLiteral) IsOptional() bool { return false }

// String identifies the literal by its subject key.
func (s SelectLiteral) String() string {
	return fmt.Sprintf("SelectLiteral(%s, %s)", SubjectKey(s.Subject), s.Product)
}
