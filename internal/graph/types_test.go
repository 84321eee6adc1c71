package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeAddress struct{ spec string }

func (a fakeAddress) TypeID() TypeID     { return "Address" }
func (a fakeAddress) SubjectKey() string { return a.spec }

type plainSubject struct{ Name string }

func TestTypeOf(t *testing.T) {
	assert.Equal(t, TypeID("string"), TypeOf("x"))
	assert.Equal(t, TypeID("Address"), TypeOf(fakeAddress{"a:b"}))
	assert.Equal(t, TypeID("Address"), TypeOf(&fakeAddress{"a:b"}))
	assert.Equal(t, TypeID("plainSubject"), TypeOf(plainSubject{}))
	assert.Equal(t, TypeID("plainSubject"), TypeOf(&plainSubject{}))
	assert.Equal(t, TypeID("nil"), TypeOf(nil))
}

func TestSubjectKey(t *testing.T) {
	assert.Equal(t, "a:b", SubjectKey(fakeAddress{"a:b"}))
	assert.Equal(t, "x", SubjectKey("x"))
	assert.Equal(t, `{"Name":"n"}`, SubjectKey(plainSubject{Name: "n"}))
	assert.Equal(t, `{"a":1,"b":"c"}`, SubjectKey(map[string]any{"b": "c", "a": 1}))
}

func TestValueDigest_EqualValues(t *testing.T) {
	type cp struct {
		Creator string `json:"creator"`
	}
	assert.Equal(t, ValueDigest(cp{"javac"}), ValueDigest(cp{"javac"}))
	assert.NotEqual(t, ValueDigest(cp{"javac"}), ValueDigest(cp{"ivy"}))
}

func TestVariants_Merge(t *testing.T) {
	defaults := NewVariants(map[string]string{"thrift": "apache_java", "resolve": "default"})
	overrides := NewVariants(map[string]string{"resolve": "latest"})

	merged := Merge(defaults, overrides)

	assert.Equal(t, "resolve=latest,thrift=apache_java", merged.String())
	assert.Equal(t, "resolve=default,thrift=apache_java", defaults.String(), "inputs are not modified")

	v, ok := merged.Get("thrift")
	assert.True(t, ok)
	assert.Equal(t, "apache_java", v)

	_, ok = merged.Get("missing")
	assert.False(t, ok)
}

func TestVariants_StringIsUnambiguous(t *testing.T) {
	packed := NewVariants(map[string]string{"a": "b,c=d"})
	split := NewVariants(map[string]string{"a": "b", "c": "d"})

	assert.Equal(t, `a="b,c=d"`, packed.String())
	assert.Equal(t, "a=b,c=d", split.String())

	sel := Select{Product: "P"}
	assert.NotEqual(t,
		NewNode(KindSelect, "s", packed, sel, "").Key,
		NewNode(KindSelect, "s", split, sel, "").Key)

	assert.Equal(t, `k=""`, NewVariants(map[string]string{"k": ""}).String())
	assert.Equal(t, `"a=b"=c`, NewVariants(map[string]string{"a=b": "c"}).String())
	assert.NotEqual(t,
		NewVariants(map[string]string{"a": `"x"`}).String(),
		NewVariants(map[string]string{"a": "x"}).String())
}

func TestVariants_Empty(t *testing.T) {
	var v Variants
	assert.Equal(t, "", v.String())
	assert.Nil(t, NewVariants(nil))
	assert.Equal(t, v, Merge(nil, nil))
}

func TestSelector_String(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{Select{Product: "Jar"}, "Select(Jar)"},
		{Select{Product: "Jar", Optional: true}, "Select(Jar, optional=true)"},
		{SelectVariant{Product: "Config", VariantKey: "thrift"}, `SelectVariant(Config, "thrift")`},
		{
			SelectDependencies{Product: "Classpath", DepProduct: "Addresses", FieldTypes: []TypeID{"Address"}},
			`SelectDependencies(Classpath, Addresses, "dependencies", field_types=(Address))`,
		},
		{
			SelectDependencies{Product: "Classpath", DepProduct: "Sources", Transitive: true, Optional: true},
			`SelectTransitive(Classpath, Sources, "dependencies", optional=true)`,
		},
		{
			SelectProjection{Product: "Family", ProjectedSubject: "Dir", Field: "dir", InputProduct: "Address"},
			`SelectProjection(Family, Dir, "dir", Address)`,
		},
		{SelectLiteral{Subject: fakeAddress{"a:b"}, Product: "Jar"}, "SelectLiteral(a:b, Jar)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.String())
		})
	}
}

func TestSelectDependencies_Accepts(t *testing.T) {
	sel := SelectDependencies{FieldTypes: []TypeID{"Address", "Jar"}}
	assert.True(t, sel.Accepts("Jar"))
	assert.False(t, sel.Accepts("string"))
	assert.True(t, SelectDependencies{}.Accepts("anything"))
}

func TestError_RootCause(t *testing.T) {
	base := NewError(ErrCodeConflictingProducers, "a", "Classpath", "two producers")
	mid := Upstream("b", "Classpath", NodeKey{Kind: KindSelect}, base)
	top := Upstream("c", "Classpath", NodeKey{Kind: KindTask}, mid)

	assert.True(t, IsUpstream(top))
	assert.False(t, IsConflict(top), "code helpers look at the outermost failure")
	assert.Same(t, base, RootCause(top))
	assert.True(t, IsConflict(RootCause(top)))
	assert.Equal(t, ErrCodeConflictingProducers, CodeOf(fmt.Errorf("wrapped: %w", base)))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Waiting", Waiting().String())
	assert.Equal(t, "Return(1)", Return(1).String())
	assert.Equal(t, "Noop(none)", Noop("none").String())
	assert.Equal(t, "Throw(NO_PRODUCER: no source)",
		Throw(NewError(ErrCodeNoProducer, "a", "X", "no source")).String())
	assert.False(t, Waiting().IsTerminal())
	assert.True(t, Noop("x").IsTerminal())
}
