package inherit

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
)

func newTestParser() *Parser {
	return NewParser(names.Identifiers{}, names.TypeNames{})
}

func typeStrings(l *InheritanceList) []string {
	var out []string
	for _, t := range l.InheritedTypes {
		out = append(out, t.String())
	}
	return out
}

func constraintStrings(cs []Constraint) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c.String())
	}
	return out
}

func TestParse_BasesAndConstraints(t *testing.T) {
	l, err := newTestParser().Parse("IFoo, IBar where T : class, new()")
	require.NoError(t, err)

	assert.Equal(t, []string{"IFoo", "IBar"}, typeStrings(l))
	assert.Equal(t, []string{"T"}, l.ConstrainedParameters)
	assert.Equal(t, []ConstraintKind{ConstraintClass, ConstraintNew},
		[]ConstraintKind{l.Constraints["T"][0].Kind, l.Constraints["T"][1].Kind})
	assert.Equal(t, "IFoo, IBar where T : class, new()", l.Format())
}

func TestParse_Success(t *testing.T) {
	tests := []struct {
		text   string
		types  []string
		params map[string][]string
		format string
	}{
		{"", nil, nil, ""},
		{"   ", nil, nil, ""},
		{"IFoo", []string{"IFoo"}, nil, "IFoo"},
		{"  IFoo ,IBar  ", []string{"IFoo", "IBar"}, nil, "IFoo, IBar"},
		{"List<int>, Dictionary< string , List<int> >", []string{"List<int>", "Dictionary<string, List<int>>"}, nil, "List<int>, Dictionary<string, List<int>>"},
		{"global::System.IDisposable", []string{"global::System.IDisposable"}, nil, "global::System.IDisposable"},
		{"Outer<T>.Inner", []string{"Outer<T>.Inner"}, nil, "Outer<T>.Inner"},
		{"where T : struct", nil, map[string][]string{"T": {"struct"}}, "where T : struct"},
		{"where T:class", nil, map[string][]string{"T": {"class"}}, "where T : class"},
		{
			"Base<T, U> where T : struct where U : IComparable<U>, new( )",
			[]string{"Base<T, U>"},
			map[string][]string{"T": {"struct"}, "U": {"IComparable<U>", "new()"}},
			"Base<T, U> where T : struct where U : IComparable<U>, new()",
		},
		// a lone "where" names a type
		{"where", []string{"where"}, nil, "where"},
		{"where, IFoo", []string{"where", "IFoo"}, nil, "where, IFoo"},
		{"IFoo, where", []string{"IFoo", "where"}, nil, "IFoo, where"},
		{"where where T : class", []string{"where"}, map[string][]string{"T": {"class"}}, "where where T : class"},
		{"IFoo where where : class", []string{"IFoo"}, map[string][]string{"where": {"class"}}, "IFoo where where : class"},
		{"IFoo where T : where", []string{"IFoo"}, map[string][]string{"T": {"where"}}, "IFoo where T : where"},
		{"int[,], string?", []string{"int[,]", "string?"}, nil, "int[,], string?"},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			l, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.types, typeStrings(l))
			assert.Len(t, l.ConstrainedParameters, len(tt.params))
			for param, want := range tt.params {
				assert.Equal(t, want, constraintStrings(l.Constraints[param]), param)
			}
			assert.Equal(t, tt.format, l.Format())
		})
	}
}

func TestParse_Failure(t *testing.T) {
	tests := []struct {
		text     string
		index    int
		contains string
	}{
		{"IFoo, IFoo", 6, "'IFoo' cannot be inherited more than once"},
		{"List<int>, List< int >", 11, "cannot be inherited more than once"},
		{"where T : class, class", 17, "constraint 'class' cannot be used more than once"},
		{"where T : IFoo, IFoo", 16, "constraint 'IFoo' cannot be used more than once"},
		{"where T : class where T : struct", 22, "constraints for 'T' cannot be declared more than once"},
		{"where T : int", 10, "built-in type 'int' cannot be used as a constraint"},
		{"where class : struct", 6, "'class' is not a valid type parameter name"},
		{"IFoo where 1T : class", 11, "type parameter name expected"},
		{"where T", 6, "expected ',' or 'where' after inherited type"},
		{"IFoo IBar", 5, "expected ',' or 'where' after inherited type"},
		{"IFoo, , IBar", 6, "inherited type expected"},
		{", IFoo", 0, "inherited type expected"},
		{"where T : , class", 10, "constraint expected"},
		{"where T : class IFoo", 16, "expected ',' or 'where' after constraint"},
		{"IFoo where T U : class", 13, "expected ':' after type parameter 'T'"},
		{"IFoo where T<U> : class", 12, "unexpected character '<' in type parameter name"},
		{"IFoo]", 4, "unexpected closing bracket"},
		{"IFoo, System.int", 13, "cannot be qualified"},
		{"class", 0, "reserved keyword"},
		{"IFoo<int", 7, diag.MsgIncomplete},
		{"IFoo,", 4, diag.MsgIncomplete},
		{"IFoo where", 9, diag.MsgIncomplete},
		{"IFoo where T", 11, diag.MsgIncomplete},
		{"IFoo where T :", 13, diag.MsgIncomplete},
		{"IFoo where T : class,", 20, diag.MsgIncomplete},
		{"IFoo where T : new(", 18, diag.MsgIncomplete},
		{"IFoo<a{b}>", 6, "unexpected character '{' in generic arguments"},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			l, err := p.Parse(tt.text)
			assert.Nil(t, l)
			require.Error(t, err)
			var de *diag.Error
			require.True(t, errors.As(err, &de))
			assert.Contains(t, de.Message, tt.contains)
			assert.Equal(t, tt.index, de.Index)
		})
	}
}

func TestFormat_Idempotent(t *testing.T) {
	p := newTestParser()
	for _, text := range []string{
		"IFoo, IBar where T : class, new()",
		"  Base< T >  where  T : struct  where U:IEquatable< U >,new( ) ",
		"where where T : class",
		"global::A.B<int[], C?>",
	} {
		t.Run(text, func(t *testing.T) {
			first, err := p.Parse(text)
			require.NoError(t, err)
			second, err := p.Parse(first.Format())
			require.NoError(t, err)
			assert.True(t, first.Equal(second), "%q != %q", first.Format(), second.Format())
			assert.Equal(t, first.Format(), second.Format())
		})
	}
}

func TestInheritanceList_Equal(t *testing.T) {
	p := newTestParser()
	a, err := p.Parse("IFoo where T : class")
	require.NoError(t, err)
	b, err := p.Parse("IFoo where T : struct")
	require.NoError(t, err)
	c, err := p.Parse("IFoo where U : class")
	require.NoError(t, err)
	d, err := p.Parse("IBar where T : class")
	require.NoError(t, err)

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"IFoo, IBar where T : class, new()",
		"where where T : class",
		"List<int>, Dictionary<string, int[]>",
		"where T : IComparable<T> where U : struct",
	} {
		f.Add(seed)
	}
	p := newTestParser()
	f.Fuzz(func(t *testing.T, text string) {
		if !utf8.ValidString(text) {
			return
		}
		l, err := p.Parse(text)
		if err != nil {
			var de *diag.Error
			if !errors.As(err, &de) {
				t.Fatalf("non-diagnostic error %T", err)
			}
			if n := utf8.RuneCountInString(text); de.Index < 0 || (n > 0 && de.Index >= n) {
				t.Fatalf("index %d outside input of length %d", de.Index, n)
			}
			return
		}
		again, err := p.Parse(l.Format())
		if err != nil {
			t.Fatalf("formatted %q does not parse: %v", l.Format(), err)
		}
		if !l.Equal(again) {
			t.Fatalf("format round trip changed %q into %q", l.Format(), again.Format())
		}
	})
}
