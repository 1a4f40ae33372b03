package signature

import (
	"errors"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
	"bindsig/internal/engine/names"
	"bindsig/internal/engine/oracle"
)

func newTestParser() *Parser {
	return NewParser(names.Identifiers{}, names.TypeNames{}, oracle.NewBuiltin())
}

type oracleCall struct {
	probe ports.Probe
	expr  string
}

// scriptedOracle answers from a table and records every question.
type scriptedOracle struct {
	answers map[string]*diag.Error
	calls   []oracleCall
}

func (o *scriptedOracle) Check(probe ports.Probe, expr string) *diag.Error {
	o.calls = append(o.calls, oracleCall{probe, expr})
	return o.answers[expr]
}

func parseErr(t *testing.T, err error) *diag.Error {
	t.Helper()
	require.Error(t, err)
	var de *diag.Error
	require.True(t, errors.As(err, &de), "expected *diag.Error, got %T", err)
	return de
}

func TestParse_Success(t *testing.T) {
	tests := []struct {
		text      string
		name      string
		generics  []string
		params    []Parameter
		canonical string
	}{
		{"foo()", "foo", nil, nil, "foo()"},
		{"  foo ( )  ", "foo", nil, nil, "foo()"},
		{"foo(ref x)", "foo", nil, []Parameter{{"x", Ref}}, "foo(ref x)"},
		{"foo(out  result)", "foo", nil, []Parameter{{"result", Out}}, "foo(out result)"},
		{"foo(a, b)", "foo", nil, []Parameter{{"a", None}, {"b", None}}, "foo(a, b)"},
		{"foo(new Widget())", "foo", nil, []Parameter{{"Widget()", New}}, "foo(new Widget())"},
		{"Get<int>()", "Get", []string{"int"}, nil, "Get<int>()"},
		{"Get < int , List<string> > (x)", "Get", []string{"int", "List<string>"}, []Parameter{{"x", None}}, "Get<int, List<string>>(x)"},
		{"Map<Dictionary<string, int[,]>>(d)", "Map", []string{"Dictionary<string, int[,]>"}, []Parameter{{"d", None}}, "Map<Dictionary<string, int[,]>>(d)"},
		{"call(f(a, b), c)", "call", nil, []Parameter{{"f(a, b)", None}, {"c", None}}, "call(f(a, b), c)"},
		{"call(new[] { 1, 2 }, x[0, 1])", "call", nil, []Parameter{{"new[] { 1, 2 }", None}, {"x[0, 1]", None}}, "call(new[] { 1, 2 }, x[0, 1])"},
		{"log(\"a, b)\", 'c')", "log", nil, []Parameter{{"\"a, b)\"", None}, {"'c'", None}}, "log(\"a, b)\", 'c')"},
		{"log($\"{a}, {b})\")", "log", nil, []Parameter{{"$\"{a}, {b})\"", None}}, "log($\"{a}, {b})\")"},
		{"run(x => x + 1, (a, b) => a)", "run", nil, []Parameter{{"x => x + 1", None}, {"(a, b) => a", None}}, "run(x => x + 1, (a, b) => a)"},
		{"make(new Dictionary<string, int>())", "make", nil, []Parameter{{"Dictionary<string, int>()", New}}, "make(new Dictionary<string, int>())"},
		{"cmp(a < b, c > d)", "cmp", nil, []Parameter{{"a < b", None}, {"c > d", None}}, "cmp(a < b, c > d)"},
		{"f(name: 1)", "f", nil, []Parameter{{"name: 1", None}}, "f(name: 1)"},
		{"f(reference)", "f", nil, []Parameter{{"reference", None}}, "f(reference)"},
		{"f(new())", "f", nil, []Parameter{{"new()", None}}, "f(new())"},
		{"@class(x)", "@class", nil, []Parameter{{"x", None}}, "@class(x)"},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			sig, err := p.Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.name, sig.MethodName)
			var generics []string
			for _, g := range sig.GenericArgs {
				generics = append(generics, g.String())
			}
			assert.Equal(t, tt.generics, generics)
			assert.Equal(t, tt.params, sig.Parameters)
			assert.Equal(t, tt.canonical, sig.String())
		})
	}
}

func TestParse_Failure(t *testing.T) {
	tests := []struct {
		text     string
		index    int
		contains string
	}{
		{"", 0, diag.MsgIncomplete},
		{"foo", 2, diag.MsgIncomplete},
		{"foo(", 3, diag.MsgIncomplete},
		{"foo(a, (b", 8, diag.MsgIncomplete},
		{"foo(\"abc", 7, diag.MsgIncomplete},
		{"foo<int", 6, diag.MsgIncomplete},
		{"foo<int>", 7, diag.MsgIncomplete},
		{"foo(ref 1)", 8, "'ref' can only be used with a direct variable reference"},
		{"foo(out a.b)", 8, "'out' can only be used with a direct variable reference"},
		{"foo(ref out x)", 8, "'ref' can only be used"},
		{"foo(a,b))", 8, "unexpected closing parenthesis"},
		{"foo(a]", 5, "unexpected closing bracket"},
		{"foo(a) x", 7, "unexpected character 'x' after signature"},
		{"foo(,)", 4, "parameter expected"},
		{"foo(a,)", 6, "parameter expected"},
		{"foo(ref )", 8, "parameter expected after 'ref'"},
		{"foo(new 42)", 8, "numeric literal"},
		{"foo(new \"s\")", 8, "string or character literal"},
		{"foo(new Widget)", 8, "bare name 'Widget'"},
		{"foo(new Widget()", 15, diag.MsgIncomplete},
		{"foo(a +)", 6, "expression expected"},
		{"foo(a b)", 6, "unexpected 'b'"},
		{"class()", 0, "'class' is not a valid method name"},
		{"(x)", 0, "method name expected"},
		{"foo x()", 4, "expected '('"},
		{"foo<>()", 4, "type argument expected"},
		{"foo<int,>()", 8, "type argument expected"},
		{"foo<List<>>()", 9, "expected type argument"},
		{"foo<T U>()", 6, "unexpected character 'U'"},
		{"foo<int> x", 9, "expected '(' after generic arguments"},
		{"fo-o()", 2, "unexpected character '-' in method name"},
		{"foo<a{b}>()", 5, "unexpected character '{' in generic arguments"},
	}
	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			sig, err := p.Parse(tt.text)
			assert.Nil(t, sig)
			de := parseErr(t, err)
			assert.Contains(t, de.Message, tt.contains)
			assert.Equal(t, tt.index, de.Index)
		})
	}
}

func TestParse_OracleProbes(t *testing.T) {
	o := &scriptedOracle{}
	p := NewParser(names.Identifiers{}, names.TypeNames{}, o)

	_, err := p.Parse("f( a + 1 , new Widget(2) { X = 3 }, ref y)")
	require.NoError(t, err)
	assert.Equal(t, []oracleCall{
		{ports.ProbeArgument, "a + 1"},
		{ports.ProbeNew, "Widget(2) { X = 3 }"},
	}, o.calls)
}

func TestParse_OracleErrorRebased(t *testing.T) {
	tests := []struct {
		name  string
		local int
		want  int
	}{
		{"inside", 6, 14},
		{"at start", 0, 8},
		// end of fragment is reported at its last rune
		{"at end", 8, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &scriptedOracle{answers: map[string]*diag.Error{
				"Widget()": diag.Errorf(tt.local, "rejected"),
			}}
			p := NewParser(names.Identifiers{}, names.TypeNames{}, o)
			_, err := p.Parse("foo(new Widget())")
			de := parseErr(t, err)
			assert.Equal(t, "rejected", de.Message)
			assert.Equal(t, tt.want, de.Index)
		})
	}
}

func TestParse_OracleContractViolationPanics(t *testing.T) {
	o := &scriptedOracle{answers: map[string]*diag.Error{"x": diag.Errorf(5, "bogus")}}
	p := NewParser(names.Identifiers{}, names.TypeNames{}, o)
	assert.Panics(t, func() { _, _ = p.Parse("f(x)") })
}

func TestParse_TypeArgumentErrorRebased(t *testing.T) {
	p := newTestParser()
	_, err := p.Parse("foo<int, class>()")
	de := parseErr(t, err)
	assert.Contains(t, de.Message, "reserved keyword")
	assert.Equal(t, 9, de.Index)
}

func TestParse_RuneOffsets(t *testing.T) {
	p := newTestParser()
	_, err := p.Parse("énumère(ref 1)")
	de := parseErr(t, err)
	assert.Equal(t, 12, de.Index)
}

func TestParse_CanonicalRoundTrip(t *testing.T) {
	p := newTestParser()
	for _, text := range []string{
		"foo ( ref  x ,new Widget ( ) )",
		"Get< int,string >(a,b)",
		"run(x=>x, out y)",
	} {
		t.Run(text, func(t *testing.T) {
			first, err := p.Parse(text)
			require.NoError(t, err)
			second, err := p.Parse(first.String())
			require.NoError(t, err)
			assert.Equal(t, first.String(), second.String())
			assert.Equal(t, first.Parameters, second.Parameters)
		})
	}
}

var validSignatures = []string{
	"foo()",
	"foo(ref x)",
	"foo(new Widget())",
	"Get<int, List<string>>(a, (b), c[0])",
	"call(f(a, b), new[] { 1, 2 }, \"s)\")",
	"run(x => { return x; }, out y)",
}

func TestParse_ProperPrefixesAreIncomplete(t *testing.T) {
	p := newTestParser()
	for _, text := range validSignatures {
		_, err := p.Parse(text)
		require.NoError(t, err, text)

		runes := []rune(text)
		for n := 1; n < len(runes); n++ {
			prefix := string(runes[:n])
			if strings.TrimSpace(prefix) == "" {
				continue
			}
			_, err := p.Parse(prefix)
			de := parseErr(t, err)
			assert.Equal(t, diag.MsgIncomplete, de.Message, "prefix %q", prefix)
			assert.Equal(t, n-1, de.Index, "prefix %q", prefix)
		}
	}
}

func FuzzParse_Truncation(f *testing.F) {
	for _, s := range validSignatures {
		f.Add(s, uint(3))
	}
	p := newTestParser()
	f.Fuzz(func(t *testing.T, text string, cut uint) {
		if !utf8.ValidString(text) {
			return
		}
		if _, err := p.Parse(text); err != nil {
			return
		}
		// everything before the closing parenthesis is a proper prefix
		runes := []rune(strings.TrimRightFunc(text, unicode.IsSpace))
		n := int(cut % uint(len(runes)))
		if n == 0 {
			return
		}
		if _, err := p.Parse(string(runes[:n])); err == nil {
			t.Fatalf("proper prefix %q of %q parsed successfully", string(runes[:n]), text)
		}
	})
}

func FuzzParse_NoPanic(f *testing.F) {
	for _, s := range validSignatures {
		f.Add(s)
	}
	f.Add("f(a,b))")
	f.Add("g<<>>(")
	p := newTestParser()
	f.Fuzz(func(t *testing.T, text string) {
		if !utf8.ValidString(text) {
			return
		}
		_, err := p.Parse(text)
		if err == nil {
			return
		}
		var de *diag.Error
		if !errors.As(err, &de) {
			t.Fatalf("non-diagnostic error %T", err)
		}
		if n := utf8.RuneCountInString(text); de.Index < 0 || (n > 0 && de.Index >= n) {
			t.Fatalf("index %d outside input of length %d", de.Index, n)
		}
	})
}
