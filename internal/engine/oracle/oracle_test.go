package oracle

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindsig/internal/core/ports"
	"bindsig/internal/engine/diag"
)

func TestBuiltin_ValidArguments(t *testing.T) {
	valid := []string{
		"1",
		"x + y * 2",
		"a.b(c, d)",
		"foo(bar: 1)",
		"x => x * 2",
		"(a, b) => a + b",
		"(int a, string b) => a",
		"async () => await Task.Delay(1)",
		"x => { return x; }",
		"cond ? a : b",
		"x ?? throw new Exception()",
		"new List<int> { 1, 2 }",
		"new Foo { Bar = 1, Baz = { 2 } }",
		"new Dictionary<string, int> { [\"a\"] = 1 }",
		"new[] { 1, 2 }",
		"new int[3]",
		"new int[,] { { 1 } }",
		"new { A = 1, B }",
		"new()",
		"(int)x",
		"(Foo)bar",
		"(a) + b",
		"(1, name: 2)",
		"typeof(Dictionary<,>)",
		"typeof(List<int>)",
		"default(int)",
		"default",
		"out var result",
		"out int result",
		"ref x",
		"in value",
		"a is null",
		"a is not null",
		"a is Foo f",
		"x as string",
		"list?[0]",
		"a?.b?.c()",
		"$\"hello {name}\"",
		"@\"c:\\path\"",
		"'c'",
		"x >> 2",
		"x >>= 2",
		"a < b",
		"Foo<int>.Bar",
		"Method<List<int>>()",
		"[1, 2, ..rest]",
		"[]",
		"int.MaxValue",
		"x = 5",
		"i++",
		"!flag",
		"-x",
		"nameof(x)",
		"delegate(int a) { return a; }",
		"checked(a + b)",
		"1..5",
		"^1",
		"0x1F",
		"1.5e3f",
		"10UL",
		"this.x",
		"base.M()",
		"a && b || !c",
		"obj!.Value",
		"x /* comment */ + 1",
	}
	b := NewBuiltin()
	for _, expr := range valid {
		t.Run(expr, func(t *testing.T) {
			assert.Nil(t, b.Check(ports.ProbeArgument, expr))
		})
	}
}

func TestBuiltin_InvalidArguments(t *testing.T) {
	tests := []struct {
		expr     string
		index    int
		contains string
	}{
		{"", 0, "expression expected"},
		{"a +", 3, "expression expected"},
		{"foo(", 4, "expression expected"},
		{"a b", 2, "unexpected 'b'"},
		{"(a", 2, "expected ')'"},
		{"new", 3, "type expected"},
		{"\"abc", 0, "unterminated literal"},
		{"x ? y", 5, "expected ':'"},
		{"a.)", 2, "identifier expected"},
		{"#", 0, "unexpected character '#'"},
		{"''", 0, "empty character literal"},
		{"12abc", 0, "invalid numeric literal"},
		{"x => { y", 5, "unclosed block"},
		{"new Foo", 7, "after type in object creation"},
	}
	b := NewBuiltin()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := b.Check(ports.ProbeArgument, tt.expr)
			require.NotNil(t, err)
			assert.Contains(t, err.Message, tt.contains)
			assert.Equal(t, tt.index, err.Index)
		})
	}
}

func TestBuiltin_ProbeNew(t *testing.T) {
	tests := []struct {
		expr  string
		ok    bool
		index int
	}{
		{"Foo(1)", true, 0},
		{"List<int>()", true, 0},
		{"int[5]", true, 0},
		{"Foo(1) { X = 2 }", true, 0},
		{"Foo(1).Bar()", true, 0},
		{"Foo", false, 3},
		{"Foo(", false, 4},
		{"1", false, 0},
		{"Foo(1) Bar", false, 7},
	}
	b := NewBuiltin()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := b.Check(ports.ProbeNew, tt.expr)
			if tt.ok {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.index, err.Index)
		})
	}
}

func TestBuiltin_DeepNesting(t *testing.T) {
	expr := ""
	for i := 0; i < 500; i++ {
		expr += "("
	}
	err := NewBuiltin().Check(ports.ProbeArgument, expr+"x")
	require.NotNil(t, err)
	assert.LessOrEqual(t, err.Index, utf8.RuneCountInString(expr)+1)
}

func TestTreeSitter_Check(t *testing.T) {
	o := NewTreeSitter()

	assert.Nil(t, o.Check(ports.ProbeArgument, "foo(1, 2)"))
	assert.Nil(t, o.Check(ports.ProbeArgument, "a + b * c"))
	assert.Nil(t, o.Check(ports.ProbeNew, "Foo(1)"))

	for _, tc := range []struct {
		probe ports.Probe
		expr  string
	}{
		{ports.ProbeArgument, "a +"},
		{ports.ProbeArgument, "foo(1"},
		{ports.ProbeNew, "Foo("},
	} {
		err := o.Check(tc.probe, tc.expr)
		require.NotNil(t, err, tc.expr)
		assert.GreaterOrEqual(t, err.Index, 0)
		assert.LessOrEqual(t, err.Index, utf8.RuneCountInString(tc.expr))
	}
	assert.Zero(t, o.pool.Leased())
}

type countingOracle struct {
	calls int
	err   *diag.Error
}

func (c *countingOracle) Check(ports.Probe, string) *diag.Error {
	c.calls++
	return c.err
}

func TestCached(t *testing.T) {
	inner := &countingOracle{err: diag.Errorf(2, "boom")}
	c := NewCached(inner, 8)

	first := c.Check(ports.ProbeArgument, "a b")
	second := c.Check(ports.ProbeArgument, "a b")
	require.NotNil(t, second)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	// a different probe is a different question
	c.Check(ports.ProbeNew, "a b")
	assert.Equal(t, 2, inner.calls)

	// callers may not corrupt the cached answer
	second.Index = 99
	third := c.Check(ports.ProbeArgument, "a b")
	assert.Equal(t, 2, third.Index)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestNew(t *testing.T) {
	o, err := New(Options{Backend: "builtin", Serialize: true, CacheSize: 16, Instrument: true})
	require.NoError(t, err)
	assert.IsType(t, &Instrumented{}, o)
	assert.Nil(t, o.Check(ports.ProbeArgument, "x"))

	o, err = New(Options{})
	require.NoError(t, err)
	assert.IsType(t, &Builtin{}, o)

	_, err = New(Options{Backend: "roslyn"})
	assert.Error(t, err)
}

func FuzzBuiltin(f *testing.F) {
	for _, seed := range []string{"a(b, c)", "new Foo { A = 1 }", "x => x", "$\"{a}\"", "(int)x", "a?[1]"} {
		f.Add(seed)
	}
	b := NewBuiltin()
	f.Fuzz(func(t *testing.T, expr string) {
		if !utf8.ValidString(expr) {
			return
		}
		n := utf8.RuneCountInString(expr)
		for _, probe := range []ports.Probe{ports.ProbeArgument, ports.ProbeNew} {
			if err := b.Check(probe, expr); err != nil && (err.Index < 0 || err.Index > n) {
				t.Fatalf("%s probe of %q: index %d outside [0, %d]", probe, expr, err.Index, n)
			}
		}
	})
}
