/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package preprocessor

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var pinned = time.Date(2024, time.March, 7, 9, 5, 30, 0, time.UTC)

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return pinned }
	}
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func lines(a ...string) string {
	return strings.Join(a, "\n") + "\n"
}

type expandTest struct {
	name    string
	defines []string
	input   string
	output  string
}

var expandTests = []expandTest{
	{
		"object",
		[]string{"A 1234"},
		"x = A;",
		"x = 1234;",
	},
	{
		"whole identifiers only",
		[]string{"A 1"},
		"AB A _A A1 (A)",
		"AB 1 _A A1 (1)",
	},
	{
		"comments and literals untouched",
		[]string{"A 1"},
		lines(`"A" /* A */ // A`, "A"),
		lines(`"A" /* A */ // A`, "1"),
	},
	{
		"apostrophe is not a literal",
		[]string{"F(x) x", "A 1"},
		"F(don't) 'A'",
		"don't '1'",
	},
	{
		"function",
		[]string{"MAX(a, b) a > b ? a : b"},
		"MAX(1, 2)",
		"1 > 2 ? 1 : 2",
	},
	{
		"function name without call",
		[]string{"MAX(a, b) a"},
		"MAX + MAX (1, 2)",
		"MAX + MAX (1, 2)",
	},
	{
		"nested arguments",
		[]string{"MAX(a, b) a > b ? a : b"},
		`MAX(f(1, 2), "x,y")`,
		`f(1, 2) > "x,y" ? f(1, 2) : "x,y"`,
	},
	{
		"arguments substituted once",
		[]string{"SWAP(a, b) b a"},
		"SWAP(b, a)",
		"a b",
	},
	{
		"stringify",
		[]string{"STR(x) #x"},
		`STR(a "b")`,
		`"a \"b\""`,
	},
	{
		"stringify identifier",
		[]string{"S(x) #x"},
		"S(hello)",
		`"hello"`,
	},
	{
		"no parameters",
		[]string{"F() 42"},
		"F() + F( )",
		"42 + 42",
	},
	{
		"no rescan of own output",
		[]string{"X X+1"},
		"X",
		"X+1",
	},
	{
		"definition order",
		[]string{"A B", "B 2"},
		"A",
		"2",
	},
	{
		"later definitions are not revisited",
		[]string{"B 2", "A B"},
		"A",
		"B",
	},
	{
		"numbers are not names",
		[]string{"e5 x"},
		"1e5 e5",
		"1e5 x",
	},
}

func TestExpand(t *testing.T) {
	for _, tt := range expandTests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{})
			for _, d := range tt.defines {
				if err := e.Define(d); err != nil {
					t.Fatalf("Define(%q): %v", d, err)
				}
			}
			got, err := e.Expand(tt.input)
			if err != nil {
				t.Fatalf("Expand: %v", err)
			}
			if diff := cmp.Diff(tt.output, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name  string
		input string
		want  ErrorKind
	}{
		{"too few arguments", "MAX(1)", ErrMacroExpansionArgumentsError},
		{"too many arguments", "MAX(1, 2, 3)", ErrMacroExpansionArgumentsError},
		{"unclosed call", "MAX(1, 2", ErrMacroExpansionParenthesisNotClosed},
		{"stray paren in comment", "MAX(1 /* ) */, 2)", ErrMacroExpansionParenthesisDoubleClosed},
		{"unterminated argument", "MAX(\"a\n, b)", ErrMacroExpansionError},
		{"generator failure", "BOOM", ErrMacroExpansionExecutionError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{})
			if err := e.Define("MAX(a, b) a > b ? a : b"); err != nil {
				t.Fatal(err)
			}
			err := e.DefineDynamic("BOOM", func(*Engine, []string) (string, error) {
				return "", boom
			})
			if err != nil {
				t.Fatal(err)
			}
			_, err = e.Expand(tt.input)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expand(%q) error = %v, want %v", tt.input, err, tt.want)
			}
			if tt.want == ErrMacroExpansionExecutionError && !errors.Is(err, boom) {
				t.Errorf("generator error not wrapped: %v", err)
			}
		})
	}
}

func TestDefineErrors(t *testing.T) {
	tests := []struct {
		expr string
		want ErrorKind
	}{
		{"", ErrMacroDefinitionEmpty},
		{"  \t", ErrMacroDefinitionEmpty},
		{"1A 2", ErrMacroNameEmpty},
		{"(a) a", ErrMacroNameEmpty},
		{"F(a, b", ErrMacroParenthesisNotClosed},
		{"F(a)) a", ErrMacroParenthesisDoubleClosed},
		{"F(a, 1) a", ErrMacroDefinitionError},
		{"F(a, a) a", ErrMacroDefinitionError},
		{"F(a,) a", ErrMacroDefinitionError},
	}
	for _, tt := range tests {
		e := newEngine(t, Options{})
		err := e.Define(tt.expr)
		if !errors.Is(err, tt.want) {
			t.Errorf("Define(%q) error = %v, want %v", tt.expr, err, tt.want)
		}
	}
}

func TestDefinition(t *testing.T) {
	e := newEngine(t, Options{})
	for _, d := range []string{"F (a) a", "G(x, y) x + y", "H()", "EMPTY"} {
		if err := e.Define(d); err != nil {
			t.Fatalf("Define(%q): %v", d, err)
		}
	}
	tests := []struct {
		name string
		want Definition
		fn   bool
	}{
		{"F", Definition{Name: "F", Body: "(a) a"}, false},
		{"G", Definition{Name: "G", Params: []string{"x", "y"}, Body: "x + y"}, true},
		{"H", Definition{Name: "H", Params: []string{}}, true},
		{"EMPTY", Definition{Name: "EMPTY"}, false},
	}
	for _, tt := range tests {
		got, ok := e.Definition(tt.name)
		if !ok {
			t.Errorf("%s not defined", tt.name)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.name, diff)
		}
		if got.IsFunction() != tt.fn {
			t.Errorf("%s IsFunction = %v, want %v", tt.name, got.IsFunction(), tt.fn)
		}
	}
}

func TestRedefine(t *testing.T) {
	e := newEngine(t, Options{})
	for _, d := range []string{"A 1", "A(x) x"} {
		if err := e.Define(d); err != nil {
			t.Fatal(err)
		}
	}
	got, err := e.Expand("A A(2)")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("A 2", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	e.Undefine("A")
	e.Undefine("A")
	if e.IsDefined("A") {
		t.Errorf("A still defined after Undefine")
	}
}

func TestClearDefinitions(t *testing.T) {
	e := newEngine(t, Options{})
	if err := e.Define("A 1"); err != nil {
		t.Fatal(err)
	}
	e.ClearDefinitions()
	if e.IsDefined("A") {
		t.Errorf("A survived ClearDefinitions")
	}
	for _, name := range []string{"__FILE__", "__LINE__", "__DATE__", "__TIME__"} {
		if !e.IsDefined(name) {
			t.Errorf("built-in %s missing after ClearDefinitions", name)
		}
	}
}

func TestDefineDynamic(t *testing.T) {
	e := newEngine(t, Options{})
	var calls [][]string
	err := e.DefineDynamic("TWICE(x)", func(_ *Engine, args []string) (string, error) {
		calls = append(calls, args)
		return "x x", nil
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Expand("TWICE(ab); TWICE(1)")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("ab ab; 1 1", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]string{{"ab"}, {"1"}}, calls); diff != "" {
		t.Errorf("generator arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDefine(t *testing.T) {
	tests := map[string]string{
		"A":        "A 1",
		"A=2":      "A 2",
		"A=":       "A",
		"F(x)=x*2": "F(x) x*2",
		"S=a=b":    "S a=b",
		" PAD =1 ": "PAD 1 ",
	}
	for in, want := range tests {
		if got := ParseDefine(in); got != want {
			t.Errorf("ParseDefine(%q) = %q, want %q", in, got, want)
		}
	}
}
