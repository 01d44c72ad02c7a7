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
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrorLocation(t *testing.T) {
	files := memFS{"bad": lines("ok", "#foo")}
	tests := []struct {
		name   string
		path   string
		input  string
		kind   ErrorKind
		offset int
		line   int
		text   string
	}{
		{
			"stray endif",
			"main.glsl",
			lines("x", "#endif"),
			ErrConditionNotOpened,
			2,
			2,
			"condition not opened: #endif at offset 2 on main.glsl",
		},
		{
			"inside include",
			"main.glsl",
			lines("a", "b", `#include "bad"`),
			ErrDirectiveNotFound,
			3,
			2,
			"directive not found: #foo at offset 3 on bad",
		},
		{
			"after removed directives",
			"main.glsl",
			lines("#define F(a, b) a", "#ifdef X", "x", "#endif", "", "F(1)"),
			ErrMacroExpansionArgumentsError,
			1,
			6,
			"macro expansion arguments error: F expects 2 arguments, got 1 at offset 1 on main.glsl",
		},
		{
			"no path",
			"",
			lines("#ifdef A"),
			ErrConditionNotClosed,
			0,
			1,
			"condition not closed: #ifdef A at offset 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t, Options{OnInclude: files.include(IncludePreprocess)})
			_, err := e.Process(tt.path, tt.input)
			var pe *Error
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not an *Error", err)
			}
			if pe.Kind != tt.kind || pe.Offset != tt.offset {
				t.Errorf("got %v at %d, want %v at %d", pe.Kind, pe.Offset, tt.kind, tt.offset)
			}
			if got := pe.Line(); got != tt.line {
				t.Errorf("Line() = %d, want %d", got, tt.line)
			}
			if diff := cmp.Diff(tt.text, pe.Error()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("cause")
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: ErrMacroDefinitionEmpty}, "macro definition empty at offset 0"},
		{&Error{Kind: ErrIncludeError, Detail: "a", Err: cause, Offset: 4, Path: "p"}, "include error: a: cause at offset 4 on p"},
		{&Error{Kind: ErrPragmaNotFound, Detail: "x", Err: fmt.Errorf("pragma x: %w", ErrPragmaNotFound)}, "pragma x: pragma not found at offset 0"},
		{&Error{Kind: ErrorKind(99)}, "preprocessor error 99 at offset 0"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.err.Error()); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestDefineErrorOutsideProcess(t *testing.T) {
	e := newEngine(t, Options{})
	err := e.Define("")
	if diff := cmp.Diff("macro definition empty at offset 0", fmt.Sprint(err)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLineAt(t *testing.T) {
	tests := []struct {
		text   string
		offset int
		want   int
	}{
		{"", 0, 1},
		{"a\nb", 0, 1},
		{"a\nb", 1, 1},
		{"a\nb", 2, 2},
		{"a\n", 2, 2},
		{"a\nb\n", 4, 3},
		{"a\n\n\nb", 4, 4},
		{"a", 10, 1},
	}
	for _, tt := range tests {
		if got := lineAt("", tt.text, tt.offset); got != tt.want {
			t.Errorf("lineAt(%q, %d) = %d, want %d", tt.text, tt.offset, got, tt.want)
		}
	}
}
