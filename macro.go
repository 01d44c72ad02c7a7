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
	"slices"
	"strings"

	"github.com/romanpunia/vitex-sub022/internal/scan"
)

// Definition is a macro. A nil Params makes it object-like; a non-nil,
// possibly empty Params makes it function-like. Body is ignored when
// Generator is set.
type Definition struct {
	Name      string
	Params    []string
	Body      string
	Generator Generator
}

// IsFunction reports whether the macro must be invoked as NAME(args).
func (d Definition) IsFunction() bool {
	return d.Params != nil
}

// macroTable keeps definitions in definition order, which is the order
// expansion visits them in.
type macroTable struct {
	defs  map[string]*Definition
	order []string
}

func newMacroTable() macroTable {
	return macroTable{defs: map[string]*Definition{}}
}

func (t *macroTable) set(d *Definition) {
	if _, ok := t.defs[d.Name]; ok {
		t.remove(d.Name)
	}
	t.defs[d.Name] = d
	t.order = append(t.order, d.Name)
}

func (t *macroTable) remove(name string) {
	if _, ok := t.defs[name]; !ok {
		return
	}
	delete(t.defs, name)
	t.order = slices.DeleteFunc(t.order, func(n string) bool { return n == name })
}

// Define adds a macro from a "#define" expression such as "MAX(a, b) a > b ? a : b".
func (e *Engine) Define(expr string) error {
	return e.define(expr, nil, 0)
}

// DefineDynamic adds a macro whose expansion is computed by gen. For
// function-like macros the parameters of expr are substituted into the
// generator output.
func (e *Engine) DefineDynamic(expr string, gen Generator) error {
	return e.define(expr, gen, 0)
}

// Undefine removes a macro. Removing an unknown name is not an error.
func (e *Engine) Undefine(name string) {
	e.macros.remove(strings.TrimSpace(name))
}

// IsDefined reports whether name is a macro.
func (e *Engine) IsDefined(name string) bool {
	_, ok := e.macros.defs[name]
	return ok
}

// Definition returns a copy of the named macro.
func (e *Engine) Definition(name string) (Definition, bool) {
	d, ok := e.macros.defs[name]
	if !ok {
		return Definition{}, false
	}
	return *d, true
}

// ClearDefinitions removes every user macro; built-in macros stay.
func (e *Engine) ClearDefinitions() {
	e.macros = newMacroTable()
	e.defineBuiltins()
}

func (e *Engine) define(expr string, gen Generator, offset int) error {
	d, err := e.parseDefinition(expr, offset)
	if err != nil {
		return err
	}
	d.Generator = gen
	e.macros.set(d)
	return nil
}

func (e *Engine) parseDefinition(expr string, offset int) (*Definition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, e.errorf(ErrMacroDefinitionEmpty, offset, "")
	}
	name, rest, ok := scan.IdentPrefix(expr)
	if !ok {
		return nil, e.errorf(ErrMacroNameEmpty, offset, "%s", expr)
	}
	d := &Definition{Name: name}

	// function-like only if '(' immediately follows the name
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return nil, e.errorf(ErrMacroParenthesisNotClosed, offset, "%s", name)
		}
		list := rest[1:end]
		rest = rest[end+1:]
		if strings.HasPrefix(rest, ")") {
			return nil, e.errorf(ErrMacroParenthesisDoubleClosed, offset, "%s", name)
		}
		params, err := parseParams(list)
		if err != nil {
			return nil, e.errorf(ErrMacroDefinitionError, offset, "%s: %v", name, err)
		}
		d.Params = params
	}
	d.Body = strings.TrimSpace(rest)
	return d, nil
}

func parseParams(list string) ([]string, error) {
	params := []string{}
	if strings.TrimSpace(list) == "" {
		return params, nil
	}
	for _, raw := range strings.Split(list, ",") {
		p := strings.TrimSpace(raw)
		if !scan.IsIdent(p) {
			return nil, errors.New("bad parameter " + `"` + p + `"`)
		}
		if slices.Contains(params, p) {
			return nil, errors.New("duplicate parameter " + `"` + p + `"`)
		}
		params = append(params, p)
	}
	return params, nil
}

// Expand runs one expansion pass over text with the current macros.
func (e *Engine) Expand(text string) (string, error) {
	out, _, err := e.expand(text, nil)
	return out, err
}

// expand visits macros in definition order. Text produced by a macro is
// not rescanned for that same macro. lines maps text to source lines and
// is returned updated for the expanded text.
func (e *Engine) expand(text string, lines lineMap) (string, lineMap, error) {
	order := slices.Clone(e.macros.order)
	for _, name := range order {
		d, ok := e.macros.defs[name]
		if !ok || !strings.Contains(text, name) {
			continue
		}
		edits, err := e.expandDefinition(text, lines, d)
		if err != nil {
			return "", nil, err
		}
		if len(edits) == 0 {
			continue
		}
		lines = lines.rewrite(text, edits)
		text = applyEdits(text, edits)
	}
	return text, lines, nil
}

func (e *Engine) expandDefinition(text string, lines lineMap, d *Definition) ([]edit, error) {
	var edits []edit
	for i := 0; i < len(text); {
		if n := scan.Skip(text, i, e.syn); n > i {
			i = n
			continue
		}
		ch := text[i]
		if !scan.IsIdentPart(ch) {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && scan.IsIdentPart(text[j]) {
			j++
		}
		// numbers such as 1e5 or 0xFF are not names
		if !scan.IsIdentStart(ch) || text[i:j] != d.Name {
			i = j
			continue
		}

		if !d.IsFunction() {
			repl, err := e.generate(d, text, lines, i, nil)
			if err != nil {
				return nil, err
			}
			edits = append(edits, edit{i, j, repl})
			i = j
			continue
		}

		if j >= len(text) || text[j] != '(' {
			i = j
			continue
		}
		e.file.at(text, lines, i)
		end := scan.MatchParen(text, j, e.syn)
		if end < 0 {
			return nil, e.errorf(ErrMacroExpansionParenthesisNotClosed, i, "%s", d.Name)
		}
		args, err := scan.SplitArguments(text[j+1:end], e.syn)
		if err != nil {
			kind := ErrMacroExpansionError
			if errors.Is(err, scan.ErrUnbalanced) {
				kind = ErrMacroExpansionParenthesisDoubleClosed
			}
			return nil, e.errorf(kind, i, "%s: %v", d.Name, err)
		}
		if len(args) != len(d.Params) {
			return nil, e.errorf(ErrMacroExpansionArgumentsError, i, "%s expects %d arguments, got %d", d.Name, len(d.Params), len(args))
		}
		body, err := e.generate(d, text, lines, i, args)
		if err != nil {
			return nil, err
		}
		edits = append(edits, edit{i, end + 1, e.substitute(body, d.Params, args)})
		i = end + 1
	}
	return edits, nil
}

func (e *Engine) generate(d *Definition, text string, lines lineMap, offset int, args []string) (string, error) {
	if d.Generator == nil {
		return d.Body, nil
	}
	e.file.at(text, lines, offset)
	out, err := d.Generator(e, args)
	if err != nil {
		x := e.errorf(ErrMacroExpansionExecutionError, offset, "%s", d.Name)
		x.Err = err
		return "", x
	}
	return out, nil
}

var stringifier = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// substitute replaces parameters in body by their arguments in one pass,
// so an argument is never substituted again by a later parameter. "#p"
// becomes the quoted argument.
func (e *Engine) substitute(body string, params, args []string) string {
	if len(params) == 0 {
		return body
	}
	var b strings.Builder
	for i := 0; i < len(body); {
		if n := scan.Skip(body, i, e.syn); n > i {
			b.WriteString(body[i:n])
			i = n
			continue
		}
		ch := body[i]
		stringify := ch == '#' && i+1 < len(body) && scan.IsIdentStart(body[i+1])
		start := i
		if stringify {
			start++
		} else if !scan.IsIdentPart(ch) {
			b.WriteByte(ch)
			i++
			continue
		}
		j := start + 1
		for j < len(body) && scan.IsIdentPart(body[j]) {
			j++
		}
		word := body[start:j]
		k := -1
		if scan.IsIdentStart(body[start]) {
			k = slices.Index(params, word)
		}
		switch {
		case k < 0:
			b.WriteString(body[i:j])
		case stringify:
			b.WriteString(`"` + stringifier.Replace(args[k]) + `"`)
		default:
			b.WriteString(args[k])
		}
		i = j
	}
	return b.String()
}
