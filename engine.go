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
	"maps"
	"strings"
	"time"

	"github.com/romanpunia/vitex-sub022/internal/resolve"
	"github.com/romanpunia/vitex-sub022/internal/scan"
)

// Engine preprocesses text buffers. Macros persist across Process calls;
// the set of visited files lives for one top-level Process call.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	cfg        Config
	syn        scan.Syntax
	include    IncludeDesc
	resolver   resolve.Resolver
	onInclude  IncludeFunc
	onPragma   PragmaFunc
	directives map[string]DirectiveFunc
	logger     Logger
	clock      func() time.Time

	macros  macroTable
	visited map[string]bool
	nested  bool
	file    fileContext
}

// New creates an Engine with the built-in macros defined.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts.applyDefaults()

	e := &Engine{
		cfg:        opts.Config,
		syn:        opts.Config.syntax(),
		include:    opts.Include,
		resolver:   resolve.Default,
		onInclude:  opts.OnInclude,
		onPragma:   opts.OnPragma,
		directives: maps.Clone(opts.Directives),
		logger:     opts.Logger,
		clock:      opts.Clock,
		macros:     newMacroTable(),
		visited:    map[string]bool{},
	}
	e.defineBuiltins()
	return e, nil
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() Config {
	return e.cfg
}

// CurrentFile is the path of the file being processed.
func (e *Engine) CurrentFile() string {
	return e.file.path
}

// CurrentLine is the 1-based source line of the directive or macro being
// handled in the current file.
func (e *Engine) CurrentLine() int {
	return e.file.Line()
}

// ResolveInclude resolves path the way #include would from the current file.
func (e *Engine) ResolveInclude(path string, global bool) IncludeResolution {
	desc := e.include
	desc.Path, desc.From = path, e.file.path
	return e.resolver.Resolve(desc.resolveDesc(), global)
}

// Process preprocesses data read from path and returns the result. Files
// already processed during the current top-level call are skipped, so
// including the same file twice yields its text once.
func (e *Engine) Process(path, data string) (string, error) {
	if err := e.process(path, &data); err != nil {
		return "", err
	}
	return data, nil
}

func (e *Engine) process(path string, buf *string) error {
	if path != "" && path != e.file.path && e.visited[path] {
		e.logf("skipping %s: already processed", path)
		return nil
	}

	nesting, last := e.nested, e.file
	src := &source{text: *buf}
	e.file = fileContext{path: path, text: src.text}
	if path != "" {
		e.visited[path] = true
	}
	e.nested = true
	defer func() {
		e.file = last
		e.nested = nesting
		if !nesting {
			clear(e.visited)
		}
	}()

	if err := e.consume(src); err != nil {
		return err
	}
	if e.cfg.Defines {
		if _, err := e.expandPending(src, len(src.text), len(src.text)); err != nil {
			return err
		}
	}
	*buf = src.text
	return nil
}

// consume dispatches directives left to right. Every handler edits src and
// returns where scanning resumes.
func (e *Engine) consume(src *source) error {
	for offset := 0; ; {
		tok, ok := scan.FindNextDirective(src.text, offset, e.syn)
		if !ok {
			return nil
		}
		e.file.at(src.text, src.lines, tok.Start)

		var err error
		switch {
		case tok.Name == "include":
			offset, err = e.includeDirective(src, tok)
		case tok.Name == "pragma":
			offset, err = e.pragmaDirective(src, tok)
		case tok.Name == "define":
			offset, err = e.defineDirective(src, tok)
		case tok.Name == "undef":
			offset, err = e.undefDirective(src, tok)
		case isConditional(tok.Name):
			offset, err = e.conditionDirective(src, tok)
		default:
			offset, err = e.customDirective(src, tok)
		}
		if err != nil {
			return err
		}
	}
}

// expandPending expands the text before end that no earlier pass has
// expanded and deletes [end, cut). Everything before the returned offset
// is then expanded. Spans are expanded one at a time, so a macro call
// cannot straddle expanded text.
func (e *Engine) expandPending(src *source, end, cut int) (int, error) {
	var edits []edit
	last, delta := 0, 0
	flush := func(to int) error {
		if to <= last {
			return nil
		}
		text := src.text[last:to]
		out, _, err := e.expand(text, src.lines.sub(e.file.path, src.text, last, to))
		if err != nil {
			return err
		}
		if out != text {
			edits = append(edits, edit{last, to, out})
			delta += len(out) - len(text)
		}
		return nil
	}
	for _, d := range src.done {
		if err := flush(d.start); err != nil {
			return 0, err
		}
		last = d.end
	}
	if err := flush(end); err != nil {
		return 0, err
	}
	if cut > end {
		edits = append(edits, edit{start: end, end: cut})
	}
	src.apply(edits)
	e.file.at(src.text, src.lines, 0)

	end += delta
	src.done = nil
	if end > 0 {
		src.done = []span{{0, end}}
	}
	return end, nil
}

// lineBreak keeps text on its own line when the directive it replaces
// ended with a newline.
func lineBreak(buf string, tok scan.Token, text string) string {
	if text != "" && !strings.HasSuffix(text, "\n") && strings.HasSuffix(buf[tok.Start:tok.End], "\n") {
		return text + "\n"
	}
	return text
}

func (e *Engine) includeDirective(src *source, tok scan.Token) (int, error) {
	if !e.cfg.Includes {
		return 0, e.errorf(ErrIncludeDenied, tok.Start, "%s", tok.Value)
	}
	res := e.ResolveInclude(tok.Value, tok.Global)
	unsearched := res.IsAbstract && (tok.Global || e.include.Root == "")
	if res.Target == "" || (!res.IsFile && !unsearched) {
		return 0, e.errorf(ErrIncludeNotFound, tok.Start, "%s", tok.Value)
	}
	if e.visited[res.Target] {
		e.logf("include %s: already processed", res.Target)
		src.splice(tok.Start, tok.End, "")
		return tok.Start, nil
	}
	if e.onInclude == nil {
		return 0, e.errorf(ErrIncludeError, tok.Start, "%s: no include handler", tok.Value)
	}

	e.logf("include %s resolved to %s", tok.Value, res.Target)
	text, disp, err := e.onInclude(e, res)
	if err != nil {
		return 0, e.wrap(ErrIncludeError, tok.Start, tok.Value, err)
	}
	expanded := false
	switch disp {
	case IncludePreprocess:
		if err := e.process(res.Target, &text); err != nil {
			return 0, err
		}
		expanded = true
	case IncludeUnchanged:
	case IncludeComputed:
		text = ""
	default:
		return 0, e.errorf(ErrIncludeNotFound, tok.Start, "%s", tok.Value)
	}
	e.visited[res.Target] = true

	text = lineBreak(src.text, tok, text)
	src.splice(tok.Start, tok.End, text)
	end := tok.Start + len(text)
	if expanded && end > tok.Start {
		src.done = append(src.done, span{tok.Start, end})
	}
	e.file.at(src.text, src.lines, tok.Start)
	return end, nil
}

func (e *Engine) pragmaDirective(src *source, tok scan.Token) (int, error) {
	if !e.cfg.Pragmas || e.onPragma == nil {
		return tok.End, nil
	}
	name, rest, ok := scan.IdentPrefix(tok.Value)
	if !ok {
		return 0, e.errorf(ErrPragmaError, tok.Start, "pragma name expected in %q", tok.Value)
	}
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		rest = rest[1 : len(rest)-1]
	}
	args := scan.SplitPragma(rest, e.syn)

	e.logf("pragma %s %v", name, args)
	if err := e.onPragma(e, name, args); err != nil {
		return 0, e.wrap(ErrPragmaError, tok.Start, name, err)
	}
	src.splice(tok.Start, tok.End, "")
	return tok.Start, nil
}

func (e *Engine) defineDirective(src *source, tok scan.Token) (int, error) {
	if !e.cfg.Defines {
		return tok.End, nil
	}
	if err := e.define(tok.Value, nil, tok.Start); err != nil {
		return 0, err
	}
	src.splice(tok.Start, tok.End, "")
	return tok.Start, nil
}

// undefDirective expands the text before the directive while the macro is
// still defined, then removes the macro.
func (e *Engine) undefDirective(src *source, tok scan.Token) (int, error) {
	if !e.cfg.Defines {
		return tok.End, nil
	}
	end, err := e.expandPending(src, tok.Start, tok.End)
	if err != nil {
		return 0, err
	}
	e.Undefine(tok.Value)
	return end, nil
}

func (e *Engine) conditionDirective(src *source, tok scan.Token) (int, error) {
	if !e.cfg.Conditions {
		return tok.End, nil
	}
	if conditionKeywords[tok.Name].role != chainOpen {
		return 0, e.errorf(ErrConditionNotOpened, tok.Start, "#%s", tok.Name)
	}
	chain, end, err := e.prepare(src.text, tok)
	if err != nil {
		return 0, err
	}
	spans, err := e.evaluate(chain)
	if err != nil {
		return 0, err
	}
	src.apply(keep(tok.Start, end, spans))
	return tok.Start, nil
}

func (e *Engine) customDirective(src *source, tok scan.Token) (int, error) {
	fn, ok := e.directives[tok.Name]
	if !ok {
		return 0, e.errorf(ErrDirectiveNotFound, tok.Start, "#%s", tok.Name)
	}
	text, err := fn(e, tok)
	if err != nil {
		return 0, e.wrap(ErrDirectiveExpansionError, tok.Start, "#"+tok.Name, err)
	}
	text = lineBreak(src.text, tok, text)
	src.splice(tok.Start, tok.End, text)
	return tok.Start + len(text), nil
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Logf(format, args...)
	}
}
