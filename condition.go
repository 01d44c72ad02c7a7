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
	"strconv"
	"strings"

	"github.com/romanpunia/vitex-sub022/internal/scan"
)

// conditionKind is the test a conditional directive performs.
type conditionKind int

const (
	condText conditionKind = iota // #else, and text between nested chains
	condExists
	condNotExists
	condEquals
	condNotEquals
	condGreater
	condNotGreater
	condGreaterEquals
	condNotGreaterEquals
	condLess
	condNotLess
	condLessEquals
	condNotLessEquals
)

type chainRole int

const (
	chainOpen chainRole = iota
	chainExtend
	chainClose
)

type conditionKeyword struct {
	kind conditionKind
	role chainRole
}

var conditionKeywords = map[string]conditionKeyword{
	"ifdef":    {condExists, chainOpen},
	"ifndef":   {condNotExists, chainOpen},
	"ifeq":     {condEquals, chainOpen},
	"ifneq":    {condNotEquals, chainOpen},
	"ifgt":     {condGreater, chainOpen},
	"ifngt":    {condNotGreater, chainOpen},
	"ifgte":    {condGreaterEquals, chainOpen},
	"ifngte":   {condNotGreaterEquals, chainOpen},
	"iflt":     {condLess, chainOpen},
	"ifnlt":    {condNotLess, chainOpen},
	"iflte":    {condLessEquals, chainOpen},
	"ifnlte":   {condNotLessEquals, chainOpen},
	"elifdef":  {condExists, chainExtend},
	"elifndef": {condNotExists, chainExtend},
	"elifeq":   {condEquals, chainExtend},
	"elifneq":  {condNotEquals, chainExtend},
	"elifgt":   {condGreater, chainExtend},
	"elifngt":  {condNotGreater, chainExtend},
	"elifgte":  {condGreaterEquals, chainExtend},
	"elifngte": {condNotGreaterEquals, chainExtend},
	"eliflt":   {condLess, chainExtend},
	"elifnlt":  {condNotLess, chainExtend},
	"eliflte":  {condLessEquals, chainExtend},
	"elifnlte": {condNotLessEquals, chainExtend},
	"else":     {condText, chainExtend},
	"endif":    {condText, chainClose},
}

func isConditional(name string) bool {
	_, ok := conditionKeywords[name]
	return ok
}

// conditionBlock is one branch of a chain. Spans index the buffer the
// chain was prepared from; a block with children is rendered from them
// instead of its own text.
type conditionBlock struct {
	kind       conditionKind
	expr       string
	chained    bool
	tokenStart int
	tokenEnd   int
	textStart  int
	textEnd    int
	children   []*conditionBlock
}

func (b *conditionBlock) isElse() bool {
	return b.kind == condText && b.chained
}

type matchResult int

const (
	matchFalse matchResult = iota
	matchTrue
	matchPassThrough
)

func (e *Engine) newBlock(tok scan.Token, chained bool) (*conditionBlock, error) {
	kw := conditionKeywords[tok.Name]
	b := &conditionBlock{
		kind:       kw.kind,
		expr:       tok.Value,
		chained:    chained,
		tokenStart: tok.Start,
		tokenEnd:   tok.End,
		textStart:  tok.End,
	}
	blank := strings.TrimSpace(tok.Value) == ""
	switch {
	case kw.kind != condText && blank:
		return nil, e.errorf(ErrConditionError, tok.Start, "#%s without expression", tok.Name)
	case kw.kind == condText && !blank:
		return nil, e.errorf(ErrConditionError, tok.Start, "#%s takes no expression", tok.Name)
	}
	return b, nil
}

func plainBlock(start, end int) *conditionBlock {
	return &conditionBlock{kind: condText, tokenStart: start, tokenEnd: start, textStart: start, textEnd: end}
}

// prepare parses the chain opened by open. Only conditional directives are
// looked at; anything else stays in the block text for a later scan. It
// returns the chain and the offset just past its #endif.
func (e *Engine) prepare(buf string, open scan.Token) ([]*conditionBlock, int, error) {
	cur, err := e.newBlock(open, false)
	if err != nil {
		return nil, 0, err
	}
	var chain []*conditionBlock
	pending := open.End
	for offset := open.End; ; {
		tok, ok := scan.FindNextConditionalDirective(buf, offset, e.syn, isConditional)
		if !ok {
			return nil, 0, e.errorf(ErrConditionNotClosed, open.Start, "#%s %s", open.Name, open.Value)
		}
		switch conditionKeywords[tok.Name].role {
		case chainOpen:
			nested, end, err := e.prepare(buf, tok)
			if err != nil {
				return nil, 0, err
			}
			if tok.Start > pending {
				cur.children = append(cur.children, plainBlock(pending, tok.Start))
			}
			cur.children = append(cur.children, nested...)
			pending, offset = end, end

		case chainExtend, chainClose:
			cur.textEnd = tok.Start
			if len(cur.children) > 0 && tok.Start > pending {
				cur.children = append(cur.children, plainBlock(pending, tok.Start))
			}
			chain = append(chain, cur)
			if tok.Name == "endif" {
				if strings.TrimSpace(tok.Value) != "" {
					return nil, 0, e.errorf(ErrConditionError, tok.Start, "#endif takes no expression")
				}
				return chain, tok.End, nil
			}
			if cur.isElse() {
				return nil, 0, e.errorf(ErrConditionError, tok.Start, "#%s after #else", tok.Name)
			}
			if cur, err = e.newBlock(tok, true); err != nil {
				return nil, 0, err
			}
			pending, offset = tok.End, tok.End
		}
	}
}

// evaluate returns the spans of text that survive, in buffer order. The
// first matching block of a chain wins and the rest of that chain is
// skipped.
func (e *Engine) evaluate(blocks []*conditionBlock) ([]span, error) {
	var out []span
	taken := false
	for _, blk := range blocks {
		if !blk.chained {
			taken = false
		}
		if taken {
			continue
		}
		m, err := e.match(blk)
		if err != nil {
			return nil, err
		}
		switch m {
		case matchFalse:
			continue
		case matchTrue:
			taken = true
		}
		if len(blk.children) == 0 {
			if blk.textEnd > blk.textStart {
				out = append(out, span{blk.textStart, blk.textEnd})
			}
			continue
		}
		spans, err := e.evaluate(blk.children)
		if err != nil {
			return nil, err
		}
		out = append(out, spans...)
	}
	return out, nil
}

func (e *Engine) match(blk *conditionBlock) (matchResult, error) {
	if blk.kind == condText {
		if blk.isElse() {
			return matchTrue, nil
		}
		return matchPassThrough, nil
	}

	var ok bool
	switch blk.kind {
	case condExists, condNotExists:
		ok = e.IsDefined(strings.TrimSpace(blk.expr))
		if blk.kind == condNotExists {
			ok = !ok
		}

	case condEquals, condNotEquals:
		name, value := splitCondition(blk.expr, e.syn)
		if _, defined := e.macros.defs[name]; defined {
			expansion, err := e.expansionOf(name, blk.tokenStart)
			if err != nil {
				return matchFalse, err
			}
			ok = expansion == value
		}
		if blk.kind == condNotEquals {
			ok = !ok
		}

	default:
		left, right := splitCondition(blk.expr, e.syn)
		a, err := e.number(left, blk.tokenStart)
		if err != nil {
			return matchFalse, err
		}
		b, err := e.number(right, blk.tokenStart)
		if err != nil {
			return matchFalse, err
		}
		ok = compare(blk.kind, a, b)
	}
	if ok {
		return matchTrue, nil
	}
	return matchFalse, nil
}

func compare(kind conditionKind, a, b float64) bool {
	switch kind {
	case condGreater:
		return a > b
	case condNotGreater:
		return !(a > b)
	case condGreaterEquals:
		return a >= b
	case condNotGreaterEquals:
		return !(a >= b)
	case condLess:
		return a < b
	case condNotLess:
		return !(a < b)
	case condLessEquals:
		return a <= b
	case condNotLessEquals:
		return !(a <= b)
	}
	return false
}

// expansionOf is what the macro name expands to on its own.
func (e *Engine) expansionOf(name string, offset int) (string, error) {
	d := e.macros.defs[name]
	return e.generate(d, e.file.text, e.file.lines, offset, nil)
}

// number resolves a macro operand and parses it. Anything that is not a
// number counts as 0.
func (e *Engine) number(operand string, offset int) (float64, error) {
	if _, ok := e.macros.defs[operand]; ok {
		expansion, err := e.expansionOf(operand, offset)
		if err != nil {
			return 0, err
		}
		operand = expansion
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(operand), 64)
	if err != nil {
		return 0, nil
	}
	return v, nil
}

// splitCondition splits "name value" on the first run of whitespace and
// unwraps a quoted value.
func splitCondition(expr string, syn scan.Syntax) (string, string) {
	expr = strings.TrimSpace(expr)
	i := strings.IndexAny(expr, " \t\r\n")
	if i < 0 {
		return expr, ""
	}
	name, value := expr[:i], strings.TrimSpace(expr[i:])
	if len(value) >= 2 && value[0] == value[len(value)-1] && scan.IsQuote(value[0], syn) {
		value = value[1 : len(value)-1]
	}
	return name, value
}
