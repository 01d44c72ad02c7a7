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

	"modernc.org/token"
)

// ErrorKind classifies preprocessing failures. Every kind is itself an
// error so callers can test with errors.Is(err, ErrIncludeNotFound).
type ErrorKind int

const (
	ErrMacroNameEmpty ErrorKind = iota + 1
	ErrMacroDefinitionEmpty
	ErrMacroParenthesisNotClosed
	ErrMacroParenthesisDoubleClosed
	ErrMacroDefinitionError
	ErrMacroExpansionParenthesisNotClosed
	ErrMacroExpansionParenthesisDoubleClosed
	ErrMacroExpansionArgumentsError
	ErrMacroExpansionExecutionError
	ErrMacroExpansionError
	ErrConditionNotOpened
	ErrConditionNotClosed
	ErrConditionError
	ErrDirectiveNotFound
	ErrDirectiveExpansionError
	ErrIncludeDenied
	ErrIncludeNotFound
	ErrIncludeError
	ErrPragmaNotFound
	ErrPragmaError
)

var kindMessages = map[ErrorKind]string{
	ErrMacroNameEmpty:                        "macro name empty",
	ErrMacroDefinitionEmpty:                  "macro definition empty",
	ErrMacroParenthesisNotClosed:             "macro parenthesis not closed",
	ErrMacroParenthesisDoubleClosed:          "macro parenthesis double closed",
	ErrMacroDefinitionError:                  "macro definition error",
	ErrMacroExpansionParenthesisNotClosed:    "macro expansion parenthesis not closed",
	ErrMacroExpansionParenthesisDoubleClosed: "macro expansion parenthesis double closed",
	ErrMacroExpansionArgumentsError:          "macro expansion arguments error",
	ErrMacroExpansionExecutionError:          "macro expansion execution error",
	ErrMacroExpansionError:                   "macro expansion error",
	ErrConditionNotOpened:                    "condition not opened",
	ErrConditionNotClosed:                    "condition not closed",
	ErrConditionError:                        "condition error",
	ErrDirectiveNotFound:                     "directive not found",
	ErrDirectiveExpansionError:               "directive expansion error",
	ErrIncludeDenied:                         "include denied",
	ErrIncludeNotFound:                       "include not found",
	ErrIncludeError:                          "include error",
	ErrPragmaNotFound:                        "pragma not found",
	ErrPragmaError:                           "pragma error",
}

func (k ErrorKind) Error() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return fmt.Sprintf("preprocessor error %d", int(k))
}

func (k ErrorKind) String() string {
	return k.Error()
}

// Error is a failure located in the buffer being processed.
type Error struct {
	Kind ErrorKind

	// Offset is the byte offset into the text being processed: the working
	// buffer of Path for directives, the expanded text for macros.
	Offset int

	// Path is the file being processed, empty for direct API calls.
	Path string

	// Detail names the offending directive, macro or include.
	Detail string

	// Err is the underlying error, if any.
	Err error

	text  string
	lines lineMap
	line  int
}

// Error formats the error as "<message> at offset <n> on <path>".
func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		if errors.Is(e.Err, e.Kind) {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Path == "" {
		return fmt.Sprintf("%s at offset %d", msg, e.Offset)
	}
	return fmt.Sprintf("%s at offset %d on %s", msg, e.Offset, e.Path)
}

// Line returns the 1-based line of Offset in the source file, counting the
// directive lines already consumed. It is computed on first use.
func (e *Error) Line() int {
	if e.line == 0 {
		e.line = e.lines.line(e.Path, e.text, e.Offset)
	}
	return e.line
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// fileContext is the file currently being processed. text is the buffer
// offsets refer to and lines maps it back to the source. The line of
// offset is only computed when someone asks for it.
type fileContext struct {
	path   string
	text   string
	lines  lineMap
	offset int
	line   int
}

func (c *fileContext) at(text string, lines lineMap, offset int) {
	c.text, c.lines, c.offset, c.line = text, lines, offset, 0
}

func (c *fileContext) Line() int {
	if c.line == 0 {
		c.line = c.lines.line(c.path, c.text, c.offset)
	}
	return c.line
}

func lineAt(name, text string, offset int) int {
	if text == "" {
		return 1
	}
	offset = max(0, min(offset, len(text)))
	f := token.NewFile(name, len(text))
	f.SetLinesForContent([]byte(text))
	// the line table has no entry for a line starting at the very end
	if offset == len(text) && text[offset-1] == '\n' {
		return f.LineCount() + 1
	}
	return f.Position(f.Pos(offset)).Line
}

func (e *Engine) errorf(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{
		Kind:   kind,
		Offset: offset,
		Path:   e.file.path,
		Detail: fmt.Sprintf(format, args...),
		text:   e.file.text,
		lines:  e.file.lines,
	}
}

// wrap attaches a callback failure to the current location. Errors that
// already carry a location pass through; a bare ErrorKind in the chain
// overrides kind.
func (e *Engine) wrap(kind ErrorKind, offset int, detail string, err error) error {
	var located *Error
	if errors.As(err, &located) {
		return err
	}
	var k ErrorKind
	if errors.As(err, &k) {
		kind = k
	}
	x := e.errorf(kind, offset, "%s", detail)
	if err != error(kind) {
		x.Err = err
	}
	return x
}
