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
	"strings"
	"time"

	"github.com/romanpunia/vitex-sub022/internal/resolve"
	"github.com/romanpunia/vitex-sub022/internal/scan"
)

// ErrConfiguration is returned by New for invalid Options.
var ErrConfiguration = errors.New("configuration error")

// Config selects the text syntax the engine steps over and the directive
// families it handles. The zero Config means DefaultConfig.
type Config struct {
	// CommentBegin and CommentEnd delimit multi-line comments.
	CommentBegin string
	CommentEnd   string

	// LineComment starts a comment that runs to the end of the line.
	LineComment string

	// StringLiterals lists the characters that open and close literals.
	// DefaultConfig sets only the double quote.
	StringLiterals string

	Pragmas    bool
	Includes   bool
	Defines    bool
	Conditions bool
}

// DefaultConfig uses C-style comments and quotes with every feature on.
func DefaultConfig() Config {
	return Config{
		CommentBegin:   "/*",
		CommentEnd:     "*/",
		LineComment:    "//",
		StringLiterals: "\"",
		Pragmas:        true,
		Includes:       true,
		Defines:        true,
		Conditions:     true,
	}
}

func (c Config) syntax() scan.Syntax {
	return scan.Syntax{
		CommentBegin:   c.CommentBegin,
		CommentEnd:     c.CommentEnd,
		LineComment:    c.LineComment,
		StringLiterals: c.StringLiterals,
	}
}

// IncludeDesc describes where includes are searched. Path and From are
// filled per directive by the engine.
type IncludeDesc struct {
	Path string
	From string
	Root string
	Exts []string
}

func (d IncludeDesc) resolveDesc() resolve.Desc {
	return resolve.Desc{Path: d.Path, From: d.From, Root: d.Root, Exts: d.Exts}
}

// IncludeResolution is a resolved include target.
type IncludeResolution = resolve.Resolution

// Directive is a directive as found in the buffer.
type Directive = scan.Token

// Disposition tells the engine what to do with text returned by an
// IncludeFunc.
type Disposition int

const (
	// IncludePreprocess runs the text through Process before splicing.
	IncludePreprocess Disposition = iota
	// IncludeUnchanged splices the text as is.
	IncludeUnchanged
	// IncludeComputed means the host consumed the include; nothing is spliced.
	IncludeComputed
	// IncludeFailed reports the include as not found.
	IncludeFailed
)

type (
	// IncludeFunc loads an include resolved by the engine.
	IncludeFunc func(e *Engine, res IncludeResolution) (string, Disposition, error)

	// PragmaFunc handles a #pragma. It may return ErrPragmaNotFound.
	PragmaFunc func(e *Engine, name string, args []string) error

	// DirectiveFunc handles a custom directive and returns its replacement.
	DirectiveFunc func(e *Engine, d Directive) (string, error)

	// Generator computes the expansion of a dynamic macro.
	Generator func(e *Engine, args []string) (string, error)
)

// Logger is an optional sink for engine events.
//
// Contract:
// - Errors: logging must be best-effort; Logf should not panic.
type Logger interface {
	Logf(format string, args ...any)
}

// Options configures an Engine.
type Options struct {
	// Config selects syntax and features. Default: DefaultConfig().
	Config Config

	// Include holds the search root and default extensions.
	Include IncludeDesc

	// OnInclude loads resolved includes.
	// Optional; without it every #include fails with ErrIncludeError.
	OnInclude IncludeFunc

	// OnPragma handles pragmas.
	// Optional; without it pragmas are left in the text.
	OnPragma PragmaFunc

	// Directives maps custom directive names to their handlers.
	Directives map[string]DirectiveFunc

	// Logger receives include and pragma events. Optional.
	Logger Logger

	// Clock feeds __DATE__ and __TIME__. Default: time.Now
	Clock func() time.Time
}

func (o *Options) validate() error {
	var problems []string
	c := o.Config
	if (c.CommentBegin == "") != (c.CommentEnd == "") {
		problems = append(problems, "comment delimiters must be set together")
	}
	if strings.ContainsAny(c.StringLiterals, "#<>(),") {
		problems = append(problems, fmt.Sprintf("invalid string literal characters %q", c.StringLiterals))
	}
	for name, fn := range o.Directives {
		switch {
		case name == "" || strings.ContainsAny(name, " \t\r\n"):
			problems = append(problems, fmt.Sprintf("invalid directive name %q", name))
		case isBuiltinDirective(name):
			problems = append(problems, fmt.Sprintf("directive %q shadows a built-in directive", name))
		case fn == nil:
			problems = append(problems, fmt.Sprintf("directive %q has no handler", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.Config == (Config{}) {
		o.Config = DefaultConfig()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

func isBuiltinDirective(name string) bool {
	switch name {
	case "include", "pragma", "define", "undef":
		return true
	}
	return isConditional(name)
}
