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
)

// Built-in macros, defined by New and restored by ClearDefinitions.
var builtins = []struct {
	name string
	gen  Generator
}{
	{"__FILE__", func(e *Engine, _ []string) (string, error) {
		return strconv.Quote(e.CurrentFile()), nil
	}},
	{"__LINE__", func(e *Engine, _ []string) (string, error) {
		return strconv.Itoa(e.CurrentLine()), nil
	}},
	{"__DATE__", func(e *Engine, _ []string) (string, error) {
		return strconv.Quote(e.clock().Format("Jan _2 2006")), nil
	}},
	{"__TIME__", func(e *Engine, _ []string) (string, error) {
		return strconv.Quote(e.clock().Format("15:04:05")), nil
	}},
}

func (e *Engine) defineBuiltins() {
	for _, b := range builtins {
		e.macros.set(&Definition{Name: b.name, Generator: b.gen})
	}
}

// ParseDefine turns a command line define such as "NAME=VALUE" into a
// #define expression. A define without a value is set to 1.
func ParseDefine(s string) string {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		value = "1"
	}
	name = strings.TrimSpace(name)
	if value == "" {
		return name
	}
	return name + " " + value
}
