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

// Package preprocessor implements a text macro preprocessor for shader
// and script sources.
//
// An Engine scans a buffer for directives and rewrites it in place:
//
//	#include "lib/light"       splice another file, resolved by the engine
//	#define MAX(a, b) a > b ? a : b
//	#undef MAX
//	#ifdef / #ifndef / #ifeq / #ifgt ... #elif* / #else / #endif
//	#pragma name args          handed to Options.OnPragma
//	#name value                handed to Options.Directives[name]
//
// After all directives are consumed the remaining text is expanded with
// the defined macros. Comments and string literals are never touched.
//
// Includes are resolved against the including file, or against
// IncludeDesc.Root for library names such as <std/math>. Loading is left
// to Options.OnInclude, so the same engine serves local files, archives
// and remote sources. A file is spliced at most once per top-level call
// to Process.
package preprocessor
