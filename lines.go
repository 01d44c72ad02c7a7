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
	"sort"
	"strings"
)

// anchor pins an offset of the working buffer to a line of the source file.
type anchor struct {
	pos  int
	line int
}

// lineMap maps offsets of a rewritten buffer back to source lines. Lines
// between anchors are counted. A nil map describes unmodified text.
type lineMap []anchor

func (m lineMap) find(off int) anchor {
	i := sort.Search(len(m), func(i int) bool { return m[i].pos > off }) - 1
	if i < 0 {
		return anchor{0, 1}
	}
	return m[i]
}

// line is the source line of off in text.
func (m lineMap) line(name, text string, off int) int {
	off = max(0, min(off, len(text)))
	a := m.find(off)
	return a.line - 1 + lineAt(name, text[a.pos:off], off-a.pos)
}

// sub is the map of text[start:end].
func (m lineMap) sub(name, text string, start, end int) lineMap {
	out := lineMap{{0, m.line(name, text, start)}}
	for _, a := range m {
		if a.pos > start && a.pos <= end {
			out = append(out, anchor{a.pos - start, a.line})
		}
	}
	return out
}

// edit replaces text[start:end] with text.
type edit struct {
	start int
	end   int
	text  string
}

// rewrite returns the map of text once edits are applied. Edits are sorted
// and do not overlap. Text inserted by an edit counts its lines from the
// line of its start.
func (m lineMap) rewrite(text string, edits []edit) lineMap {
	out := make(lineMap, 0, len(m)+len(edits))
	cur := lineCursor{m: m, text: text, line: 1}
	delta, k := 0, 0
	for _, ed := range edits {
		for ; k < len(m) && m[k].pos <= ed.start; k++ {
			out = pin(out, anchor{m[k].pos + delta, m[k].line})
		}
		for k < len(m) && m[k].pos <= ed.end {
			k++
		}
		line := cur.lineOf(ed.end)
		delta += len(ed.text) - (ed.end - ed.start)
		out = pin(out, anchor{ed.end + delta, line})
	}
	for ; k < len(m); k++ {
		out = pin(out, anchor{m[k].pos + delta, m[k].line})
	}
	return out
}

// pin appends a, replacing a trailing anchor at the same offset.
func pin(m lineMap, a anchor) lineMap {
	if n := len(m); n > 0 && m[n-1].pos == a.pos {
		m[n-1] = a
		return m
	}
	return append(m, a)
}

// lineCursor counts lines for increasing offsets in one pass.
type lineCursor struct {
	m    lineMap
	text string
	k    int
	pos  int
	line int
}

func (c *lineCursor) lineOf(off int) int {
	for c.k < len(c.m) && c.m[c.k].pos <= off {
		c.pos, c.line = c.m[c.k].pos, c.m[c.k].line
		c.k++
	}
	c.line += strings.Count(c.text[c.pos:off], "\n")
	c.pos = off
	return c.line
}

func applyEdits(text string, edits []edit) string {
	if len(edits) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, ed := range edits {
		b.WriteString(text[last:ed.start])
		b.WriteString(ed.text)
		last = ed.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// span is a range of the working buffer.
type span struct {
	start int
	end   int
}

// source is the working buffer of the file being processed. done lists the
// spans whose macros are already expanded; they all lie before the scan
// offset, so later edits never move them.
type source struct {
	text  string
	lines lineMap
	done  []span
}

func (s *source) apply(edits []edit) {
	if len(edits) == 0 {
		return
	}
	s.lines = s.lines.rewrite(s.text, edits)
	s.text = applyEdits(s.text, edits)
}

func (s *source) splice(start, end int, text string) {
	s.apply([]edit{{start, end, text}})
}

// keep returns the edits that delete everything in [start, end) outside
// spans. Spans are sorted and lie within [start, end).
func keep(start, end int, spans []span) []edit {
	var edits []edit
	for _, s := range spans {
		if s.start > start {
			edits = append(edits, edit{start: start, end: s.start})
		}
		start = s.end
	}
	if end > start {
		edits = append(edits, edit{start: start, end: end})
	}
	return edits
}
