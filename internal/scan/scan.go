package scan

import (
	"errors"
	"strings"
)

var (
	ErrUnterminated = errors.New("unterminated string literal")
	ErrUnbalanced   = errors.New("unbalanced parenthesis")
)

// Syntax holds the delimiters the scanner must step over.
type Syntax struct {
	CommentBegin   string
	CommentEnd     string
	LineComment    string
	StringLiterals string
}

// Token is a directive found in a buffer. Start and End are byte offsets,
// End includes the terminating newline when there is one.
type Token struct {
	Name   string
	Value  string
	Start  int
	End    int
	Scope  bool // value was wrapped in a string literal character
	Global bool // value was wrapped in <...>
}

// FindNextDirective returns the first directive at or after offset.
func FindNextDirective(buf string, offset int, syn Syntax) (Token, bool) {
	return findNext(buf, offset, syn, nil)
}

// FindNextConditionalDirective is FindNextDirective restricted to names
// accepted by isConditional; every other directive is stepped over.
func FindNextConditionalDirective(buf string, offset int, syn Syntax, isConditional func(string) bool) (Token, bool) {
	return findNext(buf, offset, syn, isConditional)
}

func findNext(buf string, offset int, syn Syntax, accept func(string) bool) (Token, bool) {
	for i := offset; i < len(buf); {
		if n := Skip(buf, i, syn); n > i {
			i = n
			continue
		}
		if buf[i] == '#' && i+1 < len(buf) && !isSpace(buf[i+1]) {
			tok := readDirective(buf, i, syn)
			if accept == nil || accept(tok.Name) {
				return tok, true
			}
			i = tok.End
			continue
		}
		i++
	}
	return Token{}, false
}

func readDirective(buf string, start int, syn Syntax) Token {
	j := start + 1
	for j < len(buf) && !isSpace(buf[j]) {
		j++
	}
	tok := Token{Name: buf[start+1 : j], Start: start}

	var b strings.Builder
	for k := j; ; {
		nl := strings.IndexByte(buf[k:], '\n')
		var line string
		if nl < 0 {
			line = buf[k:]
			tok.End = len(buf)
		} else {
			line = buf[k : k+nl]
			tok.End = k + nl + 1
		}
		line = strings.TrimSuffix(line, "\r")
		if nl >= 0 && lineContinues(line) {
			b.WriteString(stripLineContinuation(line))
			b.WriteByte('\n')
			k = tok.End
			continue
		}
		b.WriteString(line)
		break
	}

	value := strings.TrimSpace(stripLineComment(b.String(), syn))
	if len(value) >= 2 {
		front, back := value[0], value[len(value)-1]
		switch {
		case front == back && IsQuote(front, syn):
			value = value[1 : len(value)-1]
			tok.Scope = true
		case front == '<' && back == '>':
			value = value[1 : len(value)-1]
			tok.Global = true
		}
	}
	tok.Value = value
	return tok
}

// Skip returns the offset just past the comment or string literal that
// starts at i, or i itself when none does. A line comment ends before its
// newline.
func Skip(buf string, i int, syn Syntax) int {
	rest := buf[i:]
	switch {
	case syn.CommentBegin != "" && strings.HasPrefix(rest, syn.CommentBegin):
		body := rest[len(syn.CommentBegin):]
		end := strings.Index(body, syn.CommentEnd)
		if end < 0 || syn.CommentEnd == "" {
			return len(buf)
		}
		return i + len(syn.CommentBegin) + end + len(syn.CommentEnd)
	case syn.LineComment != "" && strings.HasPrefix(rest, syn.LineComment):
		end := strings.IndexByte(rest, '\n')
		if end < 0 {
			return len(buf)
		}
		return i + end
	case IsQuote(buf[i], syn):
		end, _ := literalEnd(buf, i)
		return end
	}
	return i
}

// literalEnd returns the offset after the literal opened at i. Literals
// do not span lines unless the newline is escaped; ok is false when the
// literal is cut short by a newline or the end of buf.
func literalEnd(buf string, i int) (int, bool) {
	quote := buf[i]
	for j := i + 1; j < len(buf); j++ {
		switch buf[j] {
		case '\\':
			j++
		case quote:
			return j + 1, true
		case '\n':
			return j, false
		}
	}
	return len(buf), false
}

// IsQuote reports whether ch opens a string literal.
func IsQuote(ch byte, syn Syntax) bool {
	return ch != 0 && strings.IndexByte(syn.StringLiterals, ch) >= 0
}

func stripLineComment(s string, syn Syntax) string {
	if syn.LineComment == "" {
		return s
	}
	for i := 0; i < len(s); i++ {
		if IsQuote(s[i], syn) {
			end, _ := literalEnd(s, i)
			i = end - 1
			continue
		}
		if strings.HasPrefix(s[i:], syn.LineComment) {
			return s[:i]
		}
	}
	return s
}

func lineContinues(s string) bool {
	s = strings.TrimRight(s, " \t")
	return strings.HasSuffix(s, "\\")
}

func stripLineContinuation(s string) string {
	s = strings.TrimRight(s, " \t")
	return strings.TrimRight(strings.TrimSuffix(s, "\\"), " \t")
}

// MatchParen returns the offset of the parenthesis closing the one at
// open, stepping over comments and string literals, or -1.
func MatchParen(buf string, open int, syn Syntax) int {
	depth := 0
	for i := open; i < len(buf); {
		if n := Skip(buf, i, syn); n > i {
			i = n
			continue
		}
		switch buf[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
		i++
	}
	return -1
}

// SplitArguments splits a call's argument text on top level commas. Blank
// input yields no arguments.
func SplitArguments(s string, syn Syntax) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var args []string
	depth, last := 0, 0
	for i := 0; i < len(s); {
		ch := s[i]
		if IsQuote(ch, syn) {
			end, ok := literalEnd(s, i)
			if !ok {
				return nil, ErrUnterminated
			}
			i = end
			continue
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, ErrUnbalanced
			}
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
		i++
	}
	if depth != 0 {
		return nil, ErrUnbalanced
	}
	return append(args, strings.TrimSpace(s[last:])), nil
}

// SplitPragma tokenizes pragma arguments separated by commas or spaces.
// Quoted tokens are kept whole and unwrapped.
func SplitPragma(s string, syn Syntax) []string {
	var out []string
	for i := 0; i < len(s); {
		ch := s[i]
		if ch == ',' || isSpace(ch) {
			i++
			continue
		}
		if IsQuote(ch, syn) {
			end, ok := literalEnd(s, i)
			if ok {
				out = append(out, s[i+1:end-1])
			} else {
				out = append(out, s[i+1:end])
			}
			i = end
			continue
		}
		j := i
		for j < len(s) && s[j] != ',' && !isSpace(s[j]) {
			j++
		}
		out = append(out, s[i:j])
		i = j
	}
	return out
}

// IdentPrefix splits s into a leading identifier and the rest.
func IdentPrefix(s string) (name string, rest string, ok bool) {
	if s == "" || !IsIdentStart(s[0]) {
		return "", s, false
	}
	i := 1
	for i < len(s) && IsIdentPart(s[i]) {
		i++
	}
	return s[:i], s[i:], true
}

// IsIdent reports whether s is a single identifier.
func IsIdent(s string) bool {
	name, rest, ok := IdentPrefix(s)
	return ok && rest == "" && name != ""
}

func IsIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func IsIdentPart(b byte) bool {
	return IsIdentStart(b) || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}
