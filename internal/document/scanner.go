package document

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pugsite/pugsite/internal/errors"
)

// scanner walks JavaScript source text. It knows enough of the lexical
// grammar to step over comments, strings, template literals and regular
// expressions, which is all that is needed to find where a function value
// ends without interpreting it.
type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	if s.pos+offset >= len(s.src) {
		return 0
	}
	return s.src[s.pos+offset]
}

func (s *scanner) hasPrefix(prefix string) bool {
	return strings.HasPrefix(s.src[s.pos:], prefix)
}

// position converts a byte offset into a 1-based line and column.
func (s *scanner) position(offset int) (int, int) {
	if offset > len(s.src) {
		offset = len(s.src)
	}
	line := 1 + strings.Count(s.src[:offset], "\n")
	lineStart := strings.LastIndexByte(s.src[:offset], '\n') + 1
	col := 1 + utf8.RuneCountInString(s.src[lineStart:offset])
	return line, col
}

func (s *scanner) errorAt(offset int, construct, message string) *errors.PugsiteError {
	line, col := s.position(offset)
	return errors.NewParseError(construct, message, line, col)
}

// skipSpace steps over whitespace and comments.
func (s *scanner) skipSpace() error {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			s.pos++
		case c == '/' && s.peekAt(1) == '/':
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				s.pos = len(s.src)
			} else {
				s.pos += end + 1
			}
		case c == '/' && s.peekAt(1) == '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				return s.errorAt(s.pos, "comment", "unterminated block comment")
			}
			s.pos += end + 4
		case c >= utf8.RuneSelf:
			r, size := utf8.DecodeRuneInString(s.src[s.pos:])
			if r != '\uFEFF' && !unicode.IsSpace(r) {
				return nil
			}
			s.pos += size
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '$' || r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || r == '\u200C' || r == '\u200D'
}

// isIdentifier reports whether name can be written as a bare property name.
func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if i == 0 && !isIdentStart(r) {
			return false
		}
		if !isIdentPart(r) {
			return false
		}
	}
	return true
}

// readIdent reads an identifier at the current position, or returns "".
func (s *scanner) readIdent() string {
	start := s.pos
	for !s.eof() {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if s.pos == start && !isIdentStart(r) {
			break
		}
		if s.pos > start && !isIdentPart(r) {
			break
		}
		s.pos += size
	}
	return s.src[start:s.pos]
}

func (s *scanner) atIdentStart() bool {
	if s.eof() {
		return false
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.pos:])
	return isIdentStart(r)
}

// skipQuoted steps over a single or double quoted string literal.
func (s *scanner) skipQuoted() error {
	start := s.pos
	quote := s.peek()
	s.pos++
	for !s.eof() {
		c := s.peek()
		switch c {
		case '\\':
			s.pos += 2
		case quote:
			s.pos++
			return nil
		case '\n':
			return s.errorAt(start, "string", "unterminated string literal")
		default:
			s.pos++
		}
	}
	return s.errorAt(start, "string", "unterminated string literal")
}

// skipTemplate steps over a template literal, including nested substitutions.
func (s *scanner) skipTemplate() error {
	start := s.pos
	s.pos++
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '\\':
			s.pos += 2
		case c == '`':
			s.pos++
			return nil
		case c == '$' && s.peekAt(1) == '{':
			s.pos++
			if err := s.skipBalanced(); err != nil {
				return err
			}
		default:
			s.pos++
		}
	}
	return s.errorAt(start, "template literal", "unterminated template literal")
}

// skipRegexp steps over a regular expression literal.
func (s *scanner) skipRegexp() error {
	start := s.pos
	s.pos++
	inClass := false
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '\\':
			s.pos += 2
			continue
		case c == '\n':
			return s.errorAt(start, "regular expression", "unterminated regular expression")
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			s.pos++
			s.readIdent() // flags
			return nil
		}
		s.pos++
	}
	return s.errorAt(start, "regular expression", "unterminated regular expression")
}

var regexpKeywords = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "of": true, "new": true, "delete": true, "void": true,
	"throw": true, "instanceof": true, "yield": true, "await": true,
}

// codeWalker tracks the last significant token so that a slash can be told
// apart as division or the start of a regular expression.
type codeWalker struct {
	*scanner
	prev     byte
	prevWord string
}

func (w *codeWalker) slashStartsRegexp() bool {
	if w.prevWord != "" {
		return regexpKeywords[w.prevWord]
	}
	switch w.prev {
	case 0, '(', ',', '=', ':', '[', '!', '&', '|', '?', '{', '}', ';', '+', '-', '*', '%', '<', '>', '~', '^':
		return true
	}
	return false
}

// step consumes one lexical unit that is not a bracket. It reports the
// offset just past the unit when the unit was significant, or -1 for
// whitespace and comments.
func (w *codeWalker) step() (int, error) {
	c := w.peek()
	switch {
	case c == '/' && (w.peekAt(1) == '/' || w.peekAt(1) == '*'):
		return -1, w.skipSpace()
	case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		w.pos++
		return -1, nil
	case c == '"' || c == '\'':
		if err := w.skipQuoted(); err != nil {
			return 0, err
		}
		w.prev, w.prevWord = '"', ""
	case c == '`':
		if err := w.skipTemplate(); err != nil {
			return 0, err
		}
		w.prev, w.prevWord = '`', ""
	case c == '/':
		if w.slashStartsRegexp() {
			if err := w.skipRegexp(); err != nil {
				return 0, err
			}
			w.prev, w.prevWord = 'r', ""
		} else {
			w.pos++
			w.prev, w.prevWord = '/', ""
		}
	case w.atIdentStart():
		w.prevWord = w.readIdent()
		w.prev = 'a'
	default:
		_, size := utf8.DecodeRuneInString(w.src[w.pos:])
		w.pos += size
		w.prev, w.prevWord = c, ""
	}
	return w.pos, nil
}

// skipBalanced starts on an opening bracket and stops just past its match.
func (s *scanner) skipBalanced() error {
	start := s.pos
	w := &codeWalker{scanner: s}
	var stack []byte
	for !s.eof() {
		c := s.peek()
		switch c {
		case '(', '[', '{':
			stack = append(stack, closerOf(c))
			s.pos++
			w.prev, w.prevWord = c, ""
			continue
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return s.errorAt(s.pos, "brackets", "mismatched '"+string(c)+"'")
			}
			stack = stack[:len(stack)-1]
			s.pos++
			if len(stack) == 0 {
				return nil
			}
			w.prev, w.prevWord = 'a', ""
			if c == '}' {
				w.prev = '}'
			}
			continue
		}
		if _, err := w.step(); err != nil {
			return err
		}
	}
	return s.errorAt(start, "brackets", "unbalanced '"+string(s.src[start])+"'")
}

// skipExpression steps over an expression that ends at a top-level comma or
// at a closing bracket that belongs to the enclosing literal. It returns the
// offset just past the last significant character.
func (s *scanner) skipExpression() (int, error) {
	start := s.pos
	end := -1
	w := &codeWalker{scanner: s}
	w.prev = '='
	for !s.eof() {
		c := s.peek()
		switch c {
		case ',', ')', ']', '}':
			if end < 0 {
				return 0, s.errorAt(start, "expression", "empty expression")
			}
			return end, nil
		case '(', '[', '{':
			if err := s.skipBalanced(); err != nil {
				return 0, err
			}
			end = s.pos
			w.prev, w.prevWord = 'a', ""
			continue
		}
		next, err := w.step()
		if err != nil {
			return 0, err
		}
		if next >= 0 {
			end = next
		}
	}
	return 0, s.errorAt(start, "expression", "unexpected end of input")
}

func closerOf(c byte) byte {
	switch c {
	case '(':
		return ')'
	case '[':
		return ']'
	default:
		return '}'
	}
}
