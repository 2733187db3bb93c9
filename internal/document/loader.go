package document

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var exportPattern = regexp.MustCompile(`(?m)^\s*export\s+const\s+config\s*=`)

// Load parses the object literal exported as `config` from src into an
// object node. Nothing in src is executed; function values are captured as
// their exact source text. Code before and after the export statement is
// ignored. Any value that cannot be classified fails with a parse error.
func Load(src string) (*Node, error) {
	loc := exportPattern.FindStringIndex(src)
	if loc == nil {
		s := &scanner{src: src}
		return nil, s.errorAt(0, "export", "no `export const config = { ... }` statement found")
	}

	p := &parser{scanner{src: src, pos: loc[1]}}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() != '{' {
		return nil, p.errorAt(p.pos, "export", "config must be an object literal")
	}
	root, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	end := p.pos
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if !p.eof() && p.peek() != ';' && !strings.Contains(src[end:p.pos], "\n") {
		return nil, p.errorAt(p.pos, "expression", "unexpected text after config object")
	}
	return root, nil
}

type parser struct {
	scanner
}

func (p *parser) parseObject() (*Node, error) {
	open := p.pos
	p.pos++
	obj := NewObject()
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, p.errorAt(open, "object", "unterminated object literal")
		}
		if p.peek() == '}' {
			p.pos++
			return obj, nil
		}
		if err := p.parseMember(obj); err != nil {
			return nil, err
		}
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorAt(p.pos, "expression", "expected ',' or '}' after object member")
		}
	}
}

func (p *parser) parseMember(obj *Node) error {
	start := p.pos
	if p.hasPrefix("...") {
		return p.errorAt(start, "spread", "spread members are not supported")
	}

	// Accessor, async and generator modifiers only make sense on methods.
	modified := false
	if p.peek() == '*' {
		p.pos++
		modified = true
		if err := p.skipSpace(); err != nil {
			return err
		}
	} else if p.atIdentStart() {
		save := p.pos
		word := p.readIdent()
		if word == "async" || word == "get" || word == "set" {
			if err := p.skipSpace(); err != nil {
				return err
			}
			if c := p.peek(); c != ':' && c != '(' && c != ',' && c != '}' {
				modified = true
				if p.peek() == '*' {
					p.pos++
					if err := p.skipSpace(); err != nil {
						return err
					}
				}
			} else {
				p.pos = save
			}
		} else {
			p.pos = save
		}
	}

	keyPos := p.pos
	name, err := p.parseKey()
	if err != nil {
		return err
	}
	if err := p.skipSpace(); err != nil {
		return err
	}

	switch c := p.peek(); {
	case c == ':' && !modified:
		p.pos++
		if err := p.skipSpace(); err != nil {
			return err
		}
		value, err := p.parseValue()
		if err != nil {
			return err
		}
		obj.Set(name, value)
		return nil
	case c == '(':
		if err := p.skipBalanced(); err != nil {
			return err
		}
		if err := p.skipSpace(); err != nil {
			return err
		}
		if p.peek() != '{' {
			return p.errorAt(p.pos, "method", "expected method body")
		}
		if err := p.skipBalanced(); err != nil {
			return err
		}
		fn := NewFunction(p.src[start:p.pos])
		fn.Method = true
		obj.Set(name, fn)
		return nil
	case c == ',' || c == '}':
		return p.errorAt(keyPos, "shorthand property", "shorthand property `"+name+"` references a variable")
	default:
		return p.errorAt(p.pos, "object member", "expected ':' after property name `"+name+"`")
	}
}

func (p *parser) parseKey() (string, error) {
	c := p.peek()
	switch {
	case c == '"' || c == '\'':
		return p.parseQuoted()
	case c == '[':
		return "", p.errorAt(p.pos, "computed key", "computed property names are not supported")
	case c >= '0' && c <= '9' || c == '.':
		start := p.pos
		f, err := p.parseNumberLiteral()
		if err != nil {
			return "", err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", p.errorAt(start, "number", "numeric key out of range")
		}
		return FormatNumber(f), nil
	case p.atIdentStart():
		return p.readIdent(), nil
	default:
		return "", p.errorAt(p.pos, "object member", "unexpected character "+strconv.QuoteRune(p.currentRune())+" in object literal")
	}
}

func (p *parser) currentRune() rune {
	r, _ := utf8.DecodeRuneInString(p.src[p.pos:])
	return r
}

func (p *parser) parseValue() (*Node, error) {
	if p.eof() {
		return nil, p.errorAt(p.pos, "value", "unexpected end of input")
	}
	start := p.pos
	c := p.peek()
	switch {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"' || c == '\'':
		s, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case c == '`':
		s, err := p.parseTemplateString()
		if err != nil {
			return nil, err
		}
		return NewString(s), nil
	case c == '-' || c == '+':
		p.pos++
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if d := p.peek(); !(d >= '0' && d <= '9' || d == '.') {
			return nil, p.errorAt(start, "unary expression", "unary operator applied to a non-number")
		}
		f, err := p.parseNumberLiteral()
		if err != nil {
			return nil, err
		}
		if c == '-' {
			f = -f
		}
		return NewNumber(f), nil
	case c >= '0' && c <= '9' || c == '.':
		f, err := p.parseNumberLiteral()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil
	case c == '(':
		return p.parseParenArrow(start)
	case p.atIdentStart():
		return p.parseWord(start)
	default:
		return nil, p.errorAt(start, "value", "unexpected character "+strconv.QuoteRune(p.currentRune()))
	}
}

func (p *parser) parseWord(start int) (*Node, error) {
	word := p.readIdent()
	switch word {
	case "true":
		return NewBool(true), nil
	case "false":
		return NewBool(false), nil
	case "null":
		return NewNull(), nil
	case "function":
		return p.parseFunctionRest(start)
	case "async":
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.hasPrefix("function") {
			p.readIdent()
			return p.parseFunctionRest(start)
		}
		if p.peek() == '(' {
			return p.parseParenArrow(start)
		}
		if p.atIdentStart() {
			p.readIdent()
			return p.parseArrowRest(start, "async")
		}
		return nil, p.errorAt(start, "identifier", "unsupported identifier reference `async`")
	}

	save := p.pos
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.hasPrefix("=>") {
		return p.parseArrowRest(start, word)
	}
	p.pos = save
	return nil, p.errorAt(start, "identifier", "unsupported identifier reference `"+word+"`")
}

// parseFunctionRest parses a function expression after its `function` keyword.
func (p *parser) parseFunctionRest(start int) (*Node, error) {
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() == '*' {
		p.pos++
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
	}
	if p.atIdentStart() {
		p.readIdent()
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
	}
	if p.peek() != '(' {
		return nil, p.errorAt(p.pos, "function", "expected parameter list")
	}
	if err := p.skipBalanced(); err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() != '{' {
		return nil, p.errorAt(p.pos, "function", "expected function body")
	}
	if err := p.skipBalanced(); err != nil {
		return nil, err
	}
	return NewFunction(p.src[start:p.pos]), nil
}

// parseParenArrow parses `(params) => body`; anything else in parentheses
// is an expression the loader does not evaluate.
func (p *parser) parseParenArrow(start int) (*Node, error) {
	if err := p.skipBalanced(); err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if !p.hasPrefix("=>") {
		return nil, p.errorAt(start, "parenthesized expression", "parenthesized expressions are not supported")
	}
	return p.parseArrowRest(start, "(")
}

// parseArrowRest parses from `=>` to the end of an arrow function body.
func (p *parser) parseArrowRest(start int, head string) (*Node, error) {
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if !p.hasPrefix("=>") {
		return nil, p.errorAt(p.pos, "arrow function", "expected '=>' after `"+head+"`")
	}
	p.pos += 2
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() == '{' {
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
		return NewFunction(p.src[start:p.pos]), nil
	}
	end, err := p.skipExpression()
	if err != nil {
		return nil, err
	}
	return NewFunction(p.src[start:end]), nil
}

func (p *parser) parseArray() (*Node, error) {
	open := p.pos
	p.pos++
	list := NewList()
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, p.errorAt(open, "array", "unterminated array literal")
		}
		switch {
		case p.peek() == ']':
			p.pos++
			return list, nil
		case p.peek() == ',':
			return nil, p.errorAt(p.pos, "array hole", "empty array elements are not supported")
		case p.hasPrefix("..."):
			return nil, p.errorAt(p.pos, "spread", "spread elements are not supported")
		}
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, item)
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
		default:
			return nil, p.errorAt(p.pos, "expression", "expected ',' or ']' after array element")
		}
	}
}

// parseQuoted decodes a single or double quoted string literal.
func (p *parser) parseQuoted() (string, error) {
	start := p.pos
	quote := p.peek()
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorAt(start, "string", "unterminated string literal")
		}
		c := p.peek()
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n' || c == '\r':
			return "", p.errorAt(start, "string", "unterminated string literal")
		case c == '\\':
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

// parseTemplateString decodes a template literal without substitutions.
func (p *parser) parseTemplateString() (string, error) {
	start := p.pos
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorAt(start, "template literal", "unterminated template literal")
		}
		c := p.peek()
		switch {
		case c == '`':
			p.pos++
			return b.String(), nil
		case c == '$' && p.peekAt(1) == '{':
			return "", p.errorAt(p.pos, "template literal", "template substitutions are not supported")
		case c == '\\':
			if err := p.parseEscape(&b); err != nil {
				return "", err
			}
		case c == '\r':
			// Template literals normalise CRLF and CR to LF.
			p.pos++
			if p.peek() == '\n' {
				p.pos++
			}
			b.WriteByte('\n')
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *parser) parseEscape(b *strings.Builder) error {
	start := p.pos
	p.pos++ // backslash
	if p.eof() {
		return p.errorAt(start, "string", "unterminated escape sequence")
	}
	c := p.peek()
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		if d := p.peek(); d >= '0' && d <= '9' {
			return p.errorAt(start, "string", "octal escape sequences are not supported")
		}
		b.WriteByte(0)
	case '\r':
		if p.peek() == '\n' {
			p.pos++
		}
	case '\n':
	case 'x':
		v, err := p.hexDigits(2)
		if err != nil {
			return err
		}
		b.WriteRune(rune(v))
	case 'u':
		r, err := p.unicodeEscape()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) && p.hasPrefix(`\u`) {
			save := p.pos
			p.pos += 2
			low, err := p.unicodeEscape()
			if err == nil {
				if combined := utf16.DecodeRune(r, low); combined != utf8.RuneError {
					b.WriteRune(combined)
					return nil
				}
			}
			p.pos = save
		}
		b.WriteRune(r)
	default:
		p.pos--
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
		// U+2028 and U+2029 act as line continuations like \n.
		if r != '\u2028' && r != '\u2029' {
			b.WriteRune(r)
		}
	}
	return nil
}

// unicodeEscape reads the part of a \u escape that follows the `u`.
func (p *parser) unicodeEscape() (rune, error) {
	if p.peek() == '{' {
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 2 {
			return 0, p.errorAt(p.pos, "string", "malformed \\u{...} escape")
		}
		v, err := strconv.ParseUint(p.src[p.pos+1:p.pos+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, p.errorAt(p.pos, "string", "malformed \\u{...} escape")
		}
		p.pos += end + 1
		return rune(v), nil
	}
	v, err := p.hexDigits(4)
	return rune(v), err
}

func (p *parser) hexDigits(n int) (uint64, error) {
	if p.pos+n > len(p.src) {
		return 0, p.errorAt(p.pos, "string", "malformed escape sequence")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil {
		return 0, p.errorAt(p.pos, "string", "malformed escape sequence")
	}
	p.pos += n
	return v, nil
}

// parseNumberLiteral reads an unsigned numeric literal.
func (p *parser) parseNumberLiteral() (float64, error) {
	start := p.pos
	var f float64

	if p.peek() == '0' && strings.ContainsRune("xXoObB", rune(p.peekAt(1))) {
		base := 16
		switch p.peekAt(1) {
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		p.pos += 2
		digitsStart := p.pos
		for !p.eof() && (isHexDigit(p.peek()) || p.peek() == '_') {
			p.pos++
		}
		v, err := strconv.ParseUint(strings.ReplaceAll(p.src[digitsStart:p.pos], "_", ""), base, 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, p.errorAt(start, "number", "number literal out of range")
		}
		if err != nil {
			return 0, p.errorAt(start, "number", "malformed number literal")
		}
		f = float64(v)
	} else {
		for !p.eof() && (isDigit(p.peek()) || p.peek() == '_') {
			p.pos++
		}
		if p.peek() == '.' {
			p.pos++
			for !p.eof() && (isDigit(p.peek()) || p.peek() == '_') {
				p.pos++
			}
		}
		if c := p.peek(); c == 'e' || c == 'E' {
			p.pos++
			if c := p.peek(); c == '+' || c == '-' {
				p.pos++
			}
			for !p.eof() && isDigit(p.peek()) {
				p.pos++
			}
		}
		text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
		v, err := strconv.ParseFloat(text, 64)
		if errors.Is(err, strconv.ErrRange) {
			return 0, p.errorAt(start, "number", "number literal out of range")
		}
		if err != nil {
			return 0, p.errorAt(start, "number", "malformed number literal")
		}
		f = v
	}

	if p.peek() == 'n' {
		return 0, p.errorAt(start, "bigint", "BigInt literals are not supported")
	}
	if p.atIdentStart() || isDigit(p.peek()) {
		return 0, p.errorAt(start, "number", "malformed number literal")
	}
	return f, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
