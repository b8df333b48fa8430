// Package jsontoken turns arriving text fragments into structural JSON
// tokens. Fragment boundaries are unconstrained: a fragment may end in the
// middle of a string, an escape sequence, or a bare literal, and the lexer
// carries the in-progress state over to the next fragment instead of
// reporting an error.
package jsontoken

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type lexState int

const (
	stateNormal  lexState = iota
	stateString           // inside a string literal
	stateEscape           // after a backslash inside a string
	stateUnicode          // collecting the 4 hex digits of \uXXXX
)

// frame tracks container context so the lexer can tell property names from
// string values. expectKey is meaningful for object frames only.
type frame struct {
	object    bool
	expectKey bool
}

// Lexer converts text fragments into Tokens. One Lexer serves one document;
// use Reset before reuse.
type Lexer struct {
	strict bool // drop raw newlines inside strings

	state     lexState
	frames    []frame
	str       []byte // decoded string content in progress
	hex       []byte // pending \u hex digits
	surrogate rune   // pending UTF-16 high surrogate, 0 when none
	lit       []byte // bare literal (number/true/false/null) in progress
}

// New creates a lexer. strict=false is the right choice for LLM output,
// which routinely contains raw newlines inside strings.
func New(strict bool) *Lexer {
	return &Lexer{strict: strict}
}

// Reset clears all carried state so the lexer can serve a new document.
func (l *Lexer) Reset() {
	l.state = stateNormal
	l.frames = l.frames[:0]
	l.str = l.str[:0]
	l.hex = l.hex[:0]
	l.surrogate = 0
	l.lit = l.lit[:0]
}

// Feed consumes one text fragment and returns the structural tokens it
// completes. Incomplete literals and strings stay buffered; Feed never
// fails on input that may simply not have arrived yet.
func (l *Lexer) Feed(fragment string) []Token {
	var toks []Token
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]

		switch l.state {
		case stateUnicode:
			if isHex(c) {
				l.hex = append(l.hex, c)
				if len(l.hex) == 4 {
					l.endUnicode()
				}
				continue
			}
			// Not a valid escape after all; keep the text literally.
			l.str = append(l.str, 'u')
			l.str = append(l.str, l.hex...)
			l.hex = l.hex[:0]
			l.state = stateString
			i-- // reprocess as string content
			continue

		case stateEscape:
			l.state = stateString
			switch c {
			case '"', '\\', '/':
				l.str = append(l.str, c)
			case 'n':
				l.str = append(l.str, '\n')
			case 't':
				l.str = append(l.str, '\t')
			case 'r':
				l.str = append(l.str, '\r')
			case 'b':
				l.str = append(l.str, '\b')
			case 'f':
				l.str = append(l.str, '\f')
			case 'u':
				l.hex = l.hex[:0]
				l.state = stateUnicode
			default:
				// Unknown escape: keep the character as-is.
				l.str = append(l.str, c)
			}
			continue

		case stateString:
			switch c {
			case '\\':
				l.state = stateEscape
			case '"':
				toks = append(toks, l.endString(true))
				l.state = stateNormal
			default:
				if c == '\n' && l.strict {
					continue
				}
				l.str = append(l.str, c)
			}
			continue
		}

		// stateNormal
		switch c {
		case ' ', '\t', '\n', '\r':
			toks = l.endLiteral(toks)
		case '{':
			toks = l.endLiteral(toks)
			toks = append(toks, Token{Kind: ObjectStart, Valid: true})
			l.frames = append(l.frames, frame{object: true, expectKey: true})
		case '}':
			toks = l.endLiteral(toks)
			toks = append(toks, Token{Kind: ObjectEnd, Valid: true})
			l.pop()
		case '[':
			toks = l.endLiteral(toks)
			toks = append(toks, Token{Kind: ArrayStart, Valid: true})
			l.frames = append(l.frames, frame{})
		case ']':
			toks = l.endLiteral(toks)
			toks = append(toks, Token{Kind: ArrayEnd, Valid: true})
			l.pop()
		case '"':
			toks = l.endLiteral(toks)
			l.str = l.str[:0]
			l.state = stateString
		case ':':
			// Expect-value signal: the string just seen was a key.
			toks = l.endLiteral(toks)
			if n := len(l.frames); n > 0 && l.frames[n-1].object {
				l.frames[n-1].expectKey = false
			}
		case ',':
			// Value-complete signal. A ',' immediately followed by '}' or
			// ']' must not produce a phantom value, so nothing is emitted
			// here beyond a buffered literal.
			toks = l.endLiteral(toks)
			if n := len(l.frames); n > 0 && l.frames[n-1].object {
				l.frames[n-1].expectKey = true
			}
		default:
			l.lit = append(l.lit, c)
		}
	}
	return toks
}

// Flush resolves whatever is still buffered at end of stream: an
// unterminated string becomes a value marked incomplete, a decidable
// literal prefix (e.g. "tru", "12.") is completed, and anything
// unresolvable becomes an invalid null token. An incomplete property key
// is discarded, matching the rule that a key is only real once its string
// closes.
func (l *Lexer) Flush() []Token {
	var toks []Token
	switch l.state {
	case stateString, stateEscape, stateUnicode:
		if l.state == stateUnicode {
			l.str = append(l.str, 'u')
			l.str = append(l.str, l.hex...)
			l.hex = l.hex[:0]
		}
		tok := l.endString(false)
		l.state = stateNormal
		if tok.Kind == Value {
			toks = append(toks, tok)
		}
	case stateNormal:
		toks = l.flushLiteral(toks)
	}
	return toks
}

// Depth returns the number of containers currently open.
func (l *Lexer) Depth() int {
	return len(l.frames)
}

func (l *Lexer) pop() {
	if n := len(l.frames); n > 0 {
		l.frames = l.frames[:n-1]
	}
}

// endString finishes the string in progress. Keys get a Property token,
// everything else a Value token. complete=false marks tokens cut off by
// the end of the stream.
func (l *Lexer) endString(complete bool) Token {
	if l.surrogate != 0 {
		l.str = utf8.AppendRune(l.str, utf8.RuneError)
		l.surrogate = 0
	}
	s := string(l.str)
	l.str = l.str[:0]
	if n := len(l.frames); n > 0 && l.frames[n-1].object && l.frames[n-1].expectKey {
		return Token{Kind: Property, Name: s, Valid: complete}
	}
	return Token{Kind: Value, Value: s, Valid: complete}
}

// endLiteral emits the buffered bare literal, if any. It is only called
// when a delimiter terminated the literal, so an unparseable literal here
// is genuinely malformed rather than incomplete.
func (l *Lexer) endLiteral(toks []Token) []Token {
	if len(l.lit) == 0 {
		return toks
	}
	v, ok := parseLiteral(string(l.lit))
	l.lit = l.lit[:0]
	if !ok {
		return append(toks, Token{Kind: Value, Value: nil, Valid: false, Malformed: true})
	}
	return append(toks, Token{Kind: Value, Value: v, Valid: true})
}

// flushLiteral resolves a literal cut off by end of stream. Only a
// literal that is complete under JSON grammar counts as valid here:
// strconv accepts forms like "12." that really mean more digits were
// coming, so completeness is checked separately.
func (l *Lexer) flushLiteral(toks []Token) []Token {
	if len(l.lit) == 0 {
		return toks
	}
	s := string(l.lit)
	l.lit = l.lit[:0]

	if v, ok := parseLiteral(s); ok && completeLiteral(s) {
		return append(toks, Token{Kind: Value, Value: v, Valid: true})
	}
	// Prefix of a keyword literal: complete it.
	for _, kw := range []string{"true", "false", "null"} {
		if strings.HasPrefix(kw, s) {
			v, _ := parseLiteral(kw)
			return append(toks, Token{Kind: Value, Value: v, Valid: false})
		}
	}
	// Truncated number: drop trailing characters that only make sense with
	// more digits coming ("12.", "1e", "1e+", "-").
	trimmed := strings.TrimRight(s, ".eE+-")
	if trimmed == "" {
		return append(toks, Token{Kind: Value, Value: float64(0), Valid: false})
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return append(toks, Token{Kind: Value, Value: f, Valid: false})
	}
	return append(toks, Token{Kind: Value, Value: nil, Valid: false, Malformed: true})
}

func (l *Lexer) endUnicode() {
	n, _ := strconv.ParseUint(string(l.hex), 16, 32)
	l.hex = l.hex[:0]
	l.state = stateString
	r := rune(n)

	if l.surrogate != 0 {
		if utf16.IsSurrogate(r) {
			if combined := utf16.DecodeRune(l.surrogate, r); combined != utf8.RuneError {
				l.surrogate = 0
				l.str = utf8.AppendRune(l.str, combined)
				return
			}
		}
		// Orphan high surrogate.
		l.str = utf8.AppendRune(l.str, utf8.RuneError)
		l.surrogate = 0
	}
	if utf16.IsSurrogate(r) {
		if r >= 0xD800 && r < 0xDC00 {
			l.surrogate = r // wait for the low half
			return
		}
		r = utf8.RuneError // orphan low surrogate
	}
	l.str = utf8.AppendRune(l.str, r)
}

func parseLiteral(s string) (any, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// completeLiteral reports whether s is a whole literal under JSON
// grammar: a keyword, or a number with nothing left dangling.
func completeLiteral(s string) bool {
	switch s {
	case "true", "false", "null":
		return true
	}
	return jsonNumber(s)
}

// jsonNumber checks s against the JSON number grammar.
func jsonNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i >= len(s) || !isDigit(s[i]) {
			return false
		}
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	return i == len(s)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
