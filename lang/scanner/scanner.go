// Package scanner tokenizes source text for the parser to consume. It is
// deliberately small: the language has no comments, no strings and no
// floating-point literals, so the whole lexical grammar fits in one file.
package scanner

import (
	"fmt"
	"go/scanner"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/boxlisp/boxlisp/lang/token"
)

type (
	// Error and ErrorList are the diagnostic types produced by the scanner and
	// parser. They are re-exported from the standard library's go/scanner
	// package, which already implements exactly the "collect, sort, print"
	// behavior a small recursive-descent front end needs.
	Error     = scanner.Error
	ErrorList = scanner.ErrorList
)

var PrintError = scanner.PrintError

// Scanner tokenizes a single source file.
type Scanner struct {
	file *token.File
	src  []byte
	err  func(pos token.Position, msg string)

	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset following cur
}

// Init prepares s to scan src, which must be exactly file.Size() bytes.
func (s *Scanner) Init(file *token.File, src []byte, errHandler func(token.Position, string)) {
	if file.Size() != len(src) {
		panic(fmt.Sprintf("file size (%d) does not match src len (%d)", file.Size(), len(src)))
	}
	s.file = file
	s.src = src
	s.err = errHandler
	s.cur = ' '
	s.off = 0
	s.roff = 0
	s.advance()
}

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	if s.cur == '\n' {
		s.file.AddLine(s.off)
	}
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(s.src[s.roff:])
		if r == utf8.RuneError && w == 1 {
			s.errorf(s.off, "illegal UTF-8 encoding")
		}
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) error(off int, msg string) {
	if s.err != nil {
		s.err(s.file.Position(s.file.Pos(off)), msg)
	}
}

func (s *Scanner) errorf(off int, format string, args ...any) {
	s.error(off, fmt.Sprintf(format, args...))
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '!' || r == '-' || r == '?'
}

func (s *Scanner) skipWhitespace() {
	for s.cur == ' ' || s.cur == '\t' || s.cur == '\r' || s.cur == '\n' {
		s.advance()
	}
}

// Scan returns the next token and, for SYMBOL, INT, operators and ILLEGAL,
// its literal text; keywords, parentheses and EOF have an empty literal.
func (s *Scanner) Scan() (pos token.Pos, tok token.Token, lit string) {
	s.skipWhitespace()

	off := s.off
	pos = s.file.Pos(off)

	switch {
	case s.cur < 0:
		return pos, token.EOF, ""

	case s.cur == '(':
		s.advance()
		return pos, token.LPAREN, ""

	case s.cur == ')':
		s.advance()
		return pos, token.RPAREN, ""

	case s.cur == '-' && isDigit(s.peekByte()):
		return s.scanNumber(off)

	case isDigit(byte(s.cur)) && s.cur < utf8.RuneSelf:
		return s.scanNumber(off)

	case isIdentStart(s.cur):
		return s.scanIdentOrKeyword(off)

	case s.cur < utf8.RuneSelf && isOperatorByte(byte(s.cur)):
		b := byte(s.cur)
		s.advance()
		opTok, _ := token.LookupOperator(b)
		return pos, opTok, string(b)

	default:
		r := s.cur
		s.advance()
		s.errorf(off, "illegal character %#U", r)
		return pos, token.ILLEGAL, string(r)
	}
}

func (s *Scanner) peekByte() byte {
	if s.roff < len(s.src) {
		return s.src[s.roff]
	}
	return 0
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isOperatorByte(b byte) bool {
	_, ok := token.LookupOperator(b)
	return ok
}

func (s *Scanner) scanNumber(start int) (token.Pos, token.Token, string) {
	pos := s.file.Pos(start)
	if s.cur == '-' {
		s.advance()
	}
	for isDigit(byte(s.cur)) && s.cur < utf8.RuneSelf {
		s.advance()
	}
	lit := string(s.src[start:s.off])
	if _, err := strconv.ParseInt(lit, 10, 64); err != nil {
		s.errorf(start, "invalid integer literal: %s", lit)
		return pos, token.ILLEGAL, lit
	}
	return pos, token.INT, lit
}

func (s *Scanner) scanIdentOrKeyword(start int) (token.Pos, token.Token, string) {
	pos := s.file.Pos(start)
	for isIdentPart(s.cur) {
		s.advance()
	}
	lit := string(s.src[start:s.off])
	tok := token.Lookup(lit)
	if tok == token.SYMBOL {
		return pos, tok, lit
	}
	return pos, tok, ""
}
