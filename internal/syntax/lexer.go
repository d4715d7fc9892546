package syntax

import (
	"fmt"
	"strings"
)

// ParseError reports malformed input with the position of the failure. It is
// recoverable: callers skip detection for the file and continue the batch.
type ParseError struct {
	Line   int
	Column int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg)
}

type lexer struct {
	src    string
	offset int
	line   int
	column int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, column: 1}
}

// Tokenize lexes the whole input. The returned slice always ends with a
// TokenEOF entry.
func Tokenize(src string) ([]Token, error) {
	lx := newLexer(src)

	var tokens []Token

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		tokens = append(tokens, tok)

		if tok.Kind == TokenEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) errorf(format string, args ...any) *ParseError {
	return &ParseError{Line: lx.line, Column: lx.column, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peek() byte {
	if lx.offset >= len(lx.src) {
		return 0
	}

	return lx.src[lx.offset]
}

func (lx *lexer) peekAt(n int) byte {
	if lx.offset+n >= len(lx.src) {
		return 0
	}

	return lx.src[lx.offset+n]
}

// advance consumes one byte, keeping line/column bookkeeping correct for
// both LF and CRLF line endings. A CR that is part of CRLF does not count as
// a column.
func (lx *lexer) advance() {
	c := lx.src[lx.offset]
	lx.offset++

	if c == '\n' {
		lx.line++
		lx.column = 1

		return
	}

	if c == '\r' && lx.peek() == '\n' {
		return
	}

	lx.column++
}

func (lx *lexer) token(kind TokenKind, startOffset, startLine, startColumn int) Token {
	return Token{
		Kind:        kind,
		Text:        lx.src[startOffset:lx.offset],
		StartOffset: startOffset,
		EndOffset:   lx.offset,
		Line:        startLine,
		Column:      startColumn,
	}
}

func (lx *lexer) next() (Token, error) {
	lx.skipSpaces()

	start, line, col := lx.offset, lx.line, lx.column

	c := lx.peek()

	switch {
	case c == 0:
		return Token{Kind: TokenEOF, StartOffset: start, EndOffset: start, Line: line, Column: col}, nil

	case c == '\n' || (c == '\r' && lx.peekAt(1) == '\n'):
		lx.advance()
		if c == '\r' {
			lx.advance()
		}

		return lx.token(TokenNewline, start, line, col), nil

	case c == '#':
		lx.consumeLineComment()
		return lx.token(TokenComment, start, line, col), nil

	case c == '<' && lx.peekAt(1) == '#':
		if err := lx.consumeBlockComment(); err != nil {
			return Token{}, err
		}

		return lx.token(TokenComment, start, line, col), nil

	case c == '\'' || c == '"':
		if err := lx.consumeString(c); err != nil {
			return Token{}, err
		}

		return lx.token(TokenString, start, line, col), nil

	case c == '$':
		lx.consumeVariable()
		return lx.token(TokenVariable, start, line, col), nil

	case c == '{':
		lx.advance()
		return lx.token(TokenLBrace, start, line, col), nil

	case c == '}':
		lx.advance()
		return lx.token(TokenRBrace, start, line, col), nil

	case c == '(':
		lx.advance()
		return lx.token(TokenLParen, start, line, col), nil

	case c == ')':
		lx.advance()
		return lx.token(TokenRParen, start, line, col), nil

	case c == ';':
		lx.advance()
		return lx.token(TokenSemicolon, start, line, col), nil

	case isDigit(c):
		lx.consumeNumber()
		return lx.token(TokenNumber, start, line, col), nil

	case c == '-' && isAlpha(lx.peekAt(1)):
		// Named operators and switches: -eq, -ne, -AsPlainText, ...
		lx.advance()
		lx.consumeWord()

		return lx.token(TokenOperator, start, line, col), nil

	case c == '-':
		lx.advance()
		lx.consumeOperator()

		return lx.token(TokenOperator, start, line, col), nil

	case isOperatorByte(c):
		lx.consumeOperator()
		return lx.token(TokenOperator, start, line, col), nil

	case isWordByte(c):
		lx.consumeWord()
		return lx.token(TokenIdent, start, line, col), nil

	default:
		return Token{}, lx.errorf("unexpected character %q", string(c))
	}
}

// skipSpaces consumes horizontal whitespace, a stray CR not followed by LF,
// and backtick line continuations.
func (lx *lexer) skipSpaces() {
	for {
		c := lx.peek()

		if c == ' ' || c == '\t' {
			lx.advance()
			continue
		}

		if c == '\r' && lx.peekAt(1) != '\n' {
			lx.advance()
			continue
		}

		if c == '`' && (lx.peekAt(1) == '\n' || (lx.peekAt(1) == '\r' && lx.peekAt(2) == '\n')) {
			lx.advance()
			lx.advance()

			if lx.src[lx.offset-1] == '\r' {
				lx.advance()
			}

			continue
		}

		return
	}
}

func (lx *lexer) consumeLineComment() {
	for lx.peek() != 0 && lx.peek() != '\n' && !(lx.peek() == '\r' && lx.peekAt(1) == '\n') {
		lx.advance()
	}
}

func (lx *lexer) consumeBlockComment() error {
	lx.advance() // <
	lx.advance() // #

	for lx.peek() != 0 {
		if lx.peek() == '#' && lx.peekAt(1) == '>' {
			lx.advance()
			lx.advance()

			return nil
		}

		lx.advance()
	}

	return lx.errorf("unterminated block comment")
}

func (lx *lexer) consumeString(quote byte) error {
	lx.advance() // opening quote

	for lx.peek() != 0 {
		c := lx.peek()

		if c == '`' && quote == '"' {
			lx.advance()
			if lx.peek() != 0 {
				lx.advance()
			}

			continue
		}

		if c == quote {
			// A doubled quote is an escaped quote, not the terminator.
			if lx.peekAt(1) == quote {
				lx.advance()
				lx.advance()

				continue
			}

			lx.advance()

			return nil
		}

		lx.advance()
	}

	return lx.errorf("unterminated string literal")
}

func (lx *lexer) consumeVariable() {
	lx.advance() // $

	if lx.peek() == '{' {
		for lx.peek() != 0 && lx.peek() != '}' {
			lx.advance()
		}

		if lx.peek() == '}' {
			lx.advance()
		}

		return
	}

	for isWordByte(lx.peek()) || lx.peek() == ':' {
		lx.advance()
	}
}

func (lx *lexer) consumeNumber() {
	for isDigit(lx.peek()) || lx.peek() == '.' || lx.peek() == 'x' ||
		(lx.peek() >= 'a' && lx.peek() <= 'f') || (lx.peek() >= 'A' && lx.peek() <= 'F') {
		lx.advance()
	}
}

func (lx *lexer) consumeWord() {
	for isWordByte(lx.peek()) {
		lx.advance()
	}
}

func (lx *lexer) consumeOperator() {
	for isOperatorByte(lx.peek()) {
		lx.advance()
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordByte(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_' || c == '-' || c == '.' || c == '\\' || c == '/'
}

func isOperatorByte(c byte) bool {
	return strings.IndexByte("=+*/%|&<>!,.@?", c) >= 0
}
