// Package syntax parses PowerShell scripts into a token stream and a
// statement tree. The parser covers the subset of the language the rule set
// needs: commands, assignments, and the block constructs that contribute to
// nesting. Parsing is deterministic and never mutates its input.
package syntax

// TokenKind classifies a lexed token.
type TokenKind int

const (
	// TokenEOF terminates every token stream.
	TokenEOF TokenKind = iota
	// TokenNewline is a statement-terminating line break (LF or CRLF).
	TokenNewline
	// TokenIdent is a bare word: command names, parameters, keywords.
	TokenIdent
	// TokenVariable is a $-prefixed variable reference.
	TokenVariable
	// TokenNumber is a numeric literal.
	TokenNumber
	// TokenString is a quoted string literal, quotes included in Text.
	TokenString
	// TokenComment is a line or block comment.
	TokenComment
	// TokenOperator covers assignment, comparison and pipeline operators.
	TokenOperator
	// TokenLBrace and friends are structural punctuation.
	TokenLBrace
	TokenRBrace
	TokenLParen
	TokenRParen
	TokenSemicolon
)

// Token is one lexical element. Offsets are byte offsets into the original
// text; Line and Column are 1-based and agree across LF and CRLF input.
type Token struct {
	Kind        TokenKind
	Text        string
	StartOffset int
	EndOffset   int
	Line        int
	Column      int
}

// keywords that begin block constructs or declarations.
var keywords = map[string]bool{
	"if": true, "elseif": true, "else": true,
	"while": true, "for": true, "foreach": true, "do": true,
	"switch": true, "try": true, "catch": true, "finally": true,
	"function": true, "param": true, "return": true, "until": true,
}

// IsKeyword reports whether the token is one of the recognized keywords.
func (t Token) IsKeyword() bool {
	return t.Kind == TokenIdent && keywords[lowerASCII(t.Text)]
}

// StringValue returns the literal content of a string token with the
// surrounding quotes stripped and quote escapes resolved.
func (t Token) StringValue() string {
	if t.Kind != TokenString || len(t.Text) < 2 {
		return t.Text
	}

	quote := t.Text[0]
	body := t.Text[1 : len(t.Text)-1]

	out := make([]byte, 0, len(body))

	for i := 0; i < len(body); i++ {
		c := body[i]

		// Doubled quotes and backtick escapes collapse to one character.
		if c == quote && i+1 < len(body) && body[i+1] == quote {
			out = append(out, c)
			i++

			continue
		}

		if quote == '"' && c == '`' && i+1 < len(body) {
			out = append(out, body[i+1])
			i++

			continue
		}

		out = append(out, c)
	}

	return string(out)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}

	return string(b)
}
