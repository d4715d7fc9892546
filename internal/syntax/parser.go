package syntax

// maxParseNesting caps parser recursion so adversarial input cannot blow the
// stack. Rule-level traversal applies its own, much lower, bound.
const maxParseNesting = 1000

// Parse lexes and parses src. Identical input always yields an identical
// tree. Malformed input returns a *ParseError; the input is never modified.
func Parse(src string) (*Tree, error) {
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: tokens}

	script, err := p.parseScript()
	if err != nil {
		return nil, err
	}

	return &Tree{Script: script, Tokens: tokens}, nil
}

type parser struct {
	tokens []Token
	pos    int
	depth  int
}

func (p *parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}

	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	tok := p.peek()
	if tok.Kind != TokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) errorAt(tok Token, msg string) *ParseError {
	return &ParseError{Line: tok.Line, Column: tok.Column, Msg: msg}
}

// skipTrivia consumes newlines, semicolons and comments between statements.
func (p *parser) skipTrivia() {
	for {
		switch p.peek().Kind {
		case TokenNewline, TokenSemicolon, TokenComment:
			p.next()
		default:
			return
		}
	}
}

func (p *parser) parseScript() (*Script, error) {
	script := &Script{}

	for {
		p.skipTrivia()

		if p.peek().Kind == TokenEOF {
			return script, nil
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}

		if stmt != nil {
			script.Stmts = append(script.Stmts, stmt)
		}
	}
}

func (p *parser) parseStatement() (Node, error) {
	tok := p.peek()

	if tok.Kind == TokenIdent && tok.IsKeyword() {
		switch lowerASCII(tok.Text) {
		case "if":
			return p.parseIf()
		case "while", "for", "foreach", "do":
			return p.parseLoop()
		case "switch":
			return p.parseSwitch()
		case "try":
			return p.parseTry()
		case "function":
			return p.parseFunction()
		}
	}

	if tok.Kind == TokenVariable {
		return p.parseAssignmentOrCommand()
	}

	return p.parseCommand()
}

// parseCondition consumes a parenthesized condition, tracking balance so
// nested parens are fine. There is no expression tree; rules that care about
// conditions read the token stream.
func (p *parser) parseCondition() error {
	tok := p.peek()
	if tok.Kind != TokenLParen {
		return nil
	}

	balance := 0

	for {
		tok = p.next()

		switch tok.Kind {
		case TokenLParen:
			balance++
		case TokenRParen:
			balance--
			if balance == 0 {
				return nil
			}
		case TokenEOF:
			return p.errorAt(tok, "unterminated condition")
		}
	}
}

func (p *parser) parseBlock() (*Block, error) {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > maxParseNesting {
		return nil, p.errorAt(p.peek(), "statement nesting too deep")
	}

	p.skipTrivia()

	open := p.peek()
	if open.Kind != TokenLBrace {
		return nil, p.errorAt(open, "expected '{'")
	}

	p.next()

	block := &Block{Start: open.StartOffset}

	for {
		p.skipTrivia()

		tok := p.peek()

		switch tok.Kind {
		case TokenRBrace:
			p.next()
			block.End = tok.EndOffset

			return block, nil

		case TokenEOF:
			return nil, p.errorAt(open, "unterminated block")

		default:
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, err
			}

			if stmt != nil {
				block.Stmts = append(block.Stmts, stmt)
			}
		}
	}
}

func (p *parser) parseIf() (Node, error) {
	stmt := &IfStmt{Keyword: p.next()}

	if err := p.parseCondition(); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt.Body = body
	_, stmt.EndWhere = body.Pos()

	for {
		p.skipTrivia()

		tok := p.peek()
		if tok.Kind != TokenIdent {
			return stmt, nil
		}

		switch lowerASCII(tok.Text) {
		case "elseif":
			p.next()

			if err := p.parseCondition(); err != nil {
				return nil, err
			}

			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			stmt.ElseIfs = append(stmt.ElseIfs, b)
			_, stmt.EndWhere = b.Pos()

		case "else":
			p.next()

			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			stmt.Else = b
			_, stmt.EndWhere = b.Pos()

			return stmt, nil

		default:
			return stmt, nil
		}
	}
}

func (p *parser) parseLoop() (Node, error) {
	stmt := &LoopStmt{Keyword: p.next()}

	if err := p.parseCondition(); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	// do { } while (...) / do { } until (...)
	if lowerASCII(stmt.Keyword.Text) == "do" {
		p.skipTrivia()

		if trailer := p.peek(); trailer.Kind == TokenIdent {
			switch lowerASCII(trailer.Text) {
			case "while", "until":
				p.next()

				if err := p.parseCondition(); err != nil {
					return nil, err
				}
			}
		}
	}

	return stmt, nil
}

func (p *parser) parseSwitch() (Node, error) {
	stmt := &SwitchStmt{Keyword: p.next()}

	if err := p.parseCondition(); err != nil {
		return nil, err
	}

	p.depth++
	defer func() { p.depth-- }()

	if p.depth > maxParseNesting {
		return nil, p.errorAt(p.peek(), "statement nesting too deep")
	}

	p.skipTrivia()

	open := p.peek()
	if open.Kind != TokenLBrace {
		return nil, p.errorAt(open, "expected '{' after switch")
	}

	p.next()

	stmt.Body = &Block{Start: open.StartOffset}

	// Switch bodies are label/block pairs; labels are arbitrary tokens up to
	// the arm's opening brace.
	for {
		p.skipTrivia()

		tok := p.peek()

		switch tok.Kind {
		case TokenRBrace:
			p.next()
			stmt.Body.End = tok.EndOffset

			return stmt, nil

		case TokenEOF:
			return nil, p.errorAt(open, "unterminated switch body")

		case TokenLBrace:
			arm, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			stmt.Arms = append(stmt.Arms, arm)

		default:
			p.next()
		}
	}
}

func (p *parser) parseTry() (Node, error) {
	stmt := &TryStmt{Keyword: p.next()}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt.Body = body
	_, stmt.EndWhere = body.Pos()

	for {
		p.skipTrivia()

		tok := p.peek()
		if tok.Kind != TokenIdent {
			break
		}

		switch lowerASCII(tok.Text) {
		case "catch":
			p.next()

			// Optional exception type list in brackets is lexed as tokens;
			// skip anything up to the block.
			for p.peek().Kind != TokenLBrace && p.peek().Kind != TokenEOF {
				p.next()
			}

			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			stmt.Catches = append(stmt.Catches, b)
			_, stmt.EndWhere = b.Pos()

		case "finally":
			p.next()

			b, err := p.parseBlock()
			if err != nil {
				return nil, err
			}

			stmt.Finally = b
			_, stmt.EndWhere = b.Pos()

			return stmt, nil

		default:
			return stmt, nil
		}
	}

	if len(stmt.Catches) == 0 && stmt.Finally == nil {
		return nil, p.errorAt(stmt.Keyword, "try without catch or finally")
	}

	return stmt, nil
}

func (p *parser) parseFunction() (Node, error) {
	stmt := &FunctionDecl{Keyword: p.next()}

	name := p.peek()
	if name.Kind != TokenIdent {
		return nil, p.errorAt(name, "expected function name")
	}

	stmt.Name = p.next()

	if err := p.parseCondition(); err != nil { // optional parameter list
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	stmt.Body = body

	return stmt, nil
}

func (p *parser) parseAssignmentOrCommand() (Node, error) {
	target := p.next()

	op := p.peek()
	if op.Kind == TokenOperator && isAssignOp(op.Text) {
		p.next()

		stmt := &Assignment{Target: target, Op: op}

		braceBalance := 0

		for {
			tok := p.peek()

			switch tok.Kind {
			case TokenNewline, TokenSemicolon, TokenEOF:
				if braceBalance == 0 || tok.Kind == TokenEOF {
					return stmt, nil
				}
			case TokenLBrace:
				braceBalance++
			case TokenRBrace:
				if braceBalance == 0 {
					return stmt, nil
				}

				braceBalance--
			}

			stmt.Value = append(stmt.Value, p.next())
		}
	}

	// A variable in command position: treat like a command statement so its
	// argument tokens stay reachable for rules.
	return p.finishCommand(target), nil
}

func (p *parser) parseCommand() (Node, error) {
	return p.finishCommand(p.next()), nil
}

// finishCommand consumes tokens to the end of the statement. Braces end the
// statement only when they close an enclosing block; script blocks passed as
// arguments (ForEach-Object { ... }) are swallowed with balance tracking.
func (p *parser) finishCommand(name Token) Node {
	stmt := &CommandStmt{Name: name}

	braceBalance := 0

	for {
		tok := p.peek()

		switch tok.Kind {
		case TokenNewline, TokenSemicolon, TokenEOF:
			if braceBalance == 0 || tok.Kind == TokenEOF {
				return stmt
			}

			stmt.Args = append(stmt.Args, p.next())

		case TokenLBrace:
			braceBalance++
			stmt.Args = append(stmt.Args, p.next())

		case TokenRBrace:
			if braceBalance == 0 {
				return stmt
			}

			braceBalance--
			stmt.Args = append(stmt.Args, p.next())

		default:
			stmt.Args = append(stmt.Args, p.next())
		}
	}
}

func isAssignOp(text string) bool {
	switch text {
	case "=", "+=", "-=", "*=", "/=", "%=":
		return true
	}

	return false
}
