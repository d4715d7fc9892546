package syntax

// Node is any element of the statement tree.
type Node interface {
	// Pos returns the byte offset range the node covers in the source text.
	Pos() (start, end int)
}

// Tree is the result of a successful parse: the script plus the full token
// stream it was built from.
type Tree struct {
	Script *Script
	Tokens []Token
}

// Script is the root node: a flat list of top-level statements.
type Script struct {
	Stmts []Node
}

// Pos implements Node.
func (s *Script) Pos() (int, int) {
	if len(s.Stmts) == 0 {
		return 0, 0
	}

	start, _ := s.Stmts[0].Pos()
	_, end := s.Stmts[len(s.Stmts)-1].Pos()

	return start, end
}

// Block is a brace-delimited statement list.
type Block struct {
	Start int // offset of '{'
	End   int // offset just past '}'
	Stmts []Node
}

// Pos implements Node.
func (b *Block) Pos() (int, int) { return b.Start, b.End }

// IfStmt covers if/elseif/else chains. Each branch body nests independently.
type IfStmt struct {
	Keyword  Token
	Body     *Block
	ElseIfs  []*Block
	Else     *Block
	EndWhere int
}

// Pos implements Node.
func (s *IfStmt) Pos() (int, int) { return s.Keyword.StartOffset, s.EndWhere }

// LoopStmt covers while, for, foreach and do loops.
type LoopStmt struct {
	Keyword Token
	Body    *Block
}

// Pos implements Node.
func (s *LoopStmt) Pos() (int, int) {
	_, end := s.Body.Pos()
	return s.Keyword.StartOffset, end
}

// SwitchStmt is a switch with its case-arm blocks.
type SwitchStmt struct {
	Keyword Token
	Body    *Block
	Arms    []*Block
}

// Pos implements Node.
func (s *SwitchStmt) Pos() (int, int) {
	_, end := s.Body.Pos()
	return s.Keyword.StartOffset, end
}

// TryStmt is try/catch/finally.
type TryStmt struct {
	Keyword  Token
	Body     *Block
	Catches  []*Block
	Finally  *Block
	EndWhere int
}

// Pos implements Node.
func (s *TryStmt) Pos() (int, int) { return s.Keyword.StartOffset, s.EndWhere }

// FunctionDecl is a named function definition.
type FunctionDecl struct {
	Keyword Token
	Name    Token
	Body    *Block
}

// Pos implements Node.
func (s *FunctionDecl) Pos() (int, int) {
	_, end := s.Body.Pos()
	return s.Keyword.StartOffset, end
}

// Assignment is `$target = <tokens>`. Value holds the right-hand side up to
// the end of the statement.
type Assignment struct {
	Target Token
	Op     Token
	Value  []Token
}

// Pos implements Node.
func (s *Assignment) Pos() (int, int) {
	end := s.Op.EndOffset
	if len(s.Value) > 0 {
		end = s.Value[len(s.Value)-1].EndOffset
	}

	return s.Target.StartOffset, end
}

// CommandStmt is a command invocation: name plus argument tokens, pipeline
// segments included.
type CommandStmt struct {
	Name Token
	Args []Token
}

// Pos implements Node.
func (s *CommandStmt) Pos() (int, int) {
	end := s.Name.EndOffset
	if len(s.Args) > 0 {
		end = s.Args[len(s.Args)-1].EndOffset
	}

	return s.Name.StartOffset, end
}

// Walk visits every statement node in depth-first order, descending into
// block bodies. The visitor receives the node and its nesting depth relative
// to the script root; returning false stops descent below that node.
func Walk(tree *Tree, visit func(n Node, depth int) bool) {
	if tree == nil || tree.Script == nil {
		return
	}

	var walkStmts func(stmts []Node, depth int)

	walkBlock := func(b *Block, depth int) {
		if b != nil {
			walkStmts(b.Stmts, depth)
		}
	}

	walkStmts = func(stmts []Node, depth int) {
		for _, stmt := range stmts {
			if !visit(stmt, depth) {
				continue
			}

			switch s := stmt.(type) {
			case *IfStmt:
				walkBlock(s.Body, depth+1)
				for _, b := range s.ElseIfs {
					walkBlock(b, depth+1)
				}
				walkBlock(s.Else, depth+1)
			case *LoopStmt:
				walkBlock(s.Body, depth+1)
			case *SwitchStmt:
				walkBlock(s.Body, depth+1)
				for _, b := range s.Arms {
					walkBlock(b, depth+1)
				}
			case *TryStmt:
				walkBlock(s.Body, depth+1)
				for _, b := range s.Catches {
					walkBlock(b, depth+1)
				}
				walkBlock(s.Finally, depth+1)
			case *FunctionDecl:
				walkBlock(s.Body, depth+1)
			}
		}
	}

	walkStmts(tree.Script.Stmts, 0)
}
