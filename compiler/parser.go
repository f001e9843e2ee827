package compiler

import (
	"strconv"

	"github.com/cylixlee/ruslox/diagnostic"
)

// ---------------------------------------------------------------------------
// Parser
// ---------------------------------------------------------------------------

// MaxArity is the largest parameter or argument count a call can carry,
// limited by the single-byte argc operand.
const MaxArity = 255

// Parser builds an AST from a token stream. Syntax errors are collected as
// diagnostics; the parser recovers at statement boundaries so one pass
// reports every error in the file.
type Parser struct {
	tokens      []Token
	pos         int
	diagnostics []*diagnostic.Diagnostic
	panicMode   bool // suppress cascaded errors until the next recovery point
	blockDepth  int  // open braces; recovery never eats the '}' that closes one
}

// NewParser creates a parser over a scanned token stream. The stream must
// end with an EOF token, which Scan guarantees.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses a whole program.
func Parse(tokens []Token) ([]Stmt, []*diagnostic.Diagnostic) {
	p := NewParser(tokens)
	var statements []Stmt
	for !p.check(TokenEOF) {
		if stmt := p.declaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}
	return statements, p.diagnostics
}

// ParseExpression parses a single expression followed by EOF. REPL input
// that is a bare expression takes this path so its value can be echoed.
func ParseExpression(tokens []Token) (Expr, []*diagnostic.Diagnostic) {
	p := NewParser(tokens)
	expression := p.expression()
	p.expect(TokenEOF, "expected end of expression")
	return expression, p.diagnostics
}

// ---------------------------------------------------------------------------
// Token cursor
// ---------------------------------------------------------------------------

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	token := p.tokens[p.pos]
	if token.Type != TokenEOF {
		p.pos++
	}
	return token
}

func (p *Parser) check(t TokenType) bool {
	return p.cur().Type == t
}

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// expect consumes the current token if it has the wanted type, otherwise
// records E0006 and enters panic mode.
func (p *Parser) expect(t TokenType, message string) (Token, bool) {
	if p.check(t) {
		return p.advance(), true
	}
	p.errorAtCurrent("E0006", message)
	return p.cur(), false
}

func (p *Parser) errorAtCurrent(code, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	token := p.cur()
	d := diagnostic.Newf(code, "%s, got %s", message, token).WithLine(token.Line)
	if token.Type == TokenEOF {
		d = diagnostic.Newf(code, "%s, got end of input", message).WithLine(token.Line)
	}
	p.diagnostics = append(p.diagnostics, d)
}

// synchronize skips tokens until a likely statement boundary: past a
// semicolon, or before a token that can begin a statement. A '}' is left in
// place while any block is open so the block can close normally.
func (p *Parser) synchronize() {
	p.panicMode = false
	for {
		switch p.cur().Type {
		case TokenEOF:
			return
		case TokenSemicolon:
			p.advance()
			return
		case TokenVar, TokenFun, TokenIf, TokenWhile, TokenPrint, TokenReturn, TokenLBrace:
			return
		case TokenRBrace:
			if p.blockDepth > 0 {
				return
			}
			p.advance()
		case TokenNumber, TokenString, TokenIdentifier, TokenTrue, TokenFalse,
			TokenNil, TokenLParen, TokenMinus, TokenBang:
			// Just past a semicolon is a statement boundary, but only when
			// the current token can begin a statement; stopping on anything
			// else would leave the parser stuck at the same position.
			if p.pos > 0 && p.tokens[p.pos-1].Type == TokenSemicolon {
				return
			}
			p.advance()
		default:
			p.advance()
		}
	}
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() Stmt {
	var stmt Stmt
	switch {
	case p.match(TokenVar):
		stmt = p.varDeclaration()
	case p.match(TokenFun):
		stmt = p.funDeclaration()
	default:
		stmt = p.statement()
	}
	if p.panicMode {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) varDeclaration() Stmt {
	keyword := p.tokens[p.pos-1]
	if !p.check(TokenIdentifier) {
		p.errorAtCurrent("E0007", "expected variable name after 'var'")
		return nil
	}
	name := p.advance()
	var initializer Expr
	if p.match(TokenEqual) {
		initializer = p.expression()
	}
	p.expect(TokenSemicolon, "expected ';' after variable declaration")
	return &VarDecl{Name: name.Lexeme, Initializer: initializer, Loc: keyword.Line}
}

func (p *Parser) funDeclaration() Stmt {
	keyword := p.tokens[p.pos-1]
	name, ok := p.expect(TokenIdentifier, "expected function name after 'fun'")
	if !ok {
		return nil
	}
	p.expect(TokenLParen, "expected '(' after function name")
	var parameters []string
	if !p.check(TokenRParen) {
		for {
			parameter, ok := p.expect(TokenIdentifier, "expected parameter name")
			if !ok {
				return nil
			}
			if len(parameters) >= MaxArity {
				p.errorAtCurrent("E0006", "too many parameters")
				return nil
			}
			parameters = append(parameters, parameter.Lexeme)
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenRParen, "expected ')' after parameters")
	if _, ok := p.expect(TokenLBrace, "expected '{' before function body"); !ok {
		return nil
	}
	body := p.blockStatements()
	return &FunDecl{Name: name.Lexeme, Parameters: parameters, Body: body, Loc: keyword.Line}
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(TokenPrint):
		return p.printStatement()
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	case p.match(TokenLBrace):
		line := p.tokens[p.pos-1].Line
		return &Block{Statements: p.blockStatements(), Loc: line}
	default:
		return p.expressionStatement()
	}
}

// blockStatements parses declarations until the closing brace. The opening
// brace has already been consumed.
func (p *Parser) blockStatements() []Stmt {
	p.blockDepth++
	defer func() { p.blockDepth-- }()

	var statements []Stmt
	for !p.check(TokenRBrace) && !p.check(TokenEOF) {
		if stmt := p.declaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}
	p.expect(TokenRBrace, "expected '}' after block")
	return statements
}

func (p *Parser) printStatement() Stmt {
	keyword := p.tokens[p.pos-1]
	value := p.expression()
	p.expect(TokenSemicolon, "expected ';' after value")
	return &Print{Expression: value, Loc: keyword.Line}
}

func (p *Parser) ifStatement() Stmt {
	keyword := p.tokens[p.pos-1]
	p.expect(TokenLParen, "expected '(' after 'if'")
	condition := p.expression()
	p.expect(TokenRParen, "expected ')' after condition")
	then := p.statement()
	var elseBranch Stmt
	if p.match(TokenElse) {
		elseBranch = p.statement()
	}
	return &If{Condition: condition, Then: then, Else: elseBranch, Loc: keyword.Line}
}

func (p *Parser) whileStatement() Stmt {
	keyword := p.tokens[p.pos-1]
	p.expect(TokenLParen, "expected '(' after 'while'")
	condition := p.expression()
	p.expect(TokenRParen, "expected ')' after condition")
	body := p.statement()
	return &While{Condition: condition, Body: body, Loc: keyword.Line}
}

func (p *Parser) returnStatement() Stmt {
	keyword := p.tokens[p.pos-1]
	var value Expr
	if !p.check(TokenSemicolon) {
		value = p.expression()
	}
	p.expect(TokenSemicolon, "expected ';' after return value")
	return &Return{Value: value, Loc: keyword.Line}
}

func (p *Parser) expressionStatement() Stmt {
	line := p.cur().Line
	expression := p.expression()
	p.expect(TokenSemicolon, "expected ';' after expression")
	return &ExprStmt{Expression: expression, Loc: line}
}

// ---------------------------------------------------------------------------
// Expressions, by descending precedence
// ---------------------------------------------------------------------------

func (p *Parser) expression() Expr {
	return p.assignment()
}

func (p *Parser) assignment() Expr {
	target := p.or()
	if p.match(TokenEqual) {
		equals := p.tokens[p.pos-1]
		value := p.assignment()
		if variable, ok := target.(*Variable); ok {
			return &Assign{Name: variable.Name, Value: value, Loc: equals.Line}
		}
		if !p.panicMode {
			p.panicMode = true
			p.diagnostics = append(p.diagnostics,
				diagnostic.New("E0008", "invalid assignment target").WithLine(equals.Line))
		}
	}
	return target
}

func (p *Parser) or() Expr {
	left := p.and()
	for p.match(TokenOr) {
		operator := p.tokens[p.pos-1]
		right := p.and()
		left = &Logical{Operator: TokenOr, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) and() Expr {
	left := p.equality()
	for p.match(TokenAnd) {
		operator := p.tokens[p.pos-1]
		right := p.equality()
		left = &Logical{Operator: TokenAnd, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) equality() Expr {
	left := p.comparison()
	for p.check(TokenEqualEqual) || p.check(TokenBangEqual) {
		operator := p.advance()
		right := p.comparison()
		left = &Binary{Operator: operator.Type, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) comparison() Expr {
	left := p.term()
	for p.check(TokenGreater) || p.check(TokenGreaterEqual) ||
		p.check(TokenLess) || p.check(TokenLessEqual) {
		operator := p.advance()
		right := p.term()
		left = &Binary{Operator: operator.Type, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) term() Expr {
	left := p.factor()
	for p.check(TokenPlus) || p.check(TokenMinus) {
		operator := p.advance()
		right := p.factor()
		left = &Binary{Operator: operator.Type, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) factor() Expr {
	left := p.unary()
	for p.check(TokenStar) || p.check(TokenSlash) {
		operator := p.advance()
		right := p.unary()
		left = &Binary{Operator: operator.Type, Left: left, Right: right, Loc: operator.Line}
	}
	return left
}

func (p *Parser) unary() Expr {
	if p.check(TokenMinus) || p.check(TokenBang) {
		operator := p.advance()
		operand := p.unary()
		return &Unary{Operator: operator.Type, Operand: operand, Loc: operator.Line}
	}
	return p.call()
}

func (p *Parser) call() Expr {
	callee := p.primary()
	for p.match(TokenLParen) {
		var arguments []Expr
		if !p.check(TokenRParen) {
			for {
				if len(arguments) >= MaxArity {
					p.errorAtCurrent("E0006", "too many arguments")
					return callee
				}
				arguments = append(arguments, p.expression())
				if !p.match(TokenComma) {
					break
				}
			}
		}
		paren, _ := p.expect(TokenRParen, "expected ')' after arguments")
		callee = &Call{Callee: callee, Arguments: arguments, Loc: paren.Line}
	}
	return callee
}

func (p *Parser) primary() Expr {
	token := p.cur()
	switch token.Type {
	case TokenNumber:
		p.advance()
		value, err := strconv.ParseFloat(token.Lexeme, 64)
		if err != nil {
			// The scanner validated the lexeme; a parse failure here means
			// the token stream was built by hand.
			p.errorAtCurrent("E0005", "malformed number literal")
			return nil
		}
		return &NumberLiteral{Value: value, Loc: token.Line}
	case TokenString:
		p.advance()
		return &StringLiteral{Value: token.Lexeme, Loc: token.Line}
	case TokenTrue:
		p.advance()
		return &BoolLiteral{Value: true, Loc: token.Line}
	case TokenFalse:
		p.advance()
		return &BoolLiteral{Value: false, Loc: token.Line}
	case TokenNil:
		p.advance()
		return &NilLiteral{Loc: token.Line}
	case TokenIdentifier:
		p.advance()
		return &Variable{Name: token.Lexeme, Loc: token.Line}
	case TokenLParen:
		p.advance()
		inner := p.expression()
		p.expect(TokenRParen, "expected ')' after expression")
		return &Grouping{Inner: inner, Loc: token.Line}
	}
	p.errorAtCurrent("E0005", "expected expression")
	return nil
}
