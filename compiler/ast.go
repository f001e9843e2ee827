package compiler

// ---------------------------------------------------------------------------
// AST nodes
// ---------------------------------------------------------------------------

// Expr is implemented by every expression node.
type Expr interface {
	Line() int
	expr() // marker method
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Line() int
	stmt() // marker method
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// NumberLiteral is a numeric literal.
type NumberLiteral struct {
	Value float64
	Loc   int
}

// StringLiteral is a string literal.
type StringLiteral struct {
	Value string
	Loc   int
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Value bool
	Loc   int
}

// NilLiteral is the nil literal.
type NilLiteral struct {
	Loc int
}

// Variable is a bare name reference.
type Variable struct {
	Name string
	Loc  int
}

// Assign stores a value into a named variable.
type Assign struct {
	Name  string
	Value Expr
	Loc   int
}

// Unary applies a prefix operator (TokenMinus or TokenBang).
type Unary struct {
	Operator TokenType
	Operand  Expr
	Loc      int
}

// Binary applies an infix operator to two operands.
type Binary struct {
	Operator TokenType
	Left     Expr
	Right    Expr
	Loc      int
}

// Logical is a short-circuiting and/or expression.
type Logical struct {
	Operator TokenType // TokenAnd or TokenOr
	Left     Expr
	Right    Expr
	Loc      int
}

// Call invokes a callee with arguments.
type Call struct {
	Callee    Expr
	Arguments []Expr
	Loc       int // line of the closing parenthesis
}

// Grouping is a parenthesized expression, kept as a node so tooling can
// reproduce source structure.
type Grouping struct {
	Inner Expr
	Loc   int
}

func (n *NumberLiteral) Line() int { return n.Loc }
func (n *StringLiteral) Line() int { return n.Loc }
func (n *BoolLiteral) Line() int   { return n.Loc }
func (n *NilLiteral) Line() int    { return n.Loc }
func (n *Variable) Line() int      { return n.Loc }
func (n *Assign) Line() int        { return n.Loc }
func (n *Unary) Line() int         { return n.Loc }
func (n *Binary) Line() int        { return n.Loc }
func (n *Logical) Line() int       { return n.Loc }
func (n *Call) Line() int          { return n.Loc }
func (n *Grouping) Line() int      { return n.Loc }

func (*NumberLiteral) expr() {}
func (*StringLiteral) expr() {}
func (*BoolLiteral) expr()   {}
func (*NilLiteral) expr()    {}
func (*Variable) expr()      {}
func (*Assign) expr()        {}
func (*Unary) expr()         {}
func (*Binary) expr()        {}
func (*Logical) expr()       {}
func (*Call) expr()          {}
func (*Grouping) expr()      {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// ExprStmt evaluates an expression and discards its value.
type ExprStmt struct {
	Expression Expr
	Loc        int
}

// VarDecl declares a variable, globally at depth zero and locally inside a
// block. A nil initializer means the variable starts as nil.
type VarDecl struct {
	Name        string
	Initializer Expr
	Loc         int
}

// Block is a brace-delimited statement list opening a new scope.
type Block struct {
	Statements []Stmt
	Loc        int
}

// If is a conditional with an optional else branch.
type If struct {
	Condition Expr
	Then      Stmt
	Else      Stmt // nil when absent
	Loc       int
}

// While is a pre-checked loop.
type While struct {
	Condition Expr
	Body      Stmt
	Loc       int
}

// Print evaluates an expression and prints it.
type Print struct {
	Expression Expr
	Loc        int
}

// FunDecl declares a named function.
type FunDecl struct {
	Name       string
	Parameters []string
	Body       []Stmt
	Loc        int
}

// Return exits the enclosing function. A nil value means return nil.
type Return struct {
	Value Expr
	Loc   int
}

func (n *ExprStmt) Line() int { return n.Loc }
func (n *VarDecl) Line() int  { return n.Loc }
func (n *Block) Line() int    { return n.Loc }
func (n *If) Line() int       { return n.Loc }
func (n *While) Line() int    { return n.Loc }
func (n *Print) Line() int    { return n.Loc }
func (n *FunDecl) Line() int  { return n.Loc }
func (n *Return) Line() int   { return n.Loc }

func (*ExprStmt) stmt() {}
func (*VarDecl) stmt()  {}
func (*Block) stmt()    {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*Print) stmt()    {}
func (*FunDecl) stmt()  {}
func (*Return) stmt()   {}
