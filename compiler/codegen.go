package compiler

import (
	"math"

	"github.com/cylixlee/ruslox/diagnostic"
	"github.com/cylixlee/ruslox/vm"
)

// ---------------------------------------------------------------------------
// Code generator
// ---------------------------------------------------------------------------

// MaxLocals is the number of local slots addressable by a single-byte
// operand within one function.
const MaxLocals = 256

// local is one compile-time local variable slot.
type local struct {
	name        string
	depth       int
	initialized bool // false while the initializer is being compiled
	captured    bool // true if some nested function closes over it
}

// funcContext tracks code generation state for one function. Contexts form
// a chain mirroring lexical nesting; the bottom of the chain is the
// implicit script function.
type funcContext struct {
	enclosing  *funcContext
	fn         *vm.Function
	locals     []local
	scopeDepth int
}

func newFuncContext(enclosing *funcContext, name string) *funcContext {
	ctx := &funcContext{
		enclosing: enclosing,
		fn:        &vm.Function{Name: name, Chunk: vm.NewChunk()},
	}
	// Slot 0 holds the callee at runtime; reserve it so user locals start
	// at slot 1.
	ctx.locals = append(ctx.locals, local{initialized: true})
	return ctx
}

// Codegen translates an AST into bytecode in a single pass. Local slots are
// resolved statically; only globals are looked up by name at runtime.
type Codegen struct {
	current     *funcContext
	diagnostics []*diagnostic.Diagnostic
}

// Compile generates a chunk for a whole program. The chunk is only usable
// when the diagnostic slice is empty.
func Compile(statements []Stmt) (*vm.Chunk, []*diagnostic.Diagnostic) {
	c := &Codegen{current: newFuncContext(nil, "")}
	for _, statement := range statements {
		c.genStmt(statement)
	}
	line := 0
	if n := len(statements); n > 0 {
		line = statements[n-1].Line()
	}
	c.chunk().Emit(vm.OpNil, line)
	c.chunk().Emit(vm.OpReturn, line)
	return c.chunk(), c.diagnostics
}

// CompileExpression generates a chunk that evaluates one expression and
// returns its value. REPL input that is a bare expression takes this path.
func CompileExpression(expression Expr) (*vm.Chunk, []*diagnostic.Diagnostic) {
	c := &Codegen{current: newFuncContext(nil, "")}
	c.genExpr(expression)
	line := 0
	if expression != nil {
		line = expression.Line()
	}
	c.chunk().Emit(vm.OpReturn, line)
	return c.chunk(), c.diagnostics
}

func (c *Codegen) chunk() *vm.Chunk {
	return c.current.fn.Chunk
}

func (c *Codegen) report(d *diagnostic.Diagnostic) {
	c.diagnostics = append(c.diagnostics, d)
}

// makeConstant interns a constant in the current chunk's pool.
func (c *Codegen) makeConstant(constant vm.Constant, line int) byte {
	index, err := c.chunk().AddConstant(constant)
	if err != nil {
		c.report(err.WithLine(line))
		return 0
	}
	return index
}

func (c *Codegen) nameConstant(name string, line int) byte {
	return c.makeConstant(vm.StringConstant(name), line)
}

// ---------------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------------

func (c *Codegen) beginScope() {
	c.current.scopeDepth++
}

// endScope discards the locals of the closing scope. Captured slots are
// closed into their cells; plain slots are popped.
func (c *Codegen) endScope(line int) {
	ctx := c.current
	ctx.scopeDepth--
	for len(ctx.locals) > 0 {
		last := ctx.locals[len(ctx.locals)-1]
		if last.depth <= ctx.scopeDepth {
			break
		}
		if last.captured {
			c.chunk().Emit(vm.OpCloseCell, line)
		} else {
			c.chunk().Emit(vm.OpPop, line)
		}
		ctx.locals = ctx.locals[:len(ctx.locals)-1]
	}
}

// declareLocal reserves a slot for a new local. The slot stays
// uninitialized while the initializer is compiled, so the initializer
// resolves the name against enclosing bindings instead of itself.
func (c *Codegen) declareLocal(name string, line int) {
	ctx := c.current
	if len(ctx.locals) >= MaxLocals {
		c.report(diagnostic.New("E0010", "too many local variables in function").WithLine(line))
		return
	}
	ctx.locals = append(ctx.locals, local{name: name, depth: ctx.scopeDepth})
}

func (c *Codegen) defineLocal() {
	ctx := c.current
	if len(ctx.locals) > 0 {
		ctx.locals[len(ctx.locals)-1].initialized = true
	}
}

// resolveLocal returns the slot of a named local in the given context, or
// -1 if no initialized local has that name.
func (c *Codegen) resolveLocal(ctx *funcContext, name string) int {
	for i := len(ctx.locals) - 1; i >= 0; i-- {
		if ctx.locals[i].name == name && ctx.locals[i].initialized {
			return i
		}
	}
	return -1
}

// resolveCapture resolves a name against enclosing function scopes,
// threading a capture through every intermediate function. Returns the
// capture index in ctx, or -1 if the name is not a lexical binding.
func (c *Codegen) resolveCapture(ctx *funcContext, name string, line int) int {
	if ctx.enclosing == nil {
		return -1
	}
	if slot := c.resolveLocal(ctx.enclosing, name); slot >= 0 {
		ctx.enclosing.locals[slot].captured = true
		return c.addCapture(ctx, vm.Capture{Local: true, Index: byte(slot)}, line)
	}
	if index := c.resolveCapture(ctx.enclosing, name, line); index >= 0 {
		return c.addCapture(ctx, vm.Capture{Local: false, Index: byte(index)}, line)
	}
	return -1
}

func (c *Codegen) addCapture(ctx *funcContext, capture vm.Capture, line int) int {
	for i, existing := range ctx.fn.Captures {
		if existing == capture {
			return i
		}
	}
	if len(ctx.fn.Captures) >= MaxLocals {
		c.report(diagnostic.New("E0010", "too many captured variables in function").WithLine(line))
		return 0
	}
	ctx.fn.Captures = append(ctx.fn.Captures, capture)
	return len(ctx.fn.Captures) - 1
}

// ---------------------------------------------------------------------------
// Jumps
// ---------------------------------------------------------------------------

// emitJump writes a forward jump with a placeholder offset and returns the
// position to patch once the target is known.
func (c *Codegen) emitJump(op vm.Opcode, line int) int {
	c.chunk().EmitUint16(op, 0xFFFF, line)
	return c.chunk().Len() - 2
}

func (c *Codegen) patchJump(pos, line int) {
	distance := c.chunk().Len() - (pos + 2)
	if distance > math.MaxUint16 {
		c.report(diagnostic.New("E0011", "too much code to jump over").WithLine(line))
		return
	}
	c.chunk().PatchUint16(pos, uint16(distance))
}

func (c *Codegen) emitLoop(start, line int) {
	distance := c.chunk().Len() + 3 - start
	if distance > math.MaxUint16 {
		c.report(diagnostic.New("E0011", "loop body too large").WithLine(line))
		return
	}
	c.chunk().EmitUint16(vm.OpLoop, uint16(distance), line)
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (c *Codegen) genStmt(statement Stmt) {
	switch s := statement.(type) {
	case *ExprStmt:
		c.genExpr(s.Expression)
		c.chunk().Emit(vm.OpPop, s.Loc)

	case *Print:
		c.genExpr(s.Expression)
		c.chunk().Emit(vm.OpPrint, s.Loc)

	case *VarDecl:
		c.genVarDecl(s)

	case *Block:
		c.beginScope()
		for _, inner := range s.Statements {
			c.genStmt(inner)
		}
		c.endScope(s.Loc)

	case *If:
		c.genExpr(s.Condition)
		elseJump := c.emitJump(vm.OpJumpIfFalse, s.Loc)
		c.genStmt(s.Then)
		endJump := c.emitJump(vm.OpJump, s.Loc)
		c.patchJump(elseJump, s.Loc)
		if s.Else != nil {
			c.genStmt(s.Else)
		}
		c.patchJump(endJump, s.Loc)

	case *While:
		start := c.chunk().Len()
		c.genExpr(s.Condition)
		exitJump := c.emitJump(vm.OpJumpIfFalse, s.Loc)
		c.genStmt(s.Body)
		c.emitLoop(start, s.Loc)
		c.patchJump(exitJump, s.Loc)

	case *FunDecl:
		c.genFunDecl(s)

	case *Return:
		if c.current.enclosing == nil {
			c.report(diagnostic.New("E0009", "cannot return from top-level code").WithLine(s.Loc))
			return
		}
		if s.Value != nil {
			c.genExpr(s.Value)
		} else {
			c.chunk().Emit(vm.OpNil, s.Loc)
		}
		c.chunk().Emit(vm.OpReturn, s.Loc)
	}
}

// genVarDecl compiles a variable declaration. Script-level declarations
// become named globals; everything else becomes a stack slot. The new slot
// stays invisible to its own initializer, so `var a = a;` inside a block
// reads the enclosing binding.
func (c *Codegen) genVarDecl(s *VarDecl) {
	if c.current.enclosing == nil && c.current.scopeDepth == 0 {
		if s.Initializer != nil {
			c.genExpr(s.Initializer)
		} else {
			c.chunk().Emit(vm.OpNil, s.Loc)
		}
		index := c.nameConstant(s.Name, s.Loc)
		c.chunk().EmitByte(vm.OpDefineGlobal, index, s.Loc)
		return
	}
	c.declareLocal(s.Name, s.Loc)
	if s.Initializer != nil {
		c.genExpr(s.Initializer)
	} else {
		c.chunk().Emit(vm.OpNil, s.Loc)
	}
	c.defineLocal()
}

// genFunDecl compiles a function declaration. The binding is created
// before the body is compiled so the body can refer to itself.
func (c *Codegen) genFunDecl(s *FunDecl) {
	global := c.current.enclosing == nil && c.current.scopeDepth == 0
	if !global {
		c.declareLocal(s.Name, s.Loc)
		c.defineLocal()
	}
	c.genFunction(s)
	if global {
		index := c.nameConstant(s.Name, s.Loc)
		c.chunk().EmitByte(vm.OpDefineGlobal, index, s.Loc)
	}
}

func (c *Codegen) genFunction(s *FunDecl) {
	ctx := newFuncContext(c.current, s.Name)
	ctx.fn.Arity = len(s.Parameters)
	ctx.scopeDepth = 1
	c.current = ctx
	for _, parameter := range s.Parameters {
		c.declareLocal(parameter, s.Loc)
		c.defineLocal()
	}
	for _, statement := range s.Body {
		c.genStmt(statement)
	}
	line := s.Loc
	if n := len(s.Body); n > 0 {
		line = s.Body[n-1].Line()
	}
	// Implicit return for bodies that fall off the end.
	c.chunk().Emit(vm.OpNil, line)
	c.chunk().Emit(vm.OpReturn, line)

	c.current = ctx.enclosing
	index := c.chunk().AddFunction(ctx.fn)
	c.chunk().EmitUint16(vm.OpClosure, uint16(index), s.Loc)
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

func (c *Codegen) genExpr(expression Expr) {
	if expression == nil {
		c.chunk().Emit(vm.OpNil, 0)
		return
	}
	switch e := expression.(type) {
	case *NumberLiteral:
		index := c.makeConstant(vm.NumberConstant(e.Value), e.Loc)
		c.chunk().EmitByte(vm.OpConstant, index, e.Loc)
	case *StringLiteral:
		index := c.makeConstant(vm.StringConstant(e.Value), e.Loc)
		c.chunk().EmitByte(vm.OpConstant, index, e.Loc)
	case *BoolLiteral:
		if e.Value {
			c.chunk().Emit(vm.OpTrue, e.Loc)
		} else {
			c.chunk().Emit(vm.OpFalse, e.Loc)
		}
	case *NilLiteral:
		c.chunk().Emit(vm.OpNil, e.Loc)

	case *Grouping:
		c.genExpr(e.Inner)

	case *Variable:
		c.genVariableAccess(e.Name, e.Loc, false)
	case *Assign:
		c.genExpr(e.Value)
		c.genVariableAccess(e.Name, e.Loc, true)

	case *Unary:
		c.genExpr(e.Operand)
		switch e.Operator {
		case TokenMinus:
			c.chunk().Emit(vm.OpNegate, e.Loc)
		case TokenBang:
			c.chunk().Emit(vm.OpNot, e.Loc)
		}

	case *Binary:
		c.genExpr(e.Left)
		c.genExpr(e.Right)
		switch e.Operator {
		case TokenPlus:
			c.chunk().Emit(vm.OpAdd, e.Loc)
		case TokenMinus:
			c.chunk().Emit(vm.OpSubtract, e.Loc)
		case TokenStar:
			c.chunk().Emit(vm.OpMultiply, e.Loc)
		case TokenSlash:
			c.chunk().Emit(vm.OpDivide, e.Loc)
		case TokenEqualEqual:
			c.chunk().Emit(vm.OpEqual, e.Loc)
		case TokenBangEqual:
			c.chunk().Emit(vm.OpEqual, e.Loc)
			c.chunk().Emit(vm.OpNot, e.Loc)
		case TokenGreater:
			c.chunk().Emit(vm.OpGreater, e.Loc)
		case TokenGreaterEqual:
			c.chunk().Emit(vm.OpLess, e.Loc)
			c.chunk().Emit(vm.OpNot, e.Loc)
		case TokenLess:
			c.chunk().Emit(vm.OpLess, e.Loc)
		case TokenLessEqual:
			c.chunk().Emit(vm.OpGreater, e.Loc)
			c.chunk().Emit(vm.OpNot, e.Loc)
		}

	case *Logical:
		c.genLogical(e)

	case *Call:
		c.genExpr(e.Callee)
		for _, argument := range e.Arguments {
			c.genExpr(argument)
		}
		c.chunk().EmitByte(vm.OpCall, byte(len(e.Arguments)), e.Loc)
	}
}

// genLogical compiles short-circuiting and/or. The left value is
// duplicated so it survives the conditional jump's pop and becomes the
// result when the right operand is skipped.
func (c *Codegen) genLogical(e *Logical) {
	c.genExpr(e.Left)
	c.chunk().Emit(vm.OpDup, e.Loc)
	op := vm.OpJumpIfFalse
	if e.Operator == TokenOr {
		op = vm.OpJumpIfTrue
	}
	skip := c.emitJump(op, e.Loc)
	c.chunk().Emit(vm.OpPop, e.Loc)
	c.genExpr(e.Right)
	c.patchJump(skip, e.Loc)
}

// genVariableAccess emits a load or store for a name, preferring locals,
// then captures, then globals.
func (c *Codegen) genVariableAccess(name string, line int, store bool) {
	if slot := c.resolveLocal(c.current, name); slot >= 0 {
		if store {
			c.chunk().EmitByte(vm.OpSetLocal, byte(slot), line)
		} else {
			c.chunk().EmitByte(vm.OpGetLocal, byte(slot), line)
		}
		return
	}
	if index := c.resolveCapture(c.current, name, line); index >= 0 {
		if store {
			c.chunk().EmitByte(vm.OpSetCapture, byte(index), line)
		} else {
			c.chunk().EmitByte(vm.OpGetCapture, byte(index), line)
		}
		return
	}
	index := c.nameConstant(name, line)
	if store {
		c.chunk().EmitByte(vm.OpSetGlobal, index, line)
	} else {
		c.chunk().EmitByte(vm.OpGetGlobal, index, line)
	}
}
