package parser

import "github.com/xiusin/twigo/value"

// Node is the interface implemented by all statement-level AST nodes.
// The node set is closed: consumers switch over every variant, and the
// marker method keeps foreign types out.
type Node interface {
	node()
	Line() int
}

// Expr is the interface implemented by all expression nodes.
type Expr interface {
	expr()
	Line() int
}

type pos struct {
	line int
}

func (p pos) Line() int { return p.line }

// SetLine records the source line on a node constructed outside the
// parser, such as during inheritance expansion.
func (p *pos) SetLine(line int) { p.line = line }

// --- Expressions ---

// Literal is a constant value.
type Literal struct {
	Val value.Value
	pos
}

func (*Literal) expr() {}

// VarPath is a dot-separated field access into the context.
type VarPath struct {
	Path string
	pos
}

func (*VarPath) expr() {}

// FuncCall is a macro or registry function invocation.
type FuncCall struct {
	Name string
	Args []Expr
	pos
}

func (*FuncCall) expr() {}

// Filtered applies a single filter to an expression. FilterSpec encodes
// either "name" or "name:arg". The grammar allows exactly one filter
// per expression; chains do not parse.
type Filtered struct {
	Expr       Expr
	FilterSpec string
	pos
}

func (*Filtered) expr() {}

// --- Statements ---

// Text is a run of literal template output.
type Text struct {
	Text string
	pos
}

func (*Text) node() {}

// Variable emits the result of an expression ({{ ... }}).
type Variable struct {
	Expr Expr
	pos
}

func (*Variable) node() {}

// Cond is the restricted condition form of if/elif: a variable path,
// optionally compared against a literal. An empty Op means a truthiness
// test on the path.
type Cond struct {
	Path    string
	Op      string // "", ==, !=, <, >, <=, >=
	Literal value.Value
}

// ElifBranch is one elif arm of an If node.
type ElifBranch struct {
	Cond Cond
	Body []Node
}

// If selects the first matching branch: the if condition, then each
// elif in source order, then the else body.
type If struct {
	Cond  Cond
	Body  []Node
	Elifs []ElifBranch
	Else  []Node
	pos
}

func (*If) node() {}

// For iterates an array-valued variable. Filter optionally names a
// single post-filter ("name" or "name:arg") applied to the whole
// collection before iteration begins.
type For struct {
	Item     string
	Iterable string
	Filter   string
	Body     []Node
	pos
}

func (*For) node() {}

// Set assigns the result of an expression to a render-local variable.
type Set struct {
	Name string
	Expr Expr
	pos
}

func (*Set) node() {}

// Extends declares the parent template for inheritance resolution.
type Extends struct {
	Template string
	pos
}

func (*Extends) node() {}

// Block is a named, overridable region of output.
type Block struct {
	Name string
	Body []Node
	pos
}

func (*Block) node() {}

// Include is a placeholder the engine replaces with the included
// template's merged node list before rendering.
type Include struct {
	Template string
	pos
}

func (*Include) node() {}

// Macro is a named, parameterized template fragment.
type Macro struct {
	Name   string
	Params []string
	Body   []Node
	pos
}

func (*Macro) node() {}

// Import pulls named macros from another template
// ({% from "name" import a, b %}).
type Import struct {
	Template   string
	MacroNames []string
	pos
}

func (*Import) node() {}

// Parent marks "render the ancestor's body of the enclosing block here".
type Parent struct {
	pos
}

func (*Parent) node() {}
