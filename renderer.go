package twigo

import (
	"fmt"
	"strings"

	"github.com/xiusin/twigo/parser"
	"github.com/xiusin/twigo/value"
)

// maxRenderDepth bounds macro call recursion.
const maxRenderDepth = 64

// Renderer is the tree-walking evaluator. It renders a merged node
// list against a context value; the Engine prepares the node list
// (inheritance resolved, includes inlined) plus the macro table and
// per-block ancestor stacks before handing over.
type Renderer struct {
	out          *strings.Builder
	filters      map[string]FilterFunc
	functions    *FunctionRegistry
	macros       map[string]*parser.Macro
	blocks       map[string]*blockStack
	currentBlock string
	name         string
	depth        int
}

// blockStack holds the ancestor bodies of a single block, nearest
// ancestor first. index points at the next ancestor a {% parent %}
// resolves to; nested parent calls walk further up the chain.
type blockStack struct {
	layers [][]parser.Node
	index  int
}

// Render renders the node list with a fresh locals table.
func (r *Renderer) Render(nodes []parser.Node, ctx value.Value) (string, error) {
	r.out = &strings.Builder{}
	if r.blocks == nil {
		r.blocks = make(map[string]*blockStack)
	}
	if err := r.renderNodes(nodes, ctx, make(map[string]value.Value)); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

func (r *Renderer) renderNodes(nodes []parser.Node, ctx value.Value, locals map[string]value.Value) error {
	for _, node := range nodes {
		if err := r.renderNode(node, ctx, locals); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(node parser.Node, ctx value.Value, locals map[string]value.Value) error {
	switch n := node.(type) {
	case *parser.Text:
		r.out.WriteString(n.Text)

	case *parser.Variable:
		val, err := r.evalExpr(n.Expr, ctx, locals)
		if err != nil {
			return err
		}
		r.out.WriteString(val.String())

	case *parser.If:
		return r.renderIf(n, ctx, locals)

	case *parser.For:
		return r.renderFor(n, ctx, locals)

	case *parser.Set:
		val, err := r.evalExpr(n.Expr, ctx, locals)
		if err != nil {
			return err
		}
		locals[n.Name] = val

	case *parser.Block:
		prev := r.currentBlock
		r.currentBlock = n.Name
		err := r.renderNodes(n.Body, ctx, locals)
		r.currentBlock = prev
		return err

	case *parser.Parent:
		return r.renderParent(ctx, locals)

	case *parser.Macro, *parser.Import, *parser.Extends, *parser.Include:
		// Definitions and engine-resolved markers render to nothing.

	default:
		return NewError(ErrInvalidType, fmt.Sprintf("unrenderable node %T", node)).WithName(r.name)
	}
	return nil
}

func (r *Renderer) renderIf(n *parser.If, ctx value.Value, locals map[string]value.Value) error {
	ok, err := r.evalCond(n.Cond, ctx, locals, n.Line())
	if err != nil {
		return err
	}
	if ok {
		return r.renderNodes(n.Body, ctx, locals)
	}
	for _, branch := range n.Elifs {
		ok, err := r.evalCond(branch.Cond, ctx, locals, n.Line())
		if err != nil {
			return err
		}
		if ok {
			return r.renderNodes(branch.Body, ctx, locals)
		}
	}
	return r.renderNodes(n.Else, ctx, locals)
}

func (r *Renderer) renderFor(n *parser.For, ctx value.Value, locals map[string]value.Value) error {
	coll, err := r.getValue(ctx, locals, n.Iterable, n.Line())
	if err != nil {
		return err
	}
	if n.Filter != "" {
		coll = applyFilter(r.filters, coll, n.Filter)
	}
	items, ok := coll.AsSlice()
	if !ok {
		return NewError(ErrIterableNotArray,
			fmt.Sprintf("%s is %s, not array", n.Iterable, coll.Kind())).
			WithName(r.name).WithLine(n.Line())
	}

	// Each iteration renders against a child context: parent fields,
	// the locals snapshot, the item and the loop object.
	base := make(map[string]value.Value)
	if fields, ok := ctx.AsMap(); ok {
		for k, v := range fields {
			base[k] = v
		}
	}
	for k, v := range locals {
		base[k] = v
	}

	for i, item := range items {
		child := make(map[string]value.Value, len(base)+2)
		for k, v := range base {
			child[k] = v
		}
		child[n.Item] = item
		child["loop"] = loopObject(i, len(items))
		if err := r.renderNodes(n.Body, value.FromMap(child), make(map[string]value.Value)); err != nil {
			return err
		}
	}
	return nil
}

// loopObject synthesizes the per-iteration loop metadata.
func loopObject(i, n int) value.Value {
	return value.FromMap(map[string]value.Value{
		"index":     value.FromInt(int64(i + 1)),
		"index0":    value.FromInt(int64(i)),
		"first":     value.FromBool(i == 0),
		"last":      value.FromBool(i == n-1),
		"length":    value.FromInt(int64(n)),
		"revindex":  value.FromInt(int64(n - i)),
		"revindex0": value.FromInt(int64(n - i - 1)),
		"even":      value.FromBool((i+1)%2 == 0),
		"odd":       value.FromBool((i+1)%2 == 1),
	})
}

// renderParent renders the next ancestor body of the block being
// rendered. Advancing the stack index before descending is what makes
// a parent call inside an ancestor body reach the ancestor above it.
func (r *Renderer) renderParent(ctx value.Value, locals map[string]value.Value) error {
	st := r.blocks[r.currentBlock]
	if st == nil || st.index >= len(st.layers) {
		return nil
	}
	st.index++
	err := r.renderNodes(st.layers[st.index-1], ctx, locals)
	st.index--
	return err
}

func (r *Renderer) evalCond(cond parser.Cond, ctx value.Value, locals map[string]value.Value, line int) (bool, error) {
	left, err := r.getValue(ctx, locals, cond.Path, line)
	if err != nil {
		return false, err
	}
	if cond.Op == "" {
		return left.IsTruthy(), nil
	}
	switch cond.Op {
	case "==":
		return left.Equal(cond.Literal), nil
	case "!=":
		return !left.Equal(cond.Literal), nil
	case "<":
		return left.AsNumber() < cond.Literal.AsNumber(), nil
	case ">":
		return left.AsNumber() > cond.Literal.AsNumber(), nil
	case "<=":
		return left.AsNumber() <= cond.Literal.AsNumber(), nil
	case ">=":
		return left.AsNumber() >= cond.Literal.AsNumber(), nil
	default:
		return false, NewError(ErrUnsupportedOp, cond.Op).WithName(r.name).WithLine(line)
	}
}

func (r *Renderer) evalExpr(expr parser.Expr, ctx value.Value, locals map[string]value.Value) (value.Value, error) {
	switch e := expr.(type) {
	case *parser.Literal:
		return e.Val, nil

	case *parser.VarPath:
		return r.getValue(ctx, locals, e.Path, e.Line())

	case *parser.Filtered:
		val, err := r.evalExpr(e.Expr, ctx, locals)
		if err != nil {
			return value.Null(), err
		}
		return applyFilter(r.filters, val, e.FilterSpec), nil

	case *parser.FuncCall:
		args := make([]value.Value, len(e.Args))
		for i, arg := range e.Args {
			val, err := r.evalExpr(arg, ctx, locals)
			if err != nil {
				return value.Null(), err
			}
			args[i] = val
		}
		if macro, ok := r.macros[e.Name]; ok {
			return r.callMacro(macro, args, e.Line())
		}
		if r.functions == nil {
			return value.Null(), NewError(ErrUnknownFunction, e.Name).
				WithName(r.name).WithLine(e.Line())
		}
		val, err := r.functions.Call(e.Name, args)
		if err != nil {
			if te, ok := err.(*Error); ok {
				te.WithName(r.name).WithLine(e.Line())
			}
			return value.Null(), err
		}
		return val, nil

	default:
		return value.Null(), NewError(ErrInvalidType, fmt.Sprintf("unevaluable expression %T", expr)).WithName(r.name)
	}
}

// callMacro renders a macro body against an isolated context holding
// only the parameters and returns the rendered text as a string value.
func (r *Renderer) callMacro(macro *parser.Macro, args []value.Value, line int) (value.Value, error) {
	if len(args) != len(macro.Params) {
		return value.Null(), NewError(ErrInvalidMacroArgs,
			fmt.Sprintf("%s expects %d arguments, got %d", macro.Name, len(macro.Params), len(args))).
			WithName(r.name).WithLine(line)
	}
	if r.depth+1 > maxRenderDepth {
		return value.Null(), NewError(ErrMaxDepthExceeded,
			fmt.Sprintf("macro %s recurses too deep", macro.Name)).
			WithName(r.name).WithLine(line)
	}

	fields := make(map[string]value.Value, len(args))
	for i, param := range macro.Params {
		fields[param] = args[i]
	}

	sub := &Renderer{
		filters:   r.filters,
		functions: r.functions,
		macros:    r.macros,
		blocks:    r.blocks,
		name:      r.name,
		depth:     r.depth + 1,
	}
	out, err := sub.Render(macro.Body, value.FromMap(fields))
	if err != nil {
		return value.Null(), err
	}
	return value.FromString(out), nil
}

// getValue resolves a dot-separated path against the context, falling
// back to locals for the first segment only.
func (r *Renderer) getValue(ctx value.Value, locals map[string]value.Value, path string, line int) (value.Value, error) {
	segments := strings.Split(path, ".")

	var current value.Value
	found := false
	if fields, ok := ctx.AsMap(); ok {
		current, found = fields[segments[0]]
	}
	if !found {
		current, found = locals[segments[0]]
	}
	if !found {
		return value.Null(), NewError(ErrVariableNotFound, segments[0]).
			WithName(r.name).WithLine(line)
	}

	for _, segment := range segments[1:] {
		fields, ok := current.AsMap()
		if !ok {
			return value.Null(), NewError(ErrInvalidPath,
				fmt.Sprintf("%s: cannot descend into %s", path, current.Kind())).
				WithName(r.name).WithLine(line)
		}
		current, ok = fields[segment]
		if !ok {
			return value.Null(), NewError(ErrVariableNotFound, path).
				WithName(r.name).WithLine(line)
		}
	}
	return current, nil
}
