package twigo

import (
	"sync"

	"github.com/xiusin/twigo/parser"
	"github.com/xiusin/twigo/value"
)

// maxIncludeDepth bounds expansion recursion so self-including
// templates and self-nested blocks fail instead of recursing forever.
const maxIncludeDepth = 32

// Engine orchestrates the Loader, the parser and the Renderer. It
// owns the template cache and performs the inheritance merge before
// every render.
type Engine struct {
	mu        sync.RWMutex
	templates map[string]*Template
	loader    Loader
	functions *FunctionRegistry
	filters   map[string]FilterFunc
}

// Template is a parsed template. Macro definitions are partitioned
// out of the node list and the extends target is recorded; block
// nodes stay in place so the template's own layout survives the
// merge. Immutable once inserted into the cache.
type Template struct {
	name    string
	source  string
	ast     []parser.Node
	blocks  map[string][]parser.Node
	macros  map[string]*parser.Macro
	extends string
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Source returns the template source.
func (t *Template) Source() string { return t.source }

// New creates an engine with the default filters and functions.
func New(loader Loader) *Engine {
	return &Engine{
		templates: make(map[string]*Template),
		loader:    loader,
		functions: NewFunctionRegistry(),
		filters:   builtinFilters(),
	}
}

// RegisterFunction adds a callable usable from template expressions.
// maxArgs of -1 means no upper bound. Register before rendering
// concurrently.
func (e *Engine) RegisterFunction(name string, minArgs, maxArgs int, fn FunctionFunc) {
	e.functions.Register(name, minArgs, maxArgs, fn)
}

// RegisterFilter adds or replaces a filter. Register before rendering
// concurrently.
func (e *Engine) RegisterFilter(name string, fn FilterFunc) {
	e.filters[name] = fn
}

// AddTemplate parses a template from source and inserts it into the
// cache, bypassing the loader.
func (e *Engine) AddTemplate(name, source string) error {
	tmpl, err := compileTemplate(name, source)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.templates[name] = tmpl
	e.mu.Unlock()
	return nil
}

// Render loads the named template, resolves inheritance and renders
// it against the context. Any error aborts before output: the caller
// never sees a partial string.
func (e *Engine) Render(name string, ctx value.Value) (string, error) {
	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return "", err
	}
	return e.renderTemplate(tmpl, ctx)
}

// RenderString parses and renders source directly without caching.
// Extends and include targets still resolve through the loader.
func (e *Engine) RenderString(source string, ctx value.Value) (string, error) {
	tmpl, err := compileTemplate("<string>", source)
	if err != nil {
		return "", err
	}
	return e.renderTemplate(tmpl, ctx)
}

func (e *Engine) renderTemplate(tmpl *Template, ctx value.Value) (string, error) {
	merged, err := e.mergeTemplate(tmpl, map[string]bool{})
	if err != nil {
		return "", err
	}
	nodes, err := e.expandNodes(merged.nodes, merged, 0)
	if err != nil {
		return "", err
	}

	// Ancestor bodies feed {% parent %} directly, so they need the
	// same include/import expansion as the main layout.
	blocks := make(map[string]*blockStack, len(merged.ancestors))
	for name, layers := range merged.ancestors {
		expanded := make([][]parser.Node, len(layers))
		for i, layer := range layers {
			expanded[i], err = e.expandNodes(layer, merged, 0)
			if err != nil {
				return "", err
			}
		}
		blocks[name] = &blockStack{layers: expanded}
	}

	macros, err := e.expandMacros(merged)
	if err != nil {
		return "", err
	}
	r := &Renderer{
		filters:   e.filters,
		functions: e.functions,
		macros:    macros,
		blocks:    blocks,
		name:      tmpl.name,
	}
	return r.Render(nodes, ctx)
}

// loadTemplate returns the cached template or loads, parses and
// caches it. Load and parse errors are not cached.
func (e *Engine) loadTemplate(name string) (*Template, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	if e.loader == nil {
		return nil, NewError(ErrTemplateNotFound, name)
	}
	source, err := e.loader.Load(name)
	if err != nil {
		return nil, err
	}
	tmpl, err = compileTemplate(name, source)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// A racing load may have inserted first; keep that copy.
	if cached, ok := e.templates[name]; ok {
		tmpl = cached
	} else {
		e.templates[name] = tmpl
	}
	e.mu.Unlock()
	return tmpl, nil
}

// compileTemplate parses source and partitions the top-level node
// list: macro definitions and the extends target move into their own
// fields, blocks are indexed by name but stay in the node list.
func compileTemplate(name, source string) (*Template, error) {
	nodes, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}

	tmpl := &Template{
		name:   name,
		source: source,
		blocks: make(map[string][]parser.Node),
		macros: make(map[string]*parser.Macro),
	}
	for _, node := range nodes {
		switch n := node.(type) {
		case *parser.Macro:
			tmpl.macros[n.Name] = n
		case *parser.Extends:
			if tmpl.extends == "" {
				tmpl.extends = n.Template
			}
		case *parser.Block:
			tmpl.blocks[n.Name] = n.Body
			tmpl.ast = append(tmpl.ast, node)
		default:
			tmpl.ast = append(tmpl.ast, node)
		}
	}
	return tmpl, nil
}

// mergedTemplate is the per-render view of an inheritance chain: the
// root template's layout, the effective body per block name, the
// ancestor bodies each block shadows (nearest first, consumed by
// {% parent %}), and the aggregated macro table.
type mergedTemplate struct {
	nodes     []parser.Node
	blocks    map[string][]parser.Node
	ancestors map[string][][]parser.Node
	macros    map[string]*parser.Macro
}

// mergeTemplate resolves the extends chain. The parent merges first;
// child block overrides shadow the parent's effective bodies, pushing
// them onto the ancestor stack. Macros aggregate root to leaf, last
// writer wins. Cached templates are never mutated: the merge only
// builds new maps over shared node slices.
func (e *Engine) mergeTemplate(tmpl *Template, chain map[string]bool) (*mergedTemplate, error) {
	if chain[tmpl.name] {
		return nil, NewError(ErrCircularInheritance, tmpl.name)
	}
	chain[tmpl.name] = true

	if tmpl.extends == "" {
		merged := &mergedTemplate{
			nodes:     tmpl.ast,
			blocks:    make(map[string][]parser.Node, len(tmpl.blocks)),
			ancestors: make(map[string][][]parser.Node),
			macros:    make(map[string]*parser.Macro, len(tmpl.macros)),
		}
		for name, body := range tmpl.blocks {
			merged.blocks[name] = body
		}
		for name, macro := range tmpl.macros {
			merged.macros[name] = macro
		}
		return merged, nil
	}

	parent, err := e.loadTemplate(tmpl.extends)
	if err != nil {
		return nil, err
	}
	pm, err := e.mergeTemplate(parent, chain)
	if err != nil {
		return nil, err
	}

	merged := &mergedTemplate{
		nodes:     pm.nodes,
		blocks:    make(map[string][]parser.Node, len(pm.blocks)),
		ancestors: make(map[string][][]parser.Node, len(pm.ancestors)),
		macros:    pm.macros,
	}
	for name, body := range pm.blocks {
		if override, ok := tmpl.blocks[name]; ok {
			merged.blocks[name] = override
			merged.ancestors[name] = append([][]parser.Node{body}, pm.ancestors[name]...)
		} else {
			merged.blocks[name] = body
			merged.ancestors[name] = pm.ancestors[name]
		}
	}
	// Blocks only the child defines never appear in the root layout
	// but keep them addressable for includes of this template.
	for name, body := range tmpl.blocks {
		if _, ok := pm.blocks[name]; !ok {
			merged.blocks[name] = body
		}
	}
	for name, macro := range tmpl.macros {
		merged.macros[name] = macro
	}
	return merged, nil
}

// expandNodes walks the merged layout and produces the final node
// list handed to the Renderer: block nodes get their effective bodies
// substituted, include markers are replaced with the included
// template's own expanded nodes, and from-imports pull the named
// macros into the macro table.
func (e *Engine) expandNodes(nodes []parser.Node, merged *mergedTemplate, depth int) ([]parser.Node, error) {
	if depth > maxIncludeDepth {
		return nil, NewError(ErrMaxDepthExceeded, "template expansion nests too deep")
	}

	out := make([]parser.Node, 0, len(nodes))
	for _, node := range nodes {
		switch n := node.(type) {
		case *parser.Block:
			body := n.Body
			if effective, ok := merged.blocks[n.Name]; ok {
				body = effective
			}
			// Substitution can feed a block body back into itself when
			// a block nests a block of the same name, so it counts
			// against the depth guard.
			body, err := e.expandNodes(body, merged, depth+1)
			if err != nil {
				return nil, err
			}
			block := &parser.Block{Name: n.Name, Body: body}
			block.SetLine(n.Line())
			out = append(out, block)

		case *parser.Include:
			included, err := e.mergeFor(n.Template)
			if err != nil {
				return nil, err
			}
			inlined, err := e.expandNodes(included.nodes, included, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, inlined...)
			for name, macro := range included.macros {
				if _, ok := merged.macros[name]; !ok {
					merged.macros[name] = macro
				}
			}
			for name, layers := range included.ancestors {
				if _, ok := merged.ancestors[name]; !ok {
					merged.ancestors[name] = layers
				}
			}

		case *parser.Import:
			src, err := e.loadTemplate(n.Template)
			if err != nil {
				return nil, err
			}
			for _, name := range n.MacroNames {
				macro, ok := src.macros[name]
				if !ok {
					return nil, NewError(ErrUnknownFunction, name+" in "+n.Template).WithLine(n.Line())
				}
				merged.macros[name] = macro
			}

		case *parser.If:
			expanded := &parser.If{Cond: n.Cond}
			expanded.SetLine(n.Line())
			body, err := e.expandNodes(n.Body, merged, depth)
			if err != nil {
				return nil, err
			}
			expanded.Body = body
			for _, branch := range n.Elifs {
				branchBody, err := e.expandNodes(branch.Body, merged, depth)
				if err != nil {
					return nil, err
				}
				expanded.Elifs = append(expanded.Elifs, parser.ElifBranch{Cond: branch.Cond, Body: branchBody})
			}
			elseBody, err := e.expandNodes(n.Else, merged, depth)
			if err != nil {
				return nil, err
			}
			expanded.Else = elseBody
			out = append(out, expanded)

		case *parser.For:
			body, err := e.expandNodes(n.Body, merged, depth)
			if err != nil {
				return nil, err
			}
			loop := &parser.For{Item: n.Item, Iterable: n.Iterable, Filter: n.Filter, Body: body}
			loop.SetLine(n.Line())
			out = append(out, loop)

		default:
			out = append(out, node)
		}
	}
	return out, nil
}

// expandMacros runs include and import expansion over every macro body
// in the merged table. Macro bodies render through their own Renderer,
// which treats include markers as inert, so they need the same
// inlining as the main layout. Expansion of one body can import new
// macros into the table, so the loop runs until no unexpanded macros
// remain. Cached Macro nodes are never mutated.
func (e *Engine) expandMacros(merged *mergedTemplate) (map[string]*parser.Macro, error) {
	out := make(map[string]*parser.Macro, len(merged.macros))
	for {
		var pending []string
		for name := range merged.macros {
			if _, done := out[name]; !done {
				pending = append(pending, name)
			}
		}
		if len(pending) == 0 {
			return out, nil
		}
		for _, name := range pending {
			macro := merged.macros[name]
			body, err := e.expandNodes(macro.Body, merged, 0)
			if err != nil {
				return nil, err
			}
			expanded := &parser.Macro{Name: macro.Name, Params: macro.Params, Body: body}
			expanded.SetLine(macro.Line())
			out[name] = expanded
		}
	}
}

// mergeFor loads and merges a template for include inlining.
func (e *Engine) mergeFor(name string) (*mergedTemplate, error) {
	tmpl, err := e.loadTemplate(name)
	if err != nil {
		return nil, err
	}
	return e.mergeTemplate(tmpl, map[string]bool{})
}
