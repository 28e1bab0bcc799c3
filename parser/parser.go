// Package parser builds the template AST from a token stream.
//
// The parser is recursive descent over the lexer's token stream. Every
// nested body (for, if/elif/else, block, macro) is parsed by a fresh
// call that stops on the construct's terminator keyword; one-token
// lookahead comes from the lexer's state-restoring Peek.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xiusin/twigo/lexer"
	"github.com/xiusin/twigo/value"
)

const maxRecursion = 100

// ErrorKind describes the kind of a parse error.
type ErrorKind int

const (
	UnexpectedEof ErrorKind = iota
	UnexpectedToken
	ExpectedIdentifier
	ExpectedString
	ExpectedOperator
	ExpectedEquals
	ExpectedComma
	ExpectedVariableEnd
	ExpectedTagEnd
	ExpectedIn
	ExpectedImport
	InvalidLiteral
	InvalidPrimary
)

func (k ErrorKind) String() string {
	switch k {
	case UnexpectedEof:
		return "unexpected end of input"
	case UnexpectedToken:
		return "unexpected token"
	case ExpectedIdentifier:
		return "expected identifier"
	case ExpectedString:
		return "expected string"
	case ExpectedOperator:
		return "expected operator"
	case ExpectedEquals:
		return "expected '='"
	case ExpectedComma:
		return "expected ','"
	case ExpectedVariableEnd:
		return "expected '}}'"
	case ExpectedTagEnd:
		return "expected '%}'"
	case ExpectedIn:
		return "expected 'in'"
	case ExpectedImport:
		return "expected 'import'"
	case InvalidLiteral:
		return "invalid literal"
	case InvalidPrimary:
		return "invalid expression"
	default:
		return "parse error"
	}
}

// Error is a syntax error with its kind and source line.
type Error struct {
	Kind   ErrorKind
	Detail string
	Line   int
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (line %d)", e.Kind, e.Detail, e.Line)
	}
	return fmt.Sprintf("%s (line %d)", e.Kind, e.Line)
}

// Parser consumes the token stream of a single template.
type Parser struct {
	lx         *lexer.Lexer
	depth      int
	blockDepth int
}

// Parse parses template source into a node list.
func Parse(source string) ([]Node, error) {
	p := &Parser{lx: lexer.New(source)}
	// parseUntil without terminators only returns at EOF; stray
	// terminator tags error inside parseTag.
	nodes, _, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// parseUntil parses nodes until EOF or until a tag opening with one of
// the terminator keywords. It consumes the terminator's tag start and
// keyword but leaves the rest of the terminator tag (for example an
// elif condition and the closing %}) to the caller. It returns the
// terminator kind, or TokenEOF when input ended.
func (p *Parser) parseUntil(terminators ...lexer.TokenKind) ([]Node, lexer.TokenKind, error) {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > maxRecursion {
		return nil, 0, &Error{Kind: UnexpectedToken, Detail: "template nesting too deep", Line: 0}
	}

	var nodes []Node
	for {
		tok, err := p.lx.Next()
		if err != nil {
			return nil, 0, err
		}

		switch tok.Kind {
		case lexer.TokenEOF:
			if len(terminators) > 0 {
				return nil, 0, &Error{
					Kind:   UnexpectedEof,
					Detail: fmt.Sprintf("expected %s", terminatorList(terminators)),
					Line:   tok.Line,
				}
			}
			return nodes, lexer.TokenEOF, nil

		case lexer.TokenText:
			nodes = append(nodes, &Text{Text: tok.Lexeme, pos: pos{tok.Line}})

		case lexer.TokenVariableStart:
			node, err := p.parseVariable(tok.Line)
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, node)

		case lexer.TokenTagStart:
			kw, err := p.lx.Next()
			if err != nil {
				return nil, 0, err
			}
			for _, term := range terminators {
				if kw.Kind == term {
					return nodes, term, nil
				}
			}
			node, err := p.parseTag(kw)
			if err != nil {
				return nil, 0, err
			}
			nodes = append(nodes, node)

		default:
			return nil, 0, &Error{
				Kind:   UnexpectedToken,
				Detail: fmt.Sprintf("got %s", tok.Kind),
				Line:   tok.Line,
			}
		}
	}
}

func terminatorList(terms []lexer.TokenKind) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " or ")
}

// parseVariable parses the remainder of a {{ ... }} construct.
func (p *Parser) parseVariable(line int) (Node, error) {
	expr, err := p.parseExpression(true)
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenVariableEnd, ExpectedVariableEnd); err != nil {
		return nil, err
	}
	return &Variable{Expr: expr, pos: pos{line}}, nil
}

// parseTag dispatches on the keyword that opens a {% ... %} tag.
func (p *Parser) parseTag(kw lexer.Token) (Node, error) {
	switch kw.Kind {
	case lexer.TokenFor:
		return p.parseFor(kw.Line)
	case lexer.TokenIf:
		return p.parseIf(kw.Line)
	case lexer.TokenSet:
		return p.parseSet(kw.Line)
	case lexer.TokenExtends:
		name, err := p.parseNameTag()
		if err != nil {
			return nil, err
		}
		return &Extends{Template: name, pos: pos{kw.Line}}, nil
	case lexer.TokenBlock:
		return p.parseBlock(kw.Line)
	case lexer.TokenInclude:
		name, err := p.parseNameTag()
		if err != nil {
			return nil, err
		}
		return &Include{Template: name, pos: pos{kw.Line}}, nil
	case lexer.TokenMacro:
		return p.parseMacro(kw.Line)
	case lexer.TokenFrom:
		return p.parseImport(kw.Line)
	case lexer.TokenParent:
		if p.blockDepth == 0 {
			return nil, &Error{Kind: UnexpectedToken, Detail: "parent outside block", Line: kw.Line}
		}
		if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
			return nil, err
		}
		return &Parent{pos: pos{kw.Line}}, nil
	default:
		return nil, &Error{
			Kind:   UnexpectedToken,
			Detail: fmt.Sprintf("got %s at tag start", kw.Kind),
			Line:   kw.Line,
		}
	}
}

// parseFor parses {% for ITEM in ITERABLE (| FILTER)? %} body {% endfor %}.
func (p *Parser) parseFor(line int) (Node, error) {
	item, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenIn, ExpectedIn); err != nil {
		return nil, err
	}
	iterable, err := p.parsePath()
	if err != nil {
		return nil, err
	}

	var filter string
	if ok, err := p.skipKind(lexer.TokenPipe); err != nil {
		return nil, err
	} else if ok {
		filter, err = p.parseFilterSpec()
		if err != nil {
			return nil, err
		}
	}

	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	body, _, err := p.parseUntil(lexer.TokenEndfor)
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return &For{Item: item, Iterable: iterable, Filter: filter, Body: body, pos: pos{line}}, nil
}

// parseIf parses the whole if/elif/else/endif construct.
func (p *Parser) parseIf(line int) (Node, error) {
	cond, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}

	node := &If{Cond: cond, pos: pos{line}}
	body, term, err := p.parseUntil(lexer.TokenElif, lexer.TokenElse, lexer.TokenEndif)
	if err != nil {
		return nil, err
	}
	node.Body = body

	for term == lexer.TokenElif {
		elifCond, err := p.parseCond()
		if err != nil {
			return nil, err
		}
		if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
			return nil, err
		}
		var elifBody []Node
		elifBody, term, err = p.parseUntil(lexer.TokenElif, lexer.TokenElse, lexer.TokenEndif)
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, ElifBranch{Cond: elifCond, Body: elifBody})
	}

	if term == lexer.TokenElse {
		if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
			return nil, err
		}
		node.Else, _, err = p.parseUntil(lexer.TokenEndif)
		if err != nil {
			return nil, err
		}
	}

	// endif's closing tag
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return node, nil
}

// parseCond parses the restricted condition form: PATH (OP LITERAL)?.
func (p *Parser) parseCond() (Cond, error) {
	path, err := p.parsePath()
	if err != nil {
		return Cond{}, err
	}
	cond := Cond{Path: path}

	tok, err := p.lx.Peek()
	if err != nil {
		return Cond{}, err
	}
	if tok.Kind != lexer.TokenOperator {
		return cond, nil
	}
	switch tok.Lexeme {
	case "==", "!=", "<", ">", "<=", ">=":
		p.lx.Next()
		cond.Op = tok.Lexeme
	default:
		return Cond{}, &Error{
			Kind:   ExpectedOperator,
			Detail: fmt.Sprintf("got %q", tok.Lexeme),
			Line:   tok.Line,
		}
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return Cond{}, err
	}
	cond.Literal = lit
	return cond, nil
}

// parseSet parses {% set NAME = EXPR %}.
func (p *Parser) parseSet(line int) (Node, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	tok, err := p.lx.Next()
	if err != nil {
		return nil, err
	}
	if tok.Kind != lexer.TokenOperator || tok.Lexeme != "=" {
		return nil, &Error{Kind: ExpectedEquals, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
	}
	expr, err := p.parseExpression(true)
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return &Set{Name: name, Expr: expr, pos: pos{line}}, nil
}

// parseBlock parses {% block NAME %} body {% endblock %}.
func (p *Parser) parseBlock(line int) (Node, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	p.blockDepth++
	body, _, err := p.parseUntil(lexer.TokenEndblock)
	p.blockDepth--
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return &Block{Name: name, Body: body, pos: pos{line}}, nil
}

// parseMacro parses {% macro NAME(PARAM, ...) %} body {% endmacro %}.
func (p *Parser) parseMacro(line int) (Node, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectOperator("("); err != nil {
		return nil, err
	}

	var params []string
	for {
		tok, err := p.lx.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.TokenOperator && tok.Lexeme == ")" {
			p.lx.Next()
			break
		}
		if len(params) > 0 {
			if tok.Kind != lexer.TokenOperator || tok.Lexeme != "," {
				return nil, &Error{Kind: ExpectedComma, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
			}
			p.lx.Next()
		}
		param, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
	}

	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	body, _, err := p.parseUntil(lexer.TokenEndmacro)
	if err != nil {
		return nil, err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return &Macro{Name: name, Params: params, Body: body, pos: pos{line}}, nil
}

// parseImport parses {% from "NAME" import MACRO (, MACRO)* %}.
func (p *Parser) parseImport(line int) (Node, error) {
	tpl, err := p.expectString()
	if err != nil {
		return nil, err
	}
	if ok, err := p.skipKind(lexer.TokenImport); err != nil {
		return nil, err
	} else if !ok {
		return nil, &Error{Kind: ExpectedImport, Line: line}
	}

	var names []string
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if ok, err := p.skipOperator(","); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}

	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return nil, err
	}
	return &Import{Template: tpl, MacroNames: names, pos: pos{line}}, nil
}

// parseNameTag parses the `"NAME" %}` tail shared by extends/include.
func (p *Parser) parseNameTag() (string, error) {
	name, err := p.expectString()
	if err != nil {
		return "", err
	}
	if err := p.expectKind(lexer.TokenTagEnd, ExpectedTagEnd); err != nil {
		return "", err
	}
	return name, nil
}

// parseExpression parses a primary with an optional single filter.
// Chained filters are rejected by construction: the filter slot is
// parsed once and the next pipe is left for the caller to trip over.
func (p *Parser) parseExpression(allowFilter bool) (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !allowFilter {
		return expr, nil
	}
	if ok, err := p.skipKind(lexer.TokenPipe); err != nil {
		return nil, err
	} else if ok {
		spec, err := p.parseFilterSpec()
		if err != nil {
			return nil, err
		}
		return &Filtered{Expr: expr, FilterSpec: spec, pos: pos{expr.Line()}}, nil
	}
	return expr, nil
}

// parsePrimary parses a literal, function call or variable path.
func (p *Parser) parsePrimary() (Expr, error) {
	tok, err := p.lx.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case lexer.TokenString:
		return &Literal{Val: value.FromString(tok.Lexeme), pos: pos{tok.Line}}, nil

	case lexer.TokenNumber:
		val, err := numberValue(tok)
		if err != nil {
			return nil, err
		}
		return &Literal{Val: val, pos: pos{tok.Line}}, nil

	case lexer.TokenIdent:
		switch tok.Lexeme {
		case "true":
			return &Literal{Val: value.FromBool(true), pos: pos{tok.Line}}, nil
		case "false":
			return &Literal{Val: value.FromBool(false), pos: pos{tok.Line}}, nil
		case "null":
			return &Literal{Val: value.Null(), pos: pos{tok.Line}}, nil
		}
		if ok, err := p.skipOperator("("); err != nil {
			return nil, err
		} else if ok {
			return p.parseCallArgs(tok)
		}
		path, err := p.parsePathRest(tok.Lexeme)
		if err != nil {
			return nil, err
		}
		return &VarPath{Path: path, pos: pos{tok.Line}}, nil

	case lexer.TokenEOF:
		return nil, &Error{Kind: UnexpectedEof, Detail: "in expression", Line: tok.Line}

	default:
		return nil, &Error{
			Kind:   InvalidPrimary,
			Detail: fmt.Sprintf("got %s", tok.Kind),
			Line:   tok.Line,
		}
	}
}

// parseCallArgs parses the argument list of NAME( already past the
// opening paren. Arguments are primaries; the single filter slot
// belongs to the enclosing expression, not to arguments.
func (p *Parser) parseCallArgs(name lexer.Token) (Expr, error) {
	call := &FuncCall{Name: name.Lexeme, pos: pos{name.Line}}
	for {
		tok, err := p.lx.Peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind == lexer.TokenOperator && tok.Lexeme == ")" {
			p.lx.Next()
			return call, nil
		}
		if len(call.Args) > 0 {
			if tok.Kind != lexer.TokenOperator || tok.Lexeme != "," {
				return nil, &Error{Kind: ExpectedComma, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
			}
			p.lx.Next()
		}
		arg, err := p.parseExpression(false)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
	}
}

// parseLiteral parses a constant: string, number, true, false or null.
func (p *Parser) parseLiteral() (value.Value, error) {
	tok, err := p.lx.Next()
	if err != nil {
		return value.Null(), err
	}
	switch tok.Kind {
	case lexer.TokenString:
		return value.FromString(tok.Lexeme), nil
	case lexer.TokenNumber:
		return numberValue(tok)
	case lexer.TokenIdent:
		switch tok.Lexeme {
		case "true":
			return value.FromBool(true), nil
		case "false":
			return value.FromBool(false), nil
		case "null":
			return value.Null(), nil
		}
	}
	return value.Null(), &Error{
		Kind:   InvalidLiteral,
		Detail: fmt.Sprintf("got %s %q", tok.Kind, tok.Lexeme),
		Line:   tok.Line,
	}
}

func numberValue(tok lexer.Token) (value.Value, error) {
	if strings.Contains(tok.Lexeme, ".") {
		f, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return value.Null(), &Error{Kind: InvalidLiteral, Detail: tok.Lexeme, Line: tok.Line}
		}
		return value.FromFloat(f), nil
	}
	i, err := strconv.ParseInt(tok.Lexeme, 10, 64)
	if err != nil {
		return value.Null(), &Error{Kind: InvalidLiteral, Detail: tok.Lexeme, Line: tok.Line}
	}
	return value.FromInt(i), nil
}

// parsePath parses a dot-separated variable path.
func (p *Parser) parsePath() (string, error) {
	first, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	return p.parsePathRest(first)
}

func (p *Parser) parsePathRest(first string) (string, error) {
	path := first
	for {
		ok, err := p.skipOperator(".")
		if err != nil {
			return "", err
		}
		if !ok {
			return path, nil
		}
		seg, err := p.expectIdent()
		if err != nil {
			return "", err
		}
		path += "." + seg
	}
}

// parseFilterSpec parses `NAME` or `NAME:"ARG"` into the encoded
// "name" / "name:arg" form.
func (p *Parser) parseFilterSpec() (string, error) {
	name, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	ok, err := p.skipOperator(":")
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	arg, err := p.expectString()
	if err != nil {
		return "", err
	}
	return name + ":" + arg, nil
}

// --- token helpers ---

func (p *Parser) expectIdent() (string, error) {
	tok, err := p.lx.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != lexer.TokenIdent {
		return "", &Error{Kind: ExpectedIdentifier, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
	}
	return tok.Lexeme, nil
}

func (p *Parser) expectString() (string, error) {
	tok, err := p.lx.Next()
	if err != nil {
		return "", err
	}
	if tok.Kind != lexer.TokenString {
		return "", &Error{Kind: ExpectedString, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
	}
	return tok.Lexeme, nil
}

func (p *Parser) expectKind(kind lexer.TokenKind, errKind ErrorKind) error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	if tok.Kind != kind {
		if tok.Kind == lexer.TokenEOF {
			return &Error{Kind: UnexpectedEof, Detail: fmt.Sprintf("expected %s", kind), Line: tok.Line}
		}
		return &Error{Kind: errKind, Detail: fmt.Sprintf("got %s", tok.Kind), Line: tok.Line}
	}
	return nil
}

func (p *Parser) expectOperator(op string) error {
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	if tok.Kind != lexer.TokenOperator || tok.Lexeme != op {
		return &Error{Kind: ExpectedOperator, Detail: fmt.Sprintf("expected %q, got %s", op, tok.Kind), Line: tok.Line}
	}
	return nil
}

// skipKind consumes the next token if it matches the kind.
func (p *Parser) skipKind(kind lexer.TokenKind) (bool, error) {
	tok, err := p.lx.Peek()
	if err != nil {
		return false, err
	}
	if tok.Kind != kind {
		return false, nil
	}
	p.lx.Next()
	return true, nil
}

// skipOperator consumes the next token if it is the given operator.
func (p *Parser) skipOperator(op string) (bool, error) {
	tok, err := p.lx.Peek()
	if err != nil {
		return false, err
	}
	if tok.Kind != lexer.TokenOperator || tok.Lexeme != op {
		return false, nil
	}
	p.lx.Next()
	return true, nil
}
