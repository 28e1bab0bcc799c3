package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiusin/twigo/value"
)

func parseOne(t *testing.T, source string) Node {
	t.Helper()
	nodes, err := Parse(source)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	return nodes[0]
}

func requireParseError(t *testing.T, source string, kind ErrorKind) {
	t.Helper()
	_, err := Parse(source)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, kind, perr.Kind, "got %v", perr)
}

func TestParseText(t *testing.T) {
	node := parseOne(t, "hello")
	text, ok := node.(*Text)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Text)
}

func TestParseVariable(t *testing.T) {
	t.Run("path", func(t *testing.T) {
		node := parseOne(t, "{{ user.profile.name }}")
		v, ok := node.(*Variable)
		require.True(t, ok)
		path, ok := v.Expr.(*VarPath)
		require.True(t, ok)
		assert.Equal(t, "user.profile.name", path.Path)
	})

	t.Run("literals", func(t *testing.T) {
		for source, want := range map[string]value.Value{
			`{{ "hi" }}`: value.FromString("hi"),
			"{{ 42 }}":   value.FromInt(42),
			"{{ 3.5 }}":  value.FromFloat(3.5),
			"{{ true }}": value.FromBool(true),
			"{{ null }}": value.Null(),
		} {
			node := parseOne(t, source)
			lit, ok := node.(*Variable).Expr.(*Literal)
			require.True(t, ok, source)
			assert.Equal(t, want, lit.Val, source)
		}
	})

	t.Run("single filter", func(t *testing.T) {
		node := parseOne(t, `{{ name | upper }}`)
		filtered, ok := node.(*Variable).Expr.(*Filtered)
		require.True(t, ok)
		assert.Equal(t, "upper", filtered.FilterSpec)
		_, ok = filtered.Expr.(*VarPath)
		assert.True(t, ok)
	})

	t.Run("filter with argument", func(t *testing.T) {
		node := parseOne(t, `{{ created | date:"Y-m-d" }}`)
		filtered := node.(*Variable).Expr.(*Filtered)
		assert.Equal(t, "date:Y-m-d", filtered.FilterSpec)
	})

	t.Run("filter chains do not parse", func(t *testing.T) {
		requireParseError(t, `{{ x | upper | lower }}`, ExpectedVariableEnd)
	})
}

func TestParseFunctionCall(t *testing.T) {
	node := parseOne(t, `{{ range(1, total, "step") }}`)
	call, ok := node.(*Variable).Expr.(*FuncCall)
	require.True(t, ok)
	assert.Equal(t, "range", call.Name)
	require.Len(t, call.Args, 3)
	assert.IsType(t, &Literal{}, call.Args[0])
	assert.IsType(t, &VarPath{}, call.Args[1])
	assert.IsType(t, &Literal{}, call.Args[2])
}

func TestParseFor(t *testing.T) {
	t.Run("basic", func(t *testing.T) {
		node := parseOne(t, "{% for item in items %}{{ item }}{% endfor %}")
		loop, ok := node.(*For)
		require.True(t, ok)
		assert.Equal(t, "item", loop.Item)
		assert.Equal(t, "items", loop.Iterable)
		assert.Empty(t, loop.Filter)
		require.Len(t, loop.Body, 1)
	})

	t.Run("iterable post-filter", func(t *testing.T) {
		node := parseOne(t, "{% for x in items | reverse %}{% endfor %}")
		loop := node.(*For)
		assert.Equal(t, "reverse", loop.Filter)
	})

	t.Run("dotted iterable", func(t *testing.T) {
		node := parseOne(t, "{% for x in page.sections %}{% endfor %}")
		assert.Equal(t, "page.sections", node.(*For).Iterable)
	})

	t.Run("missing in", func(t *testing.T) {
		requireParseError(t, "{% for x items %}{% endfor %}", ExpectedIn)
	})

	t.Run("unclosed", func(t *testing.T) {
		requireParseError(t, "{% for x in items %}body", UnexpectedEof)
	})
}

func TestParseIf(t *testing.T) {
	t.Run("full chain", func(t *testing.T) {
		node := parseOne(t,
			"{% if n > 1 %}many{% elif n == 1 %}one{% elif n == 0 %}zero{% else %}neg{% endif %}")
		cond, ok := node.(*If)
		require.True(t, ok)
		assert.Equal(t, "n", cond.Cond.Path)
		assert.Equal(t, ">", cond.Cond.Op)
		assert.Equal(t, value.FromInt(1), cond.Cond.Literal)
		require.Len(t, cond.Elifs, 2)
		assert.Equal(t, "==", cond.Elifs[0].Cond.Op)
		require.Len(t, cond.Else, 1)
	})

	t.Run("truthiness condition", func(t *testing.T) {
		node := parseOne(t, "{% if show %}x{% endif %}")
		cond := node.(*If)
		assert.Equal(t, "show", cond.Cond.Path)
		assert.Empty(t, cond.Cond.Op)
	})

	t.Run("nested", func(t *testing.T) {
		node := parseOne(t, "{% if a %}{% if b %}x{% endif %}{% endif %}")
		outer := node.(*If)
		require.Len(t, outer.Body, 1)
		assert.IsType(t, &If{}, outer.Body[0])
	})

	t.Run("assignment is not a comparison", func(t *testing.T) {
		requireParseError(t, "{% if a = 1 %}{% endif %}", ExpectedOperator)
	})
}

func TestParseSet(t *testing.T) {
	node := parseOne(t, `{% set title = page.title | upper %}`)
	set, ok := node.(*Set)
	require.True(t, ok)
	assert.Equal(t, "title", set.Name)
	assert.IsType(t, &Filtered{}, set.Expr)

	requireParseError(t, "{% set title page %}", ExpectedEquals)
}

func TestParseInheritanceTags(t *testing.T) {
	nodes, err := Parse(`{% extends "base.html" %}{% block body %}{% parent %}hi{% endblock %}`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	ext, ok := nodes[0].(*Extends)
	require.True(t, ok)
	assert.Equal(t, "base.html", ext.Template)

	block, ok := nodes[1].(*Block)
	require.True(t, ok)
	assert.Equal(t, "body", block.Name)
	require.Len(t, block.Body, 2)
	assert.IsType(t, &Parent{}, block.Body[0])
}

func TestParentOutsideBlock(t *testing.T) {
	requireParseError(t, "{% parent %}", UnexpectedToken)
}

func TestParseInclude(t *testing.T) {
	node := parseOne(t, `{% include "partials/nav.html" %}`)
	inc, ok := node.(*Include)
	require.True(t, ok)
	assert.Equal(t, "partials/nav.html", inc.Template)

	requireParseError(t, "{% include nav %}", ExpectedString)
}

func TestParseMacro(t *testing.T) {
	t.Run("with params", func(t *testing.T) {
		node := parseOne(t, "{% macro link(href, label) %}<a href={{ href }}>{{ label }}</a>{% endmacro %}")
		macro, ok := node.(*Macro)
		require.True(t, ok)
		assert.Equal(t, "link", macro.Name)
		assert.Equal(t, []string{"href", "label"}, macro.Params)
	})

	t.Run("no params", func(t *testing.T) {
		node := parseOne(t, "{% macro sep() %}---{% endmacro %}")
		assert.Empty(t, node.(*Macro).Params)
	})

	t.Run("missing comma", func(t *testing.T) {
		requireParseError(t, "{% macro f(a b) %}{% endmacro %}", ExpectedComma)
	})
}

func TestParseImport(t *testing.T) {
	node := parseOne(t, `{% from "macros.html" import link, button %}`)
	imp, ok := node.(*Import)
	require.True(t, ok)
	assert.Equal(t, "macros.html", imp.Template)
	assert.Equal(t, []string{"link", "button"}, imp.MacroNames)

	requireParseError(t, `{% from "macros.html" link %}`, ExpectedImport)
}

func TestStrayTerminator(t *testing.T) {
	_, err := Parse("{% endfor %}")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, UnexpectedToken, perr.Kind)
}

func TestInvalidPrimary(t *testing.T) {
	requireParseError(t, "{{ , }}", InvalidPrimary)
}

func TestDeepNestingGuard(t *testing.T) {
	source := ""
	for i := 0; i < maxRecursion+2; i++ {
		source += "{% if a %}"
	}
	_, err := Parse(source)
	require.Error(t, err)
}
