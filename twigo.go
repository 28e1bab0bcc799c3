// Package twigo provides a Twig-style template engine for Go.
//
// Templates are compiled into an AST and rendered against a dynamic
// context value. The engine supports variable interpolation, filters,
// loops, conditionals, local assignment, macros and template
// inheritance.
//
// # Quick Start
//
//	engine := twigo.New(twigo.MemoryLoader{
//	    "hello": "Hello {{ name }}!",
//	})
//	result, _ := engine.Render("hello", twigo.FromAny(map[string]any{
//	    "name": "World",
//	}))
//	fmt.Println(result) // Output: Hello World!
//
// # Template Syntax
//
// Key syntax elements:
//   - Variables: {{ user.name }}
//   - Filters: {{ title | upper }} or {{ price | number_format:"2" }}
//     (exactly one filter per expression; chains are not supported)
//   - Loops: {% for item in items %}...{% endfor %}
//   - Conditionals: {% if n > 1 %}...{% elif n == 1 %}...{% else %}...{% endif %}
//   - Assignment: {% set total = price %}
//   - Macros: {% macro tag(name) %}<{{ name }}>{% endmacro %}
//   - Imports: {% from "macros" import tag, link %}
//
// # Inheritance
//
// Base template (base.html):
//
//	<title>{% block title %}Site{% endblock %}</title>
//	{% block body %}{% endblock %}
//
// Child template:
//
//	{% extends "base.html" %}
//	{% block title %}Home - {% parent %}{% endblock %}
//	{% block body %}<h1>Hello</h1>{% endblock %}
//
// {% parent %} renders the immediate ancestor's body for the
// enclosing block, and works at any depth of the extends chain.
//
// # Error Handling
//
// Variable lookup is strict: a missing variable is an error, never a
// silently empty string. Any load, parse or render error aborts the
// whole render; callers get either the complete output or an error.
// Filters are the one lenient spot: an unknown filter or a
// type-mismatched input passes the value through unchanged.
//
// # Context Values
//
// Contexts are built from the value package, either explicitly
// (FromString, FromMap, ...) or from plain Go data via FromAny:
//
//	ctx := twigo.FromAny(map[string]any{
//	    "user":  map[string]any{"name": "Ada"},
//	    "items": []any{1, 2, 3},
//	})
package twigo

import "github.com/xiusin/twigo/value"

// Value is a dynamically typed value in the template engine.
type Value = value.Value

// Kind describes the type of a Value.
type Kind = value.Kind

const (
	KindNull   = value.KindNull
	KindBool   = value.KindBool
	KindInt    = value.KindInt
	KindFloat  = value.KindFloat
	KindString = value.KindString
	KindArray  = value.KindArray
	KindObject = value.KindObject
)

// Value constructors re-exported from the value package.
var (
	Null       = value.Null
	FromBool   = value.FromBool
	FromInt    = value.FromInt
	FromFloat  = value.FromFloat
	FromString = value.FromString
	FromSlice  = value.FromSlice
	FromMap    = value.FromMap
	FromAny    = value.FromAny
)
