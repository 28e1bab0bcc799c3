package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, source string) []Token {
	t.Helper()
	lx := New(source)
	var tokens []Token
	for {
		tok, err := lx.Next()
		require.NoError(t, err)
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestPlainText(t *testing.T) {
	tokens := collect(t, "hello world")
	require.Len(t, tokens, 2)
	assert.Equal(t, TokenText, tokens[0].Kind)
	assert.Equal(t, "hello world", tokens[0].Lexeme)
	assert.Equal(t, TokenEOF, tokens[1].Kind)
}

func TestVariableExpression(t *testing.T) {
	tokens := collect(t, "Hi {{ user.name }}!")
	assert.Equal(t, []TokenKind{
		TokenText,
		TokenVariableStart, TokenIdent, TokenOperator, TokenIdent, TokenVariableEnd,
		TokenText,
		TokenEOF,
	}, kinds(tokens))
	assert.Equal(t, "user", tokens[2].Lexeme)
	assert.Equal(t, ".", tokens[3].Lexeme)
	assert.Equal(t, "name", tokens[4].Lexeme)
}

func TestKeywordReclassification(t *testing.T) {
	tokens := collect(t, "{% for item in items %}")
	assert.Equal(t, []TokenKind{
		TokenTagStart, TokenFor, TokenIdent, TokenIn, TokenIdent, TokenTagEnd, TokenEOF,
	}, kinds(tokens))
}

func TestAllKeywords(t *testing.T) {
	for lexeme, kind := range keywords {
		tokens := collect(t, "{% "+lexeme+" %}")
		require.Len(t, tokens, 4, "keyword %s", lexeme)
		assert.Equal(t, kind, tokens[1].Kind)
		assert.True(t, kind.IsKeyword())
	}
}

func TestOperatorsAndPipe(t *testing.T) {
	tokens := collect(t, `{{ a == 1 }}{{ b != 2 }}{{ c <= d }}{{ e | upper:"x" }}`)
	var ops []string
	var sawPipe bool
	for _, tok := range tokens {
		if tok.Kind == TokenOperator {
			ops = append(ops, tok.Lexeme)
		}
		if tok.Kind == TokenPipe {
			sawPipe = true
		}
	}
	assert.Equal(t, []string{"==", "!=", "<=", ":"}, ops)
	assert.True(t, sawPipe)
}

func TestNumbers(t *testing.T) {
	tokens := collect(t, "{{ 42 }}{{ 3.14 }}")
	assert.Equal(t, TokenNumber, tokens[1].Kind)
	assert.Equal(t, "42", tokens[1].Lexeme)
	assert.Equal(t, TokenNumber, tokens[4].Kind)
	assert.Equal(t, "3.14", tokens[4].Lexeme)
}

func TestStrings(t *testing.T) {
	tokens := collect(t, `{% include "partials/head.html" %}`)
	assert.Equal(t, TokenString, tokens[2].Kind)
	assert.Equal(t, "partials/head.html", tokens[2].Lexeme)
}

func TestUnterminatedString(t *testing.T) {
	lx := New(`{{ "oops }}`)
	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenVariableStart, tok.Kind)

	_, err = lx.Next()
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
}

func TestUnexpectedCharacter(t *testing.T) {
	lx := New("{{ a ! b }}")
	lx.Next() // {{
	lx.Next() // a
	_, err := lx.Next()
	require.Error(t, err)
}

func TestPeekRestoresState(t *testing.T) {
	lx := New("{{ name }}")

	first, err := lx.Peek()
	require.NoError(t, err)
	again, err := lx.Peek()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	tok, err := lx.Next()
	require.NoError(t, err)
	assert.Equal(t, first, tok)
}

func TestLineTracking(t *testing.T) {
	tokens := collect(t, "a\nb\n{{ x }}")
	require.Equal(t, TokenVariableStart, tokens[1].Kind)
	assert.Equal(t, 3, tokens[1].Line)
	assert.Equal(t, 3, tokens[2].Line)
}

func TestTextAroundTags(t *testing.T) {
	tokens := collect(t, "a{% if x %}b{% endif %}c")
	var texts []string
	for _, tok := range tokens {
		if tok.Kind == TokenText {
			texts = append(texts, tok.Lexeme)
		}
	}
	assert.Equal(t, []string{"a", "b", "c"}, texts)
}
