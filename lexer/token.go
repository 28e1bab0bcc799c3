package lexer

import "fmt"

// TokenKind identifies the kind of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenText
	TokenVariableStart // {{
	TokenVariableEnd   // }}
	TokenTagStart      // {%
	TokenTagEnd        // %}
	TokenIdent
	TokenString
	TokenNumber
	TokenOperator // = == != < <= > >= . , : ( )
	TokenPipe     // |

	// Reserved keywords. Identifier lexemes matching a keyword are
	// reclassified to these kinds.
	TokenFor
	TokenIn
	TokenEndfor
	TokenIf
	TokenElif
	TokenElse
	TokenEndif
	TokenSet
	TokenExtends
	TokenBlock
	TokenEndblock
	TokenInclude
	TokenMacro
	TokenEndmacro
	TokenFrom
	TokenImport
	TokenParent
)

var tokenNames = map[TokenKind]string{
	TokenEOF:           "EOF",
	TokenText:          "TEXT",
	TokenVariableStart: "VAR_START",
	TokenVariableEnd:   "VAR_END",
	TokenTagStart:      "TAG_START",
	TokenTagEnd:        "TAG_END",
	TokenIdent:         "IDENT",
	TokenString:        "STRING",
	TokenNumber:        "NUMBER",
	TokenOperator:      "OPERATOR",
	TokenPipe:          "PIPE",
	TokenFor:           "FOR",
	TokenIn:            "IN",
	TokenEndfor:        "ENDFOR",
	TokenIf:            "IF",
	TokenElif:          "ELIF",
	TokenElse:          "ELSE",
	TokenEndif:         "ENDIF",
	TokenSet:           "SET",
	TokenExtends:       "EXTENDS",
	TokenBlock:         "BLOCK",
	TokenEndblock:      "ENDBLOCK",
	TokenInclude:       "INCLUDE",
	TokenMacro:         "MACRO",
	TokenEndmacro:      "ENDMACRO",
	TokenFrom:          "FROM",
	TokenImport:        "IMPORT",
	TokenParent:        "PARENT",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(k))
}

// keywords maps identifier lexemes to their keyword token kind.
var keywords = map[string]TokenKind{
	"for":      TokenFor,
	"in":       TokenIn,
	"endfor":   TokenEndfor,
	"if":       TokenIf,
	"elif":     TokenElif,
	"else":     TokenElse,
	"endif":    TokenEndif,
	"set":      TokenSet,
	"extends":  TokenExtends,
	"block":    TokenBlock,
	"endblock": TokenEndblock,
	"include":  TokenInclude,
	"macro":    TokenMacro,
	"endmacro": TokenEndmacro,
	"from":     TokenFrom,
	"import":   TokenImport,
	"parent":   TokenParent,
}

// IsKeyword reports whether the kind is one of the reserved keywords.
func (k TokenKind) IsKeyword() bool {
	return k >= TokenFor && k <= TokenParent
}

// Token is a single lexical unit of a template.
type Token struct {
	Kind   TokenKind
	Lexeme string
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at line %d", t.Kind, t.Lexeme, t.Line)
}
