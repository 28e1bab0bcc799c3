package twigo

import "fmt"

// ErrorKind describes the type of error.
type ErrorKind int

const (
	ErrVariableNotFound ErrorKind = iota
	ErrInvalidPath
	ErrIterableNotArray
	ErrUnsupportedOp
	ErrUnknownFunction
	ErrFunctionNotFound
	ErrTooFewArguments
	ErrTooManyArguments
	ErrInvalidMacroArgs
	ErrInvalidType
	ErrTemplateNotFound
	ErrTemplateLoadFailed
	ErrCircularInheritance
	ErrMaxDepthExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case ErrVariableNotFound:
		return "variable not found"
	case ErrInvalidPath:
		return "invalid path"
	case ErrIterableNotArray:
		return "iterable not array"
	case ErrUnsupportedOp:
		return "unsupported operator"
	case ErrUnknownFunction:
		return "unknown function"
	case ErrFunctionNotFound:
		return "function not found"
	case ErrTooFewArguments:
		return "too few arguments"
	case ErrTooManyArguments:
		return "too many arguments"
	case ErrInvalidMacroArgs:
		return "invalid macro arguments"
	case ErrInvalidType:
		return "invalid type"
	case ErrTemplateNotFound:
		return "template not found"
	case ErrTemplateLoadFailed:
		return "template load failed"
	case ErrCircularInheritance:
		return "circular inheritance"
	case ErrMaxDepthExceeded:
		return "max depth exceeded"
	default:
		return "error"
	}
}

// Error represents an error that occurred during template processing.
// Lexical and syntax errors keep their own types (lexer.Error,
// parser.Error); this type covers loading and render-time failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Name    string // template name
	Line    int    // source line, 0 when unknown
}

func (e *Error) Error() string {
	if e.Name != "" && e.Line > 0 {
		return fmt.Sprintf("%s: %s (in %s line %d)", e.Kind, e.Message, e.Name, e.Line)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (in %s)", e.Kind, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates a new error.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// WithName adds the template name to an error.
func (e *Error) WithName(name string) *Error {
	if e.Name == "" {
		e.Name = name
	}
	return e
}

// WithLine adds the source line to an error.
func (e *Error) WithLine(line int) *Error {
	if e.Line == 0 {
		e.Line = line
	}
	return e
}
