package twigo

import (
	"fmt"

	"github.com/xiusin/twigo/value"
)

// FunctionFunc is the signature for registered template functions.
type FunctionFunc func(args []value.Value) (value.Value, error)

type registeredFunction struct {
	minArgs int
	maxArgs int // -1 means unbounded
	fn      FunctionFunc
}

// FunctionRegistry holds named callables usable from template
// expressions. Registration is not synchronized; register everything
// before rendering concurrently.
type FunctionRegistry struct {
	functions map[string]registeredFunction
}

// NewFunctionRegistry creates a registry preloaded with the default
// functions (range, min, max, cycle).
func NewFunctionRegistry() *FunctionRegistry {
	r := &FunctionRegistry{functions: make(map[string]registeredFunction)}
	registerDefaultFunctions(r)
	return r
}

// Register adds a function under the given name. maxArgs of -1 means
// no upper bound. Re-registering a name replaces the previous entry.
func (r *FunctionRegistry) Register(name string, minArgs, maxArgs int, fn FunctionFunc) {
	r.functions[name] = registeredFunction{minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

// Call invokes a registered function, checking argument bounds.
func (r *FunctionRegistry) Call(name string, args []value.Value) (value.Value, error) {
	f, ok := r.functions[name]
	if !ok {
		return value.Null(), NewError(ErrFunctionNotFound, name)
	}
	if len(args) < f.minArgs {
		return value.Null(), NewError(ErrTooFewArguments,
			fmt.Sprintf("%s expects at least %d arguments, got %d", name, f.minArgs, len(args)))
	}
	if f.maxArgs >= 0 && len(args) > f.maxArgs {
		return value.Null(), NewError(ErrTooManyArguments,
			fmt.Sprintf("%s expects at most %d arguments, got %d", name, f.maxArgs, len(args)))
	}
	return f.fn(args)
}

// Has reports whether a function is registered under the name.
func (r *FunctionRegistry) Has(name string) bool {
	_, ok := r.functions[name]
	return ok
}

func registerDefaultFunctions(r *FunctionRegistry) {
	r.Register("range", 1, 3, fnRange)
	r.Register("min", 1, -1, fnMin)
	r.Register("max", 1, -1, fnMax)
	r.Register("cycle", 2, -1, fnCycle)
}

// fnRange implements range(stop), range(start, stop) and
// range(start, stop, step).
func fnRange(args []value.Value) (value.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	nums := make([]int64, len(args))
	for i, arg := range args {
		n, ok := arg.AsInt()
		if !ok {
			return value.Null(), NewError(ErrInvalidType, "range expects integer arguments")
		}
		nums[i] = n
	}
	switch len(args) {
	case 1:
		stop = nums[0]
	case 2:
		start, stop = nums[0], nums[1]
	case 3:
		start, stop, step = nums[0], nums[1], nums[2]
		if step == 0 {
			return value.Null(), NewError(ErrInvalidType, "range step must not be zero")
		}
	}

	var items []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			items = append(items, value.FromInt(i))
		}
	} else {
		for i := start; i > stop; i += step {
			items = append(items, value.FromInt(i))
		}
	}
	return value.FromSlice(items), nil
}

// fnMin returns the smallest of its arguments, or of a single array
// argument's elements. Non-numeric values compare as 0.
func fnMin(args []value.Value) (value.Value, error) {
	return pickExtreme(args, func(a, b float64) bool { return a < b })
}

// fnMax mirrors fnMin for the largest value.
func fnMax(args []value.Value) (value.Value, error) {
	return pickExtreme(args, func(a, b float64) bool { return a > b })
}

func pickExtreme(args []value.Value, better func(a, b float64) bool) (value.Value, error) {
	items := args
	if len(args) == 1 {
		if arr, ok := args[0].AsSlice(); ok {
			items = arr
		}
	}
	if len(items) == 0 {
		return value.Null(), NewError(ErrTooFewArguments, "empty sequence")
	}
	best := items[0]
	bestNum := best.AsNumber()
	for _, item := range items[1:] {
		if n := item.AsNumber(); better(n, bestNum) {
			best, bestNum = item, n
		}
	}
	return best, nil
}

// fnCycle returns the option at position index modulo the option
// count: cycle(index, a, b, c).
func fnCycle(args []value.Value) (value.Value, error) {
	idx, ok := args[0].AsInt()
	if !ok {
		return value.Null(), NewError(ErrInvalidType, "cycle expects an integer position")
	}
	options := args[1:]
	if len(options) == 1 {
		if arr, ok := options[0].AsSlice(); ok {
			options = arr
		}
	}
	if len(options) == 0 {
		return value.Null(), NewError(ErrTooFewArguments, "cycle needs at least one option")
	}
	i := idx % int64(len(options))
	if i < 0 {
		i += int64(len(options))
	}
	return options[i], nil
}
