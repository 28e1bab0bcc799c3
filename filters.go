package twigo

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xiusin/twigo/value"
)

// FilterFunc is the signature for filter functions. Filters are pure:
// they receive the input value plus the optional string argument from
// the `name:"arg"` form and return the filtered value. Type-mismatched
// input passes through unchanged rather than failing.
type FilterFunc func(val value.Value, arg string, hasArg bool) value.Value

func builtinFilters() map[string]FilterFunc {
	return map[string]FilterFunc{
		"upper":         filterUpper,
		"lower":         filterLower,
		"capitalize":    filterCapitalize,
		"title":         filterTitle,
		"trim":          filterTrim,
		"length":        filterLength,
		"slice":         filterSlice,
		"join":          filterJoin,
		"date":          filterDate,
		"default":       filterDefault,
		"escape":        filterEscape,
		"reverse":       filterReverse,
		"first":         filterFirst,
		"last":          filterLast,
		"format":        filterFormat,
		"replace":       filterReplace,
		"abs":           filterAbs,
		"round":         filterRound,
		"number_format": filterNumberFormat,
		"url_encode":    filterURLEncode,
		"json_encode":   filterJSONEncode,
		"striptags":     filterStriptags,
		"nl2br":         filterNl2br,
		"split":         filterSplit,
		"keys":          filterKeys,
		"values":        filterValues,
	}
}

// applyFilter splits a filter spec ("name" or "name:arg") on the first
// colon and dispatches. Unknown filters pass the value through.
func applyFilter(filters map[string]FilterFunc, val value.Value, spec string) value.Value {
	name, arg, hasArg := strings.Cut(spec, ":")
	f, ok := filters[name]
	if !ok {
		return val
	}
	return f(val, arg, hasArg)
}

func filterUpper(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		return value.FromString(strings.ToUpper(s))
	}
	return val
}

func filterLower(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		return value.FromString(strings.ToLower(s))
	}
	return val
}

func filterCapitalize(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok && len(s) > 0 {
		runes := []rune(strings.ToLower(s))
		runes[0] = unicode.ToUpper(runes[0])
		return value.FromString(string(runes))
	}
	return val
}

func filterTitle(val value.Value, _ string, _ bool) value.Value {
	s, ok := val.AsString()
	if !ok {
		return val
	}
	var b strings.Builder
	capitalizeNext := true
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			capitalizeNext = true
			b.WriteRune(r)
		case capitalizeNext:
			b.WriteRune(unicode.ToUpper(r))
			capitalizeNext = false
		default:
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return value.FromString(b.String())
}

func filterTrim(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		return value.FromString(strings.TrimSpace(s))
	}
	return val
}

func filterLength(val value.Value, _ string, _ bool) value.Value {
	if n, ok := val.Len(); ok {
		return value.FromInt(int64(n))
	}
	return val
}

// filterSlice takes "start" or "start,length" and slices strings by
// rune and arrays by element, clamping out-of-range bounds.
func filterSlice(val value.Value, arg string, hasArg bool) value.Value {
	if !hasArg {
		return val
	}
	start, length, ok := parseSliceArg(arg)
	if !ok {
		return val
	}

	if s, ok := val.AsString(); ok {
		runes := []rune(s)
		lo, hi := clampSlice(start, length, len(runes))
		return value.FromString(string(runes[lo:hi]))
	}
	if arr, ok := val.AsSlice(); ok {
		lo, hi := clampSlice(start, length, len(arr))
		return value.FromSlice(arr[lo:hi])
	}
	return val
}

func parseSliceArg(arg string) (start, length int, ok bool) {
	startStr, lengthStr, hasLength := strings.Cut(arg, ",")
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return 0, 0, false
	}
	length = -1
	if hasLength {
		length, err = strconv.Atoi(strings.TrimSpace(lengthStr))
		if err != nil {
			return 0, 0, false
		}
	}
	return start, length, true
}

func clampSlice(start, length, n int) (lo, hi int) {
	lo = start
	if lo < 0 {
		lo = n + lo
	}
	if lo < 0 {
		lo = 0
	}
	if lo > n {
		lo = n
	}
	hi = n
	if length >= 0 {
		hi = lo + length
	}
	if hi > n {
		hi = n
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func filterJoin(val value.Value, arg string, hasArg bool) value.Value {
	arr, ok := val.AsSlice()
	if !ok {
		return val
	}
	sep := ""
	if hasArg {
		sep = arg
	}
	parts := make([]string, len(arr))
	for i, item := range arr {
		parts[i] = item.String()
	}
	return value.FromString(strings.Join(parts, sep))
}

// filterDate formats a unix timestamp with a PHP-style format string
// (Y m d H i s plus a few common friends). Defaults to "Y-m-d H:i:s".
func filterDate(val value.Value, arg string, hasArg bool) value.Value {
	ts, ok := val.AsInt()
	if !ok {
		if f, fok := val.AsFloat(); fok {
			ts, ok = int64(f), true
		}
	}
	if !ok {
		return val
	}
	format := "Y-m-d H:i:s"
	if hasArg {
		format = arg
	}
	t := time.Unix(ts, 0).UTC()

	var b strings.Builder
	for _, c := range format {
		switch c {
		case 'Y':
			fmt.Fprintf(&b, "%04d", t.Year())
		case 'y':
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case 'n':
			fmt.Fprintf(&b, "%d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&b, "%02d", t.Day())
		case 'j':
			fmt.Fprintf(&b, "%d", t.Day())
		case 'H':
			fmt.Fprintf(&b, "%02d", t.Hour())
		case 'G':
			fmt.Fprintf(&b, "%d", t.Hour())
		case 'i':
			fmt.Fprintf(&b, "%02d", t.Minute())
		case 's':
			fmt.Fprintf(&b, "%02d", t.Second())
		default:
			b.WriteRune(c)
		}
	}
	return value.FromString(b.String())
}

func filterDefault(val value.Value, arg string, hasArg bool) value.Value {
	if val.IsTruthy() {
		return val
	}
	if hasArg {
		return value.FromString(arg)
	}
	return value.FromString("")
}

// filterEscape escapes &, <, >, " and ' for HTML output.
func filterEscape(val value.Value, _ string, _ bool) value.Value {
	s, ok := val.AsString()
	if !ok {
		return val
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#39;")
		default:
			b.WriteRune(r)
		}
	}
	return value.FromString(b.String())
}

func filterReverse(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		runes := []rune(s)
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return value.FromString(string(runes))
	}
	if arr, ok := val.AsSlice(); ok {
		out := make([]value.Value, len(arr))
		for i, item := range arr {
			out[len(arr)-1-i] = item
		}
		return value.FromSlice(out)
	}
	return val
}

func filterFirst(val value.Value, _ string, _ bool) value.Value {
	if arr, ok := val.AsSlice(); ok {
		if len(arr) == 0 {
			return value.Null()
		}
		return arr[0]
	}
	if s, ok := val.AsString(); ok {
		runes := []rune(s)
		if len(runes) == 0 {
			return val
		}
		return value.FromString(string(runes[0]))
	}
	return val
}

func filterLast(val value.Value, _ string, _ bool) value.Value {
	if arr, ok := val.AsSlice(); ok {
		if len(arr) == 0 {
			return value.Null()
		}
		return arr[len(arr)-1]
	}
	if s, ok := val.AsString(); ok {
		runes := []rune(s)
		if len(runes) == 0 {
			return val
		}
		return value.FromString(string(runes[len(runes)-1]))
	}
	return val
}

// filterFormat applies the argument as a Sprintf pattern to the raw
// value: {{ pi | format:"%.2f" }}.
func filterFormat(val value.Value, arg string, hasArg bool) value.Value {
	if !hasArg {
		return val
	}
	return value.FromString(fmt.Sprintf(arg, val.Raw()))
}

// filterReplace takes "old,new" split on the first comma.
func filterReplace(val value.Value, arg string, hasArg bool) value.Value {
	s, ok := val.AsString()
	if !ok || !hasArg {
		return val
	}
	old, new, found := strings.Cut(arg, ",")
	if !found {
		new = ""
	}
	return value.FromString(strings.ReplaceAll(s, old, new))
}

func filterAbs(val value.Value, _ string, _ bool) value.Value {
	if i, ok := val.AsInt(); ok {
		if i < 0 {
			return value.FromInt(-i)
		}
		return val
	}
	if f, ok := val.AsFloat(); ok {
		return value.FromFloat(math.Abs(f))
	}
	return val
}

// filterRound rounds to the given number of decimals (default 0).
func filterRound(val value.Value, arg string, hasArg bool) value.Value {
	f, ok := val.AsFloat()
	if !ok {
		if i, iok := val.AsInt(); iok {
			f, ok = float64(i), true
		}
	}
	if !ok {
		return val
	}
	precision := 0
	if hasArg {
		p, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return val
		}
		precision = p
	}
	shift := math.Pow(10, float64(precision))
	return value.FromFloat(math.Round(f*shift) / shift)
}

// filterNumberFormat renders a number with the given decimal count
// (default 0), "." as decimal point and "," as thousands separator.
func filterNumberFormat(val value.Value, arg string, hasArg bool) value.Value {
	f, ok := val.AsFloat()
	if !ok {
		if i, iok := val.AsInt(); iok {
			f, ok = float64(i), true
		}
	}
	if !ok {
		return val
	}
	decimals := 0
	if hasArg {
		d, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil || d < 0 {
			return val
		}
		decimals = d
	}

	s := strconv.FormatFloat(f, 'f', decimals, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return value.FromString(b.String())
}

func filterURLEncode(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		return value.FromString(url.QueryEscape(s))
	}
	return val
}

func filterJSONEncode(val value.Value, _ string, _ bool) value.Value {
	data, err := json.Marshal(val.Raw())
	if err != nil {
		return val
	}
	return value.FromString(string(data))
}

// filterStriptags drops every <...> run from a string.
func filterStriptags(val value.Value, _ string, _ bool) value.Value {
	s, ok := val.AsString()
	if !ok {
		return val
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return value.FromString(b.String())
}

func filterNl2br(val value.Value, _ string, _ bool) value.Value {
	if s, ok := val.AsString(); ok {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return value.FromString(strings.ReplaceAll(s, "\n", "<br />"))
	}
	return val
}

func filterSplit(val value.Value, arg string, hasArg bool) value.Value {
	s, ok := val.AsString()
	if !ok {
		return val
	}
	sep := ","
	if hasArg {
		sep = arg
	}
	parts := strings.Split(s, sep)
	items := make([]value.Value, len(parts))
	for i, part := range parts {
		items[i] = value.FromString(part)
	}
	return value.FromSlice(items)
}

func filterKeys(val value.Value, _ string, _ bool) value.Value {
	m, ok := val.AsMap()
	if !ok {
		return val
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]value.Value, len(keys))
	for i, k := range keys {
		items[i] = value.FromString(k)
	}
	return value.FromSlice(items)
}

func filterValues(val value.Value, _ string, _ bool) value.Value {
	m, ok := val.AsMap()
	if !ok {
		return val
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]value.Value, len(keys))
	for i, k := range keys {
		items[i] = m[k]
	}
	return value.FromSlice(items)
}
