package naming

import (
	"math"
	"strconv"
	"strings"
)

// Unbounded disables truncation in Abbreviate.
const Unbounded = -1

// NameCutoff is the length field names are cut to when they carry
// neither a path nor underscores.
const NameCutoff = 2

// Null is how a missing value is rendered before replacements.
const Null = "None"

// Abbreviate shortens s. A path keeps its last element, a snake_case
// word becomes its initialism, anything else is cut to cutoff runes.
func Abbreviate(s string, cutoff int) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	if strings.Contains(s, "_") {
		var b strings.Builder
		for _, segment := range strings.Split(s, "_") {
			for _, r := range segment {
				b.WriteRune(r)
				break
			}
		}
		return b.String()
	}
	if cutoff < 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= cutoff {
		return s
	}
	return string(runes[:cutoff])
}

// AbbreviateName abbreviates a configuration field name.
func AbbreviateName(name string) string {
	return Abbreviate(name, NameCutoff)
}

// AbbreviateValue renders v and abbreviates it without truncation.
func AbbreviateValue(v any) string {
	if v == nil {
		return Null
	}
	return Abbreviate(FormatValue(v), Unbounded)
}

// FormatValue renders configuration values the way the experiment names
// have always spelled them: True/False, None, and floats in shortest
// round-trip form with a trailing ".0" for integral values.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Null
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case float32:
		return formatFloat(float64(x))
	case *string:
		if x == nil {
			return Null
		}
		return *x
	case *int:
		if x == nil {
			return Null
		}
		return strconv.Itoa(*x)
	default:
		return Null
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
