package matcher

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// ArgumentPolicy selects how expected and produced arguments are compared.
type ArgumentPolicy string

const (
	// PolicyStrict is structural equality over decoded JSON. Numbers compare by value.
	PolicyStrict ArgumentPolicy = "strict"

	// PolicyLenient additionally accepts numeric strings for numbers and
	// "true"/"false" for booleans.
	PolicyLenient ArgumentPolicy = "lenient"
)

// ParsePolicy converts a configured policy name. Empty means strict.
func ParsePolicy(s string) (ArgumentPolicy, error) {
	switch ArgumentPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyStrict:
		return PolicyStrict, nil
	case PolicyLenient:
		return PolicyLenient, nil
	default:
		return "", fmt.Errorf("unknown argument policy %q (want %q or %q)", s, PolicyStrict, PolicyLenient)
	}
}

// Equal compares two decoded JSON values.
// Object keys are order insensitive, arrays are order sensitive.
// A nil object equals an empty one.
func Equal(expected, actual any, policy ArgumentPolicy) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok || len(e) != len(a) {
			return false
		}
		for k, ev := range e {
			av, ok := a[k]
			if !ok || !Equal(ev, av, policy) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) != len(a) {
			return false
		}
		for i := range e {
			if !Equal(e[i], a[i], policy) {
				return false
			}
		}
		return true

	case nil:
		return actual == nil
	}

	if en, ok := number(expected); ok {
		if an, ok := number(actual); ok {
			return en.Cmp(an) == 0
		}
		if policy == PolicyLenient {
			if s, ok := actual.(string); ok {
				an, ok := parseNumber(s)
				return ok && en.Cmp(an) == 0
			}
		}
		return false
	}

	switch e := expected.(type) {
	case string:
		switch a := actual.(type) {
		case string:
			return e == a
		case bool:
			return policy == PolicyLenient && e == fmt.Sprint(a)
		}
		if policy == PolicyLenient {
			if an, ok := number(actual); ok {
				en, ok := parseNumber(e)
				return ok && en.Cmp(an) == 0
			}
		}
		return false

	case bool:
		switch a := actual.(type) {
		case bool:
			return e == a
		case string:
			return policy == PolicyLenient && a == fmt.Sprint(e)
		}
		return false
	}

	return false
}

// number converts any Go numeric type, or json.Number, to an exact rational.
func number(v any) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		return parseNumber(string(n))
	case float64:
		return ratFromFloat(n)
	case float32:
		return ratFromFloat(float64(n))
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int8:
		return new(big.Rat).SetInt64(int64(n)), true
	case int16:
		return new(big.Rat).SetInt64(int64(n)), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Rat).SetUint64(n), true
	default:
		return nil, false
	}
}

func ratFromFloat(f float64) (*big.Rat, bool) {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return nil, false // NaN or Inf
	}
	return r, true
}

func parseNumber(s string) (*big.Rat, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	r, ok := new(big.Rat).SetString(s)
	return r, ok
}
