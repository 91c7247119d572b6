package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// NumbersSeparator joins numbers in the tabular representation.
const NumbersSeparator = ", "

// NormalizeNumbers turns any stored or incoming numbers field into the
// canonical representation: an ascending slice of ints.
//
// Accepted inputs:
//   - a delimited string ("1, 2, 3"), optionally wrapped in brackets ("[1, 2, 3]")
//   - a slice of any integer, integral float or numeric string values
//
// Range and cardinality are not checked here; see ValidateDrawNumbers.
func NormalizeNumbers(v any) ([]int, error) {
	var numbers []int

	switch t := v.(type) {
	case nil:
		return nil, fmt.Errorf("numbers field is empty")
	case []int:
		numbers = append([]int(nil), t...)
	case string:
		parsed, err := ParseNumbers(t)
		if err != nil {
			return nil, err
		}
		numbers = parsed
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("unsupported numbers type %T", v)
		}
		numbers = make([]int, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			n, err := coerceInt(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			numbers = append(numbers, n)
		}
	}

	if len(numbers) == 0 {
		return nil, fmt.Errorf("numbers field is empty")
	}

	sort.Ints(numbers)
	return numbers, nil
}

// ParseNumbers parses the delimited string form written by FormatNumbers.
// Comma separated values are preferred; whitespace separation is accepted
// for hand-edited sheets.
func ParseNumbers(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("numbers field is empty")
	}

	var parts []string
	if strings.Contains(s, ",") {
		parts = strings.Split(s, ",")
	} else {
		parts = strings.Fields(s)
	}

	numbers := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

// FormatNumbers serializes numbers as ", "-joined decimal integers.
func FormatNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, NumbersSeparator)
}

// ValidateDrawNumbers checks cardinality, range and uniqueness of a normalized set.
func ValidateDrawNumbers(numbers []int, rules Rules) error {
	if len(numbers) != rules.DrawSize {
		return fmt.Errorf("expected %d numbers, got %d", rules.DrawSize, len(numbers))
	}
	return ValidateNumberSet(numbers, rules.MaxNumber)
}

// ValidateNumberSet checks every number is within [1, maxNumber] and unique.
func ValidateNumberSet(numbers []int, maxNumber int) error {
	seen := make(map[int]struct{}, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > maxNumber {
			return fmt.Errorf("number %d out of range [1, %d]", n, maxNumber)
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func coerceInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int8:
		return int(t), nil
	case int16:
		return int(t), nil
	case int32:
		return int(t), nil
	case int64:
		return int(t), nil
	case uint:
		return int(t), nil
	case uint8:
		return int(t), nil
	case uint16:
		return int(t), nil
	case uint32:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float32:
		return integralFloat(float64(t))
	case float64:
		return integralFloat(t)
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", t.String())
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported element type %T", v)
}

func integralFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("non-integral number %v", f)
	}
	return int(f), nil
}
