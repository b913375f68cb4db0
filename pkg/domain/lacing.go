package domain

import (
	"fmt"
	"reflect"
)

// Lacing is the argument combination strategy used when list values reach a
// node that expects scalars.
type Lacing string

const (
	LacingDisabled     Lacing = "Disabled"
	LacingFirst        Lacing = "First"
	LacingShortest     Lacing = "Shortest"
	LacingLongest      Lacing = "Longest"
	LacingCrossProduct Lacing = "CrossProduct"
)

// ParseLacing accepts the persisted lacing names. Empty means Disabled.
func ParseLacing(s string) (Lacing, error) {
	switch Lacing(s) {
	case "", LacingDisabled:
		return LacingDisabled, nil
	case LacingFirst, LacingShortest, LacingLongest, LacingCrossProduct:
		return Lacing(s), nil
	}
	return LacingDisabled, fmt.Errorf("unknown lacing strategy %q", s)
}

func valuesEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !valueEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// valueEqual compares functions by identity so that closures over graphs are
// never walked.
func valueEqual(a, b Value) bool {
	switch x := a.(type) {
	case Function:
		y, ok := b.(Function)
		if !ok {
			return false
		}
		if !reflect.TypeOf(x).Comparable() || !reflect.TypeOf(y).Comparable() {
			return false
		}
		return x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !valueEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
