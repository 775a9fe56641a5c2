package notify

import (
	"reflect"
	"strings"
)

// absent marks a path that could not be resolved in the metadata.
type absent struct{}

// Evaluate reports whether every entry of condition matches the metadata.
//
// Keys are dot-paths resolved by descending into nested maps one segment at a
// time. A path whose intermediate or final key is missing resolves to absent,
// which matches only an expected nil. Entries are combined with logical AND;
// there is no OR or NOT. A nil or empty condition always matches.
func Evaluate(condition, metadata map[string]any) bool {
	for path, expected := range condition {
		actual := lookupPath(metadata, path)
		if _, missing := actual.(absent); missing {
			if expected != nil {
				return false
			}
			continue
		}
		if !valuesEqual(actual, expected) {
			return false
		}
	}
	return true
}

func lookupPath(metadata map[string]any, path string) any {
	var current any = metadata
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return absent{}
			}
			current = v
		case map[string]string:
			v, ok := node[segment]
			if !ok {
				return absent{}
			}
			current = v
		default:
			return absent{}
		}
	}
	return current
}

// valuesEqual compares literals, treating all Go numeric kinds by value so
// that conditions decoded from JSON or YAML match typed metadata.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	a, aok := toNumber(actual)
	e, eok := toNumber(expected)
	switch {
	case aok && eok:
		return a.equal(e)
	case aok || eok:
		return false
	}
	return reflect.DeepEqual(actual, expected)
}

type numKind int

const (
	numInt numKind = iota
	numUint
	numFloat
)

// number keeps integers in their native width so values above 2^53 compare
// exactly.
type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func toNumber(v any) (number, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: numInt, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: numUint, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: numFloat, f: rv.Float()}, true
	default:
		return number{}, false
	}
}

func (n number) float() float64 {
	switch n.kind {
	case numInt:
		return float64(n.i)
	case numUint:
		return float64(n.u)
	default:
		return n.f
	}
}

func (n number) equal(o number) bool {
	switch {
	case n.kind == numFloat || o.kind == numFloat:
		return n.float() == o.float()
	case n.kind == numInt && o.kind == numInt:
		return n.i == o.i
	case n.kind == numUint && o.kind == numUint:
		return n.u == o.u
	case n.kind == numInt:
		return n.i >= 0 && uint64(n.i) == o.u
	default:
		return o.i >= 0 && uint64(o.i) == n.u
	}
}
