package query

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

var errIncomparable = errors.New("incomparable sort values")

type sortKind int

const (
	sortString sortKind = iota
	sortNumber
)

// sortValue is the comparable projection of one record field.
type sortValue struct {
	kind sortKind
	num  float64
	str  string
}

func numberValue(f float64) sortValue { return sortValue{kind: sortNumber, num: f} }

func stringValue(s string) sortValue { return sortValue{kind: sortString, str: s} }

func compareValues(a, b sortValue) int {
	if a.kind == sortNumber {
		return cmp.Compare(a.num, b.num)
	}
	return strings.Compare(a.str, b.str)
}

// attributeValue projects a free-form attribute. Missing values sort as "";
// booleans sort as 0 and 1.
func attributeValue(v any) (sortValue, error) {
	switch t := v.(type) {
	case nil:
		return stringValue(""), nil
	case string:
		return stringValue(t), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		f, err := cast.ToFloat64E(t)
		if err != nil {
			return sortValue{}, fmt.Errorf("%w: %v", errIncomparable, err)
		}
		return numberValue(f), nil
	}
	return sortValue{}, fmt.Errorf("%w: %T", errIncomparable, v)
}

// sortStable returns items stably ordered by key. When a key cannot be
// computed, or keys of different kinds meet, items is returned unchanged
// together with the error.
func sortStable[T any](items []T, order SortOrder, key func(T) (sortValue, error)) ([]T, error) {
	if len(items) < 2 {
		return items, nil
	}
	keys := make([]sortValue, len(items))
	for i, it := range items {
		k, err := key(it)
		if err != nil {
			return items, err
		}
		if i > 0 && k.kind != keys[0].kind {
			return items, errIncomparable
		}
		keys[i] = k
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		c := compareValues(keys[a], keys[b])
		if order == SortDesc {
			return -c
		}
		return c
	})

	out := make([]T, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out, nil
}
