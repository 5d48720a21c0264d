package handlebars

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap is the map type rendered and iterated in insertion order.
// Plain map[string]any contexts still work; their keys iterate sorted.
type OrderedMap = orderedmap.OrderedMap[string, any]

// Truthy reports whether a value selects the main branch of a conditional.
// nil, false, numeric zero, the empty string and empty lists are falsy;
// everything else, including empty maps, is truthy.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case SafeString:
		return v != ""
	case int:
		return v != 0
	case int8:
		return v != 0
	case int16:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case uint:
		return v != 0
	case uint8:
		return v != 0
	case uint16:
		return v != 0
	case uint32:
		return v != 0
	case uint64:
		return v != 0
	case float32:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return true
	case *OrderedMap:
		return v != nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Truthy(rv.Elem().Interface())
	}
	return true
}

// Stringify converts a value to template output text. Numbers print without
// a trailing ".0", lists join their elements with commas, and maps render as
// "[object Object]".
func Stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case SafeString:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := ""
		for i, e := range v {
			if i > 0 {
				out += ","
			}
			out += Stringify(e)
		}
		return out
	case map[string]any:
		return "[object Object]"
	case *OrderedMap:
		return "[object Object]"
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := ""
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				out += ","
			}
			out += Stringify(rv.Index(i).Interface())
		}
		return out
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	case reflect.Ptr:
		if rv.IsNil() {
			return ""
		}
		return Stringify(rv.Elem().Interface())
	}
	return fmt.Sprintf("%v", v)
}

// lookupKey resolves a single path segment against a container. Lists accept
// numeric segments, structs expose their exported fields.
func lookupKey(container any, key string) (any, bool) {
	switch c := container.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := c[key]
		return v, ok
	case *OrderedMap:
		if c == nil {
			return nil, false
		}
		return c.Get(key)
	case []any:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		v := rv.MapIndex(reflect.ValueOf(key))
		if !v.IsValid() {
			return nil, false
		}
		return v.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		f := rv.FieldByName(key)
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, false
		}
		return lookupKey(rv.Elem().Interface(), key)
	}
	return nil, false
}

// entry is one iteration step of #each: its value, its key or index, and
// whether the container is list-shaped.
type entry struct {
	key string
	val any
}

// iterateValue expands a container into ordered entries. Ordered maps keep
// insertion order; plain maps iterate in sorted key order so output is
// deterministic.
func iterateValue(v any) (items []entry, isList, ok bool) {
	switch c := v.(type) {
	case nil:
		return nil, false, false
	case []any:
		items = make([]entry, len(c))
		for i, e := range c {
			items[i] = entry{key: strconv.Itoa(i), val: e}
		}
		return items, true, true
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, entry{key: k, val: c[k]})
		}
		return items, false, true
	case *OrderedMap:
		if c == nil {
			return nil, false, false
		}
		for pair := c.Oldest(); pair != nil; pair = pair.Next() {
			items = append(items, entry{key: pair.Key, val: pair.Value})
		}
		return items, false, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items = make([]entry, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = entry{key: strconv.Itoa(i), val: rv.Index(i).Interface()}
		}
		return items, true, true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false, false
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		for _, k := range keys {
			items = append(items, entry{key: k, val: rv.MapIndex(reflect.ValueOf(k)).Interface()})
		}
		return items, false, true
	}
	return nil, false, false
}
