// Package jsondoc parses JSON into order-preserving objects, supports plain
// mutation, and prints with two-space indentation the way npm tooling does.
package jsondoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that remembers key order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Parse decodes a document whose top-level value is an object.
func Parse(data []byte) (*Object, error) {
	v, err := ParseValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*Object)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %s, not an object", typeName(v))
	}
	return obj, nil
}

// ParseValue decodes any JSON value. Objects become *Object, arrays []any,
// numbers json.Number.
func ParseValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing JSON: unexpected data after top-level value")
	}
	return v, nil
}

func decode(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %v", kt)
			}
			v, err := decode(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decode(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}
	return nil, fmt.Errorf("unexpected delimiter %q", delim)
}

// Marshal prints v with two-space indentation and a trailing newline.
// HTML characters are not escaped so ranges like ">=1.0.0" survive.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf, v, ""); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func write(buf *bytes.Buffer, v any, indent string) error {
	inner := indent + "  "
	switch t := v.(type) {
	case *Object:
		if t.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for pair := t.Oldest(); pair != nil; pair = pair.Next() {
			buf.WriteString(inner)
			if err := writeString(buf, pair.Key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := write(buf, pair.Value, inner); err != nil {
				return err
			}
			if pair.Next() != nil {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "}")
	case []any:
		if len(t) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range t {
			buf.WriteString(inner)
			if err := write(buf, item, inner); err != nil {
				return err
			}
			if i < len(t)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(indent + "]")
	case []string:
		items := make([]any, len(t))
		for i, s := range t {
			items[i] = s
		}
		return write(buf, items, indent)
	case string:
		return writeString(buf, t)
	case json.Number:
		buf.WriteString(t.String())
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case int:
		buf.WriteString(strconv.Itoa(t))
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'f', -1, 64))
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("cannot print %T as JSON", v)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

// Sorted returns a copy of o with keys in alphabetical order. Nested values
// are shared, not copied.
func Sorted(o *Object) *Object {
	keys := Keys(o)
	sort.Strings(keys)
	out := NewObject()
	for _, k := range keys {
		v, _ := o.Get(k)
		out.Set(k, v)
	}
	return out
}

// Keys returns the keys of o in insertion order.
func Keys(o *Object) []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, o.Len())
	for pair := o.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// GetObject returns the object stored at key, or nil.
func GetObject(o *Object, key string) *Object {
	if o == nil {
		return nil
	}
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	obj, _ := v.(*Object)
	return obj
}

// GetString returns the string stored at key.
func GetString(o *Object, key string) (string, bool) {
	if o == nil {
		return "", false
	}
	v, ok := o.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetStrings returns the string items of the array stored at key.
// Non-string items are skipped.
func GetStrings(o *Object, key string) []string {
	if o == nil {
		return nil
	}
	v, ok := o.Get(key)
	if !ok {
		return nil
	}
	arr, _ := v.([]any)
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// EnsureObject returns the object at key, creating it when missing or when
// the key holds a non-object value.
func EnsureObject(o *Object, key string) *Object {
	if child := GetObject(o, key); child != nil {
		return child
	}
	child := NewObject()
	o.Set(key, child)
	return child
}

// Lookup walks a dotted path of object keys.
func Lookup(o *Object, path ...string) (any, bool) {
	var cur any = o
	for _, key := range path {
		obj, ok := cur.(*Object)
		if !ok || obj == nil {
			return nil, false
		}
		cur, ok = obj.Get(key)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func typeName(v any) string {
	switch v.(type) {
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case nil:
		return "null"
	}
	return fmt.Sprintf("%T", v)
}
