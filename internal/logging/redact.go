package logging

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

// Redacted replaces sensitive values in logs and diagnostics.
const Redacted = "***REDACTED***"

var sensitiveKeyParts = []string{"key", "secret", "password", "token", "authorization"}

// IsSensitiveKey reports whether a field name looks like it holds a credential.
func IsSensitiveKey(name string) bool {
	lower := strings.ToLower(name)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

// Redact returns a deep copy of v with sensitive map keys and struct fields
// masked. Maps, slices, arrays, structs and pointers are walked recursively;
// v itself is never modified. Typed maps, slices and structs come back as
// map[string]any and []any.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				val = Redacted
			}
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	default:
		return redactValue(reflect.ValueOf(v))
	}
}

var (
	errorType         = reflect.TypeFor[error]()
	stringerType      = reflect.TypeFor[fmt.Stringer]()
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// opaque reports whether t renders itself, like time.Time or an error.
func opaque(t reflect.Type) bool {
	return t.Implements(errorType) || t.Implements(stringerType) ||
		t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType)
}

func redactValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}
	if opaque(rv.Type()) {
		return rv.Interface()
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return rv.Interface()
		}
		return redactValue(rv.Elem())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return rv.Interface()
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			if IsSensitiveKey(k) {
				out[k] = Redacted
				continue
			}
			out[k] = redactElem(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Interface()
		}
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return rv.Interface()
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = redactElem(rv.Index(i))
		}
		return out
	case reflect.Struct:
		return redactStruct(rv)
	default:
		return rv.Interface()
	}
}

// redactElem recurses through Redact so the typed fast paths apply to
// nested values too.
func redactElem(rv reflect.Value) any {
	if !rv.IsValid() || !rv.CanInterface() {
		return nil
	}
	return Redact(rv.Interface())
}

// redactStruct flattens exported fields into a map keyed the way
// encoding/json would name them.
func redactStruct(rv reflect.Value) any {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, _, _ := strings.Cut(f.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		if IsSensitiveKey(name) || IsSensitiveKey(f.Name) {
			out[name] = Redacted
			continue
		}
		out[name] = redactElem(rv.Field(i))
	}
	return out
}

// RedactURL masks credential query parameters (key, client, signature and
// anything IsSensitiveKey matches) so upstream URLs can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Redacted
	}
	q := u.Query()
	changed := false
	for name := range q {
		if IsSensitiveKey(name) || name == "signature" || name == "client" {
			q[name] = []string{Redacted}
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
