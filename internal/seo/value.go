package seo

import "fmt"

// Value is a metadata value: null, a literal string, or a deferred producer
// that is evaluated on every resolution.
type Value struct {
	lit   string
	fn    func() string
	valid bool
}

// Null is the absent value. Setting a key to Null hides it from resolution
// so defaults and fallbacks apply.
var Null = Value{}

// String wraps a literal.
func String(s string) Value {
	return Value{lit: s, valid: true}
}

// Func wraps a deferred producer. A nil fn yields Null.
func Func(fn func() string) Value {
	if fn == nil {
		return Null
	}
	return Value{fn: fn, valid: true}
}

// ValueOf converts loosely typed template arguments into a Value.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case string:
		return String(t)
	case *string:
		if t == nil {
			return Null
		}
		return String(*t)
	case func() string:
		return Func(t)
	case fmt.Stringer:
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}

// IsNull reports whether v carries nothing.
func (v Value) IsNull() bool { return !v.valid }

// Resolve evaluates v. Deferred values run each time.
func (v Value) Resolve() (string, bool) {
	if !v.valid {
		return "", false
	}
	if v.fn != nil {
		return v.fn(), true
	}
	return v.lit, true
}
