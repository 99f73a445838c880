package topogo

import (
	"database/sql/driver"
	"reflect"
	"strings"
)

/*
Server-side "current UTC time" expression. Used wherever a column is set or
compared to "now".
*/
const NowExpr = `(now() AT TIME ZONE 'UTC')`

// String sentinel recognized on columns ending with `_at`. See `Now`.
const NowSentinel = `$now`

// Returns an interval literal such as `'2 days'::INTERVAL`. The input is not
// escaped and must be trusted.
func Interval(str string) string { return `'` + str + `'::INTERVAL` }

// Returns an expression for "now minus the interval", in UTC.
func NowMinus(str string) string { return `(` + NowExpr + ` - ` + Interval(str) + `)` }

/*
Closed set of values understood by the predicate compiler and the query
builder. Implemented only by `Lit`, `In`, `Null`, `Now` and `Raw`. Arbitrary Go
values are normalized via `valueOf`.
*/
type Value interface{ isValue() }

// Plain literal bound to a single placeholder.
type Lit struct{ Val interface{} }

// Array of values, compiled to `IN ( $n, ... )`, one placeholder per element.
type In []interface{}

// SQL `NULL`. Never bound to a placeholder.
type Null struct{}

// Server-side current UTC time. Never bound to a placeholder.
type Now struct{}

/*
Raw SQL expression with its own ordinal parameters, always numbered from `$1`
and referring to `.Args` by position. Example:

	topogo.Raw{Text: `coalesce($2, $1)`, Args: []interface{}{10, 20}}
*/
type Raw struct {
	Text string
	Args []interface{}
}

func (Lit) isValue()  {}
func (In) isValue()   {}
func (Null) isValue() {}
func (Now) isValue()  {}
func (Raw) isValue()  {}

// Shortcut for making a `Raw`.
func RawOf(text string, args ...interface{}) Raw { return Raw{text, args} }

/*
Normalizes an arbitrary input for the given column:

	* `Value` → as-is.
	* nil or typed nil pointer → `Null`.
	* `"$now"` on a column ending with `_at` → `Now`.
	* slice or array other than `[]byte`, unless it implements `driver.Valuer` → `In`.
	* anything else → `Lit`.
*/
func valueOf(col string, val interface{}) Value {
	switch val := val.(type) {
	case Value:
		return val
	case nil:
		return Null{}
	case []byte:
		return Lit{val}
	case driver.Valuer:
		return Lit{val}
	case string:
		if val == NowSentinel && strings.HasSuffix(col, `_at`) {
			return Now{}
		}
		return Lit{val}
	}

	rval := reflect.ValueOf(val)
	switch rval.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		if rval.IsNil() {
			return Null{}
		}
	case reflect.Slice:
		if rval.IsNil() {
			return Null{}
		}
		return In(sliceOf(rval))
	case reflect.Array:
		return In(sliceOf(rval))
	}
	return Lit{val}
}

func sliceOf(rval reflect.Value) []interface{} {
	out := make([]interface{}, rval.Len())
	for i := range out {
		out[i] = rval.Index(i).Interface()
	}
	return out
}
