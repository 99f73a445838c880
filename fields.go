package topogo

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/mitranim/refut"
)

/*
Reserved key that overrides the default `RETURNING *` clause. Its value may be a
string (comma-separated columns) or a `[]string`. Never compiled as a column.
*/
const ReturningKey = `returning`

/*
Ordered mapping of columns to values: the input of the predicate compiler and
of the Table Accessor. Order is significant: it determines the order of
placeholders in the generated SQL.

Usually obtained via `DocOf()`, `MapDoc()` or `StructDoc()`, or written as a
literal:

	topogo.Doc{{`name`, `x`}, {`body`, `y`}}
*/
type Doc []Field

// Single column-value pair. See `Doc`.
type Field struct {
	Name  string
	Value interface{}
}

/*
Converts an input into a `Doc`:

	* nil → empty.
	* `Doc` → as-is.
	* `Field` → single-field doc.
	* `map[string]interface{}` → `MapDoc`.
	* struct or struct pointer → `StructDoc`.
	* anything else → `Doc{{"id", val}}`, the legacy "bare id" shorthand.
*/
func DocOf(val interface{}) Doc {
	switch val := val.(type) {
	case nil:
		return nil
	case Doc:
		return val
	case Field:
		return Doc{val}
	case map[string]interface{}:
		return MapDoc(val)
	case map[string]string:
		doc := make(Doc, 0, len(val))
		for key, val := range val {
			doc = append(doc, Field{key, val})
		}
		return doc.sorted()
	}

	if isStructLike(val) {
		return StructDoc(val)
	}
	return Doc{{`id`, val}}
}

/*
Converts a map into a `Doc`. Go maps are unordered, so keys are sorted to keep
the generated SQL deterministic.
*/
func MapDoc(dict map[string]interface{}) Doc {
	doc := make(Doc, 0, len(dict))
	for key, val := range dict {
		doc = append(doc, Field{key, val})
	}
	return doc.sorted()
}

/*
Scans a struct, converting fields tagged with `db` into a `Doc`. The input must
be a struct or a struct pointer. A nil pointer is fine and produces a nil
result. Panics on other inputs. Treats an embedded struct as part of the
enclosing struct.
*/
func StructDoc(input interface{}) Doc {
	rval := reflect.ValueOf(input)
	rtype := refut.RtypeDeref(rval.Type())

	if rtype.Kind() != reflect.Struct {
		panic(ErrInvalidInput.during(`converting struct to doc`).wrap(
			fmt.Errorf(`expected struct, got %q`, rtype),
		))
	}

	if refut.IsRvalNil(rval) {
		return nil
	}

	var doc Doc
	err := refut.TraverseStructRval(rval, func(rval reflect.Value, sfield reflect.StructField, _ []int) error {
		col := columnOf(sfield)
		if col == "" {
			return nil
		}
		doc = append(doc, Field{col, rval.Interface()})
		return nil
	})
	if err != nil {
		panic(err)
	}
	return doc
}

/*
Returns the column names of a struct type, sanitized and quoted, suitable for a
`SELECT` clause. Example:

	var out struct{Id int64 `db:"id"`; Name string `db:"name"`}

	topogo.Cols(out) // "id", "name"
*/
func Cols(dest interface{}) string {
	rtype := refut.RtypeDeref(reflect.TypeOf(dest))
	for rtype != nil && (rtype.Kind() == reflect.Slice || rtype.Kind() == reflect.Array) {
		rtype = refut.RtypeDeref(rtype.Elem())
	}
	if rtype == nil || rtype.Kind() != reflect.Struct {
		return `*`
	}

	var names []string
	err := refut.TraverseStructRtype(rtype, func(sfield reflect.StructField, _ []int) error {
		col := columnOf(sfield)
		if col != "" {
			names = append(names, Quote(col))
		}
		return nil
	})
	if err != nil {
		panic(err)
	}
	return strings.Join(names, `, `)
}

// Returns the field names.
func (self Doc) Names() []string {
	var names []string
	for _, field := range self {
		names = append(names, field.Name)
	}
	return names
}

// Returns the field values.
func (self Doc) Values() []interface{} {
	var values []interface{}
	for _, field := range self {
		values = append(values, field.Value)
	}
	return values
}

// Returns the value of the first field with this name.
func (self Doc) Get(name string) (interface{}, bool) {
	for _, field := range self {
		if field.Name == name {
			return field.Value, true
		}
	}
	return nil, false
}

/*
Returns a copy where the named field is replaced, or appended if missing. Never
mutates the receiver.
*/
func (self Doc) With(name string, val interface{}) Doc {
	out := make(Doc, 0, len(self)+1)
	found := false
	for _, field := range self {
		if field.Name == name {
			field.Value = val
			found = true
		}
		out = append(out, field)
	}
	if !found {
		out = append(out, Field{name, val})
	}
	return out
}

/*
Returns a copy without the `returning` key, and the columns it requested. An
empty column list means the default `RETURNING *`.
*/
func (self Doc) SplitReturning() (Doc, []string, error) {
	var cols []string
	out := make(Doc, 0, len(self))

	for _, field := range self {
		if field.Name != ReturningKey {
			out = append(out, field)
			continue
		}

		switch val := field.Value.(type) {
		case string:
			for _, col := range strings.Split(val, `,`) {
				col = strings.TrimSpace(col)
				if col != `` {
					cols = append(cols, col)
				}
			}
		case []string:
			cols = append(cols, val...)
		default:
			return nil, nil, ErrInvalidInput.during(`reading the returning key`).wrap(
				fmt.Errorf(`expected string or []string, got %T`, val),
			)
		}
	}
	return out, cols, nil
}

func (self Doc) sorted() Doc {
	sort.SliceStable(self, func(i, j int) bool { return self[i].Name < self[j].Name })
	return self
}

// Compiles the RETURNING clause for the given columns.
func returningClause(cols []string) string {
	if len(cols) == 0 {
		return `RETURNING *`
	}
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = Quote(col)
	}
	return `RETURNING ` + strings.Join(quoted, `, `)
}

func isStructLike(val interface{}) bool {
	if val == nil {
		return false
	}
	rtype := refut.RtypeDeref(reflect.TypeOf(val))
	return rtype.Kind() == reflect.Struct && !isValueRtype(rtype)
}
