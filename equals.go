package topogo

import (
	"fmt"
	"strconv"
	"strings"
)

/*
Compiles a document into `column = $n` fragments, appending the bound values to
`vals`. Several calls may share one `vals` to build a single parameter space:
placeholders continue from `len(*vals)`.

The input goes through `DocOf`, so a bare scalar means `{id: scalar}`. The
`returning` key is skipped. Per value:

	* `In`   → `col IN ( $n, $n+1, ... )`, one placeholder per element.
	* `Null` → `col = NULL`, nothing bound.
	* `Now`  → `col = (now() AT TIME ZONE 'UTC')`, nothing bound.
	* `Raw`  → `col = <raw text>`, placeholders renumbered.
	* `Lit`  → `col = $n`.

Column names are sanitized by `Clean` and emitted unquoted.
*/
func Equals(input interface{}, vals *[]interface{}) (_ []string, err error) {
	defer rec(&err)
	return equals(DocOf(input), vals), nil
}

/*
Same as `Equals`, joined by `AND`. Used for `WHERE` clauses. Example:

	var vals []interface{}
	text, _ := topogo.Conjunction(topogo.Doc{{`status`, nil}, {`role`, `admin`}}, &vals)

	// text: status = NULL AND role = $1
	// vals: [admin]
*/
func Conjunction(input interface{}, vals *[]interface{}) (string, error) {
	frags, err := Equals(input, vals)
	return strings.Join(frags, ` AND `), err
}

// Same as `Equals`, joined by commas. Used for `UPDATE ... SET` lists.
func Comma(input interface{}, vals *[]interface{}) (string, error) {
	frags, err := Equals(input, vals)
	return strings.Join(frags, `, `), err
}

func equals(doc Doc, vals *[]interface{}) []string {
	frags := make([]string, 0, len(doc))
	for _, field := range doc {
		if field.Name == ReturningKey {
			continue
		}
		frags = append(frags, equalsField(field, vals))
	}
	return frags
}

func equalsField(field Field, vals *[]interface{}) string {
	col := Clean(field.Name)

	switch val := valueOf(field.Name, field.Value).(type) {
	case In:
		return col + ` IN ` + placeholderList(val, vals)

	case Null:
		return col + ` = NULL`

	case Now:
		return col + ` = ` + NowExpr

	case Raw:
		return col + ` = ` + bindRaw(val, vals)

	case Lit:
		return col + ` = ` + bind(val.Val, vals)

	default:
		panic(ErrInvalidInput.during(`compiling predicate`).wrap(
			fmt.Errorf(`unsupported value %#v for column %q`, val, field.Name),
		))
	}
}

// Appends the value and returns its placeholder.
func bind(val interface{}, vals *[]interface{}) string {
	*vals = append(*vals, val)
	return `$` + strconv.Itoa(len(*vals))
}

// Appends the raw fragment's args and returns its text, renumbered.
func bindRaw(raw Raw, vals *[]interface{}) string {
	stmt := Sql{Args: *vals}
	stmt.AppendRaw(raw)
	*vals = stmt.Args
	return stmt.Text
}

// Returns `( $n, $n+1, ... )`, appending every element.
func placeholderList(list In, vals *[]interface{}) string {
	if len(list) == 0 {
		panic(ErrInvalidInput.during(`compiling IN list`).wrap(
			fmt.Errorf(`IN list must not be empty`),
		))
	}

	out := make([]string, len(list))
	for i, val := range list {
		out[i] = bind(val, vals)
	}
	return `( ` + strings.Join(out, `, `) + ` )`
}
