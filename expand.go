package topogo

import (
	"fmt"
	"regexp"
	"strings"
)

// Reserved variable holding table aliases. See `Expand`.
const TablesKey = `TABLES`

// Alias → real table name. Used as the value of the `TABLES` variable.
type Tables map[string]string

/*
Rewrites an SQL template into a driver-ready statement.

`vars` may be:

	* nil: no variables.
	* `[]interface{}`: positional args, the template already uses `$N`.
	* `Doc` or `map[string]interface{}`: named variables, see below.

Named variables are assigned placeholders in document order (maps are sorted by
key). Every occurrence of `@name` is replaced:

	* a slice becomes `($k, $k+1, ...)`, one placeholder per element;
	* `Raw` becomes its text, renumbered;
	* `Now` or `"$now"` on a name ending with `_at` becomes the current UTC time;
	* anything else becomes `$k`.

Every named variable must be referenced. The `TABLES` variable maps aliases to
real tables: `@alias` becomes the quoted table name and binds nothing. `@table`
always becomes the quoted `table` argument.

Finally, schema directives like `$created_at` or `$id_type` are expanded
repeatedly until none is left. See `ExpandDirectives`.

Example:

	topogo.Expand(`SELECT @t.* FROM @t WHERE name IN @names`, ``, topogo.Doc{
		{`TABLES`, topogo.Tables{`t`: `Foo`}},
		{`names`, []string{`a`, `b`}},
	})

	// SELECT "Foo".* FROM "Foo" WHERE name IN ($1, $2)
	// [a b]
*/
func Expand(template string, table string, vars interface{}) (out Sql, err error) {
	defer rec(&err)

	var doc Doc
	switch vars := vars.(type) {
	case nil:
	case []interface{}:
		out.Args = vars
	case Doc:
		doc = vars
	case map[string]interface{}:
		doc = MapDoc(vars)
	default:
		return out, ErrInvalidInput.during(`expanding template`).wrap(
			fmt.Errorf(`expected nil, []interface{}, Doc or map[string]interface{}, got %T`, vars),
		)
	}

	tables, named := expandVars(doc, &out.Args)
	used := map[string]bool{}

	text := templateVarRegexp.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1:]

		if name == `table` {
			if table == `` {
				panic(ErrInvalidInput.during(`expanding template`).wrap(
					fmt.Errorf(`template references @table but no table was given`),
				))
			}
			return Quote(table)
		}

		if real, ok := tables[name]; ok {
			return Quote(real)
		}

		if chunk, ok := named[name]; ok {
			used[name] = true
			return chunk
		}

		return match
	})

	for name := range named {
		if !used[name] {
			panic(ErrUnusedArgument.during(`expanding template`).wrap(
				fmt.Errorf(`variable %q is not referenced in %q`, name, template),
			))
		}
	}

	out.Text = ExpandDirectives(text)
	return out, nil
}

/*
Converts named variables into replacement chunks, appending their values to
`args` in document order. Returns the table aliases separately.
*/
func expandVars(doc Doc, args *[]interface{}) (Tables, map[string]string) {
	var tables Tables
	named := make(map[string]string, len(doc))

	for _, field := range doc {
		if field.Name == TablesKey {
			tables = tablesOf(field.Value)
			continue
		}

		switch val := valueOf(field.Name, field.Value).(type) {
		case In:
			if len(val) == 0 {
				panic(ErrInvalidInput.during(`expanding template`).wrap(
					fmt.Errorf(`variable %q is an empty list`, field.Name),
				))
			}
			chunks := make([]string, len(val))
			for i, elem := range val {
				chunks[i] = bind(elem, args)
			}
			named[field.Name] = `(` + strings.Join(chunks, `, `) + `)`
		case Raw:
			named[field.Name] = bindRaw(val, args)
		case Now:
			named[field.Name] = NowExpr
		case Null:
			named[field.Name] = bind(nil, args)
		case Lit:
			named[field.Name] = bind(val.Val, args)
		}
	}
	return tables, named
}

func tablesOf(val interface{}) Tables {
	switch val := val.(type) {
	case Tables:
		return val
	case map[string]string:
		return Tables(val)
	case map[string]interface{}:
		out := make(Tables, len(val))
		for key, val := range val {
			str, ok := val.(string)
			if !ok {
				panic(ErrInvalidInput.during(`reading TABLES`).wrap(
					fmt.Errorf(`table name for alias %q must be a string, got %T`, key, val),
				))
			}
			out[key] = str
		}
		return out
	}
	panic(ErrInvalidInput.during(`reading TABLES`).wrap(
		fmt.Errorf(`expected Tables or map[string]string, got %T`, val),
	))
}

var templateVarRegexp = regexp.MustCompile(`@\w+`)

/*
Schema-definition directives, expanded in this order by `ExpandDirectives`.
Expansions may contain other directives, which later passes resolve.
*/
var directives = []directive{
	{`created_at`, `created_at $now_tz`},
	{`updated_at`, `updated_at $null_tz`},
	{`trashed_at`, `trashed_at $null_tz`},
	{`owner_able`, `owner_type SMALLINT NOT NULL, $owner_id`},
	{`author_able`, `author_type SMALLINT NOT NULL, $author_id`},
	{`owner_id`, `owner_id $ref_type`},
	{`author_id`, `author_id $ref_type`},
	{`id_type`, `SERIAL PRIMARY KEY`},
	{`ref_type`, `INTEGER NOT NULL`},
	{`now_tz`, `TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT $now`},
	{`null_tz`, `TIMESTAMP WITH TIME ZONE NULL DEFAULT NULL`},
	{`now`, NowExpr},
}

// Textual substitution of `$name` with `text`.
type directive struct {
	name string
	text string
}

func (self directive) regexp() *regexp.Regexp {
	return regexp.MustCompile(`\$` + regexp.QuoteMeta(self.name) + `\b`)
}

var directiveRegexps = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(directives))
	for i, dir := range directives {
		out[i] = dir.regexp()
	}
	return out
}()

const maxDirectivePasses = 8

/*
Applies the schema directives in order, repeating the whole sequence until the
text stops changing. `$now` never matches `$now_tz`. Example:

	topogo.ExpandDirectives(`CREATE TABLE t ( id $id_type, $created_at )`)

	// CREATE TABLE t ( id SERIAL PRIMARY KEY, created_at TIMESTAMP WITH TIME ZONE
	// NOT NULL DEFAULT (now() AT TIME ZONE 'UTC') )
*/
func ExpandDirectives(text string) string {
	for pass := 0; pass < maxDirectivePasses; pass++ {
		prev := text
		for i, dir := range directives {
			text = directiveRegexps[i].ReplaceAllLiteralString(text, dir.text)
		}
		if text == prev {
			break
		}
	}
	return text
}
