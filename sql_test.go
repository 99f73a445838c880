package topogo

import (
	"testing"
)

func TestSql_Append(t *testing.T) {
	var stmt Sql
	stmt.Append(`WHERE true`)
	stmt.Append(`AND one = $1`, 10)
	stmt.Append(`AND two = $1`, 20)

	eq(t, `WHERE true AND one = $1 AND two = $2`, stmt.Text)
	eq(t, []interface{}{10, 20}, stmt.Args)
}

func TestSql_Append_whitespace(t *testing.T) {
	var stmt Sql
	stmt.Append("SELECT *\n")
	stmt.Append(`FROM "t"`)
	stmt.Append(``)

	eq(t, "SELECT *\nFROM \"t\"", stmt.Text)
}

func TestSql_AppendChecked(t *testing.T) {
	stmt := Sql{Text: `a = $1`, Args: []interface{}{1}}
	stmt.AppendChecked(`AND b = $2 AND c = $1`, `x`, `y`)

	eq(t, `a = $1 AND b = $3 AND c = $2`, stmt.Text)
	eq(t, []interface{}{1, `x`, `y`}, stmt.Args)
}

func TestSql_AppendChecked_errors(t *testing.T) {
	var stmt Sql

	err := catch(func() { stmt.AppendChecked(`a = $2`, 1) })
	errIs(t, err, ErrOrdinalOutOfBounds)

	err = catch(func() { stmt.AppendChecked(`a = $0`, 1) })
	errIs(t, err, ErrOrdinalOutOfBounds)

	err = catch(func() { stmt.AppendChecked(`a = $1`, 1, 2) })
	errIs(t, err, ErrUnusedArgument)

	err = catch(func() { stmt.AppendChecked(`a = b`, 1) })
	errIs(t, err, ErrUnusedArgument)

	eq(t, Sql{}, stmt)
}

func TestSql_AppendSql(t *testing.T) {
	stmt := Sql{Text: `SELECT $1`, Args: []interface{}{1}}
	stmt.AppendSql(Sql{Text: `, $1, $2`, Args: []interface{}{2, 3}})
	stmt.Arg(4)

	eq(t, `SELECT $1 , $2, $3 $4`, stmt.Text)
	eq(t, []interface{}{1, 2, 3, 4}, stmt.Args)
}

func TestSql_QueryReplace(t *testing.T) {
	var outer Sql
	outer.Append(`SELECT * FROM "t" WHERE col_one = $1 {{INNER}}`, 10)

	var inner Sql
	inner.Append(`AND col_two = $1`, 20)

	outer.QueryReplace(`{{INNER}}`, inner)

	eq(t, `SELECT * FROM "t" WHERE col_one = $1 AND col_two = $2`, outer.Text)
	eq(t, []interface{}{10, 20}, outer.Args)
}

func TestSql_StringReplace(t *testing.T) {
	stmt := Sql{Text: `SELECT * FROM {{t}}`, Args: []interface{}{1}}
	stmt.StringReplace(`{{t}}`, `"posts"`)

	eq(t, `SELECT * FROM "posts"`, stmt.Text)
	eq(t, []interface{}{1}, stmt.Args)
}

func TestSql_Copy(t *testing.T) {
	stmt := Sql{Text: `$1`, Args: []interface{}{1}}
	fork := stmt.Copy()
	fork.Args[0] = 2
	fork.Append(`$1`, 3)

	eq(t, Sql{Text: `$1`, Args: []interface{}{1}}, stmt)
	eq(t, Sql{Text: `$1 $2`, Args: []interface{}{2, 3}}, fork)
}

func TestRenumerateOrdinalParams(t *testing.T) {
	eq(t, `$3 = $12`, renumerateOrdinalParams(`$1 = $10`, 2))
	eq(t, `$1::float8`, renumerateOrdinalParams(`$1::float8`, 0))
	eq(t, `$now_tz $3`, renumerateOrdinalParams(`$now_tz $1`, 2))
}

func TestCommandOf(t *testing.T) {
	eq(t, CommandSelect, commandOf(`select 1`))
	eq(t, CommandSelect, commandOf(`  (SELECT 1)`))
	eq(t, CommandSelect, commandOf("\nWITH x AS (SELECT 1) SELECT * FROM x"))
	eq(t, CommandInsert, commandOf(`INSERT INTO "t" DEFAULT VALUES`))
	eq(t, CommandUpdate, commandOf(`update "t" set a = 1`))
	eq(t, CommandDelete, commandOf(`DELETE FROM "t"`))
	eq(t, `DROP`, commandOf(`DROP TABLE IF EXISTS "t"`))
	eq(t, ``, commandOf(``))

	eq(t, true, returnsRows(CommandDelete))
	eq(t, false, returnsRows(`CREATE`))
}
