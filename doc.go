/*
Topogo, tool for composing PostgreSQL statements from structured data and
running them through per-table accessors. NOT AN ORM: it never inspects the
schema beyond an optional column cache, and generated SQL stays close to what
you would write by hand.

Key Features

• Every fragment numbers its parameters from `$1`; composing fragments
renumbers them into one contiguous sequence. See `Sql.Append()` and `Query`.

• Documents compile to predicates and assignments. See `Equals()`.

• Templates with named variables, table aliases and schema directives. See
`Expand()`.

• CRUD helpers with soft deletes and duplicate-key handlers. See `Table`.

• Rows decode into tagged structs. See `DecodeRow()`.

Identifiers

Every table and column name reaching generated SQL goes through `Quote()` or
`Clean()`, which strip characters outside `[A-Za-z0-9_]`. A name left empty
is an `ErrInvalidIdent` error.

Values

Document values are normalized into a closed set: `Lit`, `In`, `Null`, `Now`
and `Raw`. Plain Go values are converted automatically:

	nil                        → Null
	[]T (except []byte)        → In
	"$now" on a `*_at` column  → Now
	anything else              → Lit

Raw fragments

`Raw` pairs SQL text with its own args. `$k` inside it always means the k-th
of its own args, whatever the surrounding statement, and every arg must be
referenced:

	topogo.Update(`posts`).
		Set(topogo.Doc{{`score`, topogo.RawOf(`greatest($2, $1)`, 10, 20)}}).
		Where(`id = $1`, 1)

	// UPDATE "posts" SET score = greatest($2, $1) WHERE id = $3 RETURNING *

Errors

Errors are `Err` values. Compare them with `errors.Is` against the blank
variables such as `ErrDuplicate` or `ErrStatement`.
*/
package topogo
