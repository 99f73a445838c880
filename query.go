package topogo

import (
	"fmt"
	"strconv"
	"strings"
)

/*
Fluent accumulator for a single SQL statement: select list, `FROM` sources and
joins, `WHERE` fragments with their own args, `UPDATE ... SET` assignments,
`INSERT` values and `LIMIT` bounds. `Query.Compile` serializes it into a
`Compiled` statement with one contiguous placeholder sequence.

Every fragment counts its placeholders from `$1`. Example:

	query := topogo.Select(`*`).From(`posts`).
		Where(`author_id = $1`, 10).
		Where(`AND status = $1`, `draft`)

	compiled, err := query.Compile()

	// SELECT * FROM "posts" WHERE author_id = $1 AND status = $2
	// [10 draft]

Builder methods never panic; the first error is remembered and returned by
`Query.Compile`.

A query may have a parent, see `Query.Child` and `Compose`. The parent is never
mutated.
*/
type Query struct {
	parent *Query
	err    error

	table    string
	isSelect bool
	isInsert bool
	isUpdate bool
	isDelete bool

	sel       []string
	from      []source
	where     []fragment
	set       Doc
	values    Doc
	limit     []int
	returning []string
}

// Unit of SQL text contributed by one builder call, with its own args.
type fragment struct {
	Text string
	Args []interface{}
}

// Either a table name or a join.
type source struct {
	table string
	join  *Join
}

// Direction of a `Join`.
type JoinDir string

const (
	JoinLeft  JoinDir = `LEFT`
	JoinRight JoinDir = `RIGHT`
	JoinInner JoinDir = `INNER`
)

/*
Join target: a table name, or a sub-query whose `WHERE` fragments become
additional `ON` predicates. Created by `Query.LeftJoin`, `Query.RightJoin`,
`Query.InnerJoin` and `Query.JoinQuery`, and configured through `Query.On` and
`Query.As`. Owned by its query.
*/
type Join struct {
	Dir   JoinDir
	table string
	alias string
	sub   *Query
	on    []onPair
}

type onPair struct {
	left  string
	right string
	args  []interface{}
}

// Shortcut for `new(Query).Select(cols...)`.
func Select(cols ...string) *Query { return new(Query).Select(cols...) }

// Shortcut for `new(Query).InsertInto(table)`.
func InsertInto(table string) *Query { return new(Query).InsertInto(table) }

// Shortcut for `new(Query).Update(table)`.
func Update(table string) *Query { return new(Query).Update(table) }

// Shortcut for `new(Query).DeleteFrom(table)`.
func DeleteFrom(table string) *Query { return new(Query).DeleteFrom(table) }

// Shortcut for `new(Query).Trash(table)`.
func Trash(table string) *Query { return new(Query).Trash(table) }

// Shortcut for `new(Query).Untrash(table)`.
func Untrash(table string) *Query { return new(Query).Untrash(table) }

/*
Creates a query inheriting every fragment of the receiver. The receiver is
unaffected by anything done to the child. Useful for reusing a base query:

	base := topogo.Select(`*`).From(`posts`).Where(`trashed_at IS NULL`)
	mine := base.Child().Where(`author_id = $1`, 10)
*/
func (self *Query) Child() *Query {
	return &Query{parent: self, table: self.table}
}

/*
Adds raw column expressions to the select list. A leading dot is replaced with
the quoted table name: `.id` → `"posts".id`. No columns means `*`.
*/
func (self *Query) Select(cols ...string) *Query {
	self.isSelect = true
	self.sel = append(self.sel, cols...)
	return self
}

// Adds a quoted `"table"."column"` to the select list.
func (self *Query) SelectCol(table, col string) *Query {
	quoted, err := tryQuoteCol(table, col)
	if err != nil {
		return self.fail(err)
	}
	return self.Select(quoted)
}

/*
Adds a table to the `FROM` clause. The first table becomes the query's table,
used by the leading-dot shorthand and by insert, update and delete statements.
*/
func (self *Query) From(table string) *Query {
	self.from = append(self.from, source{table: table})
	if self.table == `` {
		self.table = table
	}
	return self
}

// Starts an `INSERT INTO` statement.
func (self *Query) InsertInto(table string) *Query {
	self.isInsert = true
	return self.From(table)
}

/*
Adds a column to insert. `Raw` and `Now` are compiled as expressions, `Lit` and
`Null` are unwrapped, `In` is rejected. Anything else is bound to a placeholder
as-is.
*/
func (self *Query) Value(col string, val interface{}) *Query {
	self.values = append(self.values, Field{col, val})
	return self
}

/*
Adds every field of the document as insert values. See `DocOf`. A `returning`
key sets the `RETURNING` columns.
*/
func (self *Query) Values(input interface{}) *Query {
	for _, field := range self.docOf(input) {
		self.Value(field.Name, field.Value)
	}
	return self
}

// Starts an `UPDATE` statement.
func (self *Query) Update(table string) *Query {
	self.isUpdate = true
	return self.From(table)
}

/*
Merges assignments into the `SET` list. A key set twice keeps its first
position and its last value. A `returning` key sets the `RETURNING` columns.
*/
func (self *Query) Set(input interface{}) *Query {
	for _, field := range self.docOf(input) {
		self.set = self.set.With(field.Name, field.Value)
	}
	return self
}

// Starts an update setting `trashed_at` to the current time.
func (self *Query) Trash(table string) *Query {
	return self.Update(table).Set(Doc{{`trashed_at`, Now{}}})
}

// Starts an update clearing `trashed_at`.
func (self *Query) Untrash(table string) *Query {
	return self.Update(table).Set(Doc{{`trashed_at`, Null{}}})
}

// Starts a `DELETE FROM` statement.
func (self *Query) DeleteFrom(table string) *Query {
	self.isDelete = true
	return self.From(table)
}

/*
Adds a `WHERE` fragment. `$k` in the text refers to the k-th of the given args,
every arg must be referenced. Fragments are joined by a space, so connectives
are part of the text, see `Query.And` and `Query.Or`.

Shorthands:

	* A fragment without placeholders and with exactly one arg gets ` = $1`:
	  `Where("id", 10)` is `Where("id = $1", 10)`.
	* A leading dot, alone or after `AND` or `OR`, is replaced with the quoted
	  table name: `.id` → `"posts".id`.
*/
func (self *Query) Where(text string, args ...interface{}) *Query {
	self.where = append(self.where, fragment{text, args})
	return self
}

// Adds a `Raw` as a `WHERE` fragment, prefixed with `AND` when other fragments
// precede it.
func (self *Query) WhereRaw(raw Raw) *Query {
	if len(self.where) > 0 {
		return self.And(raw.Text, raw.Args...)
	}
	return self.Where(raw.Text, raw.Args...)
}

// Adds a `WHERE` fragment prefixed with `AND`.
func (self *Query) And(text string, args ...interface{}) *Query {
	return self.Where(`AND `+strings.TrimSpace(text), args...)
}

// Adds a `WHERE` fragment prefixed with `OR`.
func (self *Query) Or(text string, args ...interface{}) *Query {
	return self.Where(`OR `+strings.TrimSpace(text), args...)
}

/*
Compiles the document with `Conjunction` and adds it as a `WHERE` fragment,
prefixed with `AND` when other fragments precede it. An empty document adds
nothing.
*/
func (self *Query) WhereDoc(input interface{}) *Query {
	var args []interface{}
	text, err := Conjunction(input, &args)
	if err != nil {
		return self.fail(err)
	}
	if text == `` {
		return self
	}
	if len(self.where) > 0 {
		return self.And(text, args...)
	}
	return self.Where(text, args...)
}

// Adds a `LEFT JOIN` to the table. Configure it with `Query.On` and `Query.As`.
func (self *Query) LeftJoin(table string) *Query { return self.join(JoinLeft, table, nil) }

// Adds a `RIGHT JOIN` to the table.
func (self *Query) RightJoin(table string) *Query { return self.join(JoinRight, table, nil) }

// Adds an `INNER JOIN` to the table.
func (self *Query) InnerJoin(table string) *Query { return self.join(JoinInner, table, nil) }

/*
Adds a join to the sub-query's table. The sub-query's `WHERE` fragments are
appended to the `ON` predicates, their leading dots referring to the joined
table.
*/
func (self *Query) JoinQuery(dir JoinDir, sub *Query) *Query {
	if sub == nil {
		return self.fail(ErrInvalidInput.during(`adding join`).wrap(fmt.Errorf(`nil sub-query`)))
	}
	return self.join(dir, sub.flatten().table, sub)
}

/*
Adds an `ON` pair to the last join: `left = right`. A leading dot in `left`
refers to the query's table, in `right` to the joined table. Args are numbered
from `$1` within the pair.
*/
func (self *Query) On(left, right string, args ...interface{}) *Query {
	join := self.lastJoin(`On`)
	if join == nil {
		return self
	}
	join.on = append(join.on, onPair{left, right, args})
	return self
}

// Aliases the last join.
func (self *Query) As(alias string) *Query {
	join := self.lastJoin(`As`)
	if join != nil {
		join.alias = alias
	}
	return self
}

/*
Sets the `LIMIT` bounds. With one bound it's the row count; with two it's the
offset followed by the count. A zero offset is dropped:

	Limit(1)      // LIMIT 1
	Limit(20, 10) // LIMIT 10 OFFSET 20
	Limit(0, 10)  // LIMIT 10
	Limit(20, 0)  // LIMIT 0 OFFSET 20
*/
func (self *Query) Limit(bounds ...int) *Query {
	if len(bounds) > 2 {
		return self.fail(ErrArity.during(`setting limit`).wrap(
			fmt.Errorf(`expected at most 2 bounds, got %v`, len(bounds)),
		))
	}
	if len(bounds) == 2 && bounds[0] == 0 {
		bounds = bounds[1:]
	}
	self.limit = append([]int(nil), bounds...)
	return self
}

// Replaces the default `RETURNING *` with the given columns.
func (self *Query) Returning(cols ...string) *Query {
	self.returning = cols
	return self
}

// Returns the first error recorded by a builder method.
func (self *Query) Err() error { return self.flatten().err }

// Table of the query: the first table given to `From` or its equivalents.
func (self *Query) Table() string { return self.flatten().table }

/*
Composes the query with its ancestors and serializes it. Statements, by
priority:

	INSERT INTO <table> ( <cols> ) VALUES ( <values> ) RETURNING *
	UPDATE <table> SET <assignments> [WHERE <predicate>] RETURNING *
	DELETE FROM <table> [WHERE <predicate>] RETURNING *
	SELECT <cols> FROM <sources> [WHERE <predicate>] [LIMIT <count> [OFFSET <offset>]]

Placeholders are numbered in textual order: join args, then assignments, then
`WHERE` fragments, parent fragments first.
*/
func (self *Query) Compile() (out Compiled, err error) {
	defer rec(&err)

	data := self.flatten()
	if data.err != nil {
		return out, data.err
	}

	switch {
	case data.isInsert:
		data.compileInsert(&out)
	case data.isUpdate:
		data.compileUpdate(&out)
	case data.isDelete:
		data.compileDelete(&out)
	case data.isSelect:
		data.compileSelect(&out)
	default:
		return out, ErrInvalidInput.during(`compiling query`).wrap(
			fmt.Errorf(`query has no statement: use Select, InsertInto, Update or DeleteFrom`),
		)
	}

	out.Command = commandOf(out.Text)
	out.IsSelect = data.isSelect && out.Command == CommandSelect
	out.RowOne = data.isInsert || data.isUpdate || data.lastLimit() == 1
	return out, nil
}

// Implement `fmt.Stringer`. Returns the compiled text, or the error message.
func (self *Query) String() string {
	compiled, err := self.Compile()
	if err != nil {
		return err.Error()
	}
	return compiled.Text
}

/*
Returns a fresh query holding the fragments of both inputs, parent first. When
both have `WHERE` fragments, the child's first fragment is joined with `AND`,
replacing its own leading `AND` or `OR`.
`SET` assignments are overlaid: child keys override parent keys. Neither input
is mutated.
*/
func Compose(parent, child *Query) *Query {
	var out Query
	if parent != nil {
		out = parent.flatten().clone()
	}
	if child == nil {
		return &out
	}

	data := child.flatten()

	if out.err == nil {
		out.err = data.err
	}
	if out.table == `` {
		out.table = data.table
	}
	out.isSelect = out.isSelect || data.isSelect
	out.isInsert = out.isInsert || data.isInsert
	out.isUpdate = out.isUpdate || data.isUpdate
	out.isDelete = out.isDelete || data.isDelete

	out.sel = append(out.sel, data.sel...)
	out.from = append(out.from, data.from...)
	out.values = append(out.values, data.values...)

	where := data.where
	if len(out.where) > 0 && len(where) > 0 {
		where = append([]fragment(nil), where...)
		where[0].Text = `AND ` + trimConnective(where[0].Text)
	}
	out.where = append(out.where, where...)

	for _, field := range data.set {
		out.set = out.set.With(field.Name, field.Value)
	}

	if data.limit != nil {
		out.limit = data.limit
	}
	if data.returning != nil {
		out.returning = data.returning
	}
	return &out
}

/* Internal */

// Composes the query with its ancestors, returning an independent snapshot.
func (self *Query) flatten() Query {
	if self.parent == nil {
		return self.clone()
	}
	return *Compose(self.parent, &Query{
		err:       self.err,
		table:     self.table,
		isSelect:  self.isSelect,
		isInsert:  self.isInsert,
		isUpdate:  self.isUpdate,
		isDelete:  self.isDelete,
		sel:       self.sel,
		from:      self.from,
		where:     self.where,
		set:       self.set,
		values:    self.values,
		limit:     self.limit,
		returning: self.returning,
	})
}

func (self Query) clone() Query {
	out := self
	out.parent = nil
	out.sel = append([]string(nil), self.sel...)
	out.from = make([]source, len(self.from))
	for i, src := range self.from {
		if src.join != nil {
			join := *src.join
			join.on = append([]onPair(nil), join.on...)
			src.join = &join
		}
		out.from[i] = src
	}
	out.where = append([]fragment(nil), self.where...)
	out.set = append(Doc(nil), self.set...)
	out.values = append(Doc(nil), self.values...)
	return out
}

func (self *Query) docOf(input interface{}) Doc {
	doc, cols, err := DocOf(input).SplitReturning()
	if err != nil {
		self.fail(err)
		return nil
	}
	if cols != nil {
		self.returning = cols
	}
	return doc
}

func (self *Query) fail(err error) *Query {
	if self.err == nil {
		self.err = err
	}
	return self
}

func (self *Query) join(dir JoinDir, table string, sub *Query) *Query {
	self.from = append(self.from, source{join: &Join{Dir: dir, table: table, sub: sub}})
	return self
}

func (self *Query) lastJoin(method string) *Join {
	if len(self.from) > 0 {
		if join := self.from[len(self.from)-1].join; join != nil {
			return join
		}
	}
	self.fail(ErrInvalidInput.during(`calling ` + method).wrap(fmt.Errorf(`no join to configure`)))
	return nil
}

func (self *Query) lastLimit() int {
	if len(self.limit) == 0 {
		return 0
	}
	return self.limit[len(self.limit)-1]
}

func (self *Query) compileSelect(out *Compiled) {
	cols := make([]string, len(self.sel))
	for i, col := range self.sel {
		cols[i] = qualify(self.table, col)
	}
	if len(cols) == 0 {
		cols = []string{`*`}
	}
	out.Append(`SELECT ` + strings.Join(cols, `, `))

	if len(self.from) > 0 {
		out.Append(`FROM`)
		out.AppendSql(self.compileFrom())
	}

	self.appendWhere(&out.Sql)

	switch len(self.limit) {
	case 1:
		out.Append(`LIMIT ` + strconv.Itoa(self.limit[0]))
	case 2:
		out.Append(`LIMIT ` + strconv.Itoa(self.limit[1]) + ` OFFSET ` + strconv.Itoa(self.limit[0]))
	}
}

func (self *Query) compileInsert(out *Compiled) {
	if len(self.values) == 0 {
		panic(ErrInvalidInput.during(`compiling insert`).wrap(fmt.Errorf(`no values to insert into %q`, self.table)))
	}

	cols := make([]string, len(self.values))
	vals := make([]string, len(self.values))
	for i, field := range self.values {
		cols[i] = Quote(field.Name)
		switch val := field.Value.(type) {
		case Raw:
			vals[i] = bindRaw(val, &out.Args)
		case Now:
			vals[i] = NowExpr
		case Lit:
			vals[i] = bind(val.Val, &out.Args)
		case Null:
			vals[i] = bind(nil, &out.Args)
		case In:
			panic(ErrInvalidInput.during(`compiling insert`).wrap(
				fmt.Errorf(`column %q: a list can't be inserted as one value`, field.Name),
			))
		default:
			vals[i] = bind(val, &out.Args)
		}
	}

	out.Text = `INSERT INTO ` + Quote(self.table) +
		` ( ` + strings.Join(cols, `, `) + ` )` +
		` VALUES ( ` + strings.Join(vals, `, `) + ` )`
	out.Append(returningClause(self.returning))
}

func (self *Query) compileUpdate(out *Compiled) {
	if len(self.set) == 0 {
		panic(ErrInvalidInput.during(`compiling update`).wrap(fmt.Errorf(`nothing to set on %q`, self.table)))
	}

	out.Append(`UPDATE ` + Quote(self.table) + ` SET`)
	out.appendText(strings.Join(equals(self.set, &out.Args), `, `))
	self.appendWhere(&out.Sql)
	out.Append(returningClause(self.returning))
}

func (self *Query) compileDelete(out *Compiled) {
	out.Append(`DELETE FROM ` + Quote(self.table))
	self.appendWhere(&out.Sql)
	out.Append(returningClause(self.returning))
}

func (self *Query) compileFrom() Sql {
	var from Sql
	for _, src := range self.from {
		if src.join != nil {
			from = src.join.compile(from, self.table)
			continue
		}
		if from.Text != `` {
			from.Text += `,`
		}
		from.Append(Quote(src.table))
	}
	return from
}

func (self *Query) appendWhere(stmt *Sql) {
	if len(self.where) == 0 {
		return
	}
	stmt.Append(`WHERE`)
	appendFragments(stmt, self.table, self.where)
}

// The first fragment of a clause loses its leading connective.
func appendFragments(stmt *Sql, table string, frags []fragment) {
	for i, frag := range frags {
		text := strings.TrimSpace(frag.Text)
		if i == 0 {
			text = trimConnective(text)
		}
		if countOrdinalParams(text) == 0 && len(frag.Args) == 1 {
			text += ` = $1`
		}
		stmt.AppendChecked(qualify(table, text), frag.Args...)
	}
}

// Name the joined table is referred to by: the alias or the table.
func (self *Join) name() string {
	if self.alias != `` {
		return self.alias
	}
	return self.table
}

// ( <left> <DIR> JOIN <table> [AS <alias>] ON <pairs and sub-query fragments> )
func (self *Join) compile(left Sql, table string) Sql {
	var sub Query
	if self.sub != nil {
		sub = self.sub.flatten()
		if sub.err != nil {
			panic(ErrInvalidInput.during(`compiling join`).wrap(sub.err))
		}
	}

	if len(self.on) == 0 && len(sub.where) == 0 {
		panic(ErrInvalidInput.during(`compiling join`).wrap(
			fmt.Errorf(`join to %q has no ON predicates`, self.table),
		))
	}

	var out Sql
	out.Append(`(`)
	out.AppendSql(left)

	target := Quote(self.table)
	if self.alias != `` {
		target += ` AS ` + Quote(self.alias)
	}
	out.Append(string(self.Dir) + ` JOIN ` + target + ` ON`)

	for i, pair := range self.on {
		if i > 0 {
			out.Append(`AND`)
		}
		out.AppendChecked(qualify(table, pair.left)+` = `+qualify(self.name(), pair.right), pair.args...)
	}

	if len(sub.where) > 0 {
		if len(self.on) > 0 {
			out.Append(`AND`)
		}
		appendFragments(&out, self.name(), sub.where)
	}

	out.Append(`)`)
	return out
}

// Replaces a leading dot with the quoted table name. The dot may follow an
// `AND` or `OR` connective.
func qualify(table, text string) string {
	text = strings.TrimSpace(text)
	if table == `` {
		return text
	}

	var prefix string
	for _, conn := range connectives {
		if strings.HasPrefix(text, conn) {
			prefix, text = conn, strings.TrimSpace(text[len(conn):])
			break
		}
	}
	if !strings.HasPrefix(text, `.`) {
		return prefix + text
	}
	return prefix + Quote(table) + text
}

var connectives = []string{`AND `, `OR `}

func trimConnective(text string) string {
	text = strings.TrimSpace(text)
	for _, conn := range connectives {
		if strings.HasPrefix(text, conn) {
			return strings.TrimSpace(text[len(conn):])
		}
	}
	return text
}

func tryQuoteCol(table, col string) (string, error) {
	left, err := TryQuote(table)
	if err != nil {
		return ``, err
	}
	right, err := TryQuote(col)
	if err != nil {
		return ``, err
	}
	return left + `.` + right, nil
}
