package topogo

import (
	"context"
	"fmt"
)

// Default age, in days, of trashed rows removed by `Table.DeleteTrashed`.
const DefaultTrashedDays = 2

/*
Per-table handle: the entry point for CRUD helpers. Obtained from
`Manager.Table` or `Manager.TableIn`. Holds no connection: every operation gets
one from the manager. Safe for concurrent use.

Every operation returns exactly once, with either a result or an error.
Driver failures are `ErrStatement` errors, unique violations are `ErrDuplicate`
errors unless handled, see `Table.OnDuplicate`.
*/
type Table struct {
	mgr  *Manager
	name string
	conn string
	dups []dupHandler
}

// Name of the table.
func (self *Table) Name() string { return self.name }

// Quoted name of the table.
func (self *Table) Quoted() string { return Quote(self.name) }

// Database of the table. Empty for the default database.
func (self *Table) Conn() string { return self.conn }

// Implement `fmt.Stringer`.
func (self *Table) String() string {
	if self.conn == `` {
		return fmt.Sprintf(`Topogo (instance, table: %v)`, self.name)
	}
	return fmt.Sprintf(`Topogo (instance, table: %v, db: %v)`, self.name, self.conn)
}

// Returns `SELECT * FROM <table>`, ready for more fragments.
func (self *Table) Select() *Query { return Select(`*`).From(self.name) }

/*
Inserts a row and returns it. Every value is bound as-is, except `Raw` and
`Now`. A `returning` key selects the returned columns.
*/
func (self *Table) Create(ctx context.Context, fields interface{}) (Row, error) {
	res, err := self.Exec(ctx, InsertInto(self.name).Values(fields))
	if err != nil {
		return nil, err
	}
	return firstRow(res.Rows), nil
}

// Returns the row with the id, or nil if none.
func (self *Table) ReadByID(ctx context.Context, id interface{}) (Row, error) {
	return self.ReadOne(ctx, Doc{{`id`, id}})
}

// Returns the first row matching the document, or nil if none. See `Conjunction`.
func (self *Table) ReadOne(ctx context.Context, where interface{}) (Row, error) {
	res, err := self.Exec(ctx, self.Select().WhereDoc(where).Limit(1))
	if err != nil {
		return nil, err
	}
	return firstRow(res.Rows), nil
}

// Returns every row matching the document, possibly none. See `Conjunction`.
func (self *Table) ReadList(ctx context.Context, where interface{}) ([]Row, error) {
	res, err := self.Exec(ctx, self.Select().WhereDoc(where))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

/*
Updates every row matching `where` and returns the updated rows. A bare scalar
`where` means `{id: where}`. An empty `where` is rejected.
*/
func (self *Table) Update(ctx context.Context, where interface{}, set interface{}) ([]Row, error) {
	doc, err := predicateOf(where, `updating `+self.name)
	if err != nil {
		return nil, err
	}

	res, err := self.Exec(ctx, Update(self.name).Set(set).WhereDoc(doc))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Updates the row with the id and returns it, or nil if none matched.
func (self *Table) UpdateByID(ctx context.Context, id interface{}, set interface{}) (Row, error) {
	rows, err := self.Update(ctx, Doc{{`id`, id}}, set)
	if err != nil {
		return nil, err
	}
	return firstRow(rows), nil
}

// Same as `Table.Update`, also setting `updated_at` to the current time.
func (self *Table) UpdateAndStamp(ctx context.Context, where interface{}, set interface{}) ([]Row, error) {
	return self.Update(ctx, where, DocOf(set).With(`updated_at`, NowSentinel))
}

// Sets `trashed_at` of the row to the current time and returns the row.
func (self *Table) Trash(ctx context.Context, id interface{}) (Row, error) {
	return self.UpdateByID(ctx, id, Doc{{`trashed_at`, NowSentinel}})
}

// Clears `trashed_at` of the row and returns the row.
func (self *Table) Untrash(ctx context.Context, id interface{}) (Row, error) {
	return self.UpdateByID(ctx, id, Doc{{`trashed_at`, nil}})
}

/*
Trashes every row matching `where`. Returns only the given columns of the
trashed rows, `id` by default.
*/
func (self *Table) TrashList(ctx context.Context, where interface{}, returning ...string) ([]Row, error) {
	if len(returning) == 0 {
		returning = []string{`id`}
	}
	doc, err := predicateOf(where, `trashing in `+self.name)
	if err != nil {
		return nil, err
	}

	res, err := self.Exec(ctx, Trash(self.name).WhereDoc(doc).Returning(returning...))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

/*
Deletes and returns every row trashed more than `days` days ago. Fractions are
allowed. Zero or less means `DefaultTrashedDays`.
*/
func (self *Table) DeleteTrashed(ctx context.Context, days float64) ([]Row, error) {
	if days <= 0 {
		days = DefaultTrashedDays
	}

	query := DeleteFrom(self.name).
		Where(`trashed_at IS NOT NULL`).
		And(`trashed_at < (`+NowExpr+` - ($1::float8 * INTERVAL '1 day'))`, days)

	res, err := self.Exec(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

/*
Deletes and returns every row matching `where`. An empty `where` is rejected,
see `Table.DeleteAll`.
*/
func (self *Table) Delete(ctx context.Context, where interface{}) ([]Row, error) {
	doc, err := predicateOf(where, `deleting from `+self.name)
	if err != nil {
		return nil, err
	}

	res, err := self.Exec(ctx, DeleteFrom(self.name).WhereDoc(doc))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Deletes and returns every row of the table.
func (self *Table) DeleteAll(ctx context.Context) ([]Row, error) {
	res, err := self.Exec(ctx, DeleteFrom(self.name))
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// Drops the table if it exists.
func (self *Table) Drop(ctx context.Context) error {
	_, err := self.Run(ctx, `DROP TABLE IF EXISTS @table`, nil)
	return err
}

/*
Expands the template and executes it. `@table` refers to this table. See
`Expand`. Example:

	posts.Run(ctx, `SELECT * FROM @table WHERE id IN @ids`, topogo.Doc{{`ids`, []int{1, 2}}})
*/
func (self *Table) Run(ctx context.Context, template string, vars interface{}) (Result, error) {
	stmt, err := Expand(template, self.name, vars)
	if err != nil {
		return Result{}, err
	}
	return self.query(ctx, stmt.Text, stmt.Args)
}

// Compiles the query and executes it.
func (self *Table) Exec(ctx context.Context, query *Query) (Result, error) {
	compiled, err := query.Compile()
	if err != nil {
		return Result{}, err
	}
	return self.query(ctx, compiled.Text, compiled.Args)
}

func (self *Table) query(ctx context.Context, text string, args []interface{}) (Result, error) {
	res, err := self.mgr.Query(ctx, self.conn, text, args)
	if err != nil {
		return Result{}, self.handleErr(err, `querying `+self.name)
	}
	return res, nil
}

// Document of a predicate that must not be empty. The `returning` key is
// ignored.
func predicateOf(where interface{}, while string) (Doc, error) {
	doc, _, err := DocOf(where).SplitReturning()
	if err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return nil, ErrInvalidInput.during(while).wrap(fmt.Errorf(`empty predicate`))
	}
	return doc, nil
}

func firstRow(rows []Row) Row {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
