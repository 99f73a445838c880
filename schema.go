package topogo

import (
	"context"
	"fmt"
	"slices"
)

const sqlSelectTables = `
SELECT table_name AS name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_name
`

const sqlSelectColumns = `
SELECT c.table_name AS table_name, c.column_name AS column_name
FROM information_schema.columns c
JOIN information_schema.tables t
  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
WHERE t.table_type = 'BASE TABLE'
  AND c.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY c.table_name, c.ordinal_position
`

// Returns the base tables of the database, excluding system catalogs.
func (self *Manager) ListTables(ctx context.Context, db string) ([]string, error) {
	res, err := self.Query(ctx, db, sqlSelectTables, nil)
	if err != nil {
		return nil, ErrStatement.during(`listing tables`).wrap(err)
	}

	out := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		out = append(out, fmt.Sprint(row[`name`]))
	}
	return out, nil
}

/*
Returns the columns of every base table, in their ordinal order, and replaces
the cached schema of the database. This is the only way to fill the cache used
by `Manager.Columns` and `Table.Readable`.
*/
func (self *Manager) DescribeTables(ctx context.Context, db string) (map[string][]string, error) {
	res, err := self.Query(ctx, db, sqlSelectColumns, nil)
	if err != nil {
		return nil, ErrStatement.during(`describing tables`).wrap(err)
	}

	out := map[string][]string{}
	for _, row := range res.Rows {
		table := fmt.Sprint(row[`table_name`])
		out[table] = append(out[table], fmt.Sprint(row[`column_name`]))
	}

	self.mu.Lock()
	self.schema[db] = out
	self.mu.Unlock()

	return out, nil
}

// Returns the cached columns of a table. False if the table isn't cached.
func (self *Manager) Columns(db, table string) ([]string, bool) {
	self.mu.RLock()
	defer self.mu.RUnlock()

	cols, ok := self.schema[db][table]
	return cols, ok
}

/*
Predicate selecting rows readable by the owner, based on the cached columns of
the table:

	* `trashed_at IS NULL` when the table has `trashed_at`;
	* `owner_id = $1` when the table has `owner_id` and the owner isn't nil.

Returns `true` when neither applies. Use with `Query.WhereRaw`:

	query := posts.Select().WhereRaw(posts.Readable(userID))
*/
func (self *Table) Readable(owner interface{}) Raw {
	cols, _ := self.mgr.Columns(self.conn, self.name)

	var out Sql
	if slices.Contains(cols, `trashed_at`) {
		out.Append(`trashed_at IS NULL`)
	}
	if owner != nil && slices.Contains(cols, `owner_id`) {
		if out.Text != `` {
			out.Append(`AND`)
		}
		out.Append(`owner_id = $1`, owner)
	}
	if out.Text == `` {
		out.Text = `true`
	}
	return Raw{Text: out.Text, Args: out.Args}
}
