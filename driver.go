package topogo

import (
	"context"
	"database/sql"
)

/*
Database connection used by `SqlDriver`. Satisfied by `*sql.DB`, `*sql.Tx`,
may be satisfied by other types.
*/
type Queryer interface {
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
}

// Single result row, column name → value. Text columns are decoded as strings.
type Row map[string]interface{}

/*
Outcome of a statement. `Command` is the statement's command tag, such as
`INSERT` or `SELECT`. `Rows` is set only for commands listed in
`returnRowsFor`.
*/
type Result struct {
	Command string
	Rows    []Row
}

/*
Executes compiled statements. Implemented by `SqlDriver`; tests may substitute a
fake. Errors are returned as-is: `*pq.Error` values are inspected for duplicate
keys by the Table Accessor.
*/
type Driver interface {
	Query(ctx context.Context, text string, args []interface{}) (Result, error)
}

// `Driver` over a `database/sql` connection.
type SqlDriver struct{ Conn Queryer }

// Implement `Driver`.
func (self SqlDriver) Query(ctx context.Context, text string, args []interface{}) (Result, error) {
	rows, err := self.Conn.QueryContext(ctx, text, args...)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()

	out := Result{Command: commandOf(text)}
	list, err := readRows(rows)
	if err != nil {
		return out, err
	}
	if returnsRows(out.Command) {
		out.Rows = list
	}
	return out, nil
}

// Reads every row into a `Row`, converting `[]byte` to `string`.
func readRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, Err{While: `getting columns`, Cause: err}
	}

	var out []Row
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}

		err := rows.Scan(ptrs...)
		if err != nil {
			return nil, Err{While: `scanning row`, Cause: err}
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if bytes, ok := vals[i].([]byte); ok {
				row[col] = string(bytes)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}

	err = rows.Err()
	if err != nil {
		return nil, Err{While: `iterating rows`, Cause: err}
	}
	return out, nil
}
