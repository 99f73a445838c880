package topogo

import (
	"errors"
	"slices"
	"strings"

	"github.com/lib/pq"
)

// SQLSTATE of a unique-constraint violation.
const uniqueViolation = pq.ErrorCode(`23505`)

/*
Called with the column name when a statement violates a unique constraint on a
column registered via `Table.OnDuplicate`. Its result becomes the result of the
operation; returning nil makes the operation succeed with an empty result.
*/
type DupHandler func(column string) error

type dupHandler struct {
	column string
	fun    DupHandler
}

/*
Returns a copy of the accessor that hands duplicate-key violations on the
column to the handler, instead of returning an error. The receiver is
unaffected. Example:

	row, err := posts.OnDuplicate(`name`, func(string) error {
		return ErrNameTaken
	}).Create(ctx, doc)
*/
func (self *Table) OnDuplicate(column string, fun DupHandler) *Table {
	out := *self
	out.dups = append(append([]dupHandler(nil), self.dups...), dupHandler{column, fun})
	return &out
}

/*
Returns the first registered column named by a unique-constraint violation.
Recognizes both the detail form `Key (col)=(...) already exists.` and
constraint names containing `_col_`, such as `posts_name_key`.
*/
func duplicateColumn(err error, columns []string) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return ``, false
	}

	for _, col := range columns {
		if strings.Contains(pqErr.Detail, `Key (`+col+`)=`) && strings.Contains(pqErr.Detail, `) already exists`) {
			return col, true
		}
		if pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint+`_`, `_`+col+`_`) {
			return col, true
		}
	}
	return ``, false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

/*
Converts a driver error into the operation's error. A matching duplicate
handler decides the outcome.
*/
func (self *Table) handleErr(err error, while string) error {
	if len(self.dups) > 0 {
		cols := make([]string, len(self.dups))
		for i, dup := range self.dups {
			cols[i] = dup.column
		}
		if col, ok := duplicateColumn(err, cols); ok {
			return self.dups[slices.Index(cols, col)].fun(col)
		}
	}

	if isUniqueViolation(err) {
		return ErrDuplicate.during(while).wrap(err)
	}
	if _, ok := err.(Err); ok {
		return err
	}
	return ErrStatement.during(while).wrap(err)
}
