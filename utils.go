package topogo

import (
	"database/sql"
	"reflect"
	"time"

	"github.com/mitranim/refut"
)

var (
	timeRtype    = reflect.TypeOf(time.Time{})
	scannerRtype = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// Struct types that map to one column rather than to a group of columns.
func isValueRtype(rtype reflect.Type) bool {
	if rtype == nil {
		return false
	}
	return rtype == timeRtype || reflect.PointerTo(rtype).Implements(scannerRtype)
}

// Column name from the `db` tag. Empty for untagged fields and for `db:"-"`.
func columnOf(sfield reflect.StructField) string {
	return refut.TagIdent(sfield.Tag.Get(`db`))
}
