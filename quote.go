package topogo

import (
	"fmt"
	"strings"
)

/*
Strips every character outside `[A-Za-z0-9_]` from the name. This is the only
sanitization applied to identifiers; `Quote` and `QuoteCol` build on it.

Panics with `ErrInvalidIdent` if nothing is left. Use `TryClean` to get an error
instead.
*/
func Clean(name string) string {
	out, err := TryClean(name)
	if err != nil {
		panic(err)
	}
	return out
}

// Same as `Clean` but returns an error instead of panicking.
func TryClean(name string) (string, error) {
	var buf strings.Builder
	buf.Grow(len(name))
	for i := 0; i < len(name); i++ {
		if isIdentChar(name[i]) {
			buf.WriteByte(name[i])
		}
	}
	if buf.Len() == 0 {
		return ``, ErrInvalidIdent.wrap(fmt.Errorf(`identifier %q has no allowed characters`, name))
	}
	return buf.String(), nil
}

/*
Sanitizes and double-quotes an identifier. The wildcard `*` passes through
unquoted. Example:

	topogo.Quote(`a-b!c`) // "abc"
	topogo.Quote(`*`)     // *

Panics with `ErrInvalidIdent` when the name is empty after sanitizing.
*/
func Quote(name string) string {
	if name == `*` {
		return name
	}
	return `"` + Clean(name) + `"`
}

// Same as `Quote` but returns an error instead of panicking.
func TryQuote(name string) (string, error) {
	if name == `*` {
		return name, nil
	}
	out, err := TryClean(name)
	if err != nil {
		return ``, err
	}
	return `"` + out + `"`, nil
}

// Quotes a table-qualified column: `"table"."column"`.
func QuoteCol(table, column string) string {
	return Quote(table) + `.` + Quote(column)
}

func isIdentChar(char byte) bool {
	return char == '_' ||
		(char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9')
}
