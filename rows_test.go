package topogo

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mitranim/sqlb"
)

type ScannableString string

func (self *ScannableString) Scan(input interface{}) error {
	*self = ScannableString(input.(string) + "_scanned")
	return nil
}

func TestDecodeRow_basic_types(t *testing.T) {
	var result struct {
		Int32   int32           `db:"int32"`
		Int64   int64           `db:"int64"`
		Float64 float64         `db:"float64"`
		String  string          `db:"string"`
		Bytes   []byte          `db:"bytes"`
		Bool    bool            `db:"bool"`
		Time    time.Time       `db:"time"`
		Parsed  time.Time       `db:"parsed"`
		Scan    ScannableString `db:"scan"`
	}

	now := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	row := Row{
		`int32`:   int64(1),
		`int64`:   int64(2),
		`float64`: float64(3),
		`string`:  `4`,
		`bytes`:   `5`,
		`bool`:    true,
		`time`:    now,
		`parsed`:  `2020-01-02T03:04:05Z`,
		`scan`:    `scan`,
		`extra`:   `ignored`,
	}

	try(t, DecodeRow(row, &result))

	eq(t, int32(1), result.Int32)
	eq(t, int64(2), result.Int64)
	eq(t, float64(3), result.Float64)
	eq(t, `4`, result.String)
	eq(t, []byte(`5`), result.Bytes)
	eq(t, true, result.Bool)
	eq(t, true, now.Equal(result.Time))
	eq(t, true, now.Equal(result.Parsed))
	eq(t, ScannableString(`scan_scanned`), result.Scan)
}

func TestDecodeRow_nullability(t *testing.T) {
	type Result struct {
		NonNilable string         `db:"non_nilable"`
		Nilable    *string        `db:"nilable"`
		Pointer    *int64         `db:"pointer"`
		Null       sql.NullString `db:"null"`
	}

	result := Result{Nilable: strPtr(`old`)}
	try(t, DecodeRow(Row{`non_nilable`: `one`, `nilable`: nil, `pointer`: int64(7), `null`: nil}, &result))

	eq(t, `one`, result.NonNilable)
	eq(t, (*string)(nil), result.Nilable)
	eq(t, int64(7), *result.Pointer)
	eq(t, sql.NullString{}, result.Null)

	err := DecodeRow(Row{`non_nilable`: nil}, &result)
	errIs(t, err, ErrNull)
}

/*
Fields without a matching column must be left untouched. Embedded structs are
part of the enclosing struct.
*/
func TestDecodeRow_missing_and_embedded(t *testing.T) {
	type Base struct {
		Id int64 `db:"id"`
	}
	type Post struct {
		Base
		Title string `db:"title"`
		Body  string `db:"body"`
		Other string
	}

	result := Post{Body: `kept`, Other: `kept`}
	try(t, DecodeRow(Row{`id`: int64(1), `title`: `x`}, &result))

	eq(t, Post{Base: Base{1}, Title: `x`, Body: `kept`, Other: `kept`}, result)
}

func TestDecodeRow_invalid(t *testing.T) {
	var str string
	var result struct {
		Id int64 `db:"id"`
	}

	errIs(t, DecodeRow(Row{}, nil), ErrInvalidDest)
	errIs(t, DecodeRow(Row{}, result), ErrInvalidDest)
	errIs(t, DecodeRow(Row{}, &str), ErrInvalidDest)
	errIs(t, DecodeRow(Row{`id`: `abc`}, &result), ErrInvalidDest)
}

func TestDecodeRows(t *testing.T) {
	type Result struct {
		One string `db:"one"`
		Two int64  `db:"two"`
	}

	rows := []Row{{`one`: `a`, `two`: int64(10)}, {`one`: `b`, `two`: int64(20)}}

	results := []Result{{`stale`, 0}, {`stale`, 0}, {`stale`, 0}}
	try(t, DecodeRows(rows, &results))
	eq(t, []Result{{`a`, 10}, {`b`, 20}}, results)

	var ptrs []*Result
	try(t, DecodeRows(rows, &ptrs))
	eq(t, []*Result{{`a`, 10}, {`b`, 20}}, ptrs)

	empty := []Result{{`stale`, 0}}
	try(t, DecodeRows(nil, &empty))
	eq(t, []Result{}, empty)

	errIs(t, DecodeRows(rows, &Result{}), ErrInvalidDest)
}

func TestCols(t *testing.T) {
	type Post struct {
		Id    int64  `db:"id"`
		Title string `db:"title"`
		Body  string
	}

	eq(t, `"id", "title"`, Cols(Post{}))
	eq(t, Cols(Post{}), Cols([]*Post(nil)))
	eq(t, sqlb.Cols(Post{}), Cols(&Post{}))
	eq(t, `*`, Cols(10))
}

func strPtr(str string) *string { return &str }
