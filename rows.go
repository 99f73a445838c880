package topogo

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/mitranim/refut"
)

/*
Decodes a row into a struct pointer, matching columns to fields by their `db`
tag. Embedded structs are treated as part of the enclosing struct. Columns
without a matching field are ignored; fields without a matching column are left
as-is.

A null column is decoded as the zero value of a nilable field, via `Scan(nil)`
into an `sql.Scanner`, and is an `ErrNull` error for other fields. Example:

	type Post struct {
		Id   int64  `db:"id"`
		Name string `db:"name"`
	}

	var post Post
	err := topogo.DecodeRow(row, &post)
*/
func DecodeRow(row Row, dest interface{}) error {
	err := validateDest(dest)
	if err != nil {
		return err
	}

	rval := reflect.ValueOf(dest).Elem()
	if rval.Kind() != reflect.Struct {
		return ErrInvalidDest.wrap(fmt.Errorf(`expected a struct pointer, got %T`, dest))
	}

	return refut.TraverseStructRval(rval, func(field reflect.Value, sfield reflect.StructField, _ []int) error {
		col := columnOf(sfield)
		if col == "" {
			return nil
		}
		val, ok := row[col]
		if !ok {
			return nil
		}
		return decodeField(field, sfield, val)
	})
}

/*
Decodes rows into a pointer to a slice of structs or struct pointers. The slice
is truncated first. See `DecodeRow`.
*/
func DecodeRows(rows []Row, dest interface{}) error {
	err := validateDest(dest)
	if err != nil {
		return err
	}

	sliceRval := reflect.ValueOf(dest).Elem()
	if sliceRval.Kind() != reflect.Slice {
		return ErrInvalidDest.wrap(fmt.Errorf(`expected a slice pointer, got %T`, dest))
	}
	sliceRval.SetLen(0)

	elemRtype := sliceRval.Type().Elem()
	isPtr := elemRtype.Kind() == reflect.Ptr

	for _, row := range rows {
		ptrRval := reflect.New(refut.RtypeDeref(elemRtype))

		err := DecodeRow(row, ptrRval.Interface())
		if err != nil {
			return err
		}

		if isPtr {
			sliceRval.Set(reflect.Append(sliceRval, ptrRval))
		} else {
			sliceRval.Set(reflect.Append(sliceRval, ptrRval.Elem()))
		}
	}
	return nil
}

func decodeField(field reflect.Value, sfield reflect.StructField, val interface{}) error {
	if scanner, ok := field.Addr().Interface().(sql.Scanner); ok {
		err := scanner.Scan(val)
		if err != nil {
			return Err{Code: ErrCodeInvalidDest, While: `scanning into field ` + sfield.Name, Cause: err}
		}
		return nil
	}

	if val == nil {
		if refut.IsRkindNilable(field.Kind()) {
			field.Set(reflect.Zero(field.Type()))
			return nil
		}
		return ErrNull.during(`decoding into struct`).wrap(
			fmt.Errorf(`type %q at field %q is not nilable, but the column was null`, sfield.Type, sfield.Name),
		)
	}

	if field.Kind() == reflect.Ptr {
		elem := reflect.New(field.Type().Elem())
		err := decodeField(elem.Elem(), sfield, val)
		if err != nil {
			return err
		}
		field.Set(elem)
		return nil
	}

	rval := reflect.ValueOf(val)
	rtype := field.Type()

	switch {
	case rval.Type().AssignableTo(rtype):
		field.Set(rval)
	case isNumericConversion(rval.Kind(), rtype.Kind()):
		field.Set(rval.Convert(rtype))
	case rval.Kind() == reflect.String && rtype.Kind() == reflect.Slice && rtype.Elem().Kind() == reflect.Uint8:
		field.SetBytes([]byte(rval.String()))
	case rval.Kind() == reflect.String && rtype == timeRtype:
		parsed, err := time.Parse(time.RFC3339Nano, rval.String())
		if err != nil {
			return Err{Code: ErrCodeInvalidDest, While: `decoding time into field ` + sfield.Name, Cause: err}
		}
		field.Set(reflect.ValueOf(parsed))
	default:
		return ErrInvalidDest.during(`decoding into struct`).wrap(
			fmt.Errorf(`can't decode %T into field %q of type %q`, val, sfield.Name, rtype),
		)
	}
	return nil
}

func isNumericConversion(from, to reflect.Kind) bool {
	return isNumericKind(from) && isNumericKind(to)
}

func isNumericKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func validateDest(dest interface{}) error {
	if rval := reflect.ValueOf(dest); rval.Kind() != reflect.Ptr || rval.IsNil() {
		return ErrInvalidDest.wrap(fmt.Errorf(`expected a non-nil pointer, got %#v`, dest))
	}
	return nil
}
