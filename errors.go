package topogo

import (
	"errors"
	"strings"
)

// Identifies the kind of an `Err`. Prefer `errors.Is` with the `Err` variables
// below over comparing codes.
type ErrCode string

const (
	ErrCodeUnknown            ErrCode = ""
	ErrCodeInvalidInput       ErrCode = "ErrInvalidInput"
	ErrCodeInvalidIdent       ErrCode = "ErrInvalidIdent"
	ErrCodeArity              ErrCode = "ErrArity"
	ErrCodeOrdinalOutOfBounds ErrCode = "ErrOrdinalOutOfBounds"
	ErrCodeUnusedArgument     ErrCode = "ErrUnusedArgument"
	ErrCodeDuplicate          ErrCode = "ErrDuplicate"
	ErrCodeStatement          ErrCode = "ErrStatement"
	ErrCodeNoConn             ErrCode = "ErrNoConn"
	ErrCodeClosed             ErrCode = "ErrClosed"
	ErrCodeInvalidDest        ErrCode = "ErrInvalidDest"
	ErrCodeNull               ErrCode = "ErrNull"
)

/*
Sentinels for `errors.Is`:

	_, err := posts.Create(ctx, doc)
	if errors.Is(err, topogo.ErrDuplicate) {
		...
	}

Returned errors carry context in `.While` and `.Cause`, so `==` against these
variables doesn't work. A returned error matches a sentinel with the same code,
or anything its cause matches.
*/
var (
	ErrInvalidInput       = Err{Code: ErrCodeInvalidInput, Cause: errors.New(`invalid input`)}
	ErrInvalidIdent       = Err{Code: ErrCodeInvalidIdent, Cause: errors.New(`identifier is empty after sanitizing`)}
	ErrArity              = Err{Code: ErrCodeArity, Cause: errors.New(`wrong number of arguments`)}
	ErrOrdinalOutOfBounds = Err{Code: ErrCodeOrdinalOutOfBounds, Cause: errors.New(`ordinal parameter exceeds arguments`)}
	ErrUnusedArgument     = Err{Code: ErrCodeUnusedArgument, Cause: errors.New(`unused argument`)}
	ErrDuplicate          = Err{Code: ErrCodeDuplicate, Cause: errors.New(`duplicate key`)}
	ErrStatement          = Err{Code: ErrCodeStatement, Cause: errors.New(`statement failed`)}
	ErrNoConn             = Err{Code: ErrCodeNoConn, Cause: errors.New(`unknown connection`)}
	ErrClosed             = Err{Code: ErrCodeClosed, Cause: errors.New(`manager is closed`)}
	ErrInvalidDest        = Err{Code: ErrCodeInvalidDest, Cause: errors.New(`invalid destination`)}
	ErrNull               = Err{Code: ErrCodeNull, Cause: errors.New(`null column scanned into non-nilable field`)}
)

// Error returned by every Topogo operation.
type Err struct {
	Code  ErrCode
	While string
	Cause error
}

func (self Err) Error() string {
	if self == (Err{}) {
		return ``
	}

	var buf strings.Builder
	buf.WriteString(`[topogo]`)
	if self.Code != ErrCodeUnknown {
		buf.WriteString(` ` + string(self.Code))
	}
	if self.While != `` {
		buf.WriteString(` while ` + self.While)
	}
	if self.Cause != nil {
		buf.WriteString(`: ` + self.Cause.Error())
	}
	return buf.String()
}

// Used by `errors.Is`.
func (self Err) Is(target error) bool {
	if other, ok := target.(Err); ok && other.Code == self.Code {
		return true
	}
	return self.Cause != nil && errors.Is(self.Cause, target)
}

// Used by `errors.Unwrap` and friends.
func (self Err) Unwrap() error { return self.Cause }

func (self Err) during(action string) Err {
	self.While = action
	return self
}

func (self Err) wrap(cause error) Err {
	self.Cause = cause
	return self
}

// Deferred by functions that report failures by panicking with `Err`. Any
// other panic is re-raised.
func rec(out *error) {
	val := recover()
	if val == nil {
		return
	}
	if err, ok := val.(Err); ok {
		*out = err
		return
	}
	panic(val)
}
