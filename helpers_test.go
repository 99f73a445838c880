package topogo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func try(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("%+v", err)
	}
}

func eq(t testing.TB, exp, act interface{}) {
	t.Helper()
	if !reflect.DeepEqual(exp, act) {
		t.Fatalf("expected:\n%v\nactual:\n%v", spew.Sdump(exp), spew.Sdump(act))
	}
}

func errIs(t testing.TB, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf(`expected error %v, got %+v`, target, err)
	}
}

// Runs the function, converting an `Err` panic into an error.
func catch(fun func()) (err error) {
	defer rec(&err)
	fun()
	return nil
}

func compile(t testing.TB, query *Query) Compiled {
	t.Helper()
	out, err := query.Compile()
	try(t, err)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type fakeCall struct {
	Text string
	Args []interface{}
}

// Records every statement and answers with a fixed result or error.
type fakeDriver struct {
	mu     sync.Mutex
	calls  []fakeCall
	result Result
	err    error
}

func (self *fakeDriver) Query(_ context.Context, text string, args []interface{}) (Result, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.calls = append(self.calls, fakeCall{text, args})
	if self.err != nil {
		return Result{}, self.err
	}

	out := self.result
	if out.Command == `` {
		out.Command = commandOf(text)
	}
	return out, nil
}

func (self *fakeDriver) respond(rows ...Row) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.result = Result{Rows: rows}
	self.err = nil
}

func (self *fakeDriver) fail(err error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.err = err
}

func (self *fakeDriver) last(t testing.TB) fakeCall {
	t.Helper()
	self.mu.Lock()
	defer self.mu.Unlock()
	if len(self.calls) == 0 {
		t.Fatalf(`expected at least one statement`)
	}
	return self.calls[len(self.calls)-1]
}

func (self *fakeDriver) count() int {
	self.mu.Lock()
	defer self.mu.Unlock()
	return len(self.calls)
}

func testManager(t testing.TB) (*Manager, *fakeDriver) {
	t.Helper()
	driver := new(fakeDriver)
	mgr, err := OpenWith(driver, Options{Logger: discardLogger()})
	try(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr, driver
}

func testCtx(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
