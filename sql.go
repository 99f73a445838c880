package topogo

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

/*
SQL text plus its positional arguments. Every chunk appended to it numbers its
own placeholders from `$1`; the chunk is shifted past the arguments already
held, so fragments written in isolation can be glued together freely.

Placeholders are always Postgres-style `$N`.
*/
type Sql struct {
	Text string
	Args []interface{}
}

func (self Sql) String() string { return self.Text }

/*
Adds a chunk of text and its args, separated from the existing text by a space
when needed. Placeholders in the chunk are shifted by the number of args held
before the call:

	var stmt Sql
	stmt.Append(`WHERE a = $1`, 10)
	stmt.Append(`AND b = $1`, 20)
	// stmt.Text == `WHERE a = $1 AND b = $2`
	// stmt.Args == []interface{}{10, 20}

Placeholders aren't checked against the args; see `Sql.AppendChecked`.
*/
func (self *Sql) Append(chunk string, args ...interface{}) {
	chunk = renumerateOrdinalParams(chunk, len(self.Args))
	self.appendText(chunk)
	self.Args = append(self.Args, args...)
}

/*
Same as `Sql.Append`, but panics with `ErrOrdinalOutOfBounds` when a parameter
refers past the provided args, and with `ErrUnusedArgument` when an argument
isn't referenced. `$k` always means the k-th argument of this chunk, whatever
order the parameters appear in.
*/
func (self *Sql) AppendChecked(chunk string, args ...interface{}) {
	validateOrdinalParams(chunk, len(args))
	self.Append(chunk, args...)
}

// Appends a raw expression, validating its parameters. See `Raw`.
func (self *Sql) AppendRaw(raw Raw) {
	self.AppendChecked(raw.Text, raw.Args...)
}

// Appends a single argument with its placeholder.
func (self *Sql) Arg(val interface{}) {
	self.Append(`$1`, val)
}

// Appends another statement, renumerating its parameters.
func (self *Sql) AppendSql(other Sql) {
	self.Append(other.Text, other.Args...)
}

/*
Substitutes `other` for each occurrence of `pattern`, shifting its placeholders
past the current args. The args of `other` are added once, shared by all
occurrences:

	outer := Sql{Text: `SELECT * FROM "t" WHERE a = $1 {{rest}}`, Args: []interface{}{10}}
	outer.QueryReplace(`{{rest}}`, Sql{Text: `AND b = $1`, Args: []interface{}{20}})
	// outer.Text == `SELECT * FROM "t" WHERE a = $1 AND b = $2`
*/
func (self *Sql) QueryReplace(pattern string, other Sql) {
	chunk := renumerateOrdinalParams(other.Text, len(self.Args))
	self.Text = strings.ReplaceAll(self.Text, pattern, chunk)
	self.Args = append(self.Args, other.Args...)
}

// Plain text substitution. Args are untouched.
func (self *Sql) StringReplace(pattern string, chunk string) {
	self.Text = strings.ReplaceAll(self.Text, pattern, chunk)
}

// Independent copy: appending to either side never affects the other.
func (self Sql) Copy() Sql {
	self.Args = slices.Clone(self.Args)
	return self
}

func (self *Sql) appendText(chunk string) {
	if chunk == `` {
		return
	}
	if self.Text != `` && !touchesSpace(self.Text, chunk) {
		self.Text += ` `
	}
	self.Text += chunk
}

/*
Output of compiling a `Query`. `RowOne` is true for inserts, updates, and
selects limited to one row: callers use it to unwrap a one-row result.
*/
type Compiled struct {
	Sql
	Command  string
	IsSelect bool
	RowOne   bool
}

// Statement command tags, mirroring the tags reported by Postgres.
const (
	CommandSelect = `SELECT`
	CommandInsert = `INSERT`
	CommandUpdate = `UPDATE`
	CommandDelete = `DELETE`
)

// Command tags whose rows are surfaced to callers.
var returnRowsFor = []string{CommandInsert, CommandSelect, CommandUpdate, CommandDelete}

func returnsRows(command string) bool { return slices.Contains(returnRowsFor, command) }

// Guesses the command tag from the first keyword of the statement.
func commandOf(text string) string {
	match := leadingKeywordRegexp.FindStringSubmatch(text)
	if match == nil {
		return ``
	}
	word := strings.ToUpper(match[1])
	if word == `WITH` {
		return CommandSelect
	}
	return word
}

var leadingKeywordRegexp = regexp.MustCompile(`^\s*\(?\s*([A-Za-z]+)`)

/*
Shifts every `$N` in the text by `offset`.

TODO: skip `$N` inside quoted literals and comments.
*/
func renumerateOrdinalParams(text string, offset int) string {
	if offset == 0 {
		return text
	}
	return ordinalParamRegexp.ReplaceAllStringFunc(text, func(match string) string {
		return `$` + strconv.Itoa(ordinalOf(match)+offset)
	})
}

func validateOrdinalParams(text string, count int) {
	used := make([]bool, count)

	for _, match := range ordinalParamRegexp.FindAllString(text, -1) {
		ord := ordinalOf(match)
		if ord < 1 || ord > count {
			panic(ErrOrdinalOutOfBounds.during(`validating parameters`).wrap(
				fmt.Errorf(`ordinal parameter %v exceeds argument count %v in %q`, match, count, text),
			))
		}
		used[ord-1] = true
	}

	for i, ok := range used {
		if !ok {
			panic(ErrUnusedArgument.during(`validating parameters`).wrap(
				fmt.Errorf(`argument at index %v is not referenced in %q`, i, text),
			))
		}
	}
}

func countOrdinalParams(text string) int {
	return len(ordinalParamRegexp.FindAllString(text, -1))
}

// Only called on `ordinalParamRegexp` matches, which are always numeric.
func ordinalOf(match string) int {
	num, _ := strconv.Atoi(match[1:])
	return num
}

var ordinalParamRegexp = regexp.MustCompile(`\$\d+\b`)

func touchesSpace(left, right string) bool {
	last, _ := utf8.DecodeLastRuneInString(left)
	first, _ := utf8.DecodeRuneInString(right)
	return unicode.IsSpace(last) || unicode.IsSpace(first)
}
