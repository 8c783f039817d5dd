// Package diag implements the compiler's single error strategy: every
// fatal condition is located and terminates compilation. There is no
// recovery and no diagnostics accumulation (spec §7).
package diag

import "fmt"

// Location names a (row, col) position in a source file.
type Location struct {
	Row int
	Col int
}

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Row, l.Col)
}

// Error is a located, fatal compiler diagnostic. Its Error() string is
// exactly the user-visible failure format from spec §7: a
// "<file>:<row>:<col>" line followed by a free-form message.
type Error struct {
	File string
	Loc  Location
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%s\n%s", e.File, e.Loc, e.Msg)
}

// New builds a located *Error with a formatted message.
func New(file string, loc Location, format string, args ...any) *Error {
	return &Error{File: file, Loc: loc, Msg: fmt.Sprintf(format, args...)}
}
