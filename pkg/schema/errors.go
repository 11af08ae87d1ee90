// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// Error is the schema package's error taxonomy member: FK target
// missing, invalid PK/UNIQUE type, or diff inconsistency. It is returned
// from schema construction/validation and is never swallowed.
type Error struct {
	Table   string
	Column  string
	Message string
}

func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error on %s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("schema error on %s: %s", e.Table, e.Message)
}

func newSchemaError(table, column, format string, args ...any) *Error {
	return &Error{Table: table, Column: column, Message: fmt.Sprintf(format, args...)}
}
