// SPDX-License-Identifier: Apache-2.0

package parser

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam      // $1, $2
	tokNamedParam // :name
	tokPunct      // ( ) , . *
	tokOp         // = != <> < <= > >= ||
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// ParseError reports a failure at a byte offset into the source text.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

func newParseError(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}
