// SPDX-License-Identifier: Apache-2.0

// Package parser turns QAIL surface syntax into *ast.Qail trees.
package parser

import (
	"strconv"
	"strings"

	"github.com/qail-io/qail/pkg/ast"
)

var actionKeywords = map[string]ast.Action{
	"get":    ast.ActionGet,
	"set":    ast.ActionSet,
	"del":    ast.ActionDel,
	"add":    ast.ActionAdd,
	"make":   ast.ActionMake,
	"alter":  ast.ActionAlter,
	"drop":   ast.ActionDrop,
	"index":  ast.ActionIndex,
	"upsert": ast.ActionUpsert,
	"search": ast.ActionSearch,
}

// Parse parses one QAIL statement into its AST form.
func Parse(src string) (*ast.Qail, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	q, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, newParseError(p.cur().offset, "unexpected trailing input %q", p.cur().text)
	}
	return q, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) atKeyword(kw string) bool {
	t := p.cur()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return newParseError(p.cur().offset, "expected %q, got %q", kw, p.cur().text)
	}
	p.advance()
	return nil
}

func (p *parser) expectPunct(text string) error {
	t := p.cur()
	if t.kind != tokPunct || t.text != text {
		return newParseError(t.offset, "expected %q, got %q", text, t.text)
	}
	p.advance()
	return nil
}

func (p *parser) parseStatement() (*ast.Qail, error) {
	t := p.cur()
	if t.kind != tokIdent {
		return nil, newParseError(t.offset, "expected action keyword, got %q", t.text)
	}
	action, ok := actionKeywords[strings.ToLower(t.text)]
	if !ok {
		return nil, newParseError(t.offset, "unknown action %q", t.text)
	}
	p.advance()

	tableTok := p.cur()
	if tableTok.kind != tokIdent {
		return nil, newParseError(tableTok.offset, "expected table identifier, got %q", tableTok.text)
	}
	p.advance()

	q := &ast.Qail{Action: action, Table: tableTok.text}

	for {
		switch {
		case p.atKeyword("fields"):
			p.advance()
			cols, err := p.parseProjection()
			if err != nil {
				return nil, err
			}
			q.Columns = cols
		case p.atKeyword("where"):
			p.advance()
			cages, err := p.parseConditionCages(ast.CageFilter{})
			if err != nil {
				return nil, err
			}
			q.Cages = append(q.Cages, cages...)
		case p.atKeyword("group"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return nil, err
			}
			cols, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			conds := make([]ast.Condition, len(cols))
			for i, c := range cols {
				conds[i] = ast.Condition{Left: ast.ExprNamed{Name: c}, Op: ast.OpEq, Value: ast.ValueNull{}}
			}
			q.Cages = append(q.Cages, ast.Cage{Kind: ast.CagePartition{}, Conditions: conds, LogicalOp: ast.LogicalAnd})
		case p.atKeyword("order"):
			p.advance()
			if err := p.expectKeyword("by"); err != nil {
				return nil, err
			}
			cages, err := p.parseOrderBy()
			if err != nil {
				return nil, err
			}
			q.Cages = append(q.Cages, cages...)
		case p.atKeyword("limit"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			q.Cages = append(q.Cages, ast.Cage{Kind: ast.CageLimit{N: n}})
		case p.atKeyword("offset"):
			p.advance()
			n, err := p.parseIntLiteral()
			if err != nil {
				return nil, err
			}
			q.Cages = append(q.Cages, ast.Cage{Kind: ast.CageOffset{N: n}})
		case p.atKeyword("returning"):
			p.advance()
			cols, err := p.parseProjection()
			if err != nil {
				return nil, err
			}
			q.Returning = cols
		default:
			return q, nil
		}
	}
}

// parseProjection parses `*` or a comma-separated column list. An empty
// projection list (e.g. "fields" followed immediately by another clause
// keyword) is a ParseError: empty columns in a SELECT projection.
func (p *parser) parseProjection() ([]ast.Expr, error) {
	if p.cur().kind == tokPunct && p.cur().text == "*" {
		p.advance()
		return []ast.Expr{ast.ExprStar{}}, nil
	}
	names, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, newParseError(p.cur().offset, "empty column list in projection")
	}
	exprs := make([]ast.Expr, len(names))
	for i, n := range names {
		exprs[i] = ast.ExprNamed{Name: n}
	}
	return exprs, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var names []string
	for {
		t := p.cur()
		if t.kind != tokIdent {
			break
		}
		switch strings.ToLower(t.text) {
		case "fields", "where", "group", "order", "limit", "offset", "returning":
			return names, nil
		}
		p.advance()
		names = append(names, t.text)
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	return names, nil
}

func (p *parser) parseIntLiteral() (int64, error) {
	t := p.cur()
	if t.kind != tokNumber {
		return 0, newParseError(t.offset, "expected a number, got %q", t.text)
	}
	p.advance()
	n, err := strconv.ParseInt(t.text, 10, 64)
	if err != nil {
		return 0, newParseError(t.offset, "invalid integer literal %q", t.text)
	}
	return n, nil
}

var comparisonKeywords = map[string]ast.Operator{
	"=":  ast.OpEq,
	"!=": ast.OpNe,
	">":  ast.OpGt,
	">=": ast.OpGte,
	"<":  ast.OpLt,
	"<=": ast.OpLte,
}

// parseConditionCages parses a where-clause condition chain, grouping
// consecutive AND-joined conditions into one Cage and starting a new
// Cage on "or", matching Filter/OrFilter's single-LogicalOp-per-cage
// cage shape.
func (p *parser) parseConditionCages(kind ast.CageKind) ([]ast.Cage, error) {
	var cages []ast.Cage
	cur := ast.Cage{Kind: kind, LogicalOp: ast.LogicalAnd}

	for {
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		cur.Conditions = append(cur.Conditions, cond)

		if p.atKeyword("and") {
			p.advance()
			continue
		}
		if p.atKeyword("or") {
			cages = append(cages, cur)
			cur = ast.Cage{Kind: kind, LogicalOp: ast.LogicalOr}
			p.advance()
			continue
		}
		break
	}
	cages = append(cages, cur)
	return cages, nil
}

func (p *parser) parseCondition() (ast.Condition, error) {
	left, err := p.parseArithExpr()
	if err != nil {
		return ast.Condition{}, err
	}

	if p.atKeyword("is") {
		p.advance()
		negated := false
		if p.atKeyword("not") {
			negated = true
			p.advance()
		}
		if err := p.expectKeyword("null"); err != nil {
			return ast.Condition{}, err
		}
		op := ast.OpIsNull
		if negated {
			op = ast.OpIsNotNull
		}
		return ast.Condition{Left: left, Op: op}, nil
	}

	if p.atKeyword("in") || p.atKeyword("not") {
		negated := false
		if p.atKeyword("not") {
			negated = true
			p.advance()
			if err := p.expectKeyword("in"); err != nil {
				return ast.Condition{}, err
			}
		} else {
			p.advance()
		}
		values, err := p.parseValueList()
		if err != nil {
			return ast.Condition{}, err
		}
		op := ast.OpIn
		if negated {
			op = ast.OpNotIn
		}
		return ast.Condition{Left: left, Op: op, Value: ast.ValueArray(values)}, nil
	}

	if p.atKeyword("like") {
		p.advance()
		v, err := p.parseValueExpr()
		if err != nil {
			return ast.Condition{}, err
		}
		return ast.Condition{Left: left, Op: ast.OpLike, Value: v}, nil
	}

	t := p.cur()
	if t.kind == tokOp {
		op, ok := comparisonKeywords[t.text]
		if !ok {
			return ast.Condition{}, newParseError(t.offset, "unknown operator %q", t.text)
		}
		p.advance()
		v, err := p.parseValueExpr()
		if err != nil {
			return ast.Condition{}, err
		}
		return ast.Condition{Left: left, Op: op, Value: v}, nil
	}

	return ast.Condition{}, newParseError(t.offset, "expected comparison operator, got %q", t.text)
}

func (p *parser) parseValueList() ([]ast.Value, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var values []ast.Value
	for {
		if p.cur().kind == tokPunct && p.cur().text == ")" {
			break
		}
		v, err := p.parseValueAtom()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return values, nil
}

func (p *parser) parseValueAtom() (ast.Value, error) {
	t := p.cur()
	switch t.kind {
	case tokString:
		p.advance()
		return ast.ValueString(t.text), nil
	case tokNumber:
		p.advance()
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, newParseError(t.offset, "invalid float literal %q", t.text)
			}
			return ast.ValueFloat(f), nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, newParseError(t.offset, "invalid integer literal %q", t.text)
		}
		return ast.ValueInt(n), nil
	case tokParam:
		p.advance()
		n, _ := strconv.Atoi(t.text)
		return ast.ValueParam(n), nil
	case tokNamedParam:
		p.advance()
		return ast.ValueNamedParam(t.text), nil
	case tokIdent:
		if strings.EqualFold(t.text, "null") {
			p.advance()
			return ast.ValueNull{}, nil
		}
		if strings.EqualFold(t.text, "true") {
			p.advance()
			return ast.ValueBool(true), nil
		}
		if strings.EqualFold(t.text, "false") {
			p.advance()
			return ast.ValueBool(false), nil
		}
		p.advance()
		return ast.ValueColumn(t.text), nil
	}
	return nil, newParseError(t.offset, "expected a value, got %q", t.text)
}

// parseValueExpr parses a full arithmetic expression for a condition's
// right-hand side, collapsing it to a plain Value when possible
// (literal, column, param) and falling back to ValueExpr for anything
// with operators or function calls in it.
func (p *parser) parseValueExpr() (ast.Value, error) {
	expr, err := p.parseArithExpr()
	if err != nil {
		return nil, err
	}
	switch e := expr.(type) {
	case ast.ExprLiteral:
		return e.Value, nil
	case ast.ExprNamed:
		return ast.ValueColumn(e.Name), nil
	default:
		return ast.ValueExpr{Expr: expr}, nil
	}
}

// parseArithExpr parses the left-associative binary chain `|| < +,- <
// *,/,%` described in the grammar, bottoming out at parsePrimary.
func (p *parser) parseArithExpr() (ast.Expr, error) {
	return p.parseConcat()
}

func (p *parser) parseConcat() (ast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && p.cur().text == "||" {
		p.advance()
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = ast.ExprBinary{Left: left, Op: ast.BinaryConcat, Right: right}
	}
	return left, nil
}

func (p *parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "+" || p.cur().text == "-") {
		opText := p.advance().text
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		op := ast.BinaryAdd
		if opText == "-" {
			op = ast.BinarySub
		}
		left = ast.ExprBinary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseCast()
	if err != nil {
		return nil, err
	}
	for (p.cur().kind == tokOp && (p.cur().text == "/" || p.cur().text == "%")) || (p.cur().kind == tokPunct && p.cur().text == "*") {
		opText := p.advance().text
		right, err := p.parseCast()
		if err != nil {
			return nil, err
		}
		var op ast.BinaryOp
		switch opText {
		case "*":
			op = ast.BinaryMul
		case "/":
			op = ast.BinaryDiv
		default:
			op = ast.BinaryRem
		}
		left = ast.ExprBinary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseCast() (ast.Expr, error) {
	inner, err := p.parseJSONAccess()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && p.cur().text == "::" {
		p.advance()
		t := p.cur()
		if t.kind != tokIdent {
			return nil, newParseError(t.offset, "expected type name after '::', got %q", t.text)
		}
		p.advance()
		inner = ast.ExprCast{Inner: inner, TargetType: t.text}
	}
	return inner, nil
}

func (p *parser) parseJSONAccess() (ast.Expr, error) {
	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	named, ok := primary.(ast.ExprNamed)
	if !ok {
		return primary, nil
	}
	if !(p.cur().kind == tokOp && (p.cur().text == "->" || p.cur().text == "->>")) {
		return primary, nil
	}

	access := ast.ExprJSONAccess{Column: named.Name}
	for p.cur().kind == tokOp && (p.cur().text == "->" || p.cur().text == "->>") {
		asText := p.advance().text == "->>"
		t := p.cur()
		var key string
		switch t.kind {
		case tokNumber, tokIdent:
			key = t.text
			p.advance()
		case tokString:
			key = t.text
			p.advance()
		default:
			return nil, newParseError(t.offset, "expected a JSON path key, got %q", t.text)
		}
		access.PathSegments = append(access.PathSegments, ast.JSONPathSegment{Key: key, AsText: asText})
	}
	return access, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokString:
		p.advance()
		return ast.ExprLiteral{Value: ast.ValueString(t.text)}, nil
	case tokNumber:
		p.advance()
		if strings.Contains(t.text, ".") {
			f, _ := strconv.ParseFloat(t.text, 64)
			return ast.ExprLiteral{Value: ast.ValueFloat(f)}, nil
		}
		n, _ := strconv.ParseInt(t.text, 10, 64)
		return ast.ExprLiteral{Value: ast.ValueInt(n)}, nil
	case tokParam:
		p.advance()
		n, _ := strconv.Atoi(t.text)
		return ast.ExprLiteral{Value: ast.ValueParam(n)}, nil
	case tokNamedParam:
		p.advance()
		return ast.ExprLiteral{Value: ast.ValueNamedParam(t.text)}, nil
	case tokPunct:
		if t.text == "(" {
			p.advance()
			inner, err := p.parseArithExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, newParseError(t.offset, "unbalanced parentheses")
			}
			return inner, nil
		}
	case tokIdent:
		p.advance()
		if p.cur().kind == tokPunct && p.cur().text == "(" {
			return p.parseFunctionCall(t.text)
		}
		return ast.ExprNamed{Name: t.text}, nil
	}
	return nil, newParseError(t.offset, "unexpected token %q", t.text)
}

func (p *parser) parseFunctionCall(name string) (ast.Expr, error) {
	openParen := p.cur()
	p.advance() // '('
	var args []ast.Expr
	for {
		if p.cur().kind == tokPunct && p.cur().text == ")" {
			break
		}
		if p.cur().kind == tokPunct && p.cur().text == "*" {
			p.advance()
			args = append(args, ast.ExprStar{})
		} else {
			arg, err := p.parseArithExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	if p.cur().kind != tokPunct || p.cur().text != ")" {
		return nil, newParseError(openParen.offset, "unclosed function argument list for %q", name)
	}
	p.advance()
	return ast.ExprFunctionCall{Name: name, Args: args}, nil
}

func (p *parser) parseOrderBy() ([]ast.Cage, error) {
	var cages []ast.Cage
	for {
		t := p.cur()
		if t.kind != tokIdent {
			break
		}
		p.advance()
		order := ast.SortAsc
		if p.atKeyword("desc") {
			order = ast.SortDesc
			p.advance()
		} else if p.atKeyword("asc") {
			p.advance()
		}
		cages = append(cages, ast.Cage{
			Kind:       ast.CageSort{Order: order},
			Conditions: []ast.Condition{{Left: ast.ExprNamed{Name: t.text}, Op: ast.OpEq, Value: ast.ValueNull{}}},
		})
		if p.cur().kind == tokPunct && p.cur().text == "," {
			p.advance()
			continue
		}
		break
	}
	return cages, nil
}
