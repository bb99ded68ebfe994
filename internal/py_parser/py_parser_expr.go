package py_parser

import (
	"strings"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/py_lexer"
)

// Expression grammar, lowest precedence first. parseExpr corresponds to
// "test" in the CPython grammar: lambdas and ternaries but no bare tuples
// and no walrus.

func (p *parser) parseExpr() py_ast.Expr {
	loc := p.loc()

	switch p.lexer.Token {
	case py_lexer.TLambda:
		p.lexer.Next()
		params := p.parseParams(py_lexer.TColon, false)
		p.expect(py_lexer.TColon, "\":\"")
		body := p.parseExpr()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ELambda{Params: params, Body: body}}

	case py_lexer.TYield:
		p.lexer.Next()
		stmt := &py_ast.EYield{}
		if p.eat(py_lexer.TFrom) {
			stmt.IsFrom = true
			value := p.parseExpr()
			stmt.Value = &value
		} else if !p.atLineEnd() && p.lexer.Token != py_lexer.TCloseParen {
			value := p.parseExprList(nil)
			stmt.Value = &value
		}
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: stmt}
	}

	expr := p.parseOrTest()

	// Ternary: "body if test else orelse"
	if p.lexer.Token == py_lexer.TIf {
		p.lexer.Next()
		test := p.parseOrTest()
		p.expect(py_lexer.TElse, "\"else\"")
		orelse := p.parseExpr()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EIfExp{Test: test, Body: expr, Orelse: orelse}}
	}
	return expr
}

// parseNamedExpr allows a top-level walrus: "if (n := read()) > 0:".
func (p *parser) parseNamedExpr() py_ast.Expr {
	loc := p.loc()
	expr := p.parseExpr()
	if p.lexer.Token == py_lexer.TColonEquals {
		p.lexer.Next()
		value := p.parseExpr()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ENamedExpr{Target: expr, Value: value}}
	}
	return expr
}

// parseExprList parses a possibly-tuple expression: "a, b, c". Starred items
// are allowed. A trailing comma forces a tuple.
func (p *parser) parseExprList(first *py_ast.Expr) py_ast.Expr {
	loc := p.loc()
	var items []py_ast.Expr
	if first != nil {
		items = append(items, *first)
		loc = first.Loc
	} else {
		items = append(items, p.parseExprListEntry())
	}

	isTuple := false
	for p.lexer.Token == py_lexer.TComma {
		isTuple = true
		p.lexer.Next()
		if p.exprListEnded() {
			break
		}
		items = append(items, p.parseExprListEntry())
	}

	if !isTuple {
		return items[0]
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Items: items}}
}

func (p *parser) exprListEnded() bool {
	switch p.lexer.Token {
	case py_lexer.TNewline, py_lexer.TSemicolon, py_lexer.TEndOfFile, py_lexer.TDedent,
		py_lexer.TEquals, py_lexer.TColon, py_lexer.TCloseParen, py_lexer.TCloseBracket,
		py_lexer.TCloseBrace:
		return true
	}
	return false
}

func (p *parser) parseExprListEntry() py_ast.Expr {
	if p.lexer.Token == py_lexer.TAsterisk {
		loc := p.loc()
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EStarred{Value: p.parseOrTest()}}
	}
	return p.parseNamedExpr()
}

func (p *parser) parseOrTest() py_ast.Expr {
	loc := p.loc()
	expr := p.parseAndTest()
	if p.lexer.Token != py_lexer.TOr {
		return expr
	}
	values := []py_ast.Expr{expr}
	for p.eat(py_lexer.TOr) {
		values = append(values, p.parseAndTest())
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBoolOp{Op: py_ast.OpOr, Values: values}}
}

func (p *parser) parseAndTest() py_ast.Expr {
	loc := p.loc()
	expr := p.parseNotTest()
	if p.lexer.Token != py_lexer.TAnd {
		return expr
	}
	values := []py_ast.Expr{expr}
	for p.eat(py_lexer.TAnd) {
		values = append(values, p.parseNotTest())
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBoolOp{Op: py_ast.OpAnd, Values: values}}
}

func (p *parser) parseNotTest() py_ast.Expr {
	if p.lexer.Token == py_lexer.TNot {
		loc := p.loc()
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EUnary{Op: py_ast.OpNot, Value: p.parseNotTest()}}
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() py_ast.Expr {
	loc := p.loc()
	expr := p.parseBitOr()

	var ops []py_ast.OpCode
	var comparators []py_ast.Expr
	for {
		var op py_ast.OpCode
		switch p.lexer.Token {
		case py_lexer.TEqualsEquals:
			op = py_ast.OpEq
		case py_lexer.TExclamationEquals:
			op = py_ast.OpNotEq
		case py_lexer.TLessThan:
			op = py_ast.OpLt
		case py_lexer.TLessThanEquals:
			op = py_ast.OpLtE
		case py_lexer.TGreaterThan:
			op = py_ast.OpGt
		case py_lexer.TGreaterThanEquals:
			op = py_ast.OpGtE
		case py_lexer.TIn:
			op = py_ast.OpIn
		case py_lexer.TIs:
			p.lexer.Next()
			if p.lexer.Token == py_lexer.TNot {
				op = py_ast.OpIsNot
			} else {
				ops = append(ops, py_ast.OpIs)
				comparators = append(comparators, p.parseBitOr())
				continue
			}
			op = py_ast.OpIsNot
		case py_lexer.TNot:
			// "not in"
			p.lexer.Next()
			if p.lexer.Token != py_lexer.TIn {
				p.syntaxError("Expected \"in\" after \"not\"")
			}
			op = py_ast.OpNotIn
		default:
			if len(ops) == 0 {
				return expr
			}
			return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ECompare{Left: expr, Ops: ops, Comparators: comparators}}
		}
		p.lexer.Next()
		ops = append(ops, op)
		comparators = append(comparators, p.parseBitOr())
	}
}

func (p *parser) parseBitOr() py_ast.Expr {
	expr := p.parseBitXor()
	for p.lexer.Token == py_lexer.TBar {
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: py_ast.OpBitOr, Left: expr, Right: p.parseBitXor()}}
	}
	return expr
}

func (p *parser) parseBitXor() py_ast.Expr {
	expr := p.parseBitAnd()
	for p.lexer.Token == py_lexer.TCaret {
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: py_ast.OpBitXor, Left: expr, Right: p.parseBitAnd()}}
	}
	return expr
}

func (p *parser) parseBitAnd() py_ast.Expr {
	expr := p.parseShift()
	for p.lexer.Token == py_lexer.TAmpersand {
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: py_ast.OpBitAnd, Left: expr, Right: p.parseShift()}}
	}
	return expr
}

func (p *parser) parseShift() py_ast.Expr {
	expr := p.parseArith()
	for {
		var op py_ast.OpCode
		switch p.lexer.Token {
		case py_lexer.TLessThanLessThan:
			op = py_ast.OpLShift
		case py_lexer.TGreaterThanGreaterThan:
			op = py_ast.OpRShift
		default:
			return expr
		}
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: op, Left: expr, Right: p.parseArith()}}
	}
}

func (p *parser) parseArith() py_ast.Expr {
	expr := p.parseTerm()
	for {
		var op py_ast.OpCode
		switch p.lexer.Token {
		case py_lexer.TPlus:
			op = py_ast.OpAdd
		case py_lexer.TMinus:
			op = py_ast.OpSub
		default:
			return expr
		}
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: op, Left: expr, Right: p.parseTerm()}}
	}
}

func (p *parser) parseTerm() py_ast.Expr {
	expr := p.parseFactor()
	for {
		var op py_ast.OpCode
		switch p.lexer.Token {
		case py_lexer.TAsterisk:
			op = py_ast.OpMult
		case py_lexer.TSlash:
			op = py_ast.OpDiv
		case py_lexer.TSlashSlash:
			op = py_ast.OpFloorDiv
		case py_lexer.TPercent:
			op = py_ast.OpMod
		case py_lexer.TAt:
			op = py_ast.OpMatMult
		default:
			return expr
		}
		loc := expr.Loc
		p.lexer.Next()
		expr = py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: op, Left: expr, Right: p.parseFactor()}}
	}
}

func (p *parser) parseFactor() py_ast.Expr {
	loc := p.loc()
	switch p.lexer.Token {
	case py_lexer.TMinus:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EUnary{Op: py_ast.OpNeg, Value: p.parseFactor()}}
	case py_lexer.TPlus:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EUnary{Op: py_ast.OpPos, Value: p.parseFactor()}}
	case py_lexer.TTilde:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EUnary{Op: py_ast.OpInvert, Value: p.parseFactor()}}
	case py_lexer.TAwait:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EAwait{Value: p.parseFactor()}}
	}
	return p.parsePower()
}

func (p *parser) parsePower() py_ast.Expr {
	expr := p.parsePostfix()
	if p.lexer.Token == py_lexer.TAsteriskAsterisk {
		loc := expr.Loc
		p.lexer.Next()
		// "**" is right-associative and binds looser than a unary on its right
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBinary{Op: py_ast.OpPow, Left: expr, Right: p.parseFactor()}}
	}
	return expr
}

func (p *parser) parsePostfix() py_ast.Expr {
	expr := p.parseAtom()
	for {
		switch p.lexer.Token {
		case py_lexer.TDot:
			p.lexer.Next()
			attrLoc := p.loc()
			attr := p.expectIdentifier("an attribute name")
			expr = py_ast.Expr{Loc: expr.Loc, Idx: p.idx(), Data: &py_ast.EAttribute{Value: expr, Attr: attr, AttrLoc: attrLoc}}

		case py_lexer.TOpenParen:
			p.lexer.Next()
			call := &py_ast.ECall{Target: expr}
			p.parseCallArgs(call)
			p.expect(py_lexer.TCloseParen, "\")\"")
			expr = py_ast.Expr{Loc: expr.Loc, Idx: p.idx(), Data: call}

		case py_lexer.TOpenBracket:
			p.lexer.Next()
			index := p.parseSubscript()
			p.expect(py_lexer.TCloseBracket, "\"]\"")
			expr = py_ast.Expr{Loc: expr.Loc, Idx: p.idx(), Data: &py_ast.ESubscript{Value: expr, Index: index}}

		default:
			return expr
		}
	}
}

func (p *parser) parseCallArgs(call *py_ast.ECall) {
	for p.lexer.Token != py_lexer.TCloseParen {
		switch {
		case p.lexer.Token == py_lexer.TAsteriskAsterisk:
			p.lexer.Next()
			call.Keywords = append(call.Keywords, py_ast.Keyword{Value: p.parseExpr()})

		case p.lexer.Token == py_lexer.TAsterisk:
			loc := p.loc()
			p.lexer.Next()
			call.Args = append(call.Args, py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EStarred{Value: p.parseExpr()}})

		case p.lexer.Token == py_lexer.TIdentifier && p.lexerPeekIsEquals():
			name := p.expectIdentifier("a keyword argument")
			p.expect(py_lexer.TEquals, "\"=\"")
			call.Keywords = append(call.Keywords, py_ast.Keyword{Name: name, Value: p.parseExpr()})

		default:
			arg := p.parseNamedExpr()
			// A generator expression argument: "f(x for x in xs)"
			if p.lexer.Token == py_lexer.TFor || p.lexer.Token == py_lexer.TAsync {
				arg = p.parseCompRest(arg.Loc, py_ast.CompGenerator, arg, nil)
			}
			call.Args = append(call.Args, arg)
		}
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
}

func (p *parser) parseSubscript() py_ast.Expr {
	loc := p.loc()
	var items []py_ast.Expr
	for {
		items = append(items, p.parseSliceItem())
		if !p.eat(py_lexer.TComma) {
			break
		}
		if p.lexer.Token == py_lexer.TCloseBracket {
			// Trailing comma makes the index a tuple
			return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Items: items}}
		}
	}
	if len(items) == 1 {
		return items[0]
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Items: items}}
}

func (p *parser) parseSliceItem() py_ast.Expr {
	loc := p.loc()
	slice := &py_ast.ESlice{}

	if p.lexer.Token != py_lexer.TColon {
		expr := p.parseExprListEntry()
		if p.lexer.Token != py_lexer.TColon {
			return expr
		}
		slice.Lower = &expr
	}
	p.expect(py_lexer.TColon, "\":\"")

	if p.lexer.Token != py_lexer.TColon && p.lexer.Token != py_lexer.TComma &&
		p.lexer.Token != py_lexer.TCloseBracket {
		upper := p.parseExpr()
		slice.Upper = &upper
	}
	if p.eat(py_lexer.TColon) {
		if p.lexer.Token != py_lexer.TComma && p.lexer.Token != py_lexer.TCloseBracket {
			step := p.parseExpr()
			slice.Step = &step
		}
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: slice}
}

func (p *parser) parseAtom() py_ast.Expr {
	loc := p.loc()

	switch p.lexer.Token {
	case py_lexer.TIdentifier:
		name := p.lexer.Identifier
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EName{Name: name}}

	case py_lexer.TNumber:
		literal := p.lexer.NumberLiteral
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ENumber{Literal: literal}}

	case py_lexer.TString, py_lexer.TFString:
		return p.parseStringConcat(loc)

	case py_lexer.TNone:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ENone{}}
	case py_lexer.TTrue:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBool{Value: true}}
	case py_lexer.TFalse:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EBool{Value: false}}
	case py_lexer.TEllipsisLit:
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EEllipsis{}}

	case py_lexer.TLambda, py_lexer.TYield:
		return p.parseExpr()

	case py_lexer.TOpenParen:
		return p.parseParenAtom(loc)

	case py_lexer.TOpenBracket:
		return p.parseListAtom(loc)

	case py_lexer.TOpenBrace:
		return p.parseBraceAtom(loc)
	}

	p.syntaxError("Unexpected token in expression")
	return py_ast.Expr{}
}

// parseStringConcat handles adjacent string literal concatenation. Mixing in
// one f-string makes the whole run an f-string.
func (p *parser) parseStringConcat(loc logger.Loc) py_ast.Expr {
	var values []string
	var raws []string
	var freeNames []string
	sawFString := false

	for p.lexer.Token == py_lexer.TString || p.lexer.Token == py_lexer.TFString {
		values = append(values, p.lexer.StringValue)
		raws = append(raws, p.lexer.StringRaw)
		if p.lexer.Token == py_lexer.TFString {
			sawFString = true
			freeNames = append(freeNames, p.lexer.FStringFreeNames...)
		}
		p.lexer.Next()
	}

	if sawFString {
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EFString{
			Raw:       strings.Join(raws, " "),
			FreeNames: dedupStrings(freeNames),
		}}
	}
	raw := strings.Join(raws, " ")
	if len(raws) == 1 {
		raw = raws[0]
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EString{
		Value: strings.Join(values, ""),
		Raw:   raw,
	}}
}

func dedupStrings(names []string) []string {
	seen := map[string]bool{}
	out := names[:0]
	for _, name := range names {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func (p *parser) parseParenAtom(loc logger.Loc) py_ast.Expr {
	p.expect(py_lexer.TOpenParen, "\"(\"")

	// The empty tuple
	if p.lexer.Token == py_lexer.TCloseParen {
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Parenthesized: true}}
	}

	first := p.parseExprListEntry()

	// A generator expression
	if p.lexer.Token == py_lexer.TFor || p.lexer.Token == py_lexer.TAsync {
		expr := p.parseCompRest(loc, py_ast.CompGenerator, first, nil)
		p.expect(py_lexer.TCloseParen, "\")\"")
		return expr
	}

	// A tuple
	if p.lexer.Token == py_lexer.TComma {
		items := []py_ast.Expr{first}
		for p.eat(py_lexer.TComma) {
			if p.lexer.Token == py_lexer.TCloseParen {
				break
			}
			items = append(items, p.parseExprListEntry())
		}
		p.expect(py_lexer.TCloseParen, "\")\"")
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Items: items, Parenthesized: true}}
	}

	p.expect(py_lexer.TCloseParen, "\")\"")
	return first
}

func (p *parser) parseListAtom(loc logger.Loc) py_ast.Expr {
	p.expect(py_lexer.TOpenBracket, "\"[\"")

	if p.lexer.Token == py_lexer.TCloseBracket {
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EList{}}
	}

	first := p.parseExprListEntry()

	if p.lexer.Token == py_lexer.TFor || p.lexer.Token == py_lexer.TAsync {
		expr := p.parseCompRest(loc, py_ast.CompList, first, nil)
		p.expect(py_lexer.TCloseBracket, "\"]\"")
		return expr
	}

	items := []py_ast.Expr{first}
	for p.eat(py_lexer.TComma) {
		if p.lexer.Token == py_lexer.TCloseBracket {
			break
		}
		items = append(items, p.parseExprListEntry())
	}
	p.expect(py_lexer.TCloseBracket, "\"]\"")
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EList{Items: items}}
}

func (p *parser) parseBraceAtom(loc logger.Loc) py_ast.Expr {
	p.expect(py_lexer.TOpenBrace, "\"{\"")

	// The empty dict
	if p.lexer.Token == py_lexer.TCloseBrace {
		p.lexer.Next()
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.EDict{}}
	}

	// "**mapping" can only start a dict
	if p.lexer.Token == py_lexer.TAsteriskAsterisk {
		dict := &py_ast.EDict{}
		p.parseDictRest(dict)
		p.expect(py_lexer.TCloseBrace, "\"}\"")
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: dict}
	}

	first := p.parseExprListEntry()

	// Dict literal or dict comprehension
	if p.lexer.Token == py_lexer.TColon {
		p.lexer.Next()
		firstValue := p.parseExpr()
		if p.lexer.Token == py_lexer.TFor || p.lexer.Token == py_lexer.TAsync {
			expr := p.parseCompRest(loc, py_ast.CompDict, first, &firstValue)
			p.expect(py_lexer.TCloseBrace, "\"}\"")
			return expr
		}
		key := first
		dict := &py_ast.EDict{Keys: []*py_ast.Expr{&key}, Values: []py_ast.Expr{firstValue}}
		if p.eat(py_lexer.TComma) {
			p.parseDictRest(dict)
		}
		p.expect(py_lexer.TCloseBrace, "\"}\"")
		return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: dict}
	}

	// Set literal or set comprehension
	if p.lexer.Token == py_lexer.TFor || p.lexer.Token == py_lexer.TAsync {
		expr := p.parseCompRest(loc, py_ast.CompSet, first, nil)
		p.expect(py_lexer.TCloseBrace, "\"}\"")
		return expr
	}

	items := []py_ast.Expr{first}
	for p.eat(py_lexer.TComma) {
		if p.lexer.Token == py_lexer.TCloseBrace {
			break
		}
		items = append(items, p.parseExprListEntry())
	}
	p.expect(py_lexer.TCloseBrace, "\"}\"")
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ESet{Items: items}}
}

func (p *parser) parseDictRest(dict *py_ast.EDict) {
	for p.lexer.Token != py_lexer.TCloseBrace {
		if p.lexer.Token == py_lexer.TAsteriskAsterisk {
			p.lexer.Next()
			dict.Keys = append(dict.Keys, nil)
			dict.Values = append(dict.Values, p.parseOrTest())
		} else {
			key := p.parseExpr()
			p.expect(py_lexer.TColon, "\":\"")
			dict.Keys = append(dict.Keys, &key)
			dict.Values = append(dict.Values, p.parseExpr())
		}
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
}

// parseCompRest parses the "for ... in ... if ..." tail of a comprehension.
func (p *parser) parseCompRest(loc logger.Loc, kind py_ast.CompKind, elt py_ast.Expr, value *py_ast.Expr) py_ast.Expr {
	comp := &py_ast.EComp{Kind: kind, Elt: elt, Value: value}

	for {
		isAsync := false
		if p.lexer.Token == py_lexer.TAsync {
			p.lexer.Next()
			isAsync = true
		}
		if p.lexer.Token != py_lexer.TFor {
			if isAsync {
				p.syntaxError("Expected \"for\" after \"async\"")
			}
			break
		}
		p.lexer.Next()

		gen := py_ast.Comprehension{IsAsync: isAsync}
		gen.Target = p.parseTargetList(py_lexer.TIn)
		p.expect(py_lexer.TIn, "\"in\"")
		gen.Iter = p.parseOrTest()
		for p.lexer.Token == py_lexer.TIf {
			p.lexer.Next()
			gen.Ifs = append(gen.Ifs, p.parseOrTest())
		}
		comp.Generators = append(comp.Generators, gen)
	}

	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: comp}
}
