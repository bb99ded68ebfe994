package py_parser

// A recursive-descent parser for Python modules. Every statement and
// expression node gets a dense, stable node index; the bundler relies on
// those indices to track provenance across cloning and rewriting.
//
// The grammar coverage is the subset a bundler needs to understand whole
// files: all statement forms, the full expression grammar with Python's
// precedence levels, comprehensions, lambdas, decorators, and string literal
// concatenation. Syntax errors abort the parse of the whole file; the
// bundler treats a parse error as fatal.

import (
	"fmt"

	"github.com/cribo/cribo/internal/logger"
	"github.com/cribo/cribo/internal/py_ast"
	"github.com/cribo/cribo/internal/py_lexer"
)

type parser struct {
	log       logger.Log
	source    *logger.Source
	lexer     py_lexer.Lexer
	nextIndex py_ast.NodeIndex
}

// Parse converts source text into a module AST. The returned ok flag is
// false if a syntax error was encountered; the error has already been
// logged.
func Parse(log logger.Log, source *logger.Source) (module py_ast.Module, ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			if _, isLexerPanic := r.(py_lexer.LexerPanic); isLexerPanic {
				ok = false
				return
			}
			panic(r)
		}
	}()

	p := &parser{
		log:    log,
		source: source,
		lexer:  py_lexer.NewLexer(log, source),
	}

	var body []py_ast.Stmt
	for p.lexer.Token != py_lexer.TEndOfFile {
		if p.lexer.Token == py_lexer.TNewline {
			p.lexer.Next()
			continue
		}
		body = append(body, p.parseStmt()...)
	}

	module.Body = body
	module.NextNodeIndex = p.nextIndex
	return
}

func (p *parser) idx() py_ast.NodeIndex {
	index := p.nextIndex
	p.nextIndex++
	return index
}

func (p *parser) loc() logger.Loc {
	return p.lexer.Loc()
}

func (p *parser) syntaxError(text string) {
	p.log.AddError(p.source, p.loc(), text)
	panic(py_lexer.LexerPanic{})
}

func (p *parser) expect(token py_lexer.T, what string) {
	if p.lexer.Token != token {
		p.syntaxError(fmt.Sprintf("Expected %s", what))
	}
	p.lexer.Next()
}

func (p *parser) eat(token py_lexer.T) bool {
	if p.lexer.Token == token {
		p.lexer.Next()
		return true
	}
	return false
}

func (p *parser) expectIdentifier(what string) string {
	if p.lexer.Token != py_lexer.TIdentifier {
		p.syntaxError(fmt.Sprintf("Expected %s", what))
	}
	name := p.lexer.Identifier
	p.lexer.Next()
	return name
}

// eatLineEnd consumes the end of a simple statement: a newline or semicolon.
// End-of-file and dedent also terminate a statement but are left in place.
func (p *parser) eatLineEnd() {
	switch p.lexer.Token {
	case py_lexer.TNewline, py_lexer.TSemicolon:
		p.lexer.Next()
	case py_lexer.TEndOfFile, py_lexer.TDedent:
	default:
		p.syntaxError("Expected end of statement")
	}
}

////////////////////////////////////////////////////////////////////////////////
// Statements

// parseStmt returns one or more statements: a semicolon-separated simple
// statement line yields several.
func (p *parser) parseStmt() []py_ast.Stmt {
	switch p.lexer.Token {
	case py_lexer.TIf:
		return []py_ast.Stmt{p.parseIf()}
	case py_lexer.TWhile:
		return []py_ast.Stmt{p.parseWhile()}
	case py_lexer.TFor:
		return []py_ast.Stmt{p.parseFor(false)}
	case py_lexer.TTry:
		return []py_ast.Stmt{p.parseTry()}
	case py_lexer.TWith:
		return []py_ast.Stmt{p.parseWith(false)}
	case py_lexer.TDef:
		return []py_ast.Stmt{p.parseFunctionDef(nil, false)}
	case py_lexer.TClass:
		return []py_ast.Stmt{p.parseClassDef(nil)}
	case py_lexer.TAt:
		return []py_ast.Stmt{p.parseDecorated()}
	case py_lexer.TAsync:
		return []py_ast.Stmt{p.parseAsync()}
	default:
		return p.parseSimpleStmtLine()
	}
}

// parseSimpleStmtLine parses "a = 1; b = 2" style lines.
func (p *parser) parseSimpleStmtLine() []py_ast.Stmt {
	var stmts []py_ast.Stmt
	for {
		stmts = append(stmts, p.parseSimpleStmt())
		if p.lexer.Token == py_lexer.TSemicolon {
			p.lexer.Next()
			if p.lexer.Token == py_lexer.TNewline {
				p.lexer.Next()
				break
			}
			if p.lexer.Token == py_lexer.TEndOfFile || p.lexer.Token == py_lexer.TDedent {
				break
			}
			continue
		}
		p.eatLineEnd()
		break
	}
	return stmts
}

func (p *parser) parseSimpleStmt() py_ast.Stmt {
	loc := p.loc()

	switch p.lexer.Token {
	case py_lexer.TImport:
		return p.parseImport(loc)
	case py_lexer.TFrom:
		return p.parseImportFrom(loc)

	case py_lexer.TPass:
		p.lexer.Next()
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SPass{}}
	case py_lexer.TBreak:
		p.lexer.Next()
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SBreak{}}
	case py_lexer.TContinue:
		p.lexer.Next()
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SContinue{}}

	case py_lexer.TReturn:
		p.lexer.Next()
		var value *py_ast.Expr
		if !p.atLineEnd() {
			expr := p.parseExprList(nil)
			value = &expr
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SReturn{Value: value}}

	case py_lexer.TRaise:
		p.lexer.Next()
		stmt := &py_ast.SRaise{}
		if !p.atLineEnd() {
			exc := p.parseExpr()
			stmt.Exc = &exc
			if p.lexer.Token == py_lexer.TFrom {
				p.lexer.Next()
				cause := p.parseExpr()
				stmt.Cause = &cause
			}
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}

	case py_lexer.TGlobal:
		p.lexer.Next()
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SGlobal{Names: p.parseNameList()}}

	case py_lexer.TNonlocal:
		p.lexer.Next()
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SNonlocal{Names: p.parseNameList()}}

	case py_lexer.TDel:
		p.lexer.Next()
		var targets []py_ast.Expr
		for {
			targets = append(targets, p.parseExpr())
			if !p.eat(py_lexer.TComma) {
				break
			}
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SDelete{Targets: targets}}

	case py_lexer.TAssert:
		p.lexer.Next()
		test := p.parseExpr()
		stmt := &py_ast.SAssert{Test: test}
		if p.eat(py_lexer.TComma) {
			msg := p.parseExpr()
			stmt.Msg = &msg
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
	}

	return p.parseExprOrAssignStmt(loc)
}

func (p *parser) atLineEnd() bool {
	switch p.lexer.Token {
	case py_lexer.TNewline, py_lexer.TSemicolon, py_lexer.TEndOfFile, py_lexer.TDedent:
		return true
	}
	return false
}

func (p *parser) parseNameList() []string {
	var names []string
	for {
		names = append(names, p.expectIdentifier("an identifier"))
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
	return names
}

func (p *parser) parseExprOrAssignStmt(loc logger.Loc) py_ast.Stmt {
	first := p.parseExprList(nil)

	switch p.lexer.Token {
	case py_lexer.TEquals:
		targets := []py_ast.Expr{first}
		var value py_ast.Expr
		for p.eat(py_lexer.TEquals) {
			value = p.parseExprList(nil)
			if p.lexer.Token == py_lexer.TEquals {
				targets = append(targets, value)
			}
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SAssign{Targets: targets, Value: value}}

	case py_lexer.TColon:
		p.lexer.Next()
		annotation := p.parseExpr()
		stmt := &py_ast.SAnnAssign{Target: first, Annotation: annotation}
		if p.eat(py_lexer.TEquals) {
			value := p.parseExprList(nil)
			stmt.Value = &value
		}
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
	}

	if op, isAug := augAssignOps[p.lexer.Token]; isAug {
		p.lexer.Next()
		value := p.parseExprList(nil)
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SAugAssign{Target: first, Op: op, Value: value}}
	}

	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: &py_ast.SExpr{Value: first}}
}

var augAssignOps = map[py_lexer.T]py_ast.OpCode{
	py_lexer.TPlusEquals:                  py_ast.OpAdd,
	py_lexer.TMinusEquals:                 py_ast.OpSub,
	py_lexer.TAsteriskEquals:              py_ast.OpMult,
	py_lexer.TAsteriskAsteriskEquals:      py_ast.OpPow,
	py_lexer.TSlashEquals:                 py_ast.OpDiv,
	py_lexer.TSlashSlashEquals:            py_ast.OpFloorDiv,
	py_lexer.TPercentEquals:               py_ast.OpMod,
	py_lexer.TAtEquals:                    py_ast.OpMatMult,
	py_lexer.TAmpersandEquals:             py_ast.OpBitAnd,
	py_lexer.TBarEquals:                   py_ast.OpBitOr,
	py_lexer.TCaretEquals:                 py_ast.OpBitXor,
	py_lexer.TLessThanLessThanEquals:      py_ast.OpLShift,
	py_lexer.TGreaterThanGreaterThanEquals: py_ast.OpRShift,
}

func (p *parser) parseDottedName() string {
	name := p.expectIdentifier("a module name")
	for p.lexer.Token == py_lexer.TDot {
		p.lexer.Next()
		name += "." + p.expectIdentifier("a module name")
	}
	return name
}

func (p *parser) parseImport(loc logger.Loc) py_ast.Stmt {
	p.expect(py_lexer.TImport, "\"import\"")
	stmt := &py_ast.SImport{}
	for {
		nameLoc := p.loc()
		alias := py_ast.ImportAlias{Name: p.parseDottedName(), NameLoc: nameLoc}
		if p.eat(py_lexer.TAs) {
			alias.Asname = p.expectIdentifier("an import alias")
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseImportFrom(loc logger.Loc) py_ast.Stmt {
	p.expect(py_lexer.TFrom, "\"from\"")
	stmt := &py_ast.SImportFrom{}

	for p.lexer.Token == py_lexer.TDot || p.lexer.Token == py_lexer.TEllipsisLit {
		if p.lexer.Token == py_lexer.TEllipsisLit {
			stmt.Level += 3
		} else {
			stmt.Level++
		}
		p.lexer.Next()
	}
	if p.lexer.Token == py_lexer.TIdentifier {
		stmt.Module = p.parseDottedName()
	} else if stmt.Level == 0 {
		p.syntaxError("Expected a module name")
	}

	p.expect(py_lexer.TImport, "\"import\"")

	if p.eat(py_lexer.TAsterisk) {
		stmt.IsWildcard = true
		return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
	}

	parenthesized := p.eat(py_lexer.TOpenParen)
	for {
		nameLoc := p.loc()
		alias := py_ast.ImportAlias{Name: p.expectIdentifier("an imported name"), NameLoc: nameLoc}
		if p.eat(py_lexer.TAs) {
			alias.Asname = p.expectIdentifier("an import alias")
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.eat(py_lexer.TComma) {
			break
		}
		if parenthesized && p.lexer.Token == py_lexer.TCloseParen {
			break
		}
	}
	if parenthesized {
		p.expect(py_lexer.TCloseParen, "\")\"")
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

// parseBlock parses the suite after a ":", either inline simple statements
// or an indented block.
func (p *parser) parseBlock() []py_ast.Stmt {
	p.expect(py_lexer.TColon, "\":\"")

	if p.lexer.Token != py_lexer.TNewline {
		// Inline suite: "if x: a = 1; b = 2"
		return p.parseSimpleStmtLine()
	}
	p.lexer.Next()
	p.expect(py_lexer.TIndent, "an indented block")

	var body []py_ast.Stmt
	for p.lexer.Token != py_lexer.TDedent && p.lexer.Token != py_lexer.TEndOfFile {
		if p.lexer.Token == py_lexer.TNewline {
			p.lexer.Next()
			continue
		}
		body = append(body, p.parseStmt()...)
	}
	p.eat(py_lexer.TDedent)
	return body
}

func (p *parser) parseIf() py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TIf, "\"if\"")
	stmt := &py_ast.SIf{Test: p.parseNamedExpr()}
	stmt.Body = p.parseBlock()

	if p.lexer.Token == py_lexer.TElif {
		// "elif" is a nested "if" in the else branch. Rewriting the token
		// in place lets the "if" parser handle the rest of the chain.
		p.lexer.Token = py_lexer.TIf
		stmt.Orelse = []py_ast.Stmt{p.parseIf()}
	} else if p.eat(py_lexer.TElse) {
		stmt.Orelse = p.parseBlock()
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseWhile() py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TWhile, "\"while\"")
	stmt := &py_ast.SWhile{Test: p.parseNamedExpr()}
	stmt.Body = p.parseBlock()
	if p.eat(py_lexer.TElse) {
		stmt.Orelse = p.parseBlock()
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseFor(isAsync bool) py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TFor, "\"for\"")
	target := p.parseTargetList(py_lexer.TIn)
	p.expect(py_lexer.TIn, "\"in\"")
	iter := p.parseExprList(nil)
	stmt := &py_ast.SFor{Target: target, Iter: iter, IsAsync: isAsync}
	stmt.Body = p.parseBlock()
	if p.eat(py_lexer.TElse) {
		stmt.Orelse = p.parseBlock()
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseTry() py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TTry, "\"try\"")
	stmt := &py_ast.STry{Body: p.parseBlock()}

	for p.lexer.Token == py_lexer.TExcept {
		handlerLoc := p.loc()
		p.lexer.Next()
		handler := py_ast.ExceptHandler{Loc: handlerLoc}
		if p.lexer.Token != py_lexer.TColon {
			condition := p.parseExpr()
			handler.Type = &condition
			if p.eat(py_lexer.TAs) {
				handler.Name = p.expectIdentifier("an exception alias")
			}
		}
		handler.Body = p.parseBlock()
		stmt.Handlers = append(stmt.Handlers, handler)
	}

	if p.eat(py_lexer.TElse) {
		stmt.Orelse = p.parseBlock()
	}
	if p.eat(py_lexer.TFinally) {
		stmt.Finally = p.parseBlock()
	}

	if len(stmt.Handlers) == 0 && stmt.Finally == nil {
		p.syntaxError("Expected \"except\" or \"finally\"")
	}
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseWith(isAsync bool) py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TWith, "\"with\"")
	stmt := &py_ast.SWith{IsAsync: isAsync}
	for {
		item := py_ast.WithItem{Context: p.parseExpr()}
		if p.eat(py_lexer.TAs) {
			target := p.parseTarget()
			item.Vars = &target
		}
		stmt.Items = append(stmt.Items, item)
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
	stmt.Body = p.parseBlock()
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseDecorated() py_ast.Stmt {
	var decorators []py_ast.Expr
	for p.lexer.Token == py_lexer.TAt {
		p.lexer.Next()
		decorators = append(decorators, p.parseNamedExpr())
		p.expect(py_lexer.TNewline, "a newline after the decorator")
	}

	switch p.lexer.Token {
	case py_lexer.TDef:
		return p.parseFunctionDef(decorators, false)
	case py_lexer.TClass:
		return p.parseClassDef(decorators)
	case py_lexer.TAsync:
		p.lexer.Next()
		return p.parseFunctionDef(decorators, true)
	}
	p.syntaxError("Expected \"def\" or \"class\" after decorators")
	return py_ast.Stmt{}
}

func (p *parser) parseAsync() py_ast.Stmt {
	p.expect(py_lexer.TAsync, "\"async\"")
	switch p.lexer.Token {
	case py_lexer.TDef:
		return p.parseFunctionDef(nil, true)
	case py_lexer.TFor:
		return p.parseFor(true)
	case py_lexer.TWith:
		return p.parseWith(true)
	}
	p.syntaxError("Expected \"def\", \"for\" or \"with\" after \"async\"")
	return py_ast.Stmt{}
}

func (p *parser) parseFunctionDef(decorators []py_ast.Expr, isAsync bool) py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TDef, "\"def\"")
	nameLoc := p.loc()
	name := p.expectIdentifier("a function name")
	p.expect(py_lexer.TOpenParen, "\"(\"")
	params := p.parseParams(py_lexer.TCloseParen, true)
	p.expect(py_lexer.TCloseParen, "\")\"")

	stmt := &py_ast.SFunctionDef{
		Name:       name,
		NameLoc:    nameLoc,
		Decorators: decorators,
		Params:     params,
		IsAsync:    isAsync,
	}
	if p.eat(py_lexer.TArrow) {
		returns := p.parseExpr()
		stmt.Returns = &returns
	}
	stmt.Body = p.parseBlock()
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

func (p *parser) parseClassDef(decorators []py_ast.Expr) py_ast.Stmt {
	loc := p.loc()
	p.expect(py_lexer.TClass, "\"class\"")
	nameLoc := p.loc()
	name := p.expectIdentifier("a class name")

	stmt := &py_ast.SClassDef{Name: name, NameLoc: nameLoc, Decorators: decorators}
	if p.eat(py_lexer.TOpenParen) {
		for p.lexer.Token != py_lexer.TCloseParen {
			if p.lexer.Token == py_lexer.TIdentifier && p.lexerPeekIsEquals() {
				kwName := p.expectIdentifier("a keyword")
				p.expect(py_lexer.TEquals, "\"=\"")
				stmt.Keywords = append(stmt.Keywords, py_ast.Keyword{Name: kwName, Value: p.parseExpr()})
			} else if p.lexer.Token == py_lexer.TAsteriskAsterisk {
				p.lexer.Next()
				stmt.Keywords = append(stmt.Keywords, py_ast.Keyword{Value: p.parseExpr()})
			} else {
				stmt.Bases = append(stmt.Bases, p.parseExpr())
			}
			if !p.eat(py_lexer.TComma) {
				break
			}
		}
		p.expect(py_lexer.TCloseParen, "\")\"")
	}
	stmt.Body = p.parseBlock()
	return py_ast.Stmt{Loc: loc, Idx: p.idx(), Data: stmt}
}

// lexerPeekIsEquals reports whether the token after the current identifier is
// "=". The lexer has no lookahead buffer, so clone it and advance the copy.
func (p *parser) lexerPeekIsEquals() bool {
	lexer := p.lexer // value copy; the log is shared but nothing is emitted
	lexer.Next()
	return lexer.Token == py_lexer.TEquals
}

func (p *parser) parseParams(end py_lexer.T, allowAnnotations bool) []py_ast.Param {
	var params []py_ast.Param
	sawStar := false

	for p.lexer.Token != end {
		param := py_ast.Param{Kind: py_ast.ParamPositional}
		if sawStar {
			param.Kind = py_ast.ParamKeywordOnly
		}

		switch p.lexer.Token {
		case py_lexer.TSlash:
			p.lexer.Next()
			params = append(params, py_ast.Param{Kind: py_ast.ParamPositionalOnlyMarker})
			if !p.eat(py_lexer.TComma) {
				return params
			}
			continue

		case py_lexer.TAsterisk:
			p.lexer.Next()
			sawStar = true
			param.Kind = py_ast.ParamStar
			if p.lexer.Token == py_lexer.TIdentifier {
				param.NameLoc = p.loc()
				param.Name = p.expectIdentifier("a parameter name")
				if allowAnnotations && p.eat(py_lexer.TColon) {
					annotation := p.parseExpr()
					param.Annotation = &annotation
				}
			}
			params = append(params, param)
			if !p.eat(py_lexer.TComma) {
				return params
			}
			continue

		case py_lexer.TAsteriskAsterisk:
			p.lexer.Next()
			param.Kind = py_ast.ParamDoubleStar
			param.NameLoc = p.loc()
			param.Name = p.expectIdentifier("a parameter name")
			if allowAnnotations && p.eat(py_lexer.TColon) {
				annotation := p.parseExpr()
				param.Annotation = &annotation
			}
			params = append(params, param)
			p.eat(py_lexer.TComma)
			return params
		}

		param.NameLoc = p.loc()
		param.Name = p.expectIdentifier("a parameter name")
		if allowAnnotations && p.eat(py_lexer.TColon) {
			annotation := p.parseExpr()
			param.Annotation = &annotation
		}
		if p.eat(py_lexer.TEquals) {
			def := p.parseExpr()
			param.Default = &def
		}
		params = append(params, param)
		if !p.eat(py_lexer.TComma) {
			break
		}
	}
	return params
}

// parseTarget parses a single assignment target (used by "with ... as" and
// "for" loops).
func (p *parser) parseTarget() py_ast.Expr {
	return p.parsePostfix()
}

// parseTargetList parses "a, b" or "(a, b)" targets up to the given token.
func (p *parser) parseTargetList(end py_lexer.T) py_ast.Expr {
	loc := p.loc()
	var items []py_ast.Expr
	for {
		if p.lexer.Token == py_lexer.TAsterisk {
			starLoc := p.loc()
			p.lexer.Next()
			items = append(items, py_ast.Expr{Loc: starLoc, Idx: p.idx(), Data: &py_ast.EStarred{Value: p.parseTarget()}})
		} else {
			items = append(items, p.parseTarget())
		}
		if p.lexer.Token != py_lexer.TComma {
			break
		}
		p.lexer.Next()
		if p.lexer.Token == end {
			break
		}
	}
	if len(items) == 1 {
		return items[0]
	}
	return py_ast.Expr{Loc: loc, Idx: p.idx(), Data: &py_ast.ETuple{Items: items}}
}
