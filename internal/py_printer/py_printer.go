package py_printer

// The printer converts a Python AST back into source text. Output is
// normalized: four-space indentation, one statement per line, single-quoted
// synthetic strings. Parsed string and number literals keep their original
// raw text so values never change shape.

import (
	"strings"

	"github.com/cribo/cribo/internal/py_ast"
)

type printer struct {
	sb     strings.Builder
	indent int
}

// Print renders a list of top-level statements as a complete file.
func Print(body []py_ast.Stmt) string {
	p := &printer{}
	p.printBody(body)
	return p.sb.String()
}

// PrintExpr renders a single expression (used by tests and diagnostics).
func PrintExpr(expr py_ast.Expr) string {
	p := &printer{}
	p.printExpr(expr, py_ast.LLowest)
	return p.sb.String()
}

func (p *printer) print(text string) {
	p.sb.WriteString(text)
}

func (p *printer) printNewline() {
	p.sb.WriteByte('\n')
}

func (p *printer) printIndent() {
	for i := 0; i < p.indent; i++ {
		p.print("    ")
	}
}

func (p *printer) printBody(body []py_ast.Stmt) {
	for _, stmt := range body {
		p.printStmt(stmt)
	}
}

func (p *printer) printBlock(body []py_ast.Stmt) {
	p.print(":")
	p.printNewline()
	p.indent++
	if len(body) == 0 {
		p.printIndent()
		p.print("pass")
		p.printNewline()
	} else {
		p.printBody(body)
	}
	p.indent--
}

func (p *printer) printStmt(stmt py_ast.Stmt) {
	p.printIndent()

	switch s := stmt.Data.(type) {
	case *py_ast.SExpr:
		p.printExpr(s.Value, py_ast.LLowest)

	case *py_ast.SAssign:
		for _, target := range s.Targets {
			p.printExpr(target, py_ast.LLowest)
			p.print(" = ")
		}
		p.printExpr(s.Value, py_ast.LLowest)

	case *py_ast.SAugAssign:
		p.printExpr(s.Target, py_ast.LLowest)
		p.print(" ")
		p.print(s.Op.Text())
		p.print("= ")
		p.printExpr(s.Value, py_ast.LLowest)

	case *py_ast.SAnnAssign:
		p.printExpr(s.Target, py_ast.LLowest)
		p.print(": ")
		p.printExpr(s.Annotation, py_ast.LLowest)
		if s.Value != nil {
			p.print(" = ")
			p.printExpr(*s.Value, py_ast.LLowest)
		}

	case *py_ast.SImport:
		p.print("import ")
		for i, alias := range s.Names {
			if i > 0 {
				p.print(", ")
			}
			p.print(alias.Name)
			if alias.Asname != "" {
				p.print(" as ")
				p.print(alias.Asname)
			}
		}

	case *py_ast.SImportFrom:
		p.print("from ")
		p.print(strings.Repeat(".", s.Level))
		p.print(s.Module)
		p.print(" import ")
		if s.IsWildcard {
			p.print("*")
		} else {
			for i, alias := range s.Names {
				if i > 0 {
					p.print(", ")
				}
				p.print(alias.Name)
				if alias.Asname != "" {
					p.print(" as ")
					p.print(alias.Asname)
				}
			}
		}

	case *py_ast.SFunctionDef:
		p.printDecorators(s.Decorators)
		if s.IsAsync {
			p.print("async ")
		}
		p.print("def ")
		p.print(s.Name)
		p.print("(")
		p.printParams(s.Params, true)
		p.print(")")
		if s.Returns != nil {
			p.print(" -> ")
			p.printExpr(*s.Returns, py_ast.LLowest)
		}
		p.printBlock(s.Body)
		return

	case *py_ast.SClassDef:
		p.printDecorators(s.Decorators)
		p.print("class ")
		p.print(s.Name)
		if len(s.Bases) > 0 || len(s.Keywords) > 0 {
			p.print("(")
			for i, base := range s.Bases {
				if i > 0 {
					p.print(", ")
				}
				p.printExpr(base, py_ast.LLowest)
			}
			for i, kw := range s.Keywords {
				if i > 0 || len(s.Bases) > 0 {
					p.print(", ")
				}
				if kw.Name != "" {
					p.print(kw.Name)
					p.print("=")
				} else {
					p.print("**")
				}
				p.printExpr(kw.Value, py_ast.LLowest)
			}
			p.print(")")
		}
		p.printBlock(s.Body)
		return

	case *py_ast.SReturn:
		p.print("return")
		if s.Value != nil {
			p.print(" ")
			p.printExpr(*s.Value, py_ast.LLowest)
		}

	case *py_ast.SDelete:
		p.print("del ")
		for i, target := range s.Targets {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(target, py_ast.LLowest)
		}

	case *py_ast.SIf:
		p.printIf(s)
		return

	case *py_ast.SFor:
		if s.IsAsync {
			p.print("async ")
		}
		p.print("for ")
		p.printExpr(s.Target, py_ast.LLowest)
		p.print(" in ")
		p.printExpr(s.Iter, py_ast.LLowest)
		p.printBlock(s.Body)
		if len(s.Orelse) > 0 {
			p.printIndent()
			p.print("else")
			p.printBlock(s.Orelse)
		}
		return

	case *py_ast.SWhile:
		p.print("while ")
		p.printExpr(s.Test, py_ast.LLowest)
		p.printBlock(s.Body)
		if len(s.Orelse) > 0 {
			p.printIndent()
			p.print("else")
			p.printBlock(s.Orelse)
		}
		return

	case *py_ast.SWith:
		if s.IsAsync {
			p.print("async ")
		}
		p.print("with ")
		for i, item := range s.Items {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(item.Context, py_ast.LLowest)
			if item.Vars != nil {
				p.print(" as ")
				p.printExpr(*item.Vars, py_ast.LLowest)
			}
		}
		p.printBlock(s.Body)
		return

	case *py_ast.STry:
		p.print("try")
		p.printBlock(s.Body)
		for _, handler := range s.Handlers {
			p.printIndent()
			p.print("except")
			if handler.Type != nil {
				p.print(" ")
				p.printExpr(*handler.Type, py_ast.LLowest)
				if handler.Name != "" {
					p.print(" as ")
					p.print(handler.Name)
				}
			}
			p.printBlock(handler.Body)
		}
		if len(s.Orelse) > 0 {
			p.printIndent()
			p.print("else")
			p.printBlock(s.Orelse)
		}
		if len(s.Finally) > 0 {
			p.printIndent()
			p.print("finally")
			p.printBlock(s.Finally)
		}
		return

	case *py_ast.SRaise:
		p.print("raise")
		if s.Exc != nil {
			p.print(" ")
			p.printExpr(*s.Exc, py_ast.LLowest)
			if s.Cause != nil {
				p.print(" from ")
				p.printExpr(*s.Cause, py_ast.LLowest)
			}
		}

	case *py_ast.SAssert:
		p.print("assert ")
		p.printExpr(s.Test, py_ast.LLowest)
		if s.Msg != nil {
			p.print(", ")
			p.printExpr(*s.Msg, py_ast.LLowest)
		}

	case *py_ast.SGlobal:
		p.print("global ")
		p.print(strings.Join(s.Names, ", "))

	case *py_ast.SNonlocal:
		p.print("nonlocal ")
		p.print(strings.Join(s.Names, ", "))

	case *py_ast.SPass:
		p.print("pass")
	case *py_ast.SBreak:
		p.print("break")
	case *py_ast.SContinue:
		p.print("continue")

	default:
		panic("Internal error")
	}

	p.printNewline()
}

func (p *printer) printIf(s *py_ast.SIf) {
	p.print("if ")
	p.printExpr(s.Test, py_ast.LLowest)
	p.printBlock(s.Body)

	orelse := s.Orelse
	for len(orelse) == 1 {
		nested, isIf := orelse[0].Data.(*py_ast.SIf)
		if !isIf {
			break
		}
		p.printIndent()
		p.print("elif ")
		p.printExpr(nested.Test, py_ast.LLowest)
		p.printBlock(nested.Body)
		orelse = nested.Orelse
	}
	if len(orelse) > 0 {
		p.printIndent()
		p.print("else")
		p.printBlock(orelse)
	}
}

func (p *printer) printDecorators(decorators []py_ast.Expr) {
	for i, dec := range decorators {
		if i > 0 {
			p.printIndent()
		}
		p.print("@")
		p.printExpr(dec, py_ast.LLowest)
		p.printNewline()
		if i+1 == len(decorators) {
			p.printIndent()
		}
	}
}

func (p *printer) printParams(params []py_ast.Param, allowAnnotations bool) {
	for i, param := range params {
		if i > 0 {
			p.print(", ")
		}
		switch param.Kind {
		case py_ast.ParamPositionalOnlyMarker:
			p.print("/")
			continue
		case py_ast.ParamStar:
			p.print("*")
		case py_ast.ParamDoubleStar:
			p.print("**")
		}
		p.print(param.Name)
		if allowAnnotations && param.Annotation != nil {
			p.print(": ")
			p.printExpr(*param.Annotation, py_ast.LLowest)
		}
		if param.Default != nil {
			if param.Annotation != nil {
				p.print(" = ")
			} else {
				p.print("=")
			}
			p.printExpr(*param.Default, py_ast.LLowest)
		}
	}
}

func (p *printer) printExpr(expr py_ast.Expr, level py_ast.L) {
	switch e := expr.Data.(type) {
	case *py_ast.EName:
		p.print(e.Name)

	case *py_ast.ENumber:
		p.print(e.Literal)

	case *py_ast.EString:
		if e.Raw != "" {
			p.print(e.Raw)
		} else {
			p.printQuoted(e.Value)
		}

	case *py_ast.EFString:
		p.print(e.Raw)

	case *py_ast.EBool:
		if e.Value {
			p.print("True")
		} else {
			p.print("False")
		}

	case *py_ast.ENone:
		p.print("None")

	case *py_ast.EEllipsis:
		p.print("...")

	case *py_ast.EAttribute:
		p.printExpr(e.Value, py_ast.Lpostfix)
		p.print(".")
		p.print(e.Attr)

	case *py_ast.ESubscript:
		p.printExpr(e.Value, py_ast.Lpostfix)
		p.print("[")
		// A tuple index prints without parentheses so slices stay legal:
		// "x[1:2, 3]"
		if tuple, isTuple := e.Index.Data.(*py_ast.ETuple); isTuple && len(tuple.Items) > 0 {
			for i, item := range tuple.Items {
				if i > 0 {
					p.print(", ")
				}
				p.printExpr(item, py_ast.LLowest)
			}
		} else {
			p.printExpr(e.Index, py_ast.LLowest)
		}
		p.print("]")

	case *py_ast.ESlice:
		if e.Lower != nil {
			p.printExpr(*e.Lower, py_ast.LLowest)
		}
		p.print(":")
		if e.Upper != nil {
			p.printExpr(*e.Upper, py_ast.LLowest)
		}
		if e.Step != nil {
			p.print(":")
			p.printExpr(*e.Step, py_ast.LLowest)
		}

	case *py_ast.ECall:
		p.printExpr(e.Target, py_ast.Lpostfix)
		p.print("(")
		for i, arg := range e.Args {
			if i > 0 {
				p.print(", ")
			}
			p.printExpr(arg, py_ast.LLowest)
		}
		for i, kw := range e.Keywords {
			if i > 0 || len(e.Args) > 0 {
				p.print(", ")
			}
			if kw.Name != "" {
				p.print(kw.Name)
				p.print("=")
			} else {
				p.print("**")
			}
			p.printExpr(kw.Value, py_ast.LLowest)
		}
		p.print(")")

	case *py_ast.EList:
		p.print("[")
		p.printExprList(e.Items)
		p.print("]")

	case *py_ast.ETuple:
		if len(e.Items) == 0 {
			p.print("()")
			return
		}
		p.print("(")
		p.printExprList(e.Items)
		if len(e.Items) == 1 {
			p.print(",")
		}
		p.print(")")

	case *py_ast.ESet:
		p.print("{")
		p.printExprList(e.Items)
		p.print("}")

	case *py_ast.EDict:
		p.print("{")
		for i := range e.Keys {
			if i > 0 {
				p.print(", ")
			}
			if e.Keys[i] == nil {
				p.print("**")
				p.printExpr(e.Values[i], py_ast.LLowest)
			} else {
				p.printExpr(*e.Keys[i], py_ast.LLowest)
				p.print(": ")
				p.printExpr(e.Values[i], py_ast.LLowest)
			}
		}
		p.print("}")

	case *py_ast.EUnary:
		opLevel := e.Op.Level()
		if level > opLevel {
			p.print("(")
		}
		p.print(e.Op.Text())
		if e.Op == py_ast.OpNot {
			p.print(" ")
		}
		p.printExpr(e.Value, opLevel)
		if level > opLevel {
			p.print(")")
		}

	case *py_ast.EBinary:
		opLevel := e.Op.Level()
		if level > opLevel {
			p.print("(")
		}
		if e.Op == py_ast.OpPow {
			// Right-associative
			p.printExpr(e.Left, opLevel+1)
			p.print(" ** ")
			p.printExpr(e.Right, opLevel)
		} else {
			p.printExpr(e.Left, opLevel)
			p.print(" ")
			p.print(e.Op.Text())
			p.print(" ")
			p.printExpr(e.Right, opLevel+1)
		}
		if level > opLevel {
			p.print(")")
		}

	case *py_ast.ECompare:
		if level > py_ast.LCompare {
			p.print("(")
		}
		p.printExpr(e.Left, py_ast.LCompare+1)
		for i, op := range e.Ops {
			p.print(" ")
			p.print(op.Text())
			p.print(" ")
			p.printExpr(e.Comparators[i], py_ast.LCompare+1)
		}
		if level > py_ast.LCompare {
			p.print(")")
		}

	case *py_ast.EBoolOp:
		opLevel := e.Op.Level()
		if level > opLevel {
			p.print("(")
		}
		for i, value := range e.Values {
			if i > 0 {
				p.print(" ")
				p.print(e.Op.Text())
				p.print(" ")
			}
			p.printExpr(value, opLevel+1)
		}
		if level > opLevel {
			p.print(")")
		}

	case *py_ast.ELambda:
		if level > py_ast.LLambda {
			p.print("(")
		}
		p.print("lambda")
		if len(e.Params) > 0 {
			p.print(" ")
			p.printParams(e.Params, false)
		}
		p.print(": ")
		p.printExpr(e.Body, py_ast.LLambda)
		if level > py_ast.LLambda {
			p.print(")")
		}

	case *py_ast.EIfExp:
		if level > py_ast.LTernary {
			p.print("(")
		}
		p.printExpr(e.Body, py_ast.LTernary+1)
		p.print(" if ")
		p.printExpr(e.Test, py_ast.LTernary+1)
		p.print(" else ")
		p.printExpr(e.Orelse, py_ast.LTernary)
		if level > py_ast.LTernary {
			p.print(")")
		}

	case *py_ast.EStarred:
		p.print("*")
		p.printExpr(e.Value, py_ast.LUnary)

	case *py_ast.ENamedExpr:
		// Walrus expressions are always parenthesized; bare ones are only
		// legal in a few positions and the parentheses are always legal.
		p.print("(")
		p.printExpr(e.Target, py_ast.LNamedExpr+1)
		p.print(" := ")
		p.printExpr(e.Value, py_ast.LNamedExpr+1)
		p.print(")")

	case *py_ast.EYield:
		needsParens := level > py_ast.LLowest
		if needsParens {
			p.print("(")
		}
		p.print("yield")
		if e.IsFrom {
			p.print(" from")
		}
		if e.Value != nil {
			p.print(" ")
			p.printExpr(*e.Value, py_ast.LLowest+1)
		}
		if needsParens {
			p.print(")")
		}

	case *py_ast.EAwait:
		if level > py_ast.LAwait {
			p.print("(")
		}
		p.print("await ")
		p.printExpr(e.Value, py_ast.LAwait)
		if level > py_ast.LAwait {
			p.print(")")
		}

	case *py_ast.EComp:
		switch e.Kind {
		case py_ast.CompList:
			p.print("[")
		case py_ast.CompSet:
			p.print("{")
		case py_ast.CompDict:
			p.print("{")
		case py_ast.CompGenerator:
			p.print("(")
		}
		p.printExpr(e.Elt, py_ast.LTernary)
		if e.Value != nil {
			p.print(": ")
			p.printExpr(*e.Value, py_ast.LTernary)
		}
		for _, gen := range e.Generators {
			if gen.IsAsync {
				p.print(" async for ")
			} else {
				p.print(" for ")
			}
			p.printExpr(gen.Target, py_ast.LLowest+1)
			p.print(" in ")
			p.printExpr(gen.Iter, py_ast.LOr)
			for _, cond := range gen.Ifs {
				p.print(" if ")
				p.printExpr(cond, py_ast.LOr)
			}
		}
		switch e.Kind {
		case py_ast.CompList:
			p.print("]")
		case py_ast.CompSet, py_ast.CompDict:
			p.print("}")
		case py_ast.CompGenerator:
			p.print(")")
		}

	default:
		panic("Internal error")
	}
}

func (p *printer) printExprList(items []py_ast.Expr) {
	for i, item := range items {
		if i > 0 {
			p.print(", ")
		}
		p.printExpr(item, py_ast.LLowest)
	}
}

func (p *printer) printQuoted(value string) {
	p.print("'")
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch c {
		case '\'':
			p.print("\\'")
		case '\\':
			p.print("\\\\")
		case '\n':
			p.print("\\n")
		case '\t':
			p.print("\\t")
		case '\r':
			p.print("\\r")
		default:
			p.sb.WriteByte(c)
		}
	}
	p.print("'")
}
