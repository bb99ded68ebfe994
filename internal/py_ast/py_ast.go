package py_ast

import (
	"strings"

	"github.com/cribo/cribo/internal/logger"
)

// Every module (i.e. file) is parsed into a separate AST data structure. The
// parser assigns each statement and expression node a dense NodeIndex that is
// stable for the lifetime of a bundling run. Synthetic nodes created during
// code generation draw fresh indices from the transformation context, so a
// node's identity survives cloning and rewriting. That identity is what the
// provenance log (and any future source map) is keyed on.
//
// Parse trees are intended to be immutable. Passes that operate on an AST
// after parsing clone the statements they change instead of mutating the
// original tree.

type NodeIndex = uint32

type Stmt struct {
	Loc  logger.Loc
	Idx  NodeIndex
	Data S
}

type Expr struct {
	Loc  logger.Loc
	Idx  NodeIndex
	Data E
}

type S interface{ isStmt() }
type E interface{ isExpr() }

type Module struct {
	Body []Stmt

	// One past the largest node index the parser assigned in this module
	NextNodeIndex NodeIndex
}

////////////////////////////////////////////////////////////////////////////////
// Statements

type ImportAlias struct {
	// The dotted module path for "import", the bare symbol name for "from"
	Name    string
	Asname  string // empty if no "as" clause
	NameLoc logger.Loc
}

// BoundName is the name the import binds in the importing scope. A dotted
// "import a.b" without an alias binds only the top-level package "a".
func (a ImportAlias) BoundName() string {
	if a.Asname != "" {
		return a.Asname
	}
	if dot := strings.IndexByte(a.Name, '.'); dot != -1 {
		return a.Name[:dot]
	}
	return a.Name
}

// SImport is "import a.b, c as d".
type SImport struct {
	Names []ImportAlias
}

// SImportFrom is "from .mod import x as y, z" or "from mod import *".
type SImportFrom struct {
	Module     string // empty for "from . import x"
	Level      int    // number of leading dots
	Names      []ImportAlias
	IsWildcard bool
}

type Param struct {
	Name       string
	NameLoc    logger.Loc
	Annotation *Expr
	Default    *Expr
	Kind       ParamKind
}

type ParamKind uint8

const (
	ParamPositional ParamKind = iota
	ParamPositionalOnlyMarker           // the bare "/"
	ParamStar                           // *args, or the bare "*" separator when Name == ""
	ParamKeywordOnly
	ParamDoubleStar // **kwargs
)

type SFunctionDef struct {
	Name       string
	NameLoc    logger.Loc
	Decorators []Expr
	Params     []Param
	Returns    *Expr
	Body       []Stmt
	IsAsync    bool
}

type Keyword struct {
	Name  string // empty means "**value"
	Value Expr
}

type SClassDef struct {
	Name       string
	NameLoc    logger.Loc
	Decorators []Expr
	Bases      []Expr
	Keywords   []Keyword
	Body       []Stmt
}

type SExpr struct {
	Value Expr
}

type SAssign struct {
	Targets []Expr // chained targets: "a = b = value"
	Value   Expr
}

type SAugAssign struct {
	Target Expr
	Op     OpCode
	Value  Expr
}

type SAnnAssign struct {
	Target     Expr
	Annotation Expr
	Value      *Expr // nil for a bare annotation
}

type SReturn struct {
	Value *Expr
}

type SDelete struct {
	Targets []Expr
}

type SIf struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt // a single SIf for "elif"
}

type SFor struct {
	Target  Expr
	Iter    Expr
	Body    []Stmt
	Orelse  []Stmt
	IsAsync bool
}

type SWhile struct {
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

type WithItem struct {
	Context Expr
	Vars    *Expr // the "as" target
}

type SWith struct {
	Items   []WithItem
	Body    []Stmt
	IsAsync bool
}

type ExceptHandler struct {
	Loc  logger.Loc
	Type *Expr  // nil for a bare "except:"
	Name string // the "as" name, empty if absent
	Body []Stmt
}

type STry struct {
	Body     []Stmt
	Handlers []ExceptHandler
	Orelse   []Stmt
	Finally  []Stmt
}

type SRaise struct {
	Exc   *Expr
	Cause *Expr // "raise X from Y"
}

type SAssert struct {
	Test Expr
	Msg  *Expr
}

type SGlobal struct {
	Names []string
}

type SNonlocal struct {
	Names []string
}

type SPass struct{}
type SBreak struct{}
type SContinue struct{}

func (*SImport) isStmt()      {}
func (*SImportFrom) isStmt()  {}
func (*SFunctionDef) isStmt() {}
func (*SClassDef) isStmt()    {}
func (*SExpr) isStmt()        {}
func (*SAssign) isStmt()      {}
func (*SAugAssign) isStmt()   {}
func (*SAnnAssign) isStmt()   {}
func (*SReturn) isStmt()      {}
func (*SDelete) isStmt()      {}
func (*SIf) isStmt()          {}
func (*SFor) isStmt()         {}
func (*SWhile) isStmt()       {}
func (*SWith) isStmt()        {}
func (*STry) isStmt()         {}
func (*SRaise) isStmt()       {}
func (*SAssert) isStmt()      {}
func (*SGlobal) isStmt()      {}
func (*SNonlocal) isStmt()    {}
func (*SPass) isStmt()        {}
func (*SBreak) isStmt()       {}
func (*SContinue) isStmt()    {}

////////////////////////////////////////////////////////////////////////////////
// Expressions

type EName struct {
	Name string
}

type EAttribute struct {
	Value   Expr
	Attr    string
	AttrLoc logger.Loc
}

type ESubscript struct {
	Value Expr
	Index Expr
}

type ESlice struct {
	Lower *Expr
	Upper *Expr
	Step  *Expr
}

type ECall struct {
	Target   Expr
	Args     []Expr
	Keywords []Keyword
}

// ENumber keeps the literal text so printing is an exact round trip.
type ENumber struct {
	Literal string
}

// EString keeps the raw source text (including quotes and prefix) for parsed
// strings. Synthetic strings have only Value set and are printed with single
// quotes.
type EString struct {
	Value string
	Raw   string
}

// EFString is an f-string literal. The raw text is preserved verbatim; the
// identifiers read inside replacement fields are extracted by the lexer so
// dependency analysis sees them.
type EFString struct {
	Raw       string
	FreeNames []string
}

type EBool struct {
	Value bool
}

type ENone struct{}
type EEllipsis struct{}

type EList struct {
	Items []Expr
}

type ETuple struct {
	Items         []Expr
	Parenthesized bool
}

type ESet struct {
	Items []Expr
}

type EDict struct {
	// A nil key is a "**mapping" expansion
	Keys   []*Expr
	Values []Expr
}

type EUnary struct {
	Op    OpCode
	Value Expr
}

type EBinary struct {
	Op    OpCode
	Left  Expr
	Right Expr
}

// ECompare is a chained comparison: "a < b <= c".
type ECompare struct {
	Left        Expr
	Ops         []OpCode
	Comparators []Expr
}

// EBoolOp is "a and b and c" / "a or b".
type EBoolOp struct {
	Op     OpCode // OpAnd or OpOr
	Values []Expr
}

type ELambda struct {
	Params []Param
	Body   Expr
}

// EIfExp is the ternary "body if test else orelse".
type EIfExp struct {
	Test   Expr
	Body   Expr
	Orelse Expr
}

type EStarred struct {
	Value Expr
}

type ENamedExpr struct {
	Target Expr
	Value  Expr
}

type EYield struct {
	Value  *Expr
	IsFrom bool
}

type EAwait struct {
	Value Expr
}

type CompKind uint8

const (
	CompList CompKind = iota
	CompSet
	CompDict
	CompGenerator
)

type Comprehension struct {
	Target  Expr
	Iter    Expr
	Ifs     []Expr
	IsAsync bool
}

type EComp struct {
	Kind       CompKind
	Elt        Expr
	Value      *Expr // dict comprehensions only
	Generators []Comprehension
}

func (*EName) isExpr()      {}
func (*EAttribute) isExpr() {}
func (*ESubscript) isExpr() {}
func (*ESlice) isExpr()     {}
func (*ECall) isExpr()      {}
func (*ENumber) isExpr()    {}
func (*EString) isExpr()    {}
func (*EFString) isExpr()   {}
func (*EBool) isExpr()      {}
func (*ENone) isExpr()      {}
func (*EEllipsis) isExpr()  {}
func (*EList) isExpr()      {}
func (*ETuple) isExpr()     {}
func (*ESet) isExpr()       {}
func (*EDict) isExpr()      {}
func (*EUnary) isExpr()     {}
func (*EBinary) isExpr()    {}
func (*ECompare) isExpr()   {}
func (*EBoolOp) isExpr()    {}
func (*ELambda) isExpr()    {}
func (*EIfExp) isExpr()     {}
func (*EStarred) isExpr()   {}
func (*ENamedExpr) isExpr() {}
func (*EYield) isExpr()     {}
func (*EAwait) isExpr()     {}
func (*EComp) isExpr()      {}
