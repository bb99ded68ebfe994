package py_ast

// Operator precedence levels, lowest binds loosest. The printer uses these to
// decide where parentheses are required.
type L int

const (
	LLowest L = iota
	LNamedExpr
	LLambda
	LTernary
	LOr
	LAnd
	LNot
	LCompare
	LBitOr
	LBitXor
	LBitAnd
	LShift
	LAdd
	LMultiply
	LUnary
	LPower
	LAwait
	Lpostfix // call, attribute, subscript
)

type OpCode uint8

const (
	// Boolean
	OpAnd OpCode = iota
	OpOr

	// Unary
	OpNot
	OpNeg
	OpPos
	OpInvert

	// Binary
	OpAdd
	OpSub
	OpMult
	OpMatMult
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpLShift
	OpRShift
	OpBitOr
	OpBitXor
	OpBitAnd

	// Comparison
	OpEq
	OpNotEq
	OpLt
	OpLtE
	OpGt
	OpGtE
	OpIs
	OpIsNot
	OpIn
	OpNotIn
)

type opTableEntry struct {
	Text  string
	Level L
}

var OpTable = map[OpCode]opTableEntry{
	OpAnd:      {"and", LAnd},
	OpOr:       {"or", LOr},
	OpNot:      {"not", LNot},
	OpNeg:      {"-", LUnary},
	OpPos:      {"+", LUnary},
	OpInvert:   {"~", LUnary},
	OpAdd:      {"+", LAdd},
	OpSub:      {"-", LAdd},
	OpMult:     {"*", LMultiply},
	OpMatMult:  {"@", LMultiply},
	OpDiv:      {"/", LMultiply},
	OpFloorDiv: {"//", LMultiply},
	OpMod:      {"%", LMultiply},
	OpPow:      {"**", LPower},
	OpLShift:   {"<<", LShift},
	OpRShift:   {">>", LShift},
	OpBitOr:    {"|", LBitOr},
	OpBitXor:   {"^", LBitXor},
	OpBitAnd:   {"&", LBitAnd},
	OpEq:       {"==", LCompare},
	OpNotEq:    {"!=", LCompare},
	OpLt:       {"<", LCompare},
	OpLtE:      {"<=", LCompare},
	OpGt:       {">", LCompare},
	OpGtE:      {">=", LCompare},
	OpIs:       {"is", LCompare},
	OpIsNot:    {"is not", LCompare},
	OpIn:       {"in", LCompare},
	OpNotIn:    {"not in", LCompare},
}

func (op OpCode) Text() string {
	return OpTable[op].Text
}

func (op OpCode) Level() L {
	return OpTable[op].Level
}
