package py_lexer

// The lexer converts Python source text into a token stream. Logical lines
// are delimited by TNewline; INDENT and DEDENT tokens are synthesized from
// leading whitespace the way CPython's tokenizer does it. Physical lines are
// joined inside brackets and after a trailing backslash.
//
// The lexer panics with LexerPanic when it hits a syntax error, after logging
// the error. The parser recovers from the panic at the statement level.

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cribo/cribo/internal/logger"
)

type T uint8

const (
	TEndOfFile T = iota
	TNewline
	TIndent
	TDedent

	TIdentifier
	TNumber
	TString
	TFString

	// Punctuation
	TOpenParen
	TCloseParen
	TOpenBracket
	TCloseBracket
	TOpenBrace
	TCloseBrace
	TComma
	TColon
	TColonEquals
	TSemicolon
	TDot
	TEllipsisLit
	TAt
	TArrow
	TEquals

	// Operators
	TEqualsEquals
	TExclamationEquals
	TLessThan
	TGreaterThan
	TLessThanEquals
	TGreaterThanEquals
	TPlus
	TMinus
	TAsterisk
	TAsteriskAsterisk
	TSlash
	TSlashSlash
	TPercent
	TTilde
	TCaret
	TAmpersand
	TBar
	TLessThanLessThan
	TGreaterThanGreaterThan

	// Augmented assignment
	TPlusEquals
	TMinusEquals
	TAsteriskEquals
	TAsteriskAsteriskEquals
	TSlashEquals
	TSlashSlashEquals
	TPercentEquals
	TAtEquals
	TAmpersandEquals
	TBarEquals
	TCaretEquals
	TLessThanLessThanEquals
	TGreaterThanGreaterThanEquals

	// Keywords
	TAnd
	TAs
	TAssert
	TAsync
	TAwait
	TBreak
	TClass
	TContinue
	TDef
	TDel
	TElif
	TElse
	TExcept
	TFalse
	TFinally
	TFor
	TFrom
	TGlobal
	TIf
	TImport
	TIn
	TIs
	TLambda
	TNone
	TNonlocal
	TNot
	TOr
	TPass
	TRaise
	TReturn
	TTrue
	TTry
	TWhile
	TWith
	TYield
)

var Keywords = map[string]T{
	"and":      TAnd,
	"as":       TAs,
	"assert":   TAssert,
	"async":    TAsync,
	"await":    TAwait,
	"break":    TBreak,
	"class":    TClass,
	"continue": TContinue,
	"def":      TDef,
	"del":      TDel,
	"elif":     TElif,
	"else":     TElse,
	"except":   TExcept,
	"False":    TFalse,
	"finally":  TFinally,
	"for":      TFor,
	"from":     TFrom,
	"global":   TGlobal,
	"if":       TIf,
	"import":   TImport,
	"in":       TIn,
	"is":       TIs,
	"lambda":   TLambda,
	"None":     TNone,
	"nonlocal": TNonlocal,
	"not":      TNot,
	"or":       TOr,
	"pass":     TPass,
	"raise":    TRaise,
	"return":   TReturn,
	"True":     TTrue,
	"try":      TTry,
	"while":    TWhile,
	"with":     TWith,
	"yield":    TYield,
}

type LexerPanic struct{}

type Lexer struct {
	log    logger.Log
	source *logger.Source

	current int
	start   int

	Token      T
	Identifier string

	// The literal text of the current number token
	NumberLiteral string

	// For string tokens: the decoded value and the raw source text
	StringValue string
	StringRaw   string

	// Identifiers read inside f-string replacement fields
	FStringFreeNames []string

	// Bracket nesting depth; newlines inside brackets are not significant
	parenDepth int

	// Indentation bookkeeping
	indentStack  []int
	pendingDents int  // positive: INDENTs to emit, negative: DEDENTs
	atLineStart  bool
	sawNewline   bool // suppress duplicate TNewline for blank lines
}

func NewLexer(log logger.Log, source *logger.Source) Lexer {
	lexer := Lexer{
		log:         log,
		source:      source,
		indentStack: []int{0},
		atLineStart: true,
		sawNewline:  true,
	}
	lexer.Next()
	return lexer
}

func (lexer *Lexer) Loc() logger.Loc {
	return logger.Loc{Start: int32(lexer.start)}
}

func (lexer *Lexer) Range() logger.Range {
	return logger.Range{Loc: logger.Loc{Start: int32(lexer.start)}, Len: int32(lexer.current - lexer.start)}
}

func (lexer *Lexer) Raw() string {
	return lexer.source.Contents[lexer.start:lexer.current]
}

func (lexer *Lexer) SyntaxError(text string) {
	lexer.log.AddError(lexer.source, logger.Loc{Start: int32(lexer.current)}, text)
	panic(LexerPanic{})
}

func (lexer *Lexer) peek() byte {
	if lexer.current < len(lexer.source.Contents) {
		return lexer.source.Contents[lexer.current]
	}
	return 0
}

func (lexer *Lexer) peekAt(offset int) byte {
	if lexer.current+offset < len(lexer.source.Contents) {
		return lexer.source.Contents[lexer.current+offset]
	}
	return 0
}

func (lexer *Lexer) Next() {
	contents := lexer.source.Contents

	// Flush queued INDENT/DEDENT tokens first
	if lexer.pendingDents > 0 {
		lexer.pendingDents--
		lexer.Token = TIndent
		return
	}
	if lexer.pendingDents < 0 {
		lexer.pendingDents++
		lexer.Token = TDedent
		return
	}

	for {
		// Handle the start of a logical line: measure indentation
		if lexer.atLineStart && lexer.parenDepth == 0 {
			if done := lexer.measureIndentation(); done {
				return
			}
		}

		lexer.start = lexer.current
		if lexer.current >= len(contents) {
			lexer.finishFile()
			return
		}

		c := contents[lexer.current]

		switch c {
		case ' ', '\t', '\r':
			lexer.current++
			continue

		case '\\':
			// Explicit line joining
			if lexer.peekAt(1) == '\n' {
				lexer.current += 2
				continue
			}
			if lexer.peekAt(1) == '\r' && lexer.peekAt(2) == '\n' {
				lexer.current += 3
				continue
			}
			lexer.SyntaxError("Unexpected \"\\\"")

		case '#':
			for lexer.current < len(contents) && contents[lexer.current] != '\n' {
				lexer.current++
			}
			continue

		case '\n':
			lexer.current++
			lexer.atLineStart = true
			if lexer.parenDepth > 0 || lexer.sawNewline {
				continue
			}
			lexer.sawNewline = true
			lexer.Token = TNewline
			return

		case '(':
			lexer.parenDepth++
			lexer.current++
			lexer.setToken(TOpenParen)
			return
		case ')':
			lexer.parenDepth--
			lexer.current++
			lexer.setToken(TCloseParen)
			return
		case '[':
			lexer.parenDepth++
			lexer.current++
			lexer.setToken(TOpenBracket)
			return
		case ']':
			lexer.parenDepth--
			lexer.current++
			lexer.setToken(TCloseBracket)
			return
		case '{':
			lexer.parenDepth++
			lexer.current++
			lexer.setToken(TOpenBrace)
			return
		case '}':
			lexer.parenDepth--
			lexer.current++
			lexer.setToken(TCloseBrace)
			return

		case ',':
			lexer.current++
			lexer.setToken(TComma)
			return
		case ';':
			lexer.current++
			lexer.setToken(TSemicolon)
			return
		case '~':
			lexer.current++
			lexer.setToken(TTilde)
			return

		case ':':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TColonEquals)
			} else {
				lexer.setToken(TColon)
			}
			return

		case '.':
			if lexer.peekAt(1) == '.' && lexer.peekAt(2) == '.' {
				lexer.current += 3
				lexer.setToken(TEllipsisLit)
				return
			}
			if isDigit(lexer.peekAt(1)) {
				lexer.lexNumber()
				return
			}
			lexer.current++
			lexer.setToken(TDot)
			return

		case '@':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TAtEquals)
			} else {
				lexer.setToken(TAt)
			}
			return

		case '=':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TEqualsEquals)
			} else {
				lexer.setToken(TEquals)
			}
			return

		case '!':
			if lexer.peekAt(1) == '=' {
				lexer.current += 2
				lexer.setToken(TExclamationEquals)
				return
			}
			lexer.SyntaxError("Unexpected \"!\"")

		case '<':
			lexer.current++
			switch lexer.peek() {
			case '=':
				lexer.current++
				lexer.setToken(TLessThanEquals)
			case '<':
				lexer.current++
				if lexer.peek() == '=' {
					lexer.current++
					lexer.setToken(TLessThanLessThanEquals)
				} else {
					lexer.setToken(TLessThanLessThan)
				}
			default:
				lexer.setToken(TLessThan)
			}
			return

		case '>':
			lexer.current++
			switch lexer.peek() {
			case '=':
				lexer.current++
				lexer.setToken(TGreaterThanEquals)
			case '>':
				lexer.current++
				if lexer.peek() == '=' {
					lexer.current++
					lexer.setToken(TGreaterThanGreaterThanEquals)
				} else {
					lexer.setToken(TGreaterThanGreaterThan)
				}
			default:
				lexer.setToken(TGreaterThan)
			}
			return

		case '+':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TPlusEquals)
			} else {
				lexer.setToken(TPlus)
			}
			return

		case '-':
			lexer.current++
			switch lexer.peek() {
			case '=':
				lexer.current++
				lexer.setToken(TMinusEquals)
			case '>':
				lexer.current++
				lexer.setToken(TArrow)
			default:
				lexer.setToken(TMinus)
			}
			return

		case '*':
			lexer.current++
			switch lexer.peek() {
			case '=':
				lexer.current++
				lexer.setToken(TAsteriskEquals)
			case '*':
				lexer.current++
				if lexer.peek() == '=' {
					lexer.current++
					lexer.setToken(TAsteriskAsteriskEquals)
				} else {
					lexer.setToken(TAsteriskAsterisk)
				}
			default:
				lexer.setToken(TAsterisk)
			}
			return

		case '/':
			lexer.current++
			switch lexer.peek() {
			case '=':
				lexer.current++
				lexer.setToken(TSlashEquals)
			case '/':
				lexer.current++
				if lexer.peek() == '=' {
					lexer.current++
					lexer.setToken(TSlashSlashEquals)
				} else {
					lexer.setToken(TSlashSlash)
				}
			default:
				lexer.setToken(TSlash)
			}
			return

		case '%':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TPercentEquals)
			} else {
				lexer.setToken(TPercent)
			}
			return

		case '&':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TAmpersandEquals)
			} else {
				lexer.setToken(TAmpersand)
			}
			return

		case '|':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TBarEquals)
			} else {
				lexer.setToken(TBar)
			}
			return

		case '^':
			lexer.current++
			if lexer.peek() == '=' {
				lexer.current++
				lexer.setToken(TCaretEquals)
			} else {
				lexer.setToken(TCaret)
			}
			return

		case '\'', '"':
			lexer.lexString("")
			return

		default:
			if isDigit(c) {
				lexer.lexNumber()
				return
			}
			if isIdentifierStart(c) {
				lexer.lexIdentifierOrString()
				return
			}
			lexer.SyntaxError("Unexpected character")
		}
	}
}

func (lexer *Lexer) setToken(token T) {
	lexer.Token = token
	lexer.atLineStart = false
	lexer.sawNewline = false
}

// measureIndentation runs at the start of each logical line. It skips blank
// and comment-only lines, then compares the leading whitespace against the
// indentation stack and queues INDENT/DEDENT tokens. It returns true if a
// token was produced.
func (lexer *Lexer) measureIndentation() bool {
	contents := lexer.source.Contents

	for {
		lineStart := lexer.current
		column := 0
		for lexer.current < len(contents) {
			switch contents[lexer.current] {
			case ' ':
				column++
				lexer.current++
				continue
			case '\t':
				column += 8 - (column % 8)
				lexer.current++
				continue
			}
			break
		}

		// Skip blank lines and comment-only lines entirely
		if lexer.current >= len(contents) {
			lexer.start = lexer.current
			lexer.finishFile()
			return true
		}
		switch contents[lexer.current] {
		case '\n':
			lexer.current++
			continue
		case '\r':
			lexer.current++
			continue
		case '#':
			for lexer.current < len(contents) && contents[lexer.current] != '\n' {
				lexer.current++
			}
			continue
		}

		lexer.atLineStart = false
		top := lexer.indentStack[len(lexer.indentStack)-1]

		if column > top {
			lexer.indentStack = append(lexer.indentStack, column)
			lexer.start = lineStart
			lexer.Token = TIndent
			return true
		}

		if column < top {
			dedents := 0
			for len(lexer.indentStack) > 1 && lexer.indentStack[len(lexer.indentStack)-1] > column {
				lexer.indentStack = lexer.indentStack[:len(lexer.indentStack)-1]
				dedents++
			}
			if lexer.indentStack[len(lexer.indentStack)-1] != column {
				lexer.log.AddError(lexer.source, logger.Loc{Start: int32(lineStart)},
					"Unindent does not match any outer indentation level")
				panic(LexerPanic{})
			}
			lexer.start = lineStart
			lexer.pendingDents = -(dedents - 1)
			lexer.Token = TDedent
			return true
		}

		return false
	}
}

func (lexer *Lexer) finishFile() {
	// Close any open indentation levels at end of file
	if len(lexer.indentStack) > 1 {
		lexer.indentStack = lexer.indentStack[:len(lexer.indentStack)-1]
		lexer.Token = TDedent
		return
	}
	lexer.Token = TEndOfFile
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentifierStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isIdentifierContinue(c byte) bool {
	return isIdentifierStart(c) || isDigit(c)
}

func (lexer *Lexer) lexNumber() {
	contents := lexer.source.Contents
	for lexer.current < len(contents) {
		c := contents[lexer.current]
		if isDigit(c) || isIdentifierContinue(c) || c == '.' || c == '_' {
			// Exponent signs
			if (c == 'e' || c == 'E') && lexer.current+1 < len(contents) &&
				(contents[lexer.current+1] == '+' || contents[lexer.current+1] == '-') {
				lexer.current += 2
				continue
			}
			lexer.current++
			continue
		}
		break
	}
	lexer.NumberLiteral = lexer.Raw()
	lexer.setToken(TNumber)
}

// lexIdentifierOrString lexes an identifier, a keyword, or a prefixed string
// literal like r"...", b'...', f"...".
func (lexer *Lexer) lexIdentifierOrString() {
	contents := lexer.source.Contents
	for lexer.current < len(contents) && isIdentifierContinue(contents[lexer.current]) {
		lexer.current++
	}
	text := lexer.Raw()

	// A short identifier directly followed by a quote is a string prefix
	if len(text) <= 2 && lexer.current < len(contents) &&
		(contents[lexer.current] == '\'' || contents[lexer.current] == '"') &&
		isStringPrefix(text) {
		lexer.lexString(strings.ToLower(text))
		return
	}

	if token, ok := Keywords[text]; ok {
		lexer.setToken(token)
		return
	}

	lexer.Identifier = text
	lexer.setToken(TIdentifier)
}

func isStringPrefix(text string) bool {
	switch strings.ToLower(text) {
	case "r", "b", "u", "f", "rb", "br", "rf", "fr":
		return true
	}
	return false
}

func (lexer *Lexer) lexString(prefix string) {
	contents := lexer.source.Contents
	quote := contents[lexer.current]
	isRaw := strings.ContainsRune(prefix, 'r')
	isFString := strings.ContainsRune(prefix, 'f')

	triple := false
	if lexer.peekAt(1) == quote && lexer.peekAt(2) == quote {
		triple = true
		lexer.current += 3
	} else {
		lexer.current++
	}

	var value strings.Builder
	for {
		if lexer.current >= len(contents) {
			lexer.SyntaxError("Unterminated string literal")
		}
		c := contents[lexer.current]

		if c == '\\' && !isRaw {
			lexer.current++
			if lexer.current >= len(contents) {
				lexer.SyntaxError("Unterminated string literal")
			}
			value.WriteString(decodeEscape(contents[lexer.current]))
			lexer.current++
			continue
		}
		if c == '\\' && isRaw {
			value.WriteByte(c)
			lexer.current++
			if lexer.current < len(contents) {
				value.WriteByte(contents[lexer.current])
				lexer.current++
			}
			continue
		}

		if c == quote {
			if triple {
				if lexer.peekAt(1) == quote && lexer.peekAt(2) == quote {
					lexer.current += 3
					break
				}
				value.WriteByte(c)
				lexer.current++
				continue
			}
			lexer.current++
			break
		}

		if c == '\n' && !triple {
			lexer.SyntaxError("Unterminated string literal")
		}

		value.WriteByte(c)
		lexer.current++
	}

	lexer.StringValue = value.String()
	lexer.StringRaw = lexer.Raw()

	if isFString {
		lexer.FStringFreeNames = scanFStringNames(lexer.StringValue)
		lexer.setToken(TFString)
	} else {
		lexer.setToken(TString)
	}
}

func decodeEscape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\':
		return "\\"
	case '\'':
		return "'"
	case '"':
		return "\""
	case '0':
		return "\x00"
	case '\n':
		return "" // line continuation inside a string
	default:
		// Keep unknown escapes verbatim, e.g. \x41 stays "\x41" minus the
		// backslash handling; good enough since values are only inspected
		// for import names and __all__ entries.
		return "\\" + string(c)
	}
}

// scanFStringNames extracts the identifiers read inside {...} replacement
// fields. Only the leading name of each dotted chain is reported because
// that is what resolves against module scope.
func scanFStringNames(text string) []string {
	var names []string
	seen := map[string]bool{}
	depth := 0

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				i++
				continue
			}
			depth++
		case '}':
			if depth == 0 && i+1 < len(text) && text[i+1] == '}' {
				i++
				continue
			}
			if depth > 0 {
				depth--
			}
		default:
			if depth > 0 && (c == '_' || unicode.IsLetter(rune(c))) {
				start := i
				for i < len(text) && isIdentifierContinue(text[i]) {
					i++
				}
				name := text[start:i]
				i--
				// Skip attribute names and keywords
				if start > 0 && text[start-1] == '.' {
					continue
				}
				if _, isKeyword := Keywords[name]; isKeyword {
					continue
				}
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}
