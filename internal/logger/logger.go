package logger

// Diagnostics are collected as structured messages and rendered in a
// clang-like format. Messages are sorted by (file, line, column) before
// they are reported so that two runs over the same input always print
// the same thing in the same order.

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

type Log struct {
	AddMsg    func(Msg)
	HasErrors func() bool
	Done      func() []Msg
}

type LogLevel int8

const (
	LevelNone LogLevel = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelSilent
)

type MsgKind uint8

const (
	Error MsgKind = iota
	Warning
)

func (kind MsgKind) String() string {
	switch kind {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		panic("Internal error")
	}
}

type Msg struct {
	Kind     MsgKind
	Text     string
	Location *MsgLocation
}

type MsgLocation struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Loc struct {
	// This is the 0-based index of this location from the start of the file,
	// in bytes. Synthetic AST nodes use a negative start offset, which means
	// "no location".
	Start int32
}

var SyntheticLoc = Loc{Start: -1}

func (l Loc) IsSynthetic() bool {
	return l.Start < 0
}

type Range struct {
	Loc Loc
	Len int32
}

func (r Range) End() int32 {
	return r.Loc.Start + r.Len
}

// A Source is one Python file that was read during module discovery.
type Source struct {
	// The dense index assigned to this module on first discovery. Indices are
	// never reused within a bundling run.
	Index uint32

	// The absolute path used for file system access. Never shown to the user.
	KeyPath string

	// A platform-independent path for error messages and generated comments.
	PrettyPath string

	// An identifier mixed into generated symbol names, e.g. the sanitized
	// module name "pkg_sub" for "pkg/sub.py".
	IdentifierName string

	Contents string
}

func (s *Source) TextForRange(r Range) string {
	return s.Contents[r.Loc.Start:r.End()]
}

func (s *Source) RangeOfLine(loc Loc) Range {
	text := s.Contents[loc.Start:]
	if i := strings.IndexByte(text, '\n'); i != -1 {
		text = text[:i]
	}
	return Range{Loc: loc, Len: int32(len(text))}
}

// This type is just so we can use Go's native sort function
type msgsArray []Msg

func (a msgsArray) Len() int          { return len(a) }
func (a msgsArray) Swap(i int, j int) { a[i], a[j] = a[j], a[i] }

func (a msgsArray) Less(i int, j int) bool {
	li := a[i].Location
	lj := a[j].Location

	// Messages without a location come first
	if li == nil && lj != nil {
		return true
	}
	if li != nil && lj == nil {
		return false
	}

	if li != nil && lj != nil {
		if li.File != lj.File {
			return li.File < lj.File
		}
		if li.Line != lj.Line {
			return li.Line < lj.Line
		}
		if li.Column != lj.Column {
			return li.Column < lj.Column
		}
	}

	return a[i].Text < a[j].Text
}

func plural(prefix string, count int) string {
	if count == 1 {
		return fmt.Sprintf("%d %s", count, prefix)
	}
	return fmt.Sprintf("%d %ss", count, prefix)
}

func errorAndWarningSummary(errors int, warnings int) string {
	switch {
	case errors == 0:
		return plural("warning", warnings)
	case warnings == 0:
		return plural("error", errors)
	default:
		return fmt.Sprintf("%s and %s", plural("warning", warnings), plural("error", errors))
	}
}

type TerminalInfo struct {
	IsTTY           bool
	UseColorEscapes bool
	Width           int
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type StderrOptions struct {
	IncludeSource bool
	Color         StderrColor
	LogLevel      LogLevel
}

func NewStderrLog(options StderrOptions) Log {
	var mutex sync.Mutex
	var msgs msgsArray
	terminalInfo := GetTerminalInfo(os.Stderr)
	errors := 0
	warnings := 0

	switch options.Color {
	case ColorNever:
		terminalInfo.UseColorEscapes = false
	case ColorAlways:
		terminalInfo.UseColorEscapes = SupportsColorEscapes
	}

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			msgs = append(msgs, msg)

			switch msg.Kind {
			case Error:
				errors++
				if options.LogLevel <= LevelError {
					writeStringWithColor(os.Stderr, msg.String(options, terminalInfo))
				}
			case Warning:
				warnings++
				if options.LogLevel <= LevelWarning {
					writeStringWithColor(os.Stderr, msg.String(options, terminalInfo))
				}
			}
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return errors > 0
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			if options.LogLevel <= LevelInfo && (warnings != 0 || errors != 0) {
				writeStringWithColor(os.Stderr, fmt.Sprintf("%s\n", errorAndWarningSummary(errors, warnings)))
			}
			sort.Stable(msgs)
			return msgs
		},
	}
}

func NewDeferLog() Log {
	var msgs msgsArray
	var mutex sync.Mutex
	var hasErrors bool

	return Log{
		AddMsg: func(msg Msg) {
			mutex.Lock()
			defer mutex.Unlock()
			if msg.Kind == Error {
				hasErrors = true
			}
			msgs = append(msgs, msg)
		},
		HasErrors: func() bool {
			mutex.Lock()
			defer mutex.Unlock()
			return hasErrors
		},
		Done: func() []Msg {
			mutex.Lock()
			defer mutex.Unlock()
			sort.Stable(msgs)
			return msgs
		},
	}
}

const colorReset = "\033[0m"
const colorRed = "\033[31m"
const colorMagenta = "\033[35m"
const colorBold = "\033[1m"
const colorResetBold = "\033[0;1m"

func (msg Msg) String(options StderrOptions, terminalInfo TerminalInfo) string {
	kind := msg.Kind.String()
	kindColor := colorRed
	if msg.Kind == Warning {
		kindColor = colorMagenta
	}

	var location string
	if msg.Location != nil {
		loc := msg.Location
		if options.IncludeSource {
			location = fmt.Sprintf("%s:%d:%d: ", loc.File, loc.Line, loc.Column)
		} else {
			location = fmt.Sprintf("%s: ", loc.File)
		}
	}

	if terminalInfo.UseColorEscapes {
		text := fmt.Sprintf("%s%s%s%s: %s%s%s\n",
			colorBold, location, kindColor, kind, colorResetBold, msg.Text, colorReset)
		if options.IncludeSource && msg.Location != nil && msg.Location.LineText != "" {
			text += msg.Location.LineText + "\n"
		}
		return text
	}

	text := fmt.Sprintf("%s%s: %s\n", location, kind, msg.Text)
	if options.IncludeSource && msg.Location != nil && msg.Location.LineText != "" {
		text += msg.Location.LineText + "\n"
	}
	return text
}

func computeLineAndColumn(contents string, offset int) (lineCount int, columnCount int, lineStart int, lineEnd int) {
	var prevCodePoint rune
	if offset > len(contents) {
		offset = len(contents)
	}

	// Scan up to the offset to count newlines
	for i, codePoint := range contents[:offset] {
		switch codePoint {
		case '\n':
			lineStart = i + 1
			if prevCodePoint != '\r' {
				lineCount++
			}
		case '\r':
			lineStart = i + 1
			lineCount++
		}
		prevCodePoint = codePoint
	}

	// Scan to the end of the line
	lineEnd = len(contents)
	for i, codePoint := range contents[offset:] {
		if codePoint == '\r' || codePoint == '\n' {
			lineEnd = offset + i
			break
		}
	}

	columnCount = offset - lineStart
	return
}

func LocationOrNil(source *Source, r Range) *MsgLocation {
	if source == nil || r.Loc.IsSynthetic() {
		return nil
	}

	lineCount, columnCount, lineStart, lineEnd := computeLineAndColumn(source.Contents, int(r.Loc.Start))

	return &MsgLocation{
		File:     source.PrettyPath,
		Line:     lineCount + 1, // 0-based to 1-based
		Column:   columnCount,
		Length:   int(r.Len),
		LineText: source.Contents[lineStart:lineEnd],
	}
}

func (log Log) AddError(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{
		Kind:     Error,
		Text:     text,
		Location: LocationOrNil(source, Range{Loc: loc}),
	})
}

func (log Log) AddRangeError(source *Source, r Range, text string) {
	log.AddMsg(Msg{
		Kind:     Error,
		Text:     text,
		Location: LocationOrNil(source, r),
	})
}

func (log Log) AddWarning(source *Source, loc Loc, text string) {
	log.AddMsg(Msg{
		Kind:     Warning,
		Text:     text,
		Location: LocationOrNil(source, Range{Loc: loc}),
	})
}

func (log Log) AddRangeWarning(source *Source, r Range, text string) {
	log.AddMsg(Msg{
		Kind:     Warning,
		Text:     text,
		Location: LocationOrNil(source, r),
	})
}
