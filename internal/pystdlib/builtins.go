package pystdlib

// Builtin names for the supported Python versions. Used to filter builtins
// out of symbol-conflict analysis and to avoid generating a rename that
// shadows a builtin.

var baseBuiltins = map[string]bool{
	"abs": true, "all": true, "any": true, "ascii": true, "bin": true,
	"bool": true, "breakpoint": true, "bytearray": true, "bytes": true,
	"callable": true, "chr": true, "classmethod": true, "compile": true,
	"complex": true, "copyright": true, "credits": true, "delattr": true,
	"dict": true, "dir": true, "divmod": true, "enumerate": true,
	"eval": true, "exec": true, "exit": true, "filter": true, "float": true,
	"format": true, "frozenset": true, "getattr": true, "globals": true,
	"hasattr": true, "hash": true, "help": true, "hex": true, "id": true,
	"input": true, "int": true, "isinstance": true, "issubclass": true,
	"iter": true, "len": true, "license": true, "list": true, "locals": true,
	"map": true, "max": true, "memoryview": true, "min": true, "next": true,
	"object": true, "oct": true, "open": true, "ord": true, "pow": true,
	"print": true, "property": true, "quit": true, "range": true,
	"repr": true, "reversed": true, "round": true, "set": true,
	"setattr": true, "slice": true, "sorted": true, "staticmethod": true,
	"str": true, "sum": true, "super": true, "tuple": true, "type": true,
	"vars": true, "zip": true, "__import__": true, "__name__": true,
	"__file__": true, "__doc__": true, "__builtins__": true,
	"True": true, "False": true, "None": true, "NotImplemented": true,
	"Ellipsis": true, "__debug__": true,
	"BaseException": true, "Exception": true, "ArithmeticError": true,
	"AssertionError": true, "AttributeError": true, "BlockingIOError": true,
	"BrokenPipeError": true, "BufferError": true, "BytesWarning": true,
	"ChildProcessError": true, "ConnectionAbortedError": true,
	"ConnectionError": true, "ConnectionRefusedError": true,
	"ConnectionResetError": true, "DeprecationWarning": true,
	"EOFError": true, "EnvironmentError": true, "FileExistsError": true,
	"FileNotFoundError": true, "FloatingPointError": true,
	"FutureWarning": true, "GeneratorExit": true, "IOError": true,
	"ImportError": true, "ImportWarning": true, "IndentationError": true,
	"IndexError": true, "InterruptedError": true, "IsADirectoryError": true,
	"KeyError": true, "KeyboardInterrupt": true, "LookupError": true,
	"MemoryError": true, "ModuleNotFoundError": true, "NameError": true,
	"NotADirectoryError": true, "NotImplementedError": true, "OSError": true,
	"OverflowError": true, "PendingDeprecationWarning": true,
	"PermissionError": true, "ProcessLookupError": true,
	"RecursionError": true, "ReferenceError": true, "ResourceWarning": true,
	"RuntimeError": true, "RuntimeWarning": true, "StopAsyncIteration": true,
	"StopIteration": true, "SyntaxError": true, "SyntaxWarning": true,
	"SystemError": true, "SystemExit": true, "TabError": true,
	"TimeoutError": true, "TypeError": true, "UnboundLocalError": true,
	"UnicodeDecodeError": true, "UnicodeEncodeError": true,
	"UnicodeError": true, "UnicodeTranslateError": true,
	"UnicodeWarning": true, "UserWarning": true, "ValueError": true,
	"Warning": true, "ZeroDivisionError": true,
}

var builtinsAddedIn = map[string]uint16{
	"aiter":              310,
	"anext":              310,
	"EncodingWarning":    310,
	"ExceptionGroup":     311,
	"BaseExceptionGroup": 311,
	"PythonFinalizationError": 313,
}

// IsBuiltin reports whether name is a builtin of the given Python version.
func IsBuiltin(name string, version uint16) bool {
	if baseBuiltins[name] {
		return true
	}
	if added, ok := builtinsAddedIn[name]; ok {
		return version >= added
	}
	return false
}
