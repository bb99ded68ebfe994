package pystdlib

// Classification of dotted module names against the standard library of a
// single configured Python version. The tables are keyed by top-level module
// name; "os.path" is classified through "os".

import "strings"

// Modules present in every supported version (3.8 through 3.13). Version
// specific additions and removals are layered on top below.
var baseModules = map[string]bool{
	"__future__": true, "_thread": true, "abc": true, "aifc": true,
	"argparse": true, "array": true, "ast": true, "asyncio": true,
	"atexit": true, "audioop": true, "base64": true, "bdb": true,
	"binascii": true, "bisect": true, "builtins": true, "bz2": true,
	"calendar": true, "cgi": true, "cgitb": true, "chunk": true,
	"cmath": true, "cmd": true, "code": true, "codecs": true,
	"codeop": true, "collections": true, "colorsys": true,
	"compileall": true, "concurrent": true, "configparser": true,
	"contextlib": true, "contextvars": true, "copy": true, "copyreg": true,
	"cProfile": true, "crypt": true, "csv": true, "ctypes": true,
	"curses": true, "dataclasses": true, "datetime": true, "dbm": true,
	"decimal": true, "difflib": true, "dis": true, "doctest": true,
	"email": true, "encodings": true, "ensurepip": true, "enum": true,
	"errno": true, "faulthandler": true, "fcntl": true, "filecmp": true,
	"fileinput": true, "fnmatch": true, "fractions": true, "ftplib": true,
	"functools": true, "gc": true, "getopt": true, "getpass": true,
	"gettext": true, "glob": true, "graphlib": true, "grp": true,
	"gzip": true, "hashlib": true, "heapq": true, "hmac": true,
	"html": true, "http": true, "idlelib": true, "imaplib": true,
	"imghdr": true, "importlib": true, "inspect": true, "io": true,
	"ipaddress": true, "itertools": true, "json": true, "keyword": true,
	"lib2to3": true, "linecache": true, "locale": true, "logging": true,
	"lzma": true, "mailbox": true, "mailcap": true, "marshal": true,
	"math": true, "mimetypes": true, "mmap": true, "modulefinder": true,
	"multiprocessing": true, "netrc": true, "nis": true, "nntplib": true,
	"ntpath": true, "numbers": true, "operator": true, "optparse": true,
	"os": true, "ossaudiodev": true, "pathlib": true, "pdb": true,
	"pickle": true, "pickletools": true, "pipes": true, "pkgutil": true,
	"platform": true, "plistlib": true, "poplib": true, "posix": true,
	"posixpath": true, "pprint": true, "profile": true, "pstats": true,
	"pty": true, "pwd": true, "py_compile": true, "pyclbr": true,
	"pydoc": true, "queue": true, "quopri": true, "random": true,
	"re": true, "readline": true, "reprlib": true, "resource": true,
	"rlcompleter": true, "runpy": true, "sched": true, "secrets": true,
	"select": true, "selectors": true, "shelve": true, "shlex": true,
	"shutil": true, "signal": true, "site": true, "smtplib": true,
	"sndhdr": true, "socket": true, "socketserver": true, "spwd": true,
	"sqlite3": true, "ssl": true, "stat": true, "statistics": true,
	"string": true, "stringprep": true, "struct": true, "subprocess": true,
	"sunau": true, "symtable": true, "sys": true, "sysconfig": true,
	"syslog": true, "tabnanny": true, "tarfile": true, "telnetlib": true,
	"tempfile": true, "termios": true, "test": true, "textwrap": true,
	"threading": true, "time": true, "timeit": true, "tkinter": true,
	"token": true, "tokenize": true, "trace": true, "traceback": true,
	"tracemalloc": true, "tty": true, "turtle": true, "turtledemo": true,
	"types": true, "typing": true, "unicodedata": true, "unittest": true,
	"urllib": true, "uu": true, "uuid": true, "venv": true,
	"warnings": true, "wave": true, "weakref": true, "webbrowser": true,
	"wsgiref": true, "xdrlib": true, "xml": true, "xmlrpc": true,
	"zipapp": true, "zipfile": true, "zipimport": true, "zlib": true,
	"antigravity": true, "this": true, "__hello__": true, "__phello__": true,
	"sitecustomize": true, "usercustomize": true,
}

// addedIn maps a module name to the version that introduced it.
var addedIn = map[string]uint16{
	"graphlib": 39,
	"zoneinfo": 39,
	"tomllib":  311,
}

// removedIn maps a module name to the first version that no longer ships it.
var removedIn = map[string]uint16{
	"asynchat":    312,
	"asyncore":    312,
	"distutils":   312,
	"imp":         312,
	"smtpd":       312,
	"aifc":        313,
	"audioop":     313,
	"cgi":         313,
	"cgitb":       313,
	"chunk":       313,
	"crypt":       313,
	"imghdr":      313,
	"lib2to3":     313,
	"mailcap":     313,
	"msilib":      313,
	"nis":         313,
	"nntplib":     313,
	"ossaudiodev": 313,
	"pipes":       313,
	"sndhdr":      313,
	"spwd":        313,
	"sunau":       313,
	"telnetlib":   313,
	"uu":          313,
	"xdrlib":      313,
}

// Modules that were removed before 3.12/3.13 but exist in 3.8..3.11 and are
// not in the base table.
var legacyModules = map[string]bool{
	"asynchat":  true,
	"asyncore":  true,
	"distutils": true,
	"imp":       true,
	"smtpd":     true,
	"msilib":    true,
	"winreg":    true,
	"winsound":  true,
	"zoneinfo":  true,
	"tomllib":   true,
}

// Importing one of these mutates global state or performs I/O, so they can
// never be hoisted and any module importing one at top level is considered
// side-effecting.
var sideEffectDenyList = map[string]bool{
	"antigravity":   true,
	"this":          true,
	"__hello__":     true,
	"__phello__":    true,
	"site":          true,
	"sitecustomize": true,
	"usercustomize": true,
	"readline":      true,
	"rlcompleter":   true,
	"turtle":        true,
	"tkinter":       true,
	"webbrowser":    true,
	"locale":        true,
	"platform":      true,
}

// TopLevel strips everything after the first dot.
func TopLevel(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// IsStdlib reports whether name (or its first dotted component) is part of
// the standard library of the given Python version.
func IsStdlib(name string, version uint16) bool {
	top := TopLevel(name)
	if !baseModules[top] && !legacyModules[top] {
		return false
	}
	if added, ok := addedIn[top]; ok && version < added {
		return false
	}
	if removed, ok := removedIn[top]; ok && version >= removed {
		return false
	}
	return true
}

// IsSideEffectFree reports whether importing the named stdlib module is free
// of observable side effects. Callers must have already established that the
// module is stdlib.
func IsSideEffectFree(name string) bool {
	return !sideEffectDenyList[TopLevel(name)]
}

// IsHoistable reports whether an import of name can be moved to the top of
// the bundle: "__future__" always, otherwise side-effect-free stdlib only.
func IsHoistable(name string, version uint16) bool {
	if name == "__future__" {
		return true
	}
	return IsStdlib(name, version) && IsSideEffectFree(name)
}
