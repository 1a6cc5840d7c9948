package entities

import (
	"strconv"
	"strings"
)

// EventKind identifies an intercepted runtime action.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindOpen
	KindRemove
	KindRmdir
	KindRmtree
	KindPutenv
	KindUnsetenv
	KindGetenv
	KindEnvironGet
	KindPopen
	KindSystem
	KindExec
	KindSpawn
	KindPosixSpawn
	KindDlopen
	KindGetAddrInfo
	KindGetHostByName
	KindGetHostByNameEx
	KindGetHostByAddr
	KindConnect
	KindSocketNew
	KindURLRequest
	KindHTTPRequest
)

var eventNames = map[EventKind]string{
	KindOpen:            "open",
	KindRemove:          "os.remove",
	KindRmdir:           "os.rmdir",
	KindRmtree:          "shutil.rmtree",
	KindPutenv:          "os.putenv",
	KindUnsetenv:        "os.unsetenv",
	KindGetenv:          "os.getenv",
	KindEnvironGet:      "os.environ.get",
	KindPopen:           "subprocess.Popen",
	KindSystem:          "os.system",
	KindExec:            "os.exec",
	KindSpawn:           "os.spawn",
	KindPosixSpawn:      "os.posix_spawn",
	KindDlopen:          "ctypes.dlopen",
	KindGetAddrInfo:     "socket.getaddrinfo",
	KindGetHostByName:   "socket.gethostbyname",
	KindGetHostByNameEx: "socket.gethostbyname_ex",
	KindGetHostByAddr:   "socket.gethostbyaddr",
	KindConnect:         "socket.connect",
	KindSocketNew:       "socket.__new__",
	KindURLRequest:      "urllib.Request",
	KindHTTPRequest:     "http.request",
}

var eventKinds = func() map[string]EventKind {
	m := make(map[string]EventKind, len(eventNames))
	for k, name := range eventNames {
		m[name] = k
	}
	return m
}()

// ParseEventKind maps a wire event name to its kind. Unknown names map to KindUnknown.
func ParseEventKind(name string) EventKind {
	if k, ok := eventKinds[name]; ok {
		return k
	}
	return KindUnknown
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// ReplacesProcess reports whether the event replaces the current process image.
// Nothing scheduled for process exit runs after such an event succeeds.
func (k EventKind) ReplacesProcess() bool {
	return k == KindExec || k == KindPosixSpawn
}

// IsDNS reports whether the event is a name resolution.
func (k EventKind) IsDNS() bool {
	switch k {
	case KindGetAddrInfo, KindGetHostByName, KindGetHostByNameEx, KindGetHostByAddr:
		return true
	}
	return false
}

// Event is an intercepted action with typed arguments.
// The set of implementations is closed; see the types below.
type Event interface {
	Kind() EventKind
	event()
}

// FileOpen is an open(2)-style access. Descriptor opens carry no path.
type FileOpen struct {
	Path       string
	Mode       string
	Descriptor bool
}

// IsWrite reports whether the mode requests write access.
func (e FileOpen) IsWrite() bool {
	return strings.ContainsAny(e.Mode, "wax+")
}

// FileDelete removes a file or directory tree.
type FileDelete struct {
	Op   EventKind
	Path string
}

// EnvWrite sets or unsets an environment variable.
type EnvWrite struct {
	Op    EventKind
	Key   string
	Value string
}

// EnvRead reads an environment variable. Key is empty when the
// call site cannot report which variable was requested.
type EnvRead struct {
	Op  EventKind
	Key string
}

// ProcessSpawn starts a program directly, without a shell.
type ProcessSpawn struct {
	Op         EventKind
	Executable string
	Argv       []string
}

// CommandLine joins the executable and its arguments with single spaces.
func (e ProcessSpawn) CommandLine() string {
	if len(e.Argv) == 0 {
		return e.Executable
	}
	return e.Executable + " " + strings.Join(e.Argv, " ")
}

// ShellCommand runs a command string through the system shell.
type ShellCommand struct {
	Command string
}

// LibraryLoad maps a shared library into the process.
type LibraryLoad struct {
	Path string
}

// DNSLookup resolves a host name, or an address for reverse lookups.
type DNSLookup struct {
	Op   EventKind
	Host string
	Port int // 0 when the lookup carries no port
}

// SocketConnect opens a connection to host:port.
type SocketConnect struct {
	Host string
	Port int
}

// Address renders host:port.
func (e SocketConnect) Address() string {
	return e.Host + ":" + strconv.Itoa(e.Port)
}

// SocketCreate creates a socket. Informational only.
type SocketCreate struct {
	Family int
	Type   int
}

// HTTPRequest is an outbound HTTP request. Payload holds fetched content
// when the event source reports it.
type HTTPRequest struct {
	Op      EventKind
	URL     string
	Method  string
	Payload []byte
}

// Unmodeled is an event name outside the enumerated set.
type Unmodeled struct {
	Name string
	Args []any
}

// Malformed is a modeled event whose arguments could not be decoded.
type Malformed struct {
	Op     EventKind
	Reason string
}

func (FileOpen) Kind() EventKind { return KindOpen }
func (e FileDelete) Kind() EventKind { return e.Op }
func (e EnvWrite) Kind() EventKind { return e.Op }
func (e EnvRead) Kind() EventKind { return e.Op }
func (e ProcessSpawn) Kind() EventKind { return e.Op }
func (ShellCommand) Kind() EventKind { return KindSystem }
func (LibraryLoad) Kind() EventKind { return KindDlopen }
func (e DNSLookup) Kind() EventKind { return e.Op }
func (SocketConnect) Kind() EventKind { return KindConnect }
func (SocketCreate) Kind() EventKind { return KindSocketNew }
func (e HTTPRequest) Kind() EventKind { return e.Op }
func (Unmodeled) Kind() EventKind { return KindUnknown }
func (e Malformed) Kind() EventKind { return e.Op }

func (FileOpen) event() {}
func (FileDelete) event() {}
func (EnvWrite) event() {}
func (EnvRead) event() {}
func (ProcessSpawn) event() {}
func (ShellCommand) event() {}
func (LibraryLoad) event() {}
func (DNSLookup) event() {}
func (SocketConnect) event() {}
func (SocketCreate) event() {}
func (HTTPRequest) event() {}
func (Unmodeled) event() {}
func (Malformed) event() {}

// EventName returns the wire name for ev, including unmodeled names.
func EventName(ev Event) string {
	if u, ok := ev.(Unmodeled); ok {
		return u.Name
	}
	return ev.Kind().String()
}
