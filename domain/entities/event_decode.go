package entities

import (
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
)

// DecodeEvent converts a raw (name, args) tuple from the event source into
// a typed Event. Unknown names decode to Unmodeled. A known name whose
// arguments are missing or of the wrong type decodes to Malformed.
func DecodeEvent(name string, args []any) Event {
	kind := ParseEventKind(name)
	switch kind {
	case KindUnknown:
		return Unmodeled{Name: name, Args: args}
	case KindOpen:
		return decodeOpen(args)
	case KindRemove, KindRmdir, KindRmtree:
		p, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing path")
		}
		return FileDelete{Op: kind, Path: p}
	case KindPutenv, KindUnsetenv:
		key, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing variable name")
		}
		value, _ := argString(args, 1)
		return EnvWrite{Op: kind, Key: key, Value: value}
	case KindGetenv, KindEnvironGet:
		key, _ := argString(args, 0)
		return EnvRead{Op: kind, Key: key}
	case KindPopen, KindExec, KindPosixSpawn:
		return decodeSpawn(kind, args, 0, 1)
	case KindSpawn:
		return decodeSpawn(kind, args, 1, 2)
	case KindSystem:
		cmd, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing command")
		}
		return ShellCommand{Command: cmd}
	case KindDlopen:
		if len(args) == 0 {
			return malformed(kind, "missing library name")
		}
		if args[0] == nil {
			// dlopen(NULL) returns a handle to the running program.
			return LibraryLoad{}
		}
		p, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "library name is not a string")
		}
		return LibraryLoad{Path: p}
	case KindGetAddrInfo, KindGetHostByName, KindGetHostByNameEx, KindGetHostByAddr:
		host, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing host")
		}
		port := 0
		if kind == KindGetAddrInfo && len(args) > 1 && args[1] != nil {
			p, ok := argPort(args[1])
			if !ok {
				return malformed(kind, "invalid port")
			}
			port = p
		}
		return DNSLookup{Op: kind, Host: host, Port: port}
	case KindConnect:
		return decodeConnect(args)
	case KindSocketNew:
		family, _ := argInt(args, 1)
		typ, _ := argInt(args, 2)
		return SocketCreate{Family: family, Type: typ}
	case KindURLRequest:
		u, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing url")
		}
		method, _ := argString(args, 3)
		if method == "" {
			method = "GET"
			if len(args) > 1 && args[1] != nil {
				method = "POST"
			}
		}
		return HTTPRequest{Op: kind, URL: u, Method: strings.ToUpper(method)}
	case KindHTTPRequest:
		u, ok := argString(args, 0)
		if !ok {
			return malformed(kind, "missing url")
		}
		method, _ := argString(args, 1)
		if method == "" {
			method = "GET"
		}
		req := HTTPRequest{Op: kind, URL: u, Method: strings.ToUpper(method)}
		if payload, ok := argString(args, 2); ok {
			req.Payload = []byte(payload)
		}
		return req
	}
	return Unmodeled{Name: name, Args: args}
}

func malformed(kind EventKind, reason string) Malformed {
	return Malformed{Op: kind, Reason: reason}
}

func decodeOpen(args []any) Event {
	if len(args) == 0 {
		return malformed(KindOpen, "missing path")
	}
	if _, ok := toInt(args[0]); ok {
		return FileOpen{Descriptor: true}
	}
	p, ok := toString(args[0])
	if !ok {
		return malformed(KindOpen, "path is not a string")
	}
	mode := "r"
	if m, ok := argString(args, 1); ok && m != "" {
		mode = m
	}
	return FileOpen{Path: p, Mode: mode}
}

func decodeSpawn(kind EventKind, args []any, exeIdx, argvIdx int) Event {
	exe, _ := argString(args, exeIdx)
	var argv []string
	if len(args) > argvIdx && args[argvIdx] != nil {
		list, ok := toStrings(args[argvIdx])
		if !ok {
			// A single string is a command line passed without a list.
			s, isStr := toString(args[argvIdx])
			if !isStr {
				return malformed(kind, "argv is not a list")
			}
			list = []string{s}
		}
		argv = list
	}
	if exe == "" {
		if len(argv) == 0 {
			return malformed(kind, "missing executable")
		}
		exe, argv = argv[0], argv[1:]
	} else if len(argv) > 0 && path.Base(argv[0]) == path.Base(exe) {
		argv = argv[1:]
	}
	return ProcessSpawn{Op: kind, Executable: exe, Argv: argv}
}

func decodeConnect(args []any) Event {
	if len(args) < 2 {
		return malformed(KindConnect, "missing address")
	}
	switch addr := args[1].(type) {
	case string:
		// AF_UNIX socket path; not a network action.
		return Unmodeled{Name: KindConnect.String(), Args: args}
	case []any:
		if len(addr) < 2 {
			return malformed(KindConnect, "short address")
		}
		host, ok := toString(addr[0])
		if !ok {
			return malformed(KindConnect, "address host is not a string")
		}
		port, ok := argPort(addr[1])
		if !ok {
			return malformed(KindConnect, "invalid port")
		}
		return SocketConnect{Host: host, Port: port}
	}
	return malformed(KindConnect, fmt.Sprintf("unsupported address %T", args[1]))
}

var servicePorts = map[string]int{"http": 80, "https": 443, "ftp": 21, "ssh": 22, "smtp": 25, "dns": 53}

func argPort(v any) (int, bool) {
	if n, ok := toInt(v); ok {
		return n, n >= 0 && n <= 65535
	}
	s, ok := toString(v)
	if !ok {
		return 0, false
	}
	if p, ok := servicePorts[strings.ToLower(s)]; ok {
		return p, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 65535 {
		return 0, false
	}
	return n, true
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	return toString(args[i])
}

func argInt(args []any, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return toInt(args[i])
}

func toString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	}
	return "", false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint16:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

func toStrings(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := toString(item)
			if !ok {
				if n, isInt := toInt(item); isInt {
					s = strconv.Itoa(n)
				} else {
					return nil, false
				}
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
