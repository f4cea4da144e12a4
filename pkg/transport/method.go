package transport

import (
	"fmt"
	"runtime"
	"strings"
)

// Method is one way of talking to the debug server.
type Method string

const (
	MethodStdio Method = "stdio"
	MethodPipe  Method = "pipe"
	MethodTCP   Method = "tcp"
)

// Methods returns every method supported on this platform, in run order.
func Methods() []Method {
	methods := []Method{MethodStdio}
	// Windows named pipes cannot be dialled through package net.
	if runtime.GOOS != "windows" {
		methods = append(methods, MethodPipe)
	}
	return append(methods, MethodTCP)
}

// ParseMethods validates names against Methods. An empty list selects all
// methods. Duplicates are dropped, order is preserved.
func ParseMethods(names []string) ([]Method, error) {
	if len(names) == 0 {
		return Methods(), nil
	}

	supported := make(map[Method]bool)
	for _, m := range Methods() {
		supported[m] = true
	}

	seen := make(map[Method]bool)
	var out []Method
	for _, name := range names {
		m := Method(strings.ToLower(strings.TrimSpace(name)))
		if m == "" {
			continue
		}
		if !supported[m] {
			return nil, fmt.Errorf("unsupported transport method %q", name)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return Methods(), nil
	}
	return out, nil
}

func (m Method) String() string {
	return string(m)
}
