package testutils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
)

// Fake debugger modes.
const (
	// ModeNormal pauses at breakpoints and hangs up when the project ends.
	ModeNormal = ""
	// ModeStall reports Running on Continue and never pauses again.
	ModeStall = "stall"
	// ModeExecuting reports the non-standard state "Executing" on connect.
	ModeExecuting = "executing"
	// ModeDeaf never opens its endpoint and lingers until killed.
	ModeDeaf = "deaf"
)

// ProjectFile is the script every fake frame points into, relative to the
// source directory.
const ProjectFile = "buildsystem1/CMakeLists.txt"

// FakeDebugger speaks the debug server wire protocol well enough to drive
// conformance scripts in tests. It starts paused on line 1 of ProjectFile.
type FakeDebugger struct {
	SourceDir string
	PID       int
	Mode      string
	// Variables answers Evaluate requests.
	Variables map[string]string
	// LastLine is where the project ends; Continue past it hangs up.
	LastLine int

	mu          sync.Mutex
	line        int
	breakpoints map[int]bool
}

// NewFakeDebugger returns a debugger whose frames live under sourceDir.
func NewFakeDebugger(sourceDir string) *FakeDebugger {
	return &FakeDebugger{
		SourceDir: sourceDir,
		PID:       4242,
		LastLine:  10,
		Variables: map[string]string{},
	}
}

// Serve runs the protocol over rw until the peer hangs up or the project
// finishes. It returns nil in both cases.
func (f *FakeDebugger) Serve(rw io.ReadWriter) error {
	f.mu.Lock()
	f.line = 1
	f.breakpoints = map[int]bool{}
	f.mu.Unlock()

	enc := json.NewEncoder(rw)
	dec := json.NewDecoder(rw)

	initial := f.paused()
	if f.Mode == ModeExecuting {
		initial["State"] = "Executing"
	}
	if err := enc.Encode(initial); err != nil {
		return ignoreHangup(err)
	}

	for {
		var req map[string]any
		if err := dec.Decode(&req); err != nil {
			return ignoreHangup(err)
		}
		replies, done := f.handle(req)
		for _, r := range replies {
			if err := enc.Encode(r); err != nil {
				return ignoreHangup(err)
			}
		}
		if done {
			return nil
		}
	}
}

func (f *FakeDebugger) handle(req map[string]any) ([]map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch req["Command"] {
	case "AddBreakpoint":
		if line, ok := req["Line"].(float64); ok {
			f.breakpoints[int(line)] = true
		}
		return nil, false
	case "RemoveBreakpoint":
		if line, ok := req["Line"].(float64); ok {
			delete(f.breakpoints, int(line))
		}
		return nil, false
	case "ClearBreakpoints":
		f.breakpoints = map[int]bool{}
		return nil, false
	case "Break":
		return []map[string]any{f.pausedLocked()}, false
	case "Evaluate":
		request, _ := req["Request"].(string)
		return []map[string]any{{"Request": request, "Response": f.Variables[request]}}, false
	case "StepIn", "StepOut", "StepOver":
		running := f.running()
		if f.line >= f.LastLine {
			return []map[string]any{running}, true
		}
		f.line++
		return []map[string]any{running, f.pausedLocked()}, false
	case "Continue":
		running := f.running()
		if f.Mode == ModeStall {
			return []map[string]any{running}, false
		}
		next, ok := f.nextBreakpoint()
		if !ok {
			return []map[string]any{running}, true
		}
		f.line = next
		return []map[string]any{running, f.pausedLocked()}, false
	}
	return []map[string]any{{"Error": fmt.Sprintf("Unknown command %v", req["Command"])}}, false
}

func (f *FakeDebugger) nextBreakpoint() (int, bool) {
	lines := make([]int, 0, len(f.breakpoints))
	for l := range f.breakpoints {
		if l > f.line && l <= f.LastLine {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return 0, false
	}
	sort.Ints(lines)
	return lines[0], true
}

func (f *FakeDebugger) paused() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pausedLocked()
}

func (f *FakeDebugger) pausedLocked() map[string]any {
	return map[string]any{
		"PID":   f.PID,
		"State": "Paused",
		"Backtrace": []any{
			map[string]any{
				"ID":   0,
				"File": filepath.ToSlash(filepath.Join(f.SourceDir, ProjectFile)),
				"Line": f.line,
				"Name": "message",
				"Type": "Function",
			},
		},
	}
}

func (f *FakeDebugger) running() map[string]any {
	return map[string]any{"PID": f.PID, "State": "Running"}
}

func ignoreHangup(err error) error {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) {
		return nil
	}
	return err
}
