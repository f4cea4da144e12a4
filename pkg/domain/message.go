package domain

import "encoding/json"

// Message is a decoded protocol packet. The server speaks untyped JSON, so
// the driver keeps the generic representation and only interprets a handful
// of well known keys.
type Message map[string]any

// State returns the State field and whether it was present as a string.
func (m Message) State() (DebuggerState, bool) {
	v, ok := m[KeyState]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return DebuggerState(s), true
}

// IsState reports whether the message carries the given state.
func (m Message) IsState(state DebuggerState) bool {
	s, ok := m.State()
	return ok && s == state
}

// HasPID reports whether the message carries a process identifier.
func (m Message) HasPID() bool {
	_, ok := m[KeyPID]
	return ok
}

// Backtrace returns the frames of the Backtrace field. Frames that are not
// JSON objects are skipped.
func (m Message) Backtrace() []map[string]any {
	raw, ok := m[KeyBacktrace].([]any)
	if !ok {
		return nil
	}
	frames := make([]map[string]any, 0, len(raw))
	for _, f := range raw {
		if frame, ok := f.(map[string]any); ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m == nil {
		return nil
	}
	return Message(cloneValue(map[string]any(m)).(map[string]any))
}

// String renders the message as compact JSON for logs.
func (m Message) String() string {
	data, err := json.Marshal(map[string]any(m))
	if err != nil {
		return "<unprintable message>"
	}
	return string(data)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Message:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
