package domain

// Protocol keys recognised by the driver. Everything else in a message is
// opaque and compared verbatim.
const (
	KeyPID       = "PID"
	KeyBacktrace = "Backtrace"
	KeyFile      = "File"
	KeyState     = "State"
	KeyCommand   = "Command"
)

// Script step keys, as written in test files.
const (
	StepKeySend         = "send"
	StepKeySendRaw      = "sendRaw"
	StepKeyRecv         = "recv"
	StepKeyMessage      = "message"
	StepKeyWaitForPause = "waitForPause"
)

// DebuggerState is the value of the State field in server notifications.
type DebuggerState string

const (
	StateRunning DebuggerState = "Running"
	StatePaused  DebuggerState = "Paused"
	StateUnknown DebuggerState = "Unknown"
)
