package domain

// Step is one entry of a Script. It is a closed set: only BasicMessage and
// WaitForPause implement it, and the script parser rejects anything else.
type Step interface {
	// Kind returns a short label used in logs and reports.
	Kind() string
	isStep()
}

// BasicMessage sends a request, expects a response, or both.
// At least one of the fields is set.
type BasicMessage struct {
	// Send is a request object encoded as one JSON packet.
	Send Message
	// SendRaw is written to the transport verbatim.
	SendRaw string
	// Expect is compared against the next forwarded (normalized) message.
	Expect Message
	// Note is printed before the step executes.
	Note string
}

// Kind implements Step.
func (BasicMessage) Kind() string {
	return "basic"
}

func (BasicMessage) isStep() {}

// HasRequest reports whether the step writes anything to the server.
func (b BasicMessage) HasRequest() bool {
	return b.Send != nil || b.SendRaw != ""
}

// HasExpectation reports whether the step waits for a response.
func (b BasicMessage) HasExpectation() bool {
	return b.Expect != nil
}

// WaitForPause blocks until the server reports the Paused state.
type WaitForPause struct{}

// Kind implements Step.
func (WaitForPause) Kind() string {
	return "wait_for_pause"
}

func (WaitForPause) isStep() {}

// Script is the ordered list of steps of one test file.
type Script struct {
	// Name identifies the script, usually the file name without extension.
	Name  string
	Steps []Step
}

// Len returns the number of steps.
func (s *Script) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Steps)
}
