package dispatch

import "strconv"

// state tracks the lifecycle of a single request.
type state uint8

const (
	stateReceived state = iota
	stateParsed
	stateResolved
	stateExecuting
	stateFinalized
)

var stateNames = [...]string{
	stateReceived:  "received",
	stateParsed:    "parsed",
	stateResolved:  "resolved",
	stateExecuting: "executing",
	stateFinalized: "finalized",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// exchange is the per-request state machine. index is the position of the
// pipeline entry currently executing.
type exchange struct {
	state state
	index int
}

func (e *exchange) String() string {
	if e.state == stateExecuting {
		return e.state.String() + "(" + strconv.Itoa(e.index) + ")"
	}
	return e.state.String()
}
