package agent

import (
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// turnStatus is the position of a turn in the controller loop.
// AwaitingProviderResponse -> HasToolCalls -> ExecutingTools ->
// AwaitingProviderResponse | Final | Fallback
type turnStatus int

const (
	statusAwaitingProvider turnStatus = iota
	statusHasToolCalls
	statusExecutingTools
	statusFinal
	statusFallback
)

func (s turnStatus) String() string {
	switch s {
	case statusAwaitingProvider:
		return "awaiting_provider_response"
	case statusHasToolCalls:
		return "has_tool_calls"
	case statusExecutingTools:
		return "executing_tools"
	case statusFinal:
		return "final"
	case statusFallback:
		return "fallback"
	}
	return "unknown"
}

// terminal reports whether no transition may follow s.
func (s turnStatus) terminal() bool {
	return s == statusFinal || s == statusFallback
}

// turnState tracks and logs the transitions of one turn.
type turnState struct {
	id     string
	status turnStatus
	round  int
}

func newTurnState(id string) *turnState {
	return &turnState{id: id, status: statusAwaitingProvider}
}

func (ts *turnState) to(next turnStatus) {
	if ts.status.terminal() {
		logger.WarnX(ModuleName, "[TurnState] turn %s already %s, ignoring -> %s", ts.id, ts.status, next)
		return
	}
	logger.DebugX(ModuleName, "[TurnState] turn %s round %d: %s -> %s", ts.id, ts.round, ts.status, next)
	ts.status = next
}

// awaitProvider starts the next round.
func (ts *turnState) awaitProvider() {
	ts.round++
	if ts.round > 1 {
		ts.to(statusAwaitingProvider)
	}
}
