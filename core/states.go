package assistant

import "fmt"

type State int

const (
	StateListening State = iota
	// StateWakeDetected is only ever passed through on the way from
	// listening to recording.
	StateWakeDetected
	StateRecording
	StateRouting
	StateAwaitingPermission
	StateSpeaking
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateWakeDetected:
		return "wake_detected"
	case StateRecording:
		return "recording"
	case StateRouting:
		return "routing"
	case StateAwaitingPermission:
		return "awaiting_permission"
	case StateSpeaking:
		return "speaking"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
