package assistant

import (
	"time"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/ziggy/core/router"
)

// Turn records one pass from the wake word to the spoken response.
type Turn struct {
	ID        string
	StartedAt time.Time

	Utterance  string
	Route      router.Decision
	// Permission is nil when the turn never needed to ask.
	Permission *PermissionState
	Response   string

	Interrupted bool
	Err         error
}

func (a *Assistant) recordTurn(turn Turn) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.turns = append(a.turns, turn)
}

// Turns returns a copy of every finished turn, oldest first.
func (a *Assistant) Turns() []Turn {
	a.mu.Lock()
	defer a.mu.Unlock()

	turns := []Turn{}
	if err := copier.CopyWithOption(&turns, a.turns, copier.Option{DeepCopy: true}); err != nil {
		logger.Error("failed to copy turns", "error", err)
		return nil
	}
	return turns
}
