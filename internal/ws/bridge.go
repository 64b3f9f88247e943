package ws

import (
	"sync"

	"github.com/rs/zerolog"

	"mes_planner/internal/planner"
)

// Bridge implements planner.Callback and broadcasts events to the WebSocket
// hub, tagged with the current run id.
type Bridge struct {
	hub *Hub
	log zerolog.Logger

	mu    sync.Mutex
	runID string
}

func NewBridge(hub *Hub, log zerolog.Logger) *Bridge {
	return &Bridge{hub: hub, log: log}
}

// SetRun tags subsequent events with id.
func (b *Bridge) SetRun(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runID = id
}

func (b *Bridge) run() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runID
}

func (b *Bridge) broadcast(msgType string, payload any) {
	msg, err := NewEnvelope(msgType, payload)
	if err != nil {
		b.log.Error().Err(err).Str("type", msgType).Msg("marshaling message")
		return
	}
	b.hub.Broadcast(msg)
}

func (b *Bridge) OnStage(u planner.StageUpdate) {
	b.broadcast(TypeRunStage, StageFromRunner(b.run(), u))
}

func (b *Bridge) OnModel(s planner.ModelStats) {
	b.broadcast(TypeRunModel, ModelFromRunner(b.run(), s))
}

func (b *Bridge) OnOutcome(o planner.Outcome) {
	b.broadcast(TypeRunSummary, SummaryFromOutcome(b.run(), o))
}
