package round

import (
	"promptcanvas/internal/catalog"
)

type Status string

const (
	StatusIdle     Status = "idle"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Attempt is one completed prompt -> generate -> score cycle. Immutable once
// recorded.
type Attempt struct {
	ID            string `json:"id"`
	Prompt        string `json:"prompt"`
	ImageDataURI  string `json:"imageDataUri"`
	Seed          int    `json:"seed"`
	Score         int    `json:"score"`
	SequenceIndex int    `json:"sequenceIndex"`
}

// Snapshot is a point-in-time copy of the round state, safe to hand to
// handlers and the socket layer. Attempts are most-recent-first. Revision
// increases by one per state transition; consumers can drop snapshots that
// arrive out of order.
type Snapshot struct {
	Revision         uint64                 `json:"revision"`
	RoundID          string                 `json:"roundId"`
	Status           Status                 `json:"status"`
	RemainingSeconds int                    `json:"remainingSeconds"`
	Reference        catalog.ReferenceImage `json:"reference"`
	Attempts         []Attempt              `json:"attempts"`
	BestScore        int                    `json:"bestScore"`
	PendingPipeline  bool                   `json:"pendingPipeline"`
}
