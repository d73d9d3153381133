package round

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"promptcanvas/internal/catalog"
	"promptcanvas/internal/imagegen"
)

const DefaultRoundSeconds = 60

var (
	ErrNotPlaying      = errors.New("round is not playing")
	ErrPipelinePending = errors.New("a submission is already in flight")
	ErrPromptTooShort  = errors.New("prompt too short")
	ErrRoundSuperseded = errors.New("round was restarted while generating")
)

// Scorer computes the 0..100 similarity between two encoded images.
type Scorer interface {
	Score(refBytes, candBytes []byte) (int, error)
}

// ImageSource resolves a catalog image ref to its encoded bytes.
type ImageSource interface {
	Load(ref string) ([]byte, error)
}

// Controller owns the round state machine: the countdown timer, the
// one-in-flight generate+score pipeline, and the attempt log. All state is
// guarded by a single mutex; nothing else holds a writable reference.
type Controller struct {
	// RoundSeconds and TickInterval may be set before the first Start.
	// A zero TickInterval disables the internal ticker so tests can drive
	// Tick directly.
	RoundSeconds int
	TickInterval time.Duration

	cat      *catalog.Catalog
	provider imagegen.Provider
	scorer   Scorer
	images   ImageSource

	mu        sync.Mutex
	rng       *rand.Rand
	roundID   string
	status    Status
	remaining int
	reference catalog.ReferenceImage
	attempts  []Attempt
	bestScore int
	pending   bool
	rev       uint64
	stopTick  chan struct{}
	onChange  func(Snapshot)

	// serializes onChange delivery; notified is the highest revision handed
	// to the hook so a late goroutine cannot deliver an older snapshot
	notifyMu sync.Mutex
	notified uint64
}

func NewController(cat *catalog.Catalog, provider imagegen.Provider, scorer Scorer, images ImageSource, rng *rand.Rand) *Controller {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Controller{
		RoundSeconds: DefaultRoundSeconds,
		cat:          cat,
		provider:     provider,
		scorer:       scorer,
		images:       images,
		rng:          rng,
		status:       StatusIdle,
	}
}

// SetOnChange registers a hook invoked with a fresh snapshot after every
// state transition. Must be set before Start.
func (c *Controller) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Start begins a new round: picks a reference (excluding the previous one
// once a round has run), resets the timer and attempt log, and arms the
// ticker. Callable from any state; a running ticker is cancelled first so no
// stale tick can fire against the new round.
func (c *Controller) Start() Snapshot {
	c.mu.Lock()
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
	exclude := ""
	if c.roundID != "" {
		exclude = c.reference.ID
	}
	c.reference = c.cat.PickRandom(c.rng, exclude)
	c.roundID = uuid.NewString()
	c.status = StatusPlaying
	c.remaining = c.RoundSeconds
	c.attempts = nil
	c.bestScore = 0
	c.pending = false
	c.rev++
	if c.TickInterval > 0 {
		stop := make(chan struct{})
		c.stopTick = stop
		go c.tickLoop(stop, c.roundID)
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	log.Info().Str("roundId", snap.RoundID).Str("reference", snap.Reference.ID).Msg("round started")
	c.notify(snap)
	return snap
}

// Restart is Start; the different-reference guarantee holds because Start
// always excludes the current reference id once one has been drawn.
func (c *Controller) Restart() Snapshot {
	return c.Start()
}

func (c *Controller) tickLoop(stop chan struct{}, roundID string) {
	t := time.NewTicker(c.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !c.tick(roundID) {
				return
			}
		}
	}
}

// Tick decrements the countdown by one second. At zero the round finishes
// and the timer freezes. Returns false once the round is no longer playing;
// no-op when called in any other state.
func (c *Controller) Tick() bool {
	return c.tick("")
}

// tick applies one timer step. A non-empty roundID pins the step to that
// round so a ticker goroutine outlived by a restart cannot touch the
// successor round.
func (c *Controller) tick(roundID string) bool {
	c.mu.Lock()
	if roundID != "" && c.roundID != roundID {
		c.mu.Unlock()
		return false
	}
	if c.status != StatusPlaying {
		c.mu.Unlock()
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.status = StatusFinished
		c.stopTick = nil
	}
	playing := c.status == StatusPlaying
	c.rev++
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if !playing {
		log.Info().Str("roundId", snap.RoundID).Int("attempts", len(snap.Attempts)).Int("bestScore", snap.BestScore).Msg("round finished")
	}
	c.notify(snap)
	return playing
}

// SubmitPrompt runs one generate+score pipeline. Rejections (wrong state,
// pipeline already pending, prompt too short) happen before any network call
// and leave the state untouched. At most one pipeline is in flight at a
// time. If the timer expires mid-flight the result is still recorded; if the
// round was restarted mid-flight it is dropped.
func (c *Controller) SubmitPrompt(ctx context.Context, text string) (*Attempt, error) {
	prompt := strings.TrimSpace(text)

	c.mu.Lock()
	if c.status != StatusPlaying {
		c.mu.Unlock()
		return nil, ErrNotPlaying
	}
	if c.pending {
		c.mu.Unlock()
		return nil, ErrPipelinePending
	}
	if len(prompt) <= 3 {
		c.mu.Unlock()
		return nil, ErrPromptTooShort
	}
	c.pending = true
	roundID := c.roundID
	refImage := c.reference
	c.mu.Unlock()

	// pending must never survive the pipeline, whatever the exit path
	defer func() {
		c.mu.Lock()
		if c.roundID == roundID {
			c.pending = false
			c.rev++
		}
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(snap)
	}()

	result, err := c.provider.Generate(ctx, prompt)
	if err != nil {
		log.Warn().Err(err).Str("roundId", roundID).Msg("generation failed")
		return nil, err
	}

	refBytes, err := c.images.Load(refImage.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("loading reference %q: %w", refImage.ID, err)
	}
	score, err := c.scorer.Score(refBytes, result.Image)
	if err != nil {
		log.Warn().Err(err).Str("roundId", roundID).Msg("scoring failed")
		return nil, err
	}

	dataURI := "data:" + result.ContentType + ";base64," + base64.StdEncoding.EncodeToString(result.Image)

	c.mu.Lock()
	if c.roundID != roundID {
		c.mu.Unlock()
		return nil, ErrRoundSuperseded
	}
	att := Attempt{
		ID:            uuid.NewString(),
		Prompt:        prompt,
		ImageDataURI:  dataURI,
		Seed:          result.Seed,
		Score:         score,
		SequenceIndex: len(c.attempts),
	}
	c.attempts = append([]Attempt{att}, c.attempts...)
	if score > c.bestScore {
		c.bestScore = score
	}
	c.mu.Unlock()

	log.Info().Str("roundId", roundID).Int("score", score).Int("seed", result.Seed).Msg("attempt recorded")
	return &att, nil
}

// Stop cancels the ticker without touching the rest of the state. Used on
// shutdown.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
	c.mu.Unlock()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	attempts := make([]Attempt, len(c.attempts))
	copy(attempts, c.attempts)
	return Snapshot{
		RoundID:          c.roundID,
		Status:           c.status,
		RemainingSeconds: c.remaining,
		Reference:        c.reference,
		Attempts:         attempts,
		BestScore:        c.bestScore,
		PendingPipeline:  c.pending,
		Revision:         c.rev,
	}
}

func (c *Controller) notify(snap Snapshot) {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if snap.Revision <= c.notified {
		return
	}
	c.notified = snap.Revision
	fn(snap)
}
