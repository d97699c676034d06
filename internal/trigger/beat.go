package trigger

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBeatInterval is one beat per second.
const DefaultBeatInterval = time.Second

// Beat is one BeatReady event.
type Beat struct {
	N  uint64    `json:"n"`
	At time.Time `json:"at"`
}

// BeatClock posts a Beat every interval while armed. It is disarmed between
// rounds so no beat fires on the title or replay screens.
type BeatClock struct {
	interval time.Duration
	beats    chan Beat

	mu    sync.Mutex
	armed bool
	n     uint64
	rearm chan struct{}
}

func NewBeatClock(interval time.Duration) *BeatClock {
	if interval <= 0 {
		interval = DefaultBeatInterval
	}
	return &BeatClock{
		interval: interval,
		beats:    make(chan Beat, 1),
		rearm:    make(chan struct{}, 1),
	}
}

// Arm enables beats. The first beat arrives one full interval later.
func (b *BeatClock) Arm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = true
	select {
	case b.rearm <- struct{}{}:
	default:
	}
}

// Disarm stops beats and drops one that was posted but not consumed.
func (b *BeatClock) Disarm() {
	b.mu.Lock()
	b.armed = false
	b.mu.Unlock()
	b.Drain()
}

// Drain drops a pending beat, if any.
func (b *BeatClock) Drain() {
	select {
	case <-b.beats:
	default:
	}
}

func (b *BeatClock) Armed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.armed
}

// Count is the number of beats fired so far.
func (b *BeatClock) Count() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Beats delivers BeatReady events. Unconsumed beats coalesce.
func (b *BeatClock) Beats() <-chan Beat { return b.beats }

// Run drives the clock until ctx is done.
func (b *BeatClock) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.rearm:
			restart(ticker, b.interval)
		case t := <-ticker.C:
			if b.fire(t) {
				restart(ticker, b.interval)
			}
		case <-ctx.Done():
			return
		}
	}
}

// restart begins a new phase and drops a tick already buffered from the
// old one.
func restart(t *time.Ticker, d time.Duration) {
	t.Reset(d)
	select {
	case <-t.C:
	default:
	}
}

// fire posts a beat for tick t. It reports true, posting nothing, when an
// Arm is pending: the tick then belongs to the phase being replaced.
func (b *BeatClock) fire(t time.Time) (rearmed bool) {
	b.mu.Lock()
	if !b.armed {
		b.mu.Unlock()
		return false
	}
	select {
	case <-b.rearm:
		b.mu.Unlock()
		return true
	default:
	}
	b.n++
	beat := Beat{N: b.n, At: t}
	b.mu.Unlock()

	select {
	case b.beats <- beat:
	default:
		// previous beat still pending; it stands for this one too
		log.Debug().Uint64("beat", beat.N).Msg("beat coalesced")
	}
	return false
}
