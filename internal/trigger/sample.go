package trigger

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// DefaultSampleInterval is one stick conversion every 3277 ticks of a 32768 Hz clock.
const DefaultSampleInterval = 100 * time.Millisecond

// Sampler is the part of stick.Sampler the clock drives.
type Sampler interface {
	Sample(ctx context.Context) (stick.Reading, error)
}

// SampleClock starts one conversion per tick.
type SampleClock struct {
	Interval time.Duration
	Sampler  Sampler
	// OnSample, if set, sees every completed reading.
	OnSample func(stick.Reading)

	failures atomic.Uint64
}

// Run ticks until ctx is done. Conversion errors are logged and counted;
// the clock keeps running.
func (c *SampleClock) Run(ctx context.Context) {
	iv := c.Interval
	if iv <= 0 {
		iv = DefaultSampleInterval
	}
	ticker := time.NewTicker(iv)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r, err := c.Sampler.Sample(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				n := c.failures.Add(1)
				log.Warn().Err(err).Uint64("failures", n).Msg("stick conversion failed")
				continue
			}
			if c.OnSample != nil {
				c.OnSample(r)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Failures is the number of failed conversions.
func (c *SampleClock) Failures() uint64 { return c.failures.Load() }
