package stick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotSampled is returned by MustLatest before the first conversion.
var ErrNotSampled = errors.New("stick: no conversion completed yet")

// Source is the dual-channel converter: one call converts X then Y.
type Source interface {
	Convert(ctx context.Context) (x, y uint16, err error)
}

// Sampler owns the latest reading. Sample is the only writer; readers take
// snapshots through Latest or consume SampleReady events from Updates.
type Sampler struct {
	src Source
	now func() time.Time

	mu     sync.Mutex
	latest Reading
	valid  bool
	seq    uint64

	updates chan Reading
}

func NewSampler(src Source) *Sampler {
	return &Sampler{
		src:     src,
		now:     time.Now,
		updates: make(chan Reading, 1),
	}
}

// Sample runs one conversion, stores it and posts it on Updates. An unread
// reading on Updates is replaced, so consumers always see the newest one.
func (s *Sampler) Sample(ctx context.Context) (Reading, error) {
	x, y, err := s.src.Convert(ctx)
	if err != nil {
		return Reading{}, fmt.Errorf("convert: %w", err)
	}
	r := NewReading(x, y)
	r.At = s.now()

	s.mu.Lock()
	s.seq++
	r.Seq = s.seq
	s.latest = r
	s.valid = true
	s.mu.Unlock()

	s.post(r)
	return r, nil
}

func (s *Sampler) post(r Reading) {
	for {
		select {
		case s.updates <- r:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

// Latest returns the newest reading; ok is false until a conversion completed.
func (s *Sampler) Latest() (r Reading, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.valid
}

// MustLatest is Latest with ErrNotSampled instead of a flag.
func (s *Sampler) MustLatest() (Reading, error) {
	r, ok := s.Latest()
	if !ok {
		return Reading{}, ErrNotSampled
	}
	return r, nil
}

// Count is the number of completed conversions.
func (s *Sampler) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Updates delivers SampleReady events. Single consumer.
func (s *Sampler) Updates() <-chan Reading { return s.updates }
