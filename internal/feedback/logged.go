package feedback

import (
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// Logged reports every call at debug level before passing it on.
type Logged struct {
	Next Feedback
}

func (l Logged) Strike(n int) {
	lamps := StrikeLamps(n)
	log.Debug().Int("strikes", n).
		Bool("green", lamps[Green]).Bool("yellow", lamps[Yellow]).Bool("red", lamps[Red]).
		Msg("feedback strike")
	l.Next.Strike(n)
}

func (l Logged) Tone(d stick.Direction) {
	log.Debug().Str("dir", d.String()).Str("freq", ToneFrequency(d).String()).Msg("feedback tone")
	l.Next.Tone(d)
}

func (l Logged) Silence() {
	log.Debug().Msg("feedback silence")
	l.Next.Silence()
}

func (l Logged) Reset() {
	log.Debug().Msg("feedback reset")
	l.Next.Reset()
}

func (l Logged) Close() error { return l.Next.Close() }
