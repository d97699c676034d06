package feedback

import (
	"errors"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// Feedback is the optional LED and buzzer side of the game. The controller
// calls it at fixed points; implementations that lack a capability ignore
// the call.
type Feedback interface {
	// Strike lights n lamps, see StrikeLevel.
	Strike(n int)
	// Tone starts the buzzer at the pitch for d.
	Tone(d stick.Direction)
	// Silence stops the buzzer.
	Silence()
	// Reset turns every lamp off and silences the buzzer.
	Reset()
	Close() error
}

// Lamp indexes the three strike lamps.
type Lamp int

const (
	Green Lamp = iota
	Yellow
	Red
	NumLamps
)

func (l Lamp) String() string {
	switch l {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	}
	return "?"
}

// StrikeLamps reports which lamps are lit after n strikes: one per strike,
// green first, red from the third on.
func StrikeLamps(n int) [NumLamps]bool {
	var on [NumLamps]bool
	for l := Green; l < NumLamps; l++ {
		on[l] = n > int(l)
	}
	return on
}

// StrikeLevel maps n strikes against a strike limit onto the lamp scale:
// the red lamp means the limit is reached, and earlier strikes spread over
// green and yellow. A limit of zero or less is the three-strike default.
func StrikeLevel(n, limit int) int {
	if limit <= 0 {
		limit = int(NumLamps)
	}
	switch {
	case n <= 0:
		return 0
	case n >= limit:
		return int(NumLamps)
	}
	level := n * int(NumLamps) / limit
	if level < 1 {
		level = 1
	}
	if level > int(NumLamps)-1 {
		level = int(NumLamps) - 1
	}
	return level
}

// The buzzer is a Timer B output in toggle mode clocked from the 32768 Hz
// ACLK; each direction loads a different CCR0.
const aclkHz = 32768

var toneCCR0 = map[stick.Direction]int64{
	stick.Up:    16,
	stick.Down:  99,
	stick.Left:  37,
	stick.Right: 75,
}

// ToneFrequency is the buzzer pitch for d, 0 for None.
func ToneFrequency(d stick.Direction) physic.Frequency {
	ccr, ok := toneCCR0[d]
	if !ok {
		return 0
	}
	return physic.Frequency(aclkHz * int64(physic.Hertz) / (2 * (ccr + 1)))
}

// Nop is the feedback of a board without LEDs or buzzer.
type Nop struct{}

func (Nop) Strike(int) {}
func (Nop) Tone(stick.Direction) {}
func (Nop) Silence() {}
func (Nop) Reset() {}
func (Nop) Close() error { return nil }

// Multi fans every call out to each member in order.
type Multi []Feedback

func (m Multi) Strike(n int) {
	for _, f := range m {
		f.Strike(n)
	}
}

func (m Multi) Tone(d stick.Direction) {
	for _, f := range m {
		f.Tone(d)
	}
}

func (m Multi) Silence() {
	for _, f := range m {
		f.Silence()
	}
}

func (m Multi) Reset() {
	for _, f := range m {
		f.Reset()
	}
}

func (m Multi) Close() error {
	var errs []error
	for _, f := range m {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
