package feedback

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// GPIO drives three discrete LEDs and a PWM buzzer.
type GPIO struct {
	mu     sync.Mutex
	lamps  [NumLamps]gpio.PinOut
	buzzer gpio.PinOut // may be nil
}

// NewGPIO wires already-resolved pins. buzzer may be nil.
func NewGPIO(green, yellow, red, buzzer gpio.PinOut) *GPIO {
	return &GPIO{lamps: [NumLamps]gpio.PinOut{green, yellow, red}, buzzer: buzzer}
}

// GPIOPins names the pins in gpioreg, e.g. "GPIO17". An empty Buzzer leaves
// the buzzer out.
type GPIOPins struct {
	Green  string `yaml:"green"`
	Yellow string `yaml:"yellow"`
	Red    string `yaml:"red"`
	Buzzer string `yaml:"buzzer"`
}

// OpenGPIO resolves the pins by name and drives them low. host.Init must
// have run.
func OpenGPIO(p GPIOPins) (*GPIO, error) {
	var pins [4]gpio.PinIO
	for i, name := range []string{p.Green, p.Yellow, p.Red, p.Buzzer} {
		if name == "" {
			if i == 3 {
				continue
			}
			return nil, fmt.Errorf("gpio feedback: %s lamp pin not set", Lamp(i))
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("gpio feedback: no pin %q", name)
		}
		pins[i] = pin
	}
	var buzzer gpio.PinOut
	if pins[3] != nil {
		buzzer = pins[3]
	}
	g := NewGPIO(pins[0], pins[1], pins[2], buzzer)
	g.Reset()
	return g, nil
}

func (g *GPIO) Strike(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for l, on := range StrikeLamps(n) {
		// lamps latch: a strike never turns one off
		if !on {
			continue
		}
		if err := g.lamps[l].Out(gpio.High); err != nil {
			log.Warn().Err(err).Str("lamp", Lamp(l).String()).Msg("lamp on failed")
		}
	}
}

func (g *GPIO) Tone(d stick.Direction) {
	f := ToneFrequency(d)
	if g.buzzer == nil || f == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.buzzer.PWM(gpio.DutyHalf, f); err != nil {
		log.Warn().Err(err).Str("freq", f.String()).Msg("buzzer tone failed")
	}
}

func (g *GPIO) Silence() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.silence()
}

func (g *GPIO) silence() {
	if g.buzzer == nil {
		return
	}
	if err := g.buzzer.Out(gpio.Low); err != nil {
		log.Warn().Err(err).Msg("buzzer off failed")
	}
}

func (g *GPIO) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for l, pin := range g.lamps {
		if err := pin.Out(gpio.Low); err != nil {
			log.Warn().Err(err).Str("lamp", Lamp(l).String()).Msg("lamp off failed")
		}
	}
	g.silence()
}

func (g *GPIO) Close() error {
	g.Reset()
	return nil
}
