package feedback

import (
	"image"
	"image/color"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// StripFreq is the SPI clock for the WS2812 encoding.
const StripFreq = 2500 * physic.KiloHertz

var lampColors = [NumLamps]color.NRGBA{
	Green:  {G: 255, A: 255},
	Yellow: {R: 255, G: 160, A: 255},
	Red:    {R: 255, A: 255},
}

// Strip shows the strike lamps as the first three pixels of an addressable
// LED strip. It has no buzzer.
type Strip struct {
	mu     sync.Mutex
	drawer display.Drawer
	img    *image.NRGBA
	closer func() error
	// Hardware is false when drawing to the console fallback.
	Hardware bool
}

// NewStrip draws onto any display.Drawer at least three pixels wide.
func NewStrip(d display.Drawer) *Strip {
	return &Strip{
		drawer: d,
		img:    image.NewNRGBA(image.Rect(0, 0, int(NumLamps), 1)),
	}
}

// NewSPIStrip drives a WS2812 strip on an SPI port.
func NewSPIStrip(p spi.Port) (*Strip, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: int(NumLamps),
		Channels:  3,
		Freq:      StripFreq,
	})
	if err != nil {
		return nil, err
	}
	s := NewStrip(d)
	s.Hardware = true
	return s, nil
}

// OpenStrip opens the named SPI port (host.Init must have run). Without an
// SPI port it falls back to printing the pixels on the console.
func OpenStrip(port string) *Strip {
	p, err := spireg.Open(port)
	if err != nil {
		log.Warn().Err(err).Str("spi", port).Msg("no SPI port; strike lamps go to the console")
		return NewStrip(screen.New(int(NumLamps)))
	}
	s, err := NewSPIStrip(p)
	if err != nil {
		log.Warn().Err(err).Str("spi", port).Msg("nrzled init failed; strike lamps go to the console")
		_ = p.Close()
		return NewStrip(screen.New(int(NumLamps)))
	}
	s.closer = p.Close
	return s
}

func (s *Strip) render() {
	if err := s.drawer.Draw(s.drawer.Bounds(), s.img, image.Point{}); err != nil {
		log.Warn().Err(err).Msg("strip draw failed")
	}
}

func (s *Strip) Strike(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l, on := range StrikeLamps(n) {
		if on {
			s.img.SetNRGBA(l, 0, lampColors[l])
		}
	}
	s.render()
}

func (s *Strip) Tone(stick.Direction) {}
func (s *Strip) Silence() {}

func (s *Strip) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for l := 0; l < int(NumLamps); l++ {
		s.img.SetNRGBA(l, 0, color.NRGBA{A: 255})
	}
	s.render()
}

// Lit reports the colour currently shown for l.
func (s *Strip) Lit(l Lamp) color.NRGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img.NRGBAAt(int(l), 0)
}

func (s *Strip) Close() error {
	s.Reset()
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.drawer.Halt()
	if s.closer != nil {
		if cerr := s.closer(); err == nil {
			err = cerr
		}
	}
	return err
}
