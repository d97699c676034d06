package stick

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

// ADC reads the stick through two analog pins. Voltages are mapped onto the
// 12-bit code range against RefVolts, so the rest of the pipeline sees the
// same codes a 12-bit on-chip ADC would produce.
type ADC struct {
	X, Y analog.PinADC

	closers []func() error
}

// Convert reads X then Y.
func (a *ADC) Convert(ctx context.Context) (uint16, uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	sx, err := a.X.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read x: %w", err)
	}
	sy, err := a.Y.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read y: %w", err)
	}
	return voltsToCode(sx.V), voltsToCode(sy.V), nil
}

func voltsToCode(v physic.ElectricPotential) uint16 {
	if v <= 0 {
		return 0
	}
	ref := physic.ElectricPotential(RefVolts * float64(physic.Volt))
	if v >= ref {
		return FullScale
	}
	return uint16((int64(v)*FullScale + int64(ref)/2) / int64(ref))
}

func (a *ADC) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ADS1115Opts selects the bus and channels of a TI ADS1115 wired to the stick.
type ADS1115Opts struct {
	Bus      string // i2creg name, "" for the first bus
	XChannel int    // 0..3
	YChannel int    // 0..3
}

var adsChannels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

// OpenADS1115 opens the bus and both channels. host.Init must have run.
func OpenADS1115(o ADS1115Opts) (*ADC, error) {
	if o.XChannel < 0 || o.XChannel > 3 || o.YChannel < 0 || o.YChannel > 3 {
		return nil, fmt.Errorf("ads1115: channels must be 0..3, got x=%d y=%d", o.XChannel, o.YChannel)
	}
	bus, err := i2creg.Open(o.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", o.Bus, err)
	}
	a, err := newADS1115(bus, o)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	a.closers = append([]func() error{bus.Close}, a.closers...)
	return a, nil
}

func newADS1115(bus i2c.Bus, o ADS1115Opts) (*ADC, error) {
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("ads1115: %w", err)
	}
	// 10 Hz matches the 100 ms sample clock.
	px, err := dev.PinForChannel(adsChannels[o.XChannel], 4*physic.Volt, 10*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("ads1115 x channel: %w", err)
	}
	py, err := dev.PinForChannel(adsChannels[o.YChannel], 4*physic.Volt, 10*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		_ = px.Halt()
		return nil, fmt.Errorf("ads1115 y channel: %w", err)
	}
	return &ADC{X: px, Y: py, closers: []func() error{px.Halt, py.Halt}}, nil
}
