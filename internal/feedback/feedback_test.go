package feedback

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

func TestStrikeLamps(t *testing.T) {
	var tests = []struct {
		strikes int
		want    [NumLamps]bool
	}{
		{0, [NumLamps]bool{false, false, false}},
		{1, [NumLamps]bool{true, false, false}},
		{2, [NumLamps]bool{true, true, false}},
		{3, [NumLamps]bool{true, true, true}},
		{7, [NumLamps]bool{true, true, true}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrikeLamps(tt.strikes), "strikes=%d", tt.strikes)
	}
}

func TestStrikeLevel(t *testing.T) {
	var tests = []struct {
		limit int
		want  []int // level after 1, 2, ... limit strikes
	}{
		{3, []int{1, 2, 3}},
		{0, []int{1, 2, 3}},
		{1, []int{3}},
		{2, []int{1, 3}},
		{5, []int{1, 1, 1, 2, 3}},
		{6, []int{1, 1, 1, 2, 2, 3}},
	}
	for _, tt := range tests {
		var got []int
		n := tt.limit
		if n <= 0 {
			n = 3
		}
		for i := 1; i <= n; i++ {
			got = append(got, StrikeLevel(i, tt.limit))
		}
		assert.Equal(t, tt.want, got, "limit=%d", tt.limit)
		assert.Equal(t, 0, StrikeLevel(0, tt.limit))
		assert.Equal(t, 3, StrikeLevel(n+2, tt.limit))
	}
}

func TestToneFrequency(t *testing.T) {
	up := ToneFrequency(stick.Up)
	assert.InDelta(t, 963.76, float64(up)/float64(physic.Hertz), 0.01)
	seen := map[physic.Frequency]bool{}
	for _, d := range []stick.Direction{stick.Up, stick.Down, stick.Left, stick.Right} {
		f := ToneFrequency(d)
		assert.NotZero(t, f)
		assert.False(t, seen[f], "one pitch per direction")
		seen[f] = true
	}
	assert.Zero(t, ToneFrequency(stick.None))
	// up is the highest pitch, down the lowest
	assert.Greater(t, int64(ToneFrequency(stick.Up)), int64(ToneFrequency(stick.Left)))
	assert.Greater(t, int64(ToneFrequency(stick.Right)), int64(ToneFrequency(stick.Down)))
}

func newTestGPIO() (*GPIO, []*gpiotest.Pin) {
	pins := []*gpiotest.Pin{
		{N: "GREEN", Num: 1},
		{N: "YELLOW", Num: 2},
		{N: "RED", Num: 3},
		{N: "BUZZ", Num: 4},
	}
	return NewGPIO(pins[0], pins[1], pins[2], pins[3]), pins
}

func TestGPIOStrikesLatch(t *testing.T) {
	g, pins := newTestGPIO()

	g.Strike(1)
	assert.Equal(t, gpio.High, pins[0].L)
	assert.Equal(t, gpio.Low, pins[1].L)

	g.Strike(2)
	g.Strike(3)
	for i := 0; i < 3; i++ {
		assert.Equal(t, gpio.High, pins[i].L, "lamp %d", i)
	}

	g.Reset()
	for i := 0; i < 3; i++ {
		assert.Equal(t, gpio.Low, pins[i].L, "lamp %d", i)
	}
}

func TestGPIOBuzzer(t *testing.T) {
	g, pins := newTestGPIO()
	g.Tone(stick.Down)
	assert.Equal(t, ToneFrequency(stick.Down), pins[3].F)
	assert.Equal(t, gpio.DutyHalf, pins[3].D)

	g.Silence()
	assert.Equal(t, gpio.Low, pins[3].L)
	require.NoError(t, g.Close())
}

func TestSPIStrip(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewSPIStrip(spitest.NewRecordRaw(&buf))
	require.NoError(t, err)
	assert.True(t, s.Hardware)

	s.Strike(2)
	assert.Equal(t, lampColors[Green], s.Lit(Green))
	assert.Equal(t, lampColors[Yellow], s.Lit(Yellow))
	assert.Equal(t, color.NRGBA{}, s.Lit(Red))
	assert.NotZero(t, buf.Len(), "frame pushed to the SPI port")

	n := buf.Len()
	s.Reset()
	assert.Equal(t, color.NRGBA{A: 255}, s.Lit(Green))
	assert.Greater(t, buf.Len(), n)
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tones.wav")
	t0 := time.Unix(1000, 0)
	now := t0
	r, err := newRecorder(path, func() time.Time { return now })
	require.NoError(t, err)

	r.Tone(stick.Up)
	now = now.Add(100 * time.Millisecond)
	r.Silence()
	now = now.Add(time.Hour) // long menu pause is capped
	r.Tone(stick.Left)
	now = now.Add(50 * time.Millisecond)
	require.NoError(t, r.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	d := wav.NewDecoder(f)
	require.True(t, d.IsValidFile())
	pcm, err := d.FullPCMBuffer()
	require.NoError(t, err)

	want := 800 + int(maxGap/time.Second)*RecordRate + 400
	assert.Len(t, pcm.Data, want)
	assert.NotZero(t, pcm.Data[0], "tone segment is audible")
	assert.Zero(t, pcm.Data[900], "gap is silent")
}

func TestSquareWave(t *testing.T) {
	// 1 kHz at 8 kHz: four samples high, four low
	w := squareWave(1000*physic.Hertz, 16)
	for i, v := range w {
		if i%8 < 4 {
			assert.Equal(t, amplitude, v, "sample %d", i)
		} else {
			assert.Equal(t, -amplitude, v, "sample %d", i)
		}
	}
}

type countFeedback struct{ strikes, tones, silences, resets, closes int }

func (c *countFeedback) Strike(int) { c.strikes++ }
func (c *countFeedback) Tone(stick.Direction) { c.tones++ }
func (c *countFeedback) Silence() { c.silences++ }
func (c *countFeedback) Reset() { c.resets++ }
func (c *countFeedback) Close() error { c.closes++; return nil }

func TestMultiAndLogged(t *testing.T) {
	a, b := &countFeedback{}, &countFeedback{}
	m := Multi{Logged{Next: a}, b, Nop{}}
	m.Strike(1)
	m.Tone(stick.Up)
	m.Silence()
	m.Reset()
	require.NoError(t, m.Close())
	for _, c := range []*countFeedback{a, b} {
		assert.Equal(t, countFeedback{1, 1, 1, 1, 1}, *c)
	}
}
