package feedback

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

const (
	// RecordRate is the sample rate of recorded buzzer audio.
	RecordRate = 8000
	// maxGap caps the silence written between two tones, so the idle time
	// spent on menus does not bloat the file.
	maxGap = 2 * time.Second

	amplitude = 1 << 13
)

// Recorder writes the buzzer output as a mono 16-bit WAV file: every tone
// becomes a square wave, the time between tones becomes silence.
type Recorder struct {
	mu   sync.Mutex
	f    *os.File
	enc  *wav.Encoder
	now  func() time.Time
	mark time.Time
	freq physic.Frequency
	err  error
}

// NewRecorder creates path and starts recording.
func NewRecorder(path string) (*Recorder, error) {
	return newRecorder(path, time.Now)
}

func newRecorder(path string, now func() time.Time) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	return &Recorder{
		f:    f,
		enc:  wav.NewEncoder(f, RecordRate, 16, 1, 1),
		now:  now,
		mark: now(),
	}, nil
}

// flush writes the segment since the last mark at the current frequency.
func (r *Recorder) flush() {
	t := r.now()
	d := t.Sub(r.mark)
	r.mark = t
	if d <= 0 || r.err != nil {
		return
	}
	if r.freq == 0 && d > maxGap {
		d = maxGap
	}
	n := int(d * RecordRate / time.Second)
	if n == 0 {
		return
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: RecordRate},
		Data:           squareWave(r.freq, n),
		SourceBitDepth: 16,
	}
	if err := r.enc.Write(buf); err != nil {
		r.err = err
		log.Warn().Err(err).Msg("recorder write failed; recording stopped")
	}
}

// squareWave renders n samples of a square wave at f; f == 0 is silence.
func squareWave(f physic.Frequency, n int) []int {
	out := make([]int, n)
	if f == 0 {
		return out
	}
	// phase of sample i is i*f/(RecordRate*Hz); physic.Frequency is integral µHz
	period := int64(RecordRate) * int64(physic.Hertz)
	for i := range out {
		phase := (int64(i) * int64(f)) % period
		if phase < period/2 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out
}

func (r *Recorder) Tone(d stick.Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	r.freq = ToneFrequency(d)
}

func (r *Recorder) Silence() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush()
	r.freq = 0
}

func (r *Recorder) Strike(int) {}

func (r *Recorder) Reset() { r.Silence() }

// Close finishes the WAV header and the file. A tone still sounding is
// written up to now.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.freq != 0 {
		r.flush()
	}
	err := r.enc.Close()
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = r.err
	}
	return err
}
