// Command stickdemo streams thumbstick positions as framed telemetry, or
// decodes such a stream.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-boogie/internal/frame"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
	"github.com/coreman2200/funtimes-boogie/internal/trigger"
	"github.com/coreman2200/funtimes-boogie/internal/uart"
)

func main() {
	var (
		port     = flag.String("port", "", "serial port; empty uses stdout (or stdin with -decode)")
		baud     = flag.Int("baud", uart.DefaultBaud, "serial baud rate")
		script   = flag.String("script", "", "stick script yaml; empty sweeps a virtual stick")
		sampleMs = flag.Int("sample-ms", 100, "sample period (ms)")
		legacy   = flag.Bool("legacy", false, "use the 9-byte unversioned frame")
		decode   = flag.Bool("decode", false, "read frames and log them instead of producing")
		in       = flag.String("in", "", "with -decode: read frames from this file")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rw, closeRW, err := open(*port, *baud, *in, *decode)
	if err != nil {
		log.Fatal().Err(err).Msg("open")
	}
	defer closeRW()

	if *decode {
		err = consume(rw, *legacy)
	} else {
		err = produce(ctx, rw, *script, time.Duration(*sampleMs)*time.Millisecond, *legacy)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("stickdemo")
	}
}

func open(port string, baud int, in string, decode bool) (io.ReadWriter, func(), error) {
	switch {
	case decode && in != "":
		f, err := os.Open(in)
		if err != nil {
			return nil, nil, err
		}
		return struct {
			io.Reader
			io.Writer
		}{f, io.Discard}, func() { f.Close() }, nil
	case port != "":
		p, err := uart.Open(port, baud)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { p.Close() }, nil
	}
	return struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}, func() {}, nil
}

// produce samples the stick on every tick and writes one frame per sample.
func produce(ctx context.Context, w io.Writer, script string, interval time.Duration, legacy bool) error {
	var src stick.Source
	if script != "" {
		s, err := stick.LoadScript(script)
		if err != nil {
			return err
		}
		src = s
	} else {
		src = newSweep()
	}
	ch := uart.NewChannel(w)
	encode := frame.Encode
	if legacy {
		encode = frame.EncodeLegacy
	}

	var writeErr error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	clock := &trigger.SampleClock{
		Interval: interval,
		Sampler:  stick.NewSampler(src),
		OnSample: func(r stick.Reading) {
			if _, err := ch.Write(encode(frame.Frame{X: float32(r.X), Y: float32(r.Y)})); err != nil {
				writeErr = err
				cancel()
				return
			}
			log.Debug().Uint64("seq", r.Seq).Float64("x", r.X).Float64("y", r.Y).Msg("frame")
		},
	}
	clock.Run(ctx)
	if writeErr != nil {
		return writeErr
	}
	log.Info().Uint64("bytes", ch.Sent()).Msg("producer stopped")
	return ctx.Err()
}

// consume logs every decoded frame with the direction it classifies as.
func consume(r io.Reader, legacy bool) error {
	d := frame.NewDecoder(r)
	if legacy {
		d = frame.NewLegacyDecoder(r)
	}
	for {
		f, err := d.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				log.Info().Int("skipped", d.Skipped).Msg("end of stream")
				return nil
			}
			if errors.Is(err, frame.ErrVersion) {
				log.Warn().Err(err).Msg("frame dropped")
				continue
			}
			return err
		}
		x, y := float64(f.X), float64(f.Y)
		log.Info().
			Float64("x", x).
			Float64("y", y).
			Str("dir", stick.Classify(x, y).String()).
			Bool("rest", stick.AtRest(x, y)).
			Msg("stick")
	}
}

// sweep walks a virtual stick around the four directions.
type sweep struct {
	v *stick.Virtual
	n int
}

func newSweep() *sweep { return &sweep{v: stick.NewVirtual()} }

var sweepOrder = [...]stick.Direction{stick.None, stick.Up, stick.None, stick.Right, stick.None, stick.Down, stick.None, stick.Left}

func (s *sweep) Convert(ctx context.Context) (uint16, uint16, error) {
	s.v.Push(sweepOrder[(s.n/5)%len(sweepOrder)])
	s.n++
	return s.v.Convert(ctx)
}
