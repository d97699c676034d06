package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"periph.io/x/host/v3"

	"github.com/coreman2200/funtimes-boogie/internal/config"
	diag "github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/feedback"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// kinds splits a comma separated feedback list.
func kinds(s string) []string {
	var out []string
	for _, k := range strings.Split(s, ",") {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && k != "none" {
			out = append(out, k)
		}
	}
	return out
}

func needsHost(cfg *config.Config) bool {
	if cfg.Stick.Source == "ads1115" {
		return true
	}
	for _, k := range kinds(cfg.Feedback.Kind) {
		if k == "gpio" || k == "strip" {
			return true
		}
	}
	return false
}

// initHost loads the periph drivers when a hardware device is configured.
// A failure is logged; the device openers then fall back on their own.
func initHost(cfg *config.Config) {
	if !needsHost(cfg) {
		return
	}
	state, err := host.Init()
	if err != nil {
		log.Warn().Err(err).Msg("periph host init failed")
		return
	}
	for _, f := range state.Failed {
		log.Debug().Str("driver", f.D.String()).Err(f.Err).Msg("periph driver failed")
	}
	log.Info().Int("loaded", len(state.Loaded)).Msg("periph host ready")
}

// openFeedback builds every configured output. An output that cannot be
// opened is skipped with a warning.
func openFeedback(cfg *config.Config, sink diag.Sink) feedback.Feedback {
	var m feedback.Multi
	for _, k := range kinds(cfg.Feedback.Kind) {
		switch k {
		case "gpio":
			g, err := feedback.OpenGPIO(cfg.Feedback.GPIO)
			if err != nil {
				driverFallback(sink, k, err)
				continue
			}
			m = append(m, g)
		case "strip":
			s := feedback.OpenStrip(cfg.Feedback.SPI)
			if !s.Hardware {
				driverFallback(sink, k, errors.New("strike lamps printed to the console"))
			}
			m = append(m, s)
		case "record":
			r, err := feedback.NewRecorder(cfg.Feedback.WAV)
			if err != nil {
				driverFallback(sink, k, err)
				continue
			}
			m = append(m, r)
		default:
			log.Warn().Str("feedback", k).Msg("unknown feedback output; ignored")
		}
	}
	if len(m) == 0 {
		return feedback.Logged{Next: feedback.Nop{}}
	}
	return feedback.Logged{Next: m}
}

func driverFallback(sink diag.Sink, what string, err error) {
	log.Warn().Err(err).Str("feedback", what).Msg("feedback output unavailable")
	sink.Push(diag.Diagnostic{
		Severity: diag.Warn, Code: diag.DriverFallback, Summary: "Feedback output unavailable",
		Detail: err.Error(), Evidence: map[string]any{"output": what}, At: time.Now(),
	})
}

// keyboard steers the virtual stick from a terminal: each U, D, L or R typed
// pushes the stick that way for hold, then recentres it.
func keyboard(ctx context.Context, r io.Reader, v *stick.Virtual, hold time.Duration) {
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		d, ok := stick.ParseDirection(b)
		if !ok {
			continue
		}
		v.Push(d)
		select {
		case <-time.After(hold):
		case <-ctx.Done():
			return
		}
		v.Push(stick.None)
	}
}
