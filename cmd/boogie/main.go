package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-boogie/internal/ascii"
	"github.com/coreman2200/funtimes-boogie/internal/config"
	diag "github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/game"
	"github.com/coreman2200/funtimes-boogie/internal/song"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
	"github.com/coreman2200/funtimes-boogie/internal/telemetry"
	"github.com/coreman2200/funtimes-boogie/internal/trigger"
	"github.com/coreman2200/funtimes-boogie/internal/uart"
)

func main() {
	// ---- Flags (config.yaml overrides what it sets) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		port       = flag.String("port", "", "serial port for the game screen; empty renders to stdout")
		baud       = flag.Int("baud", uart.DefaultBaud, "serial baud rate")
		source     = flag.String("stick", "sim", "stick source: sim | script | ads1115")
		script     = flag.String("script", "", "stick script yaml for -stick script")
		bus        = flag.String("i2c", "", "I2C bus for -stick ads1115")
		sampleMs   = flag.Int("sample-ms", 100, "stick sample period (ms)")
		beatMs     = flag.Int("beat-ms", 1000, "beat period (ms)")
		timeoutMs  = flag.Int("timeout-ms", 10000, "input timeout (ms), 0 waits forever")
		strikes    = flag.Int("strikes", game.DefaultStrikeLimit, "misses that lose a round")
		fbKind     = flag.String("feedback", "none", "feedback outputs: none | gpio | strip | record, comma separated")
		spiPort    = flag.String("spi", "", "SPI port for the strike strip")
		wavPath    = flag.String("wav", "tones.wav", "output file for -feedback record")
		songsPath  = flag.String("songs", "", "soundtrack yaml; empty uses the built-in songs")
		addr       = flag.String("telemetry", "", "telemetry listen address, e.g. :8080")
		logLevel   = flag.String("log-level", "info", "log level")
		listPorts  = flag.Bool("list-ports", false, "list serial ports and exit")
	)
	flag.Parse()

	cfg := config.Default()
	cfg.Serial = config.Serial{Port: *port, Baud: *baud}
	cfg.Stick.Source, cfg.Stick.Script, cfg.Stick.Bus = *source, *script, *bus
	cfg.SampleMs = *sampleMs
	cfg.BeatMs = *beatMs
	cfg.InputTimeoutMs = *timeoutMs
	cfg.StrikeLimit = *strikes
	cfg.Feedback.Kind, cfg.Feedback.SPI, cfg.Feedback.WAV = *fbKind, *spiPort, *wavPath
	cfg.Telemetry = *addr
	cfg.Songs = *songsPath

	// ---- Load config.yaml (optional, overrides the flags) ----
	fileErr := cfg.Overlay(*configPath)

	// ---- Logging ----
	// The screen owns stdout when there is no serial port.
	logOut := os.Stdout
	if toStdout(cfg.Serial.Port) {
		logOut = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(*logLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if fileErr != nil && !errors.Is(fileErr, os.ErrNotExist) {
		log.Warn().Err(fileErr).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	}

	if *listPorts {
		ports, err := uart.Ports()
		if err != nil {
			log.Fatal().Err(err).Msg("list ports")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad configuration")
	}

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("game stopped")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var hub *telemetry.Hub
	sink := diag.SinkFunc(func(d diag.Diagnostic) {
		log.Debug().Str("code", d.Code).Str("summary", d.Summary).Msg("diagnostic")
		if hub != nil {
			hub.Push(d)
		}
	})
	if cfg.Telemetry != "" {
		hub = telemetry.NewHub()
	}

	initHost(cfg)

	// ---- Serial screen ----
	out, closeOut := openScreen(cfg, sink)
	defer closeOut()
	ch := uart.NewChannel(out)
	screen := ascii.NewScreen(ch)

	// ---- Stick ----
	src, virt, closeSrc := openStick(cfg, sink)
	defer closeSrc()
	if virt != nil && toStdout(cfg.Serial.Port) {
		go keyboard(ctx, os.Stdin, virt, 2*cfg.SampleInterval())
	}
	sampler := stick.NewSampler(src)

	// ---- Songs ----
	catalog := song.Default()
	if cfg.Songs != "" {
		c, err := song.Load(cfg.Songs)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Songs).Msg("soundtrack load failed; using built-in songs")
		} else {
			catalog = c
		}
	}

	// ---- Feedback ----
	fb := openFeedback(cfg, sink)
	defer func() {
		if err := fb.Close(); err != nil {
			log.Warn().Err(err).Msg("feedback close")
		}
	}()

	// ---- Clocks ----
	clock := &trigger.SampleClock{Interval: cfg.SampleInterval(), Sampler: sampler}
	beats := trigger.NewBeatClock(cfg.BeatInterval())

	opt := game.Options{
		InputTimeout: cfg.InputTimeout(),
		BeatTimeout:  5 * cfg.BeatInterval(),
		StrikeLimit:  cfg.StrikeLimit,
		Diag:         sink,
	}

	// ---- Telemetry ----
	if hub != nil {
		hub.Stick = virt
		hub.Counters["samples"] = sampler.Count
		hub.Counters["sample_failures"] = clock.Failures
		hub.Counters["beats"] = beats.Count
		hub.Counters["bytes_sent"] = ch.Sent
		clock.OnSample = hub.PublishReading
		opt.OnChange = hub.PublishSnapshot
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Telemetry); err != nil {
				log.Error().Err(err).Msg("telemetry server")
			}
		}()
	}

	go clock.Run(ctx)
	go beats.Run(ctx)

	log.Info().
		Str("stick", cfg.Stick.Source).
		Str("feedback", cfg.Feedback.Kind).
		Dur("beat", cfg.BeatInterval()).
		Dur("timeout", cfg.InputTimeout()).
		Msg("boogie starting")

	ctrl := game.New(sampler, beats, screen, fb, catalog, opt)
	err := ctrl.Run(ctx)
	log.Info().Uint64("samples", sampler.Count()).Uint64("beats", beats.Count()).Uint64("bytes", ch.Sent()).Msg("shutting down")
	return err
}

func toStdout(port string) bool {
	return port == "" || port == "stdout"
}

// openScreen opens the serial port, falling back to stdout.
func openScreen(cfg *config.Config, sink diag.Sink) (io.Writer, func()) {
	if toStdout(cfg.Serial.Port) {
		return os.Stdout, func() {}
	}
	p, err := uart.Open(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		log.Warn().Err(err).Str("port", cfg.Serial.Port).Msg("serial open failed; rendering to stdout")
		sink.Push(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.SerialFallback, Summary: "Serial port unavailable",
			Detail:         err.Error(),
			SuggestedFixes: []string{"check the cable", "run with -list-ports"},
			Evidence:       map[string]any{"port": cfg.Serial.Port},
			At:             time.Now(),
		})
		return os.Stdout, func() {}
	}
	log.Info().Str("port", cfg.Serial.Port).Int("baud", cfg.Serial.Baud).Msg("serial open")
	return p, func() { _ = p.Close() }
}

// openStick builds the configured source. Hardware failures fall back to
// the virtual stick, which is also returned when it is in use.
func openStick(cfg *config.Config, sink diag.Sink) (stick.Source, *stick.Virtual, func()) {
	fallback := func(err error) (stick.Source, *stick.Virtual, func()) {
		log.Warn().Err(err).Str("stick", cfg.Stick.Source).Msg("stick init failed; falling back to SIM")
		sink.Push(diag.Diagnostic{
			Severity: diag.Warn, Code: diag.DriverFallback, Summary: "Stick source unavailable",
			Detail: err.Error(), Evidence: map[string]any{"source": cfg.Stick.Source}, At: time.Now(),
		})
		v := stick.NewVirtual()
		return v, v, func() {}
	}
	switch cfg.Stick.Source {
	case "script":
		s, err := stick.LoadScript(cfg.Stick.Script)
		if err != nil {
			return fallback(err)
		}
		return s, nil, func() {}
	case "ads1115":
		a, err := stick.OpenADS1115(stick.ADS1115Opts{Bus: cfg.Stick.Bus, XChannel: cfg.Stick.XChannel, YChannel: cfg.Stick.YChannel})
		if err != nil {
			return fallback(err)
		}
		return a, nil, func() { _ = a.Close() }
	}
	v := stick.NewVirtual()
	return v, v, func() {}
}
