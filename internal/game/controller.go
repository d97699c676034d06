package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/feedback"
	"github.com/coreman2200/funtimes-boogie/internal/song"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
	"github.com/coreman2200/funtimes-boogie/internal/trigger"
)

var (
	// ErrInputTimeout is returned by a bounded input wait that ran out.
	ErrInputTimeout = errors.New("game: input timeout")
	// ErrBeatStalled means the beat clock stopped posting while armed.
	ErrBeatStalled = errors.New("game: beat clock stalled")
)

// Input is the stream of stick readings.
type Input interface {
	Latest() (stick.Reading, bool)
	Updates() <-chan stick.Reading
}

// Beats is the armable beat clock.
type Beats interface {
	Arm()
	Disarm()
	Drain()
	Beats() <-chan trigger.Beat
}

// Display renders game frames. *ascii.Screen implements it.
type Display interface {
	Clear() error
	Title(up, left, right, down string) error
	Confirm(name string) error
	Arrow(d stick.Direction) error
	Hit() error
	Miss() error
	Win() error
	Lose() error
	PlayAgain() error
}

type Options struct {
	// InputTimeout bounds every wait on the player. Zero waits forever.
	InputTimeout time.Duration
	// BeatTimeout bounds the wait for a beat while armed. Zero waits forever.
	BeatTimeout time.Duration
	StrikeLimit int
	// OnChange is called with a fresh snapshot after every state change.
	OnChange func(Snapshot)
	Diag     diagnostics.Sink
}

// Controller runs the game: title select, song play, round end and the
// replay prompt. All session mutation happens on the goroutine calling Run.
type Controller struct {
	in    Input
	beats Beats
	disp  Display
	fb    feedback.Feedback
	songs song.Catalog
	opt   Options

	mu   sync.Mutex
	sess *Session

	cur     stick.Reading
	haveCur bool
}

func New(in Input, beats Beats, disp Display, fb feedback.Feedback, songs song.Catalog, opt Options) *Controller {
	if fb == nil {
		fb = feedback.Nop{}
	}
	if opt.Diag == nil {
		opt.Diag = diagnostics.Discard
	}
	return &Controller{
		in:    in,
		beats: beats,
		disp:  disp,
		fb:    fb,
		songs: songs,
		opt:   opt,
		sess:  NewSession(opt.StrikeLimit),
	}
}

// Snapshot returns a copy of the current session. Safe from any goroutine.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.Snapshot()
}

// update mutates the session under the lock and publishes the result.
func (c *Controller) update(f func(s *Session)) {
	c.mu.Lock()
	f(c.sess)
	snap := c.sess.Snapshot()
	c.mu.Unlock()
	if c.opt.OnChange != nil {
		c.opt.OnChange(snap)
	}
}

// Run plays games until the player declines a replay, or ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	defer c.fb.Silence()
	for {
		sg, err := c.titleSelect(ctx)
		if err != nil {
			return err
		}
		c.update(func(s *Session) { s.Start(sg) })
		log.Info().Int("song", sg.ID).Str("name", sg.Name).Int("beats", sg.Len()).Msg("round start")

		if err := c.play(ctx); err != nil {
			return err
		}
		c.roundEnd()

		again, err := c.replayPrompt(ctx)
		if err != nil {
			return err
		}
		if !again {
			c.update(func(s *Session) { s.State = Done })
			c.render("clear", c.disp.Clear())
			log.Info().Msg("player quit")
			return nil
		}
		c.update(func(s *Session) { s.State = TitleSelect })
	}
}

func (c *Controller) titleSelect(ctx context.Context) (song.Song, error) {
	c.update(func(s *Session) { s.State = TitleSelect })
	up, left, right, down := c.songs.Names()
	title := func() { c.render("title", c.disp.Title(up, left, right, down)) }
	for {
		title()
		d, err := c.choose(ctx, "song selection", title, func(d stick.Direction) bool { return d != stick.None })
		if err != nil {
			return song.Song{}, err
		}
		sg, ok := c.songs.Select(d)
		if !ok {
			continue
		}
		confirm := func() { c.render("confirm", c.disp.Confirm(sg.Name)) }
		confirm()
		yes, err := c.yesNo(ctx, "song confirmation", confirm)
		if err != nil {
			return song.Song{}, err
		}
		if yes {
			return sg, nil
		}
		c.render("clear", c.disp.Clear())
	}
}

func (c *Controller) play(ctx context.Context) error {
	c.beats.Arm()
	defer c.beats.Disarm()
	for {
		var (
			done     bool
			expected stick.Direction
		)
		c.update(func(s *Session) {
			done = s.Finished()
			expected = s.Expected()
		})
		if done {
			return nil
		}

		c.beats.Drain()
		if err := c.waitBeat(ctx); err != nil {
			return err
		}
		c.render("arrow", c.disp.Arrow(expected))
		c.fb.Tone(expected)

		got := stick.None
		_, err := c.waitFor(ctx, c.opt.InputTimeout, stick.Reading.AtRest)
		if err == nil {
			var r stick.Reading
			r, err = c.waitFor(ctx, c.opt.InputTimeout, func(r stick.Reading) bool { return r.Direction() != stick.None })
			if err == nil {
				got = r.Direction()
			}
		}
		if err != nil && !errors.Is(err, ErrInputTimeout) {
			return err
		}
		if err != nil {
			c.opt.Diag.Push(diagnostics.Timeout("beat "+expected.String(), c.opt.InputTimeout))
		}
		c.fb.Silence()

		var hit bool
		var strikes, limit int
		c.update(func(s *Session) {
			hit = s.Resolve(got)
			strikes, limit = s.Strikes, s.StrikeLimit
		})
		if hit {
			c.render("hit", c.disp.Hit())
		} else {
			c.render("miss", c.disp.Miss())
			c.fb.Strike(feedback.StrikeLevel(strikes, limit))
		}
		log.Debug().Str("expected", expected.String()).Str("got", got.String()).Bool("hit", hit).Int("strikes", strikes).Msg("beat")
	}
}

func (c *Controller) roundEnd() {
	c.fb.Silence()
	var snap Snapshot
	c.update(func(s *Session) {
		s.State = RoundEnd
		snap = s.Snapshot()
	})
	d := diagnostics.Diagnostic{
		Severity: diagnostics.Info,
		Summary:  fmt.Sprintf("%s: %d of %d beats hit", snap.SongName, snap.Hits, snap.SongLen),
		Evidence: map[string]any{"strikes": snap.Strikes, "round": snap.Round},
		At:       time.Now(),
	}
	if snap.Outcome == Win {
		d.Code = diagnostics.RoundWin
		c.render("win", c.disp.Win())
	} else {
		d.Code = diagnostics.RoundLose
		c.render("lose", c.disp.Lose())
	}
	c.opt.Diag.Push(d)
	log.Info().Str("outcome", string(snap.Outcome)).Int("hits", snap.Hits).Int("strikes", snap.Strikes).Msg("round end")
}

func (c *Controller) replayPrompt(ctx context.Context) (bool, error) {
	c.update(func(s *Session) { s.State = ReplayPrompt })
	prompt := func() { c.render("replay", c.disp.PlayAgain()) }
	prompt()
	again, err := c.yesNo(ctx, "replay prompt", prompt)
	if err != nil {
		return false, err
	}
	c.fb.Reset()
	c.update(func(s *Session) { s.Reset() })
	return again, nil
}

// yesNo waits for rest, then Left (yes) or Right (no).
func (c *Controller) yesNo(ctx context.Context, what string, redraw func()) (bool, error) {
	d, err := c.choose(ctx, what, redraw, func(d stick.Direction) bool {
		return d == stick.Left || d == stick.Right
	})
	if err != nil {
		return false, err
	}
	return d == stick.Left, nil
}

// choose waits for the stick to rest and then for a direction accepted by
// ok. On timeout it redraws the prompt and starts over.
func (c *Controller) choose(ctx context.Context, what string, redraw func(), ok func(stick.Direction) bool) (stick.Direction, error) {
	for {
		_, err := c.waitFor(ctx, c.opt.InputTimeout, stick.Reading.AtRest)
		if err == nil {
			var r stick.Reading
			r, err = c.waitFor(ctx, c.opt.InputTimeout, func(r stick.Reading) bool { return ok(r.Direction()) })
			if err == nil {
				return r.Direction(), nil
			}
		}
		if !errors.Is(err, ErrInputTimeout) {
			return stick.None, err
		}
		c.opt.Diag.Push(diagnostics.Timeout(what, c.opt.InputTimeout))
		log.Debug().Str("waiting_for", what).Msg("input timeout")
		redraw()
	}
}

// waitFor returns the first reading satisfying pred, starting with the
// most recent one already seen.
func (c *Controller) waitFor(ctx context.Context, timeout time.Duration, pred func(stick.Reading) bool) (stick.Reading, error) {
	if !c.haveCur {
		c.cur, c.haveCur = c.in.Latest()
	}
	if c.haveCur && pred(c.cur) {
		return c.cur, nil
	}
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return stick.Reading{}, ctx.Err()
		case <-expired:
			return stick.Reading{}, ErrInputTimeout
		case r := <-c.in.Updates():
			c.cur, c.haveCur = r, true
			if pred(r) {
				return r, nil
			}
		}
	}
}

func (c *Controller) waitBeat(ctx context.Context) error {
	var expired <-chan time.Time
	if c.opt.BeatTimeout > 0 {
		t := time.NewTimer(c.opt.BeatTimeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrBeatStalled
	case b := <-c.beats.Beats():
		log.Trace().Uint64("beat", b.N).Msg("beat")
		return nil
	}
}

// render logs a failed frame. The game keeps going; the serial link may
// recover and the next frame redraws the screen.
func (c *Controller) render(frame string, err error) {
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("frame", frame).Msg("render failed")
	c.opt.Diag.Push(diagnostics.Diagnostic{
		Severity: diagnostics.Warn,
		Code:     diagnostics.SerialWrite,
		Summary:  "Serial write failed",
		Detail:   err.Error(),
		Evidence: map[string]any{"frame": frame},
		At:       time.Now(),
	})
}
