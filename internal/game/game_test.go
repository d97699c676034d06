package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-boogie/internal/diagnostics"
	"github.com/coreman2200/funtimes-boogie/internal/song"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
	"github.com/coreman2200/funtimes-boogie/internal/trigger"
)

func mustSong(t *testing.T, notation string) song.Song {
	t.Helper()
	s, err := song.Parse(1, "Test", notation)
	require.NoError(t, err)
	return s
}

func TestSessionWin(t *testing.T) {
	s := NewSession(0)
	assert.Equal(t, DefaultStrikeLimit, s.StrikeLimit)
	s.Start(mustSong(t, "UDL"))
	assert.Equal(t, SongPlay, s.State)
	assert.Equal(t, 1, s.Round)

	assert.True(t, s.Resolve(stick.Up))
	assert.False(t, s.Resolve(stick.Left))
	assert.False(t, s.Finished())
	assert.False(t, s.Resolve(stick.None), "no input is a miss")
	assert.True(t, s.Finished())
	assert.Equal(t, Win, s.Outcome, "two strikes at the end of the song still wins")
	assert.Equal(t, 2, s.Strikes)
	assert.Equal(t, 1, s.Hits)
}

func TestSessionLoseBeforeEnd(t *testing.T) {
	s := NewSession(3)
	s.Start(mustSong(t, "UUUUUU"))
	for i := 0; i < 3; i++ {
		s.Resolve(stick.Down)
	}
	assert.True(t, s.Finished())
	assert.Equal(t, Lose, s.Outcome)
	assert.Equal(t, 3, s.BeatIndex)
	assert.False(t, s.Resolve(stick.Up), "no scoring after the round ends")
	assert.Equal(t, 3, s.BeatIndex)
}

func TestSessionLoseOnLastBeat(t *testing.T) {
	s := NewSession(3)
	s.Start(mustSong(t, "UUU"))
	s.Resolve(stick.Down)
	s.Resolve(stick.Down)
	s.Resolve(stick.Down)
	assert.True(t, s.Finished())
	assert.Equal(t, Lose, s.Outcome)
}

func TestSessionResetAndSnapshot(t *testing.T) {
	s := NewSession(3)
	s.Start(mustSong(t, "UD"))
	s.Resolve(stick.Left)
	snap := s.Snapshot()
	assert.Equal(t, "down", snap.Expected)
	assert.Equal(t, "left", snap.Last)
	assert.Equal(t, 1, snap.Strikes)
	assert.Equal(t, 2, snap.SongLen)

	s.Reset()
	assert.Equal(t, 0, s.Strikes)
	assert.Equal(t, 0, s.BeatIndex)
	assert.Equal(t, InProgress, s.Outcome)
	assert.Equal(t, "Test", s.Song.Name)

	s.Start(s.Song)
	assert.Equal(t, 2, s.Round)
}

func TestSessionResetAfterEitherOutcome(t *testing.T) {
	var tests = []struct {
		name    string
		answers []stick.Direction
		want    Outcome
	}{
		{"win", []stick.Direction{stick.Up, stick.Down, stick.Left, stick.Left}, Win},
		{"lose", []stick.Direction{stick.Down, stick.Down, stick.Down}, Lose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(3)
			s.Start(mustSong(t, "UDLR"))
			for _, d := range tt.answers {
				s.Resolve(d)
			}
			require.True(t, s.Finished())
			require.Equal(t, tt.want, s.Outcome)

			s.Reset()
			assert.Equal(t, 0, s.BeatIndex)
			assert.Equal(t, 0, s.Strikes)
			assert.Equal(t, InProgress, s.Outcome)
			assert.False(t, s.Finished())
		})
	}
}

// scripted hands out readings one at a time, each only when the controller
// asks for the next one, then goes quiet.
type scripted struct {
	ch chan stick.Reading
}

func newScripted(ctx context.Context, steps ...stick.Direction) *scripted {
	s := &scripted{ch: make(chan stick.Reading)}
	v := stick.NewVirtual()
	go func() {
		for _, d := range steps {
			v.Push(d)
			x, y, _ := v.Convert(ctx)
			select {
			case s.ch <- stick.NewReading(x, y):
			case <-ctx.Done():
				return
			}
		}
	}()
	return s
}

func (s *scripted) Latest() (stick.Reading, bool) { return stick.NewReading(2048, 2048), true }
func (s *scripted) Updates() <-chan stick.Reading { return s.ch }

// rest-then-direction pairs, which is what one menu answer or beat takes.
func answers(ds ...stick.Direction) []stick.Direction {
	var out []stick.Direction
	for _, d := range ds {
		out = append(out, stick.None, d)
	}
	return out
}

type fakeBeats struct {
	mu     sync.Mutex
	ch     chan trigger.Beat
	arms   int
	armed  bool
	drains int
}

func newFakeBeats(ctx context.Context) *fakeBeats {
	b := &fakeBeats{ch: make(chan trigger.Beat)}
	go func() {
		for n := uint64(1); ; n++ {
			select {
			case b.ch <- trigger.Beat{N: n, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return b
}

func (b *fakeBeats) Arm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.arms++
	b.armed = true
}

func (b *fakeBeats) Disarm() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.armed = false
}

func (b *fakeBeats) Drain() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drains++
}

func (b *fakeBeats) Beats() <-chan trigger.Beat { return b.ch }

type frames struct {
	mu  sync.Mutex
	got []string
}

func (f *frames) add(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, s)
	return nil
}

func (f *frames) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.got...)
}

func (f *frames) count(s string) int {
	n := 0
	for _, g := range f.list() {
		if g == s {
			n++
		}
	}
	return n
}

func (f *frames) Clear() error { return f.add("clear") }
func (f *frames) Title(_, _, _, _ string) error { return f.add("title") }
func (f *frames) Confirm(name string) error { return f.add("confirm:" + name) }
func (f *frames) Arrow(d stick.Direction) error { return f.add("arrow:" + d.String()) }
func (f *frames) Hit() error { return f.add("hit") }
func (f *frames) Miss() error { return f.add("miss") }
func (f *frames) Win() error { return f.add("win") }
func (f *frames) Lose() error { return f.add("lose") }
func (f *frames) PlayAgain() error { return f.add("again") }

type lamps struct {
	mu      sync.Mutex
	strikes []int
	tones   []stick.Direction
	resets  int
}

func (l *lamps) Strike(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.strikes = append(l.strikes, n)
}

func (l *lamps) Tone(d stick.Direction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tones = append(l.tones, d)
}

func (l *lamps) Silence() {}

func (l *lamps) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resets++
}

func (l *lamps) Close() error { return nil }

func testCatalog(t *testing.T) song.Catalog {
	var c song.Catalog
	for i, n := range []string{"UD", "LR", "RLU", "DDUU"} {
		s, err := song.Parse(i+1, "Song "+string(rune('A'+i)), n)
		require.NoError(t, err)
		c[i] = s
	}
	return c
}

func TestControllerWinThenQuit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var steps []stick.Direction
	// pick song 1 and confirm, hit U, miss D, decline the replay
	steps = append(steps, answers(stick.Up, stick.Left)...)
	steps = append(steps, answers(stick.Up, stick.Left)...)
	steps = append(steps, answers(stick.Right)...)
	in := newScripted(ctx, steps...)
	beats := newFakeBeats(ctx)
	disp := &frames{}
	fb := &lamps{}
	var snaps []Snapshot
	c := New(in, beats, disp, fb, testCatalog(t), Options{
		OnChange: func(s Snapshot) { snaps = append(snaps, s) },
	})

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []string{
		"title", "confirm:Song A",
		"arrow:up", "hit",
		"arrow:down", "miss",
		"win", "again", "clear",
	}, disp.list())
	assert.Equal(t, []int{1}, fb.strikes)
	assert.Equal(t, []stick.Direction{stick.Up, stick.Down}, fb.tones)
	assert.Equal(t, 1, fb.resets)
	assert.Equal(t, 1, beats.arms)
	assert.False(t, beats.armed, "disarmed after the round")
	assert.Equal(t, 2, beats.drains)

	last := c.Snapshot()
	assert.Equal(t, Done, last.State)
	assert.Equal(t, 0, last.Strikes, "replay prompt resets the round")
	assert.Equal(t, 0, last.BeatIndex)
	assert.Equal(t, InProgress, last.Outcome)

	var sawWin bool
	for _, s := range snaps {
		if s.State == RoundEnd {
			sawWin = true
			assert.Equal(t, Win, s.Outcome)
			assert.Equal(t, 1, s.Hits)
		}
	}
	assert.True(t, sawWin)
}

func TestControllerDeclineSong(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var steps []stick.Direction
	// song 4 declined; song 2 confirmed after an ignored Up
	steps = append(steps, answers(stick.Down, stick.Right)...)
	steps = append(steps, answers(stick.Left, stick.Up, stick.Left)...)
	// "LR" answered R, R, then the replay declined
	steps = append(steps, answers(stick.Right, stick.Right, stick.Right)...)
	in := newScripted(ctx, steps...)
	beats := newFakeBeats(ctx)
	disp := &frames{}
	c := New(in, beats, disp, &lamps{}, testCatalog(t), Options{})

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("controller did not finish")
	}
	assert.Equal(t, []string{
		"title", "confirm:Song D", "clear",
		"title", "confirm:Song B",
		"arrow:left", "miss",
		"arrow:right", "hit",
		"win", "again", "clear",
	}, disp.list())
}

func TestControllerTimeoutsLose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// pick song 4 and confirm, then the stick goes quiet
	in := newScripted(ctx, answers(stick.Down, stick.Left)...)
	beats := newFakeBeats(ctx)
	disp := &frames{}
	fb := &lamps{}
	var mu sync.Mutex
	var timeouts int
	c := New(in, beats, disp, fb, testCatalog(t), Options{
		InputTimeout: 20 * time.Millisecond,
		Diag: diagnostics.SinkFunc(func(d diagnostics.Diagnostic) {
			mu.Lock()
			defer mu.Unlock()
			if d.Code == diagnostics.InputTimeout {
				timeouts++
			}
		}),
	})

	done := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { done <- c.Run(runCtx) }()

	require.Eventually(t, func() bool { return disp.count("again") >= 2 }, 3*time.Second, 5*time.Millisecond,
		"replay prompt is redrawn on timeout")
	stop()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))

	got := disp.list()
	assert.Equal(t, []string{
		"title", "confirm:Song D",
		"arrow:down", "miss",
		"arrow:down", "miss",
		"arrow:up", "miss",
		"lose", "again",
	}, got[:10])
	assert.Equal(t, []int{1, 2, 3}, fb.strikes)
	mu.Lock()
	assert.GreaterOrEqual(t, timeouts, 4)
	mu.Unlock()
}

func TestControllerBeatStall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := newScripted(ctx, answers(stick.Up, stick.Left)...)
	beats := &fakeBeats{ch: make(chan trigger.Beat)}
	c := New(in, beats, &frames{}, nil, testCatalog(t), Options{BeatTimeout: 20 * time.Millisecond})
	err := c.Run(ctx)
	assert.True(t, errors.Is(err, ErrBeatStalled))
	assert.False(t, beats.armed)
}

func TestControllerReplayAfterLose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var steps []stick.Direction
	// pick song 4 ("DDUU") and confirm, miss three beats, accept the replay
	steps = append(steps, answers(stick.Down, stick.Left)...)
	steps = append(steps, answers(stick.Up, stick.Up, stick.Down)...)
	steps = append(steps, answers(stick.Left)...)
	in := newScripted(ctx, steps...)
	beats := newFakeBeats(ctx)
	disp := &frames{}
	fb := &lamps{}
	c := New(in, beats, disp, fb, testCatalog(t), Options{})

	done := make(chan error, 1)
	runCtx, stop := context.WithCancel(ctx)
	go func() { done <- c.Run(runCtx) }()

	require.Eventually(t, func() bool { return disp.count("title") == 2 }, 3*time.Second, 5*time.Millisecond,
		"back at song selection")
	snap := c.Snapshot()
	assert.Equal(t, TitleSelect, snap.State)
	assert.Equal(t, InProgress, snap.Outcome)
	assert.Equal(t, 0, snap.Strikes)
	assert.Equal(t, 0, snap.BeatIndex)
	assert.Equal(t, 1, snap.Round)

	stop()
	assert.True(t, errors.Is(<-done, context.Canceled))
	assert.Equal(t, []string{
		"title", "confirm:Song D",
		"arrow:down", "miss",
		"arrow:down", "miss",
		"arrow:up", "miss",
		"lose", "again", "title",
	}, disp.list())
	fb.mu.Lock()
	defer fb.mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, fb.strikes)
	assert.Equal(t, 1, fb.resets)
}

func TestControllerStrikeLampsFollowLimit(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var steps []stick.Direction
	// song 4 ("DDUU") with every beat missed, then the replay declined
	steps = append(steps, answers(stick.Down, stick.Left)...)
	steps = append(steps, answers(stick.Up, stick.Up, stick.Down, stick.Down)...)
	steps = append(steps, answers(stick.Right)...)
	in := newScripted(ctx, steps...)
	fb := &lamps{}
	c := New(in, newFakeBeats(ctx), &frames{}, fb, testCatalog(t), Options{StrikeLimit: 5})

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, []int{1, 1, 1, 2}, fb.strikes, "red stays off below the limit")
}
