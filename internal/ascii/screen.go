package ascii

import (
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// Sender is the serial output channel.
type Sender interface {
	SendString(s string) error
}

// Screen renders game frames onto a serial terminal.
type Screen struct {
	out Sender
	err error
}

func NewScreen(out Sender) *Screen {
	return &Screen{out: out}
}

// send writes each part in order and remembers the first failure, so a
// frame is written with a single error check at the end.
func (s *Screen) send(parts ...string) error {
	s.err = nil
	for _, p := range parts {
		if err := s.out.SendString(p); err != nil {
			s.err = err
			return err
		}
	}
	return nil
}

// banner frames body lines between two bars.
func (s *Screen) banner(body ...string) error {
	parts := []string{LineReset, Bar, LineReset, LineReset}
	for _, b := range body {
		parts = append(parts, b, LineReset, LineReset)
	}
	parts = append(parts, Bar, LineReset)
	return s.send(parts...)
}

func (s *Screen) Clear() error {
	return s.send(ClearSeq)
}

// Title draws the title banner, the instructions and the song rose.
func (s *Screen) Title(up, left, right, down string) error {
	if err := s.Clear(); err != nil {
		return err
	}
	parts := []string{
		LineReset, Bar, LineReset, LineReset,
		Title, LineReset, LineReset,
		Bar, LineReset,
		LineReset, ChooseInstr, LineReset,
		LineReset,
	}
	for _, l := range songRose(up, left, right, down) {
		parts = append(parts, l, LineReset)
	}
	parts = append(parts, LineReset, Bar, LineReset)
	return s.send(parts...)
}

// Confirm asks whether name is the player's choice.
func (s *Screen) Confirm(name string) error {
	return s.banner(` Is "`+name+`" your selection?`, YesNo)
}

// Arrow clears the screen and draws the arrow for d.
func (s *Screen) Arrow(d stick.Direction) error {
	art := ArrowFor(d)
	if art == "" {
		return nil
	}
	return s.send(ClearSeq, LineReset, art, LineReset)
}

func (s *Screen) Hit() error  { return s.send(LineReset, Hit, LineReset) }
func (s *Screen) Miss() error { return s.send(LineReset, Miss, LineReset) }
func (s *Screen) Win() error  { return s.banner(WinText) }
func (s *Screen) Lose() error { return s.banner(LoseText) }

func (s *Screen) PlayAgain() error {
	return s.banner(AgainText, YesNo)
}

// Notice prints a one-line message inside a banner.
func (s *Screen) Notice(text string) error {
	return s.banner(" " + text)
}

// Err is the error of the last frame, if it failed.
func (s *Screen) Err() error { return s.err }

// ArrowFor returns the arrow art for d, or "" for None.
func ArrowFor(d stick.Direction) string {
	switch d {
	case stick.Up:
		return ArrowUp
	case stick.Down:
		return ArrowDown
	case stick.Left:
		return ArrowLeft
	case stick.Right:
		return ArrowRight
	}
	return ""
}
