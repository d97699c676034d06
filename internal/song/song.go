package song

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// Song is an ordered list of expected directions, one per beat.
type Song struct {
	ID    int
	Name  string
	Steps []stick.Direction
}

func (s Song) Len() int { return len(s.Steps) }

// At returns the expected direction at beat i, or None past the end.
func (s Song) At(i int) stick.Direction {
	if i < 0 || i >= len(s.Steps) {
		return stick.None
	}
	return s.Steps[i]
}

// Notation is the step list as symbols, e.g. "UDLR".
func (s Song) Notation() string {
	b := make([]byte, len(s.Steps))
	for i, d := range s.Steps {
		b[i] = d.Symbol()
	}
	return string(b)
}

// Parse builds a song from symbol notation. Whitespace is ignored.
func Parse(id int, name, notation string) (Song, error) {
	s := Song{ID: id, Name: name}
	for i := 0; i < len(notation); i++ {
		c := notation[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			continue
		}
		d, ok := stick.ParseDirection(c)
		if !ok {
			return Song{}, fmt.Errorf("song %d %q: bad step %q at %d", id, name, c, i)
		}
		s.Steps = append(s.Steps, d)
	}
	if len(s.Steps) == 0 {
		return Song{}, fmt.Errorf("song %d %q: no steps", id, name)
	}
	return s, nil
}

func mustParse(id int, name, notation string) Song {
	s, err := Parse(id, name, notation)
	if err != nil {
		panic(err)
	}
	return s
}

// Catalog is the fixed set of four songs, indexed by ID-1.
type Catalog [4]Song

// slot maps a stick direction onto the catalog: the title screen shows song
// 1 up, 2 left, 3 right and 4 down.
func slot(d stick.Direction) (int, bool) {
	switch d {
	case stick.Up:
		return 0, true
	case stick.Left:
		return 1, true
	case stick.Right:
		return 2, true
	case stick.Down:
		return 3, true
	}
	return 0, false
}

// Select returns the song for d; ok is false for None.
func (c *Catalog) Select(d stick.Direction) (Song, bool) {
	i, ok := slot(d)
	if !ok {
		return Song{}, false
	}
	return c[i], true
}

// Names returns the song names in rose order: up, left, right, down.
func (c *Catalog) Names() (up, left, right, down string) {
	return c[0].Name, c[1].Name, c[2].Name, c[3].Name
}

// Default is the built-in soundtrack.
func Default() Catalog {
	return Catalog{
		mustParse(1, "Song #1", "UDLRUDLR UUDD LRLR"),
		mustParse(2, "Song #2", "LLRR UUDD LRUD DULR"),
		mustParse(3, "Song #3", "RLUD RLUD UURR DDLL UDUD"),
		mustParse(4, "Song #4", "DDUU LRLR UDLR RLDU LLRR UUDD"),
	}
}

type fileSong struct {
	ID    int    `yaml:"id"`
	Name  string `yaml:"name"`
	Steps string `yaml:"steps"`
}

type file struct {
	Songs []fileSong `yaml:"songs"`
}

// Load reads a yaml soundtrack:
//
//	songs:
//	  - {id: 1, name: "Warm Up", steps: "UDLR"}
//
// It must define exactly four songs with ids 1 to 4.
func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}
	return Decode(b)
}

// Decode parses a yaml soundtrack.
func Decode(b []byte) (Catalog, error) {
	var f file
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Catalog{}, fmt.Errorf("soundtrack: %w", err)
	}
	if len(f.Songs) != len(Catalog{}) {
		return Catalog{}, fmt.Errorf("soundtrack: want %d songs, got %d", len(Catalog{}), len(f.Songs))
	}
	var c Catalog
	var errs []error
	for _, fs := range f.Songs {
		if fs.ID < 1 || fs.ID > len(c) {
			errs = append(errs, fmt.Errorf("song %q: id %d out of range", fs.Name, fs.ID))
			continue
		}
		if c[fs.ID-1].ID != 0 {
			errs = append(errs, fmt.Errorf("song %q: duplicate id %d", fs.Name, fs.ID))
			continue
		}
		name := strings.TrimSpace(fs.Name)
		if name == "" {
			name = fmt.Sprintf("Song #%d", fs.ID)
		}
		s, err := Parse(fs.ID, name, fs.Steps)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c[fs.ID-1] = s
	}
	if err := errors.Join(errs...); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
