package stick

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Virtual is a converter whose codes are set by software: the simulator,
// the /control websocket and tests all move the stick through it.
type Virtual struct {
	mu   sync.Mutex
	x, y uint16
}

// centreCode is the mid-scale code a released stick reads.
const centreCode = 2048

// NewVirtual returns a stick parked at the centre.
func NewVirtual() *Virtual {
	return &Virtual{x: centreCode, y: centreCode}
}

func (v *Virtual) Convert(ctx context.Context) (uint16, uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.x, v.y, nil
}

// Set moves the stick to raw codes.
func (v *Virtual) Set(x, y uint16) {
	v.mu.Lock()
	v.x, v.y = x, y
	v.mu.Unlock()
}

// SetPercent moves the stick to a percentage position.
func (v *Virtual) SetPercent(x, y float64) {
	v.Set(CodeForPercent(x), CodeForPercent(y))
}

// Push moves the stick fully toward d; None recentres it.
func (v *Virtual) Push(d Direction) {
	switch d {
	case Up:
		v.SetPercent(50, 0)
	case Down:
		v.SetPercent(50, 100)
	case Left:
		v.SetPercent(0, 50)
	case Right:
		v.SetPercent(100, 50)
	default:
		v.SetPercent(50, 50)
	}
}

// Script replays a fixed list of raw code pairs, one per conversion, and
// holds the last pair once the list is exhausted.
type Script struct {
	mu    sync.Mutex
	steps [][2]uint16
	i     int
}

func NewScript(steps [][2]uint16) *Script {
	return &Script{steps: steps}
}

func (s *Script) Convert(ctx context.Context) (uint16, uint16, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return centreCode, centreCode, nil
	}
	st := s.steps[s.i]
	if s.i < len(s.steps)-1 {
		s.i++
	}
	return st[0], st[1], nil
}

type scriptFile struct {
	Repeat int `yaml:"repeat"`
	Steps  []struct {
		X     float64 `yaml:"x"`
		Y     float64 `yaml:"y"`
		Count int     `yaml:"count"`
	} `yaml:"steps"`
}

// LoadScript reads a yaml stick script:
//
//	steps:
//	  - {x: 50, y: 50, count: 10}
//	  - {x: 50, y: 0, count: 3}
//
// Positions are percentages; count repeats a position for that many
// conversions (default 1).
func LoadScript(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f scriptFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("stick script %s: %w", path, err)
	}
	if f.Repeat <= 0 {
		f.Repeat = 1
	}
	var steps [][2]uint16
	for r := 0; r < f.Repeat; r++ {
		for _, st := range f.Steps {
			n := st.Count
			if n <= 0 {
				n = 1
			}
			for i := 0; i < n; i++ {
				steps = append(steps, [2]uint16{CodeForPercent(st.X), CodeForPercent(st.Y)})
			}
		}
	}
	return NewScript(steps), nil
}
