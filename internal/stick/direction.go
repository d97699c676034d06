package stick

// Direction is one of the four cardinal stick zones, or None when a reading
// falls outside all of them.
type Direction uint8

const (
	None Direction = iota
	Up
	Down
	Left
	Right
)

// Axis bands, in percent of full scale. All bounds are inclusive.
const (
	CenterLo  = 35.0
	CenterHi  = 65.0
	ExtremeLo = 15.0 // low extreme is [0, ExtremeLo]
	ExtremeHi = 85.0 // high extreme is [ExtremeHi, 100]

	RestLo = 40.0
	RestHi = 60.0
)

// Symbol returns the song-step symbol for d ('U','D','L','R'), or 0 for None.
func (d Direction) Symbol() byte {
	switch d {
	case Up:
		return 'U'
	case Down:
		return 'D'
	case Left:
		return 'L'
	case Right:
		return 'R'
	}
	return 0
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "none"
}

// ParseDirection maps a song-step symbol back to a Direction.
func ParseDirection(b byte) (Direction, bool) {
	switch b {
	case 'U', 'u':
		return Up, true
	case 'D', 'd':
		return Down, true
	case 'L', 'l':
		return Left, true
	case 'R', 'r':
		return Right, true
	}
	return None, false
}

func centered(v float64) bool { return v >= CenterLo && v <= CenterHi }
func lowExtreme(v float64) bool { return v >= 0 && v <= ExtremeLo }
func highExtreme(v float64) bool { return v >= ExtremeHi && v <= 100 }

// Classify maps a percentage pair to a cardinal zone.
//
//	    U
//	L   +   R
//	    D
//
// Y grows downward: a low Y is Up.
func Classify(x, y float64) Direction {
	switch {
	case centered(x) && lowExtreme(y):
		return Up
	case centered(x) && highExtreme(y):
		return Down
	case lowExtreme(x) && centered(y):
		return Left
	case highExtreme(x) && centered(y):
		return Right
	}
	return None
}

// AtRest reports whether both axes sit in the rest zone. The rest zone
// overlaps no cardinal zone, so a stick at rest always classifies as None.
func AtRest(x, y float64) bool {
	return x >= RestLo && x <= RestHi && y >= RestLo && y <= RestHi
}

// Direction classifies the reading.
func (r Reading) Direction() Direction { return Classify(r.X, r.Y) }

// AtRest reports whether the reading is in the rest zone.
func (r Reading) AtRest() bool { return AtRest(r.X, r.Y) }
