package game

import (
	"github.com/coreman2200/funtimes-boogie/internal/song"
	"github.com/coreman2200/funtimes-boogie/internal/stick"
)

// DefaultStrikeLimit is the number of misses that loses a round.
const DefaultStrikeLimit = 3

// Outcome of the current round.
type Outcome string

const (
	InProgress Outcome = "in-progress"
	Win        Outcome = "win"
	Lose       Outcome = "lose"
)

// State of the game flow.
type State string

const (
	TitleSelect  State = "title-select"
	SongPlay     State = "song-play"
	RoundEnd     State = "round-end"
	ReplayPrompt State = "replay-prompt"
	Done         State = "done"
)

// Session is the per-game record: the chosen song, the beat cursor and the
// strike count. The controller is its only writer.
type Session struct {
	State       State
	Song        song.Song
	BeatIndex   int
	Strikes     int
	Hits        int
	Outcome     Outcome
	Round       int
	StrikeLimit int
	Last        stick.Direction
	LastHit     bool
}

func NewSession(strikeLimit int) *Session {
	if strikeLimit <= 0 {
		strikeLimit = DefaultStrikeLimit
	}
	return &Session{State: TitleSelect, Outcome: InProgress, StrikeLimit: strikeLimit}
}

// Start begins a round of sg.
func (s *Session) Start(sg song.Song) {
	s.Reset()
	s.Song = sg
	s.Round++
	s.State = SongPlay
}

// Reset clears the per-round counters. The chosen song is kept until the
// next Start.
func (s *Session) Reset() {
	s.BeatIndex = 0
	s.Strikes = 0
	s.Hits = 0
	s.Outcome = InProgress
	s.Last = stick.None
	s.LastHit = false
}

// Expected is the direction due at the current beat.
func (s *Session) Expected() stick.Direction {
	return s.Song.At(s.BeatIndex)
}

// Resolve scores got against the current beat and advances the cursor.
// Anything other than the expected direction, None included, is a strike.
// It reports whether the beat was a hit.
func (s *Session) Resolve(got stick.Direction) bool {
	if s.Outcome != InProgress || s.BeatIndex >= s.Song.Len() {
		return false
	}
	hit := got != stick.None && got == s.Expected()
	s.Last = got
	s.LastHit = hit
	if hit {
		s.Hits++
	} else {
		s.Strikes++
		if s.Strikes >= s.StrikeLimit {
			s.Outcome = Lose
		}
	}
	s.BeatIndex++
	return hit
}

// Finished reports whether the round is over, marking it won when the
// cursor reached the end of the song without a loss.
func (s *Session) Finished() bool {
	if s.Outcome == InProgress && s.BeatIndex >= s.Song.Len() {
		s.Outcome = Win
	}
	return s.Outcome != InProgress
}

// Snapshot is a copy of the session for observers.
type Snapshot struct {
	State     State   `json:"state"`
	Outcome   Outcome `json:"outcome"`
	Round     int     `json:"round"`
	SongID    int     `json:"song_id,omitempty"`
	SongName  string  `json:"song_name,omitempty"`
	SongLen   int     `json:"song_len"`
	BeatIndex int     `json:"beat_index"`
	Expected  string  `json:"expected,omitempty"`
	Strikes   int     `json:"strikes"`
	Hits      int     `json:"hits"`
	Last      string  `json:"last,omitempty"`
	LastHit   bool    `json:"last_hit"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:     s.State,
		Outcome:   s.Outcome,
		Round:     s.Round,
		SongID:    s.Song.ID,
		SongName:  s.Song.Name,
		SongLen:   s.Song.Len(),
		BeatIndex: s.BeatIndex,
		Strikes:   s.Strikes,
		Hits:      s.Hits,
		LastHit:   s.LastHit,
	}
	if e := s.Expected(); e != stick.None {
		snap.Expected = e.String()
	}
	if s.Last != stick.None {
		snap.Last = s.Last.String()
	}
	return snap
}
