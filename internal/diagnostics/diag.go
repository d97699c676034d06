package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes raised by the game and its drivers.
const (
	InputTimeout   = "INPUT.TIMEOUT"
	InputNoSample  = "INPUT.NO_SAMPLE"
	SerialFallback = "SERIAL.FALLBACK"
	SerialWrite    = "SERIAL.WRITE"
	DriverFallback = "DRIVER.FALLBACK"
	RoundWin       = "ROUND.WIN"
	RoundLose      = "ROUND.LOSE"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	At             time.Time      `json:"at"`
}

// Sink receives diagnostics; the telemetry hub is one.
type Sink interface {
	Push(d Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Push(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Timeout builds the diagnostic for a player input wait that ran out.
func Timeout(waitingFor string, after time.Duration) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     InputTimeout,
		Summary:  "No stick input in time",
		Detail:   waitingFor,
		LikelyCauses: []string{
			"stick held diagonally, outside every direction zone",
			"stick not returned to the centre",
			"ADC not delivering samples",
		},
		SuggestedFixes: []string{"recentre the stick, then push straight up, down, left or right"},
		Evidence:       map[string]any{"timeout_ms": after.Milliseconds()},
		At:             time.Now(),
	}
}
