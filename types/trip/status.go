package trip

import "fmt"

// Status is the lifecycle state of a trip.
// It governs which inputs the tracker accepts.
type Status int

const (
	Idle Status = iota
	Running
	Paused
	Stopped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Active is true while the trip clock runs, ie. Running or Paused.
func (s Status) Active() bool {
	return s == Running || s == Paused
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "paused":
		*s = Paused
	case "stopped":
		*s = Stopped
	default:
		return fmt.Errorf("unknown trip status %q", text)
	}
	return nil
}
