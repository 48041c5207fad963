package editor

// State is the single active-gesture slot of a Controller.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateDragging
	StateResizing
	StateRotating
)

func (s State) String() string {
	switch s {
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StateRotating:
		return "rotating"
	default:
		return "idle"
	}
}

// MarshalText lets State travel as its name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
