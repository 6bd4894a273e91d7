package session

// State is the state of a connection. It's owned by the session and changes only on
// its goroutine.
type State uint8

const (
	Idle State = iota
	ReadingHeaders
	ReadingBody
	Dispatching
	WritingHeaders
	WritingBody
	KeepAliveWait
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case ReadingHeaders:
		return "ReadingHeaders"
	case ReadingBody:
		return "ReadingBody"
	case Dispatching:
		return "Dispatching"
	case WritingHeaders:
		return "WritingHeaders"
	case WritingBody:
		return "WritingBody"
	case KeepAliveWait:
		return "KeepAliveWait"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}
