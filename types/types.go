package types

type Protocol string

const (
	ProtocolPlain  Protocol = "plain"
	ProtocolSecure Protocol = "secure"
)

type State int32

const (
	StateUnbound State = iota
	StateBinding
	StateListening
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBinding:
		return "binding"
	case StateListening:
		return "listening"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
