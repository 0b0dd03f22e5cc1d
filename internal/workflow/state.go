package workflow

// State is a step of the generate action
type State int

const (
	Idle State = iota
	Validating
	CheckingEntitlement
	ConsumingTrial
	Requesting
	Rendering
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case CheckingEntitlement:
		return "checking-entitlement"
	case ConsumingTrial:
		return "consuming-trial"
	case Requesting:
		return "requesting"
	case Rendering:
		return "rendering"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether the generate control should be locked
func (s State) Busy() bool {
	return s != Idle && s != Failed
}
