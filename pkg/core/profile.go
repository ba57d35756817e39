package core

// RuntimeProfile is the effective animation quality level. It is derived
// state: recomputed from frame-health samples or pinned by a policy
// override, never persisted.
type RuntimeProfile int

const (
	ProfileHigh RuntimeProfile = iota
	ProfileMedium
	ProfileLow
)

func (p RuntimeProfile) String() string {
	switch p {
	case ProfileHigh:
		return "high"
	case ProfileMedium:
		return "medium"
	case ProfileLow:
		return "low"
	default:
		return "unknown"
	}
}
