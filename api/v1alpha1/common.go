package v1alpha1

// Event kinds of a progress stream.
const (
	EventProgress = "progress"
	EventComplete = "complete"
	EventError    = "error"
)

func IsTerminalEvent(kind string) bool {
	return kind == EventComplete || kind == EventError
}

func StringToVerificationStatus(s string) VerificationStatus {
	switch s {
	case string(VerificationStatusVerified):
		return VerificationStatusVerified
	case string(VerificationStatusNotVerified):
		return VerificationStatusNotVerified
	case string(VerificationStatusTimedOut):
		return VerificationStatusTimedOut
	default:
		return VerificationStatusPending
	}
}
