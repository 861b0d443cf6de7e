package consensus

// Rule decides whether a set of agent responses verifies the image.
type Rule func(responses []Response) bool

// AnyTrue verifies as soon as one agent answered verified.
func AnyTrue(responses []Response) bool {
	for _, r := range responses {
		if r.Verified != nil && *r.Verified {
			return true
		}
	}
	return false
}

// Majority verifies when strictly more than half of the answering agents said verified.
func Majority(responses []Response) bool {
	if len(responses) == 0 {
		return false
	}
	yes := 0
	for _, r := range responses {
		if r.Verified != nil && *r.Verified {
			yes++
		}
	}
	return yes*2 > len(responses)
}
