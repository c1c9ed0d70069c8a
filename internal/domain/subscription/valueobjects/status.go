package valueobjects

type SubscriptionStatus string

const (
	StatusTrialing SubscriptionStatus = "trialing"
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsLive reports whether the subscription currently entitles the user.
func (s SubscriptionStatus) IsLive() bool {
	return s == StatusActive || s == StatusTrialing
}

func (s SubscriptionStatus) IsTerminal() bool {
	return s == StatusCanceled
}

// CanTransitionTo encodes the subscription state machine. past_due is only
// reachable from a live subscription via a failed renewal; canceled is
// terminal.
func (s SubscriptionStatus) CanTransitionTo(target SubscriptionStatus) bool {
	transitions := map[SubscriptionStatus][]SubscriptionStatus{
		StatusTrialing: {StatusActive, StatusPastDue, StatusCanceled},
		StatusActive:   {StatusPastDue, StatusCanceled},
		StatusPastDue:  {StatusActive, StatusCanceled},
		StatusCanceled: {},
	}

	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

var ValidStatuses = map[SubscriptionStatus]bool{
	StatusTrialing: true,
	StatusActive:   true,
	StatusPastDue:  true,
	StatusCanceled: true,
}
