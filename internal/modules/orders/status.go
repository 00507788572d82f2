package orders

const (
	StatusPending        = "PENDING"
	StatusConfirmed      = "CONFIRMED"
	StatusPreparing      = "PREPARING"
	StatusPrepared       = "PREPARED"
	StatusOutForDelivery = "OUT_FOR_DELIVERY"
	StatusDelivered      = "DELIVERED"
	StatusCompleted      = "COMPLETED"
	StatusCancelled      = "CANCELLED"
)

// forward is the happy-path chain; cancellation is handled separately in
// CanTransition because it cuts across the chain.
var forward = map[string]string{
	StatusPending:        StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusPrepared,
	StatusPrepared:       StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
	StatusDelivered:      StatusCompleted,
}

func CanTransition(from, to string) bool {
	if to == StatusCancelled {
		return !IsTerminal(from) && from != StatusDelivered
	}
	return forward[from] == to
}

// IsTerminal: no outgoing transitions. DELIVERED still moves to COMPLETED
// so it is not terminal, but it is no longer cancellable.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusPrepared,
		StatusOutForDelivery, StatusDelivered, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
