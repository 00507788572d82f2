package notify

// Publisher is what the order and payment services see: a post-commit,
// fire-and-forget fan-out. Implementations must never block the caller
// and never return an error into the request path.
type Publisher interface {
	Publish(channel, event string, payload any)
}

// Channel naming. A client joins one or more of these on its socket.
const ChannelAdmins = "admins"

func CustomerChannel(customerID string) string { return "customer:" + customerID }

// OrderChannel targets the clients currently viewing one order.
func OrderChannel(orderID string) string { return "order:" + orderID }
