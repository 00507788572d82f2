package payments

import "errors"

// ErrNoPaymentRecord means an order exists without its payment row, which
// order creation makes impossible; seeing it indicates manual data edits.
var ErrNoPaymentRecord = errors.New("no payment record for order")
