package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPaid       Status = "paid"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// InitialStatus is assigned by PlaceOrder; callers never choose it.
const InitialStatus = StatusPending

var known = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusPaid:       true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

// ParseStatus accepts any listed status, case-insensitively. Admins may move
// an order between any two listed statuses, so there is no transition table.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !known[st] {
		return "", &InvalidRequestError{Reason: fmt.Sprintf("unknown order status %q", s)}
	}
	return st, nil
}

// Terminal reports whether the status ends the fulfilment flow. It is
// informational only and does not block further updates.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}
