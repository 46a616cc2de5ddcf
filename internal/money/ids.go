package money

import (
	"time"

	"github.com/google/uuid"
)

// NewOrderID mints a process-unique order identifier, the same
// uuid.New().String() the teacher mints per accepted order.
func NewOrderID() string {
	return uuid.New().String()
}

// NewTradeID mints a process-unique trade identifier.
func NewTradeID() string {
	return uuid.New().String()
}

// Now returns the current instant stamped as UTC ISO-8601 with a literal
// "Z" suffix, the timestamp format every Order and Trade record uses.
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z")
}
