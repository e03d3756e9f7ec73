package orders

import (
	"fmt"

	"github.com/coffeebliss/models"
)

// AmountMismatchError reports a client-declared order total that
// disagrees with the sum computed from its line items. The order is
// rejected rather than trusting the caller-supplied total.
type AmountMismatchError struct {
	Declared float64
	Computed float64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("declared total %.2f does not match computed total %.2f", e.Declared, e.Computed)
}

// InvalidTransitionError reports an order status change outside the
// lifecycle graph.
type InvalidTransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition %s -> %s", e.From, e.To)
}
