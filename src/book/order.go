package book

import (
	"container/list"
	"fmt"
)

// Order is a single order's fill state machine. Remaining only ever moves
// down, from Quantity to zero; the book removes an order from all structures
// the moment it reaches zero.
type Order struct {
	ID        string    `json:"id"`
	Type      OrderType `json:"type"`
	Side      Side      `json:"side"`
	Price     int64     `json:"price"` // Stored as integer ticks
	Quantity  int64     `json:"quantity"`
	Remaining int64     `json:"remaining"`

	// Internal field to store its place in the PriceLevel queue.
	element *list.Element
}

// NewOrder creates a new Order with its full quantity remaining.
func NewOrder(orderType OrderType, id string, side Side, price, quantity int64) *Order {
	return &Order{
		ID:        id,
		Type:      orderType,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
	}
}

// FilledQuantity is the executed part of the order.
func (o *Order) FilledQuantity() int64 {
	return o.Quantity - o.Remaining
}

// IsFilled reports whether the order has no quantity left.
func (o *Order) IsFilled() bool {
	return o.Remaining == 0
}

// OverfillError reports a fill exceeding an order's remaining quantity.
// The matcher never trades more than min(bid.Remaining, ask.Remaining), so
// this is a defect in the engine itself, not a caller-visible condition.
type OverfillError struct {
	OrderID   string
	Remaining int64
	Requested int64
}

func (e *OverfillError) Error() string {
	return fmt.Sprintf("order %s cannot be filled for %d, only %d remaining", e.OrderID, e.Requested, e.Remaining)
}

// Fill executes quantity against the order. Overfilling panics: it would
// corrupt the book's invariants, so it must not be absorbed as an error.
func (o *Order) Fill(quantity int64) {
	if quantity > o.Remaining {
		panic(&OverfillError{OrderID: o.ID, Remaining: o.Remaining, Requested: quantity})
	}
	o.Remaining -= quantity
}

// toGoodTillCancel re-prices a market order at the given level and lets it
// rest as GoodTillCancel from there.
func (o *Order) toGoodTillCancel(price int64) {
	o.Type = GoodTillCancel
	o.Price = price
}

// OrderModify describes a replace request: same identity, new side, price
// and quantity. It is a transient value, never stored by the book.
type OrderModify struct {
	OrderID  string
	Side     Side
	Price    int64
	Quantity int64
}

// ToOrder builds the replacement Order. Partial-fill history of the order
// being replaced is not preserved.
func (m OrderModify) ToOrder(orderType OrderType) *Order {
	return NewOrder(orderType, m.OrderID, m.Side, m.Price, m.Quantity)
}
