package book

import "container/list"

// --- B-Tree Comparators ---

// AsksSort sorts price levels from lowest price to highest price (min-heap)
func AsksSort(a, b *PriceLevel) bool {
	return a.Price < b.Price
}

// BidsSort sorts price levels from highest price to lowest price (max-heap)
func BidsSort(a, b *PriceLevel) bool {
	return a.Price > b.Price
}

// --- PriceLevel ---

// PriceLevel is a FIFO queue of Orders at a specific price.
type PriceLevel struct {
	Price  int64
	Orders *list.List // Queue of *Order
}

// NewPriceLevel creates a new PriceLevel queue
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

// AddOrder adds an order to the back of the queue (FIFO).
func (pl *PriceLevel) AddOrder(order *Order) {
	order.element = pl.Orders.PushBack(order)
}

// RemoveOrder removes a specific order from the queue.
func (pl *PriceLevel) RemoveOrder(order *Order) {
	if order.element != nil {
		pl.Orders.Remove(order.element)
		order.element = nil
	}
}

// front returns the order at the head of the queue, or nil when empty.
func (pl *PriceLevel) front() *Order {
	e := pl.Orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*Order)
}

// --- Level aggregate ---

// levelData is the per-price rollup of resting order count and quantity.
// An entry exists in the book's aggregate table iff count > 0. Keyed by
// price alone: resting bids and asks can never share a price, as that
// would be a cross.
type levelData struct {
	quantity int64
	count    int64
}

type levelAction int

const (
	levelAdd levelAction = iota
	levelRemove
	levelMatch
)

// updateLevelData applies one insert/remove/fill to the aggregate table,
// in the same critical section as the structural change it mirrors.
func (ob *OrderBook) updateLevelData(price, quantity int64, action levelAction) {
	data, ok := ob.levels[price]
	if !ok {
		data = &levelData{}
		ob.levels[price] = data
	}

	switch action {
	case levelAdd:
		data.count++
		data.quantity += quantity
	case levelRemove:
		data.count--
		data.quantity -= quantity
	case levelMatch:
		data.quantity -= quantity
	}

	if data.count == 0 {
		delete(ob.levels, price)
	}
}
