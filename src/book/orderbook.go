package book

import (
	"sync"

	"github.com/google/btree"
)

// OrderBook is a single-instrument, price-time-priority matching engine.
//
// All shared state (both side trees, the flat order index and the level
// aggregate table) forms one logical unit guarded by mu: exclusive for every
// mutation, shared for Size/Contains/Levels reads. The book owns a
// background goroutine that sweeps GoodForDay orders at the daily cutoff;
// Close stops and joins it.
type OrderBook struct {
	mu sync.RWMutex

	bids *btree.BTreeG[*PriceLevel] // Max-heap (highest price first)
	asks *btree.BTreeG[*PriceLevel] // Min-heap (lowest price first)

	bidPriceMap map[int64]*PriceLevel
	askPriceMap map[int64]*PriceLevel

	orders map[string]*Order    // flat index, id -> resting order
	levels map[int64]*levelData // aggregate table, price -> rollup

	pruneHour int
	shutdown  chan struct{}
	pruneWG   sync.WaitGroup
	closeOnce sync.Once
}

// NewOrderBook creates a book sweeping GoodForDay orders at the default
// cutoff hour and starts the background sweep.
func NewOrderBook() *OrderBook {
	return NewOrderBookWithCutoff(DefaultPruneHour)
}

// NewOrderBookWithCutoff creates a book with an explicit daily cutoff hour
// (local time, 0-23) and starts the background sweep.
func NewOrderBookWithCutoff(pruneHour int) *OrderBook {
	ob := &OrderBook{
		bids:        btree.NewG(2, BidsSort),
		asks:        btree.NewG(2, AsksSort),
		bidPriceMap: make(map[int64]*PriceLevel),
		askPriceMap: make(map[int64]*PriceLevel),
		orders:      make(map[string]*Order),
		levels:      make(map[int64]*levelData),
		pruneHour:   pruneHour,
		shutdown:    make(chan struct{}),
	}
	ob.pruneWG.Add(1)
	go ob.pruneGoodForDay()
	return ob
}

// Close stops the background sweep and waits for it to exit. Safe to call
// more than once.
func (ob *OrderBook) Close() {
	ob.closeOnce.Do(func() {
		close(ob.shutdown)
	})
	ob.pruneWG.Wait()
}

// AddOrder admits an order and returns the trades produced by matching.
// A non-positive quantity, a duplicate id, an infeasible FillOrKill, a
// FillAndKill that cannot cross and a Market order against an empty opposing
// book are all rejected as no-ops with an empty result.
func (ob *OrderBook) AddOrder(order *Order) []Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.addOrder(order)
}

func (ob *OrderBook) addOrder(order *Order) []Trade {
	// Quantity is unsigned in the domain; nothing non-positive can rest.
	if order.Quantity <= 0 {
		return nil
	}
	if _, exists := ob.orders[order.ID]; exists {
		return nil
	}

	if order.Type == Market {
		worst, ok := ob.worstOpposing(order.Side)
		if !ok {
			return nil
		}
		order.toGoodTillCancel(worst)
	}

	if order.Type == FillAndKill && !ob.canMatch(order.Side, order.Price) {
		return nil
	}
	if order.Type == FillOrKill && !ob.canFullyFill(order.Side, order.Price, order.Remaining) {
		return nil
	}

	ob.levelFor(order.Side, order.Price).AddOrder(order)
	ob.orders[order.ID] = order
	ob.updateLevelData(order.Price, order.Quantity, levelAdd)

	return ob.matchOrders(order)
}

// CancelOrder removes a resting order. Absent ids are a no-op.
func (ob *OrderBook) CancelOrder(orderID string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	ob.cancelOrder(orderID)
}

// CancelOrders cancels a batch of ids atomically: the exclusive lock is held
// for the whole batch, so no concurrent add or match observes it half done.
func (ob *OrderBook) CancelOrders(orderIDs []string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	for _, id := range orderIDs {
		ob.cancelOrder(id)
	}
}

// ModifyOrder cancels the target and re-admits a replacement built from the
// request, as one critical section: no concurrent operation can observe the
// order missing in between. Absent ids are a no-op with an empty result.
func (ob *OrderBook) ModifyOrder(modify OrderModify, orderType OrderType) []Trade {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	// An inadmissible replacement must not destroy the resting order.
	if modify.Quantity <= 0 {
		return nil
	}
	if _, exists := ob.orders[modify.OrderID]; !exists {
		return nil
	}
	ob.cancelOrder(modify.OrderID)
	return ob.addOrder(modify.ToOrder(orderType))
}

// Size returns the number of resting orders.
func (ob *OrderBook) Size() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return len(ob.orders)
}

// Contains reports whether an order id is currently resting.
func (ob *OrderBook) Contains(orderID string) bool {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	_, ok := ob.orders[orderID]
	return ok
}

// Levels returns the depth snapshot, both sides best price first, read
// straight from the aggregate table.
func (ob *OrderBook) Levels() LevelInfos {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	infos := LevelInfos{
		Bids: make([]LevelInfo, 0, ob.bids.Len()),
		Asks: make([]LevelInfo, 0, ob.asks.Len()),
	}
	ob.bids.Ascend(func(l *PriceLevel) bool {
		infos.Bids = append(infos.Bids, LevelInfo{Price: l.Price, Quantity: ob.levels[l.Price].quantity})
		return true
	})
	ob.asks.Ascend(func(l *PriceLevel) bool {
		infos.Asks = append(infos.Asks, LevelInfo{Price: l.Price, Quantity: ob.levels[l.Price].quantity})
		return true
	})
	return infos
}

// --- matching ---

// matchOrders crosses the book until the best bid no longer meets the best
// ask. The trade price is the resting (maker) side's price; with one
// incoming order that is always the head opposite it.
func (ob *OrderBook) matchOrders(incoming *Order) []Trade {
	var trades []Trade

	for {
		bestBid, ok := ob.bids.Min()
		if !ok {
			break
		}
		bestAsk, ok := ob.asks.Min()
		if !ok {
			break
		}
		if bestBid.Price < bestAsk.Price {
			break
		}

		for bestBid.Orders.Len() > 0 && bestAsk.Orders.Len() > 0 {
			bid := bestBid.front()
			ask := bestAsk.front()

			quantity := min(bid.Remaining, ask.Remaining)
			price := ask.Price
			if ask == incoming {
				price = bid.Price
			}

			bid.Fill(quantity)
			ask.Fill(quantity)
			trades = append(trades, newTrade(bid, ask, price, quantity))

			ob.settleFill(bid, quantity)
			ob.settleFill(ask, quantity)
		}
	}

	// A FillAndKill remainder does not rest; withdraw it through the same
	// path as a cancellation.
	if incoming.Type == FillAndKill && !incoming.IsFilled() {
		ob.cancelOrder(incoming.ID)
	}

	return trades
}

// settleFill updates the structures after one fill: a fully filled order is
// removed outright, a partial fill only reduces its aggregate contribution.
func (ob *OrderBook) settleFill(order *Order, quantity int64) {
	if order.IsFilled() {
		ob.unlink(order)
		ob.updateLevelData(order.Price, quantity, levelRemove)
	} else {
		ob.updateLevelData(order.Price, quantity, levelMatch)
	}
}

// canMatch reports whether an order at this side/price crosses the book.
func (ob *OrderBook) canMatch(side Side, price int64) bool {
	if side == Buy {
		bestAsk, ok := ob.asks.Min()
		return ok && price >= bestAsk.Price
	}
	bestBid, ok := ob.bids.Min()
	return ok && price <= bestBid.Price
}

// canFullyFill walks the opposing levels from the best price outward,
// accumulating aggregate quantity, until the requirement is met or a level
// falls outside the order's limit. Only levels at or better than the current
// best opposing price and within the limit are eligible; walking the
// opposing tree in its own order enforces both.
func (ob *OrderBook) canFullyFill(side Side, price, quantity int64) bool {
	if !ob.canMatch(side, price) {
		return false
	}

	feasible := false
	walk := func(l *PriceLevel) bool {
		if side == Buy && l.Price > price {
			return false
		}
		if side == Sell && l.Price < price {
			return false
		}
		quantity -= ob.levels[l.Price].quantity
		feasible = quantity <= 0
		return !feasible
	}

	if side == Buy {
		ob.asks.Ascend(walk)
	} else {
		ob.bids.Ascend(walk)
	}
	return feasible
}

// worstOpposing returns the worst price on the opposing side, used to pin a
// market order so it can sweep the whole book.
func (ob *OrderBook) worstOpposing(side Side) (int64, bool) {
	var level *PriceLevel
	var ok bool
	if side == Buy {
		level, ok = ob.asks.Max()
	} else {
		level, ok = ob.bids.Max()
	}
	if !ok {
		return 0, false
	}
	return level.Price, true
}

// --- structural bookkeeping ---

// levelFor returns the side's level at price, creating it on first use.
func (ob *OrderBook) levelFor(side Side, price int64) *PriceLevel {
	priceMap, tree := ob.sideFor(side)
	level, exists := priceMap[price]
	if !exists {
		level = NewPriceLevel(price)
		priceMap[price] = level
		tree.ReplaceOrInsert(level) // O(log N)
	}
	return level
}

func (ob *OrderBook) sideFor(side Side) (map[int64]*PriceLevel, *btree.BTreeG[*PriceLevel]) {
	if side == Buy {
		return ob.bidPriceMap, ob.bids
	}
	return ob.askPriceMap, ob.asks
}

// unlink removes an order from the flat index and its side/price queue,
// erasing the level when its queue empties.
func (ob *OrderBook) unlink(order *Order) {
	delete(ob.orders, order.ID)

	priceMap, tree := ob.sideFor(order.Side)
	level := priceMap[order.Price]
	level.RemoveOrder(order)
	if level.Orders.Len() == 0 {
		delete(priceMap, order.Price)
		tree.Delete(level)
	}
}

// cancelOrder is the shared removal path for cancels, expiry and withdrawn
// FillAndKill remainders. Caller holds the exclusive lock.
func (ob *OrderBook) cancelOrder(orderID string) {
	order, exists := ob.orders[orderID]
	if !exists {
		return
	}
	ob.unlink(order)
	ob.updateLevelData(order.Price, order.Remaining, levelRemove)
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
