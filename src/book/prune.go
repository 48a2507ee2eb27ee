package book

import "time"

// DefaultPruneHour is the local wall-clock hour at which GoodForDay orders
// are swept.
const DefaultPruneHour = 16

// pruneFudge absorbs timer scheduling slop so a wakeup never lands just
// before the cutoff instant.
const pruneFudge = 100 * time.Millisecond

// nextPrune returns the next cutoff instant after now; if today's cutoff has
// already passed, tomorrow's.
func nextPrune(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// pruneGoodForDay runs for the book's lifetime, sweeping GoodForDay orders
// at each daily cutoff. The timed wait happens outside the lock and is
// interruptible by Close at any point.
func (ob *OrderBook) pruneGoodForDay() {
	defer ob.pruneWG.Done()

	for {
		timer := time.NewTimer(time.Until(nextPrune(time.Now(), ob.pruneHour)) + pruneFudge)
		select {
		case <-ob.shutdown:
			timer.Stop()
			return
		case <-timer.C:
		}
		ob.pruneOnce()
	}
}

// pruneOnce snapshots the GoodForDay ids under the shared lock, releases it,
// then cancels exactly that set as one batch. The split keeps the scan off
// the exclusive lock while the batch cancel stays atomic.
func (ob *OrderBook) pruneOnce() {
	ob.mu.RLock()
	var orderIDs []string
	for id, order := range ob.orders {
		if order.Type != GoodForDay {
			continue
		}
		orderIDs = append(orderIDs, id)
	}
	ob.mu.RUnlock()

	ob.CancelOrders(orderIDs)
}
