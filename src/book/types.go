package book

import (
	"time"

	"github.com/google/uuid"
)

// Side defines the side of an order (BUY or SELL).
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType is the validity class of an order.
type OrderType string

const (
	// GoodTillCancel rests until filled or explicitly cancelled.
	GoodTillCancel OrderType = "GOOD_TILL_CANCEL"
	// GoodForDay rests like GoodTillCancel but is swept at the daily cutoff.
	GoodForDay OrderType = "GOOD_FOR_DAY"
	// FillAndKill executes immediately; any unmatched remainder is discarded.
	FillAndKill OrderType = "FILL_AND_KILL"
	// FillOrKill is admitted only if its full quantity is immediately fillable.
	FillOrKill OrderType = "FILL_OR_KILL"
	// Market is re-priced to the worst opposing level on arrival and then
	// rests as GoodTillCancel for whatever cannot execute.
	Market OrderType = "MARKET"
)

// TradeSide identifies one participant of a trade, carrying that order's
// own limit price.
type TradeSide struct {
	OrderID string `json:"order_id"`
	Price   int64  `json:"price"`
}

// Trade is one head-to-head execution between the best bid and best ask.
// Price is the maker (resting side) price, quantity the matched amount.
type Trade struct {
	TradeID   string    `json:"trade_id"`
	Bid       TradeSide `json:"bid"`
	Ask       TradeSide `json:"ask"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	Timestamp int64     `json:"timestamp"`
}

func newTrade(bid, ask *Order, price, quantity int64) Trade {
	return Trade{
		TradeID:   uuid.New().String(),
		Bid:       TradeSide{OrderID: bid.ID, Price: bid.Price},
		Ask:       TradeSide{OrderID: ask.ID, Price: ask.Price},
		Price:     price,
		Quantity:  quantity,
		Timestamp: time.Now().UnixNano() / 1_000_000, // Unix Milliseconds
	}
}

// LevelInfo is the aggregated resting quantity at one price.
type LevelInfo struct {
	Price    int64 `json:"price"`
	Quantity int64 `json:"quantity"`
}

// LevelInfos is a depth snapshot, both sides ordered best price first.
type LevelInfos struct {
	Bids []LevelInfo `json:"bids"`
	Asks []LevelInfo `json:"asks"`
}
