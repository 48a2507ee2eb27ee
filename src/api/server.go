package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"limit-order-book/src/book"
	"limit-order-book/src/infra"
)

// Server is the JSON boundary in front of a single order book. Prices cross
// it as decimal strings and are scaled to integer ticks before they reach
// the engine.
type Server struct {
	book *book.OrderBook
	mux  *http.ServeMux
	log  *slog.Logger

	tick         decimal.Decimal
	pushInterval time.Duration
}

func NewServer(b *book.OrderBook, cfg *infra.Config, log *slog.Logger) *Server {
	s := &Server{
		book:         b,
		mux:          http.NewServeMux(),
		log:          log,
		tick:         cfg.TickDecimal(),
		pushInterval: time.Duration(cfg.Server.PushIntervalMS) * time.Millisecond,
	}
	s.registerRoutes()
	return s
}

// ServeHTTP allows Server to satisfy http.Handler, delegating to its mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/api/v1/orders", s.handleOrders)
	s.mux.HandleFunc("/api/v1/orders/", s.handleOrderByID)
	s.mux.HandleFunc("/api/v1/orderbook", s.handleOrderBook)
	s.mux.HandleFunc("/api/v1/orderbook/ws", s.handleOrderBookStream)
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "healthy"})
	})
}

type createOrderRequest struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type modifyOrderRequest struct {
	Type     string `json:"type"`
	Side     string `json:"side"`
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

type cancelBatchRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type tradeView struct {
	TradeID   string `json:"trade_id"`
	BidOrder  string `json:"bid_order_id"`
	AskOrder  string `json:"ask_order_id"`
	Price     string `json:"price"`
	Quantity  int64  `json:"quantity"`
	Timestamp int64  `json:"timestamp"`
}

type levelView struct {
	Price    string `json:"price"`
	Quantity int64  `json:"quantity"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createOrder(w, r)
	case http.MethodDelete:
		s.cancelBatch(w, r)
	default:
		s.writeErrorPlain(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid json")
		return
	}
	if req.Quantity <= 0 {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: quantity must be positive")
		return
	}
	orderType, err := parseOrderType(req.Type)
	if err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}

	// Market orders are priced by the book itself.
	var ticks int64
	if orderType != book.Market {
		ticks, err = s.priceToTicks(req.Price)
		if err != nil {
			s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
			return
		}
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	} else if s.book.Contains(id) {
		// Order ids are immutable identities for the book's lifetime; the
		// book would reject the duplicate as a silent no-op, which the
		// resting order with the same id would make unreadable here.
		s.writeErrorPlain(w, http.StatusConflict, "Order id already exists: "+id)
		return
	}

	order := book.NewOrder(orderType, id, side, ticks, req.Quantity)
	trades := s.book.AddOrder(order)

	s.log.Info("order submitted",
		"order_id", id, "type", string(orderType), "side", string(side),
		"quantity", req.Quantity, "trades", len(trades))

	inBook := s.book.Contains(id)
	status := orderStatus(order, len(trades), inBook)

	w.Header().Set("Content-Type", "application/json")
	switch status {
	case "ACCEPTED":
		w.WriteHeader(http.StatusCreated)
	case "REJECTED":
		w.WriteHeader(http.StatusUnprocessableEntity)
	default:
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":           id,
		"status":             status,
		"filled_quantity":    order.FilledQuantity(),
		"remaining_quantity": order.Remaining,
		"order_in_book":      inBook,
		"trades":             s.tradeViews(trades),
	})
}

// orderStatus classifies the submit outcome the way callers read it: no
// trades and not resting is the rejection signal.
func orderStatus(o *book.Order, trades int, inBook bool) string {
	switch {
	case o.IsFilled():
		return "FILLED"
	case trades > 0:
		return "PARTIAL_FILL"
	case inBook:
		return "ACCEPTED"
	default:
		return "REJECTED"
	}
}

func (s *Server) cancelBatch(w http.ResponseWriter, r *http.Request) {
	var req cancelBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid json")
		return
	}
	s.book.CancelOrders(req.OrderIDs)
	s.log.Info("batch cancel", "count", len(req.OrderIDs))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"cancelled": req.OrderIDs,
		"size":      s.book.Size(),
	})
}

func (s *Server) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/orders/")
	if id == "" {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: order id required")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		s.cancelOrder(w, r, id)
	case http.MethodPut:
		s.modifyOrder(w, r, id)
	default:
		s.writeErrorPlain(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) cancelOrder(w http.ResponseWriter, _ *http.Request, id string) {
	if !s.book.Contains(id) {
		s.writeErrorPlain(w, http.StatusNotFound, "Order not found")
		return
	}
	s.book.CancelOrder(id)
	s.log.Info("order cancelled", "order_id", id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id": id,
		"status":   "CANCELLED",
	})
}

func (s *Server) modifyOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req modifyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid json")
		return
	}
	if req.Quantity <= 0 {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: quantity must be positive")
		return
	}
	orderType, err := parseOrderType(req.Type)
	if err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}
	ticks, err := s.priceToTicks(req.Price)
	if err != nil {
		s.writeErrorPlain(w, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}
	if !s.book.Contains(id) {
		s.writeErrorPlain(w, http.StatusNotFound, "Order not found")
		return
	}

	trades := s.book.ModifyOrder(book.OrderModify{
		OrderID:  id,
		Side:     side,
		Price:    ticks,
		Quantity: req.Quantity,
	}, orderType)
	s.log.Info("order modified", "order_id", id, "trades", len(trades))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id":      id,
		"order_in_book": s.book.Contains(id),
		"trades":        s.tradeViews(trades),
	})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	depthParam := r.URL.Query().Get("depth")
	depth := 0
	if depthParam != "" {
		if v, err := strconv.Atoi(depthParam); err == nil && v >= 0 {
			depth = v
		} else {
			s.writeErrorPlain(w, http.StatusBadRequest, "invalid depth")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(s.depthSnapshot(depth))
}

func (s *Server) depthSnapshot(depth int) map[string]interface{} {
	infos := s.book.Levels()
	return map[string]interface{}{
		"timestamp": time.Now().UnixNano() / 1_000_000,
		"bids":      s.levelViews(infos.Bids, depth),
		"asks":      s.levelViews(infos.Asks, depth),
	}
}

func (s *Server) levelViews(levels []book.LevelInfo, depth int) []levelView {
	if depth > 0 && len(levels) > depth {
		levels = levels[:depth]
	}
	views := make([]levelView, 0, len(levels))
	for _, l := range levels {
		views = append(views, levelView{Price: s.ticksToPrice(l.Price), Quantity: l.Quantity})
	}
	return views
}

func (s *Server) tradeViews(trades []book.Trade) []tradeView {
	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		views = append(views, tradeView{
			TradeID:   t.TradeID,
			BidOrder:  t.Bid.OrderID,
			AskOrder:  t.Ask.OrderID,
			Price:     s.ticksToPrice(t.Price),
			Quantity:  t.Quantity,
			Timestamp: t.Timestamp,
		})
	}
	return views
}

// priceToTicks parses a decimal price string and scales it to integer ticks.
func (s *Server) priceToTicks(price string) (int64, error) {
	if price == "" {
		return 0, errors.New("price is required")
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return 0, errors.New("invalid price: " + price)
	}
	if !p.IsPositive() {
		return 0, errors.New("price must be > 0")
	}
	scaled := p.Div(s.tick)
	if !scaled.IsInteger() {
		return 0, errors.New("price " + price + " is not a multiple of the tick size " + s.tick.String())
	}
	return scaled.IntPart(), nil
}

func (s *Server) ticksToPrice(ticks int64) string {
	return decimal.NewFromInt(ticks).Mul(s.tick).String()
}

func parseSide(v string) (book.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(book.Buy):
		return book.Buy, nil
	case string(book.Sell):
		return book.Sell, nil
	default:
		return "", errors.New("invalid side; must be BUY or SELL")
	}
}

func parseOrderType(v string) (book.OrderType, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case string(book.GoodTillCancel), "GTC":
		return book.GoodTillCancel, nil
	case string(book.GoodForDay), "GFD":
		return book.GoodForDay, nil
	case string(book.FillAndKill), "FAK", "IOC":
		return book.FillAndKill, nil
	case string(book.FillOrKill), "FOK":
		return book.FillOrKill, nil
	case string(book.Market):
		return book.Market, nil
	default:
		return "", errors.New("invalid type; must be GOOD_TILL_CANCEL, GOOD_FOR_DAY, FILL_AND_KILL, FILL_OR_KILL or MARKET")
	}
}

// helper for simple error bodies
func (s *Server) writeErrorPlain(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
