package model

import "strings"

// Side is the exchange order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide normalizes s and reports whether it is BUY or SELL.
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

// Opposite returns the side that closes a position opened with s.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

type OrderType string

const (
	OrderTypeLimit              OrderType = "LIMIT"
	OrderTypeMarket             OrderType = "MARKET"
	OrderTypeStop               OrderType = "STOP"
	OrderTypeStopMarket         OrderType = "STOP_MARKET"
	OrderTypeTakeProfit         OrderType = "TAKE_PROFIT"
	OrderTypeTakeProfitMarket   OrderType = "TAKE_PROFIT_MARKET"
	OrderTypeTrailingStopMarket OrderType = "TRAILING_STOP_MARKET"
)

// OrderKind is the coarse class used by the cancellation helpers.
type OrderKind string

const (
	OrderKindLimit      OrderKind = "limit"
	OrderKindMarket     OrderKind = "market"
	OrderKindStopLoss   OrderKind = "stop_loss"
	OrderKindTakeProfit OrderKind = "take_profit"
	OrderKindTrailing   OrderKind = "trailing"
	OrderKindOther      OrderKind = "other"
)

// ClassifyKind maps an exchange order type onto an OrderKind.
func ClassifyKind(t OrderType) OrderKind {
	u := OrderType(strings.ToUpper(string(t)))
	switch {
	case u == OrderTypeLimit:
		return OrderKindLimit
	case u == OrderTypeMarket:
		return OrderKindMarket
	case strings.HasPrefix(string(u), "TAKE_PROFIT"):
		return OrderKindTakeProfit
	case u == OrderTypeTrailingStopMarket:
		return OrderKindTrailing
	case strings.HasPrefix(string(u), "STOP"):
		return OrderKindStopLoss
	}
	return OrderKindOther
}

// IsProtectiveType reports whether t is one of the trigger order types that
// close an existing position.
func IsProtectiveType(t OrderType) bool {
	switch OrderType(strings.ToUpper(string(t))) {
	case OrderTypeStop, OrderTypeStopMarket, OrderTypeTakeProfit, OrderTypeTakeProfitMarket, OrderTypeTrailingStopMarket:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPendingNew      OrderStatus = "PENDING_NEW"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// IsOpen reports whether the status is one an order rests in on the book.
func (s OrderStatus) IsOpen() bool {
	return s == OrderStatusNew || s == OrderStatusPartiallyFilled || s == OrderStatusPendingNew
}

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceGTX TimeInForce = "GTX" // post only
)

type WorkingType string

const (
	WorkingTypeMarkPrice     WorkingType = "MARK_PRICE"
	WorkingTypeContractPrice WorkingType = "CONTRACT_PRICE"
)

// OrderRequest is a fully formatted submission. Price, Quantity and StopPrice
// are already rounded and rendered with the symbol precision; empty strings
// are omitted from the request.
type OrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	Price         string
	Quantity      string
	StopPrice     string
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClosePosition bool
	WorkingType   WorkingType
	ClientOrderID string
}

// Order is the exchange view of a single order, either an acknowledgment
// returned from a submission or the result of a status query.
type Order struct {
	OrderID       int64       `json:"orderId"`
	ClientOrderID string      `json:"clientOrderId"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	Type          OrderType   `json:"type"`
	Status        OrderStatus `json:"status"`
	Price         float64     `json:"price"`
	StopPrice     float64     `json:"stopPrice"`
	AvgPrice      float64     `json:"avgPrice"`
	OrigQty       float64     `json:"origQty"`
	ExecutedQty   float64     `json:"executedQty"`
	TimeInForce   TimeInForce `json:"timeInForce"`
	ReduceOnly    bool        `json:"reduceOnly"`
	ClosePosition bool        `json:"closePosition"`
	WorkingType   WorkingType `json:"workingType"`
	UpdateTime    int64       `json:"updateTime"`
}

func (o Order) Kind() OrderKind {
	return ClassifyKind(o.Type)
}

// IsProtective reports whether the order would close part or all of a
// position: a trigger order type, or any order flagged reduce-only or
// close-position.
func (o Order) IsProtective() bool {
	return IsProtectiveType(o.Type) || o.ReduceOnly || o.ClosePosition
}

// IsRestingLimit reports whether the order is a plain opening LIMIT order.
func (o Order) IsRestingLimit() bool {
	if o.ReduceOnly || o.ClosePosition {
		return false
	}
	switch o.Kind() {
	case OrderKindStopLoss, OrderKindTakeProfit, OrderKindTrailing:
		return false
	}
	return o.Kind() == OrderKindLimit
}

func (o Order) Filled() bool {
	return o.Status == OrderStatusFilled
}
