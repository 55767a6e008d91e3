// REST API CLIENT FOR BINANCE USDⓈ-M FUTURES
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"futuresexecutor/src/model"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	defaultBaseURL    = "https://testnet.binancefuture.com"
	defaultRecvWindow = int64(5000)

	// allOrders page used when openOrders is unavailable
	openOrdersFallbackLimit = 500
)

// -----------------------------
// A) AUTHENTICATED CLIENT
// -----------------------------
type BinanceFuturesClient struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	recvWindow int64
	http       *resty.Client
	now        func() time.Time
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

func NewBinanceFuturesClient(apiKey, apiSecret, baseURL string) *BinanceFuturesClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.WithField("baseURL", baseURL).Warn("No base URL provided, using default")
	}

	c := &BinanceFuturesClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		recvWindow: defaultRecvWindow,
		now:        time.Now,
	}
	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(15 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(c.retryable)
	return c
}

type signedAtKey struct{}

// retryable only retries GET requests. An order, cancel or account change
// that failed with a 5xx or a transport error may still have executed
// (-1007), so it is sent once. Signed reads stop retrying once the signature
// timestamp is older than recvWindow.
func (c *BinanceFuturesClient) retryable(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if signedAt, ok := r.Request.Context().Value(signedAtKey{}).(time.Time); ok {
		if c.now().Sub(signedAt) >= time.Duration(c.recvWindow)*time.Millisecond {
			return false
		}
	}
	return isRetryableResp(r, err)
}

// NewBinanceFuturesClientFromConfig builds a client from the environment.
func NewBinanceFuturesClientFromConfig(cfg Config) *BinanceFuturesClient {
	c := NewBinanceFuturesClient(cfg.BinanceAPIKey, cfg.BinanceAPISecret, cfg.BinanceBaseURL)
	if cfg.BinanceRecvWindow > 0 {
		c.recvWindow = cfg.BinanceRecvWindow
	}
	if cfg.HTTPTimeout > 0 {
		c.http.SetTimeout(cfg.HTTPTimeout)
	}
	return c
}

func signQuery(query, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest sends a request with params in the query string. Signed requests
// carry timestamp, recvWindow and the HMAC of the exact encoded query, so the
// query is appended to the path as-is rather than through resty params, which
// would be re-encoded.
func (c *BinanceFuturesClient) doRequest(ctx context.Context, method, path string, params url.Values, signed bool, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	query := params.Encode()
	if signed {
		signedAt := c.now()
		ctx = context.WithValue(ctx, signedAtKey{}, signedAt)
		params.Set("timestamp", strconv.FormatInt(signedAt.UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(c.recvWindow, 10))
		query = params.Encode()
		query += "&signature=" + signQuery(query, c.apiSecret)
	}

	req := c.http.R().SetContext(ctx)
	if signed {
		req = req.SetHeader("X-MBX-APIKEY", c.apiKey)
	}

	target := path
	if query != "" {
		target += "?" + query
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		return err
	}

	raw := resp.Body()

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		apiErr := &APIError{HTTPStatus: resp.StatusCode()}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Code == 0 {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(raw))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func toFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// -----------------------------
// B) ACCOUNT & POSITION METHODS
// -----------------------------
type balanceRow struct {
	Asset            string          `json:"asset"`
	Balance          decimal.Decimal `json:"balance"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// GetAvailableBalance returns availableBalance for asset, zero if the
// account has no row for it.
func (c *BinanceFuturesClient) GetAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	var rows []balanceRow
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/balance", nil, true, &rows); err != nil {
		return decimal.Zero, err
	}
	for _, r := range rows {
		if strings.EqualFold(r.Asset, asset) {
			return r.AvailableBalance, nil
		}
	}
	return decimal.Zero, nil
}

type positionRiskRow struct {
	Symbol           string `json:"symbol"`
	PositionAmt      string `json:"positionAmt"`
	EntryPrice       string `json:"entryPrice"`
	BreakEvenPrice   string `json:"breakEvenPrice"`
	MarkPrice        string `json:"markPrice"`
	UnRealizedProfit string `json:"unRealizedProfit"`
	LiquidationPrice string `json:"liquidationPrice"`
	Leverage         string `json:"leverage"`
	MarginType       string `json:"marginType"`
	IsolatedWallet   string `json:"isolatedWallet"`
}

// GetPosition returns the open position for symbol, or nil when flat. With
// several non-zero rows (hedge mode) the largest absolute amount wins.
func (c *BinanceFuturesClient) GetPosition(ctx context.Context, symbol string) (*model.Position, error) {
	var rows []positionRiskRow
	params := url.Values{"symbol": {symbol}}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v2/positionRisk", params, true, &rows); err != nil {
		return nil, err
	}
	return selectOpenPosition(symbol, rows), nil
}

func selectOpenPosition(symbol string, rows []positionRiskRow) *model.Position {
	var best *positionRiskRow
	bestAbs := 0.0
	for i := range rows {
		amt := math.Abs(toFloat(rows[i].PositionAmt))
		if amt > bestAbs {
			best = &rows[i]
			bestAbs = amt
		}
	}
	if best == nil {
		return nil
	}

	p := model.NewPosition(symbol,
		toFloat(best.PositionAmt),
		toFloat(best.EntryPrice),
		toFloat(best.UnRealizedProfit),
		toFloat(best.IsolatedWallet),
	)
	if p == nil {
		return nil
	}
	p.BreakEvenPrice = toFloat(best.BreakEvenPrice)
	p.MarkPrice = toFloat(best.MarkPrice)
	p.LiquidationPrice = toFloat(best.LiquidationPrice)
	p.Leverage = int(toFloat(best.Leverage))
	p.MarginType = strings.ToLower(best.MarginType)
	return p
}

func (c *BinanceFuturesClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{
		"symbol":   {symbol},
		"leverage": {strconv.Itoa(leverage)},
	}
	return c.doRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params, true, nil)
}

func (c *BinanceFuturesClient) SetMarginType(ctx context.Context, symbol, marginType string) error {
	params := url.Values{
		"symbol":     {symbol},
		"marginType": {strings.ToUpper(marginType)},
	}
	return c.doRequest(ctx, http.MethodPost, "/fapi/v1/marginType", params, true, nil)
}

// -----------------------------
// C) TRADING METHODS
// -----------------------------
type orderRow struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	StopPrice     string `json:"stopPrice"`
	AvgPrice      string `json:"avgPrice"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	TimeInForce   string `json:"timeInForce"`
	ReduceOnly    bool   `json:"reduceOnly"`
	ClosePosition bool   `json:"closePosition"`
	WorkingType   string `json:"workingType"`
	UpdateTime    int64  `json:"updateTime"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		OrderID:       r.OrderID,
		ClientOrderID: r.ClientOrderID,
		Symbol:        r.Symbol,
		Side:          model.Side(strings.ToUpper(r.Side)),
		Type:          model.OrderType(strings.ToUpper(r.Type)),
		Status:        model.OrderStatus(strings.ToUpper(r.Status)),
		Price:         toFloat(r.Price),
		StopPrice:     toFloat(r.StopPrice),
		AvgPrice:      toFloat(r.AvgPrice),
		OrigQty:       toFloat(r.OrigQty),
		ExecutedQty:   toFloat(r.ExecutedQty),
		TimeInForce:   model.TimeInForce(r.TimeInForce),
		ReduceOnly:    r.ReduceOnly,
		ClosePosition: r.ClosePosition,
		WorkingType:   model.WorkingType(r.WorkingType),
		UpdateTime:    r.UpdateTime,
	}
}

func orderParams(o model.OrderRequest) url.Values {
	params := url.Values{
		"symbol": {o.Symbol},
		"side":   {string(o.Side)},
		"type":   {string(o.Type)},
	}
	if o.Price != "" {
		params.Set("price", o.Price)
	}
	if o.Quantity != "" {
		params.Set("quantity", o.Quantity)
	}
	if o.StopPrice != "" {
		params.Set("stopPrice", o.StopPrice)
	}
	// MARKET and trigger-market orders reject a time in force on this venue
	if o.TimeInForce != "" && (o.Type == model.OrderTypeLimit || o.Type == model.OrderTypeStop || o.Type == model.OrderTypeTakeProfit) {
		params.Set("timeInForce", string(o.TimeInForce))
	}
	if o.ReduceOnly {
		params.Set("reduceOnly", "true")
	}
	if o.ClosePosition {
		params.Set("closePosition", "true")
	}
	if o.WorkingType != "" {
		params.Set("workingType", string(o.WorkingType))
	}
	if o.ClientOrderID != "" {
		params.Set("newClientOrderId", o.ClientOrderID)
	}
	return params
}

// PlaceOrder submits o and returns the exchange acknowledgment.
func (c *BinanceFuturesClient) PlaceOrder(ctx context.Context, o model.OrderRequest) (*model.Order, error) {
	var row orderRow
	if err := c.doRequest(ctx, http.MethodPost, "/fapi/v1/order", orderParams(o), true, &row); err != nil {
		return nil, err
	}
	ack := row.toModel()
	return &ack, nil
}

func (c *BinanceFuturesClient) CancelOrder(ctx context.Context, symbol string, orderID int64) (*model.Order, error) {
	var row orderRow
	params := url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatInt(orderID, 10)},
	}
	if err := c.doRequest(ctx, http.MethodDelete, "/fapi/v1/order", params, true, &row); err != nil {
		return nil, err
	}
	o := row.toModel()
	return &o, nil
}

// -----------------------------
// D) ORDER QUERY METHODS
// -----------------------------
func (c *BinanceFuturesClient) GetOrder(ctx context.Context, symbol string, orderID int64) (*model.Order, error) {
	var row orderRow
	params := url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatInt(orderID, 10)},
	}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/order", params, true, &row); err != nil {
		return nil, err
	}
	o := row.toModel()
	return &o, nil
}

// GetOpenOrders lists resting orders for symbol. When the account mode
// rejects the direct query for a missing parameter, the recent order history
// is filtered by open statuses instead.
func (c *BinanceFuturesClient) GetOpenOrders(ctx context.Context, symbol string) ([]model.Order, error) {
	var rows []orderRow
	params := url.Values{"symbol": {symbol}}
	err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/openOrders", params, true, &rows)
	if err != nil {
		if !IsParameterRequired(err) {
			return nil, err
		}
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
		}).WithError(err).Warn("openOrders unavailable, falling back to allOrders")
		return c.openOrdersFromHistory(ctx, symbol)
	}

	out := make([]model.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (c *BinanceFuturesClient) openOrdersFromHistory(ctx context.Context, symbol string) ([]model.Order, error) {
	var rows []orderRow
	params := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(openOrdersFallbackLimit)},
	}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/allOrders", params, true, &rows); err != nil {
		return nil, err
	}

	out := make([]model.Order, 0)
	for _, r := range rows {
		o := r.toModel()
		if o.Status.IsOpen() {
			out = append(out, o)
		}
	}
	return out, nil
}

// GetTrades returns the fills of one order.
func (c *BinanceFuturesClient) GetTrades(ctx context.Context, symbol string, orderID int64) ([]model.TradeExecution, error) {
	var trades []model.TradeExecution
	params := url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatInt(orderID, 10)},
	}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/userTrades", params, true, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// -----------------------------
// E) MARKET DATA METHODS
// -----------------------------
func (c *BinanceFuturesClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var tk struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	params := url.Values{"symbol": {symbol}}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/ticker/price", params, false, &tk); err != nil {
		return decimal.Zero, err
	}
	if !tk.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid price for %s: %s", symbol, tk.Price.String())
	}
	return tk.Price, nil
}

func (c *BinanceFuturesClient) GetOrderBook(ctx context.Context, symbol string, limit int) (*model.OrderBook, error) {
	var depth struct {
		Bids [][2]decimal.Decimal `json:"bids"`
		Asks [][2]decimal.Decimal `json:"asks"`
	}
	params := url.Values{
		"symbol": {symbol},
		"limit":  {strconv.Itoa(limit)},
	}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/depth", params, false, &depth); err != nil {
		return nil, err
	}

	book := &model.OrderBook{Symbol: symbol}
	for _, b := range depth.Bids {
		book.Bids = append(book.Bids, model.PriceLevel{Price: b[0], Quantity: b[1]})
	}
	for _, a := range depth.Asks {
		book.Asks = append(book.Asks, model.PriceLevel{Price: a[0], Quantity: a[1]})
	}
	return book, nil
}

type symbolFilter struct {
	FilterType  string `json:"filterType"`
	TickSize    string `json:"tickSize"`
	StepSize    string `json:"stepSize"`
	MinQty      string `json:"minQty"`
	Notional    string `json:"notional"`
	MinNotional string `json:"minNotional"`
}

type exchangeInfoSymbol struct {
	Symbol  string         `json:"symbol"`
	Filters []symbolFilter `json:"filters"`
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// GetSymbolMetadata reads tick size, step size, minimum quantity and minimum
// notional for symbol from exchangeInfo. LOT_SIZE governs the opening limit
// order, so MARKET_LOT_SIZE is only used when LOT_SIZE is absent.
func (c *BinanceFuturesClient) GetSymbolMetadata(ctx context.Context, symbol string) (*model.SymbolMetadata, error) {
	var info struct {
		Symbols []exchangeInfoSymbol `json:"symbols"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/fapi/v1/exchangeInfo", nil, false, &info); err != nil {
		return nil, err
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		return metadataFromFilters(symbol, s.Filters)
	}
	return nil, fmt.Errorf("symbol %s not found in exchangeInfo", symbol)
}

func metadataFromFilters(symbol string, filters []symbolFilter) (*model.SymbolMetadata, error) {
	meta := &model.SymbolMetadata{Symbol: symbol}
	var lot, marketLot *symbolFilter
	havePrice := false

	for i := range filters {
		f := &filters[i]
		switch f.FilterType {
		case "PRICE_FILTER":
			meta.TickSize = parseDecimal(f.TickSize)
			havePrice = true
		case "LOT_SIZE":
			lot = f
		case "MARKET_LOT_SIZE":
			marketLot = f
		case "MIN_NOTIONAL", "NOTIONAL":
			raw := f.Notional
			if raw == "" {
				raw = f.MinNotional
			}
			meta.MinNotional = parseDecimal(raw)
		}
	}

	chosen := lot
	if chosen == nil {
		chosen = marketLot
	}
	if !havePrice || chosen == nil {
		return nil, fmt.Errorf("symbol %s is missing PRICE_FILTER or LOT_SIZE", symbol)
	}
	meta.StepSize = parseDecimal(chosen.StepSize)
	meta.MinQty = parseDecimal(chosen.MinQty)
	return meta, nil
}
