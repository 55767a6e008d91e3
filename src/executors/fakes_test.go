package executors

import (
	"context"
	"errors"
	"sync"
	"time"

	"futuresexecutor/src/model"
	"futuresexecutor/src/orders"
	"futuresexecutor/src/settlement"
	"futuresexecutor/src/supervisor"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeAccount struct {
	balances    []decimal.Decimal // last one repeats
	balanceErrs []error
	calls       int
	position    *model.Position
	positionErr error
}

func (f *fakeAccount) GetAvailableBalance(_ context.Context, _ string) (decimal.Decimal, error) {
	i := f.calls
	f.calls++
	if i < len(f.balanceErrs) && f.balanceErrs[i] != nil {
		return decimal.Zero, f.balanceErrs[i]
	}
	if len(f.balances) == 0 {
		return decimal.Zero, nil
	}
	if i >= len(f.balances) {
		i = len(f.balances) - 1
	}
	return f.balances[i], nil
}

func (f *fakeAccount) GetPosition(_ context.Context, _ string) (*model.Position, error) {
	return f.position, f.positionErr
}

type fakeRules struct{ minNotional decimal.Decimal }

func (f fakeRules) MinNotional(_ context.Context, _ string) (decimal.Decimal, error) {
	return f.minNotional, nil
}

type fakeOrders struct {
	leverageErr   error
	leverageCalls int
	bookPrice     decimal.Decimal
	bookErr       error
	result        *orders.OpenResult
	openErr       error
	opened        []orders.OpenRequest
	cancelCalls   int
	cancelPartial bool
}

func (f *fakeOrders) EnsureLeverage(_ context.Context, _ string, _ int, _ string) error {
	f.leverageCalls++
	return f.leverageErr
}

func (f *fakeOrders) LimitPriceFromOrderBook(_ context.Context, _ string, _ model.Side, _ int, _ bool, _ int) (decimal.Decimal, error) {
	return f.bookPrice, f.bookErr
}

func (f *fakeOrders) OpenPosition(_ context.Context, req orders.OpenRequest) (*orders.OpenResult, error) {
	f.opened = append(f.opened, req)
	return f.result, f.openErr
}

func (f *fakeOrders) CancelRestingLimitOrders(_ context.Context, _ string, includePartial bool) (orders.CancelReport, error) {
	f.cancelCalls++
	f.cancelPartial = includePartial
	return orders.CancelReport{}, nil
}

type fakeResolver struct {
	outcome    supervisor.Outcome
	err        error
	tp, sl     *int64
	timeout    time.Duration
	waitCalls  int
	forceID    *int64
	forceErr   error
	forceCalls int
}

func (f *fakeResolver) WaitForResolution(_ context.Context, _ string, tp, sl *int64, timeout time.Duration) (supervisor.Outcome, error) {
	f.waitCalls++
	f.tp, f.sl, f.timeout = tp, sl, timeout
	return f.outcome, f.err
}

func (f *fakeResolver) ForceCloseOnTimeout(_ context.Context, _ string) (*int64, error) {
	f.forceCalls++
	return f.forceID, f.forceErr
}

type fakeSettler struct {
	result  settlement.Result
	err     error
	calls   int
	orderID int64
	entry   decimal.Decimal
	wallet  decimal.Decimal
}

func (f *fakeSettler) Settle(_ context.Context, _ string, orderID int64, entry, wallet decimal.Decimal) (settlement.Result, error) {
	f.calls++
	f.orderID, f.entry, f.wallet = orderID, entry, wallet
	return f.result, f.err
}

type fakeDecider struct {
	decisions []model.Decision // last one repeats
	calls     int
}

func (f *fakeDecider) Decide(_ context.Context, _ float64, _ int) (model.Decision, error) {
	i := f.calls
	f.calls++
	if len(f.decisions) == 0 {
		return model.Decision{Action: model.ActionBuy, Confidence: 1}, nil
	}
	if i >= len(f.decisions) {
		i = len(f.decisions) - 1
	}
	return f.decisions[i], nil
}

type fakeJournal struct {
	blocks map[int][]string
	err    error
}

func (f *fakeJournal) Append(n int, lines []string) error {
	if f.blocks == nil {
		f.blocks = map[int][]string{}
	}
	f.blocks[n] = lines
	return f.err
}

type fakeNotifier struct{ texts []string }

func (f *fakeNotifier) Notify(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return nil
}

type fakeCycles struct{ records []model.CycleRecord }

func (f *fakeCycles) Create(_ context.Context, rec *model.CycleRecord) error {
	f.records = append(f.records, *rec)
	return nil
}

type fakeExceptions struct {
	mu   sync.Mutex
	excs []model.Exception
	err  error
}

func (f *fakeExceptions) Create(_ context.Context, exc *model.Exception) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.excs = append(f.excs, *exc)
	return f.err
}

type fakeStats struct {
	stats []model.CycleStatistics
	last  *model.CycleRecord
}

func (f *fakeStats) Publish(stats model.CycleStatistics, last *model.CycleRecord) {
	f.stats = append(f.stats, stats)
	f.last = last
}

var errBoom = errors.New("boom")

func ptr(v int64) *int64 { return &v }

type harness struct {
	cfg        Config
	account    *fakeAccount
	orders     *fakeOrders
	resolver   *fakeResolver
	settler    *fakeSettler
	decider    *fakeDecider
	journal    *fakeJournal
	notifier   *fakeNotifier
	cycles     *fakeCycles
	exceptions *fakeExceptions
	stats      *fakeStats
}

func longPosition() *model.Position {
	return &model.Position{
		Symbol:           "BTCUSDT",
		Direction:        model.DirectionLong,
		Amount:           0.05,
		EntryPrice:       50000,
		BreakEvenPrice:   50010,
		LiquidationPrice: 49400,
		Leverage:         50,
		IsolatedWallet:   31.25,
	}
}

func settledTP() settlement.Result {
	s := settlement.Summarize(11, []model.TradeExecution{
		{TradeID: 1, OrderID: 11, Price: d("50000"), Quantity: d("0.02"), Commission: d("0.5"), CommissionAsset: "USDT"},
		{TradeID: 2, OrderID: 11, Price: d("50100"), Quantity: d("0.03"), Commission: d("0.75"), CommissionAsset: "USDT", RealizedPnL: d("3.2")},
	})
	return settlement.Compute(s, d("50000"), d("31.25"))
}

// newHarness wires a driver whose first cycle opens a long and hits TP.
func newHarness() *harness {
	return &harness{
		cfg: Config{
			TargetSymbol:      "BTCUSDT",
			QuoteAsset:        "USDT",
			Leverage:          50,
			MarginType:        "ISOLATED",
			MinBuffer:         1.03,
			MarginFraction:    0.05,
			LossPct:           0.3,
			GainPct:           0.08,
			TimeInForce:       "GTC",
			MakerOffsetTicks:  1,
			DepthLimit:        5,
			ResolutionTimeout: 900 * time.Second,
		},
		account: &fakeAccount{balances: []decimal.Decimal{d("1000")}, position: longPosition()},
		orders: &fakeOrders{
			bookPrice: d("49999.9"),
			result: &orders.OpenResult{
				Quantity:   d("0.05"),
				Entry:      &model.Order{OrderID: 10},
				TakeProfit: &model.Order{OrderID: 11},
				StopLoss:   &model.Order{OrderID: 12},
			},
		},
		resolver: &fakeResolver{outcome: supervisor.Outcome{
			Reason:        model.CloseReasonTakeProfit,
			FilledOrderID: ptr(11),
		}},
		settler:    &fakeSettler{result: settledTP()},
		decider:    &fakeDecider{},
		journal:    &fakeJournal{},
		notifier:   &fakeNotifier{},
		cycles:     &fakeCycles{},
		exceptions: &fakeExceptions{},
		stats:      &fakeStats{},
	}
}

func (h *harness) driver() *Driver {
	return NewDriver(h.cfg, Deps{
		Account:    h.account,
		Rules:      fakeRules{minNotional: d("100")},
		Orders:     h.orders,
		Supervisor: h.resolver,
		Settlement: h.settler,
		Decision:   h.decider,
		Journal:    h.journal,
		Notifier:   h.notifier,
		Cycles:     h.cycles,
		Exceptions: h.exceptions,
		Stats:      h.stats,
	})
}
