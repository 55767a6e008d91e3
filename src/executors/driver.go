package executors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"futuresexecutor/src/decision"
	"futuresexecutor/src/model"
	"futuresexecutor/src/orders"
	"futuresexecutor/src/settlement"
	"futuresexecutor/src/supervisor"
	"futuresexecutor/src/utils"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// ErrInsufficientBalance stops the loop: the available balance no longer
// covers the margin of a minimum-notional order.
var ErrInsufficientBalance = errors.New("available balance below minimum margin")

type Account interface {
	GetAvailableBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	GetPosition(ctx context.Context, symbol string) (*model.Position, error)
}

type MinNotionalSource interface {
	MinNotional(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Opener interface {
	EnsureLeverage(ctx context.Context, symbol string, leverage int, marginType string) error
	LimitPriceFromOrderBook(ctx context.Context, symbol string, side model.Side, depth int, makerMode bool, offsetTicks int) (decimal.Decimal, error)
	OpenPosition(ctx context.Context, req orders.OpenRequest) (*orders.OpenResult, error)
	CancelRestingLimitOrders(ctx context.Context, symbol string, includePartial bool) (orders.CancelReport, error)
}

type Resolver interface {
	WaitForResolution(ctx context.Context, symbol string, tpOrderID, slOrderID *int64, timeout time.Duration) (supervisor.Outcome, error)
	ForceCloseOnTimeout(ctx context.Context, symbol string) (*int64, error)
}

type Settler interface {
	Settle(ctx context.Context, symbol string, orderID int64, entryPrice, isolatedWallet decimal.Decimal) (settlement.Result, error)
}

type Decider interface {
	Decide(ctx context.Context, minConfidence float64, window int) (model.Decision, error)
}

type Journal interface {
	Append(n int, lines []string) error
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type CycleStore interface {
	Create(ctx context.Context, rec *model.CycleRecord) error
}

type StatsPublisher interface {
	Publish(stats model.CycleStatistics, last *model.CycleRecord)
}

// Deps are the collaborators of a Driver. Notifier, Cycles, Exceptions and
// Stats may be nil.
type Deps struct {
	Account    Account
	Rules      MinNotionalSource
	Orders     Opener
	Supervisor Resolver
	Settlement Settler
	Decision   Decider
	Journal    Journal
	Notifier   Notifier
	Cycles     CycleStore
	Exceptions ExceptionStore
	Stats      StatsPublisher
}

// Driver runs one position at a time on a single symbol.
type Driver struct {
	cfg   Config
	deps  Deps
	stats model.CycleStatistics
	now   func() time.Time
}

func NewDriver(cfg Config, deps Deps) *Driver {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.Leverage <= 0 {
		cfg.Leverage = 1
	}
	return &Driver{cfg: cfg, deps: deps, now: time.Now}
}

// Statistics returns the counters of the cycles completed so far.
func (d *Driver) Statistics() model.CycleStatistics {
	return d.stats
}

// CyclePlan is the sized input of one cycle.
type CyclePlan struct {
	Side    model.Side
	Balance decimal.Decimal
	Margin  decimal.Decimal
}

type CycleReport struct {
	// Opened is false when no position materialized; nothing was counted.
	Opened       bool
	Transaction  int
	Reason       model.CloseReason
	CloseOrderID *int64
	Settlement   *settlement.Result
	Net          decimal.Decimal
	Lines        []string
	// Rollback is the settled market close of a take-profit rollback.
	Rollback *settlement.Result
}

// MinMargin is the margin that backs a minimum-notional order at leverage,
// scaled by buffer.
func MinMargin(minNotional decimal.Decimal, leverage int, buffer float64) decimal.Decimal {
	return minNotional.
		Div(decimal.NewFromInt(int64(leverage))).
		Mul(decimal.NewFromFloat(buffer))
}

// MarginToRisk is balance × fraction, raised to minMargin.
func MarginToRisk(balance, minMargin decimal.Decimal, fraction float64) decimal.Decimal {
	return decimal.Max(balance.Mul(decimal.NewFromFloat(fraction)), minMargin)
}

// size reads the balance and the margin for the next cycle.
func (d *Driver) size(ctx context.Context) (decimal.Decimal, decimal.Decimal, error) {
	symbol := d.cfg.TargetSymbol

	balance, err := d.deps.Account.GetAvailableBalance(ctx, d.cfg.QuoteAsset)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("available balance: %w", err)
	}
	minNotional, err := d.deps.Rules.MinNotional(ctx, symbol)
	if err != nil {
		return balance, decimal.Zero, fmt.Errorf("min notional: %w", err)
	}

	minMargin := MinMargin(minNotional, d.cfg.Leverage, d.cfg.MinBuffer)
	if balance.LessThan(minMargin) {
		return balance, minMargin, fmt.Errorf("%w: balance %s < %s", ErrInsufficientBalance, balance.StringFixed(2), minMargin.StringFixed(2))
	}
	return balance, MarginToRisk(balance, minMargin, d.cfg.MarginFraction), nil
}

// Run repeats cycles until the balance is exhausted, ctx is done or
// MaxCycles cycles have completed. Only a leverage setup failure is returned.
func (d *Driver) Run(ctx context.Context) error {
	symbol := d.cfg.TargetSymbol
	log := logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"leverage": d.cfg.Leverage,
	})

	if err := d.deps.Orders.EnsureLeverage(ctx, symbol, d.cfg.Leverage, d.cfg.MarginType); err != nil {
		d.capture(ctx, Failure{Module: "orders", Method: "EnsureLeverage", Err: err})
		return fmt.Errorf("ensure leverage: %w", err)
	}
	log.Info("trade loop started")

	for {
		if ctx.Err() != nil {
			log.WithField("transactions", d.stats.Transactions).Info("trade loop stopped")
			return nil
		}
		if d.cfg.MaxCycles > 0 && d.stats.Transactions >= d.cfg.MaxCycles {
			log.WithField("transactions", d.stats.Transactions).Info("max cycles reached")
			return nil
		}

		balance, margin, err := d.size(ctx)
		if errors.Is(err, ErrInsufficientBalance) {
			log.WithError(err).Warn("stopping trade loop")
			return nil
		}
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("cycle sizing failed, retrying after cooldown")
				d.capture(ctx, Failure{Module: "executors", Method: "size", Err: err})
				utils.SleepContext(ctx, d.cfg.NoPositionCooldown)
			}
			continue
		}

		dec, err := d.deps.Decision.Decide(ctx, d.cfg.MinConfidence, d.cfg.DecisionWindow)
		if err != nil {
			log.WithError(err).Warn("decision source failed, holding")
			dec = model.Decision{Action: model.ActionHold}
		}
		dec = decision.Normalize(dec, d.cfg.MinConfidence)
		side, ok := dec.Side()
		if !ok {
			log.WithField("confidence", dec.Confidence).Info("decision is HOLD, not opening")
			utils.SleepContext(ctx, d.cfg.CycleSleep)
			continue
		}

		report, err := d.RunCycle(ctx, CyclePlan{Side: side, Balance: balance, Margin: margin})
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Error("cycle failed, retrying after cooldown")
				d.capture(ctx, Failure{Module: "executors", Method: "RunCycle", Err: err})
				utils.SleepContext(ctx, d.cfg.NoPositionCooldown)
			}
			continue
		}
		if !report.Opened {
			utils.SleepContext(ctx, d.cfg.NoPositionCooldown)
			continue
		}
		utils.SleepContext(ctx, d.cfg.CycleSleep)
	}
}

// RunCycle opens one position, supervises it until TP, SL or the idle
// timeout, settles the closing order and records the cycle. When ctx ends
// while the position is open, the exchange-side protective orders stay in
// place and ctx's error is returned.
func (d *Driver) RunCycle(ctx context.Context, plan CyclePlan) (*CycleReport, error) {
	symbol := d.cfg.TargetSymbol
	log := logger.WithFields(map[string]interface{}{
		"symbol":      symbol,
		"side":        plan.Side,
		"transaction": d.stats.Transactions + 1,
		"margin":      plan.Margin.StringFixed(4),
	})
	lines := []string{fmt.Sprintf("[BALANCE] availableBalance=%s %s", plan.Balance.StringFixed(2), d.cfg.QuoteAsset)}

	price, err := d.deps.Orders.LimitPriceFromOrderBook(ctx, symbol, plan.Side, d.cfg.DepthLimit, true, d.cfg.MakerOffsetTicks)
	if err != nil {
		log.WithError(err).Warn("order book price unavailable, falling back to ticker")
		price = decimal.Zero
	}

	openedAt := d.now()
	res, err := d.deps.Orders.OpenPosition(ctx, orders.OpenRequest{
		Symbol:      symbol,
		Side:        plan.Side,
		Margin:      plan.Margin,
		Leverage:    d.cfg.Leverage,
		Price:       price,
		LossPct:     d.cfg.LossPct,
		GainPct:     d.cfg.GainPct,
		TimeInForce: model.TimeInForce(d.cfg.TimeInForce),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.WithError(err).Warn("position open failed")
		if !errors.Is(err, orders.ErrEntryTimeout) {
			d.capture(ctx, Failure{Module: "orders", Method: "OpenPosition", Transaction: d.stats.Transactions + 1, Level: "warn", Err: err})
		}
	}

	var rollback *settlement.Result
	if res != nil && res.RollbackClose != nil {
		rollback = d.settleRollback(ctx, res, plan.Margin)
	}

	pos, err := d.deps.Account.GetPosition(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("position after open: %w", err)
	}
	if pos == nil {
		log.Warn("no position after open, canceling resting limit orders")
		if _, err := d.deps.Orders.CancelRestingLimitOrders(ctx, symbol, true); err != nil {
			log.WithError(err).Warn("resting limit cancel failed")
		}
		return &CycleReport{Lines: lines, Rollback: rollback}, nil
	}
	lines = append(lines, positionLine(pos, d.cfg.QuoteAsset))

	var tpID, slID *int64
	if res != nil {
		tpID, slID = orderID(res.TakeProfit), orderID(res.StopLoss)
	}
	outcome := supervisor.Outcome{Reason: model.CloseReasonIdle}
	if tpID == nil && slID == nil {
		log.Warn("position has no protective orders, closing without waiting")
	} else {
		outcome, err = d.deps.Supervisor.WaitForResolution(ctx, symbol, tpID, slID, d.cfg.ResolutionTimeout)
		if err != nil {
			return nil, err
		}
	}

	report := &CycleReport{Opened: true, Reason: outcome.Reason, Rollback: rollback}
	switch outcome.Reason {
	case model.CloseReasonTakeProfit, model.CloseReasonStopLoss:
		report.CloseOrderID = outcome.FilledOrderID
	default:
		id, err := d.deps.Supervisor.ForceCloseOnTimeout(ctx, symbol)
		if err != nil {
			log.WithError(err).Error("force close failed")
			d.capture(ctx, Failure{Module: "supervisor", Method: "ForceCloseOnTimeout", Transaction: d.stats.Transactions + 1, Err: err})
		}
		report.CloseOrderID = id
	}

	if report.CloseOrderID != nil {
		entry := decimal.NewFromFloat(pos.EntryPrice)
		wallet := decimal.NewFromFloat(pos.IsolatedWallet)
		r, err := d.deps.Settlement.Settle(ctx, symbol, *report.CloseOrderID, entry, wallet)
		if err != nil {
			log.WithError(err).Error("settlement failed")
			d.capture(ctx, Failure{Module: "settlement", Method: "Settle", Transaction: d.stats.Transactions + 1, Err: err})
		} else {
			report.Settlement = &r
			report.Net = r.Net
			lines = append(lines, closeLine(report.Reason, *report.CloseOrderID, r, d.cfg.QuoteAsset), resultLine(r, d.cfg.QuoteAsset))
		}
	} else {
		log.Warn("no close order after idle timeout, position may already be closed")
	}

	d.stats = d.stats.Record(report.Reason, report.Net)
	report.Transaction = d.stats.Transactions
	report.Lines = append(lines, statsLines(d.stats, d.cfg.QuoteAsset)...)

	d.record(ctx, report, plan, pos, openedAt)
	return report, nil
}

// settleRollback settles the market close of a take-profit rollback. Its net
// is added to the total profit; it is not counted as a cycle.
func (d *Driver) settleRollback(ctx context.Context, res *orders.OpenResult, margin decimal.Decimal) *settlement.Result {
	symbol := d.cfg.TargetSymbol
	id := res.RollbackClose.OrderID
	r, err := d.deps.Settlement.Settle(ctx, symbol, id, res.EntryPrice, margin)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"orderId": id,
		}).WithError(err).Error("rollback settlement failed")
		d.capture(ctx, Failure{Module: "settlement", Method: "Settle", Transaction: d.stats.Transactions + 1, Err: err})
		return nil
	}
	d.stats = d.stats.AddRealized(r.Net)
	logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"orderId": id,
		"net":     r.Net.String(),
	}).Warn("take-profit rollback settled")
	if d.deps.Stats != nil {
		d.deps.Stats.Publish(d.stats, nil)
	}
	return &r
}

// record writes the cycle to the journal, the optional store, stats board and
// notifier. Failures are logged only.
func (d *Driver) record(ctx context.Context, report *CycleReport, plan CyclePlan, pos *model.Position, openedAt time.Time) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithFields(map[string]interface{}{
		"symbol":      d.cfg.TargetSymbol,
		"transaction": report.Transaction,
		"reason":      report.Reason,
		"net":         report.Net.StringFixed(4),
	})

	if err := d.deps.Journal.Append(report.Transaction, report.Lines); err != nil {
		log.WithError(err).Error("transaction log write failed")
	}

	rec := cycleRecord(d.cfg, report, plan, pos, openedAt, d.now())
	if d.deps.Cycles != nil {
		if err := d.deps.Cycles.Create(ctx, rec); err != nil {
			log.WithError(err).Warn("cycle journal insert failed")
		}
	}
	if d.deps.Stats != nil {
		d.deps.Stats.Publish(d.stats, rec)
	}
	if d.deps.Notifier != nil {
		text := fmt.Sprintf("TRANSACTION #%d %s\n%s", report.Transaction, d.cfg.TargetSymbol, strings.Join(report.Lines, "\n"))
		if err := d.deps.Notifier.Notify(ctx, text); err != nil {
			log.WithError(err).Warn("cycle notification failed")
		}
	}
	log.Info("cycle completed")
}

func cycleRecord(cfg Config, report *CycleReport, plan CyclePlan, pos *model.Position, openedAt, closedAt time.Time) *model.CycleRecord {
	rec := &model.CycleRecord{
		Symbol:         cfg.TargetSymbol,
		Transaction:    report.Transaction,
		Side:           string(plan.Side),
		Reason:         string(report.Reason),
		Balance:        plan.Balance,
		Margin:         plan.Margin,
		Leverage:       cfg.Leverage,
		Quantity:       decimal.NewFromFloat(pos.AbsAmount()),
		EntryPrice:     decimal.NewFromFloat(pos.EntryPrice),
		IsolatedWallet: decimal.NewFromFloat(pos.IsolatedWallet),
		CloseOrderID:   report.CloseOrderID,
		Net:            report.Net,
		OpenedAt:       openedAt,
		ClosedAt:       closedAt,
	}
	if s := report.Settlement; s != nil {
		rec.AvgPrice = s.AvgPrice
		rec.Fee = s.TotalFee
		rec.FeeAsset = s.FeeAsset
		rec.Realized = s.RealizedPnL
		rec.ROI = s.ROI
	}
	return rec
}

func orderID(o *model.Order) *int64 {
	if o == nil {
		return nil
	}
	id := o.OrderID
	return &id
}
