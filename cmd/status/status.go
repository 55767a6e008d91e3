package status

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"futuresexecutor/src/model"
	"futuresexecutor/src/settlement"

	logger "github.com/sirupsen/logrus"
)

type Exchange interface {
	GetPosition(ctx context.Context, symbol string) (*model.Position, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]model.Order, error)
}

type TradeSummarizer interface {
	TradeSummary(ctx context.Context, symbol string, orderID int64) (settlement.Summary, error)
}

type ForceCloser interface {
	ForceCloseOnTimeout(ctx context.Context, symbol string) (*int64, error)
}

// Status renders an operator report for one symbol.
type Status struct {
	Out      io.Writer
	Exchange Exchange
	Trades   TradeSummarizer
}

// Report prints the position, the open orders and, when orderID is not zero,
// the trade summary of that order.
func (s *Status) Report(ctx context.Context, symbol string, orderID int64) error {
	pos, err := s.Exchange.GetPosition(ctx, symbol)
	if err != nil {
		return fmt.Errorf("position: %w", err)
	}
	open, err := s.Exchange.GetOpenOrders(ctx, symbol)
	if err != nil {
		return fmt.Errorf("open orders: %w", err)
	}

	fmt.Fprintf(s.Out, "Symbol: %s\n", symbol)
	writePosition(s.Out, pos)
	writeOrders(s.Out, open)

	if orderID != 0 {
		sum, err := s.Trades.TradeSummary(ctx, symbol, orderID)
		if err != nil {
			return err
		}
		writeSummary(s.Out, sum)
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func pct(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64) + "%"
}

func writePosition(w io.Writer, p *model.Position) {
	if p == nil {
		fmt.Fprintln(w, "Position: flat")
		return
	}
	fmt.Fprintf(w, "Position: %s %s @ %s (BEP=%s, mark=%s, liq=%s, lev=%dx, %s)\n",
		p.Direction, num(p.AbsAmount()), num(p.EntryPrice), num(p.BreakEvenPrice),
		num(p.MarkPrice), num(p.LiquidationPrice), p.Leverage, strings.ToLower(p.MarginType))
	fmt.Fprintf(w, "  isolatedWallet=%s uPnL=%s ROI(margin)=%s ROI(notional)=%s\n",
		num(p.IsolatedWallet), num(p.UnrealizedProfit), pct(p.ROIByMargin), pct(p.ROIByNotional))
}

func writeOrders(w io.Writer, orders []model.Order) {
	fmt.Fprintf(w, "Open orders: %d\n", len(orders))
	if len(orders) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTYPE\tSIDE\tPRICE\tSTOP\tQTY\tSTATUS\tFLAGS")
	for _, o := range orders {
		var flags []string
		if o.ReduceOnly {
			flags = append(flags, "reduceOnly")
		}
		if o.ClosePosition {
			flags = append(flags, "closePosition")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			o.OrderID, o.Kind(), o.Type, o.Side, num(o.Price), num(o.StopPrice), num(o.OrigQty), o.Status, strings.Join(flags, ","))
	}
	if err := tw.Flush(); err != nil {
		logger.WithError(err).Warn("failed to flush order table")
	}
}

func writeSummary(w io.Writer, s settlement.Summary) {
	avg := "N/A"
	if s.AvgPrice != nil {
		avg = s.AvgPrice.String()
	}
	fmt.Fprintf(w, "Order %d: fills=%d qty=%s avg=%s fee=%s %s realized=%s\n",
		s.OrderID, s.Fills, s.Quantity.String(), avg, s.TotalFee.String(), s.FeeAsset, s.RealizedPnL.String())
}

// Flatten cancels the protective orders and closes the position at market.
func Flatten(ctx context.Context, out io.Writer, closer ForceCloser, symbol string) error {
	id, err := closer.ForceCloseOnTimeout(ctx, symbol)
	if err != nil {
		return err
	}
	if id == nil {
		fmt.Fprintf(out, "%s: already flat\n", symbol)
		return nil
	}
	fmt.Fprintf(out, "%s: closed with order %d\n", symbol, *id)
	return nil
}
