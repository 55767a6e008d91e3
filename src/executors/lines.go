package executors

import (
	"fmt"
	"strconv"

	"futuresexecutor/src/model"
	"futuresexecutor/src/settlement"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func positionLine(p *model.Position, quote string) string {
	return fmt.Sprintf("[POS] %s amount=%.2f%s @ entry=%s (BEP=%s, liq=%s, lev=%dx)",
		p.Direction, p.IsolatedWallet, quote, formatFloat(p.EntryPrice), formatFloat(p.BreakEvenPrice), formatFloat(p.LiquidationPrice), p.Leverage)
}

func closeLine(reason model.CloseReason, orderID int64, r settlement.Result, quote string) string {
	avg := "N/A"
	if r.AvgPrice != nil {
		avg = r.AvgPrice.String()
	}
	feeAsset := r.FeeAsset
	if feeAsset == "" {
		feeAsset = quote
	}
	return fmt.Sprintf("[CLOSE] reason=%s, orderId=%d, avg=%s, qty=%s, fee=%s %s, realized(ex fee)=%s %s, net=%s %s",
		reason, orderID, avg, r.Quantity.String(),
		r.TotalFee.StringFixed(4), feeAsset,
		r.RealizedPnL.StringFixed(4), quote,
		r.Net.StringFixed(4), quote)
}

func resultLine(r settlement.Result, quote string) string {
	roi := "N/A"
	if r.ROI != nil {
		roi = r.ROI.Shift(2).StringFixed(2) + "%"
	}
	return fmt.Sprintf("[RESULT] Net PnL=%s %s, ROI(margin)=%s", r.Net.StringFixed(4), quote, roi)
}

func statsLines(s model.CycleStatistics, quote string) []string {
	return []string{
		fmt.Sprintf("[STATS] tx=%d, TP=%d, SL=%d, IDLE=%d", s.Transactions, s.TakeProfits, s.StopLosses, s.Idle),
		fmt.Sprintf("[STATS] last PnL=%s %s, total_profit=%s %s", s.LastProfit.StringFixed(4), quote, s.TotalProfit.StringFixed(4), quote),
	}
}
