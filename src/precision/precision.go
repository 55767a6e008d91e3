package precision

import (
	"errors"
	"fmt"
	"strings"

	"futuresexecutor/src/model"

	"github.com/shopspring/decimal"
)

var ErrConstraintViolation = errors.New("order constraint violation")

// ConstraintViolation reports a rounded value below an exchange minimum.
type ConstraintViolation struct {
	Symbol  string
	Field   string // "qty" or "notional"
	Value   decimal.Decimal
	Minimum decimal.Decimal
}

func (e *ConstraintViolation) Error() string {
	limit := "minQty"
	if e.Field == "notional" {
		limit = "minNotional"
	}
	return fmt.Sprintf("%s: %s %s < %s %s", e.Symbol, e.Field, e.Value.String(), limit, e.Minimum.String())
}

func (e *ConstraintViolation) Is(target error) bool {
	return target == ErrConstraintViolation
}

// Rounders applies the filters of one symbol. Rounding always floors so a
// rounded value never exceeds its input.
type Rounders struct {
	meta          model.SymbolMetadata
	priceDecimals int32
	qtyDecimals   int32
}

func NewRounders(meta model.SymbolMetadata) *Rounders {
	return &Rounders{
		meta:          meta,
		priceDecimals: Decimals(meta.TickSize),
		qtyDecimals:   Decimals(meta.StepSize),
	}
}

func (r *Rounders) Metadata() model.SymbolMetadata {
	return r.meta
}

// RoundQty floors q to a multiple of the step size.
func (r *Rounders) RoundQty(q decimal.Decimal) decimal.Decimal {
	return floorToIncrement(q, r.meta.StepSize)
}

// RoundPrice floors p to a multiple of the tick size.
func (r *Rounders) RoundPrice(p decimal.Decimal) decimal.Decimal {
	return floorToIncrement(p, r.meta.TickSize)
}

// CheckMinimums rounds both values and fails with a ConstraintViolation when
// the quantity or the notional falls below the symbol minimums.
func (r *Rounders) CheckMinimums(price, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	rp := r.RoundPrice(price)
	rq := r.RoundQty(qty)

	if rq.LessThan(r.meta.MinQty) {
		return rp, rq, &ConstraintViolation{Symbol: r.meta.Symbol, Field: "qty", Value: rq, Minimum: r.meta.MinQty}
	}
	if notional := rp.Mul(rq); notional.LessThan(r.meta.MinNotional) {
		return rp, rq, &ConstraintViolation{Symbol: r.meta.Symbol, Field: "notional", Value: notional, Minimum: r.meta.MinNotional}
	}
	return rp, rq, nil
}

func (r *Rounders) FormatPrice(p decimal.Decimal) string {
	return Format(p, r.priceDecimals)
}

func (r *Rounders) FormatQty(q decimal.Decimal) string {
	return Format(q, r.qtyDecimals)
}

func floorToIncrement(v, inc decimal.Decimal) decimal.Decimal {
	if !inc.IsPositive() {
		return v
	}
	return v.Div(inc).Floor().Mul(inc)
}

// Decimals counts the significant fractional digits of a constraint value,
// e.g. 0.10 -> 1, 0.001 -> 3, 1 -> 0.
func Decimals(d decimal.Decimal) int32 {
	s := d.String()
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return int32(len(s) - i - 1)
}

// Format renders v with exactly decimals fractional digits, dropping any
// excess digits rather than rounding them up.
func Format(v decimal.Decimal, decimals int32) string {
	return v.Truncate(decimals).StringFixed(decimals)
}
