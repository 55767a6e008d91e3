package decision

import (
	"context"
	"fmt"
	"time"

	"futuresexecutor/src/externalmodel"
	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
)

// SignalReader returns the newest stored signal of a symbol, or nil.
type SignalReader interface {
	FindLatestBySymbol(ctx context.Context, symbol string) (*externalmodel.TradingSignal, error)
}

// SignalSource answers with the latest signal the external model pipeline
// stored for the symbol. Missing or stale signals answer HOLD.
type SignalSource struct {
	reader SignalReader
	symbol string
	maxAge time.Duration
	now    func() time.Time
}

// NewSignalSource returns a SignalSource. A zero maxAge accepts signals of
// any age.
func NewSignalSource(reader SignalReader, symbol string, maxAge time.Duration) *SignalSource {
	return &SignalSource{reader: reader, symbol: symbol, maxAge: maxAge, now: time.Now}
}

func (s *SignalSource) Decide(ctx context.Context, minConfidence float64, window int) (model.Decision, error) {
	now := s.now().UTC()
	hold := model.Decision{Time: now, Action: model.ActionHold}

	sig, err := s.reader.FindLatestBySymbol(ctx, s.symbol)
	if err != nil {
		return hold, fmt.Errorf("latest signal for %s: %w", s.symbol, err)
	}
	if sig == nil {
		logger.WithField("symbol", s.symbol).Warn("no trading signal stored, holding")
		return hold, nil
	}

	fields := map[string]interface{}{
		"symbol":   s.symbol,
		"signalId": sig.ID,
		"action":   sig.Action,
	}

	stamp := signalTime(sig)
	if s.maxAge > 0 && !stamp.IsZero() && now.Sub(stamp) > s.maxAge {
		fields["age"] = now.Sub(stamp).Round(time.Second).String()
		logger.WithFields(fields).Warn("trading signal is stale, holding")
		return hold, nil
	}

	d := model.Decision{
		Time:          stamp,
		Action:        model.Action(sig.Action),
		Confidence:    sig.Confidence,
		Probabilities: sig.Probabilities(),
		WindowUsed:    sig.WindowUsed,
	}
	if d.Time.IsZero() {
		d.Time = now
	}
	if sig.ClosePrice != nil {
		d.ClosePrice = *sig.ClosePrice
	}
	if d.Probabilities != nil {
		d.Action, d.Confidence = FromProbabilities(d.Probabilities, minConfidence)
	}
	if window > 0 && sig.WindowUsed > 0 && sig.WindowUsed != window {
		fields["window"] = window
		fields["windowUsed"] = sig.WindowUsed
		logger.WithFields(fields).Debug("signal computed on a different window")
	}

	return Normalize(d, minConfidence), nil
}

func signalTime(sig *externalmodel.TradingSignal) time.Time {
	if sig.BarTime != nil {
		return sig.BarTime.UTC()
	}
	if sig.ReceivedAt != nil {
		return sig.ReceivedAt.UTC()
	}
	return time.Time{}
}
