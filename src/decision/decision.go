package decision

import (
	"context"
	"strings"

	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
)

// Source supplies the direction of the next cycle. HOLD is a valid answer
// at any time.
type Source interface {
	Decide(ctx context.Context, minConfidence float64, window int) (model.Decision, error)
}

// Normalize maps unknown actions to HOLD with a warning and demotes BUY or
// SELL below minConfidence to HOLD.
func Normalize(d model.Decision, minConfidence float64) model.Decision {
	action := model.Action(strings.ToUpper(strings.TrimSpace(string(d.Action))))
	switch action {
	case model.ActionBuy, model.ActionSell, model.ActionHold:
		d.Action = action
	default:
		logger.WithFields(map[string]interface{}{
			"action":     d.Action,
			"confidence": d.Confidence,
		}).Warn("unknown decision action, treating as HOLD")
		d.Action = model.ActionHold
		return d
	}

	if d.Action != model.ActionHold && d.Confidence < minConfidence {
		logger.WithFields(map[string]interface{}{
			"action":        d.Action,
			"confidence":    d.Confidence,
			"minConfidence": minConfidence,
		}).Info("decision below confidence threshold, holding")
		d.Action = model.ActionHold
	}
	return d
}

// FromProbabilities picks the action from SELL, HOLD, BUY class
// probabilities. BUY or SELL win only as the most likely class at or above
// minConfidence; otherwise the answer is HOLD with the top probability.
func FromProbabilities(probs []float64, minConfidence float64) (model.Action, float64) {
	if len(probs) != 3 {
		return model.ActionHold, 0
	}
	pSell, pHold, pBuy := probs[0], probs[1], probs[2]
	top := pSell
	if pHold > top {
		top = pHold
	}
	if pBuy > top {
		top = pBuy
	}

	switch {
	case pBuy >= top && pBuy >= minConfidence:
		return model.ActionBuy, pBuy
	case pSell >= top && pSell >= minConfidence:
		return model.ActionSell, pSell
	}
	return model.ActionHold, top
}
