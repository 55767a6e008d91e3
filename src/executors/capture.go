package executors

import (
	"context"
	"encoding/json"
	"runtime/debug"

	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
)

const serviceName = "futures_executor"

type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
}

// Failure describes an error worth persisting.
type Failure struct {
	Module      string
	Method      string
	Transaction int
	Level       string // defaults to error
	Err         error
	Context     map[string]interface{}
}

// Capture stores f in store. A nil store or nil error is a no-op and store
// failures are only logged.
func Capture(ctx context.Context, store ExceptionStore, symbol string, f Failure) {
	if store == nil || f.Err == nil {
		return
	}
	level := f.Level
	if level == "" {
		level = "error"
	}

	exc := &model.Exception{
		Service:     serviceName,
		Module:      f.Module,
		Method:      f.Method,
		Symbol:      symbol,
		Transaction: f.Transaction,
		Message:     f.Err.Error(),
		Stack:       string(debug.Stack()),
		Level:       level,
		Context:     "{}",
	}
	if len(f.Context) > 0 {
		if b, err := json.Marshal(f.Context); err == nil {
			exc.Context = string(b)
		}
	}

	if err := store.Create(context.WithoutCancel(ctx), exc); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"module": f.Module,
			"method": f.Method,
		}).Warn("failed to persist exception")
	}
}

func (d *Driver) capture(ctx context.Context, f Failure) {
	Capture(ctx, d.deps.Exceptions, d.cfg.TargetSymbol, f)
}
