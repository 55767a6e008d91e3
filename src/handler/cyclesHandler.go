package handler

import (
	"context"
	"net/http"
	"strconv"

	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
)

type cycleLister interface {
	FindRecent(ctx context.Context, symbol string, limit int) ([]model.CycleRecord, error)
}

// RecentCyclesHandler lists journaled cycles, newest first. The symbol query
// parameter overrides defaultSymbol; limit defaults to 20 and is capped at 500.
func RecentCyclesHandler(repo cycleLister, defaultSymbol string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := defaultSymbol
		if s := r.URL.Query().Get("symbol"); s != "" {
			symbol = s
		}

		limit := 20
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		if limit > 500 {
			limit = 500
		}

		cycles, err := repo.FindRecent(r.Context(), symbol, limit)
		if err != nil {
			logger.WithError(err).WithField("symbol", symbol).Error("failed to list cycles")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if cycles == nil {
			cycles = []model.CycleRecord{}
		}
		writeJSON(w, cycles)
	}
}
