package handler

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"futuresexecutor/src/auth"
	"futuresexecutor/src/model"

	logger "github.com/sirupsen/logrus"
)

// StatsSnapshot is the JSON body of /stats.
type StatsSnapshot struct {
	Symbol     string                `json:"symbol"`
	Running    bool                  `json:"running"`
	StartedAt  time.Time             `json:"started_at"`
	UpdatedAt  *time.Time            `json:"updated_at,omitempty"`
	Statistics model.CycleStatistics `json:"statistics"`
	LastCycle  *model.CycleRecord    `json:"last_cycle,omitempty"`
}

// StatsBoard holds the latest statistics published by the trade loop. It is
// written by the loop and read by HTTP handlers.
type StatsBoard struct {
	mu   sync.RWMutex
	snap StatsSnapshot
	now  func() time.Time
}

func NewStatsBoard(symbol string) *StatsBoard {
	b := &StatsBoard{now: time.Now}
	b.snap = StatsSnapshot{Symbol: symbol, Running: true, StartedAt: b.now()}
	return b
}

// Publish replaces the statistics and the last completed cycle.
func (b *StatsBoard) Publish(stats model.CycleStatistics, last *model.CycleRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.snap.Statistics = stats
	b.snap.UpdatedAt = &now
	if last != nil {
		rec := *last
		b.snap.LastCycle = &rec
	}
}

// Stop marks the loop as finished.
func (b *StatsBoard) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Running = false
}

func (b *StatsBoard) Snapshot() StatsSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.snap
	if s.LastCycle != nil {
		rec := *s.LastCycle
		s.LastCycle = &rec
	}
	return s
}

type statsReader interface {
	Snapshot() StatsSnapshot
}

// StatsHandler renders the current board as JSON.
func StatsHandler(board statsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if operator, ok := auth.GetOperatorFromContext(r.Context()); ok {
			logger.WithField("operator", operator).Debug("stats requested")
		}
		writeJSON(w, board.Snapshot())
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
