package history

import (
	"sort"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/rs/zerolog"
)

// Recorder writes and queries remediation history. Store failures are
// logged at WARN and never returned.
type Recorder struct {
	store  Store
	logger zerolog.Logger
}

// Summary aggregates the history of one container
type Summary struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Count      int    `json:"count" yaml:"count"`
	LastDate   string `json:"last_date" yaml:"last_date"`
	LastErr    string `json:"last_err" yaml:"last_err"`
	LastAction string `json:"last_action" yaml:"last_action"`
}

// NewRecorder wraps store
func NewRecorder(store Store) *Recorder {
	return &Recorder{
		store:  store,
		logger: log.WithComponent("history"),
	}
}

// Record appends rec and reports whether it was written
func (r *Recorder) Record(rec types.Record) bool {
	if err := r.store.Append(rec); err != nil {
		r.logger.Warn().
			Err(err).
			Str("container", rec.Name).
			Str("container_id", rec.ID).
			Msg("Failed to write history record")
		metrics.HistoryWritesTotal.WithLabelValues(metrics.ResultFailure).Inc()
		metrics.UpdateComponent(metrics.ComponentHistory, false, err.Error())
		return false
	}
	metrics.HistoryWritesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.UpdateComponent(metrics.ComponentHistory, true, "")
	return true
}

// QueryCount returns the number of records for container id, or 0 if the
// history cannot be read
func (r *Recorder) QueryCount(id string) int {
	records, err := r.store.Records()
	if err != nil {
		r.logger.Warn().Err(err).Str("container_id", id).Msg("Failed to read history")
		return 0
	}

	count := 0
	for _, rec := range records {
		if rec.ID == id {
			count++
		}
	}
	return count
}

// Summarize groups the history by container id, most frequent first
func (r *Recorder) Summarize() ([]Summary, error) {
	records, err := r.store.Records()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Summary)
	var order []string
	for _, rec := range records {
		s, ok := byID[rec.ID]
		if !ok {
			s = &Summary{ID: rec.ID}
			byID[rec.ID] = s
			order = append(order, rec.ID)
		}
		s.Count++
		s.Name = rec.Name
		s.LastDate = rec.Date
		s.LastErr = rec.Err
		s.LastAction = rec.Action
	}

	summaries := make([]Summary, 0, len(order))
	for _, id := range order {
		summaries = append(summaries, *byID[id])
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return summaries, nil
}

// Close closes the underlying store
func (r *Recorder) Close() error {
	return r.store.Close()
}
