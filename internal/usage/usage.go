// Package usage accumulates per-session token usage and prices it with the
// configured per-model rates.
package usage

import (
	"fmt"
	"sync"

	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/proto"
)

// Tracker accumulates token usage across the turns of a session. It keeps
// per-model tallies so cost stays correct when the model changes mid-session.
type Tracker struct {
	mu       sync.Mutex
	prices   map[string]config.ModelPrice
	perModel map[string]proto.Usage
	total    proto.Usage
	unpriced bool
}

// NewTracker creates a tracker with the given per-1K-token prices.
func NewTracker(prices map[string]config.ModelPrice) *Tracker {
	return &Tracker{
		prices:   prices,
		perModel: map[string]proto.Usage{},
	}
}

// Record adds the usage of one turn under the model that produced it.
func (t *Tracker) Record(model string, u proto.Usage) {
	if u == (proto.Usage{}) {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.perModel[model]
	m.Add(u)
	t.perModel[model] = m
	t.total.Add(u)
	if _, ok := t.prices[model]; !ok {
		t.unpriced = true
	}
}

// Total returns the accumulated usage across all models.
func (t *Tracker) Total() proto.Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Cost returns the session cost in USD. The second return value is false when
// any recorded model has no configured price, in which case the cost covers
// only the priced models.
func (t *Tracker) Cost() (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var cost float64
	for model, u := range t.perModel {
		price, ok := t.prices[model]
		if !ok {
			continue
		}
		cost += float64(u.InputTokens) / 1000 * price.Input
		cost += float64(u.OutputTokens) / 1000 * price.Output
	}
	return cost, !t.unpriced
}

// Summary renders a one-line usage readout for the status footer. Empty when
// nothing has been recorded yet.
func (t *Tracker) Summary() string {
	total := t.Total()
	if total == (proto.Usage{}) {
		return ""
	}
	cost, priced := t.Cost()
	out := fmt.Sprintf("%d in / %d out tokens", total.InputTokens, total.OutputTokens)
	switch {
	case priced:
		out += fmt.Sprintf(" · $%.4f", cost)
	case cost > 0:
		out += fmt.Sprintf(" · ≥$%.4f", cost)
	}
	return out
}
