package usage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/config"
	"github.com/hsolanki/seochat/internal/proto"
)

func TestTracker(t *testing.T) {
	prices := map[string]config.ModelPrice{
		"gpt-4o-mini": {Input: 0.00015, Output: 0.0006},
		"gpt-4o":      {Input: 0.005, Output: 0.015},
	}

	t.Run("accumulates and prices", func(t *testing.T) {
		tr := NewTracker(prices)
		tr.Record("gpt-4o-mini", proto.Usage{InputTokens: 1000, OutputTokens: 1000, TotalTokens: 2000})
		tr.Record("gpt-4o-mini", proto.Usage{InputTokens: 1000, OutputTokens: 0, TotalTokens: 1000})

		require.EqualValues(t, 2000, tr.Total().InputTokens)
		cost, priced := tr.Cost()
		require.True(t, priced)
		require.InDelta(t, 2*0.00015+1*0.0006, cost, 1e-9)
	})

	t.Run("model change keeps per-model pricing", func(t *testing.T) {
		tr := NewTracker(prices)
		tr.Record("gpt-4o-mini", proto.Usage{InputTokens: 1000, TotalTokens: 1000})
		tr.Record("gpt-4o", proto.Usage{InputTokens: 1000, TotalTokens: 1000})

		cost, priced := tr.Cost()
		require.True(t, priced)
		require.InDelta(t, 0.00015+0.005, cost, 1e-9)
	})

	t.Run("unknown model marks cost partial", func(t *testing.T) {
		tr := NewTracker(prices)
		tr.Record("llama3.2", proto.Usage{InputTokens: 500, TotalTokens: 500})
		tr.Record("gpt-4o", proto.Usage{InputTokens: 1000, TotalTokens: 1000})

		cost, priced := tr.Cost()
		require.False(t, priced)
		require.InDelta(t, 0.005, cost, 1e-9)
	})

	t.Run("empty usage is ignored", func(t *testing.T) {
		tr := NewTracker(prices)
		tr.Record("gpt-4o", proto.Usage{})
		require.Empty(t, tr.Summary())
	})

	t.Run("summary includes cost", func(t *testing.T) {
		tr := NewTracker(prices)
		tr.Record("gpt-4o", proto.Usage{InputTokens: 1000, OutputTokens: 1000, TotalTokens: 2000})
		require.Equal(t, "1000 in / 1000 out tokens · $0.0200", tr.Summary())
	})
}
