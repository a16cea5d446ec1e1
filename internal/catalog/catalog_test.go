package catalog

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestCatalogShape(t *testing.T) {
	require.Len(t, Categories(), 9)
	require.Equal(t, 67, Size())

	seen := map[string]struct{}{}
	for _, cat := range Categories() {
		require.NotEmpty(t, cat.Name)
		for _, tool := range cat.Tools {
			require.NotEmpty(t, tool.Description, tool.Name)
			_, dup := seen[tool.Name]
			require.False(t, dup, "duplicate tool name: %s", tool.Name)
			seen[tool.Name] = struct{}{}
		}
	}
}

func TestLookup(t *testing.T) {
	t.Run("bare name", func(t *testing.T) {
		tool, cat, ok := Lookup("backlinks_summary")
		require.True(t, ok)
		require.Equal(t, "Backlinks", cat)
		require.Contains(t, tool.Description, "Backlink")
	})

	t.Run("server qualified name", func(t *testing.T) {
		_, cat, ok := Lookup("dataforseo_backlinks_summary")
		require.True(t, ok)
		require.Equal(t, "Backlinks", cat)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, _, ok := Lookup("no_such_tool")
		require.False(t, ok)
	})
}

func TestReconcile(t *testing.T) {
	live := []mcp.Tool{
		{Name: "backlinks_summary", Description: "live description wins"},
		{Name: "serp_organic_live_advanced"},
		{Name: "gsc_search_analytics"},
	}

	descs := Reconcile(live)
	require.Len(t, descs, 3)

	byName := map[string]Descriptor{}
	for _, d := range descs {
		byName[d.Name] = d
	}

	// Live registry is authoritative for descriptions.
	require.Equal(t, "live description wins", byName["backlinks_summary"].Description)
	require.True(t, byName["backlinks_summary"].Known)

	// Catalog fills in missing descriptions.
	require.True(t, byName["serp_organic_live_advanced"].Known)
	require.NotEmpty(t, byName["serp_organic_live_advanced"].Description)

	// Tools outside the catalog still get a descriptor.
	require.False(t, byName["gsc_search_analytics"].Known)
	require.Equal(t, "Other", byName["gsc_search_analytics"].Category)
}
