// Package catalog holds the static descriptor for the remote SEO tool set.
//
// The catalog is documentation: it supplies category grouping and one-line
// descriptions for the tools the DataForSEO MCP server is expected to expose.
// The live registry reported by the server is always authoritative.
package catalog

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool is a static tool descriptor.
type Tool struct {
	Name        string
	Description string
}

// Category groups tools by API family.
type Category struct {
	Name  string
	Tools []Tool
}

// Descriptor is a reconciled tool entry: live tools enriched with catalog
// metadata where available.
type Descriptor struct {
	Name        string
	Description string
	Category    string
	// Known reports whether the tool appears in the static catalog.
	Known bool
}

var categories = []Category{
	{
		Name: "AI Optimization",
		Tools: []Tool{
			{"ai_optimization_chat_gpt_llm_responses_live", "Get live LLM responses from ChatGPT for a prompt"},
			{"ai_optimization_chat_gpt_llm_responses_models", "List available ChatGPT models for LLM response analysis"},
			{"ai_optimization_ai_keyword_data_keywords_search_volume", "AI-related search volume for a set of keywords"},
			{"ai_optimization_ai_keyword_data_locations_and_languages", "Locations and languages supported by AI keyword data"},
			{"ai_optimization_chat_gpt_llm_responses_task_post", "Queue a ChatGPT LLM response task for later retrieval"},
		},
	},
	{
		Name: "Backlinks",
		Tools: []Tool{
			{"backlinks_summary", "Backlink profile overview for a domain, subdomain, or page"},
			{"backlinks_backlinks", "Individual inbound links pointing to a target"},
			{"backlinks_anchors", "Anchor texts used in links to a target"},
			{"backlinks_referring_domains", "Domains linking to a target with rank metrics"},
			{"backlinks_referring_networks", "Referring IP networks and subnets for a target"},
			{"backlinks_domain_pages", "Target pages of a domain with backlink data"},
			{"backlinks_domain_pages_summary", "Summary of backlink data for each page of a domain"},
			{"backlinks_competitors", "Domains with a backlink profile similar to the target"},
			{"backlinks_bulk_ranks", "Rank scores for up to 1,000 targets in one call"},
		},
	},
	{
		Name: "Business Data",
		Tools: []Tool{
			{"business_data_business_listings_search", "Search business listings by categories, location, and filters"},
			{"business_data_business_listings_filters", "Available filters for business listings search"},
			{"business_data_business_listings_locations", "Locations supported by the business listings endpoint"},
			{"business_data_business_listings_categories", "Business categories aggregated from listings"},
			{"business_data_business_listings_categories_aggregation", "Category co-occurrence stats for business listings"},
		},
	},
	{
		Name: "Content Analysis",
		Tools: []Tool{
			{"content_analysis_search", "Citations of a keyword or brand across the web"},
			{"content_analysis_summary", "Sentiment and citation summary for a keyword"},
			{"content_analysis_phrase_trends", "Citation trends of a phrase over time"},
			{"content_analysis_category_trends", "Citation trends for a content category"},
			{"content_analysis_locations", "Locations supported by content analysis"},
			{"content_analysis_languages", "Languages supported by content analysis"},
		},
	},
	{
		Name: "DataForSEO Labs",
		Tools: []Tool{
			{"dataforseo_labs_google_keyword_ideas", "Keyword ideas for up to 200 seed keywords"},
			{"dataforseo_labs_google_keyword_suggestions", "Long-tail suggestions containing the seed keyword"},
			{"dataforseo_labs_google_related_keywords", "Keywords from the 'searches related to' SERP element"},
			{"dataforseo_labs_google_keyword_overview", "Volume, difficulty, and intent for specified keywords"},
			{"dataforseo_labs_google_keywords_for_site", "Keywords a domain ranks for in organic search"},
			{"dataforseo_labs_google_ranked_keywords", "Keywords any domain or page ranks for, with SERP positions"},
			{"dataforseo_labs_google_serp_competitors", "Domains competing in SERPs for the specified keywords"},
			{"dataforseo_labs_google_competitors_domain", "Organic competitors of a domain with intersection metrics"},
			{"dataforseo_labs_google_domain_intersection", "Keywords two domains both rank for"},
			{"dataforseo_labs_google_page_intersection", "Keywords multiple pages rank for simultaneously"},
			{"dataforseo_labs_google_domain_rank_overview", "Organic and paid ranking overview for a domain"},
			{"dataforseo_labs_google_historical_rank_overview", "Historical ranking data for a domain since 2019"},
			{"dataforseo_labs_google_subdomains", "Ranking subdomains of a target domain"},
			{"dataforseo_labs_google_bulk_keyword_difficulty", "Keyword difficulty scores for up to 1,000 keywords"},
		},
	},
	{
		Name: "Domain Analytics",
		Tools: []Tool{
			{"domain_analytics_whois_overview", "WHOIS data enriched with backlink and ranking metrics"},
			{"domain_analytics_technologies_domain_technologies", "Technology stack detected on a domain"},
			{"domain_analytics_technologies_summary", "Aggregate stats for domains using given technologies"},
			{"domain_analytics_technologies_technology_stats", "Historical adoption stats for a technology"},
			{"domain_analytics_technologies_domains_by_technology", "Domains using the specified technologies"},
		},
	},
	{
		Name: "Keywords Data",
		Tools: []Tool{
			{"keywords_data_google_ads_search_volume", "Google Ads search volume, CPC, and competition"},
			{"keywords_data_google_ads_keywords_for_site", "Google Ads keyword suggestions for a website"},
			{"keywords_data_google_ads_keywords_for_keywords", "Google Ads suggestions for seed keywords"},
			{"keywords_data_google_ads_ad_traffic_by_keywords", "Projected ad traffic metrics for keywords"},
			{"keywords_data_google_trends_explore", "Google Trends interest over time and by region"},
			{"keywords_data_google_trends_categories", "Categories supported by Google Trends"},
			{"keywords_data_dataforseo_trends_explore", "DataForSEO Trends interest data for keywords"},
			{"keywords_data_dataforseo_trends_subregion_interests", "Keyword interest split by subregion"},
			{"keywords_data_dataforseo_trends_demography", "Keyword interest split by age and gender"},
		},
	},
	{
		Name: "On-Page SEO",
		Tools: []Tool{
			{"on_page_instant_pages", "Crawl a single page and return on-page metrics instantly"},
			{"on_page_content_parsing", "Parse the textual content and structure of a page"},
			{"on_page_lighthouse", "Run a Google Lighthouse audit against a page"},
			{"on_page_page_screenshot", "Full-page screenshot of a URL"},
			{"on_page_raw_html", "Raw HTML of a crawled page"},
			{"on_page_links", "Internal and external links found on crawled pages"},
			{"on_page_duplicate_content", "Pages with content duplicating the specified page"},
			{"on_page_waterfall", "Page speed waterfall of resource load timings"},
		},
	},
	{
		Name: "SERP & YouTube",
		Tools: []Tool{
			{"serp_organic_live_advanced", "Live Google organic SERP for a keyword"},
			{"serp_locations", "Locations supported by SERP endpoints"},
			{"serp_youtube_organic_live_advanced", "Live YouTube search results for a keyword"},
			{"serp_youtube_video_info_live_advanced", "Metadata and stats for a YouTube video"},
			{"serp_youtube_video_comments_live_advanced", "Comments of a YouTube video"},
			{"serp_youtube_video_subtitles_live_advanced", "Subtitles of a YouTube video"},
		},
	},
}

// Categories returns the catalog grouped by category, in display order.
func Categories() []Category {
	return categories
}

// Size is the number of tools in the static catalog.
func Size() int {
	n := 0
	for _, cat := range categories {
		n += len(cat.Tools)
	}
	return n
}

// Lookup returns the catalog entry for a tool name. The second return value
// reports whether the tool is known. Server-prefixed names (server_tool) are
// matched by suffix since MCP tool names are exposed fully qualified.
func Lookup(name string) (Tool, string, bool) {
	for _, cat := range categories {
		for _, tool := range cat.Tools {
			if tool.Name == name || strings.HasSuffix(name, "_"+tool.Name) {
				return tool, cat.Name, true
			}
		}
	}
	return Tool{}, "", false
}

// Reconcile merges the live tool registry with the static catalog. Live tools
// are authoritative: every live tool produces a descriptor, enriched with the
// catalog category when known, and falling back to the catalog description
// only when the server reports none.
func Reconcile(live []mcp.Tool) []Descriptor {
	out := make([]Descriptor, 0, len(live))
	for _, tool := range live {
		d := Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			Category:    "Other",
		}
		if entry, cat, ok := Lookup(tool.Name); ok {
			d.Known = true
			d.Category = cat
			if d.Description == "" {
				d.Description = entry.Description
			}
		}
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Descriptor) int {
		if c := strings.Compare(a.Category, b.Category); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
