package entities

import "encoding/json"

// SearchResultItem represents one ranked directory entity (shop, service,
// product or person) as delivered by the search backend.
type SearchResultItem struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	NamePair      *NamePair `json:"names,omitempty"`
	Score         float64   `json:"score,omitempty"`
	Specialty     string    `json:"specialty,omitempty"`
	Address       string    `json:"address,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	WorkingHours  string    `json:"working_hours,omitempty"`
	DistanceKm    float64   `json:"distance,omitempty"`
	Recommended   bool      `json:"recommended,omitempty"`
	Rating        float64   `json:"rating,omitempty"`
	Type          string    `json:"type,omitempty"`
	ReviewSummary string    `json:"reviews,omitempty"`
	Location      string    `json:"location,omitempty"`
	Description   string    `json:"description,omitempty"`
}

// NamePair carries a bilingual display-name pair for markets where listings
// publish both a primary and a secondary-language name.
type NamePair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// AIProcessedResult is a SearchResultItem enriched by AI post-processing with
// an explanation of why the entity matched and a display snippet.
type AIProcessedResult struct {
	SearchResultItem
	Explanation string `json:"explanation,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
}

// FilterDescriptor describes one dynamically generated result filter.
type FilterDescriptor struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Field  string   `json:"field,omitempty"`
	Values []string `json:"values,omitempty"`
}

// AISummary is the structured summary the backend attaches to AI-processed
// result sets.
type AISummary struct {
	Quality        string `json:"quality,omitempty"`
	TotalCount     int    `json:"total_count"`
	HasRecommended bool   `json:"has_recommended"`
}

// Entity-category keys used by multi-entity result payloads. Concatenation
// into FlatResults preserves this order.
const (
	CategoryServices = "services"
	CategoryPeople   = "people"
	CategoryShops    = "shops"
	CategoryProducts = "products"
)

// CategoryOrder is the fixed concatenation order for legacy multi-entity
// payloads. Older subscribers depend on it.
var CategoryOrder = []string{CategoryServices, CategoryPeople, CategoryShops, CategoryProducts}

// CanonicalSearchEvent is the single normalized shape produced for every
// inbound result payload, regardless of which wire format it arrived in.
// FlatResults is always populated so that subscribers written against the
// oldest contract keep working; the remaining fields are present only when
// the originating wire shape carried them.
type CanonicalSearchEvent struct {
	FlatResults        []SearchResultItem            `json:"results"`
	StructuredResults  map[string][]SearchResultItem `json:"structured_results,omitempty"`
	AIProcessedResults []AIProcessedResult           `json:"ai_processed_results,omitempty"`
	DynamicFilters     []FilterDescriptor            `json:"dynamic_filters,omitempty"`
	AISummary          *AISummary                    `json:"ai_summary,omitempty"`
	CacheToken         json.RawMessage               `json:"cache,omitempty"`
	SearchType         string                        `json:"search_type,omitempty"`
	HumanSummaryText   string                        `json:"summary_text,omitempty"`
}
