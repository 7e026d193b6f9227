package stream

import (
	"encoding/json"

	"github.com/kasuwa/searchstream/internal/domain/entities"
	"github.com/kasuwa/searchstream/pkg/errors"
)

// The wire protocol evolved through several incompatible shapes. The
// functions in this file absorb that evolution: every recognized variant is
// decoded into the one canonical internal shape, and anything else becomes a
// malformed-event error that the caller logs and drops. No other component
// branches on raw wire shape.

// normalizeConversational decodes the conversational channel. A bare string
// is wrapped into the canonical reply envelope; an already-structured
// function-call object passes through unchanged.
func normalizeConversational(raw json.RawMessage) (*entities.ConversationalMessage, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return entities.NewReply(text), nil
	}

	var msg entities.ConversationalMessage
	if err := json.Unmarshal(raw, &msg); err == nil && msg.Function != "" {
		return &msg, nil
	}

	return nil, errors.NewMalformedEventError("conversational payload is neither text nor a function call")
}

// flatResultsEnvelope is the wrapped legacy shape: {results, cache?}.
type flatResultsEnvelope struct {
	Results []entities.SearchResultItem `json:"results"`
	Cache   json.RawMessage             `json:"cache"`
}

// normalizeFlatResults decodes the legacy flat-results channel. The payload
// is either a bare array of result items or a {results, cache?} envelope.
func normalizeFlatResults(raw json.RawMessage) (*entities.CanonicalSearchEvent, error) {
	var items []entities.SearchResultItem
	if err := json.Unmarshal(raw, &items); err == nil && items != nil {
		return &entities.CanonicalSearchEvent{FlatResults: items}, nil
	}

	var env flatResultsEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Results != nil {
		return &entities.CanonicalSearchEvent{
			FlatResults: env.Results,
			CacheToken:  env.Cache,
		}, nil
	}

	return nil, errors.NewMalformedEventError("flat results payload is neither an array nor a results envelope")
}

// multiEntityPayload is the superset of the two recognized multi-entity wire
// shapes. The presence-sensitive fields stay raw so that "field absent" and
// "field empty" can be told apart.
type multiEntityPayload struct {
	ProcessedResults json.RawMessage     `json:"processed_results"`
	DynamicFilters   json.RawMessage     `json:"dynamic_filters"`
	AISummary        *entities.AISummary `json:"ai_summary"`
	Cache            json.RawMessage     `json:"cache"`
	SearchType       string              `json:"search_type"`
	SummaryText      string              `json:"summary_text"`
	Results          json.RawMessage     `json:"results"`
}

// normalizeMultiEntity decodes the multi-entity channel. Recognized, in
// priority order:
//
//  1. AI-processed bundle: both processed_results and dynamic_filters
//     present. The canonical event carries them verbatim together with the
//     summary, cache token, search type and the raw per-category map.
//  2. Legacy bundle: a raw per-category results map without the AI fields.
//     Categories are concatenated into FlatResults in the fixed order
//     services, people, shops, products, and a cache token is synthesized
//     carrying the raw map under enhanced_results. Older subscribers look
//     for that field; the synthesis is a compatibility shim, not a general
//     rule.
func normalizeMultiEntity(raw json.RawMessage) (*entities.CanonicalSearchEvent, error) {
	var payload multiEntityPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, errors.NewMalformedEventError("multi-entity payload is not an object")
	}

	if payload.ProcessedResults != nil && payload.DynamicFilters != nil {
		return normalizeAIBundle(&payload)
	}
	if payload.Results != nil {
		return normalizeLegacyBundle(&payload)
	}

	return nil, errors.NewMalformedEventError("multi-entity payload matches neither the AI-processed nor the legacy bundle shape")
}

func normalizeAIBundle(payload *multiEntityPayload) (*entities.CanonicalSearchEvent, error) {
	var processed []entities.AIProcessedResult
	if err := json.Unmarshal(payload.ProcessedResults, &processed); err != nil {
		return nil, errors.NewMalformedEventError("processed_results is not a result list")
	}

	var filters []entities.FilterDescriptor
	if err := json.Unmarshal(payload.DynamicFilters, &filters); err != nil {
		return nil, errors.NewMalformedEventError("dynamic_filters is not a filter list")
	}

	event := &entities.CanonicalSearchEvent{
		AIProcessedResults: processed,
		DynamicFilters:     filters,
		AISummary:          payload.AISummary,
		CacheToken:         payload.Cache,
		SearchType:         payload.SearchType,
		HumanSummaryText:   payload.SummaryText,
	}

	if payload.Results != nil {
		categories, err := decodeCategoryMap(payload.Results)
		if err != nil {
			return nil, err
		}
		event.StructuredResults = categories
		event.FlatResults = concatCategories(categories)
	} else {
		// FlatResults must always be populated; fall back to the
		// processed items themselves.
		event.FlatResults = make([]entities.SearchResultItem, len(processed))
		for i, p := range processed {
			event.FlatResults[i] = p.SearchResultItem
		}
	}

	return event, nil
}

func normalizeLegacyBundle(payload *multiEntityPayload) (*entities.CanonicalSearchEvent, error) {
	categories, err := decodeCategoryMap(payload.Results)
	if err != nil {
		return nil, err
	}

	token, err := synthesizeCacheToken(payload.Cache, payload.Results)
	if err != nil {
		return nil, err
	}

	return &entities.CanonicalSearchEvent{
		FlatResults:       concatCategories(categories),
		StructuredResults: categories,
		CacheToken:        token,
		SearchType:        payload.SearchType,
	}, nil
}

func decodeCategoryMap(raw json.RawMessage) (map[string][]entities.SearchResultItem, error) {
	var categories map[string][]entities.SearchResultItem
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, errors.NewMalformedEventError("results is not a per-category map")
	}
	return categories, nil
}

func concatCategories(categories map[string][]entities.SearchResultItem) []entities.SearchResultItem {
	flat := make([]entities.SearchResultItem, 0)
	for _, category := range entities.CategoryOrder {
		flat = append(flat, categories[category]...)
	}
	return flat
}

// synthesizeCacheToken shallow-merges any server-provided cache object with
// an enhanced_results field holding the raw per-category map.
func synthesizeCacheToken(cache, rawCategories json.RawMessage) (json.RawMessage, error) {
	merged := make(map[string]json.RawMessage)
	if cache != nil {
		// A non-object cache value cannot be merged into; it is dropped
		// rather than failing the whole event.
		_ = json.Unmarshal(cache, &merged)
	}
	merged["enhanced_results"] = rawCategories

	token, err := json.Marshal(merged)
	if err != nil {
		return nil, errors.NewInternalError("synthesizing cache token", err)
	}
	return token, nil
}
