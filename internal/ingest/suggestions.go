package ingest

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed suggested_feeds.json
var suggestedFeedsJSON []byte

// Suggestion is a curated feed offered to the user.
type Suggestion struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Categories    []string `json:"categories"`
	Country       string   `json:"country"`
	EditorialLine string   `json:"editorial_line,omitempty"`
}

// AllSuggestions returns the built-in catalog.
func AllSuggestions() ([]Suggestion, error) {
	var out []Suggestion
	if err := json.Unmarshal(suggestedFeedsJSON, &out); err != nil {
		return nil, fmt.Errorf("decode suggested feeds: %w", err)
	}
	return out, nil
}

// Suggestions returns catalog feeds that are neither already subscribed nor
// recorded as broken.
func (c *Coordinator) Suggestions() ([]Suggestion, error) {
	all, err := AllSuggestions()
	if err != nil {
		return nil, err
	}
	subs, err := c.store.GetSubscriptions()
	if err != nil {
		return nil, err
	}
	broken, err := c.BrokenFeeds()
	if err != nil {
		return nil, err
	}
	skip := make(map[string]struct{}, len(subs)+len(broken))
	for _, s := range subs {
		skip[s.URL] = struct{}{}
	}
	for _, u := range broken {
		skip[u] = struct{}{}
	}
	out := make([]Suggestion, 0, len(all))
	for _, s := range all {
		if _, ok := skip[s.URL]; ok {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// Request converts a suggestion into an AddSubscription request.
func (s Suggestion) Request() AddRequest {
	return AddRequest{
		URL:           s.URL,
		Title:         s.Title,
		Categories:    s.Categories,
		Country:       s.Country,
		EditorialLine: s.EditorialLine,
	}
}
