// Package search fans one query out to every provider of a language and
// streams the aggregate back as providers complete.
package search

import (
	"cmp"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/Belphemur/StreamScraper/internal/models"
)

// State is the progress of one provider within a global search.
type State string

const (
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Query is a global search request. An empty Language searches every provider.
type Query struct {
	Text     string `json:"text"`
	Page     int    `json:"page"`
	Language string `json:"language"`
}

// ProviderResult is the outcome of one provider's search.
type ProviderResult struct {
	Provider string        `json:"provider"`
	Language string        `json:"language"`
	State    State         `json:"state"`
	Items    []models.Item `json:"items,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Rank orders results for display: 1 for a success with items, 2 while
// loading, 3 for an empty success and 4 for an error.
func (r ProviderResult) Rank() int {
	switch r.State {
	case StateSuccess:
		if len(r.Items) > 0 {
			return 1
		}
		return 3
	case StateLoading:
		return 2
	default:
		return 4
	}
}

// MarshalJSON tags every item with its kind.
func (r ProviderResult) MarshalJSON() ([]byte, error) {
	type plain ProviderResult
	return json.Marshal(struct {
		plain
		Items []models.ItemEnvelope `json:"items,omitempty"`
	}{plain: plain(r), Items: models.Envelope(r.Items)})
}

// Snapshot is the aggregate state of a search at one point in time.
// Results are sorted by Rank, then provider name.
type Snapshot struct {
	ID      string           `json:"id"`
	Query   Query            `json:"query"`
	Results []ProviderResult `json:"results"`
	Done    bool             `json:"done"`
}

// Pending returns the number of providers still loading.
func (s Snapshot) Pending() int {
	n := 0
	for _, r := range s.Results {
		if r.State == StateLoading {
			n++
		}
	}
	return n
}

// Items returns the items of every successful provider in display order.
func (s Snapshot) Items() []models.Item {
	var out []models.Item
	for _, r := range s.Results {
		if r.State == StateSuccess {
			out = append(out, r.Items...)
		}
	}
	return out
}

// Result returns the entry of the named provider.
func (s Snapshot) Result(provider string) (ProviderResult, bool) {
	for _, r := range s.Results {
		if strings.EqualFold(r.Provider, provider) {
			return r, true
		}
	}
	return ProviderResult{}, false
}

func sortResults(results []ProviderResult) {
	slices.SortStableFunc(results, func(a, b ProviderResult) int {
		if c := cmp.Compare(a.Rank(), b.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Provider), strings.ToLower(b.Provider))
	})
}
