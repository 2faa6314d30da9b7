package models

import (
	"encoding/json"
	"fmt"
)

// ItemEnvelope tags an Item with its kind so heterogeneous lists survive a JSON round-trip.
type ItemEnvelope struct {
	Kind Kind `json:"kind"`
	Item Item `json:"item"`
}

// Envelope wraps every non-nil item in an ItemEnvelope.
func Envelope[T Item](items []T) []ItemEnvelope {
	out := make([]ItemEnvelope, 0, len(items))
	for _, item := range items {
		if isNil(item) {
			continue
		}
		out = append(out, ItemEnvelope{Kind: item.Kind(), Item: item})
	}
	return out
}

// UnmarshalJSON decodes the item into the concrete type named by kind.
func (e *ItemEnvelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind Kind            `json:"kind"`
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	item, err := newItem(raw.Kind)
	if err != nil {
		return err
	}
	if len(raw.Item) > 0 {
		if err := json.Unmarshal(raw.Item, item); err != nil {
			return fmt.Errorf("decode %s: %w", raw.Kind, err)
		}
	}
	e.Kind = raw.Kind
	e.Item = item
	return nil
}

func newItem(kind Kind) (Item, error) {
	switch kind {
	case KindMovie:
		return &Movie{}, nil
	case KindTvShow:
		return &TvShow{}, nil
	case KindEpisode:
		return &Episode{}, nil
	case KindGenre:
		return &Genre{}, nil
	case KindPeople:
		return &People{}, nil
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
}

// MarshalJSON encodes the category items as envelopes.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string         `json:"name"`
		Items []ItemEnvelope `json:"items"`
	}{Name: c.Name, Items: Envelope(c.Items)})
}

// UnmarshalJSON decodes a category written by MarshalJSON.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name  string         `json:"name"`
		Items []ItemEnvelope `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Name = raw.Name
	c.Items = make([]Item, 0, len(raw.Items))
	for _, e := range raw.Items {
		c.Items = append(c.Items, e.Item)
	}
	return nil
}

// ShowList is a list of movies and TV shows encoded as envelopes.
type ShowList []Show

// MarshalJSON encodes the shows as envelopes.
func (l ShowList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}
	return json.Marshal(Envelope([]Show(l)))
}

// UnmarshalJSON decodes envelopes, rejecting kinds that are not shows.
func (l *ShowList) UnmarshalJSON(data []byte) error {
	var raw []ItemEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*l = nil
		return nil
	}
	out := make(ShowList, 0, len(raw))
	for _, e := range raw {
		show, ok := e.Item.(Show)
		if !ok {
			return fmt.Errorf("item of kind %q is not a show", e.Kind)
		}
		out = append(out, show)
	}
	*l = out
	return nil
}
