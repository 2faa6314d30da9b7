package models

// Kind identifies the concrete type behind an Item.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindTvShow  Kind = "tvshow"
	KindEpisode Kind = "episode"
	KindGenre   Kind = "genre"
	KindPeople  Kind = "people"
)

// Item is the closed set of catalog entries a provider can return:
// *Movie, *TvShow, *Episode, *Genre and *People.
type Item interface {
	Kind() Kind
	ItemID() string
	isItem()
}

// Show is the subset of Item that has show details: *Movie and *TvShow.
type Show interface {
	Item
	Details() *ShowDetails
	isShow()
}

func (*Movie) isItem()   {}
func (*TvShow) isItem()  {}
func (*Episode) isItem() {}
func (*Genre) isItem()   {}
func (*People) isItem()  {}

func (*Movie) isShow()  {}
func (*TvShow) isShow() {}

func (m *Movie) Kind() Kind   { return KindMovie }
func (s *TvShow) Kind() Kind  { return KindTvShow }
func (e *Episode) Kind() Kind { return KindEpisode }
func (g *Genre) Kind() Kind   { return KindGenre }
func (p *People) Kind() Kind  { return KindPeople }

func (m *Movie) ItemID() string   { return m.ID }
func (s *TvShow) ItemID() string  { return s.ID }
func (e *Episode) ItemID() string { return e.ID }
func (g *Genre) ItemID() string   { return g.ID }
func (p *People) ItemID() string  { return p.ID }

func (m *Movie) Details() *ShowDetails  { return &m.ShowDetails }
func (s *TvShow) Details() *ShowDetails { return &s.ShowDetails }

// Title returns the display title of any item.
func Title(item Item) string {
	switch v := item.(type) {
	case *Movie:
		return v.Title
	case *TvShow:
		return v.Title
	case *Episode:
		return v.Title
	case *Genre:
		return v.Name
	case *People:
		return v.Name
	default:
		return ""
	}
}

// SameItem reports whether a and b denote the same logical entry: same kind and same id.
// Every other field is ignored.
func SameItem(a, b Item) bool {
	if isNil(a) || isNil(b) {
		return false
	}
	return a.Kind() == b.Kind() && a.ItemID() == b.ItemID()
}

type itemKey struct {
	kind Kind
	id   string
}

// DedupeItems drops later occurrences of items that are the SameItem as an earlier one.
// Order is preserved and nil entries are removed.
func DedupeItems[T Item](items []T) []T {
	seen := make(map[itemKey]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if isNil(item) {
			continue
		}
		key := itemKey{kind: item.Kind(), id: item.ItemID()}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

func isNil(item Item) bool {
	switch v := item.(type) {
	case nil:
		return true
	case *Movie:
		return v == nil
	case *TvShow:
		return v == nil
	case *Episode:
		return v == nil
	case *Genre:
		return v == nil
	case *People:
		return v == nil
	default:
		return false
	}
}
