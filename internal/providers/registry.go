package providers

import (
	"slices"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
)

// Entry is one registered provider together with the kinds of content it serves.
type Entry struct {
	Provider        Provider
	SupportsMovies  bool
	SupportsTvShows bool
}

// Registry is the fixed, ordered set of providers available to the application.
type Registry struct {
	entries []Entry
	byName  map[string]Entry
}

// NewRegistry creates a registry. Entries without a provider and later entries
// reusing a name are ignored.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{byName: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Provider == nil {
			continue
		}
		key := strings.ToLower(e.Provider.Name())
		if _, dup := r.byName[key]; dup {
			continue
		}
		r.byName[key] = e
		r.entries = append(r.entries, e)
	}
	return r
}

// All returns every entry in registration order.
func (r *Registry) All() []Entry {
	return slices.Clone(r.entries)
}

// ByLanguage returns the entries whose provider serves language. An empty
// language matches every provider.
func (r *Registry) ByLanguage(language string) []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if language == "" || strings.EqualFold(e.Provider.Language(), language) {
			out = append(out, e)
		}
	}
	return out
}

// Get returns the provider named name, ignoring case.
func (r *Registry) Get(name string) (Entry, error) {
	e, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Entry{}, apperrors.NewNotFoundError("provider", name)
	}
	return e, nil
}

// Languages returns the distinct provider languages, sorted.
func (r *Registry) Languages() []string {
	var langs []string
	for _, e := range r.entries {
		lang := strings.ToLower(e.Provider.Language())
		if !slices.Contains(langs, lang) {
			langs = append(langs, lang)
		}
	}
	slices.Sort(langs)
	return langs
}

// Discoverers returns the providers whose base domain can be refreshed.
func (r *Registry) Discoverers() map[string]DomainDiscoverer {
	out := make(map[string]DomainDiscoverer)
	for _, e := range r.entries {
		if d, ok := AsDiscoverer(e.Provider); ok {
			out[e.Provider.Name()] = d
		}
	}
	return out
}
