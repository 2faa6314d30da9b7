// Package ranking orders and filters the servers a provider returns before
// they are handed to extractors.
package ranking

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/config"
	"github.com/Belphemur/StreamScraper/internal/extractors"
	"github.com/Belphemur/StreamScraper/internal/models"
)

// FourKMode controls what happens to 4K mirrors that duplicate a non-4K mirror of the same host.
type FourKMode string

const (
	// FourKDrop removes 4K duplicates. 4K-only mirrors are kept.
	FourKDrop FourKMode = "drop"
	// FourKDeprioritize moves 4K duplicates after every other server.
	FourKDeprioritize FourKMode = "deprioritize"
	// FourKKeep leaves 4K mirrors untouched.
	FourKKeep FourKMode = "keep"
)

// ParseFourKMode parses a config value, defaulting to FourKDrop.
func ParseFourKMode(s string) FourKMode {
	switch FourKMode(strings.ToLower(strings.TrimSpace(s))) {
	case FourKDeprioritize:
		return FourKDeprioritize
	case FourKKeep:
		return FourKKeep
	default:
		return FourKDrop
	}
}

// Policy is a per-provider server ranking policy.
type Policy struct {
	FourK FourKMode
	// Preferred host names, best first. Matching is case-insensitive on the server name.
	Preferred []string
	// Dedupe drops servers whose Src was already listed.
	Dedupe bool
}

// DefaultPolicy drops 4K duplicates and repeated sources.
func DefaultPolicy() Policy {
	return Policy{FourK: FourKDrop, Dedupe: true}
}

// FromConfig builds the policy configured for one provider.
func FromConfig(cfg config.RankingConfig) Policy {
	p := DefaultPolicy()
	p.FourK = ParseFourKMode(cfg.FourK)
	p.Preferred = cfg.Preferred
	return p
}

// Apply returns the ranked servers. The input is not modified and servers that
// compare equal keep their original order.
func (p Policy) Apply(servers []models.Server) []models.Server {
	out := make([]models.Server, 0, len(servers))
	seen := make(map[string]struct{}, len(servers))
	for _, s := range servers {
		if p.Dedupe && s.Src != "" {
			if _, dup := seen[s.Src]; dup {
				continue
			}
			seen[s.Src] = struct{}{}
		}
		out = append(out, s)
	}

	duplicates := fourKDuplicates(out)
	if p.FourK == FourKDrop && len(duplicates) > 0 {
		out = slices.DeleteFunc(out, func(s models.Server) bool {
			_, dup := duplicates[s.ID+"\x00"+s.Src]
			return dup
		})
	}

	slices.SortStableFunc(out, func(a, b models.Server) int {
		if p.FourK == FourKDeprioritize {
			_, da := duplicates[a.ID+"\x00"+a.Src]
			_, db := duplicates[b.ID+"\x00"+b.Src]
			if da != db {
				if da {
					return 1
				}
				return -1
			}
		}
		return p.preference(a) - p.preference(b)
	})
	return out
}

// preference is the index of the first preferred name matching s, or len(Preferred).
func (p Policy) preference(s models.Server) int {
	name := strings.ToLower(s.Name)
	for i, pref := range p.Preferred {
		if pref != "" && strings.Contains(name, strings.ToLower(pref)) {
			return i
		}
	}
	return len(p.Preferred)
}

var (
	fourKMarker   = regexp.MustCompile(`(?i)4k`)
	qualityTokens = regexp.MustCompile(`(?i)\b(uhd|2160p?|full\s*hd|fhd|1080p?|hd|720p?|sd|480p?|360p?)\b`)
)

// BaseName strips quality markers and punctuation noise from a server name so
// that "Supervideo 4K", "Supervideo4K" and "Supervideo HD" all compare equal.
func BaseName(name string) string {
	name = fourKMarker.ReplaceAllString(name, " ")
	name = qualityTokens.ReplaceAllString(name, " ")
	name = strings.NewReplacer("[", " ", "]", " ", "(", " ", ")", " ", "-", " ").Replace(name)
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// fourKDuplicates returns the servers labelled 4K for which a non-4K server with
// the same base name or the same Src host exists, keyed by ID and Src.
func fourKDuplicates(servers []models.Server) map[string]struct{} {
	plainNames := make(map[string]struct{})
	plainHosts := make(map[string]struct{})
	for _, s := range servers {
		if models.Is4K(s.Name) {
			continue
		}
		if base := BaseName(s.Name); base != "" {
			plainNames[base] = struct{}{}
		}
		if host := extractors.HostOf(s.Src); host != "" {
			plainHosts[host] = struct{}{}
		}
	}
	dups := make(map[string]struct{})
	for _, s := range servers {
		if !models.Is4K(s.Name) {
			continue
		}
		_, sameName := plainNames[BaseName(s.Name)]
		_, sameHost := plainHosts[extractors.HostOf(s.Src)]
		if sameName || sameHost {
			dups[s.ID+"\x00"+s.Src] = struct{}{}
		}
	}
	return dups
}
