package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Belphemur/StreamScraper/internal/config"
)

const (
	keyActiveProvider = "active_provider"
	keyLanguage       = "language"
	keyDoHURL         = "doh_url"
	keyDomainPrefix   = "domain:"

	defaultLanguage = "it"
)

// Preferences is the user preference store. Persisted values win over the
// configuration, which wins over built-in defaults.
type Preferences struct {
	db  *sql.DB
	cfg *config.Config
}

func (p *Preferences) get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, nil
}

// set stores value under key. An empty value removes the key.
func (p *Preferences) set(ctx context.Context, key, value string) error {
	var err error
	if value == "" {
		_, err = p.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key)
	} else {
		_, err = p.db.ExecContext(ctx,
			`INSERT INTO preferences (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	}
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

func (p *Preferences) getOr(ctx context.Context, key, fallback string) (string, error) {
	v, err := p.get(ctx, key)
	if err != nil || v != "" {
		return v, err
	}
	return fallback, nil
}

// ActiveProvider returns the selected provider name, or "" when none is selected.
func (p *Preferences) ActiveProvider(ctx context.Context) (string, error) {
	fallback := ""
	if p.cfg != nil {
		fallback = p.cfg.ActiveProvider
	}
	return p.getOr(ctx, keyActiveProvider, fallback)
}

// SetActiveProvider selects a provider. An empty name clears the selection.
func (p *Preferences) SetActiveProvider(ctx context.Context, name string) error {
	return p.set(ctx, keyActiveProvider, name)
}

// Language returns the active content language.
func (p *Preferences) Language(ctx context.Context) (string, error) {
	fallback := defaultLanguage
	if p.cfg != nil && p.cfg.Language != "" {
		fallback = p.cfg.Language
	}
	return p.getOr(ctx, keyLanguage, fallback)
}

// SetLanguage changes the active content language.
func (p *Preferences) SetLanguage(ctx context.Context, language string) error {
	return p.set(ctx, keyLanguage, strings.ToLower(strings.TrimSpace(language)))
}

// DoHURL returns the DNS-over-HTTPS resolver URL, or "" when DoH is off.
func (p *Preferences) DoHURL(ctx context.Context) (string, error) {
	fallback := ""
	if urls := p.cfg.DoHURLs(); len(urls) > 0 {
		fallback = urls[0]
	}
	return p.getOr(ctx, keyDoHURL, fallback)
}

// SetDoHURL overrides the DNS-over-HTTPS resolver URL.
func (p *Preferences) SetDoHURL(ctx context.Context, url string) error {
	return p.set(ctx, keyDoHURL, url)
}

// DomainOverride returns the base domain persisted for provider, or "".
func (p *Preferences) DomainOverride(ctx context.Context, provider string) (string, error) {
	return p.get(ctx, keyDomainPrefix+strings.ToLower(provider))
}

// SetDomainOverride persists the base domain of provider. An empty domain
// restores the configured one.
func (p *Preferences) SetDomainOverride(ctx context.Context, provider, domain string) error {
	return p.set(ctx, keyDomainPrefix+strings.ToLower(provider), domain)
}

// DomainOverrides returns every persisted base domain by lowercase provider name.
func (p *Preferences) DomainOverrides(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM preferences WHERE key LIKE ?`, keyDomainPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to list domain overrides: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan domain override: %w", err)
		}
		out[strings.TrimPrefix(key, keyDomainPrefix)] = value
	}
	return out, rows.Err()
}
