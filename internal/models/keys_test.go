package models

import "testing"

func TestEpisodeKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		id      string
		want    EpisodeKey
		wantErr bool
	}{
		{"url show id", "https://example.test/serie-tv/dark.html#s2e10", EpisodeKey{"https://example.test/serie-tv/dark.html", 2, 10}, false},
		{"show id with hash", "a#b#s1e1", EpisodeKey{"a#b", 1, 1}, false},
		{"missing marker", "https://example.test/x", EpisodeKey{}, true},
		{"bad season", "x#sAe1", EpisodeKey{}, true},
		{"bad episode", "x#s1e", EpisodeKey{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseEpisodeKey(tt.id)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseEpisodeKey(%q) err = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseEpisodeKey(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
			if !tt.wantErr && got.String() != tt.id {
				t.Errorf("String() = %q, want %q", got.String(), tt.id)
			}
		})
	}
}

func TestSeasonKey(t *testing.T) {
	t.Parallel()
	k := SeasonKey{ShowID: "https://example.test/show.html", Season: 3}
	got, err := ParseSeasonKey(k.String())
	if err != nil {
		t.Fatalf("ParseSeasonKey: %v", err)
	}
	if got != k {
		t.Errorf("got %+v, want %+v", got, k)
	}
	if _, err := ParseSeasonKey("no-marker"); err == nil {
		t.Error("Expected error for missing marker")
	}
}
