package main

import (
	"testing"

	"github.com/Belphemur/StreamScraper/internal/models"
)

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"serve": false, "search": false, "resolve": false, "providers": false, "backup": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Command %q not registered", name)
		}
	}

	sub := map[string]bool{}
	for _, c := range backupCmd.Commands() {
		sub[c.Name()] = true
	}
	if !sub["export"] || !sub["import"] {
		t.Errorf("backup subcommands = %v, want export and import", sub)
	}
}

func TestResolveArgs(t *testing.T) {
	if err := resolveCmd.Args(resolveCmd, []string{"Alpha"}); err == nil {
		t.Error("Expected an error with a single argument")
	}
	if err := resolveCmd.Args(resolveCmd, []string{"Alpha", "id"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		row  providerRow
		want string
	}{
		{providerRow{Movies: true, TvShows: true}, "all"},
		{providerRow{Movies: true}, "movies"},
		{providerRow{TvShows: true}, "tv"},
		{providerRow{}, "-"},
	}
	for _, tt := range tests {
		if got := kinds(tt.row); got != tt.want {
			t.Errorf("kinds(%+v) = %q, want %q", tt.row, got, tt.want)
		}
	}
}

func TestEnvelopeOf(t *testing.T) {
	if envelopeOf(nil) != nil {
		t.Error("Expected nil envelope for a nil item")
	}
	e := envelopeOf(&models.TvShow{ShowDetails: models.ShowDetails{ID: "x"}})
	if e == nil || e.Kind != models.KindTvShow || e.Item.ItemID() != "x" {
		t.Errorf("Unexpected envelope %+v", e)
	}
}
