package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the enabled providers",
	Args:  cobra.NoArgs,
	RunE:  runProvidersCmd,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.Flags().String("lang", "", "Only list providers serving this language")
}

type providerRow struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	BaseURL  string `json:"baseUrl"`
	Movies   bool   `json:"movies"`
	TvShows  bool   `json:"tvShows"`
	Active   bool   `json:"active"`
}

func runProvidersCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	lang, _ := cmd.Flags().GetString("lang")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	active, err := a.preferences.ActiveProvider(ctx)
	if err != nil {
		return err
	}

	var rows []providerRow
	for _, e := range a.registry.ByLanguage(lang) {
		rows = append(rows, providerRow{
			Name:     e.Provider.Name(),
			Language: e.Provider.Language(),
			BaseURL:  e.Provider.BaseURL(),
			Movies:   e.SupportsMovies,
			TvShows:  e.SupportsTvShows,
			Active:   strings.EqualFold(active, e.Provider.Name()),
		})
	}

	if jsonOutput {
		return printJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("No providers enabled")
		return nil
	}
	fmt.Printf("   %-20s │ %4s │ %-6s │ %s\n", "PROVIDER", "LANG", "KINDS", "URL")
	fmt.Println("───────────────────────┼──────┼────────┼──────────────────────────")
	for _, r := range rows {
		marker := " "
		if r.Active {
			marker = "*"
		}
		fmt.Printf(" %s %-20s │ %4s │ %-6s │ %s\n", marker, r.Name, r.Language, kinds(r), r.BaseURL)
	}
	return nil
}

func kinds(r providerRow) string {
	switch {
	case r.Movies && r.TvShows:
		return "all"
	case r.Movies:
		return "movies"
	case r.TvShows:
		return "tv"
	default:
		return "-"
	}
}
