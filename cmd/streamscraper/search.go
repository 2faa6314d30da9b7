package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Belphemur/StreamScraper/internal/models"
	"github.com/Belphemur/StreamScraper/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [flags] <query>...",
	Short: "Search every provider of a language",
	Long: `Search every provider serving a language concurrently.

Examples:
  streamscraper search "Dune"
  streamscraper search --lang de "Dune"
  streamscraper search --best "La vita e bella"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearchCmd,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().String("lang", "", "Language to search (defaults to the preferred one)")
	searchCmd.Flags().Int("page", 1, "Result page")
	searchCmd.Flags().Bool("best", false, "Only print the closest title match")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	lang, _ := cmd.Flags().GetString("lang")
	page, _ := cmd.Flags().GetInt("page")
	best, _ := cmd.Flags().GetBool("best")

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if lang, err = a.language(ctx, lang); err != nil {
		return err
	}
	q := search.Query{Text: strings.Join(args, " "), Page: page, Language: lang}

	var final search.Snapshot
	for snapshot := range a.search.Search(ctx, q) {
		final = snapshot
		if !jsonOutput {
			fmt.Fprintf(os.Stderr, "\r%d/%d providers done", len(snapshot.Results)-snapshot.Pending(), len(snapshot.Results))
		}
	}
	if !jsonOutput {
		fmt.Fprintln(os.Stderr)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if best {
		m := search.BestMatch(q.Text, final.Items())
		if jsonOutput {
			return printJSON(struct {
				Item       *models.ItemEnvelope `json:"item,omitempty"`
				Score      float64              `json:"score"`
				Confidence string               `json:"confidence"`
			}{envelopeOf(m.Item), m.Score, m.Confidence.String()})
		}
		if m.Item == nil {
			fmt.Println("No close match found")
			return nil
		}
		fmt.Printf("%s (%s, score %.2f, %s)\n", models.Title(m.Item), m.Item.Kind(), m.Score, m.Confidence)
		return nil
	}

	if jsonOutput {
		return printJSON(final)
	}
	printSearchHuman(q, final)
	return nil
}

func envelopeOf(item models.Item) *models.ItemEnvelope {
	if item == nil {
		return nil
	}
	return &models.ItemEnvelope{Kind: item.Kind(), Item: item}
}

func printSearchHuman(q search.Query, s search.Snapshot) {
	fmt.Printf("Results for %q (%s):\n\n", q.Text, q.Language)
	for _, r := range s.Results {
		switch r.State {
		case search.StateError:
			fmt.Printf("%s: error after %s: %s\n", r.Provider, r.Elapsed.Round(time.Millisecond), r.Error)
			continue
		case search.StateLoading:
			fmt.Printf("%s: no answer\n", r.Provider)
			continue
		}
		fmt.Printf("%s: %d results in %s\n", r.Provider, len(r.Items), r.Elapsed.Round(time.Millisecond))
		for i, item := range r.Items {
			fmt.Printf("  %2d │ %-8s │ %s\n", i+1, item.Kind(), models.Title(item))
			fmt.Printf("     │ id: %s\n", item.ItemID())
		}
	}
}
