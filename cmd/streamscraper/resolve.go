package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Belphemur/StreamScraper/internal/models"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [flags] <provider> <id>",
	Short: "Resolve a movie or episode into a playable video",
	Long: `Resolve a movie or episode into a playable video.

The provider's servers are ranked and tried in order until one yields
a video. Use --servers to only list the ranked servers.

Examples:
  streamscraper resolve StreamingCommunity 1234-dune
  streamscraper resolve --type episode FilmPalast "https://filmpalast.to/stream/show-s01e01"
  streamscraper resolve --servers Altadefinizione01 "https://altadefinizione01.test/dune.html"`,
	Args: cobra.ExactArgs(2),
	RunE: runResolveCmd,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().String("type", string(models.KindMovie), "Video type (movie or episode)")
	resolveCmd.Flags().Bool("servers", false, "List the ranked servers without resolving")
}

func runResolveCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kind, _ := cmd.Flags().GetString("type")
	onlyServers, _ := cmd.Flags().GetBool("servers")
	provider, id := args[0], args[1]

	vt, err := models.NewVideoType(kind, id)
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if onlyServers {
		servers, err := a.resolver.Servers(ctx, provider, id, vt)
		if err != nil {
			return fmt.Errorf("servers failed: %w", err)
		}
		if jsonOutput {
			return printJSON(servers)
		}
		if len(servers) == 0 {
			fmt.Println("No servers found")
			return nil
		}
		for i, s := range servers {
			fmt.Printf(" %2d │ %-20s │ %s\n", i+1, s.Name, s.Src)
		}
		return nil
	}

	res, err := a.resolver.Resolve(ctx, provider, id, vt)
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}
	if jsonOutput {
		return printJSON(res)
	}
	fmt.Printf("Server:  %s\n", res.Server.Name)
	fmt.Printf("Source:  %s\n", res.Video.Source)
	if res.Video.Type != "" {
		fmt.Printf("Type:    %s\n", res.Video.Type)
	}
	for k, v := range res.Video.Headers {
		fmt.Printf("Header:  %s: %s\n", k, v)
	}
	return nil
}
