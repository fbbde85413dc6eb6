package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matheuskafuri/hntop/internal/logging"
	"github.com/matheuskafuri/hntop/internal/story"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	flagSearch string
	flagJSON   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the top stories and exit",
	Long: `Fetch the top stories once, filter them by title and print them.

Matching is a case-insensitive substring match, the same as the search box.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		color := isatty.IsTerminal(os.Stderr.Fd())
		log := logging.New(cmd.ErrOrStderr(), cfg.Level(), color)

		stories, err := newClient(cfg, log).TopStories(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching stories: %w", err)
		}

		filtered := story.Filter(stories, flagSearch)
		if flagJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(filtered)
		}
		return writeStories(cmd.OutOrStdout(), filtered)
	},
}

func init() {
	listCmd.Flags().StringVarP(&flagSearch, "search", "s", "", "only show stories whose title contains this text")
	listCmd.Flags().BoolVar(&flagJSON, "json", false, "print stories as JSON")
}

func writeStories(w io.Writer, stories []story.Story) error {
	if len(stories) == 0 {
		_, err := fmt.Fprintln(w, "No stories found.")
		return err
	}
	for i, s := range stories {
		link := "(no link)"
		if s.HasURL() {
			link = s.URL
		}
		if _, err := fmt.Fprintf(w, "%3d. %s\n     Upvotes: %d\n     Read more: %s\n", i+1, s.Title, s.Score, link); err != nil {
			return err
		}
	}
	return nil
}
