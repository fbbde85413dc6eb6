package cmd

import (
	"fmt"
	"os"

	"github.com/matheuskafuri/hntop/internal/config"
	"github.com/matheuskafuri/hntop/internal/logging"
	"github.com/matheuskafuri/hntop/internal/query"
	"github.com/matheuskafuri/hntop/internal/story"
	"github.com/matheuskafuri/hntop/internal/tui"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, closer, err := logging.Open(config.LogPath(), cfg.Level())
	if err != nil {
		// Non-fatal: run without a log file
		fmt.Fprintf(os.Stderr, "  [warn] %v\n", err)
		log = logging.Discard()
	} else {
		defer closer.Close()
	}

	log.Info("starting hntop", "version", version, "base_url", cfg.BaseURL(), "limit", cfg.Limit, "partial", cfg.AllowPartial)

	client := newClient(cfg, log)
	stories := query.New[[]story.Story](query.Options{
		StaleTime:      cfg.StaleDuration(),
		RefetchOnMount: cfg.RefetchOnMount,
		Logger:         log,
	})

	return tui.Run(tui.RunOpts{
		Stories: stories,
		Fetch:   client.TopStories,
		Logger:  log,
	})
}
