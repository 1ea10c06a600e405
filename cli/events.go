package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/thesurlydev/wiwo/aggregator"
	"github.com/thesurlydev/wiwo/cache"
	"github.com/thesurlydev/wiwo/config"
	"github.com/thesurlydev/wiwo/github"
	"github.com/thesurlydev/wiwo/history"
	"github.com/thesurlydev/wiwo/logger"
	"github.com/thesurlydev/wiwo/models"
	"github.com/thesurlydev/wiwo/timerange"
)

var (
	eventsUser string
	eventsTime string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List GitHub events for a user",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().StringVarP(&eventsUser, "user", "u", "", "GitHub username (defaults to the token's owner)")
	eventsCmd.Flags().StringVarP(&eventsTime, "time", "t", "", `Time range for events, e.g. "30d", "2w", "6m", "1y" (default "30d")`)
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg := config.NewConfig()
	if err := cfg.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Parse before any network activity.
	rng := timerange.Default()
	if eventsTime != "" {
		var err error
		rng, err = timerange.Parse(eventsTime)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := github.NewClient(cfg.GitHubToken, cfg.HTTPTimeout)

	user := eventsUser
	if user == "" {
		if !cfg.HasToken() {
			return fmt.Errorf("--user is required when GH_TOKEN is not set")
		}
		var err error
		user, err = client.AuthenticatedUser(ctx)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	cutoff := timerange.Resolve(rng, now)
	capped := timerange.Capped(rng)

	var histCache history.Cache
	if cfg.CacheDSN != "" {
		c, err := cache.New(cfg.CacheDSN)
		if err != nil {
			return fmt.Errorf("failed to open event cache: %v", err)
		}
		defer c.Close()
		histCache = c
	}

	fallback := history.New(client, histCache, cfg.CloneWorkers)
	agg := aggregator.New(aggregator.SelectSources(client), fallback)

	fmt.Printf("\nFetching GitHub events for %s (since %s)\n\n",
		user, cutoff.Format("2006-01-02 15:04:05 UTC"))

	timeline, err := agg.Collect(ctx, user, cutoff, now, capped)
	if err != nil {
		return err
	}

	if len(timeline) == 0 {
		fmt.Println("No recent events found.")
		return nil
	}

	printTimeline(ctx, timeline, github.NewVisibilityCache(client))
	return nil
}

// printTimeline renders the timeline as an aligned table.
func printTimeline(ctx context.Context, timeline models.Timeline, visibility *github.VisibilityCache) {
	kindWidth, repoWidth := 10, 10
	for _, e := range timeline {
		if len(e.Kind) > kindWidth {
			kindWidth = len(e.Kind)
		}
		if len(e.Repo) > repoWidth {
			repoWidth = len(e.Repo)
		}
	}

	fmt.Printf("%s | %s | %s | %s | %s\n",
		pad("TIMESTAMP", 19),
		pad("EVENT", kindWidth),
		pad("REPOSITORY", repoWidth),
		pad("VISIBILITY", 10),
		"URL")
	fmt.Printf("%s-+-%s-+-%s-+-%s-+-%s\n",
		strings.Repeat("-", 19),
		strings.Repeat("-", kindWidth),
		strings.Repeat("-", repoWidth),
		strings.Repeat("-", 10),
		strings.Repeat("-", 20))

	for _, e := range timeline {
		vis := "Public"
		if visibility.IsPrivate(ctx, e.Repo) {
			vis = "Private"
		}
		fmt.Printf("%s | %s | %s | %s | %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			pad(e.Kind, kindWidth),
			pad(e.Repo, repoWidth),
			pad(vis, 10),
			"https://github.com/"+e.Repo)
	}
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
