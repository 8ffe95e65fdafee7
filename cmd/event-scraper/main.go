// Package main provides the CLI entrypoint for the event scraper.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/myusername/dartconnect-event-scraper/internal/config"
	"github.com/myusername/dartconnect-event-scraper/internal/display"
	"github.com/myusername/dartconnect-event-scraper/pkg/archive"
	"github.com/myusername/dartconnect-event-scraper/pkg/discovery"
	"github.com/myusername/dartconnect-event-scraper/pkg/extract"
	"github.com/myusername/dartconnect-event-scraper/pkg/fetch"
	"github.com/myusername/dartconnect-event-scraper/pkg/models"
	"github.com/myusername/dartconnect-event-scraper/pkg/seeding"
	"github.com/myusername/dartconnect-event-scraper/pkg/store"
)

var (
	configPath string
	verbose    bool

	recordEvent  string
	recordBackup bool

	leaderboardJSON bool

	seedGroupA string
	seedGroupB string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "event-scraper",
		Short:         "Dart tournament match discovery and statistics scraper",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(newDiscoverCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newRecordCmd())
	rootCmd.AddCommand(newLeaderboardCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newSeedCmd())

	return rootCmd
}

// app holds the wired components shared by the scraping subcommands.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	fetcher *fetch.Fetcher
	store   *store.Store
	archive *archive.Archive
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	st, err := store.Open(cfg.Storage.StorePath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	arch, err := archive.New(cfg.Storage.ArchiveDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	fetcher := fetch.New(logger, fetch.Options{
		RenderHosts:  cfg.Site.RenderHosts,
		SettleDelay:  cfg.Fetch.SettleDelay(),
		SelectorWait: cfg.Fetch.SelectorWait(),
		HTTPTimeout:  cfg.Fetch.HTTPTimeout(),
	})

	return &app{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		store:   st,
		archive: arch,
	}, nil
}

func (a *app) close() {
	a.fetcher.Close()
}

func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <event-url>",
		Short: "Discover matches for an event and archive them",
		Args:  cobra.ExactArgs(1),
		RunE:  runDiscoverCmd,
	}
}

func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	engine := discovery.NewEngine(a.fetcher, a.logger, a.cfg.Site.BaseURL, a.cfg.Site.RecapBase)
	result, err := engine.Discover(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	dir, err := a.archive.SaveMatches(result.EventID, result.Matches, result.RawAPIResponse)
	if err != nil {
		return fmt.Errorf("failed to archive matches: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Event %s: %d matches (archived to %s)\n",
		result.EventID, len(result.Matches), dir)
	display.Matches(cmd.OutOrStdout(), result.Matches)
	return nil
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <recap-url>",
		Short: "Extract player statistics from a match recap",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtractCmd,
	}
}

func runExtractCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	engine := extract.NewEngine(a.fetcher, a.logger)
	stats, err := engine.Extract(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	display.Stats(cmd.OutOrStdout(), stats)
	return nil
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <recap-url>",
		Short: "Extract a recap and fold the stats into the aggregation store",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecordCmd,
	}
	cmd.Flags().StringVar(&recordEvent, "event", "", "event identifier (required)")
	cmd.Flags().BoolVar(&recordBackup, "backup", false, "back up the store before recording")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func runRecordCmd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	matchURL := args[0]

	if recordBackup {
		path, err := a.store.Backup()
		if err != nil {
			return fmt.Errorf("failed to back up store: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Store backed up to %s\n", path)
	}

	engine := extract.NewEngine(a.fetcher, a.logger)
	stats, err := engine.Extract(context.Background(), matchURL)
	if err != nil {
		if uerr := a.archive.UpdateMatchStatus(recordEvent, matchURL, models.StatusError, nil); uerr != nil {
			a.logger.Warn("failed to mark match errored", "url", matchURL, "error", uerr)
		}
		return fmt.Errorf("extraction failed: %w", err)
	}
	if len(stats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No statistics found on recap page.")
		return nil
	}

	recorded := 0
	for _, s := range stats {
		applied, err := a.store.RecordMatch(s.PlayerName, recordEvent, s, matchURL)
		if err != nil {
			return fmt.Errorf("failed to record stats for %s: %w", s.PlayerName, err)
		}
		if applied {
			recorded++
		}
	}

	if err := a.archive.UpdateMatchStatus(recordEvent, matchURL, models.StatusCompleted, stats); err != nil {
		a.logger.Warn("failed to update archive status", "url", matchURL, "error", err)
	}

	if recorded == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Match already recorded; aggregates unchanged.")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d player stat lines for %s\n", recorded, recordEvent)
	}
	display.Stats(cmd.OutOrStdout(), stats)
	return nil
}

func newLeaderboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the cumulative player leaderboard",
		Args:  cobra.NoArgs,
		RunE:  runLeaderboardCmd,
	}
	cmd.Flags().BoolVar(&leaderboardJSON, "json", false, "emit the full store export as JSON")
	return cmd
}

func runLeaderboardCmd(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if leaderboardJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(a.store.Export())
	}
	display.Leaderboard(cmd.OutOrStdout(), a.store.Leaderboard())
	return nil
}

func newEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List archived events and their scraping progress",
		Args:  cobra.NoArgs,
		RunE:  runEventsCmd,
	}
}

func runEventsCmd(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	events, err := a.archive.ListEvents()
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	display.Events(cmd.OutOrStdout(), events)
	return nil
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate crossover quarterfinal seeding from group standings",
		Args:  cobra.NoArgs,
		RunE:  runSeedCmd,
	}
	cmd.Flags().StringVar(&seedGroupA, "group-a", "", "JSON file with Group A standings (required)")
	cmd.Flags().StringVar(&seedGroupB, "group-b", "", "JSON file with Group B standings (required)")
	_ = cmd.MarkFlagRequired("group-a")
	_ = cmd.MarkFlagRequired("group-b")
	return cmd
}

func runSeedCmd(cmd *cobra.Command, _ []string) error {
	groupA, err := loadStandings(seedGroupA)
	if err != nil {
		return err
	}
	groupB, err := loadStandings(seedGroupB)
	if err != nil {
		return err
	}

	rankedA := seeding.RankGroup(groupA)
	rankedB := seeding.RankGroup(groupB)

	qfs, err := seeding.Quarterfinals(seeding.TopN(rankedA, 4), seeding.TopN(rankedB, 4))
	if err != nil {
		return fmt.Errorf("failed to seed quarterfinals: %w", err)
	}

	pairs := make([][2]string, len(qfs))
	for i, m := range qfs {
		pairs[i] = [2]string{m.Home.Name, m.Away.Name}
	}
	display.Matchups(cmd.OutOrStdout(), "Quarterfinals (crossover seeding):", pairs)
	return nil
}

func loadStandings(path string) ([]seeding.Player, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read standings file: %w", err)
	}
	var players []seeding.Player
	if err := json.Unmarshal(raw, &players); err != nil {
		return nil, fmt.Errorf("failed to decode standings file %s: %w", path, err)
	}
	return players, nil
}
