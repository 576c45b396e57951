package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yehey123/spending-tracker/internal/cli"
	"github.com/yehey123/spending-tracker/internal/common"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
		Long:  `Show statistics for the eligibility result cache or clear it entirely.`,
	}

	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheClearCmd())

	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show result cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStore(cfg)
			if err != nil {
				return err
			}

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return common.NewUserError("failed to read cache stats", err)
			}

			fmt.Println(cli.FormatTitle("Result Cache"))

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
			fmt.Fprintf(w, "%s\t%s\n",
				headerStyle.Render("Field"),
				headerStyle.Render("Value"))
			fmt.Fprintf(w, "%s\t%s\n",
				strings.Repeat("-", 12),
				strings.Repeat("-", 40))

			fmt.Fprintf(w, "Backend\t%s\n", stats.Backend)
			fmt.Fprintf(w, "Directory\t%s\n", stats.Directory)
			fmt.Fprintf(w, "Entries\t%d\n", stats.Entries)
			fmt.Fprintf(w, "Total size\t%s\n", humanize.Bytes(uint64(stats.TotalBytes)))
			if cfg.Cache.RedisConfigured() {
				fmt.Fprintf(w, "Redis URL\t%s\n", cfg.Cache.RedisURL)
			}

			return nil
		},
	}
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := initStore(cfg)
			if err != nil {
				return err
			}

			if err := store.Clear(cmd.Context()); err != nil {
				return common.NewUserError("failed to clear cache", err)
			}

			fmt.Println(cli.FormatSuccess("Cache cleared successfully"))
			return nil
		},
	}
}
