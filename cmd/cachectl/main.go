package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"image-resolver/internal/database"

	"github.com/spf13/cobra"
)

const (
	// Default timeout for API and database operations
	defaultTimeout = 30 * time.Second
	// Default database directory path
	defaultDatabaseDir = "/database"
)

var serverURL string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "cachectl",
		Short: "Administer a running image-resolver instance",
		Long: `cachectl inspects and manages the caches of a running image-resolver
server over its HTTP API. The vacuum command works on the database
directly and should be run while the server is stopped.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "base URL of the image-resolver server")

	root.AddCommand(
		newStatsCmd(),
		newClearCmd(),
		newPreloadCmd(),
		newResolveCmd(),
		newVacuumCmd(),
	)

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			stats, err := newAPIClient(serverURL).CacheStats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatStats(stats))
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear every cache layer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				fmt.Fprint(cmd.OutOrStdout(), "This removes all cached images and resolutions. Continue? [y/N]: ")
				var answer string
				fmt.Fscanln(cmd.InOrStdin(), &answer)
				if answer != "y" && answer != "Y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			freed, err := newAPIClient(serverURL).ClearCache(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Caches cleared, %s freed.\n", formatBytes(freed))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newPreloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preload URL...",
		Short: "Warm the image cache with one or more URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Preloads fetch upstream images and can take a while.
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			loaded, err := newAPIClient(serverURL).Preload(ctx, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d of %d URLs.\n", loaded, len(args))
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	var telegramURL, fallbackURL, name, id string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one group to an image URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if telegramURL == "" && name == "" && id == "" {
				return fmt.Errorf("at least one of --telegram-url, --name, or --id is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			res, err := newAPIClient(serverURL).Resolve(ctx, telegramURL, fallbackURL, name, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "URL:      %s\n", res.URL)
			fmt.Fprintf(cmd.OutOrStdout(), "Source:   %s\n", res.Source)
			if res.Repaired {
				fmt.Fprintln(cmd.OutOrStdout(), "Repaired: yes")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&telegramURL, "telegram-url", "", "the group's t.me URL")
	cmd.Flags().StringVar(&fallbackURL, "fallback-url", "", "image URL stored on the group record")
	cmd.Flags().StringVar(&name, "name", "", "the group's display name")
	cmd.Flags().StringVar(&id, "id", "", "the group's directory ID")
	return cmd
}

func newVacuumCmd() *cobra.Command {
	var databaseDir string
	cmd := &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the resolution database",
		Long: `Compact the resolution database in place. Opens the database file
directly, so run this while the server is stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
			defer cancel()

			dbPath := filepath.Join(databaseDir, "resolutions.db")
			db, err := database.New(ctx, dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database at %s: %w", dbPath, err)
			}
			defer db.Close()

			if err := db.Vacuum(); err != nil {
				return fmt.Errorf("vacuum failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database compacted.")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseDir, "database-dir", envOr("DATABASE_DIR", defaultDatabaseDir), "directory holding resolutions.db")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
