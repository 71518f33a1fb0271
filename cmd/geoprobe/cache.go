package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AI-Template-SDK/senso-geo/internal/cache"
)

func newCacheCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the result cache",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "Cache directory (default: configured cache dir)")

	open := func() (*cache.Store, error) {
		cfg, logger, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if dir == "" {
			dir = cfg.Cache.Dir
		}
		return cache.NewStore(dir, cfg.Cache.TTL, logger, nil)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print cache statistics",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				stats, err := store.Stats()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), stats)
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every cache entry",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				n, err := store.Clear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "cleanup",
			Short: "Remove expired cache entries",
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := open()
				if err != nil {
					return err
				}
				n, err := store.CleanupExpired()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", n)
				return nil
			},
		},
	)
	return cmd
}
