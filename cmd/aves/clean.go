package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aves/internal/source"
	"aves/internal/vcache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached verify results",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		dir := cfg.CachePath(wd)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return nil
		}
		cache, err := vcache.Open(dir)
		if err != nil {
			return err
		}
		if err := cache.Drop(); err != nil {
			return fmt.Errorf("failed to clean %s: %w", dir, err)
		}
		if quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet"); !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", source.DisplayPath(dir))
		}
		return nil
	},
}
