package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/coursesync/pkg/coursesync/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the digest cache.

The cache remembers the SHA-256 of every library file it has hashed, keyed
by path and validated against size, modification and change time and inode,
so repeat syncs only read new or changed library files. Files in the drop
folder are always hashed in full.
Cache data is stored in the XDG data directory (typically
~/.local/share/coursesync/digests).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached digests",
	Long:  `Removes all cached digests. The next sync hashes every file again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is already empty.")
			return nil
		}

		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		if err := c.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
		return nil
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:     "info",
	Aliases: []string{"stats"},
	Short:   "Show cache statistics",
	Long:    `Displays the cache location, the number of cached digests and the size on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
			fmt.Fprintln(w, "Cache: empty (no cache directory)")
			fmt.Fprintf(w, "Cache location: %s\n", cfg.Cache.Path)
			return nil
		}

		size, err := dirSize(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to calculate cache size: %w", err)
		}

		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		count, err := c.Count()
		if err != nil {
			return fmt.Errorf("failed to count cache entries: %w", err)
		}

		fmt.Fprintf(w, "Cache location: %s\n", cfg.Cache.Path)
		fmt.Fprintf(w, "Cached digests: %s\n", humanize.Comma(int64(count)))
		fmt.Fprintf(w, "Size on disk:   %s\n", humanize.IBytes(uint64(size)))
		if !cfg.Cache.Enabled {
			fmt.Fprintln(w, "(cache is disabled in the configuration)")
		}
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop digests of files that no longer exist",
	Long: `Removes cache entries whose file has been deleted or moved away.
Entries for files that still exist are kept even if the file changed;
the next lookup replaces them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if _, err := os.Stat(cfg.Cache.Path); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
			return nil
		}

		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer c.Close()

		removed, err := c.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s stale %s.\n", humanize.Comma(int64(removed)), plural(removed, "entry", "entries"))
		return nil
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Path)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}

func dirSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
