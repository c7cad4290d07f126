package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/coursesync/pkg/coursesync/cache"
	"github.com/jamesainslie/coursesync/pkg/coursesync/catalog"
	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Write the library catalog",
	Long: `Scan the course library and write a catalog for static front ends:

  index.json       every file with its folder, size, MIME type and
                   modification time (text files also get a title and
                   a short excerpt)
  categories.json  the folder tree: courses at depth 0, their category
                   folders at depth 1

Files are written atomically to index.path. The catalog can also be
rebuilt after every sync that copied files (index.after_sync).`,
	Example: `  coursesync index
  coursesync index --out ./web/public --formats index
  coursesync index --no-pretty`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("out", "", "output directory (default: index.path)")
	indexCmd.Flags().String("formats", "", "comma-separated formats to write: index, categories")
	indexCmd.Flags().Bool("no-pretty", false, "write compact JSON")
	indexCmd.Flags().Bool("no-checksums", false, "leave out SHA-256 digests")

	_ = viper.BindPFlag("index.path", indexCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("index.formats", indexCmd.Flags().Lookup("formats"))

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if noPretty, _ := cmd.Flags().GetBool("no-pretty"); noPretty {
		cfg.Index.Pretty = false
	}
	if noSums, _ := cmd.Flags().GetBool("no-checksums"); noSums {
		cfg.Index.Checksums = false
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var h *hasher.Hasher
	if cfg.Index.Checksums {
		hopts := hasher.Options{ChunkSize: cfg.ChunkSize}
		if cfg.Cache.Enabled && !viper.GetBool("no_cache") {
			c, err := cache.Open(cfg.Cache.Path)
			if err != nil {
				logging.Get(logging.Catalog).Warn("digest cache unavailable", "path", cfg.Cache.Path, "error", err)
			} else {
				defer c.Close()
				hopts.Cache = c
			}
		}
		h = hasher.New(hopts)
	}

	cat, written, err := writeCatalog(ctx, cfg, h)
	if err != nil {
		return err
	}
	if !getQuiet() {
		printCatalogSummary(cmd.OutOrStdout(), cat, written)
	}
	return nil
}

// writeCatalog builds the catalog of cfg.LibraryRoot and writes the
// configured formats to cfg.Index.Path. h may be nil to skip digests.
func writeCatalog(ctx context.Context, cfg *config.Config, h *hasher.Hasher) (*catalog.Catalog, []string, error) {
	formats, err := catalog.ParseFormats(cfg.Index.Formats)
	if err != nil {
		return nil, nil, err
	}
	out := cfg.Index.Path
	if out == "" {
		out = config.DefaultIndexPath()
	}
	out, err = filepath.Abs(out)
	if err != nil {
		return nil, nil, err
	}

	cat, err := catalog.Build(ctx, cfg.LibraryRoot, catalog.Options{
		Ignore: catalogIgnore(cfg, out),
		Hasher: h,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("building catalog: %w", err)
	}

	written, err := catalog.Write(cat, catalog.WriteOptions{
		Dir:     out,
		Formats: formats,
		Pretty:  cfg.Index.Pretty,
	})
	if err != nil {
		return cat, written, fmt.Errorf("writing catalog: %w", err)
	}
	return cat, written, nil
}

// catalogIgnore is the configured ignore list plus the output directory
// when it sits inside the library, so the catalog never lists itself.
func catalogIgnore(cfg *config.Config, out string) []string {
	ignore := cfg.Index.Ignore
	if ignore == nil {
		ignore = catalog.DefaultIgnore
	}
	ignore = append([]string(nil), ignore...)

	root, err := filepath.Abs(cfg.LibraryRoot)
	if err != nil {
		return ignore
	}
	rel, err := filepath.Rel(root, out)
	switch {
	case err != nil, rel == "..", strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return ignore
	case rel == ".":
		for _, f := range catalog.Formats {
			ignore = append(ignore, "/"+f.FileName())
		}
		return ignore
	}
	// Anchored so a course folder of the same name deeper down still counts.
	return append(ignore, "/"+filepath.ToSlash(rel))
}

func printCatalogSummary(w io.Writer, cat *catalog.Catalog, written []string) {
	fmt.Fprintf(w, "Indexed %d files in %d folders (%d ignored) in %dms\n",
		cat.Stats.TotalFiles, cat.Stats.TotalCategories, cat.Stats.IgnoredPaths, cat.Stats.ProcessingTimeMs)
	for _, p := range written {
		fmt.Fprintf(w, "  wrote %s\n", p)
	}
}
