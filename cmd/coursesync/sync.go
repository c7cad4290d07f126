package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/coursesync/pkg/coursesync/cache"
	"github.com/jamesainslie/coursesync/pkg/coursesync/category"
	"github.com/jamesainslie/coursesync/pkg/coursesync/config"
	"github.com/jamesainslie/coursesync/pkg/coursesync/course"
	"github.com/jamesainslie/coursesync/pkg/coursesync/hasher"
	"github.com/jamesainslie/coursesync/pkg/coursesync/history"
	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
	"github.com/jamesainslie/coursesync/pkg/coursesync/output"
	"github.com/jamesainslie/coursesync/pkg/coursesync/syncer"
)

// sessionOptions are the per-invocation switches that are not part of the
// persistent configuration.
type sessionOptions struct {
	DryRun    bool
	NoCache   bool
	NoHistory bool
	Quiet     bool
	Out       io.Writer
}

// session owns the resources shared by consecutive syncs: the digest
// cache, the history store and the chosen formatter.
type session struct {
	cfg       *config.Config
	opts      sessionOptions
	cache     *cache.Cache
	history   *history.History
	formatter output.Formatter
	hasher    *hasher.Hasher
	syncer    *syncer.Syncer
	logger    *logging.Logger
}

func newSession(cfg *config.Config, opts sessionOptions) (*session, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	format := cfg.Output
	if format == "" {
		format = config.DefaultOutput
	}
	formatter, err := output.Get(format)
	if err != nil {
		return nil, fmt.Errorf("unknown output format %q: available formats are %v", format, output.Available())
	}

	aliases, err := aliasesFromConfig(cfg.Aliases)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:       cfg,
		opts:      opts,
		formatter: formatter,
		logger:    logging.Get(logging.Syncer),
	}

	hopts := hasher.Options{ChunkSize: cfg.ChunkSize}
	if cfg.Cache.Enabled && !opts.NoCache {
		c, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			// Usually another instance holds the badger lock.
			s.logger.Warn("digest cache unavailable", "path", cfg.Cache.Path, "error", err)
		} else {
			s.cache = c
			hopts.Cache = c
		}
	}

	if cfg.History.Enabled && !opts.NoHistory && !opts.DryRun {
		h, err := history.New(cfg.History.Path)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.history = h
	}

	s.hasher = hasher.New(hopts)
	s.syncer = syncer.New(syncer.Options{
		LibraryRoot: cfg.LibraryRoot,
		SourceDir:   cfg.SourceDir,
		Hasher:      s.hasher,
		Aliases:     aliases,
		DryRun:      opts.DryRun,
		OnAction:    s.streamAction,
	})

	return s, nil
}

// streamAction prints one line per file for formatters that support it.
func (s *session) streamAction(a syncer.Action) {
	if s.opts.Quiet {
		return
	}
	streamer, ok := s.formatter.(output.Streamer)
	if !ok {
		return
	}
	oa := output.NewAction(a)
	var buf bytes.Buffer
	if err := streamer.FormatAction(&buf, &oa); err != nil {
		s.logger.Warn("formatting action failed", logging.KeyFile, a.Name, "error", err)
		return
	}
	_, _ = s.opts.Out.Write(buf.Bytes())
}

// run performs one sync, prints its result and records it in the history.
func (s *session) run(ctx context.Context) (*syncer.Report, error) {
	report, runErr := s.syncer.Run(ctx)

	// A run that failed before touching any file has nothing to summarize.
	if runErr != nil && report.Processed == 0 {
		return report, runErr
	}

	result := output.FromReport(report)

	if runErr == nil && s.history != nil {
		entry, err := s.history.Log(report)
		if err != nil {
			s.logger.Warn("recording history failed", "error", err)
		} else {
			result.HistoryID = entry.ID
		}
	}

	if runErr == nil && s.cfg.Index.AfterSync && !s.opts.DryRun && report.Copied > 0 {
		s.refreshCatalog(ctx)
	}

	var buf bytes.Buffer
	if err := s.formatter.Format(&buf, result); err != nil {
		return report, fmt.Errorf("formatting output: %w", err)
	}
	if _, err := s.opts.Out.Write(buf.Bytes()); err != nil {
		return report, err
	}

	return report, runErr
}

// refreshCatalog rewrites the library catalog after a sync changed the
// library. Failures are logged; the sync itself already succeeded.
func (s *session) refreshCatalog(ctx context.Context) {
	var h *hasher.Hasher
	if s.cfg.Index.Checksums {
		h = s.hasher
	}
	cat, written, err := writeCatalog(ctx, s.cfg, h)
	if err != nil {
		logging.Get(logging.Catalog).Warn("catalog refresh failed", "error", err)
		return
	}
	logging.Get(logging.Catalog).Info("catalog refreshed", "files", cat.Stats.TotalFiles, "written", len(written))
}

// Close releases the digest cache.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("closing digest cache", "error", err)
		}
		s.cache = nil
	}
}

func sessionOptionsFromFlags(out io.Writer) sessionOptions {
	return sessionOptions{
		DryRun:    viper.GetBool("dry_run"),
		NoCache:   viper.GetBool("no_cache"),
		NoHistory: viper.GetBool("no_history"),
		Quiet:     getQuiet(),
		Out:       out,
	}
}

// aliasesFromConfig validates config-supplied aliases; categories may be
// given as folder names or English labels.
func aliasesFromConfig(in map[string]config.AliasConfig) (map[string]course.Alias, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]course.Alias, len(in))
	for key, a := range in {
		alias := course.Alias{Course: a.Course}
		if a.Category != "" {
			c, err := category.Parse(a.Category)
			if err != nil {
				return nil, fmt.Errorf("alias %q: %w", key, err)
			}
			alias.Category = c
		}
		out[key] = alias
	}
	return out, nil
}

// runSync is the root command: one sync of the drop folder.
func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSession(cfg, sessionOptionsFromFlags(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer s.Close()

	printVerbose("Syncing %s into %s", cfg.SourceDir, cfg.LibraryRoot)

	_, err = s.run(ctx)
	return err
}
