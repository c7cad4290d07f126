package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/coursesync/pkg/coursesync/logging"
	"github.com/jamesainslie/coursesync/pkg/coursesync/syncer"
	"github.com/jamesainslie/coursesync/pkg/coursesync/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync whenever the drop folder changes",
	Long: `Run one sync, then watch the drop folder and sync again each time it has
been quiet for the debounce period (watch.debounce, default 2s).

Every triggered run is a full independent sync, so files dropped while a
run is in progress are picked up by the next one. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	// The initial sync also validates both roots.
	if _, err := s.run(ctx); err != nil {
		return err
	}

	w, err := watcher.New(cfg.Watch.Debounce)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer w.Close()

	if err := w.Watch(cfg.SourceDir); err != nil {
		return fmt.Errorf("watching %s: %w", cfg.SourceDir, err)
	}

	logger := logging.Get(logging.Watcher)
	logger.Info("watching", "source", cfg.SourceDir, "directories", w.Watched(), "debounce", cfg.Watch.Debounce)
	printInfo("Watching %s (Ctrl-C to stop)", cfg.SourceDir)

	var fatal error
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.Run(runCtx, func(ctx context.Context, changed []string) {
		logger.Debug("change detected", "paths", len(changed))
		if _, err := s.run(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("sync failed", "error", err)
			if errors.Is(err, syncer.ErrMissingRoot) {
				fatal = err
				cancel()
				return
			}
			printError("%v", err)
		}
	})

	return fatal
}
